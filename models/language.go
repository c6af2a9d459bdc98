package models

// Language is one of the supported language tags
type Language string

const (
	LanguageHindi     Language = "hindi"
	LanguageUrdu      Language = "urdu"
	LanguagePunjabi   Language = "punjabi"
	LanguageBengali   Language = "bengali"
	LanguageTamil     Language = "tamil"
	LanguageTelugu    Language = "telugu"
	LanguageGujarati  Language = "gujarati"
	LanguageMarathi   Language = "marathi"
	LanguageKannada   Language = "kannada"
	LanguageMalayalam Language = "malayalam"
	LanguageEnglish   Language = "english"
)

// Categories that count as relevant for every detected language
const (
	CategoryCommonMultilingual    = "common_multilingual"
	CategoryTechnicalMultilingual = "technical_multilingual"
	CategoryFallback              = "fallback"
	FallbackDefaultKey            = "default"
)

// IsCrossLanguageCategory reports whether category is shared across languages
func IsCrossLanguageCategory(category string) bool {
	return category == CategoryCommonMultilingual || category == CategoryTechnicalMultilingual
}
