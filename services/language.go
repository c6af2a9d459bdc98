package services

import (
	"regexp"

	"accord-ai/models"
)

type languagePattern struct {
	language models.Language
	pattern  *regexp.Regexp
}

// languagePatterns is checked in order and the first match wins. Patterns are
// plain substring alternations, so romanized words also match inside longer words.
var languagePatterns = []languagePattern{
	{models.LanguageHindi, regexp.MustCompile(`(?i)[अ-ह]|kya|hai|main|aap|kaise|haan|nahi|dhanyawad|namaste|madad`)},
	{models.LanguageUrdu, regexp.MustCompile(`(?i)assalam|alaikum|adab|shukria|alvida|aap|kaise|madad`)},
	{models.LanguagePunjabi, regexp.MustCompile(`(?i)sat sri akal|kiddan|tusi|kaun|chahidi`)},
	{models.LanguageBengali, regexp.MustCompile(`(?i)namaskar|kemon|achen|dhonnobad|apni|sahajyo`)},
	{models.LanguageTamil, regexp.MustCompile(`(?i)vanakkam|eppadi|irukkireenga|nandri|neenga|uthavi`)},
	{models.LanguageTelugu, regexp.MustCompile(`(?i)ela unnaru|dhanyawadalu|meeru|evaru|sahayam`)},
	{models.LanguageGujarati, regexp.MustCompile(`(?i)kem cho|aabhar|aavjo|tame|madad joiye`)},
	{models.LanguageMarathi, regexp.MustCompile(`(?i)kase aahat|tumhi kon|madad pahije`)},
	{models.LanguageKannada, regexp.MustCompile(`(?i)hegiddira|dhanyawadagalu|neevu yaaru|sahaya beku`)},
	{models.LanguageMalayalam, regexp.MustCompile(`(?i)engane undu|ningal aaraanu|sahayam venam`)},
}

// DetectLanguage classifies message into one of the supported language tags.
// Messages that match no pattern, including the empty string, are english.
func DetectLanguage(message string) models.Language {
	for _, lp := range languagePatterns {
		if lp.pattern.MatchString(message) {
			return lp.language
		}
	}
	return models.LanguageEnglish
}

// SupportedLanguages returns every tag DetectLanguage can produce in priority order
func SupportedLanguages() []models.Language {
	langs := make([]models.Language, 0, len(languagePatterns)+1)
	for _, lp := range languagePatterns {
		langs = append(langs, lp.language)
	}
	return append(langs, models.LanguageEnglish)
}
