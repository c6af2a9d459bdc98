package config

import "accord-ai/models"

// Localized text tables used by the response resolver. The tables are only
// read through the lookup functions below, which fall back to English.

var languageInstructions = map[models.Language]string{
	models.LanguageHindi:     "Please respond in Hindi (Devanagari script or Roman Hindi). Be helpful and friendly.",
	models.LanguageUrdu:      "Please respond in Urdu (Roman Urdu is fine). Be helpful and respectful.",
	models.LanguagePunjabi:   "Please respond in Punjabi (Roman Punjabi is fine). Be helpful and warm.",
	models.LanguageBengali:   "Please respond in Bengali (Roman Bengali is fine). Be helpful and respectful.",
	models.LanguageTamil:     "Please respond in Tamil (Roman Tamil is fine). Be helpful and respectful.",
	models.LanguageTelugu:    "Please respond in Telugu (Roman Telugu is fine). Be helpful and respectful.",
	models.LanguageGujarati:  "Please respond in Gujarati (Roman Gujarati is fine). Be helpful and respectful.",
	models.LanguageMarathi:   "Please respond in Marathi (Roman Marathi is fine). Be helpful and respectful.",
	models.LanguageKannada:   "Please respond in Kannada (Roman Kannada is fine). Be helpful and respectful.",
	models.LanguageMalayalam: "Please respond in Malayalam (Roman Malayalam is fine). Be helpful and respectful.",
	models.LanguageEnglish:   "Please respond in English. Be helpful and friendly.",
}

var partialMatchNotes = map[models.Language]string{
	models.LanguageHindi:   "\n\n(Note: Ye partial match hai mere knowledge base se. Main AI services temporarily unavailable hain, isliye ye response de raha hun.)",
	models.LanguageUrdu:    "\n\n(Note: Ye partial match hai mere knowledge base se. Main AI services temporarily unavailable hain, isliye ye response de raha hun.)",
	models.LanguagePunjabi: "\n\n(Note: Eh partial match hai mere knowledge base ton. Main AI services temporarily unavailable ne, isliye eh response de raha han.)",
	models.LanguageBengali: "\n\n(Note: Eta amar knowledge base theke partial match. Main AI services temporarily unavailable, tai eta response dichi.)",
	models.LanguageTamil:   "\n\n(Note: Idhu en knowledge base la irundhu partial match. Main AI services temporarily unavailable, adhanaala idha response kudukiren.)",
	models.LanguageEnglish: "\n\n(Note: This is a partial match from my knowledge base. Main AI services are temporarily unavailable, so I'm providing this response.)",
}

var fallbackResponses = map[models.Language]string{
	models.LanguageHindi:     "Maaf kijiye, mere paas is sawal ka jawab nahi hai. Kya aap kuch aur puch sakte hain?",
	models.LanguageUrdu:      "Maaf kijiye, mere paas is sawal ka jawab nahi hai. Kya aap kuch aur pooch sakte hain?",
	models.LanguagePunjabi:   "Maaf karo, mere kol is sawal da jawab nahi hai. Kuch hor puch sakte ho?",
	models.LanguageBengali:   "Khoma korben, amar ei proshner uttor nei. Apni onno kichu jigges korte paren?",
	models.LanguageTamil:     "Mannikkavum, enakku indha kelvikku badhil theriyaadhu. Vera edhaavathu kekkalaam?",
	models.LanguageTelugu:    "Kshaminchandi, naku ee prashnaku jawabhu thelidhu. Vera emaina adagavachu?",
	models.LanguageGujarati:  "Maaf karo, mare paase aa prashnano jawab nathi. Kainch hor puchi shakao?",
	models.LanguageMarathi:   "Maaf kara, majhyakade ya prashnaacha uttar nahi. Dusre kahi vicharu shakta?",
	models.LanguageKannada:   "Kshamisi, nanage ii prashnege uttara gottilla. Bere yenu kelabahudha?",
	models.LanguageMalayalam: "Kshemikkavu, enikku ee chodyathinu utharam ariyilla. Vere enthenkilum chodyikkam?",
	models.LanguageEnglish:   "I don't have an answer for that right now. Could you try asking something else?",
}

// BackupDownNotice is returned by the backup stage when no trigger matches
const BackupDownNotice = "Sorry, our main AI is temporarily down, but I'm still here! Try asking something else."

// BackupIndicator prefixes every backup-stage response
const BackupIndicator = "🔄 "

// LanguageInstruction returns the prompt prefix asking the model to answer in lang
func LanguageInstruction(lang models.Language) string {
	if s, ok := languageInstructions[lang]; ok {
		return s
	}
	return languageInstructions[models.LanguageEnglish]
}

// PartialMatchNote returns the disclaimer appended to low-confidence dataset answers
func PartialMatchNote(lang models.Language) string {
	if s, ok := partialMatchNotes[lang]; ok {
		return s
	}
	return partialMatchNotes[models.LanguageEnglish]
}

// FallbackResponse returns the built-in "I don't know" message for lang
func FallbackResponse(lang models.Language) string {
	if s, ok := fallbackResponses[lang]; ok {
		return s
	}
	return fallbackResponses[models.LanguageEnglish]
}

// FallbackLanguages lists every language with a built-in fallback message
func FallbackLanguages() []models.Language {
	return []models.Language{
		models.LanguageHindi, models.LanguageUrdu, models.LanguagePunjabi,
		models.LanguageBengali, models.LanguageTamil, models.LanguageTelugu,
		models.LanguageGujarati, models.LanguageMarathi, models.LanguageKannada,
		models.LanguageMalayalam, models.LanguageEnglish,
	}
}
