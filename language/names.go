package language

import "strings"

// Pivot is the default pivot language: embeddings and retrieval happen in English.
const Pivot = "en"

var names = map[string]string{
	"en":    "English",
	"es":    "Spanish",
	"fr":    "French",
	"de":    "German",
	"it":    "Italian",
	"pt":    "Portuguese",
	"ru":    "Russian",
	"zh":    "Chinese",
	"zh-cn": "Chinese (Simplified)",
	"zh-tw": "Chinese (Traditional)",
	"ja":    "Japanese",
	"ko":    "Korean",
	"ar":    "Arabic",
	"hi":    "Hindi",
	"nl":    "Dutch",
	"sv":    "Swedish",
	"no":    "Norwegian",
	"da":    "Danish",
	"fi":    "Finnish",
	"pl":    "Polish",
	"tr":    "Turkish",
	"uk":    "Ukrainian",
}

// LanguageName returns the English name of an ISO 639-1 code.
// Unknown codes are returned upper-cased.
func LanguageName(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if name, ok := names[code]; ok {
		return name
	}
	return strings.ToUpper(code)
}
