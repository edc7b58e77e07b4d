package openai

import (
	"strings"
	"unicode/utf8"
)

// detectionSampleRunes bounds how much of a question is sent for detection.
const detectionSampleRunes = 500

// stripCodeFence removes markdown fences some models wrap around JSON.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// sample returns at most n runes of s.
func sample(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// normalizeLanguageCode lower-cases a code and drops any region suffix
// ("pt-BR" -> "pt"). It returns "" for anything that is not two ASCII letters.
func normalizeLanguageCode(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if i := strings.IndexAny(code, "-_"); i >= 0 {
		code = code[:i]
	}
	if len(code) != 2 || !isLetter(rune(code[0])) || !isLetter(rune(code[1])) {
		return ""
	}
	return code
}

// isLetter returns true if the rune is an ASCII letter.
func isLetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}
