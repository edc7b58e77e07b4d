package prompt

import (
	"strings"

	"github.com/poiesic/ragtime/core"
)

// injectionTriggers are phrases that mark an attempt to override the
// system instructions.
var injectionTriggers = []string{
	"ignore instructions",
	"ignore your instructions",
	"ignore all instructions",
	"forget instructions",
	"forget previous instructions",
	"ignore previous",
	"disregard previous",
	"system prompt",
	"developer message",
	"jailbreak",
	"bypass safety",
	"override instructions",
}

// DetectInjection reports the first trigger phrase found in text.
// Matching ignores case and collapses runs of whitespace.
func DetectInjection(text string) (string, bool) {
	if text == "" {
		return "", false
	}
	normalized := strings.Join(strings.Fields(strings.ToLower(text)), " ")
	for _, trigger := range injectionTriggers {
		if strings.Contains(normalized, trigger) {
			return trigger, true
		}
	}
	return "", false
}

// HistoryHasInjection reports the first trigger found in any turn.
func HistoryHasInjection(turns []core.Turn) (string, bool) {
	for _, t := range turns {
		if trigger, ok := DetectInjection(t.Content); ok {
			return trigger, true
		}
	}
	return "", false
}
