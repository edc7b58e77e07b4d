package rewrite

import (
	"slices"
	"strings"
)

// Stop words ignored when comparing queries
var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "be": true, "is": true, "are": true,
	"was": true, "to": true, "of": true, "and": true, "in": true, "that": true,
	"have": true, "it": true, "for": true, "not": true, "on": true, "with": true,
	"as": true, "you": true, "do": true, "at": true, "this": true, "but": true,
	"by": true, "from": true, "what": true, "how": true, "does": true, "about": true,
}

// tokenizeAndFilter splits text into words, lowercases, trims punctuation, and removes stop words
func tokenizeAndFilter(text string) []string {
	words := strings.Fields(text)
	filtered := make([]string, 0, len(words))

	for _, word := range words {
		cleaned := strings.ToLower(strings.Trim(word, ".,!?;:'\"-()[]{}¿¡"))
		if cleaned != "" && !stopWords[cleaned] {
			filtered = append(filtered, cleaned)
		}
	}

	return filtered
}

// queryKey reduces a query to its sorted, distinct content words.
// Queries that differ only in stop words, punctuation, case or word
// order share a key.
func queryKey(query string) string {
	words := tokenizeAndFilter(query)
	if len(words) == 0 {
		return strings.ToLower(strings.TrimSpace(query))
	}
	slices.Sort(words)
	return strings.Join(slices.Compact(words), " ")
}
