package search

import (
	"slices"

	"github.com/poiesic/ragtime/core"
)

// Outcome describes which branch of Filter produced a result.
type Outcome string

const (
	// OutcomeConfident means at least one candidate met the threshold.
	OutcomeConfident Outcome = "confident"
	// OutcomeFallback means no candidate met the threshold and the best
	// candidates were returned regardless.
	OutcomeFallback Outcome = "fallback"
	// OutcomeEmpty means there were no candidates at all.
	OutcomeEmpty Outcome = "empty"
)

// FilterResult is the output of Filter.
type FilterResult struct {
	Candidates    []core.Candidate
	LowConfidence bool
	Outcome       Outcome
}

// Filter keeps the candidates scoring at least threshold, best first,
// capped at topK. When none pass, it falls back to the topK best
// candidates and flags the result as low confidence. An empty input is
// reported separately as OutcomeEmpty and is also low confidence.
//
// Filter never returns more than topK candidates and never fails.
// The input slice is not modified.
func Filter(candidates []core.Candidate, threshold float32, topK int) FilterResult {
	if len(candidates) == 0 || topK < 1 {
		return FilterResult{
			Candidates:    []core.Candidate{},
			LowConfidence: true,
			Outcome:       OutcomeEmpty,
		}
	}

	ordered := slices.Clone(candidates)
	sortByScore(ordered)

	passing := make([]core.Candidate, 0, min(topK, len(ordered)))
	for _, c := range ordered {
		if len(passing) == topK {
			break
		}
		if c.Score >= threshold {
			passing = append(passing, c)
		}
	}
	if len(passing) > 0 {
		return FilterResult{Candidates: passing, Outcome: OutcomeConfident}
	}

	return FilterResult{
		Candidates:    ordered[:min(topK, len(ordered))],
		LowConfidence: true,
		Outcome:       OutcomeFallback,
	}
}
