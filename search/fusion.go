package search

import (
	"cmp"
	"slices"

	"github.com/poiesic/ragtime/core"
)

// Fuse merges per-query candidate lists into one list without duplicate
// fragment ids. A fragment seen in several lists keeps its highest score
// and the query index that produced it. The result is ordered by score,
// descending; equal scores keep first-seen order.
func Fuse(lists ...[]core.Candidate) []core.Candidate {
	total := 0
	for _, list := range lists {
		total += len(list)
	}

	fused := make([]core.Candidate, 0, total)
	position := make(map[core.ID]int, total)
	for _, list := range lists {
		for _, c := range list {
			if c.Fragment == nil {
				continue
			}
			i, seen := position[c.Fragment.ID]
			if !seen {
				position[c.Fragment.ID] = len(fused)
				fused = append(fused, c)
				continue
			}
			if c.Score > fused[i].Score {
				fused[i] = c
			}
		}
	}

	sortByScore(fused)
	return fused
}

// sortByScore orders candidates by descending score, preserving the
// relative order of ties.
func sortByScore(candidates []core.Candidate) {
	slices.SortStableFunc(candidates, func(a, b core.Candidate) int {
		return cmp.Compare(b.Score, a.Score)
	})
}
