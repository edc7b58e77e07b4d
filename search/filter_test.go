package search

import (
	"testing"

	"github.com/poiesic/ragtime/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestFilter(t *testing.T) {
	tests := []struct {
		name      string
		input     []core.Candidate
		threshold float32
		topK      int
		wantIDs   []core.ID
		wantLow   bool
		want      Outcome
	}{
		{
			name:      "keeps passing candidates",
			input:     []core.Candidate{cand(1, 0.9, 0), cand(2, 0.6, 0), cand(3, 0.4, 0)},
			threshold: 0.5,
			topK:      5,
			wantIDs:   []core.ID{1, 2},
			want:      OutcomeConfident,
		},
		{
			name:      "caps at top k",
			input:     []core.Candidate{cand(1, 0.9, 0), cand(2, 0.8, 0), cand(3, 0.7, 0)},
			threshold: 0.5,
			topK:      2,
			wantIDs:   []core.ID{1, 2},
			want:      OutcomeConfident,
		},
		{
			name:      "score equal to threshold passes",
			input:     []core.Candidate{cand(1, 0.5, 0)},
			threshold: 0.5,
			topK:      3,
			wantIDs:   []core.ID{1},
			want:      OutcomeConfident,
		},
		{
			name:      "falls back when nothing passes",
			input:     []core.Candidate{cand(1, 0.3, 0), cand(2, 0.45, 0), cand(3, 0.1, 0)},
			threshold: 0.5,
			topK:      2,
			wantIDs:   []core.ID{2, 1},
			wantLow:   true,
			want:      OutcomeFallback,
		},
		{
			name:      "fallback shorter than top k",
			input:     []core.Candidate{cand(1, -0.2, 0)},
			threshold: 0.5,
			topK:      7,
			wantIDs:   []core.ID{1},
			wantLow:   true,
			want:      OutcomeFallback,
		},
		{
			name:      "empty input",
			input:     nil,
			threshold: 0.5,
			topK:      5,
			wantIDs:   []core.ID{},
			wantLow:   true,
			want:      OutcomeEmpty,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Filter(tt.input, tt.threshold, tt.topK)
			assert.Equal(t, tt.wantIDs, ids(result.Candidates))
			assert.Equal(t, tt.wantLow, result.LowConfidence)
			assert.Equal(t, tt.want, result.Outcome)
		})
	}

	t.Run("does not modify input", func(t *testing.T) {
		input := []core.Candidate{cand(1, 0.1, 0), cand(2, 0.9, 0)}
		Filter(input, 0.5, 1)
		assert.Equal(t, []core.ID{1, 2}, ids(input))
	})

	t.Run("empty corpus and below threshold are distinct outcomes", func(t *testing.T) {
		empty := Filter(nil, 0.5, 5)
		below := Filter([]core.Candidate{cand(1, 0.2, 0)}, 0.5, 5)
		require.True(t, empty.LowConfidence)
		require.True(t, below.LowConfidence)
		assert.NotEqual(t, empty.Outcome, below.Outcome)
		assert.Empty(t, empty.Candidates)
		assert.NotEmpty(t, below.Candidates)
	})
}

func TestFilterProperties(t *testing.T) {
	t.Run("cap", func(t *testing.T) {
		rapid.Check(t, func(t *rapid.T) {
			fused := Fuse(candidateListsGen().Draw(t, "candidates")...)
			topK := rapid.IntRange(1, 10).Draw(t, "topK")
			threshold := float32(rapid.Float64Range(0, 1).Draw(t, "threshold"))

			result := Filter(fused, threshold, topK)
			if len(result.Candidates) > topK {
				t.Fatalf("got %d candidates, cap is %d", len(result.Candidates), topK)
			}
			if len(fused) > 0 && len(result.Candidates) == 0 {
				t.Fatalf("non-empty input produced empty output")
			}
		})
	})

	t.Run("monotonic threshold", func(t *testing.T) {
		rapid.Check(t, func(t *rapid.T) {
			fused := Fuse(candidateListsGen().Draw(t, "candidates")...)
			topK := rapid.IntRange(1, 10).Draw(t, "topK")
			low := float32(rapid.Float64Range(0, 1).Draw(t, "low"))
			high := float32(rapid.Float64Range(float64(low), 1).Draw(t, "high"))

			passing := func(threshold float32) int {
				r := Filter(fused, threshold, topK)
				if r.Outcome != OutcomeConfident {
					return 0
				}
				return len(r.Candidates)
			}
			if passing(high) > passing(low) {
				t.Fatalf("raising threshold %v -> %v grew passing set", low, high)
			}
		})
	})

	t.Run("fallback", func(t *testing.T) {
		rapid.Check(t, func(t *rapid.T) {
			fused := Fuse(candidateListsGen().Draw(t, "candidates")...)
			topK := rapid.IntRange(1, 10).Draw(t, "topK")

			// Every generated score is at most 1, so a threshold above 1 fails all.
			result := Filter(fused, 1.5, topK)
			if !result.LowConfidence {
				t.Fatalf("expected low confidence")
			}
			if want := min(topK, len(fused)); len(result.Candidates) != want {
				t.Fatalf("got %d candidates, want %d", len(result.Candidates), want)
			}
			for i := range result.Candidates {
				if result.Candidates[i].Fragment.ID != fused[i].Fragment.ID {
					t.Fatalf("fallback is not the top of the fused list at %d", i)
				}
			}
		})
	})
}
