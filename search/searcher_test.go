package search

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/poiesic/ragtime/ai/mock"
	"github.com/poiesic/ragtime/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingMonitor struct {
	mu       sync.Mutex
	stages   []string
	finalErr error
}

func (m *recordingMonitor) record(stage string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stages = append(m.stages, stage)
}

func (m *recordingMonitor) Start(_ []string)                   { m.record("start") }
func (m *recordingMonitor) AfterRetrieve(_ [][]core.Candidate) { m.record("retrieve") }
func (m *recordingMonitor) AfterFusion(_ []core.Candidate)     { m.record("fusion") }
func (m *recordingMonitor) AfterFilter(_ FilterResult)         { m.record("filter") }
func (m *recordingMonitor) Finish(_ *Result, _ time.Duration, err error) {
	m.record("finish")
	m.mu.Lock()
	m.finalErr = err
	m.mu.Unlock()
}

func newTestSearcher(t *testing.T, index VectorIndex, opts ...Option) *Searcher {
	t.Helper()
	r, err := NewRetriever(mock.NewMockEmbedder(), index)
	require.NoError(t, err)
	t.Cleanup(r.Release)

	s, err := NewSearcher(r, opts...)
	require.NoError(t, err)
	return s
}

func TestNewSearcher(t *testing.T) {
	t.Run("nil retriever", func(t *testing.T) {
		_, err := NewSearcher(nil)
		assert.Equal(t, ErrRetrieverRequired, err)
	})

	t.Run("with custom logger", func(t *testing.T) {
		s := newTestSearcher(t, indexFunc(nil), WithLogger(slog.Default()))
		assert.NotNil(t, s)
	})

	t.Run("with nil logger falls back to default", func(t *testing.T) {
		s := newTestSearcher(t, indexFunc(nil), WithLogger(nil))
		assert.NotNil(t, s)
	})
}

func TestSearch(t *testing.T) {
	ctx := context.Background()

	// Both queries see fragment 1, with different scores.
	index := indexFunc(func(_ context.Context, vector []float32, k int, _ string) ([]core.Candidate, error) {
		if vector[0] > 0 {
			return []core.Candidate{cand(1, 0.61, 0), cand(2, 0.40, 0)}, nil
		}
		return []core.Candidate{cand(1, 0.74, 0), cand(3, 0.55, 0)}, nil
	})

	t.Run("fuses and filters", func(t *testing.T) {
		embedder := mock.NewMockEmbedder().WithEmbedQueryFunc(func(_ context.Context, text string) ([]float32, error) {
			if text == "first" {
				return []float32{1, 0}, nil
			}
			return []float32{-1, 0}, nil
		})
		r, err := NewRetriever(embedder, index)
		require.NoError(t, err)
		defer r.Release()
		s, err := NewSearcher(r)
		require.NoError(t, err)

		monitor := &recordingMonitor{}
		result, err := s.SearchWithMonitor(ctx, "q", []string{"first", "second"}, Params{TopK: 5, Multiplier: 3, Threshold: 0.5}, monitor)
		require.NoError(t, err)

		assert.Equal(t, []core.ID{1, 3, 2}, ids(result.Fused))
		assert.InDelta(t, 0.74, result.Fused[0].Score, 1e-6)
		assert.Equal(t, []core.ID{1, 3}, ids(result.Candidates))
		assert.False(t, result.LowConfidence)
		assert.Equal(t, OutcomeConfident, result.Outcome)
		assert.Equal(t, []string{"start", "retrieve", "fusion", "filter", "finish"}, monitor.stages)
		assert.NoError(t, monitor.finalErr)
	})

	t.Run("requests top_k times multiplier per query", func(t *testing.T) {
		var gotK int
		s := newTestSearcher(t, indexFunc(func(_ context.Context, _ []float32, k int, _ string) ([]core.Candidate, error) {
			gotK = k
			return nil, nil
		}))
		_, err := s.Search(ctx, "q", []string{"q"}, Params{TopK: 7, Multiplier: 3, Threshold: 0.5})
		require.NoError(t, err)
		assert.Equal(t, 21, gotK)
	})

	t.Run("empty index", func(t *testing.T) {
		s := newTestSearcher(t, indexFunc(func(context.Context, []float32, int, string) ([]core.Candidate, error) {
			return nil, nil
		}))
		result, err := s.Search(ctx, "q", []string{"q"}, Params{TopK: 5, Multiplier: 3, Threshold: 0.5})
		require.NoError(t, err)
		assert.Empty(t, result.Fused)
		assert.Equal(t, OutcomeEmpty, result.Outcome)
	})

	t.Run("failure reaches monitor", func(t *testing.T) {
		s := newTestSearcher(t, indexFunc(func(context.Context, []float32, int, string) ([]core.Candidate, error) {
			return nil, errors.New("offline")
		}))
		monitor := &recordingMonitor{}
		_, err := s.SearchWithMonitor(ctx, "q", []string{"q"}, Params{TopK: 5, Multiplier: 1}, monitor)
		require.Error(t, err)
		assert.Equal(t, []string{"start", "finish"}, monitor.stages)
		assert.ErrorIs(t, monitor.finalErr, core.ErrUpstreamUnavailable)
	})

	t.Run("rerank applies when enabled", func(t *testing.T) {
		gen := mock.NewMockGenerator().WithReplies("[3, 1]")
		reranker, err := NewReranker(gen, nil)
		require.NoError(t, err)

		embedder := mock.NewMockEmbedder().WithEmbedQueryFunc(func(context.Context, string) ([]float32, error) {
			return []float32{-1, 0}, nil
		})
		r, err := NewRetriever(embedder, index)
		require.NoError(t, err)
		defer r.Release()
		s, err := NewSearcher(r, WithReranker(reranker))
		require.NoError(t, err)

		result, err := s.Search(ctx, "q", []string{"q"}, Params{TopK: 5, Multiplier: 1, Threshold: 0.5, Rerank: true})
		require.NoError(t, err)
		assert.Equal(t, []core.ID{3, 1}, ids(result.Candidates))

		result, err = s.Search(ctx, "q", []string{"q"}, Params{TopK: 5, Multiplier: 1, Threshold: 0.5})
		require.NoError(t, err)
		assert.Equal(t, []core.ID{1, 3}, ids(result.Candidates))
		assert.Equal(t, 1, gen.CallCount())
	})
}
