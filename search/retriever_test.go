package search

import (
	"context"
	"errors"
	"math"
	"sync/atomic"
	"testing"
	"time"

	"github.com/poiesic/ragtime/ai/mock"
	"github.com/poiesic/ragtime/core"
	"github.com/poiesic/ragtime/storage"
	"github.com/poiesic/ragtime/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// indexFunc adapts a function to VectorIndex.
type indexFunc func(ctx context.Context, vector []float32, k int, collection string) ([]core.Candidate, error)

func (f indexFunc) NearestNeighbors(ctx context.Context, vector []float32, k int, collection string) ([]core.Candidate, error) {
	return f(ctx, vector, k, collection)
}

// unit returns a 2D unit vector at the given angle in degrees.
func unit(degrees float64) []float32 {
	rad := degrees * math.Pi / 180
	return []float32{float32(math.Cos(rad)), float32(math.Sin(rad))}
}

// angleEmbedder maps known query strings to fixed directions.
func angleEmbedder(angles map[string]float64) *mock.MockEmbedder {
	return mock.NewMockEmbedder().WithEmbedQueryFunc(func(_ context.Context, text string) ([]float32, error) {
		deg, ok := angles[text]
		if !ok {
			return nil, errors.New("unknown query")
		}
		return unit(deg), nil
	})
}

func newSeededRepo(t *testing.T, angles ...float64) storage.FragmentRepository {
	t.Helper()
	repo, backend, err := badger.NewMemoryRepository()
	require.NoError(t, err)
	t.Cleanup(func() {
		repo.Close()
		backend.Close()
	})

	fragments := make([]*core.Fragment, len(angles))
	for i, deg := range angles {
		fragments[i] = &core.Fragment{
			Collection: DefaultCollection,
			SourceID:   "doc",
			Text:       "fragment at angle " + string(rune('A'+i)),
			Vector:     unit(deg),
		}
	}
	_, err = repo.UpsertFragments(context.Background(), fragments...)
	require.NoError(t, err)
	return repo
}

func TestNewRetriever(t *testing.T) {
	index := indexFunc(func(context.Context, []float32, int, string) ([]core.Candidate, error) { return nil, nil })

	t.Run("valid configuration", func(t *testing.T) {
		r, err := NewRetriever(mock.NewMockEmbedder(), index, WithConcurrency(2), WithQueryTimeout(time.Second))
		require.NoError(t, err)
		defer r.Release()
		assert.Equal(t, DefaultCollection, r.Collection())
	})

	t.Run("custom collection", func(t *testing.T) {
		r, err := NewRetriever(mock.NewMockEmbedder(), index, WithCollection("podcasts"))
		require.NoError(t, err)
		defer r.Release()
		assert.Equal(t, "podcasts", r.Collection())
	})

	t.Run("nil logger falls back to default", func(t *testing.T) {
		r, err := NewRetriever(mock.NewMockEmbedder(), index, WithRetrieverLogger(nil))
		require.NoError(t, err)
		r.Release()
	})

	t.Run("nil embedder", func(t *testing.T) {
		_, err := NewRetriever(nil, index)
		assert.Equal(t, ErrEmbedderRequired, err)
	})

	t.Run("nil index", func(t *testing.T) {
		_, err := NewRetriever(mock.NewMockEmbedder(), nil)
		assert.Equal(t, ErrIndexRequired, err)
	})
}

func TestRetrieve(t *testing.T) {
	repo := newSeededRepo(t, 0, 30, 60, 90)
	embedder := angleEmbedder(map[string]float64{"east": 0, "north": 90})

	r, err := NewRetriever(embedder, repo, WithConcurrency(2))
	require.NoError(t, err)
	defer r.Release()

	ctx := context.Background()

	t.Run("one list per query in query order", func(t *testing.T) {
		lists, err := r.Retrieve(ctx, []string{"east", "north"}, 2)
		require.NoError(t, err)
		require.Len(t, lists, 2)

		require.Len(t, lists[0], 2)
		assert.InDelta(t, 1.0, lists[0][0].Score, 1e-5)
		assert.Equal(t, 0, lists[0][0].QueryIndex)

		require.Len(t, lists[1], 2)
		assert.InDelta(t, 1.0, lists[1][0].Score, 1e-5)
		assert.Equal(t, 1, lists[1][0].QueryIndex)
		assert.NotEqual(t, lists[0][0].Fragment.ID, lists[1][0].Fragment.ID)
	})

	t.Run("query vectors are normalized", func(t *testing.T) {
		scaled := mock.NewMockEmbedder().WithEmbedQueryFunc(func(context.Context, string) ([]float32, error) {
			return []float32{5, 0}, nil
		})
		r2, err := NewRetriever(scaled, repo)
		require.NoError(t, err)
		defer r2.Release()

		lists, err := r2.Retrieve(ctx, []string{"anything"}, 1)
		require.NoError(t, err)
		assert.InDelta(t, 1.0, lists[0][0].Score, 1e-5)
	})

	t.Run("no queries", func(t *testing.T) {
		_, err := r.Retrieve(ctx, nil, 3)
		assert.ErrorIs(t, err, ErrNoQueries)
	})

	t.Run("invalid k", func(t *testing.T) {
		_, err := r.Retrieve(ctx, []string{"east"}, 0)
		assert.ErrorIs(t, err, ErrInvalidCount)
	})

	t.Run("embedder failure is upstream unavailable", func(t *testing.T) {
		_, err := r.Retrieve(ctx, []string{"east", "unknown"}, 2)
		require.Error(t, err)
		assert.ErrorIs(t, err, core.ErrUpstreamUnavailable)
		assert.Equal(t, core.KindUpstreamUnavailable, core.KindOf(err))
	})
}

func TestRetrieve_IndexFailures(t *testing.T) {
	ctx := context.Background()

	t.Run("index error is upstream unavailable", func(t *testing.T) {
		index := indexFunc(func(context.Context, []float32, int, string) ([]core.Candidate, error) {
			return nil, errors.New("index offline")
		})
		r, err := NewRetriever(mock.NewMockEmbedder(), index)
		require.NoError(t, err)
		defer r.Release()

		_, err = r.Retrieve(ctx, []string{"q"}, 3)
		assert.ErrorIs(t, err, core.ErrUpstreamUnavailable)
	})

	t.Run("slow query times out", func(t *testing.T) {
		index := indexFunc(func(ctx context.Context, _ []float32, _ int, _ string) ([]core.Candidate, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		})
		r, err := NewRetriever(mock.NewMockEmbedder(), index, WithQueryTimeout(20*time.Millisecond))
		require.NoError(t, err)
		defer r.Release()

		_, err = r.Retrieve(ctx, []string{"q"}, 3)
		assert.ErrorIs(t, err, core.ErrUpstreamUnavailable)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("oversized index result is truncated to k", func(t *testing.T) {
		index := indexFunc(func(context.Context, []float32, int, string) ([]core.Candidate, error) {
			return []core.Candidate{cand(1, 0.9, 0), cand(2, 0.8, 0), cand(3, 0.7, 0)}, nil
		})
		r, err := NewRetriever(mock.NewMockEmbedder(), index)
		require.NoError(t, err)
		defer r.Release()

		lists, err := r.Retrieve(ctx, []string{"q"}, 2)
		require.NoError(t, err)
		assert.Len(t, lists[0], 2)
	})

	t.Run("queries run concurrently", func(t *testing.T) {
		var inFlight, peak atomic.Int32
		index := indexFunc(func(context.Context, []float32, int, string) ([]core.Candidate, error) {
			n := inFlight.Add(1)
			defer inFlight.Add(-1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(30 * time.Millisecond)
			return nil, nil
		})
		r, err := NewRetriever(mock.NewMockEmbedder(), index, WithConcurrency(3))
		require.NoError(t, err)
		defer r.Release()

		_, err = r.Retrieve(ctx, []string{"a", "b", "c"}, 1)
		require.NoError(t, err)
		assert.Greater(t, peak.Load(), int32(1))
	})

	t.Run("collection is passed to the index", func(t *testing.T) {
		var got string
		index := indexFunc(func(_ context.Context, _ []float32, _ int, collection string) ([]core.Candidate, error) {
			got = collection
			return nil, nil
		})
		r, err := NewRetriever(mock.NewMockEmbedder(), index, WithCollection("lectures"))
		require.NoError(t, err)
		defer r.Release()

		_, err = r.Retrieve(ctx, []string{"q"}, 1)
		require.NoError(t, err)
		assert.Equal(t, "lectures", got)
	})
}
