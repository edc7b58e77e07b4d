package search

import (
	"context"
	"errors"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/ragtime/ai"
	"github.com/poiesic/ragtime/core"
)

// DefaultCollection is searched when no collection is configured.
const DefaultCollection = "default"

// VectorIndex answers nearest-neighbor queries over stored fragments.
// Results are ordered by descending cosine similarity.
type VectorIndex interface {
	NearestNeighbors(ctx context.Context, vector []float32, k int, collection string) ([]core.Candidate, error)
}

// Retriever issues one embed-and-search call per query.
// Calls are independent and run concurrently on a shared worker pool.
type Retriever struct {
	embedder     ai.Embedder
	index        VectorIndex
	pool         *ants.Pool
	collection   string
	queryTimeout time.Duration
	logger       *slog.Logger
}

// RetrieverOption configures a Retriever.
type RetrieverOption func(*Retriever) error

// WithRetrieverLogger sets a custom logger.
// Default is slog.Default().
func WithRetrieverLogger(logger *slog.Logger) RetrieverOption {
	return func(r *Retriever) error {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger
		return nil
	}
}

// WithConcurrency sets how many queries may be in flight at once.
// Default is runtime.NumCPU(), with a minimum of 1.
func WithConcurrency(size int) RetrieverOption {
	return func(r *Retriever) error {
		if size < 1 {
			size = 1
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		if r.pool != nil {
			r.pool.Release()
		}
		r.pool = pool
		return nil
	}
}

// WithQueryTimeout bounds each embed-and-search call. Zero disables the bound.
// Default is 15 seconds.
func WithQueryTimeout(d time.Duration) RetrieverOption {
	return func(r *Retriever) error {
		r.queryTimeout = d
		return nil
	}
}

// WithCollection sets the collection searched.
func WithCollection(collection string) RetrieverOption {
	return func(r *Retriever) error {
		if collection == "" {
			collection = DefaultCollection
		}
		r.collection = collection
		return nil
	}
}

// NewRetriever creates a retriever. Call Release when done.
func NewRetriever(embedder ai.Embedder, index VectorIndex, opts ...RetrieverOption) (*Retriever, error) {
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if index == nil {
		return nil, ErrIndexRequired
	}

	pool, err := ants.NewPool(max(runtime.NumCPU(), 1))
	if err != nil {
		return nil, err
	}

	r := &Retriever{
		embedder:     embedder,
		index:        index,
		pool:         pool,
		collection:   DefaultCollection,
		queryTimeout: 15 * time.Second,
		logger:       slog.Default(),
	}

	for _, opt := range opts {
		if optErr := opt(r); optErr != nil {
			r.Release()
			return nil, optErr
		}
	}
	r.logger = r.logger.With("component", "retriever")

	return r, nil
}

// Release stops the worker pool.
func (r *Retriever) Release() {
	if r.pool != nil {
		r.pool.Release()
	}
}

// Collection returns the collection this retriever searches.
func (r *Retriever) Collection() string {
	return r.collection
}

// Retrieve returns up to k candidates for each query, in query order.
// Each candidate records the index of the query that produced it.
// Any failed call fails the whole retrieval with an UpstreamUnavailable
// error; caller cancellation is returned unwrapped.
func (r *Retriever) Retrieve(ctx context.Context, queries []string, k int) ([][]core.Candidate, error) {
	if len(queries) == 0 {
		return nil, ErrNoQueries
	}
	if k < 1 {
		return nil, ErrInvalidCount
	}

	lists := make([][]core.Candidate, len(queries))
	errs := make([]error, len(queries))

	var wg sync.WaitGroup
	for i, query := range queries {
		wg.Add(1)
		task := func() {
			defer wg.Done()
			lists[i], errs[i] = r.retrieveOne(ctx, i, query, k)
		}
		if err := r.pool.Submit(task); err != nil {
			// Pool closed or overloaded; run on the caller's goroutine.
			r.logger.Warn("worker pool rejected query, running inline", "err", err)
			task()
		}
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for i, err := range errs {
		if err == nil {
			continue
		}
		r.logger.Error("retrieval failed", "query_index", i, "queries", len(queries), "length", len(queries[i]), "err", err)
		if core.KindOf(err) == core.KindUpstreamUnavailable {
			return nil, err
		}
		return nil, core.Upstream("retriever", err)
	}

	return lists, nil
}

func (r *Retriever) retrieveOne(ctx context.Context, queryIndex int, query string, k int) ([]core.Candidate, error) {
	if r.queryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.queryTimeout)
		defer cancel()
	}

	vector, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(vector) == 0 {
		return nil, errors.New("embedder returned an empty vector")
	}

	candidates, err := r.index.NearestNeighbors(ctx, core.NormalizeVector(vector), k, r.collection)
	if err != nil {
		return nil, err
	}
	if len(candidates) > k {
		candidates = candidates[:k]
	}
	for i := range candidates {
		candidates[i].QueryIndex = queryIndex
	}

	r.logger.Debug("query retrieved", "query_index", queryIndex, "query", query, "candidates", len(candidates))
	return candidates, nil
}
