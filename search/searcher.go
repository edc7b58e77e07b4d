package search

import (
	"context"
	"log/slog"
	"time"

	"github.com/poiesic/ragtime/core"
)

// Params controls one search.
type Params struct {
	// TopK caps the filtered result.
	TopK int
	// Multiplier scales TopK into the per-query retrieval count.
	Multiplier int
	// Threshold is the minimum similarity for a confident match.
	Threshold float32
	// Rerank enables model-based reordering of the filtered result.
	Rerank bool
}

// Result holds every stage of a search.
type Result struct {
	Queries []string
	// Fused is the deduplicated candidate list before filtering.
	Fused []core.Candidate
	FilterResult
}

// Searcher runs retrieval, fusion, filtering and optional reranking.
type Searcher struct {
	retriever *Retriever
	reranker  *Reranker
	logger    *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// WithReranker enables reranking for searches whose Params ask for it.
func WithReranker(reranker *Reranker) Option {
	return func(s *Searcher) error {
		s.reranker = reranker
		return nil
	}
}

// NewSearcher creates a new searcher.
func NewSearcher(retriever *Retriever, opts ...Option) (*Searcher, error) {
	if retriever == nil {
		return nil, ErrRetrieverRequired
	}

	s := &Searcher{
		retriever: retriever,
		logger:    slog.Default(),
	}

	// Apply options
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	s.logger = s.logger.With("component", "searcher")

	return s, nil
}

// Search finds the fragments most relevant to question using the given
// rewritten queries.
func (s *Searcher) Search(ctx context.Context, question string, queries []string, params Params) (*Result, error) {
	return s.SearchWithMonitor(ctx, question, queries, params, nil)
}

// SearchWithMonitor is Search with stage callbacks delivered to monitor.
// A nil monitor is allowed.
func (s *Searcher) SearchWithMonitor(ctx context.Context, question string, queries []string, params Params, monitor Monitor) (result *Result, err error) {
	if monitor == nil {
		monitor = &noopMonitor{}
	}

	started := time.Now()
	monitor.Start(queries)
	defer func() {
		monitor.Finish(result, time.Since(started), err)
	}()

	k := max(params.TopK, 1) * max(params.Multiplier, 1)
	lists, err := s.retriever.Retrieve(ctx, queries, k)
	if err != nil {
		return nil, err
	}
	monitor.AfterRetrieve(lists)

	fused := Fuse(lists...)
	monitor.AfterFusion(fused)

	filtered := Filter(fused, params.Threshold, params.TopK)
	monitor.AfterFilter(filtered)

	if params.Rerank && s.reranker != nil && len(filtered.Candidates) > 1 {
		filtered.Candidates = s.reranker.Rerank(ctx, question, filtered.Candidates)
	}

	s.logger.Debug("search complete",
		"queries", len(queries),
		"fused", len(fused),
		"selected", len(filtered.Candidates),
		"outcome", filtered.Outcome,
	)

	return &Result{
		Queries:      queries,
		Fused:        fused,
		FilterResult: filtered,
	}, nil
}
