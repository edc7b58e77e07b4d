package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/poiesic/ragtime/ai"
	"github.com/poiesic/ragtime/core"
	"github.com/poiesic/ragtime/storage"
)

// embedder embeds and stores batches of fragments.
type embedder struct {
	repository     storage.FragmentRepository
	embedder       ai.Embedder
	maxRetries     int
	retryBaseDelay time.Duration
	logger         *slog.Logger
}

func newEmbedder(repository storage.FragmentRepository, e ai.Embedder, maxRetries int, retryBaseDelay time.Duration, logger *slog.Logger) *embedder {
	return &embedder{
		repository:     repository,
		embedder:       e,
		maxRetries:     maxRetries,
		retryBaseDelay: retryBaseDelay,
		logger:         logger.With("stage", "embeddings"),
	}
}

// process embeds fragments, normalizes the vectors and upserts them.
// It returns the number of fragments that were new to the repository.
func (e *embedder) process(ctx context.Context, fragments []*core.Fragment) (int, error) {
	if len(fragments) == 0 {
		return 0, nil
	}

	texts := make([]string, len(fragments))
	for i, f := range fragments {
		texts[i] = f.Text
	}

	e.logger.Debug("generating embeddings", "fragments", len(texts))
	var embeddings [][]float32
	err := ai.RetryTransient(ctx, func() error {
		var err error
		embeddings, err = e.embedder.EmbedTexts(ctx, texts)
		return err
	}, e.maxRetries, e.retryBaseDelay)
	if err != nil {
		e.logger.Error("error generating embeddings", "fragments", len(texts), "err", err)
		return 0, fmt.Errorf("embed %d fragments: %w", len(texts), err)
	}
	if len(embeddings) != len(fragments) {
		return 0, fmt.Errorf("%w: expected %d, received %d", ErrEmbeddingMismatch, len(fragments), len(embeddings))
	}

	for i := range fragments {
		fragments[i].Vector = core.NormalizeVector(embeddings[i])
	}

	created, err := e.repository.UpsertFragments(ctx, fragments...)
	if err != nil {
		return 0, fmt.Errorf("store %d fragments: %w", len(fragments), err)
	}
	return created, nil
}
