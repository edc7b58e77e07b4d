package reembed

import (
	"context"
	"fmt"
	"time"

	"github.com/poiesic/ragtime/ai"
	"github.com/poiesic/ragtime/core"
	"github.com/poiesic/ragtime/storage"
)

// BatchProcessor re-embeds batches of fragments.
type BatchProcessor struct {
	repo           storage.FragmentRepository
	embedder       ai.Embedder
	maxRetries     int
	retryBaseDelay time.Duration
}

// NewBatchProcessor creates a new batch processor.
// maxRetries: maximum number of attempts for embedding API calls
// retryBaseDelay: base delay for exponential backoff
func NewBatchProcessor(repo storage.FragmentRepository, embedder ai.Embedder, maxRetries int, retryBaseDelay time.Duration) *BatchProcessor {
	return &BatchProcessor{
		repo:           repo,
		embedder:       embedder,
		maxRetries:     maxRetries,
		retryBaseDelay: retryBaseDelay,
	}
}

// Process generates embeddings for a batch of fragments and stores them.
// Vectors are normalized so the index can score with a dot product.
func (bp *BatchProcessor) Process(ctx context.Context, fragments []*core.Fragment) error {
	if len(fragments) == 0 {
		return nil
	}

	texts := make([]string, len(fragments))
	for i, f := range fragments {
		texts[i] = f.Text
	}

	var embeddings [][]float32
	err := ai.RetryTransient(ctx, func() error {
		var err error
		embeddings, err = bp.embedder.EmbedTexts(ctx, texts)
		return err
	}, bp.maxRetries, bp.retryBaseDelay)
	if err != nil {
		return fmt.Errorf("failed to generate embeddings after %d attempts: %w", bp.maxRetries, err)
	}

	if len(embeddings) != len(fragments) {
		return fmt.Errorf("%w: expected %d, got %d", ErrEmbeddingMismatch, len(fragments), len(embeddings))
	}

	for i := range fragments {
		fragments[i].Vector = core.NormalizeVector(embeddings[i])
	}

	if _, err := bp.repo.UpsertFragments(ctx, fragments...); err != nil {
		return fmt.Errorf("failed to update fragments: %w", err)
	}
	return nil
}
