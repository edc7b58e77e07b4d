package openai

import (
	"context"
	"errors"
	"log/slog"

	"github.com/poiesic/ragtime/ai"
	"github.com/poiesic/ragtime/core"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

// Embedder implements ai.Embedder using OpenAI-compatible embedding APIs.
type Embedder struct {
	embedder embeddings.Embedder
	guard    *guard
	logger   *slog.Logger
}

var _ ai.Embedder = (*Embedder)(nil)

// newEmbedder is an internal constructor that returns the concrete type.
// Used by Provider to manage the instance.
func newEmbedder(config *ai.Config, g *guard) (*Embedder, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := openai.New(
		openai.WithBaseURL(config.EmbeddingHost),
		openai.WithToken(config.APIKey),
		openai.WithEmbeddingModel(config.EmbeddingModel),
	)
	if err != nil {
		return nil, err
	}

	embedder, err := embeddings.NewEmbedder(client, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, err
	}

	if g == nil {
		g = newGuard("embeddings", config)
	}
	return &Embedder{
		embedder: embedder,
		guard:    g,
		logger:   slog.Default().With("component", "openai-embedder"),
	}, nil
}

// NewEmbedder creates a new embedder using the provided configuration.
//
// Returns ai.Embedder interface to enforce abstraction.
func NewEmbedder(config *ai.Config) (ai.Embedder, error) {
	return newEmbedder(config, nil)
}

// EmbedQuery generates a vector embedding for a single query string.
func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	e.logger.Debug("generating query embedding", "length", len(text))

	var vector []float32
	err := e.guard.call(ctx, func(ctx context.Context) error {
		v, err := e.embedder.EmbedQuery(ctx, text)
		if err != nil {
			return err
		}
		if len(v) == 0 {
			return ai.ErrEmptyResponse
		}
		vector = v
		return nil
	})
	if err != nil {
		return nil, e.fail(err)
	}
	return vector, nil
}

// EmbedTexts generates vector embeddings for multiple text strings in a batch.
func (e *Embedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	e.logger.Debug("generating embeddings for texts", "count", len(texts))

	var vectors [][]float32
	err := e.guard.call(ctx, func(ctx context.Context) error {
		v, err := e.embedder.EmbedDocuments(ctx, texts)
		if err != nil {
			return err
		}
		if len(v) != len(texts) {
			return ai.ErrEmptyResponse
		}
		vectors = v
		return nil
	})
	if err != nil {
		return nil, e.fail(err)
	}
	return vectors, nil
}

func (e *Embedder) fail(err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	e.logger.Error("failed to generate embeddings", "err", err)
	return core.Upstream("embedder", err)
}
