package ai

import (
	"context"
)

// Embedder generates vector embeddings from text.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedQuery generates an embedding for a single pivot-language query.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates embeddings for multiple texts in a batch.
	// The returned slice contains embeddings in the same order as the input texts.
	// Returns an error if any embedding generation fails.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Generator produces text from a sequence of messages.
// The rewriter, translator, reranker and synthesizer share this contract
// with different prompts.
// Implementations must be thread-safe for concurrent use.
type Generator interface {
	// GenerateText returns the model's reply to messages.
	// Failures and timeouts are reported as core.ErrUpstreamUnavailable.
	GenerateText(ctx context.Context, messages []Message, opts ...GenerateOption) (string, error)
}

// LanguageDetector identifies the language of a text.
// Implementations must be thread-safe for concurrent use.
type LanguageDetector interface {
	// DetectLanguage returns an ISO 639-1 code with a confidence in [0, 1].
	DetectLanguage(ctx context.Context, text string) (Detection, error)
}

// Provider aggregates AI services for convenient initialization and lifecycle management.
// All services share configuration, rate limits and credentials.
type Provider interface {
	// Embedder returns the text embedding service.
	Embedder() Embedder

	// Generator returns the text generation service.
	Generator() Generator

	// Detector returns the language detection service.
	Detector() LanguageDetector

	// Close releases resources held by the provider and its services.
	// After Close is called, the provider and its services should not be used.
	Close() error
}
