package ingestion

import "errors"

var (
	// ErrFragmentRepositoryRequired is returned when a fragment repository is not provided.
	ErrFragmentRepositoryRequired = errors.New("fragment repository required")

	// ErrEmbedderRequired is returned when an embedder is not provided.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrUnknownPreset is returned for a chunking preset that does not exist.
	ErrUnknownPreset = errors.New("unknown chunking preset")

	// ErrUnknownStrategy is returned for a chunking strategy that does not exist.
	ErrUnknownStrategy = errors.New("unknown chunking strategy")

	// ErrInvalidChunking is returned when chunk size or overlap are out of range.
	ErrInvalidChunking = errors.New("invalid chunk size or overlap")

	// ErrEmbeddingMismatch is returned when the embedder returns the wrong number of vectors.
	ErrEmbeddingMismatch = errors.New("embedding count mismatch")
)
