package storage

import (
	"context"

	"github.com/poiesic/ragtime/core"
)

// Repository is the base interface for all storage operations.
type Repository interface {
	// WithTransaction executes a function within a transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error

	// Close closes the storage backend and releases resources.
	Close() error
}

// VectorSearcher provides nearest-neighbor search over stored fragments.
type VectorSearcher interface {
	// NearestNeighbors returns up to k fragments of collection ordered by
	// cosine similarity to vector (highest first). Fragments without a
	// vector are skipped. An empty collection yields an empty slice.
	NearestNeighbors(ctx context.Context, vector []float32, k int, collection string) ([]core.Candidate, error)
}

// FragmentRepository provides operations for managing indexed fragments.
type FragmentRepository interface {
	Repository
	VectorSearcher

	// UpsertFragments stores fragments keyed by (Collection, ID).
	// InsertedAt is preserved for existing fragments; UpdatedAt is always refreshed.
	// Returns the number of fragments that did not exist before.
	UpsertFragments(ctx context.Context, fragments ...*core.Fragment) (int, error)

	// GetFragment retrieves a single fragment.
	// Returns ErrNotFound if the fragment doesn't exist.
	GetFragment(ctx context.Context, collection string, id core.ID) (*core.Fragment, error)

	// ListFragments returns up to limit fragments of collection with ID > afterID,
	// ordered by ID. Pass 0 to start from the beginning.
	ListFragments(ctx context.Context, collection string, afterID core.ID, limit int) ([]*core.Fragment, error)

	// DeleteFragments removes fragments by ID.
	// Returns ErrNotFound if any fragment doesn't exist.
	DeleteFragments(ctx context.Context, collection string, ids ...core.ID) error

	// DeleteSource removes every fragment that came from sourceID and
	// returns how many were removed.
	DeleteSource(ctx context.Context, collection, sourceID string) (int, error)

	// CountFragments returns the number of fragments in collection.
	CountFragments(ctx context.Context, collection string) (int, error)
}

// CheckpointRepository persists processor progress for resumable runs.
type CheckpointRepository interface {
	// SaveCheckpoint persists a checkpoint for a processor type and collection.
	SaveCheckpoint(ctx context.Context, checkpoint *core.Checkpoint) error

	// LoadCheckpoint retrieves the checkpoint.
	// Returns nil, nil if no checkpoint exists.
	LoadCheckpoint(ctx context.Context, processorType, collection string) (*core.Checkpoint, error)

	// ClearCheckpoint removes the checkpoint so the next run starts over.
	ClearCheckpoint(ctx context.Context, processorType, collection string) error
}
