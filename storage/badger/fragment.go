package badger

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/ragtime/core"
	"github.com/poiesic/ragtime/storage"
)

// scanCheckInterval is how many fragments a scan reads between context checks.
const scanCheckInterval = 256

// FragmentRepository implements storage.FragmentRepository for BadgerDB.
// Nearest-neighbor search is an exhaustive scan of the collection.
type FragmentRepository struct {
	backend *Backend
}

var _ storage.FragmentRepository = (*FragmentRepository)(nil)

// newFragmentRepository returns the concrete type for use inside this package.
func newFragmentRepository(backend *Backend) *FragmentRepository {
	return &FragmentRepository{backend: backend}
}

// NewFragmentRepository creates a fragment repository on top of backend.
// The repository does not own the backend; closing it is a no-op.
func NewFragmentRepository(backend *Backend) (storage.FragmentRepository, error) {
	if backend == nil {
		return nil, errors.New("badger: backend is required")
	}
	return newFragmentRepository(backend), nil
}

// Close is a no-op; the backend is closed by its owner.
func (r *FragmentRepository) Close() error {
	return nil
}

// WithTransaction delegates to the backend.
func (r *FragmentRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// UpsertFragments stores fragments and maintains the source index.
func (r *FragmentRepository) UpsertFragments(ctx context.Context, fragments ...*core.Fragment) (int, error) {
	created := 0
	err := r.backend.update(func(tx *badger.Txn) error {
		// Stored timestamps have microsecond precision.
		now := time.Now().UTC().Truncate(time.Microsecond)
		for _, f := range fragments {
			if err := core.ValidateFragment(f); err != nil {
				return err
			}
			if err := validateCollection(f.Collection); err != nil {
				return err
			}
			if f.ID == 0 {
				f.ID = core.FragmentID(f.SourceID, f.Text)
			}

			key := makeFragmentKey(f.Collection, f.ID)
			old, err := readFragment(tx, key)
			if err != nil {
				return err
			}
			if old == nil {
				created++
				if f.InsertedAt.IsZero() {
					f.InsertedAt = now
				}
			} else {
				f.InsertedAt = old.InsertedAt
				if old.SourceID != f.SourceID {
					if err := tx.Delete(makeSourceKey(old.Collection, old.SourceID, old.ID)); err != nil {
						return err
					}
				}
			}
			f.UpdatedAt = now

			value, err := storage.MarshalFragment(f)
			if err != nil {
				return err
			}
			if err := tx.Set(key, value); err != nil {
				return err
			}
			if err := tx.Set(makeSourceKey(f.Collection, f.SourceID, f.ID), nil); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return created, nil
}

// GetFragment retrieves a single fragment by collection and ID.
func (r *FragmentRepository) GetFragment(ctx context.Context, collection string, id core.ID) (*core.Fragment, error) {
	var result *core.Fragment
	err := r.backend.view(func(tx *badger.Txn) error {
		var err error
		result, err = readFragment(tx, makeFragmentKey(collection, id))
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	})
	return result, err
}

// ListFragments pages through a collection in ID order.
func (r *FragmentRepository) ListFragments(ctx context.Context, collection string, afterID core.ID, limit int) ([]*core.Fragment, error) {
	if limit <= 0 {
		return nil, storage.ErrInvalidQuery
	}
	if err := validateCollection(collection); err != nil {
		return nil, err
	}

	var results []*core.Fragment
	err := r.backend.view(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeCollectionPrefix(collection)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		start := makeFragmentKey(collection, afterID)
		for iter.Seek(start); iter.Valid() && len(results) < limit; iter.Next() {
			id, err := idFromKey(iter.Item().Key())
			if err != nil {
				return err
			}
			if id <= afterID {
				continue
			}
			f, err := itemFragment(iter.Item())
			if err != nil {
				return err
			}
			results = append(results, f)
		}
		return nil
	})
	return results, err
}

// DeleteFragments removes fragments and their source index entries.
func (r *FragmentRepository) DeleteFragments(ctx context.Context, collection string, ids ...core.ID) error {
	return r.backend.update(func(tx *badger.Txn) error {
		for _, id := range ids {
			key := makeFragmentKey(collection, id)
			f, err := readFragment(tx, key)
			if err != nil {
				return err
			}
			if f == nil {
				return storage.ErrNotFound
			}
			if err := tx.Delete(makeSourceKey(collection, f.SourceID, id)); err != nil {
				return err
			}
			if err := tx.Delete(key); err != nil {
				return err
			}
		}
		return nil
	})
}

// DeleteSource removes every fragment of one source document.
func (r *FragmentRepository) DeleteSource(ctx context.Context, collection, sourceID string) (int, error) {
	if err := validateCollection(collection); err != nil {
		return 0, err
	}

	deleted := 0
	err := r.backend.update(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeSourcePrefix(collection, sourceID)
		opts.PrefetchValues = false

		var ids []core.ID
		iter := tx.NewIterator(opts)
		for iter.Rewind(); iter.Valid(); iter.Next() {
			id, err := idFromKey(iter.Item().Key())
			if err != nil {
				iter.Close()
				return err
			}
			ids = append(ids, id)
		}
		iter.Close()

		for _, id := range ids {
			if err := tx.Delete(makeSourceKey(collection, sourceID, id)); err != nil {
				return err
			}
			if err := tx.Delete(makeFragmentKey(collection, id)); err != nil {
				return err
			}
			deleted++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}

// CountFragments counts the fragments of a collection without decoding them.
func (r *FragmentRepository) CountFragments(ctx context.Context, collection string) (int, error) {
	if err := validateCollection(collection); err != nil {
		return 0, err
	}
	count := 0
	err := r.backend.view(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeCollectionPrefix(collection)
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()
		for iter.Rewind(); iter.Valid(); iter.Next() {
			count++
		}
		return nil
	})
	return count, err
}

// NearestNeighbors scores every vector in the collection against vector and
// returns the k best. Ties keep ID order so results are deterministic.
func (r *FragmentRepository) NearestNeighbors(ctx context.Context, vector []float32, k int, collection string) ([]core.Candidate, error) {
	if k <= 0 || len(vector) == 0 {
		return nil, storage.ErrInvalidQuery
	}
	if err := validateCollection(collection); err != nil {
		return nil, err
	}

	var results []core.Candidate
	err := r.backend.view(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeCollectionPrefix(collection)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		seen, mismatched := 0, 0
		for iter.Rewind(); iter.Valid(); iter.Next() {
			seen++
			if seen%scanCheckInterval == 0 {
				if err := ctx.Err(); err != nil {
					return err
				}
			}

			f, err := itemFragment(iter.Item())
			if err != nil {
				return err
			}
			// Skip fragments without embeddings
			if len(f.Vector) == 0 {
				continue
			}
			// Vectors from another embedding model cannot be compared.
			if len(f.Vector) != len(vector) {
				mismatched++
				continue
			}
			results = append(results, core.Candidate{
				Fragment: f,
				Score:    core.DotProduct(vector, f.Vector),
			})
		}
		if mismatched > 0 {
			r.backend.logger.Warn("skipped fragments with mismatched vector dimension",
				"collection", collection, "skipped", mismatched, "query_dim", len(vector))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slices.SortStableFunc(results, func(a, b core.Candidate) int {
		if a.Score > b.Score {
			return -1
		}
		if a.Score < b.Score {
			return 1
		}
		return 0
	})

	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// readFragment returns nil, nil when key does not exist.
func readFragment(tx *badger.Txn, key []byte) (*core.Fragment, error) {
	item, err := tx.Get(key)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return itemFragment(item)
}

func itemFragment(item *badger.Item) (*core.Fragment, error) {
	var f *core.Fragment
	err := item.Value(func(val []byte) error {
		var err error
		f, err = storage.UnmarshalFragment(val)
		return err
	})
	return f, err
}
