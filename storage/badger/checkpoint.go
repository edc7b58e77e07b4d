// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package badger

import (
	"context"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/ragtime/core"
	"github.com/poiesic/ragtime/storage"
)

// CheckpointRepository stores one checkpoint per processor and collection
// next to the fragments they describe.
type CheckpointRepository struct {
	backend *Backend
}

var _ storage.CheckpointRepository = (*CheckpointRepository)(nil)

// NewCheckpointRepository returns a checkpoint store sharing backend.
func NewCheckpointRepository(backend *Backend) *CheckpointRepository {
	return &CheckpointRepository{backend: backend}
}

// SaveCheckpoint overwrites the checkpoint for its processor and collection
// and stamps UpdatedAt.
func (r *CheckpointRepository) SaveCheckpoint(ctx context.Context, checkpoint *core.Checkpoint) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validateCollection(checkpoint.Collection); err != nil {
		return err
	}

	checkpoint.UpdatedAt = time.Now().UTC()
	value, err := storage.MarshalCheckpoint(checkpoint)
	if err != nil {
		return err
	}
	key := makeCheckpointKey(checkpoint.ProcessorType, checkpoint.Collection)
	return r.backend.update(func(tx *badger.Txn) error {
		return tx.Set(key, value)
	})
}

// LoadCheckpoint returns nil, nil when no checkpoint was saved.
func (r *CheckpointRepository) LoadCheckpoint(ctx context.Context, processorType, collection string) (*core.Checkpoint, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var checkpoint *core.Checkpoint
	err := r.backend.view(func(tx *badger.Txn) error {
		item, err := tx.Get(makeCheckpointKey(processorType, collection))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			checkpoint, err = storage.UnmarshalCheckpoint(val)
			return err
		})
	})
	return checkpoint, err
}

// ClearCheckpoint deletes the checkpoint. Clearing a missing one is not an error.
func (r *CheckpointRepository) ClearCheckpoint(ctx context.Context, processorType, collection string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.backend.update(func(tx *badger.Txn) error {
		return tx.Delete(makeCheckpointKey(processorType, collection))
	})
}
