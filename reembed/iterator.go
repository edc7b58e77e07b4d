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


package reembed

import (
	"context"

	"github.com/poiesic/ragtime/core"
	"github.com/poiesic/ragtime/storage"
)

const (
	// DefaultBatchSize is the default number of fragments to fetch in each batch
	DefaultBatchSize = 100
)

// FragmentIterator pages through a collection in ID order.
type FragmentIterator struct {
	repo       storage.FragmentRepository
	collection string
	batchSize  int
}

// NewFragmentIterator creates a new fragment iterator.
// batchSize: number of fragments to fetch in each batch (must be > 0)
func NewFragmentIterator(repo storage.FragmentRepository, collection string, batchSize int) *FragmentIterator {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	return &FragmentIterator{
		repo:       repo,
		collection: collection,
		batchSize:  batchSize,
	}
}

// ForEach calls fn for each batch of fragments with ID greater than afterID.
// Pass 0 to start at the beginning. Iteration stops on the first error from
// fn or when the collection is exhausted. Only one batch is held in memory.
func (it *FragmentIterator) ForEach(ctx context.Context, afterID core.ID, fn func([]*core.Fragment) error) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		batch, err := it.repo.ListFragments(ctx, it.collection, afterID, it.batchSize)
		if err != nil {
			return err
		}
		if len(batch) == 0 {
			return nil
		}

		if err := fn(batch); err != nil {
			return err
		}

		afterID = batch[len(batch)-1].ID
		if len(batch) < it.batchSize {
			return nil
		}
	}
}
