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
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/poiesic/ragtime/ai"
	"github.com/poiesic/ragtime/core"
	"github.com/poiesic/ragtime/storage"
)

// ProcessorType names reembedding checkpoints.
const ProcessorType = "reembed"

// Config holds configuration for the reembedding operation.
type Config struct {
	// Collection is the fragment collection to re-embed.
	Collection string

	// BatchSize is the number of fragments to process in each batch
	BatchSize int

	// ReportInterval is how often to report progress (number of fragments)
	ReportInterval int

	// MaxRetries is the maximum number of attempts for failed embedding calls
	MaxRetries int

	// RetryDelay is the base delay for exponential backoff
	RetryDelay time.Duration

	// Resume continues from the last checkpoint instead of starting over.
	Resume bool
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Collection:     "default",
		BatchSize:      100,
		ReportInterval: 100,
		MaxRetries:     3,
		RetryDelay:     1 * time.Second,
		Resume:         true,
	}
}

// Result summarizes a run.
type Result struct {
	Total     int
	Processed int
	// Resumed reports that the run started from a checkpoint.
	Resumed bool
	Elapsed time.Duration
}

// Reembedder re-embeds every fragment of a collection, for example after
// switching embedding models.
type Reembedder struct {
	repo        storage.FragmentRepository
	checkpoints storage.CheckpointRepository
	config      *Config
	progress    io.Writer
	processor   *BatchProcessor
	iterator    *FragmentIterator
	logger      *slog.Logger
}

// NewReembedder creates a new reembedder.
// checkpoints may be nil to disable resuming.
// progress: where to write progress output (typically os.Stderr)
func NewReembedder(repo storage.FragmentRepository, checkpoints storage.CheckpointRepository, embedder ai.Embedder, config *Config, progress io.Writer) (*Reembedder, error) {
	if repo == nil {
		return nil, ErrFragmentRepositoryRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if config == nil {
		config = DefaultConfig()
	}
	if config.Collection == "" {
		config.Collection = DefaultConfig().Collection
	}
	if config.MaxRetries < 1 {
		return nil, ai.ErrInvalidMaxAttempts
	}
	if progress == nil {
		progress = io.Discard
	}

	return &Reembedder{
		repo:        repo,
		checkpoints: checkpoints,
		config:      config,
		progress:    progress,
		processor:   NewBatchProcessor(repo, embedder, config.MaxRetries, config.RetryDelay),
		iterator:    NewFragmentIterator(repo, config.Collection, config.BatchSize),
		logger:      slog.Default().With("component", "reembed", "collection", config.Collection),
	}, nil
}

// Run re-embeds the collection. A checkpoint is saved after every batch,
// so an interrupted run resumes after the last completed batch. The
// checkpoint is cleared once the collection is done.
func (r *Reembedder) Run(ctx context.Context) (*Result, error) {
	total, err := r.repo.CountFragments(ctx, r.config.Collection)
	if err != nil {
		return nil, fmt.Errorf("failed to count fragments: %w", err)
	}

	result := &Result{Total: total}
	if total == 0 {
		fmt.Fprintf(r.progress, "No fragments found in collection %q\n", r.config.Collection)
		return result, nil
	}

	var afterID core.ID
	if cp := r.loadCheckpoint(ctx); cp != nil {
		afterID = cp.LastID
		result.Processed = min(cp.Processed, total)
		result.Resumed = true
		fmt.Fprintf(r.progress, "Resuming after %d of %d fragments\n", result.Processed, total)
	} else {
		fmt.Fprintf(r.progress, "Starting reembedding of %d fragments (batch size: %d)\n",
			total, r.iterator.batchSize)
	}

	tracker := NewProgressTracker(r.progress, total, r.config.ReportInterval)
	tracker.StartAt(result.Processed)

	err = r.iterator.ForEach(ctx, afterID, func(fragments []*core.Fragment) error {
		if err := r.processor.Process(ctx, fragments); err != nil {
			return fmt.Errorf("failed to process batch: %w", err)
		}

		result.Processed += len(fragments)
		tracker.Update(result.Processed)
		r.saveCheckpoint(ctx, fragments[len(fragments)-1].ID, result.Processed)
		return nil
	})
	result.Elapsed = tracker.Elapsed()
	if err != nil {
		return result, err
	}

	tracker.Finish()
	r.clearCheckpoint(ctx)

	fmt.Fprintf(r.progress, "Reembedding complete. Processed %d fragments in %v\n",
		result.Processed, result.Elapsed.Round(time.Millisecond))
	return result, nil
}

func (r *Reembedder) loadCheckpoint(ctx context.Context) *core.Checkpoint {
	if r.checkpoints == nil || !r.config.Resume {
		return nil
	}
	cp, err := r.checkpoints.LoadCheckpoint(ctx, ProcessorType, r.config.Collection)
	if err != nil {
		r.logger.Warn("failed to load checkpoint, starting over", "err", err)
		return nil
	}
	return cp
}

func (r *Reembedder) saveCheckpoint(ctx context.Context, lastID core.ID, processed int) {
	if r.checkpoints == nil {
		return
	}
	err := r.checkpoints.SaveCheckpoint(ctx, &core.Checkpoint{
		ProcessorType: ProcessorType,
		Collection:    r.config.Collection,
		LastID:        lastID,
		Processed:     processed,
		UpdatedAt:     time.Now().UTC(),
	})
	if err != nil {
		r.logger.Warn("failed to save checkpoint", "processed", processed, "err", err)
	}
}

func (r *Reembedder) clearCheckpoint(ctx context.Context) {
	if r.checkpoints == nil {
		return
	}
	if err := r.checkpoints.ClearCheckpoint(ctx, ProcessorType, r.config.Collection); err != nil {
		r.logger.Warn("failed to clear checkpoint", "err", err)
	}
}
