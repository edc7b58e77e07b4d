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


package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/ragtime/ai"
	"github.com/poiesic/ragtime/core"
	"github.com/poiesic/ragtime/storage"
	"github.com/tmc/langchaingo/textsplitter"
)

const (
	// DefaultCollection is the collection documents are indexed into.
	DefaultCollection = "default"
	// DefaultBatchSize is the number of chunks embedded per request.
	DefaultBatchSize = 32
)

// Document is a source text to index.
type Document struct {
	SourceID string
	Title    string
	Text     string
	Metadata map[string]string
}

// Stats counts the outcome of an Ingest call.
type Stats struct {
	Documents int `json:"documents"`
	Chunks    int `json:"chunks"`
	// Duplicates are chunks that repeat another chunk of the same source.
	Duplicates int `json:"duplicates"`
	Created    int `json:"created"`
	Updated    int `json:"updated"`
	Failed     int `json:"failed"`
	// Replaced counts stale fragments removed before re-indexing.
	Replaced int `json:"replaced"`
}

// Pipeline chunks, embeds and stores documents.
type Pipeline struct {
	repository     storage.FragmentRepository
	embedder       *embedder
	splitter       textsplitter.TextSplitter
	pool           *ants.Pool
	collection     string
	batchSize      int
	maxRetries     int
	retryBaseDelay time.Duration
	replace        bool
	logger         *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets the number of embedding batches in flight.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}
		if p.pool != nil {
			p.pool.Release()
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		p.pool = pool
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// WithChunking sets the chunking configuration. Default is the "qa" preset.
func WithChunking(c Chunking) Option {
	return func(p *Pipeline) error {
		splitter, err := NewSplitter(c)
		if err != nil {
			return err
		}
		p.splitter = splitter
		return nil
	}
}

// WithPreset selects a named chunking preset.
func WithPreset(name string) Option {
	return func(p *Pipeline) error {
		c, err := Preset(name)
		if err != nil {
			return err
		}
		return WithChunking(c)(p)
	}
}

// WithSplitter uses any langchaingo text splitter.
func WithSplitter(splitter textsplitter.TextSplitter) Option {
	return func(p *Pipeline) error {
		if splitter != nil {
			p.splitter = splitter
		}
		return nil
	}
}

// WithCollection sets the target collection.
func WithCollection(collection string) Option {
	return func(p *Pipeline) error {
		if collection != "" {
			p.collection = collection
		}
		return nil
	}
}

// WithBatchSize sets the number of chunks embedded per request.
func WithBatchSize(size int) Option {
	return func(p *Pipeline) error {
		p.batchSize = max(size, 1)
		return nil
	}
}

// WithRetry sets retry attempts and base delay for embedding requests.
func WithRetry(maxRetries int, baseDelay time.Duration) Option {
	return func(p *Pipeline) error {
		if maxRetries < 1 {
			return ai.ErrInvalidMaxAttempts
		}
		p.maxRetries = maxRetries
		p.retryBaseDelay = baseDelay
		return nil
	}
}

// WithReplace removes a source's existing fragments before indexing it
// again, so chunks that no longer exist do not linger.
func WithReplace(replace bool) Option {
	return func(p *Pipeline) error {
		p.replace = replace
		return nil
	}
}

// NewPipeline creates a new ingestion pipeline.
func NewPipeline(repository storage.FragmentRepository, e ai.Embedder, opts ...Option) (*Pipeline, error) {
	if repository == nil {
		return nil, ErrFragmentRepositoryRequired
	}
	if e == nil {
		return nil, ErrEmbedderRequired
	}

	poolSize := max(runtime.NumCPU()/2, 1)
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		repository:     repository,
		pool:           pool,
		collection:     DefaultCollection,
		batchSize:      DefaultBatchSize,
		maxRetries:     3,
		retryBaseDelay: time.Second,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}
	if p.splitter == nil {
		if err := WithPreset(DefaultPreset)(p); err != nil {
			p.Release()
			return nil, err
		}
	}

	p.logger = p.logger.With("component", "ingestion", "collection", p.collection)
	p.embedder = newEmbedder(repository, e, p.maxRetries, p.retryBaseDelay, p.logger)

	return p, nil
}

// Collection returns the collection documents are indexed into.
func (p *Pipeline) Collection() string {
	return p.collection
}

// Ingest chunks docs and indexes every chunk. Chunks are embedded in
// batches that run concurrently; a failed batch is counted and reported
// without stopping the others.
func (p *Pipeline) Ingest(ctx context.Context, docs ...Document) (Stats, error) {
	var stats Stats
	var fragments []*core.Fragment

	for _, doc := range docs {
		chunks, err := p.chunk(doc)
		if err != nil {
			return stats, err
		}
		stats.Documents++

		if p.replace {
			removed, err := p.repository.DeleteSource(ctx, p.collection, doc.SourceID)
			if err != nil {
				return stats, fmt.Errorf("replace %s: %w", doc.SourceID, err)
			}
			stats.Replaced += removed
		}

		seen := make(map[core.ID]struct{}, len(chunks))
		for _, f := range chunks {
			stats.Chunks++
			if _, dup := seen[f.ID]; dup {
				stats.Duplicates++
				continue
			}
			seen[f.ID] = struct{}{}
			fragments = append(fragments, f)
		}
	}

	if len(fragments) == 0 {
		return stats, nil
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for start := 0; start < len(fragments); start += p.batchSize {
		batch := fragments[start:min(start+p.batchSize, len(fragments))]
		run := func() {
			defer wg.Done()
			created, err := p.embedder.process(ctx, batch)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				stats.Failed += len(batch)
				errs = append(errs, err)
				return
			}
			stats.Created += created
			stats.Updated += len(batch) - created
		}

		wg.Add(1)
		if err := p.pool.Submit(run); err != nil {
			run()
		}
	}
	wg.Wait()

	p.logger.Info("ingestion complete",
		"documents", stats.Documents,
		"chunks", stats.Chunks,
		"created", stats.Created,
		"updated", stats.Updated,
		"failed", stats.Failed)

	return stats, errors.Join(errs...)
}

// chunk splits doc into fragments with content-derived ids.
func (p *Pipeline) chunk(doc Document) ([]*core.Fragment, error) {
	if doc.SourceID == "" {
		return nil, fmt.Errorf("%w: source id is empty", core.ErrInvalidFragment)
	}
	if strings.TrimSpace(doc.Text) == "" {
		return nil, nil
	}

	texts, err := p.splitter.SplitText(doc.Text)
	if err != nil {
		return nil, fmt.Errorf("split %s: %w", doc.SourceID, err)
	}

	fragments := make([]*core.Fragment, 0, len(texts))
	for _, text := range texts {
		if strings.TrimSpace(text) == "" {
			continue
		}
		fragments = append(fragments, &core.Fragment{
			ID:         core.FragmentID(doc.SourceID, text),
			Collection: p.collection,
			SourceID:   doc.SourceID,
			Title:      doc.Title,
			Text:       text,
		})
	}

	for i, f := range fragments {
		metadata := maps.Clone(doc.Metadata)
		if metadata == nil {
			metadata = make(map[string]string, 2)
		}
		metadata["chunk_index"] = strconv.Itoa(i)
		metadata["total_chunks"] = strconv.Itoa(len(fragments))
		f.Metadata = metadata
	}

	p.logger.Debug("chunked document", "source", doc.SourceID, "length", len(doc.Text), "chunks", len(fragments))
	return fragments, nil
}

// Release releases the worker pool.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	if p.pool != nil {
		p.pool.Release()
	}
}
