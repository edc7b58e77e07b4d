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


package ragtime

import (
	"errors"
	"io"
	"log/slog"

	"github.com/poiesic/ragtime/ai"
	"github.com/poiesic/ragtime/ai/openai"
	"github.com/poiesic/ragtime/ingestion"
	"github.com/poiesic/ragtime/reembed"
	"github.com/poiesic/ragtime/storage"
	"github.com/poiesic/ragtime/storage/badger"
)

// Engine owns the fragment store and the AI provider and builds the
// components that use them.
type Engine struct {
	backend        *badger.Backend
	fragmentRepo   storage.FragmentRepository
	checkpointRepo storage.CheckpointRepository
	provider       ai.Provider
	logger         *slog.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*engineOptions)

type engineOptions struct {
	aiConfig *ai.Config
	provider ai.Provider
	inMemory bool
	logger   *slog.Logger
}

// WithAIConfig sets the configuration of the OpenAI-compatible provider.
func WithAIConfig(config *ai.Config) EngineOption {
	return func(o *engineOptions) {
		o.aiConfig = config
	}
}

// WithProvider uses provider instead of building one from the AI config.
// The engine takes ownership and closes it.
func WithProvider(provider ai.Provider) EngineOption {
	return func(o *engineOptions) {
		o.provider = provider
	}
}

// WithInMemory keeps the store in memory. The path is ignored.
func WithInMemory() EngineOption {
	return func(o *engineOptions) {
		o.inMemory = true
	}
}

// WithEngineLogger sets a custom logger.
func WithEngineLogger(logger *slog.Logger) EngineOption {
	return func(o *engineOptions) {
		o.logger = logger
	}
}

// OpenEngine opens the fragment store at filePath and connects the AI provider.
func OpenEngine(filePath string, opts ...EngineOption) (*Engine, error) {
	options := &engineOptions{
		aiConfig: ai.DefaultConfig(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}

	backend, err := badger.OpenBackend(filePath, options.inMemory)
	if err != nil {
		return nil, err
	}

	fragmentRepo, err := badger.NewFragmentRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	checkpointRepo := badger.NewCheckpointRepository(backend)

	provider := options.provider
	if provider == nil {
		provider, err = openai.NewProvider(options.aiConfig)
		if err != nil {
			fragmentRepo.Close()
			backend.Close()
			return nil, err
		}
	}

	return &Engine{
		backend:        backend,
		fragmentRepo:   fragmentRepo,
		checkpointRepo: checkpointRepo,
		provider:       provider,
		logger:         options.logger.With("component", "engine"),
	}, nil
}

// Close releases the provider, then the repositories, then the store.
func (e *Engine) Close() error {
	var errs []error
	if err := e.provider.Close(); err != nil {
		e.logger.Error("error closing AI provider", "err", err)
		errs = append(errs, err)
	}
	if err := e.fragmentRepo.Close(); err != nil {
		e.logger.Error("error closing fragment repository", "err", err)
		errs = append(errs, err)
	}
	if err := e.backend.Close(); err != nil {
		e.logger.Error("error closing backend storage", "err", err)
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// FragmentRepository returns the fragment store.
func (e *Engine) FragmentRepository() storage.FragmentRepository {
	return e.fragmentRepo
}

// CheckpointRepository returns the checkpoint store.
func (e *Engine) CheckpointRepository() storage.CheckpointRepository {
	return e.checkpointRepo
}

// Provider returns the AI provider.
func (e *Engine) Provider() ai.Provider {
	return e.provider
}

// NewPipeline builds a question answering pipeline over the fragment store.
// Release it with Close.
func (e *Engine) NewPipeline(config *Config, opts ...Option) (*Pipeline, error) {
	opts = append([]Option{WithLogger(e.logger)}, opts...)
	return NewPipeline(e.provider, e.fragmentRepo, config, opts...)
}

// NewIngestionPipeline builds an ingestion pipeline writing to the fragment store.
// Release it with Release.
func (e *Engine) NewIngestionPipeline(opts ...ingestion.Option) (*ingestion.Pipeline, error) {
	opts = append([]ingestion.Option{ingestion.WithLogger(e.logger)}, opts...)
	return ingestion.NewPipeline(e.fragmentRepo, e.provider.Embedder(), opts...)
}

// NewReembedder builds a reembedder that checkpoints into the store.
func (e *Engine) NewReembedder(config *reembed.Config, progress io.Writer) (*reembed.Reembedder, error) {
	return reembed.NewReembedder(e.fragmentRepo, e.checkpointRepo, e.provider.Embedder(), config, progress)
}
