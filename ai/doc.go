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


// Package ai provides abstractions for the model services used by the
// retrieval pipeline.
//
// Three interfaces cover every upstream call:
//
//   - Embedder: Generates vector embeddings for queries and fragments
//   - Generator: Produces text from messages (rewriting, translation, reranking, synthesis)
//   - LanguageDetector: Identifies the language of a question
//
// Provider aggregates the three so they share configuration and limits.
//
// # Implementation Packages
//
//   - ai/openai: Production implementation using OpenAI-compatible APIs
//   - ai/mock: Test doubles for unit testing without external dependencies
//
// # Constructor Return Type Pattern
//
// Public constructors (openai.NewProvider, openai.NewGenerator, etc.) return
// interface types. Test constructors (mock.NewMockGenerator, ...) return
// concrete types so tests can inject behavior and read call counts.
//
//	provider, err := openai.NewProvider(config)  // returns ai.Provider
//
//	gen := mock.NewMockGenerator()               // returns *mock.MockGenerator
//	gen.WithGenerateFunc(...)
//	count := gen.CallCount()
//
// # Failure Handling
//
// RetryTransient wraps upstream calls with jittered exponential backoff and
// gives up immediately on errors IsRetryable rejects. Implementations report
// exhausted or permanent failures as core.ErrUpstreamUnavailable.
package ai
