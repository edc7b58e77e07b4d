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


// Package storage provides the storage abstraction layer for ragtime.
//
// This package defines repository interfaces that decouple storage implementation
// from the retrieval pipeline. The pipeline itself only needs VectorSearcher;
// indexing and re-embedding use the full FragmentRepository.
//
// # Constructor Return Type Pattern
//
// Public constructors return interfaces to keep callers off backend specifics:
//
//	repo, err := badger.NewFragmentRepository(backend)  // returns storage.FragmentRepository
//
// Internal constructors may return concrete types since they're only used
// within the implementation package.
//
// # Usage
//
//	backend, err := badger.OpenBackend("/path/to/db", false)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer backend.Close()
//
//	repo, err := badger.NewFragmentRepository(backend)
//
// Use in tests with in-memory storage:
//
//	repo, backend, err := badger.NewMemoryRepository()
//
// # Serialization
//
// Record values are encoded with the mus serializers in package core. IDs
// inside keys are big-endian uint64 so that key order equals numeric order.
//
// # Thread Safety
//
// All repository implementations must be thread-safe and support
// concurrent access from multiple goroutines.
package storage
