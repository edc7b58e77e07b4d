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


// Package search retrieves, merges and filters candidate fragments for a
// question.
//
// A search runs in four stages:
//   - Retrieve: one embed-and-search call per rewritten query, run
//     concurrently on a worker pool, each bounded by its own timeout
//   - Fuse: merge the per-query lists, keeping the best score of every
//     fragment and ordering by score with first-seen tie breaking
//   - Filter: keep matches at or above the similarity threshold, capped at
//     top_k, falling back to the best top_k when nothing passes
//   - Rerank: optionally reorder the survivors with the generation model
//
// Fuse and Filter are pure functions and can be used on their own. The
// Searcher type wires the stages together and reports each one to a
// Monitor.
package search
