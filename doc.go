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


// Package ragtime answers questions over a library of transcript fragments.
//
// A Pipeline takes a question through language normalization, query
// rewriting, parallel vector retrieval, max-score fusion and a similarity
// filter before assembling a prompt for the answer model:
//
//	engine, err := ragtime.OpenEngine("ragtime.db", ragtime.WithAIConfig(cfg))
//	if err != nil {
//	    return err
//	}
//	defer engine.Close()
//
//	pipeline, err := engine.NewPipeline(ragtime.DefaultConfig())
//	if err != nil {
//	    return err
//	}
//	defer pipeline.Close()
//
//	answer, err := pipeline.Ask(ctx, "What did they say about sleep?", nil)
//
// When no fragment reaches the similarity threshold the best candidates are
// used anyway and the answer is flagged LowConfidence. Sessions keep a
// bounded window of turns in a history.Store so follow-up questions can be
// rewritten in context.
package ragtime
