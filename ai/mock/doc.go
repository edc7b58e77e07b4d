// Package mock provides test doubles for the ai package interfaces.
//
// Each double exposes function fields for injecting behavior and methods for
// reading call counts, so pipeline stages can be tested without a model
// server.
//
// # Usage
//
//	gen := mock.NewMockGenerator().WithReplies("1. sleep hygiene tips", "Keep a fixed wake time.")
//	emb := mock.NewMockEmbedder().
//	    WithEmbedQueryFunc(func(ctx context.Context, text string) ([]float32, error) {
//	        return []float32{1, 0, 0}, nil
//	    })
//
//	count := gen.CallCount()
//
// # Default Behavior
//
//   - MockEmbedder: Returns deterministic unit vectors based on text hash
//   - MockGenerator: Returns DefaultReply and records every request
//   - MockDetector: Reports English with full confidence
//   - MockProvider: Aggregates the three
package mock
