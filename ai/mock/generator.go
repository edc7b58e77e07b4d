package mock

import (
	"context"
	"sync"

	"github.com/poiesic/ragtime/ai"
)

// DefaultReply is returned by MockGenerator when no behavior is injected.
const DefaultReply = "mock reply"

// MockGenerator is a test double for ai.Generator.
// It records every request and is safe for concurrent use.
type MockGenerator struct {
	// GenerateFunc is called by GenerateText if set.
	GenerateFunc func(ctx context.Context, messages []ai.Message, opts ai.GenerateOptions) (string, error)

	mu       sync.Mutex
	requests [][]ai.Message
}

var _ ai.Generator = (*MockGenerator)(nil)

// NewMockGenerator creates a mock generator that answers DefaultReply.
func NewMockGenerator() *MockGenerator {
	return &MockGenerator{}
}

// WithGenerateFunc replaces the generation behavior and returns m.
func (m *MockGenerator) WithGenerateFunc(fn func(ctx context.Context, messages []ai.Message, opts ai.GenerateOptions) (string, error)) *MockGenerator {
	m.GenerateFunc = fn
	return m
}

// WithReplies makes the generator return replies in order, repeating the last one.
func (m *MockGenerator) WithReplies(replies ...string) *MockGenerator {
	var mu sync.Mutex
	next := 0
	m.GenerateFunc = func(context.Context, []ai.Message, ai.GenerateOptions) (string, error) {
		mu.Lock()
		defer mu.Unlock()
		if len(replies) == 0 {
			return DefaultReply, nil
		}
		reply := replies[min(next, len(replies)-1)]
		next++
		return reply, nil
	}
	return m
}

// GenerateText records the request and returns the injected or default reply.
func (m *MockGenerator) GenerateText(ctx context.Context, messages []ai.Message, opts ...ai.GenerateOption) (string, error) {
	m.mu.Lock()
	m.requests = append(m.requests, append([]ai.Message(nil), messages...))
	fn := m.GenerateFunc
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}
	if fn != nil {
		return fn(ctx, messages, ai.ApplyGenerateOptions(opts...))
	}
	return DefaultReply, nil
}

// CallCount returns the number of GenerateText calls.
func (m *MockGenerator) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// Requests returns a copy of every recorded request.
func (m *MockGenerator) Requests() [][]ai.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]ai.Message(nil), m.requests...)
}

// LastRequest returns the most recent request, or nil.
func (m *MockGenerator) LastRequest() []ai.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.requests) == 0 {
		return nil
	}
	return m.requests[len(m.requests)-1]
}

// Reset clears recorded requests and injected behavior.
func (m *MockGenerator) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = nil
	m.GenerateFunc = nil
}
