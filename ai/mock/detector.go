package mock

import (
	"context"
	"sync"

	"github.com/poiesic/ragtime/ai"
)

// MockDetector is a test double for ai.LanguageDetector.
type MockDetector struct {
	// DetectFunc is called by DetectLanguage if set.
	// If nil, every text is reported as English with full confidence.
	DetectFunc func(ctx context.Context, text string) (ai.Detection, error)

	mu        sync.Mutex
	callCount int
}

var _ ai.LanguageDetector = (*MockDetector)(nil)

// NewMockDetector creates a mock detector that always answers "en".
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// WithDetection makes every call return d.
func (m *MockDetector) WithDetection(code string, confidence float64) *MockDetector {
	m.DetectFunc = func(context.Context, string) (ai.Detection, error) {
		return ai.Detection{Code: code, Confidence: confidence}, nil
	}
	return m
}

// DetectLanguage returns the injected or default detection.
func (m *MockDetector) DetectLanguage(ctx context.Context, text string) (ai.Detection, error) {
	m.mu.Lock()
	m.callCount++
	fn := m.DetectFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, text)
	}
	return ai.Detection{Code: "en", Confidence: 1}, nil
}

// CallCount returns the number of DetectLanguage calls.
func (m *MockDetector) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}
