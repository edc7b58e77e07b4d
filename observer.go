package ragtime

import (
	"time"

	"github.com/poiesic/ragtime/search"
)

// AskEvent summarizes one Ask call.
type AskEvent struct {
	// Language the answer was requested in.
	Language            string
	Translated          bool
	TranslationDegraded bool
	Queries             int
	// Outcome is the filter outcome, empty when the call failed before search.
	Outcome       search.Outcome
	LowConfidence bool
	Elapsed       time.Duration
	Err           error
}

// Observer receives a summary of every Ask call.
// Implementations must be safe for concurrent use.
type Observer interface {
	ObserveAsk(event AskEvent)
}

type noopObserver struct{}

func (noopObserver) ObserveAsk(AskEvent) {}
