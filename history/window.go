package history

import (
	"sync"

	"github.com/poiesic/ragtime/core"
)

// DefaultLimit is the default number of turns a window keeps.
const DefaultLimit = 10

// Window is a bounded FIFO of conversation turns.
// Appending past the limit evicts the oldest turns. A limit of zero keeps
// nothing. Window is safe for concurrent use.
type Window struct {
	mu      sync.Mutex
	limit   int
	turns   []core.Turn
	nextSeq uint64
}

// NewWindow creates an empty window holding at most limit turns.
// A negative limit is treated as zero.
func NewWindow(limit int) *Window {
	limit = max(limit, 0)
	return &Window{
		limit: limit,
		turns: make([]core.Turn, 0, limit),
	}
}

// Append adds turns to the back, assigning each the next sequence number,
// then evicts from the front until the window is within its limit.
func (w *Window) Append(turns ...core.Turn) {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, t := range turns {
		w.nextSeq++
		t.Seq = w.nextSeq
		w.turns = append(w.turns, t)
	}
	if over := len(w.turns) - w.limit; over > 0 {
		// Copy down so the backing array does not grow without bound.
		n := copy(w.turns, w.turns[over:])
		clear(w.turns[n:])
		w.turns = w.turns[:n]
	}
}

// Snapshot returns a chronological copy of the window.
func (w *Window) Snapshot() []core.Turn {
	w.mu.Lock()
	defer w.mu.Unlock()

	out := make([]core.Turn, len(w.turns))
	copy(out, w.turns)
	return out
}

// Reset empties the window. Sequence numbers keep increasing.
func (w *Window) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()

	clear(w.turns)
	w.turns = w.turns[:0]
}

// Len returns the number of turns held.
func (w *Window) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.turns)
}

// Limit returns the maximum number of turns held.
func (w *Window) Limit() int {
	return w.limit
}
