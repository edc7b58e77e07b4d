package reembed

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// ProgressTracker rewrites a single status line as a run advances. It is
// safe for concurrent use.
type ProgressTracker struct {
	mu sync.Mutex

	w        io.Writer
	total    int
	interval int

	done     int
	reported int
	// resumedAt is the count carried over from a checkpoint; it is
	// excluded from the rate.
	resumedAt int
	start     time.Time
}

// NewProgressTracker returns a tracker for total items that writes to w
// after every interval items.
func NewProgressTracker(w io.Writer, total, interval int) *ProgressTracker {
	return &ProgressTracker{w: w, total: total, interval: interval}
}

// Start begins tracking from zero.
func (p *ProgressTracker) Start() {
	p.StartAt(0)
}

// StartAt begins tracking with done items already processed.
func (p *ProgressTracker) StartAt(done int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.start = time.Now()
	p.done = min(done, p.total)
	p.resumedAt = p.done
	p.reported = p.done
}

// Update records that done items have been processed in total.
// Calls before Start are ignored.
func (p *ProgressTracker) Update(done int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.start.IsZero() {
		return
	}
	p.done = min(done, p.total)
	if p.done-p.reported >= p.interval {
		p.render()
		p.reported = p.done
	}
}

// Finish renders the completed line and ends it.
func (p *ProgressTracker) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.start.IsZero() {
		return
	}
	p.done = p.total
	p.render()
	fmt.Fprintln(p.w)
}

// Elapsed returns the time since Start, or zero before it.
func (p *ProgressTracker) Elapsed() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.start.IsZero() {
		return 0
	}
	return time.Since(p.start)
}

// render must be called with mu held.
func (p *ProgressTracker) render() {
	var pct float64
	if p.total > 0 {
		pct = 100 * float64(p.done) / float64(p.total)
	}
	var rate float64
	if secs := time.Since(p.start).Seconds(); secs > 0 {
		rate = float64(p.done-p.resumedAt) / secs
	}
	fmt.Fprintf(p.w, "\rProgress: %d/%d (%.1f%%) - %.1f fragments/s", p.done, p.total, pct, rate)
}
