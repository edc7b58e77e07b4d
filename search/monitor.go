package search

import (
	"time"

	"github.com/poiesic/ragtime/core"
)

// Monitor receives callbacks at each stage of a search.
// Implementations must be safe for concurrent use; one Monitor is
// typically shared by every request of a process.
type Monitor interface {
	Start(queries []string)
	AfterRetrieve(lists [][]core.Candidate)
	AfterFusion(fused []core.Candidate)
	AfterFilter(result FilterResult)
	Finish(result *Result, elapsed time.Duration, err error)
}

// noopMonitor is a no-op implementation of Monitor
type noopMonitor struct{}

var _ Monitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ []string)                            {}
func (n *noopMonitor) AfterRetrieve(_ [][]core.Candidate)          {}
func (n *noopMonitor) AfterFusion(_ []core.Candidate)              {}
func (n *noopMonitor) AfterFilter(_ FilterResult)                  {}
func (n *noopMonitor) Finish(_ *Result, _ time.Duration, _ error) {}
