package batch

import (
	"sync"
	"time"
)

// ProgressCallback is invoked after every round with the number of settled items,
// the total, and the running success and failure counts.
type ProgressCallback func(current, total, successCount, failureCount int)

// SnapshotCallback is invoked after every round with the full progress state.
type SnapshotCallback func(ProgressSnapshot)

// Progress tracks a running import. It is safe for concurrent readers.
type Progress struct {
	totalItems      int
	processedItems  int
	successCount    int
	failureCount    int
	totalRounds     int
	processedRounds int
	startTime       time.Time

	mu sync.RWMutex
}

// NewProgress creates a progress tracker for a run started at start.
func NewProgress(totalItems, totalRounds int, start time.Time) *Progress {
	return &Progress{
		totalItems:  totalItems,
		totalRounds: totalRounds,
		startTime:   start,
	}
}

// AddRound records one settled round.
func (p *Progress) AddRound(succeeded, failed int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.successCount += succeeded
	p.failureCount += failed
	p.processedItems += succeeded + failed
	p.processedRounds++
}

// Snapshot returns a copy of the state as of now. The rate and the remaining
// time are extrapolated from the items settled so far and are zero before the
// first round settles.
func (p *Progress) Snapshot(now time.Time) ProgressSnapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()

	snap := ProgressSnapshot{
		TotalItems:      p.totalItems,
		ProcessedItems:  p.processedItems,
		SuccessCount:    p.successCount,
		FailureCount:    p.failureCount,
		TotalRounds:     p.totalRounds,
		ProcessedRounds: p.processedRounds,
		Elapsed:         now.Sub(p.startTime),
	}
	if p.processedItems == 0 || snap.Elapsed <= 0 {
		return snap
	}
	snap.ItemsPerSecond = float64(p.processedItems) / snap.Elapsed.Seconds()
	perItem := snap.Elapsed / time.Duration(p.processedItems)
	snap.Remaining = perItem * time.Duration(p.totalItems-p.processedItems)
	return snap
}

// ProgressSnapshot is an immutable view of Progress.
type ProgressSnapshot struct {
	TotalItems      int
	ProcessedItems  int
	SuccessCount    int
	FailureCount    int
	TotalRounds     int
	ProcessedRounds int
	Elapsed         time.Duration
	ItemsPerSecond  float64
	Remaining       time.Duration
}
