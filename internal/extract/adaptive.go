/**
 * Adaptive state and performance telemetry.
 *
 * One instance of each lives inside an orchestrator and persists for the
 * process lifetime; a restart resets adaptation. Both are shared across
 * concurrent requests and guard themselves with a mutex. Staleness of a
 * few milliseconds in the simple-mode flag is acceptable: it is a soft
 * heuristic, not a correctness guard.
 */

package extract

import (
	"sync"
	"time"
)

// Strategy names an extraction strategy for failure accounting.
type Strategy string

const (
	StrategyTextLayer Strategy = "text_layer"
	StrategyOCR       Strategy = "ocr"
)

// AdaptiveState tracks consecutive failures per strategy and the
// simple-mode flag. Once consecutive text-layer failures cross the
// threshold, simple mode engages and subsequent requests skip the
// conversion-heavy secondary backend until a success resets the counter.
type AdaptiveState struct {
	mu        sync.Mutex
	threshold int
	failures  map[Strategy]int
	simple    bool
}

// NewAdaptiveState creates adaptive state with the given failure
// threshold.
func NewAdaptiveState(threshold int) *AdaptiveState {
	if threshold < 1 {
		threshold = 1
	}
	return &AdaptiveState{
		threshold: threshold,
		failures:  make(map[Strategy]int),
	}
}

// RecordFailure increments the consecutive-failure counter for the
// strategy and flips simple mode when the text-layer counter crosses the
// threshold.
func (a *AdaptiveState) RecordFailure(s Strategy) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.failures[s]++
	if s == StrategyTextLayer && a.failures[s] >= a.threshold {
		a.simple = true
	}
}

// RecordSuccess resets the strategy's consecutive-failure counter; a
// text-layer success also clears simple mode.
func (a *AdaptiveState) RecordSuccess(s Strategy) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.failures[s] = 0
	if s == StrategyTextLayer {
		a.simple = false
	}
}

// SimpleMode reports whether the conversion-heavy path should be skipped.
func (a *AdaptiveState) SimpleMode() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.simple
}

// ConsecutiveFailures returns the current counter for a strategy.
func (a *AdaptiveState) ConsecutiveFailures(s Strategy) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.failures[s]
}

// PerformanceStats holds monotonically growing counters, updated once
// per completed extraction and read-only to callers.
type PerformanceStats struct {
	mu        sync.Mutex
	attempts  uint64
	successes uint64
	failures  uint64
	total     time.Duration
}

// NewPerformanceStats creates an empty stats accumulator.
func NewPerformanceStats() *PerformanceStats {
	return &PerformanceStats{}
}

// Record adds one completed extraction to the running totals.
func (p *PerformanceStats) Record(success bool, d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.attempts++
	if success {
		p.successes++
	} else {
		p.failures++
	}
	p.total += d
}

// StatsSnapshot is a point-in-time copy of the counters.
type StatsSnapshot struct {
	Attempts       uint64
	Successes      uint64
	Failures       uint64
	CumulativeTime time.Duration
}

// Snapshot returns a consistent copy of the counters.
func (p *PerformanceStats) Snapshot() StatsSnapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return StatsSnapshot{
		Attempts:       p.attempts,
		Successes:      p.successes,
		Failures:       p.failures,
		CumulativeTime: p.total,
	}
}
