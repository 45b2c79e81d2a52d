package extract

import (
	"sync"
	"testing"
	"time"
)

func TestSimpleModeThreshold(t *testing.T) {
	s := NewAdaptiveState(3)

	s.RecordFailure(StrategyTextLayer)
	s.RecordFailure(StrategyTextLayer)
	if s.SimpleMode() {
		t.Fatal("simple mode active below threshold")
	}
	s.RecordFailure(StrategyTextLayer)
	if !s.SimpleMode() {
		t.Fatal("simple mode not active at threshold")
	}

	s.RecordSuccess(StrategyTextLayer)
	if s.SimpleMode() {
		t.Fatal("simple mode survived a success")
	}
	if s.ConsecutiveFailures(StrategyTextLayer) != 0 {
		t.Error("failure streak not reset by success")
	}
}

func TestSuccessBreaksTheStreak(t *testing.T) {
	s := NewAdaptiveState(3)
	s.RecordFailure(StrategyTextLayer)
	s.RecordFailure(StrategyTextLayer)
	s.RecordSuccess(StrategyTextLayer)
	s.RecordFailure(StrategyTextLayer)
	s.RecordFailure(StrategyTextLayer)
	if s.SimpleMode() {
		t.Fatal("non-consecutive failures must not trigger simple mode")
	}
}

func TestStrategiesTrackedIndependently(t *testing.T) {
	s := NewAdaptiveState(2)
	s.RecordFailure(StrategyOCR)
	s.RecordFailure(StrategyOCR)
	if s.SimpleMode() {
		t.Fatal("OCR failures must not flip text-layer simple mode")
	}
	if s.ConsecutiveFailures(StrategyOCR) != 2 {
		t.Errorf("OCR streak = %d, want 2", s.ConsecutiveFailures(StrategyOCR))
	}
}

func TestAdaptiveStateConcurrentAccess(t *testing.T) {
	s := NewAdaptiveState(5)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if n%2 == 0 {
					s.RecordFailure(StrategyTextLayer)
				} else {
					s.RecordSuccess(StrategyTextLayer)
				}
				s.SimpleMode()
			}
		}(i)
	}
	wg.Wait()
}

func TestPerformanceStatsSnapshot(t *testing.T) {
	p := NewPerformanceStats()
	p.Record(true, 10*time.Millisecond)
	p.Record(true, 20*time.Millisecond)
	p.Record(false, 5*time.Millisecond)

	s := p.Snapshot()
	if s.Attempts != 3 || s.Successes != 2 || s.Failures != 1 {
		t.Errorf("snapshot = %+v", s)
	}
	if s.CumulativeTime != 35*time.Millisecond {
		t.Errorf("cumulative time = %v, want 35ms", s.CumulativeTime)
	}
}
