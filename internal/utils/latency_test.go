package utils

import (
	"testing"
	"time"
)

func TestLatencyTrackerPercentile(t *testing.T) {
	tracker := NewLatencyTracker(10)
	durations := []time.Duration{10 * time.Millisecond, 20 * time.Millisecond, 30 * time.Millisecond, 40 * time.Millisecond, 50 * time.Millisecond}
	for _, d := range durations {
		if err := tracker.Observe(d); err != nil {
			t.Fatalf("observe %v: %v", d, err)
		}
	}

	if tracker.Count() != len(durations) {
		t.Fatalf("expected count %d, got %d", len(durations), tracker.Count())
	}

	p95 := tracker.Percentile(95)
	if p95 < 40*time.Millisecond {
		t.Fatalf("expected percentile >= 40ms, got %v", p95)
	}
}

func TestLatencyTrackerWindowRotates(t *testing.T) {
	tracker := NewLatencyTracker(3)
	for i := 0; i < 10; i++ {
		if err := tracker.Observe(time.Duration(i) * time.Millisecond); err != nil {
			t.Fatalf("observe: %v", err)
		}
	}
	if tracker.Count() > 3 {
		t.Fatalf("expected window of at most 3, got %d", tracker.Count())
	}
	if tracker.Percentile(0) < 6*time.Millisecond {
		t.Fatalf("expected old samples to be rotated out, got p0=%v", tracker.Percentile(0))
	}
}

func TestLatencyTrackerEmpty(t *testing.T) {
	if got := NewLatencyTracker(0).Percentile(50); got != 0 {
		t.Fatalf("expected zero without samples, got %v", got)
	}
}

func TestLatencyTrackerClampsNegative(t *testing.T) {
	tracker := NewLatencyTracker(4)
	if err := tracker.Observe(-time.Second); err != nil {
		t.Fatalf("expected negative duration to be recorded, got %v", err)
	}
	if tracker.Count() != 1 {
		t.Fatalf("expected one sample, got %d", tracker.Count())
	}
	if got := tracker.Percentile(50); got != 0 {
		t.Fatalf("expected clamped sample of zero, got %v", got)
	}
}
