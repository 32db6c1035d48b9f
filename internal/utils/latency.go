package utils

import (
	"fmt"
	"sync"
	"time"

	"github.com/caio/go-tdigest/v4"
)

// LatencyTracker summarises recent durations in a t-digest. Once a window of maxSize samples
// fills, the digest is rotated so percentiles reflect recent traffic only.
type LatencyTracker struct {
	mu       sync.Mutex
	current  *tdigest.TDigest
	previous *tdigest.TDigest
	maxSize  uint64
}

// NewLatencyTracker creates a tracker with a window of maxSize samples.
func NewLatencyTracker(maxSize int) *LatencyTracker {
	if maxSize <= 0 {
		maxSize = 512
	}
	return &LatencyTracker{current: newDigest(), maxSize: uint64(maxSize)}
}

func newDigest() *tdigest.TDigest {
	td, err := tdigest.New()
	if err != nil {
		// New only fails on invalid options.
		panic(err)
	}
	return td
}

// Observe records a new duration. Negative durations are clamped to zero.
func (l *LatencyTracker) Observe(d time.Duration) error {
	if d < 0 {
		d = 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.current.Count() >= l.maxSize {
		l.previous = l.current
		l.current = newDigest()
	}
	if err := l.current.AddWeighted(float64(d), 1); err != nil {
		return fmt.Errorf("observe latency %v: %w", d, err)
	}
	return nil
}

// Percentile returns the percentile (0-100) duration. Returns zero if no samples.
func (l *LatencyTracker) Percentile(p float64) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	td := l.current
	if td.Count() == 0 {
		td = l.previous
	}
	if td == nil || td.Count() == 0 {
		return 0
	}
	switch {
	case p < 0:
		p = 0
	case p > 100:
		p = 100
	}
	return time.Duration(td.Quantile(p / 100.0))
}

// Count returns the number of samples in the current window.
func (l *LatencyTracker) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return int(l.current.Count())
}
