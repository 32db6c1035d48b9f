package main

import (
	"testing"
	"time"

	"github.com/miradorstack/reconcile-timeline/internal/config"
	"github.com/miradorstack/reconcile-timeline/internal/engine"
	"github.com/miradorstack/reconcile-timeline/internal/models"
)

func TestClockOffsetMatchesAligner(t *testing.T) {
	cfg := config.OffsetConfig{Hours: 1.5, SecondsFraction: 0.25}
	offset := clockOffset(cfg)
	if offset != (engine.ClockOffset{Hours: 1.5, Seconds: 0.25}) {
		t.Fatalf("unexpected offset %+v", offset)
	}

	aligner := engine.NewClockAligner(offset)
	if aligner.Offset() != offset.Duration() {
		t.Fatalf("aligner uses %v, startup log would report %v", aligner.Offset(), offset.Duration())
	}

	ts := time.Date(2024, 1, 1, 2, 0, 0, 0, time.UTC)
	want := ts.Add(-(90*time.Minute + 250*time.Millisecond))
	if got := aligner.Align(ts, models.ProcessServer); !got.Equal(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}
