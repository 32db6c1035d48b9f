// Package summary condenses a loaded session into per-kind statistics and an acknowledgement
// report for the client's physics ticks.
package summary

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"github.com/miradorstack/reconcile-timeline/internal/models"
)

// Source is the read side of a loaded session.
type Source interface {
	AllVisibleKinds() []models.EventKind
	EventsOf(kind models.EventKind) []models.Event
}

// AckSource reports per-event acknowledgement.
type AckSource interface {
	AckState(kind models.EventKind, index int) models.AckState
}

// Sink receives finished reports.
type Sink interface {
	StoreSummary(ctx context.Context, sessionID string, report Report) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, sessionID string, report Report) error

// StoreSummary implements Sink.
func (f SinkFunc) StoreSummary(ctx context.Context, sessionID string, report Report) error {
	return f(ctx, sessionID, report)
}

// Sinks fans a report out to every sink and joins their errors.
type Sinks []Sink

// StoreSummary implements Sink.
func (s Sinks) StoreSummary(ctx context.Context, sessionID string, report Report) error {
	var errs []error
	for _, sink := range s {
		if err := sink.StoreSummary(ctx, sessionID, report); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// KindSummary aggregates one visible kind.
type KindSummary struct {
	Kind         string        `yaml:"kind"`
	Process      string        `yaml:"process"`
	Count        int           `yaml:"count"`
	Share        float64       `yaml:"share"`
	First        time.Time     `yaml:"first"`
	Last         time.Time     `yaml:"last"`
	MeanInterval time.Duration `yaml:"meanInterval"`
}

// Run is a stretch of consecutive unacknowledged ticks.
type Run struct {
	Length int       `yaml:"length"`
	Start  time.Time `yaml:"start,omitempty"`
	End    time.Time `yaml:"end,omitempty"`
}

// Report is the condensed view of a session.
type Report struct {
	SessionID      string           `yaml:"sessionID"`
	Events         int              `yaml:"events"`
	Kinds          []KindSummary    `yaml:"kinds"`
	Ticks          int              `yaml:"ticks"`
	Acknowledged   int              `yaml:"acknowledged"`
	AckRatio       float64          `yaml:"ackRatio"`
	LongestUnacked Run              `yaml:"longestUnacknowledged"`
	Stats          models.LoadStats `yaml:"-"`
}

// Builder produces reports and forwards them to an optional sink.
type Builder struct {
	sink   Sink
	logger *slog.Logger
}

// NewBuilder constructs a Builder; sink may be nil.
func NewBuilder(logger *slog.Logger, sink Sink) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{sink: sink, logger: logger}
}

// Build summarises source. Sink failures are logged, not returned.
func (b *Builder) Build(ctx context.Context, sessionID string, source Source, acks AckSource, stats models.LoadStats) (Report, error) {
	report := Report{SessionID: sessionID, Stats: stats}

	kinds := source.AllVisibleKinds()
	for _, kind := range kinds {
		report.Events += len(source.EventsOf(kind))
	}
	for _, kind := range kinds {
		events := source.EventsOf(kind)
		report.Kinds = append(report.Kinds, summarizeKind(kind, events, report.Events))
	}
	sort.SliceStable(report.Kinds, func(i, j int) bool {
		return report.Kinds[i].Count > report.Kinds[j].Count
	})

	ticks := source.EventsOf(models.ClientPhysicsTick)
	report.Ticks = len(ticks)
	var current Run
	for i, tick := range ticks {
		if acks != nil && acks.AckState(models.ClientPhysicsTick, i) == models.AckConfirmed {
			report.Acknowledged++
			current = Run{}
			continue
		}
		if current.Length == 0 {
			current.Start = tick.Timestamp
		}
		current.Length++
		current.End = tick.Timestamp
		if current.Length > report.LongestUnacked.Length {
			report.LongestUnacked = current
		}
	}
	if report.Ticks > 0 {
		report.AckRatio = float64(report.Acknowledged) / float64(report.Ticks)
	}

	if err := ctx.Err(); err != nil {
		return Report{}, err
	}
	if b.sink != nil {
		if err := b.sink.StoreSummary(ctx, sessionID, report); err != nil {
			b.logger.Warn("summary sink failed", slog.String("session_id", sessionID), slog.Any("error", err))
		}
	}
	return report, nil
}

func summarizeKind(kind models.EventKind, events []models.Event, total int) KindSummary {
	s := KindSummary{Kind: kind.String(), Process: kind.Process().String(), Count: len(events)}
	if len(events) == 0 {
		return s
	}
	if total > 0 {
		s.Share = float64(len(events)) / float64(total)
	}
	s.First, s.Last = events[0].Timestamp, events[0].Timestamp
	for _, ev := range events[1:] {
		if ev.Timestamp.Before(s.First) {
			s.First = ev.Timestamp
		}
		if ev.Timestamp.After(s.Last) {
			s.Last = ev.Timestamp
		}
	}
	if len(events) > 1 {
		s.MeanInterval = s.Last.Sub(s.First) / time.Duration(len(events)-1)
	}
	return s
}
