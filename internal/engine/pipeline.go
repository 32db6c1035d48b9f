package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/miradorstack/reconcile-timeline/internal/extractors"
	"github.com/miradorstack/reconcile-timeline/internal/metrics"
	"github.com/miradorstack/reconcile-timeline/internal/models"
	"github.com/miradorstack/reconcile-timeline/internal/query"
	"github.com/miradorstack/reconcile-timeline/internal/store"
	"github.com/miradorstack/reconcile-timeline/internal/utils"
)

const tracerName = "github.com/miradorstack/reconcile-timeline/internal/engine"

// TimeWindow limits loaded events to [Start, End] on the aligned axis. Zero bounds are open.
type TimeWindow struct {
	Start time.Time
	End   time.Time
}

func (w TimeWindow) contains(ts time.Time) bool {
	if !w.Start.IsZero() && ts.Before(w.Start) {
		return false
	}
	if !w.End.IsZero() && ts.After(w.End) {
		return false
	}
	return true
}

// LoadOptions configures a single load.
type LoadOptions struct {
	Window    TimeWindow
	HitTester query.HitTester
}

// Pipeline runs the synchronous load phase: reassemble, classify, align, store, correlate.
type Pipeline struct {
	logger      *slog.Logger
	reassembler *extractors.Reassembler
	classifier  *Classifier
	aligner     *ClockAligner
	ranks       *store.RankTable
	offsets     map[models.EventKind]RankOffsetFunc
	links       []CausalLink
	tracer      trace.Tracer
}

// NewPipeline constructs a load pipeline. Nil components fall back to defaults.
func NewPipeline(
	logger *slog.Logger,
	reassembler *extractors.Reassembler,
	classifier *Classifier,
	aligner *ClockAligner,
	ranks *store.RankTable,
) (*Pipeline, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if reassembler == nil {
		reassembler = extractors.NewReassembler(time.UTC)
	}
	if classifier == nil {
		c, err := NewClassifier(logger, nil)
		if err != nil {
			return nil, err
		}
		classifier = c
	}
	if aligner == nil {
		aligner = NewClockAligner(ClockOffset{})
	}
	if ranks == nil {
		ranks = store.DefaultRanks()
	}
	if err := ranks.Validate(); err != nil {
		return nil, fmt.Errorf("rank table: %w", err)
	}

	return &Pipeline{
		logger:      logger,
		reassembler: reassembler,
		classifier:  classifier,
		aligner:     aligner,
		ranks:       ranks,
		offsets:     DefaultRankOffsets(),
		links:       DefaultCausalLinks(),
		tracer:      otel.Tracer(tracerName),
	}, nil
}

// Load reads both logs and returns a ready session. Malformed records are logged and skipped;
// only read failures and cancellation abort the load.
func (p *Pipeline) Load(ctx context.Context, client, server io.Reader, opts LoadOptions) (*Session, error) {
	ctx, span := p.tracer.Start(ctx, "pipeline.Load")
	defer span.End()

	start := time.Now()
	session, err := p.load(ctx, client, server, opts)
	duration := time.Since(start)
	if err != nil {
		metrics.ObserveLoad(duration, metrics.OutcomeError)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	metrics.ObserveLoad(duration, metrics.OutcomeSuccess)
	span.SetAttributes(
		attribute.String("session.id", session.ID),
		attribute.Int("events", session.Store.Len()),
	)
	p.logger.Info("logs loaded",
		slog.String("session_id", session.ID),
		slog.Int("events", session.Store.Len()),
		slog.Int("visible_kinds", len(session.Store.AllVisibleKinds())),
		slog.Duration("took", duration))
	return session, nil
}

func (p *Pipeline) load(ctx context.Context, client, server io.Reader, opts LoadOptions) (*Session, error) {
	stats := models.NewLoadStats()
	eventStore := store.New(p.ranks)

	sources := []struct {
		process models.Process
		reader  io.Reader
	}{
		{models.ProcessClient, client},
		{models.ProcessServer, server},
	}
	for _, src := range sources {
		if src.reader == nil {
			return nil, utils.NewAppError("load", fmt.Sprintf("%s log reader is nil", src.process), nil)
		}
		records, err := p.reassemble(ctx, src.process, src.reader, &stats)
		if err != nil {
			return nil, err
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p.classify(ctx, records, eventStore, opts.Window, &stats)
	}

	causality := NewCausalityEngine(p.logger, p.links)
	_, span := p.tracer.Start(ctx, "pipeline.Correlate")
	causality.Prepare(eventStore)
	acked, total := causality.AckCounts()
	span.SetAttributes(attribute.Int("ticks", total), attribute.Int("acknowledged", acked))
	span.End()

	for kind, n := range stats.Events {
		metrics.AddEvents(kind.String(), n)
	}

	hits := opts.HitTester
	if hits == nil {
		hits = query.NewNearestHitTester(5, query.Scale{})
	}
	session := &Session{
		ID:        uuid.NewString(),
		LoadedAt:  time.Now().UTC(),
		Store:     eventStore,
		Ranks:     p.ranks,
		Causality: causality,
		Stats:     stats,
	}
	session.Query = query.NewEngine(eventStore, causality, hits, query.Options{
		Logger: p.logger,
		OnCausalLink: func(origin models.EventKind, found bool) {
			metrics.ObserveCausalLink(origin.String(), found)
		},
	})
	return session, nil
}

func (p *Pipeline) reassemble(ctx context.Context, process models.Process, r io.Reader, stats *models.LoadStats) ([]models.LogRecord, error) {
	_, span := p.tracer.Start(ctx, "pipeline.Reassemble", trace.WithAttributes(attribute.String("process", process.String())))
	defer span.End()

	records, err := p.reassembler.ReassembleReader(process, r)
	if err != nil {
		var malformed *utils.MalformedLogRecordError
		if !errors.As(err, &malformed) {
			span.RecordError(err)
			return nil, utils.NewAppError("reassemble", fmt.Sprintf("read %s log", process), err)
		}
		for _, e := range flattenJoined(err) {
			p.logger.Warn("skipping malformed log record", slog.String("process", process.String()), slog.Any("error", e))
			stats.Malformed[process]++
		}
	}
	stats.Records[process] += len(records)
	metrics.AddRecords(process.String(), "parsed", len(records))
	metrics.AddRecords(process.String(), "malformed", stats.Malformed[process])
	span.SetAttributes(attribute.Int("records", len(records)), attribute.Int("malformed", stats.Malformed[process]))
	return records, nil
}

func (p *Pipeline) classify(ctx context.Context, records []models.LogRecord, eventStore *store.EventStore, window TimeWindow, stats *models.LoadStats) {
	if len(records) == 0 {
		return
	}
	process := records[0].Process
	_, span := p.tracer.Start(ctx, "pipeline.Classify", trace.WithAttributes(attribute.String("process", process.String())))
	defer span.End()

	irrelevant, outside := 0, 0
	for _, rec := range records {
		kind := p.classifier.Classify(rec)
		if kind == models.KindIrrelevant {
			irrelevant++
			continue
		}
		ev := NewEvent(rec, kind, p.aligner, p.ranks, p.offsets)
		if !window.contains(ev.Timestamp) {
			outside++
			continue
		}
		eventStore.Insert(ev)
		stats.Events[kind]++
	}
	stats.Irrelevant[process] += irrelevant
	stats.OutOfWindow[process] += outside
	metrics.AddRecords(process.String(), "irrelevant", irrelevant)
	metrics.AddRecords(process.String(), "out_of_window", outside)
}

// flattenJoined unwraps an errors.Join result into its parts.
func flattenJoined(err error) []error {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		return joined.Unwrap()
	}
	return []error{err}
}
