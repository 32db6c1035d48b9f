package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/miradorstack/reconcile-timeline/internal/api"
	"github.com/miradorstack/reconcile-timeline/internal/engine"
	"github.com/miradorstack/reconcile-timeline/internal/metrics"
	"github.com/miradorstack/reconcile-timeline/internal/query"
	"github.com/miradorstack/reconcile-timeline/internal/summary"
	"github.com/miradorstack/reconcile-timeline/internal/utils"
)

// TimelineService implements the gRPC TimelineService over one loaded session.
type TimelineService struct {
	logger    *slog.Logger
	session   *engine.Session
	summaries *summary.Builder
	latencies *utils.LatencyTracker

	// mu serialises dispatch; the query engine expects a single driver.
	mu sync.Mutex
}

var _ api.TimelineServer = (*TimelineService)(nil)

// NewTimelineService constructs the service facade; summaries may be nil.
func NewTimelineService(logger *slog.Logger, session *engine.Session, summaries *summary.Builder) *TimelineService {
	if logger == nil {
		logger = slog.Default()
	}
	if summaries == nil {
		summaries = summary.NewBuilder(logger, nil)
	}
	return &TimelineService{
		logger:    logger,
		session:   session,
		summaries: summaries,
		latencies: utils.NewLatencyTracker(1024),
	}
}

// GetSeries returns every visible series with acknowledgement flags.
func (s *TimelineService) GetSeries(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	if s.session == nil {
		return nil, status.Error(codes.FailedPrecondition, "no session loaded")
	}
	out, err := api.ToProtoSeries(s.session.Series())
	if err != nil {
		s.logger.Error("encode series failed", slog.Any("error", err))
		return nil, status.Error(codes.Internal, "failed to encode series")
	}
	return out, nil
}

// Dispatch applies one input to the query engine and returns the resulting frame.
func (s *TimelineService) Dispatch(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if in == nil {
		return nil, status.Error(codes.InvalidArgument, "request cannot be nil")
	}
	if s.session == nil {
		return nil, status.Error(codes.FailedPrecondition, "no session loaded")
	}
	req, err := api.FromProtoDispatch(in)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	s.mu.Lock()
	start := time.Now()
	frame := s.apply(req)
	duration := time.Since(start)
	s.mu.Unlock()

	metrics.ObserveDispatch(string(req.Input), duration)
	if err := s.latencies.Observe(duration); err != nil {
		s.logger.Warn("failed to record dispatch latency", slog.Any("error", err))
	}
	if count := s.latencies.Count(); count >= 100 && count%100 == 0 {
		s.logger.Info("dispatch latency", slog.Duration("p95", s.latencies.Percentile(95)), slog.Int("samples", count))
	}

	out, err := api.ToProtoFrame(frame)
	if err != nil {
		s.logger.Error("encode frame failed", slog.Any("error", err))
		return nil, status.Error(codes.Internal, "failed to encode frame")
	}
	return out, nil
}

func (s *TimelineService) apply(req api.DispatchRequest) query.Frame {
	q := s.session.Query
	if req.Hits != nil {
		prev := q.SetHitTester(req.Hits)
		defer q.SetHitTester(prev)
	}

	switch req.Input {
	case api.InputPointerMoved:
		q.PointerMoved(req.Position)
	case api.InputPrimaryDown:
		if req.HasPosition {
			q.PointerMoved(req.Position)
		}
		q.PrimaryDown()
	case api.InputPrimaryUp:
		q.PrimaryUp()
	case api.InputSecondaryDown:
		q.SecondaryDown()
	case api.InputSecondaryUp:
		q.SecondaryUp()
	case api.InputModifierDown:
		q.ModifierDown()
	case api.InputModifierUp:
		q.ModifierUp()
	case api.InputReset:
		q.Reset()
	}
	return q.Frame()
}

// GetFrame returns the current frame.
func (s *TimelineService) GetFrame(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	if s.session == nil {
		return nil, status.Error(codes.FailedPrecondition, "no session loaded")
	}
	s.mu.Lock()
	frame := s.session.Query.Frame()
	s.mu.Unlock()

	out, err := api.ToProtoFrame(frame)
	if err != nil {
		return nil, status.Error(codes.Internal, "failed to encode frame")
	}
	return out, nil
}

// GetSummary returns the load summary of the session.
func (s *TimelineService) GetSummary(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	if s.session == nil {
		return nil, status.Error(codes.FailedPrecondition, "no session loaded")
	}
	report, err := s.summaries.Build(ctx, s.session.ID, s.session.Store, s.session.Causality, s.session.Stats)
	if err != nil {
		return nil, status.FromContextError(err).Err()
	}
	out, err := api.ToProtoSummary(report)
	if err != nil {
		s.logger.Error("encode summary failed", slog.Any("error", err))
		return nil, status.Error(codes.Internal, "failed to encode summary")
	}
	return out, nil
}
