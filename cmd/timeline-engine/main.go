package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/arl/statsviz"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gopkg.in/yaml.v3"

	"github.com/miradorstack/reconcile-timeline/internal/api"
	"github.com/miradorstack/reconcile-timeline/internal/config"
	"github.com/miradorstack/reconcile-timeline/internal/engine"
	"github.com/miradorstack/reconcile-timeline/internal/extractors"
	"github.com/miradorstack/reconcile-timeline/internal/logsource"
	"github.com/miradorstack/reconcile-timeline/internal/metrics"
	"github.com/miradorstack/reconcile-timeline/internal/query"
	"github.com/miradorstack/reconcile-timeline/internal/repo"
	"github.com/miradorstack/reconcile-timeline/internal/services"
	"github.com/miradorstack/reconcile-timeline/internal/summary"
	"github.com/miradorstack/reconcile-timeline/internal/telemetry"
	"github.com/miradorstack/reconcile-timeline/internal/utils"
)

func main() {
	var configPath, summaryPath string
	flag.StringVar(&configPath, "config", "", "Path to configuration file")
	flag.StringVar(&summaryPath, "summary", "", "Write the load summary as YAML to this path and exit")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("failed to load config", slog.String("path", configPath), slog.Any("error", err))
		os.Exit(1)
	}

	logger := utils.NewLogger(cfg.Logging.Level, cfg.Logging.JSON, nil)
	slog.SetDefault(logger)
	logger.Info("starting reconcile-timeline",
		slog.String("address", cfg.Server.Address),
		slog.String("client_log", cfg.Sources.Client),
		slog.String("server_log", cfg.Sources.Server),
		slog.Duration("server_offset", clockOffset(cfg.Clock.ServerOffset).Duration()))

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		logger.Error("failed to register metrics", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, logger, cfg.Tracing)
	if err != nil {
		logger.Warn("tracing unavailable", slog.Any("error", err))
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Warn("tracing shutdown", slog.Any("error", err))
		}
	}()

	session, err := loadSession(ctx, logger, cfg)
	if err != nil {
		logger.Error("failed to load logs", slog.Any("error", err))
		os.Exit(1)
	}
	defer session.Close()

	var sinks summary.Sinks
	if summaryPath != "" {
		sinks = append(sinks, summary.SinkFunc(func(_ context.Context, _ string, report summary.Report) error {
			return writeSummary(summaryPath, report)
		}))
	}
	if cfg.Summary.Endpoint != "" {
		sinks = append(sinks, repo.NewReportPublisher(cfg.Summary.Endpoint, cfg.Summary.Path, cfg.Summary.Timeout))
	}
	builder := summary.NewBuilder(logger, sinks)
	report, err := builder.Build(ctx, session.ID, session.Store, session.Causality, session.Stats)
	if err != nil {
		logger.Error("failed to summarise session", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("session summary",
		slog.String("session_id", report.SessionID),
		slog.Int("events", report.Events),
		slog.Int("ticks", report.Ticks),
		slog.Float64("ack_ratio", report.AckRatio),
		slog.Int("longest_unacknowledged", report.LongestUnacked.Length))
	if summaryPath != "" {
		return
	}

	timelineService := services.NewTimelineService(logger, session, summary.NewBuilder(logger, nil))

	server, err := api.NewServer(cfg.Server, timelineService)
	if err != nil {
		logger.Error("failed to create gRPC server", slog.Any("error", err))
		os.Exit(1)
	}

	var metricsServer *http.Server
	if cfg.Server.MetricsAddress != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		if err := statsviz.Register(mux, statsviz.Root("/debug/statsviz")); err != nil {
			logger.Warn("statsviz unavailable", slog.Any("error", err))
		}
		metricsServer = &http.Server{
			Addr:         cfg.Server.MetricsAddress,
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 15 * time.Second,
		}
		go func() {
			logger.Info("metrics server listening", slog.String("address", cfg.Server.MetricsAddress))
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server exited", slog.Any("error", err))
				stop()
			}
		}()
	}

	go func() {
		if serveErr := server.Start(); serveErr != nil {
			logger.Error("gRPC server exited", slog.Any("error", serveErr))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
	defer cancel()
	server.Shutdown(shutdownCtx)

	if metricsServer != nil {
		metricsCtx, cancelMetrics := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(metricsCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server shutdown", slog.Any("error", err))
		}
		cancelMetrics()
	}

	logger.Info("reconcile-timeline stopped")
}

func loadSession(ctx context.Context, logger *slog.Logger, cfg *config.Config) (*engine.Session, error) {
	if cfg.Sources.Client == "" || cfg.Sources.Server == "" {
		return nil, errors.New("sources.client and sources.server are required")
	}
	loc, err := cfg.Sources.TimeLocation()
	if err != nil {
		return nil, err
	}

	rules, err := engine.LoadRules(cfg.Rules.Path)
	if err != nil {
		return nil, fmt.Errorf("load rules: %w", err)
	}
	classifier, err := engine.NewClassifier(logger, rules)
	if err != nil {
		return nil, fmt.Errorf("build classifier: %w", err)
	}

	aligner := engine.NewClockAligner(clockOffset(cfg.Clock.ServerOffset))
	pipeline, err := engine.NewPipeline(logger, extractors.NewReassembler(loc), classifier, aligner, nil)
	if err != nil {
		return nil, err
	}

	pair, err := logsource.ReadPair(ctx, cfg.Sources.Client, cfg.Sources.Server)
	if err != nil {
		return nil, err
	}

	hits := query.NewNearestHitTester(cfg.Query.PickRadius, query.Scale{Time: cfg.Query.TimeScale, Rank: cfg.Query.RankScale})
	return pipeline.Load(ctx, pair.ClientReader(), pair.ServerReader(), engine.LoadOptions{
		Window:    engine.TimeWindow{Start: cfg.Sources.Window.Start, End: cfg.Sources.Window.End},
		HitTester: hits,
	})
}

func writeSummary(path string, report summary.Report) error {
	data, err := yaml.Marshal(report)
	if err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}
	if path == "-" {
		_, err = os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// clockOffset is the only conversion from configuration to the aligner's offset, so the startup
// log and the aligner report the same value.
func clockOffset(cfg config.OffsetConfig) engine.ClockOffset {
	return engine.ClockOffset{Hours: cfg.Hours, Seconds: cfg.SecondsFraction}
}
