package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config captures everything needed to load a log pair and serve its timeline.
type Config struct {
	Sources SourcesConfig `yaml:"sources"`
	Clock   ClockConfig   `yaml:"clock"`
	Query   QueryConfig   `yaml:"query"`
	Rules   RulesConfig   `yaml:"rules"`
	Summary SummaryConfig `yaml:"summary"`
	Server  ServerConfig  `yaml:"server"`
	Logging LoggingConfig `yaml:"logging"`
	Tracing TracingConfig `yaml:"tracing"`
}

// SourcesConfig names the two log files and how to read their timestamps.
type SourcesConfig struct {
	Client string `yaml:"client" env:"RECONCILE_CLIENT_LOG"`
	Server string `yaml:"server" env:"RECONCILE_SERVER_LOG"`
	// Location is the IANA zone the log headers were written in.
	Location string       `yaml:"location" env:"RECONCILE_LOG_LOCATION"`
	Window   WindowConfig `yaml:"window"`
}

// WindowConfig restricts loaded events to an aligned time range. Zero bounds are open.
type WindowConfig struct {
	Start time.Time `yaml:"start" env:"RECONCILE_WINDOW_START"`
	End   time.Time `yaml:"end" env:"RECONCILE_WINDOW_END"`
}

// ClockConfig holds the fixed skew between the server and client clocks.
type ClockConfig struct {
	ServerOffset OffsetConfig `yaml:"serverOffset"`
}

// OffsetConfig is the server clock's lead over the client clock.
type OffsetConfig struct {
	Hours           float64 `yaml:"hours" env:"RECONCILE_SERVER_OFFSET_HOURS"`
	SecondsFraction float64 `yaml:"secondsFraction" env:"RECONCILE_SERVER_OFFSET_SECONDS"`
}

// QueryConfig tunes the data-space hit tester.
type QueryConfig struct {
	PickRadius float64       `yaml:"pickRadius" env:"RECONCILE_PICK_RADIUS"`
	TimeScale  time.Duration `yaml:"timeScale" env:"RECONCILE_PICK_TIME_SCALE"`
	RankScale  float64       `yaml:"rankScale" env:"RECONCILE_PICK_RANK_SCALE"`
}

// RulesConfig points at optional classifier extensions.
type RulesConfig struct {
	Path string `yaml:"path" env:"RECONCILE_RULES_PATH"`
}

// SummaryConfig configures where load summaries are published.
type SummaryConfig struct {
	Endpoint string        `yaml:"endpoint" env:"RECONCILE_SUMMARY_ENDPOINT"`
	Path     string        `yaml:"path" env:"RECONCILE_SUMMARY_PATH"`
	Timeout  time.Duration `yaml:"timeout" env:"RECONCILE_SUMMARY_TIMEOUT"`
}

// ServerConfig controls gRPC listener behaviour.
type ServerConfig struct {
	Address         string        `yaml:"address" env:"RECONCILE_SERVER_ADDRESS"`
	MetricsAddress  string        `yaml:"metricsAddress" env:"RECONCILE_METRICS_ADDRESS"`
	GracefulTimeout time.Duration `yaml:"gracefulTimeout" env:"RECONCILE_GRACEFUL_TIMEOUT"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	Level string `yaml:"level" env:"RECONCILE_LOG_LEVEL"`
	JSON  bool   `yaml:"json" env:"RECONCILE_LOG_JSON"`
}

// TracingConfig controls the OTLP trace exporter.
type TracingConfig struct {
	Enabled     bool    `yaml:"enabled" env:"RECONCILE_TRACING_ENABLED"`
	Endpoint    string  `yaml:"endpoint" env:"RECONCILE_OTLP_ENDPOINT"`
	Insecure    bool    `yaml:"insecure" env:"RECONCILE_OTLP_INSECURE"`
	ServiceName string  `yaml:"serviceName" env:"RECONCILE_SERVICE_NAME"`
	SampleRatio float64 `yaml:"sampleRatio" env:"RECONCILE_TRACE_SAMPLE_RATIO"`
}

// Load initialises Config from a YAML file and optional environment overrides.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("RECONCILE_CONFIG")
	}

	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found: %w", path, err)
			}
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func defaultConfig() Config {
	return Config{
		Sources: SourcesConfig{Location: "UTC"},
		Query: QueryConfig{
			PickRadius: 5,
			TimeScale:  2 * time.Millisecond,
			RankScale:  0.02,
		},
		Summary: SummaryConfig{
			Path:    "/api/v1/timeline/summaries",
			Timeout: 5 * time.Second,
		},
		Server: ServerConfig{
			Address:         ":50051",
			MetricsAddress:  ":2112",
			GracefulTimeout: 10 * time.Second,
		},
		Logging: LoggingConfig{Level: "info", JSON: false},
		Tracing: TracingConfig{
			Endpoint:    "localhost:4318",
			Insecure:    true,
			ServiceName: "reconcile-timeline",
			SampleRatio: 1,
		},
	}
}

// Validate rejects settings that cannot produce a usable timeline.
func (c *Config) Validate() error {
	if _, err := c.Sources.TimeLocation(); err != nil {
		return err
	}
	w := c.Sources.Window
	if !w.Start.IsZero() && !w.End.IsZero() && w.End.Before(w.Start) {
		return fmt.Errorf("sources.window: end %s is before start %s", w.End, w.Start)
	}
	if c.Query.PickRadius <= 0 {
		return fmt.Errorf("query.pickRadius must be positive, got %v", c.Query.PickRadius)
	}
	if c.Query.TimeScale <= 0 || c.Query.RankScale <= 0 {
		return errors.New("query.timeScale and query.rankScale must be positive")
	}
	if c.Tracing.SampleRatio < 0 || c.Tracing.SampleRatio > 1 {
		return fmt.Errorf("tracing.sampleRatio must be within [0,1], got %v", c.Tracing.SampleRatio)
	}
	return nil
}

// TimeLocation resolves Location; empty means UTC.
func (s SourcesConfig) TimeLocation() (*time.Location, error) {
	if s.Location == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(s.Location)
	if err != nil {
		return nil, fmt.Errorf("sources.location: %w", err)
	}
	return loc, nil
}
