package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("RECONCILE_CONFIG", "")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":50051", cfg.Server.Address)
	assert.Equal(t, 5.0, cfg.Query.PickRadius)
	assert.Equal(t, 2*time.Millisecond, cfg.Query.TimeScale)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.False(t, cfg.Tracing.Enabled)
}

func TestLoadFileAndEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
sources:
  client: logs/client.log
  server: logs/server.log.zst
  window:
    start: 2024-01-01T00:00:00Z
clock:
  serverOffset:
    hours: 1
    secondsFraction: 0.5
query:
  pickRadius: 8
server:
  address: ":6000"
`), 0o644))
	t.Setenv("RECONCILE_SERVER_ADDRESS", ":7000")
	t.Setenv("RECONCILE_LOG_LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "logs/client.log", cfg.Sources.Client)
	assert.Equal(t, "logs/server.log.zst", cfg.Sources.Server)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), cfg.Sources.Window.Start.UTC())
	assert.True(t, cfg.Sources.Window.End.IsZero())
	assert.Equal(t, OffsetConfig{Hours: 1, SecondsFraction: 0.5}, cfg.Clock.ServerOffset)
	assert.Equal(t, 8.0, cfg.Query.PickRadius)
	assert.Equal(t, 0.02, cfg.Query.RankScale, "unset keys keep their defaults")
	assert.Equal(t, ":7000", cfg.Server.Address)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := defaultConfig()
	require.NoError(t, cfg.Validate())

	bad := cfg
	bad.Query.PickRadius = 0
	assert.Error(t, bad.Validate())

	bad = cfg
	bad.Sources.Location = "Mars/Olympus_Mons"
	assert.Error(t, bad.Validate())

	bad = cfg
	bad.Sources.Window = WindowConfig{Start: time.Unix(10, 0), End: time.Unix(5, 0)}
	assert.Error(t, bad.Validate())

	bad = cfg
	bad.Tracing.SampleRatio = 2
	assert.Error(t, bad.Validate())
}
