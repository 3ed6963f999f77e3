package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rusenback/idlemon/internal/activity"
	"github.com/rusenback/idlemon/internal/docker"
	"github.com/rusenback/idlemon/internal/monitor"
	"github.com/rusenback/idlemon/internal/probe"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_FileOverDefaults(t *testing.T) {
	path := writeConfig(t, `
container: minecraft-server
server:
  port: 25570
monitor:
  interval: 5m
  empty_threshold: 3
logs:
  final_since: 15m
state:
  backend: s3
  s3:
    bucket: mc-state
    region: eu-north-1
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "minecraft-server", cfg.Container)
	assert.Equal(t, 25570, cfg.Server.Port)
	assert.Equal(t, 5*time.Minute, cfg.Monitor.Interval.Duration)
	assert.Equal(t, 3, cfg.Monitor.EmptyThreshold)
	assert.Equal(t, 15*time.Minute, cfg.Logs.FinalSince.Duration)
	assert.Equal(t, BackendS3, cfg.State.Backend)
	assert.Equal(t, "mc-state", cfg.State.S3.Bucket)

	// untouched settings keep their defaults
	assert.Equal(t, 2, cfg.Monitor.FailureThreshold)
	assert.Equal(t, 6*time.Second, cfg.Probe.ModernReadTimeout.Duration)
	assert.Equal(t, 47, cfg.Probe.ProtocolVersion)
	assert.Equal(t, "current", cfg.Monitor.StateKey)
	require.NoError(t, cfg.Validate())
}

func TestLoad_BadDuration(t *testing.T) {
	path := writeConfig(t, "monitor:\n  interval: soon\n")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_MissingDefaultFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("IDLEMON_CONTAINER", "mc")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "mc", cfg.Container)
	assert.Equal(t, 25565, cfg.Server.Port)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "container: from-file\nmonitor:\n  interval: 5m\n")
	t.Setenv("IDLEMON_CONTAINER", "from-env")
	t.Setenv("IDLEMON_MONITOR_INTERVAL", "90s")
	t.Setenv("IDLEMON_SERVER_PORT", "25600")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Container)
	assert.Equal(t, 90*time.Second, cfg.Monitor.Interval.Duration)
	assert.Equal(t, 25600, cfg.Server.Port)
}

func TestApplyEnv_InvalidValue(t *testing.T) {
	cfg := Default()
	env := map[string]string{"IDLEMON_MONITOR_EMPTY_THRESHOLD": "two"}

	err := cfg.applyEnv(func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	})
	assert.ErrorContains(t, err, "IDLEMON_MONITOR_EMPTY_THRESHOLD")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		edit  func(c *Config)
		field string
		want  error
	}{
		{"missing container", func(c *Config) { c.Container = "" }, "container", ErrMissingField},
		{"missing state key", func(c *Config) { c.Monitor.StateKey = "" }, "monitor.state_key", ErrMissingField},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }, "server.port", ErrInvalidValue},
		{"zero interval", func(c *Config) { c.Monitor.Interval = Duration{} }, "monitor.interval", ErrInvalidValue},
		{"zero empty threshold", func(c *Config) { c.Monitor.EmptyThreshold = 0 }, "monitor.empty_threshold", ErrInvalidValue},
		{"zero failure threshold", func(c *Config) { c.Monitor.FailureThreshold = 0 }, "monitor.failure_threshold", ErrInvalidValue},
		{"s3 without bucket", func(c *Config) { c.State.Backend = BackendS3 }, "state.s3.bucket", ErrMissingField},
		{"unknown backend", func(c *Config) { c.State.Backend = "etcd" }, "state.backend", ErrInvalidValue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Container = "mc"
			tt.edit(cfg)

			err := cfg.Validate()
			var verr *ValidationError
			require.True(t, errors.As(err, &verr), "got %v", err)
			assert.Equal(t, tt.field, verr.Field)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestSave_RoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Container = "mc"
	cfg.Monitor.Interval = Duration{4 * time.Minute}

	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestDefault_RoundTripsComponentDefaults(t *testing.T) {
	cfg := Default()

	pc := cfg.ProbeConfig()
	assert.Equal(t, probe.DefaultConfig(), pc)
	assert.Equal(t, activity.DefaultWindows(), cfg.LogWindows())
	assert.Equal(t, monitor.DefaultConfig(), cfg.MonitorConfig())

	dc := cfg.DockerConfig()
	want := docker.DefaultConfig()
	assert.Equal(t, want.Host, dc.Host)
	assert.Equal(t, want.Timeout, dc.Timeout)
	assert.Equal(t, want.StopTimeout, dc.StopTimeout)

	assert.Equal(t, "idlemon", cfg.NotifyConfig().Exchange)
}

func TestMonitorConfig_Overrides(t *testing.T) {
	cfg := Default()
	cfg.Server.Address = "play.example.net"
	cfg.Server.QueryPort = 25575
	cfg.Logs.FinalSince = Duration{15 * time.Minute}

	mc := cfg.MonitorConfig()
	assert.Equal(t, "play.example.net", mc.Address)
	assert.Equal(t, 15*time.Minute, mc.FinalSince)
	assert.Equal(t, 25575, cfg.ProbeConfig().QueryPort)
}
