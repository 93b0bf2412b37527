package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mindburn-Labs/insights/pkg/config"
)

var envKeys = []string{
	"PORT", "LOG_LEVEL", "LOG_FORMAT",
	"PREDICT_UPSTREAM_URL", "PREDICT_UPSTREAM_TOKEN", "PREDICT_TIMEOUT",
	"POLICY_FILE", "POLICY_WATCH", "DEFAULT_ROLE", "REPORT_LOAD_DELAY",
	"RATE_LIMIT_RPS", "RATE_LIMIT_BURST", "CORS_ALLOWED_ORIGINS",
	"OTEL_ENABLED", "OTEL_EXPORTER_OTLP_ENDPOINT", "OTEL_INSECURE",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

// TestLoad_Defaults verifies the server boots with usable defaults.
func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg := config.Load()

	assert.Equal(t, "3001", cfg.Port)
	assert.Equal(t, ":3001", cfg.Addr())
	assert.Equal(t, "INFO", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Empty(t, cfg.UpstreamURL)
	assert.Equal(t, 30*time.Second, cfg.UpstreamTimeout)
	assert.True(t, cfg.PolicyWatch)
	assert.Equal(t, "bed_user", cfg.DefaultRole)
	assert.Equal(t, time.Second, cfg.ReportLoadDelay)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.False(t, cfg.OTelEnabled)
	assert.NoError(t, cfg.Validate())
}

// TestLoad_Overrides verifies that environment variables override defaults.
func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("PREDICT_UPSTREAM_URL", "https://serving.example/invocations")
	t.Setenv("PREDICT_UPSTREAM_TOKEN", "dapi-123")
	t.Setenv("PREDICT_TIMEOUT", "5s")
	t.Setenv("POLICY_WATCH", "false")
	t.Setenv("DEFAULT_ROLE", "both")
	t.Setenv("RATE_LIMIT_RPS", "2.5")
	t.Setenv("RATE_LIMIT_BURST", "4")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://a.example, http://b.example,")
	t.Setenv("OTEL_ENABLED", "true")

	cfg := config.Load()

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "DEBUG", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "https://serving.example/invocations", cfg.UpstreamURL)
	assert.Equal(t, "dapi-123", cfg.UpstreamToken)
	assert.Equal(t, 5*time.Second, cfg.UpstreamTimeout)
	assert.False(t, cfg.PolicyWatch)
	assert.Equal(t, "both", cfg.DefaultRole)
	assert.InDelta(t, 2.5, cfg.RateLimitRPS, 1e-9)
	assert.Equal(t, 4, cfg.RateLimitBurst)
	assert.Equal(t, []string{"http://a.example", "http://b.example"}, cfg.CORSOrigins)
	assert.True(t, cfg.OTelEnabled)
	assert.NoError(t, cfg.Validate())
}

func TestValidate_ReportsEveryProblem(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "http")
	t.Setenv("LOG_FORMAT", "xml")
	t.Setenv("PREDICT_UPSTREAM_URL", "ftp://nope")
	t.Setenv("PREDICT_TIMEOUT", "soon")
	t.Setenv("RATE_LIMIT_BURST", "0")

	err := config.Load().Validate()
	require.Error(t, err)
	for _, want := range []string{"PORT", "LOG_FORMAT", "PREDICT_UPSTREAM_URL", "PREDICT_TIMEOUT", "RATE_LIMIT_BURST"} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestLoadWithFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "insights.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
port: "4000"
upstream:
  url: https://serving.example/predict
  timeout: 10s
policy:
  file: roles.yaml
  watch: false
dashboard:
  default_role: monitor_user
  load_delay: 250ms
rate_limit:
  burst: 3
telemetry:
  enabled: true
`), 0o600))
	t.Setenv("PORT", "5000")

	cfg, err := config.LoadWithFile(path)
	require.NoError(t, err)

	assert.Equal(t, "5000", cfg.Port, "environment wins over file")
	assert.Equal(t, "https://serving.example/predict", cfg.UpstreamURL)
	assert.Equal(t, 10*time.Second, cfg.UpstreamTimeout)
	assert.Equal(t, "roles.yaml", cfg.PolicyFile)
	assert.False(t, cfg.PolicyWatch)
	assert.Equal(t, "monitor_user", cfg.DefaultRole)
	assert.Equal(t, 250*time.Millisecond, cfg.ReportLoadDelay)
	assert.Equal(t, 3, cfg.RateLimitBurst)
	assert.InDelta(t, 10, cfg.RateLimitRPS, 1e-9, "unset file field keeps default")
	assert.True(t, cfg.OTelEnabled)
	assert.NoError(t, cfg.Validate())
}

func TestLoadWithFile_Errors(t *testing.T) {
	clearEnv(t)

	_, err := config.LoadWithFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: [1, 2"), 0o600))
	_, err = config.LoadWithFile(path)
	assert.Error(t, err)

	cfg, err := config.LoadWithFile("")
	require.NoError(t, err)
	assert.Equal(t, "3001", cfg.Port)
}
