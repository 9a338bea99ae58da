package config_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mindburn-Labs/dil/pkg/config"
)

var envKeys = []string{
	"DIL_CONFIG", "PORT", "LOG_LEVEL", "DIL_GOVERNANCE_SECRET", "DIL_GOVERNANCE_SECRET_FILE",
	"DIL_LEDGER_BACKEND", "DIL_LEDGER_PATH", "DATABASE_URL", "DIL_RATE_LIMIT_RPS",
	"DIL_RATE_LIMIT_BURST", "DIL_REDIS_ADDR", "OTEL_ENABLED", "OTEL_EXPORTER_OTLP_ENDPOINT", "OTEL_INSECURE",
}

func cleanEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

// The service boots with safe defaults but refuses to run without a secret.
func TestLoad_Defaults(t *testing.T) {
	cleanEnv(t)

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "INFO", cfg.LogLevel)
	assert.Equal(t, config.BackendMemory, cfg.Ledger.Backend)
	assert.Empty(t, cfg.Ledger.Path)
	assert.Equal(t, 50.0, cfg.RateLimit.RPS)
	assert.Equal(t, 100, cfg.RateLimit.Burst)
	assert.False(t, cfg.Telemetry.Enabled)
	assert.Equal(t, "localhost:4317", cfg.Telemetry.Endpoint)

	assert.ErrorIs(t, cfg.Validate(), config.ErrMissingSecret)
}

func TestLoad_EnvOverrides(t *testing.T) {
	cleanEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("DIL_GOVERNANCE_SECRET", "s3cret")
	t.Setenv("DIL_LEDGER_BACKEND", "SQLite")
	t.Setenv("DIL_RATE_LIMIT_RPS", "2.5")
	t.Setenv("DIL_RATE_LIMIT_BURST", "5")
	t.Setenv("DIL_REDIS_ADDR", "redis:6379")
	t.Setenv("OTEL_ENABLED", "true")
	t.Setenv("OTEL_INSECURE", "true")

	cfg, err := config.Load()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "DEBUG", cfg.LogLevel)
	assert.Equal(t, []byte("s3cret"), cfg.Secret())
	assert.Equal(t, config.BackendSQLite, cfg.Ledger.Backend)
	assert.Equal(t, "data/dil.db", cfg.Ledger.Path)
	assert.Equal(t, 2.5, cfg.RateLimit.RPS)
	assert.Equal(t, 5, cfg.RateLimit.Burst)
	assert.Equal(t, "redis:6379", cfg.RateLimit.RedisAddr)
	assert.True(t, cfg.Telemetry.Enabled)
	assert.True(t, cfg.Telemetry.Insecure)
}

func TestLoad_DatabaseURLSelectsPostgres(t *testing.T) {
	cleanEnv(t)
	t.Setenv("DIL_GOVERNANCE_SECRET", "s")
	t.Setenv("DATABASE_URL", "postgres://dil@localhost:5432/dil?sslmode=disable")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, config.BackendPostgres, cfg.Ledger.Backend)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_YAMLFileThenEnv(t *testing.T) {
	cleanEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "dil.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
port: "7070"
governance_secret: from-file
ledger:
  backend: file
  path: /var/lib/dil/ledger.jsonl
rate_limit:
  rps: 10
telemetry:
  enabled: true
  endpoint: collector:4317
`), 0o600))
	t.Setenv("DIL_CONFIG", path)
	t.Setenv("PORT", "6060")

	cfg, err := config.Load()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "6060", cfg.Port, "env wins over file")
	assert.Equal(t, "from-file", cfg.GovernanceSecret)
	assert.Equal(t, config.BackendFile, cfg.Ledger.Backend)
	assert.Equal(t, "/var/lib/dil/ledger.jsonl", cfg.Ledger.Path)
	assert.Equal(t, 10.0, cfg.RateLimit.RPS)
	assert.Equal(t, 100, cfg.RateLimit.Burst, "absent keys keep defaults")
	assert.Equal(t, "collector:4317", cfg.Telemetry.Endpoint)
}

func TestLoad_BadYAML(t *testing.T) {
	cleanEnv(t)
	path := filepath.Join(t.TempDir(), "dil.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: [unterminated"), 0o600))
	t.Setenv("DIL_CONFIG", path)

	_, err := config.Load()
	assert.ErrorContains(t, err, "parse config")
}

func TestLoad_SecretFile(t *testing.T) {
	cleanEnv(t)
	path := filepath.Join(t.TempDir(), "secret")
	require.NoError(t, os.WriteFile(path, []byte("  mounted-secret\n"), 0o600))
	t.Setenv("DIL_GOVERNANCE_SECRET_FILE", path)

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "mounted-secret", cfg.GovernanceSecret)
}

func TestLoad_InvalidNumbers(t *testing.T) {
	cleanEnv(t)
	t.Setenv("DIL_RATE_LIMIT_BURST", "lots")
	_, err := config.Load()
	assert.ErrorIs(t, err, config.ErrInvalid)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *config.Config)
		ok     bool
	}{
		{"memory", func(c *config.Config) {}, true},
		{"unknown backend", func(c *config.Config) { c.Ledger.Backend = "etcd" }, false},
		{"postgres without url", func(c *config.Config) { c.Ledger.Backend = config.BackendPostgres }, false},
		{"sqlite without path", func(c *config.Config) { c.Ledger.Backend = config.BackendSQLite }, false},
		{"zero rps", func(c *config.Config) { c.RateLimit.RPS = 0 }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := config.Default()
			c.GovernanceSecret = "s"
			c.Ledger.Backend = config.BackendMemory
			tt.mutate(c)
			if tt.ok {
				assert.NoError(t, c.Validate())
			} else {
				assert.ErrorIs(t, c.Validate(), config.ErrInvalid)
			}
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, config.ParseLogLevel("debug"))
	assert.Equal(t, slog.LevelWarn, config.ParseLogLevel("WARN"))
	assert.Equal(t, slog.LevelError, config.ParseLogLevel("ERROR"))
	assert.Equal(t, slog.LevelInfo, config.ParseLogLevel("verbose"))
}
