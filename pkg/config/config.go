// Package config loads service configuration from defaults, an optional YAML
// file and environment variables, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// Ledger backends.
const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

var (
	ErrMissingSecret = errors.New("config: governance secret is required (DIL_GOVERNANCE_SECRET or DIL_GOVERNANCE_SECRET_FILE)")
	ErrInvalid       = errors.New("config: invalid value")
)

// Config holds server configuration.
type Config struct {
	Port                 string          `yaml:"port"`
	LogLevel             string          `yaml:"log_level"`
	GovernanceSecret     string          `yaml:"governance_secret"`
	GovernanceSecretFile string          `yaml:"governance_secret_file"`
	Ledger               LedgerConfig    `yaml:"ledger"`
	RateLimit            RateLimitConfig `yaml:"rate_limit"`
	Telemetry            TelemetryConfig `yaml:"telemetry"`
}

// LedgerConfig selects the durable mirror behind the in-memory ledger.
type LedgerConfig struct {
	Backend     string `yaml:"backend"`
	Path        string `yaml:"path"`
	DatabaseURL string `yaml:"database_url"`
}

// RateLimitConfig controls per-client request limiting. With RedisAddr set
// the bucket is shared across instances.
type RateLimitConfig struct {
	RPS       float64 `yaml:"rps"`
	Burst     int     `yaml:"burst"`
	RedisAddr string  `yaml:"redis_addr"`
}

// TelemetryConfig controls OTLP export.
type TelemetryConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint"`
	Insecure bool   `yaml:"insecure"`
}

// Default returns the built-in configuration. It has no governance secret.
func Default() *Config {
	return &Config{
		Port:     "8080",
		LogLevel: "INFO",
		RateLimit: RateLimitConfig{
			RPS:   50,
			Burst: 100,
		},
		Telemetry: TelemetryConfig{
			Endpoint: "localhost:4317",
		},
	}
}

// Load builds the configuration. The file named by DIL_CONFIG, if any, is
// applied over the defaults and environment variables over both. Load does
// not validate; call Validate before use.
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv("DIL_CONFIG"); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if cfg.GovernanceSecret == "" && cfg.GovernanceSecretFile != "" {
		b, err := os.ReadFile(cfg.GovernanceSecretFile)
		if err != nil {
			return nil, fmt.Errorf("read governance secret file: %w", err)
		}
		cfg.GovernanceSecret = strings.TrimSpace(string(b))
	}

	cfg.Ledger.Backend = strings.ToLower(cfg.Ledger.Backend)
	if cfg.Ledger.Backend == "" {
		if cfg.Ledger.DatabaseURL != "" {
			cfg.Ledger.Backend = BackendPostgres
		} else {
			cfg.Ledger.Backend = BackendMemory
		}
	}
	if cfg.Ledger.Path == "" {
		switch cfg.Ledger.Backend {
		case BackendSQLite:
			cfg.Ledger.Path = "data/dil.db"
		case BackendFile:
			cfg.Ledger.Path = "data/ledger.jsonl"
		}
	}

	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString(&c.Port, "PORT")
	setString(&c.LogLevel, "LOG_LEVEL")
	setString(&c.GovernanceSecret, "DIL_GOVERNANCE_SECRET")
	setString(&c.GovernanceSecretFile, "DIL_GOVERNANCE_SECRET_FILE")
	setString(&c.Ledger.Backend, "DIL_LEDGER_BACKEND")
	setString(&c.Ledger.Path, "DIL_LEDGER_PATH")
	setString(&c.Ledger.DatabaseURL, "DATABASE_URL")
	setString(&c.RateLimit.RedisAddr, "DIL_REDIS_ADDR")
	setString(&c.Telemetry.Endpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")

	if v := os.Getenv("DIL_RATE_LIMIT_RPS"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%w: DIL_RATE_LIMIT_RPS=%q", ErrInvalid, v)
		}
		c.RateLimit.RPS = f
	}
	if v := os.Getenv("DIL_RATE_LIMIT_BURST"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: DIL_RATE_LIMIT_BURST=%q", ErrInvalid, v)
		}
		c.RateLimit.Burst = n
	}
	if v := os.Getenv("OTEL_ENABLED"); v != "" {
		c.Telemetry.Enabled = v == "true"
	}
	if v := os.Getenv("OTEL_INSECURE"); v != "" {
		c.Telemetry.Insecure = v == "true"
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// Validate rejects configurations the service cannot start with.
func (c *Config) Validate() error {
	if c.GovernanceSecret == "" {
		return ErrMissingSecret
	}
	switch c.Ledger.Backend {
	case BackendMemory:
	case BackendFile, BackendSQLite:
		if c.Ledger.Path == "" {
			return fmt.Errorf("%w: ledger.path is required for the %s backend", ErrInvalid, c.Ledger.Backend)
		}
	case BackendPostgres:
		if c.Ledger.DatabaseURL == "" {
			return fmt.Errorf("%w: DATABASE_URL is required for the postgres backend", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: unknown ledger backend %q", ErrInvalid, c.Ledger.Backend)
	}
	if c.RateLimit.RPS <= 0 || c.RateLimit.Burst <= 0 {
		return fmt.Errorf("%w: rate limit rps and burst must be positive", ErrInvalid)
	}
	return nil
}

// Secret returns the governance secret as bytes.
func (c *Config) Secret() []byte {
	return []byte(c.GovernanceSecret)
}

// ParseLogLevel maps DEBUG, INFO, WARN and ERROR (any case) to a slog level.
// Unknown values fall back to INFO.
func ParseLogLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo
	}
	return level
}
