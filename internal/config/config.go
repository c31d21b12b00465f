// Package config loads runtime configuration from the environment, with an
// optional .env file for local development.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"trade-analytics-lab/internal/source"
)

// Data source selectors accepted in DATA_SOURCE.
const (
	SourceDatabase = "database"
	SourceCSV      = "csv"
	SourceSample   = "sample"
)

type Config struct {
	// Data source
	DataSource     string // database | csv | sample
	DatabaseDSN    string // postgres:// or clickhouse:// DSN
	MigrateOnStart bool   // apply embedded schema migrations before first load
	CSVPath        string
	SampleSeed     int64
	SampleCount    int

	// Dataset filters (applied at load time)
	FilterPair  string
	FilterSince *time.Time
	FilterUntil *time.Time
	FilterLimit int

	// Engine
	LoadTimeout     time.Duration
	CacheCapacity   int
	RefreshInterval time.Duration // 0 disables background refresh

	// Outputs
	OutputDir  string
	WebhookURL string

	// HTTP server
	HTTPAddr string

	// Observability
	LogLevel     string
	LogFormat    string
	TraceEnabled bool
}

// Load reads configuration from the environment. A malformed time filter is
// an immediate error; cross-field rules live in Validate.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		DataSource:     envStr("DATA_SOURCE", SourceSample),
		DatabaseDSN:    envStr("DATABASE_DSN", ""),
		MigrateOnStart: envBool("MIGRATE_ON_START", false),
		CSVPath:        envStr("CSV_PATH", ""),
		SampleSeed:     envInt64("SAMPLE_SEED", 42),
		SampleCount:    envInt("SAMPLE_COUNT", 250),

		FilterPair:  envStr("FILTER_PAIR", ""),
		FilterLimit: envInt("FILTER_LIMIT", 0),

		LoadTimeout:     envDuration("LOAD_TIMEOUT", 10*time.Second),
		CacheCapacity:   envInt("CACHE_CAPACITY", 32),
		RefreshInterval: envDuration("REFRESH_INTERVAL", time.Minute),

		OutputDir:  envStr("OUTPUT_DIR", "docs"),
		WebhookURL: envStr("WEBHOOK_URL", ""),

		HTTPAddr: envStr("HTTP_ADDR", ":8080"),

		LogLevel:     envStr("LOG_LEVEL", "info"),
		LogFormat:    envStr("LOG_FORMAT", "text"),
		TraceEnabled: envBool("TRACE_ENABLED", false),
	}

	var err error
	if cfg.FilterSince, err = envTime("FILTER_SINCE"); err != nil {
		return nil, err
	}
	if cfg.FilterUntil, err = envTime("FILTER_UNTIL"); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks cross-field rules, collecting every failure.
func (c *Config) Validate() error {
	var errs []string

	switch c.DataSource {
	case SourceDatabase:
		if c.DatabaseDSN == "" {
			errs = append(errs, "DATABASE_DSN is required when DATA_SOURCE=database")
		}
	case SourceCSV:
		if c.CSVPath == "" {
			errs = append(errs, "CSV_PATH is required when DATA_SOURCE=csv")
		}
	case SourceSample:
		if c.SampleCount <= 0 {
			errs = append(errs, "SAMPLE_COUNT must be positive")
		}
	default:
		errs = append(errs, fmt.Sprintf("DATA_SOURCE %q must be database, csv, or sample", c.DataSource))
	}

	if c.LoadTimeout <= 0 {
		errs = append(errs, "LOAD_TIMEOUT must be positive")
	}
	if c.RefreshInterval < 0 {
		errs = append(errs, "REFRESH_INTERVAL must not be negative")
	}
	if c.FilterLimit < 0 {
		errs = append(errs, "FILTER_LIMIT must not be negative")
	}
	if c.FilterSince != nil && c.FilterUntil != nil && !c.FilterUntil.After(*c.FilterSince) {
		errs = append(errs, "FILTER_UNTIL must be after FILTER_SINCE")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  %s", strings.Join(errs, "\n  "))
	}
	return nil
}

// SourceOptions maps the configured filters onto adapter options.
func (c *Config) SourceOptions() source.Options {
	return source.Options{
		Pair:  c.FilterPair,
		Since: c.FilterSince,
		Until: c.FilterUntil,
		Limit: c.FilterLimit,
	}
}

// --- helpers ---

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		v = strings.ToLower(v)
		return v == "true" || v == "1" || v == "yes"
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

// envTime parses an RFC3339 timestamp in UTC. Empty is nil; a malformed
// value is an error, not a fallback.
func envTime(key string) (*time.Time, error) {
	v := os.Getenv(key)
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return nil, fmt.Errorf("%s: %q is not RFC3339: %w", key, v, err)
	}
	utc := t.UTC()
	return &utc, nil
}
