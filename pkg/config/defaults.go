package config

import (
	"path/filepath"
	"time"
)

// Default values applied by ApplyDefaults.
const (
	DefaultDriver          = "modernc"
	DefaultDataDir         = "data"
	DefaultBusyTimeout     = 10 * time.Second
	DefaultMaxConns        = 1
	DefaultCacheTTL        = 6 * time.Hour
	DefaultDailyCapUSD     = 5.00
	DefaultRateRequests    = 10
	DefaultRateWindow      = 60 * time.Second
	DefaultCleanupInterval = 5 * time.Minute
	DefaultLogLevel        = "info"
	DefaultLogFormat       = "json"
)

// ApplyDefaults fills in zero-valued fields. Per-store paths default to
// files under Storage.DataDir.
func ApplyDefaults(cfg *Config) {
	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = DefaultDriver
	}
	if cfg.Storage.DataDir == "" {
		cfg.Storage.DataDir = DefaultDataDir
	}
	if cfg.Storage.BusyTimeout <= 0 {
		cfg.Storage.BusyTimeout = DefaultBusyTimeout
	}
	if cfg.Storage.MaxConns <= 0 {
		cfg.Storage.MaxConns = DefaultMaxConns
	}

	if cfg.Cache.Path == "" {
		cfg.Cache.Path = filepath.Join(cfg.Storage.DataDir, "cache.db")
	}
	if cfg.Cache.TTL <= 0 {
		cfg.Cache.TTL = DefaultCacheTTL
	}

	if cfg.Budget.Path == "" {
		cfg.Budget.Path = filepath.Join(cfg.Storage.DataDir, "budget.db")
	}
	if cfg.Budget.DailyCapUSD == 0 {
		cfg.Budget.DailyCapUSD = DefaultDailyCapUSD
	}

	if cfg.RateLimit.Path == "" {
		cfg.RateLimit.Path = filepath.Join(cfg.Storage.DataDir, "rate_limits.db")
	}
	if cfg.RateLimit.Requests <= 0 {
		cfg.RateLimit.Requests = DefaultRateRequests
	}
	if cfg.RateLimit.Window <= 0 {
		cfg.RateLimit.Window = DefaultRateWindow
	}
	if cfg.RateLimit.CleanupInterval <= 0 {
		cfg.RateLimit.CleanupInterval = DefaultCleanupInterval
	}

	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLogLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLogFormat
	}
}
