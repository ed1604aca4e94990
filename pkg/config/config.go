package config

import "time"

// Config is the root configuration for the quota layer and its ops surfaces.
type Config struct {
	// Storage configures the embedded SQLite store files.
	Storage StorageConfig `yaml:"storage"`

	// Cache configures the response cache.
	Cache CacheConfig `yaml:"cache"`

	// Budget configures the daily spend ledger.
	Budget BudgetConfig `yaml:"budget"`

	// RateLimit configures the sliding-window rate limiter.
	RateLimit RateLimitConfig `yaml:"rate_limit"`

	// Retention configures the scheduled cleanup sweeper.
	Retention RetentionConfig `yaml:"retention"`

	// Telemetry configures logging and metrics.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// StorageConfig configures the SQLite layer shared by all three stores.
type StorageConfig struct {
	// Driver selects the SQLite driver ("modernc" or "mattn").
	Driver string `yaml:"driver"`

	// DataDir is the directory holding store files with default names.
	// Per-store paths override it.
	DataDir string `yaml:"data_dir"`

	// BusyTimeout bounds how long a write waits for the database lock.
	BusyTimeout time.Duration `yaml:"busy_timeout"`

	// MaxConns bounds each store's connection pool.
	MaxConns int `yaml:"max_conns"`
}

// CacheConfig configures the response cache store.
type CacheConfig struct {
	// Path is the store file. Default: <data_dir>/cache.db.
	Path string `yaml:"path"`

	// TTL is the fixed entry time-to-live.
	TTL time.Duration `yaml:"ttl"`
}

// BudgetConfig configures the spend ledger store.
type BudgetConfig struct {
	// Path is the store file. Default: <data_dir>/budget.db.
	Path string `yaml:"path"`

	// DailyCapUSD is the daily spending cap.
	DailyCapUSD float64 `yaml:"daily_cap_usd"`
}

// RateLimitConfig configures the rate limiter store.
type RateLimitConfig struct {
	// Path is the store file. Default: <data_dir>/rate_limits.db.
	Path string `yaml:"path"`

	// Requests is the number of cost units admitted per window.
	Requests int `yaml:"requests"`

	// Window is the rolling window duration.
	Window time.Duration `yaml:"window"`

	// CleanupInterval is the opportunistic cleanup cadence.
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
}

// RetentionConfig configures the scheduled sweeper.
type RetentionConfig struct {
	// SweepSchedule is a standard 5-field cron expression.
	// Empty disables scheduled sweeping.
	SweepSchedule string `yaml:"sweep_schedule"`
}

// TelemetryConfig configures observability.
type TelemetryConfig struct {
	Logging LoggingConfig `yaml:"logging"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	// Level is the minimum log level ("debug", "info", "warn", "error").
	Level string `yaml:"level"`

	// Format is the output format ("json", "text").
	Format string `yaml:"format"`
}
