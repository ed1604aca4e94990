package config

import (
	"errors"
	"fmt"
	"strings"
)

// ErrConfigInvalid is the base error for validation failures.
var ErrConfigInvalid = errors.New("invalid configuration")

// Validate checks cfg for values the quota layer cannot operate with.
// It returns all problems at once, joined into a single error.
func Validate(cfg *Config) error {
	var problems []string

	switch cfg.Storage.Driver {
	case "modernc", "mattn":
	default:
		problems = append(problems, fmt.Sprintf("storage.driver must be %q or %q, got %q",
			"modernc", "mattn", cfg.Storage.Driver))
	}
	if cfg.Storage.BusyTimeout <= 0 {
		problems = append(problems, "storage.busy_timeout must be positive")
	}
	if cfg.Storage.MaxConns <= 0 {
		problems = append(problems, "storage.max_conns must be positive")
	}

	if cfg.Cache.Path == "" {
		problems = append(problems, "cache.path must not be empty")
	}
	if cfg.Cache.TTL <= 0 {
		problems = append(problems, "cache.ttl must be positive")
	}

	if cfg.Budget.Path == "" {
		problems = append(problems, "budget.path must not be empty")
	}
	if cfg.Budget.DailyCapUSD < 0 {
		problems = append(problems, "budget.daily_cap_usd must not be negative")
	}

	if cfg.RateLimit.Path == "" {
		problems = append(problems, "rate_limit.path must not be empty")
	}
	if cfg.RateLimit.Requests <= 0 {
		problems = append(problems, "rate_limit.requests must be positive")
	}
	if cfg.RateLimit.Window <= 0 {
		problems = append(problems, "rate_limit.window must be positive")
	}
	if cfg.RateLimit.CleanupInterval <= 0 {
		problems = append(problems, "rate_limit.cleanup_interval must be positive")
	}

	switch cfg.Telemetry.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		problems = append(problems, fmt.Sprintf("telemetry.logging.level %q is not a known level",
			cfg.Telemetry.Logging.Level))
	}
	switch cfg.Telemetry.Logging.Format {
	case "json", "text":
	default:
		problems = append(problems, fmt.Sprintf("telemetry.logging.format %q is not a known format",
			cfg.Telemetry.Logging.Format))
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrConfigInvalid, strings.Join(problems, "; "))
	}
	return nil
}
