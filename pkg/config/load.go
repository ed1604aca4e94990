package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads configuration from a YAML file, applies defaults, and
// validates the result.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// Default returns the configuration with every default applied, for hosts
// running without a config file.
func Default() *Config {
	var cfg Config
	ApplyDefaults(&cfg)
	return &cfg
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// CALLISTO_* environment variable overrides. Environment variables always
// take precedence over file-based configuration.
//
// The loading sequence is:
//  1. Load YAML from file
//  2. Apply default values
//  3. Apply environment variable overrides
//  4. Validate final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies CALLISTO_SECTION_FIELD environment variables.
func applyEnvOverrides(cfg *Config) {
	// Storage overrides
	if val := os.Getenv("CALLISTO_STORAGE_DRIVER"); val != "" {
		cfg.Storage.Driver = val
	}
	if val := os.Getenv("CALLISTO_STORAGE_DATA_DIR"); val != "" {
		cfg.Storage.DataDir = val
	}
	if val := os.Getenv("CALLISTO_STORAGE_BUSY_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Storage.BusyTimeout = d
		}
	}
	if val := os.Getenv("CALLISTO_STORAGE_MAX_CONNS"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Storage.MaxConns = i
		}
	}

	// Cache overrides
	if val := os.Getenv("CALLISTO_CACHE_PATH"); val != "" {
		cfg.Cache.Path = val
	}
	if val := os.Getenv("CALLISTO_CACHE_TTL"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Cache.TTL = d
		}
	}

	// Budget overrides
	if val := os.Getenv("CALLISTO_BUDGET_PATH"); val != "" {
		cfg.Budget.Path = val
	}
	if val := os.Getenv("CALLISTO_BUDGET_DAILY_CAP_USD"); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.Budget.DailyCapUSD = f
		}
	}

	// Rate limit overrides
	if val := os.Getenv("CALLISTO_RATE_LIMIT_PATH"); val != "" {
		cfg.RateLimit.Path = val
	}
	if val := os.Getenv("CALLISTO_RATE_LIMIT_REQUESTS"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.RateLimit.Requests = i
		}
	}
	if val := os.Getenv("CALLISTO_RATE_LIMIT_WINDOW"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.RateLimit.Window = d
		}
	}
	if val := os.Getenv("CALLISTO_RATE_LIMIT_CLEANUP_INTERVAL"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.RateLimit.CleanupInterval = d
		}
	}

	// Retention overrides
	if val := os.Getenv("CALLISTO_RETENTION_SWEEP_SCHEDULE"); val != "" {
		cfg.Retention.SweepSchedule = val
	}

	// Telemetry overrides
	if val := os.Getenv("CALLISTO_TELEMETRY_LOGGING_LEVEL"); val != "" {
		cfg.Telemetry.Logging.Level = val
	}
	if val := os.Getenv("CALLISTO_TELEMETRY_LOGGING_FORMAT"); val != "" {
		cfg.Telemetry.Logging.Format = val
	}
}
