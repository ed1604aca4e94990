package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "callisto.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

// TestDefault tests that the no-file configuration carries every default.
func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Storage.Driver != DefaultDriver {
		t.Errorf("Expected driver %s, got %s", DefaultDriver, cfg.Storage.Driver)
	}
	if cfg.Storage.BusyTimeout != DefaultBusyTimeout {
		t.Errorf("Expected busy timeout %v, got %v", DefaultBusyTimeout, cfg.Storage.BusyTimeout)
	}
	if cfg.Cache.TTL != DefaultCacheTTL {
		t.Errorf("Expected TTL %v, got %v", DefaultCacheTTL, cfg.Cache.TTL)
	}
	if cfg.Budget.DailyCapUSD != DefaultDailyCapUSD {
		t.Errorf("Expected cap %v, got %v", DefaultDailyCapUSD, cfg.Budget.DailyCapUSD)
	}
	if cfg.RateLimit.Requests != DefaultRateRequests {
		t.Errorf("Expected %d requests, got %d", DefaultRateRequests, cfg.RateLimit.Requests)
	}
	if cfg.RateLimit.Window != DefaultRateWindow {
		t.Errorf("Expected window %v, got %v", DefaultRateWindow, cfg.RateLimit.Window)
	}

	if err := Validate(cfg); err != nil {
		t.Errorf("Expected default config to validate, got %v", err)
	}
}

// TestApplyDefaults_PathsUnderDataDir tests that store paths default into the
// configured data directory.
func TestApplyDefaults_PathsUnderDataDir(t *testing.T) {
	cfg := &Config{}
	cfg.Storage.DataDir = "/var/lib/callisto"
	ApplyDefaults(cfg)

	if cfg.Cache.Path != "/var/lib/callisto/cache.db" {
		t.Errorf("Unexpected cache path %s", cfg.Cache.Path)
	}
	if cfg.Budget.Path != "/var/lib/callisto/budget.db" {
		t.Errorf("Unexpected budget path %s", cfg.Budget.Path)
	}
	if cfg.RateLimit.Path != "/var/lib/callisto/rate_limits.db" {
		t.Errorf("Unexpected rate limit path %s", cfg.RateLimit.Path)
	}
}

// TestLoadConfig tests loading a partial file: set fields stick, the rest
// default.
func TestLoadConfig(t *testing.T) {
	path := writeConfigFile(t, `
storage:
  driver: mattn
  data_dir: /tmp/callisto-test
budget:
  daily_cap_usd: 12.50
rate_limit:
  requests: 30
telemetry:
  logging:
    level: debug
    format: text
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Storage.Driver != "mattn" {
		t.Errorf("Expected driver mattn, got %s", cfg.Storage.Driver)
	}
	if cfg.Budget.DailyCapUSD != 12.50 {
		t.Errorf("Expected cap 12.50, got %v", cfg.Budget.DailyCapUSD)
	}
	if cfg.RateLimit.Requests != 30 {
		t.Errorf("Expected 30 requests, got %d", cfg.RateLimit.Requests)
	}
	if cfg.Telemetry.Logging.Level != "debug" {
		t.Errorf("Expected level debug, got %s", cfg.Telemetry.Logging.Level)
	}

	// Unset fields fall back to defaults.
	if cfg.Cache.TTL != DefaultCacheTTL {
		t.Errorf("Expected default TTL, got %v", cfg.Cache.TTL)
	}
	if cfg.Cache.Path != "/tmp/callisto-test/cache.db" {
		t.Errorf("Expected cache path under data_dir, got %s", cfg.Cache.Path)
	}
}

// TestLoadConfig_MissingFile tests the error path for an absent file.
func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Error("Expected error for missing file")
	}
}

// TestLoadConfig_InvalidYAML tests the error path for malformed YAML.
func TestLoadConfig_InvalidYAML(t *testing.T) {
	path := writeConfigFile(t, "storage: [not: a: mapping")
	_, err := LoadConfig(path)
	if err == nil {
		t.Error("Expected error for malformed YAML")
	}
}

// TestLoadConfig_InvalidValues tests that validation rejects bad values and
// reports all of them at once.
func TestLoadConfig_InvalidValues(t *testing.T) {
	path := writeConfigFile(t, `
storage:
  driver: postgres
budget:
  daily_cap_usd: -3
telemetry:
  logging:
    level: loud
`)

	_, err := LoadConfig(path)
	if !errors.Is(err, ErrConfigInvalid) {
		t.Fatalf("Expected ErrConfigInvalid, got %v", err)
	}
	for _, want := range []string{"storage.driver", "daily_cap_usd", "logging.level"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("Expected validation message to mention %s: %v", want, err)
		}
	}
}

// TestEnvOverrides tests that CALLISTO_* variables beat file values.
func TestEnvOverrides(t *testing.T) {
	path := writeConfigFile(t, `
budget:
  daily_cap_usd: 5.00
rate_limit:
  requests: 10
`)

	t.Setenv("CALLISTO_BUDGET_DAILY_CAP_USD", "20.00")
	t.Setenv("CALLISTO_RATE_LIMIT_REQUESTS", "50")
	t.Setenv("CALLISTO_RATE_LIMIT_WINDOW", "30s")
	t.Setenv("CALLISTO_CACHE_TTL", "90m")
	t.Setenv("CALLISTO_STORAGE_DRIVER", "mattn")

	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		t.Fatalf("LoadConfigWithEnvOverrides failed: %v", err)
	}

	if cfg.Budget.DailyCapUSD != 20.00 {
		t.Errorf("Expected cap 20.00, got %v", cfg.Budget.DailyCapUSD)
	}
	if cfg.RateLimit.Requests != 50 {
		t.Errorf("Expected 50 requests, got %d", cfg.RateLimit.Requests)
	}
	if cfg.RateLimit.Window != 30*time.Second {
		t.Errorf("Expected window 30s, got %v", cfg.RateLimit.Window)
	}
	if cfg.Cache.TTL != 90*time.Minute {
		t.Errorf("Expected TTL 90m, got %v", cfg.Cache.TTL)
	}
	if cfg.Storage.Driver != "mattn" {
		t.Errorf("Expected driver mattn, got %s", cfg.Storage.Driver)
	}
}

// TestEnvOverrides_InvalidAfterOverride tests that overrides are validated.
func TestEnvOverrides_InvalidAfterOverride(t *testing.T) {
	path := writeConfigFile(t, "")

	t.Setenv("CALLISTO_STORAGE_DRIVER", "oracle")

	_, err := LoadConfigWithEnvOverrides(path)
	if !errors.Is(err, ErrConfigInvalid) {
		t.Errorf("Expected ErrConfigInvalid after bad override, got %v", err)
	}
}
