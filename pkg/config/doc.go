// Package config loads, defaults, and validates Callisto's configuration.
//
// Configuration is read from a YAML file, defaults are applied for anything
// unset, and CALLISTO_* environment variables override file values
// (e.g. CALLISTO_BUDGET_DAILY_CAP_USD, CALLISTO_RATE_LIMIT_REQUESTS).
//
// The Watcher reloads the file on change via fsnotify, with debouncing, so
// long-running processes pick up tuning changes without a restart.
package config
