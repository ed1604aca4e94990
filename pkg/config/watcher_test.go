package config

import (
	"context"
	"os"
	"testing"
	"time"
)

// TestWatcher_ReloadOnChange tests that rewriting the file triggers one
// reload with the new values.
func TestWatcher_ReloadOnChange(t *testing.T) {
	path := writeConfigFile(t, "budget:\n  daily_cap_usd: 5.00\n")

	w, err := NewWatcher(path, nil)
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	reloaded := make(chan *Config, 1)
	done := make(chan error, 1)
	go func() {
		done <- w.Watch(ctx, func(cfg *Config) {
			select {
			case reloaded <- cfg:
			default:
			}
		})
	}()

	// Give the watcher time to register before writing.
	time.Sleep(200 * time.Millisecond)

	if err := os.WriteFile(path, []byte("budget:\n  daily_cap_usd: 9.00\n"), 0o644); err != nil {
		t.Fatalf("failed to rewrite config: %v", err)
	}

	select {
	case cfg := <-reloaded:
		if cfg.Budget.DailyCapUSD != 9.00 {
			t.Errorf("Expected reloaded cap 9.00, got %v", cfg.Budget.DailyCapUSD)
		}
	case <-ctx.Done():
		t.Fatal("Timed out waiting for reload")
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Watch returned error: %v", err)
	}
}

// TestWatcher_KeepsPreviousOnBadReload tests that a broken rewrite does not
// deliver a config.
func TestWatcher_KeepsPreviousOnBadReload(t *testing.T) {
	path := writeConfigFile(t, "budget:\n  daily_cap_usd: 5.00\n")

	w, err := NewWatcher(path, nil)
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloaded := make(chan *Config, 1)
	go w.Watch(ctx, func(cfg *Config) {
		select {
		case reloaded <- cfg:
		default:
		}
	})

	time.Sleep(200 * time.Millisecond)

	if err := os.WriteFile(path, []byte("storage: [broken"), 0o644); err != nil {
		t.Fatalf("failed to rewrite config: %v", err)
	}

	select {
	case <-reloaded:
		t.Error("Expected no reload for an invalid file")
	case <-time.After(500 * time.Millisecond):
	}
}
