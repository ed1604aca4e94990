package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads the configuration file when it changes on disk.
// Rapid successive events (editors write-then-rename) are debounced so each
// edit triggers one reload.
type Watcher struct {
	path     string
	debounce time.Duration
	logger   *slog.Logger
	watcher  *fsnotify.Watcher

	mu      sync.Mutex
	running bool
	timer   *time.Timer
}

// NewWatcher creates a watcher for the config file at path.
func NewWatcher(path string, logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &Watcher{
		path:     path,
		debounce: 100 * time.Millisecond,
		logger:   logger.With("component", "config.watcher"),
		watcher:  fsw,
	}, nil
}

// Watch blocks, invoking onReload with the freshly loaded configuration each
// time the file changes, until ctx is cancelled. A file that fails to load
// or validate after a change is logged and skipped; the previous
// configuration stays in effect.
//
// The parent directory is watched rather than the file itself so atomic
// replace (write temp file, rename over) keeps working.
func (w *Watcher) Watch(ctx context.Context, onReload func(*Config)) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("watcher already running")
	}
	w.running = true
	w.mu.Unlock()

	dir := filepath.Dir(w.path)
	if err := w.watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %q: %w", dir, err)
	}

	w.logger.Info("config watcher started", "path", w.path)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("config watcher stopped")
			return w.watcher.Close()

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if !w.shouldProcessEvent(event) {
				continue
			}
			w.scheduleReload(onReload)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("config watcher error", "error", err)
		}
	}
}

// shouldProcessEvent filters events down to content changes of the watched
// file.
func (w *Watcher) shouldProcessEvent(event fsnotify.Event) bool {
	if event.Op&fsnotify.Chmod == fsnotify.Chmod {
		return false
	}
	return filepath.Clean(event.Name) == filepath.Clean(w.path)
}

// scheduleReload arms (or re-arms) the debounce timer.
func (w *Watcher) scheduleReload(onReload func(*Config)) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		cfg, err := LoadConfigWithEnvOverrides(w.path)
		if err != nil {
			w.logger.Warn("config reload failed, keeping previous configuration", "error", err)
			return
		}
		w.logger.Info("configuration reloaded", "path", w.path)
		onReload(cfg)
	})
}
