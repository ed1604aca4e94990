package retention

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"helix-hq/callisto/pkg/quota/cache"
	"helix-hq/callisto/pkg/quota/ratelimit"
)

// Result reports what one sweep removed.
type Result struct {
	// CacheRemoved is the number of expired cache rows deleted.
	CacheRemoved int

	// RequestsRemoved is the number of stale rate-limit rows deleted.
	RequestsRemoved int
}

// Sweeper prunes the cache and rate limiter on a cron schedule.
type Sweeper struct {
	cache    *cache.Cache
	limiter  *ratelimit.Limiter
	schedule string
	cron     *cron.Cron
	logger   *slog.Logger

	mu      sync.Mutex
	running bool
}

// NewSweeper creates a sweeper with a standard 5-field cron schedule.
func NewSweeper(c *cache.Cache, l *ratelimit.Limiter, schedule string, logger *slog.Logger) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{
		cache:    c,
		limiter:  l,
		schedule: schedule,
		cron:     cron.New(),
		logger:   logger.With("component", "quota.retention"),
	}
}

// Start begins scheduled sweeping. An empty schedule disables the sweeper.
// The sweeper stops when ctx is cancelled or Stop is called.
func (s *Sweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.schedule == "" {
		s.logger.Info("sweep schedule not configured, skipping sweeper")
		return nil
	}

	if _, err := cron.ParseStandard(s.schedule); err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", s.schedule, err)
	}

	if _, err := s.cron.AddFunc(s.schedule, func() {
		s.runSweep(ctx)
	}); err != nil {
		return fmt.Errorf("failed to schedule sweep: %w", err)
	}

	s.cron.Start()
	s.running = true
	s.logger.Info("retention sweeper started", "schedule", s.schedule)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return nil
}

// runSweep executes one scheduled sweep, tagging log lines with a run ID.
func (s *Sweeper) runSweep(ctx context.Context) {
	sweepID := uuid.NewString()
	logger := s.logger.With("sweep_id", sweepID)

	result, err := s.RunOnce(ctx)
	if err != nil {
		logger.Error("sweep failed", "error", err)
		return
	}

	if result.CacheRemoved > 0 || result.RequestsRemoved > 0 {
		logger.Info("sweep completed",
			"cache_removed", result.CacheRemoved,
			"requests_removed", result.RequestsRemoved,
		)
	} else {
		logger.Debug("sweep completed, nothing to remove")
	}
}

// RunOnce performs a single sweep immediately. Also used by the CLI.
func (s *Sweeper) RunOnce(ctx context.Context) (Result, error) {
	var result Result

	removed, err := s.cache.CleanupExpired(ctx)
	if err != nil {
		return result, fmt.Errorf("cache sweep: %w", err)
	}
	result.CacheRemoved = removed

	pruned, err := s.limiter.CleanupStale(ctx)
	if err != nil {
		return result, fmt.Errorf("rate limit sweep: %w", err)
	}
	result.RequestsRemoved = pruned

	return result, nil
}

// Stop stops the scheduler and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron != nil && s.running {
		ctx := s.cron.Stop()
		<-ctx.Done()
		s.running = false
		s.logger.Info("retention sweeper stopped")
	}
}

// IsRunning reports whether the scheduler is active.
func (s *Sweeper) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// NextRun returns the next scheduled sweep time, nil when not running.
func (s *Sweeper) NextRun() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.cron.Entries()
	if len(entries) == 0 {
		return nil
	}
	next := entries[0].Next
	return &next
}
