package ratelimit

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"helix-hq/callisto/pkg/quota/storage"
)

const schema = `
CREATE TABLE IF NOT EXISTS rate_limit_requests (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	client_id TEXT NOT NULL,
	timestamp REAL NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_client_timestamp ON rate_limit_requests(client_id, timestamp);
CREATE TABLE IF NOT EXISTS rate_limit_clients (
	client_id TEXT PRIMARY KEY,
	last_seen REAL NOT NULL
);
`

// Config configures the limiter.
type Config struct {
	// Limit is the number of cost units admitted per window. Default: 10.
	Limit int

	// Window is the rolling window duration. Default: 60 seconds.
	Window time.Duration

	// CleanupInterval is the cadence for opportunistic cleanup of stale
	// rows. Default: 5 minutes.
	CleanupInterval time.Duration

	// Clock overrides the time source. Default: time.Now.
	Clock func() time.Time

	// Logger receives structured diagnostics. Default: slog.Default().
	Logger *slog.Logger
}

// Decision is the outcome of a limit check.
type Decision struct {
	// Allowed indicates the request was admitted.
	Allowed bool

	// RetryAfter is how long to wait before retrying, floored at one
	// second. Zero when Allowed.
	RetryAfter time.Duration
}

// Stats is a read-only quota projection for one client.
type Stats struct {
	// Used is the number of cost units consumed in the current window.
	Used int

	// Remaining is Limit minus Used, floored at zero.
	Remaining int

	// WindowReset is when the most recent in-window request exits the
	// window.
	WindowReset time.Time
}

// Limiter is a sliding-window, cost-weighted rate limiter over a single
// SQLite store.
type Limiter struct {
	store           *storage.Store
	limit           int
	window          time.Duration
	cleanupInterval time.Duration
	now             func() time.Time
	logger          *slog.Logger

	mu          sync.Mutex
	lastCleanup time.Time
}

// New creates a Limiter over an open store, ensuring its schema exists.
func New(store *storage.Store, cfg Config) (*Limiter, error) {
	if cfg.Limit <= 0 {
		cfg.Limit = 10
	}
	if cfg.Window <= 0 {
		cfg.Window = 60 * time.Second
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = 5 * time.Minute
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	if _, err := store.DB().Exec(schema); err != nil {
		return nil, fmt.Errorf("%w: init rate limit schema: %v", storage.ErrUnavailable, err)
	}

	return &Limiter{
		store:           store,
		limit:           cfg.Limit,
		window:          cfg.Window,
		cleanupInterval: cfg.CleanupInterval,
		now:             cfg.Clock,
		logger:          cfg.Logger.With("component", "quota.ratelimit"),
	}, nil
}

// Limit returns the configured per-window limit.
func (l *Limiter) Limit() int {
	return l.limit
}

// Window returns the configured window duration.
func (l *Limiter) Window() time.Duration {
	return l.window
}

// HashIdentifier derives the anonymized client ID stored on disk. One-way
// SHA-256; the raw identifier (IP, session ID) never reaches the store.
func HashIdentifier(identifier string) string {
	sum := sha256.Sum256([]byte(identifier))
	return fmt.Sprintf("%x", sum)
}

// Check decides whether to admit cost units for the client and, if admitted,
// records them. A cost below one counts as one.
//
// On storage failure the decision denies: rate limits are enforced
// server-side and must not be bypassable by inducing contention.
func (l *Limiter) Check(ctx context.Context, identifier string, cost int) (Decision, error) {
	if cost < 1 {
		cost = 1
	}
	clientID := HashIdentifier(identifier)
	now := l.now()

	l.maybeCleanup(ctx, now)

	windowStart := epochSeconds(now) - l.window.Seconds()

	var count int
	err := l.store.DB().QueryRowContext(ctx,
		`SELECT COUNT(*) FROM rate_limit_requests WHERE client_id = ? AND timestamp > ?`,
		clientID, windowStart,
	).Scan(&count)
	if err != nil {
		return Decision{}, storage.Classify(err)
	}

	if count+cost > l.limit {
		retryAfter, err := l.retryAfter(ctx, clientID, windowStart, now)
		if err != nil {
			return Decision{}, err
		}
		return Decision{Allowed: false, RetryAfter: retryAfter}, nil
	}

	if err := l.record(ctx, clientID, epochSeconds(now), cost); err != nil {
		return Decision{}, storage.Classify(err)
	}
	return Decision{Allowed: true}, nil
}

// retryAfter computes the wait until the oldest in-window request exits the
// window, floored at one second.
func (l *Limiter) retryAfter(ctx context.Context, clientID string, windowStart float64, now time.Time) (time.Duration, error) {
	var oldest sql.NullFloat64
	err := l.store.DB().QueryRowContext(ctx,
		`SELECT MIN(timestamp) FROM rate_limit_requests WHERE client_id = ? AND timestamp > ?`,
		clientID, windowStart,
	).Scan(&oldest)
	if err != nil {
		return 0, storage.Classify(err)
	}
	if !oldest.Valid {
		// Rejected purely on cost with no history in window.
		return l.window, nil
	}

	wait := time.Duration((oldest.Float64 + l.window.Seconds() - epochSeconds(now)) * float64(time.Second))
	wait = wait.Truncate(time.Second) + time.Second
	if wait < time.Second {
		wait = time.Second
	}
	return wait, nil
}

// record inserts one timestamp row per cost unit and upserts the client's
// last-seen time, all in one transaction.
func (l *Limiter) record(ctx context.Context, clientID string, ts float64, cost int) error {
	tx, err := l.store.DB().BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for i := 0; i < cost; i++ {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO rate_limit_requests (client_id, timestamp) VALUES (?, ?)`,
			clientID, ts); err != nil {
			return err
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO rate_limit_clients (client_id, last_seen) VALUES (?, ?)`,
		clientID, ts); err != nil {
		return err
	}

	return tx.Commit()
}

// maybeCleanup runs CleanupStale when the cleanup interval has elapsed since
// the previous run. Failures are logged, not surfaced: cleanup is
// opportunistic and never blocks an admission decision.
func (l *Limiter) maybeCleanup(ctx context.Context, now time.Time) {
	l.mu.Lock()
	due := now.Sub(l.lastCleanup) >= l.cleanupInterval
	if due {
		l.lastCleanup = now
	}
	l.mu.Unlock()

	if !due {
		return
	}
	if _, err := l.CleanupStale(ctx); err != nil {
		l.logger.Warn("opportunistic cleanup failed", "error", err)
	}
}

// CleanupStale deletes request rows older than twice the window and client
// rows with no remaining requests, returning the number of request rows
// removed.
func (l *Limiter) CleanupStale(ctx context.Context) (int, error) {
	cutoff := epochSeconds(l.now()) - 2*l.window.Seconds()

	result, err := l.store.DB().ExecContext(ctx,
		`DELETE FROM rate_limit_requests WHERE timestamp < ?`, cutoff)
	if err != nil {
		return 0, storage.Classify(err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}

	if _, err := l.store.DB().ExecContext(ctx,
		`DELETE FROM rate_limit_clients WHERE client_id NOT IN (
			SELECT DISTINCT client_id FROM rate_limit_requests
		)`); err != nil {
		return int(deleted), storage.Classify(err)
	}
	return int(deleted), nil
}

// Stats returns the client's current window usage for quota reporting.
func (l *Limiter) Stats(ctx context.Context, identifier string) (Stats, error) {
	clientID := HashIdentifier(identifier)
	now := l.now()
	windowStart := epochSeconds(now) - l.window.Seconds()

	var used int
	err := l.store.DB().QueryRowContext(ctx,
		`SELECT COUNT(*) FROM rate_limit_requests WHERE client_id = ? AND timestamp > ?`,
		clientID, windowStart,
	).Scan(&used)
	if err != nil {
		return Stats{}, storage.Classify(err)
	}

	var newest sql.NullFloat64
	err = l.store.DB().QueryRowContext(ctx,
		`SELECT MAX(timestamp) FROM rate_limit_requests WHERE client_id = ? AND timestamp > ?`,
		clientID, windowStart,
	).Scan(&newest)
	if err != nil {
		return Stats{}, storage.Classify(err)
	}

	reset := now.Add(l.window)
	if newest.Valid {
		reset = fromEpochSeconds(newest.Float64).Add(l.window)
	}

	remaining := l.limit - used
	if remaining < 0 {
		remaining = 0
	}

	return Stats{Used: used, Remaining: remaining, WindowReset: reset}, nil
}

// Reset clears all state for one client. Ops/testing utility.
func (l *Limiter) Reset(ctx context.Context, identifier string) error {
	clientID := HashIdentifier(identifier)
	if _, err := l.store.DB().ExecContext(ctx,
		`DELETE FROM rate_limit_requests WHERE client_id = ?`, clientID); err != nil {
		return storage.Classify(err)
	}
	if _, err := l.store.DB().ExecContext(ctx,
		`DELETE FROM rate_limit_clients WHERE client_id = ?`, clientID); err != nil {
		return storage.Classify(err)
	}
	return nil
}

// ResetAll clears all limiter state. Ops/testing utility.
func (l *Limiter) ResetAll(ctx context.Context) error {
	if _, err := l.store.DB().ExecContext(ctx, `DELETE FROM rate_limit_requests`); err != nil {
		return storage.Classify(err)
	}
	if _, err := l.store.DB().ExecContext(ctx, `DELETE FROM rate_limit_clients`); err != nil {
		return storage.Classify(err)
	}
	return nil
}

func epochSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}

func fromEpochSeconds(s float64) time.Time {
	return time.Unix(0, int64(s*float64(time.Second)))
}
