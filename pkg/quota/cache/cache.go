package cache

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync/atomic"
	"time"

	"helix-hq/callisto/pkg/quota/storage"
)

const schema = `
CREATE TABLE IF NOT EXISTS cache_entries (
	key TEXT PRIMARY KEY,
	created_at REAL NOT NULL,
	data TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_cache_created_at ON cache_entries(created_at);
`

// Entry is a cached response payload.
//
// CreatedAt is wall-clock epoch seconds, matching the created_at column so
// that TTL math works directly on the stored value.
type Entry struct {
	CreatedAt float64        `json:"created_at"`
	Model     string         `json:"model"`
	Text      string         `json:"text"`
	Usage     map[string]int `json:"usage"`
	CostUSD   float64        `json:"cost_usd"`
}

// Config configures the cache.
type Config struct {
	// TTL is the fixed time-to-live for all entries. Default: 6 hours.
	TTL time.Duration

	// Clock overrides the time source. Default: time.Now. Tests inject a
	// fake clock for deterministic TTL behavior.
	Clock func() time.Time

	// Logger receives structured diagnostics. Default: slog.Default().
	Logger *slog.Logger
}

// Stats is a point-in-time counter snapshot.
type Stats struct {
	Hits   int64
	Misses int64
}

// Cache is a TTL response cache over a single SQLite store.
type Cache struct {
	store  *storage.Store
	ttl    time.Duration
	now    func() time.Time
	logger *slog.Logger

	hits   atomic.Int64
	misses atomic.Int64
}

// New creates a Cache over an open store, ensuring its schema exists.
func New(store *storage.Store, cfg Config) (*Cache, error) {
	if cfg.TTL <= 0 {
		cfg.TTL = 6 * time.Hour
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	if _, err := store.DB().Exec(schema); err != nil {
		return nil, fmt.Errorf("%w: init cache schema: %v", storage.ErrUnavailable, err)
	}

	return &Cache{
		store:  store,
		ttl:    cfg.TTL,
		now:    cfg.Clock,
		logger: cfg.Logger.With("component", "quota.cache"),
	}, nil
}

// TTL returns the fixed entry time-to-live.
func (c *Cache) TTL() time.Duration {
	return c.ttl
}

// Get looks up an entry by key, enforcing the TTL.
//
// Returns (nil, nil) on a miss: the key is absent, the entry has expired
// (the row is deleted before returning), or the stored payload failed to
// deserialize. A non-nil error is a storage failure; busy errors satisfy
// errors.Is(err, storage.ErrBusy).
func (c *Cache) Get(ctx context.Context, key string) (*Entry, error) {
	var (
		data      string
		createdAt float64
	)
	err := c.store.DB().QueryRowContext(ctx,
		`SELECT data, created_at FROM cache_entries WHERE key = ?`, key,
	).Scan(&data, &createdAt)
	if err == sql.ErrNoRows {
		c.misses.Add(1)
		return nil, nil
	}
	if err != nil {
		return nil, storage.Classify(err)
	}

	now := epochSeconds(c.now())
	if now-createdAt > c.ttl.Seconds() {
		if _, err := c.store.DB().ExecContext(ctx,
			`DELETE FROM cache_entries WHERE key = ?`, key); err != nil {
			c.logger.Warn("failed to delete expired entry", "error", err)
		}
		c.misses.Add(1)
		return nil, nil
	}

	var entry Entry
	if err := json.Unmarshal([]byte(data), &entry); err != nil {
		// Corruption degrades to a miss. Remove the row so the next write
		// starts clean.
		c.logger.Warn("corrupt cache payload, treating as miss", "error", err)
		if _, err := c.store.DB().ExecContext(ctx,
			`DELETE FROM cache_entries WHERE key = ?`, key); err != nil {
			c.logger.Warn("failed to delete corrupt entry", "error", err)
		}
		c.misses.Add(1)
		return nil, nil
	}

	c.hits.Add(1)
	return &entry, nil
}

// Set upserts an entry by key. Last writer wins; there is no merge.
// An Entry with zero CreatedAt is stamped with the current clock.
func (c *Cache) Set(ctx context.Context, key string, entry *Entry) error {
	if entry == nil {
		return fmt.Errorf("entry cannot be nil")
	}
	if entry.CreatedAt == 0 {
		entry.CreatedAt = epochSeconds(c.now())
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal cache entry: %w", err)
	}

	_, err = c.store.DB().ExecContext(ctx,
		`INSERT OR REPLACE INTO cache_entries (key, created_at, data) VALUES (?, ?, ?)`,
		key, entry.CreatedAt, string(data))
	if err != nil {
		return storage.Classify(err)
	}
	return nil
}

// CleanupExpired deletes all rows past the TTL in one statement and returns
// the number removed.
func (c *Cache) CleanupExpired(ctx context.Context) (int, error) {
	cutoff := epochSeconds(c.now()) - c.ttl.Seconds()
	result, err := c.store.DB().ExecContext(ctx,
		`DELETE FROM cache_entries WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, storage.Classify(err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(deleted), nil
}

// Clear wipes all entries unconditionally.
func (c *Cache) Clear(ctx context.Context) error {
	if _, err := c.store.DB().ExecContext(ctx, `DELETE FROM cache_entries`); err != nil {
		return storage.Classify(err)
	}
	return nil
}

// Len returns the number of rows currently stored, expired or not.
func (c *Cache) Len(ctx context.Context) (int, error) {
	var n int
	err := c.store.DB().QueryRowContext(ctx, `SELECT COUNT(*) FROM cache_entries`).Scan(&n)
	if err != nil {
		return 0, storage.Classify(err)
	}
	return n, nil
}

// Stats returns the hit/miss counters accumulated since construction.
func (c *Cache) Stats() Stats {
	return Stats{Hits: c.hits.Load(), Misses: c.misses.Load()}
}

var whitespaceRE = regexp.MustCompile(`\s+`)

// Key derives a cache key from the request parameters the consumer contract
// names: the model identifier, the query, and the ordered candidate IDs.
// The query is case- and whitespace-normalized so trivially different
// spellings share an entry. The result is a SHA-256 hex digest, so no raw
// query text lands in the store's key column.
func Key(model, query string, candidateIDs []string) string {
	normalized := whitespaceRE.ReplaceAllString(strings.ToLower(strings.TrimSpace(query)), " ")

	ids := make([]string, 0, len(candidateIDs))
	for _, id := range candidateIDs {
		if id != "" {
			ids = append(ids, id)
		}
	}

	sum := sha256.Sum256([]byte(model + "\n" + normalized + "\n" + strings.Join(ids, ",")))
	return fmt.Sprintf("%x", sum)
}

// epochSeconds converts a time to float epoch seconds, the created_at unit.
func epochSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}
