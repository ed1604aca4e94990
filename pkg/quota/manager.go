package quota

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"helix-hq/callisto/pkg/quota/budget"
	"helix-hq/callisto/pkg/quota/cache"
	"helix-hq/callisto/pkg/quota/ratelimit"
	"helix-hq/callisto/pkg/quota/storage"
)

// Config contains everything needed to construct a Manager.
// Zero values fall back to the per-store defaults.
type Config struct {
	// Driver selects the SQLite driver for all three stores
	// (storage.DriverModernc or storage.DriverMattn).
	Driver string

	// BusyTimeout bounds lock waits on all three stores.
	BusyTimeout time.Duration

	// MaxConns bounds each store's connection pool.
	MaxConns int

	// CachePath is the response cache store file.
	CachePath string

	// CacheTTL is the fixed entry time-to-live.
	CacheTTL time.Duration

	// BudgetPath is the spend ledger store file.
	BudgetPath string

	// DailyCapUSD is the ledger's daily spending cap.
	DailyCapUSD float64

	// RateLimitPath is the rate limiter store file.
	RateLimitPath string

	// RateLimit is the admitted cost units per window.
	RateLimit int

	// RateLimitWindow is the rolling window duration.
	RateLimitWindow time.Duration

	// RateLimitCleanupInterval is the opportunistic cleanup cadence.
	RateLimitCleanupInterval time.Duration

	// Clock overrides the time source for all stores. Default: time.Now.
	Clock func() time.Time

	// Logger receives structured diagnostics. Default: slog.Default().
	Logger *slog.Logger

	// Metrics receives Prometheus updates when non-nil.
	Metrics *Metrics
}

// Snapshot aggregates the layer's current state for ops reporting.
type Snapshot struct {
	// CacheEntries is the number of cache rows, expired or not.
	CacheEntries int

	// CacheHits and CacheMisses are process-lifetime counters.
	CacheHits   int64
	CacheMisses int64

	// SpentTodayUSD is today's accumulated spend.
	SpentTodayUSD float64

	// DailyCapUSD is the configured cap.
	DailyCapUSD float64
}

// Manager owns the three stores with an explicit open/close lifecycle and
// implements the admission/lookup/commit request flow on top of them.
type Manager struct {
	cache   *cache.Cache
	ledger  *budget.Ledger
	limiter *ratelimit.Limiter

	stores  []*storage.Store
	logger  *slog.Logger
	metrics *Metrics
}

// NewManager opens the three store files and constructs their components.
// Any open failure closes what was already opened and is returned wrapped in
// storage.ErrUnavailable.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	m := &Manager{
		logger:  cfg.Logger.With("component", "quota.manager"),
		metrics: cfg.Metrics,
	}

	open := func(path string) (*storage.Store, error) {
		st, err := storage.Open(storage.Config{
			Path:        path,
			Driver:      cfg.Driver,
			BusyTimeout: cfg.BusyTimeout,
			MaxConns:    cfg.MaxConns,
		})
		if err != nil {
			return nil, err
		}
		m.stores = append(m.stores, st)
		return st, nil
	}

	cacheStore, err := open(cfg.CachePath)
	if err != nil {
		return nil, fmt.Errorf("open cache store: %w", err)
	}
	m.cache, err = cache.New(cacheStore, cache.Config{
		TTL:    cfg.CacheTTL,
		Clock:  cfg.Clock,
		Logger: cfg.Logger,
	})
	if err != nil {
		m.Close()
		return nil, err
	}

	budgetStore, err := open(cfg.BudgetPath)
	if err != nil {
		m.Close()
		return nil, fmt.Errorf("open ledger store: %w", err)
	}
	m.ledger, err = budget.New(budgetStore, budget.Config{
		DailyCapUSD: cfg.DailyCapUSD,
		Clock:       cfg.Clock,
		Logger:      cfg.Logger,
	})
	if err != nil {
		m.Close()
		return nil, err
	}

	limitStore, err := open(cfg.RateLimitPath)
	if err != nil {
		m.Close()
		return nil, fmt.Errorf("open rate limit store: %w", err)
	}
	m.limiter, err = ratelimit.New(limitStore, ratelimit.Config{
		Limit:           cfg.RateLimit,
		Window:          cfg.RateLimitWindow,
		CleanupInterval: cfg.RateLimitCleanupInterval,
		Clock:           cfg.Clock,
		Logger:          cfg.Logger,
	})
	if err != nil {
		m.Close()
		return nil, err
	}

	m.logger.Info("quota stores opened",
		"cache", cfg.CachePath,
		"ledger", cfg.BudgetPath,
		"rate_limit", cfg.RateLimitPath,
	)
	return m, nil
}

// Cache returns the response cache.
func (m *Manager) Cache() *cache.Cache { return m.cache }

// Ledger returns the spend ledger.
func (m *Manager) Ledger() *budget.Ledger { return m.ledger }

// Limiter returns the rate limiter.
func (m *Manager) Limiter() *ratelimit.Limiter { return m.limiter }

// Admit asks the rate limiter whether the client may proceed. Storage
// failures deny the request (fail closed) and are returned alongside the
// decision.
func (m *Manager) Admit(ctx context.Context, clientIdentifier string, cost int) (ratelimit.Decision, error) {
	start := time.Now()
	decision, err := m.limiter.Check(ctx, clientIdentifier, cost)
	m.observe("rate_limit_check", start)

	switch {
	case err != nil:
		m.countRateLimit("error")
		m.logger.Warn("rate limit check failed, denying",
			"client", ratelimit.HashIdentifier(clientIdentifier)[:12],
			"error", err,
		)
		return ratelimit.Decision{Allowed: false, RetryAfter: time.Second}, err
	case decision.Allowed:
		m.countRateLimit("allowed")
	default:
		m.countRateLimit("denied")
	}
	return decision, nil
}

// Lookup consults the response cache. Busy errors degrade to a miss (fail
// open: the caller recomputes); other storage errors are surfaced.
func (m *Manager) Lookup(ctx context.Context, key string) (*cache.Entry, error) {
	start := time.Now()
	entry, err := m.cache.Get(ctx, key)
	m.observe("cache_get", start)

	if err != nil {
		if storage.IsBusy(err) {
			m.countCache("error")
			m.logger.Warn("cache busy, treating as miss", "error", err)
			return nil, nil
		}
		m.countCache("error")
		return nil, err
	}
	if entry == nil {
		m.countCache("miss")
		return nil, nil
	}
	m.countCache("hit")
	return entry, nil
}

// WouldExceed checks the daily cap before paying for expensive work.
// Storage failures refuse the spend (fail closed) to avoid under-counting
// real cost.
func (m *Manager) WouldExceed(ctx context.Context, estimatedUSD float64) (bool, error) {
	exceeded, err := m.ledger.WouldExceed(ctx, estimatedUSD)
	if err != nil {
		m.logger.Warn("budget check failed, refusing spend", "error", err)
		return true, err
	}
	if exceeded && m.metrics != nil {
		m.metrics.RecordSpendDenial()
	}
	return exceeded, nil
}

// Commit records the actual cost in the ledger and stores the computed
// result in the cache. The spend is recorded first and its failure is
// surfaced; a cache write failure is logged only, since the cached result is
// not required for correctness.
func (m *Manager) Commit(ctx context.Context, key string, entry *cache.Entry) error {
	start := time.Now()
	if err := m.ledger.AddSpend(ctx, entry.CostUSD); err != nil {
		m.observe("ledger_add", start)
		return fmt.Errorf("record spend: %w", err)
	}
	m.observe("ledger_add", start)
	if m.metrics != nil {
		m.metrics.RecordSpend(entry.CostUSD)
	}

	if err := m.cache.Set(ctx, key, entry); err != nil {
		m.logger.Warn("cache write failed, result not cached", "error", err)
	}
	return nil
}

// Snapshot aggregates current state for the CLI stats surface.
func (m *Manager) Snapshot(ctx context.Context) (Snapshot, error) {
	entries, err := m.cache.Len(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	spent, err := m.ledger.SpentToday(ctx)
	if err != nil {
		return Snapshot{}, err
	}

	if m.metrics != nil {
		m.metrics.SetCacheEntries(float64(entries))
		m.metrics.SetSpentToday(spent)
	}

	stats := m.cache.Stats()
	return Snapshot{
		CacheEntries:  entries,
		CacheHits:     stats.Hits,
		CacheMisses:   stats.Misses,
		SpentTodayUSD: spent,
		DailyCapUSD:   m.ledger.DailyCap(),
	}, nil
}

// Close releases all three stores. Safe on a partially constructed Manager.
func (m *Manager) Close() error {
	var firstErr error
	for _, st := range m.stores {
		if err := st.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	m.stores = nil
	return firstErr
}

func (m *Manager) observe(op string, start time.Time) {
	if m.metrics != nil {
		m.metrics.RecordOpDuration(op, time.Since(start).Seconds())
	}
}

func (m *Manager) countCache(result string) {
	if m.metrics != nil {
		m.metrics.RecordCacheLookup(result)
	}
}

func (m *Manager) countRateLimit(result string) {
	if m.metrics != nil {
		m.metrics.RecordRateLimitCheck(result)
	}
}
