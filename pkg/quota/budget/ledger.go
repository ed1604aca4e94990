package budget

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"helix-hq/callisto/pkg/quota/storage"
)

const schema = `
CREATE TABLE IF NOT EXISTS daily_spends (
	date TEXT PRIMARY KEY,
	amount_usd REAL NOT NULL
);
`

// ErrNegativeAmount is returned when a caller passes a negative USD amount.
var ErrNegativeAmount = errors.New("amount must be non-negative")

// Config configures the ledger.
type Config struct {
	// DailyCapUSD is the daily spending cap. Default: 5.00.
	DailyCapUSD float64

	// Clock overrides the time source used to derive "today" (local wall
	// clock, not UTC). Default: time.Now.
	Clock func() time.Time

	// Logger receives structured diagnostics. Default: slog.Default().
	Logger *slog.Logger
}

// Ledger tracks cumulative daily spend against a cap.
type Ledger struct {
	store  *storage.Store
	cap    float64
	now    func() time.Time
	logger *slog.Logger
}

// New creates a Ledger over an open store, ensuring its schema exists.
func New(store *storage.Store, cfg Config) (*Ledger, error) {
	if cfg.DailyCapUSD == 0 {
		cfg.DailyCapUSD = 5.00
	}
	if cfg.DailyCapUSD < 0 {
		return nil, fmt.Errorf("daily cap cannot be negative: %v", cfg.DailyCapUSD)
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	if _, err := store.DB().Exec(schema); err != nil {
		return nil, fmt.Errorf("%w: init ledger schema: %v", storage.ErrUnavailable, err)
	}

	return &Ledger{
		store:  store,
		cap:    cfg.DailyCapUSD,
		now:    cfg.Clock,
		logger: cfg.Logger.With("component", "quota.budget"),
	}, nil
}

// DailyCap returns the configured cap in USD.
func (l *Ledger) DailyCap() float64 {
	return l.cap
}

// SpentToday returns today's accumulated spend, 0 if no row exists yet.
func (l *Ledger) SpentToday(ctx context.Context) (float64, error) {
	var amount float64
	err := l.store.DB().QueryRowContext(ctx,
		`SELECT amount_usd FROM daily_spends WHERE date = ?`, l.todayKey(),
	).Scan(&amount)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, storage.Classify(err)
	}
	return amount, nil
}

// WouldExceed reports whether spending an additional amount would cross the
// daily cap. It is a pure read; pairing it with AddSpend is check-then-act
// with an accepted race window.
func (l *Ledger) WouldExceed(ctx context.Context, additionalUSD float64) (bool, error) {
	if additionalUSD < 0 {
		return false, ErrNegativeAmount
	}
	spent, err := l.SpentToday(ctx)
	if err != nil {
		return false, err
	}
	return spent+additionalUSD > l.cap, nil
}

// AddSpend atomically adds amount to today's accumulator, inserting the row
// if this is the first spend of the day. The increment happens inside a
// single upsert statement, so no concurrent caller can lose an update.
func (l *Ledger) AddSpend(ctx context.Context, amountUSD float64) error {
	if amountUSD < 0 {
		return ErrNegativeAmount
	}
	_, err := l.store.DB().ExecContext(ctx,
		`INSERT INTO daily_spends (date, amount_usd) VALUES (?, ?)
		 ON CONFLICT (date) DO UPDATE SET amount_usd = amount_usd + excluded.amount_usd`,
		l.todayKey(), amountUSD)
	if err != nil {
		return storage.Classify(err)
	}
	return nil
}

// ClearToday deletes today's row. Ops/testing utility.
func (l *Ledger) ClearToday(ctx context.Context) error {
	if _, err := l.store.DB().ExecContext(ctx,
		`DELETE FROM daily_spends WHERE date = ?`, l.todayKey()); err != nil {
		return storage.Classify(err)
	}
	return nil
}

// AllSpends returns every recorded day mapped to its USD amount.
func (l *Ledger) AllSpends(ctx context.Context) (map[string]float64, error) {
	rows, err := l.store.DB().QueryContext(ctx,
		`SELECT date, amount_usd FROM daily_spends`)
	if err != nil {
		return nil, storage.Classify(err)
	}
	defer rows.Close()

	spends := make(map[string]float64)
	for rows.Next() {
		var (
			day    string
			amount float64
		)
		if err := rows.Scan(&day, &amount); err != nil {
			return nil, err
		}
		spends[day] = amount
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return spends, nil
}

// todayKey derives the ledger key from the local wall clock.
func (l *Ledger) todayKey() string {
	return l.now().Format("2006-01-02")
}
