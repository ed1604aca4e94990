package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3" // cgo SQLite driver, registers "sqlite3"
	_ "modernc.org/sqlite"          // pure-Go SQLite driver, registers "sqlite"
)

// Driver names accepted by Config.Driver.
const (
	DriverModernc = "modernc"
	DriverMattn   = "mattn"
)

// Sentinel errors for the storage taxonomy.
var (
	// ErrUnavailable means the store file could not be created or opened.
	// This is fatal at first use and must be surfaced, never swallowed.
	ErrUnavailable = errors.New("storage unavailable")

	// ErrBusy means a write could not acquire the database lock within the
	// busy timeout. Transient; callers choose to retry, fail open, or fail
	// closed.
	ErrBusy = errors.New("storage busy")
)

// Config configures a single store file.
type Config struct {
	// Path is the SQLite file path. Parent directories are created.
	Path string

	// Driver selects the SQLite driver ("modernc" or "mattn").
	// Default: "modernc".
	Driver string

	// BusyTimeout bounds how long a write waits for the lock.
	// Default: 10 seconds.
	BusyTimeout time.Duration

	// MaxConns bounds the connection pool. Default: 1 (single writer;
	// WAL readers do not need additional connections for this workload).
	MaxConns int
}

// Store is an open handle to one SQLite-backed store file.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens (creating if needed) the store file described by cfg.
// Failures are wrapped in ErrUnavailable.
func Open(cfg Config) (*Store, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("%w: empty store path", ErrUnavailable)
	}
	if cfg.Driver == "" {
		cfg.Driver = DriverModernc
	}
	if cfg.BusyTimeout <= 0 {
		cfg.BusyTimeout = 10 * time.Second
	}
	if cfg.MaxConns <= 0 {
		cfg.MaxConns = 1
	}

	if dir := filepath.Dir(cfg.Path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("%w: create parent directory %q: %v", ErrUnavailable, dir, err)
		}
	}

	driverName, dsn, err := buildDSN(cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: open %q: %v", ErrUnavailable, cfg.Path, err)
	}

	db.SetMaxOpenConns(cfg.MaxConns)
	db.SetMaxIdleConns(cfg.MaxConns)
	db.SetConnMaxLifetime(0)

	// sql.Open is lazy; force the file to be created and the pragmas applied
	// so permission and disk errors surface here, not on first query.
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: open %q: %v", ErrUnavailable, cfg.Path, err)
	}

	return &Store{db: db, path: cfg.Path}, nil
}

// buildDSN assembles the driver-specific DSN carrying the WAL, synchronous,
// and busy-timeout settings.
func buildDSN(cfg Config) (driverName, dsn string, err error) {
	timeoutMS := int(cfg.BusyTimeout.Milliseconds())

	switch cfg.Driver {
	case DriverModernc:
		return "sqlite", fmt.Sprintf(
			"file:%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)",
			cfg.Path, timeoutMS), nil
	case DriverMattn:
		return "sqlite3", fmt.Sprintf(
			"file:%s?_journal_mode=WAL&_busy_timeout=%d&_synchronous=NORMAL",
			cfg.Path, timeoutMS), nil
	default:
		return "", "", fmt.Errorf("unknown sqlite driver %q", cfg.Driver)
	}
}

// DB returns the underlying database handle for the owning store's queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Path returns the store's file path.
func (s *Store) Path() string {
	return s.path
}

// Close checkpoints the WAL and closes the database.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	return s.db.Close()
}

// Classify maps driver errors onto the storage taxonomy. Lock-timeout errors
// are wrapped in ErrBusy so callers can test with errors.Is; other errors are
// returned unchanged.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	if IsBusy(err) && !errors.Is(err, ErrBusy) {
		return fmt.Errorf("%w: %v", ErrBusy, err)
	}
	return err
}

// IsBusy reports whether err is a SQLite lock-contention error.
//
// Both drivers surface SQLITE_BUSY/SQLITE_LOCKED as opaque error strings
// through database/sql, so this matches on the stable message fragments
// rather than importing driver-specific error types.
func IsBusy(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrBusy) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") ||
		strings.Contains(msg, "SQLITE_LOCKED") ||
		strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database table is locked")
}
