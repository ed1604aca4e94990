package storage

import (
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"
)

// TestOpen_CreatesFileAndParents tests that Open creates missing parent
// directories and produces a usable handle.
func TestOpen_CreatesFileAndParents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "quota.db")

	store, err := Open(Config{Path: path})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer store.Close()

	if store.Path() != path {
		t.Errorf("Expected path %s, got %s", path, store.Path())
	}

	// The handle must be immediately usable.
	if _, err := store.DB().Exec(`CREATE TABLE t (id INTEGER PRIMARY KEY)`); err != nil {
		t.Fatalf("Exec on fresh store failed: %v", err)
	}
}

// TestOpen_EmptyPath tests that an empty path is rejected as unavailable.
func TestOpen_EmptyPath(t *testing.T) {
	_, err := Open(Config{})
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("Expected ErrUnavailable, got %v", err)
	}
}

// TestOpen_UnknownDriver tests the driver name validation.
func TestOpen_UnknownDriver(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quota.db")

	_, err := Open(Config{Path: path, Driver: "postgres"})
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("Expected ErrUnavailable for unknown driver, got %v", err)
	}
}

// TestOpen_BadPath tests that an unwritable location surfaces ErrUnavailable
// at open time, not on first query.
func TestOpen_BadPath(t *testing.T) {
	// /proc is not writable; directory creation underneath it must fail.
	_, err := Open(Config{Path: "/proc/callisto-test/quota.db"})
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("Expected ErrUnavailable for unwritable path, got %v", err)
	}
}

// TestOpen_MattnDriver tests that the cgo driver name is accepted.
func TestOpen_MattnDriver(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quota.db")

	store, err := Open(Config{Path: path, Driver: DriverMattn, BusyTimeout: time.Second})
	if err != nil {
		t.Fatalf("Open with mattn driver failed: %v", err)
	}
	defer store.Close()

	if _, err := store.DB().Exec(`CREATE TABLE t (id INTEGER PRIMARY KEY)`); err != nil {
		t.Fatalf("Exec failed: %v", err)
	}
}

// TestBuildDSN tests the per-driver DSN shapes.
func TestBuildDSN(t *testing.T) {
	cfg := Config{Path: "/tmp/q.db", Driver: DriverModernc, BusyTimeout: 10 * time.Second}
	name, dsn, err := buildDSN(cfg)
	if err != nil {
		t.Fatalf("buildDSN failed: %v", err)
	}
	if name != "sqlite" {
		t.Errorf("Expected driver name sqlite, got %s", name)
	}
	want := "file:/tmp/q.db?_pragma=busy_timeout(10000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	if dsn != want {
		t.Errorf("Expected DSN %s, got %s", want, dsn)
	}

	cfg.Driver = DriverMattn
	name, dsn, err = buildDSN(cfg)
	if err != nil {
		t.Fatalf("buildDSN failed: %v", err)
	}
	if name != "sqlite3" {
		t.Errorf("Expected driver name sqlite3, got %s", name)
	}
	want = "file:/tmp/q.db?_journal_mode=WAL&_busy_timeout=10000&_synchronous=NORMAL"
	if dsn != want {
		t.Errorf("Expected DSN %s, got %s", want, dsn)
	}
}

// TestIsBusy tests lock-contention error detection.
func TestIsBusy(t *testing.T) {
	cases := []struct {
		err  error
		busy bool
	}{
		{nil, false},
		{errors.New("database is locked (5) (SQLITE_BUSY)"), true},
		{errors.New("database table is locked"), true},
		{fmt.Errorf("exec: %w", ErrBusy), true},
		{errors.New("no such table: quota"), false},
	}

	for _, tc := range cases {
		if got := IsBusy(tc.err); got != tc.busy {
			t.Errorf("IsBusy(%v) = %v, want %v", tc.err, got, tc.busy)
		}
	}
}

// TestClassify tests that busy errors are wrapped so errors.Is works, and
// other errors pass through unchanged.
func TestClassify(t *testing.T) {
	busy := errors.New("database is locked")
	if !errors.Is(Classify(busy), ErrBusy) {
		t.Error("Expected classified busy error to match ErrBusy")
	}

	other := errors.New("disk I/O error")
	if Classify(other) != other {
		t.Error("Expected non-busy error to pass through unchanged")
	}

	if Classify(nil) != nil {
		t.Error("Expected nil to classify as nil")
	}
}

// TestClose_Idempotent tests that Close tolerates a nil database.
func TestClose_Idempotent(t *testing.T) {
	var s Store
	if err := s.Close(); err != nil {
		t.Errorf("Close on zero Store failed: %v", err)
	}
}
