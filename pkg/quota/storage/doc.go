// Package storage opens and configures the embedded SQLite files that back
// the quota layer's stores.
//
// # Overview
//
// Each store (response cache, spend ledger, rate limiter) is a single SQLite
// file. Open creates the file and its parent directories on first use,
// switches the journal to write-ahead logging so readers proceed concurrently
// with the single writer, relaxes synchronous mode to NORMAL, and applies a
// bounded busy timeout for lock contention. Schema creation is left to the
// owning store, which runs idempotent CREATE IF NOT EXISTS statements against
// the returned handle.
//
// # Drivers
//
// Two drivers are supported and selected by Config.Driver:
//
//   - "modernc" (default): modernc.org/sqlite, pure Go, no cgo
//   - "mattn": github.com/mattn/go-sqlite3, cgo
//
// The two drivers take different DSN syntax for pragmas, which Open hides.
//
// # Errors
//
// ErrUnavailable is fatal: the file could not be created or opened
// (permissions, disk full). ErrBusy is transient: a write could not acquire
// the lock within the busy timeout. Callers decide their own busy policy;
// see the cache, budget, and ratelimit packages.
package storage
