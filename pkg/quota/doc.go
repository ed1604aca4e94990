// Package quota composes the persistent quota/cache layer: a TTL response
// cache, a daily spend ledger, and a sliding-window rate limiter, each backed
// by its own single-file SQLite store.
//
// # Architecture
//
// The package is organized into sub-packages:
//
//   - storage: opens and configures the embedded SQLite store files
//   - cache: response cache with lazy TTL expiry
//   - budget: daily spend ledger with atomic accumulation
//   - ratelimit: cost-weighted sliding-window admission control
//   - retention: cron-scheduled cleanup sweeper
//
// The Manager owns one instance of each store with an explicit
// construct-at-startup / close-at-shutdown lifecycle, and implements the
// request flow: ask the limiter whether to proceed, consult the cache, check
// the ledger before paying for expensive work, then record the result and
// the spend.
//
// # Consistency
//
// Each store is independently consistent; there is no joint transaction
// across the three files. A caller that records a spend but crashes before
// caching the result simply recomputes later. Within one store, writes are
// serialized by SQLite itself (single writer, WAL readers), so concurrent
// ledger increments are never lost.
//
// # Failure policy
//
// storage.ErrUnavailable is fatal at startup. storage.ErrBusy is transient
// and handled per store: the cache fails open (a busy read is a miss), the
// ledger and the limiter fail closed (refuse to spend, deny the request).
package quota
