// Package cache implements the SQLite-backed response cache with TTL expiry.
//
// Entries are keyed by an opaque string, typically Key() over the request
// parameters. The TTL is fixed at construction, not per entry. Expiry is
// enforced lazily on read: a Get that finds an expired row deletes it and
// reports a miss, so no caller ever observes a stale entry as valid.
// CleanupExpired bounds growth for keys that are written once and never
// re-read.
//
// A payload that fails to deserialize is treated as a miss, never an error;
// the corrupt row is removed. Storage-busy errors are returned to the caller,
// whose documented policy for the cache is to fail open (treat as a miss and
// recompute).
package cache
