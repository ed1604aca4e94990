// Package ratelimit implements per-client sliding-window admission control
// with cost weighting, backed by SQLite.
//
// Every admitted request inserts one timestamp row per unit of cost, giving
// exact sliding-window accounting: a check counts precisely the rows inside
// the rolling window, so there is no fixed-bucket reset spike. Client
// identifiers are hashed with SHA-256 before touching the store; the raw
// identifier is never persisted.
//
// A client needs no stored throttle state. It is throttled exactly while
// count+cost exceeds the limit, and returns to unthrottled automatically as
// timestamps age out of the window.
//
// Cleanup is opportunistic: on a time cadence (not on every call) request
// rows older than twice the window and client rows with no remaining
// requests are deleted, bounding growth without a background scheduler. The
// retention sweeper can also invoke CleanupStale on its own schedule.
//
// Storage-busy errors fail closed: Check returns a deny decision along with
// the error, preserving server-side enforcement that cannot be bypassed by
// inducing storage contention.
package ratelimit
