// Package budget implements the daily spend ledger.
//
// One row per local calendar day accumulates that day's spend in USD.
// AddSpend uses a single upsert-with-arithmetic statement, so concurrent
// writers never lose an increment to a read-modify-write race. WouldExceed
// is a pure read against the configured daily cap.
//
// WouldExceed followed by AddSpend is intentionally NOT atomic as a pair:
// a race window exists between checking and committing a spend, and slight
// overshoot under concurrency is accepted. This is a soft budget, not a
// billing-grade guarantee.
package budget
