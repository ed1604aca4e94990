// Package retention runs scheduled cleanup of the quota stores.
//
// The sweeper deletes expired response-cache rows and stale rate-limiter
// rows on a cron schedule (e.g. "*/10 * * * *"). Both stores also clean
// themselves opportunistically; the sweeper bounds growth for deployments
// whose traffic is too sparse to trigger the opportunistic paths.
package retention
