// Command callisto operates the persistent quota/cache layer: scheduled
// retention sweeps, quota statistics, and ops utilities for the response
// cache, spend ledger, and rate limiter.
package main

func main() {
	Execute()
}
