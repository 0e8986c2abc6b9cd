// Package reporter ships cycle verdicts to fleetpulse-server over HTTP.
// Reports are buffered in memory with oldest-first eviction so a slow or
// unreachable server never blocks the analysis loop, and delivery retries
// with truncated exponential backoff.
package reporter
