// Package fusion turns the trend projection and the latest reading's anomaly
// label into a single health verdict under a fixed priority policy:
// insufficient data, then anomaly, then trend. Resolve is the one
// authoritative ordering function so the policy is testable in isolation
// from fetching and rendering.
//
// Debouncer adds optional hysteresis on top: K consecutive cycles must agree
// before a status transition is reported. It is disabled (K=1) by default.
package fusion
