// Package types defines shared Go types used by both the monitor and server.
// These are the canonical in-memory representations of telemetry and verdict
// data, and double as the JSON wire format between the two components.
package types
