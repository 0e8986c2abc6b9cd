// Package verdicts holds the live health verdict for each sensor: the most
// recent cycle report shipped by a monitor, with TTL eviction for sensors
// that stop reporting. It is intentionally ephemeral — durable telemetry
// lives in the SQLite store, while verdicts are recomputed every cycle.
package verdicts
