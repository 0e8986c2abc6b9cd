// Package machine models the signal generators used by the fleet simulator.
// Each Machine produces a deterministic per-tick reading stream shaped by its
// behavior: failing (upward drift), stable (bounded oscillation), or erratic
// (baseline noise with occasional spikes).
package machine
