// Package driver runs the per-sensor analysis cycle on a fixed interval:
// fetch a fresh window, score it for anomalies, fit the trend, fuse the two
// into a verdict, and ship the report. Each cycle recomputes everything from
// the freshly fetched window; a watcher carries nothing across cycles except
// the identity of its sensor and the optional debouncer.
package driver
