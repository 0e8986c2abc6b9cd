// Package store is the durable backend for raw telemetry, the asset/sensor
// catalog, and maintenance tickets, backed by SQLite. The monitor never
// touches it directly — it reads through the REST API and treats query
// results as unordered input.
package store
