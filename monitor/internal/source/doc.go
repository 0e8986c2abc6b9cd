// Package source supplies raw telemetry windows and maintenance context to
// the cycle driver. The default source reads the fleetpulse-server REST API;
// the prometheus source scrapes a text exposition endpoint and builds its
// own sample history. Neither guarantees reading order — the window buffer
// sorts.
package source
