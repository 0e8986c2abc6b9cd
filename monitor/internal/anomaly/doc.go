// Package anomaly flags readings whose values break from the rest of the
// current window, using an isolation forest refit from scratch on every
// cycle. Scoring uses value only — no time feature — so a point is
// anomalous relative to the window's recent history, not its position in it.
package anomaly
