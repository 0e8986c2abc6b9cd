package window

import (
	"sort"
	"time"

	"github.com/fleetpulse/fleetpulse/pkg/types"
)

// DefaultCapacity is the window size used when the config does not override it.
const DefaultCapacity = 100

// Window is a bounded, time-ordered sequence of readings for one sensor.
// It is a value rebuilt from scratch each cycle — nothing mutates it after
// Build returns.
type Window struct {
	readings []types.Reading
}

// Build produces a Window from a raw, possibly-unordered query result:
// readings are sorted ascending by timestamp (stable, so duplicate
// timestamps keep their input order) and truncated to the most recent
// capacity entries. An empty input yields an empty Window, not an error —
// the caller decides what "insufficient data" means.
func Build(raw []types.Reading, capacity int) Window {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}

	rs := make([]types.Reading, len(raw))
	copy(rs, raw)
	sort.SliceStable(rs, func(i, j int) bool {
		return rs[i].Timestamp.Before(rs[j].Timestamp)
	})

	if len(rs) > capacity {
		rs = rs[len(rs)-capacity:]
	}
	return Window{readings: rs}
}

// Size returns the number of readings held.
func (w Window) Size() int { return len(w.readings) }

// Readings returns the ordered readings. Callers must not modify the slice.
func (w Window) Readings() []types.Reading { return w.readings }

// Latest returns the most recent reading, or false for an empty window.
func (w Window) Latest() (types.Reading, bool) {
	if len(w.readings) == 0 {
		return types.Reading{}, false
	}
	return w.readings[len(w.readings)-1], true
}

// Values returns the reading values in window order.
func (w Window) Values() []float64 {
	vs := make([]float64, len(w.readings))
	for i, r := range w.readings {
		vs[i] = r.Value
	}
	return vs
}

// Elapsed returns, for each reading, the seconds elapsed since the window's
// earliest timestamp. This is the time feature the trend estimator fits
// against.
func (w Window) Elapsed() []float64 {
	es := make([]float64, len(w.readings))
	if len(w.readings) == 0 {
		return es
	}
	start := w.readings[0].Timestamp
	for i, r := range w.readings {
		es[i] = r.Timestamp.Sub(start).Seconds()
	}
	return es
}

// Span returns the duration between the earliest and latest reading.
func (w Window) Span() time.Duration {
	if len(w.readings) < 2 {
		return 0
	}
	return w.readings[len(w.readings)-1].Timestamp.Sub(w.readings[0].Timestamp)
}
