package trend

import (
	"errors"

	"gonum.org/v1/gonum/stat"

	"github.com/fleetpulse/fleetpulse/monitor/internal/window"
	"github.com/fleetpulse/fleetpulse/pkg/types"
)

// ErrDegenerate is returned by Fit when no line can be defined: fewer than
// two readings, or all readings at the same instant. Callers must treat a
// degenerate trend as flat — never as a fit to divide against.
var ErrDegenerate = errors.New("trend: degenerate window, no line defined")

// Model is an ordinary least-squares line of reading value against seconds
// elapsed since the window's earliest timestamp. Recomputed every cycle,
// never persisted.
type Model struct {
	Slope     float64
	Intercept float64
}

// Fit computes the least-squares line for the window. It returns
// ErrDegenerate when the window has fewer than two readings or zero time
// span, so no caller ever divides by a zero slope denominator.
func Fit(w window.Window) (Model, error) {
	if w.Size() < 2 || w.Span() <= 0 {
		return Model{}, ErrDegenerate
	}
	xs := w.Elapsed()
	ys := w.Values()
	intercept, slope := stat.LinearRegression(xs, ys, nil, false)
	return Model{Slope: slope, Intercept: intercept}, nil
}

// At evaluates the fitted line at the given elapsed time.
func (m Model) At(elapsed float64) float64 {
	return m.Intercept + m.Slope*elapsed
}

// Points evaluates the fitted line at each window timestamp, for overlay
// rendering on top of the raw series.
func (m Model) Points(w window.Window) []types.Point {
	elapsed := w.Elapsed()
	pts := make([]types.Point, w.Size())
	for i, r := range w.Readings() {
		pts[i] = types.Point{Timestamp: r.Timestamp, Value: m.At(elapsed[i])}
	}
	return pts
}

// Projection is the remaining-useful-life outcome of a fitted model.
type Projection struct {
	// Defined is false when no model was fit (degenerate window). An
	// undefined projection must be treated like a flat one.
	Defined bool

	// Flat is true when the slope does not exceed the configured minimum —
	// no meaningful drift, no RUL computed.
	Flat bool

	// SecondsRemaining is the projected time until the line crosses the
	// critical threshold, measured from the latest reading. Zero or
	// negative means the threshold has already been crossed.
	SecondsRemaining float64
}

// Project computes when the fitted line crosses criticalValue.
//
// elapsedAtLatest is the latest reading's offset in seconds from the window
// start (the last element of window.Elapsed()). Slopes at or below minSlope
// are reported as Flat with no RUL.
func (m Model) Project(criticalValue, minSlope, elapsedAtLatest float64) Projection {
	if m.Slope <= minSlope {
		return Projection{Defined: true, Flat: true}
	}
	tCross := (criticalValue - m.Intercept) / m.Slope
	return Projection{
		Defined:          true,
		SecondsRemaining: tCross - elapsedAtLatest,
	}
}
