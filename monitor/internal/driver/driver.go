package driver

import (
	"context"
	"log/slog"
	"time"

	"github.com/fleetpulse/fleetpulse/monitor/internal/anomaly"
	"github.com/fleetpulse/fleetpulse/monitor/internal/config"
	"github.com/fleetpulse/fleetpulse/monitor/internal/fusion"
	"github.com/fleetpulse/fleetpulse/monitor/internal/source"
	"github.com/fleetpulse/fleetpulse/monitor/internal/trend"
	"github.com/fleetpulse/fleetpulse/monitor/internal/window"
	"github.com/fleetpulse/fleetpulse/pkg/types"
)

// maintenanceLimit is how many recent tickets are attached to each report.
const maintenanceLimit = 5

// Shipper receives the finished report of each cycle.
type Shipper interface {
	Ship(*types.CycleReport)
}

// Watcher runs the analysis cycle for exactly one sensor. Each watcher is an
// independent task owning its own window, model, and labels — watching more
// sensors means more watchers, never shared state. The only cross-cycle
// state is the optional status debouncer.
type Watcher struct {
	sensorID   string
	src        source.Source
	ship       Shipper
	thresholds func() config.Thresholds
	interval   time.Duration

	deb  *fusion.Debouncer
	debK int
	now  func() time.Time // injectable for deterministic tests
}

// NewWatcher builds a watcher for one sensor. thresholds is called at the
// start of every cycle so hot-reloaded values take effect without a restart.
func NewWatcher(sensorID string, src source.Source, ship Shipper,
	thresholds func() config.Thresholds, interval time.Duration) *Watcher {
	return &Watcher{
		sensorID:   sensorID,
		src:        src,
		ship:       ship,
		thresholds: thresholds,
		interval:   interval,
		now:        time.Now,
	}
}

// Run executes one cycle immediately, then one per interval tick, shipping
// every report. It blocks until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) {
	w.emit(w.Cycle(ctx))

	t := time.NewTicker(w.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			w.emit(w.Cycle(ctx))
		}
	}
}

func (w *Watcher) emit(rep *types.CycleReport) {
	if w.ship == nil {
		return
	}
	w.ship.Ship(rep)
	slog.Debug("driver: cycle complete",
		"sensor", w.sensorID,
		"status", rep.Status,
		"window_size", rep.WindowSize,
	)
}

// Cycle fetches a fresh window and runs the full analysis sequence:
// build → score → fit → fuse. A source failure degrades to an initializing
// report instead of failing the loop — the poll interval throttles retries.
func (w *Watcher) Cycle(ctx context.Context) *types.CycleReport {
	th := w.thresholds()
	w.syncDebouncer(th.DebounceCycles)

	rep := &types.CycleReport{
		SensorID:    w.sensorID,
		GeneratedAt: w.now().UTC(),
		Status:      types.StatusInitializing,
		Severity:    types.SeverityOK,
	}

	raw, err := w.src.Readings(ctx, w.sensorID, th.WindowCapacity)
	if err != nil {
		slog.Warn("driver: window source unavailable, degrading",
			"sensor", w.sensorID, "err", err)
		return rep
	}

	win := window.Build(raw, th.WindowCapacity)
	rep.WindowSize = win.Size()
	if latest, ok := win.Latest(); ok {
		rep.LatestValue = latest.Value
	}

	var (
		latestLabel anomaly.Label
		proj        trend.Projection
	)
	if win.Size() >= th.MinUsableSize {
		labels := anomaly.Detect(win.Values(), th.Contamination)
		latestLabel = labels[len(labels)-1]
		for i, l := range labels {
			if l == anomaly.Anomalous {
				r := win.Readings()[i]
				rep.AnomalyPoints = append(rep.AnomalyPoints,
					types.Point{Timestamp: r.Timestamp, Value: r.Value})
			}
		}

		if model, err := trend.Fit(win); err == nil {
			elapsed := win.Elapsed()
			proj = model.Project(th.CriticalValue, th.MinSlope, elapsed[len(elapsed)-1])
			rep.Slope = model.Slope
			rep.TrendPoints = model.Points(win)
		}
	}

	v := fusion.Resolve(win.Size(), latestLabel, proj, fusion.Config{
		MinUsableSize:       th.MinUsableSize,
		CriticalSoonSeconds: th.CriticalSoonSeconds,
	})
	v = w.deb.Observe(v)
	rep.Status = string(v.Status)
	rep.Severity = string(v.Severity)
	rep.RULSeconds = v.RULSeconds

	// Maintenance context is advisory: a failure here degrades to an empty
	// list, never to a failed cycle.
	tickets, err := w.src.Maintenance(ctx, w.sensorID, maintenanceLimit)
	if err != nil {
		slog.Warn("driver: maintenance source unavailable",
			"sensor", w.sensorID, "err", err)
	} else {
		rep.Maintenance = tickets
	}

	return rep
}

// syncDebouncer rebuilds the debouncer when the configured depth changes
// (including on the first cycle).
func (w *Watcher) syncDebouncer(k int) {
	if w.deb == nil || w.debK != k {
		w.deb = fusion.NewDebouncer(k)
		w.debK = k
	}
}
