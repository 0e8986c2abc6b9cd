package fusion

import (
	"github.com/fleetpulse/fleetpulse/monitor/internal/anomaly"
	"github.com/fleetpulse/fleetpulse/monitor/internal/trend"
	"github.com/fleetpulse/fleetpulse/pkg/types"
)

// Status is the fused machine-health verdict for one cycle.
type Status string

const (
	Initializing Status = types.StatusInitializing
	Stable       Status = types.StatusStable
	Drifting     Status = types.StatusDrifting
	CriticalSoon Status = types.StatusCriticalSoon
	Critical     Status = types.StatusCritical
	Anomalous    Status = types.StatusAnomalous
)

// Severity is the display signal attached to a status.
type Severity string

const (
	SeverityOK    Severity = types.SeverityOK
	SeverityWatch Severity = types.SeverityWatch
	SeverityAlarm Severity = types.SeverityAlarm
)

// Config holds the fusion thresholds, read-only during a run.
type Config struct {
	// MinUsableSize is the smallest window the detectors can be trusted on.
	MinUsableSize int

	// CriticalSoonSeconds escalates Drifting to CriticalSoon when the
	// projected remaining time falls below it.
	CriticalSoonSeconds float64
}

// Verdict is the terminal output of one cycle's fusion.
type Verdict struct {
	Status   Status
	Severity Severity

	// RULSeconds is set only for Drifting and CriticalSoon.
	RULSeconds float64
}

// Resolve combines the anomaly label of the latest reading with the trend
// projection under the fixed priority policy. It is a pure function: the
// same inputs always produce the same Verdict.
//
// Ordering — no other ordering is valid:
//  1. Too little data pre-empts everything: Initializing.
//  2. An anomalous latest reading pre-empts trend regardless of slope,
//     because the trend model was fit on the same contaminated window and
//     cannot be trusted to characterize an acute deviation.
//  3. Otherwise the trend decides: flat/undefined → Stable, threshold
//     already crossed → Critical, crossing imminent → CriticalSoon,
//     otherwise → Drifting with the remaining time.
func Resolve(windowSize int, latest anomaly.Label, proj trend.Projection, cfg Config) Verdict {
	if windowSize < cfg.MinUsableSize {
		return Verdict{Status: Initializing, Severity: SeverityOK}
	}

	if latest == anomaly.Anomalous {
		return Verdict{Status: Anomalous, Severity: SeverityAlarm}
	}

	if !proj.Defined || proj.Flat {
		return Verdict{Status: Stable, Severity: SeverityOK}
	}

	switch {
	case proj.SecondsRemaining <= 0:
		return Verdict{Status: Critical, Severity: SeverityAlarm}
	case proj.SecondsRemaining < cfg.CriticalSoonSeconds:
		return Verdict{
			Status:     CriticalSoon,
			Severity:   SeverityAlarm,
			RULSeconds: proj.SecondsRemaining,
		}
	default:
		return Verdict{
			Status:     Drifting,
			Severity:   SeverityWatch,
			RULSeconds: proj.SecondsRemaining,
		}
	}
}
