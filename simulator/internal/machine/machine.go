package machine

import (
	"fmt"
	"math"
	"math/rand"
)

// Behavior selects the signal shape a simulated machine produces.
type Behavior string

const (
	// Failing produces an oscillating signal with a steady upward drift, so
	// a trend fit over its readings projects a threshold crossing.
	Failing Behavior = "failing"

	// Stable produces a bounded oscillation around the baseline.
	Stable Behavior = "stable"

	// Erratic produces baseline noise with occasional large spikes that an
	// outlier scorer should flag.
	Erratic Behavior = "erratic"
)

const (
	baseline    = 100.0
	noiseSpread = 2.0 // uniform noise in [-noiseSpread, +noiseSpread]

	failingDriftPerTick = 0.08
	failingAmplitude    = 10.0
	stableAmplitude     = 5.0

	spikeMagnitude   = 20.0
	spikeProbability = 0.05
)

// Machine generates a deterministic reading sequence for one simulated
// sensor. Not safe for concurrent use; drive each Machine from one goroutine.
type Machine struct {
	sensorID string
	behavior Behavior
	rng      *rand.Rand
	tick     int
}

// New creates a Machine. The seed makes the noise sequence reproducible;
// machines with different seeds produce independent sequences.
func New(sensorID string, behavior Behavior, seed int64) (*Machine, error) {
	switch behavior {
	case Failing, Stable, Erratic:
	default:
		return nil, fmt.Errorf("machine: unknown behavior %q", behavior)
	}
	return &Machine{
		sensorID: sensorID,
		behavior: behavior,
		rng:      rand.New(rand.NewSource(seed)),
	}, nil
}

// SensorID returns the sensor this machine reports as.
func (m *Machine) SensorID() string { return m.sensorID }

// Behavior returns the machine's configured behavior.
func (m *Machine) Behavior() Behavior { return m.behavior }

// Next produces the next reading value and advances the internal tick.
func (m *Machine) Next() float64 {
	t := float64(m.tick)
	m.tick++

	noise := (m.rng.Float64()*2 - 1) * noiseSpread

	switch m.behavior {
	case Failing:
		return baseline + failingAmplitude*math.Sin(t*0.1) + noise + failingDriftPerTick*t
	case Stable:
		return baseline + stableAmplitude*math.Sin(t*0.2) + noise
	default: // Erratic
		v := baseline + noise
		if m.rng.Float64() < spikeProbability {
			v += spikeMagnitude
		}
		return v
	}
}
