package trend

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/fleetpulse/fleetpulse/monitor/internal/window"
	"github.com/fleetpulse/fleetpulse/pkg/types"
)

var base = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

// ramp builds a window of n readings, one per second, value = start + rate*i.
func ramp(n int, start, rate float64) window.Window {
	rs := make([]types.Reading, n)
	for i := range rs {
		rs[i] = types.Reading{
			Timestamp: base.Add(time.Duration(i) * time.Second),
			Value:     start + rate*float64(i),
		}
	}
	return window.Build(rs, n)
}

func almostEqual(a, b, epsilon float64) bool {
	return math.Abs(a-b) < epsilon
}

func TestFit_PerfectLine(t *testing.T) {
	m, err := Fit(ramp(50, 100, 0.5))
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}
	if !almostEqual(m.Slope, 0.5, 1e-9) {
		t.Errorf("Slope: got %v, want 0.5", m.Slope)
	}
	if !almostEqual(m.Intercept, 100, 1e-9) {
		t.Errorf("Intercept: got %v, want 100", m.Intercept)
	}
}

func TestFit_ConstantWindowHasZeroSlope(t *testing.T) {
	m, err := Fit(ramp(50, 42, 0))
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}
	if !almostEqual(m.Slope, 0, 1e-12) {
		t.Errorf("Slope: got %v, want ~0", m.Slope)
	}
	p := m.Project(115, 0.001, 49)
	if !p.Flat {
		t.Error("Project on constant window: want Flat")
	}
}

func TestFit_Degenerate(t *testing.T) {
	tests := []struct {
		name string
		w    window.Window
	}{
		{"empty", window.Build(nil, 100)},
		{"single reading", ramp(1, 100, 0)},
		{"two readings same timestamp", window.Build([]types.Reading{
			{Timestamp: base, Value: 1},
			{Timestamp: base, Value: 2},
		}, 100)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Fit(tt.w); !errors.Is(err, ErrDegenerate) {
				t.Errorf("Fit: got err %v, want ErrDegenerate", err)
			}
		})
	}
}

func TestProject_SecondsRemaining(t *testing.T) {
	// Line value = 100 + 0.5*t crosses 115 at t = 30. With the latest
	// reading at t = 19 (20 points), 11 seconds remain.
	m, err := Fit(ramp(20, 100, 0.5))
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}
	p := m.Project(115, 0.001, 19)
	if p.Flat {
		t.Fatal("Project: unexpectedly flat")
	}
	if !almostEqual(p.SecondsRemaining, 11, 1e-6) {
		t.Errorf("SecondsRemaining: got %v, want 11", p.SecondsRemaining)
	}
}

func TestProject_RULDecreasesMonotonically(t *testing.T) {
	// Feeding ever-longer prefixes of the same ramp must shrink the
	// remaining time, and eventually cross at most once into <= 0.
	prev := math.Inf(1)
	crossed := false
	for n := 10; n <= 80; n += 10 {
		m, err := Fit(ramp(n, 100, 0.5))
		if err != nil {
			t.Fatalf("Fit(n=%d): %v", n, err)
		}
		p := m.Project(115, 0.001, float64(n-1))
		if p.SecondsRemaining >= prev {
			t.Errorf("n=%d: SecondsRemaining %v did not decrease from %v",
				n, p.SecondsRemaining, prev)
		}
		if p.SecondsRemaining <= 0 {
			crossed = true
		} else if crossed {
			t.Errorf("n=%d: remaining went positive again after crossing", n)
		}
		prev = p.SecondsRemaining
	}
	if !crossed {
		t.Error("ramp never crossed the critical threshold")
	}
}

func TestProject_AlreadyCrossed(t *testing.T) {
	// 100 + 1.0*t crosses 115 at t = 15; latest reading is at t = 39.
	m, err := Fit(ramp(40, 100, 1.0))
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}
	p := m.Project(115, 0.001, 39)
	if p.SecondsRemaining > 0 {
		t.Errorf("SecondsRemaining: got %v, want <= 0", p.SecondsRemaining)
	}
}

func TestProject_SlopeAtMinimumIsFlat(t *testing.T) {
	m := Model{Slope: 0.001, Intercept: 100}
	if p := m.Project(115, 0.001, 10); !p.Flat {
		t.Error("slope == minSlope: want Flat")
	}
	m = Model{Slope: 0.0011, Intercept: 100}
	if p := m.Project(115, 0.001, 10); p.Flat {
		t.Error("slope just above minSlope: want not Flat")
	}
}

func TestPoints(t *testing.T) {
	w := ramp(5, 10, 2)
	m, err := Fit(w)
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}
	pts := m.Points(w)
	if len(pts) != 5 {
		t.Fatalf("Points: got %d, want 5", len(pts))
	}
	for i, p := range pts {
		want := 10 + 2*float64(i)
		if !almostEqual(p.Value, want, 1e-9) {
			t.Errorf("Points[%d]: got %v, want %v", i, p.Value, want)
		}
		if !p.Timestamp.Equal(w.Readings()[i].Timestamp) {
			t.Errorf("Points[%d]: timestamp mismatch", i)
		}
	}
}
