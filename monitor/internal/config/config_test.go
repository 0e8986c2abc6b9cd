package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "monitor.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const minimal = `
server:
  endpoint: http://localhost:8080
sensors:
  - id: sensor-1
`

func TestLoad_DefaultsApplied(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimal))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.PollInterval != 2*time.Second {
		t.Errorf("PollInterval: got %v, want 2s", cfg.PollInterval)
	}
	th := cfg.Thresholds
	if th.CriticalValue != 115.0 {
		t.Errorf("CriticalValue: got %v, want 115", th.CriticalValue)
	}
	if th.MinSlope != 0.001 {
		t.Errorf("MinSlope: got %v, want 0.001", th.MinSlope)
	}
	if th.CriticalSoonSeconds != 60 {
		t.Errorf("CriticalSoonSeconds: got %v, want 60", th.CriticalSoonSeconds)
	}
	if th.Contamination != 0.05 {
		t.Errorf("Contamination: got %v, want 0.05", th.Contamination)
	}
	if th.WindowCapacity != 100 {
		t.Errorf("WindowCapacity: got %v, want 100", th.WindowCapacity)
	}
	if th.MinUsableSize != 10 {
		t.Errorf("MinUsableSize: got %v, want 10", th.MinUsableSize)
	}
	if th.DebounceCycles != 1 {
		t.Errorf("DebounceCycles: got %v, want 1", th.DebounceCycles)
	}
}

func TestLoad_Overrides(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
server:
  endpoint: http://fleet:9000
  auth:
    mode: apikey
    key_env: FLEET_KEY
poll_interval: 5s
sensors:
  - id: turbine-a
  - id: pump-b
    source:
      type: prometheus
      endpoint: http://pump-b:9100/metrics
      metric: pump_vibration_hz
thresholds:
  critical_value: 130
  contamination: 0.1
  debounce_cycles: 3
`))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.PollInterval != 5*time.Second {
		t.Errorf("PollInterval: got %v, want 5s", cfg.PollInterval)
	}
	if cfg.Thresholds.CriticalValue != 130 {
		t.Errorf("CriticalValue: got %v, want 130", cfg.Thresholds.CriticalValue)
	}
	// Unset thresholds keep their defaults when the block is partial.
	if cfg.Thresholds.WindowCapacity != 100 {
		t.Errorf("WindowCapacity: got %v, want default 100", cfg.Thresholds.WindowCapacity)
	}
	if cfg.Sensors[1].Source.Type != "prometheus" {
		t.Errorf("Source.Type: got %q, want prometheus", cfg.Sensors[1].Source.Type)
	}
	if got := cfg.Server.Auth.EffectiveHeader(); got != "X-API-Key" {
		t.Errorf("EffectiveHeader: got %q, want X-API-Key", got)
	}
}

func TestLoad_ValidationFailures(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "missing endpoint",
			yaml:    "sensors:\n  - id: s1\n",
			wantErr: "server.endpoint",
		},
		{
			name:    "no sensors",
			yaml:    "server:\n  endpoint: http://x\n",
			wantErr: "at least one sensor",
		},
		{
			name:    "sensor without id",
			yaml:    minimal + "  - source:\n      type: api\n",
			wantErr: "id is required",
		},
		{
			name:    "non-positive window capacity",
			yaml:    minimal + "thresholds:\n  window_capacity: 0\n",
			wantErr: "window_capacity",
		},
		{
			name:    "contamination out of range",
			yaml:    minimal + "thresholds:\n  contamination: 0.9\n",
			wantErr: "contamination",
		},
		{
			name:    "min usable above capacity",
			yaml:    minimal + "thresholds:\n  window_capacity: 20\n  min_usable_size: 30\n",
			wantErr: "min_usable_size",
		},
		{
			name:    "negative poll interval",
			yaml:    minimal + "poll_interval: -1s\n",
			wantErr: "poll_interval",
		},
		{
			name:    "prometheus source without metric",
			yaml:    "server:\n  endpoint: http://x\nsensors:\n  - id: s1\n    source:\n      type: prometheus\n      endpoint: http://y/metrics\n",
			wantErr: "requires metric",
		},
		{
			name:    "unknown source type",
			yaml:    "server:\n  endpoint: http://x\nsensors:\n  - id: s1\n    source:\n      type: kafka\n",
			wantErr: "unknown source type",
		},
		{
			name:    "unknown auth mode",
			yaml:    "server:\n  endpoint: http://x\n  auth:\n    mode: oauth\nsensors:\n  - id: s1\n",
			wantErr: "unknown mode",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.yaml))
			if err == nil {
				t.Fatal("Load: expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("Load: expected error for missing file")
	}
}
