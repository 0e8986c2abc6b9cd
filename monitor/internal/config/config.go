package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values applied when fields are absent from the config file.
// The threshold defaults match the fleet's vibration sensors: values are
// expected to hover around 100 Hz with 115 Hz as the failure line.
const (
	DefaultPollInterval        = 2 * time.Second
	DefaultReportBufferSize    = 256
	DefaultCriticalValue       = 115.0
	DefaultMinSlope            = 0.001
	DefaultCriticalSoonSeconds = 60.0
	DefaultContamination       = 0.05
	DefaultWindowCapacity      = 100
	DefaultMinUsableSize       = 10
	DefaultDebounceCycles      = 1
)

// Config is the top-level monitor configuration.
// Fields map 1:1 to config/monitor.yaml.
type Config struct {
	// Server is the fleetpulse-server the monitor reads windows from and
	// ships verdicts to.
	Server ServerConfig `yaml:"server"`

	// PollInterval controls how often each watched sensor runs a cycle.
	PollInterval time.Duration `yaml:"poll_interval"`

	// ReportBufferSize is the maximum number of verdicts held in memory
	// when the server is unreachable.
	ReportBufferSize int `yaml:"report_buffer_size"`

	// Sensors is the list of sensor streams to watch. Each gets its own
	// independent watcher task.
	Sensors []SensorConfig `yaml:"sensors"`

	// Thresholds are the shared analysis constants, read-only during a
	// cycle and hot-reloadable between cycles.
	Thresholds Thresholds `yaml:"thresholds"`
}

// ServerConfig locates and authenticates against fleetpulse-server.
type ServerConfig struct {
	// Endpoint is the base URL of the server API, e.g. "http://localhost:8080".
	Endpoint string `yaml:"endpoint"`

	// Auth configures how the monitor authenticates to the server.
	Auth AuthConfig `yaml:"auth"`
}

// AuthConfig specifies the authentication mode for an HTTP target.
type AuthConfig struct {
	// Mode is one of: apikey | bearer | none.
	Mode string `yaml:"mode"`

	// Header is the HTTP header name to send the API key in.
	// Defaults to "X-API-Key" when Mode == "apikey".
	Header string `yaml:"header"`

	// KeyEnv is the name of the environment variable holding the key.
	KeyEnv string `yaml:"key_env"`

	// TokenEnv is the name of the environment variable holding the bearer token.
	TokenEnv string `yaml:"token_env"`
}

// EffectiveHeader returns the API key header name, defaulted.
func (a AuthConfig) EffectiveHeader() string {
	if a.Header == "" {
		return "X-API-Key"
	}
	return a.Header
}

// Key returns the API key resolved from the environment.
func (a AuthConfig) Key() string {
	if a.KeyEnv == "" {
		return ""
	}
	return os.Getenv(a.KeyEnv)
}

// Token returns the bearer token resolved from the environment.
func (a AuthConfig) Token() string {
	if a.TokenEnv == "" {
		return ""
	}
	return os.Getenv(a.TokenEnv)
}

// SensorConfig describes one watched sensor stream.
type SensorConfig struct {
	// ID is the sensor identifier in the telemetry store.
	ID string `yaml:"id"`

	// Source selects where this sensor's window comes from.
	// An empty source defaults to the server API.
	Source SourceConfig `yaml:"source"`
}

// SourceConfig selects and parameterizes a window source.
type SourceConfig struct {
	// Type is one of: api | prometheus. Empty means api.
	Type string `yaml:"type"`

	// Endpoint is the scrape URL for the prometheus source type.
	Endpoint string `yaml:"endpoint"`

	// Metric is the exposition metric name sampled by the prometheus source.
	Metric string `yaml:"metric"`
}

// Thresholds is the analysis configuration contract. Process-wide constants
// for the duration of a cycle; replaced atomically on hot reload.
type Thresholds struct {
	// CriticalValue is the failure line the trend is projected against.
	CriticalValue float64 `yaml:"critical_value"`

	// MinSlope is the smallest slope treated as real drift.
	MinSlope float64 `yaml:"min_slope"`

	// CriticalSoonSeconds escalates a drifting verdict when the projected
	// remaining time falls below it.
	CriticalSoonSeconds float64 `yaml:"critical_soon_seconds"`

	// Contamination is the outlier fraction the anomaly scorer expects.
	Contamination float64 `yaml:"contamination"`

	// WindowCapacity is the maximum readings per analysis window.
	WindowCapacity int `yaml:"window_capacity"`

	// MinUsableSize is the smallest window the detectors run on.
	MinUsableSize int `yaml:"min_usable_size"`

	// DebounceCycles is the number of consecutive cycles required before a
	// status transition is reported. 1 disables debouncing.
	DebounceCycles int `yaml:"debounce_cycles"`
}

// Load reads and parses the YAML config file at path.
// Missing optional fields are filled with defaults; malformed values are
// rejected here so the process refuses to start rather than produce
// meaningless verdicts.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read file: %w", err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

// defaults returns a Config pre-populated with default values.
func defaults() *Config {
	return &Config{
		PollInterval:     DefaultPollInterval,
		ReportBufferSize: DefaultReportBufferSize,
		Thresholds:       DefaultThresholds(),
	}
}

// DefaultThresholds returns the threshold defaults as a value.
func DefaultThresholds() Thresholds {
	return Thresholds{
		CriticalValue:       DefaultCriticalValue,
		MinSlope:            DefaultMinSlope,
		CriticalSoonSeconds: DefaultCriticalSoonSeconds,
		Contamination:       DefaultContamination,
		WindowCapacity:      DefaultWindowCapacity,
		MinUsableSize:       DefaultMinUsableSize,
		DebounceCycles:      DefaultDebounceCycles,
	}
}

// validate checks required fields and structural constraints.
func validate(cfg *Config) error {
	if cfg.Server.Endpoint == "" {
		return fmt.Errorf("server.endpoint is required")
	}
	if cfg.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be positive")
	}
	if cfg.ReportBufferSize <= 0 {
		return fmt.Errorf("report_buffer_size must be positive")
	}
	switch cfg.Server.Auth.Mode {
	case "apikey", "bearer", "none", "":
	default:
		return fmt.Errorf("server.auth: unknown mode %q", cfg.Server.Auth.Mode)
	}
	if len(cfg.Sensors) == 0 {
		return fmt.Errorf("at least one sensor is required")
	}
	for i, s := range cfg.Sensors {
		if s.ID == "" {
			return fmt.Errorf("sensors[%d]: id is required", i)
		}
		switch s.Source.Type {
		case "", "api":
		case "prometheus":
			if s.Source.Endpoint == "" {
				return fmt.Errorf("sensors[%d] %q: prometheus source requires endpoint", i, s.ID)
			}
			if s.Source.Metric == "" {
				return fmt.Errorf("sensors[%d] %q: prometheus source requires metric", i, s.ID)
			}
		default:
			return fmt.Errorf("sensors[%d] %q: unknown source type %q", i, s.ID, s.Source.Type)
		}
	}
	return validateThresholds(cfg.Thresholds)
}

func validateThresholds(t Thresholds) error {
	if t.WindowCapacity <= 0 {
		return fmt.Errorf("thresholds.window_capacity must be positive")
	}
	if t.MinUsableSize < 2 {
		return fmt.Errorf("thresholds.min_usable_size must be at least 2")
	}
	if t.MinUsableSize > t.WindowCapacity {
		return fmt.Errorf("thresholds.min_usable_size cannot exceed window_capacity")
	}
	if t.Contamination <= 0 || t.Contamination > 0.5 {
		return fmt.Errorf("thresholds.contamination must be in (0, 0.5]")
	}
	if t.MinSlope < 0 {
		return fmt.Errorf("thresholds.min_slope cannot be negative")
	}
	if t.CriticalSoonSeconds < 0 {
		return fmt.Errorf("thresholds.critical_soon_seconds cannot be negative")
	}
	if t.DebounceCycles < 1 {
		return fmt.Errorf("thresholds.debounce_cycles must be at least 1")
	}
	return nil
}
