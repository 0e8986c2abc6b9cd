package types

import "time"

// Reading is a single scalar sample from one sensor.
// Immutable once created.
type Reading struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

// Point is a (time, value) pair used for overlay rendering — either a point
// on the fitted trend line or a reading flagged as anomalous.
type Point struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

// Asset is a physical machine in the fleet catalog.
type Asset struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	Location  string    `json:"location"`
	CreatedAt time.Time `json:"created_at"`
	Sensors   []Sensor  `json:"sensors,omitempty"`
}

// Sensor is a measurement stream attached to an asset.
type Sensor struct {
	ID        string    `json:"id"`
	AssetID   string    `json:"asset_id"`
	Type      string    `json:"type"`
	Unit      string    `json:"unit"`
	CreatedAt time.Time `json:"created_at"`
}

// MaintenanceTicket is a dispatch record for a sensor's asset. It is purely
// advisory context — the monitor renders it alongside the verdict but never
// feeds it into the decision.
type MaintenanceTicket struct {
	ID        string    `json:"id"`
	SensorID  string    `json:"sensor_id"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// Health status values carried on a CycleReport.
const (
	StatusInitializing = "initializing"
	StatusStable       = "stable"
	StatusDrifting     = "drifting"
	StatusCriticalSoon = "critical_soon"
	StatusCritical     = "critical"
	StatusAnomalous    = "anomalous"
)

// Severity values carried on a CycleReport. They map a status to a display
// signal: ok (green), watch (amber), alarm (red).
const (
	SeverityOK    = "ok"
	SeverityWatch = "watch"
	SeverityAlarm = "alarm"
)

// CycleReport is the full output of one analysis cycle for one sensor,
// shipped by the monitor and consumed by the server's live feed, alert
// engine, and any dashboard client.
type CycleReport struct {
	SensorID    string    `json:"sensor_id"`
	GeneratedAt time.Time `json:"generated_at"`

	Status   string `json:"status"`
	Severity string `json:"severity"`

	// RULSeconds is the projected remaining time until the trend line
	// crosses the critical threshold. Only meaningful when Status is
	// drifting or critical_soon; zero otherwise.
	RULSeconds float64 `json:"rul_seconds"`

	LatestValue float64 `json:"latest_value"`
	Slope       float64 `json:"slope"`
	WindowSize  int     `json:"window_size"`

	// TrendPoints is the fitted line evaluated at each window timestamp.
	// Empty when the trend was degenerate or the window too small.
	TrendPoints []Point `json:"trend_points,omitempty"`

	// AnomalyPoints are the readings the scorer flagged as anomalous.
	AnomalyPoints []Point `json:"anomaly_points,omitempty"`

	// Maintenance is recent ticket context for the sensor, newest first.
	Maintenance []MaintenanceTicket `json:"maintenance,omitempty"`
}
