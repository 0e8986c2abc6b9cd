package api

import (
	"time"

	"github.com/fleetpulse/fleetpulse/pkg/types"
)

// IngestRequest is the body for POST /api/v1/ingest.
type IngestRequest struct {
	SensorID string `json:"sensor_id"`
	Value    float64 `json:"value"`

	// Timestamp is optional. When absent the server stamps the reading with
	// its own wall clock on insert.
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

// IngestResponse is the payload for a successful POST /api/v1/ingest.
type IngestResponse struct {
	ID       int64  `json:"id"`
	SensorID string `json:"sensor_id"`
}

// TicketRequest is the body for POST /api/v1/tickets.
type TicketRequest struct {
	SensorID string `json:"sensor_id"`
	Status   string `json:"status,omitempty"` // defaults to "open"
}

// VerdictResponse is one entry in GET /api/v1/verdicts or
// GET /api/v1/verdicts/{id}: the monitor's cycle report plus when the server
// received it.
type VerdictResponse struct {
	*types.CycleReport
	ReceivedAt string `json:"received_at"` // RFC3339
}

// AcceptedResponse is the payload for a successful POST /api/v1/verdicts.
type AcceptedResponse struct {
	Accepted bool `json:"accepted"`
}

// HealthResponse is the payload for GET /api/v1/health.
type HealthResponse struct {
	Status      string `json:"status"` // "ok" | "degraded"
	LiveSensors int    `json:"live_sensors"`
	Error       string `json:"error,omitempty"`
}

// errorResponse is a generic JSON error body.
type errorResponse struct {
	Error string `json:"error"`
}
