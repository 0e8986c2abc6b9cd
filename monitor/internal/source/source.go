package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/fleetpulse/fleetpulse/monitor/internal/config"
	"github.com/fleetpulse/fleetpulse/pkg/types"
)

const defaultFetchTimeout = 10 * time.Second

// Source supplies one sensor's raw telemetry window and maintenance context.
// Implementations make no ordering guarantee on the readings they return —
// the window buffer sorts.
type Source interface {
	// Readings returns up to limit recent readings for the sensor.
	Readings(ctx context.Context, sensorID string, limit int) ([]types.Reading, error)

	// Maintenance returns up to limit recent maintenance tickets, advisory only.
	Maintenance(ctx context.Context, sensorID string, limit int) ([]types.MaintenanceTicket, error)
}

// New returns the Source for one sensor's configuration: the server API by
// default, or a Prometheus exposition scraper.
func New(sensor config.SensorConfig, server config.ServerConfig) (Source, error) {
	switch sensor.Source.Type {
	case "", "api":
		return newAPISource(server), nil
	case "prometheus":
		return newPromSource(sensor.Source), nil
	default:
		return nil, fmt.Errorf("source: unsupported type %q", sensor.Source.Type)
	}
}

// apiSource reads windows from the fleetpulse-server REST API.
type apiSource struct {
	base   string
	client *http.Client
}

func newAPISource(server config.ServerConfig) *apiSource {
	return &apiSource{
		base: server.Endpoint,
		client: &http.Client{
			Transport: &authRoundTripper{base: http.DefaultTransport, auth: server.Auth},
			Timeout:   defaultFetchTimeout,
		},
	}
}

func (s *apiSource) Readings(ctx context.Context, sensorID string, limit int) ([]types.Reading, error) {
	var out []types.Reading
	if err := s.getJSON(ctx, s.endpoint(sensorID, "readings", limit), &out); err != nil {
		return nil, fmt.Errorf("source: fetch readings for %q: %w", sensorID, err)
	}
	return out, nil
}

func (s *apiSource) Maintenance(ctx context.Context, sensorID string, limit int) ([]types.MaintenanceTicket, error) {
	var out []types.MaintenanceTicket
	if err := s.getJSON(ctx, s.endpoint(sensorID, "maintenance", limit), &out); err != nil {
		return nil, fmt.Errorf("source: fetch maintenance for %q: %w", sensorID, err)
	}
	return out, nil
}

func (s *apiSource) endpoint(sensorID, resource string, limit int) string {
	return fmt.Sprintf("%s/api/v1/sensors/%s/%s?limit=%s",
		s.base, url.PathEscape(sensorID), resource, strconv.Itoa(limit))
}

func (s *apiSource) getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("http get: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// authRoundTripper injects authentication headers into every outgoing request.
type authRoundTripper struct {
	base http.RoundTripper
	auth config.AuthConfig
}

func (t *authRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	switch t.auth.Mode {
	case "apikey":
		req = req.Clone(req.Context())
		req.Header.Set(t.auth.EffectiveHeader(), t.auth.Key())
	case "bearer":
		req = req.Clone(req.Context())
		req.Header.Set("Authorization", "Bearer "+t.auth.Token())
	}
	return t.base.RoundTrip(req)
}
