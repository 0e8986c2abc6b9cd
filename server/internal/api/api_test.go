package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/fleetpulse/fleetpulse/pkg/types"
	"github.com/fleetpulse/fleetpulse/server/internal/alerts"
	"github.com/fleetpulse/fleetpulse/server/internal/api"
	"github.com/fleetpulse/fleetpulse/server/internal/config"
	"github.com/fleetpulse/fleetpulse/server/internal/store"
	"github.com/fleetpulse/fleetpulse/server/internal/verdicts"
)

// --- test helpers -----------------------------------------------------------

type fixture struct {
	handler  http.Handler
	store    *store.Store
	verdicts *verdicts.Store
	sensorID string
}

// newFixture builds a handler backed by an in-memory store seeded with one
// asset carrying one sensor.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	st, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	ctx := context.Background()
	asset, err := st.CreateAsset(ctx, "Turbine-A (Main)", "turbine", "plant-1")
	if err != nil {
		t.Fatalf("create asset: %v", err)
	}
	sensor, err := st.CreateSensor(ctx, asset.ID, "vibration", "hertz")
	if err != nil {
		t.Fatalf("create sensor: %v", err)
	}

	vs := verdicts.New(5 * time.Minute)
	eng := alerts.New(config.AlertsConfig{})
	return &fixture{
		handler:  api.New(st, vs, eng, config.AuthConfig{}),
		store:    st,
		verdicts: vs,
		sensorID: sensor.ID,
	}
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
	return rr
}

func post(t *testing.T, h http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	h.ServeHTTP(rr, req)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(rr.Body).Decode(v); err != nil {
		t.Fatalf("decode JSON: %v (body: %s)", err, rr.Body.String())
	}
}

// --- /api/v1/ingest ---------------------------------------------------------

func TestIngest_StoresReading(t *testing.T) {
	f := newFixture(t)
	rr := post(t, f.handler, "/api/v1/ingest",
		`{"sensor_id":"`+f.sensorID+`","value":101.5}`)

	if rr.Code != http.StatusCreated {
		t.Fatalf("status: got %d, want 201 (body: %s)", rr.Code, rr.Body.String())
	}
	var resp api.IngestResponse
	decode(t, rr, &resp)
	if resp.ID <= 0 {
		t.Errorf("id: got %d, want positive", resp.ID)
	}

	readings, err := f.store.RecentReadings(context.Background(), f.sensorID, 10)
	if err != nil {
		t.Fatalf("RecentReadings: %v", err)
	}
	if len(readings) != 1 {
		t.Fatalf("readings: got %d, want 1", len(readings))
	}
	if readings[0].Value != 101.5 {
		t.Errorf("value: got %v, want 101.5", readings[0].Value)
	}
}

func TestIngest_MissingSensorID(t *testing.T) {
	f := newFixture(t)
	rr := post(t, f.handler, "/api/v1/ingest", `{"value":101.5}`)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", rr.Code)
	}
}

func TestIngest_NonFiniteValue(t *testing.T) {
	f := newFixture(t)
	// NaN is not representable in JSON, so the decoder rejects the body.
	rr := post(t, f.handler, "/api/v1/ingest",
		`{"sensor_id":"`+f.sensorID+`","value":NaN}`)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", rr.Code)
	}
}

func TestIngest_UnknownSensor(t *testing.T) {
	f := newFixture(t)
	rr := post(t, f.handler, "/api/v1/ingest", `{"sensor_id":"nope","value":1}`)
	if rr.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want 404", rr.Code)
	}
}

// --- /api/v1/sensors/{id}/readings ------------------------------------------

func TestSensorReadings_NewestFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	base := time.Now().Add(-time.Minute)
	for i := 0; i < 5; i++ {
		if _, err := f.store.InsertReading(ctx, f.sensorID, 100+float64(i), base.Add(time.Duration(i)*time.Second)); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	rr := get(t, f.handler, "/api/v1/sensors/"+f.sensorID+"/readings?limit=3")
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	var readings []types.Reading
	decode(t, rr, &readings)
	if len(readings) != 3 {
		t.Fatalf("readings: got %d, want 3", len(readings))
	}
	if readings[0].Value != 104 {
		t.Errorf("first reading value: got %v, want 104 (newest)", readings[0].Value)
	}
}

func TestSensorReadings_UnknownSensor(t *testing.T) {
	f := newFixture(t)
	rr := get(t, f.handler, "/api/v1/sensors/nope/readings")
	if rr.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want 404", rr.Code)
	}
}

// --- /api/v1/tickets + /api/v1/sensors/{id}/maintenance ----------------------

func TestTickets_CreateAndList(t *testing.T) {
	f := newFixture(t)
	rr := post(t, f.handler, "/api/v1/tickets", `{"sensor_id":"`+f.sensorID+`"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("status: got %d, want 201 (body: %s)", rr.Code, rr.Body.String())
	}
	var ticket types.MaintenanceTicket
	decode(t, rr, &ticket)
	if ticket.Status != "open" {
		t.Errorf("status: got %q, want open", ticket.Status)
	}

	rr = get(t, f.handler, "/api/v1/sensors/"+f.sensorID+"/maintenance")
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	var tickets []types.MaintenanceTicket
	decode(t, rr, &tickets)
	if len(tickets) != 1 {
		t.Errorf("tickets: got %d, want 1", len(tickets))
	}
}

func TestTickets_UnknownSensor(t *testing.T) {
	f := newFixture(t)
	rr := post(t, f.handler, "/api/v1/tickets", `{"sensor_id":"nope"}`)
	if rr.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want 404", rr.Code)
	}
}

// --- /api/v1/assets ----------------------------------------------------------

func TestAssets_List(t *testing.T) {
	f := newFixture(t)
	rr := get(t, f.handler, "/api/v1/assets")
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	var assets []types.Asset
	decode(t, rr, &assets)
	if len(assets) != 1 {
		t.Fatalf("assets: got %d, want 1", len(assets))
	}
	if len(assets[0].Sensors) != 1 {
		t.Errorf("sensors: got %d, want 1", len(assets[0].Sensors))
	}
}

// --- /api/v1/verdicts ---------------------------------------------------------

func TestVerdicts_PostAndGet(t *testing.T) {
	f := newFixture(t)
	body := `{"sensor_id":"` + f.sensorID + `","status":"drifting","severity":"watch","rul_seconds":420,"latest_value":108.2,"window_size":80}`
	rr := post(t, f.handler, "/api/v1/verdicts", body)
	if rr.Code != http.StatusAccepted {
		t.Fatalf("status: got %d, want 202 (body: %s)", rr.Code, rr.Body.String())
	}

	rr = get(t, f.handler, "/api/v1/verdicts/"+f.sensorID)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	var v api.VerdictResponse
	decode(t, rr, &v)
	if v.Status != types.StatusDrifting {
		t.Errorf("status: got %q, want drifting", v.Status)
	}
	if v.RULSeconds != 420 {
		t.Errorf("rul_seconds: got %v, want 420", v.RULSeconds)
	}
	if v.ReceivedAt == "" {
		t.Error("received_at: missing")
	}

	rr = get(t, f.handler, "/api/v1/verdicts")
	var list []api.VerdictResponse
	decode(t, rr, &list)
	if len(list) != 1 {
		t.Errorf("verdicts: got %d, want 1", len(list))
	}
}

func TestVerdicts_GetUnknown(t *testing.T) {
	f := newFixture(t)
	rr := get(t, f.handler, "/api/v1/verdicts/nope")
	if rr.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want 404", rr.Code)
	}
}

func TestVerdicts_MissingSensorID(t *testing.T) {
	f := newFixture(t)
	rr := post(t, f.handler, "/api/v1/verdicts", `{"status":"stable"}`)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", rr.Code)
	}
}

// --- /api/v1/alerts -----------------------------------------------------------

func TestAlerts_FiresOnCriticalVerdict(t *testing.T) {
	st, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	vs := verdicts.New(5 * time.Minute)
	eng := alerts.New(config.AlertsConfig{
		Rules: []config.AlertRule{
			{Name: "critical-status", Condition: "status == critical", Severity: "critical"},
		},
	})
	h := api.New(st, vs, eng, config.AuthConfig{})

	rr := post(t, h, "/api/v1/verdicts",
		`{"sensor_id":"sensor-1","status":"critical","severity":"alarm","latest_value":118}`)
	if rr.Code != http.StatusAccepted {
		t.Fatalf("status: got %d, want 202", rr.Code)
	}

	rr = get(t, h, "/api/v1/alerts")
	var active []alerts.Alert
	decode(t, rr, &active)
	if len(active) != 1 {
		t.Fatalf("alerts: got %d, want 1", len(active))
	}
	if active[0].RuleName != "critical-status" {
		t.Errorf("rule_name: got %q, want critical-status", active[0].RuleName)
	}
}

// --- /api/v1/health -----------------------------------------------------------

func TestHealth_OK(t *testing.T) {
	f := newFixture(t)
	rr := get(t, f.handler, "/api/v1/health")
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	var resp api.HealthResponse
	decode(t, rr, &resp)
	if resp.Status != "ok" {
		t.Errorf("status: got %q, want ok", resp.Status)
	}
}

// --- auth ---------------------------------------------------------------------

func TestAuth_RejectsMissingKey(t *testing.T) {
	t.Setenv("FLEETPULSE_API_KEY", "secret")

	st, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	h := api.New(st, verdicts.New(time.Minute), alerts.New(config.AlertsConfig{}),
		config.AuthConfig{Mode: "apikey", KeyEnv: "FLEETPULSE_API_KEY"})

	rr := post(t, h, "/api/v1/verdicts", `{"sensor_id":"sensor-1","status":"stable"}`)
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("without key: status got %d, want 401", rr.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/verdicts",
		strings.NewReader(`{"sensor_id":"sensor-1","status":"stable"}`))
	req.Header.Set("X-API-Key", "secret")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusAccepted {
		t.Errorf("with key: status got %d, want 202", rec.Code)
	}

	// Reads stay open.
	rr = get(t, h, "/api/v1/verdicts")
	if rr.Code != http.StatusOK {
		t.Errorf("read with auth enabled: status got %d, want 200", rr.Code)
	}
}
