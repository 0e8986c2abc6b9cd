package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/fleetpulse/fleetpulse/pkg/types"
	"github.com/fleetpulse/fleetpulse/server/internal/alerts"
	"github.com/fleetpulse/fleetpulse/server/internal/config"
	"github.com/fleetpulse/fleetpulse/server/internal/store"
	"github.com/fleetpulse/fleetpulse/server/internal/verdicts"
)

const (
	defaultReadingsLimit    = 100
	defaultMaintenanceLimit = 5
	maxListLimit            = 1000
)

// Handler is the HTTP handler for all /api/v1/* endpoints.
// Reads and writes go to the SQLite store; live verdicts come from the
// in-memory verdict store; incoming verdicts are also fed to the alert engine.
type Handler struct {
	store    *store.Store
	verdicts *verdicts.Store
	engine   *alerts.Engine
	auth     config.AuthConfig
	router   *mux.Router
}

// New creates a Handler and registers all routes. Mutating routes require the
// configured API key when auth mode is "apikey".
func New(st *store.Store, vs *verdicts.Store, eng *alerts.Engine, auth config.AuthConfig) http.Handler {
	h := &Handler{
		store:    st,
		verdicts: vs,
		engine:   eng,
		auth:     auth,
		router:   mux.NewRouter(),
	}

	v1 := h.router.PathPrefix("/api/v1").Subrouter()
	v1.HandleFunc("/health", h.health).Methods(http.MethodGet)
	v1.HandleFunc("/assets", h.listAssets).Methods(http.MethodGet)
	v1.HandleFunc("/sensors/{id}/readings", h.sensorReadings).Methods(http.MethodGet)
	v1.HandleFunc("/sensors/{id}/maintenance", h.sensorMaintenance).Methods(http.MethodGet)
	v1.HandleFunc("/verdicts", h.listVerdicts).Methods(http.MethodGet)
	v1.HandleFunc("/verdicts/{id}", h.getVerdict).Methods(http.MethodGet)
	v1.HandleFunc("/alerts", h.listAlerts).Methods(http.MethodGet)

	v1.Handle("/ingest", h.requireKey(http.HandlerFunc(h.ingest))).Methods(http.MethodPost)
	v1.Handle("/tickets", h.requireKey(http.HandlerFunc(h.createTicket))).Methods(http.MethodPost)
	v1.Handle("/verdicts", h.requireKey(http.HandlerFunc(h.putVerdict))).Methods(http.MethodPost)

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

// requireKey rejects mutating requests without the configured API key.
// A no-op when auth mode is not "apikey" or no key is set in the environment.
func (h *Handler) requireKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.auth.Mode == "apikey" {
			want := h.auth.Key()
			if want != "" && r.Header.Get(h.auth.EffectiveHeader()) != want {
				jsonErr(w, http.StatusUnauthorized, "invalid or missing api key")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// --- route handlers ---------------------------------------------------------

// health returns GET /api/v1/health — storage reachability and live counts.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:      "ok",
		LiveSensors: len(h.verdicts.List()),
	}
	if err := h.store.Ping(r.Context()); err != nil {
		resp.Status = "degraded"
		resp.Error = err.Error()
	}
	jsonResp(w, http.StatusOK, resp)
}

// ingest handles POST /api/v1/ingest — appends one sensor reading.
func (h *Handler) ingest(w http.ResponseWriter, r *http.Request) {
	var req IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonErr(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if req.SensorID == "" {
		jsonErr(w, http.StatusBadRequest, "sensor_id is required")
		return
	}
	if math.IsNaN(req.Value) || math.IsInf(req.Value, 0) {
		jsonErr(w, http.StatusBadRequest, "value must be a finite number")
		return
	}

	ok, err := h.store.SensorExists(r.Context(), req.SensorID)
	if err != nil {
		jsonErr(w, http.StatusInternalServerError, "storage error")
		return
	}
	if !ok {
		jsonErr(w, http.StatusNotFound, "unknown sensor")
		return
	}

	var ts time.Time
	if req.Timestamp != nil {
		ts = *req.Timestamp
	}
	id, err := h.store.InsertReading(r.Context(), req.SensorID, req.Value, ts)
	if err != nil {
		slog.Error("api: insert reading failed", "sensor", req.SensorID, "err", err)
		jsonErr(w, http.StatusInternalServerError, "storage error")
		return
	}
	jsonResp(w, http.StatusCreated, IngestResponse{ID: id, SensorID: req.SensorID})
}

// sensorReadings returns GET /api/v1/sensors/{id}/readings — the most recent
// readings for one sensor, newest first.
func (h *Handler) sensorReadings(w http.ResponseWriter, r *http.Request) {
	sensorID := mux.Vars(r)["id"]
	limit := queryLimit(r, defaultReadingsLimit)

	ok, err := h.store.SensorExists(r.Context(), sensorID)
	if err != nil {
		jsonErr(w, http.StatusInternalServerError, "storage error")
		return
	}
	if !ok {
		jsonErr(w, http.StatusNotFound, "unknown sensor")
		return
	}

	readings, err := h.store.RecentReadings(r.Context(), sensorID, limit)
	if err != nil {
		jsonErr(w, http.StatusInternalServerError, "storage error")
		return
	}
	jsonResp(w, http.StatusOK, readings)
}

// sensorMaintenance returns GET /api/v1/sensors/{id}/maintenance — the most
// recent maintenance tickets for one sensor, newest first.
func (h *Handler) sensorMaintenance(w http.ResponseWriter, r *http.Request) {
	sensorID := mux.Vars(r)["id"]
	limit := queryLimit(r, defaultMaintenanceLimit)

	ok, err := h.store.SensorExists(r.Context(), sensorID)
	if err != nil {
		jsonErr(w, http.StatusInternalServerError, "storage error")
		return
	}
	if !ok {
		jsonErr(w, http.StatusNotFound, "unknown sensor")
		return
	}

	tickets, err := h.store.RecentTickets(r.Context(), sensorID, limit)
	if err != nil {
		jsonErr(w, http.StatusInternalServerError, "storage error")
		return
	}
	jsonResp(w, http.StatusOK, tickets)
}

// listAssets returns GET /api/v1/assets — all assets with their sensors.
func (h *Handler) listAssets(w http.ResponseWriter, r *http.Request) {
	assets, err := h.store.ListAssets(r.Context())
	if err != nil {
		jsonErr(w, http.StatusInternalServerError, "storage error")
		return
	}
	jsonResp(w, http.StatusOK, assets)
}

// createTicket handles POST /api/v1/tickets — opens a maintenance ticket.
func (h *Handler) createTicket(w http.ResponseWriter, r *http.Request) {
	var req TicketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonErr(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if req.SensorID == "" {
		jsonErr(w, http.StatusBadRequest, "sensor_id is required")
		return
	}
	if req.Status == "" {
		req.Status = "open"
	}

	ticket, err := h.store.CreateTicket(r.Context(), req.SensorID, req.Status)
	if err != nil {
		if errors.Is(err, store.ErrUnknownSensor) {
			jsonErr(w, http.StatusNotFound, "unknown sensor")
			return
		}
		slog.Error("api: create ticket failed", "sensor", req.SensorID, "err", err)
		jsonErr(w, http.StatusInternalServerError, "storage error")
		return
	}
	jsonResp(w, http.StatusCreated, ticket)
}

// putVerdict handles POST /api/v1/verdicts — ingests one cycle report from a
// monitor, updates the live verdict store, and runs the alert rules against it.
func (h *Handler) putVerdict(w http.ResponseWriter, r *http.Request) {
	var report types.CycleReport
	if err := json.NewDecoder(r.Body).Decode(&report); err != nil {
		jsonErr(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if report.SensorID == "" {
		jsonErr(w, http.StatusBadRequest, "sensor_id is required")
		return
	}

	h.verdicts.Put(&report)
	h.engine.Evaluate(&report)
	jsonResp(w, http.StatusAccepted, AcceptedResponse{Accepted: true})
}

// listVerdicts returns GET /api/v1/verdicts — all live verdicts.
func (h *Handler) listVerdicts(w http.ResponseWriter, r *http.Request) {
	entries := h.verdicts.List()
	out := make([]VerdictResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, toVerdictResponse(e))
	}
	jsonResp(w, http.StatusOK, out)
}

// getVerdict returns GET /api/v1/verdicts/{id} — the live verdict for one sensor.
func (h *Handler) getVerdict(w http.ResponseWriter, r *http.Request) {
	sensorID := mux.Vars(r)["id"]
	e, ok := h.verdicts.Get(sensorID)
	if !ok {
		jsonErr(w, http.StatusNotFound, "no live verdict for sensor")
		return
	}
	jsonResp(w, http.StatusOK, toVerdictResponse(e))
}

// listAlerts returns GET /api/v1/alerts — firing and recently resolved alerts.
func (h *Handler) listAlerts(w http.ResponseWriter, r *http.Request) {
	jsonResp(w, http.StatusOK, h.engine.Active())
}

// --- helpers ----------------------------------------------------------------

func jsonResp(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, errorResponse{Error: msg})
}

// queryLimit parses the ?limit= query parameter, clamped to [1, maxListLimit].
func queryLimit(r *http.Request, def int) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return def
	}
	if n > maxListLimit {
		return maxListLimit
	}
	return n
}

// toVerdictResponse maps a verdicts.Entry to its JSON representation.
func toVerdictResponse(e *verdicts.Entry) VerdictResponse {
	return VerdictResponse{
		CycleReport: e.Report,
		ReceivedAt:  e.ReceivedAt.UTC().Format(time.RFC3339),
	}
}
