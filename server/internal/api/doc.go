// Package api implements the HTTP REST API for fleetpulse-server.
//
// New(store, verdicts, engine, auth) returns an http.Handler that serves:
//
//	POST /api/v1/ingest                    — append one sensor reading
//	GET  /api/v1/sensors/{id}/readings     — recent readings, newest first
//	GET  /api/v1/sensors/{id}/maintenance  — recent maintenance tickets
//	GET  /api/v1/assets                    — all assets with their sensors
//	POST /api/v1/tickets                   — open a maintenance ticket
//	POST /api/v1/verdicts                  — ingest a monitor cycle report
//	GET  /api/v1/verdicts                  — all live verdicts
//	GET  /api/v1/verdicts/{id}             — live verdict for one sensor
//	GET  /api/v1/alerts                    — firing + recently resolved alerts
//	GET  /api/v1/health                    — storage reachability + live counts
//
// All endpoints respond with Content-Type: application/json. Mutating routes
// require the configured API key when auth mode is "apikey". Incoming verdicts
// update the in-memory live store and are evaluated against the alert rules.
//
// JSON request and response types are defined in types.go.
package api
