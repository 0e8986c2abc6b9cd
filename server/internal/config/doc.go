// Package config loads the server-side configuration from config/server.yaml.
//
// Config fields:
//   - Server.HTTPPort            — port for the REST API and WebSocket hub (default 8080)
//   - Server.Auth.Mode           — "apikey" or "none"
//   - Server.Auth.KeyEnv         — environment variable holding the expected API key
//   - Server.Auth.Header         — HTTP header name (default "X-API-Key")
//   - Storage.Path               — SQLite database file (default "fleetpulse.db")
//   - Verdicts.TTL               — how long a sensor's verdict remains live (default 30s)
//   - Verdicts.BroadcastInterval — WebSocket push cadence (default 2s)
//   - Alerts.Rules / Webhooks    — alert rules and delivery targets
//
// Load(path) applies defaults before unmarshalling, then validates.
package config
