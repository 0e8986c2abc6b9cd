// Package ws implements the WebSocket hub for fleetpulse-server.
//
// Hub manages a set of connected clients and broadcasts the current live
// verdict set to all of them on a configurable interval (default 2s in
// production).
//
// New(verdicts, interval) creates a Hub.
// Hub.Run(ctx) starts the broadcast ticker — blocks until ctx is cancelled,
// then closes all active connections.
// Hub.ServeHTTP upgrades an HTTP connection to WebSocket, sends the current
// verdicts immediately on connect, then streams updates on each tick.
//
// Message format sent to clients:
//
//	{
//	  "event": "verdicts",
//	  "at":    "2026-08-28T12:00:00Z",
//	  "data":  [ /* same schema as GET /api/v1/verdicts */ ]
//	}
//
// The upgrader accepts all origins. Apply CORS restrictions at the reverse
// proxy level. WebSocket endpoint is mounted at /ws/feed by the server.
package ws
