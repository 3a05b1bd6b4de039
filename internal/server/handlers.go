// Package server exposes HTTP handlers, including the authenticated
// WebSocket upgrade and health checks.
package server

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// WebSocketHandler authenticates the ?token= credential and upgrades the
// request. Authentication failures are answered with 401 before any upgrade,
// so no session is ever created for them.
func (r *Relay) WebSocketHandler(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		http.Error(w, "Method not allowed. WebSocket endpoint only accepts GET requests.", http.StatusMethodNotAllowed)
		return
	}

	userID, err := r.verifier.Verify(req.URL.Query().Get("token"))
	if err != nil {
		r.log.Warn("Rejected connection", "addr", req.RemoteAddr, "error", err)
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := r.upgrader.Upgrade(w, req, nil)
	if err != nil {
		r.log.Warn("WebSocket upgrade failed", "addr", req.RemoteAddr, "error", err)
		return
	}

	r.attach(NewSession(conn, userID, req.RemoteAddr, r.cfg, r.log))
}

// HealthHandler provides a simple liveness endpoint that returns server status.
func HealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprintf(w, "Room relay is running!")
}

// StatusHandler reports the number of live sessions as JSON.
func (r *Relay) StatusHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	status := map[string]any{
		"status":   "ok",
		"sessions": r.registry.Count(),
	}
	if err := json.NewEncoder(w).Encode(status); err != nil {
		r.log.Warn("Error writing status response", "error", err)
	}
}
