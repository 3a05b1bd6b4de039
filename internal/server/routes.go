package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// SetupRoutes configures the relay's HTTP routes.
func (r *Relay) SetupRoutes() http.Handler {
	router := chi.NewRouter()
	router.Get("/", HealthHandler)
	router.Get("/health", r.StatusHandler)
	router.Get("/ws", r.WebSocketHandler)
	return router
}
