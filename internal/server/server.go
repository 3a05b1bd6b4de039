package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/Tyrowin/roomrelay/internal/auth"
	"github.com/Tyrowin/roomrelay/internal/store"
	"github.com/gorilla/websocket"
)

// Relay wires authentication, the session registry, and message routing
// behind the HTTP handlers.
type Relay struct {
	cfg      Config
	log      *slog.Logger
	verifier auth.Verifier
	registry *Registry
	router   *Router
	upgrader websocket.Upgrader

	// ctx bounds in-flight persistence writes; it ends on Shutdown.
	ctx    context.Context
	cancel context.CancelFunc
}

func NewRelay(cfg Config, log *slog.Logger, verifier auth.Verifier, chats store.ChatStore) *Relay {
	registry := NewRegistry(log)
	broadcaster := NewBroadcaster(log, chats, registry, cfg.PersistTimeout)
	router := NewRouter(log, NewMembership(log), broadcaster)
	origins := newOriginPolicy(log, cfg.Origins())

	ctx, cancel := context.WithCancel(context.Background())
	return &Relay{
		cfg:      cfg,
		log:      log,
		verifier: verifier,
		registry: registry,
		router:   router,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     origins.checkOrigin,
		},
		ctx:    ctx,
		cancel: cancel,
	}
}

// Registry exposes the live session table, e.g. for health reporting.
func (r *Relay) Registry() *Registry {
	return r.registry
}

// attach registers s and starts its pumps. The read pump removes the session
// when the transport closes.
func (r *Relay) attach(s *Session) {
	r.registry.Add(s)
	r.registry.Go(s.writePump)
	r.registry.Go(func() {
		s.readPump(r.ctx, r.router, func() { r.registry.Remove(s.id) })
	})
}

// Shutdown cancels pending persistence writes, closes all sessions, and waits
// for their goroutines.
func (r *Relay) Shutdown(timeout time.Duration) error {
	r.log.Info("Initiating relay shutdown...")
	r.cancel()
	return r.registry.Shutdown(timeout)
}
