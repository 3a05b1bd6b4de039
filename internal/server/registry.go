// Package server tracks live sessions and coordinates their shutdown via the
// Registry type.
package server

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/samber/lo"
)

// Registry owns every live Session, keyed by connection handle. Callers keep
// only their own *Session; the registry never hands out its map.
type Registry struct {
	log      *slog.Logger
	mu       sync.RWMutex
	sessions map[SessionID]*Session
	wg       sync.WaitGroup
}

func NewRegistry(log *slog.Logger) *Registry {
	return &Registry{
		log:      log,
		sessions: make(map[SessionID]*Session),
	}
}

// Add registers s. Adding a session whose handle is already present is a no-op.
func (r *Registry) Add(s *Session) {
	r.mu.Lock()
	if _, exists := r.sessions[s.id]; exists {
		r.mu.Unlock()
		return
	}
	r.sessions[s.id] = s
	count := len(r.sessions)
	r.mu.Unlock()

	r.log.Info("Session registered", "session_id", s.id, "user_id", s.userID, "sessions", count)
}

// Remove unregisters the session and closes its send queue. It reports
// whether a session was removed; duplicate removals are no-ops.
func (r *Registry) Remove(id SessionID) bool {
	r.mu.Lock()
	s, ok := r.sessions[id]
	if ok {
		delete(r.sessions, id)
	}
	count := len(r.sessions)
	r.mu.Unlock()

	if !ok {
		return false
	}

	// Close the channel after releasing the lock
	s.closeSend()
	r.log.Info("Session unregistered", "session_id", id, "user_id", s.userID, "sessions", count)
	return true
}

// Find looks a session up by connection handle.
func (r *Registry) Find(id SessionID) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

// Sessions returns a snapshot of all live sessions.
func (r *Registry) Sessions() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return lo.Values(r.sessions)
}

// Count returns the number of live sessions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Go runs fn as a tracked goroutine so Shutdown can wait for it.
func (r *Registry) Go(fn func()) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		fn()
	}()
}

// closeAll closes every live connection; read pumps then remove their sessions.
func (r *Registry) closeAll() int {
	sessions := r.Sessions()
	for _, s := range sessions {
		if s.conn == nil {
			r.Remove(s.id)
			continue
		}
		s.closeConnection()
	}
	return len(sessions)
}

// Shutdown closes all connections and waits for their pumps to finish, or
// until timeout elapses.
func (r *Registry) Shutdown(timeout time.Duration) error {
	r.log.Info("Shutting down all sessions...")
	closed := r.closeAll()
	r.log.Info("Closed session connections", "count", closed)

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.log.Info("Registry shutdown completed successfully")
		return nil
	case <-time.After(timeout):
		r.log.Warn("Registry shutdown timeout reached, some goroutines may still be running")
		return context.DeadlineExceeded
	}
}
