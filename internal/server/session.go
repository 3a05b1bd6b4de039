// Package server manages individual relay sessions, handling read/write
// pumps, rate limiting, and room membership state for each connection.
package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/samber/lo"
)

const (
	pongWait     = 60 * time.Second
	pingInterval = 54 * time.Second
	writeWait    = 10 * time.Second
)

// SessionID is the connection handle; no two live sessions share one.
type SessionID string

// Session is one authenticated connection and the rooms it has joined.
type Session struct {
	id     SessionID
	userID string
	addr   string
	conn   *websocket.Conn
	log    *slog.Logger

	send   chan []byte
	sendMu sync.Mutex
	closed bool

	// rooms is written only by this session's read pump but read by
	// broadcasters running on other sessions' goroutines.
	roomsMu sync.RWMutex
	rooms   map[string]struct{}

	maxMessageSize int64
	rateLimiter    *rateLimiter
}

// NewSession creates a Session for an authenticated user. conn may be nil in
// tests that only exercise membership and delivery.
func NewSession(conn *websocket.Conn, userID, addr string, cfg Config, log *slog.Logger) *Session {
	if conn != nil {
		conn.SetReadLimit(cfg.MaxMessageSize)
	}
	id := SessionID(uuid.NewString())

	return &Session{
		id:             id,
		userID:         userID,
		addr:           addr,
		conn:           conn,
		log:            log.With("session_id", id, "user_id", userID),
		send:           make(chan []byte, cfg.SendBufferSize),
		rooms:          make(map[string]struct{}),
		maxMessageSize: cfg.MaxMessageSize,
		rateLimiter:    newRateLimiter(cfg.RateLimitBurst, cfg.RateLimitRefillInterval),
	}
}

func (s *Session) ID() SessionID  { return s.id }
func (s *Session) UserID() string { return s.userID }

// SendChan exposes queued outbound frames.
func (s *Session) SendChan() <-chan []byte {
	return s.send
}

// InRoom reports whether the session has joined room.
func (s *Session) InRoom(room string) bool {
	s.roomsMu.RLock()
	defer s.roomsMu.RUnlock()
	_, ok := s.rooms[room]
	return ok
}

// Rooms returns the joined rooms in sorted order.
func (s *Session) Rooms() []string {
	s.roomsMu.RLock()
	rooms := lo.Keys(s.rooms)
	s.roomsMu.RUnlock()

	slices.Sort(rooms)
	return rooms
}

func (s *Session) join(room string) bool {
	s.roomsMu.Lock()
	defer s.roomsMu.Unlock()
	if _, ok := s.rooms[room]; ok {
		return false
	}
	s.rooms[room] = struct{}{}
	return true
}

func (s *Session) leave(room string) bool {
	s.roomsMu.Lock()
	defer s.roomsMu.Unlock()
	if _, ok := s.rooms[room]; !ok {
		return false
	}
	delete(s.rooms, room)
	return true
}

// enqueue queues payload without blocking.
func (s *Session) enqueue(payload []byte) error {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()

	if s.closed {
		return ErrSessionClosed
	}

	select {
	case s.send <- payload:
		return nil
	default:
		return ErrSendBufferFull
	}
}

// closeSend closes the send channel once; the write pump then sends a close
// frame and tears down the connection.
func (s *Session) closeSend() bool {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()

	if s.closed {
		return false
	}
	s.closed = true
	close(s.send)
	return true
}

// closeConnection safely closes the WebSocket connection with proper error handling
func (s *Session) closeConnection() {
	if s.conn == nil {
		return
	}
	if err := s.conn.Close(); err != nil && !isExpectedCloseError(err) {
		s.log.Debug("Error closing connection", "error", err)
	}
}

// setupReadConnection configures read deadlines and pong handler for the WebSocket connection
func (s *Session) setupReadConnection() {
	if err := s.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		s.log.Warn("Error setting initial read deadline", "addr", s.addr, "error", err)
	}
	s.conn.SetPongHandler(func(string) error {
		if err := s.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
			s.log.Warn("Error setting read deadline in pong handler", "addr", s.addr, "error", err)
		}
		return nil
	})
}

// logReadError reports why the read loop is ending.
func (s *Session) logReadError(err error) {
	switch {
	case errors.Is(err, websocket.ErrReadLimit):
		s.log.Warn("Frame exceeded maximum size", "addr", s.addr, "max_bytes", s.maxMessageSize)
	case websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure):
		s.log.Info("Client disconnected", "addr", s.addr, "error", err)
	case errors.Is(err, io.EOF) || isExpectedCloseError(err):
		s.log.Info("Client connection closed", "addr", s.addr, "error", err)
	case websocket.IsUnexpectedCloseError(err,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure,
		websocket.CloseMessageTooBig):
		s.log.Warn("Unexpected close", "addr", s.addr, "error", err)
	default:
		s.log.Warn("Read error", "addr", s.addr, "error", err)
	}
}

// readPump hands frames to the router one at a time, so frames of a session
// are processed in the order they arrived. onClose runs exactly once when
// the loop exits.
func (s *Session) readPump(ctx context.Context, router *Router, onClose func()) {
	defer func() {
		onClose()
		s.closeConnection()
	}()

	s.setupReadConnection()

	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			s.logReadError(err)
			return
		}

		if !s.rateLimiter.allow() {
			s.log.Warn("Rate limit exceeded; discarding frame", "addr", s.addr)
			continue
		}

		router.Route(ctx, s, raw)
	}
}

func (s *Session) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		s.closeConnection()
	}()

	for s.processWriteEvent(ticker) {
	}
}

// processWriteEvent waits for the next write event and returns false when the
// pump should stop processing.
func (s *Session) processWriteEvent(ticker *time.Ticker) bool {
	select {
	case message, ok := <-s.send:
		return s.handleMessage(message, ok)
	case <-ticker.C:
		return s.handlePing()
	}
}

// handleMessage writes one outbound frame, or the close frame once send is closed.
func (s *Session) handleMessage(message []byte, ok bool) bool {
	if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		s.log.Warn("Error setting write deadline", "addr", s.addr, "error", err)
		return false
	}

	if !ok {
		if err := s.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil && !isExpectedCloseError(err) {
			s.log.Debug("Error writing close message", "addr", s.addr, "error", err)
		}
		return false
	}

	// Each chat frame is its own websocket message so clients can decode it as one JSON value.
	if err := s.conn.WriteMessage(websocket.TextMessage, message); err != nil {
		if !isExpectedCloseError(err) {
			s.log.Warn("Error writing frame", "addr", s.addr, "error", err)
		}
		return false
	}
	return true
}

// handlePing sends a ping message to keep the connection alive
func (s *Session) handlePing() bool {
	if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		s.log.Warn("Error setting write deadline for ping", "addr", s.addr, "error", err)
		return false
	}
	if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
		if !isExpectedCloseError(err) {
			s.log.Warn("Error writing ping", "addr", s.addr, "error", err)
		}
		return false
	}
	return true
}
