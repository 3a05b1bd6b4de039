package server

import "errors"

var (
	ErrPersistence    = errors.New("chat message could not be persisted")
	ErrSessionClosed  = errors.New("session is closed")
	ErrSendBufferFull = errors.New("session send buffer is full")
)
