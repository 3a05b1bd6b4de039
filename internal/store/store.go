//go:generate go run go.uber.org/mock/mockgen -source=store.go -destination=../mocks/mock_chat_store.go -package=mocks

// Package store persists chat messages for the relay and reads them back for
// history tooling. The relay itself only ever appends.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	ErrEmptyRoom      = errors.New("room id is empty")
	ErrUnknownDriver  = errors.New("unknown store driver")
	ErrInvalidMessage = errors.New("invalid chat message")
)

const (
	DriverBadger = "badger"
	DriverBolt   = "bolt"

	DefaultBadgerPath = "./data/badger"
	DefaultBoltPath   = "./data/relay.db"
)

// DefaultPath is the on-disk location a driver uses when none is configured.
func DefaultPath(driver string) string {
	if driver == DriverBolt {
		return DefaultBoltPath
	}
	return DefaultBadgerPath
}

// ChatMessage is one persisted chat line.
type ChatMessage struct {
	ID        uuid.UUID `json:"id"`
	RoomID    string    `json:"roomId"`
	UserID    string    `json:"userId"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}

// ChatStore is the durable chat history collaborator.
type ChatStore interface {
	// Append writes message and returns it with ID and CreatedAt filled in.
	Append(ctx context.Context, message ChatMessage) (ChatMessage, error)
	// History returns up to limit messages of a room, newest first.
	// A limit <= 0 returns everything.
	History(ctx context.Context, roomID string, limit int) ([]ChatMessage, error)
	Close() error
}

// Options selects and configures a backend.
type Options struct {
	Driver   string
	Path     string
	ReadOnly bool
	InMemory bool
}

// Open returns the backend named by opts.Driver.
func Open(opts Options) (ChatStore, error) {
	switch opts.Driver {
	case DriverBadger, "":
		return OpenBadger(opts)
	case DriverBolt:
		return OpenBolt(opts)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, opts.Driver)
	}
}

// prepare validates message and fills the fields the store owns.
func prepare(message ChatMessage) (ChatMessage, error) {
	if message.RoomID == "" {
		return ChatMessage{}, ErrEmptyRoom
	}
	if message.UserID == "" || message.Message == "" {
		return ChatMessage{}, ErrInvalidMessage
	}
	if message.ID == uuid.Nil {
		message.ID = uuid.New()
	}
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now().UTC()
	}
	return message, nil
}

// sortKey orders messages chronologically; the uuid breaks ties within a nanosecond.
func sortKey(message ChatMessage) string {
	return fmt.Sprintf("%019d:%s", message.CreatedAt.UnixNano(), message.ID)
}
