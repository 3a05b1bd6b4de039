package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Tyrowin/roomrelay/internal/store"
	"github.com/samber/lo"
)

// Broadcaster persists chat messages and fans them out to room members.
type Broadcaster struct {
	log            *slog.Logger
	store          store.ChatStore
	registry       *Registry
	persistTimeout time.Duration
}

func NewBroadcaster(log *slog.Logger, chats store.ChatStore, registry *Registry, persistTimeout time.Duration) *Broadcaster {
	return &Broadcaster{
		log:            log,
		store:          chats,
		registry:       registry,
		persistTimeout: persistTimeout,
	}
}

// Deliver persists the message and, only once that succeeds, queues a chat
// frame for every session currently in room, the origin included. Send
// failures are isolated per recipient and never returned.
func (b *Broadcaster) Deliver(ctx context.Context, origin *Session, room, message string) error {
	persistCtx, cancel := context.WithTimeout(ctx, b.persistTimeout)
	defer cancel()

	_, err := b.store.Append(persistCtx, store.ChatMessage{
		RoomID:  room,
		UserID:  origin.userID,
		Message: message,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	payload, err := json.Marshal(ChatFrame{Type: CommandChat, RoomID: room, Message: message})
	if err != nil {
		return err
	}

	recipients := lo.Filter(b.registry.Sessions(), func(s *Session, _ int) bool {
		return s.InRoom(room)
	})

	delivered := 0
	for _, s := range recipients {
		if b.send(s, payload) {
			delivered++
		}
	}

	b.log.Debug("Chat delivered", "room_id", room, "user_id", origin.userID,
		"recipients", len(recipients), "delivered", delivered)
	return nil
}

// send queues payload on s. A recipient whose buffer is full is treated as
// disconnecting and evicted.
func (b *Broadcaster) send(s *Session, payload []byte) bool {
	err := s.enqueue(payload)
	if err == nil {
		return true
	}

	if errors.Is(err, ErrSendBufferFull) {
		b.log.Warn("Evicting session with full send buffer", "session_id", s.id, "addr", s.addr)
		b.registry.Remove(s.id)
		return false
	}

	b.log.Debug("Skipping closed session", "session_id", s.id, "error", err)
	return false
}
