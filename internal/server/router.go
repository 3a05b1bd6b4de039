package server

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/go-playground/validator/v10"
)

// Router decodes inbound frames and dispatches them. Bad frames are dropped
// and never close the connection.
type Router struct {
	log         *slog.Logger
	validate    *validator.Validate
	membership  *Membership
	broadcaster *Broadcaster
}

func NewRouter(log *slog.Logger, membership *Membership, broadcaster *Broadcaster) *Router {
	return &Router{
		log:         log,
		validate:    validator.New(),
		membership:  membership,
		broadcaster: broadcaster,
	}
}

// Route handles one raw frame from s.
func (r *Router) Route(ctx context.Context, s *Session, raw []byte) {
	command, ok := r.decode(s, raw)
	if !ok {
		return
	}

	switch command.Type {
	case CommandJoinRoom:
		r.membership.Join(s, command.RoomID)
	case CommandLeaveRoom:
		r.membership.Leave(s, command.RoomID)
	case CommandChat:
		if err := r.broadcaster.Deliver(ctx, s, command.RoomID, command.Message); err != nil {
			r.log.Error("Chat not delivered", "session_id", s.id, "user_id", s.userID,
				"room_id", command.RoomID, "error", err)
		}
	}
}

func (r *Router) decode(s *Session, raw []byte) (Command, bool) {
	var command Command
	if err := json.Unmarshal(raw, &command); err != nil {
		r.log.Debug("Dropping unparseable frame", "session_id", s.id, "error", err)
		return Command{}, false
	}
	if err := r.validate.Struct(command); err != nil {
		r.log.Debug("Dropping invalid frame", "session_id", s.id, "type", command.Type, "error", err)
		return Command{}, false
	}
	return command, true
}
