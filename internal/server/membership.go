package server

import "log/slog"

// Membership applies join and leave commands to the session that sent them.
type Membership struct {
	log *slog.Logger
}

func NewMembership(log *slog.Logger) *Membership {
	return &Membership{log: log}
}

// Join adds room to the session's set; it reports false if already joined.
func (m *Membership) Join(s *Session, room string) bool {
	added := s.join(room)
	if added {
		m.log.Debug("Joined room", "session_id", s.id, "room_id", room)
	}
	return added
}

// Leave removes room from the session's set; it reports false if it was not joined.
func (m *Membership) Leave(s *Session, room string) bool {
	removed := s.leave(room)
	if removed {
		m.log.Debug("Left room", "session_id", s.id, "room_id", room)
	}
	return removed
}
