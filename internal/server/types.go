package server

import "strings"

// CommandType tags an inbound frame.
type CommandType string

const (
	CommandJoinRoom  CommandType = "join_room"
	CommandLeaveRoom CommandType = "leave_room"
	CommandChat      CommandType = "chat"
)

// Command is the JSON frame a client sends to the relay.
type Command struct {
	Type    CommandType `json:"type" validate:"required,oneof=join_room leave_room chat"`
	RoomID  string      `json:"roomId" validate:"required"`
	Message string      `json:"message,omitempty" validate:"required_if=Type chat"`
}

// ChatFrame is the JSON frame fanned out to room members.
type ChatFrame struct {
	Type    CommandType `json:"type"`
	RoomID  string      `json:"roomId"`
	Message string      `json:"message"`
}

// isExpectedCloseError checks if an error is expected during connection closure.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "use of closed network connection") ||
		strings.Contains(errStr, "websocket: close sent") ||
		strings.Contains(errStr, "broken pipe")
}
