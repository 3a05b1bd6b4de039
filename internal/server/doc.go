// Package server implements the real-time room relay.
//
// A Relay authenticates each WebSocket connection once, keeps one Session per
// connection in the Registry, and routes every inbound frame through the
// Router: join_room and leave_room change the sender's own room set, chat is
// persisted through the store and then fanned out by the Broadcaster to every
// session in the target room.
package server
