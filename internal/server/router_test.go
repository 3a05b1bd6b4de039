package server

import (
	"context"
	"testing"
	"time"

	"github.com/Tyrowin/roomrelay/internal/mocks"
	"github.com/Tyrowin/roomrelay/internal/store"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func newRouterFixture(t *testing.T) (*Router, *Registry, *mocks.MockChatStore) {
	t.Helper()
	ctrl := gomock.NewController(t)
	chats := mocks.NewMockChatStore(ctrl)
	registry := NewRegistry(testLog)
	broadcaster := NewBroadcaster(testLog, chats, registry, time.Second)
	return NewRouter(testLog, NewMembership(testLog), broadcaster), registry, chats
}

func TestRoute_JoinAndLeave(t *testing.T) {
	req := require.New(t)
	router, registry, _ := newRouterFixture(t)
	s := newTestSession(t, "u1")
	registry.Add(s)
	ctx := context.Background()

	router.Route(ctx, s, []byte(`{"type":"join_room","roomId":"r1"}`))
	router.Route(ctx, s, []byte(`{"type":"join_room","roomId":"r1"}`))
	req.Equal([]string{"r1"}, s.Rooms())

	router.Route(ctx, s, []byte(`{"type":"leave_room","roomId":"r1"}`))
	req.Empty(s.Rooms())

	router.Route(ctx, s, []byte(`{"type":"leave_room","roomId":"r1"}`))
	req.Empty(s.Rooms())

	// No acknowledgment frames for membership changes
	req.Empty(drain(s))
}

func TestRoute_ChatIsPersistedThenDelivered(t *testing.T) {
	req := require.New(t)
	router, registry, chats := newRouterFixture(t)
	s := newTestSession(t, "u2")
	registry.Add(s)
	s.join("room-42")

	chats.EXPECT().Append(gomock.Any(), store.ChatMessage{
		RoomID:  "room-42",
		UserID:  "u2",
		Message: "hello",
	}).Return(store.ChatMessage{}, nil).Times(1)

	router.Route(context.Background(), s, []byte(`{"type":"chat","roomId":"room-42","message":"hello"}`))

	frames := drain(s)
	req.Len(frames, 1)
	req.JSONEq(`{"type":"chat","roomId":"room-42","message":"hello"}`, string(frames[0]))
}

func TestRoute_DropsInvalidFrames(t *testing.T) {
	// No Append expectation: any persistence call fails the test.
	router, registry, _ := newRouterFixture(t)
	s := newTestSession(t, "u1")
	registry.Add(s)
	s.join("room-42")

	frames := []struct {
		name string
		raw  string
	}{
		{"not json", `hello there`},
		{"truncated json", `{"type":"chat"`},
		{"json array", `["chat","room-42","hi"]`},
		{"unknown type", `{"type":"typing","roomId":"room-42"}`},
		{"missing type", `{"roomId":"room-42","message":"hi"}`},
		{"join without room", `{"type":"join_room"}`},
		{"leave without room", `{"type":"leave_room","roomId":""}`},
		{"chat without message", `{"type":"chat","roomId":"room-42"}`},
		{"chat with empty message", `{"type":"chat","roomId":"room-42","message":""}`},
		{"chat without room", `{"type":"chat","message":"hi"}`},
		{"wrong field types", `{"type":"chat","roomId":42,"message":"hi"}`},
	}

	for _, tt := range frames {
		t.Run(tt.name, func(t *testing.T) {
			router.Route(context.Background(), s, []byte(tt.raw))
			require.Empty(t, drain(s))
			require.Equal(t, []string{"room-42"}, s.Rooms())
		})
	}

	// The session is still registered and usable
	_, found := registry.Find(s.ID())
	require.True(t, found)
}
