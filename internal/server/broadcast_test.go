package server

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/Tyrowin/roomrelay/internal/mocks"
	"github.com/Tyrowin/roomrelay/internal/store"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func newBroadcastFixture(t *testing.T) (*Broadcaster, *Registry, *mocks.MockChatStore) {
	t.Helper()
	ctrl := gomock.NewController(t)
	chats := mocks.NewMockChatStore(ctrl)
	registry := NewRegistry(testLog)
	return NewBroadcaster(testLog, chats, registry, time.Second), registry, chats
}

func decodeFrames(t *testing.T, frames [][]byte) []ChatFrame {
	t.Helper()
	decoded := make([]ChatFrame, 0, len(frames))
	for _, raw := range frames {
		var frame ChatFrame
		require.NoError(t, json.Unmarshal(raw, &frame))
		decoded = append(decoded, frame)
	}
	return decoded
}

func TestDeliver_OnlyRoomMembersReceive(t *testing.T) {
	req := require.New(t)
	broadcaster, registry, chats := newBroadcastFixture(t)

	a := newTestSession(t, "a")
	b := newTestSession(t, "b")
	c := newTestSession(t, "c")
	for _, s := range []*Session{a, b, c} {
		registry.Add(s)
	}
	a.join("general")
	b.join("general")
	c.join("random")

	chats.EXPECT().Append(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, message store.ChatMessage) (store.ChatMessage, error) {
			req.Equal("general", message.RoomID)
			req.Equal("a", message.UserID)
			req.Equal("hi", message.Message)
			return message, nil
		}).Times(1)

	req.NoError(broadcaster.Deliver(context.Background(), a, "general", "hi"))

	want := []ChatFrame{{Type: CommandChat, RoomID: "general", Message: "hi"}}
	req.Equal(want, decodeFrames(t, drain(a)), "sender receives its own message")
	req.Equal(want, decodeFrames(t, drain(b)))
	req.Empty(drain(c))
}

func TestDeliver_OutboundFrameShape(t *testing.T) {
	req := require.New(t)
	broadcaster, registry, chats := newBroadcastFixture(t)
	a := newTestSession(t, "a")
	registry.Add(a)
	a.join("room-42")

	chats.EXPECT().Append(gomock.Any(), gomock.Any()).Return(store.ChatMessage{}, nil)

	req.NoError(broadcaster.Deliver(context.Background(), a, "room-42", "hello"))
	frames := drain(a)
	req.Len(frames, 1)
	req.JSONEq(`{"type":"chat","roomId":"room-42","message":"hello"}`, string(frames[0]))
}

func TestDeliver_PersistenceFailureSuppressesBroadcast(t *testing.T) {
	req := require.New(t)
	broadcaster, registry, chats := newBroadcastFixture(t)

	a := newTestSession(t, "a")
	b := newTestSession(t, "b")
	registry.Add(a)
	registry.Add(b)
	a.join("general")
	b.join("general")

	chats.EXPECT().Append(gomock.Any(), gomock.Any()).
		Return(store.ChatMessage{}, errors.New("disk full")).Times(1)

	err := broadcaster.Deliver(context.Background(), a, "general", "hi")
	req.ErrorIs(err, ErrPersistence)

	req.Empty(drain(a))
	req.Empty(drain(b))
}

func TestDeliver_PersistenceIsBoundedByTimeout(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	chats := mocks.NewMockChatStore(ctrl)
	registry := NewRegistry(testLog)
	broadcaster := NewBroadcaster(testLog, chats, registry, 20*time.Millisecond)

	a := newTestSession(t, "a")
	registry.Add(a)
	a.join("general")

	chats.EXPECT().Append(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, _ store.ChatMessage) (store.ChatMessage, error) {
			<-ctx.Done()
			return store.ChatMessage{}, ctx.Err()
		})

	err := broadcaster.Deliver(context.Background(), a, "general", "slow")
	req.ErrorIs(err, ErrPersistence)
	req.Empty(drain(a))
}

func TestDeliver_FailedRecipientDoesNotAffectOthers(t *testing.T) {
	req := require.New(t)
	broadcaster, registry, chats := newBroadcastFixture(t)

	cfg := testConfig()
	cfg.SendBufferSize = 1
	slow := NewSession(nil, "slow", "127.0.0.1:1", cfg, testLog)
	closed := newTestSession(t, "closed")
	healthy := newTestSession(t, "healthy")
	for _, s := range []*Session{slow, closed, healthy} {
		registry.Add(s)
		s.join("general")
	}

	// slow's buffer is already full, closed is half torn down
	req.NoError(slow.enqueue([]byte("backlog")))
	closed.closeSend()

	chats.EXPECT().Append(gomock.Any(), gomock.Any()).Return(store.ChatMessage{}, nil)

	req.NoError(broadcaster.Deliver(context.Background(), healthy, "general", "hi"))

	req.Len(drain(healthy), 1)

	// The slow recipient is evicted as if it disconnected
	_, found := registry.Find(slow.ID())
	req.False(found)
	req.Equal([][]byte{[]byte("backlog")}, drain(slow))
}

func TestDeliver_EmptyRoomPersistsWithoutRecipients(t *testing.T) {
	req := require.New(t)
	broadcaster, registry, chats := newBroadcastFixture(t)
	a := newTestSession(t, "a")
	registry.Add(a)

	chats.EXPECT().Append(gomock.Any(), gomock.Any()).Return(store.ChatMessage{}, nil)

	req.NoError(broadcaster.Deliver(context.Background(), a, "nobody-here", "echo?"))
	req.Empty(drain(a))
}
