package server

import (
	"net/http"
	"testing"

	"github.com/Tyrowin/roomrelay/internal/auth"
	"github.com/Tyrowin/roomrelay/internal/mocks"
	"github.com/Tyrowin/roomrelay/internal/testhelpers"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestWebSocketHandler_VerifiesTokenOncePerConnection(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	verifier := mocks.NewMockVerifier(ctrl)
	verifier.EXPECT().Verify("token-u1").Return("u1", nil).Times(1)

	f := startRelayFixture(t, testConfig(), verifier)
	conn, _, err := testhelpers.Dial(testhelpers.WebSocketURL(t, f.server.URL, "token-u1"), f.server.URL)
	req.NoError(err)
	t.Cleanup(func() { _ = conn.Close() })
	f.waitForSessions(t, 1)

	sessions := f.relay.registry.Sessions()
	req.Len(sessions, 1)
	req.Equal("u1", sessions[0].UserID())

	// Later frames run under the identity fixed at connect time.
	testhelpers.SendJSON(t, conn, Command{Type: CommandJoinRoom, RoomID: "r"})
	testhelpers.SendJSON(t, conn, Command{Type: CommandChat, RoomID: "r", Message: "hi"})
	req.Equal("hi", testhelpers.ReceiveJSON(t, conn, readTimeout)["message"])

	history, err := f.chats.History(t.Context(), "r", 0)
	req.NoError(err)
	req.Len(history, 1)
	req.Equal("u1", history[0].UserID)
}

func TestWebSocketHandler_VerifierRejection(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	verifier := mocks.NewMockVerifier(ctrl)
	verifier.EXPECT().Verify("stale").Return("", auth.ErrInvalidToken).Times(1)

	f := startRelayFixture(t, testConfig(), verifier)
	conn, resp, err := testhelpers.Dial(testhelpers.WebSocketURL(t, f.server.URL, "stale"), f.server.URL)
	req.Error(err)
	req.Nil(conn)
	req.NotNil(resp)
	req.Equal(http.StatusUnauthorized, resp.StatusCode)
	req.Equal(0, f.relay.registry.Count())
}
