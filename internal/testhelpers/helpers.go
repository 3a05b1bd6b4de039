// Package testhelpers provides websocket and token utilities shared by the
// relay's tests.
package testhelpers

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/Tyrowin/roomrelay/internal/auth"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

// Secret is the signing secret used by test relays.
const Secret = "test-secret-with-enough-entropy"

// IssueToken signs a one-hour token for userID with Secret.
func IssueToken(t *testing.T, userID string) string {
	t.Helper()
	token, err := auth.GenerateToken(Secret, userID, time.Hour)
	require.NoError(t, err)
	return token
}

// WebSocketURL turns an httptest server URL into the relay endpoint URL
// carrying token.
func WebSocketURL(t *testing.T, serverURL, token string) string {
	t.Helper()
	u, err := url.Parse(serverURL)
	require.NoError(t, err)
	u.Scheme = strings.Replace(u.Scheme, "http", "ws", 1)
	u.Path = "/ws"
	if token != "" {
		u.RawQuery = url.Values{"token": []string{token}}.Encode()
	}
	return u.String()
}

// Dial opens a relay connection. The response is returned so callers can
// inspect handshake failures.
func Dial(rawURL, origin string) (*websocket.Conn, *http.Response, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: 5 * time.Second,
	}

	headers := http.Header{}
	if origin != "" {
		headers.Set("Origin", origin)
	}

	conn, resp, err := dialer.Dial(rawURL, headers)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	return conn, resp, err
}

// Connect dials the relay as userID and fails the test on error.
func Connect(t *testing.T, serverURL, userID string) *websocket.Conn {
	t.Helper()
	conn, _, err := Dial(WebSocketURL(t, serverURL, IssueToken(t, userID)), serverURL)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// SendJSON writes v as one text frame.
func SendJSON(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(v))
}

// ReceiveJSON reads one frame and decodes it into a map.
func ReceiveJSON(t *testing.T, conn *websocket.Conn, timeout time.Duration) map[string]any {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(timeout)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)

	var message map[string]any
	require.NoError(t, json.Unmarshal(raw, &message))
	return message
}

// ExpectNoMessage fails if a frame arrives within timeout. The connection is
// unusable for reads afterwards because gorilla treats a deadline hit as fatal.
func ExpectNoMessage(t *testing.T, conn *websocket.Conn, timeout time.Duration) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(timeout)))
	_, raw, err := conn.ReadMessage()
	if err == nil {
		t.Fatalf("expected no message, received %s", raw)
	}
}
