package server

import (
	"log/slog"
	"testing"

	"github.com/Tyrowin/roomrelay/internal/testhelpers"
	"github.com/mama165/sdk-go/logs"
)

var testLog = logs.GetLoggerFromLevel(slog.LevelDebug)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.JWTSecret = testhelpers.Secret
	return cfg
}

func newTestSession(t *testing.T, userID string) *Session {
	t.Helper()
	return NewSession(nil, userID, "127.0.0.1:12345", testConfig(), testLog)
}

// drain returns every frame currently queued on s.
func drain(s *Session) [][]byte {
	var frames [][]byte
	for {
		select {
		case frame, ok := <-s.send:
			if !ok {
				return frames
			}
			frames = append(frames, frame)
		default:
			return frames
		}
	}
}
