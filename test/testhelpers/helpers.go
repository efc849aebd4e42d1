// Package testhelpers provides shared utilities for the relay integration tests.
//
// It starts a relay server on an httptest listener, dials WebSocket clients
// against it and reads envelopes back, so that test files can focus on the
// scenario being exercised.
package testhelpers

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Tyrowin/broadcast-relay/internal/relay"
	"github.com/Tyrowin/broadcast-relay/internal/server"
)

// TestOrigin is sent as the Origin header by ConnectWebSocket.
const TestOrigin = "http://localhost:8080"

// ReadTimeout bounds every envelope read made through these helpers.
const ReadTimeout = 2 * time.Second

// RelayServer is a relay server running on an httptest listener.
type RelayServer struct {
	*server.Server
	HTTP  *httptest.Server
	WSURL string
}

// StartRelayServer starts a relay server with cfg and registers cleanup that
// shuts it down when the test ends. Zero fields fall back to defaults.
func StartRelayServer(t *testing.T, cfg server.Config) *RelayServer {
	t.Helper()
	if cfg.AllowedOrigins == "" {
		cfg.AllowedOrigins = "*"
	}

	s := server.New(cfg, zap.NewNop())
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.Shutdown(ctx)
		ts.Close()
	})

	return &RelayServer{
		Server: s,
		HTTP:   ts,
		WSURL:  "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws",
	}
}

// Connections returns the number of registered connections.
func (rs *RelayServer) Connections() int {
	return rs.Relay().Registry().Len()
}

// WaitForConnections blocks until exactly n connections are registered.
func (rs *RelayServer) WaitForConnections(t *testing.T, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return rs.Connections() == n },
		2*time.Second, 10*time.Millisecond, "expected %d registered connections", n)
}

// ConnectWebSocket dials url with the test origin header.
func ConnectWebSocket(url string) (*websocket.Conn, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: 5 * time.Second,
	}

	headers := http.Header{}
	headers.Set("Origin", TestOrigin)

	conn, resp, err := dialer.Dial(url, headers)
	if resp != nil {
		_ = resp.Body.Close()
	}
	return conn, err
}

// Join dials rs, consumes the welcome envelope and returns the connection.
// The connection is closed when the test ends.
func (rs *RelayServer) Join(t *testing.T) *websocket.Conn {
	t.Helper()
	conn, err := ConnectWebSocket(rs.WSURL)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	welcome := ReceiveEnvelope(t, conn)
	require.Equal(t, relay.KindSystem, welcome.Type)
	return conn
}

// SendChat sends a chat submission. An empty username is omitted from the
// payload.
func SendChat(conn *websocket.Conn, username, message string) error {
	payload := map[string]string{"message": message}
	if username != "" {
		payload["username"] = username
	}
	return conn.WriteJSON(payload)
}

// ReceiveEnvelope reads the next envelope from conn, failing the test on
// timeout or decode errors.
func ReceiveEnvelope(t *testing.T, conn *websocket.Conn) relay.Envelope {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(ReadTimeout)))
	var env relay.Envelope
	require.NoError(t, conn.ReadJSON(&env))
	return env
}

// ExpectClosed reads from conn until it fails, which it must do within the
// read timeout.
func ExpectClosed(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(ReadTimeout)))
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			var netErr net.Error
			require.False(t, errors.As(err, &netErr) && netErr.Timeout(), "connection still open: %v", err)
			return
		}
	}
}

// CloseWebSocket sends a normal closure frame and closes conn.
func CloseWebSocket(conn *websocket.Conn) error {
	err := conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	if err != nil {
		return err
	}
	return conn.Close()
}
