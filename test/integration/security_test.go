package integration

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/Tyrowin/broadcast-relay/internal/relay"
	"github.com/Tyrowin/broadcast-relay/internal/server"
	"github.com/Tyrowin/broadcast-relay/test/testhelpers"
)

func dialWithOrigin(t *testing.T, url, origin string) (*websocket.Conn, int, error) {
	t.Helper()
	header := http.Header{}
	if origin != "" {
		header.Set("Origin", origin)
	}
	conn, resp, err := websocket.DefaultDialer.Dial(url, header)
	status := 0
	if resp != nil {
		status = resp.StatusCode
		_ = resp.Body.Close()
	}
	if conn != nil {
		t.Cleanup(func() { _ = conn.Close() })
	}
	return conn, status, err
}

func TestOriginAllowlist(t *testing.T) {
	rs := testhelpers.StartRelayServer(t, server.Config{AllowedOrigins: testhelpers.TestOrigin + ", https://app.example"})

	tests := []struct {
		name   string
		origin string
		ok     bool
	}{
		{name: "listed origin", origin: testhelpers.TestOrigin, ok: true},
		{name: "second listed origin", origin: "https://app.example", ok: true},
		{name: "missing origin", origin: "", ok: false},
		{name: "other port", origin: "http://localhost:9999", ok: false},
		{name: "other scheme", origin: "https://localhost:8080", ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn, status, err := dialWithOrigin(t, rs.WSURL, tt.origin)
			if tt.ok {
				require.NoError(t, err)
				require.Equal(t, relay.KindSystem, testhelpers.ReceiveEnvelope(t, conn).Type)
				return
			}
			require.ErrorIs(t, err, websocket.ErrBadHandshake)
			require.Equal(t, http.StatusForbidden, status)
		})
	}
	// Accepted connections close with their subtests; rejected ones never joined
	rs.WaitForConnections(t, 0)
}

func TestSecurityConstraintsCombined(t *testing.T) {
	req := require.New(t)
	rs := testhelpers.StartRelayServer(t, server.Config{
		AllowedOrigins:    testhelpers.TestOrigin,
		MaxMessageSize:    256,
		RateLimitBurst:    3,
		RateLimitInterval: time.Hour,
	})
	talker := rs.Join(t)
	listener := rs.Join(t)
	rs.WaitForConnections(t, 2)

	for _, msg := range []string{"a", "b", "c", "d", "e"} {
		req.NoError(testhelpers.SendChat(talker, "talker", msg))
	}
	// Only the burst is relayed
	req.NoError(testhelpers.SendChat(listener, "listener", "marker"))

	var got []string
	for range 4 {
		got = append(got, testhelpers.ReceiveEnvelope(t, listener).Message)
	}
	req.ElementsMatch([]string{"a", "b", "c", "marker"}, got)

	req.NoError(testhelpers.SendChat(listener, "listener", strings.Repeat("x", 512)))
	testhelpers.ExpectClosed(t, listener)
	rs.WaitForConnections(t, 1)
}
