package server

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Tyrowin/broadcast-relay/internal/relay"
)

func newTestClient(t *testing.T, cfg Config) *Client {
	t.Helper()
	r := relay.New(relay.NewRegistry(), nil)
	return NewClient(nil, r, cfg, nil)
}

func TestNewClient(t *testing.T) {
	req := require.New(t)
	client := newTestClient(t, Config{})

	req.NotEmpty(client.ID())
	req.True(client.Open())
	req.NotNil(client.send)
	req.Equal(256, cap(client.send))
	req.Nil(client.rateLimiter)
}

func TestNewClient_Unique_IDs(t *testing.T) {
	a := newTestClient(t, Config{})
	b := newTestClient(t, Config{})
	require.NotEqual(t, a.ID(), b.ID())
}

func TestClient_Send_Queues_Payload(t *testing.T) {
	req := require.New(t)
	client := newTestClient(t, Config{})

	req.NoError(client.Send([]byte(`{"type":"chat"}`)))

	select {
	case msg := <-client.send:
		req.Equal(`{"type":"chat"}`, string(msg))
	default:
		req.Fail("expected a queued payload")
	}
}

func TestClient_Send_Full_Buffer(t *testing.T) {
	req := require.New(t)
	client := newTestClient(t, Config{SendBufferSize: 2})

	req.NoError(client.Send([]byte("1")))
	req.NoError(client.Send([]byte("2")))
	req.ErrorIs(client.Send([]byte("3")), relay.ErrSendBufferFull)
	// A full buffer does not close the client
	req.True(client.Open())
}

func TestClient_Close(t *testing.T) {
	req := require.New(t)
	client := newTestClient(t, Config{})
	req.NoError(client.Send([]byte("queued")))

	req.NoError(client.Close())
	req.NoError(client.Close())

	req.False(client.Open())
	req.ErrorIs(client.Send([]byte("late")), relay.ErrConnClosed)

	// Already queued payloads are still drained before the channel reports closed
	msg, ok := <-client.send
	req.True(ok)
	req.Equal("queued", string(msg))
	_, ok = <-client.send
	req.False(ok)
}

func TestClient_Rate_Limit(t *testing.T) {
	req := require.New(t)
	client := newTestClient(t, Config{RateLimitBurst: 2})

	req.True(client.allowMessage())
	req.True(client.allowMessage())
	req.False(client.allowMessage())
}

func TestIsExpectedCloseError(t *testing.T) {
	req := require.New(t)
	req.True(isExpectedCloseError(nil))
	req.True(isExpectedCloseError(errString("write tcp: use of closed network connection")))
	req.True(isExpectedCloseError(errString("websocket: close sent")))
	req.False(isExpectedCloseError(errString("tls: bad record MAC")))
}

type errString string

func (e errString) Error() string { return string(e) }
