//go:generate go run go.uber.org/mock/mockgen -source=conn.go -destination=../mocks/mock_conn.go -package=mocks

package relay

import "errors"

var (
	// ErrConnClosed is returned by Conn.Send once the connection has begun closing.
	ErrConnClosed = errors.New("connection closed")
	// ErrSendBufferFull is returned by Conn.Send when the outbound queue cannot
	// take another envelope without blocking.
	ErrSendBufferFull = errors.New("send buffer full")
)

// Conn is a live bidirectional channel as seen by the relay. Implementations
// must be safe for concurrent use and are compared by identity, so they are
// expected to be pointer types.
type Conn interface {
	// ID identifies the connection in logs.
	ID() string
	// Open reports whether the connection still accepts envelopes.
	Open() bool
	// Send enqueues one serialized envelope without blocking.
	Send(payload []byte) error
	// Close tears down the underlying channel.
	Close() error
}
