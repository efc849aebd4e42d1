// Package server manages individual WebSocket clients, handling read/write
// pumps, rate limiting, and lifecycle control for each connection.
package server

import (
	"errors"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/Tyrowin/broadcast-relay/internal/relay"
)

// Client is one WebSocket connection. It implements relay.Conn: the relay
// enqueues serialized envelopes with Send and the write pump drains them, one
// frame per envelope.
type Client struct {
	id    string
	conn  *websocket.Conn
	relay *relay.Relay
	log   *zap.Logger

	mu     sync.Mutex
	closed bool
	send   chan []byte

	maxMessageSize int
	rateLimiter    *rate.Limiter
	pingInterval   time.Duration
	pongWait       time.Duration
	writeWait      time.Duration
}

var _ relay.Conn = (*Client)(nil)

// NewClient creates a Client for conn. The send channel is buffered so that
// fan-out never waits on a slow peer.
func NewClient(conn *websocket.Conn, r *relay.Relay, cfg Config, log *zap.Logger) *Client {
	cfg = sanitizeConfig(cfg)
	if conn != nil && cfg.MaxMessageSize > 0 {
		conn.SetReadLimit(int64(cfg.MaxMessageSize))
	}
	if log == nil {
		log = zap.NewNop()
	}

	id := uuid.NewString()
	addr := ""
	if conn != nil {
		addr = conn.RemoteAddr().String()
	}

	return &Client{
		id:             id,
		conn:           conn,
		relay:          r,
		log:            log.With(zap.String("conn_id", id), zap.String("addr", addr)),
		send:           make(chan []byte, cfg.SendBufferSize),
		maxMessageSize: cfg.MaxMessageSize,
		rateLimiter:    newRateLimiter(cfg.RateLimitBurst, cfg.RateLimitInterval),
		pingInterval:   cfg.PingInterval,
		pongWait:       cfg.PongWait,
		writeWait:      cfg.WriteWait,
	}
}

func (c *Client) ID() string {
	return c.id
}

// Open reports whether the client still accepts envelopes.
func (c *Client) Open() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.closed
}

// Send queues payload for the write pump without blocking.
func (c *Client) Send(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return relay.ErrConnClosed
	}
	select {
	case c.send <- payload:
		return nil
	default:
		return relay.ErrSendBufferFull
	}
}

// Close stops accepting envelopes and closes the socket. The read pump then
// observes the error and reports the disconnect.
func (c *Client) Close() error {
	c.closeSend()
	if c.conn == nil {
		return nil
	}
	if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
		return err
	}
	return nil
}

// closeSend closes the outbound queue once; the write pump then sends a
// close frame and exits.
func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// setupReadConnection configures read deadlines and pong handler for the WebSocket connection
func (c *Client) setupReadConnection() {
	if err := c.conn.SetReadDeadline(time.Now().Add(c.pongWait)); err != nil {
		c.log.Warn("Error setting initial read deadline", zap.Error(err))
	}
	c.conn.SetPongHandler(func(string) error {
		if err := c.conn.SetReadDeadline(time.Now().Add(c.pongWait)); err != nil {
			c.log.Warn("Error setting read deadline in pong handler", zap.Error(err))
		}
		return nil
	})
}

// logReadError records why the read loop ended.
func (c *Client) logReadError(err error) {
	switch {
	case errors.Is(err, websocket.ErrReadLimit):
		c.log.Warn("Message exceeded maximum size", zap.Int("max_bytes", c.maxMessageSize))
	case websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived):
		c.log.Debug("Client closed connection", zap.Error(err))
	case errors.Is(err, io.EOF), isExpectedCloseError(err):
		c.log.Debug("Connection closed", zap.Error(err))
	case websocket.IsUnexpectedCloseError(err,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure,
		websocket.CloseMessageTooBig):
		c.log.Warn("Unexpected WebSocket close", zap.Error(err))
	default:
		c.log.Info("WebSocket read error", zap.Error(err))
	}
}

// allowMessage applies the per-connection rate limit, if any.
func (c *Client) allowMessage() bool {
	if c.rateLimiter == nil || c.rateLimiter.Allow() {
		return true
	}
	c.log.Warn("Rate limit exceeded; discarding message",
		zap.Int("burst", c.rateLimiter.Burst()))
	return false
}

// readPump handles inbound frames one at a time until the connection fails,
// then reports the disconnect to the relay.
func (c *Client) readPump() {
	defer func() {
		c.relay.OnDisconnect(c)
		c.closeSend()
		c.closeConnection()
	}()

	c.setupReadConnection()

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			c.logReadError(err)
			return
		}

		if !c.allowMessage() {
			continue
		}

		if err := c.relay.OnMessage(c, raw); err != nil {
			c.log.Warn("Dropping invalid message", zap.Error(err))
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(c.pingInterval)
	defer func() {
		ticker.Stop()
		c.closeConnection()
	}()

	for c.processWriteEvent(ticker) {
	}
}

// processWriteEvent waits for the next write event and returns false when the
// pump should stop processing.
func (c *Client) processWriteEvent(ticker *time.Ticker) bool {
	select {
	case message, ok := <-c.send:
		return c.handleMessage(message, ok)
	case <-ticker.C:
		return c.handlePing()
	}
}

// closeConnection safely closes the WebSocket connection with proper error handling
func (c *Client) closeConnection() {
	if err := c.conn.Close(); err != nil {
		if !isExpectedCloseError(err) {
			c.log.Warn("Error closing connection", zap.Error(err))
		}
	}
}

// handleMessage writes one outgoing envelope and returns false if the connection should be closed
func (c *Client) handleMessage(message []byte, ok bool) bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeWait)); err != nil {
		c.log.Debug("Error setting write deadline", zap.Error(err))
		return false
	}

	if !ok {
		return c.writeCloseMessage()
	}

	if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
		if !isExpectedCloseError(err) {
			c.log.Info("Error writing message", zap.Error(err))
		}
		return false
	}
	return true
}

// writeCloseMessage sends a close message to the client
func (c *Client) writeCloseMessage() bool {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	if err := c.conn.WriteMessage(websocket.CloseMessage, msg); err != nil {
		if !isExpectedCloseError(err) {
			c.log.Debug("Error writing close message", zap.Error(err))
		}
	}
	return false
}

// handlePing sends a ping message to keep the connection alive
func (c *Client) handlePing() bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeWait)); err != nil {
		c.log.Debug("Error setting write deadline for ping", zap.Error(err))
		return false
	}
	if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
		c.log.Info("Error writing ping message", zap.Error(err))
		return false
	}
	return true
}
