// Package relay implements the broadcast core: a registry of open connections
// and a relay that turns inbound chat submissions into envelopes delivered to
// every registered connection, the sender included.
//
// Delivery is best effort. Fan-out works on a snapshot of the registry, so a
// connection that joins while a broadcast is in flight may miss that one
// message, and a connection that fails a send stays registered until its own
// transport reports the close.
package relay

import (
	"encoding/json"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

const (
	DefaultWelcomeMessage = "Welcome to the chatroom!"
	DefaultUsername       = "Anonymous"
)

// Relay reacts to connection lifecycle events. It keeps no state between
// events other than the registry it owns.
type Relay struct {
	registry        *Registry
	log             *zap.Logger
	validate        *validator.Validate
	now             func() time.Time
	welcomeMessage  string
	defaultUsername string
}

// Option customizes a Relay.
type Option func(*Relay)

// WithClock replaces the time source used for envelope timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Relay) { r.now = now }
}

// WithWelcomeMessage sets the text of the system envelope sent on connect.
func WithWelcomeMessage(msg string) Option {
	return func(r *Relay) {
		if msg != "" {
			r.welcomeMessage = msg
		}
	}
}

// WithDefaultUsername sets the name used when a submission carries none.
func WithDefaultUsername(name string) Option {
	return func(r *Relay) {
		if name != "" {
			r.defaultUsername = name
		}
	}
}

// New returns a Relay that owns registry. A nil logger disables logging.
func New(registry *Registry, log *zap.Logger, opts ...Option) *Relay {
	if log == nil {
		log = zap.NewNop()
	}
	r := &Relay{
		registry:        registry,
		log:             log,
		validate:        validator.New(),
		now:             time.Now,
		welcomeMessage:  DefaultWelcomeMessage,
		defaultUsername: DefaultUsername,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Registry returns the registry the relay delivers to.
func (r *Relay) Registry() *Registry {
	return r.registry
}

// OnConnect sends the welcome envelope to conn alone and registers it.
// The welcome is queued before the connection becomes visible to fan-out so
// that it is always the first envelope the connection receives.
func (r *Relay) OnConnect(conn Conn) {
	welcome := newSystemEnvelope(r.welcomeMessage, r.now())
	if payload, err := json.Marshal(welcome); err != nil {
		r.log.Error("Failed to encode welcome envelope", zap.Error(err))
	} else if err := conn.Send(payload); err != nil {
		r.log.Debug("Welcome envelope not delivered", zap.String("conn_id", conn.ID()), zap.Error(err))
	}

	if !r.registry.Register(conn) {
		r.log.Warn("Connection registered twice", zap.String("conn_id", conn.ID()))
		return
	}
	r.log.Info("Client connected",
		zap.String("conn_id", conn.ID()),
		zap.Int("connections", r.registry.Len()))
}

// OnMessage decodes raw and broadcasts the resulting chat envelope. A payload
// that does not decode is dropped and the error returned; nothing is sent and
// the connection is left alone.
func (r *Relay) OnMessage(conn Conn, raw []byte) error {
	sub, err := decodeSubmission(r.validate, raw)
	if err != nil {
		return err
	}

	username := lo.CoalesceOrEmpty(sub.Username, r.defaultUsername)
	env := newChatEnvelope(username, *sub.Message, r.now())

	delivered := r.Broadcast(env)
	r.log.Debug("Message relayed",
		zap.String("conn_id", conn.ID()),
		zap.String("username", env.Username),
		zap.Int("delivered", delivered))
	return nil
}

// OnDisconnect removes conn from the registry. Repeated calls are harmless.
func (r *Relay) OnDisconnect(conn Conn) {
	if !r.registry.Unregister(conn) {
		return
	}
	r.log.Info("Client disconnected",
		zap.String("conn_id", conn.ID()),
		zap.Int("connections", r.registry.Len()))
}

// Broadcast serializes env once and offers it to every connection in a
// snapshot of the registry. Closed connections and failed sends are skipped.
// It returns the number of connections that accepted the envelope.
func (r *Relay) Broadcast(env Envelope) int {
	payload, err := json.Marshal(env)
	if err != nil {
		r.log.Error("Failed to encode envelope", zap.Error(err))
		return 0
	}

	delivered := 0
	for _, conn := range r.registry.Snapshot() {
		if !conn.Open() {
			continue
		}
		if err := conn.Send(payload); err != nil {
			r.log.Debug("Skipping recipient", zap.String("conn_id", conn.ID()), zap.Error(err))
			continue
		}
		delivered++
	}
	return delivered
}
