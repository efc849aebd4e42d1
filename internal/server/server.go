// Package server implements the WebSocket transport and the HTTP surface
// around the broadcast relay.
package server

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/Tyrowin/broadcast-relay/internal/relay"
)

// Server owns the relay and everything needed to expose it over HTTP.
type Server struct {
	cfg      Config
	log      *zap.Logger
	relay    *relay.Relay
	upgrader websocket.Upgrader
	http     *http.Server

	// mu orders connection admission against Shutdown.
	mu       sync.Mutex
	stopping bool
	wg       sync.WaitGroup
}

// New builds a Server with its own registry and relay. A nil logger
// disables logging.
func New(cfg Config, log *zap.Logger) *Server {
	cfg = sanitizeConfig(cfg)
	if log == nil {
		log = zap.NewNop()
	}

	s := &Server{
		cfg: cfg,
		log: log,
		relay: relay.New(relay.NewRegistry(), log.Named("relay"),
			relay.WithWelcomeMessage(cfg.WelcomeMessage),
			relay.WithDefaultUsername(cfg.DefaultUsername),
		),
	}

	origins := newOriginPolicy(cfg.Origins(), log)
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     origins.checkOrigin,
	}
	s.http = CreateServer(cfg.Addr, s.Handler())
	return s
}

// Relay returns the relay serving this server's connections.
func (s *Server) Relay() *relay.Relay {
	return s.relay
}

// admit registers client with the relay and starts its pumps, unless the
// server is shutting down, in which case it reports false.
func (s *Server) admit(client *Client) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopping {
		return false
	}
	s.relay.OnConnect(client)

	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		client.writePump()
	}()
	go func() {
		defer s.wg.Done()
		client.readPump()
	}()
	return true
}

// ListenAndServe blocks until the server stops. A stop caused by Shutdown is
// not an error.
func (s *Server) ListenAndServe() error {
	s.log.Info("Server listening", zap.String("addr", s.http.Addr))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests, closes every registered connection, and
// waits for the client pumps to finish or for ctx to expire. Upgrades that
// complete after Shutdown has begun are closed without being registered.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("Shutting down HTTP server...")
	s.mu.Lock()
	s.stopping = true
	s.mu.Unlock()

	httpErr := s.http.Shutdown(ctx)
	if httpErr != nil {
		s.log.Warn("HTTP server shutdown error", zap.Error(httpErr))
	}

	conns := s.relay.Registry().Snapshot()
	for _, conn := range conns {
		if err := conn.Close(); err != nil {
			s.log.Debug("Error closing client connection", zap.String("conn_id", conn.ID()), zap.Error(err))
		}
	}
	s.log.Info("Closed client connections", zap.Int("count", len(conns)))

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.log.Info("Shutdown completed")
		return httpErr
	case <-ctx.Done():
		s.log.Warn("Shutdown timeout reached, some client goroutines may still be running")
		return errors.Join(httpErr, ctx.Err())
	}
}
