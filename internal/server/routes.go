// Package server wires HTTP handlers into a chi router for the relay
// application via routing helpers.
package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
)

// Handler returns the root handler. Every request passes through the shared
// middleware; one asking for a WebSocket upgrade then goes to the relay,
// whatever its path, and everything else is routed.
func (s *Server) Handler() http.Handler {
	return s.routes()
}

// routes configures the non-realtime endpoints: health check and test page.
// /ws is kept as an explicit route so misdirected plain requests get a
// meaningful error.
func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(s.upgradeAnyPath)

	r.Get("/", TestPageHandler)
	r.Get("/healthz", s.HealthHandler)
	r.HandleFunc("/ws", s.WebSocketHandler)
	return r
}

// upgradeAnyPath hands upgrade requests to the WebSocket handler before
// routing.
func (s *Server) upgradeAnyPath(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if websocket.IsWebSocketUpgrade(r) {
			s.WebSocketHandler(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}
