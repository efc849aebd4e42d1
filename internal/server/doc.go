// Package server implements the HTTP and WebSocket transport for the
// broadcast relay.
//
// The implementation is organized into specialized files for configuration,
// clients, origin checks, routing, and HTTP handlers. The broadcast core
// itself lives in package relay; this package only feeds it connection
// lifecycle events.
package server
