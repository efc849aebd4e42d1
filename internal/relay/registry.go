package relay

import (
	"sync"

	"github.com/samber/lo"
)

// Registry is the set of currently open connections. It is safe for
// concurrent use; a single lock guards the membership set.
type Registry struct {
	mu    sync.RWMutex
	conns map[Conn]struct{}
}

func NewRegistry() *Registry {
	return &Registry{conns: make(map[Conn]struct{})}
}

// Register adds conn and reports whether it was not already a member.
func (r *Registry) Register(conn Conn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.conns[conn]; ok {
		return false
	}
	r.conns[conn] = struct{}{}
	return true
}

// Unregister removes conn and reports whether it was a member. Calling it for
// a connection that is already gone is harmless.
func (r *Registry) Unregister(conn Conn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.conns[conn]; !ok {
		return false
	}
	delete(r.conns, conn)
	return true
}

// Snapshot returns a copy of the membership. The order is unspecified and the
// slice is owned by the caller, so delivery can proceed without the lock.
func (r *Registry) Snapshot() []Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return lo.Keys(r.conns)
}

// Len returns the number of registered connections.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.conns)
}
