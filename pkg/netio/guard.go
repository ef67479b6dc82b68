package netio

import (
	"sort"
	"sync"
)

// Guard is the one lock shared by the inbound queue, the outbound queue and
// the peer registry. The registry is only reachable inside Do.
type Guard struct {
	mu       sync.Mutex
	registry *Registry
}

// NewGuard creates a guard owning an empty registry.
func NewGuard() *Guard {
	return &Guard{registry: newRegistry()}
}

// Do runs fn with the guard held. The guard is released when fn returns or
// panics.
func (g *Guard) Do(fn func(reg *Registry)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	fn(g.registry)
}

// Registry maps peer ids to connection handles. It is not synchronized;
// use it through Guard.Do.
type Registry struct {
	peers map[uint16]Conn
}

func newRegistry() *Registry {
	return &Registry{peers: make(map[uint16]Conn)}
}

// Insert registers conn under id, replacing any previous entry.
func (r *Registry) Insert(id uint16, conn Conn) {
	r.peers[id] = conn
}

// Remove erases id and returns the connection it mapped to.
func (r *Registry) Remove(id uint16) (Conn, bool) {
	conn, ok := r.peers[id]
	if ok {
		delete(r.peers, id)
	}
	return conn, ok
}

// Get returns the connection registered under id.
func (r *Registry) Get(id uint16) (Conn, bool) {
	conn, ok := r.peers[id]
	return conn, ok
}

// Len returns the number of registered peers.
func (r *Registry) Len() int {
	return len(r.peers)
}

// IDs returns all registered peer ids in ascending order.
func (r *Registry) IDs() []uint16 {
	ids := make([]uint16, 0, len(r.peers))
	for id := range r.peers {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Sorted returns all registered connections in ascending peer id order.
func (r *Registry) Sorted() []Conn {
	ids := r.IDs()
	conns := make([]Conn, 0, len(ids))
	for _, id := range ids {
		conns = append(conns, r.peers[id])
	}
	return conns
}
