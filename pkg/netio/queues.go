package netio

// Queues bundles the guard with the queues and registry it protects.
type Queues struct {
	Guard    *Guard
	Inbound  *Inbound
	Outbound *Outbound
}

// NewQueues creates a guard, its registry, and both queues.
func NewQueues(inboundCap, outboundCap int) *Queues {
	guard := NewGuard()
	return &Queues{
		Guard:    guard,
		Inbound:  NewInbound(guard, inboundCap),
		Outbound: NewOutbound(guard, outboundCap),
	}
}

// AddPeer registers conn under its id.
func (q *Queues) AddPeer(conn Conn) {
	q.Guard.Do(func(reg *Registry) {
		reg.Insert(conn.ID(), conn)
	})
}

// RemovePeer erases id from the registry.
func (q *Queues) RemovePeer(id uint16) (Conn, bool) {
	var (
		conn Conn
		ok   bool
	)
	q.Guard.Do(func(reg *Registry) {
		conn, ok = reg.Remove(id)
	})
	return conn, ok
}

// Peer returns the connection registered under id.
func (q *Queues) Peer(id uint16) (Conn, bool) {
	var (
		conn Conn
		ok   bool
	)
	q.Guard.Do(func(reg *Registry) {
		conn, ok = reg.Get(id)
	})
	return conn, ok
}

// PeerIDs returns the registered ids in ascending order.
func (q *Queues) PeerIDs() []uint16 {
	var ids []uint16
	q.Guard.Do(func(reg *Registry) {
		ids = reg.IDs()
	})
	return ids
}
