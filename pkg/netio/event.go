package netio

import (
	"fmt"
	"net"
	"sync/atomic"
)

// Role tells which side of a connection produced an event.
type Role uint8

const (
	RoleServer Role = iota
	RoleClient
)

// String returns the string representation of the role.
func (r Role) String() string {
	switch r {
	case RoleServer:
		return "Server"
	case RoleClient:
		return "Client"
	default:
		return "Unknown"
	}
}

// EventKind identifies the type of network event.
type EventKind uint8

const (
	EventConnect EventKind = iota
	EventDisconnect
	EventReceive
)

// String returns the string representation of the event kind.
func (k EventKind) String() string {
	switch k {
	case EventConnect:
		return "Connect"
	case EventDisconnect:
		return "Disconnect"
	case EventReceive:
		return "Receive"
	default:
		return "Unknown"
	}
}

// Conn is the handle a transport hands out for one live connection. The
// registry stores Conns; transports accept them back in Send.
type Conn interface {
	// ID is the peer id assigned by the host. Upstream connections report
	// the id the server assigned to this client.
	ID() uint16

	// Address is the remote IPv4 address in network byte order packed into
	// a uint32, or 0 when unknown.
	Address() uint32
}

// FormatAddress renders a packed Conn address as dotted IPv4, or "" when
// the address is unknown.
func FormatAddress(addr uint32) string {
	if addr == 0 {
		return ""
	}
	return net.IPv4(byte(addr), byte(addr>>8), byte(addr>>16), byte(addr>>24)).String()
}

// NetworkEvent is produced by a transport goroutine and consumed exactly
// once by the frame dispatcher. It is never mutated after creation.
type NetworkEvent struct {
	Role    Role
	Kind    EventKind
	PeerID  uint16
	Address uint32
	Conn    Conn

	// Channel and Payload are set for EventReceive only.
	Channel uint8
	Payload *Payload

	// DisconnectReason is set for EventDisconnect only.
	DisconnectReason uint32
}

// String returns a short description for logs.
func (e NetworkEvent) String() string {
	switch e.Kind {
	case EventReceive:
		return fmt.Sprintf("%s %s peer=%d channel=%d bytes=%d", e.Role, e.Kind, e.PeerID, e.Channel, e.Payload.Len())
	case EventDisconnect:
		return fmt.Sprintf("%s %s peer=%d reason=%d", e.Role, e.Kind, e.PeerID, e.DisconnectReason)
	default:
		return fmt.Sprintf("%s %s peer=%d", e.Role, e.Kind, e.PeerID)
	}
}

// Payload is a transport-owned receive buffer. Whoever ends up holding the
// event must either hand the payload to a script or Release it.
type Payload struct {
	data     []byte
	release  func([]byte)
	released atomic.Bool
}

// NewPayload wraps data. release, if non-nil, is called once with the buffer
// when the payload is released.
func NewPayload(data []byte, release func([]byte)) *Payload {
	return &Payload{data: data, release: release}
}

// Bytes returns the payload contents, or nil once released.
func (p *Payload) Bytes() []byte {
	if p == nil || p.released.Load() {
		return nil
	}
	return p.data
}

// Len returns the payload size in bytes.
func (p *Payload) Len() int {
	if p == nil {
		return 0
	}
	return len(p.data)
}

// Release hands the buffer back to the transport. Only the first call has
// an effect.
func (p *Payload) Release() {
	if p == nil || p.released.Swap(true) {
		return
	}
	if p.release != nil {
		p.release(p.data)
	}
	p.data = nil
}

// Released reports whether Release has been called.
func (p *Payload) Released() bool {
	return p != nil && p.released.Load()
}
