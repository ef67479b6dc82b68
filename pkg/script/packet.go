package script

import "github.com/lime-engine/lime/pkg/netio"

// Packet is a received packet as scripts see it.
type Packet struct {
	Channel      uint8
	SourcePeerID uint16
	payload      *netio.Payload
}

// NewPacket wraps a received payload.
func NewPacket(channel uint8, source uint16, payload *netio.Payload) *Packet {
	return &Packet{Channel: channel, SourcePeerID: source, payload: payload}
}

// Data returns the packet contents, or nil once released.
func (p *Packet) Data() []byte {
	return p.payload.Bytes()
}

// Release returns the buffer to the transport.
func (p *Packet) Release() {
	p.payload.Release()
}

// Released reports whether the packet has been released.
func (p *Packet) Released() bool {
	return p.payload == nil || p.payload.Released()
}
