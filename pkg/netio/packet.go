package netio

import "fmt"

// Reliability selects the delivery guarantee for an outbound packet.
type Reliability uint8

const (
	Reliable Reliability = iota
	Unreliable
)

// String returns the transport-style name used in verbose logs.
func (r Reliability) String() string {
	if r == Reliable {
		return "TCP"
	}
	return "UDP"
}

const (
	// NoPeer marks a packet without a peer id.
	NoPeer int32 = -1

	// NoChannel marks a packet without a channel.
	NoChannel int16 = -1

	// DefaultChannel is the channel used for broadcasts.
	DefaultChannel uint8 = 0

	maxPeerID  = 0xFFFF
	maxChannel = 0xFF
)

// AddressMode is the resolved destination class of an outbound packet.
type AddressMode uint8

const (
	ModeInvalid AddressMode = iota
	ModeBroadcast
	ModePeer
	ModeUpstream
)

// String returns the string representation of the mode.
func (m AddressMode) String() string {
	switch m {
	case ModeBroadcast:
		return "Broadcast"
	case ModePeer:
		return "Peer"
	case ModeUpstream:
		return "Upstream"
	default:
		return "Invalid"
	}
}

// OutboundPacket is a send request produced by script or engine code.
//
// Valid addressing modes:
//
//	PeerID == -1 && Channel == -1   broadcast to every registered peer
//	PeerID != -1 && Channel != -1   one registered peer on Channel
//	PeerID == -1 && Channel != -1   the upstream server on Channel
type OutboundPacket struct {
	Payload     []byte
	Reliability Reliability
	PeerID      int32
	Channel     int16
}

// Broadcast builds a packet for every connected peer.
func Broadcast(payload []byte, rel Reliability) OutboundPacket {
	return OutboundPacket{Payload: payload, Reliability: rel, PeerID: NoPeer, Channel: NoChannel}
}

// ToPeer builds a packet for a single peer.
func ToPeer(peer uint16, channel uint8, payload []byte, rel Reliability) OutboundPacket {
	return OutboundPacket{Payload: payload, Reliability: rel, PeerID: int32(peer), Channel: int16(channel)}
}

// ToServer builds a packet for the upstream connection.
func ToServer(channel uint8, payload []byte, rel Reliability) OutboundPacket {
	return OutboundPacket{Payload: payload, Reliability: rel, PeerID: NoPeer, Channel: int16(channel)}
}

// Mode classifies the packet's addressing.
func (p OutboundPacket) Mode() AddressMode {
	if p.Channel > maxChannel || p.Channel < NoChannel || p.PeerID > maxPeerID || p.PeerID < NoPeer {
		return ModeInvalid
	}
	switch {
	case p.PeerID == NoPeer && p.Channel == NoChannel:
		return ModeBroadcast
	case p.PeerID != NoPeer && p.Channel != NoChannel:
		return ModePeer
	case p.PeerID == NoPeer && p.Channel != NoChannel:
		return ModeUpstream
	default:
		return ModeInvalid
	}
}

// String returns a short description for logs.
func (p OutboundPacket) String() string {
	return fmt.Sprintf("%s packet peer=%d channel=%d bytes=%d via %s",
		p.Mode(), p.PeerID, p.Channel, len(p.Payload), p.Reliability)
}
