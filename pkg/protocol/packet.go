package protocol

import "errors"

// MaxPacketData is the largest application payload one packet frame holds.
const MaxPacketData = MaxPayloadSize - 1

var (
	ErrPacketTooLarge = errors.New("protocol: packet data too large")
	ErrEmptyPacket    = errors.New("protocol: packet frame without channel")
)

// Packet is application data carried on a channel.
type Packet struct {
	Channel    uint8
	Unreliable bool
	Data       []byte
}

// EncodePacket builds the frame for p.
func EncodePacket(p *Packet) (*Frame, error) {
	if len(p.Data) > MaxPacketData {
		return nil, ErrPacketTooLarge
	}
	e := NewEncoderWithCap(1 + len(p.Data))
	e.WriteByte(p.Channel)
	e.WriteBytes(p.Data)

	f := &Frame{Type: FramePacket, Payload: e.Bytes()}
	if p.Unreliable {
		f.Flags |= FlagUnreliable
	}
	return f, nil
}

// DecodePacket extracts a packet from a FramePacket frame. Data aliases the
// frame payload.
func DecodePacket(f *Frame) (*Packet, error) {
	if f.Type != FramePacket {
		return nil, ErrInvalidFrameType
	}
	if len(f.Payload) == 0 {
		return nil, ErrEmptyPacket
	}
	return &Packet{
		Channel:    f.Payload[0],
		Unreliable: f.Flags.Has(FlagUnreliable),
		Data:       f.Payload[1:],
	}, nil
}
