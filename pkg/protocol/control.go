package protocol

// ControlType identifies the type of control message.
type ControlType uint8

const (
	ControlPing  ControlType = 0x01
	ControlPong  ControlType = 0x02
	ControlClose ControlType = 0x20
)

// String returns the string representation of the control type.
func (ct ControlType) String() string {
	switch ct {
	case ControlPing:
		return "Ping"
	case ControlPong:
		return "Pong"
	case ControlClose:
		return "Close"
	default:
		return "Unknown"
	}
}

// DisconnectReason is carried by disconnect frames and surfaced to scripts
// as the reason code of a client disconnect event.
type DisconnectReason uint32

const (
	DisconnectNormal          DisconnectReason = 0
	DisconnectServerShutdown  DisconnectReason = 1
	DisconnectServerFull      DisconnectReason = 2
	DisconnectVersionMismatch DisconnectReason = 3
	DisconnectTimeout         DisconnectReason = 4
	DisconnectProtocolError   DisconnectReason = 5
)

// String returns the string representation of the reason.
func (r DisconnectReason) String() string {
	switch r {
	case DisconnectNormal:
		return "Normal"
	case DisconnectServerShutdown:
		return "ServerShutdown"
	case DisconnectServerFull:
		return "ServerFull"
	case DisconnectVersionMismatch:
		return "VersionMismatch"
	case DisconnectTimeout:
		return "Timeout"
	case DisconnectProtocolError:
		return "ProtocolError"
	default:
		return "Unknown"
	}
}

// Control is a ping, pong or close message.
type Control struct {
	Type      ControlType
	Timestamp uint64 // Unix milliseconds, ping and pong only
}

// EncodeControl builds the frame for c.
func EncodeControl(c *Control) *Frame {
	e := NewEncoderWithCap(9)
	e.WriteByte(byte(c.Type))
	if c.Type == ControlPing || c.Type == ControlPong {
		e.WriteUint64(c.Timestamp)
	}
	return NewFrame(FrameControl, e.Bytes())
}

// DecodeControl decodes a control frame.
func DecodeControl(f *Frame) (*Control, error) {
	if f.Type != FrameControl {
		return nil, ErrInvalidFrameType
	}
	d := NewDecoder(f.Payload)
	ct, err := d.ReadByte()
	if err != nil {
		return nil, err
	}
	c := &Control{Type: ControlType(ct)}
	if c.Type == ControlPing || c.Type == ControlPong {
		if c.Timestamp, err = d.ReadUint64(); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// EncodeDisconnect builds a disconnect frame carrying reason.
func EncodeDisconnect(reason DisconnectReason) *Frame {
	e := NewEncoderWithCap(4)
	e.WriteUint32(uint32(reason))
	return NewFrame(FrameDisconnect, e.Bytes())
}

// DecodeDisconnect decodes a disconnect frame.
func DecodeDisconnect(f *Frame) (DisconnectReason, error) {
	if f.Type != FrameDisconnect {
		return 0, ErrInvalidFrameType
	}
	v, err := NewDecoder(f.Payload).ReadUint32()
	return DisconnectReason(v), err
}
