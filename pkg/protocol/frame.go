package protocol

import (
	"errors"
	"io"
)

// Every websocket message carries exactly one frame:
//
//	+------+-------+----------------+---------------+
//	| type | flags | length (BE u16)| payload ...   |
//	+------+-------+----------------+---------------+
const (
	FrameHeaderSize = 4
	MaxPayloadSize  = 1<<16 - 1
)

// FrameType selects how the payload is decoded.
type FrameType uint8

const (
	FrameHello FrameType = iota
	FramePacket
	FrameDisconnect
	FrameControl

	lastFrameType = FrameControl
)

var frameTypeNames = [...]string{
	FrameHello:      "Hello",
	FramePacket:     "Packet",
	FrameDisconnect: "Disconnect",
	FrameControl:    "Control",
}

func (ft FrameType) String() string {
	if ft > lastFrameType {
		return "Unknown"
	}
	return frameTypeNames[ft]
}

// FrameFlags is a bit set carried in the header.
type FrameFlags uint8

const (
	// FlagUnreliable marks packet data the sender allows to be dropped.
	FlagUnreliable FrameFlags = 1 << iota
	// FlagWelcome marks the host's reply in the handshake.
	FlagWelcome
)

func (ff FrameFlags) Has(flag FrameFlags) bool { return ff&flag == flag }

var (
	ErrInvalidFrameType = errors.New("protocol: invalid frame type")
	ErrTrailingBytes    = errors.New("protocol: trailing bytes after frame")
)

type Frame struct {
	Type    FrameType
	Flags   FrameFlags
	Payload []byte
}

func NewFrame(ft FrameType, payload []byte) *Frame {
	return &Frame{Type: ft, Payload: payload}
}

// Encode returns header and payload in a new slice. Payloads longer than
// MaxPayloadSize are rejected earlier by the typed encoders.
func (f *Frame) Encode() []byte {
	return f.AppendTo(make([]byte, 0, FrameHeaderSize+len(f.Payload)))
}

// AppendTo appends the encoded frame to dst.
func (f *Frame) AppendTo(dst []byte) []byte {
	dst = append(dst, byte(f.Type), byte(f.Flags))
	dst = be.AppendUint16(dst, uint16(len(f.Payload)))
	return append(dst, f.Payload...)
}

// DecodeFrameHeader splits off the header fields. Only the length of data
// is checked.
func DecodeFrameHeader(data []byte) (FrameType, FrameFlags, int, error) {
	if len(data) < FrameHeaderSize {
		return 0, 0, 0, io.ErrUnexpectedEOF
	}
	return FrameType(data[0]), FrameFlags(data[1]), int(be.Uint16(data[2:])), nil
}

// DecodeFrame parses one websocket message. The payload is copied so the
// caller may reuse data.
func DecodeFrame(data []byte) (*Frame, error) {
	ft, flags, n, err := DecodeFrameHeader(data)
	if err != nil {
		return nil, err
	}
	if ft > lastFrameType {
		return nil, ErrInvalidFrameType
	}
	body := data[FrameHeaderSize:]
	switch {
	case len(body) < n:
		return nil, io.ErrUnexpectedEOF
	case len(body) > n:
		return nil, ErrTrailingBytes
	}
	return &Frame{Type: ft, Flags: flags, Payload: append([]byte(nil), body...)}, nil
}
