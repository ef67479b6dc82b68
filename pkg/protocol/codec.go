package protocol

import (
	"encoding/binary"
	"errors"
	"io"
)

// MaxStringLen bounds length-prefixed strings so a hostile prefix cannot
// force a large allocation.
const MaxStringLen = 1024

var (
	ErrVarintOverflow = errors.New("protocol: varint overflow")
	ErrStringTooLong  = errors.New("protocol: string exceeds limit")
)

var be = binary.BigEndian

// Encoder appends fixed-width big-endian integers, uvarints and
// length-prefixed strings to a growing buffer. Writes never fail.
type Encoder struct {
	buf []byte
}

func NewEncoder() *Encoder { return NewEncoderWithCap(64) }

func NewEncoderWithCap(n int) *Encoder {
	return &Encoder{buf: make([]byte, 0, n)}
}

// Bytes aliases the internal buffer until the next write or Reset.
func (e *Encoder) Bytes() []byte { return e.buf }
func (e *Encoder) Len() int      { return len(e.buf) }
func (e *Encoder) Reset()        { e.buf = e.buf[:0] }

func (e *Encoder) WriteByte(b byte)      { e.buf = append(e.buf, b) }
func (e *Encoder) WriteBytes(b []byte)   { e.buf = append(e.buf, b...) }
func (e *Encoder) WriteUvarint(v uint64) { e.buf = binary.AppendUvarint(e.buf, v) }
func (e *Encoder) WriteUint16(v uint16)  { e.buf = be.AppendUint16(e.buf, v) }
func (e *Encoder) WriteUint32(v uint32)  { e.buf = be.AppendUint32(e.buf, v) }
func (e *Encoder) WriteUint64(v uint64)  { e.buf = be.AppendUint64(e.buf, v) }

func (e *Encoder) WriteString(s string) {
	e.WriteUvarint(uint64(len(s)))
	e.buf = append(e.buf, s...)
}

// Decoder consumes values written by Encoder. Every read past the end of
// the buffer fails with io.ErrUnexpectedEOF.
type Decoder struct {
	buf []byte
	off int
}

func NewDecoder(buf []byte) *Decoder { return &Decoder{buf: buf} }

func (d *Decoder) Remaining() int { return len(d.buf) - d.off }
func (d *Decoder) EOF() bool      { return d.Remaining() <= 0 }

// ReadBytes returns the next n bytes. The result aliases the input.
func (d *Decoder) ReadBytes(n int) ([]byte, error) {
	if n < 0 || n > d.Remaining() {
		return nil, io.ErrUnexpectedEOF
	}
	out := d.buf[d.off : d.off+n]
	d.off += n
	return out, nil
}

func (d *Decoder) ReadByte() (byte, error) {
	b, err := d.ReadBytes(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (d *Decoder) ReadUvarint() (uint64, error) {
	v, n := binary.Uvarint(d.buf[d.off:])
	switch {
	case n == 0:
		return 0, io.ErrUnexpectedEOF
	case n < 0:
		return 0, ErrVarintOverflow
	}
	d.off += n
	return v, nil
}

func (d *Decoder) ReadString() (string, error) {
	n, err := d.ReadUvarint()
	if err != nil {
		return "", err
	}
	if n > MaxStringLen {
		return "", ErrStringTooLong
	}
	b, err := d.ReadBytes(int(n))
	return string(b), err
}

func (d *Decoder) ReadUint16() (uint16, error) {
	b, err := d.ReadBytes(2)
	if err != nil {
		return 0, err
	}
	return be.Uint16(b), nil
}

func (d *Decoder) ReadUint32() (uint32, error) {
	b, err := d.ReadBytes(4)
	if err != nil {
		return 0, err
	}
	return be.Uint32(b), nil
}

func (d *Decoder) ReadUint64() (uint64, error) {
	b, err := d.ReadBytes(8)
	if err != nil {
		return 0, err
	}
	return be.Uint64(b), nil
}
