package transport

import (
	"errors"
	"fmt"
)

var (
	// ErrClosed is returned by operations on a closed host, client or peer.
	ErrClosed = errors.New("transport: closed")

	// ErrServerFull is returned when the host has no free peer id.
	ErrServerFull = errors.New("transport: server full")

	// ErrHandshake is returned when the hello/welcome exchange fails.
	ErrHandshake = errors.New("transport: handshake failed")

	// ErrUnknownConn is returned when Send receives a Conn this package did
	// not create.
	ErrUnknownConn = errors.New("transport: unknown connection")

	// ErrBufferFull is returned when a reliable frame does not fit in the
	// peer's pending buffer.
	ErrBufferFull = errors.New("transport: pending buffer full")
)

// PeerError wraps an error with the peer it concerns.
type PeerError struct {
	PeerID uint16
	Op     string
	Err    error
}

// Error returns the error message with peer context.
func (e *PeerError) Error() string {
	return fmt.Sprintf("transport: peer %d: %s: %v", e.PeerID, e.Op, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As.
func (e *PeerError) Unwrap() error {
	return e.Err
}

func newPeerError(id uint16, op string, err error) *PeerError {
	return &PeerError{PeerID: id, Op: op, Err: err}
}
