package netio

import "errors"

// Sentinel errors for queue and addressing failures. None of them are fatal
// to the frame loop.
var (
	// ErrInboundQueueFull is returned when an event is dropped because the
	// inbound queue is at capacity.
	ErrInboundQueueFull = errors.New("netio: inbound queue full")

	// ErrOutboundQueueFull is returned when a packet is dropped because the
	// outbound queue is at capacity.
	ErrOutboundQueueFull = errors.New("netio: outbound queue full")

	// ErrPeerNotFound is returned when a packet names a peer id that is not
	// registered.
	ErrPeerNotFound = errors.New("netio: peer does not exist")

	// ErrNoUpstream is returned when a packet is addressed to the server but
	// no upstream connection exists.
	ErrNoUpstream = errors.New("netio: no upstream connection")

	// ErrInvalidAddress is returned for packets whose peer/channel pair
	// matches no addressing mode.
	ErrInvalidAddress = errors.New("netio: invalid packet addressing")

	// ErrConnClosed is returned by transports when sending on a closed
	// connection.
	ErrConnClosed = errors.New("netio: connection closed")
)
