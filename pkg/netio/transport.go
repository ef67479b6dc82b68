package netio

// Transport hands resolved packets to the network. Send must not block on
// socket I/O; Flush performs the writes.
type Transport interface {
	// Send queues pkt for conn on channel.
	Send(conn Conn, channel uint8, pkt OutboundPacket) error

	// Upstream returns the connection to the server when running as a
	// client.
	Upstream() (Conn, bool)

	// Flush writes everything queued by Send.
	Flush() error

	// Close shuts the transport down. Later calls are no-ops.
	Close() error
}

// Poller is implemented by transports that need the frame goroutine to pump
// their event source once per tick.
type Poller interface {
	Poll()
}

// Sink receives events from a transport. *Inbound implements it.
type Sink interface {
	Push(ev NetworkEvent) error
}
