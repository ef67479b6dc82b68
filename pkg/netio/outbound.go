package netio

import "sync/atomic"

// Delivery is an outbound packet resolved against the registry.
type Delivery struct {
	Packet OutboundPacket
	Mode   AddressMode

	// Conns holds the destinations for ModeBroadcast (ascending peer id)
	// and ModePeer. Upstream packets are resolved by the transport.
	Conns []Conn

	// Err is set when the packet must be dropped: ErrPeerNotFound or
	// ErrInvalidAddress.
	Err error
}

// Outbound is the FIFO of packets waiting for the transport. Push is safe
// from any goroutine; Drain belongs to the frame goroutine.
type Outbound struct {
	guard   *Guard
	ch      chan OutboundPacket
	dropped atomic.Uint64
}

// NewOutbound creates an outbound queue sharing guard.
func NewOutbound(guard *Guard, capacity int) *Outbound {
	if capacity <= 0 {
		capacity = DefaultQueueCapacity
	}
	return &Outbound{
		guard: guard,
		ch:    make(chan OutboundPacket, capacity),
	}
}

// Push appends pkt. A packet without payload is ignored.
func (q *Outbound) Push(pkt OutboundPacket) error {
	if len(pkt.Payload) == 0 {
		return nil
	}
	accepted := false
	q.guard.Do(func(*Registry) {
		select {
		case q.ch <- pkt:
			accepted = true
		default:
		}
	})
	if accepted {
		return nil
	}
	q.dropped.Add(1)
	return ErrOutboundQueueFull
}

// Drain removes every queued packet in FIFO order and resolves its
// destinations against the registry in the same critical section, so a
// peer removed before the drain can never be addressed by it.
func (q *Outbound) Drain() []Delivery {
	var deliveries []Delivery
	q.guard.Do(func(reg *Registry) {
		packets := receiveAll(q.ch)
		if len(packets) == 0 {
			return
		}
		deliveries = make([]Delivery, 0, len(packets))
		for _, pkt := range packets {
			deliveries = append(deliveries, resolveLocked(reg, pkt))
		}
	})
	return deliveries
}

// resolveLocked maps a packet to its destinations. Caller holds the guard.
func resolveLocked(reg *Registry, pkt OutboundPacket) Delivery {
	d := Delivery{Packet: pkt, Mode: pkt.Mode()}
	switch d.Mode {
	case ModeBroadcast:
		d.Conns = reg.Sorted()
	case ModePeer:
		conn, ok := reg.Get(uint16(pkt.PeerID))
		if !ok {
			d.Err = ErrPeerNotFound
			break
		}
		d.Conns = []Conn{conn}
	case ModeUpstream:
	default:
		d.Err = ErrInvalidAddress
	}
	return d
}

// Len returns the number of queued packets.
func (q *Outbound) Len() int {
	return len(q.ch)
}

// Cap returns the queue capacity.
func (q *Outbound) Cap() int {
	return cap(q.ch)
}

// Dropped returns how many packets were rejected because the queue was full.
func (q *Outbound) Dropped() uint64 {
	return q.dropped.Load()
}

// receiveAll empties ch without blocking.
func receiveAll[T any](ch chan T) []T {
	n := len(ch)
	if n == 0 {
		return nil
	}
	out := make([]T, 0, n)
	for {
		select {
		case v := <-ch:
			out = append(out, v)
		default:
			return out
		}
	}
}
