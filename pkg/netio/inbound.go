package netio

import "sync/atomic"

// DefaultQueueCapacity is used when a queue is created with capacity <= 0.
const DefaultQueueCapacity = 4096

// Inbound is the FIFO of network events. Push is safe from any goroutine;
// Drain belongs to the frame goroutine.
//
// Only Receive events count against the capacity. Connect and Disconnect
// are always queued so the registry and the script handlers see every
// peer arrive and leave.
type Inbound struct {
	guard    *Guard
	capacity int
	events   []NetworkEvent // protected by guard
	receives int            // Receive events in events, protected by guard
	dropped  atomic.Uint64
}

// NewInbound creates an inbound queue sharing guard.
func NewInbound(guard *Guard, capacity int) *Inbound {
	if capacity <= 0 {
		capacity = DefaultQueueCapacity
	}
	return &Inbound{guard: guard, capacity: capacity}
}

// Push appends ev to the tail. A Receive event arriving while capacity
// Receive events are already queued is dropped, its payload released, and
// ErrInboundQueueFull returned.
func (q *Inbound) Push(ev NetworkEvent) error {
	accepted := true
	q.guard.Do(func(*Registry) {
		if ev.Kind == EventReceive {
			if q.receives >= q.capacity {
				accepted = false
				return
			}
			q.receives++
		}
		q.events = append(q.events, ev)
	})
	if accepted {
		return nil
	}
	ev.Payload.Release()
	q.dropped.Add(1)
	return ErrInboundQueueFull
}

// Drain removes and returns every queued event in FIFO order. The guard is
// released before Drain returns, so callers process events unlocked.
func (q *Inbound) Drain() []NetworkEvent {
	var events []NetworkEvent
	q.guard.Do(func(*Registry) {
		events, q.events = q.events, nil
		q.receives = 0
	})
	return events
}

// Len returns the number of queued events.
func (q *Inbound) Len() int {
	var n int
	q.guard.Do(func(*Registry) { n = len(q.events) })
	return n
}

// Cap returns how many Receive events the queue holds before dropping.
func (q *Inbound) Cap() int {
	return q.capacity
}

// Dropped returns how many events were rejected because the queue was full.
func (q *Inbound) Dropped() uint64 {
	return q.dropped.Load()
}
