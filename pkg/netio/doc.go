// Package netio holds the network side of the frame dispatcher: the events
// produced by transport goroutines, the packets produced by scripts, the
// peer registry, and the single lock that couples them.
//
// # Locking
//
// The Inbound queue, the Outbound queue and the Registry share one Guard.
// Packet addressing consults the registry that event processing mutates,
// so splitting the lock would reopen the race between "peer just
// disconnected" and "packet about to be sent to that peer". The guard is
// held only while appending, draining, resolving addresses, or mutating the
// registry. It is never held across script execution or socket I/O.
//
// # Queues
//
// The Outbound queue is a bounded buffered channel; when it is full the
// newest packet is dropped and the producer receives ErrOutboundQueueFull.
// The Inbound queue is a slice under the guard that bounds Receive events
// only: a full queue drops the newest Receive with ErrInboundQueueFull,
// while Connect and Disconnect are always accepted so the registry never
// keeps a peer that has gone. The frame goroutine drains each queue
// completely once per tick.
package netio
