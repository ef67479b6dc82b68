package frame

import (
	"errors"
	"fmt"
	"strings"

	"github.com/lime-engine/lime/pkg/console"
	"github.com/lime-engine/lime/pkg/netio"
	"github.com/lime-engine/lime/pkg/script"
)

// Script tables holding the network handlers.
const (
	serverTable = "NetworkServer"
	clientTable = "NetworkClient"
)

// drainInbound routes every queued network event. Events are processed
// outside the guard; only registry updates take it.
func (d *Dispatcher) drainInbound() error {
	events := d.queues.Inbound.Drain()
	d.tel.SetQueueDepth("inbound", len(events))

	for _, ev := range events {
		d.tel.RecordEvent(strings.ToLower(ev.Kind.String()), strings.ToLower(ev.Role.String()))
		switch ev.Kind {
		case netio.EventConnect:
			d.handleConnect(ev)
		case netio.EventDisconnect:
			d.handleDisconnect(ev)
		case netio.EventReceive:
			d.handleReceive(ev)
		default:
			ev.Payload.Release()
		}
	}
	return nil
}

func (d *Dispatcher) verbose(format string, args ...any) {
	if !d.console.Verbose() {
		return
	}
	d.console.SendMsg(fmt.Sprintf(format, args...), console.NetworkVerbose)
}

func (d *Dispatcher) handleConnect(ev netio.NetworkEvent) {
	if ev.Role == netio.RoleClient {
		d.verbose("Connected to server as client with ID %d", ev.PeerID)
		if fn, ok := d.engine.Lookup(clientTable, "OnConnect"); ok {
			d.deferred.Push(fn)
			return
		}
		d.verbose("Networking WARNING: Connected to a server but NetworkClient.OnConnect is not declared")
		return
	}

	if ev.Conn != nil {
		d.queues.AddPeer(ev.Conn)
	}
	d.verbose("Client joined presuming ID %d from IP %s", ev.PeerID, netio.FormatAddress(ev.Address))
	if fn, ok := d.engine.Lookup(serverTable, "OnClientConnect"); ok {
		d.deferred.Push(fn, ev.PeerID, ev.Address)
		return
	}
	d.verbose("Networking WARNING: A peer connected but NetworkServer.OnClientConnect is not declared")
}

func (d *Dispatcher) handleDisconnect(ev netio.NetworkEvent) {
	if ev.Role == netio.RoleClient {
		d.verbose("Disconnected from server as client, reason code %d", ev.DisconnectReason)
		if fn, ok := d.engine.Lookup(clientTable, "OnDisconnect"); ok {
			d.deferred.Push(fn, ev.DisconnectReason)
		}
		return
	}

	d.queues.RemovePeer(ev.PeerID)
	d.verbose("Client disconnected abandoning ID %d from IP %s", ev.PeerID, netio.FormatAddress(ev.Address))
	if fn, ok := d.engine.Lookup(serverTable, "OnClientDisconnect"); ok {
		d.deferred.Push(fn, ev.PeerID, ev.Address)
	}
}

func (d *Dispatcher) handleReceive(ev netio.NetworkEvent) {
	table := serverTable
	if ev.Role == netio.RoleClient {
		table = clientTable
	}
	fn, ok := d.engine.Lookup(table, "OnPacketReceived")
	if !ok {
		ev.Payload.Release()
		d.verbose("Networking WARNING: Received a packet on channel %d but %s.OnPacketReceived is not declared", ev.Channel, table)
		return
	}
	d.deferred.Push(fn, ev.Channel, script.NewPacket(ev.Channel, ev.PeerID, ev.Payload))
}

// DrainAndSend empties the outbound queue. Destinations are resolved under
// the guard; sends and flushes happen after it is released. Delivery
// failures are logged and counted, never returned.
func (d *Dispatcher) DrainAndSend() error {
	deliveries := d.queues.Outbound.Drain()
	d.tel.SetQueueDepth("outbound", len(deliveries))
	if len(deliveries) == 0 {
		return nil
	}
	if d.transport == nil {
		for range deliveries {
			d.tel.RecordPacketDropped("no_transport")
		}
		d.verbose("Networking WARNING: Dropped %d packets; networking is not running", len(deliveries))
		return nil
	}

	for _, dl := range deliveries {
		if dl.Err != nil {
			d.dropDelivery(dl)
			continue
		}

		// A broadcast always ends in a flush, even with no peers or when
		// every send failed.
		flush := false
		switch dl.Mode {
		case netio.ModeBroadcast:
			for _, conn := range dl.Conns {
				d.send(conn, netio.DefaultChannel, dl)
			}
			flush = true
		case netio.ModePeer:
			flush = d.send(dl.Conns[0], uint8(dl.Packet.Channel), dl)
		case netio.ModeUpstream:
			conn, ok := d.transport.Upstream()
			if !ok {
				d.tel.RecordPacketDropped("no_upstream")
				d.verbose("Networking WARNING: Failed to send packet to server; not connected as a client")
				continue
			}
			flush = d.send(conn, uint8(dl.Packet.Channel), dl)
		}

		if flush {
			if err := d.transport.Flush(); err != nil {
				d.verbose("Networking WARNING: Flush failed: %v", err)
			}
		}
	}
	return nil
}

func (d *Dispatcher) send(conn netio.Conn, channel uint8, dl netio.Delivery) bool {
	if err := d.transport.Send(conn, channel, dl.Packet); err != nil {
		d.tel.RecordPacketDropped("send_error")
		d.verbose("Networking WARNING: Failed to send packet to peer with ID %d: %v", conn.ID(), err)
		return false
	}
	d.tel.RecordPacketSent(strings.ToLower(dl.Mode.String()))
	return true
}

func (d *Dispatcher) dropDelivery(dl netio.Delivery) {
	switch {
	case errors.Is(dl.Err, netio.ErrPeerNotFound):
		d.tel.RecordPacketDropped("peer_not_found")
		d.verbose("Networking WARNING: Failed to send packet to peer with ID %d; peer does not exist", dl.Packet.PeerID)
	default:
		d.tel.RecordPacketDropped("invalid_address")
		d.verbose("Networking WARNING: Dropped packet with invalid addressing (%s)", dl.Packet.String())
	}
}
