package transport

import (
	"encoding/binary"
	"errors"
	"log/slog"
	"net"
	"net/netip"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/lime-engine/lime/pkg/netio"
	"github.com/lime-engine/lime/pkg/protocol"
)

// Peer is one live WebSocket connection. It implements netio.Conn.
type Peer struct {
	id     uint16
	addr   uint32
	role   netio.Role
	ws     *websocket.Conn
	cfg    *Config
	logger *slog.Logger

	// writeMu serializes socket writes; gorilla allows one writer.
	writeMu sync.Mutex

	mu           sync.Mutex // protects pending
	pending      [][]byte
	pendingBytes int

	closed atomic.Bool
	done   chan struct{}
	reason atomic.Uint32

	bytesSent atomic.Uint64
	bytesRecv atomic.Uint64
}

func newPeer(ws *websocket.Conn, id uint16, addr uint32, role netio.Role, cfg *Config, logger *slog.Logger) *Peer {
	return &Peer{
		id:     id,
		addr:   addr,
		role:   role,
		ws:     ws,
		cfg:    cfg,
		logger: logger.With("peer", id, "role", role.String()),
		done:   make(chan struct{}),
	}
}

// ID returns the peer id assigned by the host.
func (p *Peer) ID() uint16 {
	return p.id
}

// Address returns the remote IPv4 address, first octet in the low byte.
func (p *Peer) Address() uint32 {
	return p.addr
}

// Role reports whether this connection belongs to a host or a client.
func (p *Peer) Role() netio.Role {
	return p.role
}

// Done is closed when the connection shuts down.
func (p *Peer) Done() <-chan struct{} {
	return p.done
}

// IsClosed reports whether the connection is closed.
func (p *Peer) IsClosed() bool {
	return p.closed.Load()
}

// Stats returns the bytes written and read on this connection.
func (p *Peer) Stats() (sent, recv uint64) {
	return p.bytesSent.Load(), p.bytesRecv.Load()
}

// enqueue encodes pkt for channel and appends it to the pending buffer.
func (p *Peer) enqueue(channel uint8, pkt netio.OutboundPacket) error {
	if p.closed.Load() {
		return newPeerError(p.id, "send", ErrClosed)
	}
	f, err := protocol.EncodePacket(&protocol.Packet{
		Channel:    channel,
		Unreliable: pkt.Reliability == netio.Unreliable,
		Data:       pkt.Payload,
	})
	if err != nil {
		return newPeerError(p.id, "send", err)
	}
	data := f.Encode()

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pendingBytes+len(data) > p.cfg.MaxPendingBytes {
		if pkt.Reliability == netio.Unreliable {
			p.logger.Debug("pending buffer full, dropping unreliable packet", "bytes", len(data))
			return nil
		}
		return newPeerError(p.id, "send", ErrBufferFull)
	}
	p.pending = append(p.pending, data)
	p.pendingBytes += len(data)
	return nil
}

// flush writes every pending frame.
func (p *Peer) flush() error {
	p.mu.Lock()
	frames := p.pending
	p.pending = nil
	p.pendingBytes = 0
	p.mu.Unlock()

	for _, data := range frames {
		if err := p.write(data); err != nil {
			return newPeerError(p.id, "flush", err)
		}
	}
	return nil
}

func (p *Peer) write(data []byte) error {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()

	if p.closed.Load() {
		return ErrClosed
	}
	p.ws.SetWriteDeadline(time.Now().Add(p.cfg.WriteTimeout))
	if err := p.ws.WriteMessage(websocket.BinaryMessage, data); err != nil {
		return err
	}
	p.bytesSent.Add(uint64(len(data)))
	return nil
}

// readLoop decodes frames until the connection ends and returns the reason
// it ended. Received packets are pushed into sink.
func (p *Peer) readLoop(sink netio.Sink) protocol.DisconnectReason {
	for {
		p.ws.SetReadDeadline(time.Now().Add(p.cfg.ReadTimeout))

		_, msg, err := p.ws.ReadMessage()
		if err != nil {
			if p.closed.Load() {
				return protocol.DisconnectReason(p.reason.Load())
			}
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				return protocol.DisconnectTimeout
			}
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				p.logger.Error("read error", "error", err)
			}
			return protocol.DisconnectNormal
		}
		p.bytesRecv.Add(uint64(len(msg)))

		frame, err := protocol.DecodeFrame(msg)
		if err != nil {
			p.logger.Warn("frame decode error", "error", err)
			return protocol.DisconnectProtocolError
		}

		switch frame.Type {
		case protocol.FramePacket:
			pkt, err := protocol.DecodePacket(frame)
			if err != nil {
				p.logger.Warn("packet decode error", "error", err)
				return protocol.DisconnectProtocolError
			}
			p.deliver(sink, pkt)

		case protocol.FrameControl:
			c, err := protocol.DecodeControl(frame)
			if err != nil {
				p.logger.Warn("control decode error", "error", err)
				return protocol.DisconnectProtocolError
			}
			switch c.Type {
			case protocol.ControlPing:
				p.sendControl(&protocol.Control{Type: protocol.ControlPong, Timestamp: c.Timestamp})
			case protocol.ControlPong:
				p.logger.Debug("received pong")
			case protocol.ControlClose:
				return protocol.DisconnectNormal
			}

		case protocol.FrameDisconnect:
			reason, err := protocol.DecodeDisconnect(frame)
			if err != nil {
				return protocol.DisconnectProtocolError
			}
			return reason

		default:
			p.logger.Warn("unexpected frame type", "type", frame.Type)
		}
	}
}

// deliver copies the packet into a pooled buffer and hands it to sink.
func (p *Peer) deliver(sink netio.Sink, pkt *protocol.Packet) {
	buf := getBuffer(len(pkt.Data))
	copy(buf, pkt.Data)

	err := sink.Push(netio.NetworkEvent{
		Role:    p.role,
		Kind:    netio.EventReceive,
		PeerID:  p.id,
		Address: p.addr,
		Conn:    p,
		Channel: pkt.Channel,
		Payload: netio.NewPayload(buf, putBuffer),
	})
	if err != nil {
		p.logger.Warn("inbound queue full, dropping packet", "channel", pkt.Channel, "bytes", len(buf))
	}
}

// heartbeat pings the remote end until the connection closes.
func (p *Peer) heartbeat() {
	ticker := time.NewTicker(p.cfg.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ping := &protocol.Control{Type: protocol.ControlPing, Timestamp: uint64(time.Now().UnixMilli())}
			if err := p.write(protocol.EncodeControl(ping).Encode()); err != nil {
				return
			}
		case <-p.done:
			return
		}
	}
}

func (p *Peer) sendControl(c *protocol.Control) {
	if err := p.write(protocol.EncodeControl(c).Encode()); err != nil && !errors.Is(err, ErrClosed) {
		p.logger.Error("control write error", "type", c.Type, "error", err)
	}
}

// close sends a disconnect frame with reason and closes the socket. Later
// calls are no-ops.
func (p *Peer) close(reason protocol.DisconnectReason) {
	if p.closed.Swap(true) {
		return
	}
	p.reason.Store(uint32(reason))
	close(p.done)

	p.writeMu.Lock()
	defer p.writeMu.Unlock()

	deadline := time.Now().Add(time.Second)
	p.ws.SetWriteDeadline(deadline)
	p.ws.WriteMessage(websocket.BinaryMessage, protocol.EncodeDisconnect(reason).Encode())
	p.ws.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason.String()),
		deadline,
	)
	p.ws.Close()

	sent, recv := p.Stats()
	p.logger.Info("connection closed", "reason", reason, "bytes_sent", sent, "bytes_recv", recv)
}

const maxPooledBuffer = 64 * 1024

var bufferPool = sync.Pool{
	New: func() any {
		b := make([]byte, 0, 512)
		return &b
	},
}

func getBuffer(n int) []byte {
	bp := bufferPool.Get().(*[]byte)
	if cap(*bp) < n {
		bufferPool.Put(bp)
		return make([]byte, n)
	}
	return (*bp)[:n]
}

func putBuffer(b []byte) {
	if cap(b) > maxPooledBuffer {
		return
	}
	b = b[:0]
	bufferPool.Put(&b)
}

// packAddress converts "host:port" into an IPv4 address with the first
// octet in the low byte. Non-IPv4 addresses yield 0.
func packAddress(hostport string) uint32 {
	host, _, err := net.SplitHostPort(hostport)
	if err != nil {
		host = hostport
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return 0
	}
	addr = addr.Unmap()
	if !addr.Is4() {
		return 0
	}
	a4 := addr.As4()
	return binary.LittleEndian.Uint32(a4[:])
}
