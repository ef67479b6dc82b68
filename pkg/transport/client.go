package transport

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/lime-engine/lime/pkg/netio"
	"github.com/lime-engine/lime/pkg/protocol"
)

// Client is a connection to an upstream host. Its events carry the client
// role.
type Client struct {
	peer   *Peer
	sink   netio.Sink
	logger *slog.Logger
	wg     sync.WaitGroup
}

// Dial connects to the host at url ("ws://host:port/ws"), completes the
// handshake and starts the connection goroutines. The connect event is
// pushed into sink before Dial returns.
func Dial(ctx context.Context, url string, cfg *Config, sink netio.Sink, opts ...Option) (*Client, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	o := buildOptions(opts)
	logger := o.logger.With("component", "client", "url", url)

	dialer := websocket.Dialer{
		HandshakeTimeout: cfg.HandshakeTimeout,
		ReadBufferSize:   cfg.ReadBufferSize,
		WriteBufferSize:  cfg.WriteBufferSize,
	}
	ws, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	ws.SetReadLimit(cfg.MaxMessageSize)

	welcome, err := handshake(ws, cfg, o.name)
	if err != nil {
		ws.Close()
		return nil, err
	}

	c := &Client{
		peer:   newPeer(ws, welcome.PeerID, packAddress(ws.RemoteAddr().String()), netio.RoleClient, cfg, logger),
		sink:   sink,
		logger: logger,
	}

	err = sink.Push(netio.NetworkEvent{
		Role:    netio.RoleClient,
		Kind:    netio.EventConnect,
		PeerID:  c.peer.id,
		Address: c.peer.addr,
		Conn:    c.peer,
	})
	if err != nil {
		c.peer.close(protocol.DisconnectNormal)
		return nil, err
	}
	logger.Info("connected to host", "peer", welcome.PeerID)

	c.wg.Add(2)
	go func() {
		defer c.wg.Done()
		c.peer.heartbeat()
	}()
	go func() {
		defer c.wg.Done()
		reason := c.peer.readLoop(c.sink)
		c.peer.close(reason)
		err := c.sink.Push(netio.NetworkEvent{
			Role:             netio.RoleClient,
			Kind:             netio.EventDisconnect,
			PeerID:           c.peer.id,
			Address:          c.peer.addr,
			Conn:             c.peer,
			DisconnectReason: uint32(reason),
		})
		if err != nil {
			c.logger.Warn("inbound queue full, dropping disconnect")
		}
	}()

	return c, nil
}

func handshake(ws *websocket.Conn, cfg *Config, name string) (*protocol.Welcome, error) {
	deadline := time.Now().Add(cfg.HandshakeTimeout)

	ws.SetWriteDeadline(deadline)
	hello := protocol.EncodeHello(&protocol.Hello{Version: protocol.CurrentVersion, Name: name})
	if err := ws.WriteMessage(websocket.BinaryMessage, hello.Encode()); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrHandshake, err)
	}

	ws.SetReadDeadline(deadline)
	_, msg, err := ws.ReadMessage()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrHandshake, err)
	}
	frame, err := protocol.DecodeFrame(msg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrHandshake, err)
	}
	welcome, err := protocol.DecodeWelcome(frame)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrHandshake, err)
	}
	if welcome.Status != protocol.WelcomeOK {
		return nil, fmt.Errorf("%w: %s", ErrHandshake, welcome.Status)
	}
	return welcome, nil
}

// Conn returns the upstream connection.
func (c *Client) Conn() *Peer {
	return c.peer
}

// Connected reports whether the upstream connection is still open.
func (c *Client) Connected() bool {
	return !c.peer.IsClosed()
}

// Done is closed when the upstream connection ends.
func (c *Client) Done() <-chan struct{} {
	return c.peer.Done()
}

// Close disconnects from the host and waits for the connection goroutines.
func (c *Client) Close() error {
	c.peer.close(protocol.DisconnectNormal)
	c.wg.Wait()
	return nil
}
