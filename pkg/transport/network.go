package transport

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/lime-engine/lime/pkg/netio"
)

// Network implements netio.Transport over an optional Host and an optional
// upstream Client.
type Network struct {
	cfg    *Config
	sink   netio.Sink
	opts   []Option
	logger *slog.Logger

	mu     sync.Mutex
	host   *Host
	client *Client
	dirty  map[*Peer]struct{}
	closed atomic.Bool
}

var _ netio.Transport = (*Network)(nil)

// NewNetwork creates a transport that reports events to sink. It neither
// listens nor dials until Listen or Connect is called.
func NewNetwork(cfg *Config, sink netio.Sink, opts ...Option) *Network {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	o := buildOptions(opts)
	return &Network{
		cfg:    cfg,
		sink:   sink,
		opts:   opts,
		logger: o.logger.With("component", "network"),
		dirty:  make(map[*Peer]struct{}),
	}
}

// Listen starts a host on the configured address.
func (n *Network) Listen() (*Host, error) {
	if n.closed.Load() {
		return nil, ErrClosed
	}
	h := NewHost(n.cfg, n.sink, n.opts...)
	if err := h.Start(); err != nil {
		return nil, err
	}
	n.mu.Lock()
	n.host = h
	n.mu.Unlock()
	return h, nil
}

// Connect dials url and makes it the upstream connection, closing any
// previous one.
func (n *Network) Connect(ctx context.Context, url string) error {
	if n.closed.Load() {
		return ErrClosed
	}
	c, err := Dial(ctx, url, n.cfg, n.sink, n.opts...)
	if err != nil {
		return err
	}
	n.mu.Lock()
	prev := n.client
	n.client = c
	n.mu.Unlock()
	if prev != nil {
		prev.Close()
	}
	return nil
}

// Host returns the listening host, or nil.
func (n *Network) Host() *Host {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.host
}

// Send queues pkt for conn on channel. Nothing is written until Flush.
func (n *Network) Send(conn netio.Conn, channel uint8, pkt netio.OutboundPacket) error {
	p, ok := conn.(*Peer)
	if !ok {
		return ErrUnknownConn
	}
	if err := p.enqueue(channel, pkt); err != nil {
		return err
	}
	n.mu.Lock()
	n.dirty[p] = struct{}{}
	n.mu.Unlock()
	return nil
}

// Upstream returns the client connection while it is open.
func (n *Network) Upstream() (netio.Conn, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.client == nil || !n.client.Connected() {
		return nil, false
	}
	return n.client.Conn(), true
}

// Flush writes every connection that has pending frames.
func (n *Network) Flush() error {
	n.mu.Lock()
	dirty := n.dirty
	n.dirty = make(map[*Peer]struct{}, len(dirty))
	n.mu.Unlock()

	var errs []error
	for p := range dirty {
		if err := p.flush(); err != nil && !errors.Is(err, ErrClosed) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close shuts down the client and the host. Later calls are no-ops.
func (n *Network) Close() error {
	if n.closed.Swap(true) {
		return nil
	}
	n.mu.Lock()
	host, client := n.host, n.client
	n.mu.Unlock()

	var errs []error
	if client != nil {
		errs = append(errs, client.Close())
	}
	if host != nil {
		errs = append(errs, host.Close())
	}
	n.logger.Debug("network closed")
	return errors.Join(errs...)
}
