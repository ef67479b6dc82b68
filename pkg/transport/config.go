package transport

import (
	"errors"
	"net/http"
	"time"
)

// Config holds settings shared by hosts and clients.
type Config struct {
	// Address is the host listen address. Default: ":7777".
	Address string

	// Path is the WebSocket endpoint. Default: "/ws".
	Path string

	// ReadBufferSize and WriteBufferSize size the WebSocket buffers.
	// Default: 4096.
	ReadBufferSize  int
	WriteBufferSize int

	// MaxMessageSize limits incoming WebSocket messages. Default: 64KB.
	MaxMessageSize int64

	// HandshakeTimeout bounds the hello/welcome exchange. Default: 5s.
	HandshakeTimeout time.Duration

	// ReadTimeout closes a connection that sends nothing, pings included,
	// for this long. Default: 30s.
	ReadTimeout time.Duration

	// WriteTimeout bounds each socket write. Default: 5s.
	WriteTimeout time.Duration

	// HeartbeatInterval is the time between pings. Default: 10s.
	HeartbeatInterval time.Duration

	// MaxPeers caps concurrent host connections. Peer ids are 16 bits, so
	// values above 65536 are clamped. Default: 4096.
	MaxPeers int

	// MaxPendingBytes bounds each connection's unflushed frames.
	// Unreliable frames past the bound are dropped silently; reliable
	// frames fail with ErrBufferFull. Default: 1MB.
	MaxPendingBytes int

	// ShutdownTimeout bounds the HTTP server shutdown. Default: 5s.
	ShutdownTimeout time.Duration

	// CheckOrigin validates the upgrade request origin. Default: allow
	// every origin, since game clients are not browsers.
	CheckOrigin func(r *http.Request) bool
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Address:           ":7777",
		Path:              "/ws",
		ReadBufferSize:    4096,
		WriteBufferSize:   4096,
		MaxMessageSize:    64 * 1024,
		HandshakeTimeout:  5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      5 * time.Second,
		HeartbeatInterval: 10 * time.Second,
		MaxPeers:          4096,
		MaxPendingBytes:   1 << 20,
		ShutdownTimeout:   5 * time.Second,
		CheckOrigin:       func(*http.Request) bool { return true },
	}
}

// Validate reports configuration values that cannot work.
func (c *Config) Validate() error {
	var errs []error
	if c.MaxPeers <= 0 {
		errs = append(errs, errors.New("transport: MaxPeers must be positive"))
	}
	if c.MaxPendingBytes <= 0 {
		errs = append(errs, errors.New("transport: MaxPendingBytes must be positive"))
	}
	if c.HeartbeatInterval <= 0 {
		errs = append(errs, errors.New("transport: HeartbeatInterval must be positive"))
	}
	if c.ReadTimeout <= c.HeartbeatInterval {
		errs = append(errs, errors.New("transport: ReadTimeout must exceed HeartbeatInterval"))
	}
	return errors.Join(errs...)
}

func (c *Config) maxPeers() int {
	if c.MaxPeers > 1<<16 {
		return 1 << 16
	}
	return c.MaxPeers
}
