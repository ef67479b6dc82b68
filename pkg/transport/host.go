package transport

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/lime-engine/lime/pkg/netio"
	"github.com/lime-engine/lime/pkg/protocol"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Host accepts client connections and reports them to a sink with the
// server role.
type Host struct {
	cfg      *Config
	sink     netio.Sink
	logger   *slog.Logger
	upgrader websocket.Upgrader
	router   chi.Router

	mu     sync.Mutex
	peers  map[uint16]*Peer
	nextID uint16

	httpServer *http.Server
	listener   net.Listener
	closed     atomic.Bool
	wg         sync.WaitGroup
}

// PeerInfo describes a connected peer for diagnostics.
type PeerInfo struct {
	ID        uint16 `json:"id"`
	Address   string `json:"address"`
	BytesSent uint64 `json:"bytes_sent"`
	BytesRecv uint64 `json:"bytes_recv"`
}

// NewHost creates a host that pushes events into sink. If cfg is nil,
// DefaultConfig is used.
func NewHost(cfg *Config, sink netio.Sink, opts ...Option) *Host {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	o := buildOptions(opts)

	h := &Host{
		cfg:    cfg,
		sink:   sink,
		logger: o.logger.With("component", "host"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  cfg.ReadBufferSize,
			WriteBufferSize: cfg.WriteBufferSize,
			CheckOrigin:     cfg.CheckOrigin,
		},
		peers: make(map[uint16]*Peer),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Get(cfg.Path, h.handleWebSocket)
	r.Get("/healthz", h.handleHealth)
	r.Get("/peers", h.handlePeers)
	r.Handle("/metrics", promhttp.HandlerFor(o.gatherer, promhttp.HandlerOpts{}))
	h.router = r

	return h
}

// Handler returns the host's HTTP handler.
func (h *Host) Handler() http.Handler {
	return h.router
}

// Start listens on the configured address and serves in the background.
func (h *Host) Start() error {
	ln, err := net.Listen("tcp", h.cfg.Address)
	if err != nil {
		return err
	}
	h.listener = ln
	h.httpServer = &http.Server{
		Handler:           h.router,
		ReadHeaderTimeout: h.cfg.HandshakeTimeout,
	}

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		h.logger.Info("host listening", "address", ln.Addr().String())
		if err := h.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			h.logger.Error("serve error", "error", err)
		}
	}()
	return nil
}

// Addr returns the listen address once Start has succeeded.
func (h *Host) Addr() net.Addr {
	if h.listener == nil {
		return nil
	}
	return h.listener.Addr()
}

// Peer returns the live connection with the given id.
func (h *Host) Peer(id uint16) (*Peer, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	p, ok := h.peers[id]
	return p, ok
}

// Peers returns the connected peers in ascending id order.
func (h *Host) Peers() []PeerInfo {
	h.mu.Lock()
	infos := make([]PeerInfo, 0, len(h.peers))
	for _, p := range h.peers {
		sent, recv := p.Stats()
		infos = append(infos, PeerInfo{
			ID:        p.id,
			Address:   netio.FormatAddress(p.addr),
			BytesSent: sent,
			BytesRecv: recv,
		})
	}
	h.mu.Unlock()

	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	return infos
}

// Close disconnects every peer and stops the HTTP server. Later calls are
// no-ops.
func (h *Host) Close() error {
	if h.closed.Swap(true) {
		return nil
	}

	h.mu.Lock()
	peers := make([]*Peer, 0, len(h.peers))
	for _, p := range h.peers {
		peers = append(peers, p)
	}
	h.mu.Unlock()

	for _, p := range peers {
		p.close(protocol.DisconnectServerShutdown)
	}

	var err error
	if h.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), h.cfg.ShutdownTimeout)
		defer cancel()
		err = h.httpServer.Shutdown(ctx)
	}
	h.wg.Wait()
	h.logger.Info("host closed")
	return err
}

func (h *Host) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if h.closed.Load() {
		http.Error(w, "shutting down", http.StatusServiceUnavailable)
		return
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "error", err)
		return
	}
	ws.SetReadLimit(h.cfg.MaxMessageSize)
	ws.SetReadDeadline(time.Now().Add(h.cfg.HandshakeTimeout))

	hello, err := readHello(ws)
	if err != nil {
		h.logger.Warn("handshake failed", "remote", r.RemoteAddr, "error", err)
		h.reject(ws, protocol.WelcomeInvalidFormat)
		return
	}
	if !hello.Version.Compatible() {
		h.reject(ws, protocol.WelcomeVersionMismatch)
		return
	}

	peer, ok := h.admit(ws, packAddress(r.RemoteAddr))
	if !ok {
		h.logger.Warn("rejecting connection, server full", "remote", r.RemoteAddr)
		h.reject(ws, protocol.WelcomeServerFull)
		return
	}
	defer h.wg.Done()

	welcome := &protocol.Welcome{
		Status:     protocol.WelcomeOK,
		PeerID:     peer.id,
		ServerTime: uint64(time.Now().UnixMilli()),
	}
	if err := peer.write(protocol.EncodeWelcome(welcome).Encode()); err != nil {
		peer.close(protocol.DisconnectProtocolError)
		h.release(peer.id)
		return
	}

	err = h.sink.Push(netio.NetworkEvent{
		Role:    netio.RoleServer,
		Kind:    netio.EventConnect,
		PeerID:  peer.id,
		Address: peer.addr,
		Conn:    peer,
	})
	if err != nil {
		peer.logger.Warn("inbound queue full, refusing connection")
		peer.close(protocol.DisconnectServerFull)
		h.release(peer.id)
		return
	}
	peer.logger.Info("peer connected", "name", hello.Name, "remote", r.RemoteAddr)

	h.wg.Add(2)
	go func() {
		defer h.wg.Done()
		peer.heartbeat()
	}()
	go func() {
		defer h.wg.Done()
		reason := peer.readLoop(h.sink)
		peer.close(reason)

		// The disconnect is queued before the id is freed so a reconnect
		// that reuses the id is always processed after it.
		err := h.sink.Push(netio.NetworkEvent{
			Role:             netio.RoleServer,
			Kind:             netio.EventDisconnect,
			PeerID:           peer.id,
			Address:          peer.addr,
			Conn:             peer,
			DisconnectReason: uint32(reason),
		})
		if err != nil {
			peer.logger.Warn("inbound queue full, dropping disconnect")
		}
		h.release(peer.id)
	}()
}

// admit allocates the first free id at or after nextID and registers a
// peer under it. On success the caller owns one wait group slot.
func (h *Host) admit(ws *websocket.Conn, addr uint32) (*Peer, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed.Load() || len(h.peers) >= h.cfg.maxPeers() {
		return nil, false
	}
	id := h.nextID
	for {
		if _, used := h.peers[id]; !used {
			break
		}
		id++
	}
	h.nextID = id + 1

	p := newPeer(ws, id, addr, netio.RoleServer, h.cfg, h.logger)
	h.peers[id] = p
	h.wg.Add(1)
	return p, true
}

func (h *Host) release(id uint16) {
	h.mu.Lock()
	delete(h.peers, id)
	h.mu.Unlock()
}

func (h *Host) reject(ws *websocket.Conn, status protocol.WelcomeStatus) {
	ws.SetWriteDeadline(time.Now().Add(h.cfg.WriteTimeout))
	ws.WriteMessage(websocket.BinaryMessage, protocol.EncodeWelcome(&protocol.Welcome{Status: status}).Encode())
	ws.Close()
}

func (h *Host) handleHealth(w http.ResponseWriter, r *http.Request) {
	if h.closed.Load() {
		http.Error(w, "closed", http.StatusServiceUnavailable)
		return
	}
	w.Write([]byte("ok"))
}

func (h *Host) handlePeers(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(h.Peers()); err != nil {
		h.logger.Error("peers encode error", "error", err)
	}
}

func readHello(ws *websocket.Conn) (*protocol.Hello, error) {
	_, msg, err := ws.ReadMessage()
	if err != nil {
		return nil, err
	}
	frame, err := protocol.DecodeFrame(msg)
	if err != nil {
		return nil, err
	}
	return protocol.DecodeHello(frame)
}
