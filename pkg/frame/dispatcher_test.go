package frame

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	lerrors "github.com/lime-engine/lime/internal/errors"
	"github.com/lime-engine/lime/pkg/console"
	"github.com/lime-engine/lime/pkg/netio"
	"github.com/lime-engine/lime/pkg/render"
	"github.com/lime-engine/lime/pkg/script"
	"github.com/lime-engine/lime/pkg/telemetry"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace/noop"
)

func receive(peer uint16, channel uint8, data string, released *atomic.Int32) netio.NetworkEvent {
	return netio.NetworkEvent{
		Role:    netio.RoleServer,
		Kind:    netio.EventReceive,
		PeerID:  peer,
		Channel: channel,
		Payload: netio.NewPayload([]byte(data), func([]byte) { released.Add(1) }),
	}
}

func TestNew_RequiresComponents(t *testing.T) {
	q := netio.NewQueues(1, 1)
	engine := newFakeEngine()
	r := render.NewHeadless(render.HeadlessConfig{})

	tests := []struct {
		name string
		c    Components
		want error
	}{
		{"queues", Components{Engine: engine, Renderer: r}, ErrNoQueues},
		{"engine", Components{Queues: q, Renderer: r}, ErrNoEngine},
		{"renderer", Components{Queues: q, Engine: engine}, ErrNoRenderer},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(DefaultRuntimeConfig(), tt.c); !errors.Is(err, tt.want) {
				t.Fatalf("New() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestDispatcher_ReceiveWithoutHandlerReleasesPayloads(t *testing.T) {
	h := newHarness(t, RuntimeConfig{})
	var released atomic.Int32
	for _, data := range []string{"A", "B", "C"} {
		if err := h.queues.Inbound.Push(receive(1, 0, data, &released)); err != nil {
			t.Fatal(err)
		}
	}

	if err := h.d.Tick(context.Background()); err != nil {
		t.Fatalf("Tick() error: %v", err)
	}

	if got := released.Load(); got != 3 {
		t.Fatalf("released payloads = %d, want 3", got)
	}
	if len(h.engine.calls) != 0 {
		t.Fatalf("unexpected script calls: %v", h.engine.callNames())
	}
	if h.queues.Inbound.Len() != 0 || h.d.deferred.Len() != 0 {
		t.Fatal("queues should be empty after the tick")
	}
	warnings := 0
	for _, m := range h.messages(console.NetworkVerbose) {
		if strings.Contains(m, "NetworkServer.OnPacketReceived is not declared") {
			warnings++
		}
	}
	if warnings != 3 {
		t.Fatalf("verbose warnings = %d, want 3", warnings)
	}
}

func TestDispatcher_ReceivedPacketValidDuringCallback(t *testing.T) {
	h := newHarness(t, RuntimeConfig{}, "NetworkServer.OnPacketReceived")
	var released atomic.Int32
	h.engine.onCall = func(name string, args []any) {
		if len(args) != 2 {
			t.Fatalf("OnPacketReceived args = %v", args)
		}
		if ch, ok := args[0].(uint8); !ok || ch != 4 {
			t.Fatalf("channel arg = %v", args[0])
		}
		pkt := args[1].(*script.Packet)
		if pkt.Released() || string(pkt.Data()) != "abc" || pkt.SourcePeerID != 9 {
			t.Fatalf("packet = %+v data=%q", pkt, pkt.Data())
		}
	}
	if err := h.queues.Inbound.Push(receive(9, 4, "abc", &released)); err != nil {
		t.Fatal(err)
	}

	if err := h.d.Tick(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(h.engine.calls) != 1 {
		t.Fatalf("calls = %v", h.engine.callNames())
	}
	if released.Load() != 1 {
		t.Fatal("packet should be released once the callback returns")
	}
}

func TestDispatcher_BroadcastReachesRegisteredPeers(t *testing.T) {
	h := newHarness(t, RuntimeConfig{})
	h.queues.AddPeer(&fakeConn{id: 11})
	h.queues.AddPeer(&fakeConn{id: 10})
	if err := h.queues.Outbound.Push(netio.Broadcast([]byte("hi"), netio.Reliable)); err != nil {
		t.Fatal(err)
	}

	if err := h.d.Tick(context.Background()); err != nil {
		t.Fatal(err)
	}

	want := []sent{{peer: 10, channel: 0, data: "hi"}, {peer: 11, channel: 0, data: "hi"}}
	if len(h.transport.sends) != len(want) {
		t.Fatalf("sends = %+v, want %+v", h.transport.sends, want)
	}
	for i := range want {
		if h.transport.sends[i] != want[i] {
			t.Fatalf("sends[%d] = %+v, want %+v", i, h.transport.sends[i], want[i])
		}
	}
	if h.transport.flushes != 1 {
		t.Fatalf("flushes = %d, want 1", h.transport.flushes)
	}
}

func TestDispatcher_PeerAddressing(t *testing.T) {
	t.Run("unknown peer is dropped", func(t *testing.T) {
		h := newHarness(t, RuntimeConfig{})
		h.queues.Outbound.Push(netio.ToPeer(99, 1, []byte("x"), netio.Reliable))
		if err := h.d.Tick(context.Background()); err != nil {
			t.Fatal(err)
		}
		if len(h.transport.sends) != 0 || h.transport.flushes != 0 {
			t.Fatalf("sends=%v flushes=%d", h.transport.sends, h.transport.flushes)
		}
		if !containsLine(h.messages(console.NetworkVerbose), "Failed to send packet to peer with ID 99; peer does not exist") {
			t.Fatalf("missing warning in %v", h.messages(console.NetworkVerbose))
		}
	})

	t.Run("known peer uses its channel", func(t *testing.T) {
		h := newHarness(t, RuntimeConfig{})
		h.queues.AddPeer(&fakeConn{id: 3})
		h.queues.Outbound.Push(netio.ToPeer(3, 7, []byte("x"), netio.Unreliable))
		if err := h.d.Tick(context.Background()); err != nil {
			t.Fatal(err)
		}
		if len(h.transport.sends) != 1 || h.transport.sends[0] != (sent{peer: 3, channel: 7, data: "x"}) {
			t.Fatalf("sends = %+v", h.transport.sends)
		}
		if h.transport.flushes != 1 {
			t.Fatalf("flushes = %d", h.transport.flushes)
		}
	})

	t.Run("upstream without connection is dropped", func(t *testing.T) {
		h := newHarness(t, RuntimeConfig{})
		h.queues.Outbound.Push(netio.ToServer(2, []byte("x"), netio.Reliable))
		if err := h.d.Tick(context.Background()); err != nil {
			t.Fatal(err)
		}
		if len(h.transport.sends) != 0 {
			t.Fatalf("sends = %+v", h.transport.sends)
		}
	})

	t.Run("upstream with connection", func(t *testing.T) {
		h := newHarness(t, RuntimeConfig{})
		h.transport.upstream = &fakeConn{id: 1}
		h.queues.Outbound.Push(netio.ToServer(2, []byte("x"), netio.Reliable))
		if err := h.d.Tick(context.Background()); err != nil {
			t.Fatal(err)
		}
		if len(h.transport.sends) != 1 || h.transport.sends[0].channel != 2 {
			t.Fatalf("sends = %+v", h.transport.sends)
		}
	})

	t.Run("invalid addressing is dropped", func(t *testing.T) {
		h := newHarness(t, RuntimeConfig{})
		h.queues.AddPeer(&fakeConn{id: 1})
		h.queues.Outbound.Push(netio.OutboundPacket{Payload: []byte("x"), PeerID: 1, Channel: netio.NoChannel})
		if err := h.d.Tick(context.Background()); err != nil {
			t.Fatal(err)
		}
		if len(h.transport.sends) != 0 {
			t.Fatalf("sends = %+v", h.transport.sends)
		}
	})

	t.Run("send errors are not fatal", func(t *testing.T) {
		h := newHarness(t, RuntimeConfig{})
		h.transport.sendErr = errors.New("buffer full")
		h.queues.AddPeer(&fakeConn{id: 1})
		h.queues.Outbound.Push(netio.Broadcast([]byte("x"), netio.Reliable))
		if err := h.d.Tick(context.Background()); err != nil {
			t.Fatalf("Tick() error: %v", err)
		}
		if h.transport.flushes != 1 {
			t.Fatalf("flushes = %d, want 1", h.transport.flushes)
		}
	})

	t.Run("broadcast without peers still flushes", func(t *testing.T) {
		h := newHarness(t, RuntimeConfig{})
		h.queues.Outbound.Push(netio.Broadcast([]byte("x"), netio.Reliable))
		if err := h.d.Tick(context.Background()); err != nil {
			t.Fatal(err)
		}
		if len(h.transport.sends) != 0 || h.transport.flushes != 1 {
			t.Fatalf("sends=%v flushes=%d, want none and 1", h.transport.sends, h.transport.flushes)
		}
	})
}

func TestDispatcher_RemovedPeerNeverAddressed(t *testing.T) {
	h := newHarness(t, RuntimeConfig{})
	h.queues.AddPeer(&fakeConn{id: 1})
	h.queues.AddPeer(&fakeConn{id: 2})
	h.queues.RemovePeer(2)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				h.queues.Outbound.Push(netio.ToPeer(2, 0, []byte("x"), netio.Reliable))
				h.queues.Outbound.Push(netio.Broadcast([]byte("y"), netio.Reliable))
			}
		}()
	}
	wg.Wait()

	if err := h.d.Tick(context.Background()); err != nil {
		t.Fatal(err)
	}
	for _, s := range h.transport.sends {
		if s.peer == 2 {
			t.Fatalf("packet sent to removed peer: %+v", s)
		}
	}
}

func TestDispatcher_ServerConnectAndDisconnect(t *testing.T) {
	h := newHarness(t, RuntimeConfig{}, "NetworkServer.OnClientConnect", "NetworkServer.OnClientDisconnect")
	conn := &fakeConn{id: 7, addr: 0x0100007f}

	h.queues.Inbound.Push(netio.NetworkEvent{Role: netio.RoleServer, Kind: netio.EventConnect, PeerID: 7, Address: conn.addr, Conn: conn})
	if err := h.d.Tick(context.Background()); err != nil {
		t.Fatal(err)
	}
	if _, ok := h.queues.Peer(7); !ok {
		t.Fatal("peer 7 should be registered")
	}
	if len(h.engine.calls) != 1 || h.engine.calls[0].name != "NetworkServer.OnClientConnect" {
		t.Fatalf("calls = %v", h.engine.callNames())
	}
	if args := h.engine.calls[0].args; args[0] != uint16(7) || args[1] != uint32(0x0100007f) {
		t.Fatalf("OnClientConnect args = %v", args)
	}
	if !containsLine(h.messages(console.NetworkVerbose), "Client joined presuming ID 7 from IP 127.0.0.1") {
		t.Fatalf("verbose = %v", h.messages(console.NetworkVerbose))
	}

	h.queues.Inbound.Push(netio.NetworkEvent{Role: netio.RoleServer, Kind: netio.EventDisconnect, PeerID: 7, Address: conn.addr})
	if err := h.d.Tick(context.Background()); err != nil {
		t.Fatal(err)
	}
	if _, ok := h.queues.Peer(7); ok {
		t.Fatal("peer 7 should be removed")
	}
	if len(h.engine.calls) != 2 || h.engine.calls[1].name != "NetworkServer.OnClientDisconnect" {
		t.Fatalf("calls = %v", h.engine.callNames())
	}
	if !containsLine(h.messages(console.NetworkVerbose), "Client disconnected abandoning ID 7") {
		t.Fatalf("verbose = %v", h.messages(console.NetworkVerbose))
	}
}

func TestDispatcher_DisconnectSurvivesFullInbound(t *testing.T) {
	h := newHarness(t, RuntimeConfig{}, "NetworkServer.OnClientDisconnect")
	conn := &fakeConn{id: 5}
	h.queues.AddPeer(conn)

	for i := 0; i < h.queues.Inbound.Cap(); i++ {
		ev := netio.NetworkEvent{Role: netio.RoleServer, Kind: netio.EventReceive, PeerID: 5, Conn: conn, Payload: netio.NewPayload([]byte("x"), nil)}
		if err := h.queues.Inbound.Push(ev); err != nil {
			t.Fatalf("Push(receive %d) error: %v", i, err)
		}
	}
	if err := h.queues.Inbound.Push(netio.NetworkEvent{Role: netio.RoleServer, Kind: netio.EventDisconnect, PeerID: 5, Conn: conn}); err != nil {
		t.Fatalf("Push(disconnect) on full queue = %v, want nil", err)
	}

	if err := h.d.Tick(context.Background()); err != nil {
		t.Fatal(err)
	}
	if _, ok := h.queues.Peer(5); ok {
		t.Fatal("peer 5 should be removed")
	}
	if names := h.engine.callNames(); len(names) != 1 || names[0] != "NetworkServer.OnClientDisconnect" {
		t.Fatalf("calls = %v", names)
	}

	if err := h.queues.Outbound.Push(netio.Broadcast([]byte("hi"), netio.Reliable)); err != nil {
		t.Fatal(err)
	}
	if err := h.d.Tick(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(h.transport.sends) != 0 {
		t.Fatalf("sends after disconnect = %+v, want none", h.transport.sends)
	}
}

func TestDispatcher_ServerConnectWithoutHandler(t *testing.T) {
	h := newHarness(t, RuntimeConfig{})
	h.queues.Inbound.Push(netio.NetworkEvent{Role: netio.RoleServer, Kind: netio.EventConnect, PeerID: 1, Conn: &fakeConn{id: 1}})
	if err := h.d.Tick(context.Background()); err != nil {
		t.Fatal(err)
	}
	if _, ok := h.queues.Peer(1); !ok {
		t.Fatal("peer should be registered even without a handler")
	}
	if !containsLine(h.messages(console.NetworkVerbose), "A peer connected but NetworkServer.OnClientConnect is not declared") {
		t.Fatalf("verbose = %v", h.messages(console.NetworkVerbose))
	}
}

func TestDispatcher_ClientEvents(t *testing.T) {
	h := newHarness(t, RuntimeConfig{}, "NetworkClient.OnConnect", "NetworkClient.OnDisconnect")
	h.queues.Inbound.Push(netio.NetworkEvent{Role: netio.RoleClient, Kind: netio.EventConnect, PeerID: 2})
	h.queues.Inbound.Push(netio.NetworkEvent{Role: netio.RoleClient, Kind: netio.EventDisconnect, PeerID: 2, DisconnectReason: 4})

	if err := h.d.Tick(context.Background()); err != nil {
		t.Fatal(err)
	}
	names := h.engine.callNames()
	if len(names) != 2 || names[0] != "NetworkClient.OnConnect" || names[1] != "NetworkClient.OnDisconnect" {
		t.Fatalf("calls = %v", names)
	}
	if len(h.engine.calls[0].args) != 0 {
		t.Fatalf("OnConnect args = %v", h.engine.calls[0].args)
	}
	if h.engine.calls[1].args[0] != uint32(4) {
		t.Fatalf("OnDisconnect args = %v", h.engine.calls[1].args)
	}
	if !containsLine(h.messages(console.NetworkVerbose), "Disconnected from server as client, reason code 4") {
		t.Fatalf("verbose = %v", h.messages(console.NetworkVerbose))
	}
}

func TestDispatcher_GUIDrawnOnce(t *testing.T) {
	h := newHarness(t, RuntimeConfig{})
	mainCam := h.renderer.AddCamera(render.DefaultCameraSpec())
	target := h.renderer.AddNode(render.Vec3{Z: 10})
	x := h.renderer.AddCamera(render.DefaultCameraSpec())
	y := h.renderer.AddCamera(render.DefaultCameraSpec())
	h.d.renderQ.SetMainCamera(mainCam, target)

	h.d.renderQ.Push(render.RenderRequest{Camera: x, Forward: target, RenderGUI: true})
	h.d.renderQ.Push(render.RenderRequest{Camera: y, Forward: target, RenderGUI: true})
	if h.d.renderQ.Push(render.RenderRequest{Camera: mainCam, Forward: target}) {
		t.Fatal("main camera request should be rejected")
	}

	if err := h.d.Tick(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := h.countCalls(h.renderer.Calls, "DrawGUI"); got != 1 {
		t.Fatalf("DrawGUI calls = %d, want 1 (%v)", got, h.renderer.Calls)
	}
	if h.renderer.ActiveCamera() != mainCam {
		t.Fatal("main camera should be active after the frame")
	}
}

func TestDispatcher_FailingCallbackShutsDownOnce(t *testing.T) {
	h := newHarness(t, RuntimeConfig{})
	h.engine.failures["B"] = "main.lua:3: boom"
	h.d.deferred.Push(&fakeFn{name: "A", valid: true})
	h.d.deferred.Push(&fakeFn{name: "B", valid: true})
	h.d.deferred.Push(&fakeFn{name: "C", valid: true})

	err := h.d.Run(context.Background())

	var se *ScriptError
	if !errors.As(err, &se) {
		t.Fatalf("Run() error = %v, want *ScriptError", err)
	}
	var le *lerrors.LimeError
	if !errors.As(err, &le) || le.Code != "L011" {
		t.Fatalf("coded error = %v, want L011", le)
	}
	if names := h.engine.callNames(); len(names) != 2 || names[0] != "A" || names[1] != "B" {
		t.Fatalf("calls = %v, want [A B]", names)
	}
	if len(h.dialog.shown) != 1 {
		t.Fatalf("dialogs = %v", h.dialog.shown)
	}
	if want := "Lime Runtime Error|Lime encountered an error:\nmain.lua:3: boom|1"; h.dialog.shown[0] != want {
		t.Fatalf("dialog = %q, want %q", h.dialog.shown[0], want)
	}
	if !h.console.OutputEnabled() {
		t.Fatal("a fatal error should force console output on")
	}
	if h.transport.closes != 1 || h.renderer.Running() || !h.d.Ended() {
		t.Fatalf("closes=%d running=%v ended=%v", h.transport.closes, h.renderer.Running(), h.d.Ended())
	}

	h.d.Shutdown()
	if h.transport.closes != 1 {
		t.Fatalf("second Shutdown closed the transport again")
	}
	if h.d.State() != StateShutdown {
		t.Fatalf("State() = %v", h.d.State())
	}
}

func TestDispatcher_UpdateFailure(t *testing.T) {
	h := newHarness(t, RuntimeConfig{}, "Lime.OnUpdate", "Lime.OnEnd")
	h.engine.failures["Lime.OnUpdate"] = "main.lua:10: attempt to index a nil value"

	err := h.d.Run(context.Background())
	var se *ScriptError
	if !errors.As(err, &se) || se.Handler != "Lime.OnUpdate" {
		t.Fatalf("Run() error = %v", err)
	}
	for _, name := range h.engine.callNames() {
		if name == "Lime.OnEnd" {
			t.Fatal("OnEnd must not run after a fatal error")
		}
	}
	if !containsLine(h.messages(console.Warning), "attempt to index a nil value") {
		t.Fatalf("warnings = %v", h.messages(console.Warning))
	}
}

func TestDispatcher_NormalExit(t *testing.T) {
	h := newHarness(t, RuntimeConfig{}, "Lime.OnStart", "Lime.OnUpdate", "Lime.OnEnd")
	h.renderer = render.NewHeadless(render.HeadlessConfig{MaxFrames: 3})
	h.d.renderer = h.renderer

	if err := h.d.Run(context.Background()); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	want := []string{"Lime.OnStart", "Lime.OnUpdate", "Lime.OnUpdate", "Lime.OnUpdate", "Lime.OnEnd"}
	got := h.engine.callNames()
	if len(got) != len(want) {
		t.Fatalf("calls = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("calls = %v, want %v", got, want)
		}
	}
	if h.d.Frame() != 3 || !h.d.Ended() || h.transport.closes != 1 {
		t.Fatalf("frame=%d ended=%v closes=%d", h.d.Frame(), h.d.Ended(), h.transport.closes)
	}
	if !containsLine(h.messages(console.Normal), "Ending application...") {
		t.Fatalf("messages = %v", h.messages(console.Normal))
	}
	if len(h.dialog.shown) != 0 {
		t.Fatalf("unexpected dialog: %v", h.dialog.shown)
	}
}

func TestDispatcher_StopEndsLoop(t *testing.T) {
	h := newHarness(t, RuntimeConfig{}, "Lime.OnUpdate", "Lime.OnEnd")
	h.engine.onCall = func(name string, _ []any) {
		if name == "Lime.OnUpdate" {
			h.d.Stop()
		}
	}
	if err := h.d.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if h.d.Frame() != 1 {
		t.Fatalf("Frame() = %d, want 1", h.d.Frame())
	}
	if names := h.engine.callNames(); names[len(names)-1] != "Lime.OnEnd" {
		t.Fatalf("calls = %v", names)
	}
}

func TestDispatcher_CancelledContext(t *testing.T) {
	h := newHarness(t, RuntimeConfig{}, "Lime.OnUpdate")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := h.d.Run(ctx); err != nil {
		t.Fatal(err)
	}
	if h.d.Frame() != 0 || !h.d.Ended() {
		t.Fatalf("frame=%d ended=%v", h.d.Frame(), h.d.Ended())
	}
}

func TestDispatcher_DeltaTime(t *testing.T) {
	h := newHarness(t, RuntimeConfig{}, "Lime.OnUpdate")
	clock := time.Unix(1000, 0)
	h.d.now = func() time.Time { return clock }

	if err := h.d.Tick(context.Background()); err != nil {
		t.Fatal(err)
	}
	clock = clock.Add(33334 * time.Microsecond)
	if err := h.d.Tick(context.Background()); err != nil {
		t.Fatal(err)
	}

	first := h.engine.calls[0].args[0].(float64)
	second := h.engine.calls[1].args[0].(float64)
	if first != 0 {
		t.Fatalf("first dt = %v, want 0", first)
	}
	if math.Abs(second-2) > 1e-3 {
		t.Fatalf("second dt = %v, want 2", second)
	}
}

func TestDispatcher_FPS(t *testing.T) {
	h := newHarness(t, RuntimeConfig{})
	clock := time.Unix(1000, 0)
	h.d.now = func() time.Time { return clock }

	for i := 0; i < 10; i++ {
		if err := h.d.Tick(context.Background()); err != nil {
			t.Fatal(err)
		}
		clock = clock.Add(100 * time.Millisecond)
	}
	if h.d.FPS() != 0 {
		t.Fatalf("FPS() = %d before a full second", h.d.FPS())
	}
	if err := h.d.Tick(context.Background()); err != nil {
		t.Fatal(err)
	}
	if h.d.FPS() != 11 {
		t.Fatalf("FPS() = %d, want 11", h.d.FPS())
	}
}

func TestDispatcher_FPSAveragesSlowFrames(t *testing.T) {
	h := newHarness(t, RuntimeConfig{})
	clock := time.Unix(1000, 0)
	h.d.now = func() time.Time { return clock }

	for i := 0; i < 2; i++ {
		if err := h.d.Tick(context.Background()); err != nil {
			t.Fatal(err)
		}
		clock = clock.Add(2 * time.Second)
	}
	if h.d.FPS() != 1 {
		t.Fatalf("FPS() = %d, want 1 for two frames over two seconds", h.d.FPS())
	}
}

func TestDispatcher_FramePacing(t *testing.T) {
	h := newHarness(t, RuntimeConfig{FrameLimit: 50})
	h.renderer = render.NewHeadless(render.HeadlessConfig{MaxFrames: 2})
	h.d.renderer = h.renderer
	clock := time.Unix(1000, 0)
	h.d.now = func() time.Time { return clock }

	var sleeps []time.Duration
	h.d.sleep = func(_ context.Context, d time.Duration) { sleeps = append(sleeps, d) }

	if err := h.d.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(sleeps) != 2 || sleeps[0] != 20*time.Millisecond {
		t.Fatalf("sleeps = %v, want two of 20ms", sleeps)
	}
}

func TestDispatcher_ShutdownReleasesQueuedWork(t *testing.T) {
	h := newHarness(t, RuntimeConfig{})
	var released atomic.Int32
	h.queues.Inbound.Push(receive(1, 0, "late", &released))
	h.d.deferred.Push(&fakeFn{name: "never", valid: true})

	h.d.Shutdown()
	h.d.Shutdown()

	if released.Load() != 1 {
		t.Fatal("queued payloads should be released on shutdown")
	}
	if h.d.deferred.Len() != 0 {
		t.Fatal("deferred callbacks should be discarded")
	}
	if h.transport.closes != 1 {
		t.Fatalf("closes = %d, want 1", h.transport.closes)
	}
	if len(h.engine.calls) != 0 {
		t.Fatalf("calls = %v", h.engine.callNames())
	}
}

func TestDispatcher_PollsTransport(t *testing.T) {
	h := newHarness(t, RuntimeConfig{})
	h.d.Tick(context.Background())
	h.d.Tick(context.Background())
	if h.transport.polls != 2 {
		t.Fatalf("polls = %d, want 2", h.transport.polls)
	}
	if h.d.State() != StateIdle {
		t.Fatalf("State() = %v, want idle", h.d.State())
	}
}

func TestDispatcher_CallbackMetricsCountInvokedOnly(t *testing.T) {
	h := newHarness(t, RuntimeConfig{})
	reg := prometheus.NewRegistry()
	h.d.tel = telemetry.New(telemetry.WithRegistry(reg), telemetry.WithTracerProvider(noop.NewTracerProvider()))

	h.d.deferred.Push(&fakeFn{name: "a", valid: true})
	h.d.deferred.Push(&fakeFn{name: "gone", valid: false})
	h.d.deferred.Push(&fakeFn{name: "b", valid: true})
	if err := h.d.Tick(context.Background()); err != nil {
		t.Fatal(err)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error: %v", err)
	}
	var ok float64
	for _, mf := range families {
		if mf.GetName() != "lime_callbacks_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if lp.GetName() == "outcome" && lp.GetValue() == "ok" {
					ok += m.GetCounter().GetValue()
				}
			}
		}
	}
	if ok != 2 {
		t.Fatalf("callbacks_total{outcome=\"ok\"} = %v, want 2", ok)
	}
}
