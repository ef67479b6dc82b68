package frame

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/lime-engine/lime/pkg/console"
	"github.com/lime-engine/lime/pkg/netio"
	"github.com/lime-engine/lime/pkg/render"
	"github.com/lime-engine/lime/pkg/script"
)

type fakeFn struct {
	name  string
	valid bool
}

func (f *fakeFn) Valid() bool { return f.valid }

type call struct {
	name string
	args []any
}

// fakeEngine resolves "Table.Field" names declared in fns and fails the
// ones listed in failures.
type fakeEngine struct {
	fns      map[string]*fakeFn
	failures map[string]string
	calls    []call
	onCall   func(name string, args []any)
	closed   bool
}

func newFakeEngine(names ...string) *fakeEngine {
	e := &fakeEngine{fns: map[string]*fakeFn{}, failures: map[string]string{}}
	for _, n := range names {
		e.fns[n] = &fakeFn{name: n, valid: true}
	}
	return e
}

func (e *fakeEngine) Lookup(table, field string) (script.Function, bool) {
	fn, ok := e.fns[table+"."+field]
	if !ok {
		return nil, false
	}
	return fn, true
}

func (e *fakeEngine) Call(fn script.Function, args ...any) script.CallOutcome {
	f := fn.(*fakeFn)
	e.calls = append(e.calls, call{name: f.name, args: args})
	if e.onCall != nil {
		e.onCall(f.name, args)
	}
	if msg, ok := e.failures[f.name]; ok {
		return script.Failed(msg)
	}
	return script.Ok()
}

func (e *fakeEngine) Close() { e.closed = true }

func (e *fakeEngine) callNames() []string {
	names := make([]string, len(e.calls))
	for i, c := range e.calls {
		names[i] = c.name
	}
	return names
}

type fakeConn struct {
	id   uint16
	addr uint32
}

func (c *fakeConn) ID() uint16      { return c.id }
func (c *fakeConn) Address() uint32 { return c.addr }

type sent struct {
	peer    uint16
	channel uint8
	data    string
}

type fakeTransport struct {
	sends    []sent
	flushes  int
	closes   int
	polls    int
	upstream netio.Conn
	sendErr  error
}

func (t *fakeTransport) Send(conn netio.Conn, channel uint8, pkt netio.OutboundPacket) error {
	if t.sendErr != nil {
		return t.sendErr
	}
	t.sends = append(t.sends, sent{peer: conn.ID(), channel: channel, data: string(pkt.Payload)})
	return nil
}

func (t *fakeTransport) Upstream() (netio.Conn, bool) {
	return t.upstream, t.upstream != nil
}

func (t *fakeTransport) Flush() error { t.flushes++; return nil }
func (t *fakeTransport) Close() error { t.closes++; return nil }
func (t *fakeTransport) Poll()        { t.polls++ }

type recordingDialog struct {
	shown []string
}

func (d *recordingDialog) Show(title, message string, icon console.Icon) {
	d.shown = append(d.shown, fmt.Sprintf("%s|%s|%d", title, message, icon))
}

type harness struct {
	d         *Dispatcher
	queues    *netio.Queues
	engine    *fakeEngine
	transport *fakeTransport
	renderer  *render.Headless
	dialog    *recordingDialog
	console   *console.Console
}

func newHarness(t *testing.T, cfg RuntimeConfig, names ...string) *harness {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := &harness{
		queues:    netio.NewQueues(16, 16),
		engine:    newFakeEngine(names...),
		transport: &fakeTransport{},
		renderer:  render.NewHeadless(render.HeadlessConfig{Trace: true}),
		dialog:    &recordingDialog{},
		console:   console.New(logger, console.WithVerbose(true)),
	}
	d, err := New(cfg, Components{
		Queues:    h.queues,
		Transport: h.transport,
		Engine:    h.engine,
		Renderer:  h.renderer,
		Console:   h.console,
		Dialog:    h.dialog,
		Logger:    logger,
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	d.sleep = func(context.Context, time.Duration) {}
	h.d = d
	return h
}

func (h *harness) messages(sev console.Severity) []string {
	var out []string
	for _, e := range h.console.Entries() {
		if e.Severity == sev {
			out = append(out, e.Text)
		}
	}
	return out
}

func (h *harness) countCalls(trace []string, name string) int {
	n := 0
	for _, c := range trace {
		if c == name {
			n++
		}
	}
	return n
}

func containsLine(lines []string, substr string) bool {
	for _, l := range lines {
		if strings.Contains(l, substr) {
			return true
		}
	}
	return false
}
