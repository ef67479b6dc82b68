package frame

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"sync/atomic"
	"time"

	"github.com/lime-engine/lime/pkg/console"
	"github.com/lime-engine/lime/pkg/netio"
	"github.com/lime-engine/lime/pkg/render"
	"github.com/lime-engine/lime/pkg/script"
	"github.com/lime-engine/lime/pkg/telemetry"
)

const (
	dialogTitle  = "Lime Runtime Error"
	dialogPrefix = "Lime encountered an error:\n"
)

// Components are the collaborators a Dispatcher drives.
type Components struct {
	// Queues holds the inbound and outbound queues and the peer registry.
	Queues *netio.Queues

	// Transport delivers outbound packets. Nil runs without networking;
	// queued packets are then dropped.
	Transport netio.Transport

	Engine   script.Engine
	Deferred *script.Queue

	Renderer    render.Renderer
	RenderQueue *render.Queue

	Console   *console.Console
	Dialog    console.Dialog
	Telemetry *telemetry.Telemetry
	Logger    *slog.Logger
}

// Dispatcher runs the frame loop. Run, Tick and Shutdown belong to the
// frame goroutine; State, Frame, FPS, Ended and Stop are safe from any
// goroutine.
type Dispatcher struct {
	cfg       RuntimeConfig
	queues    *netio.Queues
	transport netio.Transport
	engine    script.Engine
	deferred  *script.Queue
	renderer  render.Renderer
	renderQ   *render.Queue
	console   *console.Console
	dialog    console.Dialog
	tel       *telemetry.Telemetry
	logger    *slog.Logger

	state    atomic.Int32
	frame    atomic.Uint64
	fps      atomic.Int64
	stopping atomic.Bool
	closing  atomic.Bool
	ended    atomic.Bool

	lastTick  time.Time
	fpsStart  time.Time
	fpsFrames int

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration)
}

// New creates a dispatcher. Missing optional components get defaults: an
// empty deferred and render queue, a console on the logger, and a dialog
// printing to stderr.
func New(cfg RuntimeConfig, c Components) (*Dispatcher, error) {
	if c.Queues == nil {
		return nil, ErrNoQueues
	}
	if c.Engine == nil {
		return nil, ErrNoEngine
	}
	if c.Renderer == nil {
		return nil, ErrNoRenderer
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.Deferred == nil {
		c.Deferred = &script.Queue{}
	}
	if c.RenderQueue == nil {
		c.RenderQueue = &render.Queue{}
	}
	if c.Console == nil {
		c.Console = console.New(c.Logger, console.WithVerbose(cfg.VerboseNetwork))
	}
	if c.Dialog == nil {
		c.Dialog = console.NewWriterDialog(nil)
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = DefaultRuntimeConfig().ShutdownTimeout
	}
	if cfg.WriteOutput {
		c.Console.EnableOutput()
	}

	d := &Dispatcher{
		cfg:       cfg,
		queues:    c.Queues,
		transport: c.Transport,
		engine:    c.Engine,
		deferred:  c.Deferred,
		renderer:  c.Renderer,
		renderQ:   c.RenderQueue,
		console:   c.Console,
		dialog:    c.Dialog,
		tel:       c.Telemetry,
		logger:    c.Logger.With("component", "frame"),
		now:       time.Now,
		sleep:     sleepContext,
	}
	return d, nil
}

// Run calls Lime.OnStart, ticks until the device closes, ctx is cancelled
// or Stop is called, then calls Lime.OnEnd and shuts down. A script error
// takes the fatal path and is returned as a *ScriptError.
func (d *Dispatcher) Run(ctx context.Context) error {
	if err := d.renderer.Open(); err != nil {
		d.Shutdown()
		return err
	}

	start := d.now()
	d.lastTick = start
	d.fpsStart = start

	if err := d.callHandler("Lime", "OnStart"); err != nil {
		d.fail(err)
		return err
	}

	for d.renderer.Running() && !d.stopping.Load() && ctx.Err() == nil {
		tickStart := d.now()
		if err := d.Tick(ctx); err != nil {
			d.fail(err)
			return err
		}
		d.pace(ctx, tickStart)
	}

	if err := d.callHandler("Lime", "OnEnd"); err != nil {
		d.fail(err)
		return err
	}
	d.Shutdown()
	return nil
}

// Tick runs one pass through every phase.
func (d *Dispatcher) Tick(ctx context.Context) error {
	start := d.now()
	frame := d.frame.Load() + 1
	ctx, span := d.tel.StartTick(ctx, frame)

	err := d.tick(ctx, start)

	telemetry.EndSpan(span, err)
	d.state.Store(int32(StateIdle))
	if err != nil {
		return err
	}
	d.frame.Store(frame)
	end := d.now()
	d.tel.RecordTick(end.Sub(start))
	d.updateFPS(end)
	return nil
}

func (d *Dispatcher) tick(ctx context.Context, start time.Time) error {
	if err := d.phase(ctx, StatePollTransport, d.pollTransport); err != nil {
		return err
	}
	if err := d.phase(ctx, StateDrainInbound, d.drainInbound); err != nil {
		return err
	}
	if err := d.phase(ctx, StateDrainOutbound, d.DrainAndSend); err != nil {
		return err
	}

	if d.lastTick.IsZero() {
		d.lastTick = start
	}
	dt := float64(start.Sub(d.lastTick)) / float64(time.Millisecond) / FrameUnit
	d.lastTick = start
	if err := d.phase(ctx, StateRenderFrame, func() error { return d.renderFrame(dt) }); err != nil {
		return err
	}
	return d.phase(ctx, StateInvokeDeferred, d.invokeDeferred)
}

func (d *Dispatcher) phase(ctx context.Context, s State, fn func() error) error {
	d.state.Store(int32(s))
	_, span := d.tel.StartPhase(ctx, s.String())
	start := time.Now()
	err := fn()
	d.tel.RecordPhase(s.String(), time.Since(start))
	telemetry.EndSpan(span, err)
	return err
}

func (d *Dispatcher) pollTransport() error {
	if p, ok := d.transport.(netio.Poller); ok {
		p.Poll()
	}
	return nil
}

func (d *Dispatcher) renderFrame(dt float64) error {
	if fn, ok := d.engine.Lookup("Lime", "OnUpdate"); ok {
		if out := d.engine.Call(fn, dt); !out.OK() {
			return newScriptError("Lime.OnUpdate", "L010", out)
		}
	}
	n := d.renderQ.Len()
	d.renderQ.DrainAndRender(d.renderer)
	d.tel.SetQueueDepth("render", n)
	d.tel.RecordRenderRequests(n)
	return nil
}

func (d *Dispatcher) invokeDeferred() error {
	n := d.deferred.Len()
	d.tel.SetQueueDepth("deferred", n)
	if n == 0 {
		return nil
	}
	invoked, out := d.deferred.DrainAndInvoke(d.engine)
	for range invoked {
		d.tel.RecordCallback("ok")
	}
	if !out.OK() {
		d.tel.RecordCallback("failed")
		return newScriptError("deferred callback", "L011", out)
	}
	return nil
}

// callHandler invokes table.field once if the script declares it.
func (d *Dispatcher) callHandler(table, field string) error {
	fn, ok := d.engine.Lookup(table, field)
	if !ok {
		return nil
	}
	if out := d.engine.Call(fn); !out.OK() {
		return newScriptError(table+"."+field, "L010", out)
	}
	return nil
}

func (d *Dispatcher) pace(ctx context.Context, tickStart time.Time) {
	budget := d.cfg.frameBudget()
	if budget == 0 {
		return
	}
	if remaining := budget - d.now().Sub(tickStart); remaining > 0 {
		d.sleep(ctx, remaining)
	}
}

func sleepContext(ctx context.Context, dur time.Duration) {
	t := time.NewTimer(dur)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// updateFPS publishes the frame rate once at least a second has passed,
// averaged over the whole interval.
func (d *Dispatcher) updateFPS(now time.Time) {
	if d.fpsStart.IsZero() {
		d.fpsStart = now
	}
	d.fpsFrames++
	if now.Sub(d.fpsStart) < time.Second {
		return
	}
	fps := int(math.Round(float64(d.fpsFrames) / now.Sub(d.fpsStart).Seconds()))
	d.fps.Store(int64(fps))
	d.tel.SetFPS(fps)
	d.fpsFrames = 0
	d.fpsStart = now
}

// fail is the fatal path: output is forced on and written, the error is
// shown in a dialog, and the dispatcher shuts down.
func (d *Dispatcher) fail(err error) {
	msg := err.Error()
	var se *ScriptError
	if errors.As(err, &se) {
		msg = se.Message
		if se.Trace != "" {
			d.logger.Debug("script stack trace", "handler", se.Handler, "trace", se.Trace)
		}
	}

	d.console.EnableOutput()
	d.console.SendMsg(msg, console.Warning)
	d.writeOutput()
	d.dialog.Show(dialogTitle, dialogPrefix+msg, console.IconWarning)
	d.Shutdown()
}

func (d *Dispatcher) writeOutput() {
	ctx, cancel := context.WithTimeout(context.Background(), d.cfg.ShutdownTimeout)
	defer cancel()
	if err := d.console.WriteOutput(ctx); err != nil {
		d.logger.Error("failed to write console output", "error", err)
	}
}

// Shutdown ends the application once: the transcript is written if output
// is enabled, the transport and the render device are closed, and queued
// work is discarded. Later calls are no-ops.
func (d *Dispatcher) Shutdown() {
	if d.closing.Swap(true) {
		return
	}
	d.state.Store(int32(StateShutdown))
	d.console.SendMsg("Ending application...", console.Normal)

	if d.console.OutputEnabled() {
		d.writeOutput()
	}
	if d.transport != nil {
		if err := d.transport.Close(); err != nil {
			d.logger.Warn("transport close failed", "error", err)
		}
	}
	d.renderer.Close()

	for _, ev := range d.queues.Inbound.Drain() {
		ev.Payload.Release()
	}
	d.deferred.Discard()
	d.renderQ.Discard()

	d.ended.Store(true)
}

// Stop asks the loop to end after the current tick.
func (d *Dispatcher) Stop() {
	d.stopping.Store(true)
}

// State returns the current phase.
func (d *Dispatcher) State() State {
	return State(d.state.Load())
}

// Frame returns the number of completed ticks.
func (d *Dispatcher) Frame() uint64 {
	return d.frame.Load()
}

// FPS returns the frame rate averaged over the last interval of at least
// one second.
func (d *Dispatcher) FPS() int {
	return int(d.fps.Load())
}

// Ended reports whether Shutdown has run.
func (d *Dispatcher) Ended() bool {
	return d.ended.Load()
}

// Console returns the console the dispatcher reports to.
func (d *Dispatcher) Console() *console.Console {
	return d.console
}
