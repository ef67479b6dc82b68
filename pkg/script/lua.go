package script

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/lime-engine/lime/pkg/netio"
	"github.com/lime-engine/lime/pkg/render"
	lua "github.com/yuin/gopher-lua"
)

// Outbox accepts packets produced by scripts. *netio.Outbound implements
// it.
type Outbox interface {
	Push(pkt netio.OutboundPacket) error
}

// World is the scene surface exposed to scripts.
type World interface {
	AddCamera(spec render.CameraSpec) render.Handle
	AddNode(pos render.Vec3) render.Handle
	SetMainCamera(cam, forward render.Handle)
	RenderCamera(req render.RenderRequest) bool
}

// Bindings connects the script globals to the rest of the runtime. Nil
// fields leave the matching functions out.
type Bindings struct {
	Network  Outbox
	Deferred *Queue
	World    World
	Log      func(msg string)
	Stop     func()
	FPS      func() int
	Display  func(title, message string, icon int)
}

// LuaEngine implements Engine on a single gopher-lua state.
type LuaEngine struct {
	L        *lua.LState
	bindings Bindings
	logger   *slog.Logger
	closed   bool
}

var _ Engine = (*LuaEngine)(nil)

// NewLuaEngine creates a Lua state with the Lime, Network, World,
// NetworkServer and NetworkClient globals installed.
func NewLuaEngine(b Bindings, logger *slog.Logger) *LuaEngine {
	if logger == nil {
		logger = slog.Default()
	}
	e := &LuaEngine{
		L:        lua.NewState(),
		bindings: b,
		logger:   logger.With("component", "script"),
	}
	e.install()
	return e
}

// Load runs the script at path.
func (e *LuaEngine) Load(path string) error {
	return e.L.DoFile(path)
}

// LoadString runs src as a chunk.
func (e *LuaEngine) LoadString(src string) error {
	return e.L.DoString(src)
}

// Lookup returns table.field when both exist and the field is a function.
func (e *LuaEngine) Lookup(table, field string) (Function, bool) {
	if e.closed {
		return nil, false
	}
	tbl, ok := e.L.GetGlobal(table).(*lua.LTable)
	if !ok {
		return nil, false
	}
	fn, ok := tbl.RawGetString(field).(*lua.LFunction)
	if !ok {
		return nil, false
	}
	return &luaFunction{fn: fn, engine: e}, true
}

// Call invokes fn in protected mode.
func (e *LuaEngine) Call(fn Function, args ...any) (out CallOutcome) {
	lf, ok := fn.(*luaFunction)
	if !ok || lf.engine != e || !lf.Valid() {
		return Failed("attempt to call an invalid function handle")
	}

	top := e.L.GetTop()
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("script call panic", "panic", r)
			out = Failed(fmt.Sprint(r)).WithTrace(string(debug.Stack()))
		}
		e.L.SetTop(top)
	}()

	values := make([]lua.LValue, len(args))
	for i, a := range args {
		values[i] = e.toLValue(a)
	}
	err := e.L.CallByParam(lua.P{Fn: lf.fn, NRet: 0, Protect: true}, values...)
	if err != nil {
		var apiErr *lua.ApiError
		if errors.As(err, &apiErr) {
			return Failed(apiErr.Object.String()).WithTrace(apiErr.StackTrace)
		}
		return Failed(err.Error())
	}
	return Ok()
}

// Close releases the Lua state. Handles obtained before Close become
// invalid.
func (e *LuaEngine) Close() {
	if e.closed {
		return
	}
	e.closed = true
	e.L.Close()
}

type luaFunction struct {
	fn     *lua.LFunction
	engine *LuaEngine
}

func (f *luaFunction) Valid() bool {
	return f != nil && f.fn != nil && !f.engine.closed
}

func (e *LuaEngine) toLValue(v any) lua.LValue {
	switch x := v.(type) {
	case nil:
		return lua.LNil
	case lua.LValue:
		return x
	case bool:
		return lua.LBool(x)
	case int:
		return lua.LNumber(x)
	case int32:
		return lua.LNumber(x)
	case int64:
		return lua.LNumber(x)
	case uint8:
		return lua.LNumber(x)
	case uint16:
		return lua.LNumber(x)
	case uint32:
		return lua.LNumber(x)
	case float32:
		return lua.LNumber(x)
	case float64:
		return lua.LNumber(x)
	case render.Handle:
		return lua.LNumber(x)
	case string:
		return lua.LString(x)
	case []byte:
		return lua.LString(x)
	case *Packet:
		return e.newPacket(x)
	default:
		return lua.LString(fmt.Sprint(x))
	}
}
