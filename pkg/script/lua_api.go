package script

import (
	"github.com/lime-engine/lime/pkg/netio"
	"github.com/lime-engine/lime/pkg/render"
	lua "github.com/yuin/gopher-lua"
)

const packetTypeName = "lime.packet"

func (e *LuaEngine) install() {
	L := e.L

	lime := L.NewTable()
	L.SetFuncs(lime, map[string]lua.LGFunction{
		"defer":          e.limeDefer,
		"log":            e.limeLog,
		"stop":           e.limeStop,
		"getFPS":         e.limeGetFPS,
		"displayMessage": e.limeDisplayMessage,
	})
	L.SetGlobal("Lime", lime)

	network := L.NewTable()
	L.SetFuncs(network, map[string]lua.LGFunction{
		"send":         e.networkSend,
		"broadcast":    e.networkBroadcast,
		"sendToServer": e.networkSendToServer,
	})
	L.SetGlobal("Network", network)

	world := L.NewTable()
	L.SetFuncs(world, map[string]lua.LGFunction{
		"addCamera":     e.worldAddCamera,
		"addNode":       e.worldAddNode,
		"setMainCamera": e.worldSetMainCamera,
		"renderCamera":  e.worldRenderCamera,
	})
	L.SetGlobal("World", world)

	L.SetGlobal("NetworkServer", L.NewTable())
	L.SetGlobal("NetworkClient", L.NewTable())

	mt := L.NewTypeMetatable(packetTypeName)
	L.SetField(mt, "__index", L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
		"getData":    packetGetData,
		"getChannel": packetGetChannel,
		"getPeer":    packetGetPeer,
		"release":    packetRelease,
	}))
}

func (e *LuaEngine) newPacket(p *Packet) *lua.LUserData {
	ud := e.L.NewUserData()
	ud.Value = p
	e.L.SetMetatable(ud, e.L.GetTypeMetatable(packetTypeName))
	return ud
}

func checkPacket(L *lua.LState) *Packet {
	ud := L.CheckUserData(1)
	p, ok := ud.Value.(*Packet)
	if !ok {
		L.ArgError(1, "packet expected")
		return nil
	}
	return p
}

func packetGetData(L *lua.LState) int {
	p := checkPacket(L)
	if p.Released() {
		L.Push(lua.LNil)
		return 1
	}
	L.Push(lua.LString(p.Data()))
	return 1
}

func packetGetChannel(L *lua.LState) int {
	L.Push(lua.LNumber(checkPacket(L).Channel))
	return 1
}

func packetGetPeer(L *lua.LState) int {
	L.Push(lua.LNumber(checkPacket(L).SourcePeerID))
	return 1
}

func packetRelease(L *lua.LState) int {
	checkPacket(L).Release()
	return 0
}

func (e *LuaEngine) limeDefer(L *lua.LState) int {
	fn := L.CheckFunction(1)
	if e.bindings.Deferred == nil {
		L.RaiseError("Lime.defer is not available")
		return 0
	}
	var args []any
	for i := 2; i <= L.GetTop(); i++ {
		args = append(args, L.Get(i))
	}
	e.bindings.Deferred.Push(&luaFunction{fn: fn, engine: e}, args...)
	return 0
}

func (e *LuaEngine) limeLog(L *lua.LState) int {
	msg := L.ToStringMeta(L.Get(1)).String()
	if e.bindings.Log != nil {
		e.bindings.Log(msg)
	} else {
		e.logger.Info(msg)
	}
	return 0
}

func (e *LuaEngine) limeStop(L *lua.LState) int {
	if e.bindings.Stop != nil {
		e.bindings.Stop()
	}
	return 0
}

func (e *LuaEngine) limeGetFPS(L *lua.LState) int {
	fps := 0
	if e.bindings.FPS != nil {
		fps = e.bindings.FPS()
	}
	L.Push(lua.LNumber(fps))
	return 1
}

func (e *LuaEngine) limeDisplayMessage(L *lua.LState) int {
	title := L.CheckString(1)
	message := L.CheckString(2)
	icon := L.OptInt(3, 0)
	if e.bindings.Display != nil {
		e.bindings.Display(title, message, icon)
	}
	return 0
}

func reliability(L *lua.LState, n int) netio.Reliability {
	if L.OptBool(n, true) {
		return netio.Reliable
	}
	return netio.Unreliable
}

func (e *LuaEngine) pushPacket(L *lua.LState, pkt netio.OutboundPacket) int {
	if e.bindings.Network == nil {
		L.RaiseError("networking is not available")
		return 0
	}
	if err := e.bindings.Network.Push(pkt); err != nil {
		e.logger.Warn("outbound packet dropped", "packet", pkt.String(), "error", err)
		L.Push(lua.LFalse)
		return 1
	}
	L.Push(lua.LTrue)
	return 1
}

// Network.send(data, reliable, peerId, channel)
func (e *LuaEngine) networkSend(L *lua.LState) int {
	data := L.CheckString(1)
	rel := reliability(L, 2)
	peer := L.CheckInt(3)
	channel := L.CheckInt(4)
	if peer < 0 || peer > 0xFFFF || channel < 0 || channel > 0xFF {
		L.ArgError(3, "peer id or channel out of range")
		return 0
	}
	return e.pushPacket(L, netio.ToPeer(uint16(peer), uint8(channel), []byte(data), rel))
}

// Network.broadcast(data, reliable)
func (e *LuaEngine) networkBroadcast(L *lua.LState) int {
	data := L.CheckString(1)
	return e.pushPacket(L, netio.Broadcast([]byte(data), reliability(L, 2)))
}

// Network.sendToServer(data, reliable, channel)
func (e *LuaEngine) networkSendToServer(L *lua.LState) int {
	data := L.CheckString(1)
	rel := reliability(L, 2)
	channel := L.OptInt(3, int(netio.DefaultChannel))
	if channel < 0 || channel > 0xFF {
		L.ArgError(3, "channel out of range")
		return 0
	}
	return e.pushPacket(L, netio.ToServer(uint8(channel), []byte(data), rel))
}

func (e *LuaEngine) world(L *lua.LState) World {
	if e.bindings.World == nil {
		L.RaiseError("World is not available")
	}
	return e.bindings.World
}

func checkHandle(L *lua.LState, n int) render.Handle {
	v := L.CheckInt(n)
	if v < 0 {
		L.ArgError(n, "invalid handle")
	}
	return render.Handle(v)
}

func numberField(t *lua.LTable, key string, def float64) float64 {
	if n, ok := t.RawGetString(key).(lua.LNumber); ok {
		return float64(n)
	}
	return def
}

// World.addCamera{x=, y=, z=, fov=, near=, far=, orthographic=}
func (e *LuaEngine) worldAddCamera(L *lua.LState) int {
	w := e.world(L)
	spec := render.DefaultCameraSpec()
	if L.GetTop() >= 1 {
		t := L.CheckTable(1)
		spec.Position = render.Vec3{
			X: numberField(t, "x", 0),
			Y: numberField(t, "y", 0),
			Z: numberField(t, "z", 0),
		}
		spec.FOV = numberField(t, "fov", spec.FOV)
		spec.Near = numberField(t, "near", spec.Near)
		spec.Far = numberField(t, "far", spec.Far)
		spec.Orthographic = lua.LVAsBool(t.RawGetString("orthographic"))
	}
	L.Push(lua.LNumber(w.AddCamera(spec)))
	return 1
}

// World.addNode(x, y, z)
func (e *LuaEngine) worldAddNode(L *lua.LState) int {
	w := e.world(L)
	pos := render.Vec3{
		X: float64(L.OptNumber(1, 0)),
		Y: float64(L.OptNumber(2, 0)),
		Z: float64(L.OptNumber(3, 0)),
	}
	L.Push(lua.LNumber(w.AddNode(pos)))
	return 1
}

// World.setMainCamera(cam, forward)
func (e *LuaEngine) worldSetMainCamera(L *lua.LState) int {
	w := e.world(L)
	w.SetMainCamera(checkHandle(L, 1), checkHandle(L, 2))
	return 0
}

// World.renderCamera(cam, forward, defaultRendering, renderGUI)
func (e *LuaEngine) worldRenderCamera(L *lua.LState) int {
	w := e.world(L)
	req := render.RenderRequest{
		Camera:              checkHandle(L, 1),
		Forward:             checkHandle(L, 2),
		UseDefaultRendering: L.OptBool(3, true),
		RenderGUI:           L.OptBool(4, false),
	}
	L.Push(lua.LBool(w.RenderCamera(req)))
	return 1
}
