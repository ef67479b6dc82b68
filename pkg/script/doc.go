// Package script runs game scripts on the frame goroutine.
//
// Engine is the boundary between the dispatcher and the scripting
// language: Lookup resolves handler functions such as
// NetworkServer.OnPacketReceived and Call invokes them, turning script
// errors and Go panics into a CallOutcome instead of unwinding the frame
// loop.
//
// Queue holds deferred callbacks. It is drained once per frame; a callback
// queued while draining runs on the next frame.
//
// LuaEngine implements Engine on gopher-lua and exposes these globals:
//
//	Lime.defer(fn, ...)        Lime.log(msg)        Lime.stop()
//	Lime.getFPS()              Lime.displayMessage(title, message, icon)
//	Network.send(data, reliable, peerId, channel)
//	Network.broadcast(data, reliable)
//	Network.sendToServer(data, reliable, channel)
//	World.addCamera{...}       World.addNode(x, y, z)
//	World.setMainCamera(cam, forward)
//	World.renderCamera(cam, forward, defaultRendering, renderGUI)
//
// Packets handed to OnPacketReceived expose getData, getChannel, getPeer
// and release. A packet is valid only while its callback runs.
package script
