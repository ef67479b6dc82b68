// Package frame runs the Lime frame loop.
//
// A Dispatcher owns one tick of work and repeats it while the render
// device is open:
//
//	Idle → PollTransport → DrainInbound → DrainOutbound → RenderFrame → InvokeDeferred → Idle
//
// Network goroutines only push into the inbound queue. Everything else,
// including every script call, happens on the goroutine that calls Run.
// A script error in a top-level handler or a deferred callback ends the
// loop: the console transcript is written, a dialog is shown, and the
// dispatcher shuts down.
package frame
