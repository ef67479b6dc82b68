// Package transport carries Lime packets over WebSocket.
//
// A Host accepts client connections on a chi router, assigns each one a
// peer id and pushes connect, receive and disconnect events into a
// netio.Sink. A Client dials an upstream host and reports the same events
// with the client role. Network combines both behind netio.Transport so
// the frame dispatcher can send to peers and flush once per frame.
//
// # Goroutines
//
// Every connection runs two goroutines:
//   - readLoop: decodes frames and pushes events into the sink
//   - heartbeat: sends periodic pings
//
// Sends never touch the socket. Send appends the encoded frame to the
// connection's pending buffer and Flush writes every pending buffer.
//
// # Endpoints
//
// The host router serves:
//
//	GET /ws        WebSocket upgrade
//	GET /healthz   liveness probe
//	GET /metrics   Prometheus exposition
//	GET /peers     connected peers as JSON
package transport
