// Package telemetry exposes Prometheus metrics and OpenTelemetry spans for
// the frame dispatcher.
//
// A Telemetry value owns its collectors, so several dispatchers (or tests)
// can register against separate registries:
//
//	reg := prometheus.NewRegistry()
//	tel := telemetry.New(telemetry.WithRegistry(reg))
//
// Metrics collected (namespace "lime" by default):
//   - lime_events_total: network events drained, by kind and role
//   - lime_packets_sent_total: transport sends, by addressing mode
//   - lime_packets_dropped_total: outbound packets dropped, by reason
//   - lime_callbacks_total: deferred callbacks, by outcome
//   - lime_frames_total: completed ticks
//   - lime_render_requests_total: render requests drained
//   - lime_queue_depth: items drained per queue on the last tick
//   - lime_tick_duration_seconds: tick duration
//   - lime_phase_duration_seconds: dispatcher phase duration
//   - lime_fps: frames counted over the last second
//
// Spans use the global tracer provider unless WithTracerProvider is given.
package telemetry
