// Package render queues camera render requests and replays them against a
// Renderer once per frame.
//
// Cameras and scene nodes are addressed by Handle, an index into the
// renderer's scene arena. The Queue keeps the designated main camera and
// rejects requests for it; DrainAndRender draws the main view, each
// queued camera in submission order and the GUI at most once per frame.
//
// Headless is an in-memory Renderer used by the CLI when no display is
// attached and by tests.
package render
