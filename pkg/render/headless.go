package render

import (
	"errors"
	"sync/atomic"
)

// ErrNotOpen is returned when a closed headless device is reopened.
var ErrNotOpen = errors.New("render: device closed")

type node struct {
	position Vec3
	absolute Vec3
	target   Vec3
	camera   *CameraInfo
	proj     Matrix
}

// HeadlessConfig configures a Headless renderer.
type HeadlessConfig struct {
	Width  int
	Height int

	// MaxFrames closes the device after this many EndScene calls. Zero
	// means no limit.
	MaxFrames uint64

	// Legacy selects the built-in scene pass for the main view.
	Legacy bool

	// Trace records every draw call in Calls.
	Trace bool
}

// Headless is a Renderer and Scene that keeps the scene in memory and
// draws nothing.
type Headless struct {
	cfg    HeadlessConfig
	nodes  []node
	active Handle
	open   bool
	closed atomic.Bool

	frames     uint64
	sceneDraws uint64
	fxDraws    uint64
	guiDraws   uint64

	// Calls lists draw calls in order when tracing is enabled.
	Calls []string
}

var (
	_ Renderer = (*Headless)(nil)
	_ Scene    = (*Headless)(nil)
)

// NewHeadless creates a headless renderer.
func NewHeadless(cfg HeadlessConfig) *Headless {
	if cfg.Width <= 0 {
		cfg.Width = 800
	}
	if cfg.Height <= 0 {
		cfg.Height = 600
	}
	return &Headless{cfg: cfg}
}

func (h *Headless) trace(call string) {
	if h.cfg.Trace {
		h.Calls = append(h.Calls, call)
	}
}

func (h *Headless) Open() error {
	if h.closed.Load() {
		return ErrNotOpen
	}
	h.open = true
	return nil
}

func (h *Headless) Running() bool {
	return h.open && !h.closed.Load()
}

func (h *Headless) Close() {
	if h.closed.Swap(true) {
		return
	}
	h.open = false
	h.trace("Close")
}

func (h *Headless) BeginScene() {
	h.trace("BeginScene")
}

func (h *Headless) EndScene() {
	h.trace("EndScene")
	h.frames++
	if h.cfg.MaxFrames > 0 && h.frames >= h.cfg.MaxFrames {
		h.Close()
	}
}

func (h *Headless) ScreenSize() (int, int) {
	return h.cfg.Width, h.cfg.Height
}

func (h *Headless) get(handle Handle) *node {
	if handle == InvalidHandle || int(handle) > len(h.nodes) {
		return nil
	}
	return &h.nodes[handle-1]
}

func (h *Headless) add(n node) Handle {
	h.nodes = append(h.nodes, n)
	return Handle(len(h.nodes))
}

// AddCamera creates a camera. The first camera becomes active.
func (h *Headless) AddCamera(spec CameraSpec) Handle {
	info := CameraInfo{FOV: spec.FOV, Near: spec.Near, Far: spec.Far, Orthographic: spec.Orthographic}
	handle := h.add(node{position: spec.Position, absolute: spec.Position, camera: &info, proj: Identity()})
	if h.active == InvalidHandle {
		h.active = handle
	}
	return handle
}

// AddNode creates an empty scene node.
func (h *Headless) AddNode(pos Vec3) Handle {
	return h.add(node{position: pos, absolute: pos})
}

// Move sets a node's relative position.
func (h *Headless) Move(handle Handle, pos Vec3) {
	if n := h.get(handle); n != nil {
		n.position = pos
	}
}

func (h *Headless) ActiveCamera() Handle {
	return h.active
}

func (h *Headless) SetActiveCamera(cam Handle) {
	if n := h.get(cam); n != nil && n.camera != nil {
		h.active = cam
	}
}

func (h *Headless) Camera(cam Handle) (CameraInfo, bool) {
	n := h.get(cam)
	if n == nil || n.camera == nil {
		return CameraInfo{}, false
	}
	return *n.camera, true
}

func (h *Headless) SetProjection(cam Handle, m Matrix) {
	if n := h.get(cam); n != nil && n.camera != nil {
		n.proj = m
	}
}

// ProjectionOf returns the last projection applied to cam.
func (h *Headless) ProjectionOf(cam Handle) Matrix {
	if n := h.get(cam); n != nil {
		return n.proj
	}
	return Matrix{}
}

func (h *Headless) UpdateAbsolutePosition(handle Handle) {
	if n := h.get(handle); n != nil {
		n.absolute = n.position
	}
}

func (h *Headless) AbsolutePosition(handle Handle) Vec3 {
	if n := h.get(handle); n != nil {
		return n.absolute
	}
	return Vec3{}
}

func (h *Headless) SetTarget(cam Handle, target Vec3) {
	if n := h.get(cam); n != nil && n.camera != nil {
		n.target = target
	}
}

// Target returns where cam is aimed.
func (h *Headless) Target(cam Handle) Vec3 {
	if n := h.get(cam); n != nil {
		return n.target
	}
	return Vec3{}
}

func (h *Headless) LegacyDrawing() bool {
	return h.cfg.Legacy
}

func (h *Headless) DrawScene() {
	h.sceneDraws++
	h.trace("DrawScene")
}

func (h *Headless) DrawEffects() {
	h.fxDraws++
	h.trace("DrawEffects")
}

func (h *Headless) DrawGUI() {
	h.guiDraws++
	h.trace("DrawGUI")
}

// HeadlessStats counts what a Headless renderer has drawn.
type HeadlessStats struct {
	Frames      uint64
	SceneDraws  uint64
	EffectDraws uint64
	GUIDraws    uint64
	Nodes       int
}

// Stats returns the draw counters.
func (h *Headless) Stats() HeadlessStats {
	return HeadlessStats{
		Frames:      h.frames,
		SceneDraws:  h.sceneDraws,
		EffectDraws: h.fxDraws,
		GUIDraws:    h.guiDraws,
		Nodes:       len(h.nodes),
	}
}
