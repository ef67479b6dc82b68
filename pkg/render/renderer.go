package render

import "math"

// Handle is an index into a renderer's scene arena. The zero Handle refers
// to nothing.
type Handle uint32

// InvalidHandle is the zero Handle.
const InvalidHandle Handle = 0

// CameraSpec describes a camera to create.
type CameraSpec struct {
	Position     Vec3
	FOV          float64 // vertical, radians
	Near         float64
	Far          float64
	Orthographic bool
}

// DefaultCameraSpec returns a perspective camera at the origin.
func DefaultCameraSpec() CameraSpec {
	return CameraSpec{
		FOV:  math.Pi / 2.5,
		Near: 1,
		Far:  3000,
	}
}

// CameraInfo is the projection state of a camera.
type CameraInfo struct {
	FOV          float64
	Near         float64
	Far          float64
	Orthographic bool
}

// RenderRequest asks for one extra camera pass in the current frame.
type RenderRequest struct {
	Camera              Handle
	Forward             Handle
	UseDefaultRendering bool
	RenderGUI           bool
}

// Renderer is the drawing device. All methods are called from the frame
// goroutine.
type Renderer interface {
	// Open initializes the device.
	Open() error
	// Running reports whether the device is still open.
	Running() bool
	// Close shuts the device down. Later calls are no-ops.
	Close()

	BeginScene()
	EndScene()
	ScreenSize() (width, height int)

	ActiveCamera() Handle
	SetActiveCamera(cam Handle)
	Camera(cam Handle) (CameraInfo, bool)
	SetProjection(cam Handle, m Matrix)

	// UpdateAbsolutePosition recomputes a node's world transform.
	UpdateAbsolutePosition(node Handle)
	AbsolutePosition(node Handle) Vec3
	SetTarget(cam Handle, target Vec3)

	// LegacyDrawing reports whether the main view uses the built-in scene
	// pass instead of the effects pipeline.
	LegacyDrawing() bool
	DrawScene()
	DrawEffects()
	DrawGUI()
}

// Scene creates cameras and nodes.
type Scene interface {
	AddCamera(spec CameraSpec) Handle
	AddNode(pos Vec3) Handle
}
