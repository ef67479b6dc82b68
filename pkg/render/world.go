package render

// World joins a Scene, a Renderer and a Queue into the surface scripts
// drive.
type World struct {
	Scene    Scene
	Renderer Renderer
	Queue    *Queue
}

func (w *World) AddCamera(spec CameraSpec) Handle {
	return w.Scene.AddCamera(spec)
}

func (w *World) AddNode(pos Vec3) Handle {
	return w.Scene.AddNode(pos)
}

// SetMainCamera designates cam as the main camera and activates it.
func (w *World) SetMainCamera(cam, forward Handle) {
	w.Queue.SetMainCamera(cam, forward)
	w.Renderer.SetActiveCamera(cam)
}

// RenderCamera queues an extra camera pass for this frame.
func (w *World) RenderCamera(req RenderRequest) bool {
	return w.Queue.Push(req)
}
