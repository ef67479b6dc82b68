package render

// Queue collects render requests for the current frame. It belongs to the
// frame goroutine and is not synchronized.
type Queue struct {
	requests    []RenderRequest
	mainCamera  Handle
	mainForward Handle
}

// SetMainCamera designates the camera the main view renders through and
// the node it looks at.
func (q *Queue) SetMainCamera(cam, forward Handle) {
	q.mainCamera = cam
	q.mainForward = forward
}

// MainCamera returns the designated main camera and its forward node.
func (q *Queue) MainCamera() (cam, forward Handle) {
	return q.mainCamera, q.mainForward
}

// Push queues req. Requests for the main camera or without a camera are
// rejected.
func (q *Queue) Push(req RenderRequest) bool {
	if req.Camera == InvalidHandle || req.Camera == q.mainCamera {
		return false
	}
	q.requests = append(q.requests, req)
	return true
}

// Len returns the number of queued requests.
func (q *Queue) Len() int {
	return len(q.requests)
}

// DrainAndRender draws one frame and empties the queue. It returns the
// number of camera passes rendered for queued requests. The camera active
// when the drain starts is the view camera: requests for it are skipped,
// since it was already drawn. Afterwards the main camera is active again,
// or the view camera when no main camera was designated.
func (q *Queue) DrainAndRender(r Renderer) int {
	requests := q.requests
	q.requests = nil

	r.BeginScene()

	if q.mainCamera != InvalidHandle {
		aim(r, q.mainCamera, q.mainForward)
	}
	view := r.ActiveCamera()
	if view != InvalidHandle {
		applyProjection(r, view)
		if r.LegacyDrawing() {
			r.DrawScene()
		} else {
			r.DrawEffects()
		}
	}

	guiDrawn := false
	passes := 0
	for _, req := range requests {
		if req.RenderGUI && !guiDrawn {
			r.DrawGUI()
			guiDrawn = true
			continue
		}
		if req.Camera == view {
			continue
		}
		r.SetActiveCamera(req.Camera)
		applyProjection(r, req.Camera)
		aim(r, req.Camera, req.Forward)
		if req.UseDefaultRendering {
			r.DrawScene()
		} else {
			r.DrawEffects()
		}
		passes++
	}

	switch {
	case q.mainCamera != InvalidHandle:
		r.SetActiveCamera(q.mainCamera)
	case view != InvalidHandle:
		r.SetActiveCamera(view)
	}
	if !guiDrawn {
		r.DrawGUI()
	}
	r.EndScene()
	return passes
}

// Discard drops every queued request.
func (q *Queue) Discard() {
	q.requests = nil
}

func applyProjection(r Renderer, cam Handle) {
	info, ok := r.Camera(cam)
	if !ok {
		return
	}
	w, h := r.ScreenSize()
	r.SetProjection(cam, Projection(info, w, h))
}

func aim(r Renderer, cam, forward Handle) {
	r.UpdateAbsolutePosition(cam)
	if forward == InvalidHandle {
		return
	}
	r.UpdateAbsolutePosition(forward)
	r.SetTarget(cam, r.AbsolutePosition(forward))
}
