package scene

// Handle shares one Scene between every target that aliases it. Handles are
// only touched on the evaluation goroutine.
type Handle struct {
	scene     *Scene
	refs      int
	onRelease func(*Scene)
}

// NewHandle wraps s with zero owners. onRelease, if set, runs when the last
// owner lets go.
func NewHandle(s *Scene, onRelease func(*Scene)) *Handle {
	return &Handle{scene: s, onRelease: onRelease}
}

// Scene returns the shared scene, or nil for a nil handle.
func (h *Handle) Scene() *Scene {
	if h == nil {
		return nil
	}
	return h.scene
}

// Name is the source name of the scene.
func (h *Handle) Name() string {
	if h == nil || h.scene == nil {
		return ""
	}
	return h.scene.Name
}

// Acquire adds an owner.
func (h *Handle) Acquire() *Handle {
	if h != nil {
		h.refs++
	}
	return h
}

// Release drops an owner and reports whether it was the last one.
func (h *Handle) Release() bool {
	if h == nil || h.refs == 0 {
		return false
	}
	h.refs--
	if h.refs > 0 {
		return false
	}
	if h.onRelease != nil {
		h.onRelease(h.scene)
	}
	return true
}

// Refs is the current number of owners.
func (h *Handle) Refs() int {
	if h == nil {
		return 0
	}
	return h.refs
}
