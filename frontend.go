package lai

import (
	"errors"
	"log/slog"
	"unsafe"
)

// RenderPacket carries the per-frame input to DrawFrame.
type RenderPacket struct {
	DeltaTime float32
}

// Renderer is the API independent front of the renderer. The application
// owns its storage: InitializeRenderer is called once without a state to
// learn how much to reserve, and again with the state to start the backend.
type Renderer struct {
	backend     RendererBackend
	FrameNumber uint64
}

// RendererMemoryRequirement is the number of bytes a Renderer occupies.
func RendererMemoryRequirement() uint64 {
	return uint64(unsafe.Sizeof(Renderer{}))
}

// InitializeRenderer always stores the memory requirement. When state is nil
// that is all it does; otherwise it initializes backend into state.
func InitializeRenderer(memoryRequirement *uint64, state *Renderer, appName string, window Window, backend RendererBackend) error {
	if memoryRequirement != nil {
		*memoryRequirement = RendererMemoryRequirement()
	}
	if state == nil {
		return nil
	}
	if backend == nil {
		return errors.New("renderer needs a backend")
	}

	state.backend = backend
	state.FrameNumber = 0
	if err := backend.Initialize(appName, window); err != nil {
		Fatal("renderer backend failed to initialize, shutting down", "err", err)
		state.backend = nil
		return err
	}
	return nil
}

// Shutdown releases the backend. It is a no-op on an uninitialized renderer.
func (r *Renderer) Shutdown() {
	if r.backend == nil {
		return
	}
	r.backend.Shutdown()
	r.backend = nil
}

// OnResized forwards a framebuffer size change to the backend.
func (r *Renderer) OnResized(width, height uint16) {
	if r.backend == nil {
		slog.Warn("renderer backend does not exist to accept resize", "width", width, "height", height)
		return
	}
	r.backend.Resized(width, height)
}

// DrawFrame renders one frame. A skipped frame still reports true; false
// means the backend failed and the application should shut down.
func (r *Renderer) DrawFrame(packet *RenderPacket) bool {
	if r.backend == nil {
		return false
	}
	if !r.backend.BeginFrame(packet.DeltaTime) {
		return true
	}
	if !r.backend.EndFrame(packet.DeltaTime) {
		Fatal("renderer EndFrame failed, application shutting down")
		return false
	}
	r.FrameNumber++
	return true
}
