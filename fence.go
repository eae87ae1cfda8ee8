package lai

import (
	"log/slog"

	vk "github.com/vulkan-go/vulkan"
)

// Fence wraps a vk.Fence and remembers whether it was last observed
// signaled, so waits on an already signaled fence skip the driver.
type Fence struct {
	VKFence    vk.Fence
	IsSignaled bool
}

// CreateFence creates a fence, optionally in the signaled state.
func CreateFence(ctx *Context, signaled bool) (*Fence, error) {
	fence, res := ctx.Driver.CreateFence(ctx.VKDevice(), signaled)
	if res != vk.Success {
		return nil, resultError("creating fence", res)
	}
	return &Fence{VKFence: fence, IsSignaled: signaled}, nil
}

// Wait blocks up to timeout nanoseconds for the fence. It reports false on
// timeout or failure, logging the cause.
func (f *Fence) Wait(ctx *Context, timeout uint64) bool {
	if f.IsSignaled {
		return true
	}

	res := ctx.Driver.WaitForFences(ctx.VKDevice(), []vk.Fence{f.VKFence}, true, timeout)
	switch res {
	case vk.Success:
		f.IsSignaled = true
		return true
	case vk.Timeout:
		slog.Warn("fence wait timed out")
	case vk.ErrorDeviceLost:
		slog.Error("fence wait failed", "error", ResultString(res, true))
	case vk.ErrorOutOfHostMemory, vk.ErrorOutOfDeviceMemory:
		slog.Error("fence wait failed", "error", ResultString(res, true))
	default:
		slog.Error("fence wait failed with unknown result", "error", ResultString(res, true))
	}
	return false
}

// Reset returns a signaled fence to the unsignaled state.
func (f *Fence) Reset(ctx *Context) error {
	if !f.IsSignaled {
		return nil
	}
	if res := ctx.Driver.ResetFences(ctx.VKDevice(), []vk.Fence{f.VKFence}); res != vk.Success {
		return resultError("resetting fence", res)
	}
	f.IsSignaled = false
	return nil
}

func (f *Fence) Destroy(ctx *Context) {
	if f.VKFence != vk.NullFence {
		ctx.Driver.DestroyFence(ctx.VKDevice(), f.VKFence)
		f.VKFence = vk.NullFence
	}
	f.IsSignaled = false
}
