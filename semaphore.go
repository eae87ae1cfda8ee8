package lai

import (
	vk "github.com/vulkan-go/vulkan"
)

// CreateSemaphore creates a binary semaphore on the context's device.
func CreateSemaphore(ctx *Context) (vk.Semaphore, error) {
	sema, res := ctx.Driver.CreateSemaphore(ctx.VKDevice())
	if res != vk.Success {
		return vk.NullSemaphore, resultError("creating semaphore", res)
	}
	return sema, nil
}

func DestroySemaphore(ctx *Context, s vk.Semaphore) {
	if s != vk.NullSemaphore {
		ctx.Driver.DestroySemaphore(ctx.VKDevice(), s)
	}
}
