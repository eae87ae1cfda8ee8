package lai

import (
	vk "github.com/vulkan-go/vulkan"
)

type Queue struct {
	Device  *Device
	Family  int
	VKQueue vk.Queue
}

func (q *Queue) WaitIdle(ctx *Context) error {
	return resultError("waiting for queue idle", ctx.Driver.QueueWaitIdle(q.VKQueue))
}

// Submit hands submits to the queue, signaling fence when they complete.
func (q *Queue) Submit(ctx *Context, submits []vk.SubmitInfo, fence vk.Fence) error {
	return resultError("submitting to queue", ctx.Driver.QueueSubmit(q.VKQueue, submits, fence))
}

// SubmitWaitIdle submits buffers without synchronization and waits for the
// queue to drain.
func (q *Queue) SubmitWaitIdle(ctx *Context, buffers ...*CommandBuffer) error {
	b := make([]vk.CommandBuffer, len(buffers))
	for i := range buffers {
		b[i] = buffers[i].VKCommandBuffer
	}

	submitInfo := vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: uint32(len(b)),
		PCommandBuffers:    b,
	}
	if err := q.Submit(ctx, []vk.SubmitInfo{submitInfo}, vk.NullFence); err != nil {
		return err
	}
	return q.WaitIdle(ctx)
}
