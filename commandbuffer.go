package lai

import (
	"fmt"

	vk "github.com/vulkan-go/vulkan"
)

// CommandBufferState tracks where a command buffer is in its recording
// lifecycle.
type CommandBufferState int

const (
	CommandBufferNotAllocated CommandBufferState = iota
	CommandBufferReady
	CommandBufferRecording
	CommandBufferInRenderPass
	CommandBufferRecordingEnded
	CommandBufferSubmitted
)

func (s CommandBufferState) String() string {
	switch s {
	case CommandBufferNotAllocated:
		return "NotAllocated"
	case CommandBufferReady:
		return "Ready"
	case CommandBufferRecording:
		return "Recording"
	case CommandBufferInRenderPass:
		return "InRenderPass"
	case CommandBufferRecordingEnded:
		return "RecordingEnded"
	case CommandBufferSubmitted:
		return "Submitted"
	}
	return fmt.Sprintf("CommandBufferState(%d)", int(s))
}

// Busy reports whether the buffer is being recorded or is owned by the GPU.
func (s CommandBufferState) Busy() bool {
	switch s {
	case CommandBufferRecording, CommandBufferInRenderPass, CommandBufferSubmitted:
		return true
	}
	return false
}

// CommandBuffer describes a sequence of commands executed once submitted to
// a queue. State is bookkeeping only; the driver does not report it.
type CommandBuffer struct {
	VKCommandBuffer vk.CommandBuffer
	State           CommandBufferState
}

// AllocateCommandBuffer allocates a single buffer from pool.
func AllocateCommandBuffer(ctx *Context, pool *CommandPool, primary bool) (*CommandBuffer, error) {
	bs, err := pool.AllocateBuffers(ctx, 1, primary)
	if err != nil {
		return nil, err
	}
	return bs[0], nil
}

// Free returns the buffer to pool.
func (c *CommandBuffer) Free(ctx *Context, pool *CommandPool) {
	pool.FreeBuffers(ctx, []*CommandBuffer{c})
}

// Begin starts recording. The flags map to the one-time-submit,
// render-pass-continue and simultaneous-use usage bits.
func (c *CommandBuffer) Begin(ctx *Context, singleUse, renderPassContinue, simultaneousUse bool) error {
	var beginInfo = vk.CommandBufferBeginInfo{}
	beginInfo.SType = vk.StructureTypeCommandBufferBeginInfo
	var flags vk.CommandBufferUsageFlagBits
	if singleUse {
		flags |= vk.CommandBufferUsageOneTimeSubmitBit
	}
	if renderPassContinue {
		flags |= vk.CommandBufferUsageRenderPassContinueBit
	}
	if simultaneousUse {
		flags |= vk.CommandBufferUsageSimultaneousUseBit
	}
	beginInfo.Flags = vk.CommandBufferUsageFlags(flags)

	if err := resultError("beginning command buffer", ctx.Driver.BeginCommandBuffer(c.VKCommandBuffer, &beginInfo)); err != nil {
		return err
	}
	c.State = CommandBufferRecording
	return nil
}

// End finishes recording.
func (c *CommandBuffer) End(ctx *Context) error {
	if err := resultError("ending command buffer", ctx.Driver.EndCommandBuffer(c.VKCommandBuffer)); err != nil {
		return err
	}
	c.State = CommandBufferRecordingEnded
	return nil
}

func (c *CommandBuffer) UpdateSubmitted() {
	c.State = CommandBufferSubmitted
}

// Reset marks the buffer Ready. The pool's reset flag lets the next Begin
// reset the recorded commands implicitly.
func (c *CommandBuffer) Reset() {
	c.State = CommandBufferReady
}

// AllocateAndBeginSingleUse allocates a primary buffer and begins it for a
// single submission.
func AllocateAndBeginSingleUse(ctx *Context, pool *CommandPool) (*CommandBuffer, error) {
	cb, err := AllocateCommandBuffer(ctx, pool, true)
	if err != nil {
		return nil, err
	}
	if err := cb.Begin(ctx, true, false, false); err != nil {
		cb.Free(ctx, pool)
		return nil, err
	}
	return cb, nil
}

// EndSingleUse ends the buffer, submits it to queue, waits for the queue to
// drain and frees it.
func (c *CommandBuffer) EndSingleUse(ctx *Context, pool *CommandPool, queue *Queue) error {
	defer c.Free(ctx, pool)

	if err := c.End(ctx); err != nil {
		return err
	}
	if err := queue.SubmitWaitIdle(ctx, c); err != nil {
		return fmt.Errorf("single use submit: %w", err)
	}
	c.UpdateSubmitted()
	return nil
}
