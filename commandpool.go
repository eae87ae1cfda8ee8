package lai

import (
	vk "github.com/vulkan-go/vulkan"
)

type CommandPool struct {
	Family        int
	VKCommandPool vk.CommandPool
}

// CreateCommandPool creates a pool for family whose buffers can be reset
// individually.
func CreateCommandPool(ctx *Context, family int) (*CommandPool, error) {
	var commandPoolCreateInfo = vk.CommandPoolCreateInfo{}
	commandPoolCreateInfo.SType = vk.StructureTypeCommandPoolCreateInfo
	commandPoolCreateInfo.Flags = vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit)
	commandPoolCreateInfo.QueueFamilyIndex = uint32(family)

	commandPool, res := ctx.Driver.CreateCommandPool(ctx.VKDevice(), &commandPoolCreateInfo)
	if res != vk.Success {
		return nil, resultError("creating command pool", res)
	}

	return &CommandPool{Family: family, VKCommandPool: commandPool}, nil
}

func (c *CommandPool) Destroy(ctx *Context) {
	ctx.Driver.DestroyCommandPool(ctx.VKDevice(), c.VKCommandPool)
	c.VKCommandPool = nil
}

// AllocateBuffers allocates count buffers at once, all in the Ready state.
func (c *CommandPool) AllocateBuffers(ctx *Context, count int, primary bool) ([]*CommandBuffer, error) {
	var commandBufferAllocateInfo = vk.CommandBufferAllocateInfo{}
	commandBufferAllocateInfo.SType = vk.StructureTypeCommandBufferAllocateInfo
	commandBufferAllocateInfo.CommandPool = c.VKCommandPool
	commandBufferAllocateInfo.Level = vk.CommandBufferLevelSecondary
	if primary {
		commandBufferAllocateInfo.Level = vk.CommandBufferLevelPrimary
	}
	commandBufferAllocateInfo.CommandBufferCount = uint32(count)

	cmdBuffers, res := ctx.Driver.AllocateCommandBuffers(ctx.VKDevice(), &commandBufferAllocateInfo)
	if res != vk.Success {
		return nil, resultError("allocating command buffers", res)
	}

	ret := make([]*CommandBuffer, len(cmdBuffers))
	for i := range ret {
		ret[i] = &CommandBuffer{VKCommandBuffer: cmdBuffers[i], State: CommandBufferReady}
	}
	return ret, nil
}

func (c *CommandPool) FreeBuffers(ctx *Context, bs []*CommandBuffer) {
	b := make([]vk.CommandBuffer, 0, len(bs))
	for _, cb := range bs {
		if cb == nil || cb.VKCommandBuffer == nil {
			continue
		}
		b = append(b, cb.VKCommandBuffer)
		cb.VKCommandBuffer = nil
		cb.State = CommandBufferNotAllocated
	}
	if len(b) > 0 {
		ctx.Driver.FreeCommandBuffers(ctx.VKDevice(), c.VKCommandPool, b)
	}
}
