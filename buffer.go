package lai

import (
	"fmt"

	vk "github.com/vulkan-go/vulkan"
)

// Buffer is a GPU buffer together with the memory backing it.
type Buffer struct {
	VKBuffer    vk.Buffer
	Memory      *DeviceMemory
	Size        uint64
	Usage       vk.BufferUsageFlags
	MemoryFlags vk.MemoryPropertyFlags
}

// CreateBuffer creates an exclusive buffer of size bytes and allocates
// memory with memFlags for it. With bind set the memory is bound at offset
// zero right away.
func CreateBuffer(ctx *Context, size uint64, usage vk.BufferUsageFlags, memFlags vk.MemoryPropertyFlags, bind bool) (*Buffer, error) {
	bufferCreateInfo := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        vk.DeviceSize(size),
		Usage:       usage,
		SharingMode: vk.SharingModeExclusive,
	}

	buffer, res := ctx.Driver.CreateBuffer(ctx.VKDevice(), &bufferCreateInfo)
	if res != vk.Success {
		return nil, resultError("creating buffer", res)
	}
	b := &Buffer{
		VKBuffer:    buffer,
		Size:        size,
		Usage:       usage,
		MemoryFlags: memFlags,
	}

	req := ctx.Driver.GetBufferMemoryRequirements(ctx.VKDevice(), buffer)
	mem, err := AllocateMemory(ctx, uint64(req.Size), req.MemoryTypeBits, memFlags)
	if err != nil {
		b.Destroy(ctx)
		return nil, fmt.Errorf("buffer memory: %w", err)
	}
	b.Memory = mem

	if bind {
		if err := b.Bind(ctx, 0); err != nil {
			b.Destroy(ctx)
			return nil, err
		}
	}
	return b, nil
}

func (b *Buffer) Bind(ctx *Context, offset uint64) error {
	return resultError("binding buffer memory", ctx.Driver.BindBufferMemory(ctx.VKDevice(), b.VKBuffer, b.Memory.VKDeviceMemory, vk.DeviceSize(offset)))
}

// LoadData copies data into host visible memory at offset.
func (b *Buffer) LoadData(ctx *Context, offset uint64, data []byte) error {
	if b.MemoryFlags&vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit) == 0 {
		return fmt.Errorf("buffer memory is not host visible")
	}
	if offset+uint64(len(data)) > b.Size {
		return fmt.Errorf("load of %d bytes at %d overflows buffer of %d bytes", len(data), offset, b.Size)
	}
	return b.Memory.MapCopyUnmap(ctx, offset, data)
}

// CopyTo copies size bytes to dst on queue with a single use command
// buffer from pool, waiting for the queue to finish.
func (b *Buffer) CopyTo(ctx *Context, pool *CommandPool, queue *Queue, srcOffset uint64, dst *Buffer, dstOffset uint64, size uint64) error {
	if err := queue.WaitIdle(ctx); err != nil {
		return err
	}

	cb, err := AllocateAndBeginSingleUse(ctx, pool)
	if err != nil {
		return err
	}

	region := vk.BufferCopy{
		SrcOffset: vk.DeviceSize(srcOffset),
		DstOffset: vk.DeviceSize(dstOffset),
		Size:      vk.DeviceSize(size),
	}
	ctx.Driver.CmdCopyBuffer(cb.VKCommandBuffer, b.VKBuffer, dst.VKBuffer, []vk.BufferCopy{region})

	return cb.EndSingleUse(ctx, pool, queue)
}

func (b *Buffer) Destroy(ctx *Context) {
	if b.Memory != nil {
		b.Memory.Destroy(ctx)
		b.Memory = nil
	}
	if b.VKBuffer != vk.NullBuffer {
		ctx.Driver.DestroyBuffer(ctx.VKDevice(), b.VKBuffer)
		b.VKBuffer = vk.NullBuffer
	}
	b.Size = 0
}

// UploadDataRange stages data in a host visible buffer and copies it into
// dst at offset on the graphics queue.
func UploadDataRange(ctx *Context, pool *CommandPool, queue *Queue, dst *Buffer, offset uint64, data []byte) error {
	size := uint64(len(data))
	if size == 0 {
		return nil
	}
	if offset+size > dst.Size {
		return fmt.Errorf("upload of %d bytes at %d overflows buffer of %d bytes", size, offset, dst.Size)
	}

	staging, err := CreateBuffer(ctx, size,
		vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit),
		true)
	if err != nil {
		return fmt.Errorf("creating staging buffer: %w", err)
	}
	defer staging.Destroy(ctx)

	if err := staging.LoadData(ctx, 0, data); err != nil {
		return err
	}
	return staging.CopyTo(ctx, pool, queue, 0, dst, offset, size)
}
