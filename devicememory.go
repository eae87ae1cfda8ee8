package lai

import (
	"fmt"
	"sync/atomic"
	"unsafe"

	vk "github.com/vulkan-go/vulkan"
)

// DeviceMemory maps to Vulkan DeviceMemory and can either be memory on the host or on the device
type DeviceMemory struct {
	VKDeviceMemory vk.DeviceMemory
	Size           uint64
	MapCount       int32
}

// AllocateMemory allocates size bytes from the first memory type allowed by
// typeBits that has the requested properties.
func AllocateMemory(ctx *Context, size uint64, typeBits uint32, properties vk.MemoryPropertyFlags) (*DeviceMemory, error) {
	index, err := ctx.Device.PhysicalDevice.FindMemoryType(typeBits, properties)
	if err != nil {
		return nil, err
	}

	var allocateInfo = vk.MemoryAllocateInfo{}
	allocateInfo.SType = vk.StructureTypeMemoryAllocateInfo
	allocateInfo.AllocationSize = vk.DeviceSize(size)
	allocateInfo.MemoryTypeIndex = index

	mem, res := ctx.Driver.AllocateMemory(ctx.VKDevice(), &allocateInfo)
	if res != vk.Success {
		return nil, resultError(fmt.Sprintf("allocating %d bytes of device memory", size), res)
	}
	return &DeviceMemory{VKDeviceMemory: mem, Size: size}, nil
}

// IsMapped returns true if the device memory is currently mapped
func (d *DeviceMemory) IsMapped() bool {
	return atomic.LoadInt32(&d.MapCount) > 0
}

func (d *DeviceMemory) Destroy(ctx *Context) {
	if d.VKDeviceMemory != vk.NullDeviceMemory {
		ctx.Driver.FreeMemory(ctx.VKDevice(), d.VKDeviceMemory)
		d.VKDeviceMemory = vk.NullDeviceMemory
	}
}

// MapWithOffset maps size bytes starting at offset.
func (d *DeviceMemory) MapWithOffset(ctx *Context, offset, size uint64) (unsafe.Pointer, error) {
	ptr, res := ctx.Driver.MapMemory(ctx.VKDevice(), d.VKDeviceMemory, vk.DeviceSize(offset), vk.DeviceSize(size))
	if res != vk.Success {
		return nil, resultError("mapping device memory", res)
	}
	atomic.AddInt32(&d.MapCount, 1)
	return ptr, nil
}

func (d *DeviceMemory) Unmap(ctx *Context) {
	ctx.Driver.UnmapMemory(ctx.VKDevice(), d.VKDeviceMemory)
	atomic.AddInt32(&d.MapCount, -1)
}

// MapCopyUnmap maps the range at offset, copies data into it and unmaps.
func (d *DeviceMemory) MapCopyUnmap(ctx *Context, offset uint64, data []byte) error {
	if offset+uint64(len(data)) > d.Size {
		return fmt.Errorf("copy of %d bytes at %d overflows memory of %d bytes", len(data), offset, d.Size)
	}
	if len(data) == 0 {
		return nil
	}
	pm, err := d.MapWithOffset(ctx, offset, uint64(len(data)))
	if err != nil {
		return err
	}
	copy(toBytes(pm, len(data)), data)
	d.Unmap(ctx)
	return nil
}
