package lai

import (
	"fmt"
	"log/slog"

	vk "github.com/vulkan-go/vulkan"
)

type Device struct {
	PhysicalDevice *PhysicalDevice
	VKDevice       vk.Device

	QueueFamilies QueueFamilyInfo
	GraphicsQueue *Queue
	PresentQueue  *Queue
	TransferQueue *Queue

	SwapchainSupport *SwapchainSupport
	DepthFormat      vk.Format

	GraphicsCommandPool *CommandPool
}

func (d *Device) String() string {
	return fmt.Sprintf("{ PhysicalDevice: %s }", d.PhysicalDevice)
}

// CreateDevice builds the logical device for the physical device chosen by
// SelectPhysicalDevice, fetches its queues and creates the graphics command
// pool.
func CreateDevice(ctx *Context) error {
	if err := SelectPhysicalDevice(ctx); err != nil {
		return err
	}
	d := ctx.Device

	slog.Info("creating logical device")
	families := d.QueueFamilies.Unique()
	queueCreateInfos := make([]vk.DeviceQueueCreateInfo, len(families))
	for i, family := range families {
		queueCreateInfos[i] = vk.DeviceQueueCreateInfo{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: uint32(family),
			QueueCount:       1,
			PQueuePriorities: []float32{1.0},
		}
	}

	features := vk.PhysicalDeviceFeatures{
		SamplerAnisotropy: vk.True,
	}

	extensions := []string{vk.KhrSwapchainExtensionName}
	available, res := ctx.Driver.EnumerateDeviceExtensions(d.PhysicalDevice.VKPhysicalDevice)
	if res != vk.Success {
		return resultError("enumerating device extensions", res)
	}
	if containsString(available, PortabilitySubsetExtension) {
		extensions = append(extensions, PortabilitySubsetExtension)
	}

	deviceCreateInfo := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queueCreateInfos)),
		PQueueCreateInfos:       queueCreateInfos,
		PEnabledFeatures:        []vk.PhysicalDeviceFeatures{features},
		EnabledExtensionCount:   uint32(len(extensions)),
		PpEnabledExtensionNames: safeStrings(extensions),
	}

	vkd, res := ctx.Driver.CreateDevice(d.PhysicalDevice.VKPhysicalDevice, &deviceCreateInfo)
	if res != vk.Success {
		return resultError("creating logical device", res)
	}
	d.VKDevice = vkd
	slog.Info("logical device created", "extensions", extensions)

	d.GraphicsQueue = d.getQueue(ctx.Driver, d.QueueFamilies.Graphics)
	d.PresentQueue = d.getQueue(ctx.Driver, d.QueueFamilies.Present)
	d.TransferQueue = d.getQueue(ctx.Driver, d.QueueFamilies.Transfer)
	slog.Info("queues obtained")

	pool, err := CreateCommandPool(ctx, d.QueueFamilies.Graphics)
	if err != nil {
		return err
	}
	d.GraphicsCommandPool = pool
	return nil
}

func (d *Device) getQueue(driver Driver, family int) *Queue {
	return &Queue{
		Device:  d,
		Family:  family,
		VKQueue: driver.GetDeviceQueue(d.VKDevice, uint32(family)),
	}
}

// Destroy releases the command pool and the logical device, and forgets the
// physical device state.
func (d *Device) Destroy(ctx *Context) {
	d.GraphicsQueue = nil
	d.PresentQueue = nil
	d.TransferQueue = nil

	if d.GraphicsCommandPool != nil {
		slog.Info("destroying command pools")
		d.GraphicsCommandPool.Destroy(ctx)
		d.GraphicsCommandPool = nil
	}

	if d.VKDevice != nil {
		slog.Info("destroying logical device")
		ctx.Driver.DestroyDevice(d.VKDevice)
		d.VKDevice = nil
	}

	slog.Info("releasing physical device resources")
	d.PhysicalDevice = nil
	d.SwapchainSupport = nil
	d.QueueFamilies = QueueFamilyInfo{
		Graphics: NoQueueFamily,
		Present:  NoQueueFamily,
		Compute:  NoQueueFamily,
		Transfer: NoQueueFamily,
	}
}

// WaitIdle blocks until every queue of the device is idle.
func (d *Device) WaitIdle(ctx *Context) error {
	return resultError("waiting for device idle", ctx.Driver.DeviceWaitIdle(d.VKDevice))
}

// QuerySwapchainSupport refreshes the cached swapchain support for ctx.Surface.
func (d *Device) QuerySwapchainSupport(ctx *Context) error {
	support, err := QuerySwapchainSupport(ctx.Driver, d.PhysicalDevice.VKPhysicalDevice, ctx.Surface)
	if err != nil {
		return err
	}
	d.SwapchainSupport = support
	return nil
}

var depthCandidates = []vk.Format{
	vk.FormatD32Sfloat,
	vk.FormatD32SfloatS8Uint,
	vk.FormatD24UnormS8Uint,
}

// DetectDepthFormat stores the first candidate depth format usable as a
// depth/stencil attachment.
func (d *Device) DetectDepthFormat(ctx *Context) error {
	flags := vk.FormatFeatureFlags(vk.FormatFeatureDepthStencilAttachmentBit)
	for _, format := range depthCandidates {
		props := ctx.Driver.GetPhysicalDeviceFormatProperties(d.PhysicalDevice.VKPhysicalDevice, format)
		if props.OptimalTilingFeatures&flags == flags || props.LinearTilingFeatures&flags == flags {
			d.DepthFormat = format
			return nil
		}
	}
	d.DepthFormat = vk.FormatUndefined
	return ErrNoDepthFormat
}
