package lai

import (
	"fmt"
	"log/slog"

	units "github.com/docker/go-units"
	vk "github.com/vulkan-go/vulkan"
)

// PortabilitySubsetExtension is enabled on devices that advertise it, which
// is how MoltenVK exposes itself.
const PortabilitySubsetExtension = "VK_KHR_portability_subset"

// PhysicalDeviceRequirements is the set a GPU has to satisfy to be selected.
type PhysicalDeviceRequirements struct {
	Graphics          bool
	Present           bool
	Compute           bool
	Transfer          bool
	SamplerAnisotropy bool
	DiscreteGPU       bool
	DeviceExtensions  []string
}

// DefaultDeviceRequirements asks for graphics, present and transfer queues,
// sampler anisotropy and the swapchain extension.
func DefaultDeviceRequirements(cfg *Config) PhysicalDeviceRequirements {
	return PhysicalDeviceRequirements{
		Graphics:          true,
		Present:           true,
		Transfer:          true,
		SamplerAnisotropy: true,
		DiscreteGPU:       cfg.DiscreteGPU,
		DeviceExtensions:  []string{vk.KhrSwapchainExtensionName},
	}
}

type PhysicalDevice struct {
	Name             string
	VKPhysicalDevice vk.PhysicalDevice
	Properties       vk.PhysicalDeviceProperties
	Features         vk.PhysicalDeviceFeatures
	Memory           vk.PhysicalDeviceMemoryProperties
}

func newPhysicalDevice(driver Driver, pd vk.PhysicalDevice) *PhysicalDevice {
	p := &PhysicalDevice{
		VKPhysicalDevice: pd,
		Properties:       driver.GetPhysicalDeviceProperties(pd),
		Features:         driver.GetPhysicalDeviceFeatures(pd),
		Memory:           driver.GetPhysicalDeviceMemoryProperties(pd),
	}
	p.Name = vk.ToString(p.Properties.DeviceName[:])
	return p
}

func (p *PhysicalDevice) String() string {
	return p.Name
}

func (p *PhysicalDevice) IsDiscrete() bool {
	return p.Properties.DeviceType == vk.PhysicalDeviceTypeDiscreteGpu
}

// FindMemoryType returns the first memory type allowed by typeBits that has
// all of the requested property flags.
func (p *PhysicalDevice) FindMemoryType(typeBits uint32, properties vk.MemoryPropertyFlags) (uint32, error) {
	for i := uint32(0); i < p.Memory.MemoryTypeCount; i++ {
		mt := p.Memory.MemoryTypes[i]
		if typeBits&(1<<i) != 0 && mt.PropertyFlags&properties == properties {
			return i, nil
		}
	}
	return 0, fmt.Errorf("no memory type matches bits %#x with flags %#x", typeBits, properties)
}

func deviceTypeString(t vk.PhysicalDeviceType) string {
	switch t {
	case vk.PhysicalDeviceTypeIntegratedGpu:
		return "integrated"
	case vk.PhysicalDeviceTypeDiscreteGpu:
		return "discrete"
	case vk.PhysicalDeviceTypeVirtualGpu:
		return "virtual"
	case vk.PhysicalDeviceTypeCpu:
		return "cpu"
	default:
		return "unknown"
	}
}

func versionString(v uint32) string {
	return fmt.Sprintf("%d.%d.%d", v>>22, (v>>12)&0x3ff, v&0xfff)
}

// SwapchainSupport is what a surface offers on one physical device.
type SwapchainSupport struct {
	Capabilities vk.SurfaceCapabilities
	Formats      []vk.SurfaceFormat
	PresentModes []vk.PresentMode
}

// QuerySwapchainSupport reads the surface capabilities, formats and present
// modes of pd.
func QuerySwapchainSupport(driver Driver, pd vk.PhysicalDevice, surface vk.Surface) (*SwapchainSupport, error) {
	caps, res := driver.GetPhysicalDeviceSurfaceCapabilities(pd, surface)
	if res != vk.Success {
		return nil, resultError("querying surface capabilities", res)
	}
	formats, res := driver.GetPhysicalDeviceSurfaceFormats(pd, surface)
	if res != vk.Success {
		return nil, resultError("querying surface formats", res)
	}
	modes, res := driver.GetPhysicalDeviceSurfacePresentModes(pd, surface)
	if res != vk.Success {
		return nil, resultError("querying present modes", res)
	}
	return &SwapchainSupport{
		Capabilities: caps,
		Formats:      formats,
		PresentModes: modes,
	}, nil
}

// EnumeratePhysicalDevices lists the GPUs visible to ctx.Instance with their
// properties, features and memory layout.
func EnumeratePhysicalDevices(ctx *Context) ([]*PhysicalDevice, error) {
	handles, res := ctx.Driver.EnumeratePhysicalDevices(ctx.Instance)
	if res != vk.Success {
		return nil, resultError("enumerating physical devices", res)
	}
	devices := make([]*PhysicalDevice, len(handles))
	for i, pd := range handles {
		devices[i] = newPhysicalDevice(ctx.Driver, pd)
	}
	return devices, nil
}

// meetsRequirements checks p against req. A non-empty reason means the
// device was rejected, a non-nil error means a query failed.
func meetsRequirements(driver Driver, p *PhysicalDevice, surface vk.Surface, req PhysicalDeviceRequirements) (QueueFamilyInfo, *SwapchainSupport, string, error) {
	if req.DiscreteGPU && !p.IsDiscrete() {
		return QueueFamilyInfo{}, nil, "not a discrete GPU", nil
	}

	families, err := FindQueueFamilies(driver, p.VKPhysicalDevice, surface)
	if err != nil {
		return families, nil, "", err
	}
	slog.Info("queue families",
		"device", p.Name,
		"graphics", families.Graphics,
		"present", families.Present,
		"compute", families.Compute,
		"transfer", families.Transfer)

	switch {
	case req.Graphics && families.Graphics == NoQueueFamily:
		return families, nil, "no graphics queue family", nil
	case req.Present && families.Present == NoQueueFamily:
		return families, nil, "no present queue family", nil
	case req.Compute && families.Compute == NoQueueFamily:
		return families, nil, "no compute queue family", nil
	case req.Transfer && families.Transfer == NoQueueFamily:
		return families, nil, "no transfer queue family", nil
	}

	support, err := QuerySwapchainSupport(driver, p.VKPhysicalDevice, surface)
	if err != nil {
		return families, nil, "", err
	}
	if len(support.Formats) < 1 || len(support.PresentModes) < 1 {
		return families, nil, "swapchain support incomplete", nil
	}

	if len(req.DeviceExtensions) > 0 {
		available, res := driver.EnumerateDeviceExtensions(p.VKPhysicalDevice)
		if res != vk.Success {
			return families, nil, "", resultError("enumerating device extensions", res)
		}
		for _, ext := range req.DeviceExtensions {
			if !containsString(available, ext) {
				return families, nil, "missing extension " + trimNull(ext), nil
			}
		}
	}

	if req.SamplerAnisotropy && p.Features.SamplerAnisotropy == vk.False {
		return families, nil, "sampler anisotropy not supported", nil
	}

	return families, support, "", nil
}

// SelectPhysicalDevice picks the first enumerated GPU that meets the
// default requirements and stores it, its queue families and its swapchain
// support in ctx.Device.
func SelectPhysicalDevice(ctx *Context) error {
	devices, err := EnumeratePhysicalDevices(ctx)
	if err != nil {
		return err
	}
	if len(devices) == 0 {
		Fatal("no devices which support Vulkan were found")
		return ErrNoPhysicalDevice
	}

	req := DefaultDeviceRequirements(ctx.Config)
	for _, p := range devices {
		families, support, reason, err := meetsRequirements(ctx.Driver, p, ctx.Surface, req)
		if err != nil {
			return fmt.Errorf("checking device %s: %w", p.Name, err)
		}
		if reason != "" {
			slog.Info("device rejected", "device", p.Name, "reason", reason)
			continue
		}

		logSelectedDevice(p)

		ctx.Device = &Device{
			PhysicalDevice:   p,
			QueueFamilies:    families,
			SwapchainSupport: support,
		}
		return nil
	}

	Fatal("no physical devices were found which meet the requirements")
	return ErrNoSuitableDevice
}

func logSelectedDevice(p *PhysicalDevice) {
	slog.Info("selected device",
		"name", p.Name,
		"type", deviceTypeString(p.Properties.DeviceType),
		"driver", versionString(p.Properties.DriverVersion),
		"api", versionString(p.Properties.ApiVersion))

	for i := uint32(0); i < p.Memory.MemoryHeapCount; i++ {
		heap := p.Memory.MemoryHeaps[i]
		kind := "shared"
		if heap.Flags&vk.MemoryHeapFlags(vk.MemoryHeapDeviceLocalBit) != 0 {
			kind = "local"
		}
		slog.Info("memory heap", "index", i, "kind", kind, "size", units.BytesSize(float64(heap.Size)))
	}
}
