package lai

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"
	vk "github.com/vulkan-go/vulkan"
)

// fakeGPU describes one physical device reported by fakeDriver.
type fakeGPU struct {
	name         string
	deviceType   vk.PhysicalDeviceType
	families     []vk.QueueFamilyProperties
	present      []bool
	anisotropy   bool
	extensions   []string
	formats      []vk.SurfaceFormat
	modes        []vk.PresentMode
	caps         vk.SurfaceCapabilities
	depthFormats []vk.Format
}

func familyFlags(bits ...vk.QueueFlagBits) vk.QueueFamilyProperties {
	var flags vk.QueueFlagBits
	for _, b := range bits {
		flags |= b
	}
	return vk.QueueFamilyProperties{QueueFlags: vk.QueueFlags(flags), QueueCount: 1}
}

// goodGPU meets every default requirement with a single all purpose queue
// family plus a dedicated transfer family.
func goodGPU(name string) *fakeGPU {
	return &fakeGPU{
		name:       name,
		deviceType: vk.PhysicalDeviceTypeDiscreteGpu,
		families: []vk.QueueFamilyProperties{
			familyFlags(vk.QueueGraphicsBit, vk.QueueComputeBit, vk.QueueTransferBit),
			familyFlags(vk.QueueTransferBit),
		},
		present:    []bool{true, false},
		anisotropy: true,
		extensions: []string{vk.KhrSwapchainExtensionName},
		formats: []vk.SurfaceFormat{
			{Format: vk.FormatB8g8r8a8Unorm, ColorSpace: vk.ColorSpaceSrgbNonlinear},
		},
		modes: []vk.PresentMode{vk.PresentModeFifo},
		caps: vk.SurfaceCapabilities{
			MinImageCount:    2,
			MaxImageCount:    3,
			CurrentExtent:    vk.Extent2D{Width: vk.MaxUint32, Height: vk.MaxUint32},
			MinImageExtent:   vk.Extent2D{Width: 1, Height: 1},
			MaxImageExtent:   vk.Extent2D{Width: 4096, Height: 4096},
			CurrentTransform: vk.SurfaceTransformIdentityBit,
		},
		depthFormats: []vk.Format{vk.FormatD32Sfloat},
	}
}

// fakeDriver is an in-memory Driver. Handles are distinct non-nil values,
// live counts every object kind that has been created and not destroyed,
// and calls counts invocations by method name.
type fakeDriver struct {
	gpus    []*fakeGPU
	handles []vk.PhysicalDevice
	byPD    map[vk.PhysicalDevice]*fakeGPU

	next  uintptr
	live  map[string]int
	calls map[string]int

	layers     []string
	imageCount int
	nextImage  uint32

	acquireResults   []vk.Result
	presentResults   []vk.Result
	swapchainResults []vk.Result
	submitResult     vk.Result
	waitResult       vk.Result
	pipelineResult   vk.Result

	enabledExtensions []string
	swapchainExtents  []vk.Extent2D
	viewports         []vk.Viewport
	draws             []uint32

	bufferSizes map[vk.Buffer]uint64
	memory      map[vk.DeviceMemory][]byte
	queues      map[uint32]vk.Queue
}

var _ Driver = (*fakeDriver)(nil)

func newFakeDriver(gpus ...*fakeGPU) *fakeDriver {
	f := &fakeDriver{
		gpus:        gpus,
		byPD:        map[vk.PhysicalDevice]*fakeGPU{},
		next:        1 << 20,
		live:        map[string]int{},
		calls:       map[string]int{},
		layers:      []string{ValidationLayer},
		imageCount:  3,
		bufferSizes: map[vk.Buffer]uint64{},
		memory:      map[vk.DeviceMemory][]byte{},
		queues:      map[uint32]vk.Queue{},
	}
	for _, g := range gpus {
		pd := vk.PhysicalDevice(f.handle())
		f.handles = append(f.handles, pd)
		f.byPD[pd] = g
	}
	return f
}

// handle returns a fresh fake handle. The values are far from both nil and
// the Go heap.
func (f *fakeDriver) handle() unsafe.Pointer {
	f.next += 64
	return unsafe.Add(unsafe.Pointer(nil), f.next)
}

func (f *fakeDriver) create(kind string) unsafe.Pointer {
	f.calls["Create"+kind]++
	f.live[kind]++
	return f.handle()
}

func (f *fakeDriver) destroy(kind string) {
	f.calls["Destroy"+kind]++
	f.live[kind]--
}

// leaked lists every object kind with a non-zero live count.
func (f *fakeDriver) leaked() map[string]int {
	out := map[string]int{}
	for k, v := range f.live {
		if v != 0 {
			out[k] = v
		}
	}
	return out
}

// handleAddr returns the address behind a dispatchable or non-dispatchable
// handle. Fake handles point at zero-size types, so compare addresses
// rather than the handles themselves.
func handleAddr(h any) uintptr {
	return reflect.ValueOf(h).Pointer()
}

func popResult(results *[]vk.Result) vk.Result {
	if len(*results) == 0 {
		return vk.Success
	}
	r := (*results)[0]
	*results = (*results)[1:]
	return r
}

func (f *fakeDriver) EnumerateInstanceLayers() ([]string, vk.Result) {
	return f.layers, vk.Success
}

func (f *fakeDriver) CreateInstance(info *vk.InstanceCreateInfo) (vk.Instance, vk.Result) {
	return vk.Instance(f.create("Instance")), vk.Success
}

func (f *fakeDriver) DestroyInstance(instance vk.Instance) { f.destroy("Instance") }

func (f *fakeDriver) CreateDebugReportCallback(instance vk.Instance, info *vk.DebugReportCallbackCreateInfo) (vk.DebugReportCallback, vk.Result) {
	return vk.DebugReportCallback(f.create("DebugReportCallback")), vk.Success
}

func (f *fakeDriver) DestroyDebugReportCallback(instance vk.Instance, callback vk.DebugReportCallback) {
	f.destroy("DebugReportCallback")
}

func (f *fakeDriver) DestroySurface(instance vk.Instance, surface vk.Surface) {
	f.destroy("Surface")
}

func (f *fakeDriver) EnumeratePhysicalDevices(instance vk.Instance) ([]vk.PhysicalDevice, vk.Result) {
	return f.handles, vk.Success
}

func (f *fakeDriver) GetPhysicalDeviceProperties(pd vk.PhysicalDevice) vk.PhysicalDeviceProperties {
	g := f.byPD[pd]
	props := vk.PhysicalDeviceProperties{
		DeviceType:    g.deviceType,
		ApiVersion:    vk.MakeVersion(1, 2, 0),
		DriverVersion: vk.MakeVersion(1, 0, 0),
	}
	copy(props.DeviceName[:], g.name)
	return props
}

func (f *fakeDriver) GetPhysicalDeviceFeatures(pd vk.PhysicalDevice) vk.PhysicalDeviceFeatures {
	var features vk.PhysicalDeviceFeatures
	if f.byPD[pd].anisotropy {
		features.SamplerAnisotropy = vk.True
	}
	return features
}

func (f *fakeDriver) GetPhysicalDeviceMemoryProperties(pd vk.PhysicalDevice) vk.PhysicalDeviceMemoryProperties {
	var mem vk.PhysicalDeviceMemoryProperties
	mem.MemoryTypeCount = 1
	mem.MemoryTypes[0] = vk.MemoryType{
		PropertyFlags: vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit |
			vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit),
	}
	mem.MemoryHeapCount = 1
	mem.MemoryHeaps[0] = vk.MemoryHeap{
		Size:  1 << 30,
		Flags: vk.MemoryHeapFlags(vk.MemoryHeapDeviceLocalBit),
	}
	return mem
}

func (f *fakeDriver) GetPhysicalDeviceQueueFamilyProperties(pd vk.PhysicalDevice) []vk.QueueFamilyProperties {
	return f.byPD[pd].families
}

func (f *fakeDriver) GetPhysicalDeviceSurfaceSupport(pd vk.PhysicalDevice, family uint32, surface vk.Surface) (bool, vk.Result) {
	g := f.byPD[pd]
	return int(family) < len(g.present) && g.present[family], vk.Success
}

func (f *fakeDriver) GetPhysicalDeviceSurfaceCapabilities(pd vk.PhysicalDevice, surface vk.Surface) (vk.SurfaceCapabilities, vk.Result) {
	return f.byPD[pd].caps, vk.Success
}

func (f *fakeDriver) GetPhysicalDeviceSurfaceFormats(pd vk.PhysicalDevice, surface vk.Surface) ([]vk.SurfaceFormat, vk.Result) {
	return f.byPD[pd].formats, vk.Success
}

func (f *fakeDriver) GetPhysicalDeviceSurfacePresentModes(pd vk.PhysicalDevice, surface vk.Surface) ([]vk.PresentMode, vk.Result) {
	return f.byPD[pd].modes, vk.Success
}

func (f *fakeDriver) EnumerateDeviceExtensions(pd vk.PhysicalDevice) ([]string, vk.Result) {
	return f.byPD[pd].extensions, vk.Success
}

func (f *fakeDriver) GetPhysicalDeviceFormatProperties(pd vk.PhysicalDevice, format vk.Format) vk.FormatProperties {
	for _, df := range f.byPD[pd].depthFormats {
		if df == format {
			return vk.FormatProperties{
				OptimalTilingFeatures: vk.FormatFeatureFlags(vk.FormatFeatureDepthStencilAttachmentBit),
			}
		}
	}
	return vk.FormatProperties{}
}

func (f *fakeDriver) CreateDevice(pd vk.PhysicalDevice, info *vk.DeviceCreateInfo) (vk.Device, vk.Result) {
	f.enabledExtensions = f.enabledExtensions[:0]
	for _, ext := range info.PpEnabledExtensionNames {
		f.enabledExtensions = append(f.enabledExtensions, trimNull(ext))
	}
	return vk.Device(f.create("Device")), vk.Success
}

func (f *fakeDriver) DestroyDevice(device vk.Device) { f.destroy("Device") }

func (f *fakeDriver) DeviceWaitIdle(device vk.Device) vk.Result {
	f.calls["DeviceWaitIdle"]++
	return vk.Success
}

func (f *fakeDriver) GetDeviceQueue(device vk.Device, family uint32) vk.Queue {
	if q, ok := f.queues[family]; ok {
		return q
	}
	q := vk.Queue(f.handle())
	f.queues[family] = q
	return q
}

func (f *fakeDriver) QueueSubmit(queue vk.Queue, submits []vk.SubmitInfo, fence vk.Fence) vk.Result {
	f.calls["QueueSubmit"]++
	return f.submitResult
}

func (f *fakeDriver) QueueWaitIdle(queue vk.Queue) vk.Result {
	f.calls["QueueWaitIdle"]++
	return vk.Success
}

func (f *fakeDriver) QueuePresent(queue vk.Queue, info *vk.PresentInfo) vk.Result {
	f.calls["QueuePresent"]++
	return popResult(&f.presentResults)
}

func (f *fakeDriver) CreateSwapchain(device vk.Device, info *vk.SwapchainCreateInfo) (vk.Swapchain, vk.Result) {
	f.swapchainExtents = append(f.swapchainExtents, info.ImageExtent)
	if res := popResult(&f.swapchainResults); res != vk.Success {
		return nil, res
	}
	return vk.Swapchain(f.create("Swapchain")), vk.Success
}

func (f *fakeDriver) DestroySwapchain(device vk.Device, swapchain vk.Swapchain) {
	f.destroy("Swapchain")
}

func (f *fakeDriver) GetSwapchainImages(device vk.Device, swapchain vk.Swapchain) ([]vk.Image, vk.Result) {
	images := make([]vk.Image, f.imageCount)
	for i := range images {
		images[i] = vk.Image(f.handle())
	}
	f.nextImage = 0
	return images, vk.Success
}

func (f *fakeDriver) AcquireNextImage(device vk.Device, swapchain vk.Swapchain, timeout uint64, semaphore vk.Semaphore, fence vk.Fence) (uint32, vk.Result) {
	f.calls["AcquireNextImage"]++
	if res := popResult(&f.acquireResults); res != vk.Success && res != vk.Suboptimal {
		return 0, res
	}
	index := f.nextImage % uint32(f.imageCount)
	f.nextImage++
	return index, vk.Success
}

func (f *fakeDriver) AllocateMemory(device vk.Device, info *vk.MemoryAllocateInfo) (vk.DeviceMemory, vk.Result) {
	mem := vk.DeviceMemory(f.create("Memory"))
	f.memory[mem] = make([]byte, info.AllocationSize)
	return mem, vk.Success
}

func (f *fakeDriver) FreeMemory(device vk.Device, memory vk.DeviceMemory) {
	f.destroy("Memory")
	delete(f.memory, memory)
}

func (f *fakeDriver) MapMemory(device vk.Device, memory vk.DeviceMemory, offset, size vk.DeviceSize) (unsafe.Pointer, vk.Result) {
	buf := f.memory[memory]
	if uint64(offset+size) > uint64(len(buf)) {
		return nil, vk.ErrorMemoryMapFailed
	}
	return unsafe.Pointer(&buf[offset]), vk.Success
}

func (f *fakeDriver) UnmapMemory(device vk.Device, memory vk.DeviceMemory) {}

func (f *fakeDriver) CreateBuffer(device vk.Device, info *vk.BufferCreateInfo) (vk.Buffer, vk.Result) {
	b := vk.Buffer(f.create("Buffer"))
	f.bufferSizes[b] = uint64(info.Size)
	return b, vk.Success
}

func (f *fakeDriver) DestroyBuffer(device vk.Device, buffer vk.Buffer) {
	f.destroy("Buffer")
	delete(f.bufferSizes, buffer)
}

func (f *fakeDriver) GetBufferMemoryRequirements(device vk.Device, buffer vk.Buffer) vk.MemoryRequirements {
	return vk.MemoryRequirements{
		Size:           vk.DeviceSize(f.bufferSizes[buffer]),
		Alignment:      4,
		MemoryTypeBits: 1,
	}
}

func (f *fakeDriver) BindBufferMemory(device vk.Device, buffer vk.Buffer, memory vk.DeviceMemory, offset vk.DeviceSize) vk.Result {
	return vk.Success
}

func (f *fakeDriver) CreateImage(device vk.Device, info *vk.ImageCreateInfo) (vk.Image, vk.Result) {
	return vk.Image(f.create("Image")), vk.Success
}

func (f *fakeDriver) DestroyImage(device vk.Device, image vk.Image) { f.destroy("Image") }

func (f *fakeDriver) GetImageMemoryRequirements(device vk.Device, image vk.Image) vk.MemoryRequirements {
	return vk.MemoryRequirements{Size: 4096, Alignment: 256, MemoryTypeBits: 1}
}

func (f *fakeDriver) BindImageMemory(device vk.Device, image vk.Image, memory vk.DeviceMemory, offset vk.DeviceSize) vk.Result {
	return vk.Success
}

func (f *fakeDriver) CreateImageView(device vk.Device, info *vk.ImageViewCreateInfo) (vk.ImageView, vk.Result) {
	return vk.ImageView(f.create("ImageView")), vk.Success
}

func (f *fakeDriver) DestroyImageView(device vk.Device, view vk.ImageView) {
	f.destroy("ImageView")
}

func (f *fakeDriver) CreateRenderPass(device vk.Device, info *vk.RenderPassCreateInfo) (vk.RenderPass, vk.Result) {
	return vk.RenderPass(f.create("RenderPass")), vk.Success
}

func (f *fakeDriver) DestroyRenderPass(device vk.Device, renderPass vk.RenderPass) {
	f.destroy("RenderPass")
}

func (f *fakeDriver) CreateFramebuffer(device vk.Device, info *vk.FramebufferCreateInfo) (vk.Framebuffer, vk.Result) {
	return vk.Framebuffer(f.create("Framebuffer")), vk.Success
}

func (f *fakeDriver) DestroyFramebuffer(device vk.Device, framebuffer vk.Framebuffer) {
	f.destroy("Framebuffer")
}

func (f *fakeDriver) CreateCommandPool(device vk.Device, info *vk.CommandPoolCreateInfo) (vk.CommandPool, vk.Result) {
	return vk.CommandPool(f.create("CommandPool")), vk.Success
}

func (f *fakeDriver) DestroyCommandPool(device vk.Device, pool vk.CommandPool) {
	f.destroy("CommandPool")
}

func (f *fakeDriver) AllocateCommandBuffers(device vk.Device, info *vk.CommandBufferAllocateInfo) ([]vk.CommandBuffer, vk.Result) {
	buffers := make([]vk.CommandBuffer, info.CommandBufferCount)
	for i := range buffers {
		buffers[i] = vk.CommandBuffer(f.create("CommandBuffer"))
	}
	return buffers, vk.Success
}

func (f *fakeDriver) FreeCommandBuffers(device vk.Device, pool vk.CommandPool, buffers []vk.CommandBuffer) {
	for range buffers {
		f.destroy("CommandBuffer")
	}
}

func (f *fakeDriver) BeginCommandBuffer(cb vk.CommandBuffer, info *vk.CommandBufferBeginInfo) vk.Result {
	f.calls["BeginCommandBuffer"]++
	return vk.Success
}

func (f *fakeDriver) EndCommandBuffer(cb vk.CommandBuffer) vk.Result {
	f.calls["EndCommandBuffer"]++
	return vk.Success
}

func (f *fakeDriver) CmdBeginRenderPass(cb vk.CommandBuffer, info *vk.RenderPassBeginInfo, contents vk.SubpassContents) {
	f.calls["CmdBeginRenderPass"]++
}

func (f *fakeDriver) CmdEndRenderPass(cb vk.CommandBuffer) {
	f.calls["CmdEndRenderPass"]++
}

func (f *fakeDriver) CmdBindPipeline(cb vk.CommandBuffer, bindPoint vk.PipelineBindPoint, pipeline vk.Pipeline) {
	f.calls["CmdBindPipeline"]++
}

func (f *fakeDriver) CmdSetViewport(cb vk.CommandBuffer, viewport vk.Viewport) {
	f.viewports = append(f.viewports, viewport)
}

func (f *fakeDriver) CmdSetScissor(cb vk.CommandBuffer, scissor vk.Rect2D) {
	f.calls["CmdSetScissor"]++
}

func (f *fakeDriver) CmdSetLineWidth(cb vk.CommandBuffer, width float32) {
	f.calls["CmdSetLineWidth"]++
}

func (f *fakeDriver) CmdBindVertexBuffers(cb vk.CommandBuffer, buffers []vk.Buffer, offsets []vk.DeviceSize) {
	f.calls["CmdBindVertexBuffers"]++
}

func (f *fakeDriver) CmdBindIndexBuffer(cb vk.CommandBuffer, buffer vk.Buffer, offset vk.DeviceSize, indexType vk.IndexType) {
	f.calls["CmdBindIndexBuffer"]++
}

func (f *fakeDriver) CmdDrawIndexed(cb vk.CommandBuffer, indexCount, instanceCount, firstIndex uint32, vertexOffset int32, firstInstance uint32) {
	f.draws = append(f.draws, indexCount)
}

func (f *fakeDriver) CmdCopyBuffer(cb vk.CommandBuffer, src, dst vk.Buffer, regions []vk.BufferCopy) {
	f.calls["CmdCopyBuffer"]++
}

func (f *fakeDriver) CreateSemaphore(device vk.Device) (vk.Semaphore, vk.Result) {
	return vk.Semaphore(f.create("Semaphore")), vk.Success
}

func (f *fakeDriver) DestroySemaphore(device vk.Device, semaphore vk.Semaphore) {
	f.destroy("Semaphore")
}

func (f *fakeDriver) CreateFence(device vk.Device, signaled bool) (vk.Fence, vk.Result) {
	return vk.Fence(f.create("Fence")), vk.Success
}

func (f *fakeDriver) DestroyFence(device vk.Device, fence vk.Fence) { f.destroy("Fence") }

func (f *fakeDriver) WaitForFences(device vk.Device, fences []vk.Fence, waitAll bool, timeout uint64) vk.Result {
	f.calls["WaitForFences"]++
	return f.waitResult
}

func (f *fakeDriver) ResetFences(device vk.Device, fences []vk.Fence) vk.Result {
	f.calls["ResetFences"]++
	return vk.Success
}

func (f *fakeDriver) CreateShaderModule(device vk.Device, code []byte) (vk.ShaderModule, vk.Result) {
	return vk.ShaderModule(f.create("ShaderModule")), vk.Success
}

func (f *fakeDriver) DestroyShaderModule(device vk.Device, module vk.ShaderModule) {
	f.destroy("ShaderModule")
}

func (f *fakeDriver) CreatePipelineLayout(device vk.Device, info *vk.PipelineLayoutCreateInfo) (vk.PipelineLayout, vk.Result) {
	return vk.PipelineLayout(f.create("PipelineLayout")), vk.Success
}

func (f *fakeDriver) DestroyPipelineLayout(device vk.Device, layout vk.PipelineLayout) {
	f.destroy("PipelineLayout")
}

func (f *fakeDriver) CreateGraphicsPipeline(device vk.Device, info *vk.GraphicsPipelineCreateInfo) (vk.Pipeline, vk.Result) {
	if f.pipelineResult != vk.Success {
		return nil, f.pipelineResult
	}
	return vk.Pipeline(f.create("Pipeline")), vk.Success
}

func (f *fakeDriver) DestroyPipeline(device vk.Device, pipeline vk.Pipeline) {
	f.destroy("Pipeline")
}

// fakeWindow is a Window whose surface is tracked by the fake driver.
type fakeWindow struct {
	driver        *fakeDriver
	width, height int
}

func (w *fakeWindow) FramebufferSize() (int, int) {
	return w.width, w.height
}

func (w *fakeWindow) RequiredInstanceExtensions() []string {
	return []string{"VK_KHR_surface"}
}

func (w *fakeWindow) CreateSurface(instance vk.Instance) (vk.Surface, error) {
	return vk.Surface(w.driver.create("Surface")), nil
}

// writeShaders puts placeholder SPIR-V for the object shader into a
// temporary directory and returns it.
func writeShaders(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for _, st := range objectShaderStages {
		path := ShaderModulePath(dir, BuiltinObjectShaderName, st.name)
		require.NoError(t, os.WriteFile(path, []byte{0x03, 0x02, 0x23, 0x07, 0, 0, 1, 0}, 0o644))
	}
	return dir
}

func testConfig(t *testing.T) *Config {
	t.Helper()
	cfg := DefaultConfig()
	cfg.ShaderDir = writeShaders(t)
	cfg.MaxGeometryVertices = 64
	return cfg
}

// newTestBackend returns an initialized backend over f.
func newTestBackend(t *testing.T, f *fakeDriver, cfg *Config) *VulkanBackend {
	t.Helper()
	if cfg == nil {
		cfg = testConfig(t)
	}
	backend, err := NewRendererBackend(BackendVulkan, f, cfg)
	require.NoError(t, err)
	vb := backend.(*VulkanBackend)
	require.NoError(t, vb.Initialize("test", &fakeWindow{driver: f, width: 800, height: 600}))
	return vb
}

func shaderPath(dir, stage string) string {
	return filepath.Join(dir, BuiltinObjectShaderName+"."+stage+".spv")
}
