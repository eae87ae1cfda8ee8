package lai

import (
	vk "github.com/vulkan-go/vulkan"
)

// MaxFramesInFlight is the number of frames the CPU may record ahead of the
// GPU.
const MaxFramesInFlight = 2

// NoFence marks a swapchain image that no in-flight frame is using.
const NoFence = -1

// Context is everything the Vulkan backend owns. One is created by
// VulkanBackend.Initialize and torn down by Shutdown; it is only touched by
// the thread driving the frame loop.
type Context struct {
	Driver Driver
	Config *Config

	Instance      vk.Instance
	debugCallback vk.DebugReportCallback
	Surface       vk.Surface

	Device         *Device
	Swapchain      *Swapchain
	MainRenderPass *RenderPass

	// GraphicsCommandBuffers holds one buffer per swapchain image.
	GraphicsCommandBuffers []*CommandBuffer

	ImageAvailableSemaphores []vk.Semaphore
	QueueCompleteSemaphores  []vk.Semaphore
	InFlightFences           []*Fence

	// ImagesInFlight maps each swapchain image to the index of the
	// InFlightFences entry guarding it, or NoFence.
	ImagesInFlight []int

	// slotBuffers maps each frame slot to the command buffer index it last
	// submitted, or -1.
	slotBuffers []int

	ObjectShader *ObjectShader
	VertexBuffer *Buffer
	IndexBuffer  *Buffer
	Geometry     *GeometryAllocator

	// Quad is drawn every frame to exercise the pipeline.
	Quad *Geometry

	FramebufferWidth  uint32
	FramebufferHeight uint32

	// The size requested by the last resize, applied on the next
	// recreation.
	cachedFramebufferWidth  uint32
	cachedFramebufferHeight uint32

	// FramebufferSizeGeneration is bumped on every resize;
	// FramebufferSizeLastGeneration is the value the swapchain was last
	// built for.
	FramebufferSizeGeneration     uint64
	FramebufferSizeLastGeneration uint64

	CurrentFrame        uint32
	ImageIndex          uint32
	RecreatingSwapchain bool

	// swapchainStale is set while a requested rebuild has not completed.
	// The next frame retries it instead of touching the swapchain.
	swapchainStale bool

	FrameNumber uint64

	shaderWatcher *ShaderWatcher
}

// NewContext returns an empty context over driver.
func NewContext(driver Driver, cfg *Config) *Context {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Context{
		Driver: driver,
		Config: cfg,
	}
}

// VKDevice is shorthand for the logical device handle.
func (ctx *Context) VKDevice() vk.Device {
	return ctx.Device.VKDevice
}

// CurrentCommandBuffer is the buffer recording for the acquired image.
func (ctx *Context) CurrentCommandBuffer() *CommandBuffer {
	return ctx.GraphicsCommandBuffers[ctx.ImageIndex]
}
