package lai

import (
	"errors"
	"fmt"
	"log/slog"

	vk "github.com/vulkan-go/vulkan"
)

type BackendType int

const (
	BackendVulkan BackendType = iota
	BackendOpenGL
	BackendDirectX
)

func (t BackendType) String() string {
	switch t {
	case BackendVulkan:
		return "vulkan"
	case BackendOpenGL:
		return "opengl"
	case BackendDirectX:
		return "directx"
	}
	return fmt.Sprintf("BackendType(%d)", int(t))
}

// Window is what the renderer needs from the platform layer.
type Window interface {
	// FramebufferSize is the drawable size in pixels.
	FramebufferSize() (width, height int)
	RequiredInstanceExtensions() []string
	CreateSurface(instance vk.Instance) (vk.Surface, error)
}

// RendererBackend is the graphics API specific half of the renderer.
//
// BeginFrame returning false means the frame is skipped and EndFrame must
// not be called. EndFrame returning false is unrecoverable.
type RendererBackend interface {
	Initialize(appName string, window Window) error
	Shutdown()
	Resized(width, height uint16)
	BeginFrame(deltaTime float32) bool
	EndFrame(deltaTime float32) bool
}

// NewRendererBackend returns the backend for t. Only Vulkan is implemented.
func NewRendererBackend(t BackendType, driver Driver, cfg *Config) (RendererBackend, error) {
	if t != BackendVulkan {
		return nil, fmt.Errorf("renderer backend %s is not supported", t)
	}
	return &VulkanBackend{ctx: NewContext(driver, cfg)}, nil
}

// VulkanBackend drives frames through a Context.
type VulkanBackend struct {
	ctx *Context
}

var _ RendererBackend = (*VulkanBackend)(nil)

// Context exposes the backend state.
func (b *VulkanBackend) Context() *Context {
	return b.ctx
}

// Initialize brings up the instance, surface, device, swapchain, render
// pass, command buffers, synchronization objects, object shader and
// geometry buffers. On failure everything created so far is torn down.
func (b *VulkanBackend) Initialize(appName string, window Window) (err error) {
	ctx := b.ctx
	if window == nil {
		return errors.New("renderer needs a window")
	}
	if err := ctx.Config.Validate(); err != nil {
		return err
	}
	defer func() {
		if err != nil {
			Fatal("vulkan renderer failed to initialize", "err", err)
			b.Shutdown()
		}
	}()

	width, height := window.FramebufferSize()
	if width <= 0 || height <= 0 {
		width, height = int(ctx.Config.DefaultWidth), int(ctx.Config.DefaultHeight)
	}
	ctx.FramebufferWidth = uint32(width)
	ctx.FramebufferHeight = uint32(height)

	if err := CreateInstance(ctx, appName, window.RequiredInstanceExtensions()); err != nil {
		return err
	}

	slog.Debug("creating vulkan surface")
	surface, err := window.CreateSurface(ctx.Instance)
	if err != nil {
		return fmt.Errorf("creating platform surface: %w", err)
	}
	ctx.Surface = surface
	slog.Debug("vulkan surface created")

	if err := CreateDevice(ctx); err != nil {
		return err
	}

	swapchain, err := CreateSwapchain(ctx, ctx.FramebufferWidth, ctx.FramebufferHeight)
	if err != nil {
		return err
	}
	ctx.Swapchain = swapchain
	ctx.FramebufferWidth = swapchain.Extent.Width
	ctx.FramebufferHeight = swapchain.Extent.Height

	rp, err := CreateRenderPass(ctx,
		vk.Rect2D{Extent: swapchain.Extent},
		ctx.Config.ClearColor, 1.0, 0)
	if err != nil {
		return err
	}
	ctx.MainRenderPass = rp

	if err := swapchain.regenerateFramebuffers(ctx, rp); err != nil {
		return err
	}
	if err := createCommandBuffers(ctx); err != nil {
		return err
	}
	if err := createSyncObjects(ctx); err != nil {
		return err
	}

	shader, err := CreateObjectShader(ctx)
	if err != nil {
		return err
	}
	ctx.ObjectShader = shader

	if err := createGeometryBuffers(ctx); err != nil {
		return err
	}
	quad, err := ctx.Geometry.Upload(ctx, QuadVertices, QuadIndices)
	if err != nil {
		return err
	}
	ctx.Quad = quad

	if ctx.Config.ShaderHotReload {
		watcher, err := NewShaderWatcher(shader.Paths())
		if err != nil {
			slog.Warn("shader hot reload disabled", "err", err)
		} else {
			ctx.shaderWatcher = watcher
		}
	}

	slog.Info("vulkan renderer initialized successfully")
	return nil
}

func createCommandBuffers(ctx *Context) error {
	buffers, err := ctx.Device.GraphicsCommandPool.AllocateBuffers(ctx, int(ctx.Swapchain.ImageCount), true)
	if err != nil {
		return err
	}
	ctx.GraphicsCommandBuffers = buffers
	slog.Debug("graphics command buffers created", "count", len(buffers))
	return nil
}

func freeCommandBuffers(ctx *Context) {
	if ctx.Device.GraphicsCommandPool != nil {
		ctx.Device.GraphicsCommandPool.FreeBuffers(ctx, ctx.GraphicsCommandBuffers)
	}
	ctx.GraphicsCommandBuffers = nil
}

// createSyncObjects creates a semaphore pair and a signaled fence per frame
// slot and clears the image to fence table.
func createSyncObjects(ctx *Context) error {
	ctx.ImageAvailableSemaphores = make([]vk.Semaphore, 0, MaxFramesInFlight)
	ctx.QueueCompleteSemaphores = make([]vk.Semaphore, 0, MaxFramesInFlight)
	ctx.InFlightFences = make([]*Fence, 0, MaxFramesInFlight)
	ctx.slotBuffers = make([]int, MaxFramesInFlight)

	for i := 0; i < MaxFramesInFlight; i++ {
		sem, err := CreateSemaphore(ctx)
		if err != nil {
			return err
		}
		ctx.ImageAvailableSemaphores = append(ctx.ImageAvailableSemaphores, sem)

		sem, err = CreateSemaphore(ctx)
		if err != nil {
			return err
		}
		ctx.QueueCompleteSemaphores = append(ctx.QueueCompleteSemaphores, sem)

		// Signaled so the first wait on each slot returns immediately.
		fence, err := CreateFence(ctx, true)
		if err != nil {
			return err
		}
		ctx.InFlightFences = append(ctx.InFlightFences, fence)
		ctx.slotBuffers[i] = -1
	}

	resetImagesInFlight(ctx)
	return nil
}

func resetImagesInFlight(ctx *Context) {
	ctx.ImagesInFlight = make([]int, ctx.Swapchain.ImageCount)
	for i := range ctx.ImagesInFlight {
		ctx.ImagesInFlight[i] = NoFence
	}
}

// waitSlot waits on the fence of frame slot and retires the command buffer
// that slot last submitted.
func (ctx *Context) waitSlot(slot int) bool {
	if !ctx.InFlightFences[slot].Wait(ctx, ctx.Config.fenceTimeout()) {
		return false
	}
	if i := ctx.slotBuffers[slot]; i >= 0 {
		if i < len(ctx.GraphicsCommandBuffers) && ctx.GraphicsCommandBuffers[i].State == CommandBufferSubmitted {
			ctx.GraphicsCommandBuffers[i].Reset()
		}
		ctx.slotBuffers[slot] = -1
	}
	return true
}

// recreateSwapchain rebuilds the swapchain for the pending resize, or for
// the current size when no resize is pending, then the command buffers and
// the image to fence table. It reports whether a new swapchain exists.
// Until it succeeds the swapchain stays stale and BeginFrame retries.
func (ctx *Context) recreateSwapchain() bool {
	if ctx.RecreatingSwapchain {
		slog.Debug("recreateSwapchain called when already recreating, booting")
		return false
	}
	ctx.swapchainStale = true

	width, height := ctx.FramebufferWidth, ctx.FramebufferHeight
	if ctx.FramebufferSizeGeneration != ctx.FramebufferSizeLastGeneration {
		width, height = ctx.cachedFramebufferWidth, ctx.cachedFramebufferHeight
	}
	if width == 0 || height == 0 {
		slog.Debug("recreateSwapchain called when window is <1 in a dimension, booting")
		return false
	}

	if err := ctx.Device.WaitIdle(ctx); err != nil {
		slog.Error("recreateSwapchain: waiting for device", "err", err)
		return false
	}

	if err := ctx.Swapchain.Recreate(ctx, width, height); err != nil {
		Fatal("failed to recreate swapchain", "err", err)
		return false
	}

	ctx.FramebufferWidth = ctx.Swapchain.Extent.Width
	ctx.FramebufferHeight = ctx.Swapchain.Extent.Height
	ctx.MainRenderPass.RenderArea = vk.Rect2D{Extent: ctx.Swapchain.Extent}
	ctx.cachedFramebufferWidth = 0
	ctx.cachedFramebufferHeight = 0
	ctx.FramebufferSizeLastGeneration = ctx.FramebufferSizeGeneration

	resetImagesInFlight(ctx)
	for i := range ctx.slotBuffers {
		ctx.slotBuffers[i] = -1
	}

	freeCommandBuffers(ctx)
	if err := createCommandBuffers(ctx); err != nil {
		Fatal("failed to recreate command buffers", "err", err)
		return false
	}

	ctx.swapchainStale = false
	slog.Info("swapchain recreated", "width", ctx.FramebufferWidth, "height", ctx.FramebufferHeight)
	return true
}

// Resized records the new framebuffer size. The swapchain is rebuilt at the
// start of the next frame.
func (b *VulkanBackend) Resized(width, height uint16) {
	ctx := b.ctx
	ctx.cachedFramebufferWidth = uint32(width)
	ctx.cachedFramebufferHeight = uint32(height)
	ctx.FramebufferSizeGeneration++
	slog.Info("vulkan renderer backend resized",
		"width", width, "height", height, "generation", ctx.FramebufferSizeGeneration)
}

// BeginFrame waits for the current frame slot, acquires the next image and
// starts recording its command buffer inside the main render pass.
func (b *VulkanBackend) BeginFrame(deltaTime float32) bool {
	ctx := b.ctx
	d := ctx.Device

	if ctx.RecreatingSwapchain {
		if err := d.WaitIdle(ctx); err != nil {
			slog.Error("BeginFrame: waiting for device", "err", err)
			return false
		}
		slog.Info("recreating swapchain, booting")
		return false
	}

	resized := ctx.FramebufferSizeGeneration != ctx.FramebufferSizeLastGeneration
	if resized || ctx.swapchainStale || ctx.Swapchain.VKSwapchain == vk.NullSwapchain {
		if !ctx.recreateSwapchain() {
			return false
		}
		slog.Info("swapchain rebuilt, booting", "resized", resized)
		return false
	}

	if ctx.shaderWatcher != nil && ctx.shaderWatcher.Changed() {
		if err := ctx.ObjectShader.Rebuild(ctx); err != nil {
			slog.Error("shader reload failed, keeping the previous pipeline", "err", err)
		}
	}

	slot := int(ctx.CurrentFrame)
	if !ctx.waitSlot(slot) {
		slog.Warn("in-flight fence wait failure")
		return false
	}

	index, ok := ctx.Swapchain.AcquireNextImageIndex(ctx, vk.MaxUint64, ctx.ImageAvailableSemaphores[slot], vk.NullFence)
	if !ok {
		return false
	}
	ctx.ImageIndex = index

	// Another slot may still be rendering to this image.
	if other := ctx.ImagesInFlight[index]; other != NoFence && other != slot {
		if !ctx.waitSlot(other) {
			slog.Warn("image in-flight fence wait failure", "image", index)
			return false
		}
	}

	cb := ctx.CurrentCommandBuffer()
	cb.Reset()
	if err := cb.Begin(ctx, false, false, false); err != nil {
		Fatal("failed to begin command buffer", "err", err)
		return false
	}

	width := float32(ctx.FramebufferWidth)
	height := float32(ctx.FramebufferHeight)
	ctx.Driver.CmdSetViewport(cb.VKCommandBuffer, flippedViewport(width, height))
	ctx.Driver.CmdSetScissor(cb.VKCommandBuffer, vk.Rect2D{
		Extent: vk.Extent2D{Width: ctx.FramebufferWidth, Height: ctx.FramebufferHeight},
	})
	ctx.Driver.CmdSetLineWidth(cb.VKCommandBuffer, 1.0)

	ctx.MainRenderPass.RenderArea = vk.Rect2D{
		Extent: vk.Extent2D{Width: ctx.FramebufferWidth, Height: ctx.FramebufferHeight},
	}
	ctx.MainRenderPass.Begin(ctx, cb, ctx.Swapchain.Framebuffers[index])

	ctx.ObjectShader.Use(ctx, cb)
	ctx.Quad.Draw(ctx, cb)
	return true
}

// EndFrame closes the render pass, submits the command buffer and presents
// the image.
func (b *VulkanBackend) EndFrame(deltaTime float32) bool {
	ctx := b.ctx
	slot := int(ctx.CurrentFrame)
	cb := ctx.CurrentCommandBuffer()

	ctx.MainRenderPass.End(ctx, cb)
	if err := cb.End(ctx); err != nil {
		Fatal("failed to end command buffer", "err", err)
		return false
	}

	ctx.ImagesInFlight[ctx.ImageIndex] = slot

	fence := ctx.InFlightFences[slot]
	if err := fence.Reset(ctx); err != nil {
		Fatal("failed to reset in-flight fence", "err", err)
		return false
	}

	submitInfo := vk.SubmitInfo{
		SType:                vk.StructureTypeSubmitInfo,
		CommandBufferCount:   1,
		PCommandBuffers:      []vk.CommandBuffer{cb.VKCommandBuffer},
		SignalSemaphoreCount: 1,
		PSignalSemaphores:    []vk.Semaphore{ctx.QueueCompleteSemaphores[slot]},
		WaitSemaphoreCount:   1,
		PWaitSemaphores:      []vk.Semaphore{ctx.ImageAvailableSemaphores[slot]},
		// Wait for the image before writing color to it.
		PWaitDstStageMask: []vk.PipelineStageFlags{vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)},
	}
	if err := ctx.Device.GraphicsQueue.Submit(ctx, []vk.SubmitInfo{submitInfo}, fence.VKFence); err != nil {
		Fatal("queue submit failed", "err", err)
		return false
	}
	cb.UpdateSubmitted()
	ctx.slotBuffers[slot] = int(ctx.ImageIndex)

	ctx.Swapchain.Present(ctx, ctx.Device.PresentQueue, ctx.QueueCompleteSemaphores[slot], ctx.ImageIndex)
	ctx.FrameNumber++
	return true
}

// Shutdown waits for the device and releases everything in reverse order
// of creation. It is safe on a partially initialized backend.
func (b *VulkanBackend) Shutdown() {
	ctx := b.ctx
	if ctx.Device != nil && ctx.Device.VKDevice != nil {
		if err := ctx.Device.WaitIdle(ctx); err != nil {
			slog.Error("shutdown: waiting for device", "err", err)
		}

		if ctx.shaderWatcher != nil {
			ctx.shaderWatcher.Close()
			ctx.shaderWatcher = nil
		}

		ctx.Quad = nil
		ctx.Geometry = nil
		if ctx.VertexBuffer != nil {
			ctx.VertexBuffer.Destroy(ctx)
			ctx.VertexBuffer = nil
		}
		if ctx.IndexBuffer != nil {
			ctx.IndexBuffer.Destroy(ctx)
			ctx.IndexBuffer = nil
		}

		if ctx.ObjectShader != nil {
			ctx.ObjectShader.Destroy(ctx)
			ctx.ObjectShader = nil
		}

		for _, s := range ctx.ImageAvailableSemaphores {
			DestroySemaphore(ctx, s)
		}
		for _, s := range ctx.QueueCompleteSemaphores {
			DestroySemaphore(ctx, s)
		}
		for _, f := range ctx.InFlightFences {
			f.Destroy(ctx)
		}
		ctx.ImageAvailableSemaphores = nil
		ctx.QueueCompleteSemaphores = nil
		ctx.InFlightFences = nil
		ctx.ImagesInFlight = nil
		ctx.slotBuffers = nil

		freeCommandBuffers(ctx)

		if ctx.Swapchain != nil {
			ctx.Swapchain.destroyFramebuffers(ctx)
		}
		if ctx.MainRenderPass != nil {
			ctx.MainRenderPass.Destroy(ctx)
			ctx.MainRenderPass = nil
		}
		if ctx.Swapchain != nil {
			ctx.Swapchain.Destroy(ctx)
			ctx.Swapchain = nil
		}
	}

	if ctx.Device != nil {
		slog.Debug("destroying vulkan device")
		ctx.Device.Destroy(ctx)
		ctx.Device = nil
	}

	if ctx.Surface != vk.NullSurface {
		slog.Debug("destroying vulkan surface")
		ctx.Driver.DestroySurface(ctx.Instance, ctx.Surface)
		ctx.Surface = vk.NullSurface
	}

	DestroyInstance(ctx)
}
