/*
Package lai is the Vulkan backend of a small game engine renderer. It takes a
window, brings up a Vulkan instance and device on it, and drives a double
buffered frame loop that records one render pass per swapchain image.

The renderer has two halves. Renderer is the API independent front: the
application sizes its storage with RendererMemoryRequirement, calls
InitializeRenderer, forwards window resizes to OnResized and calls DrawFrame
once per tick. RendererBackend is the graphics API specific half; only
VulkanBackend exists.

Vulkan terms as they appear here

	Instance	the vulkan runtime instance, optionally with the validation layer
	PhysicalDevice	a GPU that passed selection (queues, extensions, features)
	Device		the logical device plus its graphics, present and transfer queues
	Swapchain	the presentable images, their views, a depth attachment and
			one framebuffer per image
	RenderPass	the single pass clearing color and depth every frame
	CommandBuffer	one per swapchain image, with bookkeeping state
	Fence		one per frame slot, guarding the slot's command buffer
	Pipeline	the object shader's graphics pipeline

A frame

 1. Wait for the frame slot's fence.
 2. Acquire the next image. An out of date swapchain is rebuilt and the
    frame skipped. A rebuild that fails is retried on the next frame.
 3. Wait for whichever slot last rendered to that image.
 4. Record the render pass and the draw.
 5. Submit, signaling the slot's fence, and present.

BeginFrame returning false skips the frame. EndFrame returning false means the
device can no longer be used.

Every Vulkan call goes through the Driver interface. NewVulkanDriver is the
real one; tests substitute an in-memory driver, so nothing in the package
needs a GPU to be exercised.
*/
package lai
