package lai

import (
	"errors"
	"fmt"
	"log/slog"

	vk "github.com/vulkan-go/vulkan"
)

// ErrRecreateInProgress is returned when a swapchain rebuild is requested
// while one is already running.
var ErrRecreateInProgress = errors.New("swapchain recreation already in progress")

type Swapchain struct {
	ImageFormat       vk.SurfaceFormat
	PresentMode       vk.PresentMode
	Extent            vk.Extent2D
	MaxFramesInFlight uint32
	VKSwapchain       vk.Swapchain

	ImageCount uint32
	// Images are owned by the presentation engine, Views by the swapchain.
	Images          []vk.Image
	Views           []*ImageView
	DepthAttachment *Image
	Framebuffers    []*Framebuffer
}

// chooseSurfaceFormat prefers 8-bit BGRA UNORM in the sRGB nonlinear color
// space and falls back to the first format offered.
func chooseSurfaceFormat(formats []vk.SurfaceFormat) vk.SurfaceFormat {
	for _, f := range formats {
		if f.Format == vk.FormatB8g8r8a8Unorm && f.ColorSpace == vk.ColorSpaceSrgbNonlinear {
			return f
		}
	}
	return formats[0]
}

// choosePresentMode prefers MAILBOX. FIFO is always available.
func choosePresentMode(modes []vk.PresentMode) vk.PresentMode {
	for _, m := range modes {
		if m == vk.PresentModeMailbox {
			return m
		}
	}
	return vk.PresentModeFifo
}

func clampUint32(v, lo, hi uint32) uint32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// chooseSwapExtent uses the surface's current extent unless the surface
// leaves it to the swapchain, in which case the requested size is clamped
// to the supported range.
func chooseSwapExtent(caps vk.SurfaceCapabilities, width, height uint32) vk.Extent2D {
	if caps.CurrentExtent.Width != vk.MaxUint32 {
		return caps.CurrentExtent
	}
	return vk.Extent2D{
		Width:  clampUint32(width, caps.MinImageExtent.Width, caps.MaxImageExtent.Width),
		Height: clampUint32(height, caps.MinImageExtent.Height, caps.MaxImageExtent.Height),
	}
}

// chooseImageCount asks for one image more than the minimum. A maximum of
// zero means unbounded.
func chooseImageCount(caps vk.SurfaceCapabilities) uint32 {
	count := caps.MinImageCount + 1
	if caps.MaxImageCount > 0 && count > caps.MaxImageCount {
		count = caps.MaxImageCount
	}
	return count
}

// CreateSwapchain builds a swapchain of width x height along with its image
// views, depth attachment and, once the main render pass exists, one
// framebuffer per image.
func CreateSwapchain(ctx *Context, width, height uint32) (*Swapchain, error) {
	if width == 0 || height == 0 {
		return nil, fmt.Errorf("swapchain %dx%d: %w", width, height, ErrInvalidSize)
	}
	s := &Swapchain{}
	if err := s.create(ctx, width, height); err != nil {
		s.Destroy(ctx)
		return nil, err
	}
	return s, nil
}

// Recreate destroys and rebuilds the swapchain in place. A zero-size
// request or one made during another rebuild leaves the current swapchain
// untouched.
func (s *Swapchain) Recreate(ctx *Context, width, height uint32) error {
	if ctx.RecreatingSwapchain {
		return ErrRecreateInProgress
	}
	if width == 0 || height == 0 {
		return fmt.Errorf("swapchain %dx%d: %w", width, height, ErrInvalidSize)
	}

	ctx.RecreatingSwapchain = true
	defer func() { ctx.RecreatingSwapchain = false }()

	s.Destroy(ctx)
	return s.create(ctx, width, height)
}

func (s *Swapchain) create(ctx *Context, width, height uint32) error {
	d := ctx.Device
	if err := d.QuerySwapchainSupport(ctx); err != nil {
		return err
	}
	support := d.SwapchainSupport
	if len(support.Formats) == 0 || len(support.PresentModes) == 0 {
		return errors.New("surface reports no formats or present modes")
	}

	s.ImageFormat = chooseSurfaceFormat(support.Formats)
	s.PresentMode = choosePresentMode(support.PresentModes)
	s.Extent = chooseSwapExtent(support.Capabilities, width, height)
	s.MaxFramesInFlight = MaxFramesInFlight

	createInfo := &vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          ctx.Surface,
		MinImageCount:    chooseImageCount(support.Capabilities),
		ImageFormat:      s.ImageFormat.Format,
		ImageColorSpace:  s.ImageFormat.ColorSpace,
		ImageExtent:      s.Extent,
		ImageArrayLayers: 1,
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		PreTransform:     support.Capabilities.CurrentTransform,
		CompositeAlpha:   vk.CompositeAlphaOpaqueBit,
		PresentMode:      s.PresentMode,
		Clipped:          vk.True,
		OldSwapchain:     vk.NullSwapchain,
	}

	if d.QueueFamilies.Graphics != d.QueueFamilies.Present {
		createInfo.ImageSharingMode = vk.SharingModeConcurrent
		createInfo.QueueFamilyIndexCount = 2
		createInfo.PQueueFamilyIndices = []uint32{uint32(d.QueueFamilies.Graphics), uint32(d.QueueFamilies.Present)}
	} else {
		createInfo.ImageSharingMode = vk.SharingModeExclusive
	}

	swapchain, res := ctx.Driver.CreateSwapchain(d.VKDevice, createInfo)
	if res != vk.Success {
		return resultError("creating swapchain", res)
	}
	s.VKSwapchain = swapchain

	images, res := ctx.Driver.GetSwapchainImages(d.VKDevice, swapchain)
	if res != vk.Success {
		return resultError("getting swapchain images", res)
	}
	s.Images = images
	s.ImageCount = uint32(len(images))

	s.Views = make([]*ImageView, 0, len(images))
	for _, img := range images {
		view, err := CreateImageView(ctx, img, s.ImageFormat.Format, vk.ImageAspectFlags(vk.ImageAspectColorBit))
		if err != nil {
			return err
		}
		s.Views = append(s.Views, view)
	}

	if err := d.DetectDepthFormat(ctx); err != nil {
		Fatal("failed to find a supported depth format")
		return err
	}

	depth, err := CreateImage(ctx, ImageOptions{
		Width:            s.Extent.Width,
		Height:           s.Extent.Height,
		Format:           d.DepthFormat,
		Tiling:           vk.ImageTilingOptimal,
		Usage:            vk.ImageUsageFlags(vk.ImageUsageDepthStencilAttachmentBit),
		MemoryProperties: vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit),
		CreateView:       true,
		ViewAspect:       vk.ImageAspectFlags(vk.ImageAspectDepthBit),
	})
	if err != nil {
		return fmt.Errorf("creating depth attachment: %w", err)
	}
	s.DepthAttachment = depth

	if ctx.MainRenderPass != nil {
		if err := s.regenerateFramebuffers(ctx, ctx.MainRenderPass); err != nil {
			return err
		}
	}

	slog.Info("swapchain created",
		"width", s.Extent.Width,
		"height", s.Extent.Height,
		"images", s.ImageCount,
		"format", s.ImageFormat.Format,
		"present_mode", s.PresentMode)
	return nil
}

// regenerateFramebuffers replaces the framebuffers with one per image,
// each pairing the image's view with the shared depth view.
func (s *Swapchain) regenerateFramebuffers(ctx *Context, rp *RenderPass) error {
	s.destroyFramebuffers(ctx)
	s.Framebuffers = make([]*Framebuffer, 0, len(s.Views))
	for _, view := range s.Views {
		attachments := []vk.ImageView{view.VKImageView, s.DepthAttachment.View.VKImageView}
		fb, err := CreateFramebuffer(ctx, rp, s.Extent.Width, s.Extent.Height, attachments)
		if err != nil {
			return err
		}
		s.Framebuffers = append(s.Framebuffers, fb)
	}
	return nil
}

func (s *Swapchain) destroyFramebuffers(ctx *Context) {
	for _, fb := range s.Framebuffers {
		fb.Destroy(ctx)
	}
	s.Framebuffers = nil
}

// Destroy releases everything the swapchain owns. The presentation engine
// keeps its images.
func (s *Swapchain) Destroy(ctx *Context) {
	s.destroyFramebuffers(ctx)
	if s.DepthAttachment != nil {
		s.DepthAttachment.Destroy(ctx)
		s.DepthAttachment = nil
	}
	for _, view := range s.Views {
		view.Destroy(ctx)
	}
	s.Views = nil
	if s.VKSwapchain != vk.NullSwapchain {
		ctx.Driver.DestroySwapchain(ctx.VKDevice(), s.VKSwapchain)
		s.VKSwapchain = vk.NullSwapchain
	}
	s.Images = nil
	s.ImageCount = 0
}

// AcquireNextImageIndex asks the presentation engine for the next image.
// An out of date swapchain is rebuilt and the frame skipped; a suboptimal
// one is still used.
func (s *Swapchain) AcquireNextImageIndex(ctx *Context, timeout uint64, imageAvailable vk.Semaphore, fence vk.Fence) (uint32, bool) {
	index, res := ctx.Driver.AcquireNextImage(ctx.VKDevice(), s.VKSwapchain, timeout, imageAvailable, fence)
	switch res {
	case vk.Success, vk.Suboptimal:
		return index, true
	case vk.ErrorOutOfDate:
		ctx.recreateSwapchain()
		return 0, false
	default:
		Fatal("failed to acquire swapchain image", "error", ResultString(res, true))
		return 0, false
	}
}

// Present queues imageIndex for presentation once renderComplete is
// signaled, then advances the frame slot. An out of date or suboptimal
// swapchain is rebuilt after presenting.
func (s *Swapchain) Present(ctx *Context, presentQueue *Queue, renderComplete vk.Semaphore, imageIndex uint32) {
	presentInfo := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{renderComplete},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{s.VKSwapchain},
		PImageIndices:      []uint32{imageIndex},
	}

	res := ctx.Driver.QueuePresent(presentQueue.VKQueue, &presentInfo)
	switch res {
	case vk.Success:
	case vk.ErrorOutOfDate, vk.Suboptimal:
		ctx.recreateSwapchain()
	default:
		Fatal("failed to present swapchain image", "error", ResultString(res, true))
	}

	ctx.CurrentFrame = (ctx.CurrentFrame + 1) % s.MaxFramesInFlight
}
