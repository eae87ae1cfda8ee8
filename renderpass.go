package lai

import (
	vk "github.com/vulkan-go/vulkan"
)

// RenderPass is the single-subpass color and depth pass every frame is
// drawn in.
type RenderPass struct {
	VKRenderPass vk.RenderPass
	RenderArea   vk.Rect2D
	ClearColor   [4]float32
	Depth        float32
	Stencil      uint32
}

// CreateRenderPass builds the main pass for the current swapchain format and
// depth format. Both attachments are cleared on load; only color is stored.
func CreateRenderPass(ctx *Context, area vk.Rect2D, clearColor [4]float32, depth float32, stencil uint32) (*RenderPass, error) {
	attachmentDescriptions := []vk.AttachmentDescription{
		{
			Format:         ctx.Swapchain.ImageFormat.Format,
			Samples:        vk.SampleCount1Bit,
			LoadOp:         vk.AttachmentLoadOpClear,
			StoreOp:        vk.AttachmentStoreOpStore,
			StencilLoadOp:  vk.AttachmentLoadOpDontCare,
			StencilStoreOp: vk.AttachmentStoreOpDontCare,
			InitialLayout:  vk.ImageLayoutUndefined,
			FinalLayout:    vk.ImageLayoutPresentSrc,
		},
		{
			Format:         ctx.Device.DepthFormat,
			Samples:        vk.SampleCount1Bit,
			LoadOp:         vk.AttachmentLoadOpClear,
			StoreOp:        vk.AttachmentStoreOpDontCare,
			StencilLoadOp:  vk.AttachmentLoadOpDontCare,
			StencilStoreOp: vk.AttachmentStoreOpDontCare,
			InitialLayout:  vk.ImageLayoutUndefined,
			FinalLayout:    vk.ImageLayoutDepthStencilAttachmentOptimal,
		},
	}

	colorAttachments := []vk.AttachmentReference{{
		Attachment: 0,
		Layout:     vk.ImageLayoutColorAttachmentOptimal,
	}}

	depthAttachmentRef := vk.AttachmentReference{
		Attachment: 1,
		Layout:     vk.ImageLayoutDepthStencilAttachmentOptimal,
	}

	subpassDescriptions := []vk.SubpassDescription{{
		PipelineBindPoint:       vk.PipelineBindPointGraphics,
		ColorAttachmentCount:    1,
		PColorAttachments:       colorAttachments,
		PDepthStencilAttachment: &depthAttachmentRef,
	}}

	// The color attachment must not be written before the previous present
	// has released the image.
	dependency := vk.SubpassDependency{
		SrcSubpass:    vk.SubpassExternal,
		DstSubpass:    0,
		SrcStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		SrcAccessMask: 0,
		DstStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		DstAccessMask: vk.AccessFlags(vk.AccessColorAttachmentReadBit | vk.AccessColorAttachmentWriteBit),
	}

	renderPassCreateInfo := vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: uint32(len(attachmentDescriptions)),
		PAttachments:    attachmentDescriptions,
		SubpassCount:    1,
		PSubpasses:      subpassDescriptions,
		DependencyCount: 1,
		PDependencies:   []vk.SubpassDependency{dependency},
	}

	renderPass, res := ctx.Driver.CreateRenderPass(ctx.VKDevice(), &renderPassCreateInfo)
	if res != vk.Success {
		return nil, resultError("creating render pass", res)
	}

	return &RenderPass{
		VKRenderPass: renderPass,
		RenderArea:   area,
		ClearColor:   clearColor,
		Depth:        depth,
		Stencil:      stencil,
	}, nil
}

// Begin starts the pass on framebuffer and moves cb into the render pass.
func (r *RenderPass) Begin(ctx *Context, cb *CommandBuffer, framebuffer *Framebuffer) {
	clearValues := make([]vk.ClearValue, 2)
	clearValues[0].SetColor(r.ClearColor[:])
	clearValues[1].SetDepthStencil(r.Depth, r.Stencil)

	renderPassBeginInfo := vk.RenderPassBeginInfo{
		SType:           vk.StructureTypeRenderPassBeginInfo,
		RenderPass:      r.VKRenderPass,
		Framebuffer:     framebuffer.VKFramebuffer,
		RenderArea:      r.RenderArea,
		ClearValueCount: uint32(len(clearValues)),
		PClearValues:    clearValues,
	}

	ctx.Driver.CmdBeginRenderPass(cb.VKCommandBuffer, &renderPassBeginInfo, vk.SubpassContentsInline)
	cb.State = CommandBufferInRenderPass
}

// End closes the pass and returns cb to recording.
func (r *RenderPass) End(ctx *Context, cb *CommandBuffer) {
	ctx.Driver.CmdEndRenderPass(cb.VKCommandBuffer)
	cb.State = CommandBufferRecording
}

func (r *RenderPass) Destroy(ctx *Context) {
	if r.VKRenderPass != vk.NullRenderPass {
		ctx.Driver.DestroyRenderPass(ctx.VKDevice(), r.VKRenderPass)
		r.VKRenderPass = vk.NullRenderPass
	}
}
