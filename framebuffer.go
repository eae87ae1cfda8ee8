package lai

import (
	vk "github.com/vulkan-go/vulkan"
)

type Framebuffer struct {
	VKFramebuffer vk.Framebuffer
	Attachments   []vk.ImageView
	RenderPass    *RenderPass
}

// CreateFramebuffer binds attachments to rp at width x height.
func CreateFramebuffer(ctx *Context, rp *RenderPass, width, height uint32, attachments []vk.ImageView) (*Framebuffer, error) {
	// the caller may reuse its slice
	views := append([]vk.ImageView(nil), attachments...)

	createInfo := vk.FramebufferCreateInfo{
		SType:           vk.StructureTypeFramebufferCreateInfo,
		RenderPass:      rp.VKRenderPass,
		AttachmentCount: uint32(len(views)),
		PAttachments:    views,
		Width:           width,
		Height:          height,
		Layers:          1,
	}

	framebuffer, res := ctx.Driver.CreateFramebuffer(ctx.VKDevice(), &createInfo)
	if res != vk.Success {
		return nil, resultError("creating framebuffer", res)
	}
	return &Framebuffer{
		VKFramebuffer: framebuffer,
		Attachments:   views,
		RenderPass:    rp,
	}, nil
}

func (f *Framebuffer) Destroy(ctx *Context) {
	if f.VKFramebuffer != nil {
		ctx.Driver.DestroyFramebuffer(ctx.VKDevice(), f.VKFramebuffer)
		f.VKFramebuffer = nil
	}
	f.Attachments = nil
}
