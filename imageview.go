package lai

import (
	vk "github.com/vulkan-go/vulkan"
)

type ImageView struct {
	VKImageView vk.ImageView
}

// CreateImageView creates a 2D single-level view of image with the given
// aspect.
func CreateImageView(ctx *Context, image vk.Image, format vk.Format, aspect vk.ImageAspectFlags) (*ImageView, error) {
	createInfo := &vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    image,
		ViewType: vk.ImageViewType2d,
		Format:   format,
		Components: vk.ComponentMapping{
			R: vk.ComponentSwizzleR,
			G: vk.ComponentSwizzleG,
			B: vk.ComponentSwizzleB,
			A: vk.ComponentSwizzleA,
		},
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask: aspect,
			LevelCount: 1,
			LayerCount: 1,
		},
	}

	view, res := ctx.Driver.CreateImageView(ctx.VKDevice(), createInfo)
	if res != vk.Success {
		return nil, resultError("creating image view", res)
	}
	return &ImageView{VKImageView: view}, nil
}

func (i *ImageView) Destroy(ctx *Context) {
	if i.VKImageView != vk.NullImageView {
		ctx.Driver.DestroyImageView(ctx.VKDevice(), i.VKImageView)
		i.VKImageView = vk.NullImageView
	}
}
