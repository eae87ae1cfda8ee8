package lai

import (
	vk "github.com/vulkan-go/vulkan"
)

// Image is a device image with its backing memory and, optionally, a view.
type Image struct {
	VKImage      vk.Image
	VKFormat     vk.Format
	Width        uint32
	Height       uint32
	DeviceMemory *DeviceMemory
	View         *ImageView
}

// ImageOptions describes an image created by CreateImage.
type ImageOptions struct {
	Width            uint32
	Height           uint32
	Format           vk.Format
	Tiling           vk.ImageTiling
	Usage            vk.ImageUsageFlags
	MemoryProperties vk.MemoryPropertyFlags
	CreateView       bool
	ViewAspect       vk.ImageAspectFlags
}

// CreateImage creates a 2D image, allocates and binds memory for it and,
// when requested, a view over it.
func CreateImage(ctx *Context, opts ImageOptions) (*Image, error) {
	var imageInfo = vk.ImageCreateInfo{}
	imageInfo.SType = vk.StructureTypeImageCreateInfo
	imageInfo.ImageType = vk.ImageType2d
	imageInfo.Extent.Width = opts.Width
	imageInfo.Extent.Height = opts.Height
	imageInfo.Extent.Depth = 1
	imageInfo.MipLevels = 1
	imageInfo.ArrayLayers = 1
	imageInfo.Format = opts.Format
	imageInfo.Tiling = opts.Tiling
	imageInfo.InitialLayout = vk.ImageLayoutUndefined
	imageInfo.Usage = opts.Usage
	imageInfo.Samples = vk.SampleCount1Bit
	imageInfo.SharingMode = vk.SharingModeExclusive

	image, res := ctx.Driver.CreateImage(ctx.VKDevice(), &imageInfo)
	if res != vk.Success {
		return nil, resultError("creating image", res)
	}
	ret := &Image{
		VKImage:  image,
		VKFormat: opts.Format,
		Width:    opts.Width,
		Height:   opts.Height,
	}

	req := ctx.Driver.GetImageMemoryRequirements(ctx.VKDevice(), image)
	mem, err := AllocateMemory(ctx, uint64(req.Size), req.MemoryTypeBits, opts.MemoryProperties)
	if err != nil {
		ret.Destroy(ctx)
		return nil, err
	}
	ret.DeviceMemory = mem

	if res := ctx.Driver.BindImageMemory(ctx.VKDevice(), image, mem.VKDeviceMemory, 0); res != vk.Success {
		ret.Destroy(ctx)
		return nil, resultError("binding image memory", res)
	}

	if opts.CreateView {
		view, err := CreateImageView(ctx, image, opts.Format, opts.ViewAspect)
		if err != nil {
			ret.Destroy(ctx)
			return nil, err
		}
		ret.View = view
	}
	return ret, nil
}

// Destroy releases the view, the memory and the image, in that order.
func (i *Image) Destroy(ctx *Context) {
	if i.View != nil {
		i.View.Destroy(ctx)
		i.View = nil
	}
	if i.DeviceMemory != nil {
		i.DeviceMemory.Destroy(ctx)
		i.DeviceMemory = nil
	}
	if i.VKImage != vk.NullImage {
		ctx.Driver.DestroyImage(ctx.VKDevice(), i.VKImage)
		i.VKImage = vk.NullImage
	}
}
