package lai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	vk "github.com/vulkan-go/vulkan"
)

func TestDefaultGraphicsPipelineConfig(t *testing.T) {
	g := DefaultGraphicsPipelineConfig(false)
	assert.Equal(t, vk.PolygonModeFill, g.PolygonMode)
	assert.Equal(t, vk.CullModeBackBit, g.CullMode)
	assert.Equal(t, vk.FrontFaceCounterClockwise, g.FrontFace)
	assert.Equal(t, vk.CompareOpLess, g.DepthCompareOp)
	assert.True(t, g.DepthTestEnable)
	assert.True(t, g.DepthWriteEnable)
	assert.Equal(t, []vk.DynamicState{vk.DynamicStateViewport, vk.DynamicStateScissor, vk.DynamicStateLineWidth}, g.DynamicState)
	require.Len(t, g.BlendAttachments, 1)
	assert.Equal(t, vk.BlendFactorSrcAlpha, g.BlendAttachments[0].SrcColorBlendFactor)

	assert.Equal(t, vk.PolygonModeLine, DefaultGraphicsPipelineConfig(true).PolygonMode)
	assert.Equal(t, vk.CullModeNone, g.SetCullMode(vk.CullModeNone).CullMode)
}

func TestGraphicsPipelineCreateInfo(t *testing.T) {
	g := DefaultGraphicsPipelineConfig(true)
	_, err := g.VKGraphicsPipelineCreateInfo(nil, nil)
	assert.Error(t, err, "no shader stages")

	g.SetShaderStages(make([]vk.PipelineShaderStageCreateInfo, 2)).
		AddVertexDescriptor(VertexSlice3D(nil)).
		SetViewport(flippedViewport(800, 600), vk.Rect2D{Extent: vk.Extent2D{Width: 800, Height: 600}})

	info, err := g.VKGraphicsPipelineCreateInfo(nil, nil)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), info.StageCount)
	assert.Equal(t, vk.PolygonModeLine, info.PRasterizationState.PolygonMode)
	assert.Equal(t, vk.CullModeFlags(vk.CullModeBackBit), info.PRasterizationState.CullMode)
	assert.Equal(t, vk.Bool32(vk.True), info.PDepthStencilState.DepthTestEnable)
	assert.Equal(t, vk.Bool32(vk.False), info.PDepthStencilState.StencilTestEnable)
	assert.Equal(t, uint32(3), info.PDynamicState.DynamicStateCount)
	assert.Equal(t, uint32(1), info.PColorBlendState.AttachmentCount)
	assert.Equal(t, vk.SampleCount1Bit, info.PMultisampleState.RasterizationSamples)
	assert.Equal(t, int32(-1), info.BasePipelineIndex)

	require.Len(t, info.PVertexInputState.PVertexBindingDescriptions, 1)
	assert.Equal(t, uint32(vertex3DSize), info.PVertexInputState.PVertexBindingDescriptions[0].Stride)
	require.Len(t, info.PVertexInputState.PVertexAttributeDescriptions, 1)
	assert.Equal(t, vk.FormatR32g32b32Sfloat, info.PVertexInputState.PVertexAttributeDescriptions[0].Format)
	assert.Equal(t, float32(-600), info.PViewportState.PViewports[0].Height)
}

func TestCreateGraphicsPipelineFailure(t *testing.T) {
	f := newFakeDriver(goodGPU("gpu"))
	ctx := newDeviceContext(t, f)
	rp := &RenderPass{}

	g := DefaultGraphicsPipelineConfig(false)
	_, err := CreateGraphicsPipeline(ctx, rp, g)
	assert.Error(t, err)
	assert.Zero(t, f.live["PipelineLayout"], "the layout is released when the config is incomplete")

	g.SetShaderStages(make([]vk.PipelineShaderStageCreateInfo, 2))
	f.pipelineResult = vk.ErrorOutOfHostMemory
	_, err = CreateGraphicsPipeline(ctx, rp, g)
	assert.Error(t, err)
	assert.Zero(t, f.live["PipelineLayout"])
	assert.Zero(t, f.live["Pipeline"])

	f.pipelineResult = vk.Success
	p, err := CreateGraphicsPipeline(ctx, rp, g)
	require.NoError(t, err)
	p.Destroy(ctx)
	p.Destroy(ctx)
	assert.Zero(t, f.live["Pipeline"])
	assert.Zero(t, f.live["PipelineLayout"])
}
