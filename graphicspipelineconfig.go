package lai

import (
	"errors"

	vk "github.com/vulkan-go/vulkan"
)

// GraphicsPipelineConfig carries the fixed function state of a graphics
// pipeline. Start from DefaultGraphicsPipelineConfig and chain the setters.
type GraphicsPipelineConfig struct {
	ShaderStages []vk.PipelineShaderStageCreateInfo

	PrimitiveTopology      vk.PrimitiveTopology
	PrimitiveRestartEnable vk.Bool32

	// PolygonMode is LINE in wireframe mode, FILL otherwise.
	PolygonMode vk.PolygonMode

	// LineWidth of rasterized lines, defaults to 1.0. Ignored when the line
	// width is dynamic.
	LineWidth float32

	CullMode  vk.CullModeFlagBits
	FrontFace vk.FrontFace

	// DynamicState lists the state recorded into command buffers instead
	// of baked into the pipeline.
	DynamicState []vk.DynamicState

	// BlendAttachments has one entry per color attachment. When empty a
	// single opaque attachment is used.
	BlendAttachments []vk.PipelineColorBlendAttachmentState

	DepthTestEnable  bool
	DepthWriteEnable bool
	DepthCompareOp   vk.CompareOp

	VertexInputBindingDescriptions   []vk.VertexInputBindingDescription
	VertexInputAttributeDescriptions []vk.VertexInputAttributeDescription

	PushConstantRanges []vk.PushConstantRange

	// Viewport and Scissor are the initial values; with dynamic viewport and
	// scissor they are overwritten every frame.
	Viewport vk.Viewport
	Scissor  vk.Rect2D
}

// AlphaBlendAttachment blends color and alpha with SRC_ALPHA and
// ONE_MINUS_SRC_ALPHA.
func AlphaBlendAttachment() vk.PipelineColorBlendAttachmentState {
	return vk.PipelineColorBlendAttachmentState{
		BlendEnable:         vk.True,
		SrcColorBlendFactor: vk.BlendFactorSrcAlpha,
		DstColorBlendFactor: vk.BlendFactorOneMinusSrcAlpha,
		ColorBlendOp:        vk.BlendOpAdd,
		SrcAlphaBlendFactor: vk.BlendFactorSrcAlpha,
		DstAlphaBlendFactor: vk.BlendFactorOneMinusSrcAlpha,
		AlphaBlendOp:        vk.BlendOpAdd,
		ColorWriteMask:      allColorComponents,
	}
}

// DefaultGraphicsPipelineConfig returns the object pipeline state: counter
// clockwise front faces with back face culling, alpha blending, depth test
// and write with LESS, no stencil, one sample, and viewport, scissor and
// line width left dynamic.
func DefaultGraphicsPipelineConfig(wireframe bool) *GraphicsPipelineConfig {
	g := &GraphicsPipelineConfig{
		PrimitiveTopology:      vk.PrimitiveTopologyTriangleList,
		PrimitiveRestartEnable: vk.False,
		PolygonMode:            vk.PolygonModeFill,
		LineWidth:              1.0,
		CullMode:               vk.CullModeBackBit,
		FrontFace:              vk.FrontFaceCounterClockwise,
		DepthTestEnable:        true,
		DepthWriteEnable:       true,
		DepthCompareOp:         vk.CompareOpLess,
	}
	if wireframe {
		g.PolygonMode = vk.PolygonModeLine
	}
	g.AddBlendAttachment(AlphaBlendAttachment())
	g.SetDynamicState(vk.DynamicStateViewport, vk.DynamicStateScissor, vk.DynamicStateLineWidth)
	return g
}

func (g *GraphicsPipelineConfig) AddBlendAttachment(ba vk.PipelineColorBlendAttachmentState) *GraphicsPipelineConfig {
	g.BlendAttachments = append(g.BlendAttachments, ba)
	return g
}

func (g *GraphicsPipelineConfig) SetCullMode(mode vk.CullModeFlagBits) *GraphicsPipelineConfig {
	g.CullMode = mode
	return g
}

// SetDynamicState replaces the dynamic state list.
func (g *GraphicsPipelineConfig) SetDynamicState(states ...vk.DynamicState) *GraphicsPipelineConfig {
	g.DynamicState = states
	return g
}

func (g *GraphicsPipelineConfig) SetShaderStages(shaderStages []vk.PipelineShaderStageCreateInfo) *GraphicsPipelineConfig {
	g.ShaderStages = shaderStages
	return g
}

// SetViewport sets the viewport and scissor the pipeline is created with.
func (g *GraphicsPipelineConfig) SetViewport(viewport vk.Viewport, scissor vk.Rect2D) *GraphicsPipelineConfig {
	g.Viewport = viewport
	g.Scissor = scissor
	return g
}

// AddVertexDescriptor appends the binding and attributes of v.
func (g *GraphicsPipelineConfig) AddVertexDescriptor(v VertexDescriptor) *GraphicsPipelineConfig {
	g.VertexInputBindingDescriptions = append(g.VertexInputBindingDescriptions, v.BindingDescription())
	g.VertexInputAttributeDescriptions = append(g.VertexInputAttributeDescriptions, v.AttributeDescriptions()...)
	return g
}

// allColorComponents writes every channel.
const allColorComponents = vk.ColorComponentFlags(vk.ColorComponentRBit | vk.ColorComponentGBit |
	vk.ColorComponentBBit | vk.ColorComponentABit)

func (g *GraphicsPipelineConfig) vertexInput() *vk.PipelineVertexInputStateCreateInfo {
	return &vk.PipelineVertexInputStateCreateInfo{
		SType:                           vk.StructureTypePipelineVertexInputStateCreateInfo,
		VertexBindingDescriptionCount:   uint32(len(g.VertexInputBindingDescriptions)),
		PVertexBindingDescriptions:      g.VertexInputBindingDescriptions,
		VertexAttributeDescriptionCount: uint32(len(g.VertexInputAttributeDescriptions)),
		PVertexAttributeDescriptions:    g.VertexInputAttributeDescriptions,
	}
}

func (g *GraphicsPipelineConfig) rasterization() *vk.PipelineRasterizationStateCreateInfo {
	return &vk.PipelineRasterizationStateCreateInfo{
		SType:                   vk.StructureTypePipelineRasterizationStateCreateInfo,
		DepthClampEnable:        vk.False,
		RasterizerDiscardEnable: vk.False,
		PolygonMode:             g.PolygonMode,
		LineWidth:               g.LineWidth,
		CullMode:                vk.CullModeFlags(g.CullMode),
		FrontFace:               g.FrontFace,
		DepthBiasEnable:         vk.False,
	}
}

func (g *GraphicsPipelineConfig) colorBlend() *vk.PipelineColorBlendStateCreateInfo {
	attachments := g.BlendAttachments
	if len(attachments) == 0 {
		attachments = []vk.PipelineColorBlendAttachmentState{{
			BlendEnable:    vk.False,
			ColorWriteMask: allColorComponents,
		}}
	}
	return &vk.PipelineColorBlendStateCreateInfo{
		SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
		LogicOpEnable:   vk.False,
		LogicOp:         vk.LogicOpCopy,
		AttachmentCount: uint32(len(attachments)),
		PAttachments:    attachments,
	}
}

func (g *GraphicsPipelineConfig) depthStencil() *vk.PipelineDepthStencilStateCreateInfo {
	return &vk.PipelineDepthStencilStateCreateInfo{
		SType:            vk.StructureTypePipelineDepthStencilStateCreateInfo,
		DepthTestEnable:  boolToVk(g.DepthTestEnable),
		DepthWriteEnable: boolToVk(g.DepthWriteEnable),
		DepthCompareOp:   g.DepthCompareOp,
		MaxDepthBounds:   1,
	}
}

// VKGraphicsPipelineCreateInfo assembles the create info for subpass 0 of
// renderPass. Single sampled, no stencil test.
func (g *GraphicsPipelineConfig) VKGraphicsPipelineCreateInfo(layout vk.PipelineLayout, renderPass vk.RenderPass) (vk.GraphicsPipelineCreateInfo, error) {
	if len(g.ShaderStages) == 0 {
		return vk.GraphicsPipelineCreateInfo{}, errors.New("graphics pipeline has no shader stages")
	}

	return vk.GraphicsPipelineCreateInfo{
		SType:             vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount:        uint32(len(g.ShaderStages)),
		PStages:           g.ShaderStages,
		PVertexInputState: g.vertexInput(),
		PInputAssemblyState: &vk.PipelineInputAssemblyStateCreateInfo{
			SType:                  vk.StructureTypePipelineInputAssemblyStateCreateInfo,
			Topology:               g.PrimitiveTopology,
			PrimitiveRestartEnable: g.PrimitiveRestartEnable,
		},
		PViewportState: &vk.PipelineViewportStateCreateInfo{
			SType:         vk.StructureTypePipelineViewportStateCreateInfo,
			ViewportCount: 1,
			PViewports:    []vk.Viewport{g.Viewport},
			ScissorCount:  1,
			PScissors:     []vk.Rect2D{g.Scissor},
		},
		PRasterizationState: g.rasterization(),
		PMultisampleState: &vk.PipelineMultisampleStateCreateInfo{
			SType:                vk.StructureTypePipelineMultisampleStateCreateInfo,
			RasterizationSamples: vk.SampleCount1Bit,
			MinSampleShading:     1,
		},
		PDepthStencilState: g.depthStencil(),
		PColorBlendState:   g.colorBlend(),
		PDynamicState: &vk.PipelineDynamicStateCreateInfo{
			SType:             vk.StructureTypePipelineDynamicStateCreateInfo,
			DynamicStateCount: uint32(len(g.DynamicState)),
			PDynamicStates:    g.DynamicState,
		},
		Layout:            layout,
		RenderPass:        renderPass,
		BasePipelineIndex: -1,
	}, nil
}

func boolToVk(b bool) vk.Bool32 {
	if b {
		return vk.True
	}
	return vk.False
}
