package lai

import (
	"log/slog"

	vk "github.com/vulkan-go/vulkan"
)

// Pipeline is a graphics pipeline and the layout it was created with.
type Pipeline struct {
	VKPipeline       vk.Pipeline
	VKPipelineLayout vk.PipelineLayout
}

// CreateGraphicsPipeline creates the layout and pipeline described by cfg
// for subpass 0 of renderPass.
func CreateGraphicsPipeline(ctx *Context, renderPass *RenderPass, cfg *GraphicsPipelineConfig) (*Pipeline, error) {
	var pipelineLayoutCreateInfo = vk.PipelineLayoutCreateInfo{}
	pipelineLayoutCreateInfo.SType = vk.StructureTypePipelineLayoutCreateInfo
	pipelineLayoutCreateInfo.PushConstantRangeCount = uint32(len(cfg.PushConstantRanges))
	pipelineLayoutCreateInfo.PPushConstantRanges = cfg.PushConstantRanges

	layout, res := ctx.Driver.CreatePipelineLayout(ctx.VKDevice(), &pipelineLayoutCreateInfo)
	if res != vk.Success {
		return nil, resultError("creating pipeline layout", res)
	}
	p := &Pipeline{VKPipelineLayout: layout}

	info, err := cfg.VKGraphicsPipelineCreateInfo(layout, renderPass.VKRenderPass)
	if err != nil {
		p.Destroy(ctx)
		return nil, err
	}

	pipeline, res := ctx.Driver.CreateGraphicsPipeline(ctx.VKDevice(), &info)
	if res != vk.Success {
		p.Destroy(ctx)
		return nil, resultError("creating graphics pipeline", res)
	}
	p.VKPipeline = pipeline

	slog.Debug("graphics pipeline created", "stages", len(cfg.ShaderStages), "polygon_mode", cfg.PolygonMode)
	return p, nil
}

func (p *Pipeline) Bind(ctx *Context, cb *CommandBuffer, bindPoint vk.PipelineBindPoint) {
	ctx.Driver.CmdBindPipeline(cb.VKCommandBuffer, bindPoint, p.VKPipeline)
}

func (p *Pipeline) Destroy(ctx *Context) {
	if p.VKPipeline != nil {
		ctx.Driver.DestroyPipeline(ctx.VKDevice(), p.VKPipeline)
		p.VKPipeline = nil
	}
	if p.VKPipelineLayout != nil {
		ctx.Driver.DestroyPipelineLayout(ctx.VKDevice(), p.VKPipelineLayout)
		p.VKPipelineLayout = nil
	}
}
