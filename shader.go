package lai

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	vk "github.com/vulkan-go/vulkan"
)

//go:generate glslc -fshader-stage=vert assets/shaders/Builtin.ObjectShader.vert.glsl -o assets/shaders/Builtin.ObjectShader.vert.spv
//go:generate glslc -fshader-stage=frag assets/shaders/Builtin.ObjectShader.frag.glsl -o assets/shaders/Builtin.ObjectShader.frag.spv

// BuiltinObjectShaderName is the program every object is drawn with.
const BuiltinObjectShaderName = "Builtin.ObjectShader"

// ShaderModulePath is where the compiled stage of the named program lives:
// <dir>/<name>.<stage>.spv.
func ShaderModulePath(dir, name, stage string) string {
	return filepath.Join(dir, fmt.Sprintf("%s.%s.spv", name, stage))
}

// ShaderStage is one compiled stage of a shader program.
type ShaderStage struct {
	Name           string
	Flag           vk.ShaderStageFlagBits
	Path           string
	VKShaderModule vk.ShaderModule
}

// LoadShaderStage reads the SPIR-V for stage of the named program from dir
// and creates its module.
func LoadShaderStage(ctx *Context, dir, name, stage string, flag vk.ShaderStageFlagBits) (*ShaderStage, error) {
	path := ShaderModulePath(dir, name, stage)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading shader module: %w", err)
	}
	if len(data) == 0 || len(data)%4 != 0 {
		return nil, fmt.Errorf("shader module %s: size %d is not a multiple of 4", path, len(data))
	}

	module, res := ctx.Driver.CreateShaderModule(ctx.VKDevice(), data)
	if res != vk.Success {
		return nil, resultError("creating shader module "+path, res)
	}
	return &ShaderStage{
		Name:           stage,
		Flag:           flag,
		Path:           path,
		VKShaderModule: module,
	}, nil
}

func (s *ShaderStage) VKPipelineShaderStageCreateInfo(entryPoint string) vk.PipelineShaderStageCreateInfo {
	var shaderStageCreateInfo = vk.PipelineShaderStageCreateInfo{}
	shaderStageCreateInfo.SType = vk.StructureTypePipelineShaderStageCreateInfo
	shaderStageCreateInfo.Stage = s.Flag
	shaderStageCreateInfo.Module = s.VKShaderModule
	shaderStageCreateInfo.PName = safeString(entryPoint)
	return shaderStageCreateInfo
}

func (s *ShaderStage) Destroy(ctx *Context) {
	if s.VKShaderModule != nil {
		ctx.Driver.DestroyShaderModule(ctx.VKDevice(), s.VKShaderModule)
		s.VKShaderModule = nil
	}
}

var objectShaderStages = []struct {
	name string
	flag vk.ShaderStageFlagBits
}{
	{"vert", vk.ShaderStageVertexBit},
	{"frag", vk.ShaderStageFragmentBit},
}

// ObjectShader is the vertex and fragment program objects are drawn with,
// along with its pipeline.
type ObjectShader struct {
	Name     string
	Dir      string
	Stages   []*ShaderStage
	Pipeline *Pipeline
}

// CreateObjectShader loads the builtin object program from the configured
// shader directory and builds its pipeline on the main render pass. A
// missing stage file fails the whole shader.
func CreateObjectShader(ctx *Context) (*ObjectShader, error) {
	s := &ObjectShader{
		Name: BuiltinObjectShaderName,
		Dir:  ctx.Config.ShaderDir,
	}
	stages, pipeline, err := s.build(ctx)
	if err != nil {
		return nil, err
	}
	s.Stages = stages
	s.Pipeline = pipeline
	return s, nil
}

func (s *ObjectShader) build(ctx *Context) ([]*ShaderStage, *Pipeline, error) {
	stages := make([]*ShaderStage, 0, len(objectShaderStages))
	destroyStages := func() {
		for _, st := range stages {
			st.Destroy(ctx)
		}
	}

	for _, st := range objectShaderStages {
		stage, err := LoadShaderStage(ctx, s.Dir, s.Name, st.name, st.flag)
		if err != nil {
			destroyStages()
			return nil, nil, fmt.Errorf("%s: %w", s.Name, err)
		}
		stages = append(stages, stage)
	}

	createInfos := make([]vk.PipelineShaderStageCreateInfo, len(stages))
	for i, st := range stages {
		createInfos[i] = st.VKPipelineShaderStageCreateInfo("main")
	}

	width := float32(ctx.FramebufferWidth)
	height := float32(ctx.FramebufferHeight)
	cfg := DefaultGraphicsPipelineConfig(ctx.Config.Wireframe).
		SetShaderStages(createInfos).
		AddVertexDescriptor(VertexSlice3D(nil)).
		SetViewport(flippedViewport(width, height), vk.Rect2D{
			Extent: vk.Extent2D{Width: ctx.FramebufferWidth, Height: ctx.FramebufferHeight},
		})

	pipeline, err := CreateGraphicsPipeline(ctx, ctx.MainRenderPass, cfg)
	if err != nil {
		destroyStages()
		return nil, nil, fmt.Errorf("%s: %w", s.Name, err)
	}
	return stages, pipeline, nil
}

// flippedViewport puts the origin at the bottom left so clip space Y points
// up.
func flippedViewport(width, height float32) vk.Viewport {
	return vk.Viewport{
		X:        0,
		Y:        height,
		Width:    width,
		Height:   -height,
		MinDepth: 0,
		MaxDepth: 1,
	}
}

// Use binds the shader's pipeline on cb.
func (s *ObjectShader) Use(ctx *Context, cb *CommandBuffer) {
	s.Pipeline.Bind(ctx, cb, vk.PipelineBindPointGraphics)
}

// Rebuild reloads the stage files and recreates the pipeline. When loading
// fails the current pipeline stays in use.
func (s *ObjectShader) Rebuild(ctx *Context) error {
	stages, pipeline, err := s.build(ctx)
	if err != nil {
		return err
	}
	if err := ctx.Device.WaitIdle(ctx); err != nil {
		pipeline.Destroy(ctx)
		for _, st := range stages {
			st.Destroy(ctx)
		}
		return err
	}
	s.destroy(ctx)
	s.Stages = stages
	s.Pipeline = pipeline
	slog.Info("shader rebuilt", "name", s.Name)
	return nil
}

// Paths lists the stage files the shader was loaded from.
func (s *ObjectShader) Paths() []string {
	paths := make([]string, 0, len(objectShaderStages))
	for _, st := range objectShaderStages {
		paths = append(paths, ShaderModulePath(s.Dir, s.Name, st.name))
	}
	return paths
}

func (s *ObjectShader) destroy(ctx *Context) {
	if s.Pipeline != nil {
		s.Pipeline.Destroy(ctx)
		s.Pipeline = nil
	}
	for _, st := range s.Stages {
		st.Destroy(ctx)
	}
	s.Stages = nil
}

func (s *ObjectShader) Destroy(ctx *Context) {
	s.destroy(ctx)
}
