package lai

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	vk "github.com/vulkan-go/vulkan"
)

func TestShaderModulePath(t *testing.T) {
	assert.Equal(t, "assets/shaders/Builtin.ObjectShader.vert.spv",
		ShaderModulePath("assets/shaders", BuiltinObjectShaderName, "vert"))
}

func TestLoadShaderStage(t *testing.T) {
	f := newFakeDriver(goodGPU("gpu"))
	ctx := newDeviceContext(t, f)
	dir := writeShaders(t)

	stage, err := LoadShaderStage(ctx, dir, BuiltinObjectShaderName, "vert", vk.ShaderStageVertexBit)
	require.NoError(t, err)
	assert.Equal(t, shaderPath(dir, "vert"), stage.Path)
	assert.Equal(t, 1, f.live["ShaderModule"])

	info := stage.VKPipelineShaderStageCreateInfo("main")
	assert.Equal(t, vk.ShaderStageVertexBit, info.Stage)
	assert.Equal(t, handleAddr(stage.VKShaderModule), handleAddr(info.Module))

	stage.Destroy(ctx)
	stage.Destroy(ctx)
	assert.Zero(t, f.live["ShaderModule"])
	assert.Equal(t, 1, f.calls["DestroyShaderModule"])
}

func TestLoadShaderStageErrors(t *testing.T) {
	f := newFakeDriver(goodGPU("gpu"))
	ctx := newDeviceContext(t, f)
	dir := t.TempDir()

	_, err := LoadShaderStage(ctx, dir, BuiltinObjectShaderName, "vert", vk.ShaderStageVertexBit)
	assert.ErrorIs(t, err, os.ErrNotExist)

	require.NoError(t, os.WriteFile(shaderPath(dir, "vert"), []byte{1, 2, 3, 4, 5, 6}, 0o644))
	_, err = LoadShaderStage(ctx, dir, BuiltinObjectShaderName, "vert", vk.ShaderStageVertexBit)
	assert.ErrorContains(t, err, "not a multiple of 4")

	require.NoError(t, os.WriteFile(shaderPath(dir, "vert"), nil, 0o644))
	_, err = LoadShaderStage(ctx, dir, BuiltinObjectShaderName, "vert", vk.ShaderStageVertexBit)
	assert.Error(t, err, "empty module")

	assert.Zero(t, f.calls["CreateShaderModule"])
}

func TestObjectShaderRebuild(t *testing.T) {
	f := newFakeDriver(goodGPU("gpu"))
	cfg := testConfig(t)
	b := newTestBackend(t, f, cfg)
	ctx := b.Context()
	shader := ctx.ObjectShader
	before := handleAddr(shader.Pipeline.VKPipeline)

	require.NoError(t, shader.Rebuild(ctx))
	assert.NotEqual(t, before, handleAddr(shader.Pipeline.VKPipeline))
	assert.Equal(t, 1, f.live["Pipeline"])
	assert.Equal(t, 2, f.live["ShaderModule"])

	b.Shutdown()
	assert.Empty(t, f.leaked())
}

func TestObjectShaderRebuildKeepsPipelineOnFailure(t *testing.T) {
	f := newFakeDriver(goodGPU("gpu"))
	cfg := testConfig(t)
	b := newTestBackend(t, f, cfg)
	ctx := b.Context()
	shader := ctx.ObjectShader
	before := handleAddr(shader.Pipeline.VKPipeline)

	require.NoError(t, os.Remove(shaderPath(cfg.ShaderDir, "frag")))
	assert.ErrorIs(t, shader.Rebuild(ctx), os.ErrNotExist)
	assert.Equal(t, before, handleAddr(shader.Pipeline.VKPipeline))
	assert.Equal(t, 2, f.live["ShaderModule"], "the loaded vertex stage is released")

	f.pipelineResult = vk.ErrorOutOfDeviceMemory
	writeStage(t, cfg.ShaderDir, "frag")
	assert.Error(t, shader.Rebuild(ctx))
	assert.Equal(t, before, handleAddr(shader.Pipeline.VKPipeline))
	assert.Equal(t, 1, f.live["Pipeline"])

	f.pipelineResult = vk.Success
	require.True(t, b.BeginFrame(0))
	require.True(t, b.EndFrame(0))

	b.Shutdown()
	assert.Empty(t, f.leaked())
}

func TestObjectShaderPaths(t *testing.T) {
	s := &ObjectShader{Name: BuiltinObjectShaderName, Dir: "shaders"}
	assert.Equal(t, []string{shaderPath("shaders", "vert"), shaderPath("shaders", "frag")}, s.Paths())
}

func TestFlippedViewport(t *testing.T) {
	v := flippedViewport(800, 600)
	assert.Equal(t, float32(600), v.Y)
	assert.Equal(t, float32(-600), v.Height)
	assert.Equal(t, float32(800), v.Width)
	assert.Equal(t, float32(1), v.MaxDepth)
}

func TestShaderWatcher(t *testing.T) {
	dir := writeShaders(t)
	s := &ObjectShader{Name: BuiltinObjectShaderName, Dir: dir}
	w, err := NewShaderWatcher(s.Paths())
	require.NoError(t, err)
	defer w.Close()

	assert.False(t, w.Changed())

	require.NoError(t, os.WriteFile(shaderPath(dir, "other"), []byte{0, 0, 0, 0}, 0o644))
	time.Sleep(50 * time.Millisecond)
	assert.False(t, w.Changed(), "unrelated files are ignored")

	writeStage(t, dir, "frag")
	require.Eventually(t, w.Changed, 5*time.Second, 10*time.Millisecond)
	assert.False(t, w.Changed(), "the flag is cleared once read")
}

func TestShaderHotReload(t *testing.T) {
	f := newFakeDriver(goodGPU("gpu"))
	cfg := testConfig(t)
	cfg.ShaderHotReload = true
	b := newTestBackend(t, f, cfg)
	ctx := b.Context()
	require.NotNil(t, ctx.shaderWatcher)
	before := ctx.ObjectShader.Pipeline.VKPipeline

	writeStage(t, cfg.ShaderDir, "vert")
	require.Eventually(t, func() bool {
		if b.BeginFrame(0) && !b.EndFrame(0) {
			return false
		}
		return ctx.ObjectShader.Pipeline.VKPipeline != before
	}, 5*time.Second, 10*time.Millisecond)

	b.Shutdown()
	assert.Nil(t, ctx.shaderWatcher)
	assert.Empty(t, f.leaked())
}

func writeStage(t *testing.T, dir, stage string) {
	t.Helper()
	require.NoError(t, os.WriteFile(shaderPath(dir, stage), []byte{0x03, 0x02, 0x23, 0x07}, 0o644))
}
