package lai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	lin "github.com/xlab/linmath"
)

func TestGeometryUpload(t *testing.T) {
	f := newFakeDriver(goodGPU("gpu"))
	b := newTestBackend(t, f, nil)
	defer b.Shutdown()
	ctx := b.Context()

	require.NotNil(t, ctx.Quad)
	assert.Equal(t, uint64(0), ctx.Quad.VertexRange.Offset)
	assert.Equal(t, uint32(6), ctx.Quad.IndexCount)
	assert.Equal(t, uint64(64*vertex3DSize), f.bufferSizes[ctx.VertexBuffer.VKBuffer])
	assert.Equal(t, uint64(64*4), f.bufferSizes[ctx.IndexBuffer.VKBuffer])

	copies := f.calls["CmdCopyBuffer"]
	tri := VertexSlice3D{
		{Position: lin.Vec3{-1, -1, 0}},
		{Position: lin.Vec3{1, -1, 0}},
		{Position: lin.Vec3{0, 1, 0}},
	}
	geo, err := ctx.Geometry.Upload(ctx, tri, IndexSliceUint32{0, 1, 2})
	require.NoError(t, err)
	assert.Equal(t, copies+2, f.calls["CmdCopyBuffer"])
	assert.Equal(t, ctx.Quad.VertexRange.End(), geo.VertexRange.Offset)
	assert.Equal(t, ctx.Quad.IndexRange.End(), geo.IndexRange.Offset)
	assert.Equal(t, uint32(3), geo.VertexCount)
	assert.Equal(t, 2, f.live["Buffer"], "staging buffers are released")

	ctx.Geometry.Free(geo)
	again, err := ctx.Geometry.Upload(ctx, tri, IndexSliceUint32{0, 1, 2})
	require.NoError(t, err)
	assert.Equal(t, geo.VertexRange.Offset, again.VertexRange.Offset, "freed ranges are reused")
}

func TestGeometryUploadExhausted(t *testing.T) {
	f := newFakeDriver(goodGPU("gpu"))
	b := newTestBackend(t, f, nil)
	defer b.Shutdown()
	ctx := b.Context()

	big := make(VertexSlice3D, 64)
	_, err := ctx.Geometry.Upload(ctx, big, IndexSliceUint32{0})
	assert.ErrorIs(t, err, ErrArenaExhausted)

	_, err = ctx.Geometry.Upload(ctx, VertexSlice3D{{}}, make(IndexSliceUint32, 64))
	assert.ErrorIs(t, err, ErrArenaExhausted)
	assert.Equal(t, uint64(4*vertex3DSize), ctx.Geometry.Vertices.Used(), "a failed upload releases its vertex range")
}

func TestGeometryDraw(t *testing.T) {
	f := newFakeDriver(goodGPU("gpu"))
	b := newTestBackend(t, f, nil)
	defer b.Shutdown()
	ctx := b.Context()

	cb := ctx.GraphicsCommandBuffers[0]
	ctx.Quad.Draw(ctx, cb)
	assert.Equal(t, 1, f.calls["CmdBindVertexBuffers"])
	assert.Equal(t, 1, f.calls["CmdBindIndexBuffer"])
	assert.Equal(t, []uint32{6}, f.draws)
}
