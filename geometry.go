package lai

import (
	"fmt"
	"log/slog"

	units "github.com/docker/go-units"
	vk "github.com/vulkan-go/vulkan"
)

// Geometry is one mesh living in the shared vertex and index buffers.
type Geometry struct {
	VertexRange *Allocation
	IndexRange  *Allocation
	VertexCount uint32
	IndexCount  uint32
	IndexType   vk.IndexType
}

// GeometryAllocator tracks which ranges of the shared vertex and index
// buffers are in use.
type GeometryAllocator struct {
	Vertices *LinearAllocator
	Indices  *LinearAllocator
}

// createGeometryBuffers creates the device local vertex and index buffers,
// each sized for Config.MaxGeometryVertices elements.
func createGeometryBuffers(ctx *Context) error {
	memFlags := vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit)
	copyFlags := vk.BufferUsageTransferDstBit | vk.BufferUsageTransferSrcBit

	vertexSize := uint64(vertex3DSize) * ctx.Config.MaxGeometryVertices
	vb, err := CreateBuffer(ctx, vertexSize, vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit|copyFlags), memFlags, true)
	if err != nil {
		return fmt.Errorf("creating vertex buffer: %w", err)
	}
	ctx.VertexBuffer = vb

	indexSize := uint64(4) * ctx.Config.MaxGeometryVertices
	ib, err := CreateBuffer(ctx, indexSize, vk.BufferUsageFlags(vk.BufferUsageIndexBufferBit|copyFlags), memFlags, true)
	if err != nil {
		return fmt.Errorf("creating index buffer: %w", err)
	}
	ctx.IndexBuffer = ib

	ctx.Geometry = &GeometryAllocator{
		Vertices: NewLinearAllocator(vertexSize),
		Indices:  NewLinearAllocator(indexSize),
	}
	slog.Info("geometry buffers created",
		"vertex", units.BytesSize(float64(vertexSize)),
		"index", units.BytesSize(float64(indexSize)))
	return nil
}

// Upload reserves ranges for vertices and indices and copies both into the
// context's buffers.
func (g *GeometryAllocator) Upload(ctx *Context, vertices VertexSource, indices IndexSource) (*Geometry, error) {
	vdata := vertices.Bytes()
	idata := indices.Bytes()

	vr := g.Vertices.Allocate(uint64(len(vdata)), uint64(vertex3DSize))
	if vr == nil {
		return nil, fmt.Errorf("no room for %d vertices: %w", vertices.Len(), ErrArenaExhausted)
	}
	ir := g.Indices.Allocate(uint64(len(idata)), 4)
	if ir == nil {
		g.Vertices.Free(vr)
		return nil, fmt.Errorf("no room for %d indices: %w", indices.Len(), ErrArenaExhausted)
	}

	geo := &Geometry{
		VertexRange: vr,
		IndexRange:  ir,
		VertexCount: uint32(vertices.Len()),
		IndexCount:  uint32(indices.Len()),
		IndexType:   indices.IndexType(),
	}

	d := ctx.Device
	if err := UploadDataRange(ctx, d.GraphicsCommandPool, d.GraphicsQueue, ctx.VertexBuffer, vr.Offset, vdata); err != nil {
		g.Free(geo)
		return nil, fmt.Errorf("uploading vertices: %w", err)
	}
	if err := UploadDataRange(ctx, d.GraphicsCommandPool, d.GraphicsQueue, ctx.IndexBuffer, ir.Offset, idata); err != nil {
		g.Free(geo)
		return nil, fmt.Errorf("uploading indices: %w", err)
	}
	return geo, nil
}

// Free returns the ranges of geo. The buffer contents are left as is.
func (g *GeometryAllocator) Free(geo *Geometry) {
	g.Vertices.Free(geo.VertexRange)
	g.Indices.Free(geo.IndexRange)
}

// Draw binds the ranges of geo and records one indexed draw.
func (geo *Geometry) Draw(ctx *Context, cb *CommandBuffer) {
	ctx.Driver.CmdBindVertexBuffers(cb.VKCommandBuffer,
		[]vk.Buffer{ctx.VertexBuffer.VKBuffer},
		[]vk.DeviceSize{vk.DeviceSize(geo.VertexRange.Offset)})
	ctx.Driver.CmdBindIndexBuffer(cb.VKCommandBuffer, ctx.IndexBuffer.VKBuffer, vk.DeviceSize(geo.IndexRange.Offset), geo.IndexType)
	ctx.Driver.CmdDrawIndexed(cb.VKCommandBuffer, geo.IndexCount, 1, 0, 0, 0)
}
