package lai

import (
	"unsafe"

	vk "github.com/vulkan-go/vulkan"
	lin "github.com/xlab/linmath"
)

// Vertex3D is the vertex layout of the object shader: a position only.
type Vertex3D struct {
	Position lin.Vec3
}

const vertex3DSize = int(unsafe.Sizeof(Vertex3D{}))

type VertexSlice3D []Vertex3D

func (v VertexSlice3D) Bytes() []byte {
	if len(v) == 0 {
		return nil
	}
	return toBytes(unsafe.Pointer(&v[0]), len(v)*vertex3DSize)
}

func (v VertexSlice3D) Len() int {
	return len(v)
}

func (v VertexSlice3D) BindingDescription() vk.VertexInputBindingDescription {
	return vk.VertexInputBindingDescription{
		Binding:   0,
		Stride:    uint32(vertex3DSize),
		InputRate: vk.VertexInputRateVertex,
	}
}

func (v VertexSlice3D) AttributeDescriptions() []vk.VertexInputAttributeDescription {
	return []vk.VertexInputAttributeDescription{{
		Binding:  0,
		Location: 0,
		Format:   vk.FormatR32g32b32Sfloat,
		Offset:   0,
	}}
}

type IndexSliceUint32 []uint32

func (i IndexSliceUint32) Bytes() []byte {
	if len(i) == 0 {
		return nil
	}
	return toBytes(unsafe.Pointer(&i[0]), len(i)*int(unsafe.Sizeof(uint32(1))))
}

func (i IndexSliceUint32) IndexType() vk.IndexType {
	return vk.IndexTypeUint32
}

func (i IndexSliceUint32) Len() int {
	return len(i)
}

// QuadVertices and QuadIndices are the geometry uploaded at startup to
// exercise the pipeline end to end.
var (
	QuadVertices = VertexSlice3D{
		{Position: lin.Vec3{0, -0.5, 0}},
		{Position: lin.Vec3{0.5, 0.5, 0}},
		{Position: lin.Vec3{0, 0.5, 0}},
		{Position: lin.Vec3{0.5, -0.5, 0}},
	}
	QuadIndices = IndexSliceUint32{0, 1, 2, 0, 3, 1}
)
