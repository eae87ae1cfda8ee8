package lai

import (
	vk "github.com/vulkan-go/vulkan"
)

// BufferObject is anything that can be uploaded to a GPU buffer as raw
// bytes.
type BufferObject interface {
	Bytes() []byte
}

// VertexDescriptor describes how one vertex buffer binding feeds the vertex
// shader.
type VertexDescriptor interface {
	BindingDescription() vk.VertexInputBindingDescription
	AttributeDescriptions() []vk.VertexInputAttributeDescription
}

type VertexSource interface {
	BufferObject
	VertexDescriptor
	// Len is the number of vertices.
	Len() int
}

type IndexSource interface {
	BufferObject
	IndexType() vk.IndexType
	Len() int
}
