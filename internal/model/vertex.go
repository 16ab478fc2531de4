// Package model holds vertex data on the CPU and uploads it to device local buffers.
package model

import (
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/vkngwrapper/core/v3/core1_0"
)

type Vertex struct {
	Position mgl32.Vec3
	Color    mgl32.Vec3
}

func BindingDescriptions() []core1_0.VertexInputBindingDescription {
	v := Vertex{}
	return []core1_0.VertexInputBindingDescription{
		{
			Binding:   0,
			Stride:    int(unsafe.Sizeof(v)),
			InputRate: core1_0.VertexInputRateVertex,
		},
	}
}

func AttributeDescriptions() []core1_0.VertexInputAttributeDescription {
	v := Vertex{}
	return []core1_0.VertexInputAttributeDescription{
		{
			Binding:  0,
			Location: 0,
			Format:   core1_0.FormatR32G32B32SignedFloat,
			Offset:   int(unsafe.Offsetof(v.Position)),
		},
		{
			Binding:  0,
			Location: 1,
			Format:   core1_0.FormatR32G32B32SignedFloat,
			Offset:   int(unsafe.Offsetof(v.Color)),
		},
	}
}

// Mesh is vertex data with optional indices. Without indices every three
// vertices form a triangle.
type Mesh struct {
	Name     string
	Vertices []Vertex
	Indices  []uint32
}

func (m Mesh) Indexed() bool {
	return len(m.Indices) > 0
}

func (m Mesh) Validate() error {
	if len(m.Vertices) < 3 {
		return errors.Newf("mesh %q has %d vertices, need at least 3", m.Name, len(m.Vertices))
	}
	if !m.Indexed() {
		return nil
	}

	if len(m.Indices)%3 != 0 {
		return errors.Newf("mesh %q has %d indices, not a multiple of 3", m.Name, len(m.Indices))
	}
	for i, index := range m.Indices {
		if int(index) >= len(m.Vertices) {
			return errors.Newf("mesh %q index %d refers to vertex %d of %d", m.Name, i, index, len(m.Vertices))
		}
	}
	return nil
}
