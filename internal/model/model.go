package model

import (
	"bytes"
	"encoding/binary"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/common"

	"github.com/vkngwrapper/cubes/internal/gpu"
)

// Model is a mesh uploaded to the GPU.
type Model struct {
	vertexBuffer gpu.Buffer
	indexBuffer  gpu.Buffer
	vertexCount  int
	indexCount   int
}

func New(resources gpu.Resources, mesh Mesh) (*Model, error) {
	err := mesh.Validate()
	if err != nil {
		return nil, err
	}

	m := &Model{
		vertexCount: len(mesh.Vertices),
		indexCount:  len(mesh.Indices),
	}

	m.vertexBuffer, err = resources.CreateBuffer(gpu.BufferUsageVertex, encode(mesh.Vertices))
	if err != nil {
		return nil, errors.Wrapf(err, "create vertex buffer for %s", mesh.Name)
	}

	if mesh.Indexed() {
		m.indexBuffer, err = resources.CreateBuffer(gpu.BufferUsageIndex, encode(mesh.Indices))
		if err != nil {
			m.Destroy()
			return nil, errors.Wrapf(err, "create index buffer for %s", mesh.Name)
		}
	}

	return m, nil
}

func encode(data any) []byte {
	buf := &bytes.Buffer{}
	// Writing fixed size values into a bytes.Buffer cannot fail.
	_ = binary.Write(buf, common.ByteOrder, data)
	return buf.Bytes()
}

func (m *Model) Bind(cmd gpu.CommandBuffer) {
	cmd.BindVertexBuffer(m.vertexBuffer)
	if m.indexBuffer != nil {
		cmd.BindIndexBuffer(m.indexBuffer)
	}
}

func (m *Model) Draw(cmd gpu.CommandBuffer) {
	if m.indexBuffer != nil {
		cmd.DrawIndexed(m.indexCount)
		return
	}
	cmd.Draw(m.vertexCount)
}

func (m *Model) VertexCount() int {
	return m.vertexCount
}

func (m *Model) IndexCount() int {
	return m.indexCount
}

func (m *Model) Destroy() {
	if m.indexBuffer != nil {
		m.indexBuffer.Destroy()
		m.indexBuffer = nil
	}
	if m.vertexBuffer != nil {
		m.vertexBuffer.Destroy()
		m.vertexBuffer = nil
	}
}
