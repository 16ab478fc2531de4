package gpu

import (
	"github.com/google/uuid"
	"github.com/vkngwrapper/core/v3/core1_0"
)

type RenderPassBegin struct {
	RenderPass  RenderPass
	Framebuffer Framebuffer
	Extent      core1_0.Extent2D
	ClearColor  [4]float32
}

// CommandBuffer is a primary command buffer recorded by a single goroutine.
type CommandBuffer interface {
	Begin() error
	End() error

	BeginRenderPass(begin RenderPassBegin) error
	EndRenderPass()
	SetViewport(viewport core1_0.Viewport)
	SetScissor(scissor core1_0.Rect2D)

	BindPipeline(pipeline Pipeline)
	PushConstants(pipeline Pipeline, data []byte)
	BindVertexBuffer(buffer Buffer)
	BindIndexBuffer(buffer Buffer)
	Draw(vertexCount int)
	DrawIndexed(indexCount int)
}

type BufferUsage int

const (
	BufferUsageVertex BufferUsage = iota
	BufferUsageIndex
)

func (u BufferUsage) String() string {
	switch u {
	case BufferUsageVertex:
		return "vertex"
	case BufferUsageIndex:
		return "index"
	default:
		return "unknown"
	}
}

// Buffer is device local memory holding vertex or index data.
type Buffer interface {
	Size() int
	Destroy()
}

// Pipeline is a graphics pipeline together with its layout.
type Pipeline interface {
	Destroy()
}

type PipelineCreateInfo struct {
	VertexShader   []uint32
	FragmentShader []uint32
	RenderPass     RenderPass

	VertexBindings   []core1_0.VertexInputBindingDescription
	VertexAttributes []core1_0.VertexInputAttributeDescription

	Topology    core1_0.PrimitiveTopology
	PolygonMode core1_0.PolygonMode
	CullMode    core1_0.CullModeFlags
	FrontFace   core1_0.FrontFace
	LineWidth   float32

	// PushConstantSize is the size in bytes of the push constant block shared by
	// the vertex and fragment stages. Zero disables push constants.
	PushConstantSize int
}

// Identity identifies the physical device a pipeline cache was produced on.
type Identity struct {
	VendorID  uint32
	DeviceID  uint32
	CacheUUID uuid.UUID
}

// Resources is the draw-layer-facing half of the GPU context.
type Resources interface {
	CreateBuffer(usage BufferUsage, data []byte) (Buffer, error)
	CreateGraphicsPipeline(info PipelineCreateInfo) (Pipeline, error)

	Identity() Identity
	// PipelineCacheData returns the serialized pipeline cache, header included.
	PipelineCacheData() ([]byte, error)
}
