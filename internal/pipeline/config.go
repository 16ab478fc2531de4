// Package pipeline holds the fixed-function configuration, shader loading and
// pipeline cache persistence used to build graphics pipelines.
package pipeline

import (
	"github.com/vkngwrapper/core/v3/core1_0"

	"github.com/vkngwrapper/cubes/internal/gpu"
)

// Config is everything about a graphics pipeline except its shaders and render pass.
type Config struct {
	VertexBindings   []core1_0.VertexInputBindingDescription
	VertexAttributes []core1_0.VertexInputAttributeDescription

	Topology    core1_0.PrimitiveTopology
	PolygonMode core1_0.PolygonMode
	CullMode    core1_0.CullModeFlags
	FrontFace   core1_0.FrontFace
	LineWidth   float32

	PushConstantSize int
}

// DefaultConfig draws filled triangle lists with back faces culled and
// clockwise winding as front facing. Viewport and scissor are dynamic.
func DefaultConfig() Config {
	return Config{
		Topology:    core1_0.PrimitiveTopologyTriangleList,
		PolygonMode: core1_0.PolygonModeFill,
		CullMode:    core1_0.CullModeBack,
		FrontFace:   core1_0.FrontFaceClockwise,
		LineWidth:   1.0,
	}
}

func (c Config) CreateInfo(vertexShader, fragmentShader []uint32, renderPass gpu.RenderPass) gpu.PipelineCreateInfo {
	return gpu.PipelineCreateInfo{
		VertexShader:     vertexShader,
		FragmentShader:   fragmentShader,
		RenderPass:       renderPass,
		VertexBindings:   c.VertexBindings,
		VertexAttributes: c.VertexAttributes,
		Topology:         c.Topology,
		PolygonMode:      c.PolygonMode,
		CullMode:         c.CullMode,
		FrontFace:        c.FrontFace,
		LineWidth:        c.LineWidth,
		PushConstantSize: c.PushConstantSize,
	}
}
