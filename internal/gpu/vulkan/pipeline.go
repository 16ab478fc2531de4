package vulkan

import (
	"github.com/cockroachdb/errors"
	log "github.com/sirupsen/logrus"
	"github.com/vkngwrapper/core/v3/core1_0"

	"github.com/vkngwrapper/cubes/internal/gpu"
)

const pushConstantStages = core1_0.StageVertex | core1_0.StageFragment

type pipeline struct {
	ctx    *Context
	handle core1_0.Pipeline
	layout core1_0.PipelineLayout
}

func (p *pipeline) Destroy() {
	p.ctx.deviceDriver.DestroyPipeline(p.handle, nil)
	p.ctx.deviceDriver.DestroyPipelineLayout(p.layout, nil)
}

func (c *Context) CreateGraphicsPipeline(info gpu.PipelineCreateInfo) (gpu.Pipeline, error) {
	vertShader, _, err := c.deviceDriver.CreateShaderModule(nil, core1_0.ShaderModuleCreateInfo{
		Code: info.VertexShader,
	})
	if err != nil {
		return nil, errors.Wrap(err, "create vertex shader module")
	}
	defer c.deviceDriver.DestroyShaderModule(vertShader, nil)

	fragShader, _, err := c.deviceDriver.CreateShaderModule(nil, core1_0.ShaderModuleCreateInfo{
		Code: info.FragmentShader,
	})
	if err != nil {
		return nil, errors.Wrap(err, "create fragment shader module")
	}
	defer c.deviceDriver.DestroyShaderModule(fragShader, nil)

	var pushConstantRanges []core1_0.PushConstantRange
	if info.PushConstantSize > 0 {
		pushConstantRanges = append(pushConstantRanges, core1_0.PushConstantRange{
			StageFlags: pushConstantStages,
			Offset:     0,
			Size:       info.PushConstantSize,
		})
	}

	layout, _, err := c.deviceDriver.CreatePipelineLayout(nil, core1_0.PipelineLayoutCreateInfo{
		PushConstantRanges: pushConstantRanges,
	})
	if err != nil {
		return nil, errors.Wrap(err, "create pipeline layout")
	}

	vertexInput := &core1_0.PipelineVertexInputStateCreateInfo{
		VertexBindingDescriptions:   info.VertexBindings,
		VertexAttributeDescriptions: info.VertexAttributes,
	}

	inputAssembly := &core1_0.PipelineInputAssemblyStateCreateInfo{
		Topology:               info.Topology,
		PrimitiveRestartEnable: false,
	}

	vertStage := core1_0.PipelineShaderStageCreateInfo{
		Stage:  core1_0.StageVertex,
		Module: vertShader,
		Name:   "main",
	}

	fragStage := core1_0.PipelineShaderStageCreateInfo{
		Stage:  core1_0.StageFragment,
		Module: fragShader,
		Name:   "main",
	}

	// Viewport and scissor are set while recording; only the counts matter here.
	viewport := &core1_0.PipelineViewportStateCreateInfo{
		Viewports: []core1_0.Viewport{{}},
		Scissors:  []core1_0.Rect2D{{}},
	}

	rasterization := &core1_0.PipelineRasterizationStateCreateInfo{
		DepthClampEnable:        false,
		RasterizerDiscardEnable: false,

		PolygonMode: info.PolygonMode,
		CullMode:    info.CullMode,
		FrontFace:   info.FrontFace,

		DepthBiasEnable: false,

		LineWidth: info.LineWidth,
	}

	multisample := &core1_0.PipelineMultisampleStateCreateInfo{
		SampleShadingEnable:  false,
		RasterizationSamples: core1_0.Samples1,
		MinSampleShading:     1.0,
	}

	colorBlend := &core1_0.PipelineColorBlendStateCreateInfo{
		LogicOpEnabled: false,
		LogicOp:        core1_0.LogicOpCopy,

		BlendConstants: [4]float32{0, 0, 0, 0},
		Attachments: []core1_0.PipelineColorBlendAttachmentState{
			{
				BlendEnabled:   false,
				ColorWriteMask: core1_0.ColorComponentRed | core1_0.ColorComponentGreen | core1_0.ColorComponentBlue | core1_0.ColorComponentAlpha,
			},
		},
	}

	dynamic := &core1_0.PipelineDynamicStateCreateInfo{
		DynamicStates: []core1_0.DynamicState{
			core1_0.DynamicStateViewport,
			core1_0.DynamicStateScissor,
		},
	}

	var cache *core1_0.PipelineCache
	if c.pipelineCache.Initialized() {
		cache = &c.pipelineCache
	}

	pipelines, _, err := c.deviceDriver.CreateGraphicsPipelines(cache, nil,
		core1_0.GraphicsPipelineCreateInfo{
			Stages: []core1_0.PipelineShaderStageCreateInfo{
				vertStage,
				fragStage,
			},
			VertexInputState:   vertexInput,
			InputAssemblyState: inputAssembly,
			ViewportState:      viewport,
			RasterizationState: rasterization,
			MultisampleState:   multisample,
			ColorBlendState:    colorBlend,
			DynamicState:       dynamic,
			Layout:             layout,
			RenderPass:         info.RenderPass.(*renderPass).handle,
			Subpass:            0,
			BasePipelineIndex:  -1,
		},
	)
	if err != nil {
		c.deviceDriver.DestroyPipelineLayout(layout, nil)
		return nil, errors.Wrap(err, "create graphics pipeline")
	}

	return &pipeline{ctx: c, handle: pipelines[0], layout: layout}, nil
}

// UsePipelineCache creates the pipeline cache later pipelines are built
// through, seeded with initial. initial must already have been validated
// against Identity; nil starts an empty cache.
func (c *Context) UsePipelineCache(initial []byte) error {
	if c.pipelineCache.Initialized() {
		return errors.AssertionFailedf("pipeline cache already created")
	}

	cache, _, err := c.deviceDriver.CreatePipelineCache(nil, core1_0.PipelineCacheCreateInfo{
		InitialData: initial,
	})
	if err != nil {
		return errors.Wrap(err, "create pipeline cache")
	}
	c.pipelineCache = cache

	c.log.WithFields(log.Fields{
		"seeded": len(initial) > 0,
		"bytes":  len(initial),
	}).Debug("pipeline cache created")
	return nil
}

// PipelineCacheData is empty until UsePipelineCache has been called.
func (c *Context) PipelineCacheData() ([]byte, error) {
	if !c.pipelineCache.Initialized() {
		return nil, nil
	}

	data, _, err := c.deviceDriver.GetPipelineCacheData(c.pipelineCache)
	if err != nil {
		return nil, errors.Wrap(err, "read pipeline cache data")
	}
	return data, nil
}

func (c *Context) Identity() gpu.Identity {
	return gpu.Identity{
		VendorID:  c.properties.VendorID,
		DeviceID:  c.properties.DeviceID,
		CacheUUID: c.properties.PipelineCacheUUID,
	}
}
