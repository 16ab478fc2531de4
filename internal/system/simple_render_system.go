// Package system records the draw calls for the objects of a scene.
package system

import (
	"bytes"
	"encoding/binary"
	"io/fs"

	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"
	log "github.com/sirupsen/logrus"
	"github.com/vkngwrapper/core/v3/common"

	"github.com/vkngwrapper/cubes/internal/gpu"
	"github.com/vkngwrapper/cubes/internal/model"
	"github.com/vkngwrapper/cubes/internal/pipeline"
	"github.com/vkngwrapper/cubes/internal/scene"
)

// PushConstantData is the per-object block shared by both shader stages. The
// color is padded to a vec4 to keep the block a multiple of 16 bytes.
type PushConstantData struct {
	Transform mgl32.Mat4
	Color     mgl32.Vec4
}

// PushConstantSize is the size of PushConstantData in bytes.
const PushConstantSize = 64 + 16

type Config struct {
	Shaders        fs.FS
	VertexShader   string
	FragmentShader string

	Logger log.FieldLogger
}

// SimpleRenderSystem draws every object with one pipeline, pushing the object's
// transform and color before each draw.
type SimpleRenderSystem struct {
	resources gpu.Resources
	config    pipeline.Config
	log       log.FieldLogger

	vertexShader   []uint32
	fragmentShader []uint32

	pipeline gpu.Pipeline
}

func New(resources gpu.Resources, renderPass gpu.RenderPass, cfg Config) (*SimpleRenderSystem, error) {
	if cfg.Logger == nil {
		cfg.Logger = log.StandardLogger()
	}

	vert, err := pipeline.LoadShader(cfg.Shaders, cfg.VertexShader)
	if err != nil {
		return nil, err
	}
	frag, err := pipeline.LoadShader(cfg.Shaders, cfg.FragmentShader)
	if err != nil {
		return nil, err
	}

	config := pipeline.DefaultConfig()
	config.VertexBindings = model.BindingDescriptions()
	config.VertexAttributes = model.AttributeDescriptions()
	config.PushConstantSize = PushConstantSize

	s := &SimpleRenderSystem{
		resources:      resources,
		config:         config,
		log:            cfg.Logger.WithField("component", "simple render system"),
		vertexShader:   vert,
		fragmentShader: frag,
	}

	err = s.Rebuild(renderPass)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Rebuild replaces the pipeline with one built for renderPass. The device must
// be idle. The old pipeline is kept if the new one cannot be created.
func (s *SimpleRenderSystem) Rebuild(renderPass gpu.RenderPass) error {
	p, err := s.resources.CreateGraphicsPipeline(s.config.CreateInfo(s.vertexShader, s.fragmentShader, renderPass))
	if err != nil {
		return errors.Wrap(err, "create simple render pipeline")
	}

	if s.pipeline != nil {
		s.pipeline.Destroy()
		s.log.Debug("pipeline rebuilt")
	}
	s.pipeline = p
	return nil
}

// RenderObjects binds the pipeline and records one draw per object that has a
// model. It must be called inside a render pass.
func (s *SimpleRenderSystem) RenderObjects(cmd gpu.CommandBuffer, objects []*scene.Object, camera *scene.Camera) {
	cmd.BindPipeline(s.pipeline)

	projection := camera.Projection()
	for _, obj := range objects {
		if obj.Model == nil {
			continue
		}

		push := PushConstantData{
			Transform: projection.Mul4(obj.Transform.Matrix()),
			Color:     obj.Color.Vec4(1),
		}
		cmd.PushConstants(s.pipeline, push.Bytes())

		obj.Model.Bind(cmd)
		obj.Model.Draw(cmd)
	}
}

func (p PushConstantData) Bytes() []byte {
	buf := bytes.NewBuffer(make([]byte, 0, PushConstantSize))
	// Writing fixed size values into a bytes.Buffer cannot fail.
	_ = binary.Write(buf, common.ByteOrder, p)
	return buf.Bytes()
}

func (s *SimpleRenderSystem) Destroy() {
	if s.pipeline != nil {
		s.pipeline.Destroy()
		s.pipeline = nil
	}
}
