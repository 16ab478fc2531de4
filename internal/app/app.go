// Package app wires the window, the Vulkan context, the renderer and the scene
// together and runs the frame loop.
package app

import (
	"context"
	"os"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	log "github.com/sirupsen/logrus"

	"github.com/vkngwrapper/cubes/internal/config"
	"github.com/vkngwrapper/cubes/internal/gpu"
	"github.com/vkngwrapper/cubes/internal/gpu/vulkan"
	"github.com/vkngwrapper/cubes/internal/model"
	"github.com/vkngwrapper/cubes/internal/pipeline"
	"github.com/vkngwrapper/cubes/internal/renderer"
	"github.com/vkngwrapper/cubes/internal/scene"
	"github.com/vkngwrapper/cubes/internal/system"
	"github.com/vkngwrapper/cubes/internal/window"
)

const (
	vertexShader   = "simple.vert.spv"
	fragmentShader = "simple.frag.spv"

	sceneDepth   = 2.5
	objectScale  = 0.5
	objectSpread = 1.1
)

// Run opens the window and renders the configured scene until the window is
// closed or ctx is canceled. Everything it creates is released before it
// returns.
func Run(ctx context.Context, cfg config.Config, logger *log.Logger) error {
	poolSizing, err := renderer.ParsePoolSizing(cfg.Renderer.PoolSizing)
	if err != nil {
		return err
	}

	meshes, err := loadMeshes(ctx, cfg.Scene)
	if err != nil {
		return err
	}

	win, err := window.New(cfg.Window, logger)
	if err != nil {
		return err
	}
	defer win.Destroy()

	device, err := vulkan.New(win.SDL(), vulkan.Options{
		ApplicationName: cfg.Window.Title,
		Validation:      cfg.Vulkan.Validation,
		Logger:          logger,
	})
	if err != nil {
		return err
	}
	defer device.Destroy()

	if cfg.Vulkan.PipelineCache != "" {
		err = usePipelineCache(device, cfg.Vulkan.PipelineCache, logger)
		if err != nil {
			return err
		}
		defer func() {
			err := pipeline.SaveCache(cfg.Vulkan.PipelineCache, device)
			if err != nil {
				logger.WithError(err).Warn("pipeline cache not saved")
			}
		}()
	}

	var renderSystem *system.SimpleRenderSystem
	r, err := renderer.New(win, device, renderer.Options{
		FramesInFlight: cfg.Renderer.FramesInFlight,
		ForceFIFO:      cfg.Renderer.ForceFIFO,
		PoolSizing:     poolSizing,
		ClearColor:     cfg.Renderer.ClearColor,
		OnFormatChange: func(renderPass gpu.RenderPass) error {
			return renderSystem.Rebuild(renderPass)
		},
		Logger: logger,
	})
	if err != nil {
		return err
	}
	defer r.Close()

	renderSystem, err = system.New(device, r.RenderPass(), system.Config{
		Shaders:        os.DirFS(cfg.Vulkan.ShaderDir),
		VertexShader:   vertexShader,
		FragmentShader: fragmentShader,
		Logger:         logger,
	})
	if err != nil {
		return err
	}
	defer renderSystem.Destroy()

	world, models, err := buildScene(device, meshes)
	defer destroyModels(models)
	if err != nil {
		return err
	}

	// Runs first: nothing above may be destroyed while frames are in flight.
	defer func() {
		if err := device.WaitIdle(); err != nil {
			logger.WithError(err).Error("waiting for device idle on shutdown")
		}
	}()

	loop := &Loop{
		Platform:      win,
		Renderer:      r,
		System:        renderSystem,
		Scene:         world,
		Camera:        scene.NewCamera(),
		SpinSpeed:     cfg.Scene.SpinSpeed,
		StatsInterval: time.Duration(cfg.Scene.StatsInterval * float64(time.Second)),
		Logger:        logger,
	}

	logger.WithFields(log.Fields{
		"objects":     world.Len(),
		"pool_sizing": poolSizing,
	}).Info("entering main loop")

	return loop.Run(ctx)
}

func usePipelineCache(device *vulkan.Context, path string, logger log.FieldLogger) error {
	data, err := pipeline.LoadCache(path, device.Identity(), logger)
	if err != nil {
		return err
	}
	return device.UsePipelineCache(data)
}

// loadMeshes returns the built in cube followed by every configured OBJ mesh.
// Paths are relative to the working directory.
func loadMeshes(ctx context.Context, cfg config.SceneConfig) ([]model.Mesh, error) {
	sources := make([]model.MeshSource, 0, len(cfg.Meshes))
	for _, m := range cfg.Meshes {
		sources = append(sources, model.MeshSource{
			Path:  m.Path,
			Color: mgl32.Vec3(m.Color),
		})
	}

	loaded, err := model.LoadMeshes(ctx, os.DirFS("."), sources)
	if err != nil {
		return nil, err
	}

	return append([]model.Mesh{model.Cube(mgl32.Vec3{})}, loaded...), nil
}

// buildScene uploads every mesh and lays the objects out in a row in front of
// the camera. The returned models must be destroyed by the caller even when an
// error is returned.
func buildScene(resources gpu.Resources, meshes []model.Mesh) (*scene.Scene, []*model.Model, error) {
	world := scene.New()
	models := make([]*model.Model, 0, len(meshes))

	first := -objectSpread * float32(len(meshes)-1) / 2
	for i, mesh := range meshes {
		m, err := model.New(resources, mesh)
		if err != nil {
			return nil, models, err
		}
		models = append(models, m)

		transform := scene.Identity()
		transform.Translation = mgl32.Vec3{first + objectSpread*float32(i), 0, sceneDepth}
		transform.Scale = mgl32.Vec3{objectScale, objectScale, objectScale}

		world.Add(scene.Object{
			Model:     m,
			Transform: transform,
			Color:     mgl32.Vec3{1, 1, 1},
		})
	}

	return world, models, nil
}

func destroyModels(models []*model.Model) {
	for _, m := range models {
		m.Destroy()
	}
}
