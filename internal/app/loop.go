package app

import (
	"context"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/loov/hrtime"
	log "github.com/sirupsen/logrus"

	"github.com/vkngwrapper/cubes/internal/renderer"
	"github.com/vkngwrapper/cubes/internal/scene"
	"github.com/vkngwrapper/cubes/internal/system"
	"github.com/vkngwrapper/cubes/internal/window"
)

// Platform is the window as seen by the frame loop.
type Platform interface {
	renderer.Surface
	// PollEvents drains pending events. Resizes are remembered by the
	// platform until ResetResized.
	PollEvents() window.Events
	ShouldClose() bool
}

const (
	fieldOfView = 50.0
	nearPlane   = 0.1
	farPlane    = 10.0
)

// Loop polls the platform, advances the scene and draws one frame per
// iteration until the platform asks to close.
type Loop struct {
	Platform Platform
	Renderer *renderer.Renderer
	System   *system.SimpleRenderSystem
	Scene    *scene.Scene
	Camera   *scene.Camera

	// SpinSpeed rotates every object about Y (and half as fast about X), in
	// radians per second.
	SpinSpeed float32
	// MaxFrames stops the loop after that many iterations. Zero runs until
	// the platform closes.
	MaxFrames int

	StatsInterval time.Duration
	Logger        log.FieldLogger
}

// Run returns nil when the platform reports a quit event, closes, or ctx is
// canceled, and the first fatal error otherwise. Resizes are left to the
// renderer, which reads them from the platform at the end of each frame.
func (l *Loop) Run(ctx context.Context) error {
	logger := l.Logger
	if logger == nil {
		logger = log.StandardLogger()
	}
	stats := newFrameStats(logger.WithField("component", "loop"), l.StatsInterval)

	last := hrtime.Now()
	for iteration := 0; l.MaxFrames == 0 || iteration < l.MaxFrames; iteration++ {
		if ctx.Err() != nil {
			return nil
		}

		events := l.Platform.PollEvents()
		if events.Quit || l.Platform.ShouldClose() {
			return nil
		}
		if events.Resized {
			logger.Debug("window resized")
		}

		now := hrtime.Now()
		delta := now - last
		last = now

		l.update(float32(delta.Seconds()))

		err := l.DrawFrame()
		if err != nil {
			return err
		}

		stats.Frame(now, delta, log.Fields{
			"recreations": l.Renderer.Recreations(),
		})
	}
	return nil
}

func (l *Loop) update(dt float32) {
	for _, obj := range l.Scene.Objects() {
		obj.Transform.Rotation = obj.Transform.Rotation.Add(mgl32.Vec3{0.5, 1, 0}.Mul(l.SpinSpeed * dt))
	}
}

// DrawFrame records and submits one frame. It does nothing when the renderer
// had to rebuild the swapchain instead of acquiring an image.
func (l *Loop) DrawFrame() error {
	cmd, err := l.Renderer.BeginFrame()
	if err != nil {
		return err
	}
	if cmd == nil {
		return nil
	}

	l.Camera.SetPerspectiveProjection(mgl32.DegToRad(fieldOfView), l.Renderer.AspectRatio(), nearPlane, farPlane)

	err = l.Renderer.BeginSwapchainRenderPass(cmd)
	if err != nil {
		return err
	}
	l.System.RenderObjects(cmd, l.Scene.Objects(), l.Camera)
	l.Renderer.EndSwapchainRenderPass(cmd)

	return l.Renderer.EndFrame()
}
