package app

import (
	"bytes"
	"context"
	"encoding/binary"
	"testing"
	"testing/fstest"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"
	log "github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/core/v3/common"

	"github.com/vkngwrapper/cubes/internal/gpu"
	"github.com/vkngwrapper/cubes/internal/gpu/gputest"
	"github.com/vkngwrapper/cubes/internal/model"
	"github.com/vkngwrapper/cubes/internal/renderer"
	"github.com/vkngwrapper/cubes/internal/scene"
	"github.com/vkngwrapper/cubes/internal/system"
	"github.com/vkngwrapper/cubes/internal/window"
)

type fakePlatform struct {
	*gputest.Surface

	// events are returned by successive polls, then empty Events.
	events     []window.Events
	closeAfter int
	polled     int
}

func (p *fakePlatform) PollEvents() window.Events {
	p.polled++
	if p.polled <= len(p.events) {
		return p.events[p.polled-1]
	}
	return window.Events{}
}

func (p *fakePlatform) ShouldClose() bool {
	return p.closeAfter > 0 && p.polled > p.closeAfter
}

func shaders() fstest.MapFS {
	spirv := func(words ...uint32) []byte {
		buf := &bytes.Buffer{}
		_ = binary.Write(buf, common.ByteOrder, append([]uint32{0x07230203}, words...))
		return buf.Bytes()
	}
	return fstest.MapFS{
		vertexShader:   {Data: spirv(1, 2)},
		fragmentShader: {Data: spirv(3)},
	}
}

func newLoop(t *testing.T, dev *gputest.Device, platform *fakePlatform) *Loop {
	logger, _ := logtest.NewNullLogger()

	r, err := renderer.New(platform, dev, renderer.Options{FramesInFlight: 2, Logger: logger})
	require.NoError(t, err)
	t.Cleanup(r.Close)

	renderSystem, err := system.New(dev, r.RenderPass(), system.Config{
		Shaders:        shaders(),
		VertexShader:   vertexShader,
		FragmentShader: fragmentShader,
		Logger:         logger,
	})
	require.NoError(t, err)
	t.Cleanup(renderSystem.Destroy)

	world, models, err := buildScene(dev, []model.Mesh{model.Cube(mgl32.Vec3{}), model.Triangle()})
	t.Cleanup(func() { destroyModels(models) })
	require.NoError(t, err)

	return &Loop{
		Platform:  platform,
		Renderer:  r,
		System:    renderSystem,
		Scene:     world,
		Camera:    scene.NewCamera(),
		SpinSpeed: 1,
		Logger:    logger,
	}
}

func lastSubmitted(t *testing.T, dev *gputest.Device) *gputest.CommandBuffer {
	require.NotEmpty(t, dev.Submits)
	return dev.Submits[len(dev.Submits)-1].CommandBuffer.(*gputest.CommandBuffer)
}

func TestRunDrawsUntilClosed(t *testing.T) {
	dev := gputest.NewDevice(800, 600)
	platform := &fakePlatform{Surface: gputest.NewSurface(800, 600), closeAfter: 3}
	loop := newLoop(t, dev, platform)

	require.NoError(t, loop.Run(context.Background()))

	assert.Len(t, dev.PresentInfos, 3)
	assert.Len(t, dev.Submits, 3)
	assert.Equal(t, 4, platform.polled)

	cmd := lastSubmitted(t, dev)
	require.GreaterOrEqual(t, len(cmd.Commands), 4)
	assert.Equal(t, []string{
		"BeginRenderPass 800x600",
		"SetViewport 800x600",
		"SetScissor 800x600",
	}, cmd.Commands[:3])
	assert.Equal(t, "EndRenderPass", cmd.Commands[len(cmd.Commands)-1])
	assert.Contains(t, cmd.Commands, "DrawIndexed 36")
	assert.Contains(t, cmd.Commands, "Draw 3")

	// The pushed matrix reflects the camera and the object as of the last frame.
	require.Len(t, cmd.Pushes, 2)
	var push system.PushConstantData
	require.NoError(t, binary.Read(bytes.NewReader(cmd.Pushes[0]), common.ByteOrder, &push))
	expected := loop.Camera.Projection().Mul4(loop.Scene.Objects()[0].Transform.Matrix())
	assert.True(t, expected.ApproxEqualThreshold(push.Transform, 1e-5))
	assert.Equal(t, mgl32.Vec4{1, 1, 1, 1}, push.Color)
}

func TestRunStopsOnQuitEvent(t *testing.T) {
	dev := gputest.NewDevice(800, 600)
	platform := &fakePlatform{
		Surface: gputest.NewSurface(800, 600),
		events:  []window.Events{{}, {Resized: true}, {Quit: true}},
	}
	loop := newLoop(t, dev, platform)
	loop.MaxFrames = 10

	logger, hook := logtest.NewNullLogger()
	logger.SetLevel(log.DebugLevel)
	loop.Logger = logger

	require.NoError(t, loop.Run(context.Background()))

	assert.Equal(t, 3, platform.polled)
	assert.Len(t, dev.PresentInfos, 2)

	var resized int
	for _, entry := range hook.AllEntries() {
		if entry.Message == "window resized" {
			resized++
		}
	}
	assert.Equal(t, 1, resized)
}

func TestRunStopsAfterMaxFrames(t *testing.T) {
	dev := gputest.NewDevice(800, 600)
	loop := newLoop(t, dev, &fakePlatform{Surface: gputest.NewSurface(800, 600)})
	loop.MaxFrames = 5

	require.NoError(t, loop.Run(context.Background()))
	assert.Len(t, dev.PresentInfos, 5)
}

func TestRunStopsWhenCanceled(t *testing.T) {
	dev := gputest.NewDevice(800, 600)
	platform := &fakePlatform{Surface: gputest.NewSurface(800, 600)}
	loop := newLoop(t, dev, platform)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, loop.Run(ctx))
	assert.Empty(t, dev.PresentInfos)
	assert.Zero(t, platform.polled)
}

func TestRunSkipsFrameAfterOutOfDateAcquire(t *testing.T) {
	dev := gputest.NewDevice(800, 600)
	loop := newLoop(t, dev, &fakePlatform{Surface: gputest.NewSurface(800, 600)})
	loop.MaxFrames = 3

	dev.Acquires = []gputest.Acquire{{Status: gpu.StatusOutOfDate}}

	require.NoError(t, loop.Run(context.Background()))
	assert.Len(t, dev.PresentInfos, 2)
	assert.Len(t, dev.Swapchains, 2)
	assert.Equal(t, 1, loop.Renderer.Recreations())
}

func TestRunReturnsFrameErrors(t *testing.T) {
	dev := gputest.NewDevice(800, 600)
	loop := newLoop(t, dev, &fakePlatform{Surface: gputest.NewSurface(800, 600)})
	loop.MaxFrames = 3

	lost := errors.New("device lost")
	dev.Acquires = []gputest.Acquire{{Index: 0}, {Err: lost}}

	err := loop.Run(context.Background())
	assert.True(t, errors.Is(err, lost))
	assert.Len(t, dev.PresentInfos, 1)
	assert.False(t, loop.Renderer.IsFrameInProgress())
}

func TestUpdateSpinsObjects(t *testing.T) {
	dev := gputest.NewDevice(800, 600)
	loop := newLoop(t, dev, &fakePlatform{Surface: gputest.NewSurface(800, 600)})
	loop.SpinSpeed = 0.5

	loop.update(2)
	loop.update(2)

	for _, obj := range loop.Scene.Objects() {
		assert.Equal(t, mgl32.Vec3{1, 2, 0}, obj.Transform.Rotation)
	}
}

func TestBuildScene(t *testing.T) {
	dev := gputest.NewDevice(800, 600)

	world, models, err := buildScene(dev, []model.Mesh{model.Cube(mgl32.Vec3{}), model.Triangle()})
	require.NoError(t, err)
	require.Len(t, models, 2)
	require.Equal(t, 2, world.Len())

	objects := world.Objects()
	assert.NotEqual(t, objects[0].ID, objects[1].ID)
	assert.InDelta(t, -0.55, objects[0].Transform.Translation.X(), 1e-6)
	assert.InDelta(t, 0.55, objects[1].Transform.Translation.X(), 1e-6)
	for _, obj := range objects {
		assert.Equal(t, float32(sceneDepth), obj.Transform.Translation.Z())
		assert.Equal(t, mgl32.Vec3{objectScale, objectScale, objectScale}, obj.Transform.Scale)
	}

	destroyModels(models)
	assert.Zero(t, dev.Live()["buffer"])
}

func TestBuildSceneReturnsUploadedModelsOnError(t *testing.T) {
	dev := gputest.NewDevice(800, 600)

	_, models, err := buildScene(dev, []model.Mesh{model.Triangle()})
	require.NoError(t, err)
	destroyModels(models)

	dev.Fail = map[string]error{"CreateBuffer": errors.New("out of memory")}
	_, models, err = buildScene(dev, []model.Mesh{model.Triangle()})
	assert.Error(t, err)
	assert.Empty(t, models)
	assert.Zero(t, dev.Live()["buffer"])
}

func TestFrameStats(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	stats := newFrameStats(logger, time.Second)
	start := stats.windowStart

	assert.False(t, stats.Frame(start+400*time.Millisecond, 10*time.Millisecond, nil))
	assert.False(t, stats.Frame(start+800*time.Millisecond, 30*time.Millisecond, nil))
	assert.True(t, stats.Frame(start+time.Second, 20*time.Millisecond, log.Fields{"recreations": 0}))

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, "frame statistics", entry.Message)
	assert.InDelta(t, 3.0, entry.Data["fps"], 1e-9)
	assert.Equal(t, "30ms", entry.Data["slowest"])
	assert.Equal(t, 0, entry.Data["recreations"])

	// The window starts over.
	assert.False(t, stats.Frame(start+1500*time.Millisecond, time.Millisecond, nil))
}

func TestFrameStatsDisabled(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	stats := newFrameStats(logger, 0)

	assert.False(t, stats.Frame(stats.windowStart+time.Hour, time.Second, nil))
	assert.Empty(t, hook.AllEntries())
}
