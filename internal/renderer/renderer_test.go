package renderer_test

import (
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_surface"

	"github.com/vkngwrapper/cubes/internal/gpu"
	"github.com/vkngwrapper/cubes/internal/gpu/gputest"
	"github.com/vkngwrapper/cubes/internal/renderer"
	"github.com/vkngwrapper/cubes/internal/swapchain"
)

func newRenderer(t *testing.T, surface *gputest.Surface, device *gputest.Device, opts renderer.Options) *renderer.Renderer {
	t.Helper()

	if opts.Logger == nil {
		logger, _ := logtest.NewNullLogger()
		opts.Logger = logger
	}

	r, err := renderer.New(surface, device, opts)
	require.NoError(t, err)
	return r
}

func drawFrame(t *testing.T, r *renderer.Renderer) {
	t.Helper()

	cmd, err := r.BeginFrame()
	require.NoError(t, err)
	require.NotNil(t, cmd)

	require.NoError(t, r.BeginSwapchainRenderPass(cmd))
	r.EndSwapchainRenderPass(cmd)
	require.NoError(t, r.EndFrame())
}

func count(entries []string, prefix string) int {
	n := 0
	for _, entry := range entries {
		if strings.HasPrefix(entry, prefix) {
			n++
		}
	}
	return n
}

func TestFiveFrames(t *testing.T) {
	device := gputest.NewDevice(800, 600)
	surface := gputest.NewSurface(800, 600)
	r := newRenderer(t, surface, device, renderer.Options{})
	defer r.Close()

	require.Equal(t, 3, r.Swapchain().ImageCount())
	assert.Equal(t, 0, r.FrameIndex())

	var indices []int
	for i := 0; i < 5; i++ {
		drawFrame(t, r)
		indices = append(indices, r.FrameIndex())
		assert.False(t, r.IsFrameInProgress())
	}

	assert.Equal(t, []int{1, 0, 1, 0, 1}, indices)
	assert.Equal(t, 0, r.Recreations())
	assert.Len(t, device.Swapchains, 1)
	assert.Len(t, device.Submits, 5)

	// Frame slots alternate between the two command buffers.
	require.Len(t, device.CommandBuffers, 2)
	for i, submit := range device.Submits {
		assert.Same(t, device.CommandBuffers[i%2], submit.CommandBuffer.(*gputest.CommandBuffer))
	}
}

func TestFrameProtocolViolationsPanic(t *testing.T) {
	device := gputest.NewDevice(800, 600)
	r := newRenderer(t, gputest.NewSurface(800, 600), device, renderer.Options{})
	defer r.Close()

	assert.Panics(t, func() { _ = r.EndFrame() })
	assert.Panics(t, func() { r.CurrentCommandBuffer() })
	assert.Panics(t, func() { r.ImageIndex() })

	cmd, err := r.BeginFrame()
	require.NoError(t, err)
	assert.True(t, r.IsFrameInProgress())
	assert.Same(t, cmd.(*gputest.CommandBuffer), r.CurrentCommandBuffer().(*gputest.CommandBuffer))

	assert.Panics(t, func() { _, _ = r.BeginFrame() })

	other := device.CommandBuffers[1]
	assert.Panics(t, func() { _ = r.BeginSwapchainRenderPass(other) })
	assert.Panics(t, func() { r.EndSwapchainRenderPass(other) })

	require.NoError(t, r.EndFrame())
	assert.Panics(t, func() { _ = r.BeginSwapchainRenderPass(cmd) })
}

func TestSwapchainRenderPassCoversExtent(t *testing.T) {
	device := gputest.NewDevice(800, 600)
	r := newRenderer(t, gputest.NewSurface(800, 600), device, renderer.Options{})
	defer r.Close()

	cmd, err := r.BeginFrame()
	require.NoError(t, err)
	require.NoError(t, r.BeginSwapchainRenderPass(cmd))
	r.EndSwapchainRenderPass(cmd)

	assert.Equal(t, []string{
		"BeginRenderPass 800x600",
		"SetViewport 800x600",
		"SetScissor 800x600",
		"EndRenderPass",
	}, cmd.(*gputest.CommandBuffer).Commands)

	require.NoError(t, r.EndFrame())
	assert.InDelta(t, 800.0/600.0, r.AspectRatio(), 1e-6)
	assert.Same(t, device.RenderPasses[0], r.RenderPass().(*gputest.RenderPass))
}

func TestRecreateAfterPresent(t *testing.T) {
	tests := []struct {
		name    string
		status  gpu.Status
		resized bool
	}{
		{"suboptimal", gpu.StatusSuboptimal, false},
		{"out of date", gpu.StatusOutOfDate, false},
		{"resized", gpu.StatusSuccess, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			device := gputest.NewDevice(800, 600)
			surface := gputest.NewSurface(800, 600)
			r := newRenderer(t, surface, device, renderer.Options{})
			defer r.Close()

			device.Presents = []gputest.Present{{Status: tt.status}}
			surface.Resized = tt.resized

			drawFrame(t, r)

			assert.Equal(t, 1, r.Recreations())
			assert.Equal(t, 1, r.FrameIndex())
			assert.False(t, surface.Resized)
			require.Len(t, device.Swapchains, 2)
			assert.True(t, device.Swapchains[0].Destroyed)
			assert.Same(t, device.Swapchains[0], device.Swapchains[1].Info.OldSwapchain.(*gputest.Swapchain))

			// The next frame continues on the new swapchain and the next slot.
			drawFrame(t, r)
			assert.Equal(t, 0, r.FrameIndex())
			assert.Len(t, device.Swapchains[1].Acquired, 1)
		})
	}
}

func TestAcquireOutOfDateSkipsFrame(t *testing.T) {
	device := gputest.NewDevice(800, 600)
	surface := gputest.NewSurface(800, 600)
	r := newRenderer(t, surface, device, renderer.Options{})
	defer r.Close()

	device.Acquires = []gputest.Acquire{{Status: gpu.StatusOutOfDate}}

	cmd, err := r.BeginFrame()
	require.NoError(t, err)
	assert.Nil(t, cmd)
	assert.False(t, r.IsFrameInProgress())
	assert.Equal(t, 1, r.Recreations())
	assert.Equal(t, 0, r.FrameIndex())
	assert.Empty(t, device.Submits)

	drawFrame(t, r)
	assert.Equal(t, 1, r.FrameIndex())
	assert.Len(t, device.Swapchains[1].Acquired, 1)
}

func TestRecreateWaitsWhileMinimized(t *testing.T) {
	device := gputest.NewDevice(800, 600)
	device.Support.Capabilities.CurrentExtent = core1_0.Extent2D{Width: -1, Height: -1}
	surface := gputest.NewSurface(800, 600)
	r := newRenderer(t, surface, device, renderer.Options{})
	defer r.Close()

	const minimizedPolls = 3
	surface.Extents = []core1_0.Extent2D{{}, {}, {}, {Width: 1024, Height: 768}}
	surface.Log = nil
	surface.Resized = true

	drawFrame(t, r)

	assert.Equal(t, minimizedPolls, surface.Waits)
	assert.Equal(t, []string{
		"poll zero", "wait",
		"poll zero", "wait",
		"poll zero", "wait",
		"poll",
	}, surface.Log)
	assert.Equal(t, core1_0.Extent2D{Width: 1024, Height: 768}, r.Swapchain().Extent())
}

func TestResizeDuringRecreateIsNotLost(t *testing.T) {
	device := gputest.NewDevice(800, 600)
	device.Support.Capabilities.CurrentExtent = core1_0.Extent2D{Width: -1, Height: -1}
	surface := gputest.NewSurface(800, 600)
	r := newRenderer(t, surface, device, renderer.Options{})
	defer r.Close()

	surface.Extents = []core1_0.Extent2D{{}, {Width: 1024, Height: 768}}
	surface.OnWait = func(s *gputest.Surface) {
		s.Resized = true
	}
	device.Presents = []gputest.Present{{Status: gpu.StatusOutOfDate}}

	drawFrame(t, r)
	assert.Equal(t, 1, r.Recreations())
	assert.Equal(t, 1, surface.Waits)
	assert.True(t, surface.Resized)

	drawFrame(t, r)
	assert.Equal(t, 2, r.Recreations())
	assert.Equal(t, 1, surface.Waits)
	assert.False(t, surface.Resized)
	require.Len(t, device.Swapchains, 3)
	assert.Equal(t, core1_0.Extent2D{Width: 1024, Height: 768}, r.Swapchain().Extent())
}

func TestRecreateWithoutMinimizeDoesNotWait(t *testing.T) {
	device := gputest.NewDevice(800, 600)
	surface := gputest.NewSurface(800, 600)
	r := newRenderer(t, surface, device, renderer.Options{})
	defer r.Close()

	surface.Resized = true
	drawFrame(t, r)

	assert.Equal(t, 0, surface.Waits)
	assert.Equal(t, 1, r.Recreations())
}

func TestFormatChange(t *testing.T) {
	unormOnly := []khr_surface.SurfaceFormat{
		{Format: core1_0.FormatB8G8R8A8UnsignedNormalized, ColorSpace: khr_surface.ColorSpaceSRGBNonlinear},
	}

	t.Run("without hook", func(t *testing.T) {
		device := gputest.NewDevice(800, 600)
		surface := gputest.NewSurface(800, 600)
		r := newRenderer(t, surface, device, renderer.Options{})
		defer r.Close()

		device.Support.Formats = unormOnly
		surface.Resized = true

		_, err := r.BeginFrame()
		require.NoError(t, err)
		err = r.EndFrame()
		require.Error(t, err)
		assert.True(t, errors.Is(err, renderer.ErrFormatChanged))
		assert.False(t, r.IsFrameInProgress())
	})

	t.Run("with hook", func(t *testing.T) {
		device := gputest.NewDevice(800, 600)
		surface := gputest.NewSurface(800, 600)

		var rebuilt []gpu.RenderPass
		r := newRenderer(t, surface, device, renderer.Options{
			OnFormatChange: func(renderPass gpu.RenderPass) error {
				rebuilt = append(rebuilt, renderPass)
				return nil
			},
		})
		defer r.Close()

		// Same format: the hook stays quiet.
		surface.Resized = true
		drawFrame(t, r)
		assert.Empty(t, rebuilt)

		device.Support.Formats = unormOnly
		surface.Resized = true
		drawFrame(t, r)

		require.Len(t, rebuilt, 1)
		assert.Same(t, device.RenderPasses[2], rebuilt[0].(*gputest.RenderPass))
		assert.Equal(t, core1_0.FormatB8G8R8A8UnsignedNormalized, r.Swapchain().ImageFormat())
	})

	t.Run("hook fails", func(t *testing.T) {
		device := gputest.NewDevice(800, 600)
		surface := gputest.NewSurface(800, 600)
		r := newRenderer(t, surface, device, renderer.Options{
			OnFormatChange: func(gpu.RenderPass) error {
				return errors.New("shader missing")
			},
		})
		defer r.Close()

		device.Support.Formats = unormOnly
		device.Presents = []gputest.Present{{Status: gpu.StatusOutOfDate}}

		_, err := r.BeginFrame()
		require.NoError(t, err)
		err = r.EndFrame()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "shader missing")
	})
}

func TestCommandBufferPoolSizing(t *testing.T) {
	t.Run("frames in flight", func(t *testing.T) {
		device := gputest.NewDevice(800, 600)
		surface := gputest.NewSurface(800, 600)
		r := newRenderer(t, surface, device, renderer.Options{})
		defer r.Close()

		// More images after recreation do not touch the pool.
		device.Support.Capabilities.MinImageCount = 4
		surface.Resized = true
		drawFrame(t, r)

		assert.Equal(t, 5, r.Swapchain().ImageCount())
		assert.Equal(t, 1, count(device.Log, "AllocateCommandBuffers"))
		assert.Equal(t, 0, count(device.Log, "FreeCommandBuffers"))
		assert.Len(t, device.CommandBuffers, swapchain.MaxFramesInFlight)
	})

	t.Run("image count", func(t *testing.T) {
		device := gputest.NewDevice(800, 600)
		surface := gputest.NewSurface(800, 600)
		r := newRenderer(t, surface, device, renderer.Options{PoolSizing: renderer.SizeByImageCount})
		defer r.Close()

		assert.Len(t, device.CommandBuffers, 3)

		// Same image count: no reallocation.
		surface.Resized = true
		drawFrame(t, r)
		assert.Equal(t, 1, count(device.Log, "AllocateCommandBuffers"))

		device.Support.Capabilities.MinImageCount = 3
		surface.Resized = true
		drawFrame(t, r)

		assert.Equal(t, 2, count(device.Log, "AllocateCommandBuffers"))
		assert.Contains(t, device.Log, "FreeCommandBuffers 3")
		assert.Contains(t, device.Log, "AllocateCommandBuffers 4")
		for _, cb := range device.CommandBuffers[:3] {
			assert.True(t, cb.Freed)
		}

		// Buffers follow the acquired image, not the frame slot.
		device.Acquires = []gputest.Acquire{{Index: 3}}
		cmd, err := r.BeginFrame()
		require.NoError(t, err)
		assert.Same(t, device.CommandBuffers[6], cmd.(*gputest.CommandBuffer))
		require.NoError(t, r.EndFrame())
	})
}

func TestErrorsPropagate(t *testing.T) {
	t.Run("acquire", func(t *testing.T) {
		device := gputest.NewDevice(800, 600)
		r := newRenderer(t, gputest.NewSurface(800, 600), device, renderer.Options{})
		defer r.Close()

		device.Acquires = []gputest.Acquire{{Err: errors.New("device lost")}}
		cmd, err := r.BeginFrame()
		require.Error(t, err)
		assert.Nil(t, cmd)
		assert.True(t, errors.Is(err, swapchain.ErrAcquire))
		assert.False(t, r.IsFrameInProgress())
	})

	t.Run("present", func(t *testing.T) {
		device := gputest.NewDevice(800, 600)
		r := newRenderer(t, gputest.NewSurface(800, 600), device, renderer.Options{})
		defer r.Close()

		device.Presents = []gputest.Present{{Err: errors.New("surface lost")}}
		_, err := r.BeginFrame()
		require.NoError(t, err)

		err = r.EndFrame()
		require.Error(t, err)
		assert.True(t, errors.Is(err, swapchain.ErrPresent))
		assert.False(t, r.IsFrameInProgress())
		assert.Equal(t, 1, r.FrameIndex())
	})

	t.Run("construction", func(t *testing.T) {
		device := gputest.NewDevice(800, 600)
		device.Fail = map[string]error{"AllocateCommandBuffers": errors.New("out of memory")}

		logger, _ := logtest.NewNullLogger()
		r, err := renderer.New(gputest.NewSurface(800, 600), device, renderer.Options{Logger: logger})
		require.Error(t, err)
		assert.Nil(t, r)
		assert.Empty(t, device.Live())
	})
}

func TestCloseReleasesEverything(t *testing.T) {
	device := gputest.NewDevice(800, 600)
	surface := gputest.NewSurface(800, 600)
	r := newRenderer(t, surface, device, renderer.Options{})

	drawFrame(t, r)
	surface.Resized = true
	drawFrame(t, r)
	drawFrame(t, r)

	r.Close()
	r.Close()
	assert.Empty(t, device.Live())
}

func TestParsePoolSizing(t *testing.T) {
	for _, p := range []renderer.PoolSizing{renderer.SizeByFramesInFlight, renderer.SizeByImageCount} {
		parsed, err := renderer.ParsePoolSizing(p.String())
		require.NoError(t, err)
		assert.Equal(t, p, parsed)
	}

	_, err := renderer.ParsePoolSizing("unknown")
	assert.Error(t, err)
}
