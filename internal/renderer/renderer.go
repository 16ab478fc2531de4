// Package renderer drives the begin/end frame protocol on top of a swapchain
// manager and rebuilds the swapchain whenever the surface stops matching it.
package renderer

import (
	"fmt"

	"github.com/cockroachdb/errors"
	log "github.com/sirupsen/logrus"
	"github.com/vkngwrapper/core/v3/core1_0"

	"github.com/vkngwrapper/cubes/internal/gpu"
	"github.com/vkngwrapper/cubes/internal/swapchain"
)

// ErrFormatChanged is returned when a recreated swapchain picked a different
// image format and nothing was registered to rebuild the pipelines for it.
var ErrFormatChanged = errors.New("swapchain image format changed")

// Surface is the window the renderer presents to.
type Surface interface {
	// Extent is the drawable size in pixels. Zero while minimized.
	Extent() core1_0.Extent2D
	WasResized() bool
	ResetResized()
	// WaitEvents blocks until the platform delivers at least one event.
	WaitEvents()
}

// PoolSizing selects how many command buffers the renderer keeps.
type PoolSizing int

const (
	// SizeByFramesInFlight keeps one command buffer per frame slot.
	SizeByFramesInFlight PoolSizing = iota
	// SizeByImageCount keeps one command buffer per swapchain image and
	// reallocates the pool when the image count changes.
	SizeByImageCount
)

func (p PoolSizing) String() string {
	switch p {
	case SizeByFramesInFlight:
		return "frames-in-flight"
	case SizeByImageCount:
		return "image-count"
	default:
		return "unknown"
	}
}

// ParsePoolSizing accepts the names printed by PoolSizing.String.
func ParsePoolSizing(name string) (PoolSizing, error) {
	for _, p := range []PoolSizing{SizeByFramesInFlight, SizeByImageCount} {
		if p.String() == name {
			return p, nil
		}
	}
	return 0, errors.Newf("unknown command buffer pool sizing %q", name)
}

type Options struct {
	FramesInFlight int
	ForceFIFO      bool
	PoolSizing     PoolSizing
	ClearColor     [4]float32

	// OnFormatChange is called with the new render pass when a recreated
	// swapchain no longer matches the pipelines built for the old one.
	OnFormatChange func(renderPass gpu.RenderPass) error

	Logger log.FieldLogger
}

type Renderer struct {
	surface Surface
	device  gpu.Device
	log     log.FieldLogger
	opts    Options

	current        *swapchain.Shared
	commandBuffers []gpu.CommandBuffer

	imageIndex   int
	frameIndex   int
	frameStarted bool

	recreations int
	closed      bool
}

func New(surface Surface, device gpu.Device, opts Options) (*Renderer, error) {
	if opts.Logger == nil {
		opts.Logger = log.StandardLogger()
	}

	r := &Renderer{
		surface: surface,
		device:  device,
		log:     opts.Logger.WithField("component", "renderer"),
		opts:    opts,
	}

	err := r.recreateSwapchain("initial")
	if err != nil {
		r.Close()
		return nil, err
	}

	return r, nil
}

func (r *Renderer) swapchainOptions() swapchain.Options {
	return swapchain.Options{
		FramesInFlight: r.opts.FramesInFlight,
		ForceFIFO:      r.opts.ForceFIFO,
		Logger:         r.opts.Logger,
	}
}

func (r *Renderer) recreateSwapchain(reason string) error {
	extent := r.surface.Extent()
	for extent.Width == 0 || extent.Height == 0 {
		r.surface.WaitEvents()
		extent = r.surface.Extent()
	}

	err := r.device.WaitIdle()
	if err != nil {
		return errors.Wrap(err, "wait for device idle before recreating swapchain")
	}

	previous := r.current
	if previous == nil {
		m, err := swapchain.New(r.device, extent, nil, r.swapchainOptions())
		if err != nil {
			return err
		}
		r.current = swapchain.Share(m)
		r.frameIndex = m.FrameIndex()
		return r.ensureCommandBuffers()
	}

	// New releases the extra reference once the replacement is built; ours keeps
	// the old manager around long enough to compare against it.
	m, err := swapchain.New(r.device, extent, previous.Retain(), r.swapchainOptions())
	if err != nil {
		return err
	}

	compatible := m.CompatibleWith(previous.Manager())
	r.current = swapchain.Share(m)
	r.frameIndex = m.FrameIndex()
	previous.Release()
	r.recreations++

	r.log.WithFields(log.Fields{
		"reason":      reason,
		"extent":      fmt.Sprintf("%dx%d", extent.Width, extent.Height),
		"recreations": r.recreations,
	}).Info("swapchain recreated")

	err = r.ensureCommandBuffers()
	if err != nil {
		return err
	}

	if !compatible {
		if r.opts.OnFormatChange == nil {
			return errors.Wrapf(ErrFormatChanged, "new image format %v", m.ImageFormat())
		}
		err = r.opts.OnFormatChange(m.RenderPass())
		if err != nil {
			return errors.Wrap(err, "rebuild pipelines for new swapchain format")
		}
	}

	return nil
}

func (r *Renderer) requiredCommandBuffers() int {
	m := r.current.Manager()
	if r.opts.PoolSizing == SizeByImageCount {
		return m.ImageCount()
	}
	return m.FramesInFlight()
}

// ensureCommandBuffers reallocates the pool only when its size has to change.
func (r *Renderer) ensureCommandBuffers() error {
	required := r.requiredCommandBuffers()
	if len(r.commandBuffers) == required {
		return nil
	}

	r.freeCommandBuffers()

	buffers, err := r.device.AllocateCommandBuffers(required)
	if err != nil {
		return errors.Wrapf(err, "allocate %d command buffers", required)
	}
	r.commandBuffers = buffers

	r.log.WithFields(log.Fields{
		"count":  required,
		"sizing": r.opts.PoolSizing,
	}).Debug("command buffers allocated")
	return nil
}

func (r *Renderer) freeCommandBuffers() {
	if len(r.commandBuffers) == 0 {
		return
	}
	r.device.FreeCommandBuffers(r.commandBuffers)
	r.commandBuffers = nil
}

func (r *Renderer) commandBuffer() gpu.CommandBuffer {
	if r.opts.PoolSizing == SizeByImageCount {
		return r.commandBuffers[r.imageIndex]
	}
	return r.commandBuffers[r.frameIndex]
}

// BeginFrame acquires the next swapchain image and starts recording into the
// frame's command buffer. It returns a nil command buffer and no error when the
// swapchain had to be rebuilt first; the caller skips drawing this iteration.
func (r *Renderer) BeginFrame() (gpu.CommandBuffer, error) {
	if r.frameStarted {
		panic(errors.AssertionFailedf("BeginFrame called while a frame is already in progress"))
	}

	imageIndex, status, err := r.current.Manager().AcquireNextImage()
	if err != nil {
		return nil, err
	}
	if status == gpu.StatusOutOfDate {
		return nil, r.recreateSwapchain("acquire out of date")
	}

	r.imageIndex = imageIndex

	cmd := r.commandBuffer()
	err = cmd.Begin()
	if err != nil {
		return nil, errors.Wrapf(err, "begin command buffer for frame %d", r.frameIndex)
	}

	r.frameStarted = true
	return cmd, nil
}

// EndFrame finishes recording, submits and presents the frame. The renderer is
// idle afterwards whatever the outcome.
func (r *Renderer) EndFrame() error {
	if !r.frameStarted {
		panic(errors.AssertionFailedf("EndFrame called without a frame in progress"))
	}
	r.frameStarted = false

	m := r.current.Manager()
	cmd := r.commandBuffer()

	err := cmd.End()
	if err != nil {
		return errors.Wrapf(err, "end command buffer for frame %d", r.frameIndex)
	}

	status, err := m.SubmitCommandBuffers(cmd, r.imageIndex)
	// The swapchain advanced its frame slot on submission.
	r.frameIndex = m.FrameIndex()
	if err != nil {
		return err
	}

	switch {
	case status.NeedsRecreate():
		r.surface.ResetResized()
		return r.recreateSwapchain("present " + status.String())
	case r.surface.WasResized():
		r.surface.ResetResized()
		return r.recreateSwapchain("window resized")
	}

	return nil
}

// BeginSwapchainRenderPass begins the swapchain render pass on the current
// image and sets the dynamic viewport and scissor to cover it.
func (r *Renderer) BeginSwapchainRenderPass(cmd gpu.CommandBuffer) error {
	r.checkActive(cmd, "BeginSwapchainRenderPass")

	m := r.current.Manager()
	extent := m.Extent()

	err := cmd.BeginRenderPass(gpu.RenderPassBegin{
		RenderPass:  m.RenderPass(),
		Framebuffer: m.Framebuffer(r.imageIndex),
		Extent:      extent,
		ClearColor:  r.opts.ClearColor,
	})
	if err != nil {
		return errors.Wrap(err, "begin swapchain render pass")
	}

	cmd.SetViewport(core1_0.Viewport{
		Width:    float32(extent.Width),
		Height:   float32(extent.Height),
		MinDepth: 0,
		MaxDepth: 1,
	})
	cmd.SetScissor(core1_0.Rect2D{
		Offset: core1_0.Offset2D{X: 0, Y: 0},
		Extent: extent,
	})
	return nil
}

func (r *Renderer) EndSwapchainRenderPass(cmd gpu.CommandBuffer) {
	r.checkActive(cmd, "EndSwapchainRenderPass")
	cmd.EndRenderPass()
}

func (r *Renderer) checkActive(cmd gpu.CommandBuffer, call string) {
	if !r.frameStarted {
		panic(errors.AssertionFailedf("%s called without a frame in progress", call))
	}
	if cmd != r.commandBuffer() {
		panic(errors.AssertionFailedf("%s called with a command buffer from a different frame", call))
	}
}

func (r *Renderer) RenderPass() gpu.RenderPass {
	return r.current.Manager().RenderPass()
}

func (r *Renderer) AspectRatio() float32 {
	return r.current.Manager().ExtentAspectRatio()
}

func (r *Renderer) IsFrameInProgress() bool {
	return r.frameStarted
}

// CurrentCommandBuffer is the command buffer being recorded. Only valid while a
// frame is in progress.
func (r *Renderer) CurrentCommandBuffer() gpu.CommandBuffer {
	if !r.frameStarted {
		panic(errors.AssertionFailedf("no command buffer outside of a frame"))
	}
	return r.commandBuffer()
}

// FrameIndex is the frame slot the next or current frame uses.
func (r *Renderer) FrameIndex() int {
	return r.frameIndex
}

// ImageIndex is the swapchain image being rendered. Only valid while a frame is
// in progress.
func (r *Renderer) ImageIndex() int {
	if !r.frameStarted {
		panic(errors.AssertionFailedf("no swapchain image outside of a frame"))
	}
	return r.imageIndex
}

func (r *Renderer) Swapchain() *swapchain.Manager {
	return r.current.Manager()
}

// Recreations counts swapchain rebuilds since construction.
func (r *Renderer) Recreations() int {
	return r.recreations
}

// Close waits for the device and releases the command buffers and swapchain.
func (r *Renderer) Close() {
	if r.closed {
		return
	}
	r.closed = true

	if err := r.device.WaitIdle(); err != nil {
		r.log.WithError(err).Error("waiting for device idle before closing renderer")
	}

	r.freeCommandBuffers()

	if r.current != nil {
		r.current.Release()
		r.current = nil
	}
}
