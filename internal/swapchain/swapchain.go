// Package swapchain owns the presentable images of a window surface, the render
// pass that targets them, and the per-frame synchronization objects used to keep
// the CPU at most a fixed number of frames ahead of the GPU.
package swapchain

import (
	"fmt"

	"github.com/cockroachdb/errors"
	log "github.com/sirupsen/logrus"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_surface"

	"github.com/vkngwrapper/cubes/internal/gpu"
)

// MaxFramesInFlight is the default number of frames the CPU may record ahead of the GPU.
const MaxFramesInFlight = 2

type Options struct {
	// FramesInFlight is the size of the frame slot ring. Defaults to MaxFramesInFlight.
	FramesInFlight int
	// ForceFIFO skips the mailbox preference and always uses vsync.
	ForceFIFO bool
	Logger    log.FieldLogger
}

func (o Options) withDefaults() Options {
	if o.FramesInFlight <= 0 {
		o.FramesInFlight = MaxFramesInFlight
	}
	if o.Logger == nil {
		o.Logger = log.StandardLogger()
	}
	return o
}

// PresentableImage is one swapchain image with the view and framebuffer that
// render into it.
type PresentableImage struct {
	Image       gpu.Image
	View        gpu.ImageView
	Framebuffer gpu.Framebuffer
}

type Manager struct {
	device gpu.Device
	log    log.FieldLogger
	opts   Options

	windowExtent core1_0.Extent2D

	handle      gpu.Swapchain
	format      khr_surface.SurfaceFormat
	presentMode khr_surface.PresentMode
	extent      core1_0.Extent2D
	renderPass  gpu.RenderPass
	images      []PresentableImage

	frames []frameSlot
	// imagesInFlight holds, per image, the fence of the frame slot that last
	// rendered to it, or nil.
	imagesInFlight []gpu.Fence
	currentFrame   int

	destroyed bool
}

// New builds a swapchain for the device's surface. When previous is non-nil its
// swapchain is handed to the presentation engine as the one being replaced and
// the reference is released once construction finishes, whether or not it
// succeeded.
func New(device gpu.Device, windowExtent core1_0.Extent2D, previous *Shared, opts Options) (*Manager, error) {
	if previous != nil {
		defer previous.Release()
	}

	opts = opts.withDefaults()
	m := &Manager{
		device:       device,
		log:          opts.Logger.WithField("component", "swapchain"),
		opts:         opts,
		windowExtent: windowExtent,
	}

	if previous != nil {
		m.currentFrame = previous.Manager().currentFrame % opts.FramesInFlight
	}

	if err := m.init(previous); err != nil {
		m.Destroy()
		return nil, err
	}

	m.log.WithFields(log.Fields{
		"images":       len(m.images),
		"format":       m.format.Format,
		"present_mode": m.presentMode,
		"extent":       fmt.Sprintf("%dx%d", m.extent.Width, m.extent.Height),
		"recreated":    previous != nil,
	}).Debug("swapchain created")

	return m, nil
}

func (m *Manager) init(previous *Shared) error {
	err := m.createSwapchain(previous)
	if err != nil {
		return err
	}

	err = m.createRenderPass()
	if err != nil {
		return err
	}

	err = m.createImages()
	if err != nil {
		return err
	}

	return m.createSyncObjects()
}

func (m *Manager) createSwapchain(previous *Shared) error {
	support, err := m.device.SurfaceSupport()
	if err != nil {
		return markf(err, ErrCreate, "query surface support")
	}
	if support.Capabilities == nil {
		return errors.Mark(errors.New("surface reports no capabilities"), ErrCreate)
	}

	surfaceFormat, err := ChooseSurfaceFormat(support.Formats)
	if err != nil {
		return errors.Mark(err, ErrCreate)
	}

	presentMode := ChoosePresentMode(support.PresentModes)
	if m.opts.ForceFIFO {
		presentMode = khr_surface.PresentModeFIFO
	}

	extent := ChooseExtent(support.Capabilities, m.windowExtent)

	var old gpu.Swapchain
	if previous != nil {
		old = previous.Manager().handle
	}

	handle, err := m.device.CreateSwapchain(gpu.SwapchainCreateInfo{
		MinImageCount: ImageCount(support.Capabilities),
		Format:        surfaceFormat,
		Extent:        extent,
		PresentMode:   presentMode,
		PreTransform:  support.Capabilities.CurrentTransform,
		OldSwapchain:  old,
	})
	if err != nil {
		return markf(err, ErrCreate, "create swapchain")
	}

	m.handle = handle
	m.format = surfaceFormat
	m.presentMode = presentMode
	m.extent = extent
	return nil
}

func (m *Manager) createRenderPass() error {
	renderPass, err := m.device.CreateRenderPass(gpu.RenderPassCreateInfo{
		ColorFormat:  m.format.Format,
		WaitForImage: true,
	})
	if err != nil {
		return markf(err, ErrCreate, "create render pass")
	}

	m.renderPass = renderPass
	return nil
}

func (m *Manager) createImages() error {
	images, err := m.handle.Images()
	if err != nil {
		return markf(err, ErrCreate, "get swapchain images")
	}

	for i, image := range images {
		view, err := m.device.CreateImageView(image, m.format.Format)
		if err != nil {
			return markf(err, ErrCreate, "create image view %d", i)
		}
		m.images = append(m.images, PresentableImage{Image: image, View: view})

		framebuffer, err := m.device.CreateFramebuffer(m.renderPass, view, m.extent)
		if err != nil {
			return markf(err, ErrCreate, "create framebuffer %d", i)
		}
		m.images[i].Framebuffer = framebuffer
	}

	return nil
}

// AcquireNextImage waits until the current frame slot is free, then asks the
// presentation engine for the next image. An out-of-date status is returned
// without touching the image bookkeeping; the caller must recreate the
// swapchain and skip the frame.
func (m *Manager) AcquireNextImage() (int, gpu.Status, error) {
	frame := m.frames[m.currentFrame]

	err := frame.inFlight.Wait()
	if err != nil {
		return -1, gpu.StatusSuccess, markf(err, ErrAcquire, "wait for frame slot %d", m.currentFrame)
	}

	imageIndex, status, err := m.handle.AcquireNextImage(frame.imageAvailable)
	if err != nil {
		return -1, status, markf(err, ErrAcquire, "acquire next image")
	}
	if status == gpu.StatusOutOfDate {
		return imageIndex, status, nil
	}
	if imageIndex < 0 || imageIndex >= len(m.images) {
		return -1, status, errors.Mark(errors.Newf("acquired image index %d out of range [0, %d)", imageIndex, len(m.images)), ErrAcquire)
	}

	// An earlier frame slot may still be rendering to this image.
	if fence := m.imagesInFlight[imageIndex]; fence != nil && fence != frame.inFlight {
		err = fence.Wait()
		if err != nil {
			return -1, status, markf(err, ErrAcquire, "wait for image %d", imageIndex)
		}
	}
	m.imagesInFlight[imageIndex] = frame.inFlight

	return imageIndex, status, nil
}

// SubmitCommandBuffers submits the recorded frame for the image and presents it.
// The frame slot advances as soon as the work is submitted, whatever the
// presentation outcome.
func (m *Manager) SubmitCommandBuffers(commandBuffer gpu.CommandBuffer, imageIndex int) (gpu.Status, error) {
	frame := m.frames[m.currentFrame]

	err := frame.inFlight.Reset()
	if err != nil {
		return gpu.StatusSuccess, markf(err, ErrSubmit, "reset fence for frame slot %d", m.currentFrame)
	}

	err = m.device.Submit(gpu.SubmitInfo{
		CommandBuffer: commandBuffer,
		WaitSemaphore: frame.imageAvailable,
		WaitStage:     core1_0.PipelineStageColorAttachmentOutput,
		Signal:        frame.renderFinished,
		Fence:         frame.inFlight,
	})
	if err != nil {
		return gpu.StatusSuccess, markf(err, ErrSubmit, "submit frame slot %d", m.currentFrame)
	}

	m.currentFrame = (m.currentFrame + 1) % len(m.frames)

	status, err := m.device.Present(gpu.PresentInfo{
		Swapchain:     m.handle,
		ImageIndex:    imageIndex,
		WaitSemaphore: frame.renderFinished,
	})
	if err != nil {
		return status, markf(err, ErrPresent, "present image %d", imageIndex)
	}

	return status, nil
}

// Destroy waits for the device to go idle and releases every object the manager
// created. It is safe to call on a partially constructed manager and more than once.
func (m *Manager) Destroy() {
	if m.destroyed {
		return
	}
	m.destroyed = true

	if err := m.device.WaitIdle(); err != nil {
		m.log.WithError(err).Error("waiting for device idle before destroying swapchain")
	}

	m.destroySyncObjects()

	for _, image := range m.images {
		if image.Framebuffer != nil {
			image.Framebuffer.Destroy()
		}
		image.View.Destroy()
	}
	m.images = nil

	if m.renderPass != nil {
		m.renderPass.Destroy()
		m.renderPass = nil
	}

	if m.handle != nil {
		m.handle.Destroy()
		m.handle = nil
	}
}

func (m *Manager) RenderPass() gpu.RenderPass {
	return m.renderPass
}

func (m *Manager) Framebuffer(imageIndex int) gpu.Framebuffer {
	return m.images[imageIndex].Framebuffer
}

func (m *Manager) ImageView(imageIndex int) gpu.ImageView {
	return m.images[imageIndex].View
}

func (m *Manager) ImageCount() int {
	return len(m.images)
}

func (m *Manager) ImageFormat() core1_0.Format {
	return m.format.Format
}

func (m *Manager) PresentMode() khr_surface.PresentMode {
	return m.presentMode
}

func (m *Manager) Extent() core1_0.Extent2D {
	return m.extent
}

// ExtentAspectRatio is width over height of the swapchain extent.
func (m *Manager) ExtentAspectRatio() float32 {
	return float32(m.extent.Width) / float32(m.extent.Height)
}

// FrameIndex is the frame slot the next acquire will use.
func (m *Manager) FrameIndex() int {
	return m.currentFrame
}

func (m *Manager) FramesInFlight() int {
	return len(m.frames)
}

// CompatibleWith reports whether pipelines built against the other manager's
// render pass can be used with this one.
func (m *Manager) CompatibleWith(other *Manager) bool {
	return m.format.Format == other.format.Format
}
