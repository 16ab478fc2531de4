// Package gputest provides an in-memory GPU for exercising the frame loop without
// a Vulkan driver. Submitted work completes the moment a fence is waited on, and
// every call is recorded so tests can assert on ordering.
package gputest

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_surface"

	"github.com/vkngwrapper/cubes/internal/gpu"
)

// Acquire is one scripted result of Swapchain.AcquireNextImage.
type Acquire struct {
	Index  int
	Status gpu.Status
	Err    error
}

// Present is one scripted result of Device.Present.
type Present struct {
	Status gpu.Status
	Err    error
}

type Device struct {
	Support gpu.SurfaceSupport

	// Acquires and Presents are consumed in order. Once empty, acquisition cycles
	// through the images round robin and presentation succeeds.
	Acquires []Acquire
	Presents []Present

	// Fail makes the named create call (e.g. "CreateRenderPass") return the error.
	Fail map[string]error

	Log []string

	Swapchains     []*Swapchain
	Fences         []*Fence
	Semaphores     []*Semaphore
	RenderPasses   []*RenderPass
	CommandBuffers []*CommandBuffer
	Submits        []gpu.SubmitInfo
	PresentInfos   []gpu.PresentInfo
	WaitIdles      int

	Pipelines []*Pipeline
	Buffers   []*Buffer
	CacheData []byte
	Ident     gpu.Identity

	live   map[string]int
	nextID int
}

var _ gpu.Device = (*Device)(nil)
var _ gpu.Resources = (*Device)(nil)

// NewDevice returns a device whose surface offers the usual desktop
// configuration: sRGB BGRA, FIFO and mailbox, two to eight images, and the
// given current extent.
func NewDevice(width, height int) *Device {
	return &Device{
		Support: gpu.SurfaceSupport{
			Capabilities: &khr_surface.SurfaceCapabilities{
				MinImageCount:  2,
				MaxImageCount:  8,
				CurrentExtent:  core1_0.Extent2D{Width: width, Height: height},
				MinImageExtent: core1_0.Extent2D{Width: 1, Height: 1},
				MaxImageExtent: core1_0.Extent2D{Width: 4096, Height: 4096},
			},
			Formats: []khr_surface.SurfaceFormat{
				{Format: core1_0.FormatB8G8R8A8UnsignedNormalized, ColorSpace: khr_surface.ColorSpaceSRGBNonlinear},
				{Format: core1_0.FormatB8G8R8A8SRGB, ColorSpace: khr_surface.ColorSpaceSRGBNonlinear},
			},
			PresentModes: []khr_surface.PresentMode{
				khr_surface.PresentModeFIFO,
				khr_surface.PresentModeMailbox,
			},
		},
		live: map[string]int{},
	}
}

func (d *Device) record(format string, args ...any) {
	d.Log = append(d.Log, fmt.Sprintf(format, args...))
}

func (d *Device) id() int {
	d.nextID++
	return d.nextID
}

func (d *Device) created(kind string) {
	if d.live == nil {
		d.live = map[string]int{}
	}
	d.live[kind]++
}

func (d *Device) destroyed(kind string) {
	d.live[kind]--
}

// Live returns the number of objects of each kind that were created and not yet destroyed.
func (d *Device) Live() map[string]int {
	out := map[string]int{}
	for kind, n := range d.live {
		if n != 0 {
			out[kind] = n
		}
	}
	return out
}

func (d *Device) failure(call string) error {
	if err, ok := d.Fail[call]; ok {
		return err
	}
	return nil
}

func (d *Device) SurfaceSupport() (gpu.SurfaceSupport, error) {
	d.record("SurfaceSupport")
	if err := d.failure("SurfaceSupport"); err != nil {
		return gpu.SurfaceSupport{}, err
	}
	return d.Support, nil
}

func (d *Device) CreateSwapchain(info gpu.SwapchainCreateInfo) (gpu.Swapchain, error) {
	d.record("CreateSwapchain images=%d extent=%dx%d", info.MinImageCount, info.Extent.Width, info.Extent.Height)
	if err := d.failure("CreateSwapchain"); err != nil {
		return nil, err
	}

	s := &Swapchain{ID: d.id(), Info: info, device: d}
	for i := 0; i < info.MinImageCount; i++ {
		s.images = append(s.images, image(i))
	}
	d.Swapchains = append(d.Swapchains, s)
	d.created("swapchain")
	return s, nil
}

func (d *Device) CreateImageView(img gpu.Image, format core1_0.Format) (gpu.ImageView, error) {
	if err := d.failure("CreateImageView"); err != nil {
		return nil, err
	}
	d.created("image view")
	return &handle{device: d, kind: "image view", ID: d.id()}, nil
}

func (d *Device) CreateRenderPass(info gpu.RenderPassCreateInfo) (gpu.RenderPass, error) {
	d.record("CreateRenderPass format=%d wait=%t", info.ColorFormat, info.WaitForImage)
	if err := d.failure("CreateRenderPass"); err != nil {
		return nil, err
	}
	rp := &RenderPass{handle: handle{device: d, kind: "render pass", ID: d.id()}, Info: info}
	d.RenderPasses = append(d.RenderPasses, rp)
	d.created("render pass")
	return rp, nil
}

func (d *Device) CreateFramebuffer(renderPass gpu.RenderPass, view gpu.ImageView, extent core1_0.Extent2D) (gpu.Framebuffer, error) {
	if err := d.failure("CreateFramebuffer"); err != nil {
		return nil, err
	}
	d.created("framebuffer")
	return &handle{device: d, kind: "framebuffer", ID: d.id()}, nil
}

func (d *Device) CreateSemaphore() (gpu.Semaphore, error) {
	if err := d.failure("CreateSemaphore"); err != nil {
		return nil, err
	}
	s := &Semaphore{handle: handle{device: d, kind: "semaphore", ID: d.id()}}
	d.Semaphores = append(d.Semaphores, s)
	d.created("semaphore")
	return s, nil
}

func (d *Device) CreateFence(signaled bool) (gpu.Fence, error) {
	if err := d.failure("CreateFence"); err != nil {
		return nil, err
	}
	f := &Fence{ID: d.id(), Signaled: signaled, device: d}
	d.Fences = append(d.Fences, f)
	d.created("fence")
	return f, nil
}

func (d *Device) AllocateCommandBuffers(count int) ([]gpu.CommandBuffer, error) {
	d.record("AllocateCommandBuffers %d", count)
	if err := d.failure("AllocateCommandBuffers"); err != nil {
		return nil, err
	}
	buffers := make([]gpu.CommandBuffer, 0, count)
	for i := 0; i < count; i++ {
		cb := &CommandBuffer{ID: d.id(), device: d}
		d.CommandBuffers = append(d.CommandBuffers, cb)
		buffers = append(buffers, cb)
		d.created("command buffer")
	}
	return buffers, nil
}

func (d *Device) FreeCommandBuffers(buffers []gpu.CommandBuffer) {
	d.record("FreeCommandBuffers %d", len(buffers))
	for _, b := range buffers {
		b.(*CommandBuffer).Freed = true
		d.destroyed("command buffer")
	}
}

func (d *Device) Submit(info gpu.SubmitInfo) error {
	fence := info.Fence.(*Fence)
	d.record("Submit fence=%d", fence.ID)
	if err := d.failure("Submit"); err != nil {
		return err
	}
	if fence.Signaled {
		return errors.Newf("fence %d submitted while still signaled", fence.ID)
	}
	fence.Pending = true
	d.Submits = append(d.Submits, info)
	return nil
}

func (d *Device) Present(info gpu.PresentInfo) (gpu.Status, error) {
	d.record("Present image=%d", info.ImageIndex)
	d.PresentInfos = append(d.PresentInfos, info)
	if len(d.Presents) == 0 {
		return gpu.StatusSuccess, nil
	}
	next := d.Presents[0]
	d.Presents = d.Presents[1:]
	return next.Status, next.Err
}

func (d *Device) WaitIdle() error {
	d.record("WaitIdle")
	d.WaitIdles++
	for _, f := range d.Fences {
		if f.Pending {
			f.Pending = false
			f.Signaled = true
		}
	}
	return d.failure("WaitIdle")
}

func (d *Device) CreateBuffer(usage gpu.BufferUsage, data []byte) (gpu.Buffer, error) {
	d.record("CreateBuffer %s %d", usage, len(data))
	if err := d.failure("CreateBuffer"); err != nil {
		return nil, err
	}
	b := &Buffer{handle: handle{device: d, kind: "buffer", ID: d.id()}, Usage: usage, Data: append([]byte(nil), data...)}
	d.Buffers = append(d.Buffers, b)
	d.created("buffer")
	return b, nil
}

func (d *Device) CreateGraphicsPipeline(info gpu.PipelineCreateInfo) (gpu.Pipeline, error) {
	d.record("CreateGraphicsPipeline")
	if err := d.failure("CreateGraphicsPipeline"); err != nil {
		return nil, err
	}
	p := &Pipeline{handle: handle{device: d, kind: "pipeline", ID: d.id()}, Info: info}
	d.Pipelines = append(d.Pipelines, p)
	d.created("pipeline")
	return p, nil
}

func (d *Device) Identity() gpu.Identity {
	return d.Ident
}

func (d *Device) PipelineCacheData() ([]byte, error) {
	if err := d.failure("PipelineCacheData"); err != nil {
		return nil, err
	}
	return d.CacheData, nil
}
