// Package gpu describes the GPU context the frame loop is driven against.
//
// The interfaces are deliberately narrow: they expose exactly the presentation,
// synchronization and command recording primitives used by the swapchain manager,
// the frame orchestrator and the draw layer. The vulkan subpackage implements them
// on top of vkngwrapper; gputest implements them in memory for tests.
package gpu

import (
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_surface"
)

// Status is the non-error outcome of acquiring or presenting a swapchain image.
type Status int

const (
	StatusSuccess Status = iota
	// StatusSuboptimal means the image can still be presented but the swapchain
	// no longer matches the surface exactly.
	StatusSuboptimal
	// StatusOutOfDate means the swapchain can no longer present to the surface and
	// must be recreated before the next frame.
	StatusOutOfDate
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusSuboptimal:
		return "suboptimal"
	case StatusOutOfDate:
		return "out-of-date"
	default:
		return "unknown"
	}
}

// NeedsRecreate reports whether the swapchain should be rebuilt after an operation
// returned this status.
func (s Status) NeedsRecreate() bool {
	return s == StatusSuboptimal || s == StatusOutOfDate
}

// SurfaceSupport is what the device reports about presenting to the window surface.
type SurfaceSupport struct {
	Capabilities *khr_surface.SurfaceCapabilities
	Formats      []khr_surface.SurfaceFormat
	PresentModes []khr_surface.PresentMode
}

type SwapchainCreateInfo struct {
	MinImageCount int
	Format        khr_surface.SurfaceFormat
	Extent        core1_0.Extent2D
	PresentMode   khr_surface.PresentMode
	PreTransform  khr_surface.SurfaceTransformFlags

	// OldSwapchain is the swapchain being replaced, or nil.
	OldSwapchain Swapchain
}

type RenderPassCreateInfo struct {
	ColorFormat core1_0.Format

	// WaitForImage adds an external subpass dependency so that color attachment
	// writes do not start before the acquired image is available.
	WaitForImage bool
}

type SubmitInfo struct {
	CommandBuffer CommandBuffer
	WaitSemaphore Semaphore
	WaitStage     core1_0.PipelineStageFlags
	Signal        Semaphore
	Fence         Fence
}

type PresentInfo struct {
	Swapchain     Swapchain
	ImageIndex    int
	WaitSemaphore Semaphore
}

// Device is the swapchain-facing half of the GPU context.
type Device interface {
	SurfaceSupport() (SurfaceSupport, error)

	CreateSwapchain(info SwapchainCreateInfo) (Swapchain, error)
	CreateImageView(image Image, format core1_0.Format) (ImageView, error)
	CreateRenderPass(info RenderPassCreateInfo) (RenderPass, error)
	CreateFramebuffer(renderPass RenderPass, view ImageView, extent core1_0.Extent2D) (Framebuffer, error)
	CreateSemaphore() (Semaphore, error)
	CreateFence(signaled bool) (Fence, error)

	AllocateCommandBuffers(count int) ([]CommandBuffer, error)
	FreeCommandBuffers(buffers []CommandBuffer)

	Submit(info SubmitInfo) error
	Present(info PresentInfo) (Status, error)

	// WaitIdle blocks until the device has finished all submitted work.
	WaitIdle() error
}

// Fence is a GPU to CPU completion signal.
type Fence interface {
	// Wait blocks until the fence is signaled. There is no timeout.
	Wait() error
	Reset() error
	Destroy()
}

// Semaphore orders queue operations on the GPU.
type Semaphore interface {
	Destroy()
}

// Image is a presentable image owned by a Swapchain. It is never destroyed directly.
type Image interface {
	Index() int
}

type ImageView interface {
	Destroy()
}

type Framebuffer interface {
	Destroy()
}

type RenderPass interface {
	Destroy()
}

// Swapchain is the raw presentation engine object behind a swapchain manager.
type Swapchain interface {
	Images() ([]Image, error)
	// AcquireNextImage returns the index of the next image and signals the
	// semaphore once the presentation engine has released it.
	AcquireNextImage(signal Semaphore) (int, Status, error)
	Destroy()
}
