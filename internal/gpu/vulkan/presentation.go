package vulkan

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_surface"
	"github.com/vkngwrapper/extensions/v3/khr_swapchain"

	"github.com/vkngwrapper/cubes/internal/gpu"
)

func (c *Context) CreateSwapchain(info gpu.SwapchainCreateInfo) (gpu.Swapchain, error) {
	sharingMode := core1_0.SharingModeExclusive
	var queueFamilyIndices []int

	indices := c.queueFamilies
	if *indices.GraphicsFamily != *indices.PresentFamily {
		sharingMode = core1_0.SharingModeConcurrent
		queueFamilyIndices = append(queueFamilyIndices, *indices.GraphicsFamily, *indices.PresentFamily)
	}

	var oldSwapchain khr_swapchain.Swapchain
	if info.OldSwapchain != nil {
		oldSwapchain = info.OldSwapchain.(*swapchain).handle
	}

	handle, _, err := c.swapchainExtension.CreateSwapchain(nil, khr_swapchain.SwapchainCreateInfo{
		Surface: c.surface,

		MinImageCount:    info.MinImageCount,
		ImageFormat:      info.Format.Format,
		ImageColorSpace:  info.Format.ColorSpace,
		ImageExtent:      info.Extent,
		ImageArrayLayers: 1,
		ImageUsage:       core1_0.ImageUsageColorAttachment,

		ImageSharingMode:   sharingMode,
		QueueFamilyIndices: queueFamilyIndices,

		PreTransform:   info.PreTransform,
		CompositeAlpha: khr_surface.CompositeAlphaOpaque,
		PresentMode:    info.PresentMode,
		Clipped:        true,
		OldSwapchain:   oldSwapchain,
	})
	if err != nil {
		return nil, err
	}

	return &swapchain{ctx: c, handle: handle}, nil
}

func (c *Context) CreateImageView(img gpu.Image, format core1_0.Format) (gpu.ImageView, error) {
	handle, _, err := c.deviceDriver.CreateImageView(nil, core1_0.ImageViewCreateInfo{
		Image:    img.(*image).handle,
		ViewType: core1_0.ImageViewType2D,
		Format:   format,
		SubresourceRange: core1_0.ImageSubresourceRange{
			AspectMask:     core1_0.ImageAspectColor,
			BaseMipLevel:   0,
			LevelCount:     1,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
	})
	if err != nil {
		return nil, err
	}
	return &imageView{ctx: c, handle: handle}, nil
}

func (c *Context) CreateRenderPass(info gpu.RenderPassCreateInfo) (gpu.RenderPass, error) {
	var dependencies []core1_0.SubpassDependency
	if info.WaitForImage {
		dependencies = append(dependencies, core1_0.SubpassDependency{
			SrcSubpass: core1_0.SubpassExternal,
			DstSubpass: 0,

			SrcStageMask:  core1_0.PipelineStageColorAttachmentOutput,
			SrcAccessMask: 0,

			DstStageMask:  core1_0.PipelineStageColorAttachmentOutput,
			DstAccessMask: core1_0.AccessColorAttachmentWrite,
		})
	}

	handle, _, err := c.deviceDriver.CreateRenderPass(nil, core1_0.RenderPassCreateInfo{
		Attachments: []core1_0.AttachmentDescription{
			{
				Format:         info.ColorFormat,
				Samples:        core1_0.Samples1,
				LoadOp:         core1_0.AttachmentLoadOpClear,
				StoreOp:        core1_0.AttachmentStoreOpStore,
				StencilLoadOp:  core1_0.AttachmentLoadOpDontCare,
				StencilStoreOp: core1_0.AttachmentStoreOpDontCare,
				InitialLayout:  core1_0.ImageLayoutUndefined,
				FinalLayout:    khr_swapchain.ImageLayoutPresentSrc,
			},
		},
		Subpasses: []core1_0.SubpassDescription{
			{
				PipelineBindPoint: core1_0.PipelineBindPointGraphics,
				ColorAttachments: []core1_0.AttachmentReference{
					{
						Attachment: 0,
						Layout:     core1_0.ImageLayoutColorAttachmentOptimal,
					},
				},
			},
		},
		SubpassDependencies: dependencies,
	})
	if err != nil {
		return nil, err
	}
	return &renderPass{ctx: c, handle: handle}, nil
}

func (c *Context) CreateFramebuffer(rp gpu.RenderPass, view gpu.ImageView, extent core1_0.Extent2D) (gpu.Framebuffer, error) {
	handle, _, err := c.deviceDriver.CreateFramebuffer(nil, core1_0.FramebufferCreateInfo{
		RenderPass: rp.(*renderPass).handle,
		Layers:     1,
		Attachments: []core1_0.ImageView{
			view.(*imageView).handle,
		},
		Width:  extent.Width,
		Height: extent.Height,
	})
	if err != nil {
		return nil, err
	}
	return &framebuffer{ctx: c, handle: handle}, nil
}

func (c *Context) CreateSemaphore() (gpu.Semaphore, error) {
	handle, _, err := c.deviceDriver.CreateSemaphore(nil, core1_0.SemaphoreCreateInfo{})
	if err != nil {
		return nil, err
	}
	return &semaphore{ctx: c, handle: handle}, nil
}

func (c *Context) CreateFence(signaled bool) (gpu.Fence, error) {
	var flags core1_0.FenceCreateFlags
	if signaled {
		flags = core1_0.FenceCreateSignaled
	}

	handle, _, err := c.deviceDriver.CreateFence(nil, core1_0.FenceCreateInfo{Flags: flags})
	if err != nil {
		return nil, err
	}
	return &fence{ctx: c, handle: handle}, nil
}

func (c *Context) AllocateCommandBuffers(count int) ([]gpu.CommandBuffer, error) {
	buffers, _, err := c.deviceDriver.AllocateCommandBuffers(core1_0.CommandBufferAllocateInfo{
		CommandPool:        c.commandPool,
		Level:              core1_0.CommandBufferLevelPrimary,
		CommandBufferCount: count,
	})
	if err != nil {
		return nil, err
	}

	result := make([]gpu.CommandBuffer, 0, len(buffers))
	for _, buf := range buffers {
		result = append(result, &commandBuffer{ctx: c, handle: buf})
	}
	return result, nil
}

func (c *Context) FreeCommandBuffers(buffers []gpu.CommandBuffer) {
	handles := make([]core1_0.CommandBuffer, 0, len(buffers))
	for _, buf := range buffers {
		handles = append(handles, buf.(*commandBuffer).handle)
	}
	c.deviceDriver.FreeCommandBuffers(handles...)
}

func (c *Context) Submit(info gpu.SubmitInfo) error {
	var signalFence *core1_0.Fence
	if info.Fence != nil {
		signalFence = &info.Fence.(*fence).handle
	}

	submit := core1_0.SubmitInfo{
		CommandBuffers: []core1_0.CommandBuffer{info.CommandBuffer.(*commandBuffer).handle},
	}
	if info.WaitSemaphore != nil {
		submit.WaitSemaphores = []core1_0.Semaphore{info.WaitSemaphore.(*semaphore).handle}
		submit.WaitDstStageMask = []core1_0.PipelineStageFlags{info.WaitStage}
	}
	if info.Signal != nil {
		submit.SignalSemaphores = []core1_0.Semaphore{info.Signal.(*semaphore).handle}
	}

	_, err := c.deviceDriver.QueueSubmit(c.graphicsQueue, signalFence, submit)
	return err
}

func (c *Context) Present(info gpu.PresentInfo) (gpu.Status, error) {
	res, err := c.swapchainExtension.QueuePresent(c.presentQueue, khr_swapchain.PresentInfo{
		WaitSemaphores: []core1_0.Semaphore{info.WaitSemaphore.(*semaphore).handle},
		Swapchains:     []khr_swapchain.Swapchain{info.Swapchain.(*swapchain).handle},
		ImageIndices:   []int{info.ImageIndex},
	})
	switch {
	case res == khr_swapchain.VKErrorOutOfDate:
		return gpu.StatusOutOfDate, nil
	case err != nil:
		return gpu.StatusSuccess, errors.Wrap(err, "queue present")
	case res == khr_swapchain.VKSuboptimal:
		return gpu.StatusSuboptimal, nil
	}
	return gpu.StatusSuccess, nil
}
