package vulkan

import (
	"github.com/vkngwrapper/core/v3/common"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_swapchain"

	"github.com/vkngwrapper/cubes/internal/gpu"
)

type fence struct {
	ctx    *Context
	handle core1_0.Fence
}

func (f *fence) Wait() error {
	_, err := f.ctx.deviceDriver.WaitForFences(true, common.NoTimeout, f.handle)
	return err
}

func (f *fence) Reset() error {
	_, err := f.ctx.deviceDriver.ResetFences(f.handle)
	return err
}

func (f *fence) Destroy() {
	f.ctx.deviceDriver.DestroyFence(f.handle, nil)
}

type semaphore struct {
	ctx    *Context
	handle core1_0.Semaphore
}

func (s *semaphore) Destroy() {
	s.ctx.deviceDriver.DestroySemaphore(s.handle, nil)
}

type image struct {
	handle core1_0.Image
	index  int
}

func (i *image) Index() int {
	return i.index
}

type imageView struct {
	ctx    *Context
	handle core1_0.ImageView
}

func (v *imageView) Destroy() {
	v.ctx.deviceDriver.DestroyImageView(v.handle, nil)
}

type framebuffer struct {
	ctx    *Context
	handle core1_0.Framebuffer
}

func (f *framebuffer) Destroy() {
	f.ctx.deviceDriver.DestroyFramebuffer(f.handle, nil)
}

type renderPass struct {
	ctx    *Context
	handle core1_0.RenderPass
}

func (r *renderPass) Destroy() {
	r.ctx.deviceDriver.DestroyRenderPass(r.handle, nil)
}

type swapchain struct {
	ctx    *Context
	handle khr_swapchain.Swapchain
}

func (s *swapchain) Images() ([]gpu.Image, error) {
	images, _, err := s.ctx.swapchainExtension.GetSwapchainImages(s.handle)
	if err != nil {
		return nil, err
	}

	result := make([]gpu.Image, 0, len(images))
	for i, img := range images {
		result = append(result, &image{handle: img, index: i})
	}
	return result, nil
}

func (s *swapchain) AcquireNextImage(signal gpu.Semaphore) (int, gpu.Status, error) {
	sem := signal.(*semaphore).handle
	imageIndex, res, err := s.ctx.swapchainExtension.AcquireNextImage(s.handle, common.NoTimeout, &sem, nil)
	switch {
	case res == khr_swapchain.VKErrorOutOfDate:
		return imageIndex, gpu.StatusOutOfDate, nil
	case err != nil:
		return imageIndex, gpu.StatusSuccess, err
	case res == khr_swapchain.VKSuboptimal:
		return imageIndex, gpu.StatusSuboptimal, nil
	}
	return imageIndex, gpu.StatusSuccess, nil
}

func (s *swapchain) Destroy() {
	s.ctx.swapchainExtension.DestroySwapchain(s.handle, nil)
}

type commandBuffer struct {
	ctx    *Context
	handle core1_0.CommandBuffer
}

func (b *commandBuffer) Begin() error {
	// The pool allows individual resets, so beginning implicitly resets.
	_, err := b.ctx.deviceDriver.BeginCommandBuffer(b.handle, core1_0.CommandBufferBeginInfo{})
	return err
}

func (b *commandBuffer) End() error {
	_, err := b.ctx.deviceDriver.EndCommandBuffer(b.handle)
	return err
}

func (b *commandBuffer) BeginRenderPass(begin gpu.RenderPassBegin) error {
	return b.ctx.deviceDriver.CmdBeginRenderPass(b.handle, core1_0.SubpassContentsInline,
		core1_0.RenderPassBeginInfo{
			RenderPass:  begin.RenderPass.(*renderPass).handle,
			Framebuffer: begin.Framebuffer.(*framebuffer).handle,
			RenderArea: core1_0.Rect2D{
				Offset: core1_0.Offset2D{X: 0, Y: 0},
				Extent: begin.Extent,
			},
			ClearValues: []core1_0.ClearValue{
				core1_0.ClearValueFloat(begin.ClearColor),
			},
		})
}

func (b *commandBuffer) EndRenderPass() {
	b.ctx.deviceDriver.CmdEndRenderPass(b.handle)
}

func (b *commandBuffer) SetViewport(viewport core1_0.Viewport) {
	b.ctx.deviceDriver.CmdSetViewport(b.handle, viewport)
}

func (b *commandBuffer) SetScissor(scissor core1_0.Rect2D) {
	b.ctx.deviceDriver.CmdSetScissor(b.handle, scissor)
}

func (b *commandBuffer) BindPipeline(p gpu.Pipeline) {
	b.ctx.deviceDriver.CmdBindPipeline(b.handle, core1_0.PipelineBindPointGraphics, p.(*pipeline).handle)
}

func (b *commandBuffer) PushConstants(p gpu.Pipeline, data []byte) {
	b.ctx.deviceDriver.CmdPushConstants(b.handle, p.(*pipeline).layout, pushConstantStages, 0, data)
}

func (b *commandBuffer) BindVertexBuffer(buf gpu.Buffer) {
	b.ctx.deviceDriver.CmdBindVertexBuffers(b.handle, 0, []core1_0.Buffer{buf.(*buffer).handle}, []int{0})
}

func (b *commandBuffer) BindIndexBuffer(buf gpu.Buffer) {
	b.ctx.deviceDriver.CmdBindIndexBuffer(b.handle, buf.(*buffer).handle, 0, core1_0.IndexTypeUInt32)
}

func (b *commandBuffer) Draw(vertexCount int) {
	b.ctx.deviceDriver.CmdDraw(b.handle, vertexCount, 1, 0, 0)
}

func (b *commandBuffer) DrawIndexed(indexCount int) {
	b.ctx.deviceDriver.CmdDrawIndexed(b.handle, indexCount, 1, 0, 0, 0)
}
