package gputest

import (
	"fmt"

	"github.com/vkngwrapper/core/v3/core1_0"

	"github.com/vkngwrapper/cubes/internal/gpu"
)

type handle struct {
	ID        int
	Destroyed bool

	device *Device
	kind   string
}

func (h *handle) Destroy() {
	if h.Destroyed {
		panic(fmt.Sprintf("%s %d destroyed twice", h.kind, h.ID))
	}
	h.Destroyed = true
	h.device.destroyed(h.kind)
}

type image int

func (i image) Index() int { return int(i) }

type Semaphore struct {
	handle
}

type RenderPass struct {
	handle
	Info gpu.RenderPassCreateInfo
}

type Pipeline struct {
	handle
	Info gpu.PipelineCreateInfo
}

type Buffer struct {
	handle
	Usage gpu.BufferUsage
	Data  []byte
}

func (b *Buffer) Size() int { return len(b.Data) }

// Fence completes pending work when waited on.
type Fence struct {
	ID        int
	Signaled  bool
	Pending   bool
	Waits     int
	Resets    int
	Destroyed bool

	device *Device
}

func (f *Fence) Wait() error {
	f.Waits++
	f.device.record("Wait fence=%d", f.ID)
	if f.Pending {
		f.Pending = false
		f.Signaled = true
	}
	return f.device.failure("Wait")
}

func (f *Fence) Reset() error {
	f.Resets++
	f.device.record("Reset fence=%d", f.ID)
	f.Signaled = false
	return f.device.failure("Reset")
}

func (f *Fence) Destroy() {
	if f.Destroyed {
		panic(fmt.Sprintf("fence %d destroyed twice", f.ID))
	}
	if f.Pending {
		panic(fmt.Sprintf("fence %d destroyed while its work is pending", f.ID))
	}
	f.Destroyed = true
	f.device.destroyed("fence")
}

type Swapchain struct {
	ID        int
	Info      gpu.SwapchainCreateInfo
	Acquired  []int
	Destroyed bool

	images []gpu.Image
	next   int
	device *Device
}

func (s *Swapchain) Images() ([]gpu.Image, error) {
	if err := s.device.failure("Images"); err != nil {
		return nil, err
	}
	return s.images, nil
}

func (s *Swapchain) AcquireNextImage(signal gpu.Semaphore) (int, gpu.Status, error) {
	d := s.device
	if len(d.Acquires) > 0 {
		next := d.Acquires[0]
		d.Acquires = d.Acquires[1:]
		d.record("Acquire swapchain=%d image=%d status=%s", s.ID, next.Index, next.Status)
		if next.Err == nil && next.Status != gpu.StatusOutOfDate {
			s.Acquired = append(s.Acquired, next.Index)
		}
		return next.Index, next.Status, next.Err
	}

	index := s.next
	s.next = (s.next + 1) % len(s.images)
	s.Acquired = append(s.Acquired, index)
	d.record("Acquire swapchain=%d image=%d status=%s", s.ID, index, gpu.StatusSuccess)
	return index, gpu.StatusSuccess, nil
}

func (s *Swapchain) Destroy() {
	if s.Destroyed {
		panic(fmt.Sprintf("swapchain %d destroyed twice", s.ID))
	}
	s.Destroyed = true
	s.device.record("DestroySwapchain %d", s.ID)
	s.device.destroyed("swapchain")
}

// CommandBuffer records the commands issued into it as strings.
type CommandBuffer struct {
	ID        int
	Recording bool
	Freed     bool
	Commands  []string
	// Pushes holds a copy of every push constant block, in order.
	Pushes [][]byte

	device *Device
}

func (c *CommandBuffer) cmd(format string, args ...any) {
	c.Commands = append(c.Commands, fmt.Sprintf(format, args...))
}

func (c *CommandBuffer) Begin() error {
	if c.Recording {
		return fmt.Errorf("command buffer %d already recording", c.ID)
	}
	if err := c.device.failure("Begin"); err != nil {
		return err
	}
	c.Recording = true
	c.Commands = c.Commands[:0]
	c.Pushes = nil
	return nil
}

func (c *CommandBuffer) End() error {
	if !c.Recording {
		return fmt.Errorf("command buffer %d not recording", c.ID)
	}
	c.Recording = false
	return c.device.failure("End")
}

func (c *CommandBuffer) BeginRenderPass(begin gpu.RenderPassBegin) error {
	c.cmd("BeginRenderPass %dx%d", begin.Extent.Width, begin.Extent.Height)
	return nil
}

func (c *CommandBuffer) EndRenderPass() {
	c.cmd("EndRenderPass")
}

func (c *CommandBuffer) SetViewport(viewport core1_0.Viewport) {
	c.cmd("SetViewport %gx%g", viewport.Width, viewport.Height)
}

func (c *CommandBuffer) SetScissor(scissor core1_0.Rect2D) {
	c.cmd("SetScissor %dx%d", scissor.Extent.Width, scissor.Extent.Height)
}

func (c *CommandBuffer) BindPipeline(pipeline gpu.Pipeline) {
	c.cmd("BindPipeline %d", pipeline.(*Pipeline).ID)
}

func (c *CommandBuffer) PushConstants(pipeline gpu.Pipeline, data []byte) {
	c.cmd("PushConstants %d", len(data))
	c.Pushes = append(c.Pushes, append([]byte(nil), data...))
}

func (c *CommandBuffer) BindVertexBuffer(buffer gpu.Buffer) {
	c.cmd("BindVertexBuffer %d", buffer.(*Buffer).ID)
}

func (c *CommandBuffer) BindIndexBuffer(buffer gpu.Buffer) {
	c.cmd("BindIndexBuffer %d", buffer.(*Buffer).ID)
}

func (c *CommandBuffer) Draw(vertexCount int) {
	c.cmd("Draw %d", vertexCount)
}

func (c *CommandBuffer) DrawIndexed(indexCount int) {
	c.cmd("DrawIndexed %d", indexCount)
}
