package vulkan

import (
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/core1_0"

	"github.com/vkngwrapper/cubes/internal/gpu"
)

type buffer struct {
	ctx    *Context
	handle core1_0.Buffer
	memory core1_0.DeviceMemory
	size   int
}

func (b *buffer) Size() int {
	return b.size
}

func (b *buffer) Destroy() {
	b.ctx.deviceDriver.DestroyBuffer(b.handle, nil)
	b.ctx.deviceDriver.FreeMemory(b.memory, nil)
}

// CreateBuffer copies data into a new device local buffer through a host
// visible staging buffer. It blocks until the copy has finished.
func (c *Context) CreateBuffer(usage gpu.BufferUsage, data []byte) (gpu.Buffer, error) {
	var usageFlags core1_0.BufferUsageFlags
	switch usage {
	case gpu.BufferUsageVertex:
		usageFlags = core1_0.BufferUsageVertexBuffer
	case gpu.BufferUsageIndex:
		usageFlags = core1_0.BufferUsageIndexBuffer
	default:
		return nil, errors.Newf("unsupported buffer usage %s", usage)
	}

	bufferSize := len(data)
	stagingBuffer, stagingBufferMemory, err := c.createBuffer(bufferSize, core1_0.BufferUsageTransferSrc, core1_0.MemoryPropertyHostVisible|core1_0.MemoryPropertyHostCoherent)
	if stagingBuffer.Initialized() {
		defer c.deviceDriver.DestroyBuffer(stagingBuffer, nil)
	}
	if stagingBufferMemory.Initialized() {
		defer c.deviceDriver.FreeMemory(stagingBufferMemory, nil)
	}
	if err != nil {
		return nil, errors.Wrap(err, "create staging buffer")
	}

	err = c.writeData(stagingBufferMemory, data)
	if err != nil {
		return nil, err
	}

	handle, memory, err := c.createBuffer(bufferSize, core1_0.BufferUsageTransferDst|usageFlags, core1_0.MemoryPropertyDeviceLocal)
	result := &buffer{ctx: c, handle: handle, memory: memory, size: bufferSize}
	if err != nil {
		if handle.Initialized() {
			c.deviceDriver.DestroyBuffer(handle, nil)
		}
		if memory.Initialized() {
			c.deviceDriver.FreeMemory(memory, nil)
		}
		return nil, errors.Wrapf(err, "create %s buffer", usage)
	}

	err = c.copyBuffer(stagingBuffer, handle, bufferSize)
	if err != nil {
		result.Destroy()
		return nil, errors.Wrapf(err, "upload %s buffer", usage)
	}
	return result, nil
}

func (c *Context) writeData(memory core1_0.DeviceMemory, data []byte) error {
	memoryPtr, _, err := c.deviceDriver.MapMemory(memory, 0, len(data), 0)
	if err != nil {
		return errors.Wrap(err, "map staging memory")
	}
	defer c.deviceDriver.UnmapMemory(memory)

	copy(unsafe.Slice((*byte)(memoryPtr), len(data)), data)
	return nil
}

func (c *Context) createBuffer(size int, usage core1_0.BufferUsageFlags, properties core1_0.MemoryPropertyFlags) (core1_0.Buffer, core1_0.DeviceMemory, error) {
	buf, _, err := c.deviceDriver.CreateBuffer(nil, core1_0.BufferCreateInfo{
		Size:        size,
		Usage:       usage,
		SharingMode: core1_0.SharingModeExclusive,
	})
	if err != nil {
		return core1_0.Buffer{}, core1_0.DeviceMemory{}, err
	}

	memRequirements := c.deviceDriver.GetBufferMemoryRequirements(buf)
	memoryTypeIndex, err := c.findMemoryType(memRequirements.MemoryTypeBits, properties)
	if err != nil {
		return buf, core1_0.DeviceMemory{}, err
	}

	memory, _, err := c.deviceDriver.AllocateMemory(nil, core1_0.MemoryAllocateInfo{
		AllocationSize:  memRequirements.Size,
		MemoryTypeIndex: memoryTypeIndex,
	})
	if err != nil {
		return buf, core1_0.DeviceMemory{}, err
	}

	_, err = c.deviceDriver.BindBufferMemory(buf, memory, 0)
	return buf, memory, err
}

func (c *Context) findMemoryType(typeFilter uint32, properties core1_0.MemoryPropertyFlags) (int, error) {
	memProperties := c.instanceDriver.GetPhysicalDeviceMemoryProperties(c.physicalDevice)
	for i, memoryType := range memProperties.MemoryTypes {
		typeBit := uint32(1 << i)

		if (typeFilter&typeBit) != 0 && (memoryType.PropertyFlags&properties) == properties {
			return i, nil
		}
	}

	return 0, errors.Newf("no memory type matches filter 0x%x with properties %s", typeFilter, properties)
}

func (c *Context) beginSingleTimeCommands() (core1_0.CommandBuffer, error) {
	buffers, _, err := c.deviceDriver.AllocateCommandBuffers(core1_0.CommandBufferAllocateInfo{
		CommandPool:        c.commandPool,
		Level:              core1_0.CommandBufferLevelPrimary,
		CommandBufferCount: 1,
	})
	if err != nil {
		return core1_0.CommandBuffer{}, err
	}

	buf := buffers[0]
	_, err = c.deviceDriver.BeginCommandBuffer(buf, core1_0.CommandBufferBeginInfo{
		Flags: core1_0.CommandBufferUsageOneTimeSubmit,
	})
	if err != nil {
		c.deviceDriver.FreeCommandBuffers(buf)
		return core1_0.CommandBuffer{}, err
	}
	return buf, nil
}

func (c *Context) endSingleTimeCommands(buf core1_0.CommandBuffer) error {
	defer c.deviceDriver.FreeCommandBuffers(buf)

	_, err := c.deviceDriver.EndCommandBuffer(buf)
	if err != nil {
		return err
	}

	_, err = c.deviceDriver.QueueSubmit(c.graphicsQueue, nil,
		core1_0.SubmitInfo{
			CommandBuffers: []core1_0.CommandBuffer{buf},
		},
	)
	if err != nil {
		return err
	}

	_, err = c.deviceDriver.QueueWaitIdle(c.graphicsQueue)
	return err
}

func (c *Context) copyBuffer(srcBuffer core1_0.Buffer, dstBuffer core1_0.Buffer, size int) error {
	buf, err := c.beginSingleTimeCommands()
	if err != nil {
		return err
	}

	err = c.deviceDriver.CmdCopyBuffer(buf, srcBuffer, dstBuffer,
		core1_0.BufferCopy{
			SrcOffset: 0,
			DstOffset: 0,
			Size:      size,
		},
	)
	if err != nil {
		c.deviceDriver.FreeCommandBuffers(buf)
		return err
	}

	return c.endSingleTimeCommands(buf)
}
