package swapchain

import (
	"github.com/vkngwrapper/cubes/internal/gpu"
)

type frameSlot struct {
	imageAvailable gpu.Semaphore
	renderFinished gpu.Semaphore
	inFlight       gpu.Fence
}

func (m *Manager) createSyncObjects() error {
	for i := 0; i < m.opts.FramesInFlight; i++ {
		var frame frameSlot
		var err error

		frame.imageAvailable, err = m.device.CreateSemaphore()
		if err != nil {
			return markf(err, ErrCreate, "create image available semaphore %d", i)
		}
		m.frames = append(m.frames, frame)

		m.frames[i].renderFinished, err = m.device.CreateSemaphore()
		if err != nil {
			return markf(err, ErrCreate, "create render finished semaphore %d", i)
		}

		// Signaled so the first wait on every slot returns immediately.
		m.frames[i].inFlight, err = m.device.CreateFence(true)
		if err != nil {
			return markf(err, ErrCreate, "create in flight fence %d", i)
		}
	}

	m.imagesInFlight = make([]gpu.Fence, len(m.images))
	return nil
}

func (m *Manager) destroySyncObjects() {
	for _, frame := range m.frames {
		if frame.inFlight != nil {
			frame.inFlight.Destroy()
		}
		if frame.renderFinished != nil {
			frame.renderFinished.Destroy()
		}
		frame.imageAvailable.Destroy()
	}
	m.frames = nil
	m.imagesInFlight = nil
}
