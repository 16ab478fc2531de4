// Package window owns the SDL2 window the swapchain presents to.
package window

import (
	"github.com/cockroachdb/errors"
	log "github.com/sirupsen/logrus"
	"github.com/veandco/go-sdl2/sdl"
	"github.com/vkngwrapper/core/v3/core1_0"

	"github.com/vkngwrapper/cubes/internal/config"
)

// Events is what happened since the previous poll.
type Events struct {
	Quit    bool
	Resized bool
}

func (e Events) merge(other Events) Events {
	return Events{
		Quit:    e.Quit || other.Quit,
		Resized: e.Resized || other.Resized,
	}
}

// Translate reduces a single SDL event to the events the frame loop reacts to.
func Translate(event sdl.Event) Events {
	switch e := event.(type) {
	case *sdl.QuitEvent:
		return Events{Quit: true}
	case *sdl.WindowEvent:
		switch e.Event {
		case sdl.WINDOWEVENT_RESIZED, sdl.WINDOWEVENT_SIZE_CHANGED, sdl.WINDOWEVENT_MINIMIZED, sdl.WINDOWEVENT_RESTORED:
			return Events{Resized: true}
		case sdl.WINDOWEVENT_CLOSE:
			return Events{Quit: true}
		}
	}
	return Events{}
}

type Window struct {
	window *sdl.Window
	log    log.FieldLogger

	resized     bool
	shouldClose bool
}

// New initializes SDL video and opens a Vulkan capable window. It must be
// called from the main OS thread.
func New(cfg config.WindowConfig, logger log.FieldLogger) (*Window, error) {
	if logger == nil {
		logger = log.StandardLogger()
	}

	if err := sdl.Init(sdl.INIT_VIDEO); err != nil {
		return nil, errors.Wrap(err, "initialize sdl video")
	}

	flags := uint32(sdl.WINDOW_SHOWN | sdl.WINDOW_VULKAN)
	if cfg.Resizable {
		flags |= sdl.WINDOW_RESIZABLE
	}

	window, err := sdl.CreateWindow(cfg.Title, sdl.WINDOWPOS_UNDEFINED, sdl.WINDOWPOS_UNDEFINED, int32(cfg.Width), int32(cfg.Height), flags)
	if err != nil {
		sdl.Quit()
		return nil, errors.Wrap(err, "create window")
	}

	w := &Window{
		window: window,
		log:    logger.WithField("component", "window"),
	}
	w.log.WithFields(log.Fields{
		"title":  cfg.Title,
		"width":  cfg.Width,
		"height": cfg.Height,
	}).Debug("window created")
	return w, nil
}

// Extent is the drawable size in pixels, which is zero while minimized.
func (w *Window) Extent() core1_0.Extent2D {
	width, height := w.window.VulkanGetDrawableSize()
	return core1_0.Extent2D{Width: int(width), Height: int(height)}
}

// PollEvents drains the event queue without blocking.
func (w *Window) PollEvents() Events {
	var events Events
	for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
		events = events.merge(Translate(event))
	}
	w.record(events)
	return events
}

// WaitEvents blocks until at least one event arrives, then drains the queue.
func (w *Window) WaitEvents() {
	events := Translate(sdl.WaitEvent())
	for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
		events = events.merge(Translate(event))
	}
	w.record(events)
}

func (w *Window) record(events Events) {
	if events.Resized {
		w.resized = true
	}
	if events.Quit {
		w.shouldClose = true
	}
}

// WasResized stays true from the first resize event until ResetResized.
func (w *Window) WasResized() bool {
	return w.resized
}

func (w *Window) ResetResized() {
	w.resized = false
}

func (w *Window) ShouldClose() bool {
	return w.shouldClose
}

func (w *Window) VulkanInstanceExtensions() []string {
	return w.window.VulkanGetInstanceExtensions()
}

func (w *Window) SDL() *sdl.Window {
	return w.window
}

func (w *Window) Destroy() {
	if w.window != nil {
		w.window.Destroy()
		w.window = nil
	}
	sdl.Quit()
}
