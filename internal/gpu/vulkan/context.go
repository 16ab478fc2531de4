// Package vulkan implements the gpu interfaces on top of vkngwrapper.
package vulkan

import (
	"github.com/cockroachdb/errors"
	log "github.com/sirupsen/logrus"
	"github.com/veandco/go-sdl2/sdl"
	"github.com/vkngwrapper/core/v3"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/ext_debug_utils"
	"github.com/vkngwrapper/extensions/v3/khr_surface"
	"github.com/vkngwrapper/extensions/v3/khr_swapchain"

	"github.com/vkngwrapper/cubes/internal/gpu"
)

const validationLayer = "VK_LAYER_KHRONOS_validation"

var deviceExtensions = []string{khr_swapchain.ExtensionName}

type Options struct {
	ApplicationName string
	// Validation enables the Khronos validation layer and routes its messages
	// to the logger.
	Validation bool
	Logger     log.FieldLogger
}

// Context owns the instance, the window surface, the logical device and the
// command pool every other GPU object is created from.
type Context struct {
	log    log.FieldLogger
	opts   Options
	window *sdl.Window

	globalDriver   core1_0.GlobalDriver
	instanceDriver core1_0.CoreInstanceDriver
	deviceDriver   core1_0.CoreDeviceDriver

	debugDriver        ext_debug_utils.ExtensionDriver
	debugMessenger     ext_debug_utils.DebugUtilsMessenger
	surfaceExtension   khr_surface.ExtensionDriver
	surface            khr_surface.Surface
	swapchainExtension khr_swapchain.ExtensionDriver

	physicalDevice core1_0.PhysicalDevice
	properties     *core1_0.PhysicalDeviceProperties
	queueFamilies  queueFamilyIndices

	graphicsQueue core1_0.Queue
	presentQueue  core1_0.Queue

	commandPool   core1_0.CommandPool
	pipelineCache core1_0.PipelineCache
}

var _ gpu.Device = (*Context)(nil)
var _ gpu.Resources = (*Context)(nil)

// New brings up Vulkan for window. It must be called from the thread that
// created the window.
func New(window *sdl.Window, opts Options) (*Context, error) {
	if opts.Logger == nil {
		opts.Logger = log.StandardLogger()
	}
	if opts.ApplicationName == "" {
		opts.ApplicationName = "cubes"
	}

	c := &Context{
		log:    opts.Logger.WithField("component", "vulkan"),
		opts:   opts,
		window: window,
	}

	err := c.init()
	if err != nil {
		c.Destroy()
		return nil, err
	}
	return c, nil
}

func (c *Context) init() error {
	var err error
	c.globalDriver, err = core.CreateDriverFromProcAddr(sdl.VulkanGetVkGetInstanceProcAddr())
	if err != nil {
		return errors.Wrap(err, "load vulkan driver")
	}

	steps := []struct {
		name string
		run  func() error
	}{
		{"create instance", c.createInstance},
		{"set up debug messenger", c.setupDebugMessenger},
		{"create surface", c.createSurface},
		{"pick physical device", c.pickPhysicalDevice},
		{"create logical device", c.createLogicalDevice},
		{"create command pool", c.createCommandPool},
	}
	for _, step := range steps {
		err = step.run()
		if err != nil {
			return errors.Wrap(err, step.name)
		}
	}
	return nil
}

// WaitIdle blocks until the device has finished all submitted work.
func (c *Context) WaitIdle() error {
	_, err := c.deviceDriver.DeviceWaitIdle()
	return errors.Wrap(err, "device wait idle")
}

// Destroy releases everything the context created. Objects created through the
// context must be destroyed first.
func (c *Context) Destroy() {
	if c.deviceDriver != nil {
		if _, err := c.deviceDriver.DeviceWaitIdle(); err != nil {
			c.log.WithError(err).Error("waiting for device idle before destroying context")
		}

		if c.pipelineCache.Initialized() {
			c.deviceDriver.DestroyPipelineCache(c.pipelineCache, nil)
			c.pipelineCache = core1_0.PipelineCache{}
		}

		if c.commandPool.Initialized() {
			c.deviceDriver.DestroyCommandPool(c.commandPool, nil)
			c.commandPool = core1_0.CommandPool{}
		}

		c.deviceDriver.DestroyDevice(nil)
		c.deviceDriver = nil
	}

	if c.debugMessenger.Initialized() {
		c.debugDriver.DestroyDebugUtilsMessenger(c.debugMessenger, nil)
		c.debugMessenger = ext_debug_utils.DebugUtilsMessenger{}
	}

	if c.surface.Initialized() {
		c.surfaceExtension.DestroySurface(c.surface, nil)
		c.surface = khr_surface.Surface{}
	}

	if c.instanceDriver != nil {
		c.instanceDriver.DestroyInstance(nil)
		c.instanceDriver = nil
	}
}
