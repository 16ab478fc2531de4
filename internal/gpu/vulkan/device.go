package vulkan

import (
	"github.com/cockroachdb/errors"
	log "github.com/sirupsen/logrus"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_portability_subset"
	"github.com/vkngwrapper/extensions/v3/khr_swapchain"

	"github.com/vkngwrapper/cubes/internal/gpu"
)

type queueFamilyIndices struct {
	GraphicsFamily *int
	PresentFamily  *int
}

func (i *queueFamilyIndices) IsComplete() bool {
	return i.GraphicsFamily != nil && i.PresentFamily != nil
}

// Unique lists each complete family once, graphics first.
func (i *queueFamilyIndices) Unique() []int {
	families := []int{*i.GraphicsFamily}
	if *i.PresentFamily != *i.GraphicsFamily {
		families = append(families, *i.PresentFamily)
	}
	return families
}

func (c *Context) pickPhysicalDevice() error {
	physicalDevices, _, err := c.instanceDriver.EnumeratePhysicalDevices()
	if err != nil {
		return err
	}

	for _, device := range physicalDevices {
		indices, suitable := c.isDeviceSuitable(device)
		if !suitable {
			continue
		}

		c.physicalDevice = device
		c.queueFamilies = indices
		c.properties, err = c.instanceDriver.GetPhysicalDeviceProperties(device)
		if err != nil {
			return err
		}
		break
	}

	if !c.physicalDevice.Initialized() {
		return errors.New("no GPU can present to the window surface")
	}

	c.log.WithFields(log.Fields{
		"device":   c.properties.DriverName,
		"vendor":   c.properties.VendorID,
		"graphics": *c.queueFamilies.GraphicsFamily,
		"present":  *c.queueFamilies.PresentFamily,
	}).Info("physical device selected")
	return nil
}

func (c *Context) isDeviceSuitable(device core1_0.PhysicalDevice) (queueFamilyIndices, bool) {
	indices, err := c.findQueueFamilies(device)
	if err != nil || !indices.IsComplete() {
		return indices, false
	}

	if !c.checkDeviceExtensionSupport(device) {
		return indices, false
	}

	support, err := c.querySurfaceSupport(device)
	if err != nil {
		return indices, false
	}
	return indices, len(support.Formats) > 0 && len(support.PresentModes) > 0
}

func (c *Context) checkDeviceExtensionSupport(device core1_0.PhysicalDevice) bool {
	extensions, _, err := c.instanceDriver.EnumerateDeviceExtensionProperties(device)
	if err != nil {
		return false
	}

	for _, extension := range deviceExtensions {
		_, hasExtension := extensions[extension]
		if !hasExtension {
			return false
		}
	}

	return true
}

func (c *Context) findQueueFamilies(device core1_0.PhysicalDevice) (queueFamilyIndices, error) {
	indices := queueFamilyIndices{}
	queueFamilies := c.instanceDriver.GetPhysicalDeviceQueueFamilyProperties(device)

	for queueFamilyIdx, queueFamily := range queueFamilies {
		if (queueFamily.QueueFlags & core1_0.QueueGraphics) != 0 {
			indices.GraphicsFamily = new(int)
			*indices.GraphicsFamily = queueFamilyIdx
		}

		supported, _, err := c.surfaceExtension.GetPhysicalDeviceSurfaceSupport(c.surface, device, queueFamilyIdx)
		if err != nil {
			return indices, err
		}

		if supported {
			indices.PresentFamily = new(int)
			*indices.PresentFamily = queueFamilyIdx
		}

		if indices.IsComplete() {
			break
		}
	}

	return indices, nil
}

func (c *Context) querySurfaceSupport(device core1_0.PhysicalDevice) (gpu.SurfaceSupport, error) {
	var support gpu.SurfaceSupport
	var err error

	support.Capabilities, _, err = c.surfaceExtension.GetPhysicalDeviceSurfaceCapabilities(c.surface, device)
	if err != nil {
		return support, err
	}

	support.Formats, _, err = c.surfaceExtension.GetPhysicalDeviceSurfaceFormats(c.surface, device)
	if err != nil {
		return support, err
	}

	support.PresentModes, _, err = c.surfaceExtension.GetPhysicalDeviceSurfacePresentModes(c.surface, device)
	return support, err
}

// SurfaceSupport is queried fresh on every call since the window may have
// changed size since the last swapchain was built.
func (c *Context) SurfaceSupport() (gpu.SurfaceSupport, error) {
	return c.querySurfaceSupport(c.physicalDevice)
}

func (c *Context) createLogicalDevice() error {
	indices := c.queueFamilies

	var queueFamilyOptions []core1_0.DeviceQueueCreateInfo
	queuePriority := float32(1.0)
	for _, queueFamily := range indices.Unique() {
		queueFamilyOptions = append(queueFamilyOptions, core1_0.DeviceQueueCreateInfo{
			QueueFamilyIndex: queueFamily,
			QueuePriorities:  []float32{queuePriority},
		})
	}

	var extensionNames []string
	extensionNames = append(extensionNames, deviceExtensions...)

	// Required on implementations layered over other APIs, such as MoltenVK.
	extensions, _, err := c.instanceDriver.EnumerateDeviceExtensionProperties(c.physicalDevice)
	if err != nil {
		return err
	}

	_, supported := extensions[khr_portability_subset.ExtensionName]
	if supported {
		extensionNames = append(extensionNames, khr_portability_subset.ExtensionName)
	}

	device, _, err := c.instanceDriver.CreateDevice(c.physicalDevice, nil, core1_0.DeviceCreateInfo{
		QueueCreateInfos:      queueFamilyOptions,
		EnabledExtensionNames: extensionNames,
	})
	if err != nil {
		return err
	}

	c.deviceDriver, err = c.instanceDriver.BuildDeviceDriver(device)
	if err != nil {
		return errors.Wrap(err, "build device driver")
	}

	c.swapchainExtension = khr_swapchain.CreateExtensionDriverFromCoreDriver(c.deviceDriver)
	c.graphicsQueue = c.deviceDriver.GetQueue(*indices.GraphicsFamily, 0)
	c.presentQueue = c.deviceDriver.GetQueue(*indices.PresentFamily, 0)
	return nil
}

func (c *Context) createCommandPool() error {
	pool, _, err := c.deviceDriver.CreateCommandPool(nil, core1_0.CommandPoolCreateInfo{
		// Frame command buffers are reset and rerecorded every frame.
		Flags:            core1_0.CommandPoolCreateResetBuffer | core1_0.CommandPoolCreateTransient,
		QueueFamilyIndex: *c.queueFamilies.GraphicsFamily,
	})
	if err != nil {
		return err
	}
	c.commandPool = pool

	return nil
}
