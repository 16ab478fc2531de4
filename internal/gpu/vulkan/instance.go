package vulkan

import (
	"github.com/cockroachdb/errors"
	log "github.com/sirupsen/logrus"
	"github.com/vkngwrapper/core/v3/common"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/ext_debug_utils"
	"github.com/vkngwrapper/extensions/v3/khr_portability_enumeration"
	"github.com/vkngwrapper/extensions/v3/khr_surface"
	vkng_sdl2 "github.com/vkngwrapper/integrations/sdl2/v3"
)

func (c *Context) createInstance() error {
	instanceOptions := core1_0.InstanceCreateInfo{
		ApplicationName:    c.opts.ApplicationName,
		ApplicationVersion: common.CreateVersion(1, 0, 0),
		EngineName:         "cubes",
		EngineVersion:      common.CreateVersion(1, 0, 0),
		APIVersion:         common.Vulkan1_2,
	}

	sdlExtensions := c.window.VulkanGetInstanceExtensions()
	extensions, _, err := c.globalDriver.AvailableExtensions()
	if err != nil {
		return err
	}

	c.log.WithField("count", len(extensions)).Debug("instance extensions available")
	for name := range extensions {
		c.log.WithField("extension", name).Trace("instance extension available")
	}

	for _, ext := range sdlExtensions {
		_, hasExt := extensions[ext]
		if !hasExt {
			return errors.Newf("missing instance extension %s required by sdl", ext)
		}
		instanceOptions.EnabledExtensionNames = append(instanceOptions.EnabledExtensionNames, ext)
	}

	if c.opts.Validation {
		instanceOptions.EnabledExtensionNames = append(instanceOptions.EnabledExtensionNames, ext_debug_utils.ExtensionName)
	}

	_, enumerationSupported := extensions[khr_portability_enumeration.ExtensionName]
	if enumerationSupported {
		instanceOptions.EnabledExtensionNames = append(instanceOptions.EnabledExtensionNames, khr_portability_enumeration.ExtensionName)
		instanceOptions.Flags |= khr_portability_enumeration.InstanceCreateEnumeratePortability
	}

	if c.opts.Validation {
		layers, _, err := c.globalDriver.AvailableLayers()
		if err != nil {
			return err
		}

		_, hasValidation := layers[validationLayer]
		if !hasValidation {
			return errors.Newf("validation layer %s not available, install the Vulkan SDK", validationLayer)
		}
		instanceOptions.EnabledLayerNames = append(instanceOptions.EnabledLayerNames, validationLayer)

		// Also covers instance creation and destruction.
		instanceOptions.Next = c.debugMessengerOptions()
	}

	instance, _, err := c.globalDriver.CreateInstance(nil, instanceOptions)
	if err != nil {
		return err
	}

	c.instanceDriver, err = c.globalDriver.BuildInstanceDriver(instance)
	if err != nil {
		return errors.Wrap(err, "build instance driver")
	}

	c.log.WithFields(log.Fields{
		"extensions": instanceOptions.EnabledExtensionNames,
		"layers":     instanceOptions.EnabledLayerNames,
	}).Debug("instance created")
	return nil
}

func (c *Context) debugMessengerOptions() ext_debug_utils.DebugUtilsMessengerCreateInfo {
	return ext_debug_utils.DebugUtilsMessengerCreateInfo{
		MessageSeverity: ext_debug_utils.SeverityError | ext_debug_utils.SeverityWarning | ext_debug_utils.SeverityInfo,
		MessageType:     ext_debug_utils.TypeGeneral | ext_debug_utils.TypeValidation | ext_debug_utils.TypePerformance,
		UserCallback:    c.logDebug,
	}
}

func (c *Context) setupDebugMessenger() error {
	if !c.opts.Validation {
		return nil
	}

	var err error
	c.debugDriver = ext_debug_utils.CreateExtensionDriverFromCoreDriver(c.instanceDriver)
	c.debugMessenger, _, err = c.debugDriver.CreateDebugUtilsMessenger(nil, c.debugMessengerOptions())
	return err
}

// debugLevel maps a validation message severity onto a log level.
func debugLevel(severity ext_debug_utils.DebugUtilsMessageSeverityFlags) log.Level {
	switch {
	case severity&ext_debug_utils.SeverityError != 0:
		return log.ErrorLevel
	case severity&ext_debug_utils.SeverityWarning != 0:
		return log.WarnLevel
	case severity&ext_debug_utils.SeverityInfo != 0:
		return log.InfoLevel
	default:
		return log.DebugLevel
	}
}

func (c *Context) logDebug(msgType ext_debug_utils.DebugUtilsMessageTypeFlags, severity ext_debug_utils.DebugUtilsMessageSeverityFlags, data *ext_debug_utils.DebugUtilsMessengerCallbackData) bool {
	c.log.WithFields(log.Fields{
		"type":      msgType.String(),
		"messageID": data.MessageIDName,
	}).Log(debugLevel(severity), data.Message)
	return false
}

func (c *Context) createSurface() error {
	c.surfaceExtension = khr_surface.CreateExtensionDriverFromCoreDriver(c.instanceDriver)
	surface, err := vkng_sdl2.CreateSurface(c.instanceDriver.Instance(), c.surfaceExtension, c.window)
	if err != nil {
		return err
	}

	c.surface = surface
	return nil
}
