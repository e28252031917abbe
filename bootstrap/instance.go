package bootstrap

import (
	"context"
	"log/slog"

	"github.com/cockroachdb/errors"
	"github.com/veandco/go-sdl2/sdl"
	"github.com/vkngwrapper/core/v3"
	"github.com/vkngwrapper/core/v3/common"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/ext_debug_utils"
	"github.com/vkngwrapper/extensions/v3/khr_portability_enumeration"
	"github.com/vkngwrapper/extensions/v3/khr_surface"
	vkng_sdl2 "github.com/vkngwrapper/integrations/sdl2/v3"

	"github.com/vkngwrapper/bootstrap/negotiate"
)

// InitWindow opens the SDL2 window when the backend presents and loads the global
// driver, through SDL's loader when a window exists.
func (b *Bootstrap) InitWindow(ctx context.Context) error {
	var err error
	if !b.cfg.Backend.Presents() {
		b.globalDriver, err = core.CreateSystemDriver()
		return errors.Wrap(err, "load vulkan")
	}

	if err := sdl.Init(sdl.INIT_VIDEO); err != nil {
		return errors.Wrap(err, "init sdl video")
	}

	window, err := sdl.CreateWindow(b.cfg.Window.Title,
		sdl.WINDOWPOS_UNDEFINED, sdl.WINDOWPOS_UNDEFINED,
		int32(b.cfg.Window.Width), int32(b.cfg.Window.Height),
		sdl.WINDOW_SHOWN|sdl.WINDOW_VULKAN|sdl.WINDOW_RESIZABLE)
	if err != nil {
		sdl.Quit()
		return errors.Wrap(err, "create window")
	}
	b.window = window
	b.windowExtensions = window.VulkanGetInstanceExtensions()

	b.globalDriver, err = core.CreateDriverFromProcAddr(sdl.VulkanGetVkGetInstanceProcAddr())
	return errors.Wrap(err, "load vulkan through sdl")
}

// instanceExtensions returns the extensions the instance must enable: the window
// system's surface extensions and debug utils when validating.
func (b *Bootstrap) instanceExtensions() []string {
	extensions := append([]string(nil), b.windowExtensions...)
	if b.cfg.Validation {
		extensions = append(extensions, ext_debug_utils.ExtensionName)
	}
	return extensions
}

func (b *Bootstrap) InitInstance(ctx context.Context) error {
	instanceOptions := core1_0.InstanceCreateInfo{
		ApplicationName:    b.cfg.Window.Title,
		ApplicationVersion: common.CreateVersion(1, 0, 0),
		EngineName:         "vkbootstrap",
		EngineVersion:      common.CreateVersion(1, 0, 0),
		APIVersion:         common.Vulkan1_2,
	}

	available, _, err := b.globalDriver.AvailableExtensions()
	if err != nil {
		return errors.Wrap(err, "enumerate instance extensions")
	}

	required := b.instanceExtensions()
	if missing := negotiate.Unsupported(required, available); len(missing) > 0 {
		return errors.Errorf("missing instance extensions %v", missing)
	}
	instanceOptions.EnabledExtensionNames = append(instanceOptions.EnabledExtensionNames, required...)

	if _, ok := available[khr_portability_enumeration.ExtensionName]; ok {
		instanceOptions.EnabledExtensionNames = append(instanceOptions.EnabledExtensionNames, khr_portability_enumeration.ExtensionName)
		instanceOptions.Flags |= khr_portability_enumeration.InstanceCreateEnumeratePortability
	}

	if b.cfg.Validation {
		layers, _, err := b.globalDriver.AvailableLayers()
		if err != nil {
			return errors.Wrap(err, "enumerate instance layers")
		}

		if missing := negotiate.Unsupported(b.cfg.ValidationLayers, layers); len(missing) > 0 {
			return errors.Errorf("validation layers %v not available, install the LunarG Vulkan SDK", missing)
		}
		instanceOptions.EnabledLayerNames = append(instanceOptions.EnabledLayerNames, b.cfg.ValidationLayers...)

		// Covers messages from instance creation and destruction.
		instanceOptions.Next = b.debugMessengerOptions()
	}

	instance, _, err := b.globalDriver.CreateInstance(nil, instanceOptions)
	if err != nil {
		return errors.Wrap(err, "create instance")
	}

	b.instanceDriver, err = b.globalDriver.BuildInstanceDriver(instance)
	if err != nil {
		return errors.Wrap(err, "build instance driver")
	}
	b.log.Debug("instance created", "extensions", instanceOptions.EnabledExtensionNames, "layers", instanceOptions.EnabledLayerNames)

	if !b.cfg.Validation {
		return nil
	}

	b.debugDriver = ext_debug_utils.CreateExtensionDriverFromCoreDriver(b.instanceDriver)
	if b.debugDriver == nil {
		return errors.Newf("%s not active on instance", ext_debug_utils.ExtensionName)
	}
	b.debugMessenger, _, err = b.debugDriver.CreateDebugUtilsMessenger(nil, b.debugMessengerOptions())
	return errors.Wrap(err, "create debug messenger")
}

func (b *Bootstrap) debugMessengerOptions() ext_debug_utils.DebugUtilsMessengerCreateInfo {
	return ext_debug_utils.DebugUtilsMessengerCreateInfo{
		MessageSeverity: ext_debug_utils.SeverityError | ext_debug_utils.SeverityWarning | ext_debug_utils.SeverityInfo,
		MessageType:     ext_debug_utils.TypeGeneral | ext_debug_utils.TypeValidation | ext_debug_utils.TypePerformance,
		UserCallback:    b.logDebug,
	}
}

func (b *Bootstrap) logDebug(msgType ext_debug_utils.DebugUtilsMessageTypeFlags, severity ext_debug_utils.DebugUtilsMessageSeverityFlags, data *ext_debug_utils.DebugUtilsMessengerCallbackData) bool {
	b.log.Log(context.Background(), debugLevel(severity), data.Message, "type", msgType.String())
	return false
}

// debugLevel maps the most severe bit of a debug message onto a log level.
func debugLevel(severity ext_debug_utils.DebugUtilsMessageSeverityFlags) slog.Level {
	switch {
	case severity&ext_debug_utils.SeverityError != 0:
		return slog.LevelError
	case severity&ext_debug_utils.SeverityWarning != 0:
		return slog.LevelWarn
	case severity&ext_debug_utils.SeverityInfo != 0:
		return slog.LevelInfo
	default:
		return slog.LevelDebug
	}
}

func (b *Bootstrap) InitSurface(ctx context.Context) error {
	b.surfaceExtension = khr_surface.CreateExtensionDriverFromCoreDriver(b.instanceDriver)
	if b.surfaceExtension == nil {
		return errors.Newf("%s not active on instance", khr_surface.ExtensionName)
	}

	surface, err := vkng_sdl2.CreateSurface(b.instanceDriver.Instance(), b.surfaceExtension, b.window)
	if err != nil {
		return errors.Wrap(err, "create sdl surface")
	}
	b.surface = surface
	return nil
}
