// Package bootstrap brings a Vulkan instance, device and (optionally) an SDL2 swapchain
// up to the point where rendering could begin. Each step asks the negotiate package
// which of the driver's offered capabilities to use.
package bootstrap

import (
	"context"
	"log/slog"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/loov/hrtime"
	"github.com/veandco/go-sdl2/sdl"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/ext_debug_utils"
	"github.com/vkngwrapper/extensions/v3/khr_surface"
	"github.com/vkngwrapper/extensions/v3/khr_swapchain"

	"github.com/vkngwrapper/bootstrap/config"
	"github.com/vkngwrapper/bootstrap/negotiate"
	"github.com/vkngwrapper/bootstrap/probe"
)

// Bootstrap owns every object created during initialization. The zero value of each
// handle means the step that creates it has not run.
type Bootstrap struct {
	cfg *config.Config
	log *slog.Logger

	surfaceFormat core1_0.Format
	colorSpace    khr_surface.ColorSpace
	presentMode   khr_surface.PresentMode

	window           *sdl.Window
	windowExtensions []string

	globalDriver   core1_0.GlobalDriver
	instanceDriver core1_0.CoreInstanceDriver
	deviceDriver   core1_0.CoreDeviceDriver

	debugDriver      ext_debug_utils.ExtensionDriver
	debugMessenger   ext_debug_utils.DebugUtilsMessenger
	surfaceExtension khr_surface.ExtensionDriver
	surface          khr_surface.Surface

	devices        []*probe.Snapshot
	physicalDevice *probe.Snapshot
	queueFamilies  negotiate.QueueFamilyIndices
	graphicsQueue  core1_0.Queue
	presentQueue   core1_0.Queue

	swapchainExtension   khr_swapchain.ExtensionDriver
	swapchain            khr_swapchain.Swapchain
	swapchainFormat      khr_surface.SurfaceFormat
	swapchainPresentMode khr_surface.PresentMode
	swapchainExtent      core1_0.Extent2D
	swapchainImages      []core1_0.Image
	swapchainImageViews  []core1_0.ImageView

	commandPool core1_0.CommandPool

	depthFormat core1_0.Format
	depthImage  core1_0.Image
	depthMemory core1_0.DeviceMemory
	depthView   core1_0.ImageView

	vertexCount        int
	vertexBuffer       core1_0.Buffer
	vertexBufferMemory core1_0.DeviceMemory
}

// New validates cfg and resolves its surface preferences. Nothing is created yet.
func New(cfg *config.Config) (*Bootstrap, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}

	b := &Bootstrap{
		cfg: cfg,
		log: slog.Default().With("backend", string(cfg.Backend)),
	}

	var err error
	b.surfaceFormat, err = config.ParseSurfaceFormat(cfg.Surface.Format)
	if err != nil {
		return nil, err
	}
	b.colorSpace, err = config.ParseColorSpace(cfg.Surface.ColorSpace)
	if err != nil {
		return nil, err
	}
	b.presentMode, err = config.ParsePresentMode(cfg.Surface.PresentMode)
	if err != nil {
		return nil, err
	}

	return b, nil
}

type stage struct {
	name     string
	run      func(ctx context.Context) error
	presents bool
}

func (b *Bootstrap) stages() []stage {
	return []stage{
		{name: "window", run: b.InitWindow},
		{name: "instance", run: b.InitInstance},
		{name: "surface", run: b.InitSurface, presents: true},
		{name: "physical device", run: b.PickPhysicalDevice},
		{name: "device", run: b.InitDevice},
		{name: "swapchain", run: b.InitSwapchain, presents: true},
		{name: "image views", run: b.InitImageViews, presents: true},
		{name: "command pool", run: b.InitCommandPool},
		{name: "depth buffer", run: b.InitDepthBuffer, presents: true},
		{name: "vertex buffer", run: b.InitVertexBuffer},
	}
}

// Init runs every initialization step in order, logging how long each took.
// Steps that need a surface are skipped when the backend does not present.
func (b *Bootstrap) Init(ctx context.Context) error {
	total := hrtime.Now()
	for _, s := range b.stages() {
		if s.presents && !b.cfg.Backend.Presents() {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		start := hrtime.Now()
		if err := s.run(ctx); err != nil {
			return errors.Wrapf(err, "init %s", s.name)
		}
		b.log.Debug("stage complete", "stage", s.name, "elapsed", hrtime.Since(start))
	}

	b.log.Info("bootstrap complete", "elapsed", hrtime.Since(total))
	return nil
}

// Run initializes everything and then pumps window events until the window is
// closed or ctx is cancelled. Without a window it returns once initialized.
func (b *Bootstrap) Run(ctx context.Context) error {
	defer b.Destroy()

	if err := b.Init(ctx); err != nil {
		return err
	}
	b.log.Info("ready", "summary", b.Summary())

	if b.window == nil {
		return nil
	}
	return b.pumpEvents(ctx)
}

func (b *Bootstrap) pumpEvents(ctx context.Context) error {
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for {
		for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
			switch event.(type) {
			case *sdl.QuitEvent:
				b.log.Info("window closed")
				return nil
			}
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Inspect creates just enough to probe the physical devices; read them back with
// Devices. The caller still owns b and must Destroy it.
func (b *Bootstrap) Inspect(ctx context.Context) error {
	if err := b.InitWindow(ctx); err != nil {
		return errors.Wrap(err, "init window")
	}
	if err := b.InitInstance(ctx); err != nil {
		return errors.Wrap(err, "init instance")
	}
	if b.cfg.Backend.Presents() {
		if err := b.InitSurface(ctx); err != nil {
			return errors.Wrap(err, "init surface")
		}
	}
	_, err := b.Probe(ctx)
	return err
}

// Devices returns the snapshots from the last Probe, in enumeration order.
func (b *Bootstrap) Devices() []*probe.Snapshot {
	return b.devices
}

// Destroy releases everything in reverse creation order. It is safe to call after
// a failed or partial initialization, and more than once.
func (b *Bootstrap) Destroy() {
	if b.deviceDriver != nil {
		if _, err := b.deviceDriver.DeviceWaitIdle(); err != nil {
			b.log.Warn("wait for device idle", "error", err)
		}

		if b.vertexBuffer.Initialized() {
			b.deviceDriver.DestroyBuffer(b.vertexBuffer, nil)
			b.vertexBuffer = core1_0.Buffer{}
		}
		if b.vertexBufferMemory.Initialized() {
			b.deviceDriver.FreeMemory(b.vertexBufferMemory, nil)
			b.vertexBufferMemory = core1_0.DeviceMemory{}
		}

		b.destroyDepthBuffer()

		if b.commandPool.Initialized() {
			b.deviceDriver.DestroyCommandPool(b.commandPool, nil)
			b.commandPool = core1_0.CommandPool{}
		}

		b.destroySwapchain()

		b.deviceDriver.DestroyDevice(nil)
		b.deviceDriver = nil
	}

	if b.instanceDriver != nil {
		if b.surface.Initialized() {
			b.surfaceExtension.DestroySurface(b.surface, nil)
			b.surface = khr_surface.Surface{}
		}
		if b.debugMessenger.Initialized() {
			b.debugDriver.DestroyDebugUtilsMessenger(b.debugMessenger, nil)
			b.debugMessenger = ext_debug_utils.DebugUtilsMessenger{}
		}

		b.instanceDriver.DestroyInstance(nil)
		b.instanceDriver = nil
	}

	if b.window != nil {
		if err := b.window.Destroy(); err != nil {
			b.log.Warn("destroy window", "error", err)
		}
		b.window = nil
		sdl.Quit()
	}
}
