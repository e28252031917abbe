package bootstrap

import (
	"log/slog"

	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_surface"
)

// Summary describes what Init settled on. Fields for steps that did not run keep
// their zero value.
type Summary struct {
	Device          string
	GraphicsFamily  int
	PresentFamily   int
	PresentQueue    bool
	SwapchainImages int
	Extent          core1_0.Extent2D
	Format          core1_0.Format
	PresentMode     khr_surface.PresentMode
	DepthFormat     core1_0.Format
	Vertices        int
}

func (b *Bootstrap) Summary() Summary {
	s := Summary{
		GraphicsFamily:  b.queueFamilies.Graphics,
		PresentFamily:   b.queueFamilies.Present,
		PresentQueue:    b.presentQueue.Initialized(),
		SwapchainImages: len(b.swapchainImages),
		Extent:          b.swapchainExtent,
		Format:          b.swapchainFormat.Format,
		PresentMode:     b.swapchainPresentMode,
		DepthFormat:     b.depthFormat,
		Vertices:        b.vertexCount,
	}
	if b.physicalDevice != nil {
		s.Device = b.physicalDevice.Name
	}
	return s
}

func (s Summary) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.String("device", s.Device),
		slog.Int("graphics_family", s.GraphicsFamily),
		slog.Int("vertices", s.Vertices),
	}
	if s.PresentQueue {
		attrs = append(attrs,
			slog.Int("present_family", s.PresentFamily),
			slog.Int("swapchain_images", s.SwapchainImages),
			slog.Any("extent", s.Extent),
			slog.String("format", s.Format.String()),
			slog.String("present_mode", s.PresentMode.String()),
			slog.String("depth_format", s.DepthFormat.String()))
	}
	return slog.GroupValue(attrs...)
}
