package bootstrap

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_surface"
	"github.com/vkngwrapper/extensions/v3/khr_swapchain"

	"github.com/vkngwrapper/bootstrap/negotiate"
)

// CompositeAlphaPreference is tried in order; one of these is always supported.
var CompositeAlphaPreference = []khr_surface.CompositeAlphaFlags{
	khr_surface.CompositeAlphaOpaque,
	khr_surface.CompositeAlphaPreMultiplied,
	khr_surface.CompositeAlphaPostMultiplied,
	khr_surface.CompositeAlphaInherit,
}

const swapchainUsage = core1_0.ImageUsageColorAttachment

// SwapchainRequest is what the bootstrap would like the swapchain to look like.
type SwapchainRequest struct {
	Format        core1_0.Format
	ColorSpace    khr_surface.ColorSpace
	PresentMode   khr_surface.PresentMode
	MinImageCount int
	Drawable      core1_0.Extent2D
}

// SwapchainPlan is the negotiated result, ready to be turned into a create info.
type SwapchainPlan struct {
	Format         khr_surface.SurfaceFormat
	PresentMode    khr_surface.PresentMode
	Extent         core1_0.Extent2D
	ImageCount     int
	PreTransform   khr_surface.SurfaceTransformFlags
	CompositeAlpha khr_surface.CompositeAlphaFlags
}

// PlanSwapchain settles every swapchain parameter against what the surface offers.
func PlanSwapchain(caps *khr_surface.SurfaceCapabilities, formats []khr_surface.SurfaceFormat, modes []khr_surface.PresentMode, req SwapchainRequest) (SwapchainPlan, error) {
	var plan SwapchainPlan

	if !negotiate.Supports(caps.SupportedUsageFlags, swapchainUsage) {
		return plan, errors.New("surface images cannot be color attachments")
	}

	var err error
	plan.Format, err = negotiate.SelectFormat(formats, req.Format, req.ColorSpace)
	if err != nil {
		return plan, err
	}

	plan.PresentMode = negotiate.SelectPresentMode(modes, req.PresentMode)

	plan.Extent, err = negotiate.SelectExtent(negotiate.ExtentLimits{
		Current: caps.CurrentExtent,
		Min:     caps.MinImageExtent,
		Max:     caps.MaxImageExtent,
	}, req.Drawable)
	if err != nil {
		return plan, err
	}

	plan.ImageCount = negotiate.SelectImageCount(caps.MinImageCount, caps.MaxImageCount, req.MinImageCount)
	plan.PreTransform = negotiate.SelectTransform(caps.SupportedTransforms, khr_surface.TransformIdentity, caps.CurrentTransform)

	plan.CompositeAlpha, err = negotiate.SelectCompositeAlpha(caps.SupportedCompositeAlpha, CompositeAlphaPreference)
	return plan, err
}

// SharingMode returns exclusive sharing when one family both draws and presents and
// concurrent sharing between the two families otherwise.
func SharingMode(indices negotiate.QueueFamilyIndices) (core1_0.SharingMode, []int) {
	if indices.Graphics == indices.Present {
		return core1_0.SharingModeExclusive, nil
	}
	return core1_0.SharingModeConcurrent, []int{indices.Graphics, indices.Present}
}

func (b *Bootstrap) drawableSize() core1_0.Extent2D {
	w, h := b.window.VulkanGetDrawableSize()
	return core1_0.Extent2D{Width: int(w), Height: int(h)}
}

// InitSwapchain creates the swapchain. A minimized window leaves it uncreated; the
// steps that depend on it then do nothing.
func (b *Bootstrap) InitSwapchain(ctx context.Context) error {
	b.swapchainExtension = khr_swapchain.CreateExtensionDriverFromCoreDriver(b.deviceDriver)

	caps, _, err := b.surfaceExtension.GetPhysicalDeviceSurfaceCapabilities(b.surface, b.physicalDevice.Device)
	if err != nil {
		return errors.Wrap(err, "get surface capabilities")
	}

	plan, err := PlanSwapchain(caps, b.physicalDevice.SurfaceFormats, b.physicalDevice.PresentModes, SwapchainRequest{
		Format:        b.surfaceFormat,
		ColorSpace:    b.colorSpace,
		PresentMode:   b.presentMode,
		MinImageCount: b.cfg.Surface.MinImageCount,
		Drawable:      b.drawableSize(),
	})
	if errors.Is(err, negotiate.ErrSurfaceMinimized) {
		b.log.Warn("surface is minimized, swapchain not created")
		return nil
	}
	if err != nil {
		return err
	}

	if plan.PresentMode != b.presentMode {
		b.log.Info("present mode unavailable, falling back", "wanted", b.presentMode, "using", plan.PresentMode)
	}

	sharingMode, queueFamilyIndices := SharingMode(b.queueFamilies)

	b.swapchain, _, err = b.swapchainExtension.CreateSwapchain(nil, khr_swapchain.SwapchainCreateInfo{
		Surface: b.surface,

		MinImageCount:    plan.ImageCount,
		ImageFormat:      plan.Format.Format,
		ImageColorSpace:  plan.Format.ColorSpace,
		ImageExtent:      plan.Extent,
		ImageArrayLayers: 1,
		ImageUsage:       swapchainUsage,

		ImageSharingMode:   sharingMode,
		QueueFamilyIndices: queueFamilyIndices,

		PreTransform:   plan.PreTransform,
		CompositeAlpha: plan.CompositeAlpha,
		PresentMode:    plan.PresentMode,
		Clipped:        true,
	})
	if err != nil {
		return errors.Wrap(err, "create swapchain")
	}

	b.swapchainFormat = plan.Format
	b.swapchainExtent = plan.Extent
	b.swapchainPresentMode = plan.PresentMode
	b.log.Info("swapchain created",
		"format", plan.Format.Format,
		"present_mode", plan.PresentMode,
		"extent", plan.Extent,
		"images", plan.ImageCount)
	return nil
}

func (b *Bootstrap) InitImageViews(ctx context.Context) error {
	if !b.swapchain.Initialized() {
		return nil
	}

	images, _, err := b.swapchainExtension.GetSwapchainImages(b.swapchain)
	if err != nil {
		return errors.Wrap(err, "get swapchain images")
	}
	b.swapchainImages = images

	for _, image := range images {
		view, err := b.createImageView(image, b.swapchainFormat.Format, core1_0.ImageAspectColor)
		if err != nil {
			return err
		}
		b.swapchainImageViews = append(b.swapchainImageViews, view)
	}
	return nil
}

func (b *Bootstrap) createImageView(image core1_0.Image, format core1_0.Format, aspect core1_0.ImageAspectFlags) (core1_0.ImageView, error) {
	view, _, err := b.deviceDriver.CreateImageView(nil, core1_0.ImageViewCreateInfo{
		Image:    image,
		ViewType: core1_0.ImageViewType2D,
		Format:   format,
		SubresourceRange: core1_0.ImageSubresourceRange{
			AspectMask:     aspect,
			BaseMipLevel:   0,
			LevelCount:     1,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
	})
	return view, errors.Wrap(err, "create image view")
}

func (b *Bootstrap) destroySwapchain() {
	for _, view := range b.swapchainImageViews {
		b.deviceDriver.DestroyImageView(view, nil)
	}
	b.swapchainImageViews = nil
	b.swapchainImages = nil

	if b.swapchain.Initialized() {
		b.swapchainExtension.DestroySwapchain(b.swapchain, nil)
		b.swapchain = khr_swapchain.Swapchain{}
	}
}
