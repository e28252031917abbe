package bootstrap

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/ext_debug_utils"
	"github.com/vkngwrapper/extensions/v3/khr_surface"
	"github.com/vkngwrapper/extensions/v3/khr_swapchain"

	"github.com/vkngwrapper/bootstrap/config"
	"github.com/vkngwrapper/bootstrap/negotiate"
)

func TestNew(t *testing.T) {
	b, err := New(config.Default())
	require.NoError(t, err)
	assert.Equal(t, core1_0.FormatB8G8R8A8SRGB, b.surfaceFormat)
	assert.Equal(t, khr_surface.ColorSpaceSRGBNonlinear, b.colorSpace)
	assert.Equal(t, khr_surface.PresentModeMailbox, b.presentMode)

	cfg := config.Default()
	cfg.Surface.PresentMode = "vsync"
	_, err = New(cfg)
	require.Error(t, err)
}

func TestInitCancelled(t *testing.T) {
	b, err := New(config.Default())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.ErrorIs(t, b.Init(ctx), context.Canceled)
	assert.Nil(t, b.window)

	// nothing was created, so this must not touch any driver
	b.Destroy()
	b.Destroy()
}

func TestRequiredDeviceExtensions(t *testing.T) {
	cfg := config.Default()
	cfg.DeviceExtensions = []string{khr_swapchain.ExtensionName, "VK_EXT_memory_budget"}

	b, err := New(cfg)
	require.NoError(t, err)
	assert.Equal(t, cfg.DeviceExtensions, b.requiredDeviceExtensions())

	cfg.Backend = config.BackendNone
	assert.Equal(t, []string{"VK_EXT_memory_budget"}, b.requiredDeviceExtensions())
}

func TestQueueCreateInfos(t *testing.T) {
	shared := QueueCreateInfos(negotiate.QueueFamilyIndices{Graphics: 2, Present: 2})
	require.Len(t, shared, 1)
	assert.Equal(t, 2, shared[0].QueueFamilyIndex)
	assert.Equal(t, []float32{1}, shared[0].QueuePriorities)

	split := QueueCreateInfos(negotiate.QueueFamilyIndices{Graphics: 0, Present: 3})
	require.Len(t, split, 2)
	assert.Equal(t, 0, split[0].QueueFamilyIndex)
	assert.Equal(t, 3, split[1].QueueFamilyIndex)

	headless := QueueCreateInfos(negotiate.QueueFamilyIndices{Graphics: 1, Present: negotiate.NotFound})
	require.Len(t, headless, 1)
	assert.Equal(t, 1, headless[0].QueueFamilyIndex)
}

func TestSharingMode(t *testing.T) {
	mode, indices := SharingMode(negotiate.QueueFamilyIndices{Graphics: 1, Present: 1})
	assert.Equal(t, core1_0.SharingModeExclusive, mode)
	assert.Nil(t, indices)

	mode, indices = SharingMode(negotiate.QueueFamilyIndices{Graphics: 0, Present: 2})
	assert.Equal(t, core1_0.SharingModeConcurrent, mode)
	assert.Equal(t, []int{0, 2}, indices)
}

func surfaceCaps() *khr_surface.SurfaceCapabilities {
	return &khr_surface.SurfaceCapabilities{
		MinImageCount:           2,
		MaxImageCount:           8,
		CurrentExtent:           core1_0.Extent2D{Width: -1, Height: -1},
		MinImageExtent:          core1_0.Extent2D{Width: 1, Height: 1},
		MaxImageExtent:          core1_0.Extent2D{Width: 4096, Height: 4096},
		SupportedTransforms:     khr_surface.TransformIdentity | khr_surface.TransformRotate90,
		CurrentTransform:        khr_surface.TransformRotate90,
		SupportedCompositeAlpha: khr_surface.CompositeAlphaInherit | khr_surface.CompositeAlphaPreMultiplied,
		SupportedUsageFlags:     core1_0.ImageUsageColorAttachment | core1_0.ImageUsageTransferDst,
	}
}

func swapchainRequest() SwapchainRequest {
	return SwapchainRequest{
		Format:        core1_0.FormatB8G8R8A8SRGB,
		ColorSpace:    khr_surface.ColorSpaceSRGBNonlinear,
		PresentMode:   khr_surface.PresentModeMailbox,
		MinImageCount: 3,
		Drawable:      core1_0.Extent2D{Width: 8000, Height: 600},
	}
}

var surfaceFormats = []khr_surface.SurfaceFormat{
	{Format: core1_0.FormatB8G8R8A8UnsignedNormalized, ColorSpace: khr_surface.ColorSpaceSRGBNonlinear},
	{Format: core1_0.FormatB8G8R8A8SRGB, ColorSpace: khr_surface.ColorSpaceSRGBNonlinear},
}

func TestPlanSwapchain(t *testing.T) {
	plan, err := PlanSwapchain(surfaceCaps(), surfaceFormats,
		[]khr_surface.PresentMode{khr_surface.PresentModeFIFO, khr_surface.PresentModeMailbox},
		swapchainRequest())
	require.NoError(t, err)

	assert.Equal(t, surfaceFormats[1], plan.Format)
	assert.Equal(t, khr_surface.PresentModeMailbox, plan.PresentMode)
	assert.Equal(t, core1_0.Extent2D{Width: 4096, Height: 600}, plan.Extent)
	assert.Equal(t, 3, plan.ImageCount)
	assert.Equal(t, khr_surface.TransformIdentity, plan.PreTransform)
	assert.Equal(t, khr_surface.CompositeAlphaPreMultiplied, plan.CompositeAlpha)
}

func TestPlanSwapchainFallbacks(t *testing.T) {
	caps := surfaceCaps()
	caps.CurrentExtent = core1_0.Extent2D{Width: 640, Height: 480}
	caps.SupportedTransforms = khr_surface.TransformRotate90
	caps.MaxImageCount = 2

	plan, err := PlanSwapchain(caps, surfaceFormats[:1], []khr_surface.PresentMode{khr_surface.PresentModeImmediate}, swapchainRequest())
	require.NoError(t, err)

	assert.Equal(t, surfaceFormats[0], plan.Format)
	assert.Equal(t, negotiate.FallbackPresentMode, plan.PresentMode)
	assert.Equal(t, core1_0.Extent2D{Width: 640, Height: 480}, plan.Extent)
	assert.Equal(t, 2, plan.ImageCount)
	assert.Equal(t, khr_surface.TransformRotate90, plan.PreTransform)
}

func TestPlanSwapchainErrors(t *testing.T) {
	testCases := map[string]struct {
		mutate  func(*khr_surface.SurfaceCapabilities)
		formats []khr_surface.SurfaceFormat
		want    error
	}{
		"minimized": {
			mutate:  func(c *khr_surface.SurfaceCapabilities) { c.CurrentExtent = core1_0.Extent2D{} },
			formats: surfaceFormats,
			want:    negotiate.ErrSurfaceMinimized,
		},
		"no formats": {
			mutate:  func(*khr_surface.SurfaceCapabilities) {},
			formats: nil,
			want:    negotiate.ErrEmptyCandidateList,
		},
		"no composite alpha": {
			mutate:  func(c *khr_surface.SurfaceCapabilities) { c.SupportedCompositeAlpha = 0 },
			formats: surfaceFormats,
			want:    negotiate.ErrNoCompositeAlpha,
		},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			caps := surfaceCaps()
			tc.mutate(caps)

			_, err := PlanSwapchain(caps, tc.formats, nil, swapchainRequest())
			require.ErrorIs(t, err, tc.want)
		})
	}
}

func TestPlanSwapchainUsage(t *testing.T) {
	caps := surfaceCaps()
	caps.SupportedUsageFlags = core1_0.ImageUsageTransferDst

	_, err := PlanSwapchain(caps, surfaceFormats, nil, swapchainRequest())
	require.Error(t, err)
}

func TestTransitionBarrier(t *testing.T) {
	image := core1_0.Image{}

	toTransfer, err := TransitionBarrier(image, core1_0.FormatR8G8B8A8SRGB, core1_0.ImageLayoutUndefined, core1_0.ImageLayoutTransferDstOptimal)
	require.NoError(t, err)
	assert.Equal(t, core1_0.PipelineStageTopOfPipe, toTransfer.SrcStage)
	assert.Equal(t, core1_0.PipelineStageTransfer, toTransfer.DstStage)
	assert.Equal(t, core1_0.AccessTransferWrite, toTransfer.Image.DstAccessMask)
	assert.Equal(t, core1_0.ImageAspectColor, toTransfer.Image.SubresourceRange.AspectMask)
	assert.Equal(t, -1, toTransfer.Image.SrcQueueFamilyIndex)

	toShader, err := TransitionBarrier(image, core1_0.FormatR8G8B8A8SRGB, core1_0.ImageLayoutTransferDstOptimal, core1_0.ImageLayoutShaderReadOnlyOptimal)
	require.NoError(t, err)
	assert.Equal(t, core1_0.AccessTransferWrite, toShader.Image.SrcAccessMask)
	assert.Equal(t, core1_0.AccessShaderRead, toShader.Image.DstAccessMask)
	assert.Equal(t, core1_0.PipelineStageFragmentShader, toShader.DstStage)

	depth, err := TransitionBarrier(image, core1_0.FormatD32SignedFloat, core1_0.ImageLayoutUndefined, core1_0.ImageLayoutDepthStencilAttachmentOptimal)
	require.NoError(t, err)
	assert.Equal(t, core1_0.ImageAspectDepth, depth.Image.SubresourceRange.AspectMask)
	assert.Equal(t, core1_0.PipelineStageEarlyFragmentTests, depth.DstStage)

	stencil, err := TransitionBarrier(image, core1_0.FormatD24UnsignedNormalizedS8UnsignedInt, core1_0.ImageLayoutUndefined, core1_0.ImageLayoutDepthStencilAttachmentOptimal)
	require.NoError(t, err)
	assert.Equal(t, core1_0.ImageAspectDepth|core1_0.ImageAspectStencil, stencil.Image.SubresourceRange.AspectMask)

	_, err = TransitionBarrier(image, core1_0.FormatR8G8B8A8SRGB, core1_0.ImageLayoutShaderReadOnlyOptimal, core1_0.ImageLayoutUndefined)
	require.Error(t, err)
}

func TestDebugLevel(t *testing.T) {
	assert.Equal(t, slog.LevelError, debugLevel(ext_debug_utils.SeverityError|ext_debug_utils.SeverityWarning))
	assert.Equal(t, slog.LevelWarn, debugLevel(ext_debug_utils.SeverityWarning))
	assert.Equal(t, slog.LevelInfo, debugLevel(ext_debug_utils.SeverityInfo))
	assert.Equal(t, slog.LevelDebug, debugLevel(ext_debug_utils.SeverityVerbose))
}
