package negotiate

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_surface"
)

// FallbackPresentMode is the one present mode every implementation must support.
const FallbackPresentMode = khr_surface.PresentModeFIFO

// SelectFormat returns the first candidate matching both format and colorSpace, or the
// first candidate when none matches.
func SelectFormat(candidates []khr_surface.SurfaceFormat, format core1_0.Format, colorSpace khr_surface.ColorSpace) (khr_surface.SurfaceFormat, error) {
	if len(candidates) == 0 {
		return khr_surface.SurfaceFormat{}, errors.Wrap(ErrEmptyCandidateList, "select surface format")
	}

	for _, candidate := range candidates {
		if candidate.Format == format && candidate.ColorSpace == colorSpace {
			return candidate, nil
		}
	}

	return candidates[0], nil
}

// SelectPresentMode returns desired if the surface offers it and FallbackPresentMode
// otherwise.
func SelectPresentMode(candidates []khr_surface.PresentMode, desired khr_surface.PresentMode) khr_surface.PresentMode {
	for _, candidate := range candidates {
		if candidate == desired {
			return candidate
		}
	}

	return FallbackPresentMode
}

// ExtentLimits is the extent-related part of a surface's capabilities.
type ExtentLimits struct {
	Current core1_0.Extent2D
	Min     core1_0.Extent2D
	Max     core1_0.Extent2D
}

// SelectExtent picks the swapchain extent. A defined current extent must be used as
// is; an undefined one (negative width) lets the drawable size decide, clamped to the
// supported range.
func SelectExtent(limits ExtentLimits, drawable core1_0.Extent2D) (core1_0.Extent2D, error) {
	if limits.Current.Width >= 0 {
		if limits.Current.Width == 0 && limits.Current.Height == 0 {
			return limits.Current, ErrSurfaceMinimized
		}
		return limits.Current, nil
	}

	return core1_0.Extent2D{
		Width:  clamp(drawable.Width, limits.Min.Width, limits.Max.Width),
		Height: clamp(drawable.Height, limits.Min.Height, limits.Max.Height),
	}, nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// SelectImageCount returns at least minCount images, desired when possible, never more
// than maxCount. A maxCount of zero means there is no upper limit.
func SelectImageCount(minCount, maxCount, desired int) int {
	count := max(minCount, desired)
	if maxCount > 0 && count > maxCount {
		count = maxCount
	}
	return count
}

// SelectTransform returns desired when the surface supports it and current otherwise.
func SelectTransform[F Flags](supported, desired, current F) F {
	if desired != 0 && Supports(supported, desired) {
		return desired
	}
	return current
}

// SelectCompositeAlpha returns the first of preferred present in supported.
func SelectCompositeAlpha[F Flags](supported F, preferred []F) (F, error) {
	for _, mode := range preferred {
		if mode != 0 && Supports(supported, mode) {
			return mode, nil
		}
	}

	return 0, errors.Wrapf(ErrNoCompositeAlpha, "supported mask %#x", uint64(supported))
}
