package config

import (
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_surface"
)

var presentModes = map[string]khr_surface.PresentMode{
	"immediate":    khr_surface.PresentModeImmediate,
	"mailbox":      khr_surface.PresentModeMailbox,
	"fifo":         khr_surface.PresentModeFIFO,
	"fifo_relaxed": khr_surface.PresentModeFIFORelaxed,
}

var surfaceFormats = map[string]core1_0.Format{
	"B8G8R8A8_SRGB":  core1_0.FormatB8G8R8A8SRGB,
	"B8G8R8A8_UNORM": core1_0.FormatB8G8R8A8UnsignedNormalized,
	"R8G8B8A8_SRGB":  core1_0.FormatR8G8B8A8SRGB,
	"R8G8B8A8_UNORM": core1_0.FormatR8G8B8A8UnsignedNormalized,
}

var colorSpaces = map[string]khr_surface.ColorSpace{
	"SRGB_NONLINEAR": khr_surface.ColorSpaceSRGBNonlinear,
}

func lookup[V any](kind string, table map[string]V, name string, fold func(string) string) (V, error) {
	v, ok := table[fold(strings.TrimSpace(name))]
	if !ok {
		return v, errors.Newf("unknown %s %q", kind, name)
	}
	return v, nil
}

func ParsePresentMode(name string) (khr_surface.PresentMode, error) {
	return lookup("present mode", presentModes, name, strings.ToLower)
}

func ParseSurfaceFormat(name string) (core1_0.Format, error) {
	return lookup("surface format", surfaceFormats, name, strings.ToUpper)
}

func ParseColorSpace(name string) (khr_surface.ColorSpace, error) {
	return lookup("color space", colorSpaces, name, strings.ToUpper)
}
