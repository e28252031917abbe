package negotiate

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/core1_0"
)

// FormatProperties holds the per-tiling feature masks of one format.
type FormatProperties struct {
	LinearTilingFeatures  core1_0.FormatFeatureFlags
	OptimalTilingFeatures core1_0.FormatFeatureFlags
}

// Features returns the feature mask for tiling. Tilings other than linear and optimal
// report no features.
func (p FormatProperties) Features(tiling core1_0.ImageTiling) (core1_0.FormatFeatureFlags, bool) {
	switch tiling {
	case core1_0.ImageTilingLinear:
		return p.LinearTilingFeatures, true
	case core1_0.ImageTilingOptimal:
		return p.OptimalTilingFeatures, true
	default:
		return 0, false
	}
}

// FormatQuery looks up the properties of a format on the device being negotiated.
type FormatQuery func(format core1_0.Format) FormatProperties

// SelectImageFormat walks candidates in order and returns the first one whose
// features for tiling include required. Candidate order is the caller's preference.
func SelectImageFormat(candidates []core1_0.Format, tiling core1_0.ImageTiling, required core1_0.FormatFeatureFlags, query FormatQuery) (core1_0.Format, error) {
	if query != nil {
		for _, format := range candidates {
			features, ok := query(format).Features(tiling)
			if ok && HasAll(features, required) {
				return format, nil
			}
		}
	}

	return 0, errors.Wrapf(ErrNoSupportedFormat, "tiling %s, features %s", tiling, required)
}

// DepthFormats lists depth formats from most to least precise.
var DepthFormats = []core1_0.Format{
	core1_0.FormatD32SignedFloat,
	core1_0.FormatD32SignedFloatS8UnsignedInt,
	core1_0.FormatD24UnsignedNormalizedS8UnsignedInt,
}

// SelectDepthFormat picks the best optimally tiled depth attachment format.
func SelectDepthFormat(query FormatQuery) (core1_0.Format, error) {
	return SelectImageFormat(DepthFormats, core1_0.ImageTilingOptimal, core1_0.FormatFeatureDepthStencilAttachment, query)
}

func HasStencilComponent(format core1_0.Format) bool {
	return format == core1_0.FormatD32SignedFloatS8UnsignedInt || format == core1_0.FormatD24UnsignedNormalizedS8UnsignedInt
}
