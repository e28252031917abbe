package probe

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_surface"
	"github.com/vkngwrapper/extensions/v3/khr_swapchain"

	"github.com/vkngwrapper/bootstrap/negotiate"
)

func presentingSnapshot() *Snapshot {
	return &Snapshot{
		Name:                "Test GPU",
		Discrete:            true,
		MaxImageDimension2D: 16384,
		QueueFamilies: []negotiate.QueueFamily{
			{Flags: core1_0.QueueTransfer, QueueCount: 2},
			{Flags: core1_0.QueueGraphics | core1_0.QueueCompute, QueueCount: 1},
		},
		Extensions:     map[string]struct{}{khr_swapchain.ExtensionName: {}},
		HasSurface:     true,
		PresentSupport: []bool{true, true},
		SurfaceFormats: []khr_surface.SurfaceFormat{
			{Format: core1_0.FormatB8G8R8A8SRGB, ColorSpace: khr_surface.ColorSpaceSRGBNonlinear},
		},
		PresentModes: []khr_surface.PresentMode{khr_surface.PresentModeFIFO},
	}
}

func TestCandidate(t *testing.T) {
	testCases := map[string]struct {
		mutate   func(*Snapshot)
		suitable bool
	}{
		"complete": {
			mutate:   func(*Snapshot) {},
			suitable: true,
		},
		"missing extension": {
			mutate:   func(s *Snapshot) { s.Extensions = map[string]struct{}{} },
			suitable: false,
		},
		"no graphics family": {
			mutate:   func(s *Snapshot) { s.QueueFamilies = s.QueueFamilies[:1] },
			suitable: false,
		},
		"no presenting family": {
			mutate:   func(s *Snapshot) { s.PresentSupport = []bool{false, false} },
			suitable: false,
		},
		"no surface formats": {
			mutate:   func(s *Snapshot) { s.SurfaceFormats = nil },
			suitable: false,
		},
		"no present modes": {
			mutate:   func(s *Snapshot) { s.PresentModes = nil },
			suitable: false,
		},
		"headless ignores surface": {
			mutate: func(s *Snapshot) {
				s.HasSurface = false
				s.PresentSupport = nil
				s.SurfaceFormats = nil
				s.PresentModes = nil
			},
			suitable: true,
		},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			snap := presentingSnapshot()
			tc.mutate(snap)

			candidate := snap.Candidate([]string{khr_swapchain.ExtensionName})
			assert.Equal(t, tc.suitable, candidate.Suitable)
			assert.Equal(t, "Test GPU", candidate.Name)
			assert.True(t, candidate.Discrete)
			assert.Equal(t, 16384, candidate.MaxImageDimension2D)
		})
	}
}

func TestQueueFamilyIndices(t *testing.T) {
	snap := presentingSnapshot()
	indices := snap.QueueFamilyIndices()
	assert.Equal(t, 1, indices.Graphics)
	assert.Equal(t, 1, indices.Present)

	snap.PresentSupport = []bool{true, false}
	indices = snap.QueueFamilyIndices()
	assert.Equal(t, 1, indices.Graphics)
	assert.Equal(t, 0, indices.Present)
	assert.Equal(t, []int{1, 0}, indices.Unique())

	snap.HasSurface = false
	assert.Nil(t, snap.SurfacePredicate())
	assert.Equal(t, negotiate.NotFound, snap.QueueFamilyIndices().Present)
}

func TestSurfacePredicateBounds(t *testing.T) {
	pred := presentingSnapshot().SurfacePredicate()
	require.NotNil(t, pred)
	assert.True(t, pred(0))
	assert.False(t, pred(-1))
	assert.False(t, pred(2))
}

func TestCandidates(t *testing.T) {
	headless := presentingSnapshot()
	headless.Name = "CPU"
	headless.Discrete = false
	headless.Extensions = nil

	candidates := Candidates([]*Snapshot{headless, presentingSnapshot()}, []string{khr_swapchain.ExtensionName})
	require.Len(t, candidates, 2)
	assert.False(t, candidates[0].Suitable)
	assert.True(t, candidates[1].Suitable)

	idx, err := negotiate.SelectDevice(candidates, "")
	require.NoError(t, err)
	assert.Equal(t, 1, idx)
}

func TestMissingExtensions(t *testing.T) {
	snap := presentingSnapshot()
	assert.Empty(t, snap.MissingExtensions([]string{khr_swapchain.ExtensionName}))
	assert.Equal(t, []string{"VK_KHR_portability_subset"}, snap.MissingExtensions([]string{"VK_KHR_portability_subset"}))
	assert.True(t, snap.HasExtension(khr_swapchain.ExtensionName))
}

func TestString(t *testing.T) {
	snap := presentingSnapshot()
	snap.APIVersion = "1.3.0"
	snap.VendorID = 0x10de
	snap.PipelineCacheUUID = uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

	line := snap.String()
	assert.Contains(t, line, "Test GPU (discrete)")
	assert.Contains(t, line, "vendor=0x10de")
	assert.Contains(t, line, "api=1.3.0")
	assert.Contains(t, line, "cache=6ba7b810-9dad-11d1-80b4-00c04fd430c8")
}
