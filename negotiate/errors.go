// Package negotiate picks one value out of the capability lists a Vulkan physical
// device reports: surface formats, present modes, queue families, memory types and
// image formats. Every function is a pure first-match scan over a caller-owned
// snapshot.
package negotiate

import "github.com/cockroachdb/errors"

// NotFound is returned by index lookups that found no qualifying candidate.
const NotFound = -1

var (
	ErrEmptyCandidateList     = errors.New("empty candidate list")
	ErrNoCompatibleMemoryType = errors.New("no compatible memory type")
	ErrNoSupportedFormat      = errors.New("no supported format")
	ErrNoSuitableDevice       = errors.New("no suitable physical device")
	ErrNoCompositeAlpha       = errors.New("no supported composite alpha mode")

	// ErrSurfaceMinimized means the surface currently reports a 0x0 extent and no
	// swapchain can be created for it until it is restored.
	ErrSurfaceMinimized = errors.New("surface has zero extent")
)
