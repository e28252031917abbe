package negotiate

import "github.com/vkngwrapper/core/v3/core1_0"

// QueueFamily is one entry of a physical device's queue family list.
type QueueFamily struct {
	Flags      core1_0.QueueFlags
	QueueCount int
}

// SurfacePredicate reports whether the queue family at index can present to the
// surface in use.
type SurfacePredicate func(queueFamilyIndex int) bool

// SelectQueueFamilyIndex returns the index of the first family that has queues and
// supports every flag in required, or NotFound.
func SelectQueueFamilyIndex(families []QueueFamily, required core1_0.QueueFlags) int {
	for i, family := range families {
		if family.QueueCount > 0 && HasAll(family.Flags, required) {
			return i
		}
	}

	return NotFound
}

// SelectPresentationCapableQueueIndex returns the first of familyCount indices that
// can present, or NotFound.
func SelectPresentationCapableQueueIndex(familyCount int, supports SurfacePredicate) int {
	if supports == nil {
		return NotFound
	}

	for i := 0; i < familyCount; i++ {
		if supports(i) {
			return i
		}
	}

	return NotFound
}

// QueueFamilyIndices holds the families chosen for graphics and presentation. Either
// may be NotFound.
type QueueFamilyIndices struct {
	Graphics int
	Present  int
}

func (i QueueFamilyIndices) Complete() bool {
	return i.Graphics != NotFound && i.Present != NotFound
}

// Shared reports whether one family serves both roles.
func (i QueueFamilyIndices) Shared() bool {
	return i.Complete() && i.Graphics == i.Present
}

// Unique lists the distinct found families, graphics first.
func (i QueueFamilyIndices) Unique() []int {
	var unique []int
	if i.Graphics != NotFound {
		unique = append(unique, i.Graphics)
	}
	if i.Present != NotFound && i.Present != i.Graphics {
		unique = append(unique, i.Present)
	}
	return unique
}

// SelectQueueFamilies prefers a single family that can both draw and present. If
// there is none, the first graphics family and the first presenting family are
// returned separately. A nil predicate means no surface: only graphics is searched.
func SelectQueueFamilies(families []QueueFamily, supports SurfacePredicate) QueueFamilyIndices {
	indices := QueueFamilyIndices{
		Graphics: SelectQueueFamilyIndex(families, core1_0.QueueGraphics),
		Present:  NotFound,
	}
	if supports == nil || indices.Graphics == NotFound {
		indices.Present = SelectPresentationCapableQueueIndex(len(families), supports)
		return indices
	}

	for i, family := range families {
		if family.QueueCount > 0 && HasAll(family.Flags, core1_0.QueueGraphics) && supports(i) {
			indices.Graphics = i
			indices.Present = i
			return indices
		}
	}

	indices.Present = SelectPresentationCapableQueueIndex(len(families), supports)
	return indices
}
