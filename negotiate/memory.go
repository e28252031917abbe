package negotiate

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/core1_0"
)

// MemoryType is one entry of a physical device's memory type list.
type MemoryType struct {
	PropertyFlags core1_0.MemoryPropertyFlags
	HeapIndex     int
}

// SelectMemoryType returns the index of the first memory type allowed by typeBits
// whose properties include required.
func SelectMemoryType(types []MemoryType, typeBits uint32, required core1_0.MemoryPropertyFlags) (int, error) {
	for i, memoryType := range types {
		if i >= 32 {
			break
		}

		typeBit := uint32(1) << i
		if typeBits&typeBit != 0 && HasAll(memoryType.PropertyFlags, required) {
			return i, nil
		}
	}

	return NotFound, errors.Wrapf(ErrNoCompatibleMemoryType, "type bits %#b, properties %#x", typeBits, uint64(required))
}

// SelectMemoryTypePreferred is SelectMemoryType with a soft requirement: a type that
// also has preferred wins, otherwise required alone decides.
func SelectMemoryTypePreferred(types []MemoryType, typeBits uint32, required, preferred core1_0.MemoryPropertyFlags) (int, error) {
	if preferred != 0 {
		index, err := SelectMemoryType(types, typeBits, required|preferred)
		if err == nil {
			return index, nil
		}
	}

	return SelectMemoryType(types, typeBits, required)
}
