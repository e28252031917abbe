package negotiate

// Flags is any bitmask type reported by the driver.
type Flags interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 | ~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64
}

// HasAll reports whether have is a superset of want.
func HasAll[F Flags](have, want F) bool {
	return have&want == want
}

// Supports reports whether every bit of desired is present in supported. It is
// used for usage and transform masks taken from surface capabilities.
func Supports[F Flags](supported, desired F) bool {
	return HasAll(supported, desired)
}
