package negotiate

import (
	"sort"

	"github.com/cockroachdb/errors"
)

// DeviceCandidate summarizes one physical device for selection.
type DeviceCandidate struct {
	Name                string
	Discrete            bool
	MaxImageDimension2D int
	Suitable            bool
}

// Score ranks a suitable device. Discrete GPUs always outrank integrated ones.
func (c DeviceCandidate) Score() int {
	if !c.Suitable {
		return 0
	}

	score := c.MaxImageDimension2D
	if c.Discrete {
		score += 1000
	}
	return score
}

// SelectDevice returns the index of the device to use. A suitable device named
// preferredName wins outright; otherwise the highest score wins and ties go to the
// earlier device.
func SelectDevice(candidates []DeviceCandidate, preferredName string) (int, error) {
	if preferredName != "" {
		for i, candidate := range candidates {
			if candidate.Suitable && candidate.Name == preferredName {
				return i, nil
			}
		}
	}

	best := NotFound
	bestScore := -1
	for i, candidate := range candidates {
		if !candidate.Suitable {
			continue
		}

		if score := candidate.Score(); score > bestScore {
			best = i
			bestScore = score
		}
	}

	if best == NotFound {
		return NotFound, errors.Wrapf(ErrNoSuitableDevice, "%d candidates", len(candidates))
	}
	return best, nil
}

// Unsupported returns the requested names missing from available, sorted. Names are
// compared exactly.
func Unsupported[V any](requested []string, available map[string]V) []string {
	var missing []string
	for _, name := range requested {
		if _, ok := available[name]; !ok {
			missing = append(missing, name)
		}
	}
	sort.Strings(missing)
	return missing
}
