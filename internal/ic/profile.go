package ic

import (
	"fmt"
	"math/rand"

	"github.com/clusterlab/clusterlab/internal/datamodel"
	"github.com/clusterlab/clusterlab/internal/units"
)

// Profile samples positions and velocities for n bodies. With a nil
// converter the result stays in the profile's native unit system;
// otherwise everything is SI.
type Profile interface {
	Name() string
	Sample(rng *rand.Rand, n int, conv *units.Converter) (*datamodel.Particles, error)
}

// NewProfile constructs a density profile by name, "plummer" or
// "hernquist".
func NewProfile(kind string) (Profile, error) {
	switch kind {
	case "plummer":
		return NewPlummer(), nil
	case "hernquist":
		return newHernquistFromConverter(), nil
	default:
		return nil, fmt.Errorf("unknown profile %q", kind)
	}
}
