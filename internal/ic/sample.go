package ic

import (
	"math"
	"math/rand"

	"github.com/clusterlab/clusterlab/internal/datamodel"
)

// UnitNormals draws n isotropic unit vectors from normalized gaussian
// triples. Degenerate zero-length draws are redrawn.
func UnitNormals(rng *rand.Rand, n int) []datamodel.Vec3 {
	out := make([]datamodel.Vec3, n)
	for i := range out {
		for {
			v := datamodel.Vec3{X: rng.NormFloat64(), Y: rng.NormFloat64(), Z: rng.NormFloat64()}
			if norm := v.Norm(); norm > 0 {
				out[i] = v.Scale(1 / norm)
				break
			}
		}
	}
	return out
}

// sphericalDir converts inclination and azimuth to a cartesian unit
// vector.
func sphericalDir(theta, phi float64) datamodel.Vec3 {
	st := math.Sin(theta)
	return datamodel.Vec3{
		X: st * math.Cos(phi),
		Y: st * math.Sin(phi),
		Z: math.Cos(theta),
	}
}

// isotropicDir draws one direction by the inverse-cosine method.
func isotropicDir(rng *rand.Rand) datamodel.Vec3 {
	theta := math.Acos(rng.Float64()*2 - 1)
	phi := rng.Float64() * 2 * math.Pi
	return sphericalDir(theta, phi)
}
