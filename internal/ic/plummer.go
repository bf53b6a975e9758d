package ic

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/clusterlab/clusterlab/internal/datamodel"
	"github.com/clusterlab/clusterlab/internal/units"
)

// Plummer sphere constants from the classic Aarseth, Hénon & Wielen
// (1974) recipe: the sampler works at scale radius 1 and the final
// division brings the virial radius to 1.
const (
	plummerMassCutoff  = 0.999
	plummerRadiusScale = 1.695
)

// PlummerProfile samples the Plummer (1911) sphere. Native units are
// Hénon units with the virial radius at 1 and total mass 1.
type PlummerProfile struct{}

func NewPlummer() *PlummerProfile { return &PlummerProfile{} }

func (*PlummerProfile) Name() string { return "plummer" }

func (*PlummerProfile) Sample(rng *rand.Rand, n int, conv *units.Converter) (*datamodel.Particles, error) {
	if n < 1 {
		return nil, fmt.Errorf("plummer sphere needs at least 1 body, got %d", n)
	}
	parts := datamodel.NewParticles(n)
	for i := 0; i < n; i++ {
		// Enclosed-mass inversion, truncated at the 99.9% mass shell.
		u := rng.Float64() * plummerMassCutoff
		r := 1 / math.Sqrt(math.Pow(u, -2.0/3.0)-1)

		speed := plummerSpeed(rng) * math.Sqrt2 * math.Pow(1+r*r, -0.25)

		p := parts.At(i)
		p.Mass = 1.0 / float64(n)
		p.Pos = isotropicDir(rng).Scale(r / plummerRadiusScale)
		p.Vel = isotropicDir(rng).Scale(speed * math.Sqrt(plummerRadiusScale))
	}
	parts.MoveToCenter()

	if conv != nil {
		toSI(parts, conv)
	}
	return parts, nil
}

// plummerSpeed rejection-samples the speed fraction q under the
// distribution g(q) = q^2 (1-q^2)^3.5, whose maximum stays below the
// 0.1 envelope.
func plummerSpeed(rng *rand.Rand) float64 {
	for {
		q := rng.Float64()
		y := rng.Float64() * 0.1
		if y <= q*q*math.Pow(1-q*q, 3.5) {
			return q
		}
	}
}

// toSI rescales an N-body set into the converter's physical units.
func toSI(parts *datamodel.Particles, conv *units.Converter) {
	for i := 0; i < parts.Len(); i++ {
		p := parts.At(i)
		p.Mass *= conv.MassSI()
		p.Radius *= conv.LengthSI()
		p.Pos = p.Pos.Scale(conv.LengthSI())
		p.Vel = p.Vel.Scale(conv.VelocitySI())
	}
}
