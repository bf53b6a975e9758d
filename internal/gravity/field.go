package gravity

import (
	"math"

	"github.com/clusterlab/clusterlab/internal/datamodel"
)

// Analytic background fields. They expose only AccelAt and are meant as
// bridge partners for clusters orbiting inside a host potential.

// PointMassField is a softened Kepler potential at a fixed center.
type PointMassField struct {
	G      float64
	Mass   float64
	Eps2   float64
	Center datamodel.Vec3
}

func (f *PointMassField) Name() string { return "pointmass" }

func (f *PointMassField) AccelAt(pos []datamodel.Vec3) []datamodel.Vec3 {
	out := make([]datamodel.Vec3, len(pos))
	for i, p := range pos {
		dr := f.Center.Sub(p)
		r2 := dr.Norm2() + f.Eps2
		if r2 == 0 {
			continue
		}
		inv := 1 / math.Sqrt(r2)
		out[i] = dr.Scale(f.G * f.Mass * inv * inv * inv)
	}
	return out
}

// NFWField is a Navarro-Frenk-White halo. Ms is the characteristic mass
// 4 pi rho0 rs^3, Rs the scale radius.
type NFWField struct {
	G      float64
	Ms     float64
	Rs     float64
	Center datamodel.Vec3
}

func (f *NFWField) Name() string { return "nfw" }

// enclosedMass is Ms * (ln(1+x) - x/(1+x)) with x = r/Rs.
func (f *NFWField) enclosedMass(r float64) float64 {
	if r <= 0 {
		return 0
	}
	x := r / f.Rs
	return f.Ms * (math.Log1p(x) - x/(1+x))
}

func (f *NFWField) AccelAt(pos []datamodel.Vec3) []datamodel.Vec3 {
	out := make([]datamodel.Vec3, len(pos))
	for i, p := range pos {
		dr := f.Center.Sub(p)
		r := dr.Norm()
		if r == 0 {
			continue
		}
		m := f.enclosedMass(r)
		out[i] = dr.Scale(f.G * m / (r * r * r))
	}
	return out
}
