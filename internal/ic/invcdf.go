package ic

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/clusterlab/clusterlab/internal/datamodel"
	"github.com/clusterlab/clusterlab/internal/units"
)

// invcdfTableMin keeps the radius table fine enough that the sampled
// radii resolve the profile even for small body counts.
const invcdfTableMin = 1_000_000

// EnclosedMassModel samples an arbitrary spherical profile by inverting
// its enclosed-mass curve. EnclosedMass maps an SI radius to the SI mass
// inside it; Potential gives the specific potential (J/kg) used for the
// speed sqrt(|Φ|/VelAdj). Bodies get equal masses.
type EnclosedMassModel struct {
	ModelName    string
	EnclosedMass func(r float64) float64
	Potential    func(p datamodel.Vec3) float64
	RadiusCutoff units.Quantity // default 100 kpc
	VelAdj       float64        // default 1
}

func (m *EnclosedMassModel) Name() string {
	if m.ModelName == "" {
		return "enclmass"
	}
	return m.ModelName
}

func (m *EnclosedMassModel) Sample(rng *rand.Rand, n int, conv *units.Converter) (*datamodel.Particles, error) {
	if n < 1 {
		return nil, fmt.Errorf("enclosed-mass model needs at least 1 body, got %d", n)
	}
	if m.EnclosedMass == nil || m.Potential == nil {
		return nil, fmt.Errorf("enclosed-mass model %s: mass and potential functions are required", m.Name())
	}
	cutoff := m.RadiusCutoff
	if cutoff.IsZero() {
		cutoff = units.New(100, units.Kiloparsec)
	}
	if cutoff.Unit.Dim != (units.Dim{L: 1}) || cutoff.SI() <= 0 {
		return nil, fmt.Errorf("enclosed-mass model %s: cutoff must be a positive length, got %s", m.Name(), cutoff)
	}
	adj := m.VelAdj
	if adj <= 0 {
		adj = 1
	}

	radii, cdf := m.table(n, cutoff)
	lo, span := cdf[0], cdf[len(cdf)-1]-cdf[0]
	if span <= 0 {
		return nil, fmt.Errorf("enclosed-mass model %s: no mass inside cutoff %s", m.Name(), cutoff)
	}

	parts := datamodel.NewParticles(n)
	posDirs := UnitNormals(rng, n)
	velDirs := UnitNormals(rng, n)
	for i := 0; i < n; i++ {
		u := lo + rng.Float64()*span
		j := sort.SearchFloat64s(cdf, u)
		if j >= len(radii) {
			j = len(radii) - 1
		}

		p := parts.At(i)
		p.Mass = 1.0 / float64(n)
		p.Pos = posDirs[i].Scale(radii[j])
		p.Vel = velDirs[i].Scale(math.Sqrt(math.Abs(m.Potential(p.Pos)) / adj))
	}
	parts.MoveToCenter()

	if conv != nil {
		// Positions and velocities are already physical; only the
		// placeholder masses need the converter.
		for i := 0; i < n; i++ {
			parts.At(i).Mass *= conv.MassSI()
		}
	}
	return parts, nil
}

// table evaluates the enclosed-mass curve on log-spaced radii from
// 1e-5 cutoff units out to the cutoff.
func (m *EnclosedMassModel) table(n int, cutoff units.Quantity) (radii, cdf []float64) {
	size := 10 * n
	if size < invcdfTableMin {
		size = invcdfTableMin
	}
	logLo := math.Log10(1e-5 * cutoff.Unit.Scale)
	logHi := math.Log10(cutoff.SI())
	radii = make([]float64, size)
	cdf = make([]float64, size)
	for i := range radii {
		r := math.Pow(10, logLo+(logHi-logLo)*float64(i)/float64(size-1))
		radii[i] = r
		cdf[i] = m.EnclosedMass(r)
	}
	return radii, cdf
}

// NewHernquist builds a Hernquist (1990) model with total mass total and
// scale radius a: M(<r) = M r²/(r+a)², Φ(r) = -GM/(r+a).
func NewHernquist(total, scale units.Quantity) (*EnclosedMassModel, error) {
	if total.Unit.Dim != (units.Dim{M: 1}) || total.SI() <= 0 {
		return nil, fmt.Errorf("hernquist: total must be a positive mass, got %s", total)
	}
	if scale.Unit.Dim != (units.Dim{L: 1}) || scale.SI() <= 0 {
		return nil, fmt.Errorf("hernquist: scale must be a positive length, got %s", scale)
	}
	mt, a := total.SI(), scale.SI()
	return &EnclosedMassModel{
		ModelName: "hernquist",
		EnclosedMass: func(r float64) float64 {
			if r <= 0 {
				return 0
			}
			f := r / (r + a)
			return mt * f * f
		},
		Potential: func(p datamodel.Vec3) float64 {
			return -units.G.Value * mt / (p.Norm() + a)
		},
		RadiusCutoff: units.New(100*a, units.Meter),
	}, nil
}

// hernquistProfile defers to the converter for its mass and length
// scales, so it can be named in configuration without extra knobs.
type hernquistProfile struct{}

func newHernquistFromConverter() *hernquistProfile { return &hernquistProfile{} }

func (*hernquistProfile) Name() string { return "hernquist" }

func (*hernquistProfile) Sample(rng *rand.Rand, n int, conv *units.Converter) (*datamodel.Particles, error) {
	if conv == nil {
		return nil, fmt.Errorf("hernquist profile needs a converter for its scales")
	}
	model, err := NewHernquist(
		units.New(conv.MassSI(), units.Kilogram),
		units.New(conv.LengthSI(), units.Meter),
	)
	if err != nil {
		return nil, err
	}
	return model.Sample(rng, n, conv)
}
