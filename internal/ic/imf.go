package ic

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/clusterlab/clusterlab/internal/units"
)

// IMF draws zero-age stellar masses. Sample returns SI masses.
type IMF interface {
	Name() string
	Sample(rng *rand.Rand, n int) []float64
	// Mean is the analytic expectation value of one draw, in kg.
	Mean() float64
	// Bounds returns the supported mass range in kg.
	Bounds() (lo, hi float64)
}

// BrokenPowerLaw is a piecewise power law dN/dm ∝ m^alpha_i between
// consecutive mass boundaries. Draws invert the per-segment CDF
// analytically, so sampling needs no rejection step.
type BrokenPowerLaw struct {
	name   string
	bounds []float64 // kg, strictly ascending, len(alphas)+1
	alphas []float64
	cum    []float64 // cumulative number fraction per segment
	mean   float64   // kg
}

// NewBrokenPowerLaw validates the boundaries (mass dimension, strictly
// ascending, positive) and precomputes the segment weights.
func NewBrokenPowerLaw(name string, bounds []units.Quantity, alphas []float64) (*BrokenPowerLaw, error) {
	if len(bounds) != len(alphas)+1 {
		return nil, fmt.Errorf("imf %s: %d boundaries need %d exponents, got %d",
			name, len(bounds), len(bounds)-1, len(alphas))
	}
	if len(alphas) == 0 {
		return nil, fmt.Errorf("imf %s: need at least one segment", name)
	}
	b := make([]float64, len(bounds))
	for i, q := range bounds {
		if q.Unit.Dim != (units.Dim{M: 1}) {
			return nil, fmt.Errorf("imf %s: boundary %d has dimension %s, want mass", name, i, q.Unit.Dim)
		}
		b[i] = q.SI()
	}
	return newBrokenPowerLawSI(name, b, alphas)
}

func newBrokenPowerLawSI(name string, bounds, alphas []float64) (*BrokenPowerLaw, error) {
	if bounds[0] <= 0 {
		return nil, fmt.Errorf("imf %s: lowest boundary must be positive, got %g kg", name, bounds[0])
	}
	for i := 1; i < len(bounds); i++ {
		if bounds[i] <= bounds[i-1] {
			return nil, fmt.Errorf("imf %s: boundaries must be strictly ascending at index %d", name, i)
		}
	}

	f := &BrokenPowerLaw{
		name:   name,
		bounds: bounds,
		alphas: append([]float64(nil), alphas...),
		cum:    make([]float64, len(alphas)),
	}

	// Continuity factors chain the segment normalizations so dN/dm is
	// continuous across boundaries.
	number, mass := 0.0, 0.0
	scale := 1.0
	for i, a := range alphas {
		if i > 0 {
			scale *= math.Pow(bounds[i], alphas[i-1]-a)
		}
		number += scale * segmentIntegral(bounds[i], bounds[i+1], a)
		mass += scale * segmentIntegral(bounds[i], bounds[i+1], a+1)
		f.cum[i] = number
	}
	for i := range f.cum {
		f.cum[i] /= number
	}
	f.cum[len(f.cum)-1] = 1
	f.mean = mass / number
	return f, nil
}

// segmentIntegral is ∫ m^a dm over [lo, hi].
func segmentIntegral(lo, hi, a float64) float64 {
	if a == -1 {
		return math.Log(hi / lo)
	}
	b := a + 1
	return (math.Pow(hi, b) - math.Pow(lo, b)) / b
}

func (f *BrokenPowerLaw) Name() string { return f.name }

func (f *BrokenPowerLaw) Mean() float64 { return f.mean }

func (f *BrokenPowerLaw) Bounds() (float64, float64) {
	return f.bounds[0], f.bounds[len(f.bounds)-1]
}

// Sample draws n masses: pick a segment by number fraction, then invert
// that segment's CDF.
func (f *BrokenPowerLaw) Sample(rng *rand.Rand, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		seg := sort.SearchFloat64s(f.cum, rng.Float64())
		if seg >= len(f.alphas) {
			seg = len(f.alphas) - 1
		}
		out[i] = f.invert(seg, rng.Float64())
	}
	return out
}

func (f *BrokenPowerLaw) invert(seg int, u float64) float64 {
	lo, hi := f.bounds[seg], f.bounds[seg+1]
	b := f.alphas[seg] + 1
	if b == 0 {
		return lo * math.Pow(hi/lo, u)
	}
	lob := math.Pow(lo, b)
	return math.Pow(lob+u*(math.Pow(hi, b)-lob), 1/b)
}

// Kroupa (2001) boundaries and exponents, in MSun.
var (
	kroupaBounds = []float64{0.01, 0.08, 0.5, 100.0}
	kroupaAlphas = []float64{-0.3, -1.3, -2.3}
)

// NewKroupa builds the Kroupa (2001) mass function truncated to
// [lo, hi]. Zero quantities keep the default range of 0.01 to 100 MSun.
// Truncating below drops leading segments and clamps the first boundary;
// a ceiling above 100 MSun extends the steepest segment.
func NewKroupa(lo, hi units.Quantity) (*BrokenPowerLaw, error) {
	bounds := append([]float64(nil), kroupaBounds...)
	alphas := append([]float64(nil), kroupaAlphas...)

	min, max := bounds[0], bounds[len(bounds)-1]
	if !lo.IsZero() {
		v, err := lo.In(units.MSun)
		if err != nil {
			return nil, fmt.Errorf("kroupa mass floor: %w", err)
		}
		min = v
	}
	if !hi.IsZero() {
		v, err := hi.In(units.MSun)
		if err != nil {
			return nil, fmt.Errorf("kroupa mass ceiling: %w", err)
		}
		max = v
	}
	if min >= max {
		return nil, fmt.Errorf("kroupa mass range [%g, %g] MSun is empty", min, max)
	}

	// Drop segments entirely below the floor, keep the one containing
	// it and clamp its lower edge.
	start := 0
	for start < len(alphas)-1 && bounds[start+1] <= min {
		start++
	}
	bounds, alphas = bounds[start:], alphas[start:]
	if bounds[0] < min {
		bounds[0] = min
	}

	// Mirror for the ceiling; above the catalog range the -2.3 tail
	// simply continues.
	end := len(alphas)
	for end > 1 && bounds[end-1] >= max {
		end--
	}
	bounds, alphas = bounds[:end+1], alphas[:end]
	bounds[len(bounds)-1] = max

	for i := range bounds {
		bounds[i] *= units.MSun.Scale
	}
	return newBrokenPowerLawSI("kroupa", bounds, alphas)
}

// NewSalpeter builds the classic single-slope Salpeter (1955) function
// with exponent -2.35. Zero quantities default to 0.1 and 125 MSun.
func NewSalpeter(lo, hi units.Quantity) (*BrokenPowerLaw, error) {
	if lo.IsZero() {
		lo = units.New(0.1, units.MSun)
	}
	if hi.IsZero() {
		hi = units.New(125, units.MSun)
	}
	f, err := NewBrokenPowerLaw("salpeter", []units.Quantity{lo, hi}, []float64{-2.35})
	if err != nil {
		return nil, err
	}
	return f, nil
}

// EqualMass gives every star the same mass. Useful for pure N-body
// models where the mass spectrum is irrelevant.
type EqualMass struct {
	m float64 // kg
}

func NewEqualMass(m units.Quantity) (*EqualMass, error) {
	if m.Unit.Dim != (units.Dim{M: 1}) {
		return nil, fmt.Errorf("equal-mass imf: dimension %s, want mass", m.Unit.Dim)
	}
	si := m.SI()
	if si <= 0 {
		return nil, fmt.Errorf("equal-mass imf: mass must be positive, got %g kg", si)
	}
	return &EqualMass{m: si}, nil
}

func (e *EqualMass) Name() string { return "equal" }

func (e *EqualMass) Sample(_ *rand.Rand, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = e.m
	}
	return out
}

func (e *EqualMass) Mean() float64 { return e.m }

func (e *EqualMass) Bounds() (float64, float64) { return e.m, e.m }

// NewIMF constructs a mass function by name: "kroupa", "salpeter" or
// "equal". For "equal" the floor quantity is the per-star mass.
func NewIMF(kind string, lo, hi units.Quantity) (IMF, error) {
	switch kind {
	case "kroupa":
		return NewKroupa(lo, hi)
	case "salpeter":
		return NewSalpeter(lo, hi)
	case "equal":
		if lo.IsZero() {
			lo = units.New(1, units.MSun)
		}
		return NewEqualMass(lo)
	default:
		return nil, fmt.Errorf("unknown imf %q", kind)
	}
}
