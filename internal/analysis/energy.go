package analysis

import (
	"math"

	"github.com/clusterlab/clusterlab/internal/datamodel"
)

// EnergyReport carries the internal energy budget of a body set. The
// kinetic term is measured in the center-of-mass frame so that bulk
// motion through a host potential does not swamp the virial ratio.
type EnergyReport struct {
	Kinetic   float64
	Potential float64
	Total     float64
	Virial    float64 // Kinetic / |Potential|
}

// Energies computes the internal energy budget with gravitational
// constant g and softening eps.
func Energies(p *datamodel.Particles, g, eps float64) EnergyReport {
	rep := EnergyReport{}
	cov := p.CenterOfMassVelocity()
	for i := 0; i < p.Len(); i++ {
		pt := p.At(i)
		rep.Kinetic += 0.5 * pt.Mass * pt.Vel.Sub(cov).Norm2()
	}
	rep.Potential = p.PotentialEnergy(g, eps)
	rep.Total = rep.Kinetic + rep.Potential
	if rep.Potential != 0 {
		rep.Virial = rep.Kinetic / math.Abs(rep.Potential)
	}
	return rep
}

// VirialRatio is the center-of-mass-frame kinetic energy over the
// magnitude of the potential energy; 0.5 marks virial equilibrium.
func VirialRatio(p *datamodel.Particles, g, eps float64) float64 {
	return Energies(p, g, eps).Virial
}

// BoundMassFraction is the mass share of bodies with negative specific
// energy in the center-of-mass frame. A lone body counts as unbound.
func BoundMassFraction(p *datamodel.Particles, g, eps float64) float64 {
	n := p.Len()
	if n == 0 {
		return 0
	}
	total := p.TotalMass()
	if total <= 0 {
		return 0
	}
	cov := p.CenterOfMassVelocity()
	eps2 := eps * eps

	bound := 0.0
	for i := 0; i < n; i++ {
		pi := p.At(i)
		phi := 0.0
		for j := 0; j < n; j++ {
			if j == i {
				continue
			}
			pj := p.At(j)
			phi -= g * pj.Mass / math.Sqrt(pj.Pos.Sub(pi.Pos).Norm2()+eps2)
		}
		if 0.5*pi.Vel.Sub(cov).Norm2()+phi < 0 {
			bound += pi.Mass
		}
	}
	return bound / total
}

// EnergyDrift tracks the worst relative deviation of a conserved total
// from its first observed value.
type EnergyDrift struct {
	initial float64
	current float64
	max     float64
	samples int
}

func (e *EnergyDrift) Observe(total float64) {
	if e.samples == 0 {
		e.initial = total
	}
	e.current = total
	e.samples++

	if e.initial != 0 {
		drift := math.Abs(total-e.initial) / math.Abs(e.initial)
		e.max = math.Max(e.max, drift)
	}
}

// Value is the maximum relative drift seen so far.
func (e *EnergyDrift) Value() float64 { return e.max }

// Current is the relative drift of the latest observation.
func (e *EnergyDrift) Current() float64 {
	if e.samples == 0 || e.initial == 0 {
		return 0
	}
	return math.Abs(e.current-e.initial) / math.Abs(e.initial)
}

func (e *EnergyDrift) Reset() {
	e.initial = 0
	e.current = 0
	e.max = 0
	e.samples = 0
}
