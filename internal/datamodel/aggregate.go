package datamodel

import (
	"fmt"
	"math"

	"github.com/clusterlab/clusterlab/internal/units"
)

func (p *Particles) TotalMass() float64 {
	m := 0.0
	for i := range p.items {
		m += p.items[i].Mass
	}
	return m
}

func (p *Particles) CenterOfMass() Vec3 {
	m := p.TotalMass()
	if m == 0 {
		return Vec3{}
	}
	var c Vec3
	for i := range p.items {
		c = c.Add(p.items[i].Pos.Scale(p.items[i].Mass))
	}
	return c.Scale(1 / m)
}

func (p *Particles) CenterOfMassVelocity() Vec3 {
	m := p.TotalMass()
	if m == 0 {
		return Vec3{}
	}
	var c Vec3
	for i := range p.items {
		c = c.Add(p.items[i].Vel.Scale(p.items[i].Mass))
	}
	return c.Scale(1 / m)
}

func (p *Particles) KineticEnergy() float64 {
	ke := 0.0
	for i := range p.items {
		ke += 0.5 * p.items[i].Mass * p.items[i].Vel.Norm2()
	}
	return ke
}

// PotentialEnergy is the direct pairwise sum with gravitational constant g
// and softening eps (same length units as positions).
func (p *Particles) PotentialEnergy(g, eps float64) float64 {
	pe := 0.0
	eps2 := eps * eps
	for i := 0; i < len(p.items); i++ {
		for j := i + 1; j < len(p.items); j++ {
			r := math.Sqrt(p.items[j].Pos.Sub(p.items[i].Pos).Norm2() + eps2)
			pe -= g * p.items[i].Mass * p.items[j].Mass / r
		}
	}
	return pe
}

// VirialRadius returns -g M^2 / (2 U) with U the unsoftened potential
// energy. Empty or single-particle sets return 0.
func (p *Particles) VirialRadius(g float64) float64 {
	if len(p.items) < 2 {
		return 0
	}
	u := p.PotentialEnergy(g, 0)
	if u == 0 {
		return 0
	}
	m := p.TotalMass()
	return -g * m * m / (2 * u)
}

// MoveToCenter shifts the set into its center-of-mass frame.
func (p *Particles) MoveToCenter() {
	com := p.CenterOfMass()
	cov := p.CenterOfMassVelocity()
	for i := range p.items {
		p.items[i].Pos = p.items[i].Pos.Sub(com)
		p.items[i].Vel = p.items[i].Vel.Sub(cov)
	}
}

// Shift translates all positions by dp and all velocities by dv.
func (p *Particles) Shift(dp, dv Vec3) {
	for i := range p.items {
		p.items[i].Pos = p.items[i].Pos.Add(dp)
		p.items[i].Vel = p.items[i].Vel.Add(dv)
	}
}

// ScaleToStandard rescales the set to Hénon units: total mass 1, potential
// energy -0.5 and kinetic energy virialRatio/2, all in the N-body system
// defined by conv. A nil conv treats the stored values as already N-body.
// eps is the softening length in stored units.
func (p *Particles) ScaleToStandard(conv *units.Converter, virialRatio, eps float64) error {
	if len(p.items) < 2 {
		return fmt.Errorf("scale to standard needs at least 2 particles, have %d", len(p.items))
	}
	if virialRatio < 0 {
		return fmt.Errorf("virial ratio must be non-negative, got %g", virialRatio)
	}

	massScale, lengthScale, velScale := 1.0, 1.0, 1.0
	if conv != nil {
		massScale = conv.MassSI()
		lengthScale = conv.LengthSI()
		velScale = conv.VelocitySI()
	}

	// into N-body values
	for i := range p.items {
		p.items[i].Mass /= massScale
		p.items[i].Radius /= lengthScale
		p.items[i].Pos = p.items[i].Pos.Scale(1 / lengthScale)
		p.items[i].Vel = p.items[i].Vel.Scale(1 / velScale)
	}
	epsNB := eps / lengthScale

	m := p.TotalMass()
	if m <= 0 {
		return fmt.Errorf("total mass must be positive to scale, got %g", m)
	}
	for i := range p.items {
		p.items[i].Mass /= m
	}

	u := p.PotentialEnergy(1, epsNB)
	if u >= 0 {
		return fmt.Errorf("potential energy must be negative to scale, got %g", u)
	}
	rScale := u / -0.5
	for i := range p.items {
		p.items[i].Pos = p.items[i].Pos.Scale(rScale)
	}

	ke := p.KineticEnergy()
	targetKE := virialRatio * 0.5
	if ke > 0 {
		vScale := math.Sqrt(targetKE / ke)
		for i := range p.items {
			p.items[i].Vel = p.items[i].Vel.Scale(vScale)
		}
	}

	// back to stored units
	for i := range p.items {
		p.items[i].Mass *= massScale
		p.items[i].Radius *= lengthScale
		p.items[i].Pos = p.items[i].Pos.Scale(lengthScale)
		p.items[i].Vel = p.items[i].Vel.Scale(velScale)
	}
	return nil
}
