package units

import (
	"fmt"
	"math"
)

// Converter maps between N-body units (G=1) and physical units. It is
// pinned by a mass scale and a length scale; the time scale follows from
// t* = sqrt(l*^3 / (G m*)).
type Converter struct {
	mass   float64 // kg per N-body mass unit
	length float64 // m per N-body length unit
	time   float64 // s per N-body time unit
}

// NewConverter builds a converter from a total mass and a length scale,
// typically the cluster mass and its virial radius.
func NewConverter(mass, length Quantity) (*Converter, error) {
	if mass.Unit.Dim != (Dim{M: 1}) {
		return nil, fmt.Errorf("mass scale has dimension %s, want mass", mass.Unit.Dim)
	}
	if length.Unit.Dim != (Dim{L: 1}) {
		return nil, fmt.Errorf("length scale has dimension %s, want length", length.Unit.Dim)
	}
	m := mass.SI()
	l := length.SI()
	if m <= 0 || l <= 0 {
		return nil, fmt.Errorf("converter scales must be positive, got mass=%g kg length=%g m", m, l)
	}
	return &Converter{
		mass:   m,
		length: l,
		time:   math.Sqrt(l * l * l / (G.Value * m)),
	}, nil
}

func (c *Converter) MassSI() float64   { return c.mass }
func (c *Converter) LengthSI() float64 { return c.length }
func (c *Converter) TimeSI() float64   { return c.time }

func (c *Converter) VelocitySI() float64 { return c.length / c.time }

func (c *Converter) EnergySI() float64 {
	v := c.VelocitySI()
	return c.mass * v * v
}

// ScaleFor returns the SI value of one N-body unit of the given dimension.
func (c *Converter) ScaleFor(d Dim) float64 {
	s := 1.0
	if d.M != 0 {
		s *= math.Pow(c.mass, float64(d.M))
	}
	if d.L != 0 {
		s *= math.Pow(c.length, float64(d.L))
	}
	if d.T != 0 {
		s *= math.Pow(c.time, float64(d.T))
	}
	return s
}

// ToPhysical converts an N-body value of dimension d to an SI quantity.
func (c *Converter) ToPhysical(v float64, d Dim) Quantity {
	return Quantity{Value: v * c.ScaleFor(d), Unit: SIUnit(d)}
}

// ToNBody converts a physical quantity to its N-body value.
func (c *Converter) ToNBody(q Quantity) float64 {
	return q.SI() / c.ScaleFor(q.Unit.Dim)
}
