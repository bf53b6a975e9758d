package gravity

import (
	"context"
	"fmt"
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/clusterlab/clusterlab/internal/datamodel"
)

// Direct is the O(N^2) softened summation solver with a kick-drift-kick
// leapfrog driver. Force rows are split across workers.
type Direct struct {
	params    *Params
	parts     *datamodel.Particles
	time      float64
	acc       []datamodel.Vec3
	committed bool
}

func NewDirect(params *Params) *Direct {
	if params == nil {
		params = DefaultParams()
	}
	return &Direct{
		params: params,
		parts:  datamodel.NewParticles(0),
	}
}

func (d *Direct) Name() string                    { return "direct" }
func (d *Direct) Particles() *datamodel.Particles { return d.parts }
func (d *Direct) Parameters() *Params             { return d.params }
func (d *Direct) Time() float64                   { return d.time }

// CommitParticles validates parameters and primes the acceleration cache.
// Call it after loading or changing the particle set.
func (d *Direct) CommitParticles() error {
	if err := d.params.validate(); err != nil {
		return fmt.Errorf("direct: %w", err)
	}
	d.acc = d.accelerations()
	d.committed = true
	return nil
}

func (d *Direct) EvolveTo(ctx context.Context, t float64) error {
	if !d.committed {
		if err := d.CommitParticles(); err != nil {
			return err
		}
	}
	if t <= d.time || d.parts.Len() == 0 {
		if t > d.time {
			d.time = t
		}
		return nil
	}
	reached, acc, err := evolveKDK(ctx, d.parts, d.acc, d.accelerations, d.time, t, d.params.Timestep)
	d.time = reached
	d.acc = acc
	return err
}

func (d *Direct) Energies() (kinetic, potential float64) {
	kinetic = d.parts.KineticEnergy()
	potential = potentialEnergy(d.parts, d.params.G, d.params.Epsilon2, d.params.Workers)
	return kinetic, potential
}

func (d *Direct) Stop() {
	d.acc = nil
	d.committed = false
}

// accelerations returns self-gravity accelerations at current positions.
func (d *Direct) accelerations() []datamodel.Vec3 {
	n := d.parts.Len()
	acc := make([]datamodel.Vec3, n)
	if n < 2 || !d.params.UseSelfGravity {
		return acc
	}

	w := workerCount(d.params.Workers, n)
	if w == 1 {
		d.pairwiseRows(acc, 0, n)
		return acc
	}

	// full per-row sums so rows stay independent across workers
	var eg errgroup.Group
	chunk := (n + w - 1) / w
	for b := 0; b < w; b++ {
		lo := b * chunk
		hi := lo + chunk
		if hi > n {
			hi = n
		}
		eg.Go(func() error {
			d.fullRows(acc, lo, hi)
			return nil
		})
	}
	_ = eg.Wait()
	return acc
}

// pairwiseRows applies Newton pairs symmetrically, serial path only.
func (d *Direct) pairwiseRows(acc []datamodel.Vec3, lo, hi int) {
	n := d.parts.Len()
	g := d.params.G
	eps2 := d.params.Epsilon2
	for i := lo; i < hi; i++ {
		pi := d.parts.At(i)
		for j := i + 1; j < n; j++ {
			pj := d.parts.At(j)
			dr := pj.Pos.Sub(pi.Pos)
			r2 := dr.Norm2() + eps2
			inv := 1 / math.Sqrt(r2)
			inv3 := inv * inv * inv
			acc[i] = acc[i].Add(dr.Scale(g * pj.Mass * inv3))
			acc[j] = acc[j].Sub(dr.Scale(g * pi.Mass * inv3))
		}
	}
}

// fullRows computes complete sums for rows [lo,hi).
func (d *Direct) fullRows(acc []datamodel.Vec3, lo, hi int) {
	n := d.parts.Len()
	g := d.params.G
	eps2 := d.params.Epsilon2
	for i := lo; i < hi; i++ {
		pi := d.parts.At(i)
		var a datamodel.Vec3
		for j := 0; j < n; j++ {
			if j == i {
				continue
			}
			pj := d.parts.At(j)
			dr := pj.Pos.Sub(pi.Pos)
			r2 := dr.Norm2() + eps2
			inv := 1 / math.Sqrt(r2)
			a = a.Add(dr.Scale(g * pj.Mass * inv * inv * inv))
		}
		acc[i] = a
	}
}

// AccelAt evaluates the field of this code's particles at external points.
func (d *Direct) AccelAt(pos []datamodel.Vec3) []datamodel.Vec3 {
	out := make([]datamodel.Vec3, len(pos))
	g := d.params.G
	eps2 := d.params.Epsilon2
	for k, p := range pos {
		var a datamodel.Vec3
		for j := 0; j < d.parts.Len(); j++ {
			pj := d.parts.At(j)
			dr := pj.Pos.Sub(p)
			r2 := dr.Norm2() + eps2
			if r2 == 0 {
				continue
			}
			inv := 1 / math.Sqrt(r2)
			a = a.Add(dr.Scale(g * pj.Mass * inv * inv * inv))
		}
		out[k] = a
	}
	return out
}
