// Package bridge couples gravitational systems that evolve on their own
// integrators. Partners act on a system during interleaved velocity
// kicks while each system drifts itself between them, the classic
// kick-drift-kick operator split.
package bridge

import (
	"context"
	"fmt"
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/clusterlab/clusterlab/internal/datamodel"
	"github.com/clusterlab/clusterlab/internal/units"
)

// Field is anything that can accelerate bodies at given positions: a
// partner system's gravity code or an analytic background potential.
type Field interface {
	Name() string
	AccelAt(pos []datamodel.Vec3) []datamodel.Vec3
}

// evolver is the drift surface of an attached gravity code.
type evolver interface {
	EvolveTo(ctx context.Context, t float64) error
}

type coupled struct {
	sys      *datamodel.System
	partners []Field
}

// Bridge advances a set of coupled systems on a shared timestep.
// Systems without partners still drift; systems without a gravity code
// drift ballistically under the accumulated kicks.
type Bridge struct {
	dt       float64
	threaded bool
	systems  []coupled
	time     float64
}

// New builds a bridge with the given kick interval. Threaded bridges
// drift their systems concurrently.
func New(timestep units.Quantity, threaded bool) (*Bridge, error) {
	if timestep.Unit.Dim != (units.Dim{T: 1}) {
		return nil, fmt.Errorf("bridge timestep has dimension %s, want time", timestep.Unit.Dim)
	}
	dt := timestep.SI()
	if dt <= 0 {
		return nil, fmt.Errorf("bridge timestep must be positive, got %s", timestep)
	}
	return &Bridge{dt: dt, threaded: threaded}, nil
}

// Add couples a system to the bridge. The partners' fields kick the
// system's bodies every half step.
func (b *Bridge) Add(sys *datamodel.System, partners ...Field) {
	b.systems = append(b.systems, coupled{sys: sys, partners: partners})
}

func (b *Bridge) Time() float64 { return b.time }

func (b *Bridge) Len() int { return len(b.systems) }

// EvolveTo advances all systems to time t in kick-drift-kick substeps
// of the bridge timestep.
func (b *Bridge) EvolveTo(ctx context.Context, t float64) error {
	if t <= b.time {
		return nil
	}
	for b.time < t-1e-12*math.Max(1, math.Abs(t)) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		h := math.Min(b.dt, t-b.time)
		b.kick(h / 2)
		if err := b.drift(ctx, b.time+h, h); err != nil {
			return err
		}
		b.kick(h / 2)
		b.time += h
	}
	b.time = t
	return nil
}

// kick applies every partner's acceleration to each coupled system for
// interval h. Only velocities change, so the drift integrators keep
// their cached self-forces.
func (b *Bridge) kick(h float64) {
	for _, c := range b.systems {
		if len(c.partners) == 0 {
			continue
		}
		parts := liveSet(c.sys)
		n := parts.Len()
		if n == 0 {
			continue
		}
		pos := make([]datamodel.Vec3, n)
		for i := range pos {
			pos[i] = parts.At(i).Pos
		}
		for _, f := range c.partners {
			acc := f.AccelAt(pos)
			for i := 0; i < n; i++ {
				pt := parts.At(i)
				pt.Vel = pt.Vel.Add(acc[i].Scale(h))
			}
		}
	}
}

func (b *Bridge) drift(ctx context.Context, target, h float64) error {
	if b.threaded && len(b.systems) > 1 {
		eg, gctx := errgroup.WithContext(ctx)
		for _, c := range b.systems {
			eg.Go(func() error { return driftOne(gctx, c, target, h) })
		}
		return eg.Wait()
	}
	for _, c := range b.systems {
		if err := driftOne(ctx, c, target, h); err != nil {
			return err
		}
	}
	return nil
}

func driftOne(ctx context.Context, c coupled, target, h float64) error {
	if g := c.sys.Gravity(); g != nil {
		ev, ok := g.(evolver)
		if !ok {
			return fmt.Errorf("bridge: gravity code %s of %s cannot evolve", g.Name(), c.sys.Name)
		}
		if err := ev.EvolveTo(ctx, target); err != nil {
			return fmt.Errorf("bridge drift %s: %w", c.sys.Name, err)
		}
		return nil
	}

	bodies := c.sys.Bodies
	for i := 0; i < bodies.Len(); i++ {
		pt := bodies.At(i)
		pt.Pos = pt.Pos.Add(pt.Vel.Scale(h))
	}
	return nil
}

// liveSet is the particle copy the bridge works on: the gravity code's
// working set when one is attached, the master set otherwise.
func liveSet(s *datamodel.System) *datamodel.Particles {
	if g := s.Gravity(); g != nil {
		return g.Particles()
	}
	return s.Bodies
}
