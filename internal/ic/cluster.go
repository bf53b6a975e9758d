package ic

import (
	"fmt"
	"math/rand"

	"github.com/clusterlab/clusterlab/internal/datamodel"
	"github.com/clusterlab/clusterlab/internal/evolution"
	"github.com/clusterlab/clusterlab/internal/gravity"
	"github.com/clusterlab/clusterlab/internal/units"
)

// ClusterOptions describes one cluster model. The zero value of every
// optional field falls back to the defaults below; population needs N or
// TotalMass.
type ClusterOptions struct {
	Name string

	// Population, by count or by total mass.
	N         int
	TotalMass units.Quantity
	MassTol   float64 // count bisection tolerance, default 1e-2

	IMF     IMF     // default Kroupa over its full range
	Profile Profile // default Plummer

	VirialRadius units.Quantity       // default 10 pc
	Position     units.VectorQuantity // default origin
	Velocity     units.VectorQuantity // default at rest
	BodyRadius   units.Quantity       // default 0 AU

	GravityCode   string         // "", "direct" or "bhtree"
	Softening     units.Quantity // default 0 pc
	OpeningAngle  float64        // default 0.6
	Workers       int            // default 8
	Timestep      units.Quantity // default 1 Myr
	WithEvolution bool

	Converter *units.Converter // derived from (total mass, VirialRadius) when nil
	Seed      int64
	// NoScale skips the rescale to Hénon units after sampling.
	NoScale bool
}

func (o ClusterOptions) withDefaults() (ClusterOptions, error) {
	if o.Name == "" {
		o.Name = "cluster"
	}
	if o.MassTol <= 0 {
		o.MassTol = 1e-2
	}
	if o.IMF == nil {
		f, err := NewKroupa(units.Quantity{}, units.Quantity{})
		if err != nil {
			return o, err
		}
		o.IMF = f
	}
	if o.Profile == nil {
		o.Profile = NewPlummer()
	}
	if o.VirialRadius.IsZero() {
		o.VirialRadius = units.New(10, units.Parsec)
	}
	if o.OpeningAngle == 0 {
		o.OpeningAngle = 0.6
	}
	if o.Workers < 1 {
		o.Workers = 8
	}
	if o.Timestep.IsZero() {
		o.Timestep = units.New(1, units.Megayear)
	}

	for _, check := range []struct {
		name string
		dim  units.Dim
		q    units.Quantity
	}{
		{"virial_radius", units.Dim{L: 1}, o.VirialRadius},
		{"body_radius", units.Dim{L: 1}, o.BodyRadius},
		{"softening", units.Dim{L: 1}, o.Softening},
		{"timestep", units.Dim{T: 1}, o.Timestep},
	} {
		if !check.q.IsZero() && check.q.Unit.Dim != check.dim {
			return o, fmt.Errorf("cluster %s: %s has dimension %s, want %s",
				o.Name, check.name, check.q.Unit.Dim, check.dim)
		}
	}
	return o, nil
}

// BuildCluster samples a cluster and assembles its live system: draw
// masses, derive the converter, sample the profile, rescale to Hénon
// units, stamp radii and masses, shift to the requested phase-space
// location, then attach and load the codes.
func BuildCluster(opts ClusterOptions) (*datamodel.System, error) {
	opts, err := opts.withDefaults()
	if err != nil {
		return nil, err
	}
	rng := rand.New(rand.NewSource(opts.Seed))

	var masses []float64
	switch {
	case opts.N > 0:
		masses = opts.IMF.Sample(rng, opts.N)
	case !opts.TotalMass.IsZero():
		masses, err = SampleTotal(opts.IMF, opts.TotalMass, opts.MassTol, opts.Seed)
		if err != nil {
			return nil, fmt.Errorf("sizing cluster %s: %w", opts.Name, err)
		}
	default:
		return nil, fmt.Errorf("cluster %s needs a star count or a total mass", opts.Name)
	}

	total := 0.0
	for _, m := range masses {
		total += m
	}
	conv := opts.Converter
	if conv == nil {
		conv, err = units.NewConverter(units.New(total, units.Kilogram), opts.VirialRadius)
		if err != nil {
			return nil, fmt.Errorf("cluster %s converter: %w", opts.Name, err)
		}
	}

	bodies, err := opts.Profile.Sample(rng, len(masses), conv)
	if err != nil {
		return nil, fmt.Errorf("cluster %s profile: %w", opts.Name, err)
	}

	if !opts.NoScale {
		if err := bodies.ScaleToStandard(conv, 0.5, opts.Softening.SI()); err != nil {
			return nil, fmt.Errorf("cluster %s rescale: %w", opts.Name, err)
		}
	}

	// The profile's equal masses were placeholders for the rescale; the
	// IMF draw is authoritative.
	radius := opts.BodyRadius.SI()
	for i := 0; i < bodies.Len(); i++ {
		pt := bodies.At(i)
		pt.Mass = masses[i]
		pt.Radius = radius
	}

	pos, vel := opts.Position.SI(), opts.Velocity.SI()
	bodies.Shift(
		datamodel.Vec3{X: pos[0], Y: pos[1], Z: pos[2]},
		datamodel.Vec3{X: vel[0], Y: vel[1], Z: vel[2]},
	)

	return Rebuild(opts, bodies, conv)
}

// Rebuild wires a live system around existing bodies, skipping the
// sampling pipeline. This is the restore path for snapshots, so the
// converter is required.
func Rebuild(opts ClusterOptions, bodies *datamodel.Particles, conv *units.Converter) (*datamodel.System, error) {
	opts, err := opts.withDefaults()
	if err != nil {
		return nil, err
	}
	if conv == nil {
		return nil, fmt.Errorf("cluster %s rebuild needs a converter", opts.Name)
	}
	if bodies == nil {
		bodies = datamodel.NewParticles(0)
	}

	sys := datamodel.NewSystem(opts.Name, bodies, conv)

	if opts.WithEvolution {
		code, err := evolution.New("sse")
		if err != nil {
			return nil, fmt.Errorf("cluster %s evolution: %w", opts.Name, err)
		}
		if err := sys.AttachEvolution(code); err != nil {
			return nil, fmt.Errorf("cluster %s evolution: %w", opts.Name, err)
		}
		if err := code.CommitParticles(); err != nil {
			return nil, fmt.Errorf("cluster %s evolution: %w", opts.Name, err)
		}
		// Pull the committed track state (stellar radii) into the
		// master set before gravity loads it.
		if ch, ok := sys.Channel("evolution", "particles"); ok {
			ch.Copy()
		}
	}

	if opts.GravityCode != "" {
		eps := opts.Softening.SI()
		params := gravity.DefaultParams()
		params.Epsilon2 = eps * eps
		params.OpeningAngle = opts.OpeningAngle
		params.Timestep = opts.Timestep.SI()
		params.Workers = opts.Workers
		code, err := gravity.New(opts.GravityCode, params)
		if err != nil {
			return nil, fmt.Errorf("cluster %s gravity: %w", opts.Name, err)
		}
		if err := sys.AttachGravity(code); err != nil {
			return nil, fmt.Errorf("cluster %s gravity: %w", opts.Name, err)
		}
		if err := code.CommitParticles(); err != nil {
			return nil, fmt.Errorf("cluster %s gravity: %w", opts.Name, err)
		}
	}

	return sys, nil
}
