package gravity

import (
	"context"
	"fmt"

	"github.com/clusterlab/clusterlab/internal/datamodel"
	"github.com/clusterlab/clusterlab/internal/units"
)

// Code is the surface a gravity solver exposes to systems and runners.
// Particles returns the code's own working copy; channels keep it in step
// with the master set.
type Code interface {
	Name() string
	Particles() *datamodel.Particles
	Parameters() *Params
	CommitParticles() error
	EvolveTo(ctx context.Context, t float64) error
	Time() float64
	Energies() (kinetic, potential float64)
	AccelAt(pos []datamodel.Vec3) []datamodel.Vec3
	Stop()
}

// Params configures a solver. All values are SI unless the particle set
// itself is in N-body units, in which case G should be 1.
type Params struct {
	G              float64
	Epsilon2       float64 // softening length squared
	OpeningAngle   float64 // barnes-hut acceptance, unused by direct
	Timestep       float64
	Workers        int
	UseSelfGravity bool
}

func DefaultParams() *Params {
	return &Params{
		G:              units.G.Value,
		OpeningAngle:   0.5,
		Workers:        1,
		UseSelfGravity: true,
	}
}

func (p *Params) validate() error {
	if p.Timestep <= 0 {
		return fmt.Errorf("timestep must be positive, got %g", p.Timestep)
	}
	if p.G <= 0 {
		return fmt.Errorf("gravitational constant must be positive, got %g", p.G)
	}
	if p.OpeningAngle < 0 {
		return fmt.Errorf("opening angle must be non-negative, got %g", p.OpeningAngle)
	}
	if p.Workers < 1 {
		p.Workers = 1
	}
	return nil
}

// New constructs a solver by name, "direct" or "bhtree".
func New(name string, params *Params) (Code, error) {
	switch name {
	case "direct":
		return NewDirect(params), nil
	case "bhtree":
		return NewBHTree(params), nil
	default:
		return nil, fmt.Errorf("unknown gravity code: %s", name)
	}
}
