package ic

import (
	"github.com/clusterlab/clusterlab/internal/datamodel"
	"github.com/clusterlab/clusterlab/internal/units"
)

// fewBody assembles a system from hand-placed bodies given in N-body
// units. One N-body mass unit maps to a solar mass so published
// problem constants carry over unchanged.
func fewBody(opts ClusterOptions, masses []float64, pos, vel []datamodel.Vec3) (*datamodel.System, error) {
	conv := opts.Converter
	if conv == nil {
		scale := opts.VirialRadius
		if scale.IsZero() {
			scale = units.New(1, units.Parsec)
		}
		var err error
		conv, err = units.NewConverter(units.New(1, units.MSun), scale)
		if err != nil {
			return nil, err
		}
	}

	bodies := datamodel.NewParticles(len(masses))
	for i, m := range masses {
		_, err := bodies.Add(datamodel.Particle{
			Mass: m * conv.MassSI(),
			Pos:  pos[i].Scale(conv.LengthSI()),
			Vel:  vel[i].Scale(conv.VelocitySI()),
		})
		if err != nil {
			return nil, err
		}
	}
	return Rebuild(opts, bodies, conv)
}

// FigureEight builds the equal-mass three-body choreography of
// Chenciner & Montgomery (2000), with the initial values of Simó. In
// N-body units the orbit closes after T = 6.32591398.
func FigureEight(opts ClusterOptions) (*datamodel.System, error) {
	if opts.Name == "" {
		opts.Name = "figure-eight"
	}
	v3 := datamodel.Vec3{X: -0.93240737, Y: -0.86473146}
	v12 := v3.Scale(-0.5)
	return fewBody(opts,
		[]float64{1, 1, 1},
		[]datamodel.Vec3{
			{X: 0.97000436, Y: -0.24308753},
			{X: -0.97000436, Y: 0.24308753},
			{},
		},
		[]datamodel.Vec3{v12, v12, v3},
	)
}

// Pythagorean builds Burrau's problem: masses 3, 4 and 5 starting at
// rest on the matching corners of a 3-4-5 right triangle. The center
// of mass sits at the origin by construction.
func Pythagorean(opts ClusterOptions) (*datamodel.System, error) {
	if opts.Name == "" {
		opts.Name = "pythagorean"
	}
	return fewBody(opts,
		[]float64{3, 4, 5},
		[]datamodel.Vec3{
			{X: 1, Y: 3},
			{X: -2, Y: -1},
			{X: 1, Y: -1},
		},
		make([]datamodel.Vec3, 3),
	)
}
