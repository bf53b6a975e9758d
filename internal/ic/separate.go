package ic

import (
	"fmt"

	"github.com/clusterlab/clusterlab/internal/analysis"
	"github.com/clusterlab/clusterlab/internal/datamodel"
	"github.com/clusterlab/clusterlab/internal/units"
)

// NewUnboundTwin builds an empty system wired with the same codes as a
// cluster built from opts. It is the holding pen SeparateBoundUnbound
// moves escapers into.
func NewUnboundTwin(opts ClusterOptions, conv *units.Converter) (*datamodel.System, error) {
	if opts.Name == "" {
		opts.Name = "cluster"
	}
	opts.Name += "-unbound"
	return Rebuild(opts, datamodel.NewParticles(0), conv)
}

// SeparateBoundUnbound moves bodies beyond a radius cut into the unbound
// system. The cut is measured from the origin against the density-center
// distance plus the cutoff, since the density center tracks the cluster
// better than the center of mass once escapers smear along the orbit.
// Code membership of both systems is resynchronized. Returns how many
// bodies moved.
func SeparateBoundUnbound(bound, unbound *datamodel.System, cutoff units.Quantity) (int, error) {
	if cutoff.Unit.Dim != (units.Dim{L: 1}) {
		return 0, fmt.Errorf("bound radius has dimension %s, want length", cutoff.Unit.Dim)
	}
	cut := cutoff.SI()
	if cut < 0 {
		return 0, fmt.Errorf("bound radius must be non-negative, got %s", cutoff)
	}
	if bound.Bodies.Len() == 0 {
		return 0, nil
	}

	center, _ := analysis.DensityCenter(bound.Bodies, analysis.DefaultNeighbors)
	limit := center.Norm() + cut

	var escaped []uint64
	for i := 0; i < bound.Bodies.Len(); i++ {
		pt := bound.Bodies.At(i)
		if pt.Pos.Norm() > limit {
			escaped = append(escaped, pt.Key)
		}
	}
	if len(escaped) == 0 {
		return 0, nil
	}

	for _, key := range escaped {
		pt, ok := bound.Bodies.ByKey(key)
		if !ok {
			continue
		}
		if _, err := unbound.Bodies.Add(*pt); err != nil {
			return 0, fmt.Errorf("move escaper %d: %w", key, err)
		}
	}
	bound.Bodies.Remove(escaped...)

	if err := bound.Synchronize(); err != nil {
		return 0, err
	}
	if err := unbound.Synchronize(); err != nil {
		return 0, err
	}
	return len(escaped), nil
}
