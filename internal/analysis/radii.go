package analysis

import (
	"fmt"
	"sort"

	"github.com/clusterlab/clusterlab/internal/datamodel"
)

// DefaultMassFractions are the Lagrangian shells reported by runs.
var DefaultMassFractions = []float64{0.1, 0.25, 0.5, 0.75, 0.9}

// LagrangianRadii returns, for each mass fraction, the distance from
// center enclosing that share of the total mass. Results follow the
// order of fractions and are nondecreasing for nondecreasing fractions.
// An empty set yields zeros.
func LagrangianRadii(p *datamodel.Particles, center datamodel.Vec3, fractions []float64) ([]float64, error) {
	for _, f := range fractions {
		if f <= 0 || f > 1 {
			return nil, fmt.Errorf("mass fraction %g outside (0, 1]", f)
		}
	}
	out := make([]float64, len(fractions))
	n := p.Len()
	if n == 0 {
		return out, nil
	}

	type shell struct {
		r    float64
		mass float64
	}
	shells := make([]shell, n)
	total := 0.0
	for i := 0; i < n; i++ {
		pt := p.At(i)
		shells[i] = shell{r: pt.Pos.Sub(center).Norm(), mass: pt.Mass}
		total += pt.Mass
	}
	if total <= 0 {
		return out, nil
	}
	sort.Slice(shells, func(i, j int) bool { return shells[i].r < shells[j].r })

	cum := make([]float64, n)
	run := 0.0
	for i, s := range shells {
		run += s.mass
		cum[i] = run
	}

	for k, f := range fractions {
		target := f * total
		i := sort.SearchFloat64s(cum, target)
		if i >= n {
			i = n - 1
		}
		out[k] = shells[i].r
	}
	return out, nil
}

// HalfMassRadius is the Lagrangian radius of the 50% shell.
func HalfMassRadius(p *datamodel.Particles, center datamodel.Vec3) float64 {
	r, err := LagrangianRadii(p, center, []float64{0.5})
	if err != nil {
		return 0
	}
	return r[0]
}
