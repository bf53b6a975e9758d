package analysis

import (
	"math"

	"github.com/clusterlab/clusterlab/internal/datamodel"
)

// DefaultNeighbors is the Casertano & Hut (1985) choice of the sixth
// nearest neighbor for local density estimates.
const DefaultNeighbors = 6

// DensityCenter estimates the density-weighted center of a cluster and
// returns the per-body density estimates alongside it. The local density
// around body i is the mass of its k-1 nearest neighbors inside the
// sphere reaching its k-th neighbor. Sets too small for the estimate
// (fewer than k+1 bodies) fall back to the center of mass with nil
// densities.
func DensityCenter(p *datamodel.Particles, k int) (datamodel.Vec3, []float64) {
	n := p.Len()
	if k < 2 || n < k+1 {
		return p.CenterOfMass(), nil
	}

	dens := make([]float64, n)
	sum := 0.0
	var center datamodel.Vec3
	for i := 0; i < n; i++ {
		rk, enclosed := neighborhood(p, i, k)
		if rk == 0 {
			continue
		}
		rho := enclosed / (4.0 / 3.0 * math.Pi * rk * rk * rk)
		dens[i] = rho
		sum += rho
		center = center.Add(p.At(i).Pos.Scale(rho))
	}
	if sum == 0 {
		return p.CenterOfMass(), dens
	}
	return center.Scale(1 / sum), dens
}

// neighborhood finds the distance to the k-th nearest neighbor of body i
// and the mass of the k-1 closer ones.
func neighborhood(p *datamodel.Particles, i, k int) (rk, enclosed float64) {
	type near struct {
		d2   float64
		mass float64
	}
	best := make([]near, 0, k)
	pi := p.At(i)
	for j := 0; j < p.Len(); j++ {
		if j == i {
			continue
		}
		pj := p.At(j)
		d2 := pj.Pos.Sub(pi.Pos).Norm2()
		if len(best) == k && d2 >= best[k-1].d2 {
			continue
		}
		pos := len(best)
		if pos < k {
			best = append(best, near{})
		} else {
			pos = k - 1
		}
		for pos > 0 && best[pos-1].d2 > d2 {
			best[pos] = best[pos-1]
			pos--
		}
		best[pos] = near{d2: d2, mass: pj.Mass}
	}
	for j := 0; j < len(best)-1; j++ {
		enclosed += best[j].mass
	}
	return math.Sqrt(best[len(best)-1].d2), enclosed
}

// CoreRadius is the density-squared-weighted rms distance from the
// density center, following Casertano & Hut. Pass the densities
// returned by DensityCenter; without them the result is 0.
func CoreRadius(p *datamodel.Particles, center datamodel.Vec3, dens []float64) float64 {
	if len(dens) != p.Len() || p.Len() == 0 {
		return 0
	}
	num, den := 0.0, 0.0
	for i := 0; i < p.Len(); i++ {
		w := dens[i] * dens[i]
		num += w * p.At(i).Pos.Sub(center).Norm2()
		den += w
	}
	if den == 0 {
		return 0
	}
	return math.Sqrt(num / den)
}
