package gravity

import (
	"context"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/clusterlab/clusterlab/internal/datamodel"
)

// evolveKDK advances parts from to target time with kick-drift-kick
// leapfrog steps of size dt. accel recomputes accelerations from current
// positions; acc holds the accelerations at the current positions on entry
// and on return, so force evaluations are not repeated across steps.
func evolveKDK(ctx context.Context, parts *datamodel.Particles, acc []datamodel.Vec3,
	accel func() []datamodel.Vec3, from, to, dt float64) (float64, []datamodel.Vec3, error) {

	t := from
	for t < to-1e-12*math.Max(1, math.Abs(to)) {
		select {
		case <-ctx.Done():
			return t, acc, ctx.Err()
		default:
		}

		h := math.Min(dt, to-t)
		kick(parts, acc, h/2)
		drift(parts, h)
		acc = accel()
		kick(parts, acc, h/2)
		t += h
	}
	return to, acc, nil
}

func kick(parts *datamodel.Particles, acc []datamodel.Vec3, h float64) {
	for i := 0; i < parts.Len(); i++ {
		pt := parts.At(i)
		pt.Vel = pt.Vel.Add(acc[i].Scale(h))
	}
}

func drift(parts *datamodel.Particles, h float64) {
	for i := 0; i < parts.Len(); i++ {
		pt := parts.At(i)
		pt.Pos = pt.Pos.Add(pt.Vel.Scale(h))
	}
}

// workerCount resolves the effective parallelism for n particles.
func workerCount(requested, n int) int {
	w := requested
	if w < 1 {
		w = 1
	}
	if w > runtime.NumCPU() {
		w = runtime.NumCPU()
	}
	if w > n {
		w = n
	}
	if w < 1 {
		w = 1
	}
	return w
}

// potentialEnergy is the pairwise sum split across row blocks.
func potentialEnergy(parts *datamodel.Particles, g, eps2 float64, workers int) float64 {
	n := parts.Len()
	if n < 2 {
		return 0
	}
	w := workerCount(workers, n)
	if w == 1 {
		return rowPotential(parts, g, eps2, 0, n)
	}

	sums := make([]float64, w)
	var eg errgroup.Group
	chunk := (n + w - 1) / w
	for b := 0; b < w; b++ {
		lo := b * chunk
		hi := lo + chunk
		if hi > n {
			hi = n
		}
		eg.Go(func() error {
			sums[b] = rowPotential(parts, g, eps2, lo, hi)
			return nil
		})
	}
	_ = eg.Wait()

	total := 0.0
	for _, s := range sums {
		total += s
	}
	return total
}

func rowPotential(parts *datamodel.Particles, g, eps2 float64, lo, hi int) float64 {
	pe := 0.0
	n := parts.Len()
	for i := lo; i < hi; i++ {
		pi := parts.At(i)
		for j := i + 1; j < n; j++ {
			pj := parts.At(j)
			r := math.Sqrt(pj.Pos.Sub(pi.Pos).Norm2() + eps2)
			pe -= g * pi.Mass * pj.Mass / r
		}
	}
	return pe
}
