package ic

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/clusterlab/clusterlab/internal/units"
)

// maxCountIterations caps the bisection on star count.
const maxCountIterations = 50

// NumForTotalMass finds the star count whose sampled total mass lands
// within a fractional tolerance of target. Every evaluation re-seeds the
// generator, so draws for n stars are a prefix of the draws for n+1 and
// the sampled total is monotone in the count. Returns the count, the
// sampled total and its fractional error.
func NumForTotalMass(f IMF, target units.Quantity, tol float64, seed int64) (int, units.Quantity, float64, error) {
	if target.Unit.Dim != (units.Dim{M: 1}) {
		return 0, units.Quantity{}, 0, fmt.Errorf("target has dimension %s, want mass", target.Unit.Dim)
	}
	goal := target.SI()
	if goal <= 0 {
		return 0, units.Quantity{}, 0, fmt.Errorf("target mass must be positive, got %g kg", goal)
	}
	if tol <= 0 {
		return 0, units.Quantity{}, 0, fmt.Errorf("tolerance must be positive, got %g", tol)
	}

	sample := func(n int) float64 {
		rng := rand.New(rand.NewSource(seed))
		total := 0.0
		for _, m := range f.Sample(rng, n) {
			total += m
		}
		return total
	}
	fracErr := func(m float64) float64 { return math.Abs(goal-m) / goal }
	asQuantity := func(m float64) units.Quantity { return units.New(m, units.Kilogram) }

	// First guess from a pilot mean over 1000 draws.
	pilot := sample(1000) / 1000
	n := int(goal / pilot)
	m := sample(n)

	nLow := n / 2
	mLow := sample(nLow)
	if mLow >= goal {
		return 0, units.Quantity{}, 0, fmt.Errorf(
			"lower bracket %d stars already exceeds target %s", nLow, target)
	}
	nUp := 2 * n
	mUp := sample(nUp)
	if mUp <= goal {
		return 0, units.Quantity{}, 0, fmt.Errorf(
			"upper bracket %d stars stays below target %s", nUp, target)
	}

	for i := 0; fracErr(m) > tol && i < maxCountIterations; i++ {
		if m < goal {
			nLow, mLow = n, m
		}
		if m > goal {
			nUp, mUp = n, m
		}

		n = (nLow + nUp) / 2
		m = sample(n)

		// Brackets one count apart: pick whichever edge lands closer.
		switch {
		case n < nLow:
			n, m = nLow, mLow
		case n == nLow:
			if mNext := sample(nLow + 1); fracErr(mNext) < fracErr(mLow) {
				n, m = nLow+1, mNext
			} else {
				n, m = nLow, mLow
			}
		case n == nUp:
			if mPrev := sample(nUp - 1); fracErr(mPrev) < fracErr(mUp) {
				n, m = nUp-1, mPrev
			} else {
				n, m = nUp, mUp
			}
		case n > nUp:
			n, m = nUp, mUp
		default:
			continue
		}
		break
	}

	return n, asQuantity(m), fracErr(m), nil
}

// SampleTotal draws masses summing to roughly target: the count comes
// from NumForTotalMass and the returned draws reproduce the total found
// there.
func SampleTotal(f IMF, target units.Quantity, tol float64, seed int64) ([]float64, error) {
	n, _, _, err := NumForTotalMass(f, target, tol, seed)
	if err != nil {
		return nil, err
	}
	rng := rand.New(rand.NewSource(seed))
	return f.Sample(rng, n), nil
}
