package analysis

import (
	"fmt"
	"math"

	"github.com/clusterlab/clusterlab/internal/datamodel"
	"github.com/clusterlab/clusterlab/internal/units"
)

// MassHistogram is a base-10 logarithmic mass histogram. Edges are in
// log10(m/MSun) with len(Counts)+1 entries.
type MassHistogram struct {
	Edges  []float64
	Counts []int
}

// MassFunction bins the present-day masses of a body set. Bodies with
// non-positive mass are skipped; a single-valued spectrum gets a half
// decade of padding on each side.
func MassFunction(p *datamodel.Particles, bins int) (MassHistogram, error) {
	if bins < 1 {
		return MassHistogram{}, fmt.Errorf("mass histogram needs at least 1 bin, got %d", bins)
	}

	logs := make([]float64, 0, p.Len())
	lo, hi := math.Inf(1), math.Inf(-1)
	for i := 0; i < p.Len(); i++ {
		m := p.At(i).Mass
		if m <= 0 {
			continue
		}
		l := math.Log10(m / units.MSun.Scale)
		logs = append(logs, l)
		lo = math.Min(lo, l)
		hi = math.Max(hi, l)
	}

	h := MassHistogram{
		Edges:  make([]float64, bins+1),
		Counts: make([]int, bins),
	}
	if len(logs) == 0 {
		return h, nil
	}
	if lo == hi {
		lo, hi = lo-0.5, hi+0.5
	}

	width := (hi - lo) / float64(bins)
	for i := range h.Edges {
		h.Edges[i] = lo + width*float64(i)
	}
	for _, l := range logs {
		b := int((l - lo) / width)
		if b >= bins {
			b = bins - 1
		}
		if b < 0 {
			b = 0
		}
		h.Counts[b]++
	}
	return h, nil
}
