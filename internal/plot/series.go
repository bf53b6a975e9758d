package plot

import (
	"fmt"
	"strings"

	"github.com/guptarohit/asciigraph"

	"github.com/clusterlab/clusterlab/internal/analysis"
	"github.com/clusterlab/clusterlab/internal/simulation"
	"github.com/clusterlab/clusterlab/internal/units"
)

// Series renders one line chart.
func Series(values []float64, caption string) string {
	if len(values) < 2 {
		return fmt.Sprintf("%s: not enough samples (%d)", caption, len(values))
	}
	return asciigraph.Plot(values,
		asciigraph.Height(10),
		asciigraph.Width(80),
		asciigraph.Caption(caption),
	)
}

// Sparkline is a compact series for embedding in live panes. Drift
// values are tiny, so labels carry extra digits.
func Sparkline(values []float64, width, height int) string {
	if len(values) < 2 {
		return ""
	}
	return asciigraph.Plot(values,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Precision(4),
	)
}

// MultiSeries overlays several series with a legend.
func MultiSeries(series [][]float64, legends []string, caption string) string {
	if len(series) == 0 || len(series[0]) < 2 {
		return fmt.Sprintf("%s: not enough samples", caption)
	}
	return asciigraph.PlotMany(series,
		asciigraph.Height(12),
		asciigraph.Width(80),
		asciigraph.Caption(caption),
		asciigraph.SeriesLegends(legends...),
	)
}

// SeriesColumn names a plottable diagnostics column.
type SeriesColumn string

const (
	ColTotal       SeriesColumn = "total"
	ColKinetic     SeriesColumn = "kinetic"
	ColPotential   SeriesColumn = "potential"
	ColVirialRatio SeriesColumn = "virial_ratio"
	ColBoundFrac   SeriesColumn = "bound_frac"
	ColRadii       SeriesColumn = "radii"
)

// SeriesColumns lists what DiagSeries accepts, in display order.
func SeriesColumns() []SeriesColumn {
	return []SeriesColumn{ColTotal, ColKinetic, ColPotential, ColVirialRatio, ColBoundFrac, ColRadii}
}

// DiagSeries renders one diagnostics column over time. The radii column
// is the lagrangian multi-series; everything else is a single line.
func DiagSeries(rows []simulation.DiagRow, col SeriesColumn) (string, error) {
	if len(rows) == 0 {
		return "", fmt.Errorf("no diagnostics rows")
	}
	t0 := rows[0].Time / units.Megayear.Scale
	t1 := rows[len(rows)-1].Time / units.Megayear.Scale
	span := fmt.Sprintf("t = %.3g..%.3g Myr", t0, t1)

	pick := func(f func(simulation.DiagRow) float64) []float64 {
		out := make([]float64, len(rows))
		for i, r := range rows {
			out[i] = f(r)
		}
		return out
	}

	switch col {
	case ColTotal:
		return Series(pick(func(r simulation.DiagRow) float64 { return r.Total }), "total energy [J], "+span), nil
	case ColKinetic:
		return Series(pick(func(r simulation.DiagRow) float64 { return r.Kinetic }), "kinetic energy [J], "+span), nil
	case ColPotential:
		return Series(pick(func(r simulation.DiagRow) float64 { return r.Potential }), "potential energy [J], "+span), nil
	case ColVirialRatio:
		return Series(pick(func(r simulation.DiagRow) float64 { return r.VirialRatio }), "virial ratio, "+span), nil
	case ColBoundFrac:
		return Series(pick(func(r simulation.DiagRow) float64 { return r.BoundFrac }), "bound mass fraction, "+span), nil
	case ColRadii:
		series := [][]float64{
			pick(func(r simulation.DiagRow) float64 { return r.R10 / units.Parsec.Scale }),
			pick(func(r simulation.DiagRow) float64 { return r.R50 / units.Parsec.Scale }),
			pick(func(r simulation.DiagRow) float64 { return r.R90 / units.Parsec.Scale }),
		}
		return MultiSeries(series, []string{"r10", "r50", "r90"}, "lagrangian radii [pc], "+span), nil
	default:
		return "", fmt.Errorf("unknown series %q, have %v", col, SeriesColumns())
	}
}

// Histogram renders a mass function as fixed-width bar rows, one per
// log-mass bin.
func Histogram(h analysis.MassHistogram, barWidth int) string {
	if len(h.Counts) == 0 {
		return "empty histogram\n"
	}
	if barWidth <= 0 {
		barWidth = 40
	}
	maxCount := 0
	for _, c := range h.Counts {
		if c > maxCount {
			maxCount = c
		}
	}

	var b strings.Builder
	for i, count := range h.Counts {
		width := 0
		if maxCount > 0 {
			width = count * barWidth / maxCount
		}
		if count > 0 && width == 0 {
			width = 1
		}
		fmt.Fprintf(&b, "log m [%6.2f,%6.2f) %s %d\n",
			h.Edges[i], h.Edges[i+1], strings.Repeat("█", width), count)
	}
	return b.String()
}
