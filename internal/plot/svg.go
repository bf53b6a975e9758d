package plot

import (
	"fmt"
	"math"
	"strings"

	"github.com/clusterlab/clusterlab/internal/datamodel"
)

// SnapshotSVG renders a projected snapshot as an SVG document, one
// circle per star with area tracking mass. Suitable for reports where
// the braille view is too coarse.
func SnapshotSVG(p *datamodel.Particles, opts ScatterOptions, pixels int) string {
	opts = opts.withDefaults()
	if pixels <= 0 {
		pixels = 800
	}
	w := float64(pixels)

	var b strings.Builder
	fmt.Fprintf(&b, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a14"/>
`, pixels, pixels, pixels, pixels)

	if p == nil || p.Len() == 0 {
		b.WriteString("</svg>\n")
		return b.String()
	}

	var center datamodel.Vec3
	if opts.Recenter {
		center = p.CenterOfMass()
	}
	cx, cy := opts.Plane.axes(center)

	var ext, maxMass float64
	for i := 0; i < p.Len(); i++ {
		pt := p.At(i)
		x, y := opts.Plane.axes(pt.Pos)
		ext = math.Max(ext, math.Max(math.Abs(x-cx), math.Abs(y-cy)))
		maxMass = math.Max(maxMass, pt.Mass)
	}
	if ext == 0 {
		ext = 1
	}
	if maxMass == 0 {
		maxMass = 1
	}
	scale := (w / 2) * 0.95 / ext * opts.Zoom

	b.WriteString(`<g fill="#ffd27f" fill-opacity="0.85">` + "\n")
	for i := 0; i < p.Len(); i++ {
		pt := p.At(i)
		x, y := opts.Plane.axes(pt.Pos)
		sx := (x-cx)*scale + w/2
		sy := w/2 - (y-cy)*scale
		r := 1.0 + 2.5*math.Sqrt(pt.Mass/maxMass)
		fmt.Fprintf(&b, `<circle cx="%.1f" cy="%.1f" r="%.2f"/>`+"\n", sx, sy, r)
	}
	b.WriteString("</g>\n")

	half := ext / opts.Unit.Scale / opts.Zoom
	fmt.Fprintf(&b, `<text x="12" y="%d" fill="#9aa0b0" font-family="monospace" font-size="14">%s, half width %.3g %s, N=%d</text>`+"\n",
		pixels-14, opts.Plane, half, opts.Unit.Symbol, p.Len())
	b.WriteString("</svg>\n")
	return b.String()
}
