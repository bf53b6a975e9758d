package plot

import (
	"fmt"
	"math"

	"github.com/clusterlab/clusterlab/internal/datamodel"
	"github.com/clusterlab/clusterlab/internal/units"
)

// Plane selects which two coordinates a scatter projects.
type Plane int

const (
	PlaneXY Plane = iota
	PlaneXZ
	PlaneYZ
)

func (p Plane) String() string {
	switch p {
	case PlaneXZ:
		return "x-z"
	case PlaneYZ:
		return "y-z"
	default:
		return "x-y"
	}
}

// Next cycles the projection planes, for the viewer's tab key.
func (p Plane) Next() Plane { return (p + 1) % 3 }

func (p Plane) axes(v datamodel.Vec3) (float64, float64) {
	switch p {
	case PlaneXZ:
		return v.X, v.Z
	case PlaneYZ:
		return v.Y, v.Z
	default:
		return v.X, v.Y
	}
}

// ScatterOptions control the projection. The zero value gives an 72x20
// x-y view in parsec, fitted to the data.
type ScatterOptions struct {
	Width, Height int
	Plane         Plane
	Recenter      bool    // subtract the center of mass first
	Zoom          float64 // 1 fits everything, 2 shows the inner half
	Unit          units.Unit
}

func (o ScatterOptions) withDefaults() ScatterOptions {
	if o.Width <= 0 {
		o.Width = 72
	}
	if o.Height <= 0 {
		o.Height = 20
	}
	if o.Zoom <= 0 {
		o.Zoom = 1
	}
	if o.Unit.Scale == 0 {
		o.Unit = units.Parsec
	}
	return o
}

// Scatter projects the set onto a braille canvas with equal axis
// scales, returning the rendered grid and a caption line.
func Scatter(p *datamodel.Particles, opts ScatterOptions) (string, string) {
	opts = opts.withDefaults()
	canvas := NewCanvas(opts.Width, opts.Height)

	if p == nil || p.Len() == 0 {
		return canvas.String(), fmt.Sprintf("%s [%s]: empty set", opts.Plane, opts.Unit.Symbol)
	}

	var center datamodel.Vec3
	if opts.Recenter {
		center = p.CenterOfMass()
	}
	cx, cy := opts.Plane.axes(center)

	// Half extents around the center, padded so edge stars stay
	// inside their cell.
	var extX, extY float64
	for i := 0; i < p.Len(); i++ {
		x, y := opts.Plane.axes(p.At(i).Pos)
		extX = math.Max(extX, math.Abs(x-cx))
		extY = math.Max(extY, math.Abs(y-cy))
	}
	halfW := float64(canvas.DotWidth()) / 2
	halfH := float64(canvas.DotHeight()) / 2
	// One scale for both axes keeps the aspect equal.
	perDot := math.Max(extX/halfW, extY/halfH) * 1.05 / opts.Zoom
	if perDot == 0 {
		perDot = 1
	}

	for i := 0; i < p.Len(); i++ {
		x, y := opts.Plane.axes(p.At(i).Pos)
		dx := int(math.Round((x-cx)/perDot + halfW))
		dy := int(math.Round(halfH - (y-cy)/perDot))
		canvas.Set(dx, dy)
	}

	half := perDot * halfW / opts.Unit.Scale
	caption := fmt.Sprintf("%s [%s], half width %.3g, N=%d", opts.Plane, opts.Unit.Symbol, half, p.Len())
	return canvas.String(), caption
}
