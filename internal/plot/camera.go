package plot

import (
	"math"

	"github.com/clusterlab/clusterlab/internal/datamodel"
)

// Camera projects a particle set in 3D with a slow orbit, for the
// viewer's rotating mode. Coordinates are normalized by the set's
// largest extent before projection, so any cluster fits the frame.
type Camera struct {
	RotX, RotY float64
	Zoom       float64
	dist       float64
}

func NewCamera() *Camera {
	return &Camera{RotX: 0.35, Zoom: 1, dist: 3}
}

// Orbit advances the yaw, radians per frame.
func (c *Camera) Orbit(da float64) { c.RotY += da }

func (c *Camera) ZoomIn()  { c.Zoom = math.Min(10, c.Zoom*1.2) }
func (c *Camera) ZoomOut() { c.Zoom = math.Max(0.1, c.Zoom/1.2) }

func (c *Camera) rotate(v datamodel.Vec3) datamodel.Vec3 {
	cy, sy := math.Cos(c.RotY), math.Sin(c.RotY)
	v.X, v.Z = v.X*cy+v.Z*sy, -v.X*sy+v.Z*cy
	cx, sx := math.Cos(c.RotX), math.Sin(c.RotX)
	v.Y, v.Z = v.Y*cx-v.Z*sx, v.Y*sx+v.Z*cx
	return v
}

// Render draws the set onto the canvas around its center of mass with
// a simple perspective divide.
func (c *Camera) Render(canvas *Canvas, p *datamodel.Particles) {
	canvas.Clear()
	if p == nil || p.Len() == 0 {
		return
	}
	com := p.CenterOfMass()

	var ext float64
	for i := 0; i < p.Len(); i++ {
		pos := p.At(i).Pos
		for _, d := range []float64{pos.X - com.X, pos.Y - com.Y, pos.Z - com.Z} {
			ext = math.Max(ext, math.Abs(d))
		}
	}
	if ext == 0 {
		ext = 1
	}

	halfW := float64(canvas.DotWidth()) / 2
	halfH := float64(canvas.DotHeight()) / 2
	frame := math.Min(halfW, halfH) * 0.95

	for i := 0; i < p.Len(); i++ {
		pos := p.At(i).Pos
		v := c.rotate(datamodel.Vec3{
			X: (pos.X - com.X) / ext,
			Y: (pos.Y - com.Y) / ext,
			Z: (pos.Z - com.Z) / ext,
		})
		// Camera sits at z = dist looking at the origin.
		depth := c.dist - v.Z
		if depth <= 0.1 {
			continue
		}
		persp := c.dist / depth * c.Zoom
		x := int(math.Round(v.X*persp*frame + halfW))
		y := int(math.Round(halfH - v.Y*persp*frame))
		canvas.Set(x, y)
	}
}
