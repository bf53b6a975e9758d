package datamodel

import "fmt"

// Attribute names a channel can carry.
const (
	AttrMass   = "mass"
	AttrRadius = "radius"
	AttrPos    = "pos"
	AttrVel    = "vel"
)

var allAttrs = []string{AttrMass, AttrRadius, AttrPos, AttrVel}

// Channel copies attributes one way between two sets, matched by key. It
// never creates or removes particles in the destination.
type Channel struct {
	src   *Particles
	dst   *Particles
	attrs []string
}

// NewChannelTo builds a channel from p to dst carrying the given
// attributes, or all of them when none are named.
func (p *Particles) NewChannelTo(dst *Particles, attrs ...string) (*Channel, error) {
	if dst == nil {
		return nil, fmt.Errorf("channel destination is nil")
	}
	if len(attrs) == 0 {
		attrs = allAttrs
	}
	for _, a := range attrs {
		if !validAttr(a) {
			return nil, fmt.Errorf("unknown channel attribute %q", a)
		}
	}
	return &Channel{src: p, dst: dst, attrs: attrs}, nil
}

func validAttr(a string) bool {
	for _, known := range allAttrs {
		if a == known {
			return true
		}
	}
	return false
}

// Copy transfers the channel's configured attributes for every key present
// in both sets and returns how many particles matched.
func (c *Channel) Copy() int { return c.CopyAttrs(c.attrs...) }

// CopyAttrs transfers only the named attributes.
func (c *Channel) CopyAttrs(attrs ...string) int {
	n := 0
	for i := 0; i < c.src.Len(); i++ {
		sp := c.src.At(i)
		dp, ok := c.dst.ByKey(sp.Key)
		if !ok {
			continue
		}
		for _, a := range attrs {
			switch a {
			case AttrMass:
				dp.Mass = sp.Mass
			case AttrRadius:
				dp.Radius = sp.Radius
			case AttrPos:
				dp.Pos = sp.Pos
			case AttrVel:
				dp.Vel = sp.Vel
			}
		}
		n++
	}
	return n
}
