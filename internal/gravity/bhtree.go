package gravity

import (
	"context"
	"fmt"
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/clusterlab/clusterlab/internal/datamodel"
)

// BHTree is a Barnes-Hut octree solver: monopole cells accepted when
// side/distance < opening angle, softened direct interactions at leaves.
// The tree is rebuilt for every force evaluation.
type BHTree struct {
	params    *Params
	parts     *datamodel.Particles
	time      float64
	acc       []datamodel.Vec3
	committed bool
}

func NewBHTree(params *Params) *BHTree {
	if params == nil {
		params = DefaultParams()
	}
	return &BHTree{
		params: params,
		parts:  datamodel.NewParticles(0),
	}
}

func (b *BHTree) Name() string                    { return "bhtree" }
func (b *BHTree) Particles() *datamodel.Particles { return b.parts }
func (b *BHTree) Parameters() *Params             { return b.params }
func (b *BHTree) Time() float64                   { return b.time }

func (b *BHTree) CommitParticles() error {
	if err := b.params.validate(); err != nil {
		return fmt.Errorf("bhtree: %w", err)
	}
	if b.params.OpeningAngle == 0 {
		return fmt.Errorf("bhtree: opening angle must be positive")
	}
	b.acc = b.accelerations()
	b.committed = true
	return nil
}

func (b *BHTree) EvolveTo(ctx context.Context, t float64) error {
	if !b.committed {
		if err := b.CommitParticles(); err != nil {
			return err
		}
	}
	if t <= b.time || b.parts.Len() == 0 {
		if t > b.time {
			b.time = t
		}
		return nil
	}
	reached, acc, err := evolveKDK(ctx, b.parts, b.acc, b.accelerations, b.time, t, b.params.Timestep)
	b.time = reached
	b.acc = acc
	return err
}

// Energies uses the exact pairwise potential; the tree is an approximation
// for forces only.
func (b *BHTree) Energies() (kinetic, potential float64) {
	kinetic = b.parts.KineticEnergy()
	potential = potentialEnergy(b.parts, b.params.G, b.params.Epsilon2, b.params.Workers)
	return kinetic, potential
}

func (b *BHTree) Stop() {
	b.acc = nil
	b.committed = false
}

func (b *BHTree) accelerations() []datamodel.Vec3 {
	n := b.parts.Len()
	acc := make([]datamodel.Vec3, n)
	if n < 2 || !b.params.UseSelfGravity {
		return acc
	}

	tree := buildTree(b.parts)
	w := workerCount(b.params.Workers, n)
	if w == 1 {
		for i := 0; i < n; i++ {
			acc[i] = tree.accelAt(b.parts.At(i).Pos, int32(i), b.params)
		}
		return acc
	}

	var eg errgroup.Group
	chunk := (n + w - 1) / w
	for blk := 0; blk < w; blk++ {
		lo := blk * chunk
		hi := lo + chunk
		if hi > n {
			hi = n
		}
		eg.Go(func() error {
			for i := lo; i < hi; i++ {
				acc[i] = tree.accelAt(b.parts.At(i).Pos, int32(i), b.params)
			}
			return nil
		})
	}
	_ = eg.Wait()
	return acc
}

// AccelAt evaluates the tree field at external points.
func (b *BHTree) AccelAt(pos []datamodel.Vec3) []datamodel.Vec3 {
	out := make([]datamodel.Vec3, len(pos))
	if b.parts.Len() == 0 {
		return out
	}
	tree := buildTree(b.parts)
	for k, p := range pos {
		out[k] = tree.accelAt(p, -1, b.params)
	}
	return out
}

const noChild = int32(-1)

type bhNode struct {
	center   datamodel.Vec3
	com      datamodel.Vec3
	mass     float64
	half     float64
	children [8]int32
	body     int32
	internal bool
}

type bhTree struct {
	nodes   []bhNode
	next    []int32 // chains bodies sharing a leaf
	parts   *datamodel.Particles
	minHalf float64
}

func buildTree(parts *datamodel.Particles) *bhTree {
	n := parts.Len()
	t := &bhTree{
		nodes: make([]bhNode, 0, 2*n),
		next:  make([]int32, n),
		parts: parts,
	}
	for i := range t.next {
		t.next[i] = noChild
	}

	lo := parts.At(0).Pos
	hi := lo
	for i := 1; i < n; i++ {
		p := parts.At(i).Pos
		lo.X, lo.Y, lo.Z = math.Min(lo.X, p.X), math.Min(lo.Y, p.Y), math.Min(lo.Z, p.Z)
		hi.X, hi.Y, hi.Z = math.Max(hi.X, p.X), math.Max(hi.Y, p.Y), math.Max(hi.Z, p.Z)
	}
	center := lo.Add(hi).Scale(0.5)
	half := math.Max(hi.X-lo.X, math.Max(hi.Y-lo.Y, hi.Z-lo.Z)) * 0.5
	if half == 0 {
		half = 1
	}
	half *= 1.0001
	t.minHalf = half * 1e-9

	t.newNode(center, half)
	for i := 0; i < n; i++ {
		t.insert(0, int32(i))
	}
	t.moments(0)
	return t
}

func (t *bhTree) newNode(center datamodel.Vec3, half float64) int32 {
	t.nodes = append(t.nodes, bhNode{
		center:   center,
		half:     half,
		children: [8]int32{noChild, noChild, noChild, noChild, noChild, noChild, noChild, noChild},
		body:     noChild,
	})
	return int32(len(t.nodes) - 1)
}

func (t *bhTree) octant(ni int32, p datamodel.Vec3) int {
	c := t.nodes[ni].center
	oct := 0
	if p.X >= c.X {
		oct |= 1
	}
	if p.Y >= c.Y {
		oct |= 2
	}
	if p.Z >= c.Z {
		oct |= 4
	}
	return oct
}

func (t *bhTree) childCenter(ni int32, oct int) datamodel.Vec3 {
	n := &t.nodes[ni]
	q := n.half / 2
	c := n.center
	if oct&1 != 0 {
		c.X += q
	} else {
		c.X -= q
	}
	if oct&2 != 0 {
		c.Y += q
	} else {
		c.Y -= q
	}
	if oct&4 != 0 {
		c.Z += q
	} else {
		c.Z -= q
	}
	return c
}

func (t *bhTree) insert(ni, bi int32) {
	for {
		n := &t.nodes[ni]
		if n.internal {
			oct := t.octant(ni, t.parts.At(int(bi)).Pos)
			if t.nodes[ni].children[oct] == noChild {
				ci := t.newNode(t.childCenter(ni, oct), t.nodes[ni].half/2)
				t.nodes[ci].body = bi
				t.nodes[ni].children[oct] = ci
				return
			}
			ni = t.nodes[ni].children[oct]
			continue
		}
		if n.body == noChild {
			n.body = bi
			return
		}
		// occupied leaf: chain when the cell is too small to split further
		if n.half <= t.minHalf {
			t.next[bi] = n.body
			n.body = bi
			return
		}
		old := n.body
		n.body = noChild
		n.internal = true
		oct := t.octant(ni, t.parts.At(int(old)).Pos)
		ci := t.newNode(t.childCenter(ni, oct), t.nodes[ni].half/2)
		t.nodes[ci].body = old
		t.nodes[ni].children[oct] = ci
	}
}

func (t *bhTree) moments(ni int32) (float64, datamodel.Vec3) {
	n := &t.nodes[ni]
	if !n.internal {
		var m float64
		var c datamodel.Vec3
		for bi := n.body; bi != noChild; bi = t.next[bi] {
			pt := t.parts.At(int(bi))
			m += pt.Mass
			c = c.Add(pt.Pos.Scale(pt.Mass))
		}
		if m > 0 {
			c = c.Scale(1 / m)
		}
		n.mass, n.com = m, c
		return m, c
	}

	var m float64
	var c datamodel.Vec3
	for _, ci := range n.children {
		if ci == noChild {
			continue
		}
		cm, cc := t.moments(ci)
		m += cm
		c = c.Add(cc.Scale(cm))
	}
	if m > 0 {
		c = c.Scale(1 / m)
	}
	n.mass, n.com = m, c
	return m, c
}

// accelAt walks the tree for the field at p, skipping body index skip.
func (t *bhTree) accelAt(p datamodel.Vec3, skip int32, params *Params) datamodel.Vec3 {
	g := params.G
	eps2 := params.Epsilon2
	theta2 := params.OpeningAngle * params.OpeningAngle

	var a datamodel.Vec3
	stack := make([]int32, 0, 64)
	stack = append(stack, 0)
	for len(stack) > 0 {
		ni := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n := &t.nodes[ni]
		if n.mass == 0 {
			continue
		}

		if n.internal {
			dr := n.com.Sub(p)
			d2 := dr.Norm2()
			side := 2 * n.half
			if side*side < theta2*d2 {
				r2 := d2 + eps2
				inv := 1 / math.Sqrt(r2)
				a = a.Add(dr.Scale(g * n.mass * inv * inv * inv))
				continue
			}
			for _, ci := range n.children {
				if ci != noChild {
					stack = append(stack, ci)
				}
			}
			continue
		}

		for bi := n.body; bi != noChild; bi = t.next[bi] {
			if bi == skip {
				continue
			}
			pt := t.parts.At(int(bi))
			dr := pt.Pos.Sub(p)
			r2 := dr.Norm2() + eps2
			if r2 == 0 {
				continue
			}
			inv := 1 / math.Sqrt(r2)
			a = a.Add(dr.Scale(g * pt.Mass * inv * inv * inv))
		}
	}
	return a
}
