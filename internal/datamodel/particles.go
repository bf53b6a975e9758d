package datamodel

import (
	"fmt"
	"sync/atomic"
)

// Particle is one body. Mass, Radius, Pos and Vel are stored in SI units
// unless the owning set is in N-body units by construction.
type Particle struct {
	Key    uint64
	Mass   float64
	Radius float64
	Pos    Vec3
	Vel    Vec3
}

var keyCounter atomic.Uint64

func nextKey() uint64 { return keyCounter.Add(1) }

// bumpKey keeps the generator ahead of externally supplied keys.
func bumpKey(k uint64) {
	for {
		cur := keyCounter.Load()
		if cur >= k || keyCounter.CompareAndSwap(cur, k) {
			return
		}
	}
}

// Particles is an ordered particle set with key lookup.
type Particles struct {
	items []Particle
	index map[uint64]int
}

// NewParticles returns a set of n zeroed particles with fresh keys.
func NewParticles(n int) *Particles {
	p := &Particles{
		items: make([]Particle, n),
		index: make(map[uint64]int, n),
	}
	for i := range p.items {
		k := nextKey()
		p.items[i].Key = k
		p.index[k] = i
	}
	return p
}

func (p *Particles) Len() int { return len(p.items) }

// At returns the i-th particle for in-place updates.
func (p *Particles) At(i int) *Particle { return &p.items[i] }

func (p *Particles) ByKey(key uint64) (*Particle, bool) {
	i, ok := p.index[key]
	if !ok {
		return nil, false
	}
	return &p.items[i], true
}

func (p *Particles) Keys() []uint64 {
	keys := make([]uint64, len(p.items))
	for i := range p.items {
		keys[i] = p.items[i].Key
	}
	return keys
}

// Add appends one particle. A zero key gets a fresh one; an explicit key
// must not already be present.
func (p *Particles) Add(pt Particle) (uint64, error) {
	if pt.Key == 0 {
		pt.Key = nextKey()
	} else {
		if _, dup := p.index[pt.Key]; dup {
			return 0, fmt.Errorf("duplicate particle key %d", pt.Key)
		}
		bumpKey(pt.Key)
	}
	if p.index == nil {
		p.index = make(map[uint64]int)
	}
	p.index[pt.Key] = len(p.items)
	p.items = append(p.items, pt)
	return pt.Key, nil
}

// AddFrom appends copies of all particles in src, keeping their keys.
func (p *Particles) AddFrom(src *Particles) error {
	for i := range src.items {
		if _, err := p.Add(src.items[i]); err != nil {
			return err
		}
	}
	return nil
}

// Remove drops the given keys. Unknown keys are ignored. Returns the
// number removed.
func (p *Particles) Remove(keys ...uint64) int {
	drop := make(map[uint64]bool, len(keys))
	for _, k := range keys {
		if _, ok := p.index[k]; ok {
			drop[k] = true
		}
	}
	if len(drop) == 0 {
		return 0
	}
	kept := p.items[:0]
	for i := range p.items {
		if !drop[p.items[i].Key] {
			kept = append(kept, p.items[i])
		}
	}
	p.items = kept
	p.index = make(map[uint64]int, len(p.items))
	for i := range p.items {
		p.index[p.items[i].Key] = i
	}
	return len(drop)
}

// SynchronizeTo reconciles dst's membership with p: keys missing from
// dst are added with their full state, keys absent from p are removed.
// Attributes of particles already in dst are left untouched; channels
// carry those.
func (p *Particles) SynchronizeTo(dst *Particles) error {
	var extra []uint64
	for i := range dst.items {
		if _, ok := p.index[dst.items[i].Key]; !ok {
			extra = append(extra, dst.items[i].Key)
		}
	}
	dst.Remove(extra...)
	for i := range p.items {
		if _, ok := dst.index[p.items[i].Key]; !ok {
			if _, err := dst.Add(p.items[i]); err != nil {
				return err
			}
		}
	}
	return nil
}

// Copy returns a deep copy preserving keys.
func (p *Particles) Copy() *Particles {
	c := &Particles{
		items: make([]Particle, len(p.items)),
		index: make(map[uint64]int, len(p.items)),
	}
	copy(c.items, p.items)
	for k, v := range p.index {
		c.index[k] = v
	}
	return c
}
