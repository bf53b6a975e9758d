package datamodel

import (
	"fmt"
	"sort"

	"github.com/clusterlab/clusterlab/internal/units"
)

// Code is the common surface of an attached simulation code: it owns its
// own particle copy that channels keep in step with the master set.
type Code interface {
	Name() string
	Particles() *Particles
}

// Committer is implemented by codes that rebuild internal state after
// their particle set changes.
type Committer interface {
	CommitParticles() error
}

// System groups a master particle set with its attached codes and the
// converter pinning its unit system. Channels between every pair of
// present members are wired automatically.
type System struct {
	Name      string
	Bodies    *Particles
	Converter *units.Converter

	gravity   Code
	evolution Code
	channels  map[string]*Channel
}

func NewSystem(name string, bodies *Particles, conv *units.Converter) *System {
	return &System{
		Name:      name,
		Bodies:    bodies,
		Converter: conv,
		channels:  make(map[string]*Channel),
	}
}

func (s *System) Gravity() Code   { return s.gravity }
func (s *System) Evolution() Code { return s.evolution }

// AttachGravity loads the master set into the code and wires channels in
// both directions, plus code<->evolution links when evolution is present.
func (s *System) AttachGravity(code Code) error {
	if s.gravity != nil {
		return fmt.Errorf("system %s already has a gravity code", s.Name)
	}
	if err := code.Particles().AddFrom(s.Bodies); err != nil {
		return fmt.Errorf("load gravity particles: %w", err)
	}
	s.gravity = code
	if err := s.wire("particles", s.Bodies, "gravity", code.Particles()); err != nil {
		return err
	}
	if s.evolution != nil {
		return s.wire("gravity", code.Particles(), "evolution", s.evolution.Particles())
	}
	return nil
}

// AttachEvolution mirrors AttachGravity for the stellar evolution code.
func (s *System) AttachEvolution(code Code) error {
	if s.evolution != nil {
		return fmt.Errorf("system %s already has an evolution code", s.Name)
	}
	if err := code.Particles().AddFrom(s.Bodies); err != nil {
		return fmt.Errorf("load evolution particles: %w", err)
	}
	s.evolution = code
	if err := s.wire("particles", s.Bodies, "evolution", code.Particles()); err != nil {
		return err
	}
	if s.gravity != nil {
		return s.wire("gravity", s.gravity.Particles(), "evolution", code.Particles())
	}
	return nil
}

// wire installs channels in both directions between two member sets.
func (s *System) wire(na string, a *Particles, nb string, b *Particles) error {
	fwd, err := a.NewChannelTo(b)
	if err != nil {
		return err
	}
	rev, err := b.NewChannelTo(a)
	if err != nil {
		return err
	}
	s.channels[na+"->"+nb] = fwd
	s.channels[nb+"->"+na] = rev
	return nil
}

// Channel returns the channel between two members, named "particles",
// "gravity" or "evolution".
func (s *System) Channel(from, to string) (*Channel, bool) {
	c, ok := s.channels[from+"->"+to]
	return c, ok
}

// ChannelNames lists the wired channel keys in sorted order.
func (s *System) ChannelNames() []string {
	names := make([]string, 0, len(s.channels))
	for k := range s.channels {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Synchronize reconciles code membership with the master set after
// bodies were added or removed, then recommits each changed code.
func (s *System) Synchronize() error {
	for _, code := range []Code{s.gravity, s.evolution} {
		if code == nil {
			continue
		}
		if err := s.Bodies.SynchronizeTo(code.Particles()); err != nil {
			return fmt.Errorf("synchronize %s/%s: %w", s.Name, code.Name(), err)
		}
		if c, ok := code.(Committer); ok {
			if err := c.CommitParticles(); err != nil {
				return fmt.Errorf("recommit %s/%s: %w", s.Name, code.Name(), err)
			}
		}
	}
	return nil
}

// SyncFromCodes pulls code-owned state back into the master set: mass from
// evolution, position and velocity from gravity. Absent codes are skipped.
func (s *System) SyncFromCodes() {
	if s.evolution != nil {
		if c, ok := s.Channel("evolution", "particles"); ok {
			c.CopyAttrs(AttrMass, AttrRadius)
		}
	}
	if s.gravity != nil {
		if c, ok := s.Channel("gravity", "particles"); ok {
			c.CopyAttrs(AttrPos, AttrVel)
		}
	}
}

// SyncToCodes pushes master state out: mass to gravity (evolution mass
// loss must reach the integrator) and mass to evolution.
func (s *System) SyncToCodes() {
	if s.gravity != nil {
		if c, ok := s.Channel("particles", "gravity"); ok {
			c.CopyAttrs(AttrMass)
		}
	}
	if s.evolution != nil {
		if c, ok := s.Channel("particles", "evolution"); ok {
			c.CopyAttrs(AttrMass)
		}
	}
}

// Systems is a named registry preserving insertion order.
type Systems struct {
	names []string
	items map[string]*System
}

func NewSystems() *Systems {
	return &Systems{items: make(map[string]*System)}
}

func (r *Systems) Add(s *System) error {
	if _, dup := r.items[s.Name]; dup {
		return fmt.Errorf("duplicate system name %q", s.Name)
	}
	r.items[s.Name] = s
	r.names = append(r.names, s.Name)
	return nil
}

func (r *Systems) Get(name string) (*System, bool) {
	s, ok := r.items[name]
	return s, ok
}

func (r *Systems) Names() []string { return append([]string(nil), r.names...) }

func (r *Systems) Len() int { return len(r.names) }

// Each visits systems in insertion order.
func (r *Systems) Each(fn func(*System)) {
	for _, n := range r.names {
		fn(r.items[n])
	}
}
