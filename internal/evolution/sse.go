package evolution

import (
	"context"
	"fmt"
	"math"

	"github.com/clusterlab/clusterlab/internal/datamodel"
	"github.com/clusterlab/clusterlab/internal/units"
)

// Phase is a coarse stellar evolution stage.
type Phase int

const (
	MainSequence Phase = iota
	Giant
	WhiteDwarf
	NeutronStar
	BlackHole
)

func (p Phase) String() string {
	switch p {
	case MainSequence:
		return "ms"
	case Giant:
		return "giant"
	case WhiteDwarf:
		return "wd"
	case NeutronStar:
		return "ns"
	case BlackHole:
		return "bh"
	}
	return "unknown"
}

// Code is the surface a stellar evolution code exposes.
type Code interface {
	Name() string
	Particles() *datamodel.Particles
	CommitParticles() error
	EvolveTo(ctx context.Context, t float64) error
	Time() float64
	Phase(key uint64) Phase
	Stop()
}

// New constructs an evolution code by name. Only "sse" is known.
func New(name string) (Code, error) {
	if name != "sse" {
		return nil, fmt.Errorf("unknown evolution code: %s", name)
	}
	return NewSSE(), nil
}

// SSE is an analytic main-sequence/giant/remnant track. Masses and radii
// are SI; time is SI seconds. Mass at a given age is a pure function of
// the zero-age mass, so evolution is deterministic and never re-inflates
// a star.
type SSE struct {
	parts *datamodel.Particles
	zams  map[uint64]float64
	time  float64
}

func NewSSE() *SSE {
	return &SSE{
		parts: datamodel.NewParticles(0),
		zams:  make(map[uint64]float64),
	}
}

func (s *SSE) Name() string                    { return "sse" }
func (s *SSE) Particles() *datamodel.Particles { return s.parts }
func (s *SSE) Time() float64                   { return s.time }

// CommitParticles records zero-age masses for stars not seen before and
// stamps their track state at the current code time.
func (s *SSE) CommitParticles() error {
	for i := 0; i < s.parts.Len(); i++ {
		pt := s.parts.At(i)
		if _, ok := s.zams[pt.Key]; !ok {
			s.zams[pt.Key] = pt.Mass
			pt.Mass, pt.Radius = trackAt(pt.Mass, s.time)
		}
	}
	return nil
}

func (s *SSE) EvolveTo(ctx context.Context, t float64) error {
	if t <= s.time {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	if err := s.CommitParticles(); err != nil {
		return err
	}
	for i := 0; i < s.parts.Len(); i++ {
		pt := s.parts.At(i)
		m, r := trackAt(s.zams[pt.Key], t)
		pt.Mass = m
		pt.Radius = r
	}
	s.time = t
	return nil
}

func (s *SSE) Phase(key uint64) Phase {
	z, ok := s.zams[key]
	if !ok {
		if pt, found := s.parts.ByKey(key); found {
			z = pt.Mass
		}
	}
	return phaseAt(z, s.time)
}

// Counts tallies the current phase of every committed star.
func (s *SSE) Counts() map[Phase]int {
	out := make(map[Phase]int)
	for i := 0; i < s.parts.Len(); i++ {
		out[s.Phase(s.parts.At(i).Key)]++
	}
	return out
}

func (s *SSE) Stop() {
	s.zams = make(map[uint64]float64)
	s.time = 0
}

var (
	msun     = units.MSun.Scale
	rsun     = units.RSun.Scale
	tenGyr   = units.New(10, units.Gigayear).SI()
	threeMyr = units.New(3, units.Megayear).SI()
)

// msLifetime is 10 Gyr (M/MSun)^-2.5 with a 3 Myr floor.
func msLifetime(zams float64) float64 {
	if zams <= 0 {
		return math.Inf(1)
	}
	t := tenGyr * math.Pow(zams/msun, -2.5)
	return math.Max(t, threeMyr)
}

// remnantMass: white dwarfs below 8 MSun (linear initial-final relation),
// neutron stars to 25 MSun, black holes above.
func remnantMass(zams float64) float64 {
	m := zams / msun
	switch {
	case m < 8:
		return (0.109*m + 0.394) * msun
	case m < 25:
		return 1.4 * msun
	default:
		return 10 * msun
	}
}

func phaseAt(zams, age float64) Phase {
	tms := msLifetime(zams)
	if age < tms {
		return MainSequence
	}
	if age < 1.1*tms {
		return Giant
	}
	m := zams / msun
	switch {
	case m < 8:
		return WhiteDwarf
	case m < 25:
		return NeutronStar
	default:
		return BlackHole
	}
}

// trackAt returns mass and radius at a given age.
func trackAt(zams, age float64) (mass, radius float64) {
	if zams <= 0 {
		return zams, 0
	}
	tms := msLifetime(zams)
	rem := remnantMass(zams)

	switch {
	case age < tms:
		mass = zams
		radius = rsun * math.Pow(zams/msun, 0.8)
	case age < 1.1*tms:
		f := (age - tms) / (0.1 * tms)
		mass = zams + (rem-zams)*f
		radius = rsun * (1 + 49*f) // swells toward 50 RSun
	default:
		mass = rem
		radius = remnantRadius(zams)
	}
	return mass, radius
}

func remnantRadius(zams float64) float64 {
	m := zams / msun
	switch {
	case m < 8:
		return 0.01 * rsun
	case m < 25:
		return 1e4 // 10 km
	default:
		return 3e4
	}
}
