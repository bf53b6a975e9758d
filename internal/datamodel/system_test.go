package datamodel

import "testing"

type stubCode struct {
	name  string
	parts *Particles
}

func (c *stubCode) Name() string          { return c.name }
func (c *stubCode) Particles() *Particles { return c.parts }

func newStub(name string) *stubCode {
	return &stubCode{name: name, parts: NewParticles(0)}
}

func TestSystemWiresChannelMesh(t *testing.T) {
	bodies := NewParticles(4)
	for i := 0; i < bodies.Len(); i++ {
		bodies.At(i).Mass = 1
	}

	s := NewSystem("cluster", bodies, nil)
	if err := s.AttachGravity(newStub("grav")); err != nil {
		t.Fatalf("attach gravity: %v", err)
	}
	if err := s.AttachEvolution(newStub("stellar")); err != nil {
		t.Fatalf("attach evolution: %v", err)
	}

	want := []string{
		"evolution->gravity",
		"evolution->particles",
		"gravity->evolution",
		"gravity->particles",
		"particles->evolution",
		"particles->gravity",
	}
	got := s.ChannelNames()
	if len(got) != len(want) {
		t.Fatalf("expected %d channels, got %v", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("channel %d: expected %s, got %s", i, want[i], got[i])
		}
	}

	if s.Gravity().Particles().Len() != 4 {
		t.Errorf("gravity code should hold the 4 loaded particles")
	}
}

func TestSystemSyncRoundTrip(t *testing.T) {
	bodies := NewParticles(2)
	bodies.At(0).Mass, bodies.At(1).Mass = 2, 3

	s := NewSystem("c", bodies, nil)
	grav := newStub("grav")
	evo := newStub("stellar")
	if err := s.AttachGravity(grav); err != nil {
		t.Fatal(err)
	}
	if err := s.AttachEvolution(evo); err != nil {
		t.Fatal(err)
	}

	// evolution loses mass, gravity moves the bodies
	evo.parts.At(0).Mass = 1.5
	grav.parts.At(0).Pos = Vec3{X: 9}

	s.SyncFromCodes()
	if bodies.At(0).Mass != 1.5 {
		t.Errorf("expected evolved mass 1.5 on master set, got %v", bodies.At(0).Mass)
	}
	if bodies.At(0).Pos.X != 9 {
		t.Errorf("expected gravity position on master set, got %v", bodies.At(0).Pos.X)
	}

	s.SyncToCodes()
	if grav.parts.At(0).Mass != 1.5 {
		t.Errorf("expected mass pushed to gravity, got %v", grav.parts.At(0).Mass)
	}
}

func TestSystemWithoutCodes(t *testing.T) {
	s := NewSystem("bare", NewParticles(1), nil)
	if len(s.ChannelNames()) != 0 {
		t.Error("bare system should have no channels")
	}
	// syncs on absent codes are no-ops
	s.SyncFromCodes()
	s.SyncToCodes()
}

func TestSystemsRegistry(t *testing.T) {
	r := NewSystems()
	if err := r.Add(NewSystem("a", NewParticles(0), nil)); err != nil {
		t.Fatal(err)
	}
	if err := r.Add(NewSystem("b", NewParticles(0), nil)); err != nil {
		t.Fatal(err)
	}
	if err := r.Add(NewSystem("a", NewParticles(0), nil)); err == nil {
		t.Error("expected duplicate name error")
	}

	names := r.Names()
	if len(names) != 2 || names[0] != "a" || names[1] != "b" {
		t.Errorf("expected insertion order [a b], got %v", names)
	}
	if _, ok := r.Get("b"); !ok {
		t.Error("expected to find system b")
	}
}

func TestAttachTwiceFails(t *testing.T) {
	s := NewSystem("c", NewParticles(1), nil)
	if err := s.AttachGravity(newStub("g1")); err != nil {
		t.Fatal(err)
	}
	if err := s.AttachGravity(newStub("g2")); err == nil {
		t.Error("expected error attaching second gravity code")
	}
}

type committingStub struct {
	stubCode
	commits int
}

func (c *committingStub) CommitParticles() error {
	c.commits++
	return nil
}

func TestSynchronizeReconcilesAndRecommits(t *testing.T) {
	bodies := NewParticles(3)
	for i := 0; i < 3; i++ {
		bodies.At(i).Mass = 1
	}

	s := NewSystem("c", bodies, nil)
	grav := &committingStub{stubCode: stubCode{name: "grav", parts: NewParticles(0)}}
	if err := s.AttachGravity(grav); err != nil {
		t.Fatal(err)
	}

	gone := bodies.At(0).Key
	bodies.Remove(gone)
	kept, err := bodies.Add(Particle{Mass: 5})
	if err != nil {
		t.Fatal(err)
	}

	if err := s.Synchronize(); err != nil {
		t.Fatalf("synchronize: %v", err)
	}

	if grav.parts.Len() != bodies.Len() {
		t.Errorf("expected %d particles in code, got %d", bodies.Len(), grav.parts.Len())
	}
	if _, ok := grav.parts.ByKey(gone); ok {
		t.Error("removed body should leave the gravity code")
	}
	if _, ok := grav.parts.ByKey(kept); !ok {
		t.Error("added body should reach the gravity code")
	}
	if grav.commits != 1 {
		t.Errorf("expected 1 recommit, got %d", grav.commits)
	}
}
