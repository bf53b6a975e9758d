package analysis

import (
	"math"
	"testing"

	"github.com/clusterlab/clusterlab/internal/datamodel"
)

// circularBinary builds two 0.5-mass bodies on a circular orbit with
// unit separation under g=1: speed 0.5 each, K=0.125, U=-0.25.
func circularBinary() *datamodel.Particles {
	p := datamodel.NewParticles(2)
	p.At(0).Mass = 0.5
	p.At(0).Pos = datamodel.Vec3{X: -0.5}
	p.At(0).Vel = datamodel.Vec3{Y: -0.5}
	p.At(1).Mass = 0.5
	p.At(1).Pos = datamodel.Vec3{X: 0.5}
	p.At(1).Vel = datamodel.Vec3{Y: 0.5}
	return p
}

func TestEnergiesTwoBodyAtRest(t *testing.T) {
	p := datamodel.NewParticles(2)
	p.At(0).Mass = 2
	p.At(1).Mass = 3
	p.At(1).Pos = datamodel.Vec3{X: 2}

	rep := Energies(p, 1, 0)
	if rep.Kinetic != 0 {
		t.Errorf("kinetic = %v, want 0", rep.Kinetic)
	}
	if math.Abs(rep.Potential-(-3)) > 1e-12 {
		t.Errorf("potential = %v, want -3", rep.Potential)
	}
	if math.Abs(rep.Total-(-3)) > 1e-12 {
		t.Errorf("total = %v, want -3", rep.Total)
	}
	if rep.Virial != 0 {
		t.Errorf("virial = %v, want 0", rep.Virial)
	}
}

func TestEnergiesCircularBinary(t *testing.T) {
	rep := Energies(circularBinary(), 1, 0)
	if math.Abs(rep.Kinetic-0.125) > 1e-12 {
		t.Errorf("kinetic = %v, want 0.125", rep.Kinetic)
	}
	if math.Abs(rep.Potential-(-0.25)) > 1e-12 {
		t.Errorf("potential = %v, want -0.25", rep.Potential)
	}
	if math.Abs(rep.Virial-0.5) > 1e-12 {
		t.Errorf("virial = %v, want 0.5", rep.Virial)
	}
}

func TestVirialRatioIgnoresBulkMotion(t *testing.T) {
	p := circularBinary()
	drift := datamodel.Vec3{X: 30, Y: -12, Z: 7}
	for i := 0; i < p.Len(); i++ {
		p.At(i).Vel = p.At(i).Vel.Add(drift)
	}
	if q := VirialRatio(p, 1, 0); math.Abs(q-0.5) > 1e-9 {
		t.Errorf("virial ratio under bulk motion = %v, want 0.5", q)
	}
}

func TestBoundMassFraction(t *testing.T) {
	p := circularBinary()
	if frac := BoundMassFraction(p, 1, 0); math.Abs(frac-1) > 1e-12 {
		t.Errorf("binary bound fraction = %v, want 1", frac)
	}

	// A light body at escape-plus speed barely shifts the frame and
	// must register as unbound on its own.
	if _, err := p.Add(datamodel.Particle{
		Mass: 1e-6,
		Pos:  datamodel.Vec3{X: 10},
		Vel:  datamodel.Vec3{X: 100},
	}); err != nil {
		t.Fatalf("add escaper: %v", err)
	}

	frac := BoundMassFraction(p, 1, 0)
	want := 1.0 / (1.0 + 1e-6)
	if math.Abs(frac-want) > 1e-9 {
		t.Errorf("bound fraction with escaper = %v, want %v", frac, want)
	}
}

func TestBoundMassFractionLoneBody(t *testing.T) {
	p := datamodel.NewParticles(1)
	p.At(0).Mass = 1
	if frac := BoundMassFraction(p, 1, 0); frac != 0 {
		t.Errorf("lone body bound fraction = %v, want 0", frac)
	}
}

func TestEnergyDrift(t *testing.T) {
	var d EnergyDrift
	d.Observe(-10)
	if d.Value() != 0 {
		t.Errorf("drift after first sample = %v, want 0", d.Value())
	}

	d.Observe(-9.5)
	if math.Abs(d.Value()-0.05) > 1e-12 {
		t.Errorf("max drift = %v, want 0.05", d.Value())
	}

	d.Observe(-10.2)
	if math.Abs(d.Current()-0.02) > 1e-12 {
		t.Errorf("current drift = %v, want 0.02", d.Current())
	}
	if math.Abs(d.Value()-0.05) > 1e-12 {
		t.Errorf("max drift should keep its peak, got %v", d.Value())
	}

	d.Reset()
	if d.Value() != 0 || d.Current() != 0 {
		t.Errorf("reset should zero the tracker, got max=%v current=%v", d.Value(), d.Current())
	}
}
