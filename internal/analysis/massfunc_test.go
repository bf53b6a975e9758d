package analysis

import (
	"math"
	"testing"

	"github.com/clusterlab/clusterlab/internal/datamodel"
	"github.com/clusterlab/clusterlab/internal/units"
)

func TestMassFunctionTwoPopulations(t *testing.T) {
	// Five 0.1 MSun and three 10 MSun bodies: log10 spectrum spans
	// [-1, 1], so two bins split the populations cleanly.
	p := datamodel.NewParticles(8)
	for i := 0; i < 5; i++ {
		p.At(i).Mass = 0.1 * units.MSun.Scale
	}
	for i := 5; i < 8; i++ {
		p.At(i).Mass = 10 * units.MSun.Scale
	}

	h, err := MassFunction(p, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(h.Edges) != 3 || len(h.Counts) != 2 {
		t.Fatalf("expected 3 edges and 2 counts, got %d and %d", len(h.Edges), len(h.Counts))
	}
	wantEdges := []float64{-1, 0, 1}
	for i, w := range wantEdges {
		if math.Abs(h.Edges[i]-w) > 1e-12 {
			t.Errorf("edge[%d] = %v, want %v", i, h.Edges[i], w)
		}
	}
	if h.Counts[0] != 5 || h.Counts[1] != 3 {
		t.Errorf("counts = %v, want [5 3]", h.Counts)
	}
}

func TestMassFunctionSingleValuePadding(t *testing.T) {
	p := datamodel.NewParticles(4)
	for i := 0; i < 4; i++ {
		p.At(i).Mass = units.MSun.Scale
	}

	h, err := MassFunction(p, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(h.Edges[0]-(-0.5)) > 1e-12 || math.Abs(h.Edges[1]-0.5) > 1e-12 {
		t.Errorf("edges = %v, want [-0.5 0.5]", h.Edges)
	}
	if h.Counts[0] != 4 {
		t.Errorf("count = %d, want 4", h.Counts[0])
	}
}

func TestMassFunctionSkipsNonPositive(t *testing.T) {
	p := datamodel.NewParticles(3)
	p.At(0).Mass = units.MSun.Scale
	p.At(1).Mass = 0
	p.At(2).Mass = -units.MSun.Scale

	h, err := MassFunction(p, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h.Counts[0] != 1 {
		t.Errorf("count = %d, want 1", h.Counts[0])
	}
}

func TestMassFunctionBadBins(t *testing.T) {
	if _, err := MassFunction(datamodel.NewParticles(1), 0); err == nil {
		t.Error("expected error for zero bins")
	}
}
