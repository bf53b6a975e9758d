package bridge

import (
	"context"
	"testing"

	"github.com/clusterlab/clusterlab/internal/datamodel"
	"github.com/clusterlab/clusterlab/internal/gravity"
)

func registryOf(t *testing.T, systems ...*datamodel.System) *datamodel.Systems {
	t.Helper()
	reg := datamodel.NewSystems()
	for _, s := range systems {
		if err := reg.Add(s); err != nil {
			t.Fatalf("add %s: %v", s.Name, err)
		}
	}
	return reg
}

func TestCoupleMutualPair(t *testing.T) {
	a := nbodySystem(t, "a", randomBodies(16, 1, datamodel.Vec3{X: -4}), 0.01)
	b := nbodySystem(t, "b", randomBodies(16, 2, datamodel.Vec3{X: 4}), 0.01)
	reg := registryOf(t, a, b)

	br, err := Couple(reg, map[string][]string{
		"a": {"b"},
		"b": {"a"},
	}, seconds(0.1), false)
	if err != nil {
		t.Fatalf("couple: %v", err)
	}
	if br.Len() != 2 {
		t.Fatalf("bridge has %d systems, want 2", br.Len())
	}

	p0 := momentum(a.Gravity().Particles(), b.Gravity().Particles())
	if err := br.EvolveTo(context.Background(), 1.0); err != nil {
		t.Fatalf("evolve: %v", err)
	}
	p1 := momentum(a.Gravity().Particles(), b.Gravity().Particles())
	if diff := p1.Sub(p0).Norm(); diff > 1e-10 {
		t.Errorf("pair momentum drifted by %g", diff)
	}
}

func TestCoupleSharedFieldReachesAll(t *testing.T) {
	a := nbodySystem(t, "a", randomBodies(8, 3, datamodel.Vec3{X: -2}), 0.01)
	b := nbodySystem(t, "b", randomBodies(8, 4, datamodel.Vec3{X: 2}), 0.01)
	reg := registryOf(t, a, b)

	host := &gravity.PointMassField{G: 1, Mass: 1e3}
	br, err := Couple(reg, nil, seconds(0.05), true, host)
	if err != nil {
		t.Fatalf("couple: %v", err)
	}

	for _, c := range br.systems {
		if len(c.partners) != 1 {
			t.Errorf("system %s has %d partners, want the shared field only", c.sys.Name, len(c.partners))
		}
	}
}

func TestCoupleRejectsBadMaps(t *testing.T) {
	a := nbodySystem(t, "a", randomBodies(4, 5, datamodel.Vec3{}), 0.01)
	reg := registryOf(t, a)

	cases := map[string]map[string][]string{
		"unknown key":     {"ghost": {"a"}},
		"unknown partner": {"a": {"ghost"}},
		"self partner":    {"a": {"a"}},
	}
	for name, deps := range cases {
		if _, err := Couple(reg, deps, seconds(0.1), false); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}

	bare := datamodel.NewSystem("bare", randomBodies(4, 6, datamodel.Vec3{X: 9}), nil)
	reg2 := registryOf(t, a, bare)
	if _, err := Couple(reg2, map[string][]string{"a": {"bare"}}, seconds(0.1), false); err == nil {
		t.Error("expected error for a codeless partner")
	}
}
