package bridge

import (
	"fmt"

	"github.com/clusterlab/clusterlab/internal/datamodel"
	"github.com/clusterlab/clusterlab/internal/units"
)

// Couple builds a bridge over a whole registry from a map of system
// names to the names of the systems that kick them. Every registered
// system joins the bridge, dependencies or not, so they all share one
// clock; shared fields act on everyone. Partners kick through their
// gravity codes.
func Couple(reg *datamodel.Systems, deps map[string][]string, timestep units.Quantity, threaded bool, shared ...Field) (*Bridge, error) {
	for name := range deps {
		if _, ok := reg.Get(name); !ok {
			return nil, fmt.Errorf("bridge: dependency map names unknown system %q", name)
		}
	}

	br, err := New(timestep, threaded)
	if err != nil {
		return nil, err
	}
	for _, name := range reg.Names() {
		sys, _ := reg.Get(name)
		partners := make([]Field, 0, len(deps[name])+len(shared))
		for _, pname := range deps[name] {
			if pname == name {
				return nil, fmt.Errorf("bridge: system %q cannot partner itself", name)
			}
			p, ok := reg.Get(pname)
			if !ok {
				return nil, fmt.Errorf("bridge: system %q depends on unknown system %q", name, pname)
			}
			g := p.Gravity()
			if g == nil {
				return nil, fmt.Errorf("bridge: system %q needs a gravity code to act on %q", pname, name)
			}
			f, ok := g.(Field)
			if !ok {
				return nil, fmt.Errorf("bridge: gravity code %s of %q cannot act as a field", g.Name(), pname)
			}
			partners = append(partners, f)
		}
		partners = append(partners, shared...)
		br.Add(sys, partners...)
	}
	return br, nil
}
