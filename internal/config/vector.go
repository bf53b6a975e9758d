package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/clusterlab/clusterlab/internal/datamodel"
	"github.com/clusterlab/clusterlab/internal/units"
)

// ParseVector reads a bracketed vector quantity such as "[0, 0, 8] kpc"
// or "[1,-2,3] kms". An empty string is the zero vector; a bare bracket
// group without a unit symbol is dimensionless and only valid when d is
// the empty dimension.
func ParseVector(s string, d units.Dim, key string) (units.VectorQuantity, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return units.VectorQuantity{}, nil
	}
	if !strings.HasPrefix(s, "[") {
		return units.VectorQuantity{}, fmt.Errorf("%s: vector %q must look like \"[x,y,z] unit\"", key, s)
	}
	end := strings.IndexByte(s, ']')
	if end < 0 {
		return units.VectorQuantity{}, fmt.Errorf("%s: vector %q is missing the closing bracket", key, s)
	}

	parts := strings.Split(s[1:end], ",")
	if len(parts) != 3 {
		return units.VectorQuantity{}, fmt.Errorf("%s: vector %q needs exactly three components", key, s)
	}
	var comp [3]float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return units.VectorQuantity{}, fmt.Errorf("%s: component %d of %q: %w", key, i, s, err)
		}
		comp[i] = v
	}

	u := units.One
	if sym := strings.TrimSpace(s[end+1:]); sym != "" {
		var ok bool
		if u, ok = units.Lookup(sym); !ok {
			return units.VectorQuantity{}, fmt.Errorf("%s: unknown unit %q (known: %s)",
				key, sym, strings.Join(units.Symbols(), ", "))
		}
	}
	if u.Dim != d {
		return units.VectorQuantity{}, fmt.Errorf("%s: %q has dimension %s, want %s", key, s, u.Dim, d)
	}
	return units.NewVector(comp[0], comp[1], comp[2], u), nil
}

func datamodelVec(si [3]float64) datamodel.Vec3 {
	return datamodel.Vec3{X: si[0], Y: si[1], Z: si[2]}
}
