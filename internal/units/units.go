package units

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Dim holds the exponents of mass, length and time for a unit.
type Dim struct {
	M int8
	L int8
	T int8
}

func (d Dim) Mul(o Dim) Dim { return Dim{d.M + o.M, d.L + o.L, d.T + o.T} }
func (d Dim) Div(o Dim) Dim { return Dim{d.M - o.M, d.L - o.L, d.T - o.T} }

func (d Dim) Pow(n int) Dim {
	k := int8(n)
	return Dim{d.M * k, d.L * k, d.T * k}
}

func (d Dim) IsDimless() bool { return d == Dim{} }

func (d Dim) String() string {
	if d.IsDimless() {
		return "1"
	}
	var parts []string
	for _, e := range []struct {
		sym string
		exp int8
	}{{"kg", d.M}, {"m", d.L}, {"s", d.T}} {
		switch {
		case e.exp == 0:
		case e.exp == 1:
			parts = append(parts, e.sym)
		default:
			parts = append(parts, fmt.Sprintf("%s^%d", e.sym, e.exp))
		}
	}
	return strings.Join(parts, " ")
}

// Unit is a named scale over a dimension. Scale is the SI value of one unit.
type Unit struct {
	Symbol string
	Dim    Dim
	Scale  float64
}

// SIUnit returns the unnamed SI base unit for a dimension.
func SIUnit(d Dim) Unit {
	return Unit{Symbol: d.String(), Dim: d, Scale: 1}
}

func (u Unit) Mul(v Unit) Unit {
	return Unit{
		Symbol: compound(u.Symbol, v.Symbol, "*"),
		Dim:    u.Dim.Mul(v.Dim),
		Scale:  u.Scale * v.Scale,
	}
}

func (u Unit) Div(v Unit) Unit {
	return Unit{
		Symbol: compound(u.Symbol, v.Symbol, "/"),
		Dim:    u.Dim.Div(v.Dim),
		Scale:  u.Scale / v.Scale,
	}
}

func (u Unit) Pow(n int) Unit {
	return Unit{
		Symbol: fmt.Sprintf("%s^%d", u.Symbol, n),
		Dim:    u.Dim.Pow(n),
		Scale:  math.Pow(u.Scale, float64(n)),
	}
}

func compound(a, b, op string) string {
	if a == "" {
		if op == "/" && b != "" {
			return "1/" + b
		}
		return b
	}
	if b == "" {
		return a
	}
	return a + op + b
}

// Quantity is a value tagged with its unit.
type Quantity struct {
	Value float64
	Unit  Unit
}

func New(v float64, u Unit) Quantity { return Quantity{Value: v, Unit: u} }

// SI returns the value expressed in SI base units.
func (q Quantity) SI() float64 { return q.Value * q.Unit.Scale }

func (q Quantity) In(u Unit) (float64, error) {
	if q.Unit.Dim != u.Dim {
		return 0, fmt.Errorf("incompatible units: %s and %s", describe(q.Unit), describe(u))
	}
	return q.SI() / u.Scale, nil
}

func (q Quantity) MustIn(u Unit) float64 {
	v, err := q.In(u)
	if err != nil {
		panic(err)
	}
	return v
}

func (q Quantity) Add(o Quantity) (Quantity, error) {
	if q.Unit.Dim != o.Unit.Dim {
		return Quantity{}, fmt.Errorf("incompatible units: %s and %s", describe(q.Unit), describe(o.Unit))
	}
	return Quantity{Value: q.Value + o.SI()/q.Unit.Scale, Unit: q.Unit}, nil
}

func (q Quantity) Sub(o Quantity) (Quantity, error) {
	if q.Unit.Dim != o.Unit.Dim {
		return Quantity{}, fmt.Errorf("incompatible units: %s and %s", describe(q.Unit), describe(o.Unit))
	}
	return Quantity{Value: q.Value - o.SI()/q.Unit.Scale, Unit: q.Unit}, nil
}

func (q Quantity) Mul(o Quantity) Quantity {
	return Quantity{Value: q.Value * o.Value, Unit: q.Unit.Mul(o.Unit)}
}

func (q Quantity) Div(o Quantity) Quantity {
	return Quantity{Value: q.Value / o.Value, Unit: q.Unit.Div(o.Unit)}
}

func (q Quantity) Scale(f float64) Quantity {
	return Quantity{Value: q.Value * f, Unit: q.Unit}
}

func (q Quantity) IsZero() bool { return q.Value == 0 }

func (q Quantity) String() string {
	s := strconv.FormatFloat(q.Value, 'g', 6, 64)
	if q.Unit.Symbol == "" {
		return s
	}
	return s + " " + q.Unit.Symbol
}

func describe(u Unit) string {
	if u.Symbol != "" {
		return u.Symbol
	}
	return u.Dim.String()
}

// VectorQuantity is a 3-vector tagged with a unit.
type VectorQuantity struct {
	Value [3]float64
	Unit  Unit
}

func NewVector(x, y, z float64, u Unit) VectorQuantity {
	return VectorQuantity{Value: [3]float64{x, y, z}, Unit: u}
}

func (v VectorQuantity) SI() [3]float64 {
	return [3]float64{
		v.Value[0] * v.Unit.Scale,
		v.Value[1] * v.Unit.Scale,
		v.Value[2] * v.Unit.Scale,
	}
}

func (v VectorQuantity) In(u Unit) ([3]float64, error) {
	if v.Unit.Dim != u.Dim {
		return [3]float64{}, fmt.Errorf("incompatible units: %s and %s", describe(v.Unit), describe(u))
	}
	f := v.Unit.Scale / u.Scale
	return [3]float64{v.Value[0] * f, v.Value[1] * f, v.Value[2] * f}, nil
}

func (v VectorQuantity) Norm() Quantity {
	n := math.Sqrt(v.Value[0]*v.Value[0] + v.Value[1]*v.Value[1] + v.Value[2]*v.Value[2])
	return Quantity{Value: n, Unit: v.Unit}
}
