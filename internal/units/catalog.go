package units

import "sort"

// Astronomical catalog. Scales are SI values of one unit.
var (
	One = Unit{Symbol: "", Dim: Dim{}, Scale: 1}

	Meter      = Unit{Symbol: "m", Dim: Dim{L: 1}, Scale: 1}
	Kilometer  = Unit{Symbol: "km", Dim: Dim{L: 1}, Scale: 1e3}
	AU         = Unit{Symbol: "AU", Dim: Dim{L: 1}, Scale: 1.495978707e11}
	Parsec     = Unit{Symbol: "pc", Dim: Dim{L: 1}, Scale: 3.0856775814913673e16}
	Kiloparsec = Unit{Symbol: "kpc", Dim: Dim{L: 1}, Scale: 3.0856775814913673e19}
	Megaparsec = Unit{Symbol: "Mpc", Dim: Dim{L: 1}, Scale: 3.0856775814913673e22}
	LightYear  = Unit{Symbol: "ly", Dim: Dim{L: 1}, Scale: 9.4607304725808e15}
	RSun       = Unit{Symbol: "RSun", Dim: Dim{L: 1}, Scale: 6.957e8}
	RJupiter   = Unit{Symbol: "RJupiter", Dim: Dim{L: 1}, Scale: 7.1492e7}
	REarth     = Unit{Symbol: "REarth", Dim: Dim{L: 1}, Scale: 6.371e6}

	Kilogram = Unit{Symbol: "kg", Dim: Dim{M: 1}, Scale: 1}
	Gram     = Unit{Symbol: "g", Dim: Dim{M: 1}, Scale: 1e-3}
	MSun     = Unit{Symbol: "MSun", Dim: Dim{M: 1}, Scale: 1.98892e30}
	MJupiter = Unit{Symbol: "MJupiter", Dim: Dim{M: 1}, Scale: 1.89813e27}
	MEarth   = Unit{Symbol: "MEarth", Dim: Dim{M: 1}, Scale: 5.9722e24}

	Second   = Unit{Symbol: "s", Dim: Dim{T: 1}, Scale: 1}
	Minute   = Unit{Symbol: "min", Dim: Dim{T: 1}, Scale: 60}
	Hour     = Unit{Symbol: "hour", Dim: Dim{T: 1}, Scale: 3600}
	Day      = Unit{Symbol: "day", Dim: Dim{T: 1}, Scale: 86400}
	Year     = Unit{Symbol: "yr", Dim: Dim{T: 1}, Scale: 3.15569252e7}
	JulianYr = Unit{Symbol: "julianyr", Dim: Dim{T: 1}, Scale: 3.15576e7}
	Megayear = Unit{Symbol: "Myr", Dim: Dim{T: 1}, Scale: 3.15569252e13}
	Gigayear = Unit{Symbol: "Gyr", Dim: Dim{T: 1}, Scale: 3.15569252e16}

	MeterPerSec = Unit{Symbol: "ms", Dim: Dim{L: 1, T: -1}, Scale: 1}
	KmPerSec    = Unit{Symbol: "kms", Dim: Dim{L: 1, T: -1}, Scale: 1e3}
	AUPerDay    = Unit{Symbol: "AUd", Dim: Dim{L: 1, T: -1}, Scale: 1.495978707e11 / 86400}

	Joule = Unit{Symbol: "J", Dim: Dim{M: 1, L: 2, T: -2}, Scale: 1}
	Erg   = Unit{Symbol: "erg", Dim: Dim{M: 1, L: 2, T: -2}, Scale: 1e-7}
	LSun  = Unit{Symbol: "LSun", Dim: Dim{M: 1, L: 2, T: -3}, Scale: 3.828e26}
)

// G is the Newtonian constant of gravitation.
var G = Quantity{
	Value: 6.67428e-11,
	Unit:  Unit{Symbol: "m^3/(kg s^2)", Dim: Dim{M: -1, L: 3, T: -2}, Scale: 1},
}

var catalog = map[string]Unit{}

func init() {
	for _, u := range []Unit{
		Meter, Kilometer, AU, Parsec, Kiloparsec, Megaparsec, LightYear,
		RSun, RJupiter, REarth,
		Kilogram, Gram, MSun, MJupiter, MEarth,
		Second, Minute, Hour, Day, Year, JulianYr, Megayear, Gigayear,
		MeterPerSec, KmPerSec, AUPerDay,
		Joule, Erg, LSun,
	} {
		catalog[u.Symbol] = u
	}
}

// Lookup resolves a catalog unit by symbol.
func Lookup(symbol string) (Unit, bool) {
	u, ok := catalog[symbol]
	return u, ok
}

// Symbols lists the known unit symbols in sorted order.
func Symbols() []string {
	out := make([]string, 0, len(catalog))
	for s := range catalog {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
