package ic_test

import (
	"math"
	"math/rand"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/clusterlab/clusterlab/internal/ic"
	"github.com/clusterlab/clusterlab/internal/units"
)

func msun(v float64) units.Quantity { return units.New(v, units.MSun) }

// spikeIMF front-loads one huge draw so bracket checks can be forced.
type spikeIMF struct{}

func (spikeIMF) Name() string { return "spike" }
func (spikeIMF) Sample(_ *rand.Rand, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 1
	}
	if n > 0 {
		out[0] = 1e6
	}
	return out
}
func (spikeIMF) Mean() float64 { return 1000.999 }

func (spikeIMF) Bounds() (float64, float64) { return 1, 1e6 }

var _ = Describe("Kroupa mass function", func() {
	It("covers the catalog range by default", func() {
		f, err := ic.NewKroupa(units.Quantity{}, units.Quantity{})
		Expect(err).NotTo(HaveOccurred())
		Expect(f.Name()).To(Equal("kroupa"))

		lo, hi := f.Bounds()
		Expect(lo / units.MSun.Scale).To(BeNumerically("~", 0.01, 1e-12))
		Expect(hi / units.MSun.Scale).To(BeNumerically("~", 100, 1e-9))
	})

	It("draws inside its bounds with a thin massive tail", func() {
		f, err := ic.NewKroupa(units.Quantity{}, units.Quantity{})
		Expect(err).NotTo(HaveOccurred())

		rng := rand.New(rand.NewSource(42))
		masses := f.Sample(rng, 20000)
		lo, hi := f.Bounds()

		outOfRange, heavy := 0, 0
		for _, m := range masses {
			if m < lo || m > hi {
				outOfRange++
			}
			if m > units.MSun.Scale {
				heavy++
			}
		}
		Expect(outOfRange).To(BeZero())
		// the -2.3 tail leaves about 6% of stars above a solar mass
		Expect(float64(heavy) / float64(len(masses))).To(BeNumerically("~", 0.06, 0.05))
	})

	It("drops whole segments below a floor", func() {
		f, err := ic.NewKroupa(msun(0.5), units.Quantity{})
		Expect(err).NotTo(HaveOccurred())

		lo, hi := f.Bounds()
		Expect(lo / units.MSun.Scale).To(BeNumerically("~", 0.5, 1e-12))
		Expect(hi / units.MSun.Scale).To(BeNumerically("~", 100, 1e-9))

		rng := rand.New(rand.NewSource(1))
		for _, m := range f.Sample(rng, 2000) {
			Expect(m).To(BeNumerically(">=", lo))
		}
	})

	It("clamps a floor inside a segment", func() {
		f, err := ic.NewKroupa(msun(0.3), units.Quantity{})
		Expect(err).NotTo(HaveOccurred())

		lo, _ := f.Bounds()
		Expect(lo / units.MSun.Scale).To(BeNumerically("~", 0.3, 1e-12))
	})

	It("extends the steep tail past the catalog ceiling", func() {
		f, err := ic.NewKroupa(units.Quantity{}, msun(150))
		Expect(err).NotTo(HaveOccurred())

		_, hi := f.Bounds()
		Expect(hi / units.MSun.Scale).To(BeNumerically("~", 150, 1e-9))
	})

	It("truncates into the lowest segment", func() {
		f, err := ic.NewKroupa(units.Quantity{}, msun(0.05))
		Expect(err).NotTo(HaveOccurred())

		lo, hi := f.Bounds()
		Expect(lo / units.MSun.Scale).To(BeNumerically("~", 0.01, 1e-12))
		Expect(hi / units.MSun.Scale).To(BeNumerically("~", 0.05, 1e-12))
	})

	It("raises the mean when the light end is cut", func() {
		full, err := ic.NewKroupa(units.Quantity{}, units.Quantity{})
		Expect(err).NotTo(HaveOccurred())
		cut, err := ic.NewKroupa(msun(0.5), units.Quantity{})
		Expect(err).NotTo(HaveOccurred())

		Expect(cut.Mean()).To(BeNumerically(">", full.Mean()))
	})

	It("rejects an empty range", func() {
		_, err := ic.NewKroupa(msun(10), msun(5))
		Expect(err).To(MatchError(ContainSubstring("empty")))
	})

	It("rejects a floor that is not a mass", func() {
		_, err := ic.NewKroupa(units.New(1, units.Parsec), units.Quantity{})
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("Salpeter mass function", func() {
	It("defaults to 0.1 to 125 solar masses", func() {
		f, err := ic.NewSalpeter(units.Quantity{}, units.Quantity{})
		Expect(err).NotTo(HaveOccurred())
		Expect(f.Name()).To(Equal("salpeter"))

		lo, hi := f.Bounds()
		Expect(lo / units.MSun.Scale).To(BeNumerically("~", 0.1, 1e-12))
		Expect(hi / units.MSun.Scale).To(BeNumerically("~", 125, 1e-9))
	})

	It("matches the analytic mean", func() {
		f, err := ic.NewSalpeter(units.Quantity{}, units.Quantity{})
		Expect(err).NotTo(HaveOccurred())
		Expect(f.Mean() / units.MSun.Scale).To(BeNumerically("~", 0.3539, 1e-3))
	})

	It("tracks its analytic mean in a large sample", func() {
		f, err := ic.NewSalpeter(units.Quantity{}, units.Quantity{})
		Expect(err).NotTo(HaveOccurred())

		rng := rand.New(rand.NewSource(7))
		sum := 0.0
		const n = 20000
		for _, m := range f.Sample(rng, n) {
			sum += m
		}
		Expect(sum / n).To(BeNumerically("~", f.Mean(), 0.05*units.MSun.Scale))
	})
})

var _ = Describe("BrokenPowerLaw", func() {
	It("needs one more boundary than exponents", func() {
		_, err := ic.NewBrokenPowerLaw("bad", []units.Quantity{msun(1), msun(10)}, []float64{-1, -2})
		Expect(err).To(HaveOccurred())
	})

	It("rejects non-ascending boundaries", func() {
		_, err := ic.NewBrokenPowerLaw("bad", []units.Quantity{msun(10), msun(1)}, []float64{-2})
		Expect(err).To(MatchError(ContainSubstring("ascending")))
	})

	It("rejects non-mass boundaries", func() {
		_, err := ic.NewBrokenPowerLaw("bad",
			[]units.Quantity{units.New(1, units.Parsec), units.New(2, units.Parsec)},
			[]float64{-2})
		Expect(err).To(MatchError(ContainSubstring("mass")))
	})

	It("handles the logarithmic exponent", func() {
		// for dN/dm propto 1/m the mean is (hi-lo)/ln(hi/lo)
		f, err := ic.NewBrokenPowerLaw("log", []units.Quantity{msun(1), msun(10)}, []float64{-1})
		Expect(err).NotTo(HaveOccurred())

		want := 9 / math.Log(10)
		Expect(f.Mean() / units.MSun.Scale).To(BeNumerically("~", want, 1e-9))
	})
})

var _ = Describe("EqualMass", func() {
	It("hands every star the same mass", func() {
		f, err := ic.NewEqualMass(msun(2))
		Expect(err).NotTo(HaveOccurred())

		rng := rand.New(rand.NewSource(1))
		for _, m := range f.Sample(rng, 50) {
			Expect(m).To(Equal(2 * units.MSun.Scale))
		}
		Expect(f.Mean()).To(Equal(2 * units.MSun.Scale))
	})

	It("rejects non-positive and non-mass values", func() {
		_, err := ic.NewEqualMass(msun(0))
		Expect(err).To(HaveOccurred())
		_, err = ic.NewEqualMass(units.New(1, units.Parsec))
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("NewIMF", func() {
	It("dispatches by name", func() {
		for kind, want := range map[string]string{
			"kroupa":   "kroupa",
			"salpeter": "salpeter",
			"equal":    "equal",
		} {
			f, err := ic.NewIMF(kind, units.Quantity{}, units.Quantity{})
			Expect(err).NotTo(HaveOccurred())
			Expect(f.Name()).To(Equal(want))
		}
	})

	It("rejects unknown kinds", func() {
		_, err := ic.NewIMF("chabrier", units.Quantity{}, units.Quantity{})
		Expect(err).To(MatchError(ContainSubstring("unknown imf")))
	})
})

var _ = Describe("NumForTotalMass", func() {
	It("finds the exact count for equal masses", func() {
		f, err := ic.NewEqualMass(msun(1))
		Expect(err).NotTo(HaveOccurred())

		n, got, ferr, err := ic.NumForTotalMass(f, msun(100), 1e-3, 9)
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(Equal(100))
		Expect(ferr).To(BeNumerically("<", 1e-3))
		Expect(got.SI()).To(BeNumerically("~", 100*units.MSun.Scale, 1e-3*units.MSun.Scale))
	})

	It("converges for a Kroupa population", func() {
		f, err := ic.NewKroupa(units.Quantity{}, units.Quantity{})
		Expect(err).NotTo(HaveOccurred())

		target := msun(1000)
		n, got, ferr, err := ic.NumForTotalMass(f, target, 1e-2, 7)
		Expect(err).NotTo(HaveOccurred())
		// mean Kroupa star is about 0.38 MSun
		Expect(n).To(And(BeNumerically(">", 1800), BeNumerically("<", 3600)))
		Expect(ferr).To(BeNumerically("<", 0.05))
		Expect(math.Abs(got.SI()-target.SI()) / target.SI()).To(BeNumerically("~", ferr, 1e-12))
	})

	It("fails when the target is below one star", func() {
		f, err := ic.NewEqualMass(msun(1))
		Expect(err).NotTo(HaveOccurred())

		_, _, _, err = ic.NumForTotalMass(f, msun(0.5), 1e-2, 1)
		Expect(err).To(MatchError(ContainSubstring("upper bracket")))
	})

	It("fails when the lower bracket overshoots", func() {
		_, _, _, err := ic.NumForTotalMass(spikeIMF{}, units.New(4004, units.Kilogram), 1e-2, 1)
		Expect(err).To(MatchError(ContainSubstring("lower bracket")))
	})

	It("validates its inputs", func() {
		f, err := ic.NewEqualMass(msun(1))
		Expect(err).NotTo(HaveOccurred())

		_, _, _, err = ic.NumForTotalMass(f, units.New(1, units.Parsec), 1e-2, 1)
		Expect(err).To(MatchError(ContainSubstring("mass")))
		_, _, _, err = ic.NumForTotalMass(f, msun(-5), 1e-2, 1)
		Expect(err).To(HaveOccurred())
		_, _, _, err = ic.NumForTotalMass(f, msun(5), 0, 1)
		Expect(err).To(MatchError(ContainSubstring("tolerance")))
	})
})

var _ = Describe("SampleTotal", func() {
	It("reproduces the total found by the count search", func() {
		f, err := ic.NewEqualMass(msun(1))
		Expect(err).NotTo(HaveOccurred())

		masses, err := ic.SampleTotal(f, msun(50), 1e-3, 3)
		Expect(err).NotTo(HaveOccurred())
		Expect(masses).To(HaveLen(50))

		sum := 0.0
		for _, m := range masses {
			sum += m
		}
		Expect(sum).To(BeNumerically("~", 50*units.MSun.Scale, 1e-3*units.MSun.Scale))
	})
})
