package ic_test

import (
	"math"
	"math/rand"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/clusterlab/clusterlab/internal/analysis"
	"github.com/clusterlab/clusterlab/internal/datamodel"
	"github.com/clusterlab/clusterlab/internal/ic"
	"github.com/clusterlab/clusterlab/internal/units"
)

var _ = Describe("BuildCluster", func() {
	It("assembles a virialized equal-mass cluster with live codes", func() {
		imf, err := ic.NewEqualMass(msun(1))
		Expect(err).NotTo(HaveOccurred())

		sys, err := ic.BuildCluster(ic.ClusterOptions{
			Name:          "m4",
			N:             256,
			IMF:           imf,
			GravityCode:   "direct",
			WithEvolution: true,
			Position:      units.NewVector(5, 0, 0, units.Parsec),
			Seed:          11,
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(sys.Name).To(Equal("m4"))
		Expect(sys.Bodies.Len()).To(Equal(256))
		Expect(sys.Converter).NotTo(BeNil())

		Expect(sys.Bodies.TotalMass()).To(
			BeNumerically("~", 256*units.MSun.Scale, 1e-6*units.MSun.Scale))

		// rescaled to virial equilibrium before the shift
		q := analysis.VirialRatio(sys.Bodies, units.G.Value, 0)
		Expect(q).To(BeNumerically("~", 0.5, 1e-9))

		com := sys.Bodies.CenterOfMass()
		Expect(com.X).To(BeNumerically("~", 5*units.Parsec.Scale, 1e-6*units.Parsec.Scale))
		Expect(math.Abs(com.Y)).To(BeNumerically("<", 1e-6*units.Parsec.Scale))

		Expect(sys.Gravity()).NotTo(BeNil())
		Expect(sys.Gravity().Name()).To(Equal("direct"))
		Expect(sys.Gravity().Particles().Len()).To(Equal(256))

		// the evolution commit stamps zero-age solar radii on the masters
		Expect(sys.Evolution()).NotTo(BeNil())
		Expect(sys.Bodies.At(0).Radius).To(
			BeNumerically("~", units.RSun.Scale, 1e-6*units.RSun.Scale))

		Expect(sys.ChannelNames()).To(HaveLen(6))
	})

	It("reproduces a build from the same seed", func() {
		opts := ic.ClusterOptions{Name: "twin", N: 64, Seed: 21}
		a, err := ic.BuildCluster(opts)
		Expect(err).NotTo(HaveOccurred())
		b, err := ic.BuildCluster(opts)
		Expect(err).NotTo(HaveOccurred())

		for i := 0; i < a.Bodies.Len(); i++ {
			Expect(a.Bodies.At(i).Pos).To(Equal(b.Bodies.At(i).Pos))
			Expect(a.Bodies.At(i).Mass).To(Equal(b.Bodies.At(i).Mass))
		}
	})

	It("draws a Kroupa population roughly in equilibrium", func() {
		sys, err := ic.BuildCluster(ic.ClusterOptions{
			Name:        "kroupa400",
			N:           400,
			GravityCode: "bhtree",
			Seed:        17,
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(sys.Gravity().Name()).To(Equal("bhtree"))

		lo, hi := 0.01*units.MSun.Scale, 100*units.MSun.Scale
		for i := 0; i < sys.Bodies.Len(); i++ {
			m := sys.Bodies.At(i).Mass
			Expect(m).To(And(BeNumerically(">=", lo), BeNumerically("<=", hi)))
			Expect(sys.Bodies.At(i).Radius).To(BeZero())
		}

		// the mass spectrum decorrelates masses and speeds, so the
		// ratio only lands near equilibrium
		q := analysis.VirialRatio(sys.Bodies, units.G.Value, 0)
		Expect(q).To(And(BeNumerically(">", 0.2), BeNumerically("<", 0.9)))
	})

	It("sizes the population from a total mass", func() {
		imf, err := ic.NewEqualMass(msun(1))
		Expect(err).NotTo(HaveOccurred())

		sys, err := ic.BuildCluster(ic.ClusterOptions{
			Name:      "sized",
			TotalMass: msun(500),
			MassTol:   1e-3,
			IMF:       imf,
			Seed:      5,
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(sys.Bodies.Len()).To(Equal(500))
	})

	It("needs a count or a total mass", func() {
		_, err := ic.BuildCluster(ic.ClusterOptions{Name: "empty"})
		Expect(err).To(MatchError(ContainSubstring("star count or a total mass")))
	})

	It("rejects mis-dimensioned options", func() {
		_, err := ic.BuildCluster(ic.ClusterOptions{
			Name:         "bad",
			N:            8,
			VirialRadius: msun(1),
		})
		Expect(err).To(MatchError(ContainSubstring("dimension")))
	})
})

var _ = Describe("Rebuild", func() {
	It("requires a converter", func() {
		_, err := ic.Rebuild(ic.ClusterOptions{Name: "r"}, nil, nil)
		Expect(err).To(MatchError(ContainSubstring("converter")))
	})

	It("wires codes around an empty set", func() {
		conv, err := units.NewConverter(units.New(100, units.MSun), units.New(1, units.Parsec))
		Expect(err).NotTo(HaveOccurred())

		sys, err := ic.Rebuild(ic.ClusterOptions{
			Name:          "restored",
			GravityCode:   "direct",
			WithEvolution: true,
		}, nil, conv)
		Expect(err).NotTo(HaveOccurred())
		Expect(sys.Bodies.Len()).To(BeZero())
		Expect(sys.Gravity()).NotTo(BeNil())
		Expect(sys.Evolution()).NotTo(BeNil())
	})

	It("loads existing bodies into a fresh code", func() {
		conv, err := units.NewConverter(units.New(100, units.MSun), units.New(1, units.Parsec))
		Expect(err).NotTo(HaveOccurred())

		rng := rand.New(rand.NewSource(2))
		bodies, err := ic.NewPlummer().Sample(rng, 32, conv)
		Expect(err).NotTo(HaveOccurred())

		sys, err := ic.Rebuild(ic.ClusterOptions{
			Name:        "restored",
			GravityCode: "bhtree",
		}, bodies, conv)
		Expect(err).NotTo(HaveOccurred())
		Expect(sys.Gravity().Particles().Len()).To(Equal(32))
	})
})

var _ = Describe("Bound/unbound separation", func() {
	var (
		opts  ic.ClusterOptions
		bound *datamodel.System
		twin  *datamodel.System
	)

	BeforeEach(func() {
		imf, err := ic.NewEqualMass(msun(1))
		Expect(err).NotTo(HaveOccurred())

		opts = ic.ClusterOptions{
			Name:        "sep",
			N:           64,
			IMF:         imf,
			GravityCode: "direct",
			Seed:        3,
		}
		bound, err = ic.BuildCluster(opts)
		Expect(err).NotTo(HaveOccurred())

		twin, err = ic.NewUnboundTwin(opts, bound.Converter)
		Expect(err).NotTo(HaveOccurred())
	})

	It("names the twin after its cluster", func() {
		Expect(twin.Name).To(Equal("sep-unbound"))
		Expect(twin.Bodies.Len()).To(BeZero())
		Expect(twin.Gravity()).NotTo(BeNil())
	})

	It("moves distant bodies and resynchronizes both systems", func() {
		far := 10 * units.Kiloparsec.Scale
		moved := []uint64{
			bound.Bodies.At(0).Key,
			bound.Bodies.At(1).Key,
			bound.Bodies.At(2).Key,
		}
		for i := 0; i < 3; i++ {
			bound.Bodies.At(i).Pos = datamodel.Vec3{X: far + float64(i)*units.Parsec.Scale}
		}

		n, err := ic.SeparateBoundUnbound(bound, twin, units.New(1, units.Kiloparsec))
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(Equal(3))

		Expect(bound.Bodies.Len()).To(Equal(61))
		Expect(twin.Bodies.Len()).To(Equal(3))
		Expect(bound.Gravity().Particles().Len()).To(Equal(61))
		Expect(twin.Gravity().Particles().Len()).To(Equal(3))

		for _, key := range moved {
			pt, ok := twin.Bodies.ByKey(key)
			Expect(ok).To(BeTrue())
			Expect(pt.Pos.Norm()).To(BeNumerically(">=", far))

			_, still := bound.Bodies.ByKey(key)
			Expect(still).To(BeFalse())
		}

		// nothing else sits beyond the cut
		n, err = ic.SeparateBoundUnbound(bound, twin, units.New(1, units.Kiloparsec))
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(BeZero())
	})

	It("validates the cutoff", func() {
		_, err := ic.SeparateBoundUnbound(bound, twin, msun(1))
		Expect(err).To(MatchError(ContainSubstring("length")))
		_, err = ic.SeparateBoundUnbound(bound, twin, units.New(-1, units.Parsec))
		Expect(err).To(MatchError(ContainSubstring("non-negative")))
	})

	It("is a no-op on an empty system", func() {
		n, err := ic.SeparateBoundUnbound(twin, bound, units.New(1, units.Parsec))
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(BeZero())
	})
})
