package ic_test

import (
	"math/rand"
	"sort"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/clusterlab/clusterlab/internal/datamodel"
	"github.com/clusterlab/clusterlab/internal/ic"
	"github.com/clusterlab/clusterlab/internal/units"
)

func sortedRadii(p *datamodel.Particles) []float64 {
	r := make([]float64, p.Len())
	for i := 0; i < p.Len(); i++ {
		r[i] = p.At(i).Pos.Norm()
	}
	sort.Float64s(r)
	return r
}

var _ = Describe("Plummer profile", func() {
	It("samples a centered near-virial sphere in model units", func() {
		rng := rand.New(rand.NewSource(42))
		p, err := ic.NewPlummer().Sample(rng, 2000, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(p.Len()).To(Equal(2000))

		for i := 0; i < p.Len(); i++ {
			Expect(p.At(i).Mass).To(Equal(1.0 / 2000))
		}
		Expect(p.CenterOfMass().Norm()).To(BeNumerically("<", 1e-9))
		Expect(p.CenterOfMassVelocity().Norm()).To(BeNumerically("<", 1e-9))

		// half the mass sits near 0.77 virial radii
		r := sortedRadii(p)
		Expect(r[1000]).To(BeNumerically("~", 0.77, 0.15))

		q := p.KineticEnergy() / -p.PotentialEnergy(1, 0)
		Expect(q).To(BeNumerically("~", 0.5, 0.1))
	})

	It("scales into physical units through a converter", func() {
		conv, err := units.NewConverter(units.New(1000, units.MSun), units.New(1, units.Parsec))
		Expect(err).NotTo(HaveOccurred())

		rng := rand.New(rand.NewSource(5))
		p, err := ic.NewPlummer().Sample(rng, 500, conv)
		Expect(err).NotTo(HaveOccurred())

		Expect(p.TotalMass()).To(BeNumerically("~", 1000*units.MSun.Scale, 1e-6*units.MSun.Scale))
		// bulk of the model sits within a few length units
		r := sortedRadii(p)
		Expect(r[250]).To(BeNumerically("~", 0.77*units.Parsec.Scale, 0.2*units.Parsec.Scale))
	})

	It("rejects empty draws", func() {
		rng := rand.New(rand.NewSource(1))
		_, err := ic.NewPlummer().Sample(rng, 0, nil)
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("Enclosed-mass models", func() {
	It("samples a Hernquist sphere inside its cutoff", func() {
		a := units.New(1, units.Parsec)
		model, err := ic.NewHernquist(units.New(1e5, units.MSun), a)
		Expect(err).NotTo(HaveOccurred())
		Expect(model.Name()).To(Equal("hernquist"))

		rng := rand.New(rand.NewSource(11))
		p, err := model.Sample(rng, 500, nil)
		Expect(err).NotTo(HaveOccurred())

		limit := 100 * a.SI()
		for i := 0; i < p.Len(); i++ {
			Expect(p.At(i).Mass).To(Equal(1.0 / 500))
			Expect(p.At(i).Pos.Norm()).To(BeNumerically("<", 1.05*limit))
			Expect(p.At(i).Vel.Norm()).To(BeNumerically(">", 0))
			Expect(p.At(i).Pos.IsFinite()).To(BeTrue())
		}

		// half of M(<r) = M r^2/(r+a)^2 inside 100a lies near 2.3a
		r := sortedRadii(p)
		Expect(r[250]).To(BeNumerically("~", 2.33*a.SI(), a.SI()))
	})

	It("scales masses through a converter", func() {
		a := units.New(1, units.Parsec)
		model, err := ic.NewHernquist(units.New(1e5, units.MSun), a)
		Expect(err).NotTo(HaveOccurred())

		conv, err := units.NewConverter(units.New(1e5, units.MSun), a)
		Expect(err).NotTo(HaveOccurred())

		rng := rand.New(rand.NewSource(12))
		p, err := model.Sample(rng, 100, conv)
		Expect(err).NotTo(HaveOccurred())
		Expect(p.TotalMass()).To(BeNumerically("~", 1e5*units.MSun.Scale, 1*units.MSun.Scale))
	})

	It("requires both profile functions", func() {
		m := &ic.EnclosedMassModel{EnclosedMass: func(float64) float64 { return 1 }}
		rng := rand.New(rand.NewSource(1))
		_, err := m.Sample(rng, 10, nil)
		Expect(err).To(MatchError(ContainSubstring("required")))
	})

	It("rejects a massless profile", func() {
		m := &ic.EnclosedMassModel{
			EnclosedMass: func(float64) float64 { return 0 },
			Potential:    func(datamodel.Vec3) float64 { return -1 },
		}
		rng := rand.New(rand.NewSource(1))
		_, err := m.Sample(rng, 10, nil)
		Expect(err).To(MatchError(ContainSubstring("no mass inside cutoff")))
	})

	It("validates the Hernquist scales", func() {
		_, err := ic.NewHernquist(units.New(1, units.Parsec), units.New(1, units.Parsec))
		Expect(err).To(HaveOccurred())
		_, err = ic.NewHernquist(units.New(1, units.MSun), units.New(1, units.MSun))
		Expect(err).To(HaveOccurred())
		_, err = ic.NewHernquist(units.New(-1, units.MSun), units.New(1, units.Parsec))
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("NewProfile", func() {
	It("dispatches by name", func() {
		p, err := ic.NewProfile("plummer")
		Expect(err).NotTo(HaveOccurred())
		Expect(p.Name()).To(Equal("plummer"))

		h, err := ic.NewProfile("hernquist")
		Expect(err).NotTo(HaveOccurred())
		Expect(h.Name()).To(Equal("hernquist"))
	})

	It("rejects unknown profiles", func() {
		_, err := ic.NewProfile("king")
		Expect(err).To(MatchError(ContainSubstring("unknown profile")))
	})

	It("needs a converter for the named Hernquist profile", func() {
		h, err := ic.NewProfile("hernquist")
		Expect(err).NotTo(HaveOccurred())

		rng := rand.New(rand.NewSource(1))
		_, err = h.Sample(rng, 10, nil)
		Expect(err).To(MatchError(ContainSubstring("converter")))
	})
})
