package ic_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/clusterlab/clusterlab/internal/analysis"
	"github.com/clusterlab/clusterlab/internal/datamodel"
	"github.com/clusterlab/clusterlab/internal/gravity"
	"github.com/clusterlab/clusterlab/internal/ic"
	"github.com/clusterlab/clusterlab/internal/units"
)

var _ = Describe("FigureEight", func() {
	It("places three solar masses with zero net momentum", func() {
		sys, err := ic.FigureEight(ic.ClusterOptions{})
		Expect(err).NotTo(HaveOccurred())
		Expect(sys.Name).To(Equal("figure-eight"))
		Expect(sys.Bodies.Len()).To(Equal(3))
		Expect(sys.Bodies.TotalMass()).To(
			BeNumerically("~", 3*units.MSun.Scale, 1e-6*units.MSun.Scale))

		mom := datamodel.Vec3{}
		for i := 0; i < 3; i++ {
			pt := sys.Bodies.At(i)
			mom = mom.Add(pt.Vel.Scale(pt.Mass))
		}
		scale := units.MSun.Scale * sys.Converter.VelocitySI()
		Expect(mom.Norm()).To(BeNumerically("<", 1e-6*scale))

		com := sys.Bodies.CenterOfMass()
		Expect(com.Norm()).To(BeNumerically("<", 1e-6*sys.Converter.LengthSI()))
	})

	It("closes after one period on the direct code", func() {
		// The converter is fixed by the defaults, so the step and the
		// period can be stated in code time.
		probe, err := ic.FigureEight(ic.ClusterOptions{})
		Expect(err).NotTo(HaveOccurred())
		tstar := probe.Converter.TimeSI()

		sys, err := ic.FigureEight(ic.ClusterOptions{
			GravityCode: "direct",
			Timestep:    units.New(1e-3*tstar, units.Second),
		})
		Expect(err).NotTo(HaveOccurred())

		start := make([]datamodel.Vec3, 3)
		for i := range start {
			start[i] = sys.Bodies.At(i).Pos
		}
		e0 := analysis.Energies(sys.Bodies, units.G.Value, 0).Total

		g := sys.Gravity().(gravity.Code)
		defer g.Stop()
		const period = 6.32591398
		Expect(g.EvolveTo(context.Background(), period*tstar)).To(Succeed())
		sys.SyncFromCodes()

		for i := range start {
			miss := sys.Bodies.At(i).Pos.Sub(start[i]).Norm()
			Expect(miss).To(BeNumerically("<", 0.05*sys.Converter.LengthSI()),
				"body %d should return to its starting point", i)
		}
		e1 := analysis.Energies(sys.Bodies, units.G.Value, 0).Total
		Expect(e1).To(BeNumerically("~", e0, 1e-4*-e0))
	})
})

var _ = Describe("Pythagorean", func() {
	It("starts Burrau's triangle at rest around the origin", func() {
		sys, err := ic.Pythagorean(ic.ClusterOptions{})
		Expect(err).NotTo(HaveOccurred())
		Expect(sys.Bodies.Len()).To(Equal(3))
		Expect(sys.Bodies.TotalMass()).To(
			BeNumerically("~", 12*units.MSun.Scale, 1e-6*units.MSun.Scale))

		for i := 0; i < 3; i++ {
			Expect(sys.Bodies.At(i).Vel.Norm()).To(BeZero())
		}
		Expect(sys.Bodies.CenterOfMass().Norm()).To(
			BeNumerically("<", 1e-9*sys.Converter.LengthSI()))

		rep := analysis.Energies(sys.Bodies, units.G.Value, 0)
		Expect(rep.Kinetic).To(BeZero())
		Expect(rep.Potential).To(BeNumerically("<", 0))
	})
})
