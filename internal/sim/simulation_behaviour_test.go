package sim

import (
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/springsim/internal/drive"
	"github.com/san-kum/springsim/internal/dynamo"
	"github.com/san-kum/springsim/internal/topology"
)

func clothParams(res int) dynamo.Params {
	p := dynamo.DefaultParams()
	p.Resolution = res
	return p
}

var _ = Describe("Simulation", func() {
	var (
		s      *Simulation
		params dynamo.Params
	)

	Context("with the cloth layout and obstacle", func() {
		BeforeEach(func() {
			params = clothParams(10)
			var err error
			s, err = New(topology.NewGrid(true), params,
				WithLogger(quiet()),
				WithMass(2),
				WithObstacle(dynamo.Obstacle{Center: dynamo.V(0, 1.5, 1), Radius: 0.5}))
			Expect(err).NotTo(HaveOccurred())
		})

		It("builds an N by N arena with structural and shear springs", func() {
			Expect(s.NumParticles()).To(Equal(100))
			Expect(s.Springs()).To(HaveLen(topology.StructuralCount(10) + topology.ShearCount(10)))
			Expect(s.Anchors()).To(Equal([]int{0, 9}))
		})

		It("starts every spring at its rest length", func() {
			for i, e := range s.SpringEndpoints() {
				Expect(dynamo.Distance(e.A, e.B)).To(BeNumerically("~", s.Springs()[i].RestLength, 1e-12))
			}
		})

		It("falls under gravity while anchors hold", func() {
			start := s.Positions()
			for i := 0; i < 100; i++ {
				r, err := s.Advance()
				Expect(err).NotTo(HaveOccurred())
				Expect(r.Divergences).To(BeEmpty())
			}
			pos := s.Positions()
			Expect(pos[0]).To(Equal(start[0]))
			Expect(pos[9]).To(Equal(start[9]))
			Expect(pos[95].Y).To(BeNumerically("<", start[95].Y))
		})

		It("keeps returned positions finite", func() {
			for i := 0; i < 200; i++ {
				_, err := s.Advance()
				Expect(err).NotTo(HaveOccurred())
			}
			for _, p := range s.Positions() {
				Expect(dynamo.HasNaN(p)).To(BeFalse())
			}
		})

		It("reports a rebuild frame when resolution changes", func() {
			Expect(s.SetParameter(dynamo.ParamResolution, 12)).To(Succeed())
			r, err := s.Advance()
			Expect(err).NotTo(HaveOccurred())
			Expect(r.Rebuilt).To(BeTrue())
			Expect(r.Advanced).To(BeFalse())
			Expect(s.NumParticles()).To(Equal(144))
			Expect(s.Anchors()).To(Equal([]int{0, 11}))
		})
	})

	Context("with an unstable configuration", func() {
		BeforeEach(func() {
			params = clothParams(6)
			params.Stiffness = 500
			params.Timestep = 1.0
			var err error
			s, err = New(topology.NewGrid(false), params, WithLogger(quiet()))
			Expect(err).NotTo(HaveOccurred())
		})

		It("freezes diverged particles and reports them once", func() {
			seen := map[int]int{}
			for i := 0; i < 50; i++ {
				r, err := s.Advance()
				Expect(err).NotTo(HaveOccurred())
				for _, ev := range r.Divergences {
					seen[ev.ParticleIndex]++
					Expect(ev.Step).To(Equal(r.Step))
				}
			}
			Expect(seen).NotTo(BeEmpty())
			for idx, n := range seen {
				Expect(n).To(Equal(1), "particle %d reported %d times", idx, n)
				Expect(s.Diverged(idx)).To(BeTrue())
			}
		})

		It("never exposes out-of-bound positions", func() {
			for i := 0; i < 50; i++ {
				_, err := s.Advance()
				Expect(err).NotTo(HaveOccurred())
				for _, p := range s.Positions() {
					Expect(dynamo.Length(p)).To(BeNumerically("<=", 1000))
				}
			}
		})
	})

	Context("with a circling driver", func() {
		BeforeEach(func() {
			params = clothParams(4)
			var err error
			s, err = New(topology.NewGrid(false), params,
				WithLogger(quiet()),
				WithDriver(drive.NewCircle(0.2, 1)))
			Expect(err).NotTo(HaveOccurred())
		})

		It("moves anchors on a circle around their base", func() {
			base := s.Positions()
			for i := 0; i < 30; i++ {
				_, err := s.Advance()
				Expect(err).NotTo(HaveOccurred())
			}
			w := 2 * math.Pi * s.Time()
			pos := s.Positions()
			for _, idx := range s.Anchors() {
				Expect(pos[idx].X).To(BeNumerically("~", base[idx].X+0.2*(math.Cos(w)-1), 1e-9))
				Expect(pos[idx].Z).To(BeNumerically("~", 0.2*math.Sin(w), 1e-9))
			}
		})
	})
})
