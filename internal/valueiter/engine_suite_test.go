package valueiter_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/dynprog/internal/cost"
	"github.com/san-kum/dynprog/internal/dynamics"
	"github.com/san-kum/dynprog/internal/dynamo"
	"github.com/san-kum/dynprog/internal/grid"
	"github.com/san-kum/dynprog/internal/valueiter"
)

var _ = Describe("Engine", func() {
	var (
		g   *grid.Grid
		cfg valueiter.Config
	)

	BeforeEach(func() {
		var err error
		g, err = grid.New(21, 21, 10, 5)
		Expect(err).NotTo(HaveOccurred())
		cfg = valueiter.DefaultConfig()
	})

	newEngine := func(opts ...valueiter.Option) *valueiter.Engine {
		e, err := valueiter.New(cfg, g, dynamics.NewDoubleIntegrator(), cost.NewMinimumTime(g), opts...)
		Expect(err).NotTo(HaveOccurred())
		return e
	}

	Context("on the minimum-time problem", func() {
		It("converges within the iteration budget", func() {
			res, err := newEngine().Run(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Converged).To(BeTrue())
			Expect(res.Phase).To(Equal(valueiter.PhaseConverged))
			Expect(res.Iterations).To(BeNumerically("<", cfg.MaxIterations))
			Expect(res.Norm).To(BeNumerically("<=", cfg.Tolerance))
			Expect(res.Norms).To(HaveLen(res.Iterations))
			Expect(res.Norms[len(res.Norms)-1]).To(BeNumerically("<", res.Norms[0]))
		})

		It("keeps the origin cheaper than the far corner", func() {
			res, err := newEngine().Run(context.Background())
			Expect(err).NotTo(HaveOccurred())

			origin := res.Cost.At(10, 10)
			corner := res.Cost.At(0, 0)
			Expect(origin).To(BeNumerically("~", 0, 1e-9))
			Expect(corner).To(BeNumerically(">=", 1))
		})

		It("returns fields independent of the engine", func() {
			e := newEngine()
			res, err := e.Run(context.Background())
			Expect(err).NotTo(HaveOccurred())

			res.Cost.Set(0, 0, -42)
			Expect(e.Cost().At(0, 0)).NotTo(Equal(-42.0))
		})

		It("changes a converged field by less than the tolerance on one more sweep", func() {
			res, err := newEngine().Run(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Converged).To(BeTrue())

			again := newEngine(valueiter.WithTerminal(res.Cost))
			norm, err := again.Step(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(norm).To(BeNumerically("<=", cfg.Tolerance))
			Expect(valueiter.MaxNorm(again.Cost().Values(), res.Cost.Values())).To(Equal(norm))
		})
	})

	Context("with observers", func() {
		It("sees every sweep in order", func() {
			cfg.MaxIterations = 25
			var iterations []int
			var phases []valueiter.Phase
			obs := valueiter.SweepFunc(func(s valueiter.Sweep) error {
				iterations = append(iterations, s.Iteration)
				phases = append(phases, s.Phase)
				Expect(s.Cost.Len()).To(Equal(g.Cells()))
				return nil
			})

			res, err := newEngine(valueiter.WithObserver(obs)).Run(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(iterations).To(HaveLen(25))
			Expect(iterations[0]).To(Equal(1))
			Expect(iterations[24]).To(Equal(25))
			Expect(phases[23]).To(Equal(valueiter.PhaseSweeping))
			Expect(phases[24]).To(Equal(valueiter.PhaseBudgetExhausted))
			Expect(res.Converged).To(BeFalse())
		})
	})

	Context("with a custom terminal field", func() {
		It("starts sweeping from it", func() {
			terminal := g.NewField(5)
			e := newEngine(valueiter.WithTerminal(terminal))
			Expect(e.Cost().Values()).To(HaveEach(5.0))

			terminal.Set(0, 0, 7)
			Expect(e.Cost().At(0, 0)).To(Equal(5.0))
		})
	})

	Context("when cancelled mid-run", func() {
		It("returns the partial result and the context error", func() {
			ctx, cancel := context.WithCancel(context.Background())
			obs := valueiter.SweepFunc(func(s valueiter.Sweep) error {
				if s.Iteration == 5 {
					cancel()
				}
				return nil
			})

			res, err := newEngine(valueiter.WithObserver(obs)).Run(ctx)
			Expect(err).To(MatchError(context.Canceled))
			Expect(res.Iterations).To(Equal(5))
			Expect(res.Phase).To(Equal(valueiter.PhaseSweeping))
		})
	})

	DescribeTable("rejects invalid configuration",
		func(modify func(*valueiter.Config)) {
			modify(&cfg)
			_, err := valueiter.New(cfg, g, dynamics.NewDoubleIntegrator(), cost.NewMinimumTime(g))
			Expect(err).To(HaveOccurred())
		},
		Entry("empty control set", func(c *valueiter.Config) { c.Controls = []float64{} }),
		Entry("negative dt", func(c *valueiter.Config) { c.Dt = -0.01 }),
		Entry("undiscounted", func(c *valueiter.Config) { c.Gamma = 1 }),
	)

	It("requires dynamics", func() {
		var sys dynamo.StateTransition
		_, err := valueiter.New(cfg, g, sys, cost.NewMinimumTime(g))
		Expect(err).To(HaveOccurred())
	})
})
