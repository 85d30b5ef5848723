package pso_test

import (
	"context"
	"errors"
	"math"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/mwielgat/swingtune/internal/pso"
)

// sphere returns an objective with its minimum at center.
func sphere(center []float64) pso.ObjectiveFunc {
	return func(_ context.Context, positions [][]float64) ([]float64, error) {
		costs := make([]float64, len(positions))
		for i, pos := range positions {
			sum := 0.0
			for j, x := range pos {
				d := x - center[j]
				sum += d * d
			}
			costs[i] = sum
		}
		return costs, nil
	}
}

func constant(cost float64) pso.ObjectiveFunc {
	return func(_ context.Context, positions [][]float64) ([]float64, error) {
		costs := make([]float64, len(positions))
		for i := range costs {
			costs[i] = cost
		}
		return costs, nil
	}
}

// recorder wraps an objective and keeps a deep copy of the first batch it
// sees, which is exactly the seeded swarm.
type recorder struct {
	mu    sync.Mutex
	inner pso.Objective
	first [][]float64
}

func (r *recorder) EvaluateBatch(ctx context.Context, positions [][]float64) ([]float64, error) {
	r.mu.Lock()
	if r.first == nil {
		r.first = make([][]float64, len(positions))
		for i, pos := range positions {
			r.first[i] = append([]float64(nil), pos...)
		}
	}
	r.mu.Unlock()
	return r.inner.EvaluateBatch(ctx, positions)
}

var _ = Describe("DefaultOptions", func() {
	It("uses the standard constricted-swarm settings", func() {
		opts := pso.DefaultOptions([]float64{0, 0}, []float64{1, 1})
		Expect(opts.Particles).To(Equal(30))
		Expect(opts.MaxIterations).To(Equal(100))
		Expect(opts.W).To(Equal(0.7298))
		Expect(opts.C1).To(Equal(1.49618))
		Expect(opts.C2).To(Equal(1.49618))
		Expect(opts.VelClampFrac).To(Equal(0.3))
		Expect(opts.Patience).To(Equal(15))
		Expect(opts.StagnationTol).To(Equal(1e-6))
		Expect(opts.DiversityFloor).To(Equal(1e-6))
	})

	It("copies the bounds", func() {
		lower := []float64{0, 0}
		upper := []float64{1, 1}
		opts := pso.DefaultOptions(lower, upper)
		lower[0] = -99
		upper[1] = 99
		Expect(opts.Lower).To(Equal([]float64{0, 0}))
		Expect(opts.Upper).To(Equal([]float64{1, 1}))
	})
})

var _ = Describe("New", func() {
	box := func() pso.Options {
		return pso.DefaultOptions([]float64{-1, -1}, []float64{1, 1})
	}

	It("accepts the defaults", func() {
		_, err := pso.New(box())
		Expect(err).NotTo(HaveOccurred())
	})

	DescribeTable("rejects malformed options",
		func(mutate func(*pso.Options), want string) {
			opts := box()
			mutate(&opts)
			_, err := pso.New(opts)
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring(want))
		},
		Entry("no particles", func(o *pso.Options) { o.Particles = 0 }, "particles"),
		Entry("no budget", func(o *pso.Options) { o.MaxIterations = 0 }, "max iterations"),
		Entry("bounds length mismatch", func(o *pso.Options) { o.Upper = []float64{1} }, "bounds mismatch"),
		Entry("inverted bounds", func(o *pso.Options) { o.Lower[0] = 2 }, "above upper"),
		Entry("NaN bound", func(o *pso.Options) { o.Upper[1] = math.NaN() }, "non-finite"),
		Entry("negative inertia", func(o *pso.Options) { o.W = -0.1 }, "velocity coefficient"),
		Entry("zero velocity clamp", func(o *pso.Options) { o.VelClampFrac = 0 }, "clamp fraction"),
		Entry("zero patience", func(o *pso.Options) { o.Patience = 0 }, "patience"),
	)
})

var _ = Describe("Run", func() {
	Context("on a smooth objective", func() {
		var res *pso.Result

		BeforeEach(func() {
			opts := pso.DefaultOptions(
				[]float64{-5, -5, -5},
				[]float64{5, 5, 5},
			)
			opts.Seed = 7
			opt, err := pso.New(opts)
			Expect(err).NotTo(HaveOccurred())
			res, err = opt.Run(context.Background(), sphere([]float64{1, -2, 3}))
			Expect(err).NotTo(HaveOccurred())
		})

		It("drives the best cost toward the minimum", func() {
			Expect(res.BestCost).To(BeNumerically("<", 1e-2))
			Expect(res.FoundFeasible).To(BeTrue())
			for j, x := range res.BestPosition {
				Expect(x).To(BeNumerically(">=", -5), "dim %d", j)
				Expect(x).To(BeNumerically("<=", 5), "dim %d", j)
			}
		})

		It("records a non-increasing best-cost history", func() {
			Expect(res.History).To(HaveLen(res.Iterations))
			for i := 1; i < len(res.History); i++ {
				Expect(res.History[i]).To(BeNumerically("<=", res.History[i-1]))
			}
			Expect(res.History[len(res.History)-1]).To(Equal(res.BestCost))
		})

		It("tracks diversity alongside the history", func() {
			Expect(res.Diversity).To(HaveLen(len(res.History)))
			Expect(res.Diversity[0]).To(BeNumerically(">", 0))
		})
	})

	Context("reproducibility", func() {
		run := func(seed int64) *pso.Result {
			opts := pso.DefaultOptions([]float64{-5, -5}, []float64{5, 5})
			opts.Seed = seed
			opts.MaxIterations = 40
			opt, err := pso.New(opts)
			Expect(err).NotTo(HaveOccurred())
			res, err := opt.Run(context.Background(), sphere([]float64{0.5, -0.5}))
			Expect(err).NotTo(HaveOccurred())
			return res
		}

		It("reproduces a run bit for bit from the same seed", func() {
			a := run(99)
			b := run(99)
			Expect(a.BestCost).To(Equal(b.BestCost))
			Expect(a.BestPosition).To(Equal(b.BestPosition))
			Expect(a.History).To(Equal(b.History))
			Expect(a.Iterations).To(Equal(b.Iterations))
			Expect(a.Reason).To(Equal(b.Reason))
		})

		It("explores differently under different seeds", func() {
			a := run(1)
			b := run(2)
			Expect(a.History[0]).NotTo(Equal(b.History[0]))
		})
	})

	Context("tie handling", func() {
		It("keeps the first particle on cost ties", func() {
			opts := pso.DefaultOptions([]float64{-1, -1}, []float64{1, 1})
			opts.Seed = 5
			opts.MaxIterations = 1
			opt, err := pso.New(opts)
			Expect(err).NotTo(HaveOccurred())

			rec := &recorder{inner: constant(5)}
			res, err := opt.Run(context.Background(), rec)
			Expect(err).NotTo(HaveOccurred())

			Expect(res.BestCost).To(Equal(5.0))
			Expect(res.BestPosition).To(Equal(rec.first[0]))
		})
	})

	Context("termination", func() {
		It("stops after the iteration budget", func() {
			opts := pso.DefaultOptions([]float64{-5, -5}, []float64{5, 5})
			opts.Seed = 3
			opts.MaxIterations = 5
			opts.Patience = 100
			opts.DiversityFloor = 0
			opt, err := pso.New(opts)
			Expect(err).NotTo(HaveOccurred())

			res, err := opt.Run(context.Background(), sphere([]float64{0, 0}))
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Reason).To(Equal(pso.ReasonMaxIterations))
			Expect(res.Iterations).To(Equal(5))
			Expect(res.History).To(HaveLen(5))
		})

		It("stops when improvement stalls", func() {
			opts := pso.DefaultOptions([]float64{-1, -1}, []float64{1, 1})
			opts.Seed = 3
			opts.Patience = 3
			opts.MaxIterations = 50
			opts.DiversityFloor = 0
			opt, err := pso.New(opts)
			Expect(err).NotTo(HaveOccurred())

			res, err := opt.Run(context.Background(), constant(5))
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Reason).To(Equal(pso.ReasonStagnated))
			// First iteration counts as an improvement from nothing, then
			// three flat ones trip the patience.
			Expect(res.Iterations).To(Equal(4))
		})

		It("stops once diversity falls below the floor", func() {
			opts := pso.DefaultOptions([]float64{-1, -1}, []float64{1, 1})
			opts.Seed = 3
			opts.DiversityFloor = 1e3
			opt, err := pso.New(opts)
			Expect(err).NotTo(HaveOccurred())

			res, err := opt.Run(context.Background(), constant(5))
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Reason).To(Equal(pso.ReasonConverged))
			Expect(res.Iterations).To(Equal(1))
		})

		It("reports feasibility against the threshold", func() {
			run := func(feasible float64) *pso.Result {
				opts := pso.DefaultOptions([]float64{-1, -1}, []float64{1, 1})
				opts.Seed = 3
				opts.MaxIterations = 2
				opts.Patience = 100
				opts.DiversityFloor = 0
				opts.FeasibleCost = feasible
				opt, err := pso.New(opts)
				Expect(err).NotTo(HaveOccurred())
				res, err := opt.Run(context.Background(), constant(5))
				Expect(err).NotTo(HaveOccurred())
				return res
			}

			Expect(run(10).FoundFeasible).To(BeTrue())
			Expect(run(5).FoundFeasible).To(BeFalse(), "threshold is strict")
			Expect(run(0).FoundFeasible).To(BeTrue(), "zero accepts any finite cost")
		})
	})

	Context("cancellation", func() {
		It("returns the best so far when cancelled between iterations", func() {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			calls := 0
			obj := pso.ObjectiveFunc(func(_ context.Context, positions [][]float64) ([]float64, error) {
				calls++
				if calls == 3 {
					cancel()
				}
				return constant(5)(ctx, positions)
			})

			opts := pso.DefaultOptions([]float64{-1, -1}, []float64{1, 1})
			opts.Seed = 3
			opts.Patience = 100
			opts.DiversityFloor = 0
			opt, err := pso.New(opts)
			Expect(err).NotTo(HaveOccurred())

			res, err := opt.Run(ctx, obj)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Reason).To(Equal(pso.ReasonCancelled))
			Expect(res.Iterations).To(Equal(3))
			Expect(res.BestCost).To(Equal(5.0))
		})

		It("treats a context error from the objective as cancellation", func() {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			calls := 0
			obj := pso.ObjectiveFunc(func(_ context.Context, positions [][]float64) ([]float64, error) {
				calls++
				if calls == 2 {
					cancel()
					return nil, ctx.Err()
				}
				return constant(5)(ctx, positions)
			})

			opts := pso.DefaultOptions([]float64{-1, -1}, []float64{1, 1})
			opts.Seed = 3
			opts.Patience = 100
			opts.DiversityFloor = 0
			opt, err := pso.New(opts)
			Expect(err).NotTo(HaveOccurred())

			res, err := opt.Run(ctx, obj)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Reason).To(Equal(pso.ReasonCancelled))
			Expect(res.Iterations).To(Equal(1))
			Expect(res.BestCost).To(Equal(5.0))
		})

		It("handles a pre-cancelled context", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			opts := pso.DefaultOptions([]float64{-1, -1}, []float64{1, 1})
			opts.Seed = 3
			opt, err := pso.New(opts)
			Expect(err).NotTo(HaveOccurred())

			res, err := opt.Run(ctx, constant(5))
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Reason).To(Equal(pso.ReasonCancelled))
			Expect(res.Iterations).To(Equal(0))
			Expect(res.BestPosition).To(BeNil())
			Expect(math.IsInf(res.BestCost, 1)).To(BeTrue())
			Expect(res.FoundFeasible).To(BeFalse())
		})
	})

	Context("objective errors", func() {
		It("surfaces non-context errors", func() {
			obj := pso.ObjectiveFunc(func(_ context.Context, _ [][]float64) ([]float64, error) {
				return nil, errors.New("boom")
			})

			opts := pso.DefaultOptions([]float64{-1, -1}, []float64{1, 1})
			opts.Seed = 3
			opt, err := pso.New(opts)
			Expect(err).NotTo(HaveOccurred())

			res, err := opt.Run(context.Background(), obj)
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("boom"))
			Expect(res).To(BeNil())
		})

		It("rejects a short cost slice", func() {
			obj := pso.ObjectiveFunc(func(_ context.Context, _ [][]float64) ([]float64, error) {
				return []float64{1, 2}, nil
			})

			opts := pso.DefaultOptions([]float64{-1, -1}, []float64{1, 1})
			opts.Seed = 3
			opts.Particles = 5
			opt, err := pso.New(opts)
			Expect(err).NotTo(HaveOccurred())

			_, err = opt.Run(context.Background(), obj)
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("returned 2 costs"))
		})
	})

	Context("bounds", func() {
		It("keeps every evaluated position inside the box", func() {
			lower := []float64{-2, 0}
			upper := []float64{2, 3}
			escaped := 0
			// Rewarding large coordinates pushes particles at the walls.
			obj := pso.ObjectiveFunc(func(_ context.Context, positions [][]float64) ([]float64, error) {
				costs := make([]float64, len(positions))
				for i, pos := range positions {
					for j, x := range pos {
						if x < lower[j] || x > upper[j] {
							escaped++
						}
						costs[i] -= math.Abs(x)
					}
				}
				return costs, nil
			})

			opts := pso.DefaultOptions(lower, upper)
			opts.Seed = 11
			opts.MaxIterations = 30
			opts.Patience = 100
			opts.DiversityFloor = 0
			opt, err := pso.New(opts)
			Expect(err).NotTo(HaveOccurred())

			_, err = opt.Run(context.Background(), obj)
			Expect(err).NotTo(HaveOccurred())
			Expect(escaped).To(BeZero())
		})
	})

	Context("constraint-aware seeding", func() {
		It("seeds only feasible particles when feasible samples exist", func() {
			opts := pso.DefaultOptions([]float64{0, 0}, []float64{10, 10})
			opts.Seed = 21
			opts.MaxIterations = 1
			opts.Violation = func(pos []float64) float64 {
				// Upper half of the first dimension is infeasible.
				if pos[0] > 5 {
					return pos[0] - 5
				}
				return 0
			}
			opt, err := pso.New(opts)
			Expect(err).NotTo(HaveOccurred())

			rec := &recorder{inner: constant(1)}
			_, err = opt.Run(context.Background(), rec)
			Expect(err).NotTo(HaveOccurred())

			Expect(rec.first).To(HaveLen(opts.Particles))
			for i, pos := range rec.first {
				Expect(pos[0]).To(BeNumerically("<=", 5), "particle %d", i)
			}
		})

		It("falls back to the least-violating rejects in violation order", func() {
			opts := pso.DefaultOptions([]float64{1, 1}, []float64{10, 10})
			opts.Seed = 21
			opts.Particles = 5
			opts.MaxIterations = 1
			// Nothing is feasible; badness grows with the first coordinate.
			opts.Violation = func(pos []float64) float64 { return pos[0] }
			opt, err := pso.New(opts)
			Expect(err).NotTo(HaveOccurred())

			rec := &recorder{inner: constant(1)}
			_, err = opt.Run(context.Background(), rec)
			Expect(err).NotTo(HaveOccurred())

			Expect(rec.first).To(HaveLen(5))
			for i := 1; i < len(rec.first); i++ {
				Expect(rec.first[i][0]).To(BeNumerically(">=", rec.first[i-1][0]))
			}
		})

		It("honors the sampling cap", func() {
			opts := pso.DefaultOptions([]float64{1, 1}, []float64{10, 10})
			opts.Seed = 21
			opts.Particles = 5
			opts.MaxIterations = 1
			opts.SeedTries = 7
			calls := 0
			opts.Violation = func(pos []float64) float64 {
				calls++
				return pos[0]
			}
			opt, err := pso.New(opts)
			Expect(err).NotTo(HaveOccurred())

			rec := &recorder{inner: constant(1)}
			_, err = opt.Run(context.Background(), rec)
			Expect(err).NotTo(HaveOccurred())

			Expect(calls).To(Equal(7))
			Expect(rec.first).To(HaveLen(5))
		})
	})

	Context("iteration hook", func() {
		It("reports stats for every iteration in order", func() {
			var seen []pso.IterationStats
			opts := pso.DefaultOptions([]float64{-1, -1}, []float64{1, 1})
			opts.Seed = 3
			opts.MaxIterations = 4
			opts.Patience = 100
			opts.DiversityFloor = 0
			opts.OnIteration = func(st pso.IterationStats) { seen = append(seen, st) }
			opt, err := pso.New(opts)
			Expect(err).NotTo(HaveOccurred())

			res, err := opt.Run(context.Background(), sphere([]float64{0, 0}))
			Expect(err).NotTo(HaveOccurred())

			Expect(seen).To(HaveLen(4))
			for i, st := range seen {
				Expect(st.Iteration).To(Equal(i))
				Expect(st.BestCost).To(Equal(res.History[i]))
			}
			Expect(seen[0].Improved).To(BeTrue())
		})
	})
})
