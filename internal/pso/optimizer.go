package pso

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"
)

// Optimizer drives a constricted particle swarm over a bounded search box.
// Iterations are strictly sequential; only the objective may parallelize
// inside one batch. All random draws come from a single sequential stream,
// so a fixed seed reproduces a run exactly regardless of how the objective
// schedules its work.
type Optimizer struct {
	opts Options
	log  *zap.Logger
}

func New(opts Options) (*Optimizer, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if opts.FeasibleCost == 0 {
		opts.FeasibleCost = math.Inf(1)
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Optimizer{opts: opts, log: log.With(zap.String("component", "pso"))}, nil
}

// Run executes the swarm until a terminal condition and returns the best
// candidate found. Cancellation is honored between iterations and reported
// as a normal outcome with ReasonCancelled, not as an error.
func (o *Optimizer) Run(ctx context.Context, obj Objective) (*Result, error) {
	opts := o.opts

	seedVal := opts.Seed
	if seedVal == 0 {
		seedVal = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seedVal))

	dims := len(opts.Lower)
	swarm := seed(opts, rng)

	clamp := make([]float64, dims)
	for j := range clamp {
		clamp[j] = opts.VelClampFrac * (opts.Upper[j] - opts.Lower[j])
	}

	res := &Result{BestCost: math.Inf(1)}

	o.log.Info("swarm initialized",
		zap.Int("particles", opts.Particles),
		zap.Int("dims", dims),
		zap.Int64("seed", seedVal),
	)

	positions := make([][]float64, len(swarm))
	stagnation := 0

	for iter := 0; iter < opts.MaxIterations; iter++ {
		select {
		case <-ctx.Done():
			res.Reason = ReasonCancelled
			return o.finish(res, iter), nil
		default:
		}

		for _, p := range swarm {
			clip(p.pos, opts.Lower, opts.Upper)
		}

		for i, p := range swarm {
			positions[i] = p.pos
		}
		costs, err := obj.EvaluateBatch(ctx, positions)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				res.Reason = ReasonCancelled
				return o.finish(res, iter), nil
			}
			return nil, fmt.Errorf("pso: batch evaluation: %w", err)
		}
		if len(costs) != len(swarm) {
			return nil, fmt.Errorf("pso: objective returned %d costs for %d particles", len(costs), len(swarm))
		}

		// Strict-improvement best updates; scanning in particle order
		// makes the first index win cost ties.
		prevBest := res.BestCost
		meanCost := 0.0
		for i, p := range swarm {
			c := costs[i]
			meanCost += c
			if c < p.bestCost {
				p.bestCost = c
				copy(p.best, p.pos)
			}
			if c < res.BestCost {
				res.BestCost = c
				res.BestPosition = append(res.BestPosition[:0], p.pos...)
			}
		}
		meanCost /= float64(len(swarm))

		improved := res.BestCost < prevBest
		div := o.diversity(swarm)
		res.History = append(res.History, res.BestCost)
		res.Diversity = append(res.Diversity, div)

		if relImprovement(prevBest, res.BestCost) <= opts.StagnationTol {
			stagnation++
		} else {
			stagnation = 0
		}

		if opts.OnIteration != nil {
			opts.OnIteration(IterationStats{
				Iteration:  iter,
				BestCost:   res.BestCost,
				MeanCost:   meanCost,
				Diversity:  div,
				Improved:   improved,
				Stagnation: stagnation,
			})
		}
		o.log.Debug("iteration",
			zap.Int("iter", iter),
			zap.Float64("best_cost", res.BestCost),
			zap.Float64("mean_cost", meanCost),
			zap.Float64("diversity", div),
			zap.Int("stagnation", stagnation),
		)

		if opts.DiversityFloor > 0 && div < opts.DiversityFloor {
			res.Reason = ReasonConverged
			return o.finish(res, iter+1), nil
		}
		if stagnation >= opts.Patience {
			res.Reason = ReasonStagnated
			return o.finish(res, iter+1), nil
		}
		if iter == opts.MaxIterations-1 {
			break
		}

		// Velocity and position updates. Draw order is fixed: particle
		// major, dimension minor, r1 before r2.
		gb := res.BestPosition
		for _, p := range swarm {
			for j := range p.pos {
				r1 := rng.Float64()
				r2 := rng.Float64()
				v := opts.W*p.vel[j] +
					opts.C1*r1*(p.best[j]-p.pos[j]) +
					opts.C2*r2*(gb[j]-p.pos[j])
				if v > clamp[j] {
					v = clamp[j]
				} else if v < -clamp[j] {
					v = -clamp[j]
				}
				p.vel[j] = v
				p.pos[j] += v
			}
		}
	}

	res.Reason = ReasonMaxIterations
	return o.finish(res, opts.MaxIterations), nil
}

func (o *Optimizer) finish(res *Result, iterations int) *Result {
	res.Iterations = iterations
	res.FoundFeasible = res.BestCost < o.opts.FeasibleCost
	o.log.Info("run finished",
		zap.String("reason", res.Reason.String()),
		zap.Int("iterations", res.Iterations),
		zap.Float64("best_cost", res.BestCost),
		zap.Bool("found_feasible", res.FoundFeasible),
	)
	return res
}

// diversity is the mean per-dimension standard deviation of particle
// positions, each normalized by the dimension's range.
func (o *Optimizer) diversity(swarm []*particle) float64 {
	if len(swarm) < 2 {
		return 0
	}
	dims := len(o.opts.Lower)
	vals := make([]float64, len(swarm))
	total := 0.0
	for j := 0; j < dims; j++ {
		for i, p := range swarm {
			vals[i] = p.pos[j]
		}
		sd := stat.StdDev(vals, nil)
		if span := o.opts.Upper[j] - o.opts.Lower[j]; span > 0 {
			sd /= span
		}
		total += sd
	}
	return total / float64(dims)
}

func relImprovement(prev, cur float64) float64 {
	if math.IsInf(prev, 1) {
		if math.IsInf(cur, 1) {
			return 0
		}
		return math.Inf(1)
	}
	denom := math.Abs(prev)
	if denom < 1e-12 {
		denom = 1e-12
	}
	return (prev - cur) / denom
}

func clip(pos, lower, upper []float64) {
	for j := range pos {
		if pos[j] < lower[j] {
			pos[j] = lower[j]
		} else if pos[j] > upper[j] {
			pos[j] = upper[j]
		}
	}
}
