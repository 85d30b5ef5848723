// Package tune wires the full auto-tuning session: controller registry
// bounds feed the swarm, each candidate gain vector is simulated against the
// pendulum in a worker pool, trajectories reduce to costs, and the best
// candidate is re-simulated once for the final report.
package tune

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mwielgat/swingtune/internal/cost"
	"github.com/mwielgat/swingtune/internal/integrators"
	"github.com/mwielgat/swingtune/internal/plant"
	"github.com/mwielgat/swingtune/internal/pso"
	"github.com/mwielgat/swingtune/internal/sim"
	"github.com/mwielgat/swingtune/internal/smc"
)

var ErrBadOptions = errors.New("tune: invalid options")

// Bounds overrides the registry search box for one run.
type Bounds struct {
	Lower []float64
	Upper []float64
}

// Options configures one tuning session. Zero-valued fields fall back to
// the package defaults, so Options{Controller: smc.Classical} is a complete
// session.
type Options struct {
	Controller smc.Type
	// Bounds replaces the registry search box when non-nil. Lengths must
	// match the variant's gain count.
	Bounds *Bounds

	// Swarm knobs; zero means the standard constricted-swarm value.
	Particles  int
	Iterations int
	W          float64
	C1         float64
	C2         float64
	// Seed fixes the whole session: same seed, same best cost. Zero draws
	// from the clock.
	Seed int64

	Plant      plant.Params
	Control    smc.Params
	Integrator string
	// X0 is the initial perturbation every candidate is judged on.
	X0  sim.State
	Sim sim.Config
	// Feedforward wires the model-based equivalent-control term into every
	// candidate controller.
	Feedforward bool

	// Timeout bounds one candidate simulation; Workers caps the pool.
	Timeout time.Duration
	Workers int

	Weights cost.Weights
	Penalty float64

	Logger      *zap.Logger
	OnIteration func(pso.IterationStats)
}

// DefaultOptions is a complete session for the given variant: default
// plant, shared controller parameters, 5 s horizon, model feed-forward on.
func DefaultOptions(t smc.Type) Options {
	return Options{
		Controller:  t,
		Plant:       plant.DefaultParams(),
		Control:     smc.DefaultParams(),
		Integrator:  "rk4",
		X0:          DefaultX0(),
		Sim:         sim.DefaultConfig(),
		Feedforward: true,
		Timeout:     10 * time.Second,
		Weights:     cost.DefaultWeights(),
		Penalty:     cost.DefaultPenalty,
	}
}

// DefaultX0 is the standard tuning perturbation: both links pushed off
// upright in opposite directions, cart at rest.
func DefaultX0() sim.State {
	return sim.State{0, 0.1, -0.05, 0, 0, 0}
}

// Result is the report of one session.
type Result struct {
	Controller smc.Type
	GainNames  []string
	BestGains  []float64
	BestCost   float64
	// Breakdown itemizes the best candidate's cost from the re-simulation.
	Breakdown cost.Breakdown
	History   []float64
	Diversity []float64
	Iterations int
	Reason     pso.StopReason
	// FoundStable reports whether the best candidate's re-simulation ended
	// upright (completed or settled early).
	FoundStable bool
	// BestTrajectory is the re-simulation of BestGains, nil when the run
	// was cancelled before any evaluation.
	BestTrajectory *sim.Trajectory
	Elapsed        time.Duration
}

// Run executes one tuning session. Cancellation is a normal outcome: the
// result carries the best candidate found so far with ReasonCancelled.
func Run(ctx context.Context, o Options) (*Result, error) {
	o = o.normalized()

	spec, err := smc.Get(o.Controller)
	if err != nil {
		return nil, err
	}

	lower, upper := spec.Lower, spec.Upper
	if o.Bounds != nil {
		if len(o.Bounds.Lower) != spec.GainCount || len(o.Bounds.Upper) != spec.GainCount {
			return nil, fmt.Errorf("%w: %s needs %d bounds, got %d lower / %d upper",
				ErrBadOptions, o.Controller, spec.GainCount, len(o.Bounds.Lower), len(o.Bounds.Upper))
		}
		lower, upper = o.Bounds.Lower, o.Bounds.Upper
	}

	if err := o.Control.Validate(); err != nil {
		return nil, err
	}
	if err := o.Sim.Validate(); err != nil {
		return nil, fmt.Errorf("%w: sim: %v", ErrBadOptions, err)
	}
	dyn, err := plant.New(o.Plant)
	if err != nil {
		return nil, err
	}
	if len(o.X0) != dyn.StateDim() {
		return nil, fmt.Errorf("%w: initial state needs %d components, got %d",
			ErrBadOptions, dyn.StateDim(), len(o.X0))
	}
	if _, err := integrators.New(o.Integrator); err != nil {
		return nil, err
	}

	log := o.Logger
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(zap.String("component", "tune"))

	eval := cost.NewEvaluator(o.Weights, o.Penalty)

	newCtrl := func(gains []float64) (sim.Controller, error) {
		// Swarm moves can cross a stability predicate (K1 > K2); those
		// candidates reject here and score the invalid penalty.
		if err := smc.Validate(o.Controller, gains); err != nil {
			return nil, err
		}
		par := o.Control
		if o.Feedforward {
			c1, l1, c2, l2 := surfaceGains(o.Controller, gains)
			par.Feedforward = smc.ModelEquivalent(dyn, c1, l1, c2, l2)
		}
		c, err := smc.New(o.Controller, gains, par)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
	newInteg := func() sim.Integrator {
		ig, _ := integrators.New(o.Integrator)
		return ig
	}

	batch := sim.NewBatch(dyn, o.X0, newCtrl, newInteg, o.Logger)
	bcfg := sim.BatchConfig{Config: o.Sim, Timeout: o.Timeout, Workers: o.Workers}

	obj := pso.ObjectiveFunc(func(ctx context.Context, positions [][]float64) ([]float64, error) {
		trajs, err := batch.Run(ctx, positions, bcfg)
		if err != nil {
			return nil, err
		}
		costs := make([]float64, len(trajs))
		for i, tr := range trajs {
			costs[i] = eval.Evaluate(tr)
		}
		return costs, nil
	})

	popts := pso.DefaultOptions(lower, upper)
	if o.Particles > 0 {
		popts.Particles = o.Particles
	}
	if o.Iterations > 0 {
		popts.MaxIterations = o.Iterations
	}
	if o.W > 0 {
		popts.W = o.W
	}
	if o.C1 > 0 {
		popts.C1 = o.C1
	}
	if o.C2 > 0 {
		popts.C2 = o.C2
	}
	popts.Seed = o.Seed
	// Any cost below the penalty scale means the candidate stayed upright.
	popts.FeasibleCost = eval.Penalty()
	popts.Violation = func(pos []float64) float64 { return violationScore(o.Controller, pos) }
	popts.Logger = o.Logger
	popts.OnIteration = o.OnIteration

	opt, err := pso.New(popts)
	if err != nil {
		return nil, err
	}

	log.Info("tuning started",
		zap.String("controller", o.Controller.String()),
		zap.Int("particles", popts.Particles),
		zap.Int("iterations", popts.MaxIterations),
		zap.Int64("seed", o.Seed),
	)
	start := time.Now()

	pres, err := opt.Run(ctx, obj)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Controller: o.Controller,
		GainNames:  spec.GainNames,
		BestGains:  pres.BestPosition,
		BestCost:   pres.BestCost,
		History:    pres.History,
		Diversity:  pres.Diversity,
		Iterations: pres.Iterations,
		Reason:     pres.Reason,
		Elapsed:    time.Since(start),
	}

	if len(pres.BestPosition) > 0 {
		// The report re-simulation is short and should survive a cancelled
		// session, so it does not inherit ctx.
		if ctrl, cerr := newCtrl(pres.BestPosition); cerr == nil {
			tr, rerr := sim.New(dyn, newInteg(), ctrl).Run(context.Background(), o.X0, o.Sim)
			if rerr == nil {
				res.BestTrajectory = tr
				res.Breakdown = eval.Explain(tr)
				res.FoundStable = tr.Status == sim.StatusCompleted || tr.Status == sim.StatusConverged
			}
		}
	}

	log.Info("tuning finished",
		zap.String("reason", res.Reason.String()),
		zap.Float64("best_cost", res.BestCost),
		zap.Bool("stable", res.FoundStable),
		zap.Duration("elapsed", res.Elapsed),
	)
	return res, nil
}

// Simulate builds one controller from explicit gains and runs it once on
// the session's plant and horizon. The CLI's simulate and validate commands
// ride on this.
func Simulate(ctx context.Context, o Options, gains []float64) (*sim.Trajectory, cost.Breakdown, error) {
	o = o.normalized()

	if err := smc.Validate(o.Controller, gains); err != nil {
		return nil, cost.Breakdown{}, err
	}
	if err := o.Control.Validate(); err != nil {
		return nil, cost.Breakdown{}, err
	}
	if err := o.Sim.Validate(); err != nil {
		return nil, cost.Breakdown{}, fmt.Errorf("%w: sim: %v", ErrBadOptions, err)
	}
	dyn, err := plant.New(o.Plant)
	if err != nil {
		return nil, cost.Breakdown{}, err
	}
	if len(o.X0) != dyn.StateDim() {
		return nil, cost.Breakdown{}, fmt.Errorf("%w: initial state needs %d components, got %d",
			ErrBadOptions, dyn.StateDim(), len(o.X0))
	}
	integ, err := integrators.New(o.Integrator)
	if err != nil {
		return nil, cost.Breakdown{}, err
	}

	par := o.Control
	if o.Feedforward {
		c1, l1, c2, l2 := surfaceGains(o.Controller, gains)
		par.Feedforward = smc.ModelEquivalent(dyn, c1, l1, c2, l2)
	}
	ctrl, err := smc.New(o.Controller, gains, par)
	if err != nil {
		return nil, cost.Breakdown{}, err
	}

	tr, err := sim.New(dyn, integ, ctrl).Run(ctx, o.X0, o.Sim)
	if err != nil {
		return nil, cost.Breakdown{}, err
	}
	return tr, cost.NewEvaluator(o.Weights, o.Penalty).Explain(tr), nil
}

func (o Options) normalized() Options {
	if o.Plant == (plant.Params{}) {
		o.Plant = plant.DefaultParams()
	}
	if o.Control.MaxForce == 0 && o.Control.Dt == 0 {
		o.Control = smc.DefaultParams()
	}
	if o.Integrator == "" {
		o.Integrator = "rk4"
	}
	if len(o.X0) == 0 {
		o.X0 = DefaultX0()
	}
	if o.Sim == (sim.Config{}) {
		o.Sim = sim.DefaultConfig()
	}
	if o.Weights == (cost.Weights{}) {
		o.Weights = cost.DefaultWeights()
	}
	if o.Penalty <= 0 {
		o.Penalty = cost.DefaultPenalty
	}
	return o
}

// surfaceGains extracts the sliding-surface coefficients from a variant's
// gain vector, for building the model feed-forward term.
func surfaceGains(t smc.Type, g []float64) (c1, l1, c2, l2 float64) {
	switch t {
	case smc.SuperTwisting:
		return g[2], g[4], g[3], g[5]
	case smc.HybridAdaptiveSTA:
		return g[0], g[1], g[2], g[3]
	default: // classical and adaptive share [k1, k2, lambda1, lambda2, ...]
		return g[0], g[2], g[1], g[3]
	}
}

// violationScore ranks infeasible seed candidates: zero is feasible, and
// super-twisting candidates order by how badly they miss K1 > K2.
func violationScore(t smc.Type, pos []float64) float64 {
	if smc.Validate(t, pos) == nil {
		return 0
	}
	bad := 1.0
	if t == smc.SuperTwisting && len(pos) >= 2 {
		if d := pos[1] - pos[0]; d > 0 {
			bad += d
		}
	}
	return bad
}
