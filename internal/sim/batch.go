package sim

import (
	"context"
	"runtime"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// BatchConfig extends the per-run Config with the knobs of a candidate sweep.
type BatchConfig struct {
	Config

	// Timeout bounds the wall-clock time of a single candidate run.
	// Zero means no per-run limit.
	Timeout time.Duration
	// Workers caps concurrent simulations. Zero means GOMAXPROCS.
	Workers int
}

// Batch fans candidate gain vectors out over a worker pool and simulates
// each against the same plant and initial state. A candidate whose
// controller cannot be built gets the invalid sentinel; a diverging or
// timed-out candidate never aborts the sweep.
type Batch struct {
	dyn      Dynamics
	x0       State
	newCtrl  func(gains []float64) (Controller, error)
	newInteg func() Integrator
	log      *zap.Logger
}

// NewBatch wires a sweep. newCtrl builds the closed-loop controller for one
// candidate and may reject it; newInteg builds a fresh integrator per
// candidate because integrators keep scratch state.
func NewBatch(dyn Dynamics, x0 State, newCtrl func([]float64) (Controller, error), newInteg func() Integrator, log *zap.Logger) *Batch {
	if log == nil {
		log = zap.NewNop()
	}
	return &Batch{
		dyn:      dyn,
		x0:       x0.Clone(),
		newCtrl:  newCtrl,
		newInteg: newInteg,
		log:      log.With(zap.String("component", "batch")),
	}
}

// Run simulates every candidate and returns trajectories in candidate order.
// The only error paths are an invalid config and cancellation of the parent
// context.
func (b *Batch) Run(ctx context.Context, candidates [][]float64, cfg BatchConfig) ([]*Trajectory, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	out := make([]*Trajectory, len(candidates))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, gains := range candidates {
		g.Go(func() error {
			ctrl, err := b.newCtrl(gains)
			if err != nil {
				b.log.Debug("candidate rejected", zap.Int("candidate", i), zap.Error(err))
				out[i] = InvalidTrajectory(cfg.Config)
				return nil
			}

			runCtx := gctx
			if cfg.Timeout > 0 {
				var cancel context.CancelFunc
				runCtx, cancel = context.WithTimeout(gctx, cfg.Timeout)
				defer cancel()
			}

			traj, err := New(b.dyn, b.newInteg(), ctrl).Run(runCtx, b.x0, cfg.Config)
			if err != nil {
				// cfg already passed validation, so treat any residual
				// error as a rejected candidate, not a sweep failure.
				out[i] = InvalidTrajectory(cfg.Config)
				return nil
			}
			out[i] = traj
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return out, err
	}

	b.logStatuses(out)
	return out, nil
}

func (b *Batch) logStatuses(trajs []*Trajectory) {
	counts := make(map[Status]int)
	for _, tr := range trajs {
		counts[tr.Status]++
	}
	b.log.Debug("batch finished",
		zap.Int("candidates", len(trajs)),
		zap.Int("completed", counts[StatusCompleted]),
		zap.Int("converged", counts[StatusConverged]),
		zap.Int("unstable", counts[StatusUnstable]),
		zap.Int("timed_out", counts[StatusTimedOut]),
		zap.Int("invalid", counts[StatusInvalid]),
	)
}
