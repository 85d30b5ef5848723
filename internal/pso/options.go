package pso

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"
)

// Objective scores a batch of candidate positions. Implementations may
// parallelize internally but must return costs in position order.
type Objective interface {
	EvaluateBatch(ctx context.Context, positions [][]float64) ([]float64, error)
}

// ObjectiveFunc adapts a plain function to the Objective interface.
type ObjectiveFunc func(ctx context.Context, positions [][]float64) ([]float64, error)

func (f ObjectiveFunc) EvaluateBatch(ctx context.Context, positions [][]float64) ([]float64, error) {
	return f(ctx, positions)
}

// StopReason says why an optimization run ended.
type StopReason int

const (
	// ReasonConverged: swarm diversity collapsed below the floor.
	ReasonConverged StopReason = iota
	// ReasonMaxIterations: the iteration budget ran out.
	ReasonMaxIterations
	// ReasonStagnated: best cost stopped improving for Patience iterations.
	ReasonStagnated
	// ReasonCancelled: the context was cancelled between iterations.
	ReasonCancelled
)

func (r StopReason) String() string {
	switch r {
	case ReasonConverged:
		return "converged"
	case ReasonMaxIterations:
		return "max_iterations"
	case ReasonStagnated:
		return "stagnated"
	case ReasonCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// IterationStats is handed to the OnIteration hook after each iteration.
type IterationStats struct {
	Iteration  int
	BestCost   float64
	MeanCost   float64
	Diversity  float64
	Improved   bool
	Stagnation int
}

// Result is the outcome of one optimization run.
type Result struct {
	BestPosition []float64
	BestCost     float64
	History      []float64 // best cost after each iteration
	Diversity    []float64 // normalized positional spread per iteration
	Iterations   int
	Reason       StopReason
	// FoundFeasible is false when the swarm never produced a candidate
	// scoring below FeasibleCost, i.e. no stable solution was found.
	FoundFeasible bool
}

// Options configures one run. Start from DefaultOptions and override.
type Options struct {
	Particles     int
	MaxIterations int

	// Velocity update coefficients: inertia, cognitive and social weight.
	W  float64
	C1 float64
	C2 float64

	// Seed fixes the random stream; identical seeds reproduce identical
	// runs bit for bit. Zero draws a seed from the clock.
	Seed int64

	Lower []float64
	Upper []float64

	// VelClampFrac caps per-dimension velocity magnitude at this fraction
	// of the dimension's range.
	VelClampFrac float64

	Patience      int
	StagnationTol float64
	// DiversityFloor terminates the run when the swarm's normalized
	// positional spread drops below it. Zero disables the check.
	DiversityFloor float64

	// FeasibleCost marks the run as having found a usable solution when
	// the best cost drops strictly below it. Zero means any cost counts.
	FeasibleCost float64

	// Violation scores a candidate for constraint-aware seeding: zero is
	// feasible, larger is worse. Nil accepts every in-bounds sample.
	Violation func(pos []float64) float64
	// SeedTries caps sampling attempts before falling back to the
	// least-violating rejects. Zero means 20 per particle.
	SeedTries int

	Logger      *zap.Logger
	OnIteration func(IterationStats)
}

// DefaultOptions returns the standard constricted-swarm settings over the
// given search box.
func DefaultOptions(lower, upper []float64) Options {
	return Options{
		Particles:      30,
		MaxIterations:  100,
		W:              0.7298,
		C1:             1.49618,
		C2:             1.49618,
		Lower:          append([]float64(nil), lower...),
		Upper:          append([]float64(nil), upper...),
		VelClampFrac:   0.3,
		Patience:       15,
		StagnationTol:  1e-6,
		DiversityFloor: 1e-6,
	}
}

func (o Options) validate() error {
	if o.Particles < 1 {
		return fmt.Errorf("pso: particles must be positive, got %d", o.Particles)
	}
	if o.MaxIterations < 1 {
		return fmt.Errorf("pso: max iterations must be positive, got %d", o.MaxIterations)
	}
	if len(o.Lower) == 0 || len(o.Lower) != len(o.Upper) {
		return fmt.Errorf("pso: bounds mismatch: %d lower vs %d upper", len(o.Lower), len(o.Upper))
	}
	for i := range o.Lower {
		if o.Lower[i] > o.Upper[i] {
			return fmt.Errorf("pso: lower bound %g above upper %g at dim %d", o.Lower[i], o.Upper[i], i)
		}
		if math.IsNaN(o.Lower[i]) || math.IsNaN(o.Upper[i]) ||
			math.IsInf(o.Lower[i], 0) || math.IsInf(o.Upper[i], 0) {
			return fmt.Errorf("pso: non-finite bound at dim %d", i)
		}
	}
	if o.W < 0 || o.C1 < 0 || o.C2 < 0 {
		return fmt.Errorf("pso: negative velocity coefficient")
	}
	if o.VelClampFrac <= 0 {
		return fmt.Errorf("pso: velocity clamp fraction must be positive, got %g", o.VelClampFrac)
	}
	if o.Patience < 1 {
		return fmt.Errorf("pso: patience must be positive, got %d", o.Patience)
	}
	if o.StagnationTol < 0 || o.DiversityFloor < 0 {
		return fmt.Errorf("pso: negative termination tolerance")
	}
	return nil
}
