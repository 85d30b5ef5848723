// Package cost reduces closed-loop trajectories to the scalar fitness the
// swarm ranks candidates by. Lower is better.
package cost

import "github.com/mwielgat/swingtune/internal/sim"

// Weights scales the four integral-squared terms.
type Weights struct {
	StateError    float64 `yaml:"state_error"`
	ControlEffort float64 `yaml:"control_effort"`
	ControlRate   float64 `yaml:"control_rate"`
	SurfaceEnergy float64 `yaml:"surface_energy"`
}

func DefaultWeights() Weights {
	return Weights{
		StateError:    50,
		ControlEffort: 0.2,
		ControlRate:   0.1,
		SurfaceEnergy: 0.1,
	}
}

// DefaultPenalty is the instability penalty scale. Graded penalties land in
// [penalty, 2*penalty], far above any well-behaved run under the default
// weights.
const DefaultPenalty = 1e6

// Breakdown itemizes one evaluation.
type Breakdown struct {
	StateError    float64
	ControlEffort float64
	ControlRate   float64
	SurfaceEnergy float64
	Penalty       float64
	Total         float64
}

// Evaluator turns trajectories into costs. Safe for concurrent use; it
// holds only immutable weighting.
type Evaluator struct {
	weights Weights
	penalty float64
}

func NewEvaluator(w Weights, penalty float64) *Evaluator {
	if penalty <= 0 {
		penalty = DefaultPenalty
	}
	return &Evaluator{weights: w, penalty: penalty}
}

func (e *Evaluator) Weights() Weights { return e.weights }
func (e *Evaluator) Penalty() float64 { return e.penalty }

// Evaluate scores one trajectory:
//
//   - completed/converged: weighted ISE of angle error, control effort,
//     control rate and surface energy over the recorded samples
//   - unstable: the same partial sums plus penalty*(2 - tFail/T), so an
//     earlier blow-up always costs more
//   - invalid/timed out: 2*penalty, the earliest-possible-divergence worst
//     case
func (e *Evaluator) Evaluate(tr *sim.Trajectory) float64 {
	return e.Explain(tr).Total
}

// Explain is Evaluate with the per-term breakdown retained.
func (e *Evaluator) Explain(tr *sim.Trajectory) Breakdown {
	var b Breakdown

	switch tr.Status {
	case sim.StatusInvalid, sim.StatusTimedOut:
		b.Penalty = 2 * e.penalty
		b.Total = b.Penalty
		return b
	case sim.StatusUnstable:
		frac := 0.0
		if tr.Duration > 0 {
			frac = tr.FailTime / tr.Duration
		}
		b.Penalty = e.penalty * (2 - frac)
	}

	dt := tr.Dt
	for i := 0; i < tr.Steps(); i++ {
		x := tr.States[i]
		u := tr.Controls[i]
		s := tr.Surfaces[i]

		b.StateError += (x[1]*x[1] + x[2]*x[2]) * dt
		b.ControlEffort += u * u * dt
		if i > 0 {
			rate := (u - tr.Controls[i-1]) / dt
			b.ControlRate += rate * rate * dt
		}
		b.SurfaceEnergy += s * s * dt
	}

	b.StateError *= e.weights.StateError
	b.ControlEffort *= e.weights.ControlEffort
	b.ControlRate *= e.weights.ControlRate
	b.SurfaceEnergy *= e.weights.SurfaceEnergy

	b.Total = b.StateError + b.ControlEffort + b.ControlRate + b.SurfaceEnergy + b.Penalty
	return b
}
