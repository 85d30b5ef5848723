package sim

import "math"

// State is a plant state vector. For the double inverted pendulum the layout
// is [x, theta1, theta2, xdot, omega1, omega2] with angles measured from the
// upright equilibrium.
type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (s State) Norm() float64 {
	sum := 0.0
	for _, v := range s {
		sum += v * v
	}
	return math.Sqrt(sum)
}

// MaxAbs returns the largest component magnitude.
func (s State) MaxAbs() float64 {
	m := 0.0
	for _, v := range s {
		if a := math.Abs(v); a > m {
			m = a
		}
	}
	return m
}

// Dynamics is the capability the simulator needs from a plant model. The
// model is read-only and must be safe for concurrent use across particle
// simulations.
type Dynamics interface {
	// Derivative returns dx/dt for the given state and control force.
	Derivative(x State, u float64) State
	// Energy returns the total mechanical energy of the state.
	Energy(x State) float64
	// ValidateState reports whether the state is physically plausible.
	ValidateState(x State) bool
	StateDim() int
	ControlDim() int
}

// Integrator advances a state by one timestep. Implementations may keep
// scratch buffers and are therefore not safe for concurrent use; the batch
// runner constructs one per particle.
type Integrator interface {
	Step(dyn Dynamics, x State, u float64, dt float64) State
}

// Diagnostics is the fixed-shape record a controller reports each step.
// The caller owns accumulation; controllers never retain history themselves.
type Diagnostics struct {
	Surface    float64 // sliding-surface value sigma(x)
	Switching  float64 // robust/switching term contribution
	Equivalent float64 // model feed-forward contribution
}

// Controller closes the loop one tick at a time. Step returns the saturated
// control force and the per-step diagnostics. Reset restores the internal
// law state to its construction-time values.
type Controller interface {
	Step(x State, t, dt float64) (float64, Diagnostics)
	Reset()
}
