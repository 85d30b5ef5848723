package smc

import (
	"fmt"

	"github.com/mwielgat/swingtune/internal/sim"
)

// evaluator is the pure per-variant law: current plant state and internal
// record in, unsaturated control, successor record and diagnostics out.
// Identical inputs must produce bit-identical outputs.
type evaluator func(g []float64, p Params, x sim.State, st lawState, dt float64) (float64, lawState, sim.Diagnostics)

// Controller is a ready-to-run instance: validated gains, parameters, the
// law resolved at construction, and the internal record it evolves. It
// implements sim.Controller.
type Controller struct {
	typ    Type
	gains  []float64
	params Params
	eval   evaluator
	st     lawState
	init   lawState
}

// New validates gains and parameters and wires the variant's law. Fails
// with ErrUnknownController, *GainViolation or ErrInvalidConfig.
func New(t Type, gains []float64, params Params) (*Controller, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if err := Validate(t, gains); err != nil {
		return nil, err
	}

	var eval evaluator
	switch t {
	case Classical:
		eval = classicalStep
	case SuperTwisting:
		eval = superTwistingStep
	case Adaptive:
		eval = adaptiveStep
	case HybridAdaptiveSTA:
		eval = hybridStep
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownController, int(t))
	}

	st := initialState(t, params)
	return &Controller{
		typ:    t,
		gains:  append([]float64(nil), gains...),
		params: params,
		eval:   eval,
		st:     st,
		init:   st,
	}, nil
}

// NewDefault builds the variant with its registry default gains.
func NewDefault(t Type, params Params) (*Controller, error) {
	spec, err := Get(t)
	if err != nil {
		return nil, err
	}
	return New(t, spec.Defaults, params)
}

func initialState(t Type, p Params) lawState {
	var st lawState
	switch t {
	case Adaptive, HybridAdaptiveSTA:
		st.KHat = p.Adaptation.KInit
	}
	return st
}

func (c *Controller) Type() Type { return c.typ }

func (c *Controller) Gains() []float64 {
	return append([]float64(nil), c.gains...)
}

func (c *Controller) Params() Params { return c.params }

// Mode reports the hybrid controller's active sub-law; other variants
// always report adaptive-mode zero value.
func (c *Controller) Mode() Mode { return c.st.Mode }

// AdaptiveGain reports the current online gain estimate.
func (c *Controller) AdaptiveGain() float64 { return c.st.KHat }

// Step advances the law one tick and returns the saturated control force.
// A non-positive dt falls back to the configured control timestep.
func (c *Controller) Step(x sim.State, t, dt float64) (float64, sim.Diagnostics) {
	if dt <= 0 {
		dt = c.params.Dt
	}
	u, next, diag := c.eval(c.gains, c.params, x, c.st, dt)
	c.st = next
	return saturate(u, c.params.MaxForce), diag
}

// Reset restores the internal record to its construction-time values.
func (c *Controller) Reset() { c.st = c.init }
