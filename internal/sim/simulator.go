package sim

import (
	"context"
	"fmt"
	"math"
)

// Config drives one closed-loop run.
type Config struct {
	Dt       float64 // integration step (s)
	Duration float64 // horizon (s)

	// ConvergenceTol is the trailing |sigma| level below which the run is
	// considered settled. Zero disables early stopping.
	ConvergenceTol float64
	// GracePeriod suppresses the settle test for the first part of the run
	// so a lucky initial transient cannot end it.
	GracePeriod float64
	// ConvWindow is the trailing window length (s) the settle test inspects.
	ConvWindow float64
	// StateCeiling is the component magnitude treated as divergence.
	StateCeiling float64
}

// DefaultConfig is the standard tuning horizon: 5 s at 10 ms steps with the
// settle test armed after a 1 s grace period.
func DefaultConfig() Config {
	return Config{
		Dt:             0.01,
		Duration:       5,
		ConvergenceTol: 0.05,
		GracePeriod:    1,
		ConvWindow:     0.5,
		StateCeiling:   1e3,
	}
}

func (c Config) Validate() error {
	if c.Dt <= 0 {
		return fmt.Errorf("dt must be positive, got %g", c.Dt)
	}
	if c.Duration < c.Dt {
		return fmt.Errorf("duration %g shorter than dt %g", c.Duration, c.Dt)
	}
	if c.StateCeiling <= 0 {
		return fmt.Errorf("state ceiling must be positive, got %g", c.StateCeiling)
	}
	if c.ConvergenceTol < 0 {
		return fmt.Errorf("convergence tolerance must be non-negative, got %g", c.ConvergenceTol)
	}
	return nil
}

// Simulator drives one controller against one plant in a fixed-step loop.
type Simulator struct {
	dyn        Dynamics
	integrator Integrator
	controller Controller
}

func New(dyn Dynamics, integrator Integrator, controller Controller) *Simulator {
	return &Simulator{
		dyn:        dyn,
		integrator: integrator,
		controller: controller,
	}
}

// Run executes the closed loop from x0 until the horizon, early convergence,
// divergence or context expiry, whichever comes first. The controller is
// reset before the first step. Run never fails mid-flight; everything after
// config validation is reported through the trajectory status.
func (s *Simulator) Run(ctx context.Context, x0 State, cfg Config) (*Trajectory, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	steps := int(math.Round(cfg.Duration / cfg.Dt))
	traj := &Trajectory{
		Times:    make([]float64, 0, steps),
		States:   make([]State, 0, steps),
		Controls: make([]float64, 0, steps),
		Surfaces: make([]float64, 0, steps),
		Status:   StatusCompleted,
		Dt:       cfg.Dt,
		Duration: cfg.Duration,
	}

	s.controller.Reset()

	winLen := int(math.Round(cfg.ConvWindow / cfg.Dt))
	if winLen < 1 {
		winLen = 1
	}
	window := make([]float64, winLen)
	seen := 0

	x := x0.Clone()
	t := 0.0

	for i := 0; i < steps; i++ {
		select {
		case <-ctx.Done():
			traj.Status = StatusTimedOut
			return traj, nil
		default:
		}

		if cfg.ConvergenceTol > 0 && t >= cfg.GracePeriod && seen >= winLen &&
			windowMax(window) < cfg.ConvergenceTol {
			traj.Status = StatusConverged
			return traj, nil
		}

		u, diag := s.controller.Step(x, t, cfg.Dt)

		traj.Times = append(traj.Times, t)
		traj.States = append(traj.States, x.Clone())
		traj.Controls = append(traj.Controls, u)
		traj.Surfaces = append(traj.Surfaces, diag.Surface)

		window[i%winLen] = math.Abs(diag.Surface)
		seen++

		next := s.integrator.Step(s.dyn, x, u, cfg.Dt)
		if !next.IsValid() || next.MaxAbs() > cfg.StateCeiling || !s.dyn.ValidateState(next) {
			traj.Status = StatusUnstable
			traj.FailTime = t
			return traj, nil
		}

		x = next
		t += cfg.Dt
	}

	return traj, nil
}

func windowMax(w []float64) float64 {
	m := 0.0
	for _, v := range w {
		if v > m {
			m = v
		}
	}
	return m
}
