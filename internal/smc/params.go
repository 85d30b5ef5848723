package smc

import (
	"fmt"

	"github.com/mwielgat/swingtune/internal/sim"
)

// Feedforward supplies the model-based equivalent-control term. A nil hook
// means no model term is configured and the laws use zero.
type Feedforward func(x sim.State) float64

// Switching selects the bounded approximation of sign(s) used by the robust
// term.
type Switching string

const (
	SwitchTanh   Switching = "tanh"
	SwitchSign   Switching = "sign"
	SwitchLinear Switching = "linear"
)

// HybridPolicy selects the criterion the hybrid controller uses to hand
// over between its adaptive and super-twisting sub-laws.
type HybridPolicy string

const (
	// HybridBySurface runs super-twisting inside a surface-magnitude
	// threshold and the adaptive law outside it.
	HybridBySurface HybridPolicy = "surface"
	// HybridByTime starts adaptive and hands over permanently once the
	// threshold (seconds) has elapsed.
	HybridByTime HybridPolicy = "time"
	// HybridByError hands over when the summed angle error drops below
	// the threshold (radians).
	HybridByError HybridPolicy = "error"
)

// Adaptation bounds the online switching-gain estimate shared by the
// adaptive and hybrid variants.
type Adaptation struct {
	KInit float64 `yaml:"k_init"`
	KMin  float64 `yaml:"k_min"`
	KMax  float64 `yaml:"k_max"`
	Leak  float64 `yaml:"leak"`
	// Rate is the adaptation rate used by the hybrid variant, whose gain
	// vector carries no gamma of its own.
	Rate float64 `yaml:"rate"`
}

// Params carries everything a controller instance needs besides its gains.
type Params struct {
	MaxForce      float64   `yaml:"max_force"`
	Dt            float64   `yaml:"dt"`
	BoundaryLayer float64   `yaml:"boundary_layer"`
	DeadZone      float64   `yaml:"dead_zone"`
	Switching     Switching `yaml:"switching"`

	Adaptation Adaptation `yaml:"adaptation"`

	HybridPolicy    HybridPolicy `yaml:"hybrid_policy"`
	HybridThreshold float64      `yaml:"hybrid_threshold"`

	Feedforward Feedforward `yaml:"-"`
}

func DefaultParams() Params {
	return Params{
		MaxForce:      150,
		Dt:            0.01,
		BoundaryLayer: 0.02,
		DeadZone:      0.05,
		Switching:     SwitchTanh,
		Adaptation: Adaptation{
			KInit: 10,
			KMin:  0.1,
			KMax:  100,
			Leak:  0.01,
			Rate:  1,
		},
		HybridPolicy:    HybridBySurface,
		HybridThreshold: 1.0,
	}
}

func (p Params) Validate() error {
	if p.MaxForce <= 0 {
		return fmt.Errorf("%w: max_force must be positive, got %g", ErrInvalidConfig, p.MaxForce)
	}
	if p.Dt <= 0 {
		return fmt.Errorf("%w: dt must be positive, got %g", ErrInvalidConfig, p.Dt)
	}
	if p.BoundaryLayer <= 0 {
		return fmt.Errorf("%w: boundary_layer must be positive, got %g", ErrInvalidConfig, p.BoundaryLayer)
	}
	if p.DeadZone < 0 {
		return fmt.Errorf("%w: dead_zone must be non-negative, got %g", ErrInvalidConfig, p.DeadZone)
	}
	switch p.Switching {
	case SwitchTanh, SwitchSign, SwitchLinear:
	default:
		return fmt.Errorf("%w: unknown switching function %q", ErrInvalidConfig, p.Switching)
	}
	a := p.Adaptation
	if a.KMin <= 0 || a.KMax < a.KMin {
		return fmt.Errorf("%w: adaptation bounds must satisfy 0 < k_min <= k_max, got [%g, %g]",
			ErrInvalidConfig, a.KMin, a.KMax)
	}
	if a.KInit < a.KMin || a.KInit > a.KMax {
		return fmt.Errorf("%w: adaptation k_init %g outside [%g, %g]",
			ErrInvalidConfig, a.KInit, a.KMin, a.KMax)
	}
	if a.Leak < 0 {
		return fmt.Errorf("%w: adaptation leak must be non-negative, got %g", ErrInvalidConfig, a.Leak)
	}
	if a.Rate <= 0 {
		return fmt.Errorf("%w: adaptation rate must be positive, got %g", ErrInvalidConfig, a.Rate)
	}
	switch p.HybridPolicy {
	case HybridBySurface, HybridByTime, HybridByError:
	default:
		return fmt.Errorf("%w: unknown hybrid policy %q", ErrInvalidConfig, p.HybridPolicy)
	}
	if p.HybridThreshold <= 0 {
		return fmt.Errorf("%w: hybrid_threshold must be positive, got %g", ErrInvalidConfig, p.HybridThreshold)
	}
	return nil
}
