package smc

import "fmt"

// Type identifies a sliding-mode controller variant. The set is closed;
// variants are resolved to a concrete law once at construction.
type Type int

const (
	Classical Type = iota
	SuperTwisting
	Adaptive
	HybridAdaptiveSTA
)

func (t Type) String() string {
	switch t {
	case Classical:
		return "classical"
	case SuperTwisting:
		return "super_twisting"
	case Adaptive:
		return "adaptive"
	case HybridAdaptiveSTA:
		return "hybrid_adaptive_sta"
	default:
		return fmt.Sprintf("Type(%d)", int(t))
	}
}

// Parse maps a config/CLI name to a controller type.
func Parse(name string) (Type, error) {
	switch name {
	case "classical", "smc":
		return Classical, nil
	case "super_twisting", "sta":
		return SuperTwisting, nil
	case "adaptive":
		return Adaptive, nil
	case "hybrid_adaptive_sta", "hybrid":
		return HybridAdaptiveSTA, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownController, name)
	}
}

// Mode is the active sub-law of the hybrid controller.
type Mode int

const (
	ModeAdaptive Mode = iota
	ModeSuperTwisting
)

func (m Mode) String() string {
	if m == ModeSuperTwisting {
		return "super_twisting"
	}
	return "adaptive"
}

// lawState is the unified internal record a controller instance carries
// between steps. Each variant uses the fields it needs and ignores the rest.
type lawState struct {
	Z       float64 // super-twisting integrator
	KHat    float64 // adaptive switching-gain estimate
	Mode    Mode    // hybrid active sub-law
	TMode   float64 // time spent in the current mode (s)
	Elapsed float64 // total time since reset (s)
}
