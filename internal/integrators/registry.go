package integrators

import (
	"fmt"

	"github.com/mwielgat/swingtune/internal/sim"
)

// New builds an integrator by name. The empty name selects rk4.
func New(name string) (sim.Integrator, error) {
	switch name {
	case "euler":
		return NewEuler(), nil
	case "rk4", "":
		return NewRK4(), nil
	default:
		return nil, fmt.Errorf("unknown integrator %q", name)
	}
}

func Names() []string {
	return []string{"euler", "rk4"}
}
