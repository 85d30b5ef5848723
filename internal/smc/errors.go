package smc

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnknownController indicates a controller type outside the
	// registered set. Always a programming or input error.
	ErrUnknownController = errors.New("smc: unknown controller type")

	// ErrInvalidConfig indicates controller parameters that cannot
	// produce a usable instance (non-positive max force, timestep, ...).
	ErrInvalidConfig = errors.New("smc: invalid controller config")
)

// GainViolation reports why a candidate gain vector was rejected. The swarm
// treats it as a cheap pre-simulation filter; the CLI surfaces the reasons
// verbatim.
type GainViolation struct {
	Controller Type
	Reasons    []string
}

func (e *GainViolation) Error() string {
	return fmt.Sprintf("smc: invalid gains for %s: %s", e.Controller, strings.Join(e.Reasons, "; "))
}
