package smc

import (
	"fmt"
	"math"
)

// Validate runs the layered gain checks for one variant: length, finiteness,
// bound membership, then the variant's stability predicate. Later layers only
// run when earlier ones pass, so a wrong-length vector is never indexed.
// Returns nil or a *GainViolation listing every reason found in the failing
// layer.
func Validate(t Type, gains []float64) error {
	spec, err := Get(t)
	if err != nil {
		return err
	}

	if len(gains) != spec.GainCount {
		return &GainViolation{Controller: t, Reasons: []string{
			fmt.Sprintf("expected %d gains, got %d", spec.GainCount, len(gains)),
		}}
	}

	var reasons []string
	for i, g := range gains {
		if math.IsNaN(g) || math.IsInf(g, 0) {
			reasons = append(reasons, fmt.Sprintf("%s is not finite", spec.GainNames[i]))
		}
	}
	if len(reasons) > 0 {
		return &GainViolation{Controller: t, Reasons: reasons}
	}

	for i, g := range gains {
		if g < spec.Lower[i] || g > spec.Upper[i] {
			reasons = append(reasons, fmt.Sprintf("%s = %g outside [%g, %g]",
				spec.GainNames[i], g, spec.Lower[i], spec.Upper[i]))
		}
	}
	if len(reasons) > 0 {
		return &GainViolation{Controller: t, Reasons: reasons}
	}

	if reasons = stabilityReasons(t, spec, gains); len(reasons) > 0 {
		return &GainViolation{Controller: t, Reasons: reasons}
	}
	return nil
}

func stabilityReasons(t Type, spec Spec, g []float64) []string {
	var reasons []string
	requirePositive := func(idx int) {
		if g[idx] <= 0 {
			reasons = append(reasons, fmt.Sprintf("%s must be positive, got %g", spec.GainNames[idx], g[idx]))
		}
	}

	switch t {
	case Classical:
		for i := 0; i < 5; i++ {
			requirePositive(i)
		}
		if g[5] < 0 {
			reasons = append(reasons, fmt.Sprintf("kd must be non-negative, got %g", g[5]))
		}
	case SuperTwisting:
		for i := 0; i < 6; i++ {
			requirePositive(i)
		}
		if g[0] <= g[1] {
			reasons = append(reasons, fmt.Sprintf(
				"K1 must exceed K2 for finite-time convergence, got K1=%g K2=%g", g[0], g[1]))
		}
	case Adaptive:
		for i := 0; i < 4; i++ {
			requirePositive(i)
		}
		if g[4] <= 0 || g[4] > 20 {
			reasons = append(reasons, fmt.Sprintf("gamma must lie in (0, 20], got %g", g[4]))
		}
	case HybridAdaptiveSTA:
		for i := 0; i < 4; i++ {
			requirePositive(i)
		}
	}
	return reasons
}
