package smc

import (
	"math"

	"github.com/mwielgat/swingtune/internal/sim"
)

// hybridStep switches between the adaptive law (far from the surface, where
// the gain estimate should grow with the error) and a super-twisting law
// driven by that same estimate (near the surface, where the smooth
// finite-time term takes over). Gains are [c1, lambda1, c2, lambda2]; the
// sub-law magnitudes come from the shared Khat estimate, with the twisting
// pair (Khat, Khat/2) keeping the required ordering by construction. One
// unified record carries Khat, z, the active mode and its dwell time.
func hybridStep(g []float64, p Params, x sim.State, st lawState, dt float64) (float64, lawState, sim.Diagnostics) {
	c1, l1, c2, l2 := g[0], g[1], g[2], g[3]

	s := slidingSurface(x, c1, l1, c2, l2)

	next := st
	next.Elapsed = st.Elapsed + dt

	target := st.Mode
	switch p.HybridPolicy {
	case HybridByTime:
		if next.Elapsed >= p.HybridThreshold {
			target = ModeSuperTwisting
		}
	case HybridByError:
		if math.Abs(x[1])+math.Abs(x[2]) < p.HybridThreshold {
			target = ModeSuperTwisting
		} else {
			target = ModeAdaptive
		}
	default:
		if math.Abs(s) < p.HybridThreshold {
			target = ModeSuperTwisting
		} else {
			target = ModeAdaptive
		}
	}
	if target != st.Mode {
		next.Mode = target
		next.TMode = 0
	} else {
		next.TMode = st.TMode + dt
	}

	eq := feedforwardTerm(p, x)

	var u, sw float64
	if next.Mode == ModeAdaptive {
		if math.Abs(s) > p.DeadZone {
			next.KHat = st.KHat + (p.Adaptation.Rate*math.Abs(s)-p.Adaptation.Leak*(st.KHat-p.Adaptation.KInit))*dt
		}
		next.KHat = clampTo(next.KHat, p.Adaptation.KMin, p.Adaptation.KMax)
		sw = -next.KHat * switchFn(p.Switching, s, p.BoundaryLayer)
		u = sw + eq
	} else {
		// Khat frozen while twisting; z keeps integrating.
		root := math.Sqrt(math.Abs(s))
		if math.Abs(s) < sqrtFloor {
			root = 0
		}
		sw = -st.KHat * root * signOf(s)
		next.Z = st.Z - 0.5*st.KHat*switchFn(p.Switching, s, p.BoundaryLayer)*dt
		u = sw + st.Z + eq
	}

	return u, next, sim.Diagnostics{Surface: s, Switching: sw, Equivalent: eq}
}
