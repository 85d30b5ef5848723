package smc

import (
	"math"

	"github.com/mwielgat/swingtune/internal/sim"
)

// adaptiveStep estimates the switching gain online:
//
//	Khat' = gamma*|s| - leak*(Khat - K_init)   while |s| > dead zone
//	u     = -Khat*sw(s/eps)
//
// with gains [k1, k2, lambda1, lambda2, gamma]. The estimate is clamped to
// [K_min, K_max]; the dead zone stops gain wind-up from noise-level surface
// chatter.
func adaptiveStep(g []float64, p Params, x sim.State, st lawState, dt float64) (float64, lawState, sim.Diagnostics) {
	k1, k2, l1, l2, gamma := g[0], g[1], g[2], g[3], g[4]

	s := slidingSurface(x, k1, l1, k2, l2)

	next := st
	if math.Abs(s) > p.DeadZone {
		next.KHat = st.KHat + (gamma*math.Abs(s)-p.Adaptation.Leak*(st.KHat-p.Adaptation.KInit))*dt
	}
	next.KHat = clampTo(next.KHat, p.Adaptation.KMin, p.Adaptation.KMax)

	sw := -next.KHat * switchFn(p.Switching, s, p.BoundaryLayer)
	return sw, next, sim.Diagnostics{Surface: s, Switching: sw}
}
