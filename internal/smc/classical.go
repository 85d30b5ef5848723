package smc

import "github.com/mwielgat/swingtune/internal/sim"

// classicalStep is the boundary-layer sliding-mode law
//
//	u = u_eq - K*sw(s/eps) - kd*s
//
// with gains [k1, k2, lambda1, lambda2, K, kd]. It carries no internal
// state.
func classicalStep(g []float64, p Params, x sim.State, st lawState, dt float64) (float64, lawState, sim.Diagnostics) {
	k1, k2, l1, l2, kk, kd := g[0], g[1], g[2], g[3], g[4], g[5]

	s := slidingSurface(x, k1, l1, k2, l2)
	eq := feedforwardTerm(p, x)
	sw := -kk * switchFn(p.Switching, s, p.BoundaryLayer)

	u := eq + sw - kd*s
	return u, st, sim.Diagnostics{Surface: s, Switching: sw, Equivalent: eq}
}
