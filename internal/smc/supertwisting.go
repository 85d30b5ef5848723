package smc

import (
	"math"

	"github.com/mwielgat/swingtune/internal/sim"
)

// sqrtFloor treats surfaces this close to zero as on the manifold, keeping
// the fractional-power term away from its singular gradient.
const sqrtFloor = 1e-6

// superTwistingStep is the second-order law
//
//	u = -K1*sqrt(|s|)*sgn(s) + z + u_eq
//	z' = -K2*sw(s/eps)
//
// with gains [K1, K2, k1, k2, lambda1, lambda2]. The integrator z is the
// only internal state.
func superTwistingStep(g []float64, p Params, x sim.State, st lawState, dt float64) (float64, lawState, sim.Diagnostics) {
	kk1, kk2 := g[0], g[1]
	k1, k2, l1, l2 := g[2], g[3], g[4], g[5]

	s := slidingSurface(x, k1, l1, k2, l2)
	eq := feedforwardTerm(p, x)

	root := math.Sqrt(math.Abs(s))
	if math.Abs(s) < sqrtFloor {
		root = 0
	}
	sw := -kk1 * root * signOf(s)

	next := st
	next.Z = st.Z - kk2*switchFn(p.Switching, s, p.BoundaryLayer)*dt

	u := sw + st.Z + eq
	return u, next, sim.Diagnostics{Surface: s, Switching: sw, Equivalent: eq}
}
