package smc

import (
	"math"

	"github.com/mwielgat/swingtune/internal/sim"
)

func feedforwardTerm(p Params, x sim.State) float64 {
	if p.Feedforward == nil {
		return 0
	}
	return p.Feedforward(x)
}

// ModelEquivalent builds the equivalent-control hook for a surface with
// coefficients (c1, l1, c2, l2) over the given plant. The plant's angular
// accelerations are affine in the force, so two derivative probes (u=0 and
// u=1) recover the input gain and the force that holds sdot = 0:
//
//	sdot(u) = c1*(a1(u) + l1*w1) + c2*(a2(u) + l2*w2)
//	u_eq    = -sdot(0) / (sdot(1) - sdot(0))
//
// A vanishing input gain (surface momentarily uncontrollable) yields zero
// rather than a blow-up.
func ModelEquivalent(dyn sim.Dynamics, c1, l1, c2, l2 float64) Feedforward {
	return func(x sim.State) float64 {
		d0 := dyn.Derivative(x, 0)
		d1 := dyn.Derivative(x, 1)

		base := c1*(d0[4]+l1*x[4]) + c2*(d0[5]+l2*x[5])
		gain := c1*(d1[4]-d0[4]) + c2*(d1[5]-d0[5])
		if math.Abs(gain) < 1e-9 {
			return 0
		}
		return -base / gain
	}
}
