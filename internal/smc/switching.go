package smc

import (
	"math"

	"github.com/mwielgat/swingtune/internal/sim"
)

// switchFn evaluates the bounded switching function at s with boundary
// layer eps. Tanh and linear saturation approximate sign inside the layer
// to limit chattering.
func switchFn(kind Switching, s, eps float64) float64 {
	switch kind {
	case SwitchSign:
		return signOf(s)
	case SwitchLinear:
		v := s / eps
		if v > 1 {
			return 1
		}
		if v < -1 {
			return -1
		}
		return v
	default:
		return math.Tanh(s / eps)
	}
}

func signOf(s float64) float64 {
	if s > 0 {
		return 1
	}
	if s < 0 {
		return -1
	}
	return 0
}

func saturate(u, limit float64) float64 {
	if u > limit {
		return limit
	}
	if u < -limit {
		return -limit
	}
	return u
}

func clampTo(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// slidingSurface is s = c1*(w1 + l1*th1) + c2*(w2 + l2*th2) over the state
// [x, th1, th2, xdot, w1, w2]. The zero set is the manifold the controllers
// drive the angle errors onto.
func slidingSurface(x sim.State, c1, l1, c2, l2 float64) float64 {
	return c1*(x[4]+l1*x[1]) + c2*(x[5]+l2*x[2])
}
