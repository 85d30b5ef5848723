// Package plant implements the cart-mounted double inverted pendulum the
// controllers are tuned against. Angles are measured from the upright
// equilibrium, so the zero state is the balance point.
package plant

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/mwielgat/swingtune/internal/sim"
)

// Params holds the physical constants of the cart and both links. COM
// distances are measured from the joint to the link's center of mass;
// inertias are about the COM.
type Params struct {
	CartMass float64 `yaml:"cart_mass"`
	Mass1    float64 `yaml:"mass1"`
	Mass2    float64 `yaml:"mass2"`
	Length1  float64 `yaml:"length1"`
	Length2  float64 `yaml:"length2"`
	Com1     float64 `yaml:"com1"`
	Com2     float64 `yaml:"com2"`
	Inertia1 float64 `yaml:"inertia1"`
	Inertia2 float64 `yaml:"inertia2"`

	CartFriction   float64 `yaml:"cart_friction"`
	Joint1Friction float64 `yaml:"joint1_friction"`
	Joint2Friction float64 `yaml:"joint2_friction"`

	Gravity float64 `yaml:"gravity"`
	// TrackLimit is the admissible cart excursion. Zero disables the check.
	TrackLimit float64 `yaml:"track_limit"`
}

func DefaultParams() Params {
	return Params{
		CartMass:       1.5,
		Mass1:          0.5,
		Mass2:          0.75,
		Length1:        0.5,
		Length2:        0.75,
		Com1:           0.25,
		Com2:           0.375,
		Inertia1:       0.01,
		Inertia2:       0.035,
		CartFriction:   0.1,
		Joint1Friction: 0.01,
		Joint2Friction: 0.01,
		Gravity:        9.81,
		TrackLimit:     10.0,
	}
}

func (p Params) Validate() error {
	positive := []struct {
		name string
		v    float64
	}{
		{"cart_mass", p.CartMass},
		{"mass1", p.Mass1},
		{"mass2", p.Mass2},
		{"length1", p.Length1},
		{"length2", p.Length2},
		{"com1", p.Com1},
		{"com2", p.Com2},
		{"inertia1", p.Inertia1},
		{"inertia2", p.Inertia2},
		{"gravity", p.Gravity},
	}
	for _, f := range positive {
		if f.v <= 0 {
			return fmt.Errorf("plant: %s must be positive, got %g", f.name, f.v)
		}
	}
	if p.Com1 > p.Length1 {
		return fmt.Errorf("plant: com1 %g exceeds length1 %g", p.Com1, p.Length1)
	}
	if p.Com2 > p.Length2 {
		return fmt.Errorf("plant: com2 %g exceeds length2 %g", p.Com2, p.Length2)
	}
	if p.CartFriction < 0 || p.Joint1Friction < 0 || p.Joint2Friction < 0 {
		return fmt.Errorf("plant: friction coefficients must be non-negative")
	}
	if p.TrackLimit < 0 {
		return fmt.Errorf("plant: track_limit must be non-negative, got %g", p.TrackLimit)
	}
	return nil
}

// DoubleInvertedPendulum is the full nonlinear model. State layout is
// [x, theta1, theta2, xdot, omega1, omega2]. The model is immutable after
// construction and safe for concurrent use.
type DoubleInvertedPendulum struct {
	par Params

	// Lagrangian coefficients, fixed by the parameters.
	d1, d2, d3, d4, d5, d6 float64
	f1, f2                 float64
}

func New(par Params) (*DoubleInvertedPendulum, error) {
	if err := par.Validate(); err != nil {
		return nil, err
	}
	p := &DoubleInvertedPendulum{par: par}
	p.d1 = par.CartMass + par.Mass1 + par.Mass2
	p.d2 = par.Mass1*par.Com1 + par.Mass2*par.Length1
	p.d3 = par.Mass2 * par.Com2
	p.d4 = par.Mass1*par.Com1*par.Com1 + par.Mass2*par.Length1*par.Length1 + par.Inertia1
	p.d5 = par.Mass2 * par.Length1 * par.Com2
	p.d6 = par.Mass2*par.Com2*par.Com2 + par.Inertia2
	p.f1 = p.d2 * par.Gravity
	p.f2 = p.d3 * par.Gravity
	return p, nil
}

func (p *DoubleInvertedPendulum) Params() Params { return p.par }

func (p *DoubleInvertedPendulum) StateDim() int   { return 6 }
func (p *DoubleInvertedPendulum) ControlDim() int { return 1 }

// Derivative assembles M(q)qddot = F(q, qdot, u) and solves the 3x3 system.
// A singular solve yields a NaN state, which the simulator treats as
// divergence.
func (p *DoubleInvertedPendulum) Derivative(x sim.State, u float64) sim.State {
	th1, th2 := x[1], x[2]
	xd, w1, w2 := x[3], x[4], x[5]

	s1, c1 := math.Sincos(th1)
	s2, c2 := math.Sincos(th2)
	s12, c12 := math.Sincos(th1 - th2)

	m := mat.NewDense(3, 3, []float64{
		p.d1, p.d2 * c1, p.d3 * c2,
		p.d2 * c1, p.d4, p.d5 * c12,
		p.d3 * c2, p.d5 * c12, p.d6,
	})
	rhs := mat.NewVecDense(3, []float64{
		u + p.d2*s1*w1*w1 + p.d3*s2*w2*w2 - p.par.CartFriction*xd,
		p.f1*s1 - p.d5*s12*w2*w2 - p.par.Joint1Friction*w1,
		p.f2*s2 + p.d5*s12*w1*w1 - p.par.Joint2Friction*w2,
	})

	var acc mat.VecDense
	if err := acc.SolveVec(m, rhs); err != nil {
		nan := math.NaN()
		return sim.State{nan, nan, nan, nan, nan, nan}
	}

	return sim.State{xd, w1, w2, acc.AtVec(0), acc.AtVec(1), acc.AtVec(2)}
}

// Energy returns kinetic plus gravitational potential energy with the cart
// rail as datum. Upright at rest is the potential maximum.
func (p *DoubleInvertedPendulum) Energy(x sim.State) float64 {
	th1, th2 := x[1], x[2]
	xd, w1, w2 := x[3], x[4], x[5]

	c1 := math.Cos(th1)
	c2 := math.Cos(th2)
	c12 := math.Cos(th1 - th2)

	ke := 0.5*(p.d1*xd*xd+p.d4*w1*w1+p.d6*w2*w2) +
		p.d2*c1*xd*w1 + p.d3*c2*xd*w2 + p.d5*c12*w1*w2
	pe := p.f1*c1 + p.f2*c2

	return ke + pe
}

// ValidateState rejects non-finite states and cart excursions beyond the
// track.
func (p *DoubleInvertedPendulum) ValidateState(x sim.State) bool {
	if len(x) != 6 || !x.IsValid() {
		return false
	}
	if p.par.TrackLimit > 0 && math.Abs(x[0]) > p.par.TrackLimit {
		return false
	}
	return true
}
