package plant

import (
	"math"
	"testing"

	"github.com/mwielgat/swingtune/internal/sim"
)

func mustNew(t *testing.T, par Params) *DoubleInvertedPendulum {
	t.Helper()
	p, err := New(par)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return p
}

func TestUprightEquilibrium(t *testing.T) {
	p := mustNew(t, DefaultParams())

	// Balanced at rest with no force: nothing moves.
	dx := p.Derivative(sim.State{0, 0, 0, 0, 0, 0}, 0)
	for i, v := range dx {
		if math.Abs(v) > 1e-12 {
			t.Errorf("derivative[%d] = %g, want 0", i, v)
		}
	}
}

func TestDimensions(t *testing.T) {
	p := mustNew(t, DefaultParams())
	if p.StateDim() != 6 {
		t.Errorf("state dim = %d, want 6", p.StateDim())
	}
	if p.ControlDim() != 1 {
		t.Errorf("control dim = %d, want 1", p.ControlDim())
	}
}

func TestForcePushesCart(t *testing.T) {
	p := mustNew(t, DefaultParams())

	dx := p.Derivative(sim.State{0, 0, 0, 0, 0, 0}, 10)
	if dx[3] <= 0 {
		t.Errorf("cart acceleration = %g under positive force, want > 0", dx[3])
	}
}

func TestLeanTopples(t *testing.T) {
	p := mustNew(t, DefaultParams())

	// Both links leaning over at rest: gravity accelerates the lower link
	// further from upright.
	dx := p.Derivative(sim.State{0, 0.1, 0.1, 0, 0, 0}, 0)
	if dx[4] <= 0 {
		t.Errorf("alpha1 = %g for positive lean, want > 0", dx[4])
	}
}

func TestSymmetry(t *testing.T) {
	par := DefaultParams()
	par.CartFriction = 0
	par.Joint1Friction = 0
	par.Joint2Friction = 0
	p := mustNew(t, par)

	dx1 := p.Derivative(sim.State{0, 0.2, 0.1, 0, 0, 0}, 0)
	dx2 := p.Derivative(sim.State{0, -0.2, -0.1, 0, 0, 0}, 0)

	for i := 3; i < 6; i++ {
		if math.Abs(dx1[i]+dx2[i]) > 1e-9 {
			t.Errorf("acceleration %d not mirrored: %g vs %g", i, dx1[i], dx2[i])
		}
	}
}

func TestEnergyMaxUpright(t *testing.T) {
	p := mustNew(t, DefaultParams())

	upright := p.Energy(sim.State{0, 0, 0, 0, 0, 0})
	leaned := p.Energy(sim.State{0, 0.3, -0.2, 0, 0, 0})
	if leaned >= upright {
		t.Errorf("potential energy leaned (%g) not below upright (%g)", leaned, upright)
	}

	moving := p.Energy(sim.State{0, 0, 0, 1.0, 0, 0})
	if moving <= upright {
		t.Errorf("kinetic energy did not raise total: %g vs %g", moving, upright)
	}
}

func TestValidateState(t *testing.T) {
	p := mustNew(t, DefaultParams())

	tests := []struct {
		name  string
		state sim.State
		valid bool
	}{
		{"upright", sim.State{0, 0, 0, 0, 0, 0}, true},
		{"swinging", sim.State{1, 2, -1, 0.5, 3, -4}, true},
		{"wrong dim", sim.State{0, 0, 0, 0}, false},
		{"nan", sim.State{0, math.NaN(), 0, 0, 0, 0}, false},
		{"off the track", sim.State{11, 0, 0, 0, 0, 0}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := p.ValidateState(tt.state); got != tt.valid {
				t.Errorf("ValidateState = %v, want %v", got, tt.valid)
			}
		})
	}
}

func TestParamsValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Params)
	}{
		{"zero cart mass", func(p *Params) { p.CartMass = 0 }},
		{"negative mass1", func(p *Params) { p.Mass1 = -1 }},
		{"zero length2", func(p *Params) { p.Length2 = 0 }},
		{"com beyond link", func(p *Params) { p.Com1 = p.Length1 * 2 }},
		{"negative friction", func(p *Params) { p.CartFriction = -0.1 }},
		{"zero gravity", func(p *Params) { p.Gravity = 0 }},
		{"negative track limit", func(p *Params) { p.TrackLimit = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			par := DefaultParams()
			tt.mutate(&par)
			if _, err := New(par); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}

	if _, err := New(DefaultParams()); err != nil {
		t.Errorf("default params rejected: %v", err)
	}
}
