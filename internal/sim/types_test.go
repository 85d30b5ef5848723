package sim

import (
	"math"
	"testing"
)

func TestState_IsValid(t *testing.T) {
	tests := []struct {
		name  string
		state State
		valid bool
	}{
		{"empty", State{}, true},
		{"normal", State{1.0, 2.0, 3.0}, true},
		{"zeros", State{0.0, 0.0}, true},
		{"with NaN", State{1.0, math.NaN()}, false},
		{"with +Inf", State{1.0, math.Inf(1)}, false},
		{"with -Inf", State{1.0, math.Inf(-1)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.state.IsValid(); got != tt.valid {
				t.Errorf("IsValid() = %v, want %v", got, tt.valid)
			}
		})
	}
}

func TestState_Norm(t *testing.T) {
	tests := []struct {
		state    State
		expected float64
	}{
		{State{3, 4}, 5.0},
		{State{1, 0}, 1.0},
		{State{0, 0}, 0.0},
		{State{1, 1, 1, 1}, 2.0},
	}

	for _, tt := range tests {
		if got := tt.state.Norm(); math.Abs(got-tt.expected) > 1e-10 {
			t.Errorf("Norm(%v) = %v, want %v", tt.state, got, tt.expected)
		}
	}
}

func TestState_MaxAbs(t *testing.T) {
	tests := []struct {
		state    State
		expected float64
	}{
		{State{3, -4}, 4.0},
		{State{-7, 2, 5}, 7.0},
		{State{0, 0}, 0.0},
	}

	for _, tt := range tests {
		if got := tt.state.MaxAbs(); got != tt.expected {
			t.Errorf("MaxAbs(%v) = %v, want %v", tt.state, got, tt.expected)
		}
	}
}

func TestState_Clone(t *testing.T) {
	a := State{1, 2, 3}
	b := a.Clone()

	b[0] = 99
	if a[0] == 99 {
		t.Error("Clone did not create independent copy")
	}
}

func TestStatus_String(t *testing.T) {
	tests := []struct {
		status   Status
		expected string
	}{
		{StatusCompleted, "completed"},
		{StatusConverged, "converged"},
		{StatusUnstable, "unstable"},
		{StatusTimedOut, "timed_out"},
		{StatusInvalid, "invalid"},
		{Status(99), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.status.String(); got != tt.expected {
			t.Errorf("Status(%d).String() = %q, want %q", tt.status, got, tt.expected)
		}
	}
}

func TestInvalidTrajectory(t *testing.T) {
	cfg := Config{Dt: 0.01, Duration: 5, StateCeiling: 1e3}
	tr := InvalidTrajectory(cfg)

	if !tr.Invalid() {
		t.Error("sentinel not marked invalid")
	}
	if tr.Steps() != 0 {
		t.Errorf("sentinel has %d steps, want 0", tr.Steps())
	}
	if tr.Dt != cfg.Dt || tr.Duration != cfg.Duration {
		t.Error("sentinel did not carry run config")
	}
}
