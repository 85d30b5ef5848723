package smc

import (
	"errors"
	"math"
	"strings"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		want Type
		ok   bool
	}{
		{"classical", Classical, true},
		{"smc", Classical, true},
		{"super_twisting", SuperTwisting, true},
		{"sta", SuperTwisting, true},
		{"adaptive", Adaptive, true},
		{"hybrid_adaptive_sta", HybridAdaptiveSTA, true},
		{"hybrid", HybridAdaptiveSTA, true},
		{"pid", 0, false},
		{"", 0, false},
	}

	for _, tt := range tests {
		got, err := Parse(tt.name)
		if tt.ok && (err != nil || got != tt.want) {
			t.Errorf("Parse(%q) = %v, %v; want %v", tt.name, got, err, tt.want)
		}
		if !tt.ok && !errors.Is(err, ErrUnknownController) {
			t.Errorf("Parse(%q) err = %v, want ErrUnknownController", tt.name, err)
		}
	}
}

func TestRegistryRoundTrip(t *testing.T) {
	for _, typ := range Variants() {
		spec, err := Get(typ)
		if err != nil {
			t.Fatalf("Get(%v): %v", typ, err)
		}
		if spec.GainCount != len(spec.GainNames) ||
			spec.GainCount != len(spec.Lower) ||
			spec.GainCount != len(spec.Upper) ||
			spec.GainCount != len(spec.Defaults) {
			t.Errorf("%v: inconsistent spec lengths", typ)
		}

		// Parse must accept the canonical name.
		back, err := Parse(typ.String())
		if err != nil || back != typ {
			t.Errorf("Parse(%q) = %v, %v", typ.String(), back, err)
		}
	}
}

func TestRegistryUnknown(t *testing.T) {
	if _, err := Get(Type(42)); !errors.Is(err, ErrUnknownController) {
		t.Errorf("err = %v, want ErrUnknownController", err)
	}
}

func TestRegistryCopies(t *testing.T) {
	a, _ := Get(Classical)
	a.Defaults[0] = -999

	b, _ := Get(Classical)
	if b.Defaults[0] == -999 {
		t.Error("registry table leaked through Get")
	}
}

func TestValidateDefaults(t *testing.T) {
	// Every variant's own defaults must pass its own validation.
	for _, typ := range Variants() {
		spec, _ := Get(typ)
		if err := Validate(typ, spec.Defaults); err != nil {
			t.Errorf("%v defaults rejected: %v", typ, err)
		}
	}
}

func TestValidateLayers(t *testing.T) {
	tests := []struct {
		name    string
		typ     Type
		gains   []float64
		wantSub string
	}{
		{"length short", Classical, []float64{1, 2, 3}, "expected 6 gains"},
		{"length long", HybridAdaptiveSTA, []float64{5, 5, 5, 5, 5}, "expected 4 gains"},
		{"nan gain", Classical, []float64{10, 8, math.NaN(), 12, 50, 5}, "lambda1 is not finite"},
		{"inf gain", Adaptive, []float64{10, 8, 5, math.Inf(1), 1}, "lambda2 is not finite"},
		{"below bounds", Classical, []float64{0.5, 8, 15, 12, 50, 5}, "k1 = 0.5 outside"},
		{"above bounds", SuperTwisting, []float64{200, 10, 15, 12, 20, 15}, "K1 = 200 outside"},
		{"negative switching gain", Classical, []float64{10, 8, 15, 12, -5, 5}, "K = -5 outside"},
		{"sta ordering equal", SuperTwisting, []float64{10, 10, 15, 12, 20, 15}, "K1 must exceed K2"},
		{"sta ordering reversed", SuperTwisting, []float64{5, 25, 15, 12, 20, 15}, "K1 must exceed K2"},
		{"gamma above cap", Adaptive, []float64{10, 8, 5, 4, 25}, "gamma"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.typ, tt.gains)
			if err == nil {
				t.Fatal("expected violation, got nil")
			}
			var gv *GainViolation
			if !errors.As(err, &gv) {
				t.Fatalf("err type %T, want *GainViolation", err)
			}
			if !strings.Contains(err.Error(), tt.wantSub) {
				t.Errorf("error %q does not mention %q", err.Error(), tt.wantSub)
			}
		})
	}
}

func TestValidateAccumulatesReasons(t *testing.T) {
	err := Validate(Classical, []float64{0.5, 0.2, 15, 12, 50, 5})
	var gv *GainViolation
	if !errors.As(err, &gv) {
		t.Fatalf("err type %T, want *GainViolation", err)
	}
	if len(gv.Reasons) != 2 {
		t.Errorf("got %d reasons, want 2: %v", len(gv.Reasons), gv.Reasons)
	}
}

func TestValidateUnknownType(t *testing.T) {
	if err := Validate(Type(42), []float64{1}); !errors.Is(err, ErrUnknownController) {
		t.Errorf("err = %v, want ErrUnknownController", err)
	}
}
