package smc

import (
	"testing"

	"github.com/mwielgat/swingtune/internal/sim"
)

func benchController(b *testing.B, typ Type) {
	c, err := NewDefault(typ, DefaultParams())
	if err != nil {
		b.Fatalf("NewDefault(%v): %v", typ, err)
	}
	x := sim.State{0, 0.1, -0.05, 0.2, 0.5, -0.3}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.Step(x, float64(i)*0.01, 0.01)
	}
}

func BenchmarkClassicalStep(b *testing.B)     { benchController(b, Classical) }
func BenchmarkSuperTwistingStep(b *testing.B) { benchController(b, SuperTwisting) }
func BenchmarkAdaptiveStep(b *testing.B)      { benchController(b, Adaptive) }
func BenchmarkHybridStep(b *testing.B)        { benchController(b, HybridAdaptiveSTA) }

func BenchmarkValidate(b *testing.B) {
	spec, _ := Get(SuperTwisting)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := Validate(SuperTwisting, spec.Defaults); err != nil {
			b.Fatal(err)
		}
	}
}
