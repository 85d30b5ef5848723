package smc

import "fmt"

// Spec describes one controller variant: how many gains it takes, what they
// mean, the search box the tuner may explore, and a hand-tuned default
// vector. The table is process-wide, read-only data.
type Spec struct {
	Type      Type
	GainCount int
	GainNames []string
	Lower     []float64
	Upper     []float64
	Defaults  []float64
}

var specs = map[Type]Spec{
	Classical: {
		Type:      Classical,
		GainCount: 6,
		GainNames: []string{"k1", "k2", "lambda1", "lambda2", "K", "kd"},
		Lower:     []float64{1, 1, 1, 1, 1, 0},
		Upper:     []float64{100, 100, 20, 20, 150, 50},
		Defaults:  []float64{10, 8, 15, 12, 50, 5},
	},
	SuperTwisting: {
		Type:      SuperTwisting,
		GainCount: 6,
		GainNames: []string{"K1", "K2", "k1", "k2", "lambda1", "lambda2"},
		Lower:     []float64{1, 1, 1, 1, 1, 1},
		Upper:     []float64{150, 150, 100, 100, 20, 20},
		Defaults:  []float64{25, 10, 15, 12, 20, 15},
	},
	Adaptive: {
		Type:      Adaptive,
		GainCount: 5,
		GainNames: []string{"k1", "k2", "lambda1", "lambda2", "gamma"},
		Lower:     []float64{1, 1, 1, 1, 0.01},
		Upper:     []float64{100, 100, 20, 20, 20},
		Defaults:  []float64{10, 8, 5, 4, 1},
	},
	HybridAdaptiveSTA: {
		Type:      HybridAdaptiveSTA,
		GainCount: 4,
		GainNames: []string{"c1", "lambda1", "c2", "lambda2"},
		Lower:     []float64{1, 1, 1, 1},
		Upper:     []float64{100, 20, 100, 20},
		Defaults:  []float64{15, 12, 18, 10},
	},
}

// Get returns the variant spec. Slices are copies so callers cannot mutate
// the registry.
func Get(t Type) (Spec, error) {
	s, ok := specs[t]
	if !ok {
		return Spec{}, fmt.Errorf("%w: %d", ErrUnknownController, int(t))
	}
	out := s
	out.GainNames = append([]string(nil), s.GainNames...)
	out.Lower = append([]float64(nil), s.Lower...)
	out.Upper = append([]float64(nil), s.Upper...)
	out.Defaults = append([]float64(nil), s.Defaults...)
	return out, nil
}

// Variants lists the registered types in declaration order.
func Variants() []Type {
	return []Type{Classical, SuperTwisting, Adaptive, HybridAdaptiveSTA}
}
