package pso_test

import (
	"context"
	"testing"

	"github.com/mwielgat/swingtune/internal/pso"
)

func BenchmarkRunSphere(b *testing.B) {
	lower := []float64{-5, -5, -5, -5, -5, -5}
	upper := []float64{5, 5, 5, 5, 5, 5}
	center := []float64{1, -2, 3, 0, 0.5, -0.5}

	for i := 0; i < b.N; i++ {
		opts := pso.DefaultOptions(lower, upper)
		opts.Seed = 42
		opts.MaxIterations = 50
		opt, err := pso.New(opts)
		if err != nil {
			b.Fatal(err)
		}
		if _, err := opt.Run(context.Background(), sphere(center)); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkSeedConstrained(b *testing.B) {
	lower := []float64{1, 1, 1, 1}
	upper := []float64{100, 100, 100, 100}

	for i := 0; i < b.N; i++ {
		opts := pso.DefaultOptions(lower, upper)
		opts.Seed = 42
		opts.MaxIterations = 1
		opts.Violation = func(pos []float64) float64 {
			if pos[0] > pos[1] {
				return 0
			}
			return pos[1] - pos[0]
		}
		opt, err := pso.New(opts)
		if err != nil {
			b.Fatal(err)
		}
		obj := pso.ObjectiveFunc(func(_ context.Context, positions [][]float64) ([]float64, error) {
			costs := make([]float64, len(positions))
			return costs, nil
		})
		if _, err := opt.Run(context.Background(), obj); err != nil {
			b.Fatal(err)
		}
	}
}
