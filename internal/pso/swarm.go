package pso

import (
	"math"
	"math/rand"

	"github.com/petar/GoLLRB/llrb"
)

type particle struct {
	pos      []float64
	vel      []float64
	best     []float64
	bestCost float64
}

// reject is an infeasible seed candidate queued by violation score.
type reject struct {
	pos    []float64
	howbad float64
}

func (r reject) Less(than llrb.Item) bool {
	return r.howbad < than.(reject).howbad
}

// seed draws the initial swarm. Samples are uniform inside the box; when a
// Violation hook is set, infeasible draws go into a least-violation queue
// and fill the remaining slots if feasible sampling stalls. All randomness
// comes from rng in a fixed order, so a fixed seed fixes the swarm.
func seed(o Options, rng *rand.Rand) []*particle {
	dims := len(o.Lower)
	tries := o.SeedTries
	if tries <= 0 {
		tries = 20 * o.Particles
	}

	sample := func() []float64 {
		pos := make([]float64, dims)
		for j := range pos {
			pos[j] = o.Lower[j] + rng.Float64()*(o.Upper[j]-o.Lower[j])
		}
		return pos
	}

	positions := make([][]float64, 0, o.Particles)
	if o.Violation == nil {
		for len(positions) < o.Particles {
			positions = append(positions, sample())
		}
	} else {
		violaters := llrb.New()
		for i := 0; i < tries && len(positions) < o.Particles; i++ {
			pos := sample()
			if howbad := o.Violation(pos); howbad > 0 {
				violaters.InsertNoReplace(reject{pos, howbad})
				for violaters.Len() > o.Particles-len(positions) {
					violaters.DeleteMax()
				}
				continue
			}
			positions = append(positions, pos)
		}
		// Feasible sampling stalled: take the least bad rejects.
		for len(positions) < o.Particles && violaters.Len() > 0 {
			positions = append(positions, violaters.DeleteMin().(reject).pos)
		}
		// Pathological hook (everything infeasible and queue trimmed to
		// nothing): top up uniformly so the swarm is always full.
		for len(positions) < o.Particles {
			positions = append(positions, sample())
		}
	}

	swarm := make([]*particle, o.Particles)
	for i, pos := range positions {
		vel := make([]float64, dims)
		for j := range vel {
			span := o.VelClampFrac * (o.Upper[j] - o.Lower[j])
			vel[j] = (2*rng.Float64() - 1) * span
		}
		swarm[i] = &particle{
			pos:      pos,
			vel:      vel,
			best:     append([]float64(nil), pos...),
			bestCost: math.Inf(1),
		}
	}
	return swarm
}
