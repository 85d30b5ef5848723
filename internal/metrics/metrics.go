// Package metrics derives closed-loop performance figures from recorded runs.
package metrics

import (
	"math"

	"github.com/mwielgat/swingtune/internal/sim"
)

// Report bundles the figures printed after a simulation. Times are absent
// rather than negative when the run never crossed the corresponding band.
type Report struct {
	Settled      bool
	SettlingTime float64
	Reached      bool
	ReachingTime float64

	PeakAngle float64
	PeakForce float64
	RMSForce  float64

	// Chattering is the total variation of the control signal per second.
	Chattering float64
	// ChatterHz is the dominant frequency of the control signal, zero when
	// the signal is too short or too flat to analyze.
	ChatterHz float64
}

// Compute evaluates every figure over one trajectory. The band is used both
// as the angle settling corridor and as the surface reaching threshold.
func Compute(tr *sim.Trajectory, band float64) Report {
	var r Report
	if tr == nil || len(tr.Times) == 0 {
		return r
	}
	r.SettlingTime, r.Settled = SettlingTime(tr, band)
	r.ReachingTime, r.Reached = ReachingTime(tr, band)
	r.PeakAngle = PeakAngle(tr)
	r.PeakForce = PeakForce(tr)
	r.RMSForce = RMSForce(tr)
	r.Chattering = Chattering(tr)
	r.ChatterHz = DominantFrequency(tr.Controls, tr.Dt)
	return r
}

// SettlingTime returns the first time after which both link angles stay
// inside the band until the end of the run.
func SettlingTime(tr *sim.Trajectory, band float64) (float64, bool) {
	last := -1
	for i, x := range tr.States {
		if angleError(x) > band {
			last = i
		}
	}
	switch {
	case last < 0:
		return tr.Times[0], true
	case last == len(tr.States)-1:
		return 0, false
	default:
		return tr.Times[last+1], true
	}
}

// ReachingTime returns the first time the sliding surface magnitude drops
// below the band, marking the end of the reaching phase.
func ReachingTime(tr *sim.Trajectory, band float64) (float64, bool) {
	for i, s := range tr.Surfaces {
		if math.Abs(s) <= band {
			return tr.Times[i], true
		}
	}
	return 0, false
}

// PeakAngle returns the largest link angle magnitude over the run.
func PeakAngle(tr *sim.Trajectory) float64 {
	peak := 0.0
	for _, x := range tr.States {
		if e := angleError(x); e > peak {
			peak = e
		}
	}
	return peak
}

// PeakForce returns the largest control magnitude over the run.
func PeakForce(tr *sim.Trajectory) float64 {
	peak := 0.0
	for _, u := range tr.Controls {
		if a := math.Abs(u); a > peak {
			peak = a
		}
	}
	return peak
}

// RMSForce returns the root mean square of the control signal.
func RMSForce(tr *sim.Trajectory) float64 {
	if len(tr.Controls) == 0 {
		return 0
	}
	sum := 0.0
	for _, u := range tr.Controls {
		sum += u * u
	}
	return math.Sqrt(sum / float64(len(tr.Controls)))
}

// Chattering returns the total variation of the control signal per second
// of simulated time. Switching-heavy laws score high here even when the
// force envelope is small.
func Chattering(tr *sim.Trajectory) float64 {
	if len(tr.Controls) < 2 {
		return 0
	}
	span := tr.Times[len(tr.Times)-1] - tr.Times[0]
	if span <= 0 {
		return 0
	}
	tv := 0.0
	for i := 1; i < len(tr.Controls); i++ {
		tv += math.Abs(tr.Controls[i] - tr.Controls[i-1])
	}
	return tv / span
}

func angleError(x sim.State) float64 {
	if len(x) <= 2 {
		return 0
	}
	return math.Max(math.Abs(x[1]), math.Abs(x[2]))
}
