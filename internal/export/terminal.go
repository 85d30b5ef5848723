package export

import (
	"github.com/guptarohit/asciigraph"

	"github.com/mwielgat/swingtune/internal/sim"
)

// History renders the best-cost curve for plain terminals. Fewer than two
// iterations is not a curve; callers get an empty string.
func History(history []float64, width, height int) string {
	if len(history) < 2 {
		return ""
	}
	return asciigraph.Plot(history,
		asciigraph.Width(width),
		asciigraph.Height(height),
		asciigraph.Caption("best cost per iteration"))
}

// Angles renders both pendulum angles as one terminal chart.
func Angles(tr *sim.Trajectory, width, height int) string {
	if len(tr.States) < 2 {
		return ""
	}
	return asciigraph.PlotMany([][]float64{channel(tr, 1), channel(tr, 2)},
		asciigraph.Width(width),
		asciigraph.Height(height),
		asciigraph.SeriesColors(asciigraph.Blue, asciigraph.Red),
		asciigraph.SeriesLegends("theta1", "theta2"),
		asciigraph.Caption("pendulum angles (rad)"))
}

// Control renders the force channel.
func Control(tr *sim.Trajectory, width, height int) string {
	if len(tr.Controls) < 2 {
		return ""
	}
	return asciigraph.Plot(tr.Controls,
		asciigraph.Width(width),
		asciigraph.Height(height),
		asciigraph.Caption("control force (N)"))
}

// Surface renders the sliding-surface channel.
func Surface(tr *sim.Trajectory, width, height int) string {
	if len(tr.Surfaces) < 2 {
		return ""
	}
	return asciigraph.Plot(tr.Surfaces,
		asciigraph.Width(width),
		asciigraph.Height(height),
		asciigraph.Caption("sliding surface"))
}
