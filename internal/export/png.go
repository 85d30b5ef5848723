// Package export renders recorded runs as high-resolution PNG charts and as
// plain-terminal graphs for headless sessions.
package export

import (
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/mwielgat/swingtune/internal/sim"
)

type series struct {
	name string
	ys   []float64
	col  color.RGBA
}

var palette = []color.RGBA{
	{R: 57, G: 106, B: 177, A: 255},
	{R: 218, G: 124, B: 48, A: 255},
	{R: 62, G: 150, B: 81, A: 255},
	{R: 204, G: 37, B: 41, A: 255},
}

// TrajectoryPNGs writes one chart per recorded channel, with both angles
// sharing a chart, and returns the paths written.
func TrajectoryPNGs(dir string, tr *sim.Trajectory) ([]string, error) {
	if len(tr.Times) == 0 {
		return nil, fmt.Errorf("export: trajectory has no samples")
	}

	charts := []struct {
		file, title, ylabel string
		ss                  []series
	}{
		{"angles.png", "Pendulum Angles (0 = upright)", "angle (rad)", []series{
			{name: "theta1", ys: channel(tr, 1), col: palette[0]},
			{name: "theta2", ys: channel(tr, 2), col: palette[1]},
		}},
		{"cart_position.png", "Cart Position", "x (m)", []series{
			{name: "x", ys: channel(tr, 0), col: palette[2]},
		}},
		{"control_force.png", "Control Force", "u (N)", []series{
			{name: "u", ys: tr.Controls, col: palette[3]},
		}},
		{"sliding_surface.png", "Sliding Surface", "sigma", []series{
			{name: "sigma", ys: tr.Surfaces, col: palette[0]},
		}},
	}

	var written []string
	for _, ch := range charts {
		path := filepath.Join(dir, ch.file)
		if err := linePlot(path, ch.title, "time (s)", ch.ylabel, tr.Times, ch.ss...); err != nil {
			return written, err
		}
		written = append(written, path)
	}
	return written, nil
}

// HistoryPNG writes the best-cost curve and, when recorded, the swarm
// diversity curve.
func HistoryPNG(dir string, history, diversity []float64) ([]string, error) {
	if len(history) == 0 {
		return nil, fmt.Errorf("export: empty cost history")
	}
	iters := make([]float64, len(history))
	for i := range iters {
		iters[i] = float64(i + 1)
	}

	var written []string
	path := filepath.Join(dir, "cost_history.png")
	err := linePlot(path, "Best Cost per Iteration", "iteration", "cost", iters,
		series{name: "best cost", ys: history, col: palette[0]})
	if err != nil {
		return written, err
	}
	written = append(written, path)

	if len(diversity) == len(history) {
		path = filepath.Join(dir, "diversity.png")
		err := linePlot(path, "Swarm Diversity", "iteration", "normalized spread", iters,
			series{name: "diversity", ys: diversity, col: palette[1]})
		if err != nil {
			return written, err
		}
		written = append(written, path)
	}
	return written, nil
}

func linePlot(path, title, xlabel, ylabel string, xs []float64, ss ...series) error {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xlabel
	p.Y.Label.Text = ylabel
	style(p)

	for _, s := range ss {
		if len(s.ys) != len(xs) {
			return fmt.Errorf("export: series %s has %d points for %d samples", s.name, len(s.ys), len(xs))
		}
		pts := make(plotter.XYs, len(xs))
		for i := range xs {
			pts[i].X = xs[i]
			pts[i].Y = s.ys[i]
		}
		ln, err := plotter.NewLine(pts)
		if err != nil {
			return fmt.Errorf("export: %s: %w", s.name, err)
		}
		ln.LineStyle.Width = vg.Points(2.5)
		ln.LineStyle.Color = s.col
		p.Add(ln)
		if len(ss) > 1 {
			p.Legend.Add(s.name, ln)
		}
	}
	if len(ss) > 1 {
		p.Legend.Top = true
	}
	return writePNG(p, path)
}

func style(p *plot.Plot) {
	p.Title.TextStyle.Font.Size = vg.Points(18)
	p.Title.Padding = vg.Points(10)

	p.X.Label.TextStyle.Font.Size = vg.Points(14)
	p.Y.Label.TextStyle.Font.Size = vg.Points(14)
	p.X.Label.Padding = vg.Points(8)
	p.Y.Label.Padding = vg.Points(8)

	p.X.LineStyle.Width = vg.Points(1.8)
	p.Y.LineStyle.Width = vg.Points(1.8)
	p.X.Tick.LineStyle.Width = vg.Points(1.6)
	p.Y.Tick.LineStyle.Width = vg.Points(1.6)
	p.X.Tick.Length = vg.Points(6)
	p.Y.Tick.Length = vg.Points(6)

	p.X.Tick.Label.Font.Size = vg.Points(11)
	p.Y.Tick.Label.Font.Size = vg.Points(11)
	p.X.Tick.Marker = evenTicks(9, "%.1f")
	p.Y.Tick.Marker = evenTicks(7, "%.2g")

	p.Add(plotter.NewGrid())
}

// evenTicks places a fixed number of evenly spaced labeled ticks so long
// runs do not smear the axis.
func evenTicks(n int, format string) plot.Ticker {
	if n < 2 {
		n = 2
	}
	return plot.TickerFunc(func(min, max float64) []plot.Tick {
		if math.IsNaN(min) || math.IsNaN(max) || math.IsInf(min, 0) || math.IsInf(max, 0) {
			return nil
		}
		if min == max {
			return []plot.Tick{{Value: min, Label: fmt.Sprintf(format, min)}}
		}
		step := (max - min) / float64(n-1)
		ticks := make([]plot.Tick, 0, n)
		for i := 0; i < n; i++ {
			v := min + float64(i)*step
			ticks = append(ticks, plot.Tick{Value: v, Label: fmt.Sprintf(format, v)})
		}
		return ticks
	})
}

func writePNG(p *plot.Plot, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("export: %w", err)
	}

	c := vgimg.NewWith(vgimg.UseWH(8*vg.Inch, 5*vg.Inch), vgimg.UseDPI(220))
	p.Draw(draw.New(c))

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	defer f.Close()

	if _, err := (vgimg.PngCanvas{Canvas: c}).WriteTo(f); err != nil {
		return fmt.Errorf("export: write %s: %w", filepath.Base(path), err)
	}
	return nil
}

func channel(tr *sim.Trajectory, idx int) []float64 {
	out := make([]float64, len(tr.States))
	for i, x := range tr.States {
		out[i] = x[idx]
	}
	return out
}
