package export

import (
	"fmt"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/mwielgat/swingtune/internal/sim"
)

// PhasePNG renders the angle phase portrait of a run into dir/phase.png,
// one curve per link. A run that slides shows up as a spiral collapsing
// onto the origin.
func PhasePNG(dir string, tr *sim.Trajectory) (string, error) {
	if tr == nil || len(tr.States) == 0 {
		return "", fmt.Errorf("export: trajectory has no samples")
	}
	if len(tr.States[0]) < 6 {
		return "", fmt.Errorf("export: phase portrait needs the full plant state")
	}

	p := plot.New()
	p.Title.Text = "Phase Portrait"
	p.X.Label.Text = "angle (rad)"
	p.Y.Label.Text = "rate (rad/s)"
	style(p)

	curves := []struct {
		name     string
		ang, vel int
	}{
		{"link 1", 1, 4},
		{"link 2", 2, 5},
	}
	for i, c := range curves {
		pts := make(plotter.XYs, len(tr.States))
		for j, x := range tr.States {
			pts[j].X = x[c.ang]
			pts[j].Y = x[c.vel]
		}
		ln, err := plotter.NewLine(pts)
		if err != nil {
			return "", fmt.Errorf("export: %s: %w", c.name, err)
		}
		ln.LineStyle.Width = vg.Points(2)
		ln.LineStyle.Color = palette[i%len(palette)]
		p.Add(ln)
		p.Legend.Add(c.name, ln)
	}
	p.Legend.Top = true

	path := filepath.Join(dir, "phase.png")
	if err := writePNG(p, path); err != nil {
		return "", err
	}
	return path, nil
}
