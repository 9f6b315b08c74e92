package render

import (
	"fmt"

	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/san-kum/dynprog/internal/trajectory"
)

// Trajectory writes the phase-plane path of samples as a PNG, each sample
// dotted in the colour of its control.
func Trajectory(samples []trajectory.Sample, title, path string, width, height int) error {
	if len(samples) == 0 {
		return fmt.Errorf("trajectory %q: no samples", title)
	}

	pts := make(plotter.XYs, len(samples))
	for i, s := range samples {
		pts[i].X = s.X
		pts[i].Y = s.V
	}

	line, err := plotter.NewLine(pts)
	if err != nil {
		return err
	}
	line.LineStyle.Width = vg.Points(1)
	line.LineStyle.Color = colorPath

	scatter, err := plotter.NewScatter(pts)
	if err != nil {
		return err
	}
	scatter.GlyphStyleFunc = func(i int) draw.GlyphStyle {
		return draw.GlyphStyle{
			Color:  controlColor(samples[i].U),
			Radius: vg.Points(2),
			Shape:  draw.CircleGlyph{},
		}
	}

	p := newPlot(title, "x", "v")
	p.Add(plotter.NewGrid(), line, scatter)
	return savePNG(p, path, width, height)
}
