package render

import (
	"fmt"
	"image/color"

	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/san-kum/dynprog/internal/cost"
	"github.com/san-kum/dynprog/internal/grid"
)

const paletteSize = 64

// fieldXYZ exposes a field as plotter.GridXYZ: columns are x (position),
// rows are y (velocity).
type fieldXYZ struct {
	f *grid.Field
}

func (g fieldXYZ) Dims() (c, r int) {
	gr := g.f.Grid()
	return gr.PointsX(), gr.PointsY()
}

func (g fieldXYZ) Z(c, r int) float64 { return g.f.At(c, r) }
func (g fieldXYZ) X(c int) float64    { return g.f.Grid().X().Value(c) }
func (g fieldXYZ) Y(r int) float64    { return g.f.Grid().Y().Value(r) }

// goalPoints are the coordinates of the zero cells of the terminal field.
func goalPoints(g *grid.Grid) plotter.XYs {
	cells := cost.GoalCells(g)
	pts := make(plotter.XYs, len(cells))
	for i, cell := range cells {
		s := g.Coordinates(cell)
		pts[i].X, pts[i].Y = s[0], s[1]
	}
	return pts
}

// Heatmap writes f.Field as a PNG heatmap to f.Path, with the goal cells
// ringed.
func Heatmap(f Frame, width, height int) error {
	if f.Field == nil {
		return fmt.Errorf("heatmap %q: no field", f.Title)
	}

	hm := plotter.NewHeatMap(fieldXYZ{f.Field}, palette.Heat(paletteSize, 1))
	// a flat field (the first control frame) still needs a non-empty scale
	if hm.Max <= hm.Min {
		hm.Max = hm.Min + 1
	}

	goal, err := plotter.NewScatter(goalPoints(f.Field.Grid()))
	if err != nil {
		return fmt.Errorf("heatmap %q: %w", f.Title, err)
	}
	goal.GlyphStyle = draw.GlyphStyle{Color: color.White, Radius: vg.Points(3), Shape: draw.RingGlyph{}}

	p := newPlot(f.Title, "x", "v")
	p.Add(hm, goal)
	return savePNG(p, f.Path, width, height)
}
