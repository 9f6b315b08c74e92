package viz

import (
	"strings"

	"github.com/san-kum/dynprog/internal/grid"
)

// ControlMap samples the control field on a width x height character raster,
// velocity up, and colours each cell by the sign of the control there.
func ControlMap(f *grid.Field, width, height int) string {
	if f == nil || width < 1 || height < 1 {
		return ""
	}
	g := f.Grid()
	nx, ny := g.PointsX(), g.PointsY()

	var sb strings.Builder
	for r := 0; r < height; r++ {
		y := (height - 1 - r) * (ny - 1) / max(height-1, 1)
		for c := 0; c < width; c++ {
			x := c * (nx - 1) / max(width-1, 1)
			u := f.At(x, y)
			switch {
			case u > 0:
				sb.WriteString(controlPositive.Render("+"))
			case u < 0:
				sb.WriteString(controlNegative.Render("-"))
			default:
				sb.WriteString(controlZero.Render("·"))
			}
		}
		sb.WriteRune('\n')
	}
	return sb.String()
}
