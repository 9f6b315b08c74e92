package render

import (
	"fmt"
	"strings"

	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/dynprog/internal/trajectory"
)

// ConvergencePlot charts the max-norm change of every sweep.
func ConvergencePlot(norms []float64, width, height int) string {
	if len(norms) == 0 {
		return ""
	}
	return asciigraph.Plot(norms,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Caption(fmt.Sprintf("max change per sweep (%d sweeps)", len(norms))),
	)
}

func controlGlyph(u float64) rune {
	switch {
	case u > 0.5:
		return '+'
	case u < -0.5:
		return '-'
	}
	return '·'
}

// PhasePortrait draws samples in the x-v plane with one glyph per sample:
// '+' for positive control, '-' for negative and '·' for none. The origin
// stays in view.
func PhasePortrait(samples []trajectory.Sample, width, height int) string {
	if len(samples) == 0 || width < 2 || height < 2 {
		return ""
	}

	minX, maxX := min(samples[0].X, 0), max(samples[0].X, 0)
	minY, maxY := min(samples[0].V, 0), max(samples[0].V, 0)
	for _, s := range samples {
		minX = min(minX, s.X)
		maxX = max(maxX, s.X)
		minY = min(minY, s.V)
		maxY = max(maxY, s.V)
	}

	rangeX := maxX - minX
	rangeY := maxY - minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	minX -= rangeX * 0.1
	maxX += rangeX * 0.1
	minY -= rangeY * 0.1
	maxY += rangeY * 0.1
	rangeX = maxX - minX
	rangeY = maxY - minY

	col := func(x float64) int { return int((x - minX) / rangeX * float64(width-1)) }
	row := func(y float64) int { return height - 1 - int((y-minY)/rangeY*float64(height-1)) }

	canvas := make([][]rune, height)
	for i := range canvas {
		canvas[i] = []rune(strings.Repeat(" ", width))
	}

	ox, oy := col(0), row(0)
	for r := 0; r < height; r++ {
		canvas[r][ox] = '│'
	}
	for c := 0; c < width; c++ {
		canvas[oy][c] = '─'
	}
	canvas[oy][ox] = '┼'

	for _, s := range samples {
		c, r := col(s.X), row(s.V)
		if r >= 0 && r < height && c >= 0 && c < width {
			canvas[r][c] = controlGlyph(s.U)
		}
	}

	var sb strings.Builder
	for _, line := range canvas {
		sb.WriteString(string(line))
		sb.WriteRune('\n')
	}
	return sb.String()
}
