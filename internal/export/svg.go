package export

import (
	"fmt"
	"strings"

	"github.com/san-kum/dynprog/internal/trajectory"
)

var controlColors = map[int]string{
	-1: "#ff5f5f",
	0:  "#8a8a8a",
	1:  "#5fd75f",
}

func controlColor(u float64) string {
	switch {
	case u > 0.5:
		return controlColors[1]
	case u < -0.5:
		return controlColors[-1]
	}
	return controlColors[0]
}

// TrajectoryToSVG draws the phase-plane path of samples, x across and v up,
// with each sample dotted in the colour of its control sign.
func TrajectoryToSVG(samples []trajectory.Sample, width, height int) string {
	if len(samples) < 2 {
		return ""
	}

	minX, maxX := samples[0].X, samples[0].X
	minY, maxY := samples[0].V, samples[0].V
	for _, s := range samples {
		minX = min(minX, s.X)
		maxX = max(maxX, s.X)
		minY = min(minY, s.V)
		maxY = max(maxY, s.V)
	}

	// keep the origin in view
	minX, maxX = min(minX, 0), max(maxX, 0)
	minY, maxY = min(minY, 0), max(maxY, 0)

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

	project := func(x, y float64) (float64, float64) {
		return (x - minX) / rangeX * float64(width),
			float64(height) - (y-minY)/rangeY*float64(height)
	}

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
`, width, height, width, height))

	ox, oy := project(0, 0)
	sb.WriteString(fmt.Sprintf(`<g stroke="#303030" stroke-width="1">
<line x1="0" y1="%.1f" x2="%d" y2="%.1f"/>
<line x1="%.1f" y1="0" x2="%.1f" y2="%d"/>
</g>
`, oy, width, oy, ox, ox, height))

	sb.WriteString(`<path fill="none" stroke="#00d7ff" stroke-width="1.5" d="M`)
	for i, s := range samples {
		x, y := project(s.X, s.V)
		if i == 0 {
			sb.WriteString(fmt.Sprintf("%.1f,%.1f", x, y))
		} else {
			sb.WriteString(fmt.Sprintf(" L%.1f,%.1f", x, y))
		}
	}
	sb.WriteString("\"/>\n")

	for _, s := range samples {
		x, y := project(s.X, s.V)
		sb.WriteString(fmt.Sprintf(`<circle cx="%.1f" cy="%.1f" r="2" fill="%s"/>
`, x, y, controlColor(s.U)))
	}

	sb.WriteString("</svg>")
	return sb.String()
}
