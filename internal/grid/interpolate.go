package grid

import (
	"fmt"

	"github.com/san-kum/dynprog/internal/dynamo"
)

// Indices brackets a continuous value between two grid points. Ratio is the
// fractional distance from Lower towards Upper and lies in [0, 1).
type Indices struct {
	Lower, Upper int
	Ratio        float64
}

// IndexToValue maps point i of an n-point axis spanning rng to its coordinate.
func IndexToValue(n, i int, rng float64) float64 {
	return -rng/2 + float64(i)*(rng/float64(n-1))
}

// InterpolationIndices maps v onto an n-point axis spanning rng. Values
// outside the axis clamp to the nearest edge point with a zero ratio.
func InterpolationIndices(n int, rng, v float64) Indices {
	if v < -rng/2 {
		return Indices{Lower: 0, Upper: 0, Ratio: 0}
	}
	if v > rng/2 {
		return Indices{Lower: n - 1, Upper: n - 1, Ratio: 0}
	}

	scaled := (v + rng/2) / rng * float64(n-1)
	lower := int(scaled)

	// exactly on the upper edge
	if lower >= n-1 {
		return Indices{Lower: n - 1, Upper: n - 1, Ratio: 0}
	}

	return Indices{Lower: lower, Upper: lower + 1, Ratio: scaled - float64(lower)}
}

// Bilinear blends four corner values. v00 is (xLower, yLower), v01 is
// (xLower, yUpper), v10 is (xUpper, yLower) and v11 is (xUpper, yUpper).
func Bilinear(v00, v01, v10, v11, rx, ry float64) float64 {
	return v00*(1-rx)*(1-ry) +
		v10*rx*(1-ry) +
		v01*(1-rx)*ry +
		v11*rx*ry
}

// Lookup interpolates the flat row-major array values at state s. values
// must hold exactly one entry per cell of g.
func Lookup(g *Grid, s dynamo.State, values []float64) float64 {
	if len(values) != g.Cells() {
		panic(fmt.Sprintf("grid: lookup of %d values on %s with %d cells", len(values), g, g.Cells()))
	}
	xi := g.x.Indices(s[0])
	yi := g.y.Indices(s[1])
	nx := g.x.Points

	v00 := values[yi.Lower*nx+xi.Lower]
	v01 := values[yi.Upper*nx+xi.Lower]
	v10 := values[yi.Lower*nx+xi.Upper]
	v11 := values[yi.Upper*nx+xi.Upper]

	return Bilinear(v00, v01, v10, v11, xi.Ratio, yi.Ratio)
}
