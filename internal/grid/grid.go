// Package grid discretizes a two-dimensional continuous state space onto a
// fixed, uniformly spaced grid that is symmetric about the origin.
//
// Fields over the grid are flat row-major arrays: the cell at column x and
// row y lives at index y*PointsX + x. Off-grid states are read back through
// bilinear interpolation, clamping silently to the nearest edge cell.
package grid

import (
	"errors"
	"fmt"
	"math"

	"github.com/san-kum/dynprog/internal/dynamo"
)

var (
	// ErrTooFewPoints indicates an axis with fewer than two points.
	ErrTooFewPoints = errors.New("grid: axis needs at least 2 points")

	// ErrInvalidRange indicates a non-positive or non-finite axis range.
	ErrInvalidRange = errors.New("grid: axis range must be positive and finite")
)

// Axis is one dimension of the grid: Points values spanning [-Range/2, Range/2].
type Axis struct {
	Points int
	Range  float64
}

func (a Axis) validate(name string) error {
	if a.Points < 2 {
		return fmt.Errorf("%s axis has %d points: %w", name, a.Points, ErrTooFewPoints)
	}
	if a.Range <= 0 || math.IsNaN(a.Range) || math.IsInf(a.Range, 0) {
		return fmt.Errorf("%s axis range %g: %w", name, a.Range, ErrInvalidRange)
	}
	return nil
}

// Step is the spacing between adjacent points.
func (a Axis) Step() float64 {
	return a.Range / float64(a.Points-1)
}

// Value returns the physical coordinate of point i.
func (a Axis) Value(i int) float64 {
	return IndexToValue(a.Points, i, a.Range)
}

// Indices returns the interpolation bracket for v.
func (a Axis) Indices(v float64) Indices {
	return InterpolationIndices(a.Points, a.Range, v)
}

// Tolerance is the one-cell goal tolerance used by the minimum-time cost,
// Range/Points.
func (a Axis) Tolerance() float64 {
	return a.Range / float64(a.Points)
}

// Grid is immutable once constructed.
type Grid struct {
	x, y Axis
}

// New validates the axes and returns the grid. Fewer than two points on
// either axis is a configuration error.
func New(pointsX, pointsY int, rangeX, rangeY float64) (*Grid, error) {
	x := Axis{Points: pointsX, Range: rangeX}
	y := Axis{Points: pointsY, Range: rangeY}
	if err := x.validate("x"); err != nil {
		return nil, err
	}
	if err := y.validate("y"); err != nil {
		return nil, err
	}
	return &Grid{x: x, y: y}, nil
}

func (g *Grid) X() Axis { return g.x }
func (g *Grid) Y() Axis { return g.y }

func (g *Grid) PointsX() int    { return g.x.Points }
func (g *Grid) PointsY() int    { return g.y.Points }
func (g *Grid) RangeX() float64 { return g.x.Range }
func (g *Grid) RangeY() float64 { return g.y.Range }
func (g *Grid) Cells() int      { return g.x.Points * g.y.Points }
func (g *Grid) String() string {
	return fmt.Sprintf("%dx%d over %gx%g", g.x.Points, g.y.Points, g.x.Range, g.y.Range)
}

// Index returns the flat row-major index of cell (x, y).
func (g *Grid) Index(x, y int) int {
	return y*g.x.Points + x
}

// Cell is the inverse of Index.
func (g *Grid) Cell(index int) (x, y int) {
	return index % g.x.Points, index / g.x.Points
}

// Coordinates returns the continuous state at the centre of a flat cell index.
func (g *Grid) Coordinates(index int) dynamo.State {
	x, y := g.Cell(index)
	return dynamo.State{g.x.Value(x), g.y.Value(y)}
}

// Contains reports whether (x, y) is a valid cell.
func (g *Grid) Contains(x, y int) bool {
	return x >= 0 && x < g.x.Points && y >= 0 && y < g.y.Points
}

// Equal reports whether o has the same points and ranges as g.
func (g *Grid) Equal(o *Grid) bool {
	return g == o || (o != nil && g.x == o.x && g.y == o.y)
}

// Lookup interpolates field at the continuous state s. f must be a field
// over an equal grid.
func (g *Grid) Lookup(s dynamo.State, f *Field) float64 {
	if !g.Equal(f.grid) {
		panic(fmt.Sprintf("grid: lookup on %s of a field over %s", g, f.grid))
	}
	return Lookup(g, s, f.values)
}
