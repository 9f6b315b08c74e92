package grid

import (
	"fmt"
	"math"

	"github.com/san-kum/dynprog/internal/dynamo"
)

// Field is one scalar per grid cell, stored row-major.
type Field struct {
	grid   *Grid
	values []float64
}

// NewField returns a field with every cell set to fill.
func (g *Grid) NewField(fill float64) *Field {
	values := make([]float64, g.Cells())
	if fill != 0 {
		for i := range values {
			values[i] = fill
		}
	}
	return &Field{grid: g, values: values}
}

// FieldFrom wraps values, which must hold exactly one entry per cell. The
// slice is not copied.
func FieldFrom(g *Grid, values []float64) (*Field, error) {
	if len(values) != g.Cells() {
		return nil, fmt.Errorf("field has %d values, grid %s needs %d: %w",
			len(values), g, g.Cells(), dynamo.ErrDimensionMismatch)
	}
	return &Field{grid: g, values: values}, nil
}

// Init builds a field by evaluating fn at every cell.
func Init(g *Grid, fn func(x, y int) float64) *Field {
	f := g.NewField(0)
	for y := 0; y < g.y.Points; y++ {
		for x := 0; x < g.x.Points; x++ {
			f.values[g.Index(x, y)] = fn(x, y)
		}
	}
	return f
}

func (f *Field) Grid() *Grid { return f.grid }
func (f *Field) Len() int    { return len(f.values) }

// Values exposes the backing row-major slice for renderers and storage.
func (f *Field) Values() []float64 { return f.values }

func (f *Field) checkCell(x, y int) {
	if !f.grid.Contains(x, y) {
		panic(fmt.Sprintf("grid: cell (%d, %d) outside %s", x, y, f.grid))
	}
}

func (f *Field) At(x, y int) float64 {
	f.checkCell(x, y)
	return f.values[f.grid.Index(x, y)]
}

func (f *Field) Set(x, y int, v float64) {
	f.checkCell(x, y)
	f.values[f.grid.Index(x, y)] = v
}

func (f *Field) AtIndex(i int) float64 {
	return f.values[i]
}

func (f *Field) SetIndex(i int, v float64) {
	f.values[i] = v
}

// Interpolate reads the field at a continuous state.
func (f *Field) Interpolate(s dynamo.State) float64 {
	return Lookup(f.grid, s, f.values)
}

func (f *Field) Clone() *Field {
	values := make([]float64, len(f.values))
	copy(values, f.values)
	return &Field{grid: f.grid, values: values}
}

// CopyFrom overwrites every cell with src. Both fields must share dimensions.
func (f *Field) CopyFrom(src *Field) {
	if len(src.values) != len(f.values) {
		panic(fmt.Sprintf("grid: copy of %d values into field of %d", len(src.values), len(f.values)))
	}
	copy(f.values, src.values)
}

// Bounds returns the smallest and largest values in the field.
func (f *Field) Bounds() (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, v := range f.values {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return lo, hi
}
