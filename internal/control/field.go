package control

import (
	"github.com/san-kum/dynprog/internal/dynamo"
	"github.com/san-kum/dynprog/internal/grid"
)

// FieldPolicy reads u from a control field by bilinear interpolation. States
// off the grid clamp to the nearest edge cell.
type FieldPolicy struct {
	Field *grid.Field
}

func NewFieldPolicy(f *grid.Field) *FieldPolicy {
	return &FieldPolicy{Field: f}
}

func (p *FieldPolicy) Compute(x dynamo.State, t float64) float64 {
	return p.Field.Interpolate(x)
}
