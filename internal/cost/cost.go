// Package cost holds the step-cost policies and terminal fields the value
// iteration engine minimizes.
package cost

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/dynprog/internal/dynamo"
	"github.com/san-kum/dynprog/internal/grid"
)

// MinimumTime charges one unit per step spent outside the goal band
// |x| < XTol and |v| < YTol.
type MinimumTime struct {
	XTol float64
	YTol float64
}

// NewMinimumTime uses a one-cell tolerance on each axis, range/points.
func NewMinimumTime(g *grid.Grid) *MinimumTime {
	return &MinimumTime{
		XTol: g.X().Tolerance(),
		YTol: g.Y().Tolerance(),
	}
}

// InGoal reports whether s lies strictly inside the goal band.
func (m *MinimumTime) InGoal(s dynamo.State) bool {
	return math.Abs(s[0]) < m.XTol && math.Abs(s[1]) < m.YTol
}

func (m *MinimumTime) StepCost(next dynamo.State, u float64) float64 {
	if m.InGoal(next) {
		return 0
	}
	return 1
}

// Quadratic is the LQR-style running cost xᵀQx + R·u².
type Quadratic struct {
	Q *mat.SymDense
	R float64
}

// NewQuadratic builds a diagonal Q.
func NewQuadratic(qx, qv, r float64) (*Quadratic, error) {
	if qx < 0 || qv < 0 || r < 0 {
		return nil, fmt.Errorf("quadratic weights must be non-negative (qx=%g qv=%g r=%g): %w",
			qx, qv, r, dynamo.ErrParameterBounds)
	}
	return &Quadratic{
		Q: mat.NewSymDense(2, []float64{qx, 0, 0, qv}),
		R: r,
	}, nil
}

func (q *Quadratic) StepCost(next dynamo.State, u float64) float64 {
	x := mat.NewVecDense(len(next), next)
	return mat.Inner(x, q.Q, x) + q.R*u*u
}

func (q *Quadratic) GetParams() map[string]float64 {
	return map[string]float64{
		"qx": q.Q.At(0, 0),
		"qv": q.Q.At(1, 1),
		"r":  q.R,
	}
}

func (q *Quadratic) SetParam(name string, value float64) error {
	if value < 0 {
		return fmt.Errorf("%s must be non-negative, got %g: %w", name, value, dynamo.ErrParameterBounds)
	}
	switch name {
	case "qx":
		q.Q.SetSym(0, 0, value)
	case "qv":
		q.Q.SetSym(1, 1, value)
	case "r":
		q.R = value
	default:
		return fmt.Errorf("unknown param: %s", name)
	}
	return nil
}
