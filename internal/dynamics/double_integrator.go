package dynamics

import "github.com/san-kum/dynprog/internal/dynamo"

// DoubleIntegrator is x' = v, v' = u.
type DoubleIntegrator struct{}

func NewDoubleIntegrator() *DoubleIntegrator {
	return &DoubleIntegrator{}
}

func (d *DoubleIntegrator) StateDim() int { return 2 }

// Next is one explicit Euler step. Pure; no bounds are enforced, off-grid
// successors are clamped later by the lookup.
func (d *DoubleIntegrator) Next(x dynamo.State, dt, u float64) dynamo.State {
	return dynamo.State{x[0] + x[1]*dt, x[1] + u*dt}
}

func (d *DoubleIntegrator) Derive(x dynamo.State, u float64) dynamo.State {
	return dynamo.State{x[1], u}
}

// Energy is the kinetic energy of the unit mass.
func (d *DoubleIntegrator) Energy(x dynamo.State) float64 {
	return 0.5 * x[1] * x[1]
}
