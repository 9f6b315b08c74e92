package integrators

import "github.com/san-kum/dynprog/internal/dynamo"

// Euler is the explicit first-order method. For the double integrator it
// reproduces the closed-form update exactly.
type Euler struct{}

func NewEuler() *Euler {
	return &Euler{}
}

func (e *Euler) Step(dyn dynamo.System, x dynamo.State, u, dt float64) dynamo.State {
	dx := dyn.Derive(x, u)
	result := make(dynamo.State, len(x))
	for i := range x {
		result[i] = x[i] + dt*dx[i]
	}
	return result
}
