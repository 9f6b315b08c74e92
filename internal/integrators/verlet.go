package integrators

import "github.com/san-kum/dynprog/internal/dynamo"

// Verlet is velocity Verlet for states laid out as positions followed by
// velocities of equal length.
type Verlet struct{}

func NewVerlet() *Verlet {
	return &Verlet{}
}

func (v *Verlet) Step(dyn dynamo.System, x dynamo.State, u, dt float64) dynamo.State {
	n := len(x)
	half := n / 2

	result := make(dynamo.State, n)
	dx := dyn.Derive(x, u)
	dt2 := dt * dt

	for i := 0; i < half; i++ {
		result[i] = x[i] + x[half+i]*dt + 0.5*dx[half+i]*dt2
	}

	mid := make(dynamo.State, n)
	for i := 0; i < half; i++ {
		mid[i] = result[i]
		mid[half+i] = x[half+i]
	}

	dxNew := dyn.Derive(mid, u)

	halfDt := 0.5 * dt
	for i := 0; i < half; i++ {
		result[half+i] = x[half+i] + (dx[half+i]+dxNew[half+i])*halfDt
	}

	return result
}
