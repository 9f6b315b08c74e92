package dynamics

import "github.com/san-kum/dynprog/internal/dynamo"

type discrete struct {
	sys   dynamo.System
	integ dynamo.Integrator
}

// Discretize turns a continuous system into a fixed-step transition using integ.
func Discretize(sys dynamo.System, integ dynamo.Integrator) dynamo.StateTransition {
	return &discrete{sys: sys, integ: integ}
}

func (d *discrete) Next(x dynamo.State, dt, u float64) dynamo.State {
	return d.integ.Step(d.sys, x, u, dt)
}

// Unwrap returns the continuous model behind a transition built by
// Discretize, or nil.
func Unwrap(t dynamo.StateTransition) dynamo.System {
	switch v := t.(type) {
	case *discrete:
		return v.sys
	case dynamo.System:
		return v
	}
	return nil
}
