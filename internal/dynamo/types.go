package dynamo

import (
	"math"
)

// State is a continuous state vector. The reference system uses two
// components: position and velocity.
type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (s State) Norm() float64 {
	sum := 0.0
	for _, v := range s {
		sum += v * v
	}
	return math.Sqrt(sum)
}

func (s State) Add(other State) State {
	result := make(State, len(s))
	for i := range s {
		if i < len(other) {
			result[i] = s[i] + other[i]
		} else {
			result[i] = s[i]
		}
	}
	return result
}

func (s State) Scale(factor float64) State {
	result := make(State, len(s))
	for i := range s {
		result[i] = s[i] * factor
	}
	return result
}

func (s State) Sub(other State) State {
	result := make(State, len(s))
	for i := range s {
		if i < len(other) {
			result[i] = s[i] - other[i]
		} else {
			result[i] = s[i]
		}
	}
	return result
}

// StateTransition advances a state one fixed time step under a scalar control.
type StateTransition interface {
	Next(x State, dt float64, u float64) State
}

// System is a continuous-time model. Discretize it with an [Integrator].
type System interface {
	Derive(x State, u float64) State
	StateDim() int
}

type Integrator interface {
	Step(dyn System, x State, u float64, dt float64) State
}

// StepCostPolicy is the immediate cost of landing in next under control u.
type StepCostPolicy interface {
	StepCost(next State, u float64) float64
}

type Controller interface {
	Compute(x State, t float64) float64
}

type Metric interface {
	Name() string
	Observe(x State, u float64, t float64)
	Value() float64
	Reset()
}

type Observer interface {
	OnStep(x State, u float64, t float64)
}

type Configurable interface {
	GetParams() map[string]float64
	SetParam(name string, value float64) error
}

// Hamiltonian systems report their mechanical energy.
type Hamiltonian interface {
	Energy(x State) float64
}
