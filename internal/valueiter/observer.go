package valueiter

import "github.com/san-kum/dynprog/internal/grid"

// Sweep is the engine state right after one sweep. Cost and Control belong
// to the engine and are overwritten by the next sweep; Clone them to keep.
type Sweep struct {
	Iteration int
	Norm      float64
	Phase     Phase
	Cost      *grid.Field
	Control   *grid.Field
}

type SweepObserver interface {
	OnSweep(s Sweep) error
}

// SweepFunc adapts a plain function to SweepObserver.
type SweepFunc func(s Sweep) error

func (f SweepFunc) OnSweep(s Sweep) error { return f(s) }
