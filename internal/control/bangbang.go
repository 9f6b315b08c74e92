package control

import (
	"fmt"
	"math"

	"github.com/san-kum/dynprog/internal/dynamo"
)

const defaultDeadBand = 1e-4

// BangBang is the closed-form minimum-time law for the double integrator.
// The switching curve is v = -sign(x)·sqrt(2|x|); below it the controller
// pushes +Max, above it -Max, and inside the dead band it coasts.
type BangBang struct {
	Max      float64
	DeadBand float64
}

func NewBangBang() *BangBang {
	return &BangBang{Max: 1, DeadBand: defaultDeadBand}
}

// SwitchingSurface returns the velocity of the switching curve at x.
func SwitchingSurface(x float64) float64 {
	return -sign(x) * math.Sqrt(2*math.Abs(x))
}

func (b *BangBang) Compute(x dynamo.State, t float64) float64 {
	surface := SwitchingSurface(x[0])
	switch {
	case x[1] < surface-b.DeadBand:
		return b.Max
	case x[1] > surface+b.DeadBand:
		return -b.Max
	}
	return 0
}

func (b *BangBang) GetParams() map[string]float64 {
	return map[string]float64{
		"max":       b.Max,
		"dead_band": b.DeadBand,
	}
}

func (b *BangBang) SetParam(name string, value float64) error {
	if value < 0 {
		return fmt.Errorf("%s must be non-negative, got %g: %w", name, value, dynamo.ErrParameterBounds)
	}
	switch name {
	case "max":
		b.Max = value
	case "dead_band":
		b.DeadBand = value
	default:
		return fmt.Errorf("unknown param: %s", name)
	}
	return nil
}

func sign(v float64) float64 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}
