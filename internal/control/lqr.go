package control

import (
	"math"

	"github.com/san-kum/dynprog/internal/dynamo"
)

// LQR is u = -K(x - Target), optionally saturated to ±Limit.
type LQR struct {
	K      []float64
	Target dynamo.State
	Limit  float64
}

func NewLQR(k []float64, target dynamo.State) *LQR {
	return &LQR{K: k, Target: target}
}

var (
	// Q = I, R = 1
	doubleIntegratorGains = []float64{1.0, math.Sqrt(3)}
	pendulumGains         = []float64{31.62, 10.0}
)

func NewDoubleIntegratorLQR() *LQR {
	return NewLQR(doubleIntegratorGains, dynamo.State{0, 0})
}

func NewPendulumLQR() *LQR {
	return NewLQR(pendulumGains, dynamo.State{0, 0})
}

func (l *LQR) Compute(x dynamo.State, t float64) float64 {
	u := 0.0
	for j := range x {
		if j >= len(l.K) {
			break
		}
		target := 0.0
		if j < len(l.Target) {
			target = l.Target[j]
		}
		u -= l.K[j] * (x[j] - target)
	}
	if l.Limit > 0 {
		u = math.Max(-l.Limit, math.Min(l.Limit, u))
	}
	return u
}
