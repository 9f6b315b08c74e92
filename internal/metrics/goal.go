package metrics

import (
	"math"

	"github.com/san-kum/dynprog/internal/dynamo"
)

// GoalDwell is the fraction of observed steps spent inside the goal band
// |x| < XTol, |v| < VTol.
type GoalDwell struct {
	XTol, VTol float64
	inside     int
	samples    int
}

func NewGoalDwell(xTol, vTol float64) *GoalDwell {
	return &GoalDwell{XTol: xTol, VTol: vTol}
}

func (g *GoalDwell) Name() string { return "goal_dwell" }

func (g *GoalDwell) Observe(x dynamo.State, u float64, t float64) {
	g.samples++
	if inBand(x, g.XTol, g.VTol) {
		g.inside++
	}
}

func (g *GoalDwell) Value() float64 {
	if g.samples == 0 {
		return 0
	}
	return float64(g.inside) / float64(g.samples)
}

func (g *GoalDwell) Reset() {
	g.inside = 0
	g.samples = 0
}

// TimeToGoal records the first time the state enters the goal band, or -1.
type TimeToGoal struct {
	XTol, VTol float64
	reached    bool
	at         float64
}

func NewTimeToGoal(xTol, vTol float64) *TimeToGoal {
	return &TimeToGoal{XTol: xTol, VTol: vTol}
}

func (g *TimeToGoal) Name() string { return "time_to_goal" }

func (g *TimeToGoal) Observe(x dynamo.State, u float64, t float64) {
	if !g.reached && inBand(x, g.XTol, g.VTol) {
		g.reached = true
		g.at = t
	}
}

func (g *TimeToGoal) Value() float64 {
	if !g.reached {
		return -1
	}
	return g.at
}

func (g *TimeToGoal) Reset() {
	g.reached = false
	g.at = 0
}

func inBand(x dynamo.State, xTol, vTol float64) bool {
	return math.Abs(x[0]) < xTol && math.Abs(x[1]) < vTol
}
