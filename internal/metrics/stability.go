package metrics

import (
	"math"

	"github.com/san-kum/dynprog/internal/dynamo"
)

// InBounds is the fraction of observed steps inside the grid domain. Outside
// it the control field lookup clamps, so a low value flags an unreliable run.
type InBounds struct {
	name       string
	halfX      float64
	halfV      float64
	violations int
	samples    int
}

func NewInBounds(rangeX, rangeV float64) *InBounds {
	return &InBounds{
		name:  "in_bounds",
		halfX: rangeX / 2,
		halfV: rangeV / 2,
	}
}

func (s *InBounds) Name() string {
	return s.name
}

func (s *InBounds) Observe(x dynamo.State, u float64, t float64) {
	s.samples++
	if math.Abs(x[0]) > s.halfX || math.Abs(x[1]) > s.halfV {
		s.violations++
	}
}

func (s *InBounds) Value() float64 {
	if s.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(s.violations)/float64(s.samples)
}

func (s *InBounds) Reset() {
	s.violations = 0
	s.samples = 0
}
