package metrics

import "github.com/san-kum/dynprog/internal/dynamo"

// Energy is the mean mechanical energy over observed steps. It stays zero for
// systems that are not Hamiltonian.
type Energy struct {
	sys     dynamo.Hamiltonian
	total   float64
	samples int
}

func NewEnergy(sys dynamo.Hamiltonian) *Energy {
	return &Energy{sys: sys}
}

func (e *Energy) Name() string { return "energy" }

func (e *Energy) Observe(x dynamo.State, u float64, t float64) {
	if e.sys == nil {
		return
	}
	e.total += e.sys.Energy(x)
	e.samples++
}

func (e *Energy) Value() float64 {
	if e.samples == 0 {
		return 0
	}
	return e.total / float64(e.samples)
}

func (e *Energy) Reset() {
	e.total = 0
	e.samples = 0
}
