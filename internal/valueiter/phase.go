package valueiter

// Phase is the solver lifecycle. Converged and BudgetExhausted are terminal.
type Phase int

const (
	PhaseInitializing Phase = iota
	PhaseSweeping
	PhaseConverged
	PhaseBudgetExhausted
)

func (p Phase) String() string {
	switch p {
	case PhaseInitializing:
		return "initializing"
	case PhaseSweeping:
		return "sweeping"
	case PhaseConverged:
		return "converged"
	case PhaseBudgetExhausted:
		return "budget_exhausted"
	}
	return "unknown"
}

func (p Phase) Done() bool {
	return p == PhaseConverged || p == PhaseBudgetExhausted
}
