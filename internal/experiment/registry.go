package experiment

import (
	"fmt"
	"sort"
	"strings"

	"github.com/san-kum/dynprog/internal/config"
	"github.com/san-kum/dynprog/internal/control"
	"github.com/san-kum/dynprog/internal/cost"
	"github.com/san-kum/dynprog/internal/dynamics"
	"github.com/san-kum/dynprog/internal/dynamo"
	"github.com/san-kum/dynprog/internal/grid"
	"github.com/san-kum/dynprog/internal/integrators"
	"github.com/san-kum/dynprog/internal/metrics"
)

// ControllerParams carries what a controller factory may need: tuning from
// the config and, for the field policy, the solved control field.
type ControllerParams struct {
	Config config.ControllerConfig
	Field  *grid.Field
}

type Registry struct {
	systems     map[string]func() dynamo.System
	integrators map[string]func() dynamo.Integrator
	costs       map[string]func(*grid.Grid, config.CostConfig) (dynamo.StepCostPolicy, error)
	controllers map[string]func(ControllerParams) (dynamo.Controller, error)
}

func NewRegistry() *Registry {
	r := &Registry{
		systems:     make(map[string]func() dynamo.System),
		integrators: make(map[string]func() dynamo.Integrator),
		costs:       make(map[string]func(*grid.Grid, config.CostConfig) (dynamo.StepCostPolicy, error)),
		controllers: make(map[string]func(ControllerParams) (dynamo.Controller, error)),
	}

	r.systems["double_integrator"] = func() dynamo.System { return dynamics.NewDoubleIntegrator() }
	r.systems["pendulum"] = func() dynamo.System { return dynamics.NewPendulum() }

	r.integrators["euler"] = func() dynamo.Integrator { return integrators.NewEuler() }
	r.integrators["rk4"] = func() dynamo.Integrator { return integrators.NewRK4() }
	r.integrators["verlet"] = func() dynamo.Integrator { return integrators.NewVerlet() }

	r.costs["min_time"] = func(g *grid.Grid, _ config.CostConfig) (dynamo.StepCostPolicy, error) {
		return cost.NewMinimumTime(g), nil
	}
	r.costs["quadratic"] = func(_ *grid.Grid, c config.CostConfig) (dynamo.StepCostPolicy, error) {
		return cost.NewQuadratic(c.Qx, c.Qv, c.R)
	}

	r.controllers["field"] = func(p ControllerParams) (dynamo.Controller, error) {
		if p.Field == nil {
			return nil, fmt.Errorf("field controller needs a solved control field")
		}
		return control.NewFieldPolicy(p.Field), nil
	}
	r.controllers["bang_bang"] = func(ControllerParams) (dynamo.Controller, error) {
		return control.NewBangBang(), nil
	}
	r.controllers["lqr"] = func(ControllerParams) (dynamo.Controller, error) {
		return control.NewDoubleIntegratorLQR(), nil
	}
	r.controllers["pid"] = func(p ControllerParams) (dynamo.Controller, error) {
		c := p.Config
		return control.NewPID(c.Kp, c.Ki, c.Kd, c.Target), nil
	}
	r.controllers["none"] = func(ControllerParams) (dynamo.Controller, error) {
		return control.NewNone(), nil
	}

	return r
}

func (r *Registry) GetSystem(name string) (dynamo.System, error) {
	fn, ok := r.systems[name]
	if !ok {
		return nil, fmt.Errorf("unknown system: %s", name)
	}
	return fn(), nil
}

func (r *Registry) GetIntegrator(name string) (dynamo.Integrator, error) {
	fn, ok := r.integrators[name]
	if !ok {
		return nil, fmt.Errorf("unknown integrator: %s", name)
	}
	return fn(), nil
}

// GetTransition builds the discrete step for a system with params applied.
// Systems with their own closed-form step use it when the integrator is euler.
func (r *Registry) GetTransition(system, integrator string, params map[string]float64) (dynamo.StateTransition, error) {
	sys, err := r.GetSystem(system)
	if err != nil {
		return nil, err
	}
	if err := Configure(sys, params); err != nil {
		return nil, fmt.Errorf("system %s: %w", system, err)
	}
	integ, err := r.GetIntegrator(integrator)
	if err != nil {
		return nil, err
	}
	if st, ok := sys.(dynamo.StateTransition); ok && integrator == "euler" {
		return st, nil
	}
	return dynamics.Discretize(sys, integ), nil
}

func (r *Registry) GetCost(name string, g *grid.Grid, cfg config.CostConfig) (dynamo.StepCostPolicy, error) {
	fn, ok := r.costs[name]
	if !ok {
		return nil, fmt.Errorf("unknown cost: %s", name)
	}
	policy, err := fn(g, cfg)
	if err != nil {
		return nil, err
	}
	if err := Configure(policy, cfg.Params); err != nil {
		return nil, fmt.Errorf("cost %s: %w", name, err)
	}
	return policy, nil
}

func (r *Registry) GetController(name string, params ControllerParams) (dynamo.Controller, error) {
	fn, ok := r.controllers[name]
	if !ok {
		return nil, fmt.Errorf("unknown controller: %s", name)
	}
	ctrl, err := fn(params)
	if err != nil {
		return nil, err
	}
	if err := Configure(ctrl, params.Config.Params); err != nil {
		return nil, fmt.Errorf("controller %s: %w", name, err)
	}
	return ctrl, nil
}

// Configure sets params on a dynamo.Configurable component in name order.
// Components that take no params reject a non-empty map.
func Configure(component any, params map[string]float64) error {
	if len(params) == 0 {
		return nil
	}
	c, ok := component.(dynamo.Configurable)
	if !ok {
		return fmt.Errorf("%T takes no params", component)
	}
	for _, name := range sortedKeys(params) {
		if err := c.SetParam(name, params[name]); err != nil {
			return err
		}
	}
	return nil
}

// FormatParams renders a component's current params as "k=v" pairs, or "-".
func FormatParams(component any) string {
	c, ok := component.(dynamo.Configurable)
	if !ok {
		return "-"
	}
	params := c.GetParams()
	pairs := make([]string, 0, len(params))
	for _, name := range sortedKeys(params) {
		pairs = append(pairs, fmt.Sprintf("%s=%g", name, params[name]))
	}
	return strings.Join(pairs, " ")
}

func (r *Registry) ListSystems() []string     { return sortedKeys(r.systems) }
func (r *Registry) ListIntegrators() []string { return sortedKeys(r.integrators) }
func (r *Registry) ListCosts() []string       { return sortedKeys(r.costs) }
func (r *Registry) ListControllers() []string { return sortedKeys(r.controllers) }

// DefaultMetrics are attached to every rollout. The goal band is the
// minimum-time one-cell tolerance.
func (r *Registry) DefaultMetrics(g *grid.Grid, sys dynamo.StateTransition) []dynamo.Metric {
	xTol, vTol := g.X().Tolerance(), g.Y().Tolerance()
	ms := []dynamo.Metric{
		metrics.NewControlEffort(),
		metrics.NewGoalDwell(xTol, vTol),
		metrics.NewTimeToGoal(xTol, vTol),
		metrics.NewInBounds(g.RangeX(), g.RangeY()),
	}
	if h, ok := dynamics.Unwrap(sys).(dynamo.Hamiltonian); ok {
		ms = append(ms, metrics.NewEnergy(h))
	}
	return ms
}

func sortedKeys[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
