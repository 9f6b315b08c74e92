package experiment

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/san-kum/dynprog/internal/config"
	"github.com/san-kum/dynprog/internal/control"
	"github.com/san-kum/dynprog/internal/cost"
	"github.com/san-kum/dynprog/internal/dynamics"
	"github.com/san-kum/dynprog/internal/dynamo"
	"github.com/san-kum/dynprog/internal/grid"
	"github.com/san-kum/dynprog/internal/valueiter"
)

func TestRegistryLookups(t *testing.T) {
	r := NewRegistry()

	if _, err := r.GetSystem("double_integrator"); err != nil {
		t.Errorf("double_integrator: %v", err)
	}
	if _, err := r.GetSystem("cartpole"); err == nil || !strings.Contains(err.Error(), "unknown system") {
		t.Errorf("expected unknown system error, got %v", err)
	}
	if _, err := r.GetIntegrator("rk45"); err == nil {
		t.Error("expected unknown integrator error")
	}
	if _, err := r.GetController("field", ControllerParams{}); err == nil {
		t.Error("field controller without a field should fail")
	}
	if _, err := r.GetCost("quadratic", nil, config.CostConfig{Qx: -1}); err == nil {
		t.Error("negative quadratic weight should fail")
	}

	want := map[string][]string{
		"systems":     {"double_integrator", "pendulum"},
		"integrators": {"euler", "rk4", "verlet"},
		"costs":       {"min_time", "quadratic"},
		"controllers": {"bang_bang", "field", "lqr", "none", "pid"},
	}
	got := map[string][]string{
		"systems":     r.ListSystems(),
		"integrators": r.ListIntegrators(),
		"costs":       r.ListCosts(),
		"controllers": r.ListControllers(),
	}
	for kind, names := range want {
		if strings.Join(got[kind], ",") != strings.Join(names, ",") {
			t.Errorf("%s = %v, want %v", kind, got[kind], names)
		}
	}
}

func TestGetTransition(t *testing.T) {
	r := NewRegistry()

	st, err := r.GetTransition("double_integrator", "euler", nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := st.(*dynamics.DoubleIntegrator); !ok {
		t.Errorf("euler double integrator should use the closed form, got %T", st)
	}

	st, err = r.GetTransition("pendulum", "rk4", nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := dynamics.Unwrap(st).(*dynamics.Pendulum); !ok {
		t.Errorf("expected discretized pendulum, got %T", st)
	}
}

func TestRegistryAppliesParams(t *testing.T) {
	r := NewRegistry()

	st, err := r.GetTransition("pendulum", "rk4", map[string]float64{"damping": 0.3, "length": 2})
	if err != nil {
		t.Fatal(err)
	}
	p := dynamics.Unwrap(st).(*dynamics.Pendulum)
	if p.Damping != 0.3 || p.Length != 2 {
		t.Errorf("pendulum params not applied: %+v", p)
	}

	policy, err := r.GetCost("quadratic", nil, config.CostConfig{Qx: 1, Qv: 1, R: 1, Params: map[string]float64{"r": 4}})
	if err != nil {
		t.Fatal(err)
	}
	if q := policy.(*cost.Quadratic); q.R != 4 {
		t.Errorf("quadratic r = %v, want 4", q.R)
	}

	ctrl, err := r.GetController("bang_bang", ControllerParams{
		Config: config.ControllerConfig{Params: map[string]float64{"max": 0.5}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if b := ctrl.(*control.BangBang); b.Max != 0.5 || b.DeadBand != 1e-4 {
		t.Errorf("bang-bang params = %+v", b)
	}
}

func TestRegistryRejectsBadParams(t *testing.T) {
	r := NewRegistry()

	if _, err := r.GetTransition("double_integrator", "euler", map[string]float64{"mass": 2}); err == nil ||
		!strings.Contains(err.Error(), "takes no params") {
		t.Errorf("double integrator params: got %v", err)
	}
	if _, err := r.GetTransition("pendulum", "rk4", map[string]float64{"mass": -1}); !errors.Is(err, dynamo.ErrParameterBounds) {
		t.Errorf("negative mass: got %v", err)
	}
	params := ControllerParams{Config: config.ControllerConfig{Params: map[string]float64{"gain": 1}}}
	if _, err := r.GetController("bang_bang", params); err == nil || !strings.Contains(err.Error(), "unknown param") {
		t.Errorf("unknown key: got %v", err)
	}
	g, err := grid.New(5, 5, 10, 5)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := r.GetCost("min_time", g, config.CostConfig{Params: map[string]float64{"r": 1}}); err == nil {
		t.Error("min_time takes no params")
	}
}

func TestFormatParams(t *testing.T) {
	if got := FormatParams(control.NewBangBang()); got != "dead_band=0.0001 max=1" {
		t.Errorf("FormatParams(bang_bang) = %q", got)
	}
	if got := FormatParams(control.NewNone()); got != "-" {
		t.Errorf("FormatParams(none) = %q", got)
	}
}

func TestNewAppliesSystemParams(t *testing.T) {
	cfg := config.GetPreset("small")
	cfg.System = "pendulum"
	cfg.Integrator = "rk4"
	cfg.SystemParams = map[string]float64{"damping": 0.7}

	exp, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if p := dynamics.Unwrap(exp.System()).(*dynamics.Pendulum); p.Damping != 0.7 {
		t.Errorf("damping = %v, want 0.7", p.Damping)
	}
}

func TestRunSmallPreset(t *testing.T) {
	cfg := config.GetPreset("small")
	cfg.Controller.Name = "bang_bang"

	sweeps := 0
	exp, err := New(cfg, WithSweepObserver(valueiter.SweepFunc(func(valueiter.Sweep) error {
		sweeps++
		return nil
	})))
	if err != nil {
		t.Fatal(err)
	}

	out, err := exp.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !out.Solve.Converged {
		t.Errorf("small preset did not converge: %+v", out.Solve.Phase)
	}
	if sweeps != out.Solve.Iterations {
		t.Errorf("observer saw %d sweeps, engine ran %d", sweeps, out.Solve.Iterations)
	}
	if len(out.Trajectory.Samples) != 200 {
		t.Errorf("samples = %d, want 200", len(out.Trajectory.Samples))
	}
	for _, name := range []string{"control_effort", "goal_dwell", "time_to_goal", "in_bounds", "energy"} {
		if _, ok := out.Trajectory.Metrics[name]; !ok {
			t.Errorf("missing metric %s", name)
		}
	}
}

func TestSimulateWithFieldPolicy(t *testing.T) {
	cfg := config.GetPreset("small")
	cfg.Solver.MaxIterations = 5

	exp, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	res, err := exp.Solve(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	traj, err := exp.Simulate(context.Background(), res.Control)
	if err != nil {
		t.Fatal(err)
	}
	for _, s := range traj.Samples {
		if s.U < -1 || s.U > 1 {
			t.Fatalf("interpolated control %v outside the control hull", s.U)
		}
	}
}

func TestFieldPolicyHoldsGoal(t *testing.T) {
	cfg := config.GetPreset("small")
	cfg.Trajectory.SampleEvery = 1

	exp, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	res, err := exp.Solve(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !res.Converged {
		t.Fatalf("small preset did not converge: %v", res.Phase)
	}
	goal := cost.NewMinimumTime(exp.Grid())

	traj, err := exp.SimulateFrom(context.Background(), res.Control, dynamo.State{0, 0})
	if err != nil {
		t.Fatal(err)
	}
	if len(traj.Samples) != cfg.Trajectory.Steps {
		t.Fatalf("samples = %d, want %d", len(traj.Samples), cfg.Trajectory.Steps)
	}
	for _, s := range traj.Samples {
		if !goal.InGoal(dynamo.State{s.X, s.V}) {
			t.Fatalf("left the goal band at step %d: (%v, %v)", s.Step, s.X, s.V)
		}
	}

	traj, err = exp.Simulate(context.Background(), res.Control)
	if err != nil {
		t.Fatal(err)
	}
	last := traj.Samples[len(traj.Samples)-1]
	if !goal.InGoal(dynamo.State{last.X, last.V}) {
		t.Errorf("rollout from %v ended outside the goal band at (%v, %v)", cfg.InitState(), last.X, last.V)
	}
}

func TestNewRejectsUnknownNames(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*config.Config)
	}{
		{"system", func(c *config.Config) { c.System = "lorenz" }},
		{"integrator", func(c *config.Config) { c.Integrator = "leapfrog" }},
		{"cost", func(c *config.Config) { c.Cost.Name = "energy" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.GetPreset("small")
			tt.modify(cfg)
			if _, err := New(cfg); err == nil {
				t.Error("expected error")
			}
		})
	}
}
