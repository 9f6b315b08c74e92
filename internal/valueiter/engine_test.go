package valueiter

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/san-kum/dynprog/internal/cost"
	"github.com/san-kum/dynprog/internal/dynamics"
	"github.com/san-kum/dynprog/internal/dynamo"
	"github.com/san-kum/dynprog/internal/grid"
)

func newTestEngine(t *testing.T, nx, ny int, cfg Config, opts ...Option) *Engine {
	t.Helper()
	g, err := grid.New(nx, ny, 10, 5)
	if err != nil {
		t.Fatal(err)
	}
	e, err := New(cfg, g, dynamics.NewDoubleIntegrator(), cost.NewMinimumTime(g), opts...)
	if err != nil {
		t.Fatal(err)
	}
	return e
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{"default", func(c *Config) {}, false},
		{"no controls", func(c *Config) { c.Controls = nil }, true},
		{"zero dt", func(c *Config) { c.Dt = 0 }, true},
		{"gamma one", func(c *Config) { c.Gamma = 1 }, true},
		{"gamma zero", func(c *Config) { c.Gamma = 0 }, true},
		{"zero tolerance", func(c *Config) { c.Tolerance = 0 }, true},
		{"no iterations", func(c *Config) { c.MaxIterations = 0 }, true},
		{"negative log every", func(c *Config) { c.LogEvery = -1 }, true},
		{"serial", func(c *Config) { c.Workers = 0 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Gamma != 0.999 || cfg.Tolerance != 0.1 || cfg.Dt != 0.01 || cfg.MaxIterations != 5000 {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if len(cfg.Controls) != 3 || cfg.Controls[0] != -1 || cfg.Controls[2] != 1 {
		t.Errorf("controls = %v", cfg.Controls)
	}
}

func TestInitialization(t *testing.T) {
	e := newTestEngine(t, 5, 5, DefaultConfig())

	if e.Phase() != PhaseSweeping {
		t.Errorf("phase = %v, want sweeping", e.Phase())
	}
	if !math.IsInf(e.Norm(), 1) {
		t.Errorf("initial norm = %v, want +Inf", e.Norm())
	}

	terminal := cost.TerminalField(e.Grid())
	for i, v := range e.Cost().Values() {
		if v != terminal.AtIndex(i) {
			t.Fatalf("cell %d = %v, want terminal %v", i, v, terminal.AtIndex(i))
		}
		if e.Control().AtIndex(i) != 0 {
			t.Fatalf("control %d not zeroed", i)
		}
	}

	d := dynamics.NewDoubleIntegrator()
	for i := 0; i < e.Grid().Cells(); i++ {
		for k, u := range e.Config().Controls {
			want := d.Next(e.Grid().Coordinates(i), 0.01, u)
			got := e.Successor(k, i)
			if got[0] != want[0] || got[1] != want[1] {
				t.Fatalf("successor(%d, %d) = %v, want %v", k, i, got, want)
			}
		}
	}
}

func TestTransitionMatchesLookup(t *testing.T) {
	e := newTestEngine(t, 11, 9, DefaultConfig())
	policy := cost.NewMinimumTime(e.Grid())

	// a non-trivial field so every stencil weight matters
	f := grid.Init(e.Grid(), func(x, y int) float64 { return float64(x*x + 3*y) })

	for k, u := range e.Config().Controls {
		for i := 0; i < e.Grid().Cells(); i++ {
			succ := e.Successor(k, i)
			want := policy.StepCost(succ, u) + 0.999*e.Grid().Lookup(succ, f)
			tr := e.table[k][i]
			got := tr.cost + 0.999*tr.eval(f.Values())
			if got != want {
				t.Fatalf("k=%d cell=%d: table %v, lookup %v", k, i, got, want)
			}
		}
	}
}

func TestSingleSweepReadsPreviousField(t *testing.T) {
	e := newTestEngine(t, 7, 7, DefaultConfig())
	g := e.Grid()
	policy := cost.NewMinimumTime(g)
	terminal := cost.TerminalField(g)

	norm, err := e.Step(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	want := g.NewField(0)
	for i := 0; i < g.Cells(); i++ {
		best := math.Inf(1)
		for k, u := range e.Config().Controls {
			succ := e.Successor(k, i)
			if v := policy.StepCost(succ, u) + 0.999*g.Lookup(succ, terminal); v < best {
				best = v
			}
		}
		want.SetIndex(i, best)
	}

	for i := 0; i < g.Cells(); i++ {
		if e.Cost().AtIndex(i) != want.AtIndex(i) {
			t.Fatalf("cell %d = %v, want %v", i, e.Cost().AtIndex(i), want.AtIndex(i))
		}
	}
	if got := MaxNorm(want.Values(), terminal.Values()); got != norm {
		t.Errorf("norm = %v, want %v", norm, got)
	}
	if e.Iterations() != 1 {
		t.Errorf("iterations = %d", e.Iterations())
	}
}

func TestRunConverges(t *testing.T) {
	cfg := DefaultConfig()
	e := newTestEngine(t, 21, 21, cfg)

	res, err := e.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !res.Converged || res.Phase != PhaseConverged {
		t.Fatalf("did not converge: phase=%v norm=%v after %d", res.Phase, res.Norm, res.Iterations)
	}
	if res.Norm > cfg.Tolerance {
		t.Errorf("norm %v above tolerance", res.Norm)
	}
	if len(res.Norms) != res.Iterations {
		t.Errorf("norms len %d, iterations %d", len(res.Norms), res.Iterations)
	}

	// the Bellman update is a gamma-contraction in the max norm
	for i := 1; i < len(res.Norms); i++ {
		if res.Norms[i] > res.Norms[i-1]+1e-9 {
			t.Fatalf("norm grew at sweep %d: %v -> %v", i+1, res.Norms[i-1], res.Norms[i])
		}
	}

	for i, u := range res.Control.Values() {
		if u != -1 && u != 0 && u != 1 {
			t.Fatalf("control %d = %v not in control set", i, u)
		}
	}
	for i, v := range res.Cost.Values() {
		if v < 0 || v > 1/(1-cfg.Gamma) {
			t.Fatalf("cost %d = %v outside [0, 1/(1-gamma)]", i, v)
		}
	}
}

func TestRunBudgetExhausted(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxIterations = 10
	e := newTestEngine(t, 9, 9, cfg)

	res, err := e.Run(context.Background())
	if err != nil {
		t.Fatalf("budget exhaustion must not be an error: %v", err)
	}
	if res.Converged || res.Phase != PhaseBudgetExhausted || res.Iterations != 10 {
		t.Errorf("got phase=%v converged=%v iterations=%d", res.Phase, res.Converged, res.Iterations)
	}

	// further steps are no-ops
	if _, err := e.Step(context.Background()); err != nil || e.Iterations() != 10 {
		t.Errorf("step after budget: err=%v iterations=%d", err, e.Iterations())
	}
}

func TestRunCancelled(t *testing.T) {
	e := newTestEngine(t, 9, 9, DefaultConfig())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := e.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if res == nil || res.Iterations != 0 {
		t.Errorf("expected empty partial result, got %+v", res)
	}
}

func TestParallelMatchesSerial(t *testing.T) {
	serialCfg := DefaultConfig()
	serialCfg.Workers = 1
	serialCfg.MaxIterations = 50
	parallelCfg := serialCfg
	parallelCfg.Workers = 8

	serial, err := newTestEngine(t, 41, 41, serialCfg).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	parallel, err := newTestEngine(t, 41, 41, parallelCfg).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if MaxNorm(serial.Cost.Values(), parallel.Cost.Values()) != 0 {
		t.Error("parallel cost field differs from serial")
	}
	if MaxNorm(serial.Control.Values(), parallel.Control.Values()) != 0 {
		t.Error("parallel control field differs from serial")
	}
}

func TestAbortedSweepLeavesFieldsUntouched(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Workers = 4
	e := newTestEngine(t, 41, 41, cfg)
	for i := 0; i < 3; i++ {
		if _, err := e.Step(context.Background()); err != nil {
			t.Fatal(err)
		}
	}
	costBefore := e.Cost().Clone()
	controlBefore := e.Control().Clone()

	// one chunk finishes before cancellation reaches the others
	chunks := dynamo.Partition(e.Grid().Cells(), cfg.Workers, minChunk)
	if len(chunks) < 2 {
		t.Fatalf("expected several chunks, got %d", len(chunks))
	}
	e.sweep(chunks[0])

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := e.Step(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}

	if MaxNorm(e.Cost().Values(), costBefore.Values()) != 0 {
		t.Error("aborted sweep changed the cost field")
	}
	if MaxNorm(e.Control().Values(), controlBefore.Values()) != 0 {
		t.Error("aborted sweep changed the control field")
	}
	res := e.Result()
	if res.Iterations != 3 || MaxNorm(res.Control.Values(), controlBefore.Values()) != 0 {
		t.Errorf("partial result mixes sweeps: iterations=%d", res.Iterations)
	}

	ref := newTestEngine(t, 41, 41, cfg)
	for i := 0; i < 4; i++ {
		if _, err := ref.Step(context.Background()); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := e.Step(context.Background()); err != nil {
		t.Fatal(err)
	}
	if MaxNorm(e.Cost().Values(), ref.Cost().Values()) != 0 {
		t.Error("cost after resuming differs from an uninterrupted run")
	}
	if MaxNorm(e.Control().Values(), ref.Control().Values()) != 0 {
		t.Error("control after resuming differs from an uninterrupted run")
	}
}

type constantCost struct{}

func (constantCost) StepCost(next dynamo.State, u float64) float64 { return 1 }

type frozen struct{}

func (frozen) Next(x dynamo.State, dt, u float64) dynamo.State { return x.Clone() }

func TestTiesKeepFirstControl(t *testing.T) {
	g, _ := grid.New(5, 5, 10, 5)
	cfg := DefaultConfig()
	cfg.Controls = []float64{0.5, -1, 2}

	e, err := New(cfg, g, frozen{}, constantCost{})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := e.Step(context.Background()); err != nil {
		t.Fatal(err)
	}
	for i, u := range e.Control().Values() {
		if u != 0.5 {
			t.Fatalf("control %d = %v, want first control 0.5", i, u)
		}
	}
}

type exploding struct{}

func (exploding) Next(x dynamo.State, dt, u float64) dynamo.State {
	return dynamo.State{math.NaN(), x[1]}
}

func TestInvalidSuccessor(t *testing.T) {
	g, _ := grid.New(5, 5, 10, 5)
	_, err := New(DefaultConfig(), g, exploding{}, constantCost{})
	if !errors.Is(err, dynamo.ErrInvalidState) {
		t.Errorf("err = %v, want ErrInvalidState", err)
	}
}

func TestTerminalMismatch(t *testing.T) {
	g, _ := grid.New(5, 5, 10, 5)
	other, _ := grid.New(4, 4, 10, 5)
	_, err := New(DefaultConfig(), g, frozen{}, constantCost{}, WithTerminal(other.NewField(0)))
	if !errors.Is(err, dynamo.ErrDimensionMismatch) {
		t.Errorf("err = %v, want ErrDimensionMismatch", err)
	}
}

func TestObserverErrorStopsRun(t *testing.T) {
	boom := errors.New("boom")
	seen := 0
	obs := SweepFunc(func(s Sweep) error {
		seen++
		if s.Iteration == 3 {
			return boom
		}
		return nil
	})
	e := newTestEngine(t, 5, 5, DefaultConfig(), WithObserver(obs))

	res, err := e.Run(context.Background())
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want boom", err)
	}
	if seen != 3 || res.Iterations != 3 {
		t.Errorf("seen=%d iterations=%d", seen, res.Iterations)
	}
}

func TestMaxNorm(t *testing.T) {
	if got := MaxNorm([]float64{1, 2, 3}, []float64{1, 4, 2.5}); got != 2 {
		t.Errorf("MaxNorm = %v, want 2", got)
	}
	if got := MaxNorm(nil, nil); got != 0 {
		t.Errorf("MaxNorm(empty) = %v", got)
	}
}

func TestPhaseString(t *testing.T) {
	for p, want := range map[Phase]string{
		PhaseInitializing:    "initializing",
		PhaseSweeping:        "sweeping",
		PhaseConverged:       "converged",
		PhaseBudgetExhausted: "budget_exhausted",
	} {
		if p.String() != want {
			t.Errorf("%d.String() = %q, want %q", p, p.String(), want)
		}
	}
}
