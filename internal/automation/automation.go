// Package automation runs batches of solves: YAML scenarios, parameter
// sweeps over a solver setting and Monte Carlo rollouts of one solved
// policy from perturbed initial states.
package automation

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/dynprog/internal/config"
	"github.com/san-kum/dynprog/internal/dynamo"
	"github.com/san-kum/dynprog/internal/experiment"
	"github.com/san-kum/dynprog/internal/storage"
)

// Scenario is a named list of runs.
type Scenario struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Runs        []Run  `yaml:"runs"`
}

// Run starts from a preset (reference when empty) and decodes Overrides on
// top of it, so only the keys present change:
//
//	- name: gamma-99
//	  preset: small
//	  overrides:
//	    solver: {gamma: 0.99}
type Run struct {
	Name      string    `yaml:"name"`
	Preset    string    `yaml:"preset"`
	Overrides yaml.Node `yaml:"overrides"`
}

// Config resolves the run's preset and overrides.
func (r Run) Config() (*config.Config, error) {
	preset := r.Preset
	if preset == "" {
		preset = "reference"
	}
	cfg := config.GetPreset(preset)
	if cfg == nil {
		return nil, fmt.Errorf("unknown preset: %s", preset)
	}
	if !r.Overrides.IsZero() {
		if err := r.Overrides.Decode(cfg); err != nil {
			return nil, fmt.Errorf("overrides: %w", err)
		}
	}
	return cfg, nil
}

func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, fmt.Errorf("parse scenario %s: %w", path, err)
	}
	if len(scenario.Runs) == 0 {
		return nil, fmt.Errorf("scenario %s has no runs", path)
	}
	return &scenario, nil
}

// Report is the outcome of one scenario run.
type Report struct {
	Name       string
	RunID      string
	Iterations int
	Norm       float64
	Converged  bool
	Metrics    map[string]float64
}

type Runner struct {
	logger *zap.Logger
	store  *storage.Store
}

// NewRunner returns a runner that logs to logger and, when store is not
// nil, saves every scenario run.
func NewRunner(logger *zap.Logger, store *storage.Store) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{logger: logger, store: store}
}

// RunScenario solves and simulates every run in order. It stops at the
// first failing run and returns the reports gathered so far.
func (r *Runner) RunScenario(ctx context.Context, scenario *Scenario) ([]Report, error) {
	reports := make([]Report, 0, len(scenario.Runs))

	for i, run := range scenario.Runs {
		name := run.Name
		if name == "" {
			name = fmt.Sprintf("run-%d", i+1)
		}
		r.logger.Info("scenario run", zap.String("scenario", scenario.Name), zap.String("run", name),
			zap.Int("index", i+1), zap.Int("of", len(scenario.Runs)))

		cfg, err := run.Config()
		if err != nil {
			return reports, fmt.Errorf("run %s: %w", name, err)
		}
		exp, err := experiment.New(cfg, experiment.WithLogger(r.logger))
		if err != nil {
			return reports, fmt.Errorf("run %s: %w", name, err)
		}
		out, err := exp.Run(ctx)
		if err != nil {
			return reports, fmt.Errorf("run %s: %w", name, err)
		}

		report := Report{
			Name:       name,
			Iterations: out.Solve.Iterations,
			Norm:       out.Solve.Norm,
			Converged:  out.Solve.Converged,
			Metrics:    out.Trajectory.Metrics,
		}
		if r.store != nil {
			if report.RunID, err = r.store.Save(cfg, out.Solve, out.Trajectory); err != nil {
				return reports, fmt.Errorf("run %s: save: %w", name, err)
			}
		}
		reports = append(reports, report)
	}
	return reports, nil
}

// ParameterSweep solves Base once per value of Param spread evenly over
// [Min, Max]. Param is one of gamma, tolerance, dt or points.
type ParameterSweep struct {
	Base     *config.Config
	Param    string
	Min      float64
	Max      float64
	NumSteps int
}

type SweepResult struct {
	Value      float64
	Iterations int
	Norm       float64
	Converged  bool
	TimeToGoal float64
}

func setSolverParam(cfg *config.Config, name string, v float64) error {
	switch name {
	case "gamma":
		cfg.Solver.Gamma = v
	case "tolerance":
		cfg.Solver.Tolerance = v
	case "dt":
		cfg.Solver.Dt = v
	case "points":
		cfg.Grid.PointsX = int(v)
		cfg.Grid.PointsY = int(v)
	default:
		return fmt.Errorf("unknown sweep parameter: %s", name)
	}
	return nil
}

func (r *Runner) RunSweep(ctx context.Context, sweep *ParameterSweep) ([]SweepResult, error) {
	if sweep.NumSteps < 2 {
		return nil, fmt.Errorf("sweep needs at least 2 steps, got %d", sweep.NumSteps)
	}
	base := sweep.Base
	if base == nil {
		base = config.DefaultConfig()
	}

	results := make([]SweepResult, 0, sweep.NumSteps)
	step := (sweep.Max - sweep.Min) / float64(sweep.NumSteps-1)

	for i := 0; i < sweep.NumSteps; i++ {
		value := sweep.Min + float64(i)*step
		cfg := base.Clone()
		if err := setSolverParam(cfg, sweep.Param, value); err != nil {
			return nil, err
		}

		exp, err := experiment.New(cfg, experiment.WithLogger(r.logger))
		if err != nil {
			return results, fmt.Errorf("%s=%g: %w", sweep.Param, value, err)
		}
		out, err := exp.Run(ctx)
		if err != nil {
			return results, fmt.Errorf("%s=%g: %w", sweep.Param, value, err)
		}

		results = append(results, SweepResult{
			Value:      value,
			Iterations: out.Solve.Iterations,
			Norm:       out.Solve.Norm,
			Converged:  out.Solve.Converged,
			TimeToGoal: out.Trajectory.Metrics["time_to_goal"],
		})
		r.logger.Info("sweep step",
			zap.String("param", sweep.Param),
			zap.Float64("value", value),
			zap.Int("iterations", out.Solve.Iterations),
		)
	}
	return results, nil
}

// MonteCarloConfig rolls out one solve of Base from NumTrials initial
// states drawn uniformly within Perturbation of the configured one.
type MonteCarloConfig struct {
	Base         *config.Config
	Perturbation float64
	NumTrials    int
	Seed         int64
}

type MonteCarloResult struct {
	TrialID    int
	InitState  dynamo.State
	FinalState dynamo.State
	TimeToGoal float64
	Reached    bool
}

func (r *Runner) RunMonteCarlo(ctx context.Context, cfg *MonteCarloConfig) ([]MonteCarloResult, error) {
	base := cfg.Base
	if base == nil {
		base = config.DefaultConfig()
	}
	exp, err := experiment.New(base.Clone(), experiment.WithLogger(r.logger))
	if err != nil {
		return nil, err
	}
	solved, err := exp.Solve(ctx)
	if err != nil {
		return nil, fmt.Errorf("solve: %w", err)
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	if cfg.Seed == 0 {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	x0 := base.InitState()
	results := make([]MonteCarloResult, 0, cfg.NumTrials)
	for trial := 0; trial < cfg.NumTrials; trial++ {
		init := make(dynamo.State, len(x0))
		for i, v := range x0 {
			init[i] = v + (rng.Float64()-0.5)*2*cfg.Perturbation
		}

		traj, err := exp.SimulateFrom(ctx, solved.Control, init)
		if err != nil {
			return results, fmt.Errorf("trial %d: %w", trial, err)
		}

		ttg := traj.Metrics["time_to_goal"]
		results = append(results, MonteCarloResult{
			TrialID:    trial,
			InitState:  init,
			FinalState: traj.Final,
			TimeToGoal: ttg,
			Reached:    ttg >= 0,
		})

		if (trial+1)%10 == 0 {
			r.logger.Info("monte carlo", zap.Int("trials", trial+1), zap.Int("of", cfg.NumTrials))
		}
	}
	return results, nil
}

// MonteCarloStats counts trials that did and did not reach the goal band.
func MonteCarloStats(results []MonteCarloResult) (reached int, missed int) {
	for _, r := range results {
		if r.Reached {
			reached++
		} else {
			missed++
		}
	}
	return
}
