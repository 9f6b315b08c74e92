// Package experiment wires a config into a grid, a solver and a rollout.
package experiment

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/san-kum/dynprog/internal/config"
	"github.com/san-kum/dynprog/internal/dynamo"
	"github.com/san-kum/dynprog/internal/grid"
	"github.com/san-kum/dynprog/internal/trajectory"
	"github.com/san-kum/dynprog/internal/valueiter"
)

type Experiment struct {
	cfg       *config.Config
	registry  *Registry
	logger    *zap.Logger
	observers []valueiter.SweepObserver

	grid   *grid.Grid
	sys    dynamo.StateTransition
	policy dynamo.StepCostPolicy
	engine *valueiter.Engine
}

type Option func(*Experiment)

func WithLogger(l *zap.Logger) Option {
	return func(e *Experiment) { e.logger = l }
}

func WithSweepObserver(o valueiter.SweepObserver) Option {
	return func(e *Experiment) { e.observers = append(e.observers, o) }
}

// Outcome is a solved run followed by its rollout.
type Outcome struct {
	Solve      *valueiter.Result
	Trajectory *trajectory.Result
}

// New validates cfg and builds the grid, dynamics, step cost and engine.
func New(cfg *config.Config, opts ...Option) (*Experiment, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	e := &Experiment{
		cfg:      cfg,
		registry: NewRegistry(),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}

	var err error
	if e.grid, err = cfg.NewGrid(); err != nil {
		return nil, err
	}
	if e.sys, err = e.registry.GetTransition(cfg.System, cfg.Integrator, cfg.SystemParams); err != nil {
		return nil, err
	}
	if e.policy, err = e.registry.GetCost(cfg.Cost.Name, e.grid, cfg.Cost); err != nil {
		return nil, err
	}

	engineOpts := []valueiter.Option{valueiter.WithLogger(e.logger)}
	for _, o := range e.observers {
		engineOpts = append(engineOpts, valueiter.WithObserver(o))
	}
	if e.engine, err = valueiter.New(cfg.ValueIter(), e.grid, e.sys, e.policy, engineOpts...); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *Experiment) Config() *config.Config         { return e.cfg }
func (e *Experiment) Grid() *grid.Grid               { return e.grid }
func (e *Experiment) Engine() *valueiter.Engine      { return e.engine }
func (e *Experiment) Registry() *Registry            { return e.registry }
func (e *Experiment) System() dynamo.StateTransition { return e.sys }

// Solve runs value iteration to convergence or budget.
func (e *Experiment) Solve(ctx context.Context) (*valueiter.Result, error) {
	return e.engine.Run(ctx)
}

// Simulate rolls out the configured controller from the configured initial
// state. controlField is required only by the field controller.
func (e *Experiment) Simulate(ctx context.Context, controlField *grid.Field) (*trajectory.Result, error) {
	return e.SimulateFrom(ctx, controlField, e.cfg.InitState())
}

// SimulateFrom is Simulate starting at x0.
func (e *Experiment) SimulateFrom(ctx context.Context, controlField *grid.Field, x0 dynamo.State) (*trajectory.Result, error) {
	ctrl, err := e.registry.GetController(e.cfg.Controller.Name, ControllerParams{
		Config: e.cfg.Controller,
		Field:  controlField,
	})
	if err != nil {
		return nil, err
	}

	sim := trajectory.New(e.sys, ctrl)
	sim.SetLogger(e.logger)
	for _, m := range e.registry.DefaultMetrics(e.grid, e.sys) {
		sim.AddMetric(m)
	}
	return sim.Run(ctx, x0, e.cfg.Rollout())
}

// Run solves, then simulates with the solved control field. A cancelled
// solve still returns its partial result.
func (e *Experiment) Run(ctx context.Context) (*Outcome, error) {
	res, err := e.Solve(ctx)
	out := &Outcome{Solve: res}
	if err != nil {
		return out, err
	}

	e.logger.Info("solved",
		zap.Int("iterations", res.Iterations),
		zap.Float64("norm", res.Norm),
		zap.Bool("converged", res.Converged),
	)

	if out.Trajectory, err = e.Simulate(ctx, res.Control); err != nil {
		return out, err
	}
	return out, nil
}
