package valueiter

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/san-kum/dynprog/internal/cost"
	"github.com/san-kum/dynprog/internal/dynamo"
	"github.com/san-kum/dynprog/internal/grid"
)

// Engine runs synchronous value iteration over a fixed grid. It is not safe
// for concurrent use; Step fans each sweep out internally.
type Engine struct {
	cfg    Config
	grid   *grid.Grid
	sys    dynamo.StateTransition
	policy dynamo.StepCostPolicy

	logger    *zap.Logger
	observers []SweepObserver
	terminal  *grid.Field

	successors [][]dynamo.State
	table      [][]transition

	current     *grid.Field
	next        *grid.Field
	control     *grid.Field
	nextControl *grid.Field

	iterations int
	norm       float64
	norms      []float64
	phase      Phase
}

type Option func(*Engine)

func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

func WithObserver(o SweepObserver) Option {
	return func(e *Engine) { e.observers = append(e.observers, o) }
}

// WithTerminal replaces the default goal-cell terminal field.
func WithTerminal(f *grid.Field) Option {
	return func(e *Engine) { e.terminal = f }
}

// Result is the outcome of Run. Hitting MaxIterations is not an error; check
// Converged.
type Result struct {
	Cost       *grid.Field
	Control    *grid.Field
	Iterations int
	Norm       float64
	Converged  bool
	Phase      Phase
	Norms      []float64
}

// New initializes the cost field from the terminal field, zeroes the control
// field and precomputes every successor.
func New(cfg Config, g *grid.Grid, sys dynamo.StateTransition, policy dynamo.StepCostPolicy, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid solver config: %w", err)
	}
	if g == nil || sys == nil || policy == nil {
		return nil, fmt.Errorf("grid, dynamics and step cost are required")
	}

	e := &Engine{
		cfg:    cfg,
		grid:   g,
		sys:    sys,
		policy: policy,
		logger: zap.NewNop(),
		norm:   math.Inf(1),
		phase:  PhaseInitializing,
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.terminal == nil {
		e.terminal = cost.TerminalField(g)
	}
	if e.terminal.Len() != g.Cells() {
		return nil, fmt.Errorf("terminal field has %d cells, grid %s has %d: %w",
			e.terminal.Len(), g, g.Cells(), dynamo.ErrDimensionMismatch)
	}

	e.current = e.terminal.Clone()
	e.next = g.NewField(0)
	e.control = g.NewField(0)
	e.nextControl = g.NewField(0)

	if err := e.buildTables(); err != nil {
		return nil, fmt.Errorf("precompute successors: %w", err)
	}

	e.logger.Debug("value iteration initialized",
		zap.Stringer("grid", g),
		zap.Int("controls", len(cfg.Controls)),
		zap.Float64("gamma", cfg.Gamma),
		zap.Float64("tolerance", cfg.Tolerance),
	)
	e.phase = PhaseSweeping
	return e, nil
}

func (e *Engine) Grid() *grid.Grid     { return e.grid }
func (e *Engine) Config() Config       { return e.cfg }
func (e *Engine) Phase() Phase         { return e.phase }
func (e *Engine) Iterations() int      { return e.iterations }
func (e *Engine) Norm() float64        { return e.norm }
func (e *Engine) Norms() []float64     { return e.norms }
func (e *Engine) Cost() *grid.Field    { return e.current }
func (e *Engine) Control() *grid.Field { return e.control }

// Successor is the precomputed state reached from cell under control k.
func (e *Engine) Successor(k, cell int) dynamo.State {
	return e.successors[k][cell]
}

// Done reports whether the engine reached a terminal phase.
func (e *Engine) Done() bool {
	return e.phase.Done()
}

// Step performs one full sweep and returns the max-norm change. Each cell
// reads only the previous sweep's field. On error the cost and control
// fields are left unchanged.
func (e *Engine) Step(ctx context.Context) (float64, error) {
	if e.phase.Done() {
		return e.norm, nil
	}

	chunks := dynamo.Partition(e.grid.Cells(), e.cfg.Workers, minChunk)
	norms := make([]float64, len(chunks))

	if len(chunks) == 1 {
		if err := ctx.Err(); err != nil {
			return e.norm, err
		}
		norms[0] = e.sweep(chunks[0])
	} else {
		group, gctx := errgroup.WithContext(ctx)
		for n, chunk := range chunks {
			n, chunk := n, chunk
			group.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				norms[n] = e.sweep(chunk)
				return nil
			})
		}
		if err := group.Wait(); err != nil {
			return e.norm, err
		}
	}

	norm := 0.0
	for _, n := range norms {
		norm = math.Max(norm, n)
	}
	e.current.CopyFrom(e.next)
	e.control.CopyFrom(e.nextControl)

	e.iterations++
	e.norm = norm
	e.norms = append(e.norms, norm)

	switch {
	case norm <= e.cfg.Tolerance:
		e.phase = PhaseConverged
	case e.iterations >= e.cfg.MaxIterations:
		e.phase = PhaseBudgetExhausted
	}

	if e.cfg.LogEvery > 0 && e.iterations%e.cfg.LogEvery == 0 {
		e.logger.Debug("sweep",
			zap.Int("iteration", e.iterations),
			zap.Float64("norm", norm),
		)
	}

	sweep := Sweep{
		Iteration: e.iterations,
		Norm:      norm,
		Phase:     e.phase,
		Cost:      e.current,
		Control:   e.control,
	}
	for _, obs := range e.observers {
		if err := obs.OnSweep(sweep); err != nil {
			return norm, fmt.Errorf("sweep observer at iteration %d: %w", e.iterations, err)
		}
	}

	return norm, nil
}

// sweep updates cells in chunk and returns their largest change. Strict <
// keeps the first control on ties.
func (e *Engine) sweep(chunk dynamo.Chunk) float64 {
	cur := e.current.Values()
	next := e.next.Values()
	ctrl := e.nextControl.Values()
	gamma := e.cfg.Gamma

	maxDiff := 0.0
	for i := chunk.Start; i < chunk.End; i++ {
		t := &e.table[0][i]
		best := t.cost + gamma*t.eval(cur)
		bestU := e.cfg.Controls[0]

		for k := 1; k < len(e.cfg.Controls); k++ {
			t = &e.table[k][i]
			if v := t.cost + gamma*t.eval(cur); v < best {
				best = v
				bestU = e.cfg.Controls[k]
			}
		}

		next[i] = best
		ctrl[i] = bestU
		maxDiff = math.Max(maxDiff, math.Abs(best-cur[i]))
	}
	return maxDiff
}

// Run sweeps until the change drops to Tolerance or MaxIterations is spent.
// On cancellation it returns the partial result together with ctx.Err().
func (e *Engine) Run(ctx context.Context) (*Result, error) {
	for !e.phase.Done() {
		select {
		case <-ctx.Done():
			return e.Result(), ctx.Err()
		default:
		}

		if _, err := e.Step(ctx); err != nil {
			return e.Result(), err
		}
	}

	e.logger.Info("value iteration finished",
		zap.Int("iterations", e.iterations),
		zap.Float64("norm", e.norm),
		zap.Stringer("phase", e.phase),
	)
	return e.Result(), nil
}

// Result snapshots the current fields.
func (e *Engine) Result() *Result {
	norms := make([]float64, len(e.norms))
	copy(norms, e.norms)
	return &Result{
		Cost:       e.current.Clone(),
		Control:    e.control.Clone(),
		Iterations: e.iterations,
		Norm:       e.norm,
		Converged:  e.phase == PhaseConverged,
		Phase:      e.phase,
		Norms:      norms,
	}
}

// MaxNorm is max_i |a[i] - b[i]| over equal-length slices.
func MaxNorm(a, b []float64) float64 {
	norm := 0.0
	for i := range a {
		norm = math.Max(norm, math.Abs(a[i]-b[i]))
	}
	return norm
}
