// Package trajectory rolls a controlled system forward from an initial state
// and records a down-sampled path.
package trajectory

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/san-kum/dynprog/internal/dynamo"
)

type Config struct {
	Dt          float64
	Steps       int
	SampleEvery int
}

func DefaultConfig() Config {
	return Config{
		Dt:          0.01,
		Steps:       2000,
		SampleEvery: 10,
	}
}

// Sample is the state after a step together with the control that produced it.
type Sample struct {
	X    float64 `json:"x"`
	V    float64 `json:"v"`
	U    float64 `json:"u"`
	Step int     `json:"step"`
}

type Result struct {
	Samples    []Sample
	Final      dynamo.State
	StepsTaken int
	Metrics    map[string]float64
}

type Simulator struct {
	sys        dynamo.StateTransition
	controller dynamo.Controller
	metrics    []dynamo.Metric
	observers  []dynamo.Observer
	logger     *zap.Logger
}

func New(sys dynamo.StateTransition, controller dynamo.Controller) *Simulator {
	return &Simulator{
		sys:        sys,
		controller: controller,
		metrics:    make([]dynamo.Metric, 0),
		observers:  make([]dynamo.Observer, 0),
		logger:     zap.NewNop(),
	}
}

func (s *Simulator) AddMetric(m dynamo.Metric)     { s.metrics = append(s.metrics, m) }
func (s *Simulator) AddObserver(o dynamo.Observer) { s.observers = append(s.observers, o) }
func (s *Simulator) SetLogger(l *zap.Logger)       { s.logger = l }

// Run applies the controller and advances the state cfg.Steps times. It never
// stops early on reaching the goal. A sample is kept whenever the step index
// is a multiple of cfg.SampleEvery.
func (s *Simulator) Run(ctx context.Context, x0 dynamo.State, cfg Config) (*Result, error) {
	if err := s.validateConfig(x0, cfg); err != nil {
		return nil, err
	}

	result := &Result{
		Samples: make([]Sample, 0, cfg.Steps/cfg.SampleEvery+1),
		Metrics: make(map[string]float64),
	}

	for _, m := range s.metrics {
		m.Reset()
	}

	x := x0.Clone()
	t := 0.0

	for i := 0; i < cfg.Steps; i++ {
		select {
		case <-ctx.Done():
			result.Final = x
			return result, ctx.Err()
		default:
		}

		u := s.controller.Compute(x, t)

		for _, m := range s.metrics {
			m.Observe(x, u, t)
		}
		for _, obs := range s.observers {
			obs.OnStep(x, u, t)
		}

		next := s.sys.Next(x, cfg.Dt, u)
		if !next.IsValid() {
			result.Final = x
			return result, &dynamo.SimulationError{Step: i, Time: t, State: x, Wrapped: dynamo.ErrInvalidState}
		}

		x = next
		t += cfg.Dt
		result.StepsTaken++

		if i%cfg.SampleEvery == 0 {
			result.Samples = append(result.Samples, Sample{X: x[0], V: x[1], U: u, Step: i})
		}
	}

	result.Final = x
	for _, m := range s.metrics {
		result.Metrics[m.Name()] = m.Value()
	}

	s.logger.Debug("trajectory finished",
		zap.Int("steps", result.StepsTaken),
		zap.Int("samples", len(result.Samples)),
		zap.Float64s("final", x),
	)
	return result, nil
}

func (s *Simulator) validateConfig(x0 dynamo.State, cfg Config) error {
	if cfg.Dt <= 0 {
		return fmt.Errorf("dt must be positive, got %f", cfg.Dt)
	}
	if cfg.Steps < 0 {
		return fmt.Errorf("steps must not be negative, got %d", cfg.Steps)
	}
	if cfg.SampleEvery < 1 {
		return fmt.Errorf("sample every must be at least 1, got %d", cfg.SampleEvery)
	}
	if len(x0) != 2 {
		return fmt.Errorf("initial state has %d components, want 2: %w", len(x0), dynamo.ErrDimensionMismatch)
	}
	if !x0.IsValid() {
		return fmt.Errorf("initial state %v: %w", x0, dynamo.ErrInvalidState)
	}
	return nil
}
