package trajectory

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/san-kum/dynprog/internal/control"
	"github.com/san-kum/dynprog/internal/dynamics"
	"github.com/san-kum/dynprog/internal/dynamo"
	"github.com/san-kum/dynprog/internal/metrics"
)

func TestSampling(t *testing.T) {
	sim := New(dynamics.NewDoubleIntegrator(), control.NewNone())
	res, err := sim.Run(context.Background(), dynamo.State{1, 2}, DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}

	if res.StepsTaken != 2000 {
		t.Errorf("steps taken = %d, want 2000", res.StepsTaken)
	}
	if len(res.Samples) != 200 {
		t.Fatalf("samples = %d, want 200", len(res.Samples))
	}
	for i, s := range res.Samples {
		if s.Step != i*10 {
			t.Fatalf("sample %d has step %d", i, s.Step)
		}
	}

	// the first sample is the state after step 0
	first := res.Samples[0]
	if math.Abs(first.X-1.02) > 1e-12 || first.V != 2 || first.U != 0 {
		t.Errorf("first sample = %+v", first)
	}
	if math.Abs(res.Final[0]-41) > 1e-9 {
		t.Errorf("coasting final x = %v, want 41", res.Final[0])
	}
}

func TestControlRecordedWithSample(t *testing.T) {
	sim := New(dynamics.NewDoubleIntegrator(), control.NewBangBang())
	cfg := Config{Dt: 0.01, Steps: 3, SampleEvery: 1}
	res, err := sim.Run(context.Background(), dynamo.State{-2, -1.5}, cfg)
	if err != nil {
		t.Fatal(err)
	}
	want := []Sample{
		{X: -2.015, V: -1.49, U: 1, Step: 0},
		{X: -2.0299, V: -1.48, U: 1, Step: 1},
	}
	for i, w := range want {
		got := res.Samples[i]
		if math.Abs(got.X-w.X) > 1e-12 || math.Abs(got.V-w.V) > 1e-12 || got.U != w.U || got.Step != w.Step {
			t.Errorf("sample %d = %+v, want %+v", i, got, w)
		}
	}
}

func TestBangBangReachesOrigin(t *testing.T) {
	sim := New(dynamics.NewDoubleIntegrator(), control.NewBangBang())
	sim.AddMetric(metrics.NewTimeToGoal(0.05, 0.05))
	sim.AddMetric(metrics.NewControlEffort())

	res, err := sim.Run(context.Background(), dynamo.State{-2, -1.5}, DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	if res.Final.Norm() > 0.1 {
		t.Errorf("final state %v not near the origin", res.Final)
	}
	if tg := res.Metrics["time_to_goal"]; tg <= 0 || tg >= 20 {
		t.Errorf("time_to_goal = %v", tg)
	}
	if e := res.Metrics["control_effort"]; e <= 0 || e > 1 {
		t.Errorf("control_effort = %v", e)
	}
}

func TestValidateConfig(t *testing.T) {
	sim := New(dynamics.NewDoubleIntegrator(), control.NewNone())
	tests := []struct {
		name string
		x0   dynamo.State
		cfg  Config
		is   error
	}{
		{"zero dt", dynamo.State{0, 0}, Config{Dt: 0, Steps: 1, SampleEvery: 1}, nil},
		{"zero sample", dynamo.State{0, 0}, Config{Dt: 0.01, Steps: 1, SampleEvery: 0}, nil},
		{"short state", dynamo.State{0}, DefaultConfig(), dynamo.ErrDimensionMismatch},
		{"nan state", dynamo.State{math.NaN(), 0}, DefaultConfig(), dynamo.ErrInvalidState},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := sim.Run(context.Background(), tt.x0, tt.cfg)
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.is != nil && !errors.Is(err, tt.is) {
				t.Errorf("err = %v, want %v", err, tt.is)
			}
		})
	}
}

type blowup struct{}

func (blowup) Next(x dynamo.State, dt, u float64) dynamo.State {
	return dynamo.State{x[0] * 1e200, x[1] * 1e200}
}

func TestDivergenceStops(t *testing.T) {
	sim := New(blowup{}, control.NewNone())
	res, err := sim.Run(context.Background(), dynamo.State{1, 1}, DefaultConfig())

	var simErr *dynamo.SimulationError
	if !errors.As(err, &simErr) {
		t.Fatalf("err = %v, want SimulationError", err)
	}
	if !errors.Is(err, dynamo.ErrInvalidState) {
		t.Errorf("err should wrap ErrInvalidState")
	}
	if simErr.Step != 1 || res.StepsTaken != 1 {
		t.Errorf("diverged at step %d after %d steps", simErr.Step, res.StepsTaken)
	}
}

type counter struct{ n int }

func (c *counter) OnStep(x dynamo.State, u float64, t float64) { c.n++ }

func TestCancelledRun(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	obs := &counter{}
	sim := New(dynamics.NewDoubleIntegrator(), control.NewNone())
	sim.AddObserver(obs)

	res, err := sim.Run(ctx, dynamo.State{0, 0}, DefaultConfig())
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v", err)
	}
	if res.StepsTaken != 0 || obs.n != 0 {
		t.Errorf("ran %d steps after cancel", res.StepsTaken)
	}
}
