package valueiter

import (
	"fmt"
	"runtime"
)

// Config is the solver's tuning. The zero value is not usable; start from
// DefaultConfig.
type Config struct {
	Controls      []float64
	Dt            float64
	Gamma         float64
	Tolerance     float64
	MaxIterations int
	Workers       int
	// LogEvery emits a debug line every n sweeps; 0 disables it.
	LogEvery int
}

func DefaultConfig() Config {
	return Config{
		Controls:      []float64{-1, 0, 1},
		Dt:            0.01,
		Gamma:         0.999,
		Tolerance:     0.1,
		MaxIterations: 5000,
		Workers:       runtime.NumCPU(),
		LogEvery:      100,
	}
}

func (c Config) Validate() error {
	if len(c.Controls) == 0 {
		return fmt.Errorf("control set must not be empty")
	}
	if c.Dt <= 0 {
		return fmt.Errorf("dt must be positive, got %f", c.Dt)
	}
	if c.Gamma <= 0 || c.Gamma >= 1 {
		return fmt.Errorf("gamma must be in (0, 1), got %f", c.Gamma)
	}
	if c.Tolerance <= 0 {
		return fmt.Errorf("tolerance must be positive, got %f", c.Tolerance)
	}
	if c.MaxIterations < 1 {
		return fmt.Errorf("max iterations must be at least 1, got %d", c.MaxIterations)
	}
	if c.LogEvery < 0 {
		return fmt.Errorf("log every must not be negative, got %d", c.LogEvery)
	}
	return nil
}
