package config

import (
	"math"
	"sort"
)

var Presets = map[string]*Config{
	"reference": DefaultConfig(),
	"coarse": func() *Config {
		c := DefaultConfig()
		c.Grid = GridConfig{PointsX: 49, PointsY: 49, RangeX: 20, RangeY: 10}
		c.Solver.MaxIterations = 5000
		return c
	}(),
	"small": func() *Config {
		c := DefaultConfig()
		c.Grid = GridConfig{PointsX: 21, PointsY: 21, RangeX: 10, RangeY: 5}
		c.Solver.MaxIterations = 5000
		return c
	}(),
	"lqr": func() *Config {
		c := DefaultConfig()
		c.Grid = GridConfig{PointsX: 49, PointsY: 49, RangeX: 10, RangeY: 5}
		c.Cost.Name = "quadratic"
		c.Solver.MaxIterations = 5000
		return c
	}(),
	"pendulum": func() *Config {
		c := DefaultConfig()
		c.System = "pendulum"
		c.Integrator = "rk4"
		c.Grid = GridConfig{PointsX: 101, PointsY: 101, RangeX: 2 * math.Pi, RangeY: 10}
		c.Solver.Controls = []float64{-5, 0, 5}
		c.Solver.MaxIterations = 5000
		c.Trajectory.InitX = math.Pi / 2
		c.Trajectory.InitV = 0
		return c
	}(),
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(name string) *Config {
	cfg, ok := Presets[name]
	if !ok {
		return nil
	}
	return cfg.Clone()
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
