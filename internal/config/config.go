// Package config holds the run configuration: grid, solver, system, cost,
// controller, trajectory and render settings, loaded from YAML with
// environment overrides.
package config

import (
	"bytes"
	"fmt"
	"maps"
	"math"
	"os"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/dynprog/internal/dynamo"
	"github.com/san-kum/dynprog/internal/grid"
	"github.com/san-kum/dynprog/internal/trajectory"
	"github.com/san-kum/dynprog/internal/valueiter"
)

// EnvPrefix scopes environment overrides, e.g. DYNPROG_SOLVER_GAMMA=0.99.
const EnvPrefix = "DYNPROG"

const (
	DefaultPoints     = 199
	DefaultRangeX     = 10.0
	DefaultRangeY     = 5.0
	DefaultDt         = 0.01
	DefaultGamma      = 0.999
	DefaultTolerance  = 0.1
	DefaultIterations = 10000
	DefaultInitX      = -2.0
	DefaultInitV      = -1.5
	DefaultSteps      = 2000
	DefaultSample     = 10
	DefaultKp         = 10.0
	DefaultKi         = 0.1
	DefaultKd         = 5.0
)

type Config struct {
	Grid         GridConfig         `yaml:"grid" json:"grid" mapstructure:"grid"`
	Solver       SolverConfig       `yaml:"solver" json:"solver" mapstructure:"solver"`
	System       string             `yaml:"system" json:"system" mapstructure:"system"`
	SystemParams map[string]float64 `yaml:"system_params,omitempty" json:"system_params,omitempty" mapstructure:"system_params"`
	Integrator   string             `yaml:"integrator" json:"integrator" mapstructure:"integrator"`
	Cost         CostConfig         `yaml:"cost" json:"cost" mapstructure:"cost"`
	Controller   ControllerConfig   `yaml:"controller" json:"controller" mapstructure:"controller"`
	Trajectory   TrajectoryConfig   `yaml:"trajectory" json:"trajectory" mapstructure:"trajectory"`
	Render       RenderConfig       `yaml:"render" json:"render" mapstructure:"render"`
}

type GridConfig struct {
	PointsX int     `yaml:"points_x" json:"points_x" mapstructure:"points_x"`
	PointsY int     `yaml:"points_y" json:"points_y" mapstructure:"points_y"`
	RangeX  float64 `yaml:"range_x" json:"range_x" mapstructure:"range_x"`
	RangeY  float64 `yaml:"range_y" json:"range_y" mapstructure:"range_y"`
}

type SolverConfig struct {
	Controls      []float64 `yaml:"controls" json:"controls" mapstructure:"controls"`
	Dt            float64   `yaml:"dt" json:"dt" mapstructure:"dt"`
	Gamma         float64   `yaml:"gamma" json:"gamma" mapstructure:"gamma"`
	Tolerance     float64   `yaml:"tolerance" json:"tolerance" mapstructure:"tolerance"`
	MaxIterations int       `yaml:"max_iterations" json:"max_iterations" mapstructure:"max_iterations"`
	Workers       int       `yaml:"workers" json:"workers" mapstructure:"workers"`
	LogEvery      int       `yaml:"log_every" json:"log_every" mapstructure:"log_every"`
}

type CostConfig struct {
	Name   string             `yaml:"name" json:"name" mapstructure:"name"`
	Qx     float64            `yaml:"qx" json:"qx" mapstructure:"qx"`
	Qv     float64            `yaml:"qv" json:"qv" mapstructure:"qv"`
	R      float64            `yaml:"r" json:"r" mapstructure:"r"`
	Params map[string]float64 `yaml:"params,omitempty" json:"params,omitempty" mapstructure:"params"`
}

type ControllerConfig struct {
	Name   string             `yaml:"name" json:"name" mapstructure:"name"`
	Kp     float64            `yaml:"kp" json:"kp" mapstructure:"kp"`
	Ki     float64            `yaml:"ki" json:"ki" mapstructure:"ki"`
	Kd     float64            `yaml:"kd" json:"kd" mapstructure:"kd"`
	Target float64            `yaml:"target" json:"target" mapstructure:"target"`
	Params map[string]float64 `yaml:"params,omitempty" json:"params,omitempty" mapstructure:"params"`
}

type TrajectoryConfig struct {
	InitX       float64 `yaml:"init_x" json:"init_x" mapstructure:"init_x"`
	InitV       float64 `yaml:"init_v" json:"init_v" mapstructure:"init_v"`
	Steps       int     `yaml:"steps" json:"steps" mapstructure:"steps"`
	Dt          float64 `yaml:"dt" json:"dt" mapstructure:"dt"`
	SampleEvery int     `yaml:"sample_every" json:"sample_every" mapstructure:"sample_every"`
}

type RenderConfig struct {
	OutDir string `yaml:"out_dir" json:"out_dir" mapstructure:"out_dir"`
	Width  int    `yaml:"width" json:"width" mapstructure:"width"`
	Height int    `yaml:"height" json:"height" mapstructure:"height"`
	// FrameEvery writes an animation frame every n sweeps; 0 disables frames.
	FrameEvery int `yaml:"frame_every" json:"frame_every" mapstructure:"frame_every"`
}

// DefaultConfig is the reference run: minimum-time double integrator on a
// 199x199 grid, then a 2000-step rollout from (-2, -1.5).
func DefaultConfig() *Config {
	return &Config{
		Grid: GridConfig{
			PointsX: DefaultPoints,
			PointsY: DefaultPoints,
			RangeX:  DefaultRangeX,
			RangeY:  DefaultRangeY,
		},
		Solver: SolverConfig{
			Controls:      []float64{-1, 0, 1},
			Dt:            DefaultDt,
			Gamma:         DefaultGamma,
			Tolerance:     DefaultTolerance,
			MaxIterations: DefaultIterations,
			LogEvery:      100,
		},
		System:     "double_integrator",
		Integrator: "euler",
		Cost: CostConfig{
			Name: "min_time",
			Qx:   1,
			Qv:   1,
			R:    1,
		},
		Controller: ControllerConfig{
			Name: "field",
			Kp:   DefaultKp,
			Ki:   DefaultKi,
			Kd:   DefaultKd,
		},
		Trajectory: TrajectoryConfig{
			InitX:       DefaultInitX,
			InitV:       DefaultInitV,
			Steps:       DefaultSteps,
			Dt:          DefaultDt,
			SampleEvery: DefaultSample,
		},
		Render: RenderConfig{
			OutDir: "out",
			Width:  640,
			Height: 480,
		},
	}
}

// Load layers the YAML file at path over DefaultConfig, then applies
// DYNPROG_* environment overrides. An empty path loads defaults and
// environment only.
func Load(path string) (*Config, error) {
	return LoadFrom(DefaultConfig(), path)
}

// LoadFrom is Load with base in place of DefaultConfig.
func LoadFrom(base *Config, path string) (*Config, error) {
	vp := viper.New()
	vp.SetConfigType("yaml")

	defaults, err := yaml.Marshal(base)
	if err != nil {
		return nil, err
	}
	if err := vp.ReadConfig(bytes.NewReader(defaults)); err != nil {
		return nil, err
	}

	if path != "" {
		vp.SetConfigFile(path)
		if err := vp.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	vp.SetEnvPrefix(EnvPrefix)
	vp.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	vp.AutomaticEnv()

	cfg := &Config{}
	if err := vp.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Clone() *Config {
	out := *c
	out.Solver.Controls = append([]float64(nil), c.Solver.Controls...)
	out.SystemParams = maps.Clone(c.SystemParams)
	out.Cost.Params = maps.Clone(c.Cost.Params)
	out.Controller.Params = maps.Clone(c.Controller.Params)
	return &out
}

func (c *Config) Validate() error {
	if _, err := c.NewGrid(); err != nil {
		return err
	}
	if err := c.ValueIter().Validate(); err != nil {
		return err
	}
	t := c.Trajectory
	if t.Dt <= 0 || t.Steps < 0 || t.SampleEvery < 1 {
		return fmt.Errorf("invalid trajectory config %+v: %w", t, dynamo.ErrParameterBounds)
	}
	if math.IsNaN(t.InitX) || math.IsNaN(t.InitV) {
		return fmt.Errorf("initial state: %w", dynamo.ErrInvalidState)
	}
	if c.Render.FrameEvery < 0 {
		return fmt.Errorf("frame every must not be negative, got %d", c.Render.FrameEvery)
	}
	return nil
}

func (c *Config) NewGrid() (*grid.Grid, error) {
	return grid.New(c.Grid.PointsX, c.Grid.PointsY, c.Grid.RangeX, c.Grid.RangeY)
}

// ValueIter converts the solver section. Workers <= 0 keeps the CPU count.
func (c *Config) ValueIter() valueiter.Config {
	vc := valueiter.DefaultConfig()
	vc.Controls = append([]float64(nil), c.Solver.Controls...)
	vc.Dt = c.Solver.Dt
	vc.Gamma = c.Solver.Gamma
	vc.Tolerance = c.Solver.Tolerance
	vc.MaxIterations = c.Solver.MaxIterations
	vc.LogEvery = c.Solver.LogEvery
	if c.Solver.Workers > 0 {
		vc.Workers = c.Solver.Workers
	}
	return vc
}

func (c *Config) Rollout() trajectory.Config {
	return trajectory.Config{
		Dt:          c.Trajectory.Dt,
		Steps:       c.Trajectory.Steps,
		SampleEvery: c.Trajectory.SampleEvery,
	}
}

func (c *Config) InitState() dynamo.State {
	return dynamo.State{c.Trajectory.InitX, c.Trajectory.InitV}
}
