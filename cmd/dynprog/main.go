package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/san-kum/dynprog/internal/config"
)

var (
	dataDir    string
	configFile string
	preset     string
	verbose    bool

	pointsX    int
	pointsY    int
	rangeX     float64
	rangeY     float64
	gamma      float64
	tolerance  float64
	solverDt   float64
	maxIter    int
	workers    int
	system     string
	integrator string
	costName   string

	controller  string
	initX       float64
	initV       float64
	steps       int
	sampleEvery int
	kp          float64
	ki          float64
	kd          float64
	target      float64

	outDir     string
	frameEvery int
	imgWidth   int
	imgHeight  int
	noSave     bool
	addr       string

	sweepMin   float64
	sweepMax   float64
	sweepSteps int
	trials     int
	perturb    float64
	seed       int64
)

var (
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	goodStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#00ff88"))
	badStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#ff4444"))
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "dynprog",
		Short:        "grid value iteration for controlled dynamical systems",
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".dynprog", "data directory")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (yaml)")
	rootCmd.PersistentFlags().StringVar(&preset, "preset", "", "start from a preset configuration")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	solveCmd := &cobra.Command{
		Use:   "solve",
		Short: "solve for the cost-to-go, roll out the policy and save the run",
		RunE:  runSolve,
	}
	addSolverFlags(solveCmd)
	addRolloutFlags(solveCmd)
	addRenderFlags(solveCmd)
	solveCmd.Flags().IntVar(&frameEvery, "frames", 0, "write an animation frame every n sweeps (0 disables)")
	solveCmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the run")

	simulateCmd := &cobra.Command{
		Use:   "simulate",
		Short: "roll out a controller; the field controller solves first",
		RunE:  runSimulate,
	}
	addSolverFlags(simulateCmd)
	addRolloutFlags(simulateCmd)

	liveCmd := &cobra.Command{
		Use:   "live",
		Short: "solve with a live terminal view",
		RunE:  runLive,
	}
	addSolverFlags(liveCmd)
	addRolloutFlags(liveCmd)
	liveCmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the run")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "solve while streaming progress over http and websocket",
		RunE:  runServe,
	}
	addSolverFlags(serveCmd)
	addRolloutFlags(serveCmd)
	serveCmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	serveCmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the run")

	batchCmd := &cobra.Command{
		Use:   "batch [scenario.yaml]",
		Short: "run every solve in a scenario file",
		Args:  cobra.ExactArgs(1),
		RunE:  runBatch,
	}
	batchCmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the runs")

	sweepCmd := &cobra.Command{
		Use:   "sweep [gamma|tolerance|dt|points]",
		Short: "solve once per value of a solver parameter",
		Args:  cobra.ExactArgs(1),
		RunE:  runSweep,
	}
	addSolverFlags(sweepCmd)
	sweepCmd.Flags().Float64Var(&sweepMin, "min", 0.9, "first value")
	sweepCmd.Flags().Float64Var(&sweepMax, "max", 0.999, "last value")
	sweepCmd.Flags().IntVar(&sweepSteps, "steps", 5, "number of values")

	monteCarloCmd := &cobra.Command{
		Use:   "montecarlo",
		Short: "roll out one solved policy from perturbed initial states",
		RunE:  runMonteCarlo,
	}
	addSolverFlags(monteCarloCmd)
	addRolloutFlags(monteCarloCmd)
	monteCarloCmd.Flags().IntVar(&trials, "trials", 50, "number of rollouts")
	monteCarloCmd.Flags().Float64Var(&perturb, "perturb", 0.5, "max perturbation of each initial coordinate")
	monteCarloCmd.Flags().Int64Var(&seed, "seed", 0, "random seed (0 uses the clock)")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot convergence and trajectory of a run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}

	phaseCmd := &cobra.Command{
		Use:   "phase [run_id]",
		Short: "phase plane plot of a run",
		Args:  cobra.ExactArgs(1),
		RunE:  phasePlot,
	}

	renderCmd := &cobra.Command{
		Use:   "render [run_id]",
		Short: "render cost, control and trajectory images of a run",
		Args:  cobra.ExactArgs(1),
		RunE:  renderRun,
	}
	addRenderFlags(renderCmd)

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export run data to JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export run trajectory to CSV",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		RunE:  listPresets,
	}

	componentsCmd := &cobra.Command{
		Use:   "components",
		Short: "list systems, integrators, costs and controllers with their params",
		RunE:  listComponents,
	}

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "configuration files",
	}
	configInitCmd := &cobra.Command{
		Use:   "init [path]",
		Short: "write the resolved configuration as yaml",
		Args:  cobra.MaximumNArgs(1),
		RunE:  configInit,
	}
	addSolverFlags(configInitCmd)
	addRolloutFlags(configInitCmd)
	configCmd.AddCommand(configInitCmd)

	rootCmd.AddCommand(solveCmd, simulateCmd, liveCmd, serveCmd, batchCmd, sweepCmd, monteCarloCmd,
		listCmd, plotCmd, phaseCmd, renderCmd, exportJSONCmd, exportCSVCmd, presetsCmd, componentsCmd, configCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func addSolverFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.IntVar(&pointsX, "points-x", config.DefaultPoints, "grid points along x")
	f.IntVar(&pointsY, "points-y", config.DefaultPoints, "grid points along v")
	f.Float64Var(&rangeX, "range-x", config.DefaultRangeX, "grid extent along x")
	f.Float64Var(&rangeY, "range-y", config.DefaultRangeY, "grid extent along v")
	f.Float64Var(&gamma, "gamma", config.DefaultGamma, "discount factor")
	f.Float64Var(&tolerance, "tolerance", config.DefaultTolerance, "convergence tolerance on the max change")
	f.Float64Var(&solverDt, "dt", config.DefaultDt, "solver timestep")
	f.IntVar(&maxIter, "max-iter", config.DefaultIterations, "sweep budget")
	f.IntVar(&workers, "workers", 0, "parallel workers (0 uses every CPU)")
	f.StringVar(&system, "system", "double_integrator", "system")
	f.StringVar(&integrator, "integrator", "euler", "integrator")
	f.StringVar(&costName, "cost", "min_time", "step cost")
}

func addRolloutFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&controller, "controller", "field", "controller")
	f.Float64Var(&initX, "x0", config.DefaultInitX, "initial position")
	f.Float64Var(&initV, "v0", config.DefaultInitV, "initial velocity")
	f.IntVar(&steps, "rollout-steps", config.DefaultSteps, "rollout steps")
	f.IntVar(&sampleEvery, "sample-every", config.DefaultSample, "record every n rollout steps")
	f.Float64Var(&kp, "kp", config.DefaultKp, "pid kp")
	f.Float64Var(&ki, "ki", config.DefaultKi, "pid ki")
	f.Float64Var(&kd, "kd", config.DefaultKd, "pid kd")
	f.Float64Var(&target, "target", 0, "pid target")
}

func addRenderFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&outDir, "out", "out", "image output directory")
	f.IntVar(&imgWidth, "width", 640, "image width in pixels")
	f.IntVar(&imgHeight, "height", 480, "image height in pixels")
}

// resolveConfig layers preset, config file, DYNPROG_* environment and
// explicitly set flags, in that order.
func resolveConfig(cmd *cobra.Command) (*config.Config, error) {
	base := config.DefaultConfig()
	if preset != "" {
		if base = config.GetPreset(preset); base == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
	}

	cfg, err := config.LoadFrom(base, configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	applyFlags(cmd, cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	changed := cmd.Flags().Changed

	if changed("points-x") {
		cfg.Grid.PointsX = pointsX
	}
	if changed("points-y") {
		cfg.Grid.PointsY = pointsY
	}
	if changed("range-x") {
		cfg.Grid.RangeX = rangeX
	}
	if changed("range-y") {
		cfg.Grid.RangeY = rangeY
	}
	if changed("gamma") {
		cfg.Solver.Gamma = gamma
	}
	if changed("tolerance") {
		cfg.Solver.Tolerance = tolerance
	}
	if changed("dt") {
		cfg.Solver.Dt = solverDt
		cfg.Trajectory.Dt = solverDt
	}
	if changed("max-iter") {
		cfg.Solver.MaxIterations = maxIter
	}
	if changed("workers") {
		cfg.Solver.Workers = workers
	}
	if changed("system") {
		cfg.System = system
	}
	if changed("integrator") {
		cfg.Integrator = integrator
	}
	if changed("cost") {
		cfg.Cost.Name = costName
	}
	if changed("controller") {
		cfg.Controller.Name = controller
	}
	if changed("x0") {
		cfg.Trajectory.InitX = initX
	}
	if changed("v0") {
		cfg.Trajectory.InitV = initV
	}
	if changed("rollout-steps") {
		cfg.Trajectory.Steps = steps
	}
	if changed("sample-every") {
		cfg.Trajectory.SampleEvery = sampleEvery
	}
	if changed("kp") {
		cfg.Controller.Kp = kp
	}
	if changed("ki") {
		cfg.Controller.Ki = ki
	}
	if changed("kd") {
		cfg.Controller.Kd = kd
	}
	if changed("target") {
		cfg.Controller.Target = target
	}
	if changed("out") {
		cfg.Render.OutDir = outDir
	}
	if changed("width") {
		cfg.Render.Width = imgWidth
	}
	if changed("height") {
		cfg.Render.Height = imgHeight
	}
	if changed("frames") {
		cfg.Render.FrameEvery = frameEvery
	}
}

func newLogger() (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	cfg.Encoding = "console"
	return cfg.Build()
}
