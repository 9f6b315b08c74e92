package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/san-kum/dynprog/internal/automation"
	"github.com/san-kum/dynprog/internal/config"
	"github.com/san-kum/dynprog/internal/experiment"
	"github.com/san-kum/dynprog/internal/render"
	"github.com/san-kum/dynprog/internal/server"
	"github.com/san-kum/dynprog/internal/storage"
	"github.com/san-kum/dynprog/internal/trajectory"
	"github.com/san-kum/dynprog/internal/valueiter"
	"github.com/san-kum/dynprog/internal/viz"
)

func interruptContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

func openStore() (*storage.Store, error) {
	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return nil, err
	}
	return st, nil
}

func saveRun(cfg *config.Config, solve *valueiter.Result, traj *trajectory.Result) error {
	if noSave {
		return nil
	}
	st, err := openStore()
	if err != nil {
		return err
	}
	runID, err := st.Save(cfg, solve, traj)
	if err != nil {
		return err
	}
	fmt.Printf("run id: %s\n", runID)
	return nil
}

func printSolve(res *valueiter.Result, elapsed time.Duration) {
	status := goodStyle.Render(res.Phase.String())
	if !res.Converged {
		status = badStyle.Render(res.Phase.String())
	}
	fmt.Println(headingStyle.Render("value iteration"))
	fmt.Printf("  status:     %s\n", status)
	fmt.Printf("  iterations: %d\n", res.Iterations)
	fmt.Printf("  max change: %.6g\n", res.Norm)
	fmt.Printf("  elapsed:    %v\n", elapsed.Round(time.Millisecond))
}

func printRollout(traj *trajectory.Result) {
	fmt.Println(headingStyle.Render("rollout"))
	fmt.Printf("  steps:   %d\n", traj.StepsTaken)
	fmt.Printf("  samples: %d\n", len(traj.Samples))
	fmt.Printf("  final:   x=%.4f v=%.4f\n", traj.Final[0], traj.Final[1])

	names := make([]string, 0, len(traj.Metrics))
	for name := range traj.Metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	fmt.Println(headingStyle.Render("metrics"))
	for _, name := range names {
		fmt.Printf("  %s: %.6f\n", name, traj.Metrics[name])
	}
}

func runSolve(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := interruptContext()
	defer stop()

	opts := []experiment.Option{experiment.WithLogger(logger)}
	var anim *render.Animator
	if cfg.Render.FrameEvery > 0 {
		anim = render.NewAnimator(cfg.Render.OutDir, cfg.Render.FrameEvery,
			render.NewPNG(cfg.Render.Width, cfg.Render.Height))
		opts = append(opts, experiment.WithSweepObserver(anim))
	}

	exp, err := experiment.New(cfg, opts...)
	if err != nil {
		return err
	}

	fmt.Printf("solving %s on a %s grid...\n", cfg.System, exp.Grid())
	start := time.Now()
	out, err := exp.Run(ctx)
	if err != nil {
		return err
	}

	printSolve(out.Solve, time.Since(start))
	printRollout(out.Trajectory)
	if anim != nil {
		fmt.Printf("frames: %d written to %s\n", anim.Frames(), cfg.Render.OutDir)
	}
	return saveRun(cfg, out.Solve, out.Trajectory)
}

func runSimulate(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := interruptContext()
	defer stop()

	exp, err := experiment.New(cfg, experiment.WithLogger(logger))
	if err != nil {
		return err
	}

	var traj *trajectory.Result
	if cfg.Controller.Name == "field" {
		start := time.Now()
		res, err := exp.Solve(ctx)
		if err != nil {
			return err
		}
		printSolve(res, time.Since(start))
		traj, err = exp.Simulate(ctx, res.Control)
		if err != nil {
			return err
		}
	} else if traj, err = exp.Simulate(ctx, nil); err != nil {
		return err
	}

	printRollout(traj)
	fmt.Println()
	fmt.Println(render.PhasePortrait(traj.Samples, 60, 20))
	return nil
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	ctx, stop := interruptContext()
	defer stop()

	// the terminal belongs to the TUI, so the engine stays quiet
	exp, err := experiment.New(cfg)
	if err != nil {
		return err
	}

	title := fmt.Sprintf("%s / %s", cfg.System, cfg.Cost.Name)
	if err := viz.Run(ctx, exp.Engine(), title); err != nil {
		return err
	}

	res := exp.Engine().Result()
	printSolve(res, 0)
	if res.Iterations == 0 {
		return nil
	}

	traj, err := exp.Simulate(ctx, res.Control)
	if err != nil {
		return err
	}
	printRollout(traj)
	return saveRun(cfg, res, traj)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := interruptContext()
	defer stop()

	title := fmt.Sprintf("%s / %s on %dx%d", cfg.System, cfg.Cost.Name, cfg.Grid.PointsX, cfg.Grid.PointsY)
	srv := server.New(addr, title, cfg.ValueIter(), server.WithLogger(logger))
	exp, err := experiment.New(cfg, experiment.WithLogger(logger), experiment.WithSweepObserver(srv))
	if err != nil {
		return err
	}

	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return srv.Serve(gctx)
	})
	group.Go(func() error {
		out, err := exp.Run(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		if err != nil {
			return err
		}
		logger.Info("run finished, serving until interrupted",
			zap.Int("iterations", out.Solve.Iterations),
			zap.Bool("converged", out.Solve.Converged),
		)
		return saveRun(cfg, out.Solve, out.Trajectory)
	})
	return group.Wait()
}

func runBatch(cmd *cobra.Command, args []string) error {
	scenario, err := automation.LoadScenario(args[0])
	if err != nil {
		return err
	}
	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := interruptContext()
	defer stop()

	var st *storage.Store
	if !noSave {
		if st, err = openStore(); err != nil {
			return err
		}
	}

	fmt.Printf("scenario %s: %d runs\n", scenario.Name, len(scenario.Runs))
	reports, err := automation.NewRunner(logger, st).RunScenario(ctx, scenario)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tRUN\tITER\tNORM\tCONVERGED\tTIME_TO_GOAL")
	for _, r := range reports {
		fmt.Fprintf(w, "%s\t%s\t%d\t%.4g\t%v\t%.2f\n",
			r.Name, r.RunID, r.Iterations, r.Norm, r.Converged, r.Metrics["time_to_goal"])
	}
	if ferr := w.Flush(); ferr != nil && err == nil {
		err = ferr
	}
	return err
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := interruptContext()
	defer stop()

	results, err := automation.NewRunner(logger, nil).RunSweep(ctx, &automation.ParameterSweep{
		Base:     cfg,
		Param:    args[0],
		Min:      sweepMin,
		Max:      sweepMax,
		NumSteps: sweepSteps,
	})

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\tITER\tNORM\tCONVERGED\tTIME_TO_GOAL\n", args[0])
	for _, r := range results {
		fmt.Fprintf(w, "%.4g\t%d\t%.4g\t%v\t%.2f\n", r.Value, r.Iterations, r.Norm, r.Converged, r.TimeToGoal)
	}
	if ferr := w.Flush(); ferr != nil && err == nil {
		err = ferr
	}
	return err
}

func runMonteCarlo(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := interruptContext()
	defer stop()

	results, err := automation.NewRunner(logger, nil).RunMonteCarlo(ctx, &automation.MonteCarloConfig{
		Base:         cfg,
		Perturbation: perturb,
		NumTrials:    trials,
		Seed:         seed,
	})
	if err != nil {
		return err
	}

	reached, missed := automation.MonteCarloStats(results)
	fmt.Printf("trials: %d\n", len(results))
	fmt.Printf("reached goal: %s\n", goodStyle.Render(fmt.Sprint(reached)))
	fmt.Printf("missed goal:  %s\n", badStyle.Render(fmt.Sprint(missed)))

	times := make([]float64, 0, reached)
	for _, r := range results {
		if r.Reached {
			times = append(times, r.TimeToGoal)
		}
	}
	if len(times) > 0 {
		sort.Float64s(times)
		fmt.Printf("time to goal: min %.2fs  median %.2fs  max %.2fs\n",
			times[0], times[len(times)/2], times[len(times)-1])
	}
	return nil
}
