package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"text/tabwriter"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/dynprog/internal/config"
	"github.com/san-kum/dynprog/internal/experiment"
	"github.com/san-kum/dynprog/internal/export"
	"github.com/san-kum/dynprog/internal/grid"
	"github.com/san-kum/dynprog/internal/render"
	"github.com/san-kum/dynprog/internal/storage"
	"github.com/san-kum/dynprog/internal/trajectory"
)

func listRuns(cmd *cobra.Command, args []string) error {
	runs, err := storage.New(dataDir).List()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSYSTEM\tTIME\tGRID\tCOST\tCTRL\tITER\tCONVERGED")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%dx%d\t%s\t%s\t%d\t%v\n",
			run.ID,
			run.System,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Grid.PointsX, run.Grid.PointsY,
			run.Cost,
			run.Controller,
			run.Iterations,
			run.Converged,
		)
	}
	return w.Flush()
}

// loadSamples returns the run's rollout, or nil for a solve-only run.
func loadSamples(st *storage.Store, runID string) ([]trajectory.Sample, error) {
	samples, err := st.LoadTrajectory(runID)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	return samples, err
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]
	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	samples, err := loadSamples(st, runID)
	if err != nil {
		return err
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("system: %s\n", meta.System)
	fmt.Printf("sweeps: %d\n\n", meta.Iterations)

	if len(meta.Norms) > 0 {
		fmt.Println(render.ConvergencePlot(meta.Norms, 80, 10))
		fmt.Println()
	}
	if len(samples) == 0 {
		return nil
	}

	series := []struct {
		caption string
		value   func(trajectory.Sample) float64
	}{
		{"x (position)", func(s trajectory.Sample) float64 { return s.X }},
		{"v (velocity)", func(s trajectory.Sample) float64 { return s.V }},
		{"u (control)", func(s trajectory.Sample) float64 { return s.U }},
	}
	for _, ser := range series {
		data := make([]float64, len(samples))
		for i, s := range samples {
			data[i] = ser.value(s)
		}
		fmt.Println(asciigraph.Plot(data,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(ser.caption),
		))
		fmt.Println()
	}
	return nil
}

func phasePlot(cmd *cobra.Command, args []string) error {
	runID := args[0]
	samples, err := loadSamples(storage.New(dataDir), runID)
	if err != nil {
		return err
	}
	if len(samples) == 0 {
		return fmt.Errorf("run %s has no trajectory", runID)
	}

	fmt.Printf("phase plane: %s (x across, v up)\n\n", runID)
	fmt.Print(render.PhasePortrait(samples, 70, 24))
	fmt.Println("\n+ positive control  - negative control  · none")
	return nil
}

func renderRun(cmd *cobra.Command, args []string) error {
	runID := args[0]
	st := storage.New(dataDir)
	dir := filepath.Join(outDir, runID)

	for _, name := range []string{storage.FieldCost, storage.FieldControl} {
		f, err := st.LoadField(runID, name)
		if err != nil {
			return err
		}
		path := filepath.Join(dir, name+".png")
		if err := render.Heatmap(render.Frame{Field: f, Title: name, Path: path}, imgWidth, imgHeight); err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", path)
	}

	samples, err := loadSamples(st, runID)
	if err != nil || len(samples) == 0 {
		return err
	}
	path := filepath.Join(dir, "trajectory.png")
	if err := render.Trajectory(samples, "trajectory", path, imgWidth, imgHeight); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", path)

	svgPath := filepath.Join(dir, "trajectory.svg")
	if err := os.WriteFile(svgPath, []byte(export.TrajectoryToSVG(samples, imgWidth, imgHeight)), 0644); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", svgPath)
	return nil
}

func exportJSON(cmd *cobra.Command, args []string) error {
	runID := args[0]
	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	samples, err := loadSamples(st, runID)
	if err != nil {
		return err
	}
	return export.WriteJSON(os.Stdout, export.FromRun(meta, samples))
}

func exportCSV(cmd *cobra.Command, args []string) error {
	runID := args[0]
	samples, err := loadSamples(storage.New(dataDir), runID)
	if err != nil {
		return err
	}

	w := csv.NewWriter(os.Stdout)
	if err := w.Write([]string{"step", "x", "v", "u"}); err != nil {
		return err
	}
	for _, s := range samples {
		row := []string{
			strconv.Itoa(s.Step),
			strconv.FormatFloat(s.X, 'f', 6, 64),
			strconv.FormatFloat(s.V, 'f', 6, 64),
			strconv.FormatFloat(s.U, 'f', 6, 64),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func listPresets(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tSYSTEM\tGRID\tRANGE\tCOST\tCONTROLS")
	for _, name := range config.ListPresets() {
		p := config.GetPreset(name)
		fmt.Fprintf(w, "%s\t%s\t%dx%d\t%gx%g\t%s\t%v\n",
			name, p.System,
			p.Grid.PointsX, p.Grid.PointsY,
			p.Grid.RangeX, p.Grid.RangeY,
			p.Cost.Name, p.Solver.Controls)
	}
	return w.Flush()
}

func listComponents(cmd *cobra.Command, args []string) error {
	r := experiment.NewRegistry()
	defaults := config.DefaultConfig()
	g, err := grid.New(2, 2, defaults.Grid.RangeX, defaults.Grid.RangeY)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "KIND\tNAME\tPARAMS")
	for _, name := range r.ListSystems() {
		sys, err := r.GetSystem(name)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "system\t%s\t%s\n", name, experiment.FormatParams(sys))
	}
	for _, name := range r.ListIntegrators() {
		fmt.Fprintf(w, "integrator\t%s\t-\n", name)
	}
	for _, name := range r.ListCosts() {
		policy, err := r.GetCost(name, g, defaults.Cost)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "cost\t%s\t%s\n", name, experiment.FormatParams(policy))
	}
	for _, name := range r.ListControllers() {
		ctrl, err := r.GetController(name, experiment.ControllerParams{
			Config: defaults.Controller,
			Field:  g.NewField(0),
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "controller\t%s\t%s\n", name, experiment.FormatParams(ctrl))
	}
	return w.Flush()
}

func configInit(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	path := "dynprog.yaml"
	if len(args) > 0 {
		path = args[0]
	}
	if err := config.Save(path, cfg); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", path)
	return nil
}
