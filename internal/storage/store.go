// Package storage persists solved runs: metadata as JSON, fields and
// trajectories as CSV, one directory per run.
package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/san-kum/dynprog/internal/config"
	"github.com/san-kum/dynprog/internal/grid"
	"github.com/san-kum/dynprog/internal/trajectory"
	"github.com/san-kum/dynprog/internal/valueiter"
)

const (
	metadataFile   = "metadata.json"
	trajectoryFile = "trajectory.csv"

	FieldCost    = "cost"
	FieldControl = "control"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID         string              `json:"id"`
	Timestamp  time.Time           `json:"timestamp"`
	System     string              `json:"system"`
	Integrator string              `json:"integrator"`
	Cost       string              `json:"cost"`
	Controller string              `json:"controller"`
	Grid       config.GridConfig   `json:"grid"`
	Solver     config.SolverConfig `json:"solver"`
	InitState  []float64           `json:"init_state"`
	Iterations int                 `json:"iterations"`
	Norm       float64             `json:"norm"`
	Converged  bool                `json:"converged"`
	Phase      string              `json:"phase"`
	Norms      []float64           `json:"norms"`
	Samples    int                 `json:"samples"`
	Metrics    map[string]float64  `json:"metrics"`
}

// Save writes a run directory. traj may be nil for a solve-only run.
func (s *Store) Save(cfg *config.Config, solve *valueiter.Result, traj *trajectory.Result) (string, error) {
	now := time.Now()
	runID := fmt.Sprintf("%s_%d", cfg.System, now.UnixNano())
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	norm := solve.Norm
	if norm > 1e300 {
		// JSON cannot carry +Inf from an engine that never swept
		norm = -1
	}

	meta := RunMetadata{
		ID:         runID,
		Timestamp:  now,
		System:     cfg.System,
		Integrator: cfg.Integrator,
		Cost:       cfg.Cost.Name,
		Controller: cfg.Controller.Name,
		Grid:       cfg.Grid,
		Solver:     cfg.Solver,
		InitState:  cfg.InitState(),
		Iterations: solve.Iterations,
		Norm:       norm,
		Converged:  solve.Converged,
		Phase:      solve.Phase.String(),
		Norms:      solve.Norms,
		Metrics:    map[string]float64{},
	}
	if traj != nil {
		meta.Samples = len(traj.Samples)
		meta.Metrics = traj.Metrics
	}

	if err := writeJSON(filepath.Join(runDir, metadataFile), meta); err != nil {
		return "", err
	}
	if err := WriteField(filepath.Join(runDir, FieldCost+".csv"), solve.Cost); err != nil {
		return "", err
	}
	if err := WriteField(filepath.Join(runDir, FieldControl+".csv"), solve.Control); err != nil {
		return "", err
	}
	if traj != nil {
		if err := WriteTrajectory(filepath.Join(runDir, trajectoryFile), traj.Samples); err != nil {
			return "", err
		}
	}

	return runID, nil
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteField writes one "x,y,value" row per cell in row-major order.
func WriteField(path string, f *grid.Field) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write([]string{"x", "y", "value"}); err != nil {
		return err
	}

	g := f.Grid()
	for i, v := range f.Values() {
		s := g.Coordinates(i)
		row := []string{formatFloat(s[0]), formatFloat(s[1]), formatFloat(v)}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func WriteTrajectory(path string, samples []trajectory.Sample) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write([]string{"step", "x", "v", "u"}); err != nil {
		return err
	}
	for _, s := range samples {
		row := []string{strconv.Itoa(s.Step), formatFloat(s.X), formatFloat(s.V), formatFloat(s.U)}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// List returns every readable run, oldest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].Timestamp.Before(runs[j].Timestamp)
	})
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// LoadField reads a saved field back onto the run's grid. name is FieldCost
// or FieldControl.
func (s *Store) LoadField(runID, name string) (*grid.Field, error) {
	meta, err := s.Load(runID)
	if err != nil {
		return nil, err
	}
	g, err := grid.New(meta.Grid.PointsX, meta.Grid.PointsY, meta.Grid.RangeX, meta.Grid.RangeY)
	if err != nil {
		return nil, err
	}

	records, err := readCSV(filepath.Join(s.baseDir, runID, name+".csv"))
	if err != nil {
		return nil, err
	}

	values := make([]float64, 0, g.Cells())
	for i, record := range records {
		if len(record) != 3 {
			return nil, fmt.Errorf("%s.csv row %d: want 3 columns, got %d", name, i+1, len(record))
		}
		v, err := strconv.ParseFloat(record[2], 64)
		if err != nil {
			return nil, fmt.Errorf("%s.csv row %d: %w", name, i+1, err)
		}
		values = append(values, v)
	}
	return grid.FieldFrom(g, values)
}

func (s *Store) LoadTrajectory(runID string) ([]trajectory.Sample, error) {
	records, err := readCSV(filepath.Join(s.baseDir, runID, trajectoryFile))
	if err != nil {
		return nil, err
	}

	samples := make([]trajectory.Sample, 0, len(records))
	for i, record := range records {
		if len(record) != 4 {
			return nil, fmt.Errorf("trajectory.csv row %d: want 4 columns, got %d", i+1, len(record))
		}
		var s trajectory.Sample
		var vals [3]float64
		if s.Step, err = strconv.Atoi(record[0]); err != nil {
			return nil, fmt.Errorf("trajectory.csv row %d: %w", i+1, err)
		}
		for j := range vals {
			if vals[j], err = strconv.ParseFloat(record[j+1], 64); err != nil {
				return nil, fmt.Errorf("trajectory.csv row %d: %w", i+1, err)
			}
		}
		s.X, s.V, s.U = vals[0], vals[1], vals[2]
		samples = append(samples, s)
	}
	return samples, nil
}

// readCSV returns the data rows, header dropped.
func readCSV(path string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 1 {
		return [][]string{}, nil
	}
	return records[1:], nil
}
