// Package export writes runs in formats meant for other tools: JSON for
// scripts and SVG for the phase-plane path.
package export

import (
	"encoding/json"
	"io"

	"github.com/san-kum/dynprog/internal/config"
	"github.com/san-kum/dynprog/internal/storage"
	"github.com/san-kum/dynprog/internal/trajectory"
	"github.com/san-kum/dynprog/internal/valueiter"
)

type ExportData struct {
	System     string              `json:"system"`
	Integrator string              `json:"integrator"`
	Cost       string              `json:"cost"`
	Controller string              `json:"controller"`
	Grid       config.GridConfig   `json:"grid"`
	Iterations int                 `json:"iterations"`
	Converged  bool                `json:"converged"`
	Norms      []float64           `json:"norms,omitempty"`
	Samples    []trajectory.Sample `json:"samples"`
	Metrics    map[string]float64  `json:"metrics"`
}

// NewExportData collects a run. solve may be nil when only a rollout exists.
func NewExportData(cfg *config.Config, solve *valueiter.Result, traj *trajectory.Result) ExportData {
	data := ExportData{
		System:     cfg.System,
		Integrator: cfg.Integrator,
		Cost:       cfg.Cost.Name,
		Controller: cfg.Controller.Name,
		Grid:       cfg.Grid,
		Samples:    []trajectory.Sample{},
		Metrics:    map[string]float64{},
	}
	if solve != nil {
		data.Iterations = solve.Iterations
		data.Converged = solve.Converged
		data.Norms = solve.Norms
	}
	if traj != nil {
		data.Samples = traj.Samples
		data.Metrics = traj.Metrics
	}
	return data
}

// FromRun collects a stored run.
func FromRun(meta *storage.RunMetadata, samples []trajectory.Sample) ExportData {
	if samples == nil {
		samples = []trajectory.Sample{}
	}
	metrics := meta.Metrics
	if metrics == nil {
		metrics = map[string]float64{}
	}
	return ExportData{
		System:     meta.System,
		Integrator: meta.Integrator,
		Cost:       meta.Cost,
		Controller: meta.Controller,
		Grid:       meta.Grid,
		Iterations: meta.Iterations,
		Converged:  meta.Converged,
		Norms:      meta.Norms,
		Samples:    samples,
		Metrics:    metrics,
	}
}

func WriteJSON(w io.Writer, data ExportData) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}
