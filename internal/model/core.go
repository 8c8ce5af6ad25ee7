package model

import "time"

// RunSpec defines one pipeline run.
type RunSpec struct {
	Preset       string `json:"preset" yaml:"preset"`
	DataPath     string `json:"data_path" yaml:"data_path"`
	OutputDir    string `json:"output_dir" yaml:"output_dir"`       // overrides the preset directory
	Workers      int    `json:"workers" yaml:"workers"`             // 0 or 1 renders sequentially
	ExportTables string `json:"export_tables" yaml:"export_tables"` // .json or .xlsx, optional
}

// Run statuses as stored in the history database.
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// FigureResult describes one written chart.
type FigureResult struct {
	Ordinal   int       `json:"ordinal"`
	Slug      string    `json:"slug"`
	FileName  string    `json:"file_name"`
	Path      string    `json:"path"`
	Bytes     int64     `json:"bytes"`
	Rows      int       `json:"rows"` // rows of the derived table behind the chart
	WrittenAt time.Time `json:"written_at"`
}

// RunSummary is what a completed or failed run reports.
type RunSummary struct {
	RunID      string         `json:"run_id"`
	Preset     string         `json:"preset"`
	DataPath   string         `json:"data_path"`
	OutputDir  string         `json:"output_dir"`
	Status     string         `json:"status"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	Figures    []FigureResult `json:"figures"`
	Error      string         `json:"error,omitempty"`
	Metrics    *RunMetrics    `json:"metrics,omitempty"`
}

// ValidationRules defines validation requirements for the input table
type ValidationRules struct {
	RequiredFields []string           `json:"requiredFields"` // columns that must be present in the header
	IntegerFields  []string           `json:"integerFields"`  // columns that must parse as integers
	NumericFields  []string           `json:"numericFields"`  // columns that must parse as numbers
	MinValues      map[string]float64 `json:"minValues"`      // min allowed numeric values
}
