// Package store keeps the optional SQLite history of pipeline runs.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"epec-pipeline/internal/model"

	_ "github.com/mattn/go-sqlite3"
)

var db *sql.DB

// ErrNotFound is returned when a run id is unknown.
var ErrNotFound = errors.New("not found")

// Initialize DB connection
func InitDB(dbPath string) error {
	var err error
	db, err = sql.Open("sqlite3", dbPath)
	if err != nil {
		return err
	}

	// Create tables if not exists
	runTable := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		preset TEXT,
		data_path TEXT,
		output_dir TEXT,
		status TEXT,
		figure_count INTEGER DEFAULT 0,
		error_message TEXT,
		started_at DATETIME,
		finished_at DATETIME
	);
	`
	figureTable := `
	CREATE TABLE IF NOT EXISTS figures (
		run_id TEXT,
		ordinal INTEGER,
		slug TEXT,
		file_name TEXT,
		path TEXT,
		bytes INTEGER,
		rows INTEGER,
		written_at DATETIME,
		PRIMARY KEY (run_id, file_name)
	);
	`
	errorTable := `
	CREATE TABLE IF NOT EXISTS run_errors (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT,
		stage TEXT,
		error_message TEXT,
		created_at DATETIME
	);
	`

	for _, stmt := range []string{runTable, figureTable, errorTable} {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

// Close releases the database handle.
func Close() error {
	if db == nil {
		return nil
	}
	err := db.Close()
	db = nil
	return err
}

// SaveRun stores a new run
func SaveRun(ctx context.Context, run *model.RunSummary) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO runs (id, preset, data_path, output_dir, status, started_at) VALUES (?, ?, ?, ?, ?, ?)`,
		run.RunID, run.Preset, run.DataPath, run.OutputDir, run.Status, run.StartedAt)
	return err
}

// UpdateRun stores the final status of a run
func UpdateRun(ctx context.Context, run *model.RunSummary) error {
	_, err := db.ExecContext(ctx,
		`UPDATE runs SET status = ?, figure_count = ?, error_message = ?, finished_at = ? WHERE id = ?`,
		run.Status, len(run.Figures), run.Error, run.FinishedAt, run.RunID)
	return err
}

// SaveFigure records one written chart
func SaveFigure(ctx context.Context, runID string, fig model.FigureResult) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO figures (run_id, ordinal, slug, file_name, path, bytes, rows, written_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, fig.Ordinal, fig.Slug, fig.FileName, fig.Path, fig.Bytes, fig.Rows, fig.WrittenAt)
	return err
}

// SaveRunError records an error for a run
func SaveRunError(ctx context.Context, runID string, err error) error {
	if err == nil {
		return nil
	}
	now := time.Now().UTC()
	_, e := db.ExecContext(ctx,
		`INSERT INTO run_errors (run_id, stage, error_message, created_at) VALUES (?, ?, ?, ?)`,
		runID, string(model.StageOf(err)), err.Error(), now)
	return e
}

// RunError is one recorded failure.
type RunError struct {
	Stage     string    `json:"stage"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// ListRuns returns all runs, newest first, without their figures
func ListRuns(ctx context.Context) ([]model.RunSummary, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, preset, data_path, output_dir, status, error_message, started_at, finished_at
		 FROM runs ORDER BY started_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := make([]model.RunSummary, 0)
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetRun fetches one run with its figures
func GetRun(ctx context.Context, runID string) (*model.RunSummary, error) {
	row := db.QueryRowContext(ctx,
		`SELECT id, preset, data_path, output_dir, status, error_message, started_at, finished_at
		 FROM runs WHERE id = ?`, runID)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", runID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	if run.Figures, err = ListFigures(ctx, runID); err != nil {
		return nil, err
	}
	return &run, nil
}

// ListFigures returns the figures of a run in ordinal order
func ListFigures(ctx context.Context, runID string) ([]model.FigureResult, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT ordinal, slug, file_name, path, bytes, rows, written_at
		 FROM figures WHERE run_id = ? ORDER BY ordinal`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	figs := make([]model.FigureResult, 0)
	for rows.Next() {
		var f model.FigureResult
		if err := rows.Scan(&f.Ordinal, &f.Slug, &f.FileName, &f.Path, &f.Bytes, &f.Rows, &f.WrittenAt); err != nil {
			return nil, err
		}
		figs = append(figs, f)
	}
	return figs, rows.Err()
}

// GetFigure looks up one figure of a run by file name
func GetFigure(ctx context.Context, runID, fileName string) (*model.FigureResult, error) {
	var f model.FigureResult
	err := db.QueryRowContext(ctx,
		`SELECT ordinal, slug, file_name, path, bytes, rows, written_at
		 FROM figures WHERE run_id = ? AND file_name = ?`, runID, fileName).
		Scan(&f.Ordinal, &f.Slug, &f.FileName, &f.Path, &f.Bytes, &f.Rows, &f.WrittenAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("figure %s/%s: %w", runID, fileName, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// ListRunErrors returns the errors recorded for a run
func ListRunErrors(ctx context.Context, runID string) ([]RunError, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT stage, error_message, created_at FROM run_errors WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]RunError, 0)
	for rows.Next() {
		var e RunError
		if err := rows.Scan(&e.Stage, &e.Message, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(s scanner) (model.RunSummary, error) {
	var run model.RunSummary
	var errMsg sql.NullString
	var finished sql.NullTime
	if err := s.Scan(&run.RunID, &run.Preset, &run.DataPath, &run.OutputDir, &run.Status,
		&errMsg, &run.StartedAt, &finished); err != nil {
		return run, err
	}
	run.Error = errMsg.String
	if finished.Valid {
		run.FinishedAt = finished.Time
	}
	return run, nil
}

// History records pipeline runs into the initialized database.
type History struct{}

func (History) StartRun(ctx context.Context, run *model.RunSummary) error {
	return SaveRun(ctx, run)
}

func (History) RecordFigure(ctx context.Context, runID string, fig model.FigureResult) error {
	return SaveFigure(ctx, runID, fig)
}

func (History) RecordError(ctx context.Context, runID string, err error) error {
	return SaveRunError(ctx, runID, err)
}

func (History) FinishRun(ctx context.Context, run *model.RunSummary) error {
	return UpdateRun(ctx, run)
}
