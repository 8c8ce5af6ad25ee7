package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"time"

	"epec-pipeline/internal/chart"
	"epec-pipeline/internal/model"
	"epec-pipeline/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Entry is one chart of a preset: the aggregation that derives its table
// and the chart spec that draws it.
type Entry struct {
	Slug  string
	Build func(model.Table) (model.Table, error)
	Chart chart.Spec
}

// Preset is a named, ordered chart sequence with its output directory and
// naming rule.
type Preset struct {
	Name    string
	Dir     string
	Ordinal bool
	Entries []Entry

	// Caption fills the caption of entries that set none.
	Caption func(*model.Dataset) string
}

// Recorder keeps run history. A nil Recorder keeps none.
type Recorder interface {
	StartRun(ctx context.Context, run *model.RunSummary) error
	RecordFigure(ctx context.Context, runID string, fig model.FigureResult) error
	RecordError(ctx context.Context, runID string, err error) error
	FinishRun(ctx context.Context, run *model.RunSummary) error
}

// Runner executes presets.
type Runner struct {
	Renderer *chart.Renderer
	Recorder Recorder
	Logger   *zap.Logger
}

// NewRunner returns a runner with the default renderer and the global
// logger.
func NewRunner(rec Recorder) *Runner {
	return &Runner{Renderer: chart.NewRenderer(), Recorder: rec, Logger: zap.L()}
}

// rendered is a chart held in memory until the writer reaches it.
type rendered struct {
	ordinal  int
	slug     string
	fileName string
	png      *bytes.Buffer
	table    model.Table
}

// ------------------- Pipeline Runner -------------------

// Run loads the dataset, validates the preset's palettes against it,
// resets the output directory and writes every chart in order. Any failure
// is fatal; after the reset a failed run removes the output directory.
func (r *Runner) Run(ctx context.Context, preset Preset, spec model.RunSpec) (summary *model.RunSummary, err error) {
	log := r.Logger
	if log == nil {
		log = zap.L()
	}
	runID := uuid.NewString()
	log = log.With(zap.String("run_id", runID), zap.String("preset", preset.Name))

	dir := preset.Dir
	if spec.OutputDir != "" {
		dir = spec.OutputDir
	}
	summary = &model.RunSummary{
		RunID:     runID,
		Preset:    preset.Name,
		DataPath:  spec.DataPath,
		OutputDir: dir,
		Status:    model.StatusRunning,
		StartedAt: time.Now().UTC(),
		Figures:   make([]model.FigureResult, 0, len(preset.Entries)),
	}
	tracker := NewTracker(runID, log)
	r.record(ctx, log, func() error { return r.Recorder.StartRun(ctx, summary) })
	log.Info("run started", zap.String("data", spec.DataPath), zap.String("output", dir))

	defer func() {
		summary.FinishedAt = time.Now().UTC()
		summary.Metrics = tracker.Finish()
		summary.Status = model.StatusCompleted
		if err != nil {
			summary.Status = model.StatusFailed
			summary.Error = err.Error()
			r.record(ctx, log, func() error { return r.Recorder.RecordError(ctx, runID, err) })
			log.Error("run failed", zap.Error(err))
		} else {
			log.Info("run completed",
				zap.Int("figures", len(summary.Figures)),
				zap.Duration("duration", summary.Metrics.Duration))
		}
		r.record(ctx, log, func() error { return r.Recorder.FinishRun(ctx, summary) })
	}()

	// --- LOAD STAGE ---
	tracker.StartStage(model.StageLoad)
	ds, err := LoadDataset(ctx, spec.DataPath)
	if err == nil {
		err = ValidatePalettes(preset, ds.Table)
	}
	tracker.EndStage(model.StageLoad, err)
	if err != nil {
		return summary, err
	}
	tracker.SetRecords(len(ds.Records))
	entries := withCaptions(preset, ds)

	// --- OUTPUT RESET ---
	om := utils.NewOutputManager(dir, preset.Ordinal)
	if err := om.Reset(); err != nil {
		return summary, model.Wrap(model.StageOutput, err)
	}
	defer func() {
		if err != nil {
			if rmErr := om.Discard(); rmErr != nil {
				log.Warn("failed to remove partial output", zap.Error(rmErr))
			}
		}
	}()

	// --- RENDER STAGE ---
	tracker.StartStage(model.StageRender)
	var tables []ChartTable
	write := func(c *rendered) error {
		n, err := om.WriteFile(c.fileName, c.png)
		if err != nil {
			return model.AtChart(model.StageOutput, c.fileName, err)
		}
		fig := model.FigureResult{
			Ordinal:   c.ordinal,
			Slug:      c.slug,
			FileName:  c.fileName,
			Path:      om.GetOutputFilePath(c.fileName),
			Bytes:     n,
			Rows:      c.table.Len(),
			WrittenAt: time.Now().UTC(),
		}
		summary.Figures = append(summary.Figures, fig)
		tables = append(tables, ChartTable{FileName: c.fileName, Table: c.table})
		r.record(ctx, log, func() error { return r.Recorder.RecordFigure(ctx, runID, fig) })
		log.Info("figure written", zap.String("chart", c.fileName), zap.Int64("bytes", n))
		return nil
	}
	if spec.Workers > 1 {
		err = r.renderParallel(ctx, om, entries, ds.Table, spec.Workers, tracker, write)
	} else {
		err = r.renderSequential(ctx, om, entries, ds.Table, tracker, write)
	}
	tracker.EndStage(model.StageRender, err)
	if err != nil {
		return summary, err
	}

	// --- EXPORT STAGE ---
	if spec.ExportTables != "" {
		tracker.StartStage(model.StageOutput)
		_, err = ExportTables(runID, spec.ExportTables, tables)
		tracker.EndStage(model.StageOutput, err)
		if err != nil {
			return summary, err
		}
	}
	return summary, nil
}

// renderSequential aggregates, renders and writes one chart at a time.
func (r *Runner) renderSequential(ctx context.Context, om *utils.OutputManager, entries []Entry, t model.Table, tracker *Tracker, write func(*rendered) error) error {
	for i, e := range entries {
		if err := ctx.Err(); err != nil {
			return model.Wrap(model.StageRender, err)
		}
		c, err := r.renderEntry(om, i+1, e, t, tracker)
		if err != nil {
			return err
		}
		if err := write(c); err != nil {
			return err
		}
	}
	return nil
}

// renderParallel renders into memory on a bounded worker group, then writes
// every chart in ordinal order. The first failure cancels the rest.
func (r *Runner) renderParallel(ctx context.Context, om *utils.OutputManager, entries []Entry, t model.Table, workers int, tracker *Tracker, write func(*rendered) error) error {
	out := make([]*rendered, len(entries))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, e := range entries {
		i, e := i, e
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return model.Wrap(model.StageRender, err)
			}
			c, err := r.renderEntry(om, i+1, e, t, tracker)
			if err != nil {
				return err
			}
			out[i] = c
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	for _, c := range out {
		if err := write(c); err != nil {
			return err
		}
	}
	return nil
}

// renderEntry derives one chart's table and renders it to PNG bytes.
func (r *Runner) renderEntry(om *utils.OutputManager, ordinal int, e Entry, t model.Table, tracker *Tracker) (*rendered, error) {
	fileName := om.FileName(ordinal, e.Slug)

	start := time.Now()
	table, err := e.Build(t)
	if err != nil {
		return nil, model.AtChart(model.StageAggregate, fileName, err)
	}
	aggTime := time.Since(start)

	start = time.Now()
	buf := new(bytes.Buffer)
	if err := r.Renderer.Render(buf, table, e.Chart); err != nil {
		return nil, model.AtChart(model.StageRender, fileName, err)
	}
	tracker.RecordChart(model.ChartMetrics{
		FileName:      fileName,
		Rows:          table.Len(),
		AggregateTime: aggTime,
		RenderTime:    time.Since(start),
		Bytes:         int64(buf.Len()),
	})
	return &rendered{ordinal: ordinal, slug: e.Slug, fileName: fileName, png: buf, table: table}, nil
}

// record forwards to the Recorder when one is set. History failures are
// logged and never fail the run.
func (r *Runner) record(ctx context.Context, log *zap.Logger, fn func() error) {
	if r.Recorder == nil {
		return
	}
	if err := fn(); err != nil {
		log.Warn("failed to record run history", zap.Error(err))
	}
}

// ValidatePalettes checks that every palette bound to a raw category column
// colors all categories present in the loaded table. The error names the
// first chart that would fail.
func ValidatePalettes(preset Preset, t model.Table) error {
	names := FileNames(preset)
	cache := make(map[string][]string)
	for i, e := range preset.Entries {
		col := e.Chart.Color
		if col == "" || !t.HasColumn(col) {
			continue
		}
		if _, ok := cache[col]; !ok {
			cache[col] = t.Unique(col)
		}
		if err := e.Chart.Palette.Validate(cache[col]); err != nil {
			return model.AtChart(model.StageRender, names[i], err)
		}
	}
	return nil
}

func withCaptions(preset Preset, ds *model.Dataset) []Entry {
	entries := append([]Entry(nil), preset.Entries...)
	if preset.Caption == nil {
		return entries
	}
	caption := preset.Caption(ds)
	for i := range entries {
		if entries[i].Chart.Caption == "" {
			entries[i].Chart.Caption = caption
		}
	}
	return entries
}

// FileNames lists the file names a preset writes, in order.
func FileNames(preset Preset) []string {
	om := utils.NewOutputManager(preset.Dir, preset.Ordinal)
	names := make([]string, len(preset.Entries))
	for i, e := range preset.Entries {
		names[i] = om.FileName(i+1, e.Slug)
	}
	return names
}

// Describe summarizes a preset for listings.
func Describe(preset Preset) string {
	naming := "descriptive names"
	if preset.Ordinal {
		naming = "ordinal names"
	}
	return fmt.Sprintf("%s: %d charts in %s (%s)", preset.Name, len(preset.Entries), filepath.Clean(preset.Dir), naming)
}
