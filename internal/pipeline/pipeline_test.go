package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"epec-pipeline/internal/chart"
	"epec-pipeline/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// fakeRecorder keeps every history call in memory.
type fakeRecorder struct {
	mu       sync.Mutex
	started  []string
	figures  []model.FigureResult
	errs     []error
	finished []*model.RunSummary
	fail     error
}

func (f *fakeRecorder) StartRun(ctx context.Context, run *model.RunSummary) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = append(f.started, run.RunID)
	return f.fail
}

func (f *fakeRecorder) RecordFigure(ctx context.Context, runID string, fig model.FigureResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.figures = append(f.figures, fig)
	return f.fail
}

func (f *fakeRecorder) RecordError(ctx context.Context, runID string, err error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs = append(f.errs, err)
	return f.fail
}

func (f *fakeRecorder) FinishRun(ctx context.Context, run *model.RunSummary) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *run
	f.finished = append(f.finished, &cp)
	return f.fail
}

func testRunner(rec Recorder) *Runner {
	r := NewRunner(rec)
	r.Renderer = chart.NewRenderer(chart.WithDPI(30))
	r.Logger = zap.NewNop()
	return r
}

func testPreset(ordinal bool) Preset {
	return Preset{
		Name:    "test",
		Dir:     "unused",
		Ordinal: ordinal,
		Caption: func(ds *model.Dataset) string { return "Source: test" },
		Entries: []Entry{
			{
				Slug:  "value_by_year",
				Build: ByYear,
				Chart: chart.Spec{Geometry: chart.Column, X: model.ColYear, Y: model.ColProjectValue, Title: "Value"},
			},
			{
				Slug:  "value_by_sector",
				Build: BySector,
				Chart: chart.Spec{
					Geometry: chart.Bar, X: model.ColSector, Y: model.ColProjectValue,
					Color: model.ColSector, Palette: chart.SectorPalette, Title: "Sectors",
				},
			},
			{
				Slug:  "projects_by_year",
				Build: ByYear,
				Chart: chart.Spec{Geometry: chart.Line, X: model.ColYear, Y: model.ColProjectCount, Title: "Projects"},
			},
			{
				Slug:  "value_by_country",
				Build: ByCountry,
				Chart: chart.Spec{Geometry: chart.Lollipop, X: model.ColCountry, Y: model.ColProjectValue, Title: "Countries"},
			},
		},
	}
}

func TestRunWritesOrderedFigures(t *testing.T) {
	data := writeFile(t, t.TempDir(), "epec.csv", validCSV)
	out := filepath.Join(t.TempDir(), "figures")
	rec := &fakeRecorder{}

	summary, err := testRunner(rec).Run(context.Background(), testPreset(true), model.RunSpec{
		DataPath:  data,
		OutputDir: out,
	})
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, summary.Status)
	assert.Equal(t, out, summary.OutputDir)
	assert.NotEmpty(t, summary.RunID)

	want := []string{"01_value_by_year.png", "02_value_by_sector.png", "03_projects_by_year.png", "04_value_by_country.png"}
	require.Len(t, summary.Figures, len(want))
	for i, fig := range summary.Figures {
		assert.Equal(t, i+1, fig.Ordinal)
		assert.Equal(t, want[i], fig.FileName)
		assert.Equal(t, filepath.Join(out, want[i]), fig.Path)

		f, err := os.Open(fig.Path)
		require.NoError(t, err)
		img, err := png.Decode(f)
		f.Close()
		require.NoError(t, err)
		assert.Equal(t, 300, img.Bounds().Dx())
		assert.Equal(t, 180, img.Bounds().Dy())
	}

	entries, err := os.ReadDir(out)
	require.NoError(t, err)
	assert.Len(t, entries, len(want))

	require.NotNil(t, summary.Metrics)
	assert.Equal(t, 3, summary.Metrics.TotalRecords)
	assert.Len(t, summary.Metrics.ChartMetrics, len(want))
	assert.Equal(t, model.StatusCompleted, summary.Metrics.StageMetrics[string(model.StageRender)].Status)

	assert.Equal(t, []string{summary.RunID}, rec.started)
	assert.Len(t, rec.figures, len(want))
	assert.Empty(t, rec.errs)
	require.Len(t, rec.finished, 1)
	assert.Equal(t, model.StatusCompleted, rec.finished[0].Status)
}

func TestRunReplacesStaleOutput(t *testing.T) {
	data := writeFile(t, t.TempDir(), "epec.csv", validCSV)
	out := t.TempDir()
	writeFile(t, out, "stale.png", "old")

	_, err := testRunner(nil).Run(context.Background(), testPreset(false), model.RunSpec{DataPath: data, OutputDir: out})
	require.NoError(t, err)
	assert.NoFileExists(t, filepath.Join(out, "stale.png"))
	assert.FileExists(t, filepath.Join(out, "value_by_year.png"))
}

func TestRunParallelKeepsOrder(t *testing.T) {
	data := writeFile(t, t.TempDir(), "epec.csv", validCSV)
	out := filepath.Join(t.TempDir(), "figures")

	summary, err := testRunner(nil).Run(context.Background(), testPreset(true), model.RunSpec{
		DataPath:  data,
		OutputDir: out,
		Workers:   4,
	})
	require.NoError(t, err)
	require.Len(t, summary.Figures, 4)
	for i, fig := range summary.Figures {
		assert.Equal(t, i+1, fig.Ordinal)
	}
	assert.Equal(t, FileNames(Preset{Dir: out, Ordinal: true, Entries: testPreset(true).Entries}), []string{
		summary.Figures[0].FileName, summary.Figures[1].FileName,
		summary.Figures[2].FileName, summary.Figures[3].FileName,
	})
}

func TestRunRenderFailureRemovesOutput(t *testing.T) {
	data := writeFile(t, t.TempDir(), "epec.csv", validCSV)
	out := filepath.Join(t.TempDir(), "figures")
	rec := &fakeRecorder{}

	preset := testPreset(true)
	preset.Entries = append(preset.Entries, Entry{
		Slug:  "broken",
		Build: ByYear,
		Chart: chart.Spec{Geometry: chart.Line, X: model.ColYear, Y: "no_such_column"},
	})

	for _, workers := range []int{1, 3} {
		summary, err := testRunner(rec).Run(context.Background(), preset, model.RunSpec{
			DataPath: data, OutputDir: out, Workers: workers,
		})
		require.Error(t, err)
		assert.True(t, errors.Is(err, model.ErrRender))
		assert.Contains(t, err.Error(), "05_broken.png")
		assert.Equal(t, model.StatusFailed, summary.Status)
		assert.NoDirExists(t, out, "a failed run leaves no partial output")
	}
	assert.Len(t, rec.errs, 2)
}

func TestRunAggregationFailure(t *testing.T) {
	data := writeFile(t, t.TempDir(), "epec.csv", validCSV)
	out := filepath.Join(t.TempDir(), "figures")

	preset := testPreset(false)
	preset.Entries = []Entry{{
		Slug:  "bad_group",
		Build: func(t model.Table) (model.Table, error) { return Summarize(t, "region") },
		Chart: chart.Spec{Geometry: chart.Bar, X: "region", Y: model.ColProjectValue},
	}}

	_, err := testRunner(nil).Run(context.Background(), preset, model.RunSpec{DataPath: data, OutputDir: out})
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrAggregation))
	assert.Equal(t, model.StageAggregate, model.StageOf(err))
	assert.NoDirExists(t, out)
}

func TestRunLoadFailureLeavesOutputAlone(t *testing.T) {
	out := t.TempDir()
	writeFile(t, out, "keep.png", "previous run")

	_, err := testRunner(nil).Run(context.Background(), testPreset(true), model.RunSpec{
		DataPath:  filepath.Join(t.TempDir(), "missing.csv"),
		OutputDir: out,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrDataLoad))
	assert.FileExists(t, filepath.Join(out, "keep.png"))
}

func TestRunRejectsUnmappedSector(t *testing.T) {
	data := writeFile(t, t.TempDir(), "epec.csv", validCSV+"C,Space,2021,1,5\n")
	out := filepath.Join(t.TempDir(), "figures")

	_, err := testRunner(nil).Run(context.Background(), testPreset(true), model.RunSpec{DataPath: data, OutputDir: out})
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrRender))
	assert.Contains(t, err.Error(), "Space")
	assert.Contains(t, err.Error(), "02_value_by_sector.png")
	assert.NoDirExists(t, out, "palettes are checked before the output is reset")
}

func TestRunRecorderFailureIsNotFatal(t *testing.T) {
	data := writeFile(t, t.TempDir(), "epec.csv", validCSV)
	rec := &fakeRecorder{fail: errors.New("disk full")}

	summary, err := testRunner(rec).Run(context.Background(), testPreset(true), model.RunSpec{
		DataPath:  data,
		OutputDir: filepath.Join(t.TempDir(), "figures"),
	})
	require.NoError(t, err)
	assert.Len(t, summary.Figures, 4)
}

func TestRunCancelled(t *testing.T) {
	data := writeFile(t, t.TempDir(), "epec.csv", validCSV)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := testRunner(nil).Run(ctx, testPreset(true), model.RunSpec{
		DataPath:  data,
		OutputDir: filepath.Join(t.TempDir(), "figures"),
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestRunExportsTables(t *testing.T) {
	data := writeFile(t, t.TempDir(), "epec.csv", validCSV)
	exportDir := t.TempDir()

	t.Run("json", func(t *testing.T) {
		path := filepath.Join(exportDir, "tables.json")
		summary, err := testRunner(nil).Run(context.Background(), testPreset(true), model.RunSpec{
			DataPath:     data,
			OutputDir:    filepath.Join(t.TempDir(), "figures"),
			ExportTables: path,
		})
		require.NoError(t, err)

		raw, err := os.ReadFile(path)
		require.NoError(t, err)
		var doc struct {
			ExportInfo struct {
				RunID      string `json:"run_id"`
				TableCount int    `json:"table_count"`
			} `json:"export_info"`
			Tables []struct {
				FileName string `json:"file_name"`
				Table    struct {
					Rows []map[string]interface{} `json:"rows"`
				} `json:"table"`
			} `json:"tables"`
		}
		require.NoError(t, json.Unmarshal(raw, &doc))
		assert.Equal(t, summary.RunID, doc.ExportInfo.RunID)
		assert.Equal(t, 4, doc.ExportInfo.TableCount)
		require.Len(t, doc.Tables, 4)
		assert.Equal(t, "01_value_by_year.png", doc.Tables[0].FileName)
		assert.Len(t, doc.Tables[0].Table.Rows, 2)
	})

	t.Run("xlsx", func(t *testing.T) {
		path := filepath.Join(exportDir, "tables.xlsx")
		_, err := testRunner(nil).Run(context.Background(), testPreset(true), model.RunSpec{
			DataPath:     data,
			OutputDir:    filepath.Join(t.TempDir(), "figures"),
			ExportTables: path,
		})
		require.NoError(t, err)

		f, err := excelize.OpenFile(path)
		require.NoError(t, err)
		defer f.Close()
		assert.Equal(t, []string{"01_value_by_year", "02_value_by_sector", "03_projects_by_year", "04_value_by_country"}, f.GetSheetList())

		rows, err := f.GetRows("02_value_by_sector")
		require.NoError(t, err)
		require.Len(t, rows, 3)
		assert.Equal(t, model.ColSector, rows[0][0])
	})
}

func TestExportTablesUnsupportedFormat(t *testing.T) {
	_, err := ExportTables("run", filepath.Join(t.TempDir(), "tables.csv"), nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrOutput))
}

func TestExportJSONWritesNullForUndefined(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tables.json")
	tbl := series("avg", model.ColAvgProjectSize, 1.5, math.NaN())

	res, err := ExportTables("run", path, []ChartTable{{FileName: "avg.png", Table: tbl}})
	require.NoError(t, err)
	assert.Equal(t, "json", res.Type)
	assert.Equal(t, 2, res.Rows)
	assert.Positive(t, res.Bytes)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"avg_project_size": null`)
}

func TestSheetNameTruncates(t *testing.T) {
	assert.Equal(t, "01_value_by_year", sheetName("01_value_by_year.png"))
	assert.Len(t, sheetName("20_an_extremely_long_descriptive_chart_name.png"), 31)
}

func TestTracker(t *testing.T) {
	tr := NewTracker("run", zap.NewNop())
	tr.StartStage(model.StageLoad)
	tr.EndStage(model.StageLoad, nil)
	tr.StartStage(model.StageRender)
	tr.EndStage(model.StageRender, errors.New("boom"))
	tr.EndStage(model.StageOutput, nil)
	tr.SetRecords(7)

	var wg sync.WaitGroup
	for _, name := range []string{"02_b.png", "01_a.png", "03_c.png"} {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			tr.RecordChart(model.ChartMetrics{FileName: name})
		}(name)
	}
	wg.Wait()

	m := tr.Finish()
	assert.Equal(t, 7, m.TotalRecords)
	assert.Equal(t, model.StatusCompleted, m.StageMetrics["load"].Status)
	assert.Equal(t, model.StatusFailed, m.StageMetrics["render"].Status)
	assert.NotContains(t, m.StageMetrics, "output")
	require.Len(t, m.ChartMetrics, 3)
	assert.Equal(t, "01_a.png", m.ChartMetrics[0].FileName)
	assert.Equal(t, "03_c.png", m.ChartMetrics[2].FileName)
}

func TestFileNamesAndDescribe(t *testing.T) {
	ordinal := testPreset(true)
	assert.Equal(t, []string{
		"01_value_by_year.png", "02_value_by_sector.png",
		"03_projects_by_year.png", "04_value_by_country.png",
	}, FileNames(ordinal))
	assert.Equal(t, "test: 4 charts in unused (ordinal names)", Describe(ordinal))

	named := testPreset(false)
	assert.Equal(t, "value_by_year.png", FileNames(named)[0])
	assert.Equal(t, "test: 4 charts in unused (descriptive names)", Describe(named))
}

func TestValidatePalettesSkipsDerivedColumns(t *testing.T) {
	preset := Preset{Name: "p", Entries: []Entry{{
		Slug:  "rolling",
		Build: ByYear,
		Chart: chart.Spec{Geometry: chart.Line, X: model.ColYear, Y: "v", Color: "series", Palette: chart.Palette{Name: "empty"}},
	}}}
	assert.NoError(t, ValidatePalettes(preset, threeRows(t)))
}
