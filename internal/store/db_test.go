package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"epec-pipeline/internal/model"
	"epec-pipeline/internal/pipeline"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) {
	t.Helper()
	require.NoError(t, InitDB(filepath.Join(t.TempDir(), "history.db")))
	t.Cleanup(func() { Close() })
}

var _ pipeline.Recorder = History{}

func TestRunLifecycle(t *testing.T) {
	openTestDB(t)
	ctx := context.Background()
	started := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	run := &model.RunSummary{
		RunID:     "run-1",
		Preset:    "full",
		DataPath:  "data/epec.csv",
		OutputDir: "figures",
		Status:    model.StatusRunning,
		StartedAt: started,
	}
	h := History{}
	require.NoError(t, h.StartRun(ctx, run))

	got, err := GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusRunning, got.Status)
	assert.True(t, got.FinishedAt.IsZero())
	assert.Empty(t, got.Figures)

	for i, name := range []string{"02_b.png", "01_a.png"} {
		require.NoError(t, h.RecordFigure(ctx, "run-1", model.FigureResult{
			Ordinal:   2 - i,
			Slug:      name[3 : len(name)-4],
			FileName:  name,
			Path:      filepath.Join("figures", name),
			Bytes:     int64(100 * (i + 1)),
			Rows:      3,
			WrittenAt: started.Add(time.Second),
		}))
	}

	run.Status = model.StatusCompleted
	run.Figures = make([]model.FigureResult, 2)
	run.FinishedAt = started.Add(time.Minute)
	require.NoError(t, h.FinishRun(ctx, run))

	got, err = GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, got.Status)
	assert.True(t, got.FinishedAt.Equal(started.Add(time.Minute)))
	require.Len(t, got.Figures, 2)
	assert.Equal(t, "01_a.png", got.Figures[0].FileName, "figures come back in ordinal order")
	assert.Equal(t, "a", got.Figures[0].Slug)
	assert.Equal(t, int64(200), got.Figures[0].Bytes)

	fig, err := GetFigure(ctx, "run-1", "02_b.png")
	require.NoError(t, err)
	assert.Equal(t, 2, fig.Ordinal)
	assert.Equal(t, filepath.Join("figures", "02_b.png"), fig.Path)
}

func TestListRunsNewestFirst(t *testing.T) {
	openTestDB(t)
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	for i, id := range []string{"old", "new", "middle"} {
		offset := map[string]time.Duration{"old": 0, "middle": time.Hour, "new": 2 * time.Hour}[id]
		require.NoError(t, SaveRun(ctx, &model.RunSummary{
			RunID: id, Preset: "bbc", Status: model.StatusRunning, StartedAt: base.Add(offset),
		}), "run %d", i)
	}

	runs, err := ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, "new", runs[0].RunID)
	assert.Equal(t, "middle", runs[1].RunID)
	assert.Equal(t, "old", runs[2].RunID)
}

func TestRunErrors(t *testing.T) {
	openTestDB(t)
	ctx := context.Background()
	require.NoError(t, SaveRun(ctx, &model.RunSummary{RunID: "bad", Status: model.StatusRunning, StartedAt: time.Now().UTC()}))

	require.NoError(t, SaveRunError(ctx, "bad", model.AtChart(model.StageRender, "03_c.png", errors.New("no color for Space"))))
	require.NoError(t, SaveRunError(ctx, "bad", errors.New("untagged")))
	require.NoError(t, SaveRunError(ctx, "bad", nil))

	errs, err := ListRunErrors(ctx, "bad")
	require.NoError(t, err)
	require.Len(t, errs, 2)
	assert.Equal(t, "render", errs[0].Stage)
	assert.Contains(t, errs[0].Message, "03_c.png")
	assert.Empty(t, errs[1].Stage)

	none, err := ListRunErrors(ctx, "unknown")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestNotFound(t *testing.T) {
	openTestDB(t)
	ctx := context.Background()

	_, err := GetRun(ctx, "missing")
	assert.True(t, errors.Is(err, ErrNotFound))

	_, err = GetFigure(ctx, "missing", "01_a.png")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestCloseIsIdempotent(t *testing.T) {
	require.NoError(t, InitDB(filepath.Join(t.TempDir(), "history.db")))
	assert.NoError(t, Close())
	assert.NoError(t, Close())
}
