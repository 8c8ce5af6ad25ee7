package pipeline

import (
	"sort"
	"sync"
	"time"

	"epec-pipeline/internal/model"

	"go.uber.org/zap"
)

// ------------------- Run Tracking -------------------

// Tracker collects stage and chart timings for one run. It is safe for
// use by concurrent render workers.
type Tracker struct {
	RunID   string
	Metrics *model.RunMetrics
	Mutex   sync.Mutex
	start   time.Time
	log     *zap.Logger
}

// NewTracker starts timing a run.
func NewTracker(runID string, log *zap.Logger) *Tracker {
	return &Tracker{
		RunID: runID,
		Metrics: &model.RunMetrics{
			StageMetrics: make(map[string]model.StageMetrics),
			ChartMetrics: make([]model.ChartMetrics, 0),
		},
		start: time.Now(),
		log:   log,
	}
}

// StartStage marks a stage as running.
func (t *Tracker) StartStage(stage model.Stage) {
	t.Mutex.Lock()
	defer t.Mutex.Unlock()
	t.Metrics.StageMetrics[string(stage)] = model.StageMetrics{
		StageName: string(stage),
		StartTime: time.Now(),
		Status:    model.StatusRunning,
	}
	t.log.Debug("stage started", zap.String("stage", string(stage)))
}

// EndStage closes a stage, completed when err is nil and failed otherwise.
func (t *Tracker) EndStage(stage model.Stage, err error) {
	t.Mutex.Lock()
	defer t.Mutex.Unlock()
	m, ok := t.Metrics.StageMetrics[string(stage)]
	if !ok {
		return
	}
	m.EndTime = time.Now()
	m.Duration = m.EndTime.Sub(m.StartTime)
	m.Status = model.StatusCompleted
	if err != nil {
		m.Status = model.StatusFailed
	}
	t.Metrics.StageMetrics[string(stage)] = m
	t.log.Debug("stage finished",
		zap.String("stage", string(stage)),
		zap.String("status", m.Status),
		zap.Duration("duration", m.Duration))
}

// RecordChart adds the timings of one rendered chart.
func (t *Tracker) RecordChart(cm model.ChartMetrics) {
	t.Mutex.Lock()
	defer t.Mutex.Unlock()
	t.Metrics.ChartMetrics = append(t.Metrics.ChartMetrics, cm)
}

// SetRecords stores the number of loaded input rows.
func (t *Tracker) SetRecords(n int) {
	t.Mutex.Lock()
	defer t.Mutex.Unlock()
	t.Metrics.TotalRecords = n
}

// Finish stamps the run duration and returns a snapshot of the metrics,
// with charts in file-name order.
func (t *Tracker) Finish() *model.RunMetrics {
	t.Mutex.Lock()
	defer t.Mutex.Unlock()

	out := &model.RunMetrics{
		TotalRecords: t.Metrics.TotalRecords,
		Duration:     time.Since(t.start),
		StageMetrics: make(map[string]model.StageMetrics, len(t.Metrics.StageMetrics)),
		ChartMetrics: append([]model.ChartMetrics(nil), t.Metrics.ChartMetrics...),
	}
	for k, v := range t.Metrics.StageMetrics {
		out.StageMetrics[k] = v
	}
	sort.SliceStable(out.ChartMetrics, func(i, j int) bool {
		return out.ChartMetrics[i].FileName < out.ChartMetrics[j].FileName
	})
	t.Metrics.Duration = out.Duration
	return out
}
