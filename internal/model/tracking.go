package model

import "time"

// RunMetrics collects per-stage timings for one run.
type RunMetrics struct {
	TotalRecords int                     `json:"total_records"`
	Duration     time.Duration           `json:"duration"`
	StageMetrics map[string]StageMetrics `json:"stage_metrics"`
	ChartMetrics []ChartMetrics          `json:"chart_metrics"`
}

// StageMetrics represents metrics for a specific pipeline stage.
type StageMetrics struct {
	StageName string        `json:"stage_name"`
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Duration  time.Duration `json:"duration"`
	Status    string        `json:"status"` // "running", "completed", "failed"
}

// ChartMetrics times the aggregate and render steps of a single chart.
type ChartMetrics struct {
	FileName      string        `json:"file_name"`
	Rows          int           `json:"rows"`
	AggregateTime time.Duration `json:"aggregate_time"`
	RenderTime    time.Duration `json:"render_time"`
	Bytes         int64         `json:"bytes"`
}
