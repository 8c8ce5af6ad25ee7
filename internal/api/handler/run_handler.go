package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"

	"epec-pipeline/internal/store"
	"epec-pipeline/pkg/router"

	"go.uber.org/zap"
)

// Route patterns, shared with the router registration.
const (
	RunsPath        = "/api/v1/runs"
	RunPath         = "/api/v1/runs/*"
	RunFiguresPath  = "/api/v1/runs/*/figures"
	RunErrorsPath   = "/api/v1/runs/*/errors"
	FigureFilePath  = "/api/v1/figures/*/*"
	pngContentType  = "image/png"
	jsonContentType = "application/json"
)

// ListRuns retrieves all recorded runs
// @Summary List runs
// @Description Get every recorded pipeline run, newest first
// @Tags runs
// @Produce json
// @Success 200 {array} model.RunSummary "List of runs"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /runs [get]
func ListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := store.ListRuns(r.Context())
	if err != nil {
		fail(w, "Failed to fetch runs", err)
		return
	}
	writeJSON(w, runs)
}

// GetRun retrieves one run with its figures
// @Summary Get run
// @Description Retrieve a run's status, timings and written figures
// @Tags runs
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} model.RunSummary "Run details"
// @Failure 404 {object} map[string]interface{} "Run not found"
// @Router /runs/{id} [get]
func GetRun(w http.ResponseWriter, r *http.Request) {
	run, err := store.GetRun(r.Context(), router.Segments(r.URL.Path, RunPath)[0])
	if err != nil {
		fail(w, "Run not found", err)
		return
	}
	writeJSON(w, run)
}

// GetRunFigures retrieves the figures of a run
// @Summary Get run figures
// @Description Retrieve the figures a run wrote, in ordinal order
// @Tags runs
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {array} model.FigureResult "Figures"
// @Failure 404 {object} map[string]interface{} "Run not found"
// @Router /runs/{id}/figures [get]
func GetRunFigures(w http.ResponseWriter, r *http.Request) {
	run, err := store.GetRun(r.Context(), router.Segments(r.URL.Path, RunFiguresPath)[0])
	if err != nil {
		fail(w, "Run not found", err)
		return
	}
	writeJSON(w, run.Figures)
}

// GetRunErrors retrieves errors for a run
// @Summary Get run errors
// @Description Retrieve the failures recorded for a run
// @Tags runs
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {array} store.RunError "Run errors"
// @Failure 404 {object} map[string]interface{} "Run not found"
// @Router /runs/{id}/errors [get]
func GetRunErrors(w http.ResponseWriter, r *http.Request) {
	runID := router.Segments(r.URL.Path, RunErrorsPath)[0]
	if _, err := store.GetRun(r.Context(), runID); err != nil {
		fail(w, "Run not found", err)
		return
	}
	errs, err := store.ListRunErrors(r.Context(), runID)
	if err != nil {
		fail(w, "Failed to fetch run errors", err)
		return
	}
	writeJSON(w, errs)
}

// GetFigure downloads one figure
// @Summary Download figure
// @Description Serve a PNG written by a run
// @Tags figures
// @Produce png
// @Param id path string true "Run ID"
// @Param file path string true "Figure file name"
// @Success 200 {file} binary "PNG image"
// @Failure 404 {object} map[string]interface{} "Figure not found"
// @Router /figures/{id}/{file} [get]
func GetFigure(w http.ResponseWriter, r *http.Request) {
	seg := router.Segments(r.URL.Path, FigureFilePath)
	runID, file := seg[0], seg[1]
	if filepath.Base(file) != file {
		http.Error(w, "Invalid file name", http.StatusBadRequest)
		return
	}
	fig, err := store.GetFigure(r.Context(), runID, file)
	if err != nil {
		fail(w, "Figure not found", err)
		return
	}
	f, err := os.Open(fig.Path)
	if err != nil {
		// Output directories are reset by later runs of the same preset.
		http.Error(w, "Figure file no longer on disk", http.StatusGone)
		return
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		fail(w, "Failed to read figure", err)
		return
	}
	w.Header().Set("Content-Type", pngContentType)
	http.ServeContent(w, r, fig.FileName, info.ModTime(), f)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", jsonContentType)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("failed to encode response", zap.Error(err))
	}
}

// fail maps store errors to 404 or 500.
func fail(w http.ResponseWriter, msg string, err error) {
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, msg, http.StatusNotFound)
		return
	}
	zap.L().Error(msg, zap.Error(err))
	http.Error(w, msg, http.StatusInternalServerError)
}
