package pipeline

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"epec-pipeline/internal/model"

	"go.uber.org/zap"
)

// ------------------- Ingestion -------------------

// LoadDataset reads the EPEC CSV at path, validates it, derives the
// computed columns and picks up the provenance sidecar when present.
// Every failure is a DataLoadError.
func LoadDataset(ctx context.Context, path string) (*model.Dataset, error) {
	log := zap.L().With(zap.String("path", path))

	file, err := os.Open(path)
	if err != nil {
		return nil, model.Errorf(model.StageLoad, "failed to open CSV file: %w", err)
	}
	defer file.Close()

	records, err := readRecords(ctx, file, RawSchemaRules, DefaultTransformations)
	if err != nil {
		return nil, model.Wrap(model.StageLoad, fmt.Errorf("%s: %w", path, err))
	}

	ds := &model.Dataset{
		Path:    path,
		Records: records,
		Table:   recordsToTable(records),
	}

	prov, err := readProvenance(MetadataPath(path))
	switch {
	case err == nil:
		ds.Provenance = prov
		checkProvenance(log, ds)
	case errors.Is(err, os.ErrNotExist):
		log.Debug("no provenance sidecar")
	default:
		log.Warn("ignoring unreadable provenance sidecar", zap.Error(err))
	}

	log.Info("dataset loaded", zap.Int("rows", len(records)))
	return ds, nil
}

// readRecords parses CSV rows into Records. Rows are checked against rules
// and then passed through the named transformations.
func readRecords(ctx context.Context, r io.Reader, rules model.ValidationRules, transformations []string) ([]model.Record, error) {
	csvReader := csv.NewReader(r)
	csvReader.ReuseRecord = true

	header, err := csvReader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("empty file, header row required")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	index, err := validateHeader(header, rules)
	if err != nil {
		return nil, err
	}

	var records []model.Record
	line := 1
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		row, err := csvReader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("CSV read error: %w", err)
		}

		cells := make(map[string]string, len(rules.RequiredFields))
		for _, field := range rules.RequiredFields {
			cells[field] = strings.TrimSpace(row[index[field]])
		}
		rec, err := validateRecord(cells, rules)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if err := applyTransformations(&rec, transformations); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("no data rows")
	}
	return records, nil
}

// MetadataPath returns the sidecar path the extractor writes for csvPath:
// data/x.csv -> data/x.metadata.json.
func MetadataPath(csvPath string) string {
	ext := filepath.Ext(csvPath)
	return strings.TrimSuffix(csvPath, ext) + ".metadata.json"
}

func readProvenance(path string) (*model.Provenance, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var prov model.Provenance
	if err := json.Unmarshal(raw, &prov); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return &prov, nil
}

// checkProvenance compares sidecar totals with what was loaded. Mismatches
// only warn: the CSV is the source of truth for rendering.
func checkProvenance(log *zap.Logger, ds *model.Dataset) {
	prov := ds.Provenance
	if prov.RowCount != 0 && prov.RowCount != len(ds.Records) {
		log.Warn("row count differs from provenance",
			zap.Int("loaded", len(ds.Records)), zap.Int("recorded", prov.RowCount))
	}
	var projects int
	var value float64
	for _, r := range ds.Records {
		projects += r.ProjectCount
		value += r.ProjectValue
	}
	if prov.TotalProjects != 0 && prov.TotalProjects != projects {
		log.Warn("project total differs from provenance",
			zap.Int("loaded", projects), zap.Int("recorded", prov.TotalProjects))
	}
	if prov.TotalValueMillions != 0 && math.Round(value) != math.Round(prov.TotalValueMillions) {
		log.Warn("value total differs from provenance",
			zap.Float64("loaded", value), zap.Float64("recorded", prov.TotalValueMillions))
	}
}
