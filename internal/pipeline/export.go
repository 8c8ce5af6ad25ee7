package pipeline

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"epec-pipeline/internal/model"
	"epec-pipeline/pkg/utils"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// ------------------- Table Export -------------------

// ExportResult represents the result of a table export
type ExportResult struct {
	Type       string    `json:"type"` // "json" or "excel"
	Path       string    `json:"path"`
	Tables     int       `json:"tables"`
	Rows       int       `json:"rows"`
	Bytes      int64     `json:"bytes"`
	ExportedAt time.Time `json:"exported_at"`
}

// ChartTable is the derived table behind one written chart.
type ChartTable struct {
	FileName string      `json:"file_name"`
	Table    model.Table `json:"table"`
}

// maxSheetName is Excel's sheet name limit.
const maxSheetName = 31

// ExportTables writes the derived tables of a run to path. The extension
// picks the format: .json holds one document, .xlsx one sheet per chart.
func ExportTables(runID, path string, tables []ChartTable) (ExportResult, error) {
	om := utils.NewOutputManager(filepath.Dir(path), false)
	result := ExportResult{Type: om.GetFileType(path), Path: path, Tables: len(tables)}
	for _, ct := range tables {
		result.Rows += ct.Table.Len()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return result, model.Errorf(model.StageOutput, "failed to create export directory: %w", err)
	}

	var err error
	switch result.Type {
	case "json":
		err = exportJSON(runID, path, tables)
	case "excel":
		err = exportExcel(path, tables)
	default:
		err = fmt.Errorf("unsupported export format %q", filepath.Ext(path))
	}
	if err != nil {
		return result, model.Wrap(model.StageOutput, err)
	}

	result.ExportedAt = time.Now().UTC()
	if result.Bytes, err = om.GetFileSize(path); err != nil {
		return result, model.Wrap(model.StageOutput, err)
	}
	zap.L().Info("tables exported",
		zap.String("path", path),
		zap.String("type", result.Type),
		zap.Int("tables", result.Tables),
		zap.Int("rows", result.Rows))
	return result, nil
}

// exportJSON writes every table with its export metadata.
func exportJSON(runID, path string, tables []ChartTable) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")

	out := make([]ChartTable, len(tables))
	for i, ct := range tables {
		out[i] = ChartTable{FileName: ct.FileName, Table: jsonSafe(ct.Table)}
	}
	exportData := map[string]interface{}{
		"export_info": map[string]interface{}{
			"run_id":      runID,
			"exported_at": time.Now().UTC(),
			"table_count": len(tables),
			"export_type": "chart_tables",
		},
		"tables": out,
	}
	if err := encoder.Encode(exportData); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return file.Close()
}

// jsonSafe replaces undefined measures with null, which encoding/json
// cannot write as NaN.
func jsonSafe(t model.Table) model.Table {
	out := t.WithColumns()
	for _, row := range out.Rows {
		for k, v := range row {
			if f, ok := v.(float64); ok && (math.IsNaN(f) || math.IsInf(f, 0)) {
				row[k] = nil
			}
		}
	}
	return out
}

// exportExcel writes one sheet per chart: a header row, then data rows.
func exportExcel(path string, tables []ChartTable) error {
	f := excelize.NewFile()
	defer f.Close()

	for i, ct := range tables {
		sheet := sheetName(ct.FileName)
		idx, err := f.NewSheet(sheet)
		if err != nil {
			return fmt.Errorf("sheet %s: %w", sheet, err)
		}
		if i == 0 {
			f.SetActiveSheet(idx)
		}
		header := make([]interface{}, len(ct.Table.Columns))
		for c, name := range ct.Table.Columns {
			header[c] = name
		}
		if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
			return fmt.Errorf("sheet %s header: %w", sheet, err)
		}
		for r, row := range ct.Table.Rows {
			cells := make([]interface{}, len(ct.Table.Columns))
			for c, name := range ct.Table.Columns {
				v := row[name]
				if fv, ok := v.(float64); ok && (math.IsNaN(fv) || math.IsInf(fv, 0)) {
					v = nil
				}
				cells[c] = v
			}
			cell, err := excelize.CoordinatesToCellName(1, r+2)
			if err != nil {
				return err
			}
			if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
				return fmt.Errorf("sheet %s row %d: %w", sheet, r+1, err)
			}
		}
	}
	if len(tables) > 0 {
		if err := f.DeleteSheet("Sheet1"); err != nil {
			return err
		}
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	return nil
}

func sheetName(fileName string) string {
	name := strings.TrimSuffix(fileName, filepath.Ext(fileName))
	if len(name) > maxSheetName {
		name = name[:maxSheetName]
	}
	return name
}
