package model

import "time"

// Raw CSV columns and derived column names.
const (
	ColCountry        = "country"
	ColSector         = "sector"
	ColYear           = "year"
	ColProjectCount   = "project_count"
	ColProjectValue   = "project_value_eur_millions"
	ColAvgProjectSize = "avg_project_size"
	ColDecade         = "decade"
)

// RawColumns is the fixed input schema, in file order.
var RawColumns = []string{ColCountry, ColSector, ColYear, ColProjectCount, ColProjectValue}

// Record is one observed (country, sector, year) row of the EPEC cube.
type Record struct {
	Country        string  `json:"country"`
	Sector         string  `json:"sector"`
	Year           int     `json:"year"`
	ProjectCount   int     `json:"project_count"`
	ProjectValue   float64 `json:"project_value_eur_millions"`
	AvgProjectSize float64 `json:"avg_project_size"` // NaN when ProjectCount is 0
	Decade         string  `json:"decade"`
}

// Provenance mirrors the JSON sidecar the extractor writes next to the CSV.
type Provenance struct {
	Source             string    `json:"source"`
	DownloadedAtUTC    time.Time `json:"downloaded_at_utc"`
	Countries          []string  `json:"countries"`
	Sectors            []string  `json:"sectors"`
	YearStart          int       `json:"year_start"`
	YearEnd            int       `json:"year_end"`
	RowCount           int       `json:"row_count"`
	OutputCSV          string    `json:"output_csv"`
	TotalProjects      int       `json:"total_projects"`
	TotalValueMillions float64   `json:"total_project_value_eur_millions"`
	TotalValueBn       float64   `json:"total_project_value_eur_bn"`
}

// Dataset is the loaded input: typed records, the same rows as a table with
// derived columns, and the sidecar when one was found.
type Dataset struct {
	Path       string
	Records    []Record
	Table      Table
	Provenance *Provenance
}

// YearSpan returns the first and last year present in the records.
func (d *Dataset) YearSpan() (int, int) {
	if len(d.Records) == 0 {
		return 0, 0
	}
	lo, hi := d.Records[0].Year, d.Records[0].Year
	for _, r := range d.Records[1:] {
		if r.Year < lo {
			lo = r.Year
		}
		if r.Year > hi {
			hi = r.Year
		}
	}
	return lo, hi
}
