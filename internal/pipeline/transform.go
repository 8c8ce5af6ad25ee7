package pipeline

import (
	"fmt"
	"math"

	"epec-pipeline/internal/model"
)

// DefaultTransformations are the derived columns computed once at load.
var DefaultTransformations = []string{"avgProjectSize", "decade"}

// applyTransformations applies all specified transformations to a record
func applyTransformations(rec *model.Record, transformations []string) error {
	for _, transform := range transformations {
		switch transform {
		case "avgProjectSize":
			avgProjectSize(rec)
		case "decade":
			rec.Decade = DecadeLabel(rec.Year)
		default:
			return fmt.Errorf("unknown transformation: %s", transform)
		}
	}
	return nil
}

// avgProjectSize sets value/count, leaving NaN for rows without projects.
func avgProjectSize(rec *model.Record) {
	rec.AvgProjectSize = SafeDiv(rec.ProjectValue, float64(rec.ProjectCount))
}

// DecadeLabel buckets a year as floor(year/10)*10, e.g. 1997 -> "1990s".
func DecadeLabel(year int) string {
	d := int(math.Floor(float64(year)/10)) * 10
	return fmt.Sprintf("%ds", d)
}

// SafeDiv returns num/den, or NaN when den is zero or either side is NaN.
func SafeDiv(num, den float64) float64 {
	if den == 0 || math.IsNaN(num) || math.IsNaN(den) {
		return math.NaN()
	}
	return num / den
}

// recordsToTable lays the typed records out as the base table.
func recordsToTable(records []model.Record) model.Table {
	t := model.NewTable("epec",
		model.ColCountry, model.ColSector, model.ColYear,
		model.ColProjectCount, model.ColProjectValue,
		model.ColAvgProjectSize, model.ColDecade,
	)
	t.Rows = make([]model.GenericRecord, 0, len(records))
	for _, r := range records {
		t.Append(model.GenericRecord{
			model.ColCountry:        r.Country,
			model.ColSector:         r.Sector,
			model.ColYear:           r.Year,
			model.ColProjectCount:   float64(r.ProjectCount),
			model.ColProjectValue:   r.ProjectValue,
			model.ColAvgProjectSize: r.AvgProjectSize,
			model.ColDecade:         r.Decade,
		})
	}
	return t
}
