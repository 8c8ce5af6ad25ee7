package pipeline

import (
	"fmt"

	"epec-pipeline/internal/model"
	"epec-pipeline/pkg/utils"
)

// RawSchemaRules validates the EPEC country/sector/year cube.
var RawSchemaRules = model.ValidationRules{
	RequiredFields: model.RawColumns,
	IntegerFields:  []string{model.ColYear, model.ColProjectCount},
	NumericFields:  []string{model.ColProjectValue},
	MinValues: map[string]float64{
		model.ColProjectCount: 0,
		model.ColProjectValue: 0,
	},
}

// validateHeader checks that every required column is present and returns
// the column index of each.
func validateHeader(header []string, rules model.ValidationRules) (map[string]int, error) {
	index := make(map[string]int, len(header))
	for i, h := range header {
		name := utils.CleanHeader(h)
		if _, dup := index[name]; dup {
			return nil, fmt.Errorf("duplicate column %q", name)
		}
		index[name] = i
	}
	var missing []string
	for _, field := range rules.RequiredFields {
		if _, ok := index[field]; !ok {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required columns: %v", missing)
	}
	return index, nil
}

// validateRecord parses a raw row into a Record, applying the integer,
// numeric and minimum-value rules.
func validateRecord(cells map[string]string, rules model.ValidationRules) (model.Record, error) {
	nums := make(map[string]float64)
	for _, field := range rules.IntegerFields {
		v, err := utils.ParseInt(cells[field])
		if err != nil {
			return model.Record{}, fmt.Errorf("field %s: %w", field, err)
		}
		nums[field] = float64(v)
	}
	for _, field := range rules.NumericFields {
		v, err := utils.ParseFloat(cells[field])
		if err != nil {
			return model.Record{}, fmt.Errorf("field %s: %w", field, err)
		}
		nums[field] = v
	}
	for field, min := range rules.MinValues {
		if v, ok := nums[field]; ok && v < min {
			return model.Record{}, fmt.Errorf("field %s below minimum: got %v, want >= %v", field, v, min)
		}
	}

	rec := model.Record{
		Country:      cells[model.ColCountry],
		Sector:       cells[model.ColSector],
		Year:         int(nums[model.ColYear]),
		ProjectCount: int(nums[model.ColProjectCount]),
		ProjectValue: nums[model.ColProjectValue],
	}
	if rec.Country == "" || rec.Sector == "" {
		return model.Record{}, fmt.Errorf("empty country or sector")
	}
	return rec, nil
}
