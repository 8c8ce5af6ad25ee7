// Package catalog declares the chart presets: for every chart, the
// aggregation that derives its table and the chart spec that draws it.
package catalog

import (
	"fmt"
	"sort"
	"strings"

	"epec-pipeline/internal/chart"
	"epec-pipeline/internal/model"
	"epec-pipeline/internal/pipeline"
)

// Preset names.
const (
	Full    = "full"
	BBC     = "bbc"
	Explore = "explore"
)

const (
	topCountries   = 10
	shareCountries = 5
	panelCountries = 6
	defaultSource  = "EPEC PPP data portal"
)

// Accent is the solid palette of charts without a color binding.
var Accent = chart.Solid("accent", "#1380A1")

// Presets returns every preset, keyed by name.
func Presets() map[string]pipeline.Preset {
	return map[string]pipeline.Preset{
		Full:    FullPreset(),
		BBC:     BBCPreset(),
		Explore: ExplorePreset(),
	}
}

// Names lists the preset names in sorted order.
func Names() []string {
	names := make([]string, 0, 3)
	for name := range Presets() {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup returns the named preset.
func Lookup(name string) (pipeline.Preset, error) {
	p, ok := Presets()[strings.ToLower(name)]
	if !ok {
		return pipeline.Preset{}, fmt.Errorf("unknown preset %q (have %s)", name, strings.Join(Names(), ", "))
	}
	return p, nil
}

// Caption credits the data source and the covered years.
func Caption(ds *model.Dataset) string {
	source := defaultSource
	lo, hi := ds.YearSpan()
	if p := ds.Provenance; p != nil {
		if p.Source != "" {
			source = p.Source
		}
		if p.YearStart != 0 && p.YearEnd != 0 {
			lo, hi = p.YearStart, p.YearEnd
		}
	}
	return fmt.Sprintf("Source: %s, %d-%d", source, lo, hi)
}

// ------------------- Build steps -------------------

type step = func(model.Table) (model.Table, error)

// chain runs steps left to right.
func chain(steps ...step) step {
	return func(t model.Table) (model.Table, error) {
		var err error
		for _, s := range steps {
			if t, err = s(t); err != nil {
				return model.Table{}, err
			}
		}
		return t, nil
	}
}

func identity(t model.Table) (model.Table, error) { return t.WithColumns(), nil }

func complete(keys ...string) step {
	return func(t model.Table) (model.Table, error) { return pipeline.Complete(t, keys...) }
}

func sortDesc(metric string) step {
	return func(t model.Table) (model.Table, error) { return pipeline.SortBy(t, metric, true) }
}

func top(metric string, n int) step {
	return func(t model.Table) (model.Table, error) { return pipeline.TopN(t, metric, n) }
}

func share(partition, metric string) step {
	return func(t model.Table) (model.Table, error) { return pipeline.ShareOfTotal(t, partition, metric) }
}

func rolling(metric string) step {
	return func(t model.Table) (model.Table, error) {
		return pipeline.RollingMean(t, nil, model.ColYear, metric, pipeline.RollingWindow)
	}
}

func cumulative(metric string) step {
	return func(t model.Table) (model.Table, error) {
		return pipeline.Cumulative(t, nil, model.ColYear, metric)
	}
}

func melt(ids, measures []string, nameCol, valueCol string) step {
	return func(t model.Table) (model.Table, error) {
		return pipeline.Melt(t, ids, measures, nameCol, valueCol)
	}
}

// topCountriesBy keeps the rows of the n countries with the largest metric
// over the whole table, ranked on the raw input.
func topCountriesBy(metric string, n int) step {
	return func(t model.Table) (model.Table, error) {
		byCountry, err := pipeline.ByCountry(t)
		if err != nil {
			return model.Table{}, err
		}
		ranked, err := pipeline.TopN(byCountry, metric, n)
		if err != nil {
			return model.Table{}, err
		}
		return pipeline.Filter(t, model.ColCountry, ranked.Unique(model.ColCountry))
	}
}

// relabel renames the values of a category column; unknown values pass
// through.
func relabel(col string, names map[string]string) step {
	return func(t model.Table) (model.Table, error) {
		if missing := t.MissingColumns(col); len(missing) > 0 {
			return model.Table{}, model.Errorf(model.StageAggregate, "table %q has no column %q", t.Name, col)
		}
		out := t.WithColumns()
		for i, row := range out.Rows {
			if to, ok := names[out.String(i, col)]; ok {
				row[col] = to
			}
		}
		return out, nil
	}
}
