// Package chart renders derived tables as PNG figures from declarative
// chart specs, all in one house style.
package chart

import (
	"math"

	"epec-pipeline/internal/model"
)

// Geometry is the mark a chart draws.
type Geometry string

const (
	Line           Geometry = "line"
	Column         Geometry = "column" // vertical bars, stacked when Color splits an x value
	Bar            Geometry = "bar"    // horizontal bars, first row on top
	Area           Geometry = "area"
	StackedArea    Geometry = "stacked-area"
	Tile           Geometry = "tile"
	Scatter        Geometry = "scatter"
	Lollipop       Geometry = "lollipop" // horizontal point+segment
	Histogram      Geometry = "histogram"
	LabeledScatter Geometry = "labeled-scatter"
)

// Format selects how numeric tick labels are written.
type Format string

const (
	Plain     Format = ""          // gonum default labels
	Number    Format = "number"    // 12,345
	Percent   Format = "percent"   // 0.25 -> 25%
	Thousands Format = "thousands" // 12,500 -> 12.5k
)

// Spec is the declarative description of one chart.
type Spec struct {
	Geometry Geometry

	// Field bindings, by column name.
	X     string
	Y     string
	Color string // category column mapped through Palette
	Fill  string // value column of a tile chart
	Label string // text of a labeled scatter
	Facet string // one panel per value, independent y-scale

	Palette Palette

	XFormat    Format
	YFormat    Format
	FillFormat Format // heat map key

	Title    string
	Subtitle string
	Caption  string
	XLabel   string
	YLabel   string

	Bins int // histogram bins, 20 when zero
}

// Validate checks the spec against the table it will draw: known geometry,
// every binding present, numeric bindings numeric with at least one finite
// value, and a color for every category of the Color column.
func (s Spec) Validate(t model.Table) error {
	need, numeric, ok := bindings(s)
	if !ok {
		return model.Errorf(model.StageRender, "unknown geometry %q", s.Geometry)
	}
	for _, f := range need {
		if f == "" {
			return model.Errorf(model.StageRender, "%s chart needs more field bindings (x=%q y=%q fill=%q label=%q)",
				s.Geometry, s.X, s.Y, s.Fill, s.Label)
		}
	}
	all := append(append([]string(nil), need...), s.Color, s.Facet)
	if missing := t.MissingColumns(all...); len(missing) > 0 {
		return model.Errorf(model.StageRender, "table %q lacks bound fields %v", t.Name, missing)
	}
	if t.Len() == 0 {
		return model.Errorf(model.StageRender, "table %q has no rows", t.Name)
	}
	for _, f := range numeric {
		if !t.Numeric(f) {
			return model.Errorf(model.StageRender, "field %q must be numeric", f)
		}
		if !hasFinite(t, f) {
			return model.Errorf(model.StageRender, "field %q has no defined values", f)
		}
	}
	if s.Color != "" {
		if err := s.Palette.Validate(t.Unique(s.Color)); err != nil {
			return err
		}
	}
	return nil
}

// bindings lists the required fields of a geometry and which of them must
// be numeric.
func bindings(s Spec) (need, numeric []string, ok bool) {
	switch s.Geometry {
	case Line, Area, StackedArea, Scatter:
		return []string{s.X, s.Y}, []string{s.X, s.Y}, true
	case LabeledScatter:
		return []string{s.X, s.Y, s.Label}, []string{s.X, s.Y}, true
	case Column, Bar, Lollipop:
		return []string{s.X, s.Y}, []string{s.Y}, true
	case Histogram:
		return []string{s.X}, []string{s.X}, true
	case Tile:
		return []string{s.X, s.Y, s.Fill}, []string{s.Fill}, true
	}
	return nil, nil, false
}

func hasFinite(t model.Table, col string) bool {
	for i := range t.Rows {
		v := t.Float(i, col)
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			return true
		}
	}
	return false
}
