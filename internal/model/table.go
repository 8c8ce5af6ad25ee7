package model

import (
	"fmt"
	"math"
	"strconv"
)

// GenericRecord is one row of a table, keyed by column name.
// Dimension cells hold strings or ints, measure cells hold float64.
type GenericRecord map[string]interface{}

// Table is an ordered, column-named collection of rows. Derived tables are
// built fresh by every aggregation; rows are never shared between tables.
type Table struct {
	Name    string          `json:"name"`
	Columns []string        `json:"columns"`
	Rows    []GenericRecord `json:"rows"`
}

// NewTable returns an empty table with the given columns.
func NewTable(name string, columns ...string) Table {
	return Table{
		Name:    name,
		Columns: append([]string(nil), columns...),
		Rows:    make([]GenericRecord, 0),
	}
}

// Len returns the number of rows.
func (t Table) Len() int { return len(t.Rows) }

// HasColumn reports whether col is part of the table schema.
func (t Table) HasColumn(col string) bool {
	for _, c := range t.Columns {
		if c == col {
			return true
		}
	}
	return false
}

// MissingColumns returns the requested columns that the table lacks.
// Empty names are ignored so optional bindings can be passed through.
func (t Table) MissingColumns(cols ...string) []string {
	var missing []string
	for _, c := range cols {
		if c != "" && !t.HasColumn(c) {
			missing = append(missing, c)
		}
	}
	return missing
}

// Append adds a row. Cells outside Columns are kept but never rendered.
func (t *Table) Append(rec GenericRecord) {
	t.Rows = append(t.Rows, rec)
}

// WithColumns returns a copy of the table with deep-copied rows and the
// extra columns appended to the schema.
func (t Table) WithColumns(extra ...string) Table {
	out := Table{
		Name:    t.Name,
		Columns: append([]string(nil), t.Columns...),
		Rows:    make([]GenericRecord, len(t.Rows)),
	}
	for _, c := range extra {
		if !out.HasColumn(c) {
			out.Columns = append(out.Columns, c)
		}
	}
	for i, row := range t.Rows {
		cp := make(GenericRecord, len(row)+len(extra))
		for k, v := range row {
			cp[k] = v
		}
		out.Rows[i] = cp
	}
	return out
}

// Float returns the numeric value of a cell, or NaN when the cell is
// absent or not numeric.
func (t Table) Float(i int, col string) float64 {
	v, ok := t.Rows[i][col]
	if !ok {
		return math.NaN()
	}
	f, ok := ToFloat(v)
	if !ok {
		return math.NaN()
	}
	return f
}

// String returns the cell formatted as text; absent cells are "".
func (t Table) String(i int, col string) string {
	v, ok := t.Rows[i][col]
	if !ok || v == nil {
		return ""
	}
	return CellString(v)
}

// Unique returns the distinct values of a column in first-appearance order.
func (t Table) Unique(col string) []string {
	seen := make(map[string]bool)
	var out []string
	for i := range t.Rows {
		s := t.String(i, col)
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

// Numeric reports whether every present cell of col holds a number.
func (t Table) Numeric(col string) bool {
	found := false
	for _, row := range t.Rows {
		v, ok := row[col]
		if !ok {
			continue
		}
		if _, ok := ToFloat(v); !ok {
			return false
		}
		found = true
	}
	return found
}

// ToFloat converts the numeric cell types used in tables to float64.
func ToFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

// CellString formats a cell the way it appears in exports and chart labels.
func CellString(v interface{}) string {
	switch n := v.(type) {
	case string:
		return n
	case int:
		return strconv.Itoa(n)
	case int64:
		return strconv.FormatInt(n, 10)
	case float64:
		if math.IsNaN(n) {
			return ""
		}
		return strconv.FormatFloat(n, 'f', -1, 64)
	}
	return fmt.Sprintf("%v", v)
}
