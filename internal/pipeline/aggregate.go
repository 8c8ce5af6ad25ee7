package pipeline

import (
	"math"
	"sort"
	"strings"

	"epec-pipeline/internal/model"
)

// RollingWindow is the trailing window of the rolling average, current
// point included.
const RollingWindow = 3

// Column suffixes added by the derived-metric transforms.
const (
	SuffixShare      = "_share"
	SuffixRolling    = "_rolling"
	SuffixCumulative = "_cumulative"
)

// Columns produced by TransportShare.
const (
	ColTransportValue = "transport_value"
	ColTotalValue     = "total_value"
	ColTransportShare = "transport_share"
)

// TransportSector is the sector TransportShare isolates.
const TransportSector = "Transport"

// summedMeasures are the additive raw measures every grouping sums.
var summedMeasures = []string{model.ColProjectCount, model.ColProjectValue}

// ------------------- Grouping -------------------

// aggGroup accumulates the sums of one group of rows.
type aggGroup struct {
	keys  model.GenericRecord
	count float64
	value float64
}

// Summarize groups t by keys and sums project count and value per group;
// absent and undefined cells add zero. The average project size is
// recomputed from the sums, NaN for groups without projects. Groups come
// out sorted ascending by keys.
func Summarize(t model.Table, keys ...string) (model.Table, error) {
	need := append(append([]string(nil), keys...), summedMeasures...)
	if missing := t.MissingColumns(need...); len(missing) > 0 {
		return model.Table{}, model.Errorf(model.StageAggregate, "table %q has no columns %v", t.Name, missing)
	}

	groups := make(map[string]*aggGroup)
	order := make([]*aggGroup, 0)
	for i, row := range t.Rows {
		k, err := rowKey(t, i, keys)
		if err != nil {
			return model.Table{}, err
		}
		g, ok := groups[k]
		if !ok {
			g = &aggGroup{keys: make(model.GenericRecord, len(keys))}
			for _, key := range keys {
				g.keys[key] = row[key]
			}
			groups[k] = g
			order = append(order, g)
		}
		g.count += zeroIfNaN(t.Float(i, model.ColProjectCount))
		g.value += zeroIfNaN(t.Float(i, model.ColProjectValue))
	}

	name := "total"
	if len(keys) > 0 {
		name = "by_" + strings.Join(keys, "_")
	}
	out := model.NewTable(name, append(append([]string(nil), keys...),
		model.ColProjectCount, model.ColProjectValue, model.ColAvgProjectSize)...)
	out.Rows = make([]model.GenericRecord, 0, len(order))
	for _, g := range order {
		rec := make(model.GenericRecord, len(keys)+3)
		for k, v := range g.keys {
			rec[k] = v
		}
		rec[model.ColProjectCount] = g.count
		rec[model.ColProjectValue] = g.value
		rec[model.ColAvgProjectSize] = SafeDiv(g.value, g.count)
		out.Append(rec)
	}
	sortRows(out.Rows, keys)
	return out, nil
}

// ByYear is the global by-year table.
func ByYear(t model.Table) (model.Table, error) { return Summarize(t, model.ColYear) }

// BySector sums over countries and years.
func BySector(t model.Table) (model.Table, error) { return Summarize(t, model.ColSector) }

// ByCountry sums over sectors and years.
func ByCountry(t model.Table) (model.Table, error) { return Summarize(t, model.ColCountry) }

// ByDecade sums per decade bucket.
func ByDecade(t model.Table) (model.Table, error) { return Summarize(t, model.ColDecade) }

// BySectorYear sums per (sector, year).
func BySectorYear(t model.Table) (model.Table, error) {
	return Summarize(t, model.ColSector, model.ColYear)
}

// ByCountryYear sums per (country, year).
func ByCountryYear(t model.Table) (model.Table, error) {
	return Summarize(t, model.ColCountry, model.ColYear)
}

// Complete adds the key combinations missing from t, so every series in a
// grid covers every x value. Summed measures are filled with zero, other
// columns with NaN. t must hold at most one row per combination.
func Complete(t model.Table, keys ...string) (model.Table, error) {
	if missing := t.MissingColumns(keys...); len(missing) > 0 {
		return model.Table{}, model.Errorf(model.StageAggregate, "table %q has no columns %v", t.Name, missing)
	}
	if len(keys) == 0 {
		return t.WithColumns(), nil
	}

	values := make([][]interface{}, len(keys))
	for j, key := range keys {
		seen := make(map[string]bool)
		for _, row := range t.Rows {
			s := model.CellString(row[key])
			if !seen[s] {
				seen[s] = true
				values[j] = append(values[j], row[key])
			}
		}
	}

	out := t.WithColumns()
	present := make(map[string]bool, len(t.Rows))
	for i := range t.Rows {
		k, err := rowKey(t, i, keys)
		if err != nil {
			return model.Table{}, err
		}
		if present[k] {
			return model.Table{}, model.Errorf(model.StageAggregate, "table %q has duplicate key %q", t.Name, k)
		}
		present[k] = true
	}

	combo := make([]interface{}, len(keys))
	var walk func(depth int)
	walk = func(depth int) {
		if depth == len(keys) {
			parts := make([]string, len(keys))
			for j, v := range combo {
				parts[j] = model.CellString(v)
			}
			if present[strings.Join(parts, keySep)] {
				return
			}
			rec := make(model.GenericRecord, len(t.Columns))
			for j, key := range keys {
				rec[key] = combo[j]
			}
			for _, col := range t.Columns {
				if _, isKey := rec[col]; isKey {
					continue
				}
				if isSummed(col) {
					rec[col] = 0.0
				} else {
					rec[col] = math.NaN()
				}
			}
			out.Append(rec)
			return
		}
		for _, v := range values[depth] {
			combo[depth] = v
			walk(depth + 1)
		}
	}
	walk(0)

	sortRows(out.Rows, keys)
	return out, nil
}

// ------------------- Selection -------------------

// TopN returns the n rows with the largest metric. The sort is stable, so
// ties keep their input order; undefined metrics rank last.
func TopN(t model.Table, metric string, n int) (model.Table, error) {
	if n < 0 {
		return model.Table{}, model.Errorf(model.StageAggregate, "top-n needs n >= 0, got %d", n)
	}
	sorted, err := SortBy(t, metric, true)
	if err != nil {
		return model.Table{}, err
	}
	if len(sorted.Rows) > n {
		sorted.Rows = sorted.Rows[:n]
	}
	return sorted, nil
}

// SortBy stably reorders t by metric. Numeric columns sort by value with
// NaN last in either direction; other columns sort as text.
func SortBy(t model.Table, metric string, desc bool) (model.Table, error) {
	if !t.HasColumn(metric) {
		return model.Table{}, model.Errorf(model.StageAggregate, "table %q has no column %q", t.Name, metric)
	}
	out := t.WithColumns()
	numeric := t.Numeric(metric)
	sort.SliceStable(out.Rows, func(i, j int) bool {
		if numeric {
			a, _ := model.ToFloat(out.Rows[i][metric])
			b, _ := model.ToFloat(out.Rows[j][metric])
			switch {
			case math.IsNaN(a):
				return false
			case math.IsNaN(b):
				return true
			case desc:
				return a > b
			default:
				return a < b
			}
		}
		c := compareCells(out.Rows[i][metric], out.Rows[j][metric])
		if desc {
			return c > 0
		}
		return c < 0
	})
	return out, nil
}

// Filter keeps the rows whose col value is in keep, preserving row order.
func Filter(t model.Table, col string, keep []string) (model.Table, error) {
	if !t.HasColumn(col) {
		return model.Table{}, model.Errorf(model.StageAggregate, "table %q has no column %q", t.Name, col)
	}
	allowed := make(map[string]bool, len(keep))
	for _, k := range keep {
		allowed[k] = true
	}
	out := model.NewTable(t.Name, t.Columns...)
	for i, row := range t.Rows {
		if allowed[t.String(i, col)] {
			cp := make(model.GenericRecord, len(row))
			for k, v := range row {
				cp[k] = v
			}
			out.Append(cp)
		}
	}
	return out, nil
}

// ------------------- Derived metrics -------------------

// ShareOfTotal adds metric+"_share": each row's metric over the sum of
// metric within its partition. An empty partition means the whole table.
// Partitions summing to zero get NaN shares throughout.
func ShareOfTotal(t model.Table, partition, metric string) (model.Table, error) {
	if missing := t.MissingColumns(partition, metric); len(missing) > 0 {
		return model.Table{}, model.Errorf(model.StageAggregate, "table %q has no columns %v", t.Name, missing)
	}
	partKeys := keysOf(partition)

	totals := make(map[string]float64)
	for i := range t.Rows {
		k, err := rowKey(t, i, partKeys)
		if err != nil {
			return model.Table{}, err
		}
		totals[k] += zeroIfNaN(t.Float(i, metric))
	}

	col := metric + SuffixShare
	out := t.WithColumns(col)
	for i := range out.Rows {
		k, _ := rowKey(t, i, partKeys)
		out.Rows[i][col] = SafeDiv(zeroIfNaN(t.Float(i, metric)), totals[k])
	}
	return out, nil
}

// RollingMean adds metric+"_rolling": the mean of the current point and the
// window-1 points before it within each series, ordered by order. The first
// window-1 points of a series are NaN, never a shorter-window average.
// Undefined values inside a full window count as zero.
func RollingMean(t model.Table, series []string, order, metric string, window int) (model.Table, error) {
	if window < 1 {
		return model.Table{}, model.Errorf(model.StageAggregate, "rolling window must be >= 1, got %d", window)
	}
	col := metric + SuffixRolling
	return seriesTransform(t, series, order, metric, col, func(vals []float64) []float64 {
		out := make([]float64, len(vals))
		var sum float64
		for p, v := range vals {
			sum += v
			if p >= window {
				sum -= vals[p-window]
			}
			if p < window-1 {
				out[p] = math.NaN()
				continue
			}
			out[p] = sum / float64(window)
		}
		return out
	})
}

// Cumulative adds metric+"_cumulative": the running total of metric within
// each series in order. Undefined values add zero.
func Cumulative(t model.Table, series []string, order, metric string) (model.Table, error) {
	col := metric + SuffixCumulative
	return seriesTransform(t, series, order, metric, col, func(vals []float64) []float64 {
		out := make([]float64, len(vals))
		var sum float64
		for p, v := range vals {
			sum += v
			out[p] = sum
		}
		return out
	})
}

// seriesTransform splits t into series, orders each by order, and writes
// fn's output for each series into col. Row order of t is preserved.
func seriesTransform(t model.Table, series []string, order, metric, col string, fn func([]float64) []float64) (model.Table, error) {
	need := append(append([]string(nil), series...), order, metric)
	if missing := t.MissingColumns(need...); len(missing) > 0 {
		return model.Table{}, model.Errorf(model.StageAggregate, "table %q has no columns %v", t.Name, missing)
	}

	bySeries := make(map[string][]int)
	var seriesOrder []string
	for i := range t.Rows {
		k, err := rowKey(t, i, series)
		if err != nil {
			return model.Table{}, err
		}
		if _, ok := bySeries[k]; !ok {
			seriesOrder = append(seriesOrder, k)
		}
		bySeries[k] = append(bySeries[k], i)
	}

	out := t.WithColumns(col)
	for _, k := range seriesOrder {
		idx := bySeries[k]
		sort.SliceStable(idx, func(a, b int) bool {
			return compareCells(t.Rows[idx[a]][order], t.Rows[idx[b]][order]) < 0
		})
		vals := make([]float64, len(idx))
		for p, i := range idx {
			vals[p] = zeroIfNaN(t.Float(i, metric))
		}
		res := fn(vals)
		for p, i := range idx {
			out.Rows[i][col] = res[p]
		}
	}
	return out, nil
}

// TransportShare computes, per country, the transport sector's share of
// total project value. Countries with zero total value are left out.
func TransportShare(t model.Table) (model.Table, error) {
	need := []string{model.ColCountry, model.ColSector, model.ColProjectValue}
	if missing := t.MissingColumns(need...); len(missing) > 0 {
		return model.Table{}, model.Errorf(model.StageAggregate, "table %q has no columns %v", t.Name, missing)
	}

	type acc struct{ transport, total float64 }
	byCountry := make(map[string]*acc)
	var countries []string
	for i := range t.Rows {
		c := t.String(i, model.ColCountry)
		if c == "" {
			return model.Table{}, model.Errorf(model.StageAggregate, "table %q row %d has no country", t.Name, i)
		}
		a, ok := byCountry[c]
		if !ok {
			a = &acc{}
			byCountry[c] = a
			countries = append(countries, c)
		}
		v := zeroIfNaN(t.Float(i, model.ColProjectValue))
		a.total += v
		if strings.EqualFold(t.String(i, model.ColSector), TransportSector) {
			a.transport += v
		}
	}
	sort.Strings(countries)

	out := model.NewTable("transport_share", model.ColCountry, ColTransportValue, ColTotalValue, ColTransportShare)
	for _, c := range countries {
		a := byCountry[c]
		if a.total == 0 {
			continue
		}
		out.Append(model.GenericRecord{
			model.ColCountry:  c,
			ColTransportValue: a.transport,
			ColTotalValue:     a.total,
			ColTransportShare: a.transport / a.total,
		})
	}
	return out, nil
}

// Melt turns measure columns into rows: one row per (input row, measure)
// with the measure name in nameCol and its value in valueCol.
func Melt(t model.Table, ids, measures []string, nameCol, valueCol string) (model.Table, error) {
	need := append(append([]string(nil), ids...), measures...)
	if missing := t.MissingColumns(need...); len(missing) > 0 {
		return model.Table{}, model.Errorf(model.StageAggregate, "table %q has no columns %v", t.Name, missing)
	}
	out := model.NewTable(t.Name+"_long", append(append([]string(nil), ids...), nameCol, valueCol)...)
	for _, m := range measures {
		for i, row := range t.Rows {
			rec := make(model.GenericRecord, len(ids)+2)
			for _, id := range ids {
				rec[id] = row[id]
			}
			rec[nameCol] = m
			rec[valueCol] = t.Float(i, m)
			out.Append(rec)
		}
	}
	return out, nil
}

// ------------------- Helpers -------------------

const keySep = "\x1f"

// rowKey joins the key cells of row i. A missing key cell is an
// AggregationError rather than a silent empty group.
func rowKey(t model.Table, i int, keys []string) (string, error) {
	parts := make([]string, len(keys))
	for j, key := range keys {
		v, ok := t.Rows[i][key]
		if !ok || v == nil {
			return "", model.Errorf(model.StageAggregate, "table %q row %d has no value for key %q", t.Name, i, key)
		}
		parts[j] = model.CellString(v)
	}
	return strings.Join(parts, keySep), nil
}

func keysOf(col string) []string {
	if col == "" {
		return nil
	}
	return []string{col}
}

func isSummed(col string) bool {
	for _, m := range summedMeasures {
		if m == col {
			return true
		}
	}
	return false
}

func zeroIfNaN(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return v
}

// compareCells orders numbers numerically and everything else as text.
func compareCells(a, b interface{}) int {
	fa, okA := model.ToFloat(a)
	fb, okB := model.ToFloat(b)
	if okA && okB {
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		}
		return 0
	}
	return strings.Compare(model.CellString(a), model.CellString(b))
}

// sortRows stably sorts rows ascending by keys, left to right.
func sortRows(rows []model.GenericRecord, keys []string) {
	sort.SliceStable(rows, func(i, j int) bool {
		for _, k := range keys {
			if c := compareCells(rows[i][k], rows[j][k]); c != 0 {
				return c < 0
			}
		}
		return false
	})
}
