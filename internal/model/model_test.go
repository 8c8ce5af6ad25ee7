package model

import (
	"errors"
	"fmt"
	"math"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStageErrorMatching(t *testing.T) {
	cause := fmt.Errorf("open epec.csv: %w", os.ErrNotExist)
	err := Wrap(StageLoad, cause)

	assert.True(t, errors.Is(err, ErrDataLoad))
	assert.True(t, errors.Is(err, os.ErrNotExist))
	assert.False(t, errors.Is(err, ErrRender))
	assert.Equal(t, StageLoad, StageOf(err))
	assert.Equal(t, "load stage: open epec.csv: file does not exist", err.Error())

	var se *StageError
	require.True(t, errors.As(err, &se))
	assert.Empty(t, se.Chart)

	assert.Nil(t, Wrap(StageLoad, nil))
	assert.Same(t, err, Wrap(StageOutput, err), "an existing stage is kept")
}

func TestAtChart(t *testing.T) {
	err := AtChart(StageRender, "07_value_by_sector.png", errors.New("no color"))
	assert.True(t, errors.Is(err, ErrRender))
	assert.Equal(t, "render stage: chart 07_value_by_sector.png: no color", err.Error())

	tagged := Errorf(StageAggregate, "unknown column %q", "region")
	err = AtChart(StageRender, "03_x.png", tagged)
	assert.True(t, errors.Is(err, ErrAggregation), "the original stage wins")
	assert.Contains(t, err.Error(), "chart 03_x.png")
	assert.NotContains(t, tagged.Error(), "chart", "the input error is not modified")

	again := AtChart(StageRender, "04_y.png", err)
	assert.Contains(t, again.Error(), "03_x.png", "the first chart name sticks")

	assert.Nil(t, AtChart(StageRender, "x.png", nil))
	assert.Empty(t, StageOf(errors.New("plain")))
	assert.True(t, errors.Is(Errorf(StageOutput, "x"), ErrOutput))
}

func TestTable(t *testing.T) {
	tbl := NewTable("t", "name", "n")
	tbl.Append(GenericRecord{"name": "a", "n": 1})
	tbl.Append(GenericRecord{"name": "b", "n": math.NaN()})
	tbl.Append(GenericRecord{"name": "a"})

	assert.Equal(t, 3, tbl.Len())
	assert.True(t, tbl.HasColumn("n"))
	assert.Equal(t, []string{"x"}, tbl.MissingColumns("name", "", "x"))
	assert.Equal(t, []string{"a", "b"}, tbl.Unique("name"))
	assert.Equal(t, 1.0, tbl.Float(0, "n"))
	assert.True(t, math.IsNaN(tbl.Float(2, "n")), "absent cells read as NaN")
	assert.True(t, math.IsNaN(tbl.Float(0, "name")), "text cells read as NaN")
	assert.Equal(t, "", tbl.String(1, "n"), "NaN prints empty")
	assert.True(t, tbl.Numeric("n"))
	assert.False(t, tbl.Numeric("name"))

	cp := tbl.WithColumns("share", "n")
	assert.Equal(t, []string{"name", "n", "share"}, cp.Columns)
	cp.Rows[0]["name"] = "changed"
	assert.Equal(t, "a", tbl.String(0, "name"), "rows are deep-copied")
}

func TestCellString(t *testing.T) {
	assert.Equal(t, "2020", CellString(2020))
	assert.Equal(t, "2.5", CellString(2.5))
	assert.Equal(t, "7", CellString(int64(7)))
	assert.Equal(t, "true", CellString(true))
}

func TestYearSpan(t *testing.T) {
	lo, hi := (&Dataset{}).YearSpan()
	assert.Zero(t, lo)
	assert.Zero(t, hi)

	ds := &Dataset{Records: []Record{{Year: 2004}, {Year: 1991}, {Year: 2020}}}
	lo, hi = ds.YearSpan()
	assert.Equal(t, 1991, lo)
	assert.Equal(t, 2020, hi)
}
