package pipeline

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"epec-pipeline/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validCSV = `country,sector,year,project_count,project_value_eur_millions
A,Transport,2020,1,100
A,Healthcare,2020,2,10
B,Transport,2021,3,50
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadDataset(t *testing.T) {
	path := writeFile(t, t.TempDir(), "epec.csv", validCSV)

	ds, err := LoadDataset(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, ds.Records, 3)
	assert.Nil(t, ds.Provenance)
	assert.Equal(t, model.Record{
		Country: "A", Sector: "Transport", Year: 2020,
		ProjectCount: 1, ProjectValue: 100, AvgProjectSize: 100, Decade: "2020s",
	}, ds.Records[0])
	assert.Equal(t, 3, ds.Table.Len())
	assert.Equal(t, 5.0, ds.Table.Float(1, model.ColAvgProjectSize))
	assert.Equal(t, "2020s", ds.Table.String(2, model.ColDecade))

	lo, hi := ds.YearSpan()
	assert.Equal(t, 2020, lo)
	assert.Equal(t, 2021, hi)
}

func TestLoadDatasetColumnOrderAndExtras(t *testing.T) {
	csv := "\ufeffyear,\"sector\", country ,notes,project_value_eur_millions,project_count\n" +
		"2019,Energy,Spain,closed late,12.5,0\n"
	path := writeFile(t, t.TempDir(), "epec.csv", csv)

	ds, err := LoadDataset(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, ds.Records, 1)
	r := ds.Records[0]
	assert.Equal(t, "Spain", r.Country)
	assert.Equal(t, "Energy", r.Sector)
	assert.Equal(t, 12.5, r.ProjectValue)
	assert.True(t, math.IsNaN(r.AvgProjectSize), "zero count leaves the average undefined")
	assert.Equal(t, "2010s", r.Decade)
}

func TestLoadDatasetErrors(t *testing.T) {
	header := "country,sector,year,project_count,project_value_eur_millions\n"
	cases := []struct {
		name    string
		content string
		want    string
	}{
		{"empty file", "", "header row required"},
		{"header only", header, "no data rows"},
		{"missing column", "country,sector,year,project_count\nA,Transport,2020,1\n", "project_value_eur_millions"},
		{"bad count", header + "A,Transport,2020,one,5\n", "project_count"},
		{"fractional count", header + "A,Transport,2020,1.5,5\n", "project_count"},
		{"bad year", header + "A,Transport,20x0,1,5\n", "year"},
		{"bad value", header + "A,Transport,2020,1,lots\n", "project_value_eur_millions"},
		{"negative count", header + "A,Transport,2020,-1,5\n", "below minimum"},
		{"negative value", header + "A,Transport,2020,1,-5\n", "below minimum"},
		{"empty sector", header + "A,,2020,1,5\n", "empty country or sector"},
		{"duplicate column", "country,country,sector,year,project_count,project_value_eur_millions\n", "duplicate column"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), "epec.csv", tc.content)
			_, err := LoadDataset(context.Background(), path)
			require.Error(t, err)
			assert.True(t, errors.Is(err, model.ErrDataLoad))
			assert.Contains(t, err.Error(), tc.want)
		})
	}

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadDataset(context.Background(), filepath.Join(t.TempDir(), "nope.csv"))
		require.Error(t, err)
		assert.True(t, errors.Is(err, model.ErrDataLoad))
		assert.True(t, errors.Is(err, os.ErrNotExist))
	})

	t.Run("error names the line", func(t *testing.T) {
		path := writeFile(t, t.TempDir(), "epec.csv", validCSV+"C,Transport,2022,x,1\n")
		_, err := LoadDataset(context.Background(), path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "line 5")
	})
}

func TestLoadDatasetCancelled(t *testing.T) {
	path := writeFile(t, t.TempDir(), "epec.csv", validCSV)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := LoadDataset(ctx, path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestProvenanceSidecar(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "epec.csv", validCSV)
	assert.Equal(t, filepath.Join(dir, "epec.metadata.json"), MetadataPath(path))

	t.Run("mismatch is not fatal", func(t *testing.T) {
		writeFile(t, dir, "epec.metadata.json", `{
			"source": "EPEC data portal",
			"year_start": 1990,
			"year_end": 2021,
			"row_count": 99,
			"total_projects": 1
		}`)
		ds, err := LoadDataset(context.Background(), path)
		require.NoError(t, err)
		require.NotNil(t, ds.Provenance)
		assert.Equal(t, "EPEC data portal", ds.Provenance.Source)
		assert.Equal(t, 99, ds.Provenance.RowCount)
	})

	t.Run("unreadable sidecar is ignored", func(t *testing.T) {
		writeFile(t, dir, "epec.metadata.json", "{not json")
		ds, err := LoadDataset(context.Background(), path)
		require.NoError(t, err)
		assert.Nil(t, ds.Provenance)
	})
}

func TestApplyTransformationsUnknown(t *testing.T) {
	r := rec("A", "Transport", 2020, 1, 1)
	err := applyTransformations(&r, []string{"decade", "inflate"})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "inflate"))
	assert.Equal(t, "2020s", r.Decade)
}
