package utils

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileName(t *testing.T) {
	ordinal := NewOutputManager("figures", true)
	assert.Equal(t, "01_value_by_year.png", ordinal.FileName(1, "value_by_year"))
	assert.Equal(t, "20_country_small_multiples.png", ordinal.FileName(20, "country_small_multiples.png"))

	named := NewOutputManager("bbc", false)
	assert.Equal(t, "bbc_top_countries.png", named.FileName(3, "bbc_top_countries"))
	assert.Equal(t, "escape.png", named.FileName(1, "../escape"), "slugs cannot leave the directory")
}

func TestResetAndWrite(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "figures")
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "stale.png"), []byte("old"), 0644))

	om := NewOutputManager(dir, true)
	require.NoError(t, om.Reset())
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)

	n, err := om.WriteFile("01_a.png", strings.NewReader("png bytes"))
	require.NoError(t, err)
	assert.Equal(t, int64(9), n)

	size, err := om.GetFileSize(om.GetOutputFilePath("01_a.png"))
	require.NoError(t, err)
	assert.Equal(t, n, size)

	require.NoError(t, om.Discard())
	assert.NoDirExists(t, dir)
}

func TestResetRefusesUnsafeDirs(t *testing.T) {
	for _, dir := range []string{"", ".", "./", "/"} {
		assert.Error(t, NewOutputManager(dir, false).Reset(), "dir %q", dir)
	}
}

func TestWriteFileMissingDir(t *testing.T) {
	om := NewOutputManager(filepath.Join(t.TempDir(), "absent"), false)
	_, err := om.WriteFile("a.png", strings.NewReader("x"))
	assert.ErrorContains(t, err, "failed to create file")
}

func TestGetFileType(t *testing.T) {
	om := NewOutputManager("out", false)
	assert.Equal(t, "png", om.GetFileType("a.PNG"))
	assert.Equal(t, "json", om.GetFileType("tables.json"))
	assert.Equal(t, "excel", om.GetFileType("tables.xlsx"))
	assert.Equal(t, "unknown", om.GetFileType("tables.csv"))
}

func TestParseHelpers(t *testing.T) {
	i, err := ParseInt(" 12 ")
	require.NoError(t, err)
	assert.Equal(t, 12, i)

	i, err = ParseInt("12.0")
	require.NoError(t, err)
	assert.Equal(t, 12, i)

	for _, bad := range []string{"1.5", "twelve", "", "NaN", "Inf"} {
		_, err := ParseInt(bad)
		assert.Error(t, err, bad)
	}

	f, err := ParseFloat("1e3")
	require.NoError(t, err)
	assert.Equal(t, 1000.0, f)
	for _, bad := range []string{"", "n/a", "NaN", "-Inf"} {
		_, err := ParseFloat(bad)
		assert.Error(t, err, bad)
	}

	assert.Equal(t, "country", CleanHeader("\ufeff \"country\" "))
	assert.Equal(t, 5*time.Second, ParseDuration("5s", time.Minute))
	assert.Equal(t, time.Minute, ParseDuration("soon", time.Minute))
	assert.Equal(t, time.Minute, ParseDuration("", time.Minute))
}
