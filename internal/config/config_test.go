package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileGivesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
	assert.NoError(t, cfg.Validate())
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "epec.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
data_path: in/epec.csv
output_dirs:
  bbc: out/news
figure:
  dpi: 150
workers: 4
history_db: runs.db
export_tables: tables.xlsx
logging:
  level: debug
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "in/epec.csv", cfg.DataPath)
	assert.Equal(t, "out/news", cfg.OutputDir("bbc"))
	assert.Empty(t, cfg.OutputDir("full"))
	assert.Equal(t, 150, cfg.Figure.DPI)
	assert.Equal(t, 10.0, cfg.Figure.WidthInches, "unset keys keep their defaults")
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, "runs.db", cfg.History)
	assert.Equal(t, "tables.xlsx", cfg.Export)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Encoding)
	assert.NoError(t, cfg.Validate())
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "epec.yaml")
	require.NoError(t, os.WriteFile(path, []byte("workers: [1, 2"), 0644))
	_, err := Load(path)
	assert.ErrorContains(t, err, "failed to parse config")
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "epec.yaml")
	cfg := DefaultConfig()
	cfg.Workers = 3
	cfg.OutputDirs["full"] = "charts"
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"no data path", func(c *Config) { c.DataPath = "" }, "data_path"},
		{"zero width", func(c *Config) { c.Figure.WidthInches = 0 }, "figure size"},
		{"zero dpi", func(c *Config) { c.Figure.DPI = 0 }, "dpi"},
		{"negative workers", func(c *Config) { c.Workers = -1 }, "workers"},
		{"csv export", func(c *Config) { c.Export = "tables.csv" }, "export_tables"},
		{"bad level", func(c *Config) { c.Logging.Level = "loud" }, "invalid log level"},
		{"bad encoding", func(c *Config) { c.Logging.Encoding = "xml" }, "invalid log encoding"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			assert.ErrorContains(t, cfg.Validate(), tc.want)
		})
	}
}

func TestParseEnv(t *testing.T) {
	var sc ServerConfig
	require.NoError(t, ParseEnv(&sc))
	assert.Equal(t, ":8080", sc.Addr)
	assert.Equal(t, "pipeline.db", sc.HistoryDB)

	t.Setenv("EPEC_API_ADDR", "127.0.0.1:9000")
	t.Setenv("EPEC_HISTORY_DB", "/var/lib/epec/history.db")
	require.NoError(t, ParseEnv(&sc))
	assert.Equal(t, "127.0.0.1:9000", sc.Addr)
	assert.Equal(t, "/var/lib/epec/history.db", sc.HistoryDB)

	assert.Error(t, ParseEnv(sc), "a non-pointer target is rejected")
}
