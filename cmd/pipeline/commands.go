package main

import (
	"fmt"
	"sort"
	"strings"

	"epec-pipeline/internal/catalog"
	"epec-pipeline/internal/chart"
	"epec-pipeline/internal/model"
	"epec-pipeline/internal/pipeline"
	"epec-pipeline/internal/store"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"gonum.org/v1/plot/vg"
)

var (
	presetName string
	dataPath   string
	outputDir  string
	workers    int
	historyDB  string
	exportPath string
)

// renderCmd writes one preset's figures.
var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render the charts of a preset",
	Example: `  pipeline render                  # 20 ordinal charts in figures/
  pipeline render --preset bbc     # 4 charts in bbc/
  pipeline render --workers 4 --export tables.xlsx`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		preset, err := catalog.Lookup(presetName)
		if err != nil {
			return err
		}
		spec := model.RunSpec{
			Preset:       preset.Name,
			DataPath:     pick(dataPath, cfg.DataPath),
			OutputDir:    pick(outputDir, cfg.OutputDir(preset.Name)),
			Workers:      cfg.Workers,
			ExportTables: pick(exportPath, cfg.Export),
		}
		if cmd.Flags().Changed("workers") {
			spec.Workers = workers
		}

		runner := pipeline.NewRunner(nil)
		runner.Logger = logger
		runner.Renderer = chart.NewRenderer(
			chart.WithSize(vg.Length(cfg.Figure.WidthInches)*vg.Inch, vg.Length(cfg.Figure.HeightInches)*vg.Inch),
			chart.WithDPI(cfg.Figure.DPI),
		)
		if db := pick(historyDB, cfg.History); db != "" {
			if err := store.InitDB(db); err != nil {
				return fmt.Errorf("failed to open history database: %w", err)
			}
			defer store.Close()
			runner.Recorder = store.History{}
		}

		summary, err := runner.Run(cmd.Context(), preset, spec)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %d figures to %s\n", len(summary.Figures), summary.OutputDir)
		return nil
	},
}

// chartsCmd lists presets and the files they write.
var chartsCmd = &cobra.Command{
	Use:   "charts [preset]",
	Short: "List presets and their chart file names",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		names := catalog.Names()
		if len(args) == 1 {
			names = []string{args[0]}
		}
		out := cmd.OutOrStdout()
		for _, name := range names {
			preset, err := catalog.Lookup(name)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, pipeline.Describe(preset))
			for i, file := range pipeline.FileNames(preset) {
				fmt.Fprintf(out, "  %-36s %s\n", file, preset.Entries[i].Chart.Geometry)
			}
		}
		return nil
	},
}

// inspectCmd loads the dataset and prints what it holds.
var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Load the dataset and print a summary",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ds, err := pipeline.LoadDataset(cmd.Context(), pick(dataPath, cfg.DataPath))
		if err != nil {
			return err
		}
		total, err := pipeline.Summarize(ds.Table)
		if err != nil {
			return err
		}
		lo, hi := ds.YearSpan()
		countries := ds.Table.Unique(model.ColCountry)
		sectors := ds.Table.Unique(model.ColSector)
		sort.Strings(countries)
		sort.Strings(sectors)

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "file:      %s\n", ds.Path)
		fmt.Fprintf(out, "rows:      %s\n", humanize.Comma(int64(len(ds.Records))))
		fmt.Fprintf(out, "years:     %d-%d\n", lo, hi)
		fmt.Fprintf(out, "countries: %d (%s)\n", len(countries), strings.Join(countries, ", "))
		fmt.Fprintf(out, "sectors:   %d (%s)\n", len(sectors), strings.Join(sectors, ", "))
		fmt.Fprintf(out, "projects:  %s\n", humanize.Comma(int64(total.Float(0, model.ColProjectCount))))
		fmt.Fprintf(out, "value:     EUR %s bn\n", humanize.CommafWithDigits(total.Float(0, model.ColProjectValue)/1000, 1))
		if p := ds.Provenance; p != nil {
			fmt.Fprintf(out, "source:    %s (downloaded %s)\n", p.Source, humanize.Time(p.DownloadedAtUTC))
		}
		return nil
	},
}

func init() {
	renderCmd.Flags().StringVarP(&presetName, "preset", "p", catalog.Full, "Chart preset: "+strings.Join(catalog.Names(), ", "))
	renderCmd.Flags().StringVarP(&dataPath, "data", "d", "", "Input CSV (default from config)")
	renderCmd.Flags().StringVarP(&outputDir, "out", "o", "", "Output directory (default: the preset's)")
	renderCmd.Flags().IntVarP(&workers, "workers", "w", 1, "Charts rendered in parallel")
	renderCmd.Flags().StringVar(&historyDB, "history", "", "SQLite file recording run history")
	renderCmd.Flags().StringVar(&exportPath, "export", "", "Write the derived tables to a .json or .xlsx file")

	inspectCmd.Flags().StringVarP(&dataPath, "data", "d", "", "Input CSV (default from config)")
}

// pick returns the flag value when set, else the configured one.
func pick(flag, configured string) string {
	if flag != "" {
		return flag
	}
	return configured
}
