package catalog

import (
	"epec-pipeline/internal/chart"
	"epec-pipeline/internal/model"
	"epec-pipeline/internal/pipeline"
)

// BBCPreset is the four-chart, news-style sequence written to bbc/ under
// descriptive file names.
func BBCPreset() pipeline.Preset {
	return pipeline.Preset{
		Name:    BBC,
		Dir:     "bbc",
		Caption: Caption,
		Entries: []pipeline.Entry{
			{
				Slug:  "bbc_value_over_time",
				Build: pipeline.ByYear,
				Chart: chart.Spec{
					Geometry: chart.Line, X: model.ColYear, Y: model.ColProjectValue,
					Palette: Accent, YFormat: chart.Thousands,
					Title:    "PPP investment peaked before the financial crisis",
					Subtitle: "Value of projects reaching financial close, EUR millions",
				},
			},
			{
				Slug:  "bbc_sector_share",
				Build: chain(pipeline.BySector, share("", model.ColProjectValue), sortDesc(valueShare)),
				Chart: chart.Spec{
					Geometry: chart.Bar, X: model.ColSector, Y: valueShare, Color: model.ColSector,
					Palette: chart.SectorPalette, YFormat: chart.Percent,
					Title:    "Transport takes the biggest slice",
					Subtitle: "Share of total PPP project value by sector",
				},
			},
			{
				Slug:  "bbc_top_countries",
				Build: chain(pipeline.ByCountry, top(model.ColProjectValue, topCountries)),
				Chart: chart.Spec{
					Geometry: chart.Bar, X: model.ColCountry, Y: model.ColProjectValue, Color: model.ColCountry,
					Palette: chart.CountryPalette, YFormat: chart.Thousands,
					Title:    "The UK leads Europe's PPP market",
					Subtitle: "Total project value of the top 10 countries, EUR millions",
				},
			},
			{
				Slug:  "bbc_size_vs_count",
				Build: pipeline.ByCountry,
				Chart: chart.Spec{
					Geometry: chart.Scatter, X: model.ColProjectCount, Y: model.ColAvgProjectSize, Color: model.ColCountry,
					Palette: chart.CountryPalette, XFormat: chart.Number, YFormat: chart.Number,
					Title:    "Busy markets close smaller deals",
					Subtitle: "Projects and average project size per country",
					XLabel:   "Projects", YLabel: "EUR millions per project",
				},
			},
		},
	}
}

// ExplorePreset reproduces the three exploratory figures in exploratory/.
func ExplorePreset() pipeline.Preset {
	return pipeline.Preset{
		Name:    Explore,
		Dir:     "exploratory",
		Caption: Caption,
		Entries: []pipeline.Entry{
			{
				Slug: "projects_value_over_time",
				Build: chain(pipeline.ByYear,
					melt([]string{model.ColYear}, []string{model.ColProjectCount, model.ColProjectValue}, colMetric, colAmount),
					relabel(colMetric, map[string]string{
						model.ColProjectCount: "Projects closed",
						model.ColProjectValue: "Value (EUR millions)",
					})),
				Chart: chart.Spec{
					Geometry: chart.Line, X: model.ColYear, Y: colAmount, Facet: colMetric,
					Palette: Accent, YFormat: chart.Number,
					Title: "PPP projects and value over time",
				},
			},
			{
				Slug:  "value_by_sector",
				Build: chain(pipeline.BySector, sortDesc(model.ColProjectValue)),
				Chart: chart.Spec{
					Geometry: chart.Bar, X: model.ColSector, Y: model.ColProjectValue, Color: model.ColSector,
					Palette: chart.SectorPalette, YFormat: chart.Number,
					Title:  "Total PPP value by sector",
					XLabel: "Sector", YLabel: "Total value (EUR millions)",
				},
			},
			{
				Slug:  "projects_by_country",
				Build: chain(pipeline.ByCountry, top(model.ColProjectCount, topCountries)),
				Chart: chart.Spec{
					Geometry: chart.Column, X: model.ColCountry, Y: model.ColProjectCount,
					Palette: Accent, YFormat: chart.Number,
					Title:  "Top 10 countries by PPP project count",
					XLabel: "Country", YLabel: "Projects closed",
				},
			},
		},
	}
}
