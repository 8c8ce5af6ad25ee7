package catalog

import (
	"image/color"

	"epec-pipeline/internal/chart"
	"epec-pipeline/internal/model"
	"epec-pipeline/internal/pipeline"
)

const (
	colSeries = "series"
	colAmount = "amount"
	colMetric = "metric"

	seriesAnnual  = "Annual total"
	seriesRolling = "3-year average"
)

var (
	valueShare      = model.ColProjectValue + pipeline.SuffixShare
	valueRolling    = model.ColProjectValue + pipeline.SuffixRolling
	valueCumulative = model.ColProjectValue + pipeline.SuffixCumulative
)

var rollingPalette = chart.Palette{
	Name: "rolling",
	Named: map[string]color.Color{
		seriesAnnual:  chart.MustHex("#BBBBBB"),
		seriesRolling: chart.MustHex("#1380A1"),
	},
}

// FullPreset is the 20-chart sequence written to figures/ with ordinal
// file names.
func FullPreset() pipeline.Preset {
	return pipeline.Preset{
		Name:    Full,
		Dir:     "figures",
		Ordinal: true,
		Caption: Caption,
		Entries: []pipeline.Entry{
			// Time series
			{
				Slug:  "value_by_year",
				Build: pipeline.ByYear,
				Chart: chart.Spec{
					Geometry: chart.Column, X: model.ColYear, Y: model.ColProjectValue,
					Palette: Accent, YFormat: chart.Thousands,
					Title:    "PPP investment by year",
					Subtitle: "Total value of projects reaching financial close, EUR millions",
				},
			},
			{
				Slug:  "projects_by_year",
				Build: pipeline.ByYear,
				Chart: chart.Spec{
					Geometry: chart.Column, X: model.ColYear, Y: model.ColProjectCount,
					Palette: Accent, YFormat: chart.Number,
					Title:    "PPP projects by year",
					Subtitle: "Number of projects reaching financial close",
				},
			},
			{
				Slug:  "avg_project_size_by_year",
				Build: pipeline.ByYear,
				Chart: chart.Spec{
					Geometry: chart.Line, X: model.ColYear, Y: model.ColAvgProjectSize,
					Palette: Accent, YFormat: chart.Number,
					Title:    "Average PPP project size",
					Subtitle: "Value per project, EUR millions",
				},
			},
			{
				Slug: "value_rolling_average",
				Build: chain(pipeline.ByYear, rolling(model.ColProjectValue),
					melt([]string{model.ColYear}, []string{model.ColProjectValue, valueRolling}, colSeries, colAmount),
					relabel(colSeries, map[string]string{model.ColProjectValue: seriesAnnual, valueRolling: seriesRolling})),
				Chart: chart.Spec{
					Geometry: chart.Line, X: model.ColYear, Y: colAmount, Color: colSeries,
					Palette: rollingPalette, YFormat: chart.Thousands,
					Title:    "PPP investment, smoothed",
					Subtitle: "Annual value and trailing 3-year average, EUR millions",
				},
			},
			{
				Slug:  "cumulative_value",
				Build: chain(pipeline.ByYear, cumulative(model.ColProjectValue)),
				Chart: chart.Spec{
					Geometry: chart.Area, X: model.ColYear, Y: valueCumulative,
					Palette: Accent, YFormat: chart.Thousands,
					Title:    "Cumulative PPP investment",
					Subtitle: "Running total of project value, EUR millions",
				},
			},
			{
				Slug:  "value_by_decade",
				Build: pipeline.ByDecade,
				Chart: chart.Spec{
					Geometry: chart.Column, X: model.ColDecade, Y: model.ColProjectValue,
					Palette: Accent, YFormat: chart.Thousands,
					Title:    "PPP investment by decade",
					Subtitle: "Total project value, EUR millions",
				},
			},

			// Sectors
			{
				Slug:  "value_by_sector",
				Build: chain(pipeline.BySector, sortDesc(model.ColProjectValue)),
				Chart: chart.Spec{
					Geometry: chart.Bar, X: model.ColSector, Y: model.ColProjectValue, Color: model.ColSector,
					Palette: chart.SectorPalette, YFormat: chart.Thousands,
					Title:    "Transport dominates PPP investment",
					Subtitle: "Total project value by sector, EUR millions",
				},
			},
			{
				Slug:  "projects_by_sector",
				Build: chain(pipeline.BySector, sortDesc(model.ColProjectCount)),
				Chart: chart.Spec{
					Geometry: chart.Bar, X: model.ColSector, Y: model.ColProjectCount, Color: model.ColSector,
					Palette: chart.SectorPalette, YFormat: chart.Number,
					Title:    "PPP projects by sector",
					Subtitle: "Number of projects reaching financial close",
				},
			},
			{
				Slug:  "avg_size_by_sector",
				Build: chain(pipeline.BySector, sortDesc(model.ColAvgProjectSize)),
				Chart: chart.Spec{
					Geometry: chart.Lollipop, X: model.ColSector, Y: model.ColAvgProjectSize, Color: model.ColSector,
					Palette: chart.SectorPalette, YFormat: chart.Number,
					Title:    "Average project size by sector",
					Subtitle: "Value per project, EUR millions",
				},
			},
			{
				Slug:  "sector_value_over_time",
				Build: chain(pipeline.BySectorYear, complete(model.ColSector, model.ColYear)),
				Chart: chart.Spec{
					Geometry: chart.StackedArea, X: model.ColYear, Y: model.ColProjectValue, Color: model.ColSector,
					Palette: chart.SectorPalette, YFormat: chart.Thousands,
					Title:    "PPP investment by sector over time",
					Subtitle: "Project value, EUR millions",
				},
			},
			{
				Slug: "sector_share_over_time",
				Build: chain(pipeline.BySectorYear, complete(model.ColSector, model.ColYear),
					share(model.ColYear, model.ColProjectValue)),
				Chart: chart.Spec{
					Geometry: chart.StackedArea, X: model.ColYear, Y: valueShare, Color: model.ColSector,
					Palette: chart.SectorPalette, YFormat: chart.Percent,
					Title:    "Sector mix of PPP investment",
					Subtitle: "Share of each year's project value",
				},
			},
			{
				Slug:  "sector_small_multiples",
				Build: chain(pipeline.BySectorYear, complete(model.ColSector, model.ColYear)),
				Chart: chart.Spec{
					Geometry: chart.Line, X: model.ColYear, Y: model.ColProjectValue, Facet: model.ColSector,
					Palette: Accent, YFormat: chart.Thousands,
					Title:    "PPP investment by sector",
					Subtitle: "Project value, EUR millions; each panel has its own scale",
				},
			},

			// Countries
			{
				Slug:  "top_countries_by_value",
				Build: chain(pipeline.ByCountry, top(model.ColProjectValue, topCountries)),
				Chart: chart.Spec{
					Geometry: chart.Bar, X: model.ColCountry, Y: model.ColProjectValue, Color: model.ColCountry,
					Palette: chart.CountryPalette, YFormat: chart.Thousands,
					Title:    "Top 10 countries by PPP investment",
					Subtitle: "Total project value, EUR millions",
				},
			},
			{
				Slug:  "top_countries_by_projects",
				Build: chain(pipeline.ByCountry, top(model.ColProjectCount, topCountries)),
				Chart: chart.Spec{
					Geometry: chart.Lollipop, X: model.ColCountry, Y: model.ColProjectCount, Color: model.ColCountry,
					Palette: chart.CountryPalette, YFormat: chart.Number,
					Title:    "Top 10 countries by PPP projects",
					Subtitle: "Number of projects reaching financial close",
				},
			},
			{
				Slug: "country_value_heatmap",
				Build: chain(topCountriesBy(model.ColProjectValue, topCountries), pipeline.ByCountryYear,
					complete(model.ColCountry, model.ColYear)),
				Chart: chart.Spec{
					Geometry: chart.Tile, X: model.ColYear, Y: model.ColCountry, Fill: model.ColProjectValue,
					FillFormat: chart.Thousands,
					Title:      "When the top 10 countries invested",
					Subtitle:   "Project value by country and year, EUR millions",
				},
			},
			{
				Slug: "country_share_over_time",
				Build: chain(pipeline.ByCountryYear, complete(model.ColCountry, model.ColYear),
					share(model.ColYear, model.ColProjectValue),
					topCountriesBy(model.ColProjectValue, shareCountries)),
				Chart: chart.Spec{
					Geometry: chart.Line, X: model.ColYear, Y: valueShare, Color: model.ColCountry,
					Palette: chart.CountryPalette, YFormat: chart.Percent,
					Title:    "Share of European PPP investment",
					Subtitle: "Top 5 countries, share of each year's project value",
				},
			},
			{
				Slug:  "transport_share_by_country",
				Build: chain(pipeline.TransportShare, sortDesc(pipeline.ColTransportShare)),
				Chart: chart.Spec{
					Geometry: chart.Bar, X: model.ColCountry, Y: pipeline.ColTransportShare, Color: model.ColCountry,
					Palette: chart.CountryPalette, YFormat: chart.Percent,
					Title:    "How much PPP money goes to transport",
					Subtitle: "Transport share of each country's project value",
				},
			},

			// Distribution and relationships
			{
				Slug:  "project_size_distribution",
				Build: identity,
				Chart: chart.Spec{
					Geometry: chart.Histogram, X: model.ColAvgProjectSize,
					Palette: Accent, XFormat: chart.Number, YFormat: chart.Number,
					Title:    "Distribution of average project size",
					Subtitle: "Country, sector and year cells with at least one project",
					XLabel:   "EUR millions per project",
				},
			},
			{
				Slug:  "projects_vs_value_by_country",
				Build: pipeline.ByCountry,
				Chart: chart.Spec{
					Geometry: chart.LabeledScatter, X: model.ColProjectCount, Y: model.ColProjectValue,
					Label: model.ColCountry, Color: model.ColCountry,
					Palette: chart.CountryPalette, XFormat: chart.Number, YFormat: chart.Thousands,
					Title:    "More projects, more money",
					Subtitle: "Projects and total value per country",
					XLabel:   "Projects", YLabel: "EUR millions",
				},
			},
			{
				Slug: "country_small_multiples",
				Build: chain(topCountriesBy(model.ColProjectValue, panelCountries), pipeline.ByCountryYear,
					complete(model.ColCountry, model.ColYear)),
				Chart: chart.Spec{
					Geometry: chart.Column, X: model.ColYear, Y: model.ColProjectValue, Facet: model.ColCountry,
					Palette: Accent, YFormat: chart.Thousands,
					Title:    "PPP investment in the six largest markets",
					Subtitle: "Project value by year, EUR millions; each panel has its own scale",
				},
			},
		},
	}
}
