package chart

import (
	"image/color"

	xfont "golang.org/x/image/font"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/font"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/text"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// Theme is the house style shared by every chart.
type Theme struct {
	Background color.Color
	Text       color.Color
	Muted      color.Color // subtitle, caption, tick labels
	Grid       color.Color
	Accent     color.Color // bars and lines without a color binding
	Missing    color.Color // undefined tiles

	Font font.Font

	TitleSize    vg.Length
	SubtitleSize vg.Length
	CaptionSize  vg.Length
	PanelSize    vg.Length
	LabelSize    vg.Length
	TickSize     vg.Length
	LineWidth    vg.Length
	PointRadius  vg.Length
	Margin       vg.Length
}

// HouseTheme: flat background, horizontal gridlines only, no axis lines,
// bold sans-serif titles.
var HouseTheme = Theme{
	Background: MustHex("#F7F7F7"),
	Text:       MustHex("#222222"),
	Muted:      MustHex("#6B6B6B"),
	Grid:       MustHex("#DDDDDD"),
	Accent:     MustHex("#1380A1"),
	Missing:    MustHex("#EEEEEE"),

	Font: font.Font{Typeface: "Liberation", Variant: "Sans"},

	TitleSize:    vg.Points(18),
	SubtitleSize: vg.Points(12),
	CaptionSize:  vg.Points(8),
	PanelSize:    vg.Points(10),
	LabelSize:    vg.Points(10),
	TickSize:     vg.Points(9),
	LineWidth:    vg.Points(2),
	PointRadius:  vg.Points(3.5),
	Margin:       vg.Points(18),
}

// textStyle builds a standalone style for header and caption text.
func (th Theme) textStyle(size vg.Length, bold bool, clr color.Color) text.Style {
	return text.Style{
		Color:   clr,
		Font:    th.font(size, bold),
		XAlign:  draw.XLeft,
		YAlign:  draw.YTop,
		Handler: plot.DefaultTextHandler,
	}
}

func (th Theme) font(size vg.Length, bold bool) font.Font {
	f := th.Font
	f.Size = size
	if bold {
		f.Weight = xfont.WeightBold
	}
	return f
}

// newPlot returns a plot styled with the theme. valueOnX puts the
// gridlines on the x axis, for horizontal bars.
func (th Theme) newPlot(valueOnX bool) *plot.Plot {
	p := plot.New()
	p.BackgroundColor = th.Background

	p.Title.TextStyle.Font = th.font(th.PanelSize, true)
	p.Title.TextStyle.Color = th.Text

	for _, ax := range []*plot.Axis{&p.X, &p.Y} {
		ax.LineStyle.Width = 0
		ax.Tick.Length = 0
		ax.Tick.LineStyle.Width = 0
		ax.Label.TextStyle.Font = th.font(th.LabelSize, false)
		ax.Label.TextStyle.Color = th.Text
		ax.Tick.Label.Font = th.font(th.TickSize, false)
		ax.Tick.Label.Color = th.Muted
	}

	p.Legend.TextStyle.Font = th.font(th.TickSize, false)
	p.Legend.TextStyle.Color = th.Text
	p.Legend.Top = true
	p.Legend.ThumbnailWidth = vg.Points(10)

	grid := plotter.NewGrid()
	grid.Vertical.Color = nil
	grid.Horizontal.Color = th.Grid
	grid.Horizontal.Width = vg.Points(0.5)
	if valueOnX {
		grid.Horizontal.Color = nil
		grid.Vertical.Color = th.Grid
		grid.Vertical.Width = vg.Points(0.5)
	}
	p.Add(grid)
	return p
}
