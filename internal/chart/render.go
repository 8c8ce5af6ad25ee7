package chart

import (
	"image/color"
	"io"
	"math"
	"sort"

	"epec-pipeline/internal/model"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

const (
	defaultBins     = 20
	maxCategoryTick = 12
	barWidth        = 0.7
	rampSteps       = 64
)

// Renderer turns tables into PNG images of a fixed size.
type Renderer struct {
	Width  vg.Length
	Height vg.Length
	DPI    int
	Theme  Theme
}

// Option customizes a Renderer.
type Option func(*Renderer)

// WithSize sets the figure size.
func WithSize(w, h vg.Length) Option {
	return func(r *Renderer) { r.Width, r.Height = w, h }
}

// WithDPI sets the raster resolution.
func WithDPI(dpi int) Option {
	return func(r *Renderer) { r.DPI = dpi }
}

// WithTheme replaces the house theme.
func WithTheme(th Theme) Option {
	return func(r *Renderer) { r.Theme = th }
}

// NewRenderer returns a 10x6 inch, 300 DPI renderer in the house theme.
func NewRenderer(opts ...Option) *Renderer {
	r := &Renderer{
		Width:  10 * vg.Inch,
		Height: 6 * vg.Inch,
		DPI:    300,
		Theme:  HouseTheme,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// PixelSize returns the raster dimensions of every image the renderer writes.
func (r *Renderer) PixelSize() (w, h int) {
	dpi := float64(r.DPI)
	return int(math.Ceil(float64(r.Width/vg.Inch) * dpi)), int(math.Ceil(float64(r.Height/vg.Inch) * dpi))
}

// Render validates s against t, draws the chart and writes it to w as PNG.
func (r *Renderer) Render(w io.Writer, t model.Table, s Spec) error {
	if err := s.Validate(t); err != nil {
		return err
	}
	th := r.Theme
	img := vgimg.NewWith(
		vgimg.UseWH(r.Width, r.Height),
		vgimg.UseDPI(r.DPI),
		vgimg.UseBackgroundColor(th.Background),
	)
	dc := draw.New(img)
	area := r.drawHeader(draw.Crop(dc, th.Margin, -th.Margin, th.Margin, -th.Margin), s)

	if s.Facet == "" {
		p, err := r.buildPlot(t, s, true)
		if err != nil {
			return err
		}
		p.Draw(area)
	} else if err := r.drawFacets(area, t, s); err != nil {
		return err
	}

	if _, err := (vgimg.PngCanvas{Canvas: img}).WriteTo(w); err != nil {
		return model.Errorf(model.StageRender, "encode png: %w", err)
	}
	return nil
}

// drawHeader writes title and subtitle at the top left and the caption at
// the bottom left, returning the canvas left for the plot.
func (r *Renderer) drawHeader(c draw.Canvas, s Spec) draw.Canvas {
	th := r.Theme
	gap := th.Margin / 2
	top := c.Max.Y
	if s.Title != "" {
		sty := th.textStyle(th.TitleSize, true, th.Text)
		c.FillText(sty, vg.Point{X: c.Min.X, Y: top}, s.Title)
		top -= sty.Height(s.Title) + gap/2
	}
	if s.Subtitle != "" {
		sty := th.textStyle(th.SubtitleSize, false, th.Muted)
		c.FillText(sty, vg.Point{X: c.Min.X, Y: top}, s.Subtitle)
		top -= sty.Height(s.Subtitle)
	}
	if top < c.Max.Y {
		top -= gap
	}
	bottom := c.Min.Y
	if s.Caption != "" {
		sty := th.textStyle(th.CaptionSize, false, th.Muted)
		sty.YAlign = draw.YBottom
		c.FillText(sty, vg.Point{X: c.Min.X, Y: bottom}, s.Caption)
		bottom += sty.Height(s.Caption) + gap
	}
	return draw.Crop(c, 0, 0, bottom-c.Min.Y, top-c.Max.Y)
}

// drawFacets lays out one panel per facet value on a near-square grid.
// Each panel scales its own axes.
func (r *Renderer) drawFacets(c draw.Canvas, t model.Table, s Spec) error {
	values := t.Unique(s.Facet)
	cols := int(math.Ceil(math.Sqrt(float64(len(values)))))
	rows := (len(values) + cols - 1) / cols

	panelSpec := s
	panelSpec.Facet = ""
	panelSpec.XLabel, panelSpec.YLabel = "", ""

	plots := make([][]*plot.Plot, rows)
	for i := range plots {
		plots[i] = make([]*plot.Plot, cols)
		for j := range plots[i] {
			k := i*cols + j
			if k >= len(values) {
				filler := plot.New()
				filler.BackgroundColor = r.Theme.Background
				filler.HideAxes()
				plots[i][j] = filler
				continue
			}
			sub := subset(t, s.Facet, values[k])
			p, err := r.buildPlot(sub, panelSpec, false)
			if err != nil {
				return model.Errorf(model.StageRender, "facet %q: %w", values[k], err)
			}
			p.Title.Text = values[k]
			p.Title.TextStyle.XAlign = draw.XLeft
			plots[i][j] = p
		}
	}

	pad := r.Theme.Margin / 2
	tiles := draw.Tiles{Rows: rows, Cols: cols, PadX: pad, PadY: pad}
	canvases := plot.Align(plots, tiles, c)
	for i := range plots {
		for j := range plots[i] {
			plots[i][j].Draw(canvases[i][j])
		}
	}
	return nil
}

// buildPlot draws one panel. legend is false for facet panels, whose
// categories repeat across the grid.
func (r *Renderer) buildPlot(t model.Table, s Spec, legend bool) (*plot.Plot, error) {
	b := &builder{th: r.Theme, t: t, s: s, legend: legend && s.Color != "", key: legend}
	switch s.Geometry {
	case Line:
		return b.line()
	case Area:
		return b.area()
	case StackedArea:
		return b.stackedArea()
	case Column:
		return b.column()
	case Bar:
		return b.bar()
	case Lollipop:
		return b.lollipop()
	case Scatter:
		return b.scatter(false)
	case LabeledScatter:
		return b.scatter(true)
	case Histogram:
		return b.histogram()
	case Tile:
		return b.tile()
	}
	return nil, model.Errorf(model.StageRender, "unknown geometry %q", s.Geometry)
}

type builder struct {
	th     Theme
	t      model.Table
	s      Spec
	legend bool // one entry per Color category
	key    bool // value key of a heat map
}

// group is the rows of one Color category, in table order.
type group struct {
	name string
	rows []int
}

func (b *builder) groups() []group {
	if b.s.Color == "" {
		all := group{rows: make([]int, b.t.Len())}
		for i := range all.rows {
			all.rows[i] = i
		}
		return []group{all}
	}
	index := make(map[string]int)
	var out []group
	for i := range b.t.Rows {
		name := b.t.String(i, b.s.Color)
		k, ok := index[name]
		if !ok {
			k = len(out)
			index[name] = k
			out = append(out, group{name: name})
		}
		out[k].rows = append(out[k].rows, i)
	}
	return out
}

func (b *builder) colorOf(name string) (color.Color, error) {
	if b.s.Color == "" {
		return b.s.Palette.SolidColor(b.th.Accent), nil
	}
	return b.s.Palette.Lookup(name)
}

// axes applies labels and tick formats. Horizontal geometries put the X
// binding on the vertical axis.
func (b *builder) axes(p *plot.Plot, horizontal bool) {
	xa, ya := &p.X, &p.Y
	if horizontal {
		xa, ya = ya, xa
	}
	xa.Label.Text = b.s.XLabel
	ya.Label.Text = b.s.YLabel
	ya.Tick.Marker = formatTicker{format: b.s.YFormat}
	xa.Tick.Marker = formatTicker{format: b.s.XFormat}
}

// series returns the finite (x, y) points of rows sorted by x, split into
// runs wherever y is undefined.
func (b *builder) series(rows []int) []plotter.XYs {
	idx := append([]int(nil), rows...)
	sort.SliceStable(idx, func(i, j int) bool {
		return b.t.Float(idx[i], b.s.X) < b.t.Float(idx[j], b.s.X)
	})
	var out []plotter.XYs
	var cur plotter.XYs
	for _, i := range idx {
		x, y := b.t.Float(i, b.s.X), b.t.Float(i, b.s.Y)
		if !finite(x) || !finite(y) {
			if len(cur) > 0 {
				out = append(out, cur)
				cur = nil
			}
			continue
		}
		cur = append(cur, plotter.XY{X: x, Y: y})
	}
	if len(cur) > 0 {
		out = append(out, cur)
	}
	return out
}

func (b *builder) line() (*plot.Plot, error) {
	p := b.th.newPlot(false)
	b.axes(p, false)
	for _, g := range b.groups() {
		clr, err := b.colorOf(g.name)
		if err != nil {
			return nil, err
		}
		for _, seg := range b.series(g.rows) {
			if len(seg) == 1 {
				sc, err := plotter.NewScatter(seg)
				if err != nil {
					return nil, model.Errorf(model.StageRender, "point: %w", err)
				}
				sc.GlyphStyle = draw.GlyphStyle{Color: clr, Radius: b.th.LineWidth, Shape: draw.CircleGlyph{}}
				p.Add(sc)
				continue
			}
			l, err := plotter.NewLine(seg)
			if err != nil {
				return nil, model.Errorf(model.StageRender, "line: %w", err)
			}
			l.LineStyle = draw.LineStyle{Color: clr, Width: b.th.LineWidth}
			p.Add(l)
		}
		if b.legend {
			p.Legend.Add(g.name, swatch{color: clr})
		}
	}
	return p, nil
}

func (b *builder) area() (*plot.Plot, error) {
	p := b.th.newPlot(false)
	b.axes(p, false)
	for _, g := range b.groups() {
		clr, err := b.colorOf(g.name)
		if err != nil {
			return nil, err
		}
		for _, seg := range b.series(g.rows) {
			outline := make(plotter.XYs, 0, len(seg)+2)
			outline = append(outline, plotter.XY{X: seg[0].X, Y: 0})
			outline = append(outline, seg...)
			outline = append(outline, plotter.XY{X: seg[len(seg)-1].X, Y: 0})
			poly, err := plotter.NewPolygon(outline)
			if err != nil {
				return nil, model.Errorf(model.StageRender, "area: %w", err)
			}
			poly.Color = clr
			poly.LineStyle.Width = 0
			p.Add(poly)
		}
		if b.legend {
			p.Legend.Add(g.name, swatch{color: clr})
		}
	}
	return p, nil
}

// stackedArea stacks the Color groups over the union of x values, treating
// undefined and absent values as zero.
func (b *builder) stackedArea() (*plot.Plot, error) {
	p := b.th.newPlot(false)
	b.axes(p, false)

	xset := make(map[float64]bool)
	var xs []float64
	for i := range b.t.Rows {
		x := b.t.Float(i, b.s.X)
		if finite(x) && !xset[x] {
			xset[x] = true
			xs = append(xs, x)
		}
	}
	sort.Float64s(xs)
	base := make(map[float64]float64, len(xs))

	for _, g := range b.groups() {
		clr, err := b.colorOf(g.name)
		if err != nil {
			return nil, err
		}
		vals := make(map[float64]float64, len(xs))
		for _, i := range g.rows {
			y := b.t.Float(i, b.s.Y)
			if finite(y) {
				vals[b.t.Float(i, b.s.X)] += y
			}
		}
		outline := make(plotter.XYs, 0, 2*len(xs))
		for _, x := range xs {
			outline = append(outline, plotter.XY{X: x, Y: base[x] + vals[x]})
		}
		for k := len(xs) - 1; k >= 0; k-- {
			outline = append(outline, plotter.XY{X: xs[k], Y: base[xs[k]]})
		}
		for _, x := range xs {
			base[x] += vals[x]
		}
		poly, err := plotter.NewPolygon(outline)
		if err != nil {
			return nil, model.Errorf(model.StageRender, "stacked area: %w", err)
		}
		poly.Color = clr
		poly.LineStyle.Width = 0
		p.Add(poly)
		if b.legend {
			p.Legend.Add(g.name, swatch{color: clr})
		}
	}
	return p, nil
}

// categories returns the distinct X values in table order and the index of
// each row's category.
func (b *builder) categories() ([]string, []int) {
	labels := b.t.Unique(b.s.X)
	pos := make(map[string]int, len(labels))
	for i, l := range labels {
		pos[l] = i
	}
	rowPos := make([]int, b.t.Len())
	for i := range b.t.Rows {
		rowPos[i] = pos[b.t.String(i, b.s.X)]
	}
	return labels, rowPos
}

// bars builds a stacked bar set; positive and negative values stack apart.
func (b *builder) bars(horizontal bool) (*barSet, []group, []color.Color, []string, error) {
	labels, rowPos := b.categories()
	groups := b.groups()
	set := &barSet{width: barWidth, horizontal: horizontal}
	up := make([]float64, len(labels))
	down := make([]float64, len(labels))
	colors := make([]color.Color, len(groups))
	for k, g := range groups {
		clr, err := b.colorOf(g.name)
		if err != nil {
			return nil, nil, nil, nil, err
		}
		colors[k] = clr
		for _, i := range g.rows {
			v := b.t.Float(i, b.s.Y)
			c := rowPos[i]
			if !finite(v) {
				continue
			}
			pos := float64(c)
			if horizontal {
				pos = float64(len(labels) - 1 - c)
			}
			base := up[c]
			if v < 0 {
				base = down[c]
				down[c] += v
			} else {
				up[c] += v
			}
			set.pos = append(set.pos, pos)
			set.base = append(set.base, base)
			set.value = append(set.value, v)
			set.colors = append(set.colors, clr)
		}
	}
	return set, groups, colors, labels, nil
}

func categoryPositions(n int, reversed bool) []float64 {
	pos := make([]float64, n)
	for i := range pos {
		pos[i] = float64(i)
		if reversed {
			pos[i] = float64(n - 1 - i)
		}
	}
	return pos
}

func (b *builder) column() (*plot.Plot, error) {
	set, groups, colors, labels, err := b.bars(false)
	if err != nil {
		return nil, err
	}
	p := b.th.newPlot(false)
	b.axes(p, false)
	p.X.Tick.Marker = newCategoryTicks(categoryPositions(len(labels), false), labels, maxCategoryTick)
	p.Add(set)
	if b.legend {
		for k, g := range groups {
			p.Legend.Add(g.name, swatch{color: colors[k]})
		}
	}
	return p, nil
}

func (b *builder) bar() (*plot.Plot, error) {
	set, groups, colors, labels, err := b.bars(true)
	if err != nil {
		return nil, err
	}
	p := b.th.newPlot(true)
	b.axes(p, true)
	p.Y.Tick.Marker = newCategoryTicks(categoryPositions(len(labels), true), labels, 0)
	p.Add(set)
	if b.legend {
		for k, g := range groups {
			p.Legend.Add(g.name, swatch{color: colors[k]})
		}
	}
	return p, nil
}

// lollipop draws one stick per row, first row on top.
func (b *builder) lollipop() (*plot.Plot, error) {
	n := b.t.Len()
	l := &lollipops{
		pos:    categoryPositions(n, true),
		value:  make([]float64, n),
		colors: make([]color.Color, n),
		line:   b.th.LineWidth,
		radius: b.th.PointRadius * 1.5,
	}
	labels := make([]string, n)
	for i := 0; i < n; i++ {
		labels[i] = b.t.String(i, b.s.X)
		l.value[i] = b.t.Float(i, b.s.Y)
		name := ""
		if b.s.Color != "" {
			name = b.t.String(i, b.s.Color)
		}
		clr, err := b.colorOf(name)
		if err != nil {
			return nil, err
		}
		l.colors[i] = clr
	}
	p := b.th.newPlot(true)
	b.axes(p, true)
	p.Y.Tick.Marker = newCategoryTicks(l.pos, labels, 0)
	p.Add(l)
	if b.legend {
		for _, g := range b.groups() {
			clr, _ := b.colorOf(g.name)
			p.Legend.Add(g.name, swatch{color: clr})
		}
	}
	return p, nil
}

func (b *builder) scatter(labelled bool) (*plot.Plot, error) {
	p := b.th.newPlot(false)
	b.axes(p, false)
	for _, g := range b.groups() {
		clr, err := b.colorOf(g.name)
		if err != nil {
			return nil, err
		}
		var pts plotter.XYs
		var names []string
		for _, i := range g.rows {
			x, y := b.t.Float(i, b.s.X), b.t.Float(i, b.s.Y)
			if !finite(x) || !finite(y) {
				continue
			}
			pts = append(pts, plotter.XY{X: x, Y: y})
			if labelled {
				names = append(names, b.t.String(i, b.s.Label))
			}
		}
		if len(pts) == 0 {
			continue
		}
		sc, err := plotter.NewScatter(pts)
		if err != nil {
			return nil, model.Errorf(model.StageRender, "scatter: %w", err)
		}
		sc.GlyphStyle = draw.GlyphStyle{Color: clr, Radius: b.th.PointRadius, Shape: draw.CircleGlyph{}}
		p.Add(sc)
		if labelled {
			lb, err := plotter.NewLabels(plotter.XYLabels{XYs: pts, Labels: names})
			if err != nil {
				return nil, model.Errorf(model.StageRender, "labels: %w", err)
			}
			sty := b.th.textStyle(b.th.TickSize, false, b.th.Text)
			sty.YAlign = draw.YCenter
			for k := range lb.TextStyle {
				lb.TextStyle[k] = sty
			}
			lb.Offset = vg.Point{X: b.th.PointRadius * 1.5}
			p.Add(lb)
		}
		if b.legend {
			p.Legend.Add(g.name, sc)
		}
	}
	return p, nil
}

func (b *builder) histogram() (*plot.Plot, error) {
	var vals plotter.Values
	for i := range b.t.Rows {
		if v := b.t.Float(i, b.s.X); finite(v) {
			vals = append(vals, v)
		}
	}
	bins := b.s.Bins
	if bins <= 0 {
		bins = defaultBins
	}
	h, err := plotter.NewHist(vals, bins)
	if err != nil {
		return nil, model.Errorf(model.StageRender, "histogram: %w", err)
	}
	h.FillColor = b.s.Palette.SolidColor(b.th.Accent)
	h.LineStyle = draw.LineStyle{Color: b.th.Background, Width: vg.Points(0.5)}

	p := b.th.newPlot(false)
	b.axes(p, false)
	p.Add(h)
	return p, nil
}

// tile draws a heat map of Fill over the X and Y categories, first Y
// category on top. Missing and undefined cells take the theme's Missing
// color.
func (b *builder) tile() (*plot.Plot, error) {
	xs := b.t.Unique(b.s.X)
	ys := b.t.Unique(b.s.Y)
	xi := indexOf(xs)
	yi := indexOf(ys)

	z := make([][]float64, len(xs))
	for c := range z {
		z[c] = make([]float64, len(ys))
		for r := range z[c] {
			z[c][r] = math.NaN()
		}
	}
	lo, hi := math.Inf(1), math.Inf(-1)
	for i := range b.t.Rows {
		v := b.t.Float(i, b.s.Fill)
		c := xi[b.t.String(i, b.s.X)]
		r := len(ys) - 1 - yi[b.t.String(i, b.s.Y)]
		z[c][r] = v
		if finite(v) {
			lo, hi = math.Min(lo, v), math.Max(hi, v)
		}
	}
	if lo == hi {
		hi = lo + 1
	}

	pal := newRamp("#E8F1F5", "#0B4F63", rampSteps)
	hm := plotter.NewHeatMap(tileGrid{z: z}, pal)
	hm.Min, hm.Max = lo, hi
	hm.NaN = b.th.Missing

	p := b.th.newPlot(false)
	p.X.Label.Text = b.s.XLabel
	p.Y.Label.Text = b.s.YLabel
	p.X.Tick.Marker = newCategoryTicks(categoryPositions(len(xs), false), xs, maxCategoryTick)
	p.Y.Tick.Marker = newCategoryTicks(categoryPositions(len(ys), true), ys, 0)
	p.Add(hm)

	if b.key {
		colors := pal.Colors()
		for _, q := range []float64{0, 0.5, 1} {
			v := lo + q*(hi-lo)
			p.Legend.Add(b.s.FillFormat.Label(v), swatch{color: colors[int(q*float64(len(colors)-1))]})
		}
	}
	return p, nil
}

func indexOf(values []string) map[string]int {
	m := make(map[string]int, len(values))
	for i, v := range values {
		m[v] = i
	}
	return m
}

// subset returns the rows of t whose col equals value.
func subset(t model.Table, col, value string) model.Table {
	out := model.NewTable(t.Name, t.Columns...)
	for i, row := range t.Rows {
		if t.String(i, col) == value {
			out.Append(row)
		}
	}
	return out
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
