package chart

import (
	"image/color"
	"math"

	"github.com/lucasb-eyer/go-colorful"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// barSet draws one filled rectangle per entry from base to base+value at a
// category position. Horizontal bars put positions on the y axis.
type barSet struct {
	pos        []float64
	base       []float64
	value      []float64
	colors     []color.Color
	width      float64 // in data units along the position axis
	horizontal bool
}

func (b *barSet) Plot(c draw.Canvas, p *plot.Plot) {
	trX, trY := p.Transforms(&c)
	for i := range b.pos {
		if math.IsNaN(b.value[i]) {
			continue
		}
		lo, hi := b.base[i], b.base[i]+b.value[i]
		a, z := b.pos[i]-b.width/2, b.pos[i]+b.width/2
		var pts []vg.Point
		if b.horizontal {
			pts = rect(trX(lo), trY(a), trX(hi), trY(z))
		} else {
			pts = rect(trX(a), trY(lo), trX(z), trY(hi))
		}
		c.FillPolygon(b.colors[i], c.ClipPolygonXY(pts))
	}
}

func (b *barSet) DataRange() (xmin, xmax, ymin, ymax float64) {
	pmin, pmax := math.Inf(1), math.Inf(-1)
	vmin, vmax := 0.0, 0.0
	for i := range b.pos {
		pmin = math.Min(pmin, b.pos[i]-b.width/2)
		pmax = math.Max(pmax, b.pos[i]+b.width/2)
		if math.IsNaN(b.value[i]) {
			continue
		}
		vmin = math.Min(vmin, math.Min(b.base[i], b.base[i]+b.value[i]))
		vmax = math.Max(vmax, math.Max(b.base[i], b.base[i]+b.value[i]))
	}
	if b.horizontal {
		return vmin, vmax, pmin, pmax
	}
	return pmin, pmax, vmin, vmax
}

func rect(x0, y0, x1, y1 vg.Length) []vg.Point {
	return []vg.Point{{X: x0, Y: y0}, {X: x0, Y: y1}, {X: x1, Y: y1}, {X: x1, Y: y0}}
}

// lollipops draws a segment from zero to the value and a dot at the value,
// with categories on the y axis.
type lollipops struct {
	pos    []float64
	value  []float64
	colors []color.Color
	line   vg.Length
	radius vg.Length
}

func (l *lollipops) Plot(c draw.Canvas, p *plot.Plot) {
	trX, trY := p.Transforms(&c)
	for i := range l.pos {
		if math.IsNaN(l.value[i]) {
			continue
		}
		y := trY(l.pos[i])
		x0, x1 := trX(0), trX(l.value[i])
		c.StrokeLine2(draw.LineStyle{Color: l.colors[i], Width: l.line}, x0, y, x1, y)
		pt := vg.Point{X: x1, Y: y}
		if c.Contains(pt) {
			c.DrawGlyph(draw.GlyphStyle{Color: l.colors[i], Radius: l.radius, Shape: draw.CircleGlyph{}}, pt)
		}
	}
}

func (l *lollipops) DataRange() (xmin, xmax, ymin, ymax float64) {
	ymin, ymax = math.Inf(1), math.Inf(-1)
	for i := range l.pos {
		ymin = math.Min(ymin, l.pos[i]-0.5)
		ymax = math.Max(ymax, l.pos[i]+0.5)
		if !math.IsNaN(l.value[i]) {
			xmin = math.Min(xmin, l.value[i])
			xmax = math.Max(xmax, l.value[i])
		}
	}
	return xmin, xmax, ymin, ymax
}

// GlyphBoxes keeps the end dots inside the plot area.
func (l *lollipops) GlyphBoxes(p *plot.Plot) []plot.GlyphBox {
	boxes := make([]plot.GlyphBox, 0, len(l.pos))
	r := l.radius
	for i := range l.pos {
		if math.IsNaN(l.value[i]) {
			continue
		}
		boxes = append(boxes, plot.GlyphBox{
			X:         p.X.Norm(l.value[i]),
			Y:         p.Y.Norm(l.pos[i]),
			Rectangle: vg.Rectangle{Min: vg.Point{X: -r, Y: -r}, Max: vg.Point{X: r, Y: r}},
		})
	}
	return boxes
}

// swatch is a filled-square legend thumbnail.
type swatch struct {
	color color.Color
}

func (s swatch) Thumbnail(c *draw.Canvas) {
	c.FillPolygon(s.color, rect(c.Min.X, c.Min.Y, c.Max.X, c.Max.Y))
}

// ramp is a sequential palette blended in Lab space between two colors.
type ramp struct {
	colors []color.Color
}

func newRamp(from, to string, n int) ramp {
	a, _ := colorful.Hex(from)
	b, _ := colorful.Hex(to)
	r := ramp{colors: make([]color.Color, n)}
	for i := 0; i < n; i++ {
		t := 0.0
		if n > 1 {
			t = float64(i) / float64(n-1)
		}
		r.colors[i] = a.BlendLab(b, t).Clamped()
	}
	return r
}

func (r ramp) Colors() []color.Color { return r.colors }

// tileGrid adapts category positions and a value matrix to plotter.GridXYZ.
type tileGrid struct {
	z [][]float64 // z[col][row]
}

func (g tileGrid) Dims() (c, r int) {
	if len(g.z) == 0 {
		return 0, 0
	}
	return len(g.z), len(g.z[0])
}
func (g tileGrid) Z(c, r int) float64 { return g.z[c][r] }
func (g tileGrid) X(c int) float64    { return float64(c) }
func (g tileGrid) Y(r int) float64    { return float64(r) }
