package chart

import (
	"math"
	"strings"

	"github.com/dustin/go-humanize"
	"gonum.org/v1/plot"
)

// Label formats one tick value.
func (f Format) Label(v float64) string {
	switch f {
	case Number:
		if math.Abs(v) >= 10 {
			return humanize.Comma(int64(math.Round(v)))
		}
		return humanize.CommafWithDigits(v, 2)
	case Percent:
		return humanize.FtoaWithDigits(v*100, 1) + "%"
	case Thousands:
		return strings.ReplaceAll(humanize.SIWithDigits(v, 1, ""), " ", "")
	}
	return humanize.Ftoa(v)
}

// formatTicker relabels gonum's default ticks with a Format.
type formatTicker struct {
	format Format
}

func (ft formatTicker) Ticks(min, max float64) []plot.Tick {
	ticks := plot.DefaultTicks{}.Ticks(min, max)
	if ft.format == Plain {
		return ticks
	}
	for i := range ticks {
		if ticks[i].Label != "" {
			ticks[i].Label = ft.format.Label(ticks[i].Value)
		}
	}
	return ticks
}

// categoryTicks labels category positions, thinning labels to every
// step-th category.
type categoryTicks struct {
	pos    []float64
	labels []string
	step   int
}

func newCategoryTicks(pos []float64, labels []string, maxLabels int) categoryTicks {
	step := 1
	if maxLabels > 0 && len(labels) > maxLabels {
		step = int(math.Ceil(float64(len(labels)) / float64(maxLabels)))
	}
	return categoryTicks{pos: pos, labels: labels, step: step}
}

func (ct categoryTicks) Ticks(min, max float64) []plot.Tick {
	ticks := make([]plot.Tick, 0, len(ct.pos))
	for i, p := range ct.pos {
		t := plot.Tick{Value: p}
		if i%ct.step == 0 {
			t.Label = ct.labels[i]
		}
		ticks = append(ticks, t)
	}
	return ticks
}
