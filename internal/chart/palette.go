package chart

import (
	"fmt"
	"image/color"
	"strings"

	"epec-pipeline/internal/model"

	"github.com/lucasb-eyer/go-colorful"
)

// Palette maps category names to colors. Lookups try the exact name, then
// a case-insensitive match, then Fallback. Without a Fallback an unmapped
// category is a RenderError. A palette with no names colors everything
// Solid.
type Palette struct {
	Name     string
	Named    map[string]color.Color
	Solid    color.Color
	Fallback color.Color
}

// Lookup returns the color for a category.
func (p Palette) Lookup(category string) (color.Color, error) {
	if c, ok := p.Named[category]; ok {
		return c, nil
	}
	for name, c := range p.Named {
		if strings.EqualFold(name, category) {
			return c, nil
		}
	}
	if p.Fallback != nil {
		return p.Fallback, nil
	}
	if len(p.Named) == 0 && p.Solid != nil {
		return p.Solid, nil
	}
	return nil, model.Errorf(model.StageRender, "palette %q has no color for category %q", p.Name, category)
}

// Validate fails on the first category Lookup cannot color.
func (p Palette) Validate(categories []string) error {
	for _, c := range categories {
		if _, err := p.Lookup(c); err != nil {
			return err
		}
	}
	return nil
}

// SolidColor returns Solid, or def when the palette sets none.
func (p Palette) SolidColor(def color.Color) color.Color {
	if p.Solid != nil {
		return p.Solid
	}
	return def
}

// Solid builds a single-color palette from a hex string.
func Solid(name, hex string) Palette {
	return Palette{Name: name, Solid: MustHex(hex)}
}

// Sectors are the eleven EPEC sector names.
var Sectors = []string{
	"Transport",
	"Healthcare",
	"Education",
	"Environment",
	"General public services",
	"Public order and safety",
	"Recreation and culture",
	"Telecommunications",
	"Housing and community services",
	"Defence",
	"Energy",
}

// SectorPalette colors every known sector and has no fallback, so an
// unknown sector fails validation.
var SectorPalette = named("sector", nil, map[string]string{
	"Transport":                      "#1380A1",
	"Healthcare":                     "#C8102E",
	"Education":                      "#FAAB18",
	"Environment":                    "#2E8540",
	"General public services":        "#6D2077",
	"Public order and safety":        "#41B6E6",
	"Recreation and culture":         "#E87722",
	"Telecommunications":             "#8A8D8F",
	"Housing and community services": "#A4343A",
	"Defence":                        "#3A5DAE",
	"Energy":                         "#7A9A01",
})

// CountryPalette highlights the United Kingdom, France and Spain and draws
// every other country in the explicit grey fallback.
var CountryPalette = named("country", MustHex("#BBBBBB"), map[string]string{
	"United Kingdom": "#1380A1",
	"UK":             "#1380A1",
	"France":         "#FAAB18",
	"Spain":          "#990000",
})

func named(name string, fallback color.Color, hexes map[string]string) Palette {
	p := Palette{Name: name, Named: make(map[string]color.Color, len(hexes)), Fallback: fallback}
	for k, h := range hexes {
		p.Named[k] = MustHex(h)
	}
	return p
}

// MustHex parses "#RRGGBB" and panics on malformed input. It is meant for
// package-level palette literals.
func MustHex(hex string) color.Color {
	c, err := colorful.Hex(hex)
	if err != nil {
		panic(fmt.Sprintf("chart: bad color %q: %v", hex, err))
	}
	return c
}
