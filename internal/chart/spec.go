// Package chart turns a price series and its indicators into a multi-panel
// candlestick PNG. Compose builds a declarative Spec; Render draws it with
// gonum/plot.
package chart

import (
	"fmt"
	"image/color"

	"github.com/0xc0d3d00d/klinechart/internal/domain"
	"github.com/0xc0d3d00d/klinechart/internal/indicator"
	"gonum.org/v1/plot/vg"
)

const (
	PanelPrice    = "price"
	PanelVolume   = "volume"
	PanelMomentum = "momentum"
	PanelMACD     = "macd"
	PanelTrend    = "trend"
)

var (
	colorUp     = color.RGBA{R: 0x26, G: 0xa6, B: 0x4b, A: 0xff}
	colorDown   = color.RGBA{R: 0xe0, G: 0x3e, B: 0x36, A: 0xff}
	colorBlue   = color.RGBA{R: 0x1f, G: 0x77, B: 0xb4, A: 0xff}
	colorRed    = color.RGBA{R: 0xd6, G: 0x27, B: 0x28, A: 0xff}
	colorOrange = color.RGBA{R: 0xff, G: 0x7f, B: 0x0e, A: 0xff}
	colorBlack  = color.RGBA{A: 0xff}
	colorGray   = color.RGBA{R: 0x80, G: 0x80, B: 0x80, A: 0xff}
)

type LayerKind int

const (
	// LayerCandles draws the OHLC bars of the series.
	LayerCandles LayerKind = iota
	// LayerVolume draws volume bars coloured like their candle.
	LayerVolume
	// LayerLine draws an indicator series as a line.
	LayerLine
	// LayerBars draws an indicator series as bars around zero, coloured by sign.
	LayerBars
)

// Layer assigns one series to a panel. Series and the colours are only used
// by line and bar layers.
type Layer struct {
	Kind     LayerKind
	Series   indicator.Series
	Color    color.Color
	Negative color.Color
}

// Bounds constrains the y axis of a panel. Fixed bounds are used as is,
// otherwise the data range is widened to include Min and Max.
type Bounds struct {
	Min, Max float64
	Fixed    bool
}

type Panel struct {
	Name   string
	Label  string
	Weight float64
	Layers []Layer
	// RefLines are dashed horizontal reference levels.
	RefLines []float64
	Bounds   *Bounds
}

type Options struct {
	Width  vg.Length
	Height vg.Length
	DPI    int
}

var DefaultOptions = Options{
	Width:  12 * vg.Inch,
	Height: 14 * vg.Inch,
	DPI:    100,
}

func (o Options) withDefaults() Options {
	if o.Width <= 0 {
		o.Width = DefaultOptions.Width
	}
	if o.Height <= 0 {
		o.Height = DefaultOptions.Height
	}
	if o.DPI <= 0 {
		o.DPI = DefaultOptions.DPI
	}
	return o
}

// Spec is the full description of one chart. Panels are drawn top to bottom
// sharing the bar-index x axis.
type Spec struct {
	Title   string
	Series  *domain.PriceSeries
	Panels  []Panel
	Options Options
}

func line(s indicator.Series, c color.Color) Layer {
	return Layer{Kind: LayerLine, Series: s, Color: c}
}

// Compose lays out the price panel, the volume panel and the three indicator
// panels.
func Compose(series *domain.PriceSeries, set *indicator.Set, opts Options) *Spec {
	return &Spec{
		Title:   fmt.Sprintf("%s K-Line Chart", series.Symbol),
		Series:  series,
		Options: opts.withDefaults(),
		Panels: []Panel{
			{
				Name:   PanelPrice,
				Label:  "Price",
				Weight: 3,
				Layers: []Layer{
					{Kind: LayerCandles},
					line(set.MA5, colorBlue),
					line(set.MA20, colorRed),
				},
			},
			{
				Name:   PanelVolume,
				Label:  "Volume",
				Weight: 1,
				Layers: []Layer{{Kind: LayerVolume}},
			},
			{
				Name:     PanelMomentum,
				Label:    "Stochastic",
				Weight:   1.5,
				Layers:   []Layer{line(set.K, colorBlue), line(set.D, colorOrange)},
				RefLines: []float64{80, 20},
				Bounds:   &Bounds{Min: 0, Max: 100, Fixed: true},
			},
			{
				Name:   PanelMACD,
				Label:  "MACD",
				Weight: 1.5,
				Layers: []Layer{
					{Kind: LayerBars, Series: set.Histogram, Color: colorUp, Negative: colorDown},
					line(set.MACD, colorBlue),
					line(set.Signal, colorOrange),
				},
				RefLines: []float64{0},
			},
			{
				Name:   PanelTrend,
				Label:  "ADX/DMI",
				Weight: 1.5,
				Layers: []Layer{
					line(set.ADX, colorBlack),
					line(set.PlusDI, colorUp),
					line(set.MinusDI, colorDown),
				},
				RefLines: []float64{20},
				Bounds:   &Bounds{Min: 0, Max: 50},
			},
		},
	}
}
