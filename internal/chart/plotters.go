package chart

import (
	"image/color"
	"math"
	"time"

	"github.com/0xc0d3d00d/klinechart/internal/domain"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// barHalfWidth is half the width of a candle body or bar in x data units.
const barHalfWidth = 0.35

// candles draws one OHLC candle per bar at x = bar index.
type candles struct {
	bars     []domain.Bar
	up, down color.Color
}

var (
	_ plot.Plotter     = candles{}
	_ plot.DataRanger  = candles{}
	_ plot.Thumbnailer = candles{}
)

func (c candles) color(b domain.Bar) color.Color {
	if b.Close >= b.Open {
		return c.up
	}
	return c.down
}

func (c candles) Plot(dc draw.Canvas, plt *plot.Plot) {
	trX, trY := plt.Transforms(&dc)
	half := trX(barHalfWidth) - trX(0)
	for i, b := range c.bars {
		x := trX(float64(i))
		clr := c.color(b)
		dc.StrokeLine2(draw.LineStyle{Color: clr, Width: vg.Points(0.8)}, x, trY(b.Low), x, trY(b.High))

		top, bottom := trY(math.Max(b.Open, b.Close)), trY(math.Min(b.Open, b.Close))
		if top-bottom < vg.Points(0.5) {
			dc.StrokeLine2(draw.LineStyle{Color: clr, Width: vg.Points(1)}, x-half, top, x+half, top)
			continue
		}
		dc.FillPolygon(clr, rect(x-half, bottom, x+half, top))
	}
}

func (c candles) DataRange() (xmin, xmax, ymin, ymax float64) {
	xmin, xmax = -barHalfWidth, float64(len(c.bars)-1)+barHalfWidth
	ymin, ymax = math.Inf(1), math.Inf(-1)
	for _, b := range c.bars {
		ymin = math.Min(ymin, b.Low)
		ymax = math.Max(ymax, b.High)
	}
	return xmin, xmax, ymin, ymax
}

func (c candles) Thumbnail(dc *draw.Canvas) {
	dc.FillPolygon(c.up, rect(dc.Min.X, dc.Min.Y, dc.Max.X, dc.Max.Y))
}

// bars draws values at x = offset+k as bars from zero. colorOf picks the
// colour of each bar.
type bars struct {
	offset  int
	values  []float64
	colorOf func(k int, v float64) color.Color
}

var (
	_ plot.Plotter     = bars{}
	_ plot.DataRanger  = bars{}
	_ plot.Thumbnailer = bars{}
)

func (b bars) Plot(dc draw.Canvas, plt *plot.Plot) {
	trX, trY := plt.Transforms(&dc)
	half := trX(barHalfWidth) - trX(0)
	zero := trY(0)
	for k, v := range b.values {
		if math.IsNaN(v) || v == 0 {
			continue
		}
		x := trX(float64(b.offset + k))
		dc.FillPolygon(b.colorOf(k, v), rect(x-half, zero, x+half, trY(v)))
	}
}

func (b bars) DataRange() (xmin, xmax, ymin, ymax float64) {
	xmin = float64(b.offset) - barHalfWidth
	xmax = float64(b.offset+len(b.values)-1) + barHalfWidth
	for _, v := range b.values {
		if math.IsNaN(v) {
			continue
		}
		ymin = math.Min(ymin, v)
		ymax = math.Max(ymax, v)
	}
	return xmin, xmax, ymin, ymax
}

func (b bars) Thumbnail(dc *draw.Canvas) {
	dc.FillPolygon(b.colorOf(0, 1), rect(dc.Min.X, dc.Min.Y, dc.Max.X, dc.Max.Y))
}

func rect(x0, y0, x1, y1 vg.Length) []vg.Point {
	return []vg.Point{{X: x0, Y: y0}, {X: x1, Y: y0}, {X: x1, Y: y1}, {X: x0, Y: y1}}
}

// dateTicks labels bar indexes with their dates. Only the bottom panel
// carries labels; the others get unlabelled ticks at the same positions.
type dateTicks struct {
	dates  []time.Time
	labels bool
}

// maxDateLabels keeps date labels from overlapping at the default width.
const maxDateLabels = 10

func (t dateTicks) Ticks(min, max float64) []plot.Tick {
	n := len(t.dates)
	if n == 0 {
		return nil
	}
	step := (n + maxDateLabels - 1) / maxDateLabels
	var ticks []plot.Tick
	for i := 0; i < n; i += step {
		v := float64(i)
		if v < min || v > max {
			continue
		}
		tick := plot.Tick{Value: v}
		if t.labels {
			tick.Label = t.dates[i].Format(time.DateOnly)
		}
		ticks = append(ticks, tick)
	}
	return ticks
}
