package chart

import (
	"bytes"
	"errors"
	"fmt"
	"image/color"
	"math"

	"github.com/0xc0d3d00d/klinechart/internal/domain"
	"github.com/0xc0d3d00d/klinechart/internal/indicator"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

var ErrNoPanels = errors.New("chart has no panels")

var tiles = draw.Tiles{
	PadTop:    vg.Points(8),
	PadBottom: vg.Points(8),
	PadLeft:   vg.Points(8),
	PadRight:  vg.Points(16),
	PadY:      vg.Points(6),
}

// Renderer renders charts of a fixed size.
type Renderer struct {
	opts Options
}

func NewRenderer(opts Options) *Renderer {
	return &Renderer{opts: opts.withDefaults()}
}

func (r *Renderer) Render(series *domain.PriceSeries, set *indicator.Set) ([]byte, error) {
	return Render(Compose(series, set, r.opts))
}

// Render draws the panels of spec stacked vertically and encodes them as PNG.
func Render(spec *Spec) ([]byte, error) {
	if len(spec.Panels) == 0 {
		return nil, ErrNoPanels
	}
	opts := spec.Options.withDefaults()

	plots := make([][]*plot.Plot, len(spec.Panels))
	for i, panel := range spec.Panels {
		p, err := newPanelPlot(spec.Series, panel, i == len(spec.Panels)-1)
		if err != nil {
			return nil, fmt.Errorf("panel %s: %w", panel.Name, err)
		}
		plots[i] = []*plot.Plot{p}
	}
	plots[0][0].Title.Text = spec.Title

	img := vgimg.NewWith(vgimg.UseWH(opts.Width, opts.Height), vgimg.UseDPI(opts.DPI))
	dc := draw.New(img)

	t := tiles
	t.Rows, t.Cols = len(plots), 1
	canvases := plot.Align(plots, t, dc)
	stack(canvases, spec.Panels, dc, t)
	for i := range plots {
		plots[i][0].Draw(canvases[i][0])
	}

	var buf bytes.Buffer
	if _, err := (vgimg.PngCanvas{Canvas: img}).WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// stack replaces the equal row heights of the aligned canvases by heights
// proportional to the panel weights. The aligned x extents are kept.
func stack(canvases [][]draw.Canvas, panels []Panel, dc draw.Canvas, t draw.Tiles) {
	total := 0.0
	for _, p := range panels {
		total += weight(p)
	}
	avail := dc.Max.Y - dc.Min.Y - t.PadTop - t.PadBottom - t.PadY*vg.Length(len(panels)-1)
	top := dc.Max.Y - t.PadTop
	for i, p := range panels {
		h := avail * vg.Length(weight(p)/total)
		canvases[i][0].Max.Y = top
		canvases[i][0].Min.Y = top - h
		top -= h + t.PadY
	}
}

func weight(p Panel) float64 {
	if p.Weight <= 0 {
		return 1
	}
	return p.Weight
}

func newPanelPlot(series *domain.PriceSeries, panel Panel, bottom bool) (*plot.Plot, error) {
	p := plot.New()
	p.Y.Label.Text = panel.Label
	p.Legend.Top = true
	p.Legend.Left = true
	p.Add(plotter.NewGrid())

	for _, layer := range panel.Layers {
		if err := addLayer(p, series, layer); err != nil {
			return nil, err
		}
	}
	for _, level := range panel.RefLines {
		p.Add(refLine(level))
	}

	n := series.Len()
	p.X.Min, p.X.Max = -1, float64(n)
	p.X.Tick.Marker = dateTicks{dates: series.Dates(), labels: bottom}
	if bottom {
		p.X.Label.Text = series.IndexName
	}
	fitY(&p.Y, panel.Bounds)
	return p, nil
}

func addLayer(p *plot.Plot, series *domain.PriceSeries, layer Layer) error {
	switch layer.Kind {
	case LayerCandles:
		p.Add(candles{bars: series.Bars, up: colorUp, down: colorDown})
	case LayerVolume:
		volumes := make([]float64, series.Len())
		for i, b := range series.Bars {
			volumes[i] = b.Volume
		}
		p.Add(bars{values: volumes, colorOf: func(k int, _ float64) color.Color {
			if series.Bars[k].Close >= series.Bars[k].Open {
				return colorUp
			}
			return colorDown
		}})
	case LayerBars:
		if layer.Series.Empty() {
			return nil
		}
		b := bars{offset: layer.Series.Offset, values: layer.Series.Values, colorOf: func(_ int, v float64) color.Color {
			if v < 0 {
				return layer.Negative
			}
			return layer.Color
		}}
		p.Add(b)
		p.Legend.Add(layer.Series.Name, b)
	case LayerLine:
		xys := points(layer.Series)
		if len(xys) == 0 {
			return nil
		}
		l, err := plotter.NewLine(xys)
		if err != nil {
			return fmt.Errorf("line %s: %w", layer.Series.Name, err)
		}
		l.Color = layer.Color
		l.Width = vg.Points(1.2)
		p.Add(l)
		p.Legend.Add(layer.Series.Name, l)
	default:
		return fmt.Errorf("unknown layer kind %d", layer.Kind)
	}
	return nil
}

// points converts the defined values of s to x/y pairs at their bar index.
func points(s indicator.Series) plotter.XYs {
	xys := make(plotter.XYs, 0, s.Len())
	for k, v := range s.Values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		xys = append(xys, plotter.XY{X: float64(s.Offset + k), Y: v})
	}
	return xys
}

func refLine(level float64) *plotter.Function {
	f := plotter.NewFunction(func(float64) float64 { return level })
	f.Color = colorGray
	f.Width = vg.Points(0.8)
	f.Dashes = []vg.Length{vg.Points(4), vg.Points(3)}
	f.Samples = 2
	return f
}

// fitY makes the y range finite and applies the panel bounds.
func fitY(ax *plot.Axis, b *Bounds) {
	if b != nil && b.Fixed {
		ax.Min, ax.Max = b.Min, b.Max
		return
	}
	if math.IsInf(ax.Min, 0) || math.IsInf(ax.Max, 0) || ax.Min > ax.Max {
		ax.Min, ax.Max = 0, 0
		if b == nil {
			ax.Min, ax.Max = -1, 1
		}
	}
	if b != nil {
		ax.Min = math.Min(ax.Min, b.Min)
		ax.Max = math.Max(ax.Max, b.Max)
	}
	if ax.Min == ax.Max {
		ax.Min--
		ax.Max++
	}
}
