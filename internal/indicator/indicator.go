// Package indicator derives the technical indicators drawn on a kline chart
// from a cleaned price series. The rolling-window math is delegated to techan;
// each series drops its own warm-up rows.
package indicator

import (
	"github.com/0xc0d3d00d/klinechart/internal/domain"
	"github.com/sdcoffey/techan"
)

// Series names, also used as chart legend labels.
const (
	NameMA5       = "MA5"
	NameMA20      = "MA20"
	NameK         = "%K"
	NameD         = "%D"
	NameMACD      = "MACD"
	NameSignal    = "Signal"
	NameHistogram = "Histogram"
	NameADX       = "ADX"
	NamePlusDI    = "+DI"
	NameMinusDI   = "-DI"
)

type Params struct {
	FastMA      int
	SlowMA      int
	StochWindow int
	StochSmooth int
	MACDFast    int
	MACDSlow    int
	MACDSignal  int
	DMIWindow   int
}

var DefaultParams = Params{
	FastMA:      5,
	SlowMA:      20,
	StochWindow: 14,
	StochSmooth: 3,
	MACDFast:    12,
	MACDSlow:    26,
	MACDSignal:  9,
	DMIWindow:   14,
}

// Set holds every indicator series of one price series. A series is empty
// when the history is shorter than its warm-up.
type Set struct {
	MA5       Series
	MA20      Series
	K         Series
	D         Series
	MACD      Series
	Signal    Series
	Histogram Series
	ADX       Series
	PlusDI    Series
	MinusDI   Series
}

// Compute derives the indicator set with DefaultParams.
func Compute(series *domain.PriceSeries) (*Set, error) {
	return ComputeWith(series, DefaultParams)
}

func ComputeWith(series *domain.PriceSeries, p Params) (*Set, error) {
	ts, err := toTimeSeries(series)
	if err != nil {
		return nil, err
	}
	n := len(ts.Candles)
	closePrice := techan.NewClosePriceIndicator(ts)

	set := &Set{}
	set.MA5 = movingAverage(NameMA5, closePrice, p.FastMA, n)
	set.MA20 = movingAverage(NameMA20, closePrice, p.SlowMA, n)
	set.K, set.D = stochastic(ts, p.StochWindow, p.StochSmooth, n)
	set.MACD, set.Signal, set.Histogram = macd(closePrice, p.MACDFast, p.MACDSlow, p.MACDSignal, n)
	set.PlusDI, set.MinusDI, set.ADX = directional(ts, p.DMIWindow, n)
	return set, nil
}

func movingAverage(name string, ind techan.Indicator, window, n int) Series {
	sma := techan.NewSimpleMovingAverage(ind, window)
	return collect(name, window-1, n, func(i int) float64 { return value(sma, i) })
}

func stochastic(ts *techan.TimeSeries, window, smooth, n int) (Series, Series) {
	k := techan.NewFastStochasticIndicator(ts, window)
	d := techan.NewSlowStochasticIndicator(k, smooth)
	kSeries := collect(NameK, window-1, n, func(i int) float64 { return value(k, i) })
	dSeries := collect(NameD, window+smooth-2, n, func(i int) float64 { return value(d, i) })
	return kSeries, dSeries
}

func macd(closePrice techan.Indicator, fast, slow, signal, n int) (Series, Series, Series) {
	line := techan.NewMACDIndicator(closePrice, fast, slow)
	macdSeries := collect(NameMACD, slow-1, n, func(i int) float64 { return value(line, i) })

	// the signal EMA only sees the defined part of the MACD line
	signalLine := techan.NewEMAIndicator(shifted{Indicator: line, offset: slow - 1}, signal)
	signalSeries := collect(NameSignal, slow+signal-2, n, func(i int) float64 {
		return value(signalLine, i-(slow-1))
	})

	hist := collect(NameHistogram, signalSeries.Offset, n, func(i int) float64 {
		m, ok1 := macdSeries.At(i)
		s, ok2 := signalSeries.At(i)
		if !ok1 || !ok2 {
			return nanValue
		}
		return m - s
	})
	return macdSeries, signalSeries, hist
}

func directional(ts *techan.TimeSeries, window, n int) (Series, Series, Series) {
	d := newDMI(ts, window)
	plus := collect(NamePlusDI, d.diStart, n, func(i int) float64 { return value(d.plusDI, i) })
	minus := collect(NameMinusDI, d.diStart, n, func(i int) float64 { return value(d.minusDI, i) })
	adx := collect(NameADX, d.adxStart, n, func(i int) float64 { return value(d.adx, i) })
	return plus, minus, adx
}
