package indicator

import (
	"fmt"
	"time"

	"github.com/0xc0d3d00d/klinechart/internal/domain"
	"github.com/sdcoffey/big"
	"github.com/sdcoffey/techan"
)

// toTimeSeries loads a cleaned price series into a techan time series. Bars
// get a one-day period starting at their date, which keeps consecutive
// trading days strictly ordered.
func toTimeSeries(series *domain.PriceSeries) (*techan.TimeSeries, error) {
	ts := techan.NewTimeSeries()
	for i, bar := range series.Bars {
		candle := techan.NewCandle(techan.NewTimePeriod(bar.Date, 24*time.Hour))
		candle.OpenPrice = big.NewDecimal(bar.Open)
		candle.MaxPrice = big.NewDecimal(bar.High)
		candle.MinPrice = big.NewDecimal(bar.Low)
		candle.ClosePrice = big.NewDecimal(bar.Close)
		candle.Volume = big.NewDecimal(bar.Volume)
		if !ts.AddCandle(candle) {
			return nil, fmt.Errorf("bar %d (%s) is not after the previous bar", i, bar.Date.Format(time.DateOnly))
		}
	}
	return ts, nil
}

// shifted exposes an indicator starting at a later index, so that window
// based indicators layered on top only see its defined values.
type shifted struct {
	techan.Indicator
	offset int
}

func (s shifted) Calculate(index int) big.Decimal {
	return s.Indicator.Calculate(index + s.offset)
}

func value(ind techan.Indicator, index int) float64 {
	return ind.Calculate(index).Float()
}
