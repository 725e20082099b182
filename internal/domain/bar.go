package domain

import "time"

// DefaultIndexName names the date index of a series when the provider does not.
const DefaultIndexName = "Date"

type Bar struct {
	Date   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// PriceSeries is a cleaned OHLCV history ordered by date with unique dates.
type PriceSeries struct {
	Symbol    string
	IndexName string
	Interval  Interval
	Bars      []Bar
}

func (s *PriceSeries) Len() int {
	return len(s.Bars)
}

func (s *PriceSeries) Dates() []time.Time {
	dates := make([]time.Time, len(s.Bars))
	for i, b := range s.Bars {
		dates[i] = b.Date
	}
	return dates
}

func (s *PriceSeries) Closes() []float64 {
	closes := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		closes[i] = b.Close
	}
	return closes
}
