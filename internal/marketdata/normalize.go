package marketdata

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/0xc0d3d00d/klinechart/internal/domain"
)

// Normalize turns a provider frame into a PriceSeries. The adjusted close
// column is dropped, OHLCV cells are coerced to floats with non-numeric text
// treated as missing, and rows missing any of open/high/low/close are removed.
// Dates are truncated to the calendar day and deduplicated, keeping the last row.
func Normalize(frame *Frame, interval domain.Interval) (*domain.PriceSeries, error) {
	if frame.Len() == 0 {
		return nil, domain.ErrNoData
	}

	frame.DropColumn(ColumnAdjClose)

	openIdx := frame.ColumnIndex(ColumnOpen)
	highIdx := frame.ColumnIndex(ColumnHigh)
	lowIdx := frame.ColumnIndex(ColumnLow)
	closeIdx := frame.ColumnIndex(ColumnClose)
	volumeIdx := frame.ColumnIndex(ColumnVolume)

	bars := make([]domain.Bar, 0, len(frame.Rows))
	for _, row := range frame.Rows {
		bar := domain.Bar{
			Date:   truncateDay(row.Date),
			Open:   parseCell(row.cell(openIdx)),
			High:   parseCell(row.cell(highIdx)),
			Low:    parseCell(row.cell(lowIdx)),
			Close:  parseCell(row.cell(closeIdx)),
			Volume: parseCell(row.cell(volumeIdx)),
		}
		if math.IsNaN(bar.Open) || math.IsNaN(bar.High) || math.IsNaN(bar.Low) || math.IsNaN(bar.Close) {
			continue
		}
		if math.IsNaN(bar.Volume) {
			bar.Volume = 0
		}
		bars = append(bars, bar)
	}

	if len(bars) == 0 {
		return nil, fmt.Errorf("%w: %d rows dropped for %s", domain.ErrEmptyAfterCleaning, frame.Len(), frame.Symbol)
	}

	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
	bars = dedupeDates(bars)

	indexName := frame.IndexName
	if indexName == "" {
		indexName = domain.DefaultIndexName
	}

	return &domain.PriceSeries{
		Symbol:    frame.Symbol,
		IndexName: indexName,
		Interval:  interval,
		Bars:      bars,
	}, nil
}

// parseCell returns NaN for anything that is not a finite number.
func parseCell(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsInf(v, 0) {
		return math.NaN()
	}
	return v
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// dedupeDates expects bars sorted by date.
func dedupeDates(bars []domain.Bar) []domain.Bar {
	out := bars[:0]
	for _, b := range bars {
		if n := len(out); n > 0 && out[n-1].Date.Equal(b.Date) {
			out[n-1] = b
			continue
		}
		out = append(out, b)
	}
	return out
}
