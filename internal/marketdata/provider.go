package marketdata

import (
	"context"
	"strings"
	"time"

	"github.com/0xc0d3d00d/klinechart/internal/domain"
)

// Column names as produced by providers before cleaning.
const (
	ColumnOpen     = "Open"
	ColumnHigh     = "High"
	ColumnLow      = "Low"
	ColumnClose    = "Close"
	ColumnAdjClose = "Adj Close"
	ColumnVolume   = "Volume"
)

// Query selects a date range of bars for one symbol.
type Query struct {
	Symbol   string
	Start    time.Time
	End      time.Time
	Interval domain.Interval
}

// TrailingQuery covers the given number of days back from end.
func TrailingQuery(symbol string, end time.Time, days int, interval domain.Interval) Query {
	return Query{
		Symbol:   symbol,
		Start:    end.AddDate(0, 0, -days),
		End:      end,
		Interval: interval,
	}
}

// Provider fetches raw OHLCV rows from an external market-data source.
// An empty result is reported as domain.ErrNoData.
type Provider interface {
	Name() string
	Fetch(ctx context.Context, q Query) (*Frame, error)
}

// Frame is a provider result before cleaning. Cells hold the raw text of
// every value so the normalizer decides what counts as numeric.
type Frame struct {
	Symbol    string
	IndexName string
	Columns   []string
	Rows      []Row
}

type Row struct {
	Date  time.Time
	Cells []string
}

func (f *Frame) Len() int {
	if f == nil {
		return 0
	}
	return len(f.Rows)
}

// ColumnIndex returns the position of the named column, matched case-insensitively, or -1.
func (f *Frame) ColumnIndex(name string) int {
	for i, c := range f.Columns {
		if strings.EqualFold(strings.TrimSpace(c), name) {
			return i
		}
	}
	return -1
}

// DropColumn removes the named column and its cells from every row.
func (f *Frame) DropColumn(name string) {
	idx := f.ColumnIndex(name)
	if idx < 0 {
		return
	}
	f.Columns = append(f.Columns[:idx:idx], f.Columns[idx+1:]...)
	for i := range f.Rows {
		cells := f.Rows[i].Cells
		if idx < len(cells) {
			f.Rows[i].Cells = append(cells[:idx:idx], cells[idx+1:]...)
		}
	}
}

func (r Row) cell(idx int) string {
	if idx < 0 || idx >= len(r.Cells) {
		return ""
	}
	return r.Cells[idx]
}
