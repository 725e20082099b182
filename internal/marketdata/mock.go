package marketdata

import (
	"context"
	"math"
	"strconv"
	"sync/atomic"
	"time"
)

// Mock returns a fixed frame or error. When Frame is nil it generates a
// deterministic synthetic history covering the query window.
type Mock struct {
	Frame *Frame
	Err   error
	Price float64

	calls atomic.Int64
}

// Ensure Mock implements the Provider interface.
var _ Provider = (*Mock)(nil)

func (m *Mock) Name() string { return "mock" }

// Calls reports how many times Fetch ran.
func (m *Mock) Calls() int {
	return int(m.calls.Load())
}

func (m *Mock) Fetch(_ context.Context, q Query) (*Frame, error) {
	m.calls.Add(1)
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Frame != nil {
		return m.Frame, nil
	}

	price := m.Price
	if price == 0 {
		price = 100
	}
	days := int(q.End.Sub(q.Start).Hours() / 24)
	return SyntheticFrame(q.Symbol, q.End, days, price), nil
}

// SyntheticFrame builds count consecutive daily rows ending at end, with
// low <= open, close <= high on every row.
func SyntheticFrame(symbol string, end time.Time, count int, basePrice float64) *Frame {
	frame := &Frame{
		Symbol:    symbol,
		IndexName: "Date",
		Columns:   []string{ColumnOpen, ColumnHigh, ColumnLow, ColumnClose, ColumnAdjClose, ColumnVolume},
		Rows:      make([]Row, 0, count),
	}
	start := truncateDay(end).AddDate(0, 0, -count)
	for i := 0; i < count; i++ {
		p := basePrice * (1 + 0.05*math.Sin(float64(i)/6) + float64(i)*0.001)
		open := p * (1 + 0.004*math.Cos(float64(i)))
		cls := p * (1 - 0.004*math.Cos(float64(i)))
		high := math.Max(open, cls) * 1.006
		low := math.Min(open, cls) * 0.994
		frame.Rows = append(frame.Rows, Row{
			Date: start.AddDate(0, 0, i+1),
			Cells: []string{
				formatFloat(open),
				formatFloat(high),
				formatFloat(low),
				formatFloat(cls),
				formatFloat(cls),
				strconv.Itoa(1_000_000 + 5_000*(i%20)),
			},
		})
	}
	return frame
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
