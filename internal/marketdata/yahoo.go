package marketdata

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/0xc0d3d00d/klinechart/internal/domain"
	"github.com/tidwall/gjson"
)

const DefaultYahooBaseURL = "https://query1.finance.yahoo.com"

// Yahoo fetches bars from the Yahoo Finance v8 chart API.
type Yahoo struct {
	baseURL   string
	client    *http.Client
	symbolMap map[string]string
}

// Ensure Yahoo implements the Provider interface.
var _ Provider = (*Yahoo)(nil)

// NewYahoo creates a Yahoo provider with optional proxy support.
func NewYahoo(baseURL, proxyURL string, timeout time.Duration) *Yahoo {
	if baseURL == "" {
		baseURL = DefaultYahooBaseURL
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &Yahoo{
		baseURL: baseURL,
		client: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
		symbolMap: map[string]string{
			"SPX500": "^GSPC",
			"SPX":    "^GSPC",
			"SP500":  "^GSPC",
		},
	}
}

func (y *Yahoo) Name() string { return "yahoo" }

func (y *Yahoo) yahooSymbol(symbol string) string {
	if mapped, ok := y.symbolMap[symbol]; ok {
		return mapped
	}
	return symbol
}

func (y *Yahoo) chartURL(q Query) string {
	params := url.Values{}
	params.Set("period1", strconv.FormatInt(q.Start.Unix(), 10))
	params.Set("period2", strconv.FormatInt(q.End.Unix(), 10))
	params.Set("interval", q.Interval.String())
	params.Set("includeAdjustedClose", "true")
	return fmt.Sprintf("%s/v8/finance/chart/%s?%s", y.baseURL, url.PathEscape(y.yahooSymbol(q.Symbol)), params.Encode())
}

func (y *Yahoo) Fetch(ctx context.Context, q Query) (*Frame, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, y.chartURL(q), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := y.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("yahoo fetch %s: %w", q.Symbol, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("yahoo read body: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusTooManyRequests:
		return nil, fmt.Errorf("%w: yahoo status %d", domain.ErrRateLimited, resp.StatusCode)
	case http.StatusNotFound:
		return nil, fmt.Errorf("%w: yahoo: %s", domain.ErrNoData, chartErrorDescription(body))
	default:
		return nil, fmt.Errorf("yahoo: status %d, body: %s", resp.StatusCode, string(body))
	}

	return parseChart(q.Symbol, body)
}

func chartErrorDescription(body []byte) string {
	desc := gjson.GetBytes(body, "chart.error.description")
	if !desc.Exists() {
		return "symbol not found"
	}
	return desc.String()
}

// parseChart converts a chart API payload into a Frame. Null values are kept
// as their raw text so they surface as missing during normalization.
func parseChart(symbol string, body []byte) (*Frame, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("yahoo decode: invalid json")
	}
	if chartErr := gjson.GetBytes(body, "chart.error"); chartErr.Exists() && chartErr.Type != gjson.Null {
		return nil, fmt.Errorf("yahoo api error: %s", chartErr.Get("description").String())
	}

	result := gjson.GetBytes(body, "chart.result.0")
	timestamps := result.Get("timestamp").Array()
	if len(timestamps) == 0 {
		return nil, fmt.Errorf("%w: yahoo returned no bars for %s", domain.ErrNoData, symbol)
	}

	offset := result.Get("meta.gmtoffset").Int()
	quote := result.Get("indicators.quote.0")
	opens := quote.Get("open").Array()
	highs := quote.Get("high").Array()
	lows := quote.Get("low").Array()
	closes := quote.Get("close").Array()
	volumes := quote.Get("volume").Array()
	adjCloses := result.Get("indicators.adjclose.0.adjclose").Array()

	frame := &Frame{
		Symbol:    symbol,
		IndexName: "Date",
		Columns:   []string{ColumnOpen, ColumnHigh, ColumnLow, ColumnClose, ColumnAdjClose, ColumnVolume},
		Rows:      make([]Row, 0, len(timestamps)),
	}
	for i, ts := range timestamps {
		frame.Rows = append(frame.Rows, Row{
			// shift to exchange-local wall time so the calendar day is the trading day
			Date: time.Unix(ts.Int()+offset, 0).UTC(),
			Cells: []string{
				rawAt(opens, i),
				rawAt(highs, i),
				rawAt(lows, i),
				rawAt(closes, i),
				rawAt(adjCloses, i),
				rawAt(volumes, i),
			},
		})
	}
	return frame, nil
}

func rawAt(values []gjson.Result, i int) string {
	if i >= len(values) {
		return ""
	}
	return values[i].Raw
}
