package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/0xc0d3d00d/klinechart/internal/domain"
	"github.com/0xc0d3d00d/klinechart/internal/indicator"
	"github.com/0xc0d3d00d/klinechart/internal/kline"
	"github.com/0xc0d3d00d/klinechart/internal/marketdata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRenderer struct {
	calls int
}

func (r *fakeRenderer) Render(*domain.PriceSeries, *indicator.Set) ([]byte, error) {
	r.calls++
	return []byte("\x89PNG\r\n\x1a\nfake"), nil
}

type fakeCharter struct {
	img []byte
	err error
}

func (c fakeCharter) Chart(context.Context, string) ([]byte, error) {
	return c.img, c.err
}

func newMux(charter Charter) *http.ServeMux {
	mux := http.NewServeMux()
	NewHandler(charter).Register(mux)
	return mux
}

func do(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestIndex(t *testing.T) {
	rec := do(t, newMux(fakeCharter{}), "/")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, indexMessage, rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/plain")

	rec = do(t, newMux(fakeCharter{}), "/nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestKline_MissingSymbol(t *testing.T) {
	provider := &marketdata.Mock{}
	renderer := &fakeRenderer{}
	mux := newMux(kline.New(provider, kline.WithRenderer(renderer)))

	for _, target := range []string{"/api/kline", "/api/kline?symbol=", "/api/kline?symbol=%20"} {
		rec := do(t, mux, target)
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
		assert.Equal(t, map[string]string{"error": "Missing required parameter: symbol"}, decodeError(t, rec))
	}
	assert.Zero(t, provider.Calls())
	assert.Zero(t, renderer.calls)
}

func TestKline_NoData(t *testing.T) {
	provider := &marketdata.Mock{Frame: &marketdata.Frame{Symbol: "NOPE"}}
	renderer := &fakeRenderer{}
	computed := 0
	svc := kline.New(provider,
		kline.WithRenderer(renderer),
		kline.WithCompute(func(s *domain.PriceSeries) (*indicator.Set, error) {
			computed++
			return indicator.Compute(s)
		}),
	)

	rec := do(t, newMux(svc), "/api/kline?symbol=NOPE")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	body := decodeError(t, rec)
	assert.Contains(t, body["error"], "NOPE")
	assert.Zero(t, computed)
	assert.Zero(t, renderer.calls)
}

func TestKline_Success(t *testing.T) {
	now := time.Date(2024, time.June, 30, 0, 0, 0, 0, time.UTC)
	svc := kline.New(&marketdata.Mock{}, kline.WithClock(func() time.Time { return now }))

	rec := do(t, newMux(svc), "/api/kline?symbol=AAPL")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")))
	assert.Equal(t, fmt.Sprint(rec.Body.Len()), rec.Header().Get("Content-Length"))
}

func TestKline_Errors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantBody   map[string]string
	}{
		{
			name:       "no data",
			err:        &kline.StageError{Stage: kline.StageFetch, Err: domain.ErrNoData},
			wantStatus: http.StatusNotFound,
			wantBody:   map[string]string{"error": "Unable to fetch data for X. Check the symbol or the date range."},
		},
		{
			name:       "empty after cleaning",
			err:        &kline.StageError{Stage: kline.StageNormalize, Err: domain.ErrEmptyAfterCleaning},
			wantStatus: http.StatusNotFound,
			wantBody:   map[string]string{"error": "No valid price data for X after cleaning."},
		},
		{
			name:       "provider failure",
			err:        &kline.StageError{Stage: kline.StageFetch, Err: errors.New("connection reset")},
			wantStatus: http.StatusInternalServerError,
			wantBody:   map[string]string{"error": "internal server error", "stage": "fetch"},
		},
		{
			name:       "rate limited",
			err:        &kline.StageError{Stage: kline.StageFetch, Err: domain.ErrRateLimited},
			wantStatus: http.StatusInternalServerError,
			wantBody:   map[string]string{"error": "internal server error", "stage": "fetch"},
		},
		{
			name:       "untagged failure",
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
			wantBody:   map[string]string{"error": "internal server error"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, newMux(fakeCharter{err: tt.err}), "/api/kline?symbol=X")
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantBody, decodeError(t, rec))
		})
	}
}
