package kline

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/0xc0d3d00d/klinechart/internal/domain"
	"github.com/0xc0d3d00d/klinechart/internal/indicator"
	"github.com/0xc0d3d00d/klinechart/internal/marketdata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2024, time.June, 30, 15, 0, 0, 0, time.UTC)

type countingRenderer struct {
	calls int
	err   error
	bars  int
}

func (r *countingRenderer) Render(series *domain.PriceSeries, _ *indicator.Set) ([]byte, error) {
	r.calls++
	r.bars = series.Len()
	if r.err != nil {
		return nil, r.err
	}
	return []byte("png"), nil
}

type stageRecorder struct {
	mu     sync.Mutex
	stages []string
}

func (r *stageRecorder) ObserveStage(_ context.Context, stage string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stages = append(r.stages, stage)
}

func countingCompute(calls *int) ComputeFunc {
	return func(series *domain.PriceSeries) (*indicator.Set, error) {
		*calls++
		return indicator.Compute(series)
	}
}

func TestService_Chart(t *testing.T) {
	provider := &marketdata.Mock{}
	renderer := &countingRenderer{}
	recorder := &stageRecorder{}
	svc := New(provider, WithRenderer(renderer), WithRecorder(recorder), WithClock(func() time.Time { return now }))

	img, err := svc.Chart(context.Background(), " AAPL ")
	require.NoError(t, err)
	assert.Equal(t, []byte("png"), img)
	assert.Equal(t, 1, provider.Calls())
	assert.Equal(t, 1, renderer.calls)
	assert.Equal(t, DefaultLookbackDays, renderer.bars)
	assert.Equal(t, []string{"fetch", "normalize", "compute", "render"}, recorder.stages)
}

func TestService_Chart_RendersPNG(t *testing.T) {
	svc := New(&marketdata.Mock{}, WithClock(func() time.Time { return now }))

	img, err := svc.Chart(context.Background(), "MSFT")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(img, []byte("\x89PNG")))
}

func TestService_Chart_MissingSymbol(t *testing.T) {
	provider := &marketdata.Mock{}
	svc := New(provider)

	_, err := svc.Chart(context.Background(), "  ")
	require.ErrorIs(t, err, domain.ErrMissingParameter)
	assert.Equal(t, StageValidate, StageOf(err))
	assert.Zero(t, provider.Calls())
}

func TestService_Chart_Errors(t *testing.T) {
	boom := errors.New("boom")
	invalidRows := &marketdata.Frame{
		Symbol:  "BAD",
		Columns: []string{marketdata.ColumnOpen, marketdata.ColumnHigh, marketdata.ColumnLow, marketdata.ColumnClose, marketdata.ColumnVolume},
		Rows: []marketdata.Row{
			{Date: now, Cells: []string{"null", "1", "1", "1", "10"}},
		},
	}

	tests := []struct {
		name        string
		provider    *marketdata.Mock
		renderErr   error
		wantErr     error
		wantStage   Stage
		wantCompute int
		wantRender  int
	}{
		{
			name:      "provider error",
			provider:  &marketdata.Mock{Err: boom},
			wantErr:   boom,
			wantStage: StageFetch,
		},
		{
			name:      "no data",
			provider:  &marketdata.Mock{Frame: &marketdata.Frame{Symbol: "NONE"}},
			wantErr:   domain.ErrNoData,
			wantStage: StageNormalize,
		},
		{
			name:      "provider reports no data",
			provider:  &marketdata.Mock{Err: domain.ErrNoData},
			wantErr:   domain.ErrNotFound,
			wantStage: StageFetch,
		},
		{
			name:      "empty after cleaning",
			provider:  &marketdata.Mock{Frame: invalidRows},
			wantErr:   domain.ErrEmptyAfterCleaning,
			wantStage: StageNormalize,
		},
		{
			name:        "render error",
			provider:    &marketdata.Mock{},
			renderErr:   boom,
			wantErr:     boom,
			wantStage:   StageRender,
			wantCompute: 1,
			wantRender:  1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			renderer := &countingRenderer{err: tt.renderErr}
			computed := 0
			svc := New(tt.provider,
				WithRenderer(renderer),
				WithCompute(countingCompute(&computed)),
				WithClock(func() time.Time { return now }),
			)

			_, err := svc.Chart(context.Background(), "XYZ")
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, tt.wantStage, StageOf(err))
			assert.Equal(t, tt.wantCompute, computed)
			assert.Equal(t, tt.wantRender, renderer.calls)

			var stageErr *StageError
			require.ErrorAs(t, err, &stageErr)
			assert.Contains(t, stageErr.Error(), string(tt.wantStage))
		})
	}
}

func TestService_Chart_ShortHistory(t *testing.T) {
	renderer := &countingRenderer{}
	svc := New(&marketdata.Mock{}, WithRenderer(renderer), WithLookback(20), WithClock(func() time.Time { return now }))

	_, err := svc.Chart(context.Background(), "NEW")
	require.NoError(t, err)
	assert.Equal(t, 20, renderer.bars)
}

func TestStageOf(t *testing.T) {
	assert.Equal(t, Stage(""), StageOf(errors.New("plain")))
	assert.Equal(t, Stage(""), StageOf(nil))
	wrapped := errors.Join(errors.New("other"), &StageError{Stage: StageCompute, Err: errors.New("x")})
	assert.Equal(t, StageCompute, StageOf(wrapped))
}
