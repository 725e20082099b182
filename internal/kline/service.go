// Package kline runs the single-shot chart pipeline: fetch, normalize,
// compute indicators and render.
package kline

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/0xc0d3d00d/klinechart/internal/chart"
	"github.com/0xc0d3d00d/klinechart/internal/domain"
	"github.com/0xc0d3d00d/klinechart/internal/indicator"
	"github.com/0xc0d3d00d/klinechart/internal/marketdata"
)

const DefaultLookbackDays = 90

type Renderer interface {
	Render(series *domain.PriceSeries, set *indicator.Set) ([]byte, error)
}

type ComputeFunc func(series *domain.PriceSeries) (*indicator.Set, error)

// Recorder observes how long each stage took.
type Recorder interface {
	ObserveStage(ctx context.Context, stage string, d time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) ObserveStage(context.Context, string, time.Duration) {}

type Service struct {
	provider marketdata.Provider
	renderer Renderer
	compute  ComputeFunc
	recorder Recorder
	lookback int
	interval domain.Interval
	now      func() time.Time
}

type Option func(*Service)

func WithRenderer(r Renderer) Option {
	return func(s *Service) {
		s.renderer = r
	}
}

func WithCompute(fn ComputeFunc) Option {
	return func(s *Service) {
		s.compute = fn
	}
}

func WithRecorder(r Recorder) Option {
	return func(s *Service) {
		s.recorder = r
	}
}

// WithLookback sets how many calendar days of history are fetched.
func WithLookback(days int) Option {
	return func(s *Service) {
		if days > 0 {
			s.lookback = days
		}
	}
}

func WithInterval(interval domain.Interval) Option {
	return func(s *Service) {
		s.interval = interval
	}
}

// WithClock replaces time.Now as the end of the fetched window.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func New(provider marketdata.Provider, opts ...Option) *Service {
	s := &Service{
		provider: provider,
		renderer: chart.NewRenderer(chart.DefaultOptions),
		compute:  indicator.Compute,
		recorder: nopRecorder{},
		lookback: DefaultLookbackDays,
		interval: domain.Daily,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Chart fetches the trailing history of symbol and renders it as a PNG.
// Every error is a *StageError.
func (s *Service) Chart(ctx context.Context, symbol string) ([]byte, error) {
	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		return nil, &StageError{Stage: StageValidate, Err: domain.ErrMissingParameter}
	}

	var frame *marketdata.Frame
	err := s.run(ctx, StageFetch, func() (err error) {
		q := marketdata.TrailingQuery(symbol, s.now(), s.lookback, s.interval)
		frame, err = s.provider.Fetch(ctx, q)
		return err
	})
	if err != nil {
		return nil, err
	}

	var series *domain.PriceSeries
	err = s.run(ctx, StageNormalize, func() (err error) {
		series, err = marketdata.Normalize(frame, s.interval)
		return err
	})
	if err != nil {
		return nil, err
	}

	var set *indicator.Set
	err = s.run(ctx, StageCompute, func() (err error) {
		set, err = s.compute(series)
		return err
	})
	if err != nil {
		return nil, err
	}

	var img []byte
	err = s.run(ctx, StageRender, func() (err error) {
		img, err = s.renderer.Render(series, set)
		return err
	})
	if err != nil {
		return nil, err
	}

	slog.DebugContext(ctx, "chart rendered",
		"symbol", symbol,
		"provider", s.provider.Name(),
		"bars", series.Len(),
		"bytes", len(img),
	)
	return img, nil
}

func (s *Service) run(ctx context.Context, stage Stage, fn func() error) error {
	start := time.Now()
	err := fn()
	s.recorder.ObserveStage(ctx, string(stage), time.Since(start))
	if err != nil {
		return &StageError{Stage: stage, Err: err}
	}
	return nil
}
