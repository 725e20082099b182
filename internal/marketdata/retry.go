package marketdata

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/0xc0d3d00d/klinechart/internal/domain"
)

const (
	DefaultRetryAttempts  = 4
	DefaultRetryBaseDelay = 500 * time.Millisecond
	DefaultRetryMaxDelay  = 8 * time.Second
)

// Retrying retries rate-limited fetches with exponential backoff and full
// jitter. Any other error is returned immediately.
type Retrying struct {
	next        Provider
	maxAttempts int
	baseDelay   time.Duration
	maxDelay    time.Duration
	onRetry     func(ctx context.Context, provider string)
	sleep       func(ctx context.Context, d time.Duration) error
	jitter      func(d time.Duration) time.Duration
}

// Ensure Retrying implements the Provider interface.
var _ Provider = (*Retrying)(nil)

type RetryOption func(*Retrying)

func WithMaxAttempts(n int) RetryOption {
	return func(r *Retrying) {
		if n > 0 {
			r.maxAttempts = n
		}
	}
}

func WithBackoff(base, max time.Duration) RetryOption {
	return func(r *Retrying) {
		if base > 0 {
			r.baseDelay = base
		}
		if max > 0 {
			r.maxDelay = max
		}
	}
}

// WithRetryHook registers a callback invoked before every retry.
func WithRetryHook(fn func(ctx context.Context, provider string)) RetryOption {
	return func(r *Retrying) {
		r.onRetry = fn
	}
}

func NewRetrying(next Provider, opts ...RetryOption) *Retrying {
	r := &Retrying{
		next:        next,
		maxAttempts: DefaultRetryAttempts,
		baseDelay:   DefaultRetryBaseDelay,
		maxDelay:    DefaultRetryMaxDelay,
		sleep:       sleepContext,
		jitter:      fullJitter,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Retrying) Name() string { return r.next.Name() }

func (r *Retrying) Fetch(ctx context.Context, q Query) (*Frame, error) {
	var lastErr error
	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		frame, err := r.next.Fetch(ctx, q)
		if err == nil {
			return frame, nil
		}
		if !errors.Is(err, domain.ErrRateLimited) {
			return nil, err
		}
		lastErr = err
		if attempt == r.maxAttempts {
			break
		}

		delay := r.jitter(r.backoff(attempt))
		slog.WarnContext(ctx, "provider rate limited, backing off",
			"provider", r.next.Name(), "symbol", q.Symbol, "attempt", attempt, "delay", delay)
		if r.onRetry != nil {
			r.onRetry(ctx, r.next.Name())
		}
		if err := r.sleep(ctx, delay); err != nil {
			return nil, err
		}
	}
	return nil, fmt.Errorf("all %d attempts rate limited: %w", r.maxAttempts, lastErr)
}

// backoff returns base * 2^(attempt-1) capped at maxDelay.
func (r *Retrying) backoff(attempt int) time.Duration {
	d := r.baseDelay
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= r.maxDelay {
			return r.maxDelay
		}
	}
	if d > r.maxDelay {
		return r.maxDelay
	}
	return d
}

func fullJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return time.Duration(rand.Int64N(int64(d) + 1))
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
