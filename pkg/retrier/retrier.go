// Package retrier re-runs failed operations with exponential backoff.
// It backs the recoverable store-failure contract: a write that failed
// on the WAL is retried a few times before the error is surfaced.
package retrier

import (
	"context"
	"math/rand"
	"time"
)

const (
	defaultInitialInterval = 200 * time.Millisecond
	defaultMaxInterval     = 5 * time.Second
	defaultMaxRetries      = 3

	multiplier = 2.0
	jitter     = 0.1
)

// Retrier re-runs a failing function with exponentially growing pauses.
// Each pause is perturbed by a small random jitter so concurrent callers
// do not hit the store in lockstep.
type Retrier struct {
	initialInterval time.Duration
	maxInterval     time.Duration
	maxRetries      int
}

// Option configures a Retrier.
type Option func(*Retrier)

// WithInitialInterval sets the pause before the first retry.
func WithInitialInterval(d time.Duration) Option {
	return func(r *Retrier) {
		r.initialInterval = d
	}
}

// WithMaxInterval caps the backoff growth.
func WithMaxInterval(d time.Duration) Option {
	return func(r *Retrier) {
		r.maxInterval = d
	}
}

// WithMaxRetries sets how many retries follow the initial attempt.
func WithMaxRetries(n int) Option {
	return func(r *Retrier) {
		r.maxRetries = n
	}
}

// New builds a Retrier with defaults tuned for transient store failures.
func New(opts ...Option) *Retrier {
	r := &Retrier{
		initialInterval: defaultInitialInterval,
		maxInterval:     defaultMaxInterval,
		maxRetries:      defaultMaxRetries,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Do runs fn until it succeeds, the retry budget is spent, or ctx is done.
// When the budget runs out, the last error is returned.
func (r *Retrier) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	interval := r.initialInterval

	var err error
	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		if attempt > 0 {
			if werr := wait(ctx, interval); werr != nil {
				return werr
			}

			interval = time.Duration(float64(interval) * multiplier)
			if interval > r.maxInterval {
				interval = r.maxInterval
			}
		}

		if err = fn(ctx); err == nil {
			return nil
		}
	}

	return err
}

// DoWithData is Do for functions that return a value alongside the error.
func DoWithData[T any](r *Retrier, ctx context.Context, fn func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := r.Do(ctx, func(ctx context.Context) error {
		var ferr error
		out, ferr = fn(ctx)
		return ferr
	})
	return out, err
}

// wait sleeps for d plus jitter, returning early when ctx is canceled.
func wait(ctx context.Context, d time.Duration) error {
	sleep := time.Duration(float64(d) * (1 + (rand.Float64()*2-1)*jitter))
	if sleep < 0 {
		sleep = 0
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(sleep):
		return nil
	}
}
