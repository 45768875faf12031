// Package retry provides bounded retry with exponential backoff, classified by error kind.
//
// Callers decide which failures are transient through an IsRetryableFunc. Errors
// wrapped with Permanent are never retried regardless of the classifier, which lets
// low-level adapters mark failures (4xx responses, reverts, malformed payloads)
// that no amount of waiting will fix.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"
)

// Config holds configuration for retry behavior.
type Config struct {
	// MaxRetries is the maximum number of retry attempts (0 means no retries, just the initial attempt).
	MaxRetries int

	// InitialBackoff is the backoff duration before the first retry.
	InitialBackoff time.Duration

	// MaxBackoff caps exponential growth.
	MaxBackoff time.Duration

	// BackoffFactor is the multiplier applied to backoff after each retry (default: 2.0).
	BackoffFactor float64

	// Jitter adds randomness to backoff: actual backoff is backoff + rand(0, backoff).
	Jitter bool

	// AttemptTimeout bounds a single attempt. Zero means the attempt only
	// inherits the parent context deadline.
	AttemptTimeout time.Duration
}

// DefaultConfig returns the configuration used for RPC reads and quote requests.
func DefaultConfig() Config {
	return Config{
		MaxRetries:     3,
		InitialBackoff: 250 * time.Millisecond,
		MaxBackoff:     5 * time.Second,
		BackoffFactor:  2.0,
		Jitter:         true,
	}
}

// IsRetryableFunc determines if an error should trigger a retry.
type IsRetryableFunc func(error) bool

// OnRetryFunc is called before each retry attempt (optional, for logging/metrics).
// attempt is 1-indexed (first retry is attempt 1).
type OnRetryFunc func(attempt int, err error, backoff time.Duration)

// PermanentError marks an error that must not be retried.
type PermanentError struct {
	err error
}

func (e *PermanentError) Error() string {
	return e.err.Error()
}

func (e *PermanentError) Unwrap() error {
	return e.err
}

// Permanent wraps err so that Do returns it without further attempts.
// A nil err stays nil.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{err: err}
}

// IsPermanent reports whether err (or anything it wraps) was marked Permanent.
func IsPermanent(err error) bool {
	var p *PermanentError
	return errors.As(err, &p)
}

// Transient is an IsRetryableFunc that retries everything except permanent
// errors and context cancellation of the parent.
func Transient(err error) bool {
	return !IsPermanent(err) && !errors.Is(err, context.Canceled)
}

// Do executes fn with retry logic and returns its result or the last error once
// retries are exhausted.
//
// fn is called at least once. It receives a context bounded by cfg.AttemptTimeout
// when that is set. Errors for which isRetryable returns false, or that are
// marked Permanent, are returned immediately.
//
// Example:
//
//	receipt, err := retry.Do(ctx, retry.DefaultConfig(), retry.Transient, nil, func(ctx context.Context) (*types.Receipt, error) {
//	    return client.TransactionReceipt(ctx, hash)
//	})
func Do[T any](
	ctx context.Context,
	cfg Config,
	isRetryable IsRetryableFunc,
	onRetry OnRetryFunc,
	fn func(ctx context.Context) (T, error),
) (T, error) {
	var zero T
	var lastErr error

	if cfg.BackoffFactor <= 0 {
		cfg.BackoffFactor = 2.0
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = 10 * time.Millisecond
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 100 * time.Millisecond
	}
	if isRetryable == nil {
		isRetryable = Transient
	}

	backoff := cfg.InitialBackoff

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			wait := backoff
			if cfg.Jitter {
				wait = backoff + time.Duration(rand.Int64N(int64(backoff)))
			}

			if onRetry != nil {
				onRetry(attempt, lastErr, wait)
			}

			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return zero, fmt.Errorf("context cancelled while retrying: %w", ctx.Err())
			case <-timer.C:
			}

			backoff = time.Duration(float64(backoff) * cfg.BackoffFactor)
			if backoff > cfg.MaxBackoff {
				backoff = cfg.MaxBackoff
			}
		}

		result, err := runAttempt(ctx, cfg.AttemptTimeout, fn)
		if err == nil {
			return result, nil
		}

		lastErr = err

		if IsPermanent(err) || !isRetryable(err) {
			return zero, err
		}
		if ctx.Err() != nil {
			return zero, fmt.Errorf("context done after attempt %d: %w", attempt+1, err)
		}
	}

	return zero, fmt.Errorf("operation failed after %d retries: %w", cfg.MaxRetries, lastErr)
}

func runAttempt[T any](ctx context.Context, timeout time.Duration, fn func(ctx context.Context) (T, error)) (T, error) {
	if timeout <= 0 {
		return fn(ctx)
	}
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return fn(attemptCtx)
}

// DoVoid is like Do but for functions that don't return a value.
func DoVoid(
	ctx context.Context,
	cfg Config,
	isRetryable IsRetryableFunc,
	onRetry OnRetryFunc,
	fn func(ctx context.Context) error,
) error {
	_, err := Do(ctx, cfg, isRetryable, onRetry, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}
