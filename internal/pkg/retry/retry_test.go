package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

var errTransient = errors.New("transient error")
var errPermanent = errors.New("permanent error")

func isTransient(err error) bool {
	return errors.Is(err, errTransient)
}

func fastConfig(maxRetries int) Config {
	return Config{
		MaxRetries:     maxRetries,
		InitialBackoff: 1 * time.Millisecond,
		MaxBackoff:     10 * time.Millisecond,
		BackoffFactor:  2.0,
		Jitter:         false,
	}
}

func TestDo_SucceedsFirstAttempt(t *testing.T) {
	calls := 0
	result, err := Do(context.Background(), DefaultConfig(), isTransient, nil, func(context.Context) (int, error) {
		calls++
		return 42, nil
	})

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != 42 {
		t.Errorf("expected result 42, got %d", result)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestDo_RetriesOnTransientError(t *testing.T) {
	calls := 0
	result, err := Do(context.Background(), fastConfig(3), isTransient, nil, func(context.Context) (int, error) {
		calls++
		if calls < 3 {
			return 0, errTransient
		}
		return 42, nil
	})

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != 42 {
		t.Errorf("expected result 42, got %d", result)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestDo_FailsImmediatelyOnPermanentError(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), fastConfig(3), isTransient, nil, func(context.Context) (int, error) {
		calls++
		return 0, errPermanent
	})

	if !errors.Is(err, errPermanent) {
		t.Errorf("expected permanent error, got: %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call (no retries for permanent error), got %d", calls)
	}
}

func TestDo_PermanentMarkerOverridesClassifier(t *testing.T) {
	calls := 0
	alwaysRetry := func(error) bool { return true }

	_, err := Do(context.Background(), fastConfig(5), alwaysRetry, nil, func(context.Context) (int, error) {
		calls++
		return 0, Permanent(fmt.Errorf("client error (HTTP 400): %w", errTransient))
	})

	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
	if !IsPermanent(err) {
		t.Errorf("expected permanent error, got %v", err)
	}
	if !errors.Is(err, errTransient) {
		t.Errorf("expected wrapped cause to be preserved, got %v", err)
	}
}

func TestDo_ExhaustsRetries(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), fastConfig(2), isTransient, nil, func(context.Context) (int, error) {
		calls++
		return 0, errTransient
	})

	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if !errors.Is(err, errTransient) {
		t.Errorf("expected transient error wrapped, got: %v", err)
	}
	// 1 initial + 2 retries = 3 total
	if calls != 3 {
		t.Errorf("expected 3 calls (1 + 2 retries), got %d", calls)
	}
}

func TestDo_RespectsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	cfg := Config{
		MaxRetries:     10,
		InitialBackoff: 100 * time.Millisecond,
		Jitter:         false,
	}

	onRetry := func(attempt int, err error, backoff time.Duration) {
		cancel()
	}

	_, err := Do(ctx, cfg, isTransient, onRetry, func(context.Context) (int, error) {
		calls++
		return 0, errTransient
	})

	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled error, got: %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call before cancellation, got %d", calls)
	}
}

func TestDo_AttemptTimeout(t *testing.T) {
	cfg := fastConfig(1)
	cfg.AttemptTimeout = 5 * time.Millisecond

	calls := 0
	_, err := Do(context.Background(), cfg, func(err error) bool {
		return errors.Is(err, context.DeadlineExceeded)
	}, nil, func(ctx context.Context) (int, error) {
		calls++
		<-ctx.Done()
		return 0, ctx.Err()
	})

	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if calls != 2 {
		t.Errorf("expected 2 attempts, got %d", calls)
	}
}

func TestDo_ExponentialBackoff(t *testing.T) {
	cfg := Config{
		MaxRetries:     3,
		InitialBackoff: 10 * time.Millisecond,
		MaxBackoff:     100 * time.Millisecond,
		BackoffFactor:  2.0,
		Jitter:         false,
	}

	backoffs := []time.Duration{}
	onRetry := func(attempt int, err error, backoff time.Duration) {
		backoffs = append(backoffs, backoff)
	}

	_, _ = Do(context.Background(), cfg, isTransient, onRetry, func(context.Context) (int, error) {
		return 0, errTransient
	})

	expected := []time.Duration{10 * time.Millisecond, 20 * time.Millisecond, 40 * time.Millisecond}
	if len(backoffs) != len(expected) {
		t.Fatalf("expected %d backoffs, got %d", len(expected), len(backoffs))
	}
	for i, exp := range expected {
		if backoffs[i] != exp {
			t.Errorf("backoff[%d]: expected %v, got %v", i, exp, backoffs[i])
		}
	}
}

func TestTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "plain error", err: errTransient, want: true},
		{name: "permanent", err: Permanent(errTransient), want: false},
		{name: "wrapped permanent", err: fmt.Errorf("outer: %w", Permanent(errTransient)), want: false},
		{name: "cancelled", err: context.Canceled, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Transient(tt.err); got != tt.want {
				t.Errorf("Transient(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestPermanent_NilStaysNil(t *testing.T) {
	if err := Permanent(nil); err != nil {
		t.Errorf("Permanent(nil) = %v, want nil", err)
	}
}

func TestDoVoid_RetriesAndSucceeds(t *testing.T) {
	calls := 0
	err := DoVoid(context.Background(), fastConfig(3), isTransient, nil, func(context.Context) error {
		calls++
		if calls < 2 {
			return errTransient
		}
		return nil
	})

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 2 {
		t.Errorf("expected 2 calls, got %d", calls)
	}
}
