// ABOUTME: Retry policy for provider calls: exponential backoff with full jitter.
// ABOUTME: Honors server-provided retry-after hints and context cancellation.

package llm

import (
	"context"
	"math/rand"
	"time"
)

// RetryPolicy controls how failed provider calls are retried.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// DefaultRetryPolicy returns the standard policy: 3 attempts, 500ms base, 10s cap.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    10 * time.Second,
	}
}

// delay computes the backoff before the given retry attempt (0-based),
// using full jitter over the exponential window.
func (p RetryPolicy) delay(attempt int) time.Duration {
	backoff := p.BaseDelay << uint(attempt)
	if backoff > p.MaxDelay || backoff <= 0 {
		backoff = p.MaxDelay
	}
	return time.Duration(rand.Int63n(int64(backoff) + 1))
}

// Do runs fn with retries. Non-retryable errors return immediately. A
// RetryAfter hint from the server overrides the computed backoff.
func (p RetryPolicy) Do(ctx context.Context, fn func() error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		err = fn()
		if err == nil {
			return nil
		}
		if !IsRetryable(err) || attempt == attempts-1 {
			return err
		}

		wait := p.delay(attempt)
		if hint, ok := RetryAfterHint(err); ok {
			wait = hint
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
	return err
}
