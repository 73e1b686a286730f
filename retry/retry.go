// Package retry provides a small bounded-retry helper with optional
// exponential backoff. It replaces ad-hoc sleep loops so callers in any
// concurrency model get the same semantics.
package retry

import (
	"context"
	"fmt"
	"time"
)

// Options bounds a retry loop.
type Options struct {
	// MaxAttempts is the total number of tries, including the first.
	MaxAttempts int
	// Delay is the wait before the second attempt.
	Delay time.Duration
	// Backoff multiplies the delay after every failed attempt. Values
	// below 1 are treated as 1 (fixed delay).
	Backoff float64
	// OnRetry, if set, is called before each re-attempt with the attempt
	// number just failed (1-based) and its error.
	OnRetry func(attempt int, err error)
}

// Do runs fn until it succeeds, the attempts are exhausted, or the context
// is done. The last error is returned on exhaustion; a context error is
// returned as-is when cancellation interrupts the wait.
func Do(ctx context.Context, opts Options, fn func(ctx context.Context) error) error {
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}
	backoff := opts.Backoff
	if backoff < 1 {
		backoff = 1
	}

	delay := opts.Delay
	var lastErr error
	for attempt := 1; attempt <= opts.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if attempt == opts.MaxAttempts {
			break
		}

		if opts.OnRetry != nil {
			opts.OnRetry(attempt, lastErr)
		}

		if delay > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
			delay = time.Duration(float64(delay) * backoff)
		}
	}

	return fmt.Errorf("after %d attempts: %w", opts.MaxAttempts, lastErr)
}
