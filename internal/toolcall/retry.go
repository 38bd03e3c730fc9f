package toolcall

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// rateLimitDelay is the flat backoff applied when a backend signals
// throttling. Exponential backoff would re-hit the limiter too early.
const rateLimitDelay = 30 * time.Second

// RetryOptions configures WithRetry.
type RetryOptions struct {
	// MaxAttempts is the total attempt budget including the first call.
	// Values < 1 default to 3.
	MaxAttempts int

	// OnRetry, when non-nil, is invoked before each backoff sleep with the
	// attempt number that just failed, its error, and the chosen delay.
	OnRetry func(attempt int, err *ToolError, delay time.Duration)

	// sleep is a test seam; nil means a real context-aware sleep.
	sleep func(ctx context.Context, d time.Duration) error
}

// WithRetry runs fn up to MaxAttempts times, sleeping between attempts
// according to the failure classification. It returns the first success or
// the last failure; it never panics.
//
// A failure is not retried when its Retryable flag is false or when the
// retry predicate rules it out (see shouldRetry). Backoff is a flat 30s for
// rate limiting and 1s/2s/4s/… exponential otherwise. Sleeps observe ctx,
// so cancelling the surrounding turn interrupts the backoff immediately and
// surfaces the last failure.
func WithRetry[T any](ctx context.Context, opts RetryOptions, fn func(ctx context.Context) Result[T]) Result[T] {
	maxAttempts := opts.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 3
	}
	sleep := opts.sleep
	if sleep == nil {
		sleep = sleepCtx
	}

	var last Result[T]
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		last = safeCall(ctx, fn)
		if last.Success() {
			return last
		}
		if !shouldRetry(last.Err) || attempt == maxAttempts {
			return last
		}

		delay := backoffDelay(last.Err, attempt)
		if opts.OnRetry != nil {
			opts.OnRetry(attempt, last.Err, delay)
		}
		if err := sleep(ctx, delay); err != nil {
			return last
		}
	}
	return last
}

// safeCall invokes fn, converting a panic into a generic retryable failure.
// The retry predicate still gets the final say, so a panic message carrying
// an auth-class status digit is not retried.
func safeCall[T any](ctx context.Context, fn func(ctx context.Context) Result[T]) (res Result[T]) {
	defer func() {
		if r := recover(); r != nil {
			res = Fail[T](&ToolError{
				Code:      CodeToolExecutionFailed,
				Message:   fmt.Sprintf("panic during tool call: %v", r),
				Retryable: true,
			})
		}
	}()
	return fn(ctx)
}

// shouldRetry decides whether a failure is worth another attempt.
//
// Beyond the Retryable flag it scans the message for client/auth-class
// status digits. This is a deliberately blunt heuristic — an upstream
// message containing "404" incidentally (say, inside a port number) would
// suppress a retry — kept for parity with observed backend behaviour rather
// than hardened.
func shouldRetry(err *ToolError) bool {
	if err == nil || !err.Retryable {
		return false
	}
	for _, code := range []string{"400", "401", "403", "404"} {
		if strings.Contains(err.Message, code) {
			return false
		}
	}
	return true
}

// backoffDelay returns the sleep before the attempt following the given
// failed attempt (1-based).
func backoffDelay(err *ToolError, attempt int) time.Duration {
	if err != nil && err.Code == CodeRateLimited {
		return rateLimitDelay
	}
	return time.Second * (1 << (attempt - 1))
}

// sleepCtx sleeps for d or until ctx is cancelled, whichever comes first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
