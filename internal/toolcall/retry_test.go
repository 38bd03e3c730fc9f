package toolcall

import (
	"context"
	"testing"
	"time"
)

// fakeSleep records requested delays without actually sleeping.
func fakeSleep(delays *[]time.Duration) func(context.Context, time.Duration) error {
	return func(_ context.Context, d time.Duration) error {
		*delays = append(*delays, d)
		return nil
	}
}

// TestRetrySucceedsFirstAttempt verifies that no backoff happens on success.
func TestRetrySucceedsFirstAttempt(t *testing.T) {
	t.Parallel()

	var delays []time.Duration
	calls := 0
	res := WithRetry(context.Background(), RetryOptions{MaxAttempts: 3, sleep: fakeSleep(&delays)},
		func(ctx context.Context) Result[string] {
			calls++
			return OK("ok")
		})

	if !res.Success() || res.Data != "ok" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
	if len(delays) != 0 {
		t.Errorf("slept %v, want no sleeps", delays)
	}
}

// TestRetryExponentialSchedule verifies the 1s/2s schedule for a 3-attempt
// budget with a generic retryable failure.
func TestRetryExponentialSchedule(t *testing.T) {
	t.Parallel()

	var delays []time.Duration
	calls := 0
	res := WithRetry(context.Background(), RetryOptions{MaxAttempts: 3, sleep: fakeSleep(&delays)},
		func(ctx context.Context) Result[string] {
			calls++
			return Fail[string](NewError(CodeToolExecutionFailed, "flaky backend", true))
		})

	if res.Success() {
		t.Fatal("expected exhaustion failure")
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
	want := []time.Duration{time.Second, 2 * time.Second}
	if len(delays) != len(want) {
		t.Fatalf("delays = %v, want %v", delays, want)
	}
	for i := range want {
		if delays[i] != want[i] {
			t.Errorf("delays[%d] = %v, want %v", i, delays[i], want[i])
		}
	}
}

// TestRetryRateLimitedFlatDelay verifies the flat 30s backoff for
// RATE_LIMITED failures.
func TestRetryRateLimitedFlatDelay(t *testing.T) {
	t.Parallel()

	var delays []time.Duration
	calls := 0
	res := WithRetry(context.Background(), RetryOptions{MaxAttempts: 2, sleep: fakeSleep(&delays)},
		func(ctx context.Context) Result[string] {
			calls++
			return Fail[string](NewError(CodeRateLimited, "too many requests", true))
		})

	if res.Success() {
		t.Fatal("expected failure after exhaustion")
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2 (retried exactly once)", calls)
	}
	if len(delays) != 1 || delays[0] != 30*time.Second {
		t.Errorf("delays = %v, want exactly one 30s delay", delays)
	}
}

// TestRetryNonRetryableFlag verifies that Retryable=false stops retries.
func TestRetryNonRetryableFlag(t *testing.T) {
	t.Parallel()

	var delays []time.Duration
	calls := 0
	WithRetry(context.Background(), RetryOptions{MaxAttempts: 3, sleep: fakeSleep(&delays)},
		func(ctx context.Context) Result[int] {
			calls++
			return Fail[int](NewError(CodeToolInvalidInput, "bad arguments", false))
		})

	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

// TestRetryAuthClassNeverRetried verifies the message heuristic: a "401"
// failure is not retried even when flagged retryable upstream.
func TestRetryAuthClassNeverRetried(t *testing.T) {
	t.Parallel()

	var delays []time.Duration
	calls := 0
	res := WithRetry(context.Background(), RetryOptions{MaxAttempts: 3, sleep: fakeSleep(&delays)},
		func(ctx context.Context) Result[int] {
			calls++
			return Fail[int](NewError(CodeToolExecutionFailed, "upstream replied 401", true))
		})

	if calls != 1 {
		t.Errorf("calls = %d, want 1 — auth-class failures must not be retried", calls)
	}
	if res.Err == nil || res.Err.Message != "upstream replied 401" {
		t.Errorf("last failure not surfaced: %+v", res.Err)
	}
}

// TestRetryPanicTreatedAsFailure verifies that a panicking fn is caught and
// retried as a generic retryable failure, regardless of what the panic
// message looks like.
func TestRetryPanicTreatedAsFailure(t *testing.T) {
	t.Parallel()

	var delays []time.Duration
	calls := 0
	res := WithRetry(context.Background(), RetryOptions{MaxAttempts: 2, sleep: fakeSleep(&delays)},
		func(ctx context.Context) Result[string] {
			calls++
			if calls == 1 {
				panic("boom")
			}
			return OK("recovered")
		})

	if !res.Success() || res.Data != "recovered" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}

// TestRetryPanicExhaustion verifies the shape of the failure surfaced when
// every attempt panics.
func TestRetryPanicExhaustion(t *testing.T) {
	t.Parallel()

	var delays []time.Duration
	calls := 0
	res := WithRetry(context.Background(), RetryOptions{MaxAttempts: 2, sleep: fakeSleep(&delays)},
		func(ctx context.Context) Result[string] {
			calls++
			panic("nil pointer somewhere")
		})

	if res.Success() {
		t.Fatal("expected failure")
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
	if res.Err.Code != CodeToolExecutionFailed || !res.Err.Retryable {
		t.Errorf("panic failure = %+v, want retryable TOOL_EXECUTION_FAILED", res.Err)
	}
}

// TestRetryPanicAuthClassNotRetried verifies that the 4xx message heuristic
// still applies to panic-derived failures.
func TestRetryPanicAuthClassNotRetried(t *testing.T) {
	t.Parallel()

	var delays []time.Duration
	calls := 0
	WithRetry(context.Background(), RetryOptions{MaxAttempts: 3, sleep: fakeSleep(&delays)},
		func(ctx context.Context) Result[string] {
			calls++
			panic("upstream replied 403")
		})

	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

// TestRetryOnRetryCallback verifies that the observability callback fires
// with the failing attempt number and delay.
func TestRetryOnRetryCallback(t *testing.T) {
	t.Parallel()

	type retryEvent struct {
		attempt int
		delay   time.Duration
	}
	var events []retryEvent
	var delays []time.Duration

	WithRetry(context.Background(), RetryOptions{
		MaxAttempts: 3,
		sleep:       fakeSleep(&delays),
		OnRetry: func(attempt int, err *ToolError, delay time.Duration) {
			events = append(events, retryEvent{attempt, delay})
		},
	}, func(ctx context.Context) Result[int] {
		return Fail[int](NewError(CodeToolExecutionFailed, "flaky", true))
	})

	if len(events) != 2 {
		t.Fatalf("OnRetry fired %d times, want 2", len(events))
	}
	if events[0].attempt != 1 || events[1].attempt != 2 {
		t.Errorf("attempt numbers = %+v", events)
	}
}

// TestRetryCancelledDuringBackoff verifies that cancelling the context mid
// backoff surfaces the last failure immediately.
func TestRetryCancelledDuringBackoff(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	res := WithRetry(ctx, RetryOptions{MaxAttempts: 3},
		func(ctx context.Context) Result[int] {
			return Fail[int](NewError(CodeToolExecutionFailed, "flaky", true))
		})

	if res.Success() {
		t.Fatal("expected failure")
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("took %v, cancelled backoff should return immediately", elapsed)
	}
	if res.Err.Message != "flaky" {
		t.Errorf("last failure not surfaced: %+v", res.Err)
	}
}
