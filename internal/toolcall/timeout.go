package toolcall

import (
	"context"
	"fmt"
	"time"
)

// WithTimeout runs fn with a deadline and always returns a Result — it never
// panics and never blocks longer than timeout (plus scheduling slack).
//
// fn receives a context derived from ctx that is cancelled when the timeout
// fires, so an in-flight HTTP call inside fn is aborted rather than
// abandoned. The caller's own cancellation (ctx) propagates through the same
// derived context, and the two sources cancel independently: whichever fires
// first wins.
//
// A panic inside fn is recovered and converted to a failed Result rather
// than propagated.
func WithTimeout[T any](ctx context.Context, timeout time.Duration, fn func(ctx context.Context) Result[T]) Result[T] {
	tctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan Result[T], 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- Fail[T](&ToolError{
					Code:      CodeToolExecutionFailed,
					Message:   fmt.Sprintf("panic during tool call: %v", r),
					Retryable: true,
				})
			}
		}()
		done <- fn(tctx)
	}()

	select {
	case res := <-done:
		return res
	case <-tctx.Done():
		if err := ctx.Err(); err != nil {
			// The caller's context fired, not the timer: the whole turn was
			// cancelled or hit an outer deadline.
			return Fail[T](&ToolError{
				Code:      CodeToolExecutionFailed,
				Message:   fmt.Sprintf("tool call aborted: %v", err),
				Retryable: true,
			})
		}
		return Fail[T](&ToolError{
			Code:      CodeToolExecutionFailed,
			Message:   fmt.Sprintf("Timeout after %dms", timeout.Milliseconds()),
			Retryable: true,
		})
	}
}
