// Package toolcall defines the result and error model shared by every layer
// of the tool-execution pipeline, plus the generic timeout and retry
// wrappers that compose around a tool invocation.
//
// The central contract is that no public entry point in the pipeline ever
// panics past its own boundary or returns a bare Go error: every outcome is
// a [Result], carrying either data or a classified [*ToolError]. Internal
// helpers still use native error propagation; the outermost boundary of
// each public function converts.
package toolcall

// Result is the outcome of a tool-layer operation: exactly one of Data or
// Err is meaningful. A nil Err means success.
type Result[T any] struct {
	// Data is the success payload. Only valid when Err is nil.
	Data T

	// Err describes the failure. Nil on success.
	Err *ToolError
}

// OK wraps data in a successful Result.
func OK[T any](data T) Result[T] {
	return Result[T]{Data: data}
}

// Fail wraps err in a failed Result.
func Fail[T any](err *ToolError) Result[T] {
	return Result[T]{Err: err}
}

// Success reports whether the result carries data rather than an error.
func (r Result[T]) Success() bool {
	return r.Err == nil
}
