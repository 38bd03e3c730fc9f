package toolcall

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrorCode is the closed taxonomy of tool-layer failures. Every failure
// surfaced by the pipeline carries exactly one of these codes.
type ErrorCode string

const (
	// CodeToolNotFound means the requested tool is neither a static tool nor
	// a registered MCP tool.
	CodeToolNotFound ErrorCode = "TOOL_NOT_FOUND"

	// CodeToolInvalidInput means the arguments were rejected before or by
	// the tool (client-class HTTP failures map here too).
	CodeToolInvalidInput ErrorCode = "TOOL_INVALID_INPUT"

	// CodeToolUnavailable means the tool's backend cannot be reached or
	// refuses access.
	CodeToolUnavailable ErrorCode = "TOOL_UNAVAILABLE"

	// CodeToolExecutionFailed means the tool was reached but the call failed
	// (timeouts, protocol errors, and semantic tool errors map here).
	CodeToolExecutionFailed ErrorCode = "TOOL_EXECUTION_FAILED"

	// CodeRateLimited means the backend signalled throttling.
	CodeRateLimited ErrorCode = "RATE_LIMITED"

	// CodeMCPConnectionFailed means a network-level failure talking to an
	// MCP server (connection refused, DNS failure, reset).
	CodeMCPConnectionFailed ErrorCode = "MCP_CONNECTION_FAILED"
)

// ToolError is a classified tool-layer failure.
//
// Retryable is advisory to the retry wrapper, not binding: auth-class
// failures are never retried regardless of the flag.
type ToolError struct {
	Code      ErrorCode
	Message   string
	Retryable bool
}

// Error implements the error interface so a ToolError can travel through
// code that speaks native Go errors (errgroup, fmt wrapping) and be
// recovered intact via errors.As.
func (e *ToolError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewError constructs a ToolError.
func NewError(code ErrorCode, message string, retryable bool) *ToolError {
	return &ToolError{Code: code, Message: message, Retryable: retryable}
}

// PayloadError converts a semantically failed MCP call result (a transport
// success whose payload carries isError=true) into a ToolError. text is the
// joined text content of the payload.
func PayloadError(text string) *ToolError {
	if text == "" {
		text = "tool reported an error with no message"
	}
	return &ToolError{Code: CodeToolExecutionFailed, Message: text, Retryable: false}
}

// Classify converts an arbitrary Go error into a ToolError. It is total:
// any non-nil error yields a classified result. A *ToolError anywhere in the
// chain is returned unchanged.
//
// Classification is message-driven by design — upstream failures arrive as
// free text from many sources, and the original system matched substrings
// the same way. Precedence, most to least specific:
//
//  1. rate limiting ("429", "rate limit")
//  2. timeouts and aborts (context errors, "timeout", "aborted")
//  3. network failures ("connection refused", DNS, resets)
//  4. auth failures ("401", "403")
//  5. client errors ("400", "404")
//  6. fallback: execution failure, retryable only when the message
//     suggests a transient condition
func Classify(err error) *ToolError {
	if err == nil {
		return nil
	}

	var te *ToolError
	if errors.As(err, &te) {
		return te
	}

	msg := err.Error()
	lower := strings.ToLower(msg)

	switch {
	case strings.Contains(msg, "429") || strings.Contains(lower, "rate limit"):
		return &ToolError{Code: CodeRateLimited, Message: msg, Retryable: true}

	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) ||
		strings.Contains(lower, "timeout") || strings.Contains(lower, "timed out") ||
		strings.Contains(lower, "aborted") || strings.Contains(lower, "canceled"):
		return &ToolError{Code: CodeToolExecutionFailed, Message: msg, Retryable: true}

	case strings.Contains(lower, "connection refused") || strings.Contains(lower, "connection reset") ||
		strings.Contains(lower, "no such host") || strings.Contains(lower, "dns") ||
		strings.Contains(lower, "dial tcp") || strings.Contains(lower, "broken pipe"):
		return &ToolError{Code: CodeMCPConnectionFailed, Message: msg, Retryable: true}

	case strings.Contains(msg, "401") || strings.Contains(msg, "403"):
		return &ToolError{Code: CodeToolUnavailable, Message: msg, Retryable: false}

	case strings.Contains(msg, "400") || strings.Contains(msg, "404"):
		return &ToolError{Code: CodeToolInvalidInput, Message: msg, Retryable: false}

	default:
		return &ToolError{
			Code:      CodeToolExecutionFailed,
			Message:   msg,
			Retryable: looksTransient(lower),
		}
	}
}

// looksTransient is the generic retryability probe for unclassified
// failures.
func looksTransient(lower string) bool {
	return strings.Contains(lower, "unavailab") ||
		strings.Contains(lower, "temporar") ||
		strings.Contains(lower, "try again") ||
		strings.Contains(lower, "overloaded")
}

// FormatErrorForClaude renders a short, tool-name-qualified advisory
// sentence for the calling model. The model never sees stack traces or raw
// HTTP statuses — only enough signal to decide whether to retry, rephrase,
// or give up.
func FormatErrorForClaude(toolName string, err *ToolError) string {
	if err == nil {
		return ""
	}
	switch err.Code {
	case CodeToolNotFound:
		return fmt.Sprintf("The `%s` tool is not available. Please choose a different tool.", toolName)
	case CodeToolInvalidInput:
		return fmt.Sprintf("The `%s` tool rejected the input it was given. Please adjust the arguments and try again.", toolName)
	case CodeToolUnavailable:
		return fmt.Sprintf("The `%s` tool cannot be used right now. It may help to try a different approach.", toolName)
	case CodeRateLimited:
		return fmt.Sprintf("The `%s` tool is rate limited right now. Please wait a bit and try again.", toolName)
	case CodeMCPConnectionFailed:
		return fmt.Sprintf("The server providing the `%s` tool could not be contacted. Other tools may still work.", toolName)
	default:
		msg := err.Message
		if msg == "" {
			msg = "an unknown problem"
		}
		return fmt.Sprintf("The `%s` tool ran into a problem: %s", toolName, msg)
	}
}
