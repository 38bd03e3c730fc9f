// Package executor is the top of the tool pipeline: it wraps a routed tool
// call in timeout, retry, tracing, and metrics, and renders the outcome as
// the text payload handed back to the model.
//
// Execute never panics and never returns an error value. Every call, no
// matter how it fails, produces an [Outcome] whose Content is safe to place
// in a tool_result block.
package executor

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/sidart10/orion-toolcore/internal/mcp"
	"github.com/sidart10/orion-toolcore/internal/observe"
	"github.com/sidart10/orion-toolcore/internal/router"
	"github.com/sidart10/orion-toolcore/internal/toolcall"
)

// Dispatcher is the slice of the router that execution needs.
type Dispatcher interface {
	Route(ctx context.Context, req router.Request) toolcall.Result[any]
}

// Options holds the default execution limits, typically taken from config.
type Options struct {
	// Timeout bounds one attempt. Values <= 0 default to 30s.
	Timeout time.Duration

	// MaxAttempts is the total attempt budget including the first call.
	// Values < 1 default to 3.
	MaxAttempts int
}

// Request is one tool execution.
type Request struct {
	// ToolName is the name as the model sees it.
	ToolName string

	// ToolUseID identifies the tool_use block this execution answers. Echoed
	// in the Outcome so the agent loop can pair the result with its request.
	ToolUseID string

	// Args is the decoded argument object. May be nil.
	Args map[string]any

	// TraceID correlates this execution with the surrounding conversation
	// turn. Generated when empty.
	TraceID string

	// Timeout and MaxAttempts override the executor defaults when set.
	Timeout     time.Duration
	MaxAttempts int
}

// Outcome is the terminal result of one execution.
type Outcome struct {
	// Content is the rendered payload on success, or an advisory sentence
	// for the model on failure.
	Content string

	// IsError marks Content as an error message.
	IsError bool

	// Code is the failure classification; empty on success.
	Code toolcall.ErrorCode

	// ToolUseID echoes the request's tool_use block id.
	ToolUseID string

	// TraceID is the correlation id used for this execution.
	TraceID string

	// Attempts is how many tries were made.
	Attempts int

	// Duration covers all attempts including backoff sleeps.
	Duration time.Duration
}

// Executor executes tool calls through a Dispatcher.
type Executor struct {
	dispatch Dispatcher
	metrics  *observe.Metrics
	defaults Options
}

// New creates an Executor. metrics may be nil in tests.
func New(dispatch Dispatcher, metrics *observe.Metrics, defaults Options) *Executor {
	return &Executor{dispatch: dispatch, metrics: metrics, defaults: defaults}
}

// Execute runs one tool call under the configured timeout and retry policy.
func (e *Executor) Execute(ctx context.Context, req Request) (out Outcome) {
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = e.defaults.Timeout
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	maxAttempts := req.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = e.defaults.MaxAttempts
	}
	if maxAttempts < 1 {
		maxAttempts = 3
	}

	traceID := req.TraceID
	if traceID == "" {
		traceID = uuid.NewString()
	}
	out = Outcome{ToolUseID: req.ToolUseID, TraceID: traceID, Attempts: 1}
	start := time.Now()

	// Last line of defense. Anything below already recovers its own panics;
	// this catches mistakes in the executor itself.
	defer func() {
		if p := recover(); p != nil {
			terr := toolcall.Classify(fmt.Errorf("panic during tool execution: %v", p))
			out.IsError = true
			out.Code = terr.Code
			out.Content = toolcall.FormatErrorForClaude(req.ToolName, terr)
			out.Duration = time.Since(start)
		}
	}()

	ctx, span := observe.StartSpan(ctx, "tool.execute",
		trace.WithAttributes(
			observe.Attr("tool.name", req.ToolName),
			observe.Attr("tool.use_id", req.ToolUseID),
			observe.Attr("trace.correlation_id", traceID),
		))
	defer span.End()

	log := observe.Logger(ctx).With(
		"tool", req.ToolName, "tool_use_id", req.ToolUseID, "trace_id", traceID)
	log.Info("executing tool", "timeout", timeout, "max_attempts", maxAttempts)

	res := toolcall.WithRetry(ctx, toolcall.RetryOptions{
		MaxAttempts: maxAttempts,
		OnRetry: func(attempt int, err *toolcall.ToolError, delay time.Duration) {
			out.Attempts = attempt + 1
			log.Warn("tool call failed; retrying",
				"attempt", attempt, "code", err.Code, "err", err.Message, "delay", delay)
			if e.metrics != nil {
				e.metrics.RecordRetry(ctx, req.ToolName)
			}
		},
	}, func(ctx context.Context) toolcall.Result[any] {
		return toolcall.WithTimeout(ctx, timeout, func(ctx context.Context) toolcall.Result[any] {
			return e.dispatch.Route(ctx, router.Request{ToolName: req.ToolName, Args: req.Args})
		})
	})

	out.Duration = time.Since(start)

	status := "ok"
	if !res.Success() {
		status = "error"
		out.IsError = true
		out.Code = res.Err.Code
		out.Content = toolcall.FormatErrorForClaude(req.ToolName, res.Err)
		log.Warn("tool execution failed",
			"code", res.Err.Code, "err", res.Err.Message,
			"attempts", out.Attempts, "duration", out.Duration)
	} else {
		out.Content = renderPayload(res.Data)
		log.Info("tool execution complete",
			"attempts", out.Attempts, "duration", out.Duration)
	}

	span.SetAttributes(
		observe.Attr("tool.status", status),
		observe.Attr("tool.error_code", string(out.Code)),
	)
	if e.metrics != nil {
		e.metrics.RecordToolCall(ctx, req.ToolName, status, string(out.Code))
		e.metrics.ToolExecutionDuration.Record(ctx, out.Duration.Seconds())
	}
	return out
}

// renderPayload turns a routed result's data into the text handed to the
// model. MCP payloads prefer their joined text blocks; everything else is
// JSON-encoded.
func renderPayload(data any) string {
	switch v := data.(type) {
	case nil:
		return ""
	case *mcp.CallResult:
		if v == nil {
			return ""
		}
		if v.HasText() {
			return v.JoinText()
		}
		b, err := json.Marshal(v.Content)
		if err != nil {
			return fmt.Sprintf("%v", v.Content)
		}
		return string(b)
	case string:
		return v
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(b)
	}
}
