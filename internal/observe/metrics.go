// Package observe provides application-wide observability primitives:
// OpenTelemetry metrics, distributed tracing, structured logging, and HTTP
// middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can still be
// scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all metrics.
const meterName = "github.com/sidart10/orion-toolcore"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms ---

	// ToolExecutionDuration tracks end-to-end tool execution latency,
	// including retries.
	ToolExecutionDuration metric.Float64Histogram

	// DiscoveryDuration tracks the latency of one discovery pass.
	DiscoveryDuration metric.Float64Histogram

	// --- Counters ---

	// ToolCalls counts tool invocations. Use with attributes:
	//   attribute.String("tool", ...), attribute.String("status", ...), attribute.String("code", ...)
	ToolCalls metric.Int64Counter

	// ToolRetries counts retry attempts beyond the first try.
	ToolRetries metric.Int64Counter

	// DiscoveryRuns counts discovery passes by status.
	DiscoveryRuns metric.Int64Counter

	// ServerFailures counts per-server failures observed by discovery and
	// routing.
	ServerFailures metric.Int64Counter

	// --- Gauges ---

	// RegisteredTools tracks the current registry size.
	RegisteredTools metric.Int64Gauge

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) sized for
// remote tool calls: fast local tools up to long-running retried calls.
var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.ToolExecutionDuration, err = m.Float64Histogram("toolcore.tool_execution.duration",
		metric.WithDescription("End-to-end tool execution latency including retries."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.DiscoveryDuration, err = m.Float64Histogram("toolcore.discovery.duration",
		metric.WithDescription("Latency of one tool discovery pass."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.ToolCalls, err = m.Int64Counter("toolcore.tool.calls",
		metric.WithDescription("Total tool invocations by tool name, status, and error code."),
	); err != nil {
		return nil, err
	}
	if met.ToolRetries, err = m.Int64Counter("toolcore.tool.retries",
		metric.WithDescription("Total retry attempts beyond the first try, by tool name."),
	); err != nil {
		return nil, err
	}
	if met.DiscoveryRuns, err = m.Int64Counter("toolcore.discovery.runs",
		metric.WithDescription("Total discovery passes by status."),
	); err != nil {
		return nil, err
	}
	if met.ServerFailures, err = m.Int64Counter("toolcore.mcp.server_failures",
		metric.WithDescription("Total MCP server failures by server name."),
	); err != nil {
		return nil, err
	}

	// Gauges.
	if met.RegisteredTools, err = m.Int64Gauge("toolcore.tools.registered",
		metric.WithDescription("Number of tools currently registered."),
	); err != nil {
		return nil, err
	}

	// HTTP middleware histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("toolcore.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordToolCall records one tool invocation with the standard attribute
// set. code is empty for successful calls.
func (m *Metrics) RecordToolCall(ctx context.Context, tool, status, code string) {
	m.ToolCalls.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("tool", tool),
			attribute.String("status", status),
			attribute.String("code", code),
		),
	)
}

// RecordRetry records one retry attempt for a tool.
func (m *Metrics) RecordRetry(ctx context.Context, tool string) {
	m.ToolRetries.Add(ctx, 1,
		metric.WithAttributes(attribute.String("tool", tool)),
	)
}

// RecordDiscovery records one discovery pass with its duration.
func (m *Metrics) RecordDiscovery(ctx context.Context, status string, seconds float64) {
	m.DiscoveryRuns.Add(ctx, 1,
		metric.WithAttributes(attribute.String("status", status)),
	)
	m.DiscoveryDuration.Record(ctx, seconds)
}

// RecordServerFailure records one MCP server failure.
func (m *Metrics) RecordServerFailure(ctx context.Context, server string) {
	m.ServerFailures.Add(ctx, 1,
		metric.WithAttributes(attribute.String("server", server)),
	)
}

// SetRegisteredTools records the current registry size.
func (m *Metrics) SetRegisteredTools(ctx context.Context, n int) {
	m.RegisteredTools.Record(ctx, int64(n))
}
