package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sidart10/orion-toolcore/internal/toolcall"
)

const (
	// defaultConnectionTimeout bounds TCP connect + TLS handshake.
	defaultConnectionTimeout = 5 * time.Second

	// defaultRequestTimeout bounds the whole exchange: connect, request,
	// and full response body.
	defaultRequestTimeout = 30 * time.Second

	// maxErrorBodyBytes caps how much of an error response body is quoted
	// in messages.
	maxErrorBodyBytes = 512
)

// ClientConfig holds the connection parameters for one MCP server.
type ClientConfig struct {
	// ServerName identifies the server in logs and error messages.
	ServerName string

	// URL is the JSON-RPC endpoint.
	URL string

	// BearerToken, when non-empty, is sent as an Authorization header.
	BearerToken string

	// ConnectionTimeout bounds connection establishment. Zero means 5s.
	ConnectionTimeout time.Duration

	// RequestTimeout bounds the full request/response exchange. Zero means 30s.
	RequestTimeout time.Duration
}

// Stats is a diagnostic snapshot of a client's recent activity. Overwritten
// on every call; never consulted for control flow.
type Stats struct {
	LastSuccessAt time.Time
	LastError     string
	LastErrorAt   time.Time
	LastLatencyMs int64
}

// Client talks JSON-RPC 2.0 over HTTP POST to a single MCP server. Safe for
// concurrent use. Request ids increment monotonically per client instance.
type Client struct {
	cfg  ClientConfig
	http *http.Client

	nextID atomic.Int64

	mu    sync.Mutex
	stats Stats
}

// NewClient returns a Client for the given server. Missing timeouts are
// filled with defaults.
func NewClient(cfg ClientConfig) *Client {
	if cfg.ConnectionTimeout <= 0 {
		cfg.ConnectionTimeout = defaultConnectionTimeout
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}
	return &Client{
		cfg: cfg,
		http: &http.Client{
			// The per-request context carries the request timeout; the
			// transport only bounds connection establishment.
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: cfg.ConnectionTimeout,
				}).DialContext,
				TLSHandshakeTimeout: cfg.ConnectionTimeout,
			},
		},
	}
}

// Stats returns a copy of the client's diagnostic state.
func (c *Client) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// ListTools fetches the server's tool catalogue via tools/list.
func (c *Client) ListTools(ctx context.Context) toolcall.Result[[]Tool] {
	raw, terr := c.post(ctx, "tools/list", struct{}{})
	if terr != nil {
		return toolcall.Fail[[]Tool](terr)
	}

	var res listToolsResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return toolcall.Fail[[]Tool](c.recordFailure(&toolcall.ToolError{
			Code:      toolcall.CodeToolExecutionFailed,
			Message:   fmt.Sprintf("server %q returned a malformed tools/list result: %v", c.cfg.ServerName, err),
			Retryable: false,
		}))
	}
	return toolcall.OK(res.Tools)
}

// CallTool invokes the named tool via tools/call. A result with
// IsError=true is still a transport success — the caller decides what a
// semantic tool failure means.
func (c *Client) CallTool(ctx context.Context, name string, args map[string]any) toolcall.Result[*CallResult] {
	if args == nil {
		args = map[string]any{}
	}
	raw, terr := c.post(ctx, "tools/call", callToolParams{Name: name, Arguments: args})
	if terr != nil {
		return toolcall.Fail[*CallResult](terr)
	}

	var res CallResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return toolcall.Fail[*CallResult](c.recordFailure(&toolcall.ToolError{
			Code:      toolcall.CodeToolExecutionFailed,
			Message:   fmt.Sprintf("server %q returned a malformed tools/call result: %v", c.cfg.ServerName, err),
			Retryable: false,
		}))
	}
	return toolcall.OK(&res)
}

// post sends one JSON-RPC request and returns the raw result field.
// Response handling precedence: transport abort/timeout, non-2xx status,
// unparseable body, JSON-RPC error object, missing result.
func (c *Client) post(ctx context.Context, method string, params any) (json.RawMessage, *toolcall.ToolError) {
	envelope := rpcRequest{
		Jsonrpc: "2.0",
		ID:      c.nextID.Add(1),
		Method:  method,
		Params:  params,
	}
	body, err := json.Marshal(envelope)
	if err != nil {
		return nil, c.recordFailure(&toolcall.ToolError{
			Code:      toolcall.CodeToolExecutionFailed,
			Message:   fmt.Sprintf("cannot encode %s request for server %q: %v", method, c.cfg.ServerName, err),
			Retryable: false,
		})
	}

	// The request context composes the caller's cancellation with this
	// client's own request timeout; either source aborts the in-flight call.
	reqCtx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return nil, c.recordFailure(&toolcall.ToolError{
			Code:      toolcall.CodeToolUnavailable,
			Message:   fmt.Sprintf("cannot build request for server %q: %v", c.cfg.ServerName, err),
			Retryable: false,
		})
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.cfg.BearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.BearerToken)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		elapsed := time.Since(start)
		if reqCtx.Err() != nil || isTimeout(err) {
			return nil, c.recordFailure(&toolcall.ToolError{
				Code:      toolcall.CodeToolUnavailable,
				Message:   fmt.Sprintf("request to server %q aborted after %dms: %v", c.cfg.ServerName, elapsed.Milliseconds(), err),
				Retryable: true,
			})
		}
		// Connection refused, DNS failure, resets: the server is
		// unreachable rather than broken.
		return nil, c.recordFailure(&toolcall.ToolError{
			Code:      toolcall.CodeToolUnavailable,
			Message:   fmt.Sprintf("cannot reach server %q: %v", c.cfg.ServerName, err),
			Retryable: true,
		})
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, c.recordFailure(&toolcall.ToolError{
			Code:      toolcall.CodeToolUnavailable,
			Message:   fmt.Sprintf("reading response from server %q: %v", c.cfg.ServerName, err),
			Retryable: true,
		})
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, c.recordFailure(&toolcall.ToolError{
			Code:      toolcall.CodeToolExecutionFailed,
			Message:   fmt.Sprintf("server %q returned HTTP %d: %s", c.cfg.ServerName, resp.StatusCode, truncate(respBody)),
			Retryable: resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests,
		})
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(respBody, &rpcResp); err != nil {
		return nil, c.recordFailure(&toolcall.ToolError{
			Code:      toolcall.CodeToolExecutionFailed,
			Message:   fmt.Sprintf("server %q returned a non-JSON response: %v", c.cfg.ServerName, err),
			Retryable: false,
		})
	}
	if rpcResp.Error != nil {
		return nil, c.recordFailure(&toolcall.ToolError{
			Code:      toolcall.CodeToolExecutionFailed,
			Message:   fmt.Sprintf("server %q returned JSON-RPC error %d: %s", c.cfg.ServerName, rpcResp.Error.Code, rpcResp.Error.Message),
			Retryable: false,
		})
	}
	if len(rpcResp.Result) == 0 || string(rpcResp.Result) == "null" {
		return nil, c.recordFailure(&toolcall.ToolError{
			Code:      toolcall.CodeToolExecutionFailed,
			Message:   fmt.Sprintf("server %q response is missing result field", c.cfg.ServerName),
			Retryable: false,
		})
	}

	c.recordSuccess(time.Since(start))
	return rpcResp.Result, nil
}

// recordSuccess updates diagnostic state after a successful exchange.
func (c *Client) recordSuccess(latency time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats.LastSuccessAt = time.Now()
	c.stats.LastLatencyMs = latency.Milliseconds()
}

// recordFailure updates diagnostic state and returns the error for chaining.
func (c *Client) recordFailure(terr *toolcall.ToolError) *toolcall.ToolError {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats.LastError = terr.Message
	c.stats.LastErrorAt = time.Now()
	return terr
}

// isTimeout reports whether err is a network-level timeout.
func isTimeout(err error) bool {
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}

// truncate renders up to maxErrorBodyBytes of a response body for messages.
func truncate(body []byte) string {
	if len(body) > maxErrorBodyBytes {
		return string(body[:maxErrorBodyBytes]) + "…"
	}
	return string(body)
}
