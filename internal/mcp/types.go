// Package mcp implements the client side of the Model Context Protocol for
// a single remote tool server: JSON-RPC 2.0 over HTTP POST, tool listing,
// tool invocation, and conversion of remote tool schemas into Claude's
// native tool format.
//
// One [Client] is constructed per configured server. Clients hold only
// connection parameters — there is no persistent socket; every call is an
// independent request/response exchange.
package mcp

import (
	"encoding/json"
	"strings"
)

// Tool is a remote tool descriptor as returned by a server's tools/list.
// Immutable once received.
type Tool struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	InputSchema map[string]any `json:"inputSchema,omitempty"`
}

// ContentBlock is one element of a tools/call result payload.
type ContentBlock struct {
	Type     string `json:"type"` // "text", "image", or "resource"
	Text     string `json:"text,omitempty"`
	Data     string `json:"data,omitempty"`
	MimeType string `json:"mimeType,omitempty"`
	URI      string `json:"uri,omitempty"`
}

// CallResult is the payload of a tools/call response. IsError marks a
// semantic tool failure delivered over a successful transport — callers must
// inspect it rather than trust the HTTP status alone.
type CallResult struct {
	Content []ContentBlock `json:"content"`
	IsError bool           `json:"isError,omitempty"`
}

// JoinText concatenates the text of all text blocks, newline-separated.
// Non-text blocks are skipped.
func (r *CallResult) JoinText() string {
	var parts []string
	for _, c := range r.Content {
		if c.Type == "text" && c.Text != "" {
			parts = append(parts, c.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// HasText reports whether the result carries at least one non-empty text block.
func (r *CallResult) HasText() bool {
	for _, c := range r.Content {
		if c.Type == "text" && c.Text != "" {
			return true
		}
	}
	return false
}

// listToolsResult is the result payload of tools/list.
type listToolsResult struct {
	Tools []Tool `json:"tools"`
}

// callToolParams is the params payload of tools/call.
type callToolParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// rpcRequest is a JSON-RPC 2.0 request envelope.
type rpcRequest struct {
	Jsonrpc string `json:"jsonrpc"`
	ID      int64  `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
}

// rpcResponse is a JSON-RPC 2.0 response envelope. Exactly one of Result
// and Error is expected to be present.
type rpcResponse struct {
	Jsonrpc string          `json:"jsonrpc"`
	ID      int64           `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *rpcError       `json:"error"`
}

// rpcError is the JSON-RPC 2.0 error object.
type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}
