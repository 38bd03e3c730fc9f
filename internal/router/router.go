// Package router dispatches a tool call by name to its implementation:
// a static in-process handler or a tool on a remote MCP server.
//
// The router never panics and never returns a bare error — every outcome is
// a [toolcall.Result]. It also feeds the health tracker: connection-class
// failures mark the owning server unavailable, successes mark it back.
package router

import (
	"context"
	"fmt"

	"github.com/sidart10/orion-toolcore/internal/health"
	"github.com/sidart10/orion-toolcore/internal/mcp"
	"github.com/sidart10/orion-toolcore/internal/registry"
	"github.com/sidart10/orion-toolcore/internal/toolcall"
)

// ToolCaller is the slice of the MCP client that routing needs.
type ToolCaller interface {
	CallTool(ctx context.Context, name string, args map[string]any) toolcall.Result[*mcp.CallResult]
}

// LookupFunc resolves a server name to its client.
type LookupFunc func(serverName string) (ToolCaller, bool)

// PoolLookup adapts an [mcp.Pool] into a LookupFunc.
func PoolLookup(pool *mcp.Pool) LookupFunc {
	return func(serverName string) (ToolCaller, bool) {
		c, ok := pool.Get(serverName)
		if !ok {
			return nil, false
		}
		return c, true
	}
}

// Request is one tool invocation.
type Request struct {
	// ToolName is the name as the model sees it: a bare static name or a
	// server-prefixed MCP name.
	ToolName string

	// Args is the decoded argument object. May be nil.
	Args map[string]any
}

// Router resolves tool names against the registry and dispatches calls.
type Router struct {
	registry *registry.Registry
	tracker  *health.Tracker
	lookup   LookupFunc
}

// New creates a Router.
func New(reg *registry.Registry, tracker *health.Tracker, lookup LookupFunc) *Router {
	return &Router{registry: reg, tracker: tracker, lookup: lookup}
}

// Route executes one tool call. The Data of a successful result is either a
// *mcp.CallResult (MCP tools) or the static handler's return value.
//
// A transport success whose payload reports isError is converted to a
// TOOL_EXECUTION_FAILED result here; the server was healthy, the tool was
// not.
func (r *Router) Route(ctx context.Context, req Request) toolcall.Result[any] {
	if st, ok := r.registry.StaticTool(req.ToolName); ok {
		return r.callStatic(ctx, st, req.Args)
	}
	if rt, ok := r.registry.McpTool(req.ToolName); ok {
		return r.callMcp(ctx, rt, req.Args)
	}
	return toolcall.Fail[any](toolcall.NewError(toolcall.CodeToolNotFound,
		fmt.Sprintf("unknown tool %q", req.ToolName), false))
}

func (r *Router) callMcp(ctx context.Context, rt registry.RegisteredTool, args map[string]any) toolcall.Result[any] {
	caller, ok := r.lookup(rt.ServerName)
	if !ok {
		err := toolcall.NewError(toolcall.CodeToolUnavailable,
			fmt.Sprintf("no client configured for server %q", rt.ServerName), false)
		r.tracker.MarkServerUnavailable(rt.ServerName, err)
		return toolcall.Fail[any](err)
	}

	res := caller.CallTool(ctx, rt.OriginalName, args)
	if !res.Success() {
		switch res.Err.Code {
		case toolcall.CodeToolUnavailable, toolcall.CodeMCPConnectionFailed:
			r.tracker.MarkServerUnavailable(rt.ServerName, res.Err)
		}
		return toolcall.Fail[any](res.Err)
	}

	// The server answered, so it is healthy even if the tool itself failed.
	r.tracker.MarkServerAvailable(rt.ServerName)

	if res.Data != nil && res.Data.IsError {
		return toolcall.Fail[any](toolcall.PayloadError(res.Data.JoinText()))
	}
	return toolcall.OK[any](res.Data)
}

func (r *Router) callStatic(ctx context.Context, st registry.StaticTool, args map[string]any) (res toolcall.Result[any]) {
	if err := st.ValidateArgs(args); err != nil {
		return toolcall.Fail[any](toolcall.NewError(toolcall.CodeToolInvalidInput,
			fmt.Sprintf("invalid arguments for %s: %v", st.Name, err), false))
	}

	defer func() {
		if p := recover(); p != nil {
			res = toolcall.Fail[any](toolcall.Classify(
				fmt.Errorf("tool %s panicked: %v", st.Name, p)))
		}
	}()

	out, err := st.Handler(ctx, args)
	if err != nil {
		return toolcall.Fail[any](toolcall.Classify(err))
	}
	return toolcall.OK(out)
}
