// Package registry maintains the in-memory catalogue of callable tools:
// statically registered Go handlers and tools discovered from MCP servers.
//
// Naming rules: static tools live under their bare snake_case name; MCP
// tools are keyed by their server-prefixed exposed name. When an MCP tool's
// bare name collides with a static tool it is rejected at registration time
// — static tools always win naming conflicts. Tools from different servers
// cannot collide because each carries its own server prefix.
//
// All methods are safe for concurrent use. Mutation never fails: conflicts
// are logged and skipped, never fatal.
package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/sidart10/orion-toolcore/internal/mcp"
	"github.com/sidart10/orion-toolcore/pkg/claude"
)

// DiscoveryTTL is the freshness window after which a server's tool list is
// considered stale and eligible for re-discovery.
const DiscoveryTTL = 5 * time.Minute

// StaticHandler is the signature of an in-process tool implementation.
// Returning an error marks the call failed; the router normalizes it.
type StaticHandler func(ctx context.Context, args map[string]any) (any, error)

// StaticTool is a built-in tool that runs in-process, bypassing MCP
// entirely.
type StaticTool struct {
	Name    string
	Handler StaticHandler
	Schema  claude.Tool

	// compiled is the tool's input schema compiled for validation, nil when
	// the schema did not compile (validation is then skipped).
	compiled *jsonschema.Schema
}

// ValidateArgs checks args against the tool's compiled input schema.
// Returns nil when no compiled schema is available.
func (t StaticTool) ValidateArgs(args map[string]any) error {
	if t.compiled == nil {
		return nil
	}
	// Round-trip through JSON so the validator sees canonical JSON types
	// regardless of how the caller built the map.
	data, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("arguments are not JSON-encodable: %w", err)
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("arguments are not valid JSON: %w", err)
	}
	return t.compiled.Validate(doc)
}

// RegisteredTool is an MCP-sourced tool known to the registry.
type RegisteredTool struct {
	// ClaudeTool is the converted schema under the exposed (prefixed) name.
	ClaudeTool claude.Tool

	// ServerName is the owning MCP server.
	ServerName string

	// OriginalName is the tool's name on that server, used for tools/call.
	OriginalName string
}

// Registration is one candidate tool for RegisterMcpTools.
type Registration struct {
	OriginalName string
	ClaudeTool   claude.Tool
}

// cacheEntry tracks the last successful discovery for one server.
type cacheEntry struct {
	lastDiscovery time.Time
	toolCount     int
}

// Registry is the process-wide tool catalogue. Construct with New and pass
// by reference; tests build isolated instances.
type Registry struct {
	mu       sync.RWMutex
	static   map[string]StaticTool     // key: bare name
	mcpTools map[string]RegisteredTool // key: exposed name
	cache    map[string]cacheEntry     // key: server name

	ttl time.Duration
	now func() time.Time // test seam
}

// New returns an empty Registry with the default discovery TTL.
func New() *Registry {
	return &Registry{
		static:   make(map[string]StaticTool),
		mcpTools: make(map[string]RegisteredTool),
		cache:    make(map[string]cacheEntry),
		ttl:      DiscoveryTTL,
		now:      time.Now,
	}
}

// RegisterStaticTool inserts or overwrites a built-in tool under its bare
// name. The input schema is compiled for argument validation when possible;
// a schema that does not compile only disables validation, never
// registration.
func (r *Registry) RegisterStaticTool(name string, handler StaticHandler, schema claude.Tool) {
	if schema.Name == "" {
		schema.Name = name
	}
	tool := StaticTool{Name: name, Handler: handler, Schema: schema}

	if compiled, err := compileSchema(name, schema.InputSchema); err != nil {
		slog.Warn("static tool schema does not compile; argument validation disabled",
			"tool", name, "err", err)
	} else {
		tool.compiled = compiled
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.static[name] = tool
}

// RegisterMcpTools replaces serverName's tools with the given candidates:
// all previously registered tools for that server are removed first (full
// replace, never an incremental merge), then each candidate is inserted
// unless its bare name collides with a static tool. The discovery cache is
// stamped with the insertion count. Returns the number actually inserted.
//
// Replacement and insertion happen under one lock acquisition, so a
// concurrent reader sees either the full old set or the full new set for
// this server, never a mix.
func (r *Registry) RegisterMcpTools(serverName string, tools []Registration) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.removeServerToolsLocked(serverName)

	count := 0
	for _, reg := range tools {
		if _, taken := r.static[reg.OriginalName]; taken {
			slog.Warn("mcp tool name collides with a static tool; skipping",
				"server", serverName, "tool", reg.OriginalName)
			continue
		}
		exposed := mcp.ExposedName(serverName, reg.OriginalName)
		r.mcpTools[exposed] = RegisteredTool{
			ClaudeTool:   reg.ClaudeTool,
			ServerName:   serverName,
			OriginalName: reg.OriginalName,
		}
		count++
	}

	r.cache[serverName] = cacheEntry{lastDiscovery: r.now(), toolCount: count}
	return count
}

// RemoveServerTools deletes all tools owned by serverName, both when a
// server is disabled and as the first half of a replace. Returns the number
// removed.
func (r *Registry) RemoveServerTools(serverName string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.removeServerToolsLocked(serverName)
}

// removeServerToolsLocked deletes serverName's tools. Caller holds r.mu.
func (r *Registry) removeServerToolsLocked(serverName string) int {
	removed := 0
	for exposed, tool := range r.mcpTools {
		if tool.ServerName == serverName {
			delete(r.mcpTools, exposed)
			removed++
		}
	}
	return removed
}

// ToolsForClaude returns the union of static and MCP tool schemas, sorted
// lexicographically by exposed name. Two processes with identical registry
// contents produce byte-identical lists — prompt-cache stability upstream
// depends on this determinism.
func (r *Registry) ToolsForClaude() []claude.Tool {
	r.mu.RLock()
	tools := make([]claude.Tool, 0, len(r.static)+len(r.mcpTools))
	for _, t := range r.static {
		tools = append(tools, t.Schema)
	}
	for _, t := range r.mcpTools {
		tools = append(tools, t.ClaudeTool)
	}
	r.mu.RUnlock()

	sort.Slice(tools, func(i, j int) bool { return tools[i].Name < tools[j].Name })
	return tools
}

// StaticTool looks up a built-in tool by bare name.
func (r *Registry) StaticTool(name string) (StaticTool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.static[name]
	return t, ok
}

// McpTool looks up an MCP tool by exposed name.
func (r *Registry) McpTool(exposed string) (RegisteredTool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.mcpTools[exposed]
	return t, ok
}

// ToolCount returns the number of registered tools (static + MCP).
func (r *Registry) ToolCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.static) + len(r.mcpTools)
}

// IsDiscoveryStale reports whether serverName needs re-discovery: true when
// no cache entry exists or the TTL has elapsed.
func (r *Registry) IsDiscoveryStale(serverName string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.cache[serverName]
	if !ok {
		return true
	}
	return r.now().Sub(entry.lastDiscovery) > r.ttl
}

// compileSchema compiles a JSON-Schema property tree for validation.
func compileSchema(name string, schema map[string]any) (*jsonschema.Schema, error) {
	if schema == nil {
		return nil, nil
	}
	data, err := json.Marshal(schema)
	if err != nil {
		return nil, err
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	c := jsonschema.NewCompiler()
	url := "mem://tools/" + name + ".schema.json"
	if err := c.AddResource(url, doc); err != nil {
		return nil, err
	}
	return c.Compile(url)
}
