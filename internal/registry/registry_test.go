package registry

import (
	"context"
	"testing"
	"time"

	"github.com/sidart10/orion-toolcore/pkg/claude"
)

// echoHandler is a trivial static handler used across tests.
func echoHandler(_ context.Context, args map[string]any) (any, error) {
	return args, nil
}

// objectSchema builds a minimal object schema for a tool.
func objectSchema(name string) claude.Tool {
	return claude.Tool{
		Name:        name,
		InputSchema: map[string]any{"type": "object"},
	}
}

// registration builds a Registration whose exposed schema is pre-converted.
func registration(server, name string) Registration {
	return Registration{
		OriginalName: name,
		ClaudeTool: claude.Tool{
			Name:        server + "__" + name,
			InputSchema: map[string]any{"type": "object"},
		},
	}
}

// TestRegisterMcpToolsReplaceSemantics verifies full-replace, never merge.
func TestRegisterMcpToolsReplaceSemantics(t *testing.T) {
	t.Parallel()
	r := New()

	n := r.RegisterMcpTools("github", []Registration{
		registration("github", "search"),
		registration("github", "create_issue"),
	})
	if n != 2 {
		t.Fatalf("first registration inserted %d, want 2", n)
	}

	n = r.RegisterMcpTools("github", []Registration{
		registration("github", "search"),
	})
	if n != 1 {
		t.Fatalf("second registration inserted %d, want 1", n)
	}

	if _, ok := r.McpTool("github__create_issue"); ok {
		t.Error("stale tool survived a full replace")
	}
	if _, ok := r.McpTool("github__search"); !ok {
		t.Error("replacement tool missing")
	}
}

// TestConflictExclusion verifies that static tools win naming conflicts:
// the MCP candidate is rejected, not the static tool.
func TestConflictExclusion(t *testing.T) {
	t.Parallel()
	r := New()
	r.RegisterStaticTool("search", echoHandler, objectSchema("search"))

	n := r.RegisterMcpTools("server", []Registration{registration("server", "search")})
	if n != 0 {
		t.Errorf("inserted %d, want 0", n)
	}
	if _, ok := r.McpTool("server__search"); ok {
		t.Error("conflicting MCP tool was registered")
	}
	if _, ok := r.StaticTool("search"); !ok {
		t.Error("static tool lost in conflict")
	}
}

// TestToolsForClaudeDeterminism verifies lexicographic order on repeated calls.
func TestToolsForClaudeDeterminism(t *testing.T) {
	t.Parallel()
	r := New()
	r.RegisterStaticTool("zeta", echoHandler, objectSchema("zeta"))
	r.RegisterStaticTool("alpha", echoHandler, objectSchema("alpha"))
	r.RegisterMcpTools("mid", []Registration{registration("mid", "tool")})

	want := []string{"alpha", "mid__tool", "zeta"}
	for i := 0; i < 3; i++ {
		got := r.ToolsForClaude()
		if len(got) != len(want) {
			t.Fatalf("len = %d, want %d", len(got), len(want))
		}
		for i, tool := range got {
			if tool.Name != want[i] {
				t.Errorf("tools[%d] = %q, want %q", i, tool.Name, want[i])
			}
		}
	}
}

// TestRemoveServerTools verifies removal by owner.
func TestRemoveServerTools(t *testing.T) {
	t.Parallel()
	r := New()
	r.RegisterMcpTools("a", []Registration{registration("a", "one"), registration("a", "two")})
	r.RegisterMcpTools("b", []Registration{registration("b", "three")})

	if n := r.RemoveServerTools("a"); n != 2 {
		t.Errorf("removed %d, want 2", n)
	}
	if _, ok := r.McpTool("b__three"); !ok {
		t.Error("unrelated server's tool was removed")
	}
	if n := r.RemoveServerTools("a"); n != 0 {
		t.Errorf("second removal returned %d, want 0", n)
	}
}

// TestDiscoveryStaleness verifies the TTL gate with a controlled clock.
func TestDiscoveryStaleness(t *testing.T) {
	t.Parallel()
	r := New()

	clock := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return clock }

	if !r.IsDiscoveryStale("github") {
		t.Error("server with no cache entry must be stale")
	}

	r.RegisterMcpTools("github", []Registration{registration("github", "search")})
	if r.IsDiscoveryStale("github") {
		t.Error("freshly discovered server must not be stale")
	}

	clock = clock.Add(DiscoveryTTL - time.Second)
	if r.IsDiscoveryStale("github") {
		t.Error("server inside the TTL window must not be stale")
	}

	clock = clock.Add(2 * time.Second)
	if !r.IsDiscoveryStale("github") {
		t.Error("server past the TTL window must be stale")
	}
}

// TestStaticToolValidation verifies jsonschema-backed argument checking.
func TestStaticToolValidation(t *testing.T) {
	t.Parallel()
	r := New()
	r.RegisterStaticTool("lookup", echoHandler, claude.Tool{
		Name: "lookup",
		InputSchema: map[string]any{
			"type":     "object",
			"required": []any{"id"},
			"properties": map[string]any{
				"id": map[string]any{"type": "string"},
			},
		},
	})

	tool, ok := r.StaticTool("lookup")
	if !ok {
		t.Fatal("tool missing")
	}
	if err := tool.ValidateArgs(map[string]any{"id": "abc"}); err != nil {
		t.Errorf("valid args rejected: %v", err)
	}
	if err := tool.ValidateArgs(map[string]any{}); err == nil {
		t.Error("missing required property was accepted")
	}
	if err := tool.ValidateArgs(map[string]any{"id": 42}); err == nil {
		t.Error("wrong property type was accepted")
	}
}

// TestStaticToolBadSchemaDisablesValidation verifies that an uncompilable
// schema only disables validation and never blocks registration.
func TestStaticToolBadSchemaDisablesValidation(t *testing.T) {
	t.Parallel()
	r := New()
	r.RegisterStaticTool("odd", echoHandler, claude.Tool{
		Name:        "odd",
		InputSchema: map[string]any{"type": 12345}, // not a valid schema
	})

	tool, ok := r.StaticTool("odd")
	if !ok {
		t.Fatal("tool with bad schema was not registered")
	}
	if err := tool.ValidateArgs(map[string]any{"anything": true}); err != nil {
		t.Errorf("validation should be disabled, got %v", err)
	}
}

// TestConcurrentMutation exercises registry mutation and listing under
// concurrency (run with -race).
func TestConcurrentMutation(t *testing.T) {
	t.Parallel()
	r := New()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 50; i++ {
			server := []string{"a", "b"}[i%2]
			r.RegisterMcpTools(server, []Registration{registration(server, "tool")})
		}
	}()

	for i := 0; i < 50; i++ {
		r.ToolsForClaude()
		r.IsDiscoveryStale("a")
	}
	<-done
}
