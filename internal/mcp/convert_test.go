package mcp

import (
	"reflect"
	"testing"
)

// TestNameRoundTrip verifies that exposed names parse back to their parts.
func TestNameRoundTrip(t *testing.T) {
	t.Parallel()

	cases := []struct{ server, tool string }{
		{"github", "search"},
		{"jira", "create_issue"},
		{"s", "t"},
		{"docs", "lookup__by__id"}, // first-split only: "__" in the tool name survives
	}
	for _, tc := range cases {
		exposed := ExposedName(tc.server, tc.tool)
		server, tool, ok := ParseName(exposed)
		if !ok {
			t.Errorf("ParseName(%q): not ok", exposed)
			continue
		}
		if server != tc.server || tool != tc.tool {
			t.Errorf("ParseName(%q) = (%q, %q), want (%q, %q)", exposed, server, tool, tc.server, tc.tool)
		}
	}
}

// TestParseNameRejects verifies the invalid-shape cases.
func TestParseNameRejects(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"search", "", "__tool", "server__", "__"} {
		if _, _, ok := ParseName(name); ok {
			t.Errorf("ParseName(%q) = ok, want rejection", name)
		}
	}
}

// TestToClaudeToolNilSchema verifies that a schema-less tool converts to an
// empty object schema.
func TestToClaudeToolNilSchema(t *testing.T) {
	t.Parallel()

	got := ToClaudeTool("github", Tool{Name: "ping", Description: "pings"})
	if got.Name != "github__ping" {
		t.Errorf("Name = %q", got.Name)
	}
	if got.Description != "pings" {
		t.Errorf("Description = %q", got.Description)
	}
	want := map[string]any{"type": "object"}
	if !reflect.DeepEqual(got.InputSchema, want) {
		t.Errorf("InputSchema = %v, want %v", got.InputSchema, want)
	}
}

// TestConvertSchemaRecursion verifies that nested subschemas, combinators,
// and the nullable annotation survive conversion while unknown keywords are
// dropped.
func TestConvertSchemaRecursion(t *testing.T) {
	t.Parallel()

	in := map[string]any{
		"type":        "object",
		"description": "query input",
		"required":    []any{"query"},
		"$schema":     "http://json-schema.org/draft-07/schema#", // dropped
		"properties": map[string]any{
			"query": map[string]any{
				"type":        "string",
				"description": "search text",
				"x-internal":  true, // dropped
			},
			"limit": map[string]any{
				"type":     "integer",
				"default":  float64(10),
				"nullable": true,
			},
			"tags": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "string",
					"enum": []any{"a", "b"},
				},
			},
			"filter": map[string]any{
				"oneOf": []any{
					map[string]any{"type": "string"},
					map[string]any{"type": "object", "properties": map[string]any{
						"field": map[string]any{"type": "string"},
					}},
				},
			},
		},
	}

	got := ToClaudeTool("search", Tool{Name: "find", InputSchema: in}).InputSchema

	if got["type"] != "object" || got["description"] != "query input" {
		t.Errorf("top-level keywords not preserved: %v", got)
	}
	if _, leaked := got["$schema"]; leaked {
		t.Error("$schema keyword should be dropped")
	}

	props, ok := got["properties"].(map[string]any)
	if !ok {
		t.Fatalf("properties missing: %v", got)
	}

	query := props["query"].(map[string]any)
	if query["description"] != "search text" {
		t.Errorf("nested description lost: %v", query)
	}
	if _, leaked := query["x-internal"]; leaked {
		t.Error("vendor extension should be dropped")
	}

	limit := props["limit"].(map[string]any)
	if limit["nullable"] != true {
		t.Error("nullable annotation must pass through unchanged")
	}
	if limit["default"] != float64(10) {
		t.Errorf("default lost: %v", limit)
	}

	tags := props["tags"].(map[string]any)
	items, ok := tags["items"].(map[string]any)
	if !ok {
		t.Fatalf("items not recursed: %v", tags)
	}
	if !reflect.DeepEqual(items["enum"], []any{"a", "b"}) {
		t.Errorf("enum lost: %v", items)
	}

	filter := props["filter"].(map[string]any)
	oneOf, ok := filter["oneOf"].([]any)
	if !ok || len(oneOf) != 2 {
		t.Fatalf("oneOf not recursed: %v", filter)
	}
	second := oneOf[1].(map[string]any)
	if _, ok := second["properties"]; !ok {
		t.Errorf("combinator member not recursed: %v", second)
	}
}

// TestConvertSchemaPositionalItems verifies that the array form of items is
// preserved with each positional subschema recursed.
func TestConvertSchemaPositionalItems(t *testing.T) {
	t.Parallel()

	in := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"range": map[string]any{
				"type": "array",
				"items": []any{
					map[string]any{"type": "integer", "description": "start"},
					map[string]any{"type": "integer", "description": "end", "x-internal": true},
				},
			},
		},
	}

	got := ToClaudeTool("calc", Tool{Name: "span", InputSchema: in}).InputSchema
	props := got["properties"].(map[string]any)
	rng := props["range"].(map[string]any)

	items, ok := rng["items"].([]any)
	if !ok || len(items) != 2 {
		t.Fatalf("positional items lost: %v", rng)
	}
	first := items[0].(map[string]any)
	if first["description"] != "start" {
		t.Errorf("first member not recursed: %v", first)
	}
	second := items[1].(map[string]any)
	if _, leaked := second["x-internal"]; leaked {
		t.Error("vendor extension should be dropped from positional members")
	}
}

// TestJoinText verifies newline joining of text blocks only.
func TestJoinText(t *testing.T) {
	t.Parallel()

	r := &CallResult{Content: []ContentBlock{
		{Type: "text", Text: "line one"},
		{Type: "image", Data: "aaaa", MimeType: "image/png"},
		{Type: "text", Text: "line two"},
	}}
	if got := r.JoinText(); got != "line one\nline two" {
		t.Errorf("JoinText = %q", got)
	}
	if !r.HasText() {
		t.Error("HasText = false, want true")
	}

	empty := &CallResult{Content: []ContentBlock{{Type: "image", Data: "x"}}}
	if empty.HasText() {
		t.Error("HasText = true for image-only result")
	}
}
