package mcp

import (
	"strings"

	"github.com/sidart10/orion-toolcore/pkg/claude"
)

// NameSeparator joins a server name and an original tool name into the
// exposed name Claude sees. Parsing splits on the first occurrence only, so
// an original tool name that itself contains "__" survives the round trip.
const NameSeparator = "__"

// ExposedName returns the name under which an MCP tool is presented to the
// model: "<server>__<tool>".
func ExposedName(serverName, toolName string) string {
	return serverName + NameSeparator + toolName
}

// ParseName splits an exposed tool name back into server and tool name.
// ok is false when the separator is absent or either side is empty — such a
// name belongs to a static tool, not an MCP server.
func ParseName(exposed string) (serverName, toolName string, ok bool) {
	server, tool, found := strings.Cut(exposed, NameSeparator)
	if !found || server == "" || tool == "" {
		return "", "", false
	}
	return server, tool, true
}

// ToClaudeTool converts a remote tool descriptor into Claude's native tool
// format, prefixing the name with the owning server. Pure and total: any
// input yields a usable tool (a nil schema becomes an empty object schema).
func ToClaudeTool(serverName string, t Tool) claude.Tool {
	return claude.Tool{
		Name:        ExposedName(serverName, t.Name),
		Description: t.Description,
		InputSchema: convertSchema(t.InputSchema),
	}
}

// convertSchema recursively rewrites a JSON-Schema-like property tree into
// the subset Claude understands. Recognised keywords are preserved;
// subschemas under items, properties, and the combinators are recursed;
// everything else (vendor extensions, $-keywords) is dropped. The
// "nullable" annotation is passed through unchanged — Claude's dialect has
// no nullable keyword, so keeping the annotation preserves the semantics
// for the model to interpret.
func convertSchema(schema map[string]any) map[string]any {
	if schema == nil {
		return map[string]any{"type": "object"}
	}

	out := make(map[string]any, len(schema))

	// Scalar-ish keywords copied verbatim.
	for _, key := range []string{"type", "description", "enum", "default", "required", "nullable"} {
		if v, ok := schema[key]; ok {
			out[key] = v
		}
	}

	// items comes in two JSON Schema shapes: a single subschema or a
	// positional array of subschemas.
	switch items := schema["items"].(type) {
	case map[string]any:
		out["items"] = convertSchema(items)
	case []any:
		converted := make([]any, 0, len(items))
		for _, m := range items {
			if sub, ok := m.(map[string]any); ok {
				converted = append(converted, convertSchema(sub))
			}
		}
		out["items"] = converted
	}

	if props, ok := schema["properties"].(map[string]any); ok {
		converted := make(map[string]any, len(props))
		for name, sub := range props {
			if subSchema, ok := sub.(map[string]any); ok {
				converted[name] = convertSchema(subSchema)
			}
		}
		out["properties"] = converted
	}

	for _, key := range []string{"oneOf", "anyOf", "allOf"} {
		members, ok := schema[key].([]any)
		if !ok {
			continue
		}
		converted := make([]any, 0, len(members))
		for _, m := range members {
			if sub, ok := m.(map[string]any); ok {
				converted = append(converted, convertSchema(sub))
			}
		}
		out[key] = converted
	}

	return out
}
