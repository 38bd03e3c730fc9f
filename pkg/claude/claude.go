// Package claude defines the tool schema presented to the Claude calling
// model. The agent loop hands these descriptors to the model verbatim, so
// two processes holding the same registry contents must produce identical
// values here (prompt-cache stability upstream depends on it).
package claude

// Tool is a single callable capability in Claude's native tool format.
//
// InputSchema is a JSON-Schema-like property tree. It is produced either by
// a static tool author directly or by converting a remote MCP tool's schema
// (see the internal/mcp package). The tree may carry a "nullable" annotation
// on properties; Claude's schema dialect has no native nullable keyword, so
// the annotation is passed through for the model to interpret rather than
// lossily coerced.
type Tool struct {
	// Name is the exposed tool name. Static tools use their bare snake_case
	// name; MCP-sourced tools are prefixed with their server name.
	Name string `json:"name"`

	// Description is free text shown to the model. May be empty.
	Description string `json:"description,omitempty"`

	// InputSchema describes the tool's arguments as a JSON Schema object.
	InputSchema map[string]any `json:"input_schema"`
}
