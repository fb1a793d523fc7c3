package message

import "context"

// ToolName identifies a registered tool
type ToolName string

// ToolDescription is the human/model readable description of a tool or argument
type ToolDescription string

func (d ToolDescription) String() string { return string(d) }

// ToolArgument describes one parameter of a tool
type ToolArgument struct {
	Name        string
	Description ToolDescription
	Required    bool
	Type        string // JSON schema primitive: string, number, boolean, array
}

// ToolArgumentValues carries the decoded arguments of a tool call
type ToolArgumentValues map[string]any

// String returns the string value of an argument, with ok=false when absent or
// not a string
func (v ToolArgumentValues) String(key string) (string, bool) {
	s, ok := v[key].(string)
	return s, ok
}

// Bool returns the boolean value of an argument, defaulting when absent
func (v ToolArgumentValues) Bool(key string, def bool) bool {
	if b, ok := v[key].(bool); ok {
		return b
	}
	return def
}

// ToolResult is the structured outcome of executing a tool
type ToolResult struct {
	Text  string
	Error string
}

// NewToolResultText creates a successful tool result
func NewToolResultText(text string) ToolResult {
	return ToolResult{Text: text}
}

// NewToolResultError creates a failed tool result. Tool failures are results,
// not Go errors: the model is expected to read them and react.
func NewToolResultError(errText string) ToolResult {
	return ToolResult{Error: errText}
}

// ToolHandler executes a tool call
type ToolHandler func(ctx context.Context, args ToolArgumentValues) (ToolResult, error)

// Tool is a callable capability exposed to the model
type Tool interface {
	Name() ToolName
	Description() ToolDescription
	Arguments() []ToolArgument
	Handler() ToolHandler
}
