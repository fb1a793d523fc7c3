package domain

import (
	"context"

	"github.com/fpt/go-kaizen-cli/pkg/message"
)

// ToolManager owns a set of tools and dispatches calls to their handlers.
// Implementations live under internal/tool; clients use GetTools to advertise
// the set to the model and the agent loop uses CallTool to execute requests.
type ToolManager interface {
	GetTool(name message.ToolName) (message.Tool, bool)
	GetTools() map[message.ToolName]message.Tool
	CallTool(ctx context.Context, name message.ToolName, args message.ToolArgumentValues) (message.ToolResult, error)
	RegisterTool(name message.ToolName, description message.ToolDescription, args []message.ToolArgument, handler message.ToolHandler)
}
