// Package tool provides the built-in tool managers exposed to the model:
// filesystem access, shell execution, web fetching, arithmetic,
// todo tracking and combinatorial solvers.
package tool

import (
	"context"
	"fmt"

	pkgLogger "github.com/fpt/go-kaizen-cli/pkg/logger"
	"github.com/fpt/go-kaizen-cli/pkg/message"
)

var logger = pkgLogger.NewComponentLogger("tool")

// baseTool is the common Tool implementation used by all managers
type baseTool struct {
	name        message.ToolName
	description message.ToolDescription
	arguments   []message.ToolArgument
	handler     message.ToolHandler
}

func (t *baseTool) Name() message.ToolName               { return t.name }
func (t *baseTool) Description() message.ToolDescription { return t.description }
func (t *baseTool) Arguments() []message.ToolArgument    { return t.arguments }
func (t *baseTool) Handler() message.ToolHandler         { return t.handler }

// toolSet is the common registry embedded by the concrete managers
type toolSet struct {
	tools map[message.ToolName]message.Tool
}

func newToolSet() toolSet {
	return toolSet{tools: make(map[message.ToolName]message.Tool)}
}

func (s *toolSet) GetTool(name message.ToolName) (message.Tool, bool) {
	tool, exists := s.tools[name]
	return tool, exists
}

func (s *toolSet) GetTools() map[message.ToolName]message.Tool {
	return s.tools
}

func (s *toolSet) CallTool(ctx context.Context, name message.ToolName, args message.ToolArgumentValues) (message.ToolResult, error) {
	tool, exists := s.tools[name]
	if !exists {
		return message.NewToolResultError(fmt.Sprintf("tool '%s' not found", name)), nil
	}
	return tool.Handler()(ctx, args)
}

func (s *toolSet) RegisterTool(name message.ToolName, description message.ToolDescription, args []message.ToolArgument, handler message.ToolHandler) {
	s.tools[name] = &baseTool{
		name:        name,
		description: description,
		arguments:   args,
		handler:     handler,
	}
}
