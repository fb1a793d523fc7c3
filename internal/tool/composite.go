package tool

import (
	"context"
	"fmt"

	"github.com/fpt/go-kaizen-cli/pkg/agent/domain"
	"github.com/fpt/go-kaizen-cli/pkg/message"
)

// CompositeToolManager merges multiple tool managers behind one interface.
// Later managers win on name collisions.
type CompositeToolManager struct {
	managers []domain.ToolManager
}

// NewCompositeToolManager creates a composite from the given managers
func NewCompositeToolManager(managers ...domain.ToolManager) *CompositeToolManager {
	return &CompositeToolManager{managers: managers}
}

func (c *CompositeToolManager) GetTool(name message.ToolName) (message.Tool, bool) {
	for i := len(c.managers) - 1; i >= 0; i-- {
		if tool, exists := c.managers[i].GetTool(name); exists {
			return tool, true
		}
	}
	return nil, false
}

func (c *CompositeToolManager) GetTools() map[message.ToolName]message.Tool {
	merged := make(map[message.ToolName]message.Tool)
	for _, manager := range c.managers {
		for name, tool := range manager.GetTools() {
			merged[name] = tool
		}
	}
	return merged
}

func (c *CompositeToolManager) CallTool(ctx context.Context, name message.ToolName, args message.ToolArgumentValues) (message.ToolResult, error) {
	for i := len(c.managers) - 1; i >= 0; i-- {
		if _, exists := c.managers[i].GetTool(name); exists {
			return c.managers[i].CallTool(ctx, name, args)
		}
	}
	return message.NewToolResultError(fmt.Sprintf("tool '%s' not found", name)), nil
}

// RegisterTool is unsupported on a composite; tools are registered on the
// underlying managers.
func (c *CompositeToolManager) RegisterTool(name message.ToolName, description message.ToolDescription, args []message.ToolArgument, handler message.ToolHandler) {
	logger.Warn("RegisterTool called on composite manager; ignored", "tool", name)
}
