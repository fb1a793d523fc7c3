package ollama

import (
	"github.com/ollama/ollama/api"

	"github.com/fpt/go-kaizen-cli/pkg/message"
)

const roleSystem = "system"

// toOllamaMessages converts internal messages to the Ollama API format.
// Ollama has no dedicated tool result role, so results replay as "tool" role
// messages with plain content.
func toOllamaMessages(messages []message.Message) []api.Message {
	var out []api.Message

	for _, msg := range messages {
		switch msg.Type() {
		case message.MessageTypeUser, message.MessageTypeAssistant, message.MessageTypeSystem:
			out = append(out, api.Message{
				Role:    msg.Type().String(),
				Content: msg.Content(),
			})
		case message.MessageTypeToolCall:
			if toolCall, ok := msg.(*message.ToolCallMessage); ok {
				out = append(out, api.Message{
					Role: "assistant",
					ToolCalls: []api.ToolCall{
						{
							Function: api.ToolCallFunction{
								Name:      string(toolCall.ToolName()),
								Arguments: api.ToolCallFunctionArguments(toolCall.ToolArguments()),
							},
						},
					},
				})
			}
		case message.MessageTypeToolResult:
			out = append(out, api.Message{
				Role:    "tool",
				Content: msg.Content(),
			})
		}
	}
	return out
}

// convertToOllamaTools converts registered tools to the Ollama tool schema
func convertToOllamaTools(tools map[message.ToolName]message.Tool) api.Tools {
	var ollamaTools api.Tools

	for _, tool := range tools {
		properties := make(map[string]struct {
			Type        api.PropertyType `json:"type"`
			Items       any              `json:"items,omitempty"`
			Description string           `json:"description"`
			Enum        []any            `json:"enum,omitempty"`
		})
		var required []string

		for _, arg := range tool.Arguments() {
			properties[arg.Name] = struct {
				Type        api.PropertyType `json:"type"`
				Items       any              `json:"items,omitempty"`
				Description string           `json:"description"`
				Enum        []any            `json:"enum,omitempty"`
			}{
				Type:        api.PropertyType{arg.Type},
				Description: arg.Description.String(),
			}
			if arg.Required {
				required = append(required, arg.Name)
			}
		}

		ollamaTools = append(ollamaTools, api.Tool{
			Type: "function",
			Function: api.ToolFunction{
				Name:        string(tool.Name()),
				Description: tool.Description().String(),
				Parameters: struct {
					Type       string   `json:"type"`
					Defs       any      `json:"$defs,omitempty"`
					Items      any      `json:"items,omitempty"`
					Required   []string `json:"required"`
					Properties map[string]struct {
						Type        api.PropertyType `json:"type"`
						Items       any              `json:"items,omitempty"`
						Description string           `json:"description"`
						Enum        []any            `json:"enum,omitempty"`
					} `json:"properties"`
				}{
					Type:       "object",
					Properties: properties,
					Required:   required,
				},
			},
		})
	}
	return ollamaTools
}

// addToolUsageSystemMessage prepends a forcing system message unless one exists
func addToolUsageSystemMessage(messages *[]api.Message, systemContent string) {
	if len(*messages) > 0 && (*messages)[0].Role == roleSystem {
		return
	}
	*messages = append([]api.Message{{Role: roleSystem, Content: systemContent}}, *messages...)
}

// filterToolsByName narrows the tool list to a single forced tool
func filterToolsByName(tools api.Tools, toolName message.ToolName) api.Tools {
	for _, tool := range tools {
		if tool.Function.Name == string(toolName) {
			return api.Tools{tool}
		}
	}
	return tools
}
