package anthropic

import (
	"encoding/json"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/fpt/go-kaizen-cli/pkg/agent/domain"
	"github.com/fpt/go-kaizen-cli/pkg/message"
)

// toAnthropicMessages converts internal messages to the Anthropic wire format.
// System messages are returned separately because the API takes them as a
// top-level field. Tool calls and results become tool_use/tool_result blocks
// with matching IDs.
func toAnthropicMessages(messages []message.Message) ([]anthropic.MessageParam, string) {
	var out []anthropic.MessageParam
	var system string

	for _, msg := range messages {
		switch msg.Type() {
		case message.MessageTypeSystem:
			if system != "" {
				system += "\n\n"
			}
			system += msg.Content()
		case message.MessageTypeUser:
			out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content())))
		case message.MessageTypeAssistant:
			out = append(out, anthropic.NewAssistantMessage(anthropic.NewTextBlock(msg.Content())))
		case message.MessageTypeToolCall:
			if toolCall, ok := msg.(*message.ToolCallMessage); ok {
				out = append(out, anthropic.NewAssistantMessage(
					anthropic.NewToolUseBlock(toolCall.ID(), map[string]any(toolCall.ToolArguments()), string(toolCall.ToolName())),
				))
			}
		case message.MessageTypeToolResult:
			if toolResult, ok := msg.(*message.ToolResultMessage); ok {
				isError := toolResult.Error != ""
				resultBlock := anthropic.NewToolResultBlock(toolResult.ID())
				resultBlock.OfToolResult.Content = []anthropic.ToolResultBlockParamContentUnion{
					{OfText: &anthropic.TextBlockParam{Text: toolResult.Content()}},
				}
				resultBlock.OfToolResult.IsError = anthropic.Bool(isError)
				out = append(out, anthropic.NewUserMessage(resultBlock))
			}
		}
	}
	return out, system
}

// convertToolsToAnthropic converts registered tools to Anthropic tool params
func convertToolsToAnthropic(tools map[message.ToolName]message.Tool) []anthropic.ToolUnionParam {
	var out []anthropic.ToolUnionParam
	for _, tool := range tools {
		properties := make(map[string]any)
		var required []string
		for _, arg := range tool.Arguments() {
			properties[arg.Name] = map[string]any{
				"type":        arg.Type,
				"description": arg.Description.String(),
			}
			if arg.Required {
				required = append(required, arg.Name)
			}
		}
		out = append(out, anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        string(tool.Name()),
				Description: anthropic.String(tool.Description().String()),
				InputSchema: anthropic.ToolInputSchemaParam{
					Properties: properties,
					Required:   required,
				},
			},
		})
	}
	return out
}

// convertToolChoiceToAnthropic maps the domain tool choice onto the API union
func convertToolChoiceToAnthropic(toolChoice domain.ToolChoice) anthropic.ToolChoiceUnionParam {
	switch toolChoice.Type {
	case domain.ToolChoiceAny:
		return anthropic.ToolChoiceUnionParam{OfAny: &anthropic.ToolChoiceAnyParam{}}
	case domain.ToolChoiceNone:
		return anthropic.ToolChoiceUnionParam{OfNone: &anthropic.ToolChoiceNoneParam{}}
	case domain.ToolChoiceTool:
		return anthropic.ToolChoiceUnionParam{OfTool: &anthropic.ToolChoiceToolParam{Name: string(toolChoice.Name)}}
	default:
		return anthropic.ToolChoiceUnionParam{OfAuto: &anthropic.ToolChoiceAutoParam{}}
	}
}

func parseToolInput(input json.RawMessage) (message.ToolArgumentValues, error) {
	args := make(message.ToolArgumentValues)
	if len(input) == 0 {
		return args, nil
	}
	if err := json.Unmarshal(input, &args); err != nil {
		return nil, err
	}
	return args, nil
}
