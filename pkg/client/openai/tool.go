package openai

import (
	"encoding/json"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/shared"

	"github.com/fpt/go-kaizen-cli/pkg/agent/domain"
	"github.com/fpt/go-kaizen-cli/pkg/message"
)

// convertToolsToOpenAI converts registered tools to OpenAI function format
func convertToolsToOpenAI(tools map[message.ToolName]message.Tool) []openai.ChatCompletionToolUnionParam {
	var openaiTools []openai.ChatCompletionToolUnionParam

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

		params := shared.FunctionParameters{
			"type":       "object",
			"properties": properties,
		}
		if len(required) > 0 {
			params["required"] = required
		}

		openaiTools = append(openaiTools, openai.ChatCompletionFunctionTool(shared.FunctionDefinitionParam{
			Name:        string(tool.Name()),
			Description: openai.String(tool.Description().String()),
			Parameters:  params,
		}))
	}
	return openaiTools
}

// convertToolChoiceToOpenAI maps the domain tool choice onto the API union.
// OpenAI has no direct "any" mode; it maps to "required".
func convertToolChoiceToOpenAI(toolChoice domain.ToolChoice) openai.ChatCompletionToolChoiceOptionUnionParam {
	switch toolChoice.Type {
	case domain.ToolChoiceAny:
		return openai.ChatCompletionToolChoiceOptionUnionParam{OfAuto: openai.String("required")}
	case domain.ToolChoiceNone:
		return openai.ChatCompletionToolChoiceOptionUnionParam{OfAuto: openai.String("none")}
	case domain.ToolChoiceTool:
		return openai.ChatCompletionToolChoiceOptionUnionParam{
			OfFunctionToolChoice: &openai.ChatCompletionNamedToolChoiceParam{
				Function: openai.ChatCompletionNamedToolChoiceFunctionParam{
					Name: string(toolChoice.Name),
				},
			},
		}
	default:
		return openai.ChatCompletionToolChoiceOptionUnionParam{OfAuto: openai.String("auto")}
	}
}

// toOpenAIMessages converts internal messages to the OpenAI wire format.
// Tool calls replay as assistant messages carrying tool_calls and results as
// tool role messages with the matching call ID.
func toOpenAIMessages(messages []message.Message) []openai.ChatCompletionMessageParamUnion {
	var out []openai.ChatCompletionMessageParamUnion

	for _, msg := range messages {
		switch msg.Type() {
		case message.MessageTypeUser:
			out = append(out, openai.UserMessage(msg.Content()))
		case message.MessageTypeAssistant:
			out = append(out, openai.AssistantMessage(msg.Content()))
		case message.MessageTypeSystem:
			out = append(out, openai.SystemMessage(msg.Content()))
		case message.MessageTypeToolCall:
			if toolCall, ok := msg.(*message.ToolCallMessage); ok {
				out = append(out, openai.ChatCompletionMessageParamUnion{
					OfAssistant: &openai.ChatCompletionAssistantMessageParam{
						ToolCalls: []openai.ChatCompletionMessageToolCallUnionParam{
							{
								OfFunction: &openai.ChatCompletionMessageFunctionToolCallParam{
									ID: toolCall.ID(),
									Function: openai.ChatCompletionMessageFunctionToolCallFunctionParam{
										Name:      string(toolCall.ToolName()),
										Arguments: convertToolArgsToJSON(toolCall.ToolArguments()),
									},
								},
							},
						},
					},
				})
			}
		case message.MessageTypeToolResult:
			if toolResult, ok := msg.(*message.ToolResultMessage); ok {
				out = append(out, openai.ToolMessage(toolResult.Content(), toolResult.ID()))
			}
		}
	}
	return out
}

// convertOpenAIArgsToToolArgs parses function call arguments JSON
func convertOpenAIArgsToToolArgs(argsJSON string) message.ToolArgumentValues {
	result := make(message.ToolArgumentValues)
	if argsJSON == "" {
		return result
	}
	if err := json.Unmarshal([]byte(argsJSON), &result); err != nil {
		return make(message.ToolArgumentValues)
	}
	return result
}

// convertToolArgsToJSON serializes tool argument values for replay
func convertToolArgsToJSON(args message.ToolArgumentValues) string {
	if len(args) == 0 {
		return "{}"
	}
	jsonBytes, err := json.Marshal(args)
	if err != nil {
		return "{}"
	}
	return string(jsonBytes)
}
