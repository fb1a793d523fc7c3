package gemini

import (
	"encoding/json"

	"google.golang.org/genai"

	"github.com/fpt/go-kaizen-cli/pkg/agent/domain"
	"github.com/fpt/go-kaizen-cli/pkg/message"
)

// toGeminiContents converts internal messages to the Gemini wire format.
// System messages become the system instruction; the API takes only one, so
// multiple system messages concatenate. Tool traffic replays as text because
// function responses require live call IDs the history no longer has.
func toGeminiContents(messages []message.Message) ([]*genai.Content, *genai.Content) {
	contents := make([]*genai.Content, 0, len(messages))
	var system string

	for _, msg := range messages {
		switch msg.Type() {
		case message.MessageTypeUser:
			contents = append(contents, genai.NewContentFromText(msg.Content(), genai.RoleUser))
		case message.MessageTypeAssistant:
			contents = append(contents, genai.NewContentFromText(msg.Content(), genai.RoleModel))
		case message.MessageTypeSystem:
			if system != "" {
				system += "\n\n"
			}
			system += msg.Content()
		case message.MessageTypeToolCall:
			if toolCall, ok := msg.(*message.ToolCallMessage); ok {
				argsJSON, _ := json.Marshal(toolCall.ToolArguments())
				text := "[Function call: " + string(toolCall.ToolName()) + "(" + string(argsJSON) + ")]"
				contents = append(contents, genai.NewContentFromText(text, genai.RoleModel))
			}
		case message.MessageTypeToolResult:
			contents = append(contents, genai.NewContentFromText("[Function result: "+msg.Content()+"]", genai.RoleUser))
		}
	}

	var systemInstruction *genai.Content
	if system != "" {
		systemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}
	return contents, systemInstruction
}

// convertToolsToGemini converts registered tools to Gemini function declarations
func convertToolsToGemini(tools map[message.ToolName]message.Tool) []*genai.Tool {
	var declarations []*genai.FunctionDeclaration

	for _, tool := range tools {
		properties := make(map[string]*genai.Schema)
		var required []string
		for _, arg := range tool.Arguments() {
			properties[arg.Name] = &genai.Schema{
				Type:        schemaTypeFor(arg.Type),
				Description: arg.Description.String(),
			}
			if arg.Required {
				required = append(required, arg.Name)
			}
		}

		declarations = append(declarations, &genai.FunctionDeclaration{
			Name:        string(tool.Name()),
			Description: tool.Description().String(),
			Parameters: &genai.Schema{
				Type:       genai.TypeObject,
				Properties: properties,
				Required:   required,
			},
		})
	}

	if len(declarations) == 0 {
		return nil
	}
	return []*genai.Tool{{FunctionDeclarations: declarations}}
}

func schemaTypeFor(argType string) genai.Type {
	switch argType {
	case "number", "integer":
		return genai.TypeNumber
	case "boolean":
		return genai.TypeBoolean
	case "array":
		return genai.TypeArray
	case "object":
		return genai.TypeObject
	default:
		return genai.TypeString
	}
}

// convertToolChoiceToGemini maps the domain tool choice onto function calling config
func convertToolChoiceToGemini(toolChoice domain.ToolChoice) *genai.ToolConfig {
	cfg := &genai.FunctionCallingConfig{}
	switch toolChoice.Type {
	case domain.ToolChoiceAny:
		cfg.Mode = genai.FunctionCallingConfigModeAny
	case domain.ToolChoiceNone:
		cfg.Mode = genai.FunctionCallingConfigModeNone
	case domain.ToolChoiceTool:
		cfg.Mode = genai.FunctionCallingConfigModeAny
		cfg.AllowedFunctionNames = []string{string(toolChoice.Name)}
	default:
		cfg.Mode = genai.FunctionCallingConfigModeAuto
	}
	return &genai.ToolConfig{FunctionCallingConfig: cfg}
}
