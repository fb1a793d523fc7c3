package ollama

import (
	"context"
	"fmt"

	"github.com/ollama/ollama/api"

	"github.com/fpt/go-kaizen-cli/pkg/agent/domain"
	"github.com/fpt/go-kaizen-cli/pkg/message"
)

// OllamaCore contains shared Ollama client resources
type OllamaCore struct {
	client    *api.Client
	model     string
	maxTokens int
}

// NewOllamaCore creates a new Ollama core with shared resources
func NewOllamaCore(model string) (*OllamaCore, error) {
	return NewOllamaCoreWithTokens(model, 0)
}

// NewOllamaCoreWithTokens creates a new Ollama core with configurable maxTokens
func NewOllamaCoreWithTokens(model string, maxTokens int) (*OllamaCore, error) {
	client, err := api.ClientFromEnvironment()
	if err != nil {
		return nil, fmt.Errorf("failed to create Ollama client: %w", err)
	}

	if maxTokens <= 0 {
		maxTokens = 4096
	}

	return &OllamaCore{
		client:    client,
		model:     model,
		maxTokens: maxTokens,
	}, nil
}

// OllamaClient implements domain.ToolCallingLLM for locally served models
type OllamaClient struct {
	*OllamaCore
	toolManager domain.ToolManager
	lastUsage   message.TokenUsage
	hasUsage    bool
}

// NewOllamaClient creates a new Ollama client for the given model
func NewOllamaClient(model string) (domain.ToolCallingLLM, error) {
	return NewOllamaClientWithTokens(model, 0)
}

// NewOllamaClientWithTokens creates a new Ollama client with configurable maxTokens
func NewOllamaClientWithTokens(model string, maxTokens int) (domain.ToolCallingLLM, error) {
	core, err := NewOllamaCoreWithTokens(model, maxTokens)
	if err != nil {
		return nil, err
	}
	return &OllamaClient{OllamaCore: core}, nil
}

// IsToolCapable checks if the current model supports native tool calling
func (c *OllamaClient) IsToolCapable() bool {
	return IsToolCapableModel(c.model)
}

// SetToolManager sets the tool manager for native tool calling
func (c *OllamaClient) SetToolManager(toolManager domain.ToolManager) {
	c.toolManager = toolManager
}

// ModelID returns the configured model identifier
func (c *OllamaClient) ModelID() string {
	return c.model
}

// LastTokenUsage returns token accounting from the most recent API call
func (c *OllamaClient) LastTokenUsage() (message.TokenUsage, bool) {
	return c.lastUsage, c.hasUsage
}

// Chat sends the conversation to Ollama and returns the response
func (c *OllamaClient) Chat(ctx context.Context, messages []message.Message) (message.Message, error) {
	return c.ChatWithToolChoice(ctx, messages, domain.ToolChoice{Type: domain.ToolChoiceAuto})
}

// ChatWithToolChoice sends the conversation to Ollama with tool choice control.
// Ollama has no native tool choice parameter; Any and Tool are approximated
// with a forcing system message the way LangChain does it.
func (c *OllamaClient) ChatWithToolChoice(ctx context.Context, messages []message.Message, toolChoice domain.ToolChoice) (message.Message, error) {
	ollamaMessages := toOllamaMessages(messages)

	stream := false
	chatRequest := &api.ChatRequest{
		Model:    c.model,
		Messages: ollamaMessages,
		Stream:   &stream,
		Options: map[string]any{
			"temperature": 0.1,
			"num_predict": c.maxTokens,
		},
	}

	if c.IsToolCapable() && c.toolManager != nil && toolChoice.Type != domain.ToolChoiceNone {
		tools := convertToOllamaTools(c.toolManager.GetTools())
		if len(tools) > 0 {
			chatRequest.Tools = tools
			switch toolChoice.Type {
			case domain.ToolChoiceAny:
				addToolUsageSystemMessage(&chatRequest.Messages,
					"You MUST use at least one of the available tools to help the user with their request. Do not respond without using a tool.")
			case domain.ToolChoiceTool:
				chatRequest.Tools = filterToolsByName(tools, toolChoice.Name)
				addToolUsageSystemMessage(&chatRequest.Messages,
					fmt.Sprintf("You MUST use the '%s' tool to help the user with their request.", toolChoice.Name))
			}
		}
	}

	var last api.ChatResponse
	err := c.client.Chat(ctx, chatRequest, func(resp api.ChatResponse) error {
		last = resp
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ollama chat error: %w", err)
	}

	c.lastUsage = message.TokenUsage{
		InputTokens:  last.Metrics.PromptEvalCount,
		OutputTokens: last.Metrics.EvalCount,
		TotalTokens:  last.Metrics.PromptEvalCount + last.Metrics.EvalCount,
	}
	c.hasUsage = true

	if len(last.Message.ToolCalls) > 0 {
		toolCall := last.Message.ToolCalls[0]
		response := message.NewToolCallMessage(
			message.ToolName(toolCall.Function.Name),
			message.ToolArgumentValues(toolCall.Function.Arguments),
		)
		response.SetTokenUsage(c.lastUsage.InputTokens, c.lastUsage.OutputTokens, c.lastUsage.TotalTokens)
		return response, nil
	}

	response := message.NewChatMessage(message.MessageTypeAssistant, last.Message.Content)
	response.SetTokenUsage(c.lastUsage.InputTokens, c.lastUsage.OutputTokens, c.lastUsage.TotalTokens)
	return response, nil
}
