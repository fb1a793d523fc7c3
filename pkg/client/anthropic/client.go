package anthropic

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/fpt/go-kaizen-cli/pkg/agent/domain"
	"github.com/fpt/go-kaizen-cli/pkg/message"
)

const defaultMaxTokens = 8192

// AnthropicCore contains shared Anthropic client resources
type AnthropicCore struct {
	client    *anthropic.Client
	model     string
	maxTokens int
}

// NewAnthropicCore creates a new Anthropic core with shared resources
func NewAnthropicCore(model string) (*AnthropicCore, error) {
	return NewAnthropicCoreWithTokens(model, 0)
}

// NewAnthropicCoreWithTokens creates a new Anthropic core with configurable maxTokens
func NewAnthropicCoreWithTokens(model string, maxTokens int) (*AnthropicCore, error) {
	apiKey := os.Getenv("ANTHROPIC_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("ANTHROPIC_API_KEY environment variable not set")
	}

	client := anthropic.NewClient(
		option.WithAPIKey(apiKey),
	)

	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	return &AnthropicCore{
		client:    &client,
		model:     model,
		maxTokens: maxTokens,
	}, nil
}

// AnthropicClient handles communication with Claude models.
// Implements domain.ToolCallingLLM.
type AnthropicClient struct {
	*AnthropicCore
	toolManager domain.ToolManager
	lastUsage   message.TokenUsage
	hasUsage    bool
}

// NewAnthropicClient creates a new Anthropic client with tool calling support
func NewAnthropicClient(model string) (domain.ToolCallingLLM, error) {
	return NewAnthropicClientWithTokens(model, 0)
}

// NewAnthropicClientWithTokens creates a new Anthropic client with configurable maxTokens
func NewAnthropicClientWithTokens(model string, maxTokens int) (domain.ToolCallingLLM, error) {
	core, err := NewAnthropicCoreWithTokens(model, maxTokens)
	if err != nil {
		return nil, err
	}
	return &AnthropicClient{AnthropicCore: core}, nil
}

// SetToolManager sets the tool manager for dynamic tool definitions
func (c *AnthropicClient) SetToolManager(toolManager domain.ToolManager) {
	c.toolManager = toolManager
}

// ModelID returns the configured model identifier
func (c *AnthropicClient) ModelID() string {
	return c.model
}

// LastTokenUsage returns token accounting from the most recent API call
func (c *AnthropicClient) LastTokenUsage() (message.TokenUsage, bool) {
	return c.lastUsage, c.hasUsage
}

// Chat sends the conversation to Claude and returns the response
func (c *AnthropicClient) Chat(ctx context.Context, messages []message.Message) (message.Message, error) {
	return c.chat(ctx, messages, domain.ToolChoice{Type: domain.ToolChoiceAuto})
}

// ChatWithToolChoice sends the conversation to Claude with tool choice control
func (c *AnthropicClient) ChatWithToolChoice(ctx context.Context, messages []message.Message, toolChoice domain.ToolChoice) (message.Message, error) {
	return c.chat(ctx, messages, toolChoice)
}

func (c *AnthropicClient) chat(ctx context.Context, messages []message.Message, toolChoice domain.ToolChoice) (message.Message, error) {
	anthropicMessages, system := toAnthropicMessages(messages)

	messageParams := anthropic.MessageNewParams{
		MaxTokens: int64(c.maxTokens),
		Messages:  anthropicMessages,
		Model:     anthropic.Model(c.model),
	}
	if system != "" {
		messageParams.System = []anthropic.TextBlockParam{{Text: system}}
	}

	if c.toolManager != nil {
		tools := convertToolsToAnthropic(c.toolManager.GetTools())
		if len(tools) > 0 {
			messageParams.Tools = tools
			messageParams.ToolChoice = convertToolChoiceToAnthropic(toolChoice)
		}
	}

	msg, err := c.client.Messages.New(ctx, messageParams)
	if err != nil {
		return nil, fmt.Errorf("anthropic API error: %w", err)
	}
	if len(msg.Content) == 0 {
		return nil, fmt.Errorf("no content in Anthropic response")
	}

	c.lastUsage = message.TokenUsage{
		InputTokens:  int(msg.Usage.InputTokens),
		OutputTokens: int(msg.Usage.OutputTokens),
		TotalTokens:  int(msg.Usage.InputTokens + msg.Usage.OutputTokens),
	}
	c.hasUsage = true

	var content string
	var toolCalls []anthropic.ToolUseBlock
	for _, contentBlock := range msg.Content {
		switch variant := contentBlock.AsAny().(type) {
		case anthropic.TextBlock:
			content += variant.Text
		case anthropic.ToolUseBlock:
			toolCalls = append(toolCalls, variant)
		}
	}

	if len(toolCalls) > 0 {
		toolCall := toolCalls[0]
		toolArgs, err := parseToolInput(toolCall.Input)
		if err != nil {
			return nil, fmt.Errorf("failed to parse tool arguments: %w", err)
		}
		response := message.NewToolCallMessageWithID(
			toolCall.ID,
			message.ToolName(toolCall.Name),
			toolArgs,
			time.Now(),
		)
		response.SetTokenUsage(c.lastUsage.InputTokens, c.lastUsage.OutputTokens, c.lastUsage.TotalTokens)
		return response, nil
	}

	response := message.NewChatMessage(message.MessageTypeAssistant, content)
	response.SetTokenUsage(c.lastUsage.InputTokens, c.lastUsage.OutputTokens, c.lastUsage.TotalTokens)
	return response, nil
}
