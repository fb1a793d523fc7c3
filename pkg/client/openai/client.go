package openai

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/openai/openai-go/v2/shared"

	"github.com/fpt/go-kaizen-cli/pkg/agent/domain"
	"github.com/fpt/go-kaizen-cli/pkg/message"
)

const defaultMaxTokens = 8192

// OpenAICore holds shared resources for OpenAI clients
type OpenAICore struct {
	client    *openai.Client
	model     string
	maxTokens int
}

// OpenAIClient implements domain.ToolCallingLLM against the Chat Completions API
type OpenAIClient struct {
	*OpenAICore
	toolManager domain.ToolManager
	lastUsage   message.TokenUsage
	hasUsage    bool
}

// NewOpenAIClient creates a new OpenAI client with the specified model
func NewOpenAIClient(model string) (*OpenAIClient, error) {
	return NewOpenAIClientWithTokens(model, 0)
}

// NewOpenAIClientWithTokens creates a new OpenAI client with configurable maxTokens
func NewOpenAIClientWithTokens(model string, maxTokens int) (*OpenAIClient, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY environment variable not set")
	}

	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	// Custom base URL supports Azure OpenAI and compatible gateways
	if baseURL := os.Getenv("OPENAI_BASE_URL"); baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	client := openai.NewClient(opts...)

	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	return &OpenAIClient{
		OpenAICore: &OpenAICore{
			client:    &client,
			model:     model,
			maxTokens: maxTokens,
		},
	}, nil
}

// SetToolManager implements ToolCallingLLM
func (c *OpenAIClient) SetToolManager(toolManager domain.ToolManager) {
	c.toolManager = toolManager
}

// ModelID returns the configured model identifier
func (c *OpenAIClient) ModelID() string {
	return c.model
}

// LastTokenUsage returns token accounting from the most recent API call
func (c *OpenAIClient) LastTokenUsage() (message.TokenUsage, bool) {
	return c.lastUsage, c.hasUsage
}

// Chat implements the basic LLM interface
func (c *OpenAIClient) Chat(ctx context.Context, messages []message.Message) (message.Message, error) {
	return c.ChatWithToolChoice(ctx, messages, domain.ToolChoice{Type: domain.ToolChoiceAuto})
}

// ChatWithToolChoice implements ToolCallingLLM with native OpenAI tool calling
func (c *OpenAIClient) ChatWithToolChoice(ctx context.Context, messages []message.Message, toolChoice domain.ToolChoice) (message.Message, error) {
	params := openai.ChatCompletionNewParams{
		Messages:            toOpenAIMessages(messages),
		Model:               shared.ChatModel(c.model),
		MaxCompletionTokens: openai.Int(int64(c.maxTokens)),
	}

	if c.toolManager != nil {
		tools := convertToolsToOpenAI(c.toolManager.GetTools())
		if len(tools) > 0 {
			params.Tools = tools
			params.ToolChoice = convertToolChoiceToOpenAI(toolChoice)
		}
	}

	completion, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("OpenAI API call failed: %w", err)
	}
	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("no response from OpenAI")
	}

	c.lastUsage = message.TokenUsage{
		InputTokens:  int(completion.Usage.PromptTokens),
		OutputTokens: int(completion.Usage.CompletionTokens),
		TotalTokens:  int(completion.Usage.TotalTokens),
	}
	c.hasUsage = true

	choice := completion.Choices[0]
	if len(choice.Message.ToolCalls) > 0 {
		toolCall := choice.Message.ToolCalls[0]
		// OpenAI's tool call ID pairs the call with its result message
		response := message.NewToolCallMessageWithID(
			toolCall.ID,
			message.ToolName(toolCall.Function.Name),
			convertOpenAIArgsToToolArgs(toolCall.Function.Arguments),
			time.Now(),
		)
		response.SetTokenUsage(c.lastUsage.InputTokens, c.lastUsage.OutputTokens, c.lastUsage.TotalTokens)
		return response, nil
	}

	response := message.NewChatMessage(message.MessageTypeAssistant, choice.Message.Content)
	response.SetTokenUsage(c.lastUsage.InputTokens, c.lastUsage.OutputTokens, c.lastUsage.TotalTokens)
	return response, nil
}
