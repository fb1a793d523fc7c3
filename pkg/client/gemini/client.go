package gemini

import (
	"context"
	"fmt"
	"os"

	"google.golang.org/genai"

	"github.com/fpt/go-kaizen-cli/pkg/agent/domain"
	"github.com/fpt/go-kaizen-cli/pkg/message"
)

const defaultMaxTokens = 8192

// GeminiCore holds shared resources for Gemini clients
type GeminiCore struct {
	client    *genai.Client
	model     string
	maxTokens int
}

// GeminiClient implements domain.ToolCallingLLM via the GenAI SDK
type GeminiClient struct {
	*GeminiCore
	toolManager domain.ToolManager
	lastUsage   message.TokenUsage
	hasUsage    bool
}

// NewGeminiClient creates a new Gemini client with the specified model
func NewGeminiClient(model string) (*GeminiClient, error) {
	return NewGeminiClientWithTokens(model, 0)
}

// NewGeminiClientWithTokens creates a new Gemini client with configurable maxTokens
func NewGeminiClientWithTokens(model string, maxTokens int) (*GeminiClient, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY environment variable not set")
	}

	ctx := context.Background()
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	return &GeminiClient{
		GeminiCore: &GeminiCore{
			client:    client,
			model:     model,
			maxTokens: maxTokens,
		},
	}, nil
}

// SetToolManager implements ToolCallingLLM
func (c *GeminiClient) SetToolManager(toolManager domain.ToolManager) {
	c.toolManager = toolManager
}

// ModelID returns the configured model identifier
func (c *GeminiClient) ModelID() string {
	return c.model
}

// LastTokenUsage returns token accounting from the most recent API call
func (c *GeminiClient) LastTokenUsage() (message.TokenUsage, bool) {
	return c.lastUsage, c.hasUsage
}

// Chat implements the basic LLM interface
func (c *GeminiClient) Chat(ctx context.Context, messages []message.Message) (message.Message, error) {
	return c.ChatWithToolChoice(ctx, messages, domain.ToolChoice{Type: domain.ToolChoiceAuto})
}

// ChatWithToolChoice implements ToolCallingLLM with native Gemini function calling
func (c *GeminiClient) ChatWithToolChoice(ctx context.Context, messages []message.Message, toolChoice domain.ToolChoice) (message.Message, error) {
	contents, systemInstruction := toGeminiContents(messages)

	config := &genai.GenerateContentConfig{
		MaxOutputTokens: int32(c.maxTokens),
	}
	if systemInstruction != nil {
		config.SystemInstruction = systemInstruction
	}

	if c.toolManager != nil {
		tools := convertToolsToGemini(c.toolManager.GetTools())
		if len(tools) > 0 {
			config.Tools = tools
			config.ToolConfig = convertToolChoiceToGemini(toolChoice)
		}
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, config)
	if err != nil {
		return nil, fmt.Errorf("Gemini API call failed: %w", err)
	}
	if len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("no response from Gemini")
	}

	if resp.UsageMetadata != nil {
		c.lastUsage = message.TokenUsage{
			InputTokens:  int(resp.UsageMetadata.PromptTokenCount),
			OutputTokens: int(resp.UsageMetadata.CandidatesTokenCount),
			TotalTokens:  int(resp.UsageMetadata.TotalTokenCount),
		}
		c.hasUsage = true
	}

	if resp.Candidates[0].Content != nil {
		for _, part := range resp.Candidates[0].Content.Parts {
			if part.FunctionCall != nil {
				response := message.NewToolCallMessage(
					message.ToolName(part.FunctionCall.Name),
					message.ToolArgumentValues(part.FunctionCall.Args),
				)
				response.SetTokenUsage(c.lastUsage.InputTokens, c.lastUsage.OutputTokens, c.lastUsage.TotalTokens)
				return response, nil
			}
		}
	}

	responseText := resp.Text()
	if responseText == "" {
		return nil, fmt.Errorf("empty response from Gemini")
	}

	response := message.NewChatMessage(message.MessageTypeAssistant, responseText)
	response.SetTokenUsage(c.lastUsage.InputTokens, c.lastUsage.OutputTokens, c.lastUsage.TotalTokens)
	return response, nil
}
