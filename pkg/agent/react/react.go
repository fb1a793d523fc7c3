// Package react implements the tool-calling agent loop. The model is asked
// for a response, tool calls are executed and fed back, and the loop repeats
// until the model produces a final answer or the iteration limit is hit.
package react

import (
	"context"
	"fmt"
	"strings"

	"github.com/fpt/go-kaizen-cli/pkg/agent/domain"
	"github.com/fpt/go-kaizen-cli/pkg/message"
)

// ReAct drives the reason-act loop against an LLM client and a tool manager,
// recording the full exchange in shared conversation state.
type ReAct struct {
	llmClient     domain.LLM
	state         domain.State
	toolManager   domain.ToolManager
	maxIterations int
	notifyUsage   bool
}

// NewReAct creates an agent loop over the given client, tools and state.
// notifyUsage enables the context usage warning printed when the
// conversation approaches the model's context limit.
func NewReAct(llmClient domain.LLM, toolManager domain.ToolManager, sharedState domain.State, maxIterations int, notifyUsage bool) *ReAct {
	return &ReAct{
		llmClient:     llmClient,
		toolManager:   toolManager,
		state:         sharedState,
		maxIterations: maxIterations,
		notifyUsage:   notifyUsage,
	}
}

// GetLastMessage returns the last message in the conversation without exposing state
func (r *ReAct) GetLastMessage() message.Message {
	return r.state.GetLastMessage()
}

// ClearHistory clears the conversation history without exposing state
func (r *ReAct) ClearHistory() {
	r.state.Clear()
}

// chatWithToolChoice uses tool choice control if the LLM client supports it
func (r *ReAct) chatWithToolChoice(ctx context.Context, messages []message.Message, toolChoice domain.ToolChoice) (message.Message, error) {
	if toolClient, ok := r.llmClient.(domain.ToolCallingLLM); ok {
		return toolClient.ChatWithToolChoice(ctx, messages, toolChoice)
	}
	// Non-tool-calling clients still work; they just never emit tool calls
	return r.llmClient.Chat(ctx, messages)
}

// annotateAndLogUsage attaches token usage (when available) to the response
// message and prints a concise usage line for quick visibility.
func (r *ReAct) annotateAndLogUsage(resp message.Message) {
	modelID := ""
	if idProvider, ok := r.llmClient.(domain.ModelIdentifier); ok {
		modelID = idProvider.ModelID()
	}

	if usageProvider, ok := r.llmClient.(domain.TokenUsageProvider); ok {
		if usage, ok2 := usageProvider.LastTokenUsage(); ok2 {
			resp.SetTokenUsage(usage.InputTokens, usage.OutputTokens, usage.TotalTokens)
			if modelID != "" {
				fmt.Printf("📈 Tokens [%s]: in %d, out %d, total %d\n", modelID, usage.InputTokens, usage.OutputTokens, usage.TotalTokens)
			} else {
				fmt.Printf("📈 Tokens: in %d, out %d, total %d\n", usage.InputTokens, usage.OutputTokens, usage.TotalTokens)
			}
		}
	}
}

// maintainContext warns when the conversation nears the context limit and
// lets the session compress itself when its threshold is reached.
func (r *ReAct) maintainContext() {
	if r.notifyUsage {
		if usage := r.state.ContextUsage(); usage.IsNearLimit {
			fmt.Printf("%s\n", usage.StatusLine())
		}
	}

	result := r.state.CheckAndPerformCompression()
	if result != nil && result.Compressed {
		fmt.Printf("📦 %s\n", result.Message)
	}
}

// Invoke runs one user turn through the agent loop and returns the model's
// final answer.
func (r *ReAct) Invoke(ctx context.Context, input string) (message.Message, error) {
	loopLimit := r.maxIterations

	userMessage := message.NewChatMessage(message.MessageTypeUser, input)
	r.state.AddMessage(userMessage)

	for i := 0; i < loopLimit; i++ {
		r.maintainContext()
		messages := r.state.GetMessages()

		var resp message.Message
		var err error
		if r.toolManager != nil && len(r.toolManager.GetTools()) > 0 {
			resp, err = r.chatWithToolChoice(ctx, messages, domain.ToolChoice{Type: domain.ToolChoiceAuto})
		} else {
			resp, err = r.llmClient.Chat(ctx, messages)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to get response from LLM client: %w", err)
		}

		r.annotateAndLogUsage(resp)
		r.printMinifiedResponse(resp)

		switch resp := resp.(type) {
		case *message.ChatMessage:
			r.state.AddMessage(resp)
			return resp, nil

		case *message.ToolCallMessage:
			r.state.AddMessage(resp)

			fmt.Printf("🔧 Running tool: %s\n", resp.ToolName())
			msg, err := r.handleToolCall(ctx, resp)
			if err != nil {
				return nil, fmt.Errorf("failed to handle tool call: %w", err)
			}

			r.printTruncatedToolResult(msg)
			r.state.AddMessage(msg)
			// Continue to next iteration to process the tool result

		default:
			return nil, fmt.Errorf("unexpected response type: %T", resp)
		}
	}

	return nil, fmt.Errorf("exceeded maximum loop limit (%d) without a valid response", loopLimit)
}

func (r *ReAct) handleToolCall(ctx context.Context, toolCall *message.ToolCallMessage) (message.Message, error) {
	id := toolCall.ID()
	toolName := toolCall.ToolName()
	toolArgs := toolCall.ToolArguments()

	toolResult, err := r.toolManager.CallTool(ctx, toolName, toolArgs)
	if err != nil {
		return nil, fmt.Errorf("tool execution failed: %v", err)
	}

	// Tool failures come back as results the model can read
	if toolResult.Error != "" {
		return message.NewToolResultMessage(id, "", toolResult.Error), nil
	}
	return message.NewToolResultMessage(id, toolResult.Text, ""), nil
}

// printMinifiedResponse shows a clean, minified version of the agent's response
func (r *ReAct) printMinifiedResponse(resp message.Message) {
	switch msg := resp.(type) {
	case *message.ChatMessage:
		if msg.Type() == message.MessageTypeAssistant {
			content := msg.Content()
			if len(content) > 100 {
				content = content[:100] + "..."
			}
			fmt.Printf("💭 %s\n", content)
		}
	case *message.ToolCallMessage:
		fmt.Printf("🔧 Calling: %s\n", msg.ToolName())
	}
}

// printTruncatedToolResult shows tool output with truncation for success,
// full output for errors
func (r *ReAct) printTruncatedToolResult(msg message.Message) {
	content := msg.Content()
	if content == "" {
		fmt.Println("   ↳ (no output)")
		return
	}

	isError := strings.HasPrefix(content, "Error:")
	lines := strings.Split(content, "\n")

	if isError {
		for _, line := range lines {
			fmt.Printf("   ↳ %s\n", line)
		}
		return
	}

	// Show last 5 lines maximum for successful results
	maxLines := 5
	startLine := 0
	if len(lines) > maxLines {
		startLine = len(lines) - maxLines
		fmt.Printf("   ↳ ...(%d more lines)\n", startLine)
	}
	for i := startLine; i < len(lines); i++ {
		line := lines[i]
		if len(line) > 80 {
			line = line[:77] + "..."
		}
		fmt.Printf("   ↳ %s\n", line)
	}
}
