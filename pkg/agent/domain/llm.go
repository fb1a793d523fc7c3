package domain

import (
	"context"
	"errors"

	"github.com/fpt/go-kaizen-cli/pkg/message"
)

var ErrInvalidClientType = errors.New("invalid client type for tool calling")

// LLM represents the base language model interface for basic chat functionality
type LLM interface {
	// Chat sends the conversation to the model and returns its response
	Chat(ctx context.Context, messages []message.Message) (message.Message, error)
}

// ToolCallingLLM extends LLM with tool calling capabilities
type ToolCallingLLM interface {
	LLM

	// SetToolManager sets the tool manager for this client
	SetToolManager(toolManager ToolManager)

	// ChatWithToolChoice sends the conversation with tool choice control
	ChatWithToolChoice(ctx context.Context, messages []message.Message, toolChoice ToolChoice) (message.Message, error)
}

// ToolChoiceType controls whether the model may, must, or must not call tools
type ToolChoiceType string

const (
	ToolChoiceAuto ToolChoiceType = "auto"
	ToolChoiceAny  ToolChoiceType = "any"
	ToolChoiceNone ToolChoiceType = "none"
	// ToolChoiceTool forces a specific tool named in ToolChoice.Name
	ToolChoiceTool ToolChoiceType = "tool"
)

// ToolChoice expresses a tool usage constraint for a single model call
type ToolChoice struct {
	Type ToolChoiceType
	Name message.ToolName
}
