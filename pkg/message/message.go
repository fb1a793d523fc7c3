package message

import (
	"fmt"
	"sync/atomic"
	"time"
)

// MessageType identifies the role of a message in the conversation
type MessageType string

const (
	MessageTypeUser       MessageType = "user"
	MessageTypeAssistant  MessageType = "assistant"
	MessageTypeSystem     MessageType = "system"
	MessageTypeToolCall   MessageType = "tool_call"
	MessageTypeToolResult MessageType = "tool_result"
)

func (t MessageType) String() string {
	return string(t)
}

// MessageSource tracks who injected a message. Regular conversation messages
// carry MessageSourceDefault; synthetic summary messages created by compression
// carry MessageSourceSummary so they can be located and replaced later.
type MessageSource string

const (
	MessageSourceDefault MessageSource = "default"
	MessageSourceSummary MessageSource = "summary"
)

// TokenUsage holds token accounting reported by an LLM backend for one call
type TokenUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// Message is the neutral conversation message used across clients, state and
// the compression engine
type Message interface {
	ID() string
	Type() MessageType
	Content() string
	Timestamp() time.Time
	Source() MessageSource

	// Token usage reported by the backend for the API call that produced
	// this message (zero when unavailable)
	InputTokens() int
	OutputTokens() int
	TotalTokens() int
	SetTokenUsage(input, output, total int)
}

var messageCounter uint64

// newMessageID generates a process-unique message ID
func newMessageID() string {
	n := atomic.AddUint64(&messageCounter, 1)
	return fmt.Sprintf("msg_%d_%d", time.Now().UnixNano(), n)
}

// baseMessage carries the fields shared by all message kinds
type baseMessage struct {
	id        string
	timestamp time.Time
	source    MessageSource
	usage     TokenUsage
}

func (b *baseMessage) ID() string            { return b.id }
func (b *baseMessage) Timestamp() time.Time  { return b.timestamp }
func (b *baseMessage) Source() MessageSource { return b.source }
func (b *baseMessage) InputTokens() int      { return b.usage.InputTokens }
func (b *baseMessage) OutputTokens() int     { return b.usage.OutputTokens }
func (b *baseMessage) TotalTokens() int      { return b.usage.TotalTokens }

func (b *baseMessage) SetTokenUsage(input, output, total int) {
	b.usage = TokenUsage{InputTokens: input, OutputTokens: output, TotalTokens: total}
}

// ChatMessage is a plain user, assistant or system message
type ChatMessage struct {
	baseMessage
	msgType MessageType
	content string
}

// NewChatMessage creates a chat message of the given type
func NewChatMessage(msgType MessageType, content string) *ChatMessage {
	return &ChatMessage{
		baseMessage: baseMessage{id: newMessageID(), timestamp: time.Now(), source: MessageSourceDefault},
		msgType:     msgType,
		content:     content,
	}
}

// NewSystemMessage creates a system message
func NewSystemMessage(content string) *ChatMessage {
	return NewChatMessage(MessageTypeSystem, content)
}

// NewSummaryMessage creates a synthetic assistant message holding a
// compression summary. It is tagged with MessageSourceSummary so later
// compression passes can recognize it and so its tokens are charged against
// the assistant output budget like any other assistant text.
func NewSummaryMessage(content string) *ChatMessage {
	msg := NewChatMessage(MessageTypeAssistant, content)
	msg.source = MessageSourceSummary
	return msg
}

func (m *ChatMessage) Type() MessageType { return m.msgType }
func (m *ChatMessage) Content() string   { return m.content }

// ToolCallMessage records the model asking for a tool invocation. Its ID links
// it to the ToolResultMessage produced by executing the call; the two always
// travel together through compression.
type ToolCallMessage struct {
	baseMessage
	toolName ToolName
	toolArgs ToolArgumentValues
}

// NewToolCallMessage creates a tool call message with a generated ID
func NewToolCallMessage(name ToolName, args ToolArgumentValues) *ToolCallMessage {
	return NewToolCallMessageWithID(newMessageID(), name, args, time.Now())
}

// NewToolCallMessageWithID creates a tool call message preserving a
// backend-assigned call ID and timestamp
func NewToolCallMessageWithID(id string, name ToolName, args ToolArgumentValues, timestamp time.Time) *ToolCallMessage {
	return &ToolCallMessage{
		baseMessage: baseMessage{id: id, timestamp: timestamp, source: MessageSourceDefault},
		toolName:    name,
		toolArgs:    args,
	}
}

func (m *ToolCallMessage) Type() MessageType { return MessageTypeToolCall }

func (m *ToolCallMessage) Content() string {
	return fmt.Sprintf("Tool call: %s", m.toolName)
}

func (m *ToolCallMessage) ToolName() ToolName                 { return m.toolName }
func (m *ToolCallMessage) ToolArguments() ToolArgumentValues  { return m.toolArgs }

// ToolResultMessage records the outcome of executing a tool call. Its ID
// matches the originating ToolCallMessage.
type ToolResultMessage struct {
	baseMessage
	Result string
	Error  string
}

// NewToolResultMessage creates a tool result message paired to the call with
// the same ID
func NewToolResultMessage(id string, result string, errText string) *ToolResultMessage {
	return &ToolResultMessage{
		baseMessage: baseMessage{id: id, timestamp: time.Now(), source: MessageSourceDefault},
		Result:      result,
		Error:       errText,
	}
}

func (m *ToolResultMessage) Type() MessageType { return MessageTypeToolResult }

func (m *ToolResultMessage) Content() string {
	if m.Error != "" {
		return fmt.Sprintf("Error: %s", m.Error)
	}
	return m.Result
}
