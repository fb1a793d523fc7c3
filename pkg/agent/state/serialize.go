package state

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"

	"github.com/fpt/go-kaizen-cli/pkg/agent/compaction"
	"github.com/fpt/go-kaizen-cli/pkg/message"
)

// SerializableMessage is the on-disk form of a message
type SerializableMessage struct {
	ID        string                `json:"id"`
	Type      message.MessageType   `json:"type"`
	Content   string                `json:"content"`
	Timestamp time.Time             `json:"timestamp"`
	Source    message.MessageSource `json:"source"`

	// For tool messages
	ToolName string         `json:"tool_name,omitempty"`
	Args     map[string]any `json:"args,omitempty"`
	Result   string         `json:"result,omitempty"`
	Error    string         `json:"error,omitempty"`
}

// SerializableCompression is the on-disk form of the last compression result.
// The replacement message list is not stored; the messages list above already
// reflects it.
type SerializableCompression struct {
	Compressed           bool                `json:"compressed"`
	Strategy             compaction.Strategy `json:"strategy,omitempty"`
	OriginalTokenCount   int                 `json:"original_token_count"`
	CompressedTokenCount int                 `json:"compressed_token_count"`
	ReductionPercentage  int                 `json:"reduction_percentage"`
	Summary              string              `json:"summary,omitempty"`
	Message              string              `json:"message,omitempty"`
}

// SerializableState is the on-disk form of a session
type SerializableState struct {
	ModelName       string                   `json:"model_name,omitempty"`
	Messages        []SerializableMessage    `json:"messages"`
	Metadata        map[string]any           `json:"metadata,omitempty"`
	LastCompression *SerializableCompression `json:"last_compression,omitempty"`
}

func compressionToSerializable(r *compaction.Result) *SerializableCompression {
	if r == nil {
		return nil
	}
	return &SerializableCompression{
		Compressed:           r.Compressed,
		Strategy:             r.Strategy,
		OriginalTokenCount:   r.OriginalTokenCount,
		CompressedTokenCount: r.CompressedTokenCount,
		ReductionPercentage:  r.ReductionPercentage,
		Summary:              r.Summary,
		Message:              r.Message,
	}
}

func serializableToCompression(s *SerializableCompression) *compaction.Result {
	if s == nil {
		return nil
	}
	return &compaction.Result{
		Compressed:           s.Compressed,
		Strategy:             s.Strategy,
		OriginalTokenCount:   s.OriginalTokenCount,
		CompressedTokenCount: s.CompressedTokenCount,
		ReductionPercentage:  s.ReductionPercentage,
		Summary:              s.Summary,
		Message:              s.Message,
	}
}

func messageToSerializable(msg message.Message) SerializableMessage {
	if msg == nil {
		return SerializableMessage{}
	}

	serializable := SerializableMessage{
		ID:        msg.ID(),
		Type:      msg.Type(),
		Content:   msg.Content(),
		Timestamp: msg.Timestamp(),
		Source:    msg.Source(),
	}

	switch msg.Type() {
	case message.MessageTypeToolCall:
		if toolCall, ok := msg.(*message.ToolCallMessage); ok {
			serializable.ToolName = string(toolCall.ToolName())
			args := make(map[string]any)
			for k, v := range toolCall.ToolArguments() {
				args[k] = v
			}
			serializable.Args = args
		}
	case message.MessageTypeToolResult:
		if toolResult, ok := msg.(*message.ToolResultMessage); ok {
			serializable.Result = toolResult.Result
			serializable.Error = toolResult.Error
		} else {
			serializable.Result = msg.Content()
		}
	}

	return serializable
}

func serializableToMessage(s SerializableMessage) message.Message {
	switch s.Type {
	case message.MessageTypeToolCall:
		args := make(message.ToolArgumentValues)
		for k, v := range s.Args {
			args[k] = v
		}
		return message.NewToolCallMessageWithID(s.ID, message.ToolName(s.ToolName), args, s.Timestamp)
	case message.MessageTypeToolResult:
		return message.NewToolResultMessage(s.ID, s.Result, s.Error)
	case message.MessageTypeSystem:
		return message.NewSystemMessage(s.Content)
	default:
		if s.Source == message.MessageSourceSummary {
			return message.NewSummaryMessage(s.Content)
		}
		return message.NewChatMessage(s.Type, s.Content)
	}
}

// Serialize serializes the session to JSON bytes.
func (s *Session) Serialize() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	serializableMessages := make([]SerializableMessage, len(s.messages))
	for i, msg := range s.messages {
		serializableMessages[i] = messageToSerializable(msg)
	}
	return json.MarshalIndent(SerializableState{
		ModelName:       s.modelName,
		Messages:        serializableMessages,
		Metadata:        s.metadata,
		LastCompression: compressionToSerializable(s.lastCompression),
	}, "", "  ")
}

// Deserialize replaces the session contents with the given JSON state.
func (s *Session) Deserialize(data []byte) error {
	var serialized SerializableState
	if err := json.Unmarshal(data, &serialized); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = make([]message.Message, len(serialized.Messages))
	for i, sm := range serialized.Messages {
		s.messages[i] = serializableToMessage(sm)
	}
	s.metadata = serialized.Metadata
	if s.metadata == nil {
		s.metadata = make(map[string]any)
	}
	s.lastCompression = serializableToCompression(serialized.LastCompression)
	if serialized.ModelName != "" {
		s.modelName = serialized.ModelName
	}
	return nil
}

// SaveToFile writes the session state to a file, creating parent directories.
func (s *Session) SaveToFile(filePath string) error {
	data, err := s.Serialize()
	if err != nil {
		return errors.Wrap(err, "failed to serialize session")
	}

	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrapf(err, "failed to create directory %s", dir)
	}
	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return errors.Wrapf(err, "failed to write session file %s", filePath)
	}
	return nil
}

// LoadFromFile restores the session state from a file. A missing file yields
// an empty session rather than an error.
func (s *Session) LoadFromFile(filePath string) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			s.mu.Lock()
			s.messages = make([]message.Message, 0)
			s.metadata = make(map[string]any)
			s.lastCompression = nil
			s.mu.Unlock()
			return nil
		}
		return errors.Wrapf(err, "failed to read session file %s", filePath)
	}

	if err := s.Deserialize(data); err != nil {
		return errors.Wrapf(err, "failed to deserialize session from %s", filePath)
	}
	return nil
}
