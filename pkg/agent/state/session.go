// Package state holds conversation history for a session and wires it to the
// compaction engine. A Session is safe for concurrent use; compression runs
// are mutually exclusive per session.
package state

import (
	"sync"

	"github.com/fpt/go-kaizen-cli/pkg/agent/compaction"
	"github.com/fpt/go-kaizen-cli/pkg/logger"
	"github.com/fpt/go-kaizen-cli/pkg/message"
)

var log = logger.NewComponentLogger("session")

// Session is the conversation state for one interactive session.
type Session struct {
	mu sync.Mutex

	messages []message.Message
	metadata map[string]any

	modelName   string
	compression *compaction.Config

	lastCompression *compaction.Result

	// persist, when set, is called with a snapshot after every state change
	// that survives a restart
	persist func([]message.Message)
}

// NewSession creates an empty session bound to a model name. The model name
// selects context window limits for usage estimation.
func NewSession(modelName string) *Session {
	return &Session{
		messages:  make([]message.Message, 0),
		metadata:  make(map[string]any),
		modelName: modelName,
	}
}

// SetCompressionConfig installs a compression configuration after validating
// it. A session without a configuration never compresses.
func (s *Session) SetCompressionConfig(cfg compaction.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.compression = &cfg
	return nil
}

// CompressionConfig returns the active configuration, or ok=false when the
// session has none.
func (s *Session) CompressionConfig() (compaction.Config, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.compression == nil {
		return compaction.Config{}, false
	}
	return *s.compression, true
}

// SetStrategy switches the compression strategy in place.
func (s *Session) SetStrategy(strategy compaction.Strategy) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.compression == nil {
		cfg := compaction.DefaultConfig()
		s.compression = &cfg
	}
	cfg := *s.compression
	cfg.Strategy = strategy
	if err := cfg.Validate(); err != nil {
		return err
	}
	s.compression = &cfg
	return nil
}

// SetPersistFunc installs a hook invoked with a message snapshot after every
// mutation. Used by the app layer to write the session file.
func (s *Session) SetPersistFunc(fn func([]message.Message)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.persist = fn
}

// ModelName returns the model the session estimates usage against.
func (s *Session) ModelName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.modelName
}

// SetModelName rebinds the session to a different model.
func (s *Session) SetModelName(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.modelName = name
}

func (s *Session) GetMessages() []message.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]message.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

func (s *Session) AddMessage(msg message.Message) {
	s.mu.Lock()
	s.messages = append(s.messages, msg)
	snapshot := s.snapshotLocked()
	persist := s.persist
	s.mu.Unlock()
	if persist != nil {
		persist(snapshot)
	}
}

func (s *Session) GetLastMessage() message.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.messages) == 0 {
		return nil
	}
	return s.messages[len(s.messages)-1]
}

func (s *Session) Clear() {
	s.mu.Lock()
	s.messages = make([]message.Message, 0)
	s.lastCompression = nil
	persist := s.persist
	s.mu.Unlock()
	if persist != nil {
		persist(nil)
	}
}

// MessageCount returns the number of messages in the history.
func (s *Session) MessageCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}

// RemoveMessagesBySource removes all messages with the specified source and
// returns the number removed.
func (s *Session) RemoveMessagesBySource(source message.MessageSource) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	filtered := make([]message.Message, 0, len(s.messages))
	removed := 0
	for _, msg := range s.messages {
		if msg.Source() == source {
			removed++
			continue
		}
		filtered = append(filtered, msg)
	}
	if removed > 0 {
		s.messages = filtered
	}
	return removed
}

// ContextUsage reports estimated context occupancy for the session's model.
func (s *Session) ContextUsage() compaction.Usage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return compaction.CalculateUsage(s.messages, s.modelName)
}

// LastCompression returns the result of the most recent compression attempt,
// or nil when none has run since the session was created or cleared.
func (s *Session) LastCompression() *compaction.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastCompression
}

// CheckAndPerformCompression runs the compaction engine against the current
// history and swaps in the reduced conversation when compression happened.
// It returns nil only when the session has no compression configuration;
// every skip path still produces a Result explaining itself. The session
// mutex makes concurrent calls mutually exclusive.
func (s *Session) CheckAndPerformCompression() *compaction.Result {
	s.mu.Lock()
	if s.compression == nil {
		s.mu.Unlock()
		return nil
	}
	cfg := *s.compression
	s.mu.Unlock()
	return s.compressWith(cfg)
}

// ForceCompression compresses immediately, ignoring the configured threshold
// and the enabled flag. Used by the manual compact command. Returns nil only
// when the session has no compression configuration.
func (s *Session) ForceCompression() *compaction.Result {
	s.mu.Lock()
	if s.compression == nil {
		s.mu.Unlock()
		return nil
	}
	cfg := *s.compression
	s.mu.Unlock()

	cfg.Enabled = true
	cfg.Threshold = 0
	return s.compressWith(cfg)
}

func (s *Session) compressWith(cfg compaction.Config) *compaction.Result {
	s.mu.Lock()
	snapshot := s.snapshotLocked()
	modelName := s.modelName
	s.mu.Unlock()

	result := compaction.Compress(snapshot, cfg, modelName)

	s.mu.Lock()
	s.lastCompression = &result
	var persist func([]message.Message)
	var persisted []message.Message
	if result.Compressed {
		// discard the run if the history changed while compressing
		if sameMessages(s.messages, snapshot) {
			s.messages = result.CompressedMessages
			persist = s.persist
			persisted = s.snapshotLocked()
		} else {
			log.Debug("Discarding compression result, history changed during run")
			result.Compressed = false
			result.Message = "history changed during compression; result discarded"
			s.lastCompression = &result
		}
	}
	s.mu.Unlock()

	if persist != nil {
		persist(persisted)
	}
	return &result
}

func (s *Session) snapshotLocked() []message.Message {
	out := make([]message.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

func sameMessages(a, b []message.Message) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].ID() != b[i].ID() {
			return false
		}
	}
	return true
}

// GetValidConversationHistory returns up to maxMessages recent messages while
// keeping tool call/result pairs together. Orphaned tool messages are skipped
// to avoid API validation errors when replaying history.
func (s *Session) GetValidConversationHistory(maxMessages int) []message.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.messages) == 0 {
		return nil
	}

	complete := make(map[string]bool)
	for i, msg := range s.messages {
		if msg.Type() != message.MessageTypeToolCall {
			continue
		}
		for j := i + 1; j < len(s.messages); j++ {
			if s.messages[j].Type() == message.MessageTypeToolResult && s.messages[j].ID() == msg.ID() {
				complete[msg.ID()] = true
				break
			}
		}
	}

	var valid []message.Message
	for i := len(s.messages) - 1; i >= 0 && len(valid) < maxMessages; i-- {
		msg := s.messages[i]
		switch msg.Type() {
		case message.MessageTypeToolCall, message.MessageTypeToolResult:
			if complete[msg.ID()] {
				valid = append([]message.Message{msg}, valid...)
			}
		default:
			valid = append([]message.Message{msg}, valid...)
		}
	}
	return valid
}
