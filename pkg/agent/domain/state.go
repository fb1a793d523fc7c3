package domain

import (
	"github.com/fpt/go-kaizen-cli/pkg/message"

	"github.com/fpt/go-kaizen-cli/pkg/agent/compaction"
)

// State is the conversation history owned by a session. Implementations must
// be safe for concurrent use; compression runs against a stable snapshot.
type State interface {
	GetMessages() []message.Message
	AddMessage(msg message.Message)
	GetLastMessage() message.Message
	Clear()

	// RemoveMessagesBySource removes all messages with the given source and
	// returns how many were removed
	RemoveMessagesBySource(source message.MessageSource) int

	// ContextUsage reports estimated context occupancy for the session's model
	ContextUsage() compaction.Usage

	// CheckAndPerformCompression compresses the history in place when the
	// configured threshold is reached. Returns nil only when the session has
	// no compression configuration.
	CheckAndPerformCompression() *compaction.Result

	// Context persistence
	Serialize() ([]byte, error)
	Deserialize(data []byte) error
	SaveToFile(filePath string) error
	LoadFromFile(filePath string) error
}
