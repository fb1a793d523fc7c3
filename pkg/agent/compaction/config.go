// Package compaction implements the context budget and compression engine:
// it estimates how much of a model's context window a conversation occupies,
// decides when compression should run, and reduces the message list using one
// of three interchangeable strategies while keeping tool call/result pairs
// intact and the recent tail verbatim.
package compaction

import "fmt"

// Strategy selects the compression algorithm. The set is closed; each value
// dispatches to a distinct pure reduction function.
type Strategy string

const (
	// StrategySummary replaces older exchanges with one synthetic digest message
	StrategySummary Strategy = "summary"
	// StrategySlidingWindow drops oldest messages first
	StrategySlidingWindow Strategy = "sliding-window"
	// StrategyImportance drops lowest-scoring messages first
	StrategyImportance Strategy = "importance"
)

// Config controls when and how a session's conversation is compressed.
// It is owned by the session configuration and treated as immutable during a
// compression run.
type Config struct {
	Enabled bool `json:"enabled"`

	// Threshold is the usage percentage (0-100) at which compression triggers
	Threshold int `json:"threshold"`

	Strategy Strategy `json:"strategy"`

	// PreserveToolHistory exempts all tool call/result pairs from removal
	PreserveToolHistory bool `json:"preserve_tool_history"`

	// PreserveRecentMessages is the number of trailing messages that survive
	// compression verbatim
	PreserveRecentMessages int `json:"preserve_recent_messages"`

	// NotifyBeforeCompression asks the caller to display a usage warning
	// before compression runs; the engine itself does not enforce sequencing
	NotifyBeforeCompression bool `json:"notify_before_compression"`
}

// DefaultConfig returns the compression configuration applied when the
// settings file has no compression block.
func DefaultConfig() Config {
	return Config{
		Enabled:                 true,
		Threshold:               80,
		Strategy:                StrategySummary,
		PreserveToolHistory:     false,
		PreserveRecentMessages:  10,
		NotifyBeforeCompression: true,
	}
}

// Validate rejects configuration values outside their documented domains.
// Malformed configuration is a programming or settings-file defect and must
// surface immediately rather than be silently normalized.
func (c Config) Validate() error {
	if c.Threshold < 0 || c.Threshold > 100 {
		return fmt.Errorf("compression threshold must be in [0,100], got %d", c.Threshold)
	}
	if c.PreserveRecentMessages < 0 {
		return fmt.Errorf("preserve_recent_messages must be non-negative, got %d", c.PreserveRecentMessages)
	}
	switch c.Strategy {
	case StrategySummary, StrategySlidingWindow, StrategyImportance:
	default:
		return fmt.Errorf("unknown compression strategy %q", c.Strategy)
	}
	return nil
}
