package compaction

import "github.com/fpt/go-kaizen-cli/pkg/message"

// Result reports the outcome of a compression attempt. Compressed is false for
// every skip path (disabled, empty conversation, below threshold, nothing
// removable, no effective change) and Message explains which path was taken.
type Result struct {
	Compressed           bool
	Strategy             Strategy
	OriginalTokenCount   int
	CompressedTokenCount int

	// ReductionPercentage is clamped to be non-negative
	ReductionPercentage int

	// Summary holds the generated digest text for the summary strategy
	Summary string

	Message string

	// CompressedMessages is the replacement conversation when Compressed is
	// true; nil otherwise. The input slice is never mutated.
	CompressedMessages []message.Message
}
