package domain

import (
	"github.com/fpt/go-kaizen-cli/pkg/message"
)

// TokenUsageProvider is an optional extension that LLM clients can implement
// to expose token accounting from the most recent API call.
//
// Implementations return (usage, true) when the backend reported usage for
// the last Chat/ChatWithToolChoice invocation and (message.TokenUsage{},
// false) otherwise. Callers should treat this as a best-effort signal;
// backends may omit or delay usage reporting.
type TokenUsageProvider interface {
	LastTokenUsage() (message.TokenUsage, bool)
}

// ModelIdentifier is an optional extension that clients can implement to
// return a stable identifier for the underlying model. The session uses it to
// pick the context window limits for usage estimation.
type ModelIdentifier interface {
	ModelID() string
}
