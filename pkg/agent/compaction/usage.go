package compaction

import (
	"fmt"
	"math"

	"github.com/fpt/go-kaizen-cli/pkg/message"
	"github.com/fpt/go-kaizen-cli/pkg/tokens"
)

// Usage is a point-in-time snapshot of how much of the model's context window
// a conversation occupies.
type Usage struct {
	InputTokens     int
	OutputTokens    int
	TotalTokens     int
	ContextLimit    int
	UsagePercentage int
	RemainingTokens int
	IsNearLimit     bool
	IsOverflow      bool
}

// nearLimitPercentage marks the usage band where compression and warnings
// become relevant.
const nearLimitPercentage = 80

// CalculateUsage estimates context occupancy for the conversation against the
// limits of the named model. User messages count toward input tokens and
// assistant messages toward output tokens; tool traffic is deliberately
// excluded because providers re-tokenize tool payloads differently and the
// estimate must stay conservative and reproducible.
func CalculateUsage(messages []message.Message, modelName string) Usage {
	limits := tokens.LimitsFor(modelName)

	var input, output int
	for _, msg := range messages {
		switch msg.Type() {
		case message.MessageTypeUser:
			input += tokens.Estimate(msg.Content())
		case message.MessageTypeAssistant:
			output += tokens.Estimate(msg.Content())
		}
	}

	total := input + output
	pct := percentOf(total, limits.Context)

	return Usage{
		InputTokens:     input,
		OutputTokens:    output,
		TotalTokens:     total,
		ContextLimit:    limits.Context,
		UsagePercentage: pct,
		RemainingTokens: limits.Context - total,
		IsNearLimit:     pct >= nearLimitPercentage,
		IsOverflow:      total > limits.Context,
	}
}

// percentOf rounds to the nearest whole percent. Rounding happens before any
// threshold comparison so that 79.5% already counts as 80%.
func percentOf(part, whole int) int {
	if whole <= 0 {
		return 0
	}
	return int(math.Round(float64(part) / float64(whole) * 100))
}

// StatusLine renders the usage snapshot as a one-line status indicator with a
// severity icon. Bands: green below 50%, yellow 50-79%, orange 80-89%, red at
// 90% and above or on overflow.
func (u Usage) StatusLine() string {
	icon := "🟢"
	switch {
	case u.IsOverflow || u.UsagePercentage >= 90:
		icon = "🔴"
	case u.UsagePercentage >= nearLimitPercentage:
		icon = "🟠"
	case u.UsagePercentage >= 50:
		icon = "🟡"
	}

	line := fmt.Sprintf("%s Context: %d%% (%d/%d tokens, %d remaining)",
		icon, u.UsagePercentage, u.TotalTokens, u.ContextLimit, u.RemainingTokens)
	if u.IsOverflow {
		line += " [OVERFLOW]"
	}
	return line
}
