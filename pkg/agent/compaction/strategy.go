package compaction

import (
	"fmt"
	"sort"
	"strings"

	"github.com/fpt/go-kaizen-cli/pkg/message"
)

// segment is the unit of removal. A tool call and its matching result form one
// segment so that no strategy can separate them; every other message is a
// segment of its own.
type segment struct {
	messages []message.Message
	isPair   bool
}

// buildSegments groups a message slice into removal units. A ToolCallMessage
// immediately followed by its ToolResultMessage becomes a single pair segment.
// An orphaned call or result is still treated as a pair segment so that
// PreserveToolHistory covers it too.
func buildSegments(messages []message.Message) []segment {
	segments := make([]segment, 0, len(messages))
	for i := 0; i < len(messages); i++ {
		msg := messages[i]
		switch msg.Type() {
		case message.MessageTypeToolCall:
			if i+1 < len(messages) && messages[i+1].Type() == message.MessageTypeToolResult {
				segments = append(segments, segment{messages: []message.Message{msg, messages[i+1]}, isPair: true})
				i++
				continue
			}
			segments = append(segments, segment{messages: []message.Message{msg}, isPair: true})
		case message.MessageTypeToolResult:
			segments = append(segments, segment{messages: []message.Message{msg}, isPair: true})
		default:
			segments = append(segments, segment{messages: []message.Message{msg}})
		}
	}
	return segments
}

// splitAtRecencyFloor divides the conversation into a compressible head and a
// protected tail of at least n messages. The boundary is widened backward when
// it would land between a tool call and its result, so the floor can protect
// more messages than configured but never fewer.
func splitAtRecencyFloor(messages []message.Message, n int) (head, tail []message.Message) {
	if n <= 0 {
		return messages, nil
	}
	if n >= len(messages) {
		return nil, messages
	}
	boundary := len(messages) - n
	for boundary > 0 &&
		messages[boundary].Type() == message.MessageTypeToolResult &&
		messages[boundary-1].Type() == message.MessageTypeToolCall {
		boundary--
	}
	return messages[:boundary], messages[boundary:]
}

// removable reports whether a head segment may be dropped under the config.
func removable(seg segment, cfg Config) bool {
	if cfg.PreserveToolHistory && seg.isPair {
		return false
	}
	return true
}

func flatten(segments []segment, tail []message.Message) []message.Message {
	out := make([]message.Message, 0, len(tail))
	for _, seg := range segments {
		out = append(out, seg.messages...)
	}
	return append(out, tail...)
}

// underThreshold reports whether the candidate conversation now fits below the
// configured trigger percentage.
func underThreshold(messages []message.Message, cfg Config, modelName string) bool {
	return CalculateUsage(messages, modelName).UsagePercentage < cfg.Threshold
}

// applySlidingWindow drops the oldest removable segments one at a time until
// usage falls below the threshold or nothing removable remains.
func applySlidingWindow(messages []message.Message, cfg Config, modelName string) ([]message.Message, string) {
	head, tail := splitAtRecencyFloor(messages, cfg.PreserveRecentMessages)
	segments := buildSegments(head)

	for {
		if underThreshold(flatten(segments, tail), cfg, modelName) {
			break
		}
		dropped := false
		for i, seg := range segments {
			if removable(seg, cfg) {
				segments = append(segments[:i:i], segments[i+1:]...)
				dropped = true
				break
			}
		}
		if !dropped {
			break
		}
	}
	return flatten(segments, tail), ""
}

// applyImportance drops removable segments in ascending score order until
// usage falls below the threshold. Ties keep the older segment first in the
// drop order, matching the sliding-window bias toward recency.
func applyImportance(messages []message.Message, cfg Config, modelName string) ([]message.Message, string) {
	head, tail := splitAtRecencyFloor(messages, cfg.PreserveRecentMessages)
	segments := buildSegments(head)

	order := make([]int, 0, len(segments))
	for i, seg := range segments {
		if removable(seg, cfg) {
			order = append(order, i)
		}
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scoreSegment(segments[order[a]]) < scoreSegment(segments[order[b]])
	})

	removed := make(map[int]bool, len(order))
	for _, idx := range order {
		if underThreshold(flattenExcept(segments, removed, tail), cfg, modelName) {
			break
		}
		removed[idx] = true
	}
	return flattenExcept(segments, removed, tail), ""
}

func flattenExcept(segments []segment, removed map[int]bool, tail []message.Message) []message.Message {
	out := make([]message.Message, 0, len(tail))
	for i, seg := range segments {
		if removed[i] {
			continue
		}
		out = append(out, seg.messages...)
	}
	return append(out, tail...)
}

// scoreSegment assigns a retention score. Higher scores survive longer.
// Errors and code blocks carry the most context for the ongoing task, tool
// activity documents what was actually done, and very short chatter carries
// the least.
func scoreSegment(seg segment) int {
	var b strings.Builder
	for _, m := range seg.messages {
		b.WriteString(m.Content())
		b.WriteString("\n")
	}
	text := b.String()
	lower := strings.ToLower(text)

	score := 0
	for _, kw := range []string{"error", "fail", "panic", "fatal"} {
		if strings.Contains(lower, kw) {
			score += 40
			break
		}
	}
	if strings.Contains(text, "```") {
		score += 30
	}
	if seg.isPair {
		score += 20
	}
	switch {
	case len(text) > 600:
		score += 10
	case len(text) < 80:
		score -= 20
	}
	return score
}

// applySummary replaces every removable head segment with a single synthetic
// digest message placed where the removed history began. Exempt pairs keep
// their relative positions.
func applySummary(messages []message.Message, cfg Config, modelName string) ([]message.Message, string) {
	head, tail := splitAtRecencyFloor(messages, cfg.PreserveRecentMessages)
	segments := buildSegments(head)

	var droppedMsgs []message.Message
	onlySummaries := true
	for _, seg := range segments {
		if !removable(seg, cfg) {
			continue
		}
		for _, m := range seg.messages {
			droppedMsgs = append(droppedMsgs, m)
			if m.Source() != message.MessageSourceSummary {
				onlySummaries = false
			}
		}
	}
	if len(droppedMsgs) == 0 {
		return messages, ""
	}
	// A head consisting solely of earlier digests gains nothing from being
	// re-summarized; report no change so repeated runs converge.
	if onlySummaries && len(droppedMsgs) == 1 {
		return messages, ""
	}

	summaryText := buildSummary(droppedMsgs)
	summary := message.NewSummaryMessage(summaryText)

	out := make([]message.Message, 0, len(tail)+2)
	inserted := false
	for _, seg := range segments {
		if removable(seg, cfg) {
			if !inserted {
				out = append(out, summary)
				inserted = true
			}
			continue
		}
		out = append(out, seg.messages...)
	}
	return append(out, tail...), summaryText
}

const summaryExcerptLimit = 200

// buildSummary produces a compact digest of removed history: exchange counts,
// the tools that were invoked, the first user request and the last assistant
// reply.
func buildSummary(removed []message.Message) string {
	var users, assistants int
	toolCounts := map[string]int{}
	toolOrder := []string{}
	var firstUser, lastAssistant string

	for _, m := range removed {
		switch m.Type() {
		case message.MessageTypeUser:
			users++
			if firstUser == "" {
				firstUser = m.Content()
			}
		case message.MessageTypeAssistant:
			assistants++
			lastAssistant = m.Content()
		case message.MessageTypeToolCall:
			if tc, ok := m.(*message.ToolCallMessage); ok {
				name := string(tc.ToolName())
				if toolCounts[name] == 0 {
					toolOrder = append(toolOrder, name)
				}
				toolCounts[name]++
			}
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[Earlier conversation compressed: %d user and %d assistant messages removed.]\n", users, assistants)
	if len(toolOrder) > 0 {
		parts := make([]string, 0, len(toolOrder))
		for _, name := range toolOrder {
			parts = append(parts, fmt.Sprintf("%s x%d", name, toolCounts[name]))
		}
		fmt.Fprintf(&b, "Tools used: %s.\n", strings.Join(parts, ", "))
	}
	if firstUser != "" {
		fmt.Fprintf(&b, "Initial request: %s\n", excerpt(firstUser, summaryExcerptLimit))
	}
	if lastAssistant != "" {
		fmt.Fprintf(&b, "Last response: %s", excerpt(lastAssistant, summaryExcerptLimit))
	}
	return strings.TrimRight(b.String(), "\n")
}

func excerpt(s string, limit int) string {
	s = strings.TrimSpace(s)
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
