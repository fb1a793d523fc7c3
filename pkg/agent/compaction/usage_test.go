package compaction

import (
	"strings"
	"testing"

	"github.com/fpt/go-kaizen-cli/pkg/message"
)

func userMsg(content string) message.Message {
	return message.NewChatMessage(message.MessageTypeUser, content)
}

func assistantMsg(content string) message.Message {
	return message.NewChatMessage(message.MessageTypeAssistant, content)
}

func toolPair(name, result string) []message.Message {
	call := message.NewToolCallMessage(message.ToolName(name), message.ToolArgumentValues{})
	return []message.Message{call, message.NewToolResultMessage(call.ID(), result, "")}
}

func TestCalculateUsageEmpty(t *testing.T) {
	usage := CalculateUsage(nil, "unknown-model")
	if usage.TotalTokens != 0 {
		t.Fatalf("expected 0 tokens, got %d", usage.TotalTokens)
	}
	if usage.UsagePercentage != 0 {
		t.Fatalf("expected 0%%, got %d%%", usage.UsagePercentage)
	}
	if usage.IsNearLimit || usage.IsOverflow {
		t.Fatal("empty conversation must not be near limit or overflowing")
	}
	if usage.ContextLimit != 8192 {
		t.Fatalf("expected default context limit 8192, got %d", usage.ContextLimit)
	}
}

func TestCalculateUsageExcludesToolMessages(t *testing.T) {
	msgs := []message.Message{userMsg("aaaa")}
	msgs = append(msgs, toolPair("bash", strings.Repeat("x", 4000))...)
	msgs = append(msgs, assistantMsg("bbbbbbbb"))

	usage := CalculateUsage(msgs, "unknown-model")
	if usage.InputTokens != 1 {
		t.Fatalf("expected 1 input token, got %d", usage.InputTokens)
	}
	if usage.OutputTokens != 2 {
		t.Fatalf("expected 2 output tokens, got %d", usage.OutputTokens)
	}
	if usage.TotalTokens != 3 {
		t.Fatalf("tool traffic leaked into total: got %d tokens", usage.TotalTokens)
	}
}

func TestCalculateUsageNearLimitBoundary(t *testing.T) {
	// 6554 tokens of 8192 rounds to exactly 80%
	at := []message.Message{userMsg(strings.Repeat("a", 6554*4))}
	usage := CalculateUsage(at, "unknown-model")
	if usage.UsagePercentage != 80 {
		t.Fatalf("expected 80%%, got %d%%", usage.UsagePercentage)
	}
	if !usage.IsNearLimit {
		t.Fatal("80%% must count as near limit")
	}

	// 6512 tokens rounds to 79%
	under := []message.Message{userMsg(strings.Repeat("a", 6512*4))}
	usage = CalculateUsage(under, "unknown-model")
	if usage.UsagePercentage != 79 {
		t.Fatalf("expected 79%%, got %d%%", usage.UsagePercentage)
	}
	if usage.IsNearLimit {
		t.Fatal("79%% must not count as near limit")
	}
}

func TestCalculateUsageOverflow(t *testing.T) {
	msgs := []message.Message{userMsg(strings.Repeat("a", 40000))}
	usage := CalculateUsage(msgs, "unknown-model")
	if !usage.IsOverflow {
		t.Fatal("expected overflow")
	}
	if usage.RemainingTokens >= 0 {
		t.Fatalf("expected negative remaining tokens, got %d", usage.RemainingTokens)
	}
	if !usage.IsNearLimit {
		t.Fatal("overflow implies near limit")
	}
}

func TestStatusLineSeverityBands(t *testing.T) {
	tests := []struct {
		name  string
		usage Usage
		icon  string
	}{
		{"low", Usage{UsagePercentage: 12, TotalTokens: 1000, ContextLimit: 8192, RemainingTokens: 7192}, "🟢"},
		{"moderate", Usage{UsagePercentage: 55, TotalTokens: 4500, ContextLimit: 8192, RemainingTokens: 3692}, "🟡"},
		{"high", Usage{UsagePercentage: 85, TotalTokens: 6963, ContextLimit: 8192, RemainingTokens: 1229, IsNearLimit: true}, "🟠"},
		{"critical", Usage{UsagePercentage: 95, TotalTokens: 7782, ContextLimit: 8192, RemainingTokens: 410, IsNearLimit: true}, "🔴"},
	}
	for _, tt := range tests {
		line := tt.usage.StatusLine()
		if !strings.HasPrefix(line, tt.icon) {
			t.Fatalf("%s: expected prefix %s, got %q", tt.name, tt.icon, line)
		}
		if strings.Contains(line, "OVERFLOW") {
			t.Fatalf("%s: unexpected overflow marker in %q", tt.name, line)
		}
	}
}

func TestStatusLineOverflow(t *testing.T) {
	usage := Usage{UsagePercentage: 122, TotalTokens: 10000, ContextLimit: 8192, RemainingTokens: -1808, IsNearLimit: true, IsOverflow: true}
	line := usage.StatusLine()
	if !strings.HasPrefix(line, "🔴") {
		t.Fatalf("expected red icon, got %q", line)
	}
	if !strings.Contains(line, "[OVERFLOW]") {
		t.Fatalf("expected overflow marker in %q", line)
	}
}
