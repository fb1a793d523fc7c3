package state

import (
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/fpt/go-kaizen-cli/pkg/agent/compaction"
	"github.com/fpt/go-kaizen-cli/pkg/message"
)

func fillSession(s *Session, n int) {
	for i := 0; i < n; i++ {
		content := strings.Repeat("a", 400)
		if i%2 == 0 {
			s.AddMessage(message.NewChatMessage(message.MessageTypeUser, content))
		} else {
			s.AddMessage(message.NewChatMessage(message.MessageTypeAssistant, content))
		}
	}
}

func TestCheckAndPerformCompressionWithoutConfig(t *testing.T) {
	s := NewSession("unknown-model")
	fillSession(s, 100)

	if result := s.CheckAndPerformCompression(); result != nil {
		t.Fatalf("session without config must return nil, got %+v", result)
	}
	if s.MessageCount() != 100 {
		t.Fatal("history must be untouched without a config")
	}
}

func TestCheckAndPerformCompressionSwapsHistory(t *testing.T) {
	s := NewSession("unknown-model")
	fillSession(s, 100)
	cfg := compaction.Config{Enabled: true, Threshold: 50, Strategy: compaction.StrategySlidingWindow, PreserveRecentMessages: 20}
	if err := s.SetCompressionConfig(cfg); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	result := s.CheckAndPerformCompression()
	if result == nil {
		t.Fatal("configured session must return a result")
	}
	if !result.Compressed {
		t.Fatalf("expected compression: %s", result.Message)
	}
	if s.MessageCount() != len(result.CompressedMessages) {
		t.Fatalf("history not swapped: %d vs %d", s.MessageCount(), len(result.CompressedMessages))
	}
	if s.LastCompression() == nil {
		t.Fatal("last compression result not recorded")
	}
}

func TestCheckAndPerformCompressionBelowThreshold(t *testing.T) {
	s := NewSession("unknown-model")
	s.AddMessage(message.NewChatMessage(message.MessageTypeUser, "hello"))
	if err := s.SetCompressionConfig(compaction.DefaultConfig()); err != nil {
		t.Fatal(err)
	}

	result := s.CheckAndPerformCompression()
	if result == nil {
		t.Fatal("expected a result even below threshold")
	}
	if result.Compressed {
		t.Fatal("tiny conversation must not compress")
	}
	if s.MessageCount() != 1 {
		t.Fatal("history must be untouched")
	}
}

func TestForceCompressionIgnoresThreshold(t *testing.T) {
	s := NewSession("unknown-model")
	fillSession(s, 40)
	cfg := compaction.Config{Enabled: false, Threshold: 100, Strategy: compaction.StrategySlidingWindow, PreserveRecentMessages: 4}
	if err := s.SetCompressionConfig(cfg); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	result := s.ForceCompression()
	if result == nil {
		t.Fatal("configured session must return a result")
	}
	if !result.Compressed {
		t.Fatalf("forced compression must compress: %s", result.Message)
	}
	if s.MessageCount() >= 40 {
		t.Fatalf("expected history to shrink, still %d messages", s.MessageCount())
	}
	if s.MessageCount() < 4 {
		t.Fatal("recency floor violated by forced compression")
	}
}

func TestForceCompressionWithoutConfig(t *testing.T) {
	s := NewSession("unknown-model")
	fillSession(s, 10)
	if result := s.ForceCompression(); result != nil {
		t.Fatalf("session without config must return nil, got %+v", result)
	}
}

func TestSetCompressionConfigRejectsInvalid(t *testing.T) {
	s := NewSession("unknown-model")
	cfg := compaction.DefaultConfig()
	cfg.Threshold = 150
	if err := s.SetCompressionConfig(cfg); err == nil {
		t.Fatal("invalid config must be rejected")
	}
	if _, ok := s.CompressionConfig(); ok {
		t.Fatal("rejected config must not be installed")
	}
}

func TestConcurrentCompressionKeepsPairsIntact(t *testing.T) {
	s := NewSession("unknown-model")
	for i := 0; i < 30; i++ {
		s.AddMessage(message.NewChatMessage(message.MessageTypeUser, strings.Repeat("u", 400)))
		call := message.NewToolCallMessage("read_file", message.ToolArgumentValues{})
		s.AddMessage(call)
		s.AddMessage(message.NewToolResultMessage(call.ID(), strings.Repeat("r", 400), ""))
		s.AddMessage(message.NewChatMessage(message.MessageTypeAssistant, strings.Repeat("b", 400)))
	}
	cfg := compaction.Config{Enabled: true, Threshold: 30, Strategy: compaction.StrategySlidingWindow, PreserveRecentMessages: 8}
	if err := s.SetCompressionConfig(cfg); err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.CheckAndPerformCompression()
		}()
	}
	wg.Wait()

	msgs := s.GetMessages()
	for i, m := range msgs {
		switch m.Type() {
		case message.MessageTypeToolCall:
			if i+1 >= len(msgs) || msgs[i+1].Type() != message.MessageTypeToolResult {
				t.Fatalf("tool call at %d separated from result", i)
			}
		case message.MessageTypeToolResult:
			if i == 0 || msgs[i-1].Type() != message.MessageTypeToolCall {
				t.Fatalf("tool result at %d separated from call", i)
			}
		}
	}
}

func TestPersistHookFiresOnMutation(t *testing.T) {
	s := NewSession("unknown-model")
	var calls int
	var lastLen int
	s.SetPersistFunc(func(msgs []message.Message) {
		calls++
		lastLen = len(msgs)
	})

	s.AddMessage(message.NewChatMessage(message.MessageTypeUser, "hi"))
	if calls != 1 || lastLen != 1 {
		t.Fatalf("expected one persist call with one message, got %d/%d", calls, lastLen)
	}
	s.Clear()
	if calls != 2 || lastLen != 0 {
		t.Fatalf("expected persist on clear, got %d/%d", calls, lastLen)
	}
}

func TestRemoveMessagesBySource(t *testing.T) {
	s := NewSession("unknown-model")
	s.AddMessage(message.NewChatMessage(message.MessageTypeUser, "q"))
	s.AddMessage(message.NewSummaryMessage("older history digest"))
	s.AddMessage(message.NewChatMessage(message.MessageTypeAssistant, "a"))

	removed := s.RemoveMessagesBySource(message.MessageSourceSummary)
	if removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}
	if s.MessageCount() != 2 {
		t.Fatalf("expected 2 remaining, got %d", s.MessageCount())
	}
}

func TestGetValidConversationHistorySkipsOrphans(t *testing.T) {
	s := NewSession("unknown-model")
	s.AddMessage(message.NewChatMessage(message.MessageTypeUser, "run it"))
	orphan := message.NewToolCallMessage("bash", message.ToolArgumentValues{})
	s.AddMessage(orphan) // no result follows
	call := message.NewToolCallMessage("read_file", message.ToolArgumentValues{})
	s.AddMessage(call)
	s.AddMessage(message.NewToolResultMessage(call.ID(), "contents", ""))
	s.AddMessage(message.NewChatMessage(message.MessageTypeAssistant, "done"))

	history := s.GetValidConversationHistory(10)
	for _, m := range history {
		if m.ID() == orphan.ID() {
			t.Fatal("orphaned tool call leaked into history")
		}
	}
	if len(history) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(history))
	}
}

func TestSessionSaveAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions", "default.json")

	s := NewSession("claude-sonnet-4")
	s.AddMessage(message.NewChatMessage(message.MessageTypeUser, "list files"))
	call := message.NewToolCallMessage("bash", message.ToolArgumentValues{"command": "ls"})
	s.AddMessage(call)
	s.AddMessage(message.NewToolResultMessage(call.ID(), "main.go", ""))
	s.AddMessage(message.NewSummaryMessage("digest of earlier work"))
	s.lastCompression = &compaction.Result{
		Compressed:           true,
		Strategy:             compaction.StrategySummary,
		OriginalTokenCount:   900,
		CompressedTokenCount: 300,
		ReductionPercentage:  67,
		Summary:              "digest of earlier work",
		Message:              "compressed context from 900 to 300 tokens",
	}

	if err := s.SaveToFile(path); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	restored := NewSession("unknown-model")
	if err := restored.LoadFromFile(path); err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if restored.ModelName() != "claude-sonnet-4" {
		t.Fatalf("model name not restored: %q", restored.ModelName())
	}
	msgs := restored.GetMessages()
	if len(msgs) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(msgs))
	}
	if msgs[1].Type() != message.MessageTypeToolCall {
		t.Fatal("tool call type lost in round trip")
	}
	tc, ok := msgs[1].(*message.ToolCallMessage)
	if !ok || tc.ToolName() != "bash" {
		t.Fatal("tool call details lost in round trip")
	}
	if msgs[2].ID() != call.ID() {
		t.Fatal("tool result ID no longer matches its call")
	}
	if msgs[3].Source() != message.MessageSourceSummary {
		t.Fatal("summary source lost in round trip")
	}
	last := restored.LastCompression()
	if last == nil {
		t.Fatal("last compression result lost in round trip")
	}
	if !last.Compressed || last.Strategy != compaction.StrategySummary {
		t.Fatalf("last compression details lost: %+v", last)
	}
	if last.OriginalTokenCount != 900 || last.CompressedTokenCount != 300 || last.ReductionPercentage != 67 {
		t.Fatalf("last compression token counts lost: %+v", last)
	}
	if last.Summary != "digest of earlier work" {
		t.Fatalf("last compression summary lost: %q", last.Summary)
	}
}

func TestLoadFromMissingFileStartsEmpty(t *testing.T) {
	s := NewSession("unknown-model")
	s.AddMessage(message.NewChatMessage(message.MessageTypeUser, "stale"))

	if err := s.LoadFromFile(filepath.Join(t.TempDir(), "absent.json")); err != nil {
		t.Fatalf("missing file must not error: %v", err)
	}
	if s.MessageCount() != 0 {
		t.Fatal("missing file must reset to empty state")
	}
}
