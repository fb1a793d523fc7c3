package react

import (
	"context"
	"strings"
	"testing"

	"github.com/fpt/go-kaizen-cli/pkg/agent/domain"
	"github.com/fpt/go-kaizen-cli/pkg/agent/state"
	"github.com/fpt/go-kaizen-cli/pkg/message"
)

// scriptedLLM returns a fixed sequence of responses
type scriptedLLM struct {
	responses []message.Message
	calls     int
}

func (s *scriptedLLM) Chat(ctx context.Context, messages []message.Message) (message.Message, error) {
	if s.calls >= len(s.responses) {
		return message.NewChatMessage(message.MessageTypeAssistant, "done"), nil
	}
	resp := s.responses[s.calls]
	s.calls++
	return resp, nil
}

// echoToolManager responds to every call with a fixed result
type echoToolManager struct {
	tools  map[message.ToolName]message.Tool
	called []message.ToolName
}

func newEchoToolManager() *echoToolManager {
	m := &echoToolManager{tools: make(map[message.ToolName]message.Tool)}
	return m
}

func (m *echoToolManager) GetTool(name message.ToolName) (message.Tool, bool) {
	t, ok := m.tools[name]
	return t, ok
}

func (m *echoToolManager) GetTools() map[message.ToolName]message.Tool { return m.tools }

func (m *echoToolManager) CallTool(ctx context.Context, name message.ToolName, args message.ToolArgumentValues) (message.ToolResult, error) {
	m.called = append(m.called, name)
	return message.NewToolResultText("tool output for " + string(name)), nil
}

func (m *echoToolManager) RegisterTool(name message.ToolName, description message.ToolDescription, args []message.ToolArgument, handler message.ToolHandler) {
	m.tools[name] = nil
}

func TestReAct_FinalAnswerEndsLoop(t *testing.T) {
	llm := &scriptedLLM{responses: []message.Message{
		message.NewChatMessage(message.MessageTypeAssistant, "the answer is 42"),
	}}
	session := state.NewSession("test-model")

	agent := NewReAct(llm, nil, session, 5, false)
	resp, err := agent.Invoke(context.Background(), "what is the answer?")
	if err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}
	if !strings.Contains(resp.Content(), "42") {
		t.Errorf("Expected final answer, got: %s", resp.Content())
	}

	// User message and assistant answer recorded in state
	messages := session.GetMessages()
	if len(messages) != 2 {
		t.Fatalf("Expected 2 messages in state, got %d", len(messages))
	}
	if messages[0].Type() != message.MessageTypeUser {
		t.Errorf("Expected user message first, got %s", messages[0].Type())
	}
	if messages[1].Type() != message.MessageTypeAssistant {
		t.Errorf("Expected assistant message second, got %s", messages[1].Type())
	}
}

func TestReAct_ToolCallRoundTrip(t *testing.T) {
	toolCall := message.NewToolCallMessage("read_file", message.ToolArgumentValues{"path": "main.go"})
	llm := &scriptedLLM{responses: []message.Message{
		toolCall,
		message.NewChatMessage(message.MessageTypeAssistant, "file looks fine"),
	}}
	tools := newEchoToolManager()
	tools.RegisterTool("read_file", "read a file", nil, nil)
	session := state.NewSession("test-model")

	agent := NewReAct(llm, tools, session, 5, false)
	resp, err := agent.Invoke(context.Background(), "check main.go")
	if err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}
	if resp.Content() != "file looks fine" {
		t.Errorf("Expected final answer, got: %s", resp.Content())
	}

	if len(tools.called) != 1 || tools.called[0] != "read_file" {
		t.Errorf("Expected one read_file call, got %v", tools.called)
	}

	// State holds user, tool call, tool result, assistant in order with the
	// call and result sharing an ID
	messages := session.GetMessages()
	if len(messages) != 4 {
		t.Fatalf("Expected 4 messages in state, got %d", len(messages))
	}
	if messages[1].Type() != message.MessageTypeToolCall || messages[2].Type() != message.MessageTypeToolResult {
		t.Errorf("Expected tool call then result, got %s then %s", messages[1].Type(), messages[2].Type())
	}
	if messages[1].ID() != messages[2].ID() {
		t.Errorf("Tool call and result IDs differ: %s vs %s", messages[1].ID(), messages[2].ID())
	}
}

func TestReAct_LoopLimit(t *testing.T) {
	// Model keeps calling tools forever
	llm := &scriptedLLM{responses: []message.Message{
		message.NewToolCallMessage("loop", nil),
		message.NewToolCallMessage("loop", nil),
		message.NewToolCallMessage("loop", nil),
	}}
	tools := newEchoToolManager()
	tools.RegisterTool("loop", "loops", nil, nil)
	session := state.NewSession("test-model")

	agent := NewReAct(llm, tools, session, 3, false)
	_, err := agent.Invoke(context.Background(), "loop forever")
	if err == nil {
		t.Fatal("Expected loop limit error")
	}
	if !strings.Contains(err.Error(), "maximum loop limit") {
		t.Errorf("Expected loop limit error, got: %v", err)
	}
}

var _ domain.ToolManager = (*echoToolManager)(nil)
var _ domain.LLM = (*scriptedLLM)(nil)
