// Package app wires the LLM client, tool managers and session state into the
// interactive assistant and owns session persistence.
package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fpt/go-kaizen-cli/internal/config"
	"github.com/fpt/go-kaizen-cli/internal/infra"
	"github.com/fpt/go-kaizen-cli/internal/tool"
	"github.com/fpt/go-kaizen-cli/pkg/agent/domain"
	"github.com/fpt/go-kaizen-cli/pkg/agent/react"
	"github.com/fpt/go-kaizen-cli/pkg/agent/state"
	pkgLogger "github.com/fpt/go-kaizen-cli/pkg/logger"
	"github.com/fpt/go-kaizen-cli/pkg/message"
)

var logger = pkgLogger.NewComponentLogger("app")

// sessionFileName is the session transcript stored under .kaizen in the
// working directory
const sessionFileName = "session.json"

// Assistant owns one interactive session: the LLM client, the tool surface,
// the conversation state and the agent loop driving them.
type Assistant struct {
	llmClient   domain.ToolCallingLLM
	toolManager domain.ToolManager
	session     *state.Session
	agent       *react.ReAct
	settings    *config.Settings
	workingDir  string
	sessionPath string
}

// NewAssistant builds the assistant for a working directory. When
// restoreSession is true a previously saved transcript is loaded back into
// the session.
func NewAssistant(llmClient domain.ToolCallingLLM, workingDir string, settings *config.Settings, restoreSession bool) (*Assistant, error) {
	absWorkingDir, err := filepath.Abs(workingDir)
	if err != nil {
		absWorkingDir = workingDir
	}

	fsConfig := infra.DefaultFileSystemConfig(absWorkingDir)
	toolManager := tool.NewCompositeToolManager(
		tool.NewFileSystemToolManager(fsConfig, absWorkingDir),
		tool.NewBashToolManager(absWorkingDir),
		tool.NewWebToolManager(),
		tool.NewCalcToolManager(),
		tool.NewTodoToolManager(absWorkingDir),
		tool.NewSolverToolManager(),
	)
	llmClient.SetToolManager(toolManager)

	session := state.NewSession(settings.LLM.Model)
	if err := session.SetCompressionConfig(settings.Compression); err != nil {
		return nil, fmt.Errorf("invalid compression configuration: %w", err)
	}

	a := &Assistant{
		llmClient:   llmClient,
		toolManager: toolManager,
		session:     session,
		settings:    settings,
		workingDir:  absWorkingDir,
		sessionPath: filepath.Join(absWorkingDir, ".kaizen", sessionFileName),
	}

	if restoreSession {
		if err := session.LoadFromFile(a.sessionPath); err != nil {
			logger.WarnWithIcon("⚠️", "Failed to restore previous session, starting fresh",
				"path", a.sessionPath, "error", err)
		} else if session.MessageCount() > 0 {
			logger.InfoWithIcon("📂", "Restored previous session",
				"messages", session.MessageCount())
		}
	}
	session.SetPersistFunc(func([]message.Message) {
		if err := a.saveSession(); err != nil {
			logger.Warn("Failed to persist session", "error", err)
		}
	})

	a.agent = react.NewReAct(llmClient, toolManager, session,
		settings.Agent.MaxIterations, settings.Compression.NotifyBeforeCompression)

	return a, nil
}

// Invoke runs one user turn through the agent loop.
func (a *Assistant) Invoke(ctx context.Context, input string) (message.Message, error) {
	return a.agent.Invoke(ctx, input)
}

// Session exposes the conversation state for status and compact commands.
func (a *Assistant) Session() *state.Session {
	return a.session
}

// LLMClient returns the underlying client.
func (a *Assistant) LLMClient() domain.ToolCallingLLM {
	return a.llmClient
}

// WorkingDir returns the directory tools operate in.
func (a *Assistant) WorkingDir() string {
	return a.workingDir
}

// ModelID returns a display name for the active model.
func (a *Assistant) ModelID() string {
	if mi, ok := a.llmClient.(domain.ModelIdentifier); ok {
		return mi.ModelID()
	}
	return a.settings.LLM.Model
}

// ClearHistory wipes the conversation and the persisted session file.
func (a *Assistant) ClearHistory() {
	a.session.Clear()
}

func (a *Assistant) saveSession() error {
	if err := os.MkdirAll(filepath.Dir(a.sessionPath), 0755); err != nil {
		return err
	}
	return a.session.SaveToFile(a.sessionPath)
}

// GetConversationPreview renders the last maxMessages conversation messages
// for display. Tool traffic is summarized to one line per call.
func (a *Assistant) GetConversationPreview(maxMessages int) string {
	messages := a.session.GetValidConversationHistory(maxMessages)
	if len(messages) == 0 {
		return ""
	}

	var b strings.Builder
	for _, msg := range messages {
		switch msg.Type() {
		case message.MessageTypeUser:
			b.WriteString(fmt.Sprintf("👤 You: %s\n", previewContent(msg.Content())))
		case message.MessageTypeAssistant:
			if msg.Source() == message.MessageSourceSummary {
				b.WriteString(fmt.Sprintf("📦 Summary: %s\n", previewContent(msg.Content())))
			} else {
				b.WriteString(fmt.Sprintf("🤖 Assistant: %s\n", previewContent(msg.Content())))
			}
		case message.MessageTypeToolCall:
			b.WriteString(fmt.Sprintf("🔧 %s\n", msg.Content()))
		}
	}
	return b.String()
}

func previewContent(content string) string {
	content = strings.ReplaceAll(content, "\n", " ")
	if len(content) > 120 {
		return content[:120] + "..."
	}
	return content
}
