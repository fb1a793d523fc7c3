// Package client selects and constructs the LLM backend for a model name.
package client

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/fpt/go-kaizen-cli/pkg/agent/domain"
	"github.com/fpt/go-kaizen-cli/pkg/client/anthropic"
	"github.com/fpt/go-kaizen-cli/pkg/client/gemini"
	"github.com/fpt/go-kaizen-cli/pkg/client/ollama"
	"github.com/fpt/go-kaizen-cli/pkg/client/openai"
)

// Backend names accepted in settings
const (
	BackendAnthropic = "anthropic"
	BackendOpenAI    = "openai"
	BackendGemini    = "gemini"
	BackendOllama    = "ollama"
)

// NewClient creates a tool calling client for the given backend and model.
// An empty backend is inferred from the model name.
func NewClient(backend, model string, maxTokens int) (domain.ToolCallingLLM, error) {
	if backend == "" {
		backend = inferBackend(model)
	}

	switch backend {
	case BackendAnthropic:
		return anthropic.NewAnthropicClientWithTokens(model, maxTokens)
	case BackendOpenAI:
		return openai.NewOpenAIClientWithTokens(model, maxTokens)
	case BackendGemini:
		return gemini.NewGeminiClientWithTokens(model, maxTokens)
	case BackendOllama:
		return ollama.NewOllamaClientWithTokens(model, maxTokens)
	default:
		return nil, errors.Errorf("unsupported backend %q for model %q", backend, model)
	}
}

// NewClientWithToolManager creates a tool calling client and installs the
// tool manager on it.
func NewClientWithToolManager(backend, model string, maxTokens int, toolManager domain.ToolManager) (domain.ToolCallingLLM, error) {
	llm, err := NewClient(backend, model, maxTokens)
	if err != nil {
		return nil, err
	}
	llm.SetToolManager(toolManager)
	return llm, nil
}

// inferBackend guesses the provider from well-known model name prefixes.
// Unknown names route to Ollama since locally served models have arbitrary
// names.
func inferBackend(model string) string {
	lower := strings.ToLower(model)
	switch {
	case strings.Contains(lower, "claude"):
		return BackendAnthropic
	case strings.HasPrefix(lower, "gpt-") && !strings.Contains(lower, "oss"),
		strings.HasPrefix(lower, "o1"), strings.HasPrefix(lower, "o3"):
		return BackendOpenAI
	case strings.Contains(lower, "gemini"):
		return BackendGemini
	default:
		return BackendOllama
	}
}
