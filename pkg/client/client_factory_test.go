package client

import "testing"

func TestInferBackend(t *testing.T) {
	tests := []struct {
		model   string
		backend string
	}{
		{"claude-sonnet-4", BackendAnthropic},
		{"claude-3-5-haiku", BackendAnthropic},
		{"gpt-4o", BackendOpenAI},
		{"gpt-4o-mini", BackendOpenAI},
		{"o1-preview", BackendOpenAI},
		{"gemini-2.0-flash", BackendGemini},
		{"gpt-oss:latest", BackendOllama},
		{"qwen3:8b", BackendOllama},
		{"llama3.1:70b", BackendOllama},
	}
	for _, tt := range tests {
		if got := inferBackend(tt.model); got != tt.backend {
			t.Fatalf("inferBackend(%q) = %q, want %q", tt.model, got, tt.backend)
		}
	}
}

func TestNewClientRejectsUnknownBackend(t *testing.T) {
	if _, err := NewClient("bedrock", "some-model", 0); err == nil {
		t.Fatal("unknown backend must be rejected")
	}
}
