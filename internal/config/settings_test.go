package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fpt/go-kaizen-cli/pkg/agent/compaction"
)

func TestLoadSettings_AppliesDefaults(t *testing.T) {
	tempDir := t.TempDir()
	path := filepath.Join(tempDir, "settings.json")

	// Minimal file with only a model set
	content := `{"llm": {"backend": "ollama", "model": "qwen3:latest"}}`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write settings file: %v", err)
	}

	settings, err := LoadSettings(path)
	if err != nil {
		t.Fatalf("LoadSettings failed: %v", err)
	}

	if settings.LLM.Model != "qwen3:latest" {
		t.Errorf("Expected configured model, got %s", settings.LLM.Model)
	}
	if settings.LLM.BaseURL == "" {
		t.Error("Expected default ollama base URL to be applied")
	}
	if settings.Agent.MaxIterations != DefaultAgentMaxIterations {
		t.Errorf("Expected default max iterations, got %d", settings.Agent.MaxIterations)
	}
	if settings.Compression.Strategy != compaction.StrategySummary {
		t.Errorf("Expected default compression strategy, got %s", settings.Compression.Strategy)
	}
	if !settings.Compression.Enabled {
		t.Error("Expected compression enabled by default")
	}
}

func TestLoadSettings_CompressionBlock(t *testing.T) {
	tempDir := t.TempDir()
	path := filepath.Join(tempDir, "settings.json")

	content := `{
		"llm": {"backend": "ollama", "model": "qwen3:latest"},
		"compression": {
			"enabled": true,
			"threshold": 70,
			"strategy": "sliding-window",
			"preserve_recent_messages": 5
		}
	}`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write settings file: %v", err)
	}

	settings, err := LoadSettings(path)
	if err != nil {
		t.Fatalf("LoadSettings failed: %v", err)
	}

	if settings.Compression.Threshold != 70 {
		t.Errorf("Expected threshold 70, got %d", settings.Compression.Threshold)
	}
	if settings.Compression.Strategy != compaction.StrategySlidingWindow {
		t.Errorf("Expected sliding-window strategy, got %s", settings.Compression.Strategy)
	}
	if settings.Compression.PreserveRecentMessages != 5 {
		t.Errorf("Expected recency floor 5, got %d", settings.Compression.PreserveRecentMessages)
	}
}

func TestValidateSettings(t *testing.T) {
	t.Run("UnknownBackend", func(t *testing.T) {
		settings := GetDefaultSettings()
		settings.LLM.Backend = "cohere"
		err := ValidateSettings(settings)
		if err == nil || !strings.Contains(err.Error(), "unsupported LLM backend") {
			t.Errorf("Expected backend error, got: %v", err)
		}
	})

	t.Run("MissingModel", func(t *testing.T) {
		settings := GetDefaultSettings()
		settings.LLM.Model = ""
		if err := ValidateSettings(settings); err == nil {
			t.Error("Expected error for missing model")
		}
	})

	t.Run("InvalidCompression", func(t *testing.T) {
		settings := GetDefaultSettings()
		settings.Compression.Threshold = 150
		err := ValidateSettings(settings)
		if err == nil || !strings.Contains(err.Error(), "compression") {
			t.Errorf("Expected compression validation error, got: %v", err)
		}
	})

	t.Run("InvalidStrategy", func(t *testing.T) {
		settings := GetDefaultSettings()
		settings.Compression.Strategy = "oracle"
		if err := ValidateSettings(settings); err == nil {
			t.Error("Expected error for unknown strategy")
		}
	})

	t.Run("ValidDefaults", func(t *testing.T) {
		settings := GetDefaultSettings()
		if err := ValidateSettings(settings); err != nil {
			t.Errorf("Expected defaults to validate, got: %v", err)
		}
	})
}

func TestLoadSettings_ParseError(t *testing.T) {
	tempDir := t.TempDir()
	path := filepath.Join(tempDir, "settings.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatalf("Failed to write settings file: %v", err)
	}

	if _, err := LoadSettings(path); err == nil {
		t.Error("Expected parse error for malformed settings")
	}
}
