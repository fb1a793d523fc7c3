package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fpt/go-kaizen-cli/pkg/agent/compaction"
	pkgLogger "github.com/fpt/go-kaizen-cli/pkg/logger"
)

// Default maximum iterations for the agent loop
const DefaultAgentMaxIterations = 30

// Settings represents the main application settings
type Settings struct {
	LLM         LLMSettings      `json:"llm"`
	Compression compaction.Config `json:"compression"`
	Agent       AgentSettings    `json:"agent"`
}

// LLMSettings contains LLM client configuration
type LLMSettings struct {
	Backend   string `json:"backend"`              // "ollama", "anthropic", "openai", or "gemini"
	Model     string `json:"model"`                // model name
	BaseURL   string `json:"base_url,omitempty"`   // for ollama or openai-compatible endpoints
	MaxTokens int    `json:"max_tokens,omitempty"` // maximum tokens for model responses (0 = use model default)
}

// AgentSettings contains agent behavior configuration
type AgentSettings struct {
	MaxIterations int    `json:"max_iterations"`
	LogLevel      string `json:"log_level"`
	// ModelLimitsFile points to an optional YAML file overriding the
	// built-in model context window table
	ModelLimitsFile string `json:"model_limits_file,omitempty"`
}

// LoadSettings loads application settings from a JSON file
func LoadSettings(configPath string) (*Settings, error) {
	// If config path is empty, search in order of preference
	if configPath == "" {
		configPath = findSettingsFile()
		if configPath == "" {
			// No settings file found, create default one and return defaults
			return createDefaultSettingsFile()
		}
	}

	// Check if specified file exists, create defaults if not
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		settings, _ := createSettingsFileAtPath(configPath)
		return settings, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read settings file: %w", err)
	}

	var settings Settings
	if err := json.Unmarshal(data, &settings); err != nil {
		return nil, fmt.Errorf("failed to parse settings: %w", err)
	}

	applyDefaults(&settings)

	return &settings, nil
}

// SaveSettings saves application settings to a JSON file
func SaveSettings(configPath string, settings *Settings) error {
	if configPath == "" {
		configPath = findSettingsFile()
		if configPath == "" {
			configPath = filepath.Join(".kaizen", "settings.json")
		}
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write settings file: %w", err)
	}

	return nil
}

// GetDefaultSettings returns default application settings
func GetDefaultSettings() *Settings {
	return &Settings{
		LLM: LLMSettings{
			Backend:   "ollama",
			Model:     "gpt-oss:latest",
			BaseURL:   "http://localhost:11434",
			MaxTokens: 0, // 0 = use model-specific defaults
		},
		Compression: compaction.DefaultConfig(),
		Agent: AgentSettings{
			MaxIterations: DefaultAgentMaxIterations,
			LogLevel:      "info",
		},
	}
}

// applyDefaults fills in missing fields with default values
func applyDefaults(settings *Settings) {
	defaults := GetDefaultSettings()

	if settings.LLM.Backend == "" {
		settings.LLM.Backend = defaults.LLM.Backend
	}
	if settings.LLM.Model == "" {
		settings.LLM.Model = defaults.LLM.Model
	}
	if settings.LLM.BaseURL == "" && settings.LLM.Backend == "ollama" {
		settings.LLM.BaseURL = defaults.LLM.BaseURL
	}

	// A zero-value compression block means the file predates the setting;
	// fall back to defaults rather than silently disabling everything
	if settings.Compression.Strategy == "" {
		settings.Compression = defaults.Compression
	}

	if settings.Agent.MaxIterations == 0 {
		settings.Agent.MaxIterations = defaults.Agent.MaxIterations
	}
	if settings.Agent.LogLevel == "" {
		settings.Agent.LogLevel = defaults.Agent.LogLevel
	}
}

// ValidateSettings validates the settings configuration. Invalid
// configuration fails loudly here instead of degrading at runtime.
func ValidateSettings(settings *Settings) error {
	if settings.LLM.Backend != "ollama" && settings.LLM.Backend != "anthropic" && settings.LLM.Backend != "openai" && settings.LLM.Backend != "gemini" {
		return fmt.Errorf("unsupported LLM backend: %s (must be 'ollama', 'anthropic', 'openai', or 'gemini')", settings.LLM.Backend)
	}

	if settings.LLM.Model == "" {
		return fmt.Errorf("LLM model is required")
	}

	if settings.LLM.Backend == "anthropic" {
		if os.Getenv("ANTHROPIC_API_KEY") == "" {
			return fmt.Errorf("Anthropic API key is required (set ANTHROPIC_API_KEY environment variable)")
		}
	}

	if settings.LLM.Backend == "openai" {
		if os.Getenv("OPENAI_API_KEY") == "" {
			return fmt.Errorf("OpenAI API key is required (set OPENAI_API_KEY environment variable)")
		}
	}

	if settings.LLM.Backend == "gemini" {
		if os.Getenv("GEMINI_API_KEY") == "" {
			return fmt.Errorf("Gemini API key is required (set GEMINI_API_KEY environment variable)")
		}
	}

	if err := settings.Compression.Validate(); err != nil {
		return fmt.Errorf("invalid compression settings: %w", err)
	}

	if settings.Agent.MaxIterations <= 0 {
		return fmt.Errorf("max_iterations must be positive")
	}

	if settings.Agent.ModelLimitsFile != "" {
		if _, err := os.Stat(settings.Agent.ModelLimitsFile); err != nil {
			return fmt.Errorf("model_limits_file %s is not readable: %w", settings.Agent.ModelLimitsFile, err)
		}
	}

	return nil
}

// findSettingsFile searches for settings.json in order of preference:
// 1. .kaizen/settings.json in current directory
// 2. $HOME/.kaizen/settings.json
// Returns empty string if none found
func findSettingsFile() string {
	currentDirPath := filepath.Join(".kaizen", "settings.json")
	if _, err := os.Stat(currentDirPath); err == nil {
		return currentDirPath
	}

	homeDir, err := os.UserHomeDir()
	if err == nil {
		homeDirPath := filepath.Join(homeDir, ".kaizen", "settings.json")
		if _, err := os.Stat(homeDirPath); err == nil {
			return homeDirPath
		}
	}

	return ""
}

// createDefaultSettingsFile creates a default settings.json file in ~/.kaizen/
func createDefaultSettingsFile() (*Settings, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return GetDefaultSettings(), nil // Fall back to defaults without file creation
	}

	settingsPath := filepath.Join(homeDir, ".kaizen", "settings.json")
	return createSettingsFileAtPath(settingsPath)
}

// createSettingsFileAtPath creates a default settings file at the specified path
func createSettingsFileAtPath(settingsPath string) (*Settings, error) {
	settings := GetDefaultSettings()

	if err := os.MkdirAll(filepath.Dir(settingsPath), 0755); err != nil {
		return settings, nil // Return defaults if directory creation fails
	}

	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return settings, nil
	}

	if err := os.WriteFile(settingsPath, data, 0644); err != nil {
		return settings, nil
	}

	log := pkgLogger.NewComponentLogger("settings")
	log.InfoWithIcon("⚙️", "Created default settings file", "path", settingsPath)
	log.Info("You can edit this file to customize your configuration")

	return settings, nil
}
