package tokens

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ModelLimits holds the token budgets of a model: the total context window
// shared by the whole exchange, and the slice of it reserved for the model's
// reply.
type ModelLimits struct {
	Context int `yaml:"context"`
	Output  int `yaml:"output"`
}

// modelLimitEntry binds a lowercase name fragment to its limits
type modelLimitEntry struct {
	Match  string      `yaml:"match"`
	Limits ModelLimits `yaml:"limits"`
}

// DefaultLimits is the conservative fallback applied when no table entry
// matches the model name.
var DefaultLimits = ModelLimits{Context: 8192, Output: 4096}

// Known context windows by model family. Matching is case-insensitive
// substring, first match wins, so more specific fragments must precede
// generic ones. The list must be kept in sync with provider documentation
// by hand.
var modelLimitTable = []modelLimitEntry{
	{Match: "claude", Limits: ModelLimits{Context: 200000, Output: 8192}},
	{Match: "gpt-4o", Limits: ModelLimits{Context: 128000, Output: 16384}},
	{Match: "gpt-4", Limits: ModelLimits{Context: 128000, Output: 4096}},
	{Match: "gpt-oss", Limits: ModelLimits{Context: 128000, Output: 8192}},
	{Match: "gemini", Limits: ModelLimits{Context: 1000000, Output: 8192}},
	{Match: "glm", Limits: ModelLimits{Context: 128000, Output: 8192}},
	{Match: "qwen", Limits: ModelLimits{Context: 32768, Output: 8192}},
	{Match: "deepseek", Limits: ModelLimits{Context: 64000, Output: 8192}},
	{Match: "llama", Limits: ModelLimits{Context: 128000, Output: 4096}},
	{Match: "mistral", Limits: ModelLimits{Context: 32768, Output: 8192}},
}

// userLimitEntries holds entries merged from a user override file. They are
// consulted before the built-in table so user entries win.
var userLimitEntries []modelLimitEntry

// LimitsFor returns the token budgets for a model name using case-insensitive
// substring matching, falling back to DefaultLimits when nothing matches.
func LimitsFor(modelName string) ModelLimits {
	lower := strings.ToLower(modelName)

	for _, entry := range userLimitEntries {
		if strings.Contains(lower, strings.ToLower(entry.Match)) {
			return entry.Limits
		}
	}
	for _, entry := range modelLimitTable {
		if strings.Contains(lower, entry.Match) {
			return entry.Limits
		}
	}
	return DefaultLimits
}

// limitsFile is the YAML shape of a user override file:
//
//	models:
//	  - match: my-model
//	    limits: {context: 65536, output: 8192}
type limitsFile struct {
	Models []modelLimitEntry `yaml:"models"`
}

// LoadLimitsFile merges model limit overrides from a YAML file. Entries are
// matched before the built-in table in file order.
func LoadLimitsFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read model limits file %s: %w", path, err)
	}

	var file limitsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse model limits file %s: %w", path, err)
	}

	for _, entry := range file.Models {
		if entry.Match == "" || entry.Limits.Context <= 0 {
			return fmt.Errorf("invalid model limits entry in %s: match=%q context=%d",
				path, entry.Match, entry.Limits.Context)
		}
	}

	userLimitEntries = append(userLimitEntries, file.Models...)
	return nil
}

// ResetUserLimits clears previously loaded override entries
func ResetUserLimits() {
	userLimitEntries = nil
}
