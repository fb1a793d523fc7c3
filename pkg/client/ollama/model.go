package ollama

import "strings"

// OllamaModel records locally known capabilities of a served model
type OllamaModel struct {
	Name string `json:"name"`

	// Tool indicates whether the model supports native tool calling
	Tool bool `json:"tool"`

	// Context indicates the context length of the model
	Context int `json:"context"`
}

// This is from https://ollama.com/search
// List must be kept in sync with the Ollama models by human.
var ollamaModels = []OllamaModel{
	{
		Name:    "gpt-oss:latest",
		Tool:    true,
		Context: 128000,
	},
	{
		Name:    "gpt-oss:120b",
		Tool:    true,
		Context: 128000,
	},
	{
		Name:    "qwen3",
		Tool:    true,
		Context: 32768,
	},
	{
		Name:    "llama3.1",
		Tool:    true,
		Context: 128000,
	},
}

// IsToolCapableModel checks if a model supports native tool calling
func IsToolCapableModel(model string) bool {
	modelLower := strings.ToLower(model)
	for _, ollamaModel := range ollamaModels {
		if strings.Contains(modelLower, strings.ToLower(ollamaModel.Name)) {
			return ollamaModel.Tool
		}
	}
	return false
}
