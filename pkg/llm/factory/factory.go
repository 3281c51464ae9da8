package factory

import (
	"fmt"

	"deep-nexus-be/pkg/llm"
	"deep-nexus-be/pkg/llm/ollama"
	"deep-nexus-be/pkg/llm/openai"
)

// NewLLMProvider builds the configured chat backend.
func NewLLMProvider(providerType, baseURL, apiKey, model, ollamaBaseURL string) (llm.LLMProvider, error) {
	switch providerType {
	case "openai":
		return openai.NewOpenAIProvider(baseURL, apiKey, model), nil
	case "ollama":
		return ollama.NewOllamaProvider(ollamaBaseURL, model), nil
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", providerType)
	}
}
