package llm

import (
	"fmt"
	"os"
)

const defaultOllamaHost = "http://localhost:11434"

// NewProvider builds the provider named by providerType, reading API keys
// and endpoints from the environment. Supported types: "anthropic",
// "openai", "openrouter", "ollama".
func NewProvider(providerType string, model string) (Provider, error) {
	return newProvider(providerType, model, os.Getenv)
}

func newProvider(providerType, model string, getenv func(string) string) (Provider, error) {
	requireKey := func(name string) (string, error) {
		key := getenv(name)
		if key == "" {
			return "", fmt.Errorf("%s environment variable is not set", name)
		}
		return key, nil
	}

	switch providerType {
	case "anthropic":
		key, err := requireKey("ANTHROPIC_API_KEY")
		if err != nil {
			return nil, err
		}
		return NewAnthropicProvider(key, model), nil
	case "openai":
		key, err := requireKey("OPENAI_API_KEY")
		if err != nil {
			return nil, err
		}
		return NewOpenAIProvider(key, getenv("OPENAI_BASE_URL"), model), nil
	case "openrouter":
		key, err := requireKey("OPENROUTER_API_KEY")
		if err != nil {
			return nil, err
		}
		return NewOpenRouterProvider(key, model), nil
	case "ollama":
		host := getenv("OLLAMA_HOST")
		if host == "" {
			host = defaultOllamaHost
		}
		return NewOllamaProvider(host, model), nil
	default:
		return nil, fmt.Errorf("unsupported provider type: %q", providerType)
	}
}
