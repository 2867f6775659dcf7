package llm

import (
	"fmt"
	"os"

	"github.com/willibrandon/glance/internal/errs"
)

// defaultModel returns the model a provider talks to when the user
// hasn't set one explicitly.
func defaultModel(provider string) string {
	switch provider {
	case "anthropic":
		return "claude-sonnet-4-20250514"
	case "ollama":
		return "llama3.2:3b"
	default:
		return "gpt-4o"
	}
}

// apiKeyEnvVar names the environment variable a provider's key falls
// back to when none was passed explicitly or stored in settings.
func apiKeyEnvVar(provider string) string {
	switch provider {
	case "anthropic":
		return "ANTHROPIC_API_KEY"
	default:
		return "OPENAI_API_KEY"
	}
}

func modelEnvVar(provider string) string {
	switch provider {
	case "anthropic":
		return "ANTHROPIC_MODEL"
	case "ollama":
		return "OLLAMA_MODEL"
	default:
		return "OPENAI_MODEL"
	}
}

// CreateClient builds the Client for provider, resolving its API key
// and model with explicit param > environment variable > built-in
// default precedence. provider "mock" always succeeds, needing no key.
func CreateClient(provider, apiKey, model string) (Client, error) {
	switch provider {
	case "mock":
		return NewMockClient(), nil

	case "openai":
		key := resolveKey(apiKey, "OPENAI_API_KEY")
		if key == "" {
			return nil, missingKeyError("openai", "OPENAI_API_KEY")
		}
		return NewOpenAIClient(resolveModel(model, "openai"), key, ""), nil

	case "anthropic":
		key := resolveKey(apiKey, "ANTHROPIC_API_KEY")
		if key == "" {
			return nil, missingKeyError("anthropic", "ANTHROPIC_API_KEY")
		}
		return NewAnthropicClient(resolveModel(model, "anthropic"), key), nil

	case "ollama":
		baseURL := os.Getenv("OLLAMA_URL")
		if baseURL == "" {
			baseURL = "http://localhost:11434"
		}
		return NewOllamaClient(resolveModel(model, "ollama"), baseURL), nil

	default:
		return nil, errs.New(errs.Config, "llm.unknown_provider", fmt.Sprintf("unknown LLM provider %q", provider))
	}
}

func resolveKey(explicit, envVar string) string {
	if explicit != "" {
		return explicit
	}
	return os.Getenv(envVar)
}

func resolveModel(explicit, provider string) string {
	if explicit != "" {
		return explicit
	}
	if fromEnv := os.Getenv(modelEnvVar(provider)); fromEnv != "" {
		return fromEnv
	}
	return defaultModel(provider)
}

func missingKeyError(provider, envVar string) error {
	return errs.New(errs.LLM, "llm.missing_key",
		fmt.Sprintf("no API key configured for %s. Use /llm key <key> or set %s", provider, envVar))
}
