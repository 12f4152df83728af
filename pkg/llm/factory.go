package llm

import (
	"context"
	"net/http"
)

// CredentialEnv is the environment variable holding each provider's API key.
var CredentialEnv = map[ProviderName]string{
	ProviderClaude: "ANTHROPIC_API_KEY",
	ProviderOpenAI: "OPENAI_API_KEY",
	ProviderGemini: "GEMINI_API_KEY",
}

// ModelEnv optionally overrides a provider's default model.
var ModelEnv = map[ProviderName]string{
	ProviderClaude: "CLAUDE_MODEL",
	ProviderOpenAI: "OPENAI_MODEL",
	ProviderGemini: "GEMINI_MODEL",
}

// newProvider creates the backend for name.
func newProvider(ctx context.Context, name ProviderName, apiKey, baseURL string, client *http.Client) (Provider, error) {
	if apiKey == "" {
		return nil, &ProviderConfigError{Provider: string(name), Reason: CredentialEnv[name] + " is not set"}
	}

	switch name {
	case ProviderClaude:
		return NewClaude(apiKey, baseURL, client), nil
	case ProviderOpenAI:
		return NewOpenAI(apiKey, baseURL, client), nil
	case ProviderGemini:
		return NewGemini(ctx, apiKey, baseURL, client)
	default:
		return nil, &ProviderConfigError{Provider: string(name), Reason: "unsupported provider (supported: claude, openai, gemini)"}
	}
}
