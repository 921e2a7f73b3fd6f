package provider

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/model"

	"github.com/careline/careline/internal/config"
)

// New constructs a ChatModel from an explicit Config, delegating to the
// appropriate backend factory function. It validates the config first so
// callers get a clear error at startup rather than on the first request.
func New(ctx context.Context, cfg *Config) (model.ToolCallingChatModel, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Backend {
	case BackendOllama:
		return newOllama(ctx, cfg)
	case BackendOpenAI:
		return newOpenAI(ctx, cfg)
	case BackendAzure:
		return newAzure(ctx, cfg)
	case BackendArk:
		return newArk(ctx, cfg)
	case BackendGemini:
		return newGemini(ctx, cfg)
	default:
		return nil, fmt.Errorf("provider: unknown backend %q — valid values: ollama, openai, azure, ark, gemini", cfg.Backend)
	}
}

// FromLLMConfig maps the application LLM configuration onto a provider Config.
func FromLLMConfig(llm *config.LLMConfig) *Config {
	return &Config{
		Backend:         Backend(llm.Provider),
		Model:           llm.Model,
		BaseURL:         llm.BaseURL,
		APIKey:          llm.APIKey,
		AzureDeployment: llm.AzureDeployment,
		AzureAPIVersion: llm.AzureAPIVersion,
		MaxTokens:       llm.MaxTokens,
		Temperature:     llm.Temperature,
	}
}
