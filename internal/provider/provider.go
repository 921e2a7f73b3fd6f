// Package provider selects and constructs LLM backend implementations at
// runtime. Supported backends: Ollama, OpenAI-compatible APIs (including
// DeepSeek and other gateways), Azure OpenAI, Volcano Ark, Google Gemini.
package provider

import "fmt"

// Backend enumerates the supported LLM inference providers.
type Backend string

const (
	// BackendOllama selects a locally running Ollama instance.
	BackendOllama Backend = "ollama"
	// BackendOpenAI selects the OpenAI API or any OpenAI-compatible endpoint
	// (DeepSeek, DashScope compatible mode, vLLM gateways).
	BackendOpenAI Backend = "openai"
	// BackendAzure selects Azure OpenAI Service.
	BackendAzure Backend = "azure"
	// BackendArk selects the ByteDance Volcano Engine Ark runtime.
	BackendArk Backend = "ark"
	// BackendGemini selects Google Gemini via AI Studio.
	BackendGemini Backend = "gemini"
)

// Config holds all provider-level settings resolved from the application
// configuration.
type Config struct {
	// Backend identifies which inference provider to use.
	Backend Backend

	// Model is the model name or deployment ID (e.g. "deepseek-chat", "llama3").
	Model string

	// BaseURL overrides the default API endpoint (required for Ollama and
	// Azure, and for OpenAI-compatible gateways).
	BaseURL string

	// APIKey is the authentication credential for the selected provider.
	APIKey string

	// AzureDeployment is the Azure OpenAI deployment name (Azure only).
	AzureDeployment string

	// AzureAPIVersion is the Azure OpenAI REST API version (Azure only).
	AzureAPIVersion string

	// MaxTokens caps the number of tokens the model may generate per response.
	MaxTokens int

	// Temperature controls response randomness (0.0–1.0).
	Temperature float32
}

// Validate checks that the config names a known backend and carries the
// credentials that backend requires. Called by New so misconfiguration
// surfaces at startup rather than on the first request.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendOllama:
		if c.Model == "" {
			return fmt.Errorf("provider: model is required for ollama backend")
		}
	case BackendOpenAI:
		if c.APIKey == "" {
			return fmt.Errorf("provider: API key is required for openai backend")
		}
		if c.Model == "" {
			return fmt.Errorf("provider: model is required for openai backend")
		}
	case BackendAzure:
		if c.APIKey == "" {
			return fmt.Errorf("provider: API key is required for azure backend")
		}
		if c.BaseURL == "" {
			return fmt.Errorf("provider: base URL (Azure endpoint) is required for azure backend")
		}
		if c.AzureDeployment == "" {
			return fmt.Errorf("provider: azure_deployment is required for azure backend")
		}
	case BackendArk:
		if c.APIKey == "" {
			return fmt.Errorf("provider: API key is required for ark backend")
		}
		if c.Model == "" {
			return fmt.Errorf("provider: model is required for ark backend")
		}
	case BackendGemini:
		if c.APIKey == "" {
			return fmt.Errorf("provider: API key is required for gemini backend")
		}
		if c.Model == "" {
			return fmt.Errorf("provider: model is required for gemini backend")
		}
	default:
		return fmt.Errorf("provider: unknown backend %q — valid values: ollama, openai, azure, ark, gemini", c.Backend)
	}
	return nil
}
