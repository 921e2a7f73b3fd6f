package provider

import (
	"strings"
	"testing"

	"github.com/careline/careline/internal/config"
)

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		// ── Ollama ────────────────────────────────────────────────────────────
		{
			name: "ollama/valid",
			cfg:  Config{Backend: BackendOllama, BaseURL: "http://localhost:11434", Model: "llama3"},
		},
		{
			name:    "ollama/missing model",
			cfg:     Config{Backend: BackendOllama, BaseURL: "http://localhost:11434"},
			wantErr: "model is required",
		},

		// ── OpenAI ────────────────────────────────────────────────────────────
		{
			name: "openai/valid",
			cfg:  Config{Backend: BackendOpenAI, APIKey: "sk-test", Model: "deepseek-chat"},
		},
		{
			name:    "openai/missing api key",
			cfg:     Config{Backend: BackendOpenAI, Model: "deepseek-chat"},
			wantErr: "API key is required",
		},
		{
			name:    "openai/missing model",
			cfg:     Config{Backend: BackendOpenAI, APIKey: "sk-test"},
			wantErr: "model is required",
		},

		// ── Azure ─────────────────────────────────────────────────────────────
		{
			name: "azure/valid",
			cfg: Config{
				Backend:         BackendAzure,
				APIKey:          "key",
				BaseURL:         "https://my.openai.azure.com",
				AzureDeployment: "gpt-4o",
				AzureAPIVersion: "2024-02-01",
			},
		},
		{
			name: "azure/missing api key",
			cfg: Config{
				Backend:         BackendAzure,
				BaseURL:         "https://my.openai.azure.com",
				AzureDeployment: "gpt-4o",
			},
			wantErr: "API key is required",
		},
		{
			name: "azure/missing endpoint",
			cfg: Config{
				Backend:         BackendAzure,
				APIKey:          "key",
				AzureDeployment: "gpt-4o",
			},
			wantErr: "base URL",
		},
		{
			name: "azure/missing deployment",
			cfg: Config{
				Backend: BackendAzure,
				APIKey:  "key",
				BaseURL: "https://my.openai.azure.com",
			},
			wantErr: "azure_deployment",
		},

		// ── Ark ───────────────────────────────────────────────────────────────
		{
			name: "ark/valid",
			cfg:  Config{Backend: BackendArk, APIKey: "ark-key", Model: "doubao-pro"},
		},
		{
			name:    "ark/missing api key",
			cfg:     Config{Backend: BackendArk, Model: "doubao-pro"},
			wantErr: "API key is required",
		},

		// ── Gemini ────────────────────────────────────────────────────────────
		{
			name: "gemini/valid",
			cfg:  Config{Backend: BackendGemini, APIKey: "AIza-test", Model: "gemini-1.5-pro"},
		},
		{
			name:    "gemini/missing api key",
			cfg:     Config{Backend: BackendGemini, Model: "gemini-1.5-pro"},
			wantErr: "API key is required",
		},
		{
			name:    "gemini/missing model",
			cfg:     Config{Backend: BackendGemini, APIKey: "AIza-test"},
			wantErr: "model is required",
		},

		// ── Unknown backend ───────────────────────────────────────────────────
		{
			name:    "unknown backend",
			cfg:     Config{Backend: "unknown"},
			wantErr: "unknown backend",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := tc.cfg.Validate()
			if tc.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() expected error containing %q, got nil", tc.wantErr)
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("Validate() error = %q, want substring %q", err.Error(), tc.wantErr)
			}
		})
	}
}

func TestFromLLMConfig(t *testing.T) {
	t.Parallel()

	llm := &config.LLMConfig{
		Provider:        "openai",
		Model:           "deepseek-chat",
		BaseURL:         "https://api.deepseek.com/v1",
		APIKey:          "sk-test",
		AzureAPIVersion: "2024-02-01",
		Temperature:     0.7,
		MaxTokens:       2048,
	}
	cfg := FromLLMConfig(llm)

	if cfg.Backend != BackendOpenAI {
		t.Errorf("Backend = %q, want openai", cfg.Backend)
	}
	if cfg.Model != "deepseek-chat" || cfg.BaseURL != llm.BaseURL || cfg.APIKey != "sk-test" {
		t.Errorf("field mapping mismatch: %+v", cfg)
	}
	if cfg.Temperature != 0.7 || cfg.MaxTokens != 2048 {
		t.Errorf("tuning mapping mismatch: %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() on mapped config: %v", err)
	}
}
