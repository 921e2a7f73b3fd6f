package embedding

import (
	"fmt"
	"log/slog"

	"github.com/careline/careline/internal/config"
)

// New constructs a Resilient embedding client from the given config.
// The backend is selected by cfg.Provider: "openai" (any OpenAI-compatible
// endpoint) or "ollama".
func New(cfg *config.EmbeddingConfig, log *slog.Logger) (*Resilient, error) {
	var backend Client

	switch cfg.Provider {
	case "openai":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("embedding: openai provider requires an API key (set EMBEDDING_API_KEY)")
		}
		backend = NewOpenAIClient(&OpenAIConfig{
			BaseURL:    cfg.BaseURL,
			APIKey:     cfg.APIKey,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
		})

	case "ollama":
		host := cfg.BaseURL
		if host == "" {
			host = "http://localhost:11434"
		}
		backend = NewOllamaClient(&OllamaConfig{
			Host:  host,
			Model: cfg.Model,
		})

	default:
		return nil, fmt.Errorf("embedding: unknown provider %q — valid values: openai, ollama", cfg.Provider)
	}

	return NewResilient(backend, cfg.Dimensions, log), nil
}
