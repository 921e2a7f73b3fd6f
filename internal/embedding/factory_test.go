package embedding

import (
	"testing"

	"github.com/careline/careline/internal/config"
)

func TestNew(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     config.EmbeddingConfig
		wantErr bool
	}{
		{
			name: "openai with key",
			cfg: config.EmbeddingConfig{
				Provider:   "openai",
				Model:      "text-embedding-v4",
				BaseURL:    "https://dashscope.aliyuncs.com/compatible-mode/v1",
				APIKey:     "sk-test",
				Dimensions: 1536,
			},
		},
		{
			name: "openai without key",
			cfg: config.EmbeddingConfig{
				Provider:   "openai",
				Model:      "text-embedding-v4",
				Dimensions: 1536,
			},
			wantErr: true,
		},
		{
			name: "ollama no key needed",
			cfg: config.EmbeddingConfig{
				Provider:   "ollama",
				Model:      "nomic-embed-text",
				Dimensions: 768,
			},
		},
		{
			name: "unknown provider",
			cfg: config.EmbeddingConfig{
				Provider:   "bedrock",
				Dimensions: 1536,
			},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c, err := New(&tt.cfg, discardLogger())
			if tt.wantErr {
				if err == nil {
					t.Fatal("New() error = nil, want error")
				}
				return
			}
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			if c == nil {
				t.Fatal("New() returned nil client")
			}
		})
	}
}
