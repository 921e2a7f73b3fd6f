// Package config provides YAML-based configuration for careline.
// Configuration is resolved with a layered precedence: defaults → YAML file →
// env vars. Environment variables always win, so containerized deployments
// can override any file value.
//
// File search order:
//  1. --config CLI flag (explicit path)
//  2. CARELINE_CONFIG environment variable
//  3. ~/.careline/config.yaml
//  4. ./careline.yaml
//
// If no file is found the system runs from defaults plus env vars.
//
// Unlike process-wide mutable settings, the resolved Config is an explicit
// value handed to each component constructor; nothing reads it lazily at
// request time.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration structure.
type Config struct {
	// LLM configures the text-generation model provider.
	LLM LLMConfig `yaml:"llm"`

	// Embedding configures the embedding model provider.
	Embedding EmbeddingConfig `yaml:"embedding"`

	// Retrieval configures knowledge chunking and similarity search.
	Retrieval RetrievalConfig `yaml:"retrieval"`

	// Store configures the SQLite knowledge/conversation store.
	Store StoreConfig `yaml:"store"`

	// Server configures the HTTP server.
	Server ServerConfig `yaml:"server"`

	// Logging configures structured logging.
	Logging LoggingConfig `yaml:"logging"`

	// Tracing configures Langfuse tracing integration.
	Tracing TracingConfig `yaml:"tracing"`
}

// LLMConfig holds text-generation model settings.
type LLMConfig struct {
	// Provider selects the backend: ollama, openai, azure, ark, gemini.
	Provider string `yaml:"provider"`
	// Model is the model name or deployment ID (e.g. "deepseek-chat").
	Model string `yaml:"model"`
	// BaseURL overrides the default API endpoint (required for ollama, azure,
	// and OpenAI-compatible gateways).
	BaseURL string `yaml:"base_url"`
	// APIKey is the authentication credential. Prefer env var LLM_API_KEY.
	APIKey string `yaml:"api_key"`
	// AzureDeployment is the Azure OpenAI deployment name (azure only).
	AzureDeployment string `yaml:"azure_deployment"`
	// AzureAPIVersion is the Azure OpenAI REST API version (azure only).
	AzureAPIVersion string `yaml:"azure_api_version"`
	// Temperature controls response randomness (0.0–1.0).
	Temperature float32 `yaml:"temperature"`
	// MaxTokens caps the number of tokens generated per response.
	MaxTokens int `yaml:"max_tokens"`
}

// EmbeddingConfig holds embedding model settings.
type EmbeddingConfig struct {
	// Provider selects the embedding backend: openai, ollama.
	// "openai" covers any OpenAI-compatible endpoint, including the
	// DashScope compatible mode used for Qwen text-embedding models.
	Provider string `yaml:"provider"`
	// Model is the embedding model name (e.g. "text-embedding-v4").
	Model string `yaml:"model"`
	// BaseURL is the embedding API base URL.
	BaseURL string `yaml:"base_url"`
	// APIKey is the embedding API key. Prefer env var EMBEDDING_API_KEY.
	APIKey string `yaml:"api_key"`
	// Dimensions is the embedding vector size. Zero-vector fallbacks and
	// stored embeddings all use this dimension.
	Dimensions int `yaml:"dimensions"`
}

// RetrievalConfig holds chunking and similarity-search settings.
type RetrievalConfig struct {
	// QAThreshold is the minimum cosine similarity for a QA pair to be
	// returned as a direct answer, bypassing chunk retrieval.
	QAThreshold float64 `yaml:"qa_threshold"`
	// QAMargin is an additional safety margin added to QAThreshold before a
	// QA pair is promoted. Guards sparse knowledge bases where the best match
	// found may still be weak. Default 0.
	QAMargin float64 `yaml:"qa_margin"`
	// VectorTopK is the number of chunk hits returned when no QA pair
	// reaches the threshold.
	VectorTopK int `yaml:"vector_top_k"`
	// ChunkSize is the maximum number of characters per document chunk.
	ChunkSize int `yaml:"chunk_size"`
	// ChunkOverlap is the number of characters carried over between
	// consecutive chunks.
	ChunkOverlap int `yaml:"chunk_overlap"`
}

// StoreConfig holds knowledge/conversation store settings.
type StoreConfig struct {
	// DBPath is the SQLite database path. ":memory:" is valid for tests.
	DBPath string `yaml:"db_path"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the bind address.
	Host string `yaml:"host"`
	// Port is the TCP port.
	Port int `yaml:"port"`
	// APIKey is the Bearer token for API authentication. Empty disables auth.
	// Prefer env var CARELINE_API_KEY.
	APIKey string `yaml:"api_key"`
	// RateLimit is the sustained request rate allowed per IP (requests/second).
	RateLimit float64 `yaml:"rate_limit"`
	// RateBurst is the maximum instantaneous burst per IP.
	RateBurst int `yaml:"rate_burst"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error.
	Level string `yaml:"level"`
	// Format is the log output format: json, text.
	Format string `yaml:"format"`
}

// TracingConfig holds Langfuse tracing settings.
type TracingConfig struct {
	// PublicKey is the Langfuse public key. Prefer env var LANGFUSE_PUBLIC_KEY.
	PublicKey string `yaml:"public_key"`
	// SecretKey is the Langfuse secret key. Prefer env var LANGFUSE_SECRET_KEY.
	SecretKey string `yaml:"secret_key"`
	// Host is the Langfuse API host.
	Host string `yaml:"host"`
}

// Default returns a Config populated with the built-in defaults.
// The retrieval defaults match the values the knowledge base was tuned with:
// qa_threshold 0.85, top-k 3, 500-char chunks with 50-char overlap.
func Default() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:        "openai",
			Model:           "deepseek-chat",
			BaseURL:         "https://api.deepseek.com/v1",
			AzureAPIVersion: "2024-02-01",
			Temperature:     0.7,
			MaxTokens:       2048,
		},
		Embedding: EmbeddingConfig{
			Provider:   "openai",
			Model:      "text-embedding-v4",
			BaseURL:    "https://dashscope.aliyuncs.com/compatible-mode/v1",
			Dimensions: 1536,
		},
		Retrieval: RetrievalConfig{
			QAThreshold:  0.85,
			QAMargin:     0,
			VectorTopK:   3,
			ChunkSize:    500,
			ChunkOverlap: 50,
		},
		Store: StoreConfig{
			DBPath: "careline.db",
		},
		Server: ServerConfig{
			Host:      "127.0.0.1",
			Port:      8080,
			RateLimit: 10,
			RateBurst: 20,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load resolves the full configuration: defaults, then the first YAML file
// found in the search order, then env var overrides. Returns the resolved
// Config and the path of the file that was loaded ("" if none).
func Load(explicitPath string) (*Config, string, error) {
	cfg := Default()

	path := resolveConfigPath(explicitPath)
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, "", fmt.Errorf("config: failed to read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, "", fmt.Errorf("config: failed to parse %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.validate(); err != nil {
		return nil, "", err
	}

	return cfg, path, nil
}

// applyEnv overlays environment variables onto the config. Env always wins.
func (c *Config) applyEnv() {
	setStr(&c.LLM.Provider, "LLM_PROVIDER")
	setStr(&c.LLM.Model, "LLM_MODEL")
	setStr(&c.LLM.BaseURL, "LLM_BASE_URL")
	setStr(&c.LLM.APIKey, "LLM_API_KEY")
	setStr(&c.LLM.AzureDeployment, "AZURE_DEPLOYMENT")
	setStr(&c.LLM.AzureAPIVersion, "AZURE_API_VERSION")
	setFloat32(&c.LLM.Temperature, "LLM_TEMPERATURE")
	setInt(&c.LLM.MaxTokens, "LLM_MAX_TOKENS")

	setStr(&c.Embedding.Provider, "EMBEDDING_PROVIDER")
	setStr(&c.Embedding.Model, "EMBEDDING_MODEL")
	setStr(&c.Embedding.BaseURL, "EMBEDDING_BASE_URL")
	setStr(&c.Embedding.APIKey, "EMBEDDING_API_KEY")
	setInt(&c.Embedding.Dimensions, "EMBEDDING_DIMENSIONS")

	setFloat64(&c.Retrieval.QAThreshold, "QA_THRESHOLD")
	setFloat64(&c.Retrieval.QAMargin, "QA_MARGIN")
	setInt(&c.Retrieval.VectorTopK, "VECTOR_TOP_K")
	setInt(&c.Retrieval.ChunkSize, "CHUNK_SIZE")
	setInt(&c.Retrieval.ChunkOverlap, "CHUNK_OVERLAP")

	setStr(&c.Store.DBPath, "CARELINE_DB")

	setStr(&c.Server.Host, "SERVER_HOST")
	setInt(&c.Server.Port, "SERVER_PORT")
	setStr(&c.Server.APIKey, "CARELINE_API_KEY")
	setFloat64(&c.Server.RateLimit, "RATE_LIMIT")
	setInt(&c.Server.RateBurst, "RATE_BURST")

	setStr(&c.Logging.Level, "LOG_LEVEL")
	setStr(&c.Logging.Format, "LOG_FORMAT")

	setStr(&c.Tracing.PublicKey, "LANGFUSE_PUBLIC_KEY")
	setStr(&c.Tracing.SecretKey, "LANGFUSE_SECRET_KEY")
	setStr(&c.Tracing.Host, "LANGFUSE_HOST")
}

// validate rejects configurations that would produce broken pipelines.
func (c *Config) validate() error {
	if c.Embedding.Dimensions <= 0 {
		return fmt.Errorf("config: embedding.dimensions must be positive, got %d", c.Embedding.Dimensions)
	}
	if c.Retrieval.ChunkSize <= 0 {
		return fmt.Errorf("config: retrieval.chunk_size must be positive, got %d", c.Retrieval.ChunkSize)
	}
	if c.Retrieval.ChunkOverlap < 0 {
		return fmt.Errorf("config: retrieval.chunk_overlap must not be negative, got %d", c.Retrieval.ChunkOverlap)
	}
	if c.Retrieval.VectorTopK <= 0 {
		return fmt.Errorf("config: retrieval.vector_top_k must be positive, got %d", c.Retrieval.VectorTopK)
	}
	if c.Retrieval.QAThreshold < 0 || c.Retrieval.QAThreshold > 1 {
		return fmt.Errorf("config: retrieval.qa_threshold must be in [0,1], got %g", c.Retrieval.QAThreshold)
	}
	return nil
}

// resolveConfigPath returns the first config file path that exists.
func resolveConfigPath(explicit string) string {
	if explicit != "" {
		if _, err := os.Stat(explicit); err == nil {
			return explicit
		}
		return ""
	}

	if envPath := os.Getenv("CARELINE_CONFIG"); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	home, err := os.UserHomeDir()
	if err == nil {
		p := filepath.Join(home, ".careline", "config.yaml")
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	if _, err := os.Stat("careline.yaml"); err == nil {
		return "careline.yaml"
	}

	return ""
}

// setStr overwrites dst when the named env var is set and non-empty.
func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// setInt overwrites dst when the named env var parses as an integer.
func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			*dst = i
		}
	}
}

// setFloat64 overwrites dst when the named env var parses as a float.
func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

// setFloat32 overwrites dst when the named env var parses as a float.
func setFloat32(dst *float32, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 32); err == nil {
			*dst = float32(f)
		}
	}
}
