package server

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/careline/careline/internal/embedding"
	"github.com/careline/careline/internal/store"
)

// StorePinger probes the SQLite store. It satisfies the Pinger interface and
// is used by GET /api/ready.
type StorePinger struct {
	// store is the persistence layer to probe.
	store *store.Store
}

// NewStorePinger constructs a StorePinger for the given store.
func NewStorePinger(st *store.Store) *StorePinger {
	return &StorePinger{store: st}
}

// Name returns the dependency label used in readiness responses.
func (p *StorePinger) Name() string { return "store" }

// Ping checks the database connection.
func (p *StorePinger) Ping(ctx context.Context) error {
	return p.store.Ping(ctx)
}

// LLMPinger probes an LLM backend by sending a minimal generate request.
// It consumes a handful of tokens per probe, so /api/ready should not be
// polled aggressively.
type LLMPinger struct {
	// model is the chat model to probe.
	model model.ToolCallingChatModel
	// name identifies the backend in readiness responses (e.g. "openai").
	name string
}

// NewLLMPinger constructs an LLMPinger for the given model and backend name.
func NewLLMPinger(m model.ToolCallingChatModel, name string) *LLMPinger {
	return &LLMPinger{model: m, name: name}
}

// Name returns the backend label used in readiness responses.
func (p *LLMPinger) Name() string { return p.name }

// Ping sends a single short generate request to the backend.
func (p *LLMPinger) Ping(ctx context.Context) error {
	msgs := []*schema.Message{
		schema.UserMessage("ping"),
	}
	resp, err := p.model.Generate(ctx, msgs, model.WithMaxTokens(1))
	if err != nil {
		return fmt.Errorf("generate failed: %w", err)
	}
	if resp == nil {
		return fmt.Errorf("generate returned nil response")
	}
	return nil
}

// EmbeddingPinger probes the embedding backend. The wrapped client hides
// failures behind zero vectors during normal operation, so the probe goes
// through a dedicated path that surfaces them.
type EmbeddingPinger struct {
	embedder *embedding.Resilient
}

// NewEmbeddingPinger constructs an EmbeddingPinger for the given embedder.
func NewEmbeddingPinger(e *embedding.Resilient) *EmbeddingPinger {
	return &EmbeddingPinger{embedder: e}
}

// Name returns the dependency label used in readiness responses.
func (p *EmbeddingPinger) Name() string { return "embedding" }

// Ping sends a single short embed request to the backend.
func (p *EmbeddingPinger) Ping(ctx context.Context) error {
	if err := p.embedder.Ping(ctx); err != nil {
		return fmt.Errorf("embed failed: %w", err)
	}
	return nil
}
