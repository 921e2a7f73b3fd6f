// Package embedding converts text into dense vector embeddings for similarity
// search. Each backend implementation (OpenAI-compatible, Ollama) talks to its
// API via plain HTTP — no additional SDK dependencies are required.
//
// Production callers should wrap a backend client in Resilient, which batches
// requests and substitutes zero vectors on failure so that a flaky embedding
// endpoint can never abort document ingestion or retrieval.
package embedding

import "context"

// Client converts batches of texts into embedding vectors.
// Implementations must return a slice parallel to the input: one vector per
// text, in order.
type Client interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}
