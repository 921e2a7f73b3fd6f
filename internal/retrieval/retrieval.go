// Package retrieval ranks stored knowledge against a user query. QA pairs are
// checked first: a question embedding close enough to the query short-circuits
// into a direct answer. Otherwise the top document chunks by cosine similarity
// provide grounding context.
package retrieval

import (
	"context"
	"fmt"
	"sort"

	"github.com/careline/careline/internal/embedding"
	"github.com/careline/careline/internal/store"
)

// Source supplies the candidate snapshots to rank. *store.Store satisfies it.
type Source interface {
	// ListQAPairs returns all searchable QA pairs with embeddings.
	ListQAPairs(ctx context.Context) ([]store.QAPair, error)
	// ListChunks returns all searchable chunks with embeddings, in a stable
	// order so equal scores rank deterministically.
	ListChunks(ctx context.Context) ([]store.Chunk, error)
}

// SourceType labels where a hit came from.
type SourceType string

const (
	// SourceQA marks a hit backed by a synthesized QA pair.
	SourceQA SourceType = "qa"
	// SourceChunk marks a hit backed by a document chunk.
	SourceChunk SourceType = "chunk"
)

// Hit is one ranked retrieval result.
type Hit struct {
	// Content is the retrievable text. For QA hits this is the pair rendered
	// as "Q: ...\nA: ..." so it can be dropped into a prompt directly.
	Content string `json:"content"`
	// Score is the cosine similarity to the query, in [-1, 1].
	Score float64 `json:"score"`
	// Type identifies the hit's origin.
	Type SourceType `json:"type"`
	// DocumentID is the owning document.
	DocumentID string `json:"document_id"`
}

// Engine performs similarity search over the knowledge base.
type Engine struct {
	source   Source
	embedder *embedding.Resilient

	// qaThreshold is the minimum similarity for a QA pair to answer directly.
	qaThreshold float64
	// qaMargin is added to qaThreshold before promotion; it guards sparse
	// knowledge bases where even the best match is weak.
	qaMargin float64
	// topK bounds the number of chunk hits returned.
	topK int
}

// NewEngine constructs an Engine over the given source and embedder.
func NewEngine(source Source, embedder *embedding.Resilient, qaThreshold, qaMargin float64, topK int) *Engine {
	return &Engine{
		source:      source,
		embedder:    embedder,
		qaThreshold: qaThreshold,
		qaMargin:    qaMargin,
		topK:        topK,
	}
}

// Search embeds the query once and ranks it against the knowledge base.
// When the best QA pair clears the threshold it is returned as answer with no
// chunk hits; otherwise answer is nil and up to topK chunk hits are returned,
// best first. A degraded (zero-vector) query embedding still returns results:
// everything scores 0 and chunks surface in stable stored order.
func (e *Engine) Search(ctx context.Context, query string) (answer *Hit, chunks []Hit, err error) {
	queryVec := e.embedder.EmbedOne(ctx, query)

	qaPairs, err := e.source.ListQAPairs(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("retrieval: load qa pairs: %w", err)
	}

	var best *store.QAPair
	var bestScore float64
	for i := range qaPairs {
		score := embedding.CosineSimilarity(queryVec, qaPairs[i].Embedding)
		if best == nil || score > bestScore {
			best = &qaPairs[i]
			bestScore = score
		}
	}
	if best != nil && bestScore >= e.qaThreshold+e.qaMargin {
		return &Hit{
			Content:    fmt.Sprintf("Q: %s\nA: %s", best.Question, best.Answer),
			Score:      bestScore,
			Type:       SourceQA,
			DocumentID: best.DocumentID,
		}, nil, nil
	}

	stored, err := e.source.ListChunks(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("retrieval: load chunks: %w", err)
	}

	hits := make([]Hit, 0, len(stored))
	for i := range stored {
		hits = append(hits, Hit{
			Content:    stored[i].Content,
			Score:      embedding.CosineSimilarity(queryVec, stored[i].Embedding),
			Type:       SourceChunk,
			DocumentID: stored[i].DocumentID,
		})
	}
	// Stable sort keeps the source order for equal scores.
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })

	if len(hits) > e.topK {
		hits = hits[:e.topK]
	}
	return nil, hits, nil
}
