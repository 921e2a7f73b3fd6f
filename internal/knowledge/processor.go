package knowledge

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/careline/careline/internal/embedding"
	"github.com/careline/careline/internal/store"
)

// Processor runs the full ingestion pipeline for one document: chunk the
// text, synthesize QA pairs per chunk, and embed both. The embedding stage
// degrades to zero vectors rather than failing, so processing itself never
// hard-errors.
type Processor struct {
	embedder     *embedding.Resilient
	synthesizer  *Synthesizer
	chunkSize    int
	chunkOverlap int
	log          *slog.Logger
}

// NewProcessor constructs a Processor with the given chunking parameters.
func NewProcessor(embedder *embedding.Resilient, synth *Synthesizer, chunkSize, chunkOverlap int, log *slog.Logger) *Processor {
	return &Processor{
		embedder:     embedder,
		synthesizer:  synth,
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
		log:          log,
	}
}

// Process turns raw document text into embedded chunks and QA pairs ready for
// the store. A text that yields no chunks (empty or whitespace-only) is a
// valid degenerate input and produces empty results, not an error.
func (p *Processor) Process(ctx context.Context, docID, text string) ([]store.Chunk, []store.QAPair, error) {
	texts := SplitText(text, p.chunkSize, p.chunkOverlap)
	if len(texts) == 0 {
		p.log.Info("document yielded no chunks", slog.String("document_id", docID))
		return nil, nil, nil
	}

	vecs, err := p.embedder.Embed(ctx, texts)
	if err != nil {
		// Resilient never errors; keep the check for interface honesty.
		return nil, nil, fmt.Errorf("knowledge: embed chunks: %w", err)
	}

	chunks := make([]store.Chunk, len(texts))
	for i, t := range texts {
		chunks[i] = store.Chunk{
			DocumentID: docID,
			Seq:        i,
			Content:    t,
			Embedding:  vecs[i],
		}
	}

	qaPairs := p.synthesizeQA(ctx, docID, texts)

	p.log.Info("document processed",
		slog.String("document_id", docID),
		slog.Int("chunks", len(chunks)),
		slog.Int("qa_pairs", len(qaPairs)),
	)
	return chunks, qaPairs, nil
}

// synthesizeQA runs the synthesizer over every chunk text and embeds the
// concatenated pairs in one batch. Best-effort throughout: a chunk whose
// synthesis fails contributes nothing, and a failed embedding stage yields
// an empty slice.
func (p *Processor) synthesizeQA(ctx context.Context, docID string, texts []string) []store.QAPair {
	var pairs []Pair
	for _, t := range texts {
		pairs = append(pairs, p.synthesizer.Synthesize(ctx, t)...)
	}
	if len(pairs) == 0 {
		return nil
	}

	questions := make([]string, len(pairs))
	for i, pair := range pairs {
		questions[i] = pair.Question
	}
	vecs, err := p.embedder.Embed(ctx, questions)
	if err != nil {
		p.log.Warn("qa embedding failed, dropping pairs",
			slog.String("document_id", docID),
			slog.String("error", err.Error()))
		return nil
	}

	out := make([]store.QAPair, len(pairs))
	for i, pair := range pairs {
		out[i] = store.QAPair{
			DocumentID: docID,
			Question:   pair.Question,
			Answer:     pair.Answer,
			Embedding:  vecs[i],
		}
	}
	return out
}
