package embedding

import (
	"context"
	"log/slog"
)

// batchSize is the maximum number of texts sent to the backend per request.
// Embedding APIs reject oversized batches, and smaller batches limit the
// blast radius of a failed call.
const batchSize = 20

// Resilient wraps a backend Client so that embedding can never abort its
// caller. Inputs are split into batches of at most batchSize; when a batch
// fails, every text in it receives a zero vector of the configured dimension
// and the failure is logged. The output is always parallel to the input and
// the returned error is always nil.
//
// Zero vectors score 0.0 against everything under cosine similarity, so
// degraded entries sink to the bottom of retrieval rankings instead of
// poisoning them.
type Resilient struct {
	backend    Client
	dimensions int
	log        *slog.Logger
}

// NewResilient wraps backend with batching and zero-vector degradation.
// dimensions must match the vector size the backend produces.
func NewResilient(backend Client, dimensions int, log *slog.Logger) *Resilient {
	return &Resilient{
		backend:    backend,
		dimensions: dimensions,
		log:        log,
	}
}

// Embed converts texts into embeddings, batch by batch. Failed batches are
// replaced with zero vectors rather than propagated as errors.
func (r *Resilient) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += batchSize {
		end := start + batchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch := texts[start:end]

		vecs, err := r.backend.Embed(ctx, batch)
		if err != nil {
			r.log.Warn("embedding batch failed, substituting zero vectors",
				slog.Int("batch_start", start),
				slog.Int("batch_size", len(batch)),
				slog.String("error", err.Error()),
			)
			for range batch {
				out = append(out, make([]float32, r.dimensions))
			}
			continue
		}

		for _, v := range vecs {
			if len(v) == 0 {
				v = make([]float32, r.dimensions)
			}
			out = append(out, v)
		}
	}

	return out, nil
}

// EmbedOne embeds a single text. The zero-vector guarantee of Embed applies,
// so the returned vector is never nil.
func (r *Resilient) EmbedOne(ctx context.Context, text string) []float32 {
	vecs, _ := r.Embed(ctx, []string{text})
	return vecs[0]
}

// Ping probes the backend directly, bypassing zero-vector degradation, so
// readiness checks can see failures that Embed deliberately hides.
func (r *Resilient) Ping(ctx context.Context) error {
	_, err := r.backend.Embed(ctx, []string{"ping"})
	return err
}
