package retrieval

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/careline/careline/internal/embedding"
	"github.com/careline/careline/internal/store"
)

// fakeSource serves fixed candidate slices.
type fakeSource struct {
	qaPairs []store.QAPair
	chunks  []store.Chunk
}

func (f *fakeSource) ListQAPairs(context.Context) ([]store.QAPair, error) { return f.qaPairs, nil }
func (f *fakeSource) ListChunks(context.Context) ([]store.Chunk, error)  { return f.chunks, nil }

// keywordBackend embeds known phrases onto fixed axes so similarity scores in
// tests are predictable: unknown text gets a distinct axis of its own.
type keywordBackend struct {
	axes map[string]int
	dims int
}

func (k *keywordBackend) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v := make([]float32, k.dims)
		if axis, ok := k.axes[t]; ok {
			v[axis] = 1
		} else {
			v[k.dims-1] = 1
		}
		out[i] = v
	}
	return out, nil
}

// failingBackend always errors so the resilient wrapper degrades to zeros.
type failingBackend struct{}

func (failingBackend) Embed(context.Context, []string) ([][]float32, error) {
	return nil, context.DeadlineExceeded
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func axisVec(dims, axis int, scale float32) []float32 {
	v := make([]float32, dims)
	v[axis] = scale
	return v
}

func TestSearch_QAShortCircuit(t *testing.T) {
	t.Parallel()

	src := &fakeSource{
		qaPairs: []store.QAPair{
			{DocumentID: "d1", Question: "how do refunds work?", Answer: "within 14 days", Embedding: axisVec(4, 0, 1)},
			{DocumentID: "d1", Question: "unrelated", Answer: "nope", Embedding: axisVec(4, 1, 1)},
		},
		chunks: []store.Chunk{
			{DocumentID: "d1", Content: "chunk that must not be scanned", Embedding: axisVec(4, 0, 1)},
		},
	}
	backend := &keywordBackend{dims: 4, axes: map[string]int{"refund question": 0}}
	e := NewEngine(src, embedding.NewResilient(backend, 4, testLogger()), 0.85, 0, 3)

	answer, chunks, err := e.Search(context.Background(), "refund question")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if answer == nil {
		t.Fatal("want a direct answer, got nil")
	}
	if answer.Type != SourceQA {
		t.Errorf("answer type = %q, want qa", answer.Type)
	}
	if want := "Q: how do refunds work?\nA: within 14 days"; answer.Content != want {
		t.Errorf("answer content = %q, want %q", answer.Content, want)
	}
	if answer.Score < 0.85 {
		t.Errorf("answer score = %g, want >= threshold", answer.Score)
	}
	if len(chunks) != 0 {
		t.Errorf("got %d chunk hits alongside direct answer, want 0", len(chunks))
	}
}

func TestSearch_FallsBackToChunks(t *testing.T) {
	t.Parallel()

	src := &fakeSource{
		qaPairs: []store.QAPair{
			// Same axis but weaker than the threshold after normalization is
			// impossible with unit vectors, so use an orthogonal pair instead.
			{DocumentID: "d1", Question: "off topic", Answer: "x", Embedding: axisVec(4, 1, 1)},
		},
		chunks: []store.Chunk{
			{DocumentID: "d1", Seq: 0, Content: "weak match", Embedding: axisVec(4, 2, 1)},
			{DocumentID: "d1", Seq: 1, Content: "strong match", Embedding: axisVec(4, 0, 1)},
		},
	}
	backend := &keywordBackend{dims: 4, axes: map[string]int{"billing question": 0}}
	e := NewEngine(src, embedding.NewResilient(backend, 4, testLogger()), 0.85, 0, 3)

	answer, chunks, err := e.Search(context.Background(), "billing question")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if answer != nil {
		t.Fatalf("got direct answer %+v, want chunk fallback", answer)
	}
	if len(chunks) != 2 {
		t.Fatalf("want 2 chunk hits, got %d", len(chunks))
	}
	if chunks[0].Content != "strong match" {
		t.Errorf("best hit = %q, want strong match first", chunks[0].Content)
	}
	if chunks[0].Score <= chunks[1].Score {
		t.Errorf("scores not descending: %g then %g", chunks[0].Score, chunks[1].Score)
	}
}

func TestSearch_TopKBound(t *testing.T) {
	t.Parallel()

	var chunks []store.Chunk
	for i := 0; i < 7; i++ {
		chunks = append(chunks, store.Chunk{DocumentID: "d1", Seq: i, Content: "c", Embedding: axisVec(4, i%4, 1)})
	}
	src := &fakeSource{chunks: chunks}
	backend := &keywordBackend{dims: 4, axes: map[string]int{"q": 0}}
	e := NewEngine(src, embedding.NewResilient(backend, 4, testLogger()), 0.85, 0, 3)

	_, hits, err := e.Search(context.Background(), "q")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(hits) != 3 {
		t.Errorf("want 3 hits, got %d", len(hits))
	}
}

func TestSearch_TieBreakIsStable(t *testing.T) {
	t.Parallel()

	// All chunks score identically; stored order must be preserved.
	src := &fakeSource{
		chunks: []store.Chunk{
			{DocumentID: "d1", Seq: 0, Content: "first", Embedding: axisVec(4, 0, 1)},
			{DocumentID: "d1", Seq: 1, Content: "second", Embedding: axisVec(4, 0, 2)},
			{DocumentID: "d1", Seq: 2, Content: "third", Embedding: axisVec(4, 0, 3)},
		},
	}
	backend := &keywordBackend{dims: 4, axes: map[string]int{"q": 0}}
	e := NewEngine(src, embedding.NewResilient(backend, 4, testLogger()), 0.85, 0, 3)

	_, hits, err := e.Search(context.Background(), "q")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	want := []string{"first", "second", "third"}
	for i, w := range want {
		if hits[i].Content != w {
			t.Errorf("hit[%d] = %q, want %q", i, hits[i].Content, w)
		}
	}
}

func TestSearch_DegradedQueryEmbedding(t *testing.T) {
	t.Parallel()

	src := &fakeSource{
		qaPairs: []store.QAPair{
			{DocumentID: "d1", Question: "q", Answer: "a", Embedding: axisVec(4, 0, 1)},
		},
		chunks: []store.Chunk{
			{DocumentID: "d1", Seq: 0, Content: "alpha", Embedding: axisVec(4, 0, 1)},
			{DocumentID: "d1", Seq: 1, Content: "beta", Embedding: axisVec(4, 1, 1)},
		},
	}
	e := NewEngine(src, embedding.NewResilient(failingBackend{}, 4, testLogger()), 0.85, 0, 3)

	answer, hits, err := e.Search(context.Background(), "anything")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if answer != nil {
		t.Fatalf("zero-vector query promoted a QA pair: %+v", answer)
	}
	if len(hits) != 2 {
		t.Fatalf("want 2 hits, got %d", len(hits))
	}
	// All scores are 0; stored order holds.
	if hits[0].Content != "alpha" || hits[1].Content != "beta" {
		t.Errorf("degraded ordering = %q, %q", hits[0].Content, hits[1].Content)
	}
	if hits[0].Score != 0 || hits[1].Score != 0 {
		t.Errorf("degraded scores = %g, %g, want 0", hits[0].Score, hits[1].Score)
	}
}

func TestSearch_QAMarginRaisesBar(t *testing.T) {
	t.Parallel()

	src := &fakeSource{
		qaPairs: []store.QAPair{
			{DocumentID: "d1", Question: "q", Answer: "a", Embedding: axisVec(4, 0, 1)},
		},
		chunks: []store.Chunk{
			{DocumentID: "d1", Seq: 0, Content: "fallback chunk", Embedding: axisVec(4, 0, 1)},
		},
	}
	backend := &keywordBackend{dims: 4, axes: map[string]int{"q": 0}}
	// Perfect match scores 1.0; a margin pushing the bar past 1.0 blocks it.
	e := NewEngine(src, embedding.NewResilient(backend, 4, testLogger()), 0.85, 0.2, 3)

	answer, hits, err := e.Search(context.Background(), "q")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if answer != nil {
		t.Fatalf("margin did not block promotion: %+v", answer)
	}
	if len(hits) != 1 {
		t.Errorf("want chunk fallback, got %d hits", len(hits))
	}
}

func TestSearch_EmptyKnowledgeBase(t *testing.T) {
	t.Parallel()

	e := NewEngine(&fakeSource{}, embedding.NewResilient(&keywordBackend{dims: 4}, 4, testLogger()), 0.85, 0, 3)
	answer, hits, err := e.Search(context.Background(), "anything")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if answer != nil || len(hits) != 0 {
		t.Errorf("empty knowledge base returned answer=%v hits=%d", answer, len(hits))
	}
}
