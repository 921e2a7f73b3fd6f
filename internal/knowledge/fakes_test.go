package knowledge

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/careline/careline/internal/embedding"
	"github.com/careline/careline/internal/store"
)

// fakeModel is a scripted chat model: each Generate call returns the next
// reply (or error) in sequence, repeating the last entry when exhausted.
type fakeModel struct {
	replies []string
	errs    []error
	calls   int
}

func (f *fakeModel) Generate(_ context.Context, _ []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	i := f.calls
	f.calls++
	if i >= len(f.replies) {
		i = len(f.replies) - 1
	}
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	if i < 0 {
		return nil, errors.New("fake model has no replies")
	}
	return schema.AssistantMessage(f.replies[i], nil), nil
}

func (f *fakeModel) Stream(_ context.Context, _ []*schema.Message, _ ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("streaming not supported in fake")
}

func (f *fakeModel) WithTools(_ []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	return f, nil
}

// fakeEmbedBackend returns a deterministic non-zero vector per text.
type fakeEmbedBackend struct {
	dims int
	err  error
}

func (f *fakeEmbedBackend) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		v := make([]float32, f.dims)
		v[0] = float32(i + 1)
		out[i] = v
	}
	return out, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testEmbedder(dims int) *embedding.Resilient {
	return embedding.NewResilient(&fakeEmbedBackend{dims: dims}, dims, testLogger())
}

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("open in-memory store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}
