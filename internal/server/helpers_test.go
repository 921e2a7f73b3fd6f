package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/careline/careline/internal/assist"
	"github.com/careline/careline/internal/engine"
	"github.com/careline/careline/internal/store"
)

// fakeEngine returns a fixed reply or error and records the inputs it saw.
type fakeEngine struct {
	reply     *engine.Reply
	err       error
	queries   []string
	histories [][]store.Message
}

func (f *fakeEngine) ProcessQuery(_ context.Context, query string, history []store.Message) (*engine.Reply, error) {
	f.queries = append(f.queries, query)
	f.histories = append(f.histories, history)
	if f.err != nil {
		return nil, f.err
	}
	return f.reply, nil
}

// fakeAssist returns a fixed result.
type fakeAssist struct {
	result *assist.Result
	calls  int
}

func (f *fakeAssist) Assist(context.Context, []store.Message) *assist.Result {
	f.calls++
	return f.result
}

// fakeKnowledge is an in-memory knowledgeService.
type fakeKnowledge struct {
	docs      []store.Document
	ingestErr error
	failedDoc *store.Document
}

func (f *fakeKnowledge) Ingest(_ context.Context, name, _ string) (*store.Document, error) {
	if f.ingestErr != nil {
		return f.failedDoc, f.ingestErr
	}
	doc := store.Document{ID: "doc-" + name, Name: name, Status: store.StatusReady, ChunkCount: 1}
	f.docs = append(f.docs, doc)
	return &doc, nil
}

func (f *fakeKnowledge) List(context.Context) ([]store.Document, error) {
	return f.docs, nil
}

func (f *fakeKnowledge) Delete(_ context.Context, id string) error {
	for i, d := range f.docs {
		if d.ID == id {
			f.docs = append(f.docs[:i], f.docs[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

// testServerOpts customizes newTestServer.
type testServerOpts struct {
	engine    *fakeEngine
	assistant *fakeAssist
	knowledge *fakeKnowledge
	apiKey    string
	rateLimit float64
	rateBurst int
	pingers   []Pinger
}

// newTestServer builds a Server around fakes plus a real in-memory store for
// conversations, registered against a fresh Prometheus registry.
func newTestServer(t *testing.T, opts testServerOpts) (*Server, *store.Store) {
	t.Helper()

	st, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("open in-memory store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	if opts.engine == nil {
		opts.engine = &fakeEngine{reply: &engine.Reply{Content: "canned reply"}}
	}
	if opts.assistant == nil {
		opts.assistant = &fakeAssist{result: &assist.Result{Intent: "unknown", Suggestion: "draft"}}
	}
	if opts.knowledge == nil {
		opts.knowledge = &fakeKnowledge{}
	}

	cfg := &Config{
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		APIKey:    opts.apiKey,
		RateLimit: opts.rateLimit,
		RateBurst: opts.rateBurst,
		Pingers:   opts.pingers,
		Registry:  prometheus.NewRegistry(),
	}

	s, err := New(Deps{
		Engine:        opts.engine,
		Assistant:     opts.assistant,
		Knowledge:     opts.knowledge,
		Conversations: st,
	}, cfg)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	t.Cleanup(s.stopRL)
	return s, st
}

// doJSON performs a request with a JSON body against the server's handler.
func doJSON(t *testing.T, s *Server, method, path string, body any, header http.Header) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v (body: %s)", err, rec.Body.String())
	}
	return v
}

var errBoom = errors.New("boom")
