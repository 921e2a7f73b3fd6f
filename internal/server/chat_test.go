package server

import (
	"context"
	"net/http"
	"testing"

	"github.com/careline/careline/internal/engine"
	"github.com/careline/careline/internal/retrieval"
	"github.com/careline/careline/internal/store"
)

func Test_Chat_NewConversation(t *testing.T) {
	t.Parallel()

	eng := &fakeEngine{reply: &engine.Reply{
		Content: "Refunds take 14 days.",
		Sources: []retrieval.Hit{{Content: "Q: refund window?\nA: 14 days", Type: retrieval.SourceQA, Score: 0.9}},
	}}
	s, st := newTestServer(t, testServerOpts{engine: eng})

	rec := doJSON(t, s, http.MethodPost, "/api/chat", chatRequest{Message: "how long do refunds take?"}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body: %s)", rec.Code, rec.Body.String())
	}

	resp := decodeBody[chatResponse](t, rec)
	if resp.ConversationID == "" {
		t.Error("no conversation_id assigned")
	}
	if resp.Reply != "Refunds take 14 days." {
		t.Errorf("reply = %q", resp.Reply)
	}
	if len(resp.Sources) != 1 || resp.Sources[0].Type != retrieval.SourceQA {
		t.Errorf("sources = %+v", resp.Sources)
	}

	// Both turns must be persisted under the returned conversation ID.
	msgs, err := st.RecentMessages(context.Background(), resp.ConversationID, 10)
	if err != nil {
		t.Fatalf("recent messages: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("persisted %d messages, want 2", len(msgs))
	}
	if msgs[0].Role != store.RoleUser || msgs[1].Role != store.RoleAI {
		t.Errorf("roles = %s, %s", msgs[0].Role, msgs[1].Role)
	}
}

func Test_Chat_HistoryPassedToEngine(t *testing.T) {
	t.Parallel()

	eng := &fakeEngine{reply: &engine.Reply{Content: "second reply"}}
	s, st := newTestServer(t, testServerOpts{engine: eng})
	ctx := context.Background()

	if err := st.AppendMessage(ctx, "conv-1", store.RoleUser, "earlier question"); err != nil {
		t.Fatalf("seed history: %v", err)
	}
	if err := st.AppendMessage(ctx, "conv-1", store.RoleAI, "earlier answer"); err != nil {
		t.Fatalf("seed history: %v", err)
	}

	rec := doJSON(t, s, http.MethodPost, "/api/chat", chatRequest{ConversationID: "conv-1", Message: "follow-up"}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	if len(eng.histories) != 1 || len(eng.histories[0]) != 2 {
		t.Fatalf("engine saw %d history messages, want 2", len(eng.histories[0]))
	}
	if eng.histories[0][0].Content != "earlier question" {
		t.Errorf("history[0] = %q", eng.histories[0][0].Content)
	}
}

func Test_Chat_EngineFailureReturnsFallback(t *testing.T) {
	t.Parallel()

	s, st := newTestServer(t, testServerOpts{engine: &fakeEngine{err: errBoom}})

	rec := doJSON(t, s, http.MethodPost, "/api/chat", chatRequest{Message: "anything"}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 even on engine failure", rec.Code)
	}
	resp := decodeBody[chatResponse](t, rec)
	if resp.Reply != fallbackReply {
		t.Errorf("reply = %q, want fallback", resp.Reply)
	}

	// The fallback exchange is persisted so the thread stays coherent.
	msgs, err := st.RecentMessages(context.Background(), resp.ConversationID, 10)
	if err != nil {
		t.Fatalf("recent messages: %v", err)
	}
	if len(msgs) != 2 || msgs[1].Content != fallbackReply {
		t.Errorf("persisted messages = %+v", msgs)
	}
}

func Test_Chat_BadRequests(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t, testServerOpts{})

	rec := doJSON(t, s, http.MethodPost, "/api/chat", chatRequest{Message: ""}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty message: status = %d, want 400", rec.Code)
	}

	rec = doJSON(t, s, http.MethodPost, "/api/chat", "not an object", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("malformed body: status = %d, want 400", rec.Code)
	}
}

func Test_Chat_ClarificationFlagSurfaces(t *testing.T) {
	t.Parallel()

	eng := &fakeEngine{reply: &engine.Reply{Content: "Which plan do you mean?", Clarification: true}}
	s, _ := newTestServer(t, testServerOpts{engine: eng})

	rec := doJSON(t, s, http.MethodPost, "/api/chat", chatRequest{Message: "it broke"}, nil)
	resp := decodeBody[chatResponse](t, rec)
	if !resp.Clarification {
		t.Error("clarification flag not surfaced")
	}
}
