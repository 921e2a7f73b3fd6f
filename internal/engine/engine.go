// Package engine is the conversation orchestrator: it takes a customer query
// plus recent history through four stages — intent clarity, query rewriting,
// knowledge retrieval, and response generation. Every stage before the final
// generation degrades gracefully, so only a failed final generation surfaces
// as an error to the caller.
package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cloudwego/eino/components/model"

	"github.com/careline/careline/internal/jsonextract"
	"github.com/careline/careline/internal/provider"
	"github.com/careline/careline/internal/retrieval"
	"github.com/careline/careline/internal/store"
)

const (
	// historyWindow is the number of recent turns folded into prompts.
	historyWindow = 6
	// minRewriteLength rejects degenerate rewrites ("", "?", quotes only).
	minRewriteLength = 3

	// intentTemperature keeps the clarity verdict deterministic.
	intentTemperature float32 = 0.1
	// clarifyTemperature allows some variety in clarifying questions.
	clarifyTemperature float32 = 0.5
)

// Retriever is the slice of the retrieval engine the orchestrator needs.
type Retriever interface {
	Search(ctx context.Context, query string) (*retrieval.Hit, []retrieval.Hit, error)
}

// Engine orchestrates one conversational exchange.
type Engine struct {
	model     model.ToolCallingChatModel
	retriever Retriever
	log       *slog.Logger
}

// New constructs an Engine over the given chat model and retriever.
func New(m model.ToolCallingChatModel, retriever Retriever, log *slog.Logger) *Engine {
	return &Engine{model: m, retriever: retriever, log: log}
}

// Reply is the outcome of one exchange.
type Reply struct {
	// Content is the text to show the customer.
	Content string
	// Clarification is true when Content is a clarifying question rather
	// than an answer; retrieval was skipped in that case.
	Clarification bool
	// Sources are the knowledge hits that grounded the answer, if any.
	Sources []retrieval.Hit
}

// ProcessQuery runs the full pipeline for one customer message. history is
// the conversation so far, oldest first; only the most recent turns are used.
// An error means the final generation itself failed — callers should present
// a service-unavailable message and keep the conversation alive.
func (e *Engine) ProcessQuery(ctx context.Context, query string, history []store.Message) (*Reply, error) {
	historyBlock := formatHistory(history)

	if !e.intentIsClear(ctx, query, historyBlock) {
		return &Reply{
			Content:       e.clarify(ctx, query, historyBlock),
			Clarification: true,
		}, nil
	}

	searchQuery := e.rewrite(ctx, query, historyBlock)

	answer, chunks, err := e.retriever.Search(ctx, searchQuery)
	if err != nil {
		// Retrieval failure degrades to an ungrounded reply rather than
		// killing the exchange.
		e.log.Warn("retrieval failed, answering without context",
			slog.String("error", err.Error()))
		answer, chunks = nil, nil
	}

	var contextBlock string
	var sources []retrieval.Hit
	switch {
	case answer != nil:
		contextBlock = answer.Content
		sources = []retrieval.Hit{*answer}
	case len(chunks) > 0:
		parts := make([]string, len(chunks))
		for i, h := range chunks {
			parts[i] = h.Content
		}
		contextBlock = strings.Join(parts, "\n---\n")
		sources = chunks
	}

	content, err := e.respond(ctx, query, historyBlock, contextBlock)
	if err != nil {
		return nil, fmt.Errorf("engine: generate response: %w", err)
	}
	return &Reply{Content: content, Sources: sources}, nil
}

// intentIsClear runs the clarity check. Any model or parse failure defaults
// to clear so a flaky model cannot trap customers in clarification loops.
func (e *Engine) intentIsClear(ctx context.Context, query, historyBlock string) bool {
	user := query
	if historyBlock != "" {
		user = "Conversation so far:\n" + historyBlock + "\n\nLatest message: " + query
	}
	reply, err := provider.Generate(ctx, e.model, intentSystemPrompt, user,
		model.WithTemperature(intentTemperature))
	if err != nil {
		e.log.Warn("intent check failed, assuming clear", slog.String("error", err.Error()))
		return true
	}

	raw := jsonextract.FirstObject(reply)
	if raw == "" {
		return true
	}
	var verdict struct {
		Clear  bool   `json:"clear"`
		Reason string `json:"reason"`
	}
	if err := json.Unmarshal([]byte(raw), &verdict); err != nil {
		return true
	}
	if !verdict.Clear {
		e.log.Info("query judged unclear", slog.String("reason", verdict.Reason))
	}
	return verdict.Clear
}

// clarify produces one clarifying question, with a canned fallback.
func (e *Engine) clarify(ctx context.Context, query, historyBlock string) string {
	user := "Customer message: " + query
	if historyBlock != "" {
		user = "Conversation so far:\n" + historyBlock + "\n\n" + user
	}
	reply, err := provider.Generate(ctx, e.model, clarifySystemPrompt, user,
		model.WithTemperature(clarifyTemperature))
	if err != nil || strings.TrimSpace(reply) == "" {
		if err != nil {
			e.log.Warn("clarification generation failed, using fallback",
				slog.String("error", err.Error()))
		}
		return fallbackClarification
	}
	return strings.TrimSpace(reply)
}

// rewrite makes the query standalone and retrieval-friendly. It runs even on
// the first turn, where the model normalizes phrasing rather than folding in
// context. Failures and degenerate rewrites fall back to the original query.
func (e *Engine) rewrite(ctx context.Context, query, historyBlock string) string {
	user := "Customer message: " + query
	if historyBlock != "" {
		user = "Conversation so far:\n" + historyBlock + "\n\nLatest message: " + query
	}
	reply, err := provider.Generate(ctx, e.model, rewriteSystemPrompt, user)
	if err != nil {
		e.log.Warn("query rewrite failed, using original", slog.String("error", err.Error()))
		return query
	}
	rewritten := strings.Trim(strings.TrimSpace(reply), `"'`+"“”‘’")
	if len([]rune(rewritten)) < minRewriteLength {
		return query
	}
	return rewritten
}

// respond generates the final reply, grounded when context is available.
func (e *Engine) respond(ctx context.Context, query, historyBlock, contextBlock string) (string, error) {
	var sb strings.Builder
	if historyBlock != "" {
		sb.WriteString("Conversation so far:\n")
		sb.WriteString(historyBlock)
		sb.WriteString("\n\n")
	}
	system := noContextSystemPrompt
	if contextBlock != "" {
		system = answerSystemPrompt
		sb.WriteString("Knowledge base excerpts:\n")
		sb.WriteString(contextBlock)
		sb.WriteString("\n\n")
	}
	sb.WriteString("Customer question: ")
	sb.WriteString(query)

	return provider.Generate(ctx, e.model, system, sb.String())
}

// formatHistory renders the most recent turns as labeled lines, oldest first.
func formatHistory(history []store.Message) string {
	if len(history) > historyWindow {
		history = history[len(history)-historyWindow:]
	}
	var sb strings.Builder
	for i, m := range history {
		if i > 0 {
			sb.WriteByte('\n')
		}
		switch m.Role {
		case store.RoleUser:
			sb.WriteString("User: ")
		case store.RoleAI:
			sb.WriteString("AI: ")
		case store.RoleAgent:
			sb.WriteString("Agent: ")
		}
		sb.WriteString(m.Content)
	}
	return sb.String()
}
