// Package assist generates reply suggestions for human support agents. It
// reads the live conversation, extracts the customer's intent, retrieves
// relevant knowledge, and drafts a suggested reply. Every stage degrades:
// the agent always gets a payload, never an error.
package assist

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/cloudwego/eino/components/model"

	"github.com/careline/careline/internal/jsonextract"
	"github.com/careline/careline/internal/provider"
	"github.com/careline/careline/internal/retrieval"
	"github.com/careline/careline/internal/store"
)

const (
	// defaultIntent is used when intent extraction fails.
	defaultIntent = "unknown"
	// defaultConfidence accompanies defaultIntent: half-sure, not zero, so a
	// failed extraction is distinguishable from a confident "unknown".
	defaultConfidence = 0.5

	// unavailableSuggestion is the floor of degradation: shown when both
	// intent extraction and suggestion drafting fail.
	unavailableSuggestion = "The assistant is temporarily unavailable. Please respond based on the conversation."

	// noRelevantContext stands in for knowledge base excerpts when retrieval
	// surfaced nothing, so the drafting prompt keeps its shape.
	noRelevantContext = "No relevant knowledge base content was found."
)

const intentSystemPrompt = `You analyze a live customer support conversation for the human agent handling it. Identify the customer's current intent.

Respond with JSON only:
{"intent": "short intent label", "confidence": 0.0, "keywords": ["search", "terms"]}

confidence is your certainty in [0,1]. keywords are the terms an agent would search the knowledge base for.`

const suggestSystemPrompt = `You draft a reply for a human support agent to send. Using the customer's intent, the knowledge base excerpts, and the conversation, write a concise, friendly reply the agent could send as-is. If the excerpts do not cover the issue, draft an honest holding reply instead. Reply with the draft only, no prefix.`

// Retriever is the slice of the retrieval engine the assistant needs.
type Retriever interface {
	Search(ctx context.Context, query string) (*retrieval.Hit, []retrieval.Hit, error)
}

// Result is the assist payload shown to the agent.
type Result struct {
	// Intent is the extracted customer intent label.
	Intent string `json:"intent"`
	// Confidence is the model's certainty in the intent, in [0,1].
	Confidence float64 `json:"confidence"`
	// Keywords are the knowledge base search terms derived from the intent.
	Keywords []string `json:"keywords"`
	// Suggestion is the drafted reply.
	Suggestion string `json:"suggestion"`
	// Sources are the knowledge hits that grounded the suggestion.
	Sources []retrieval.Hit `json:"sources"`
}

// Assistant produces reply suggestions for human agents.
type Assistant struct {
	model     model.ToolCallingChatModel
	retriever Retriever
	log       *slog.Logger
}

// New constructs an Assistant over the given chat model and retriever.
func New(m model.ToolCallingChatModel, retriever Retriever, log *slog.Logger) *Assistant {
	return &Assistant{model: m, retriever: retriever, log: log}
}

// Assist analyzes the conversation and drafts a suggestion. It never returns
// an error: each stage falls back, bottoming out at a static payload when
// both the intent and suggestion stages fail.
func (a *Assistant) Assist(ctx context.Context, history []store.Message) *Result {
	conversation := renderConversation(history)

	intent, confidence, keywords, intentOK := a.extractIntent(ctx, conversation)

	query := buildQuery(intent, keywords, history)
	var sources []retrieval.Hit
	if query != "" {
		answer, chunks, err := a.retriever.Search(ctx, query)
		if err != nil {
			a.log.Warn("assist retrieval failed, suggesting without context",
				slog.String("error", err.Error()))
		} else if answer != nil {
			sources = []retrieval.Hit{*answer}
		} else {
			sources = chunks
		}
	}

	suggestion, err := a.suggest(ctx, conversation, intent, sources)
	if err != nil {
		a.log.Warn("suggestion drafting failed", slog.String("error", err.Error()))
		if !intentOK {
			// Total failure: hand the agent the static floor payload.
			return &Result{
				Intent:     defaultIntent,
				Confidence: 0,
				Keywords:   []string{},
				Suggestion: unavailableSuggestion,
				Sources:    []retrieval.Hit{},
			}
		}
		suggestion = unavailableSuggestion
	}

	if keywords == nil {
		keywords = []string{}
	}
	if sources == nil {
		sources = []retrieval.Hit{}
	}
	return &Result{
		Intent:     intent,
		Confidence: confidence,
		Keywords:   keywords,
		Suggestion: suggestion,
		Sources:    sources,
	}
}

// extractIntent runs the intent stage. ok is false when the defaults were
// substituted because of a model or parse failure.
func (a *Assistant) extractIntent(ctx context.Context, conversation string) (intent string, confidence float64, keywords []string, ok bool) {
	reply, err := provider.Generate(ctx, a.model, intentSystemPrompt, conversation,
		model.WithTemperature(0.1))
	if err != nil {
		a.log.Warn("intent extraction failed, using defaults", slog.String("error", err.Error()))
		return defaultIntent, defaultConfidence, nil, false
	}

	raw := jsonextract.FirstObject(reply)
	if raw == "" {
		return defaultIntent, defaultConfidence, nil, false
	}
	var parsed struct {
		Intent     string   `json:"intent"`
		Confidence float64  `json:"confidence"`
		Keywords   []string `json:"keywords"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return defaultIntent, defaultConfidence, nil, false
	}
	if parsed.Intent == "" {
		parsed.Intent = defaultIntent
	}
	return parsed.Intent, parsed.Confidence, parsed.Keywords, true
}

// suggest drafts the reply from intent, retrieved context, and transcript.
// When retrieval surfaced nothing the excerpts section carries an explicit
// placeholder instead of being dropped.
func (a *Assistant) suggest(ctx context.Context, conversation, intent string, sources []retrieval.Hit) (string, error) {
	contextBlock := noRelevantContext
	if len(sources) > 0 {
		parts := make([]string, len(sources))
		for i, h := range sources {
			parts[i] = h.Content
		}
		contextBlock = strings.Join(parts, "\n---\n")
	}

	var sb strings.Builder
	sb.WriteString("Customer intent: ")
	sb.WriteString(intent)
	sb.WriteString("\n\nKnowledge base excerpts:\n")
	sb.WriteString(contextBlock)
	sb.WriteString("\n\nConversation:\n")
	sb.WriteString(conversation)
	return provider.Generate(ctx, a.model, suggestSystemPrompt, sb.String())
}

// buildQuery combines the extracted keywords with the customer's latest
// message into one search query. When extraction produced no keywords the
// intent label itself carries the search signal.
func buildQuery(intent string, keywords []string, history []store.Message) string {
	base := strings.Join(keywords, " ")
	if base == "" {
		base = intent
	}
	var lastUser string
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == store.RoleUser {
			lastUser = history[i].Content
			break
		}
	}
	return strings.TrimSpace(base + " " + lastUser)
}

// renderConversation formats the full history as labeled lines.
func renderConversation(history []store.Message) string {
	var sb strings.Builder
	for i, m := range history {
		if i > 0 {
			sb.WriteByte('\n')
		}
		switch m.Role {
		case store.RoleUser:
			sb.WriteString("Customer: ")
		case store.RoleAI:
			sb.WriteString("AI: ")
		case store.RoleAgent:
			sb.WriteString("Agent: ")
		}
		sb.WriteString(m.Content)
	}
	return sb.String()
}
