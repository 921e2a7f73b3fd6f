package knowledge

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/cloudwego/eino/components/model"

	"github.com/careline/careline/internal/jsonextract"
	"github.com/careline/careline/internal/provider"
)

const (
	// minSynthesisLength is the minimum document length worth synthesizing
	// QA pairs from. Shorter texts carry too little signal for a useful pair.
	minSynthesisLength = 20
	// maxSynthesisLength caps the document text sent to the model.
	maxSynthesisLength = 2000

	// qaTemperature keeps synthesis close to the source text.
	qaTemperature float32 = 0.3
	// qaMaxTokens bounds the synthesized output.
	qaMaxTokens = 1024
)

const qaSystemPrompt = `You are a knowledge base assistant. Given a support document, extract the questions a customer would plausibly ask and answer each one strictly from the document.

Respond with a JSON array only, no prose:
[{"question": "...", "answer": "..."}]

Extract at most 5 pairs. Skip anything the document does not actually answer.`

// Synthesizer derives question/answer pairs from document text using an LLM.
// Synthesis is best-effort: any model or parse failure yields zero pairs, so
// a flaky LLM can never fail document ingestion.
type Synthesizer struct {
	model model.ToolCallingChatModel
	log   *slog.Logger
}

// NewSynthesizer constructs a Synthesizer backed by the given chat model.
func NewSynthesizer(m model.ToolCallingChatModel, log *slog.Logger) *Synthesizer {
	return &Synthesizer{model: m, log: log}
}

// qaItem is the JSON shape the model is asked to produce.
type qaItem struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Pair is one synthesized question/answer pair.
type Pair struct {
	Question string
	Answer   string
}

// Synthesize derives QA pairs from text. Returns nil (never an error) when
// the text is too short, the model fails, or the reply contains no parseable
// JSON array.
func (s *Synthesizer) Synthesize(ctx context.Context, text string) []Pair {
	runes := []rune(text)
	if len(runes) < minSynthesisLength {
		return nil
	}
	if len(runes) > maxSynthesisLength {
		text = string(runes[:maxSynthesisLength])
	}

	reply, err := provider.Generate(ctx, s.model, qaSystemPrompt, text,
		model.WithTemperature(qaTemperature),
		model.WithMaxTokens(qaMaxTokens),
	)
	if err != nil {
		s.log.Warn("qa synthesis failed, continuing without pairs",
			slog.String("error", err.Error()))
		return nil
	}

	raw := jsonextract.FirstArray(reply)
	if raw == "" {
		s.log.Warn("qa synthesis reply contained no JSON array")
		return nil
	}

	var items []qaItem
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		s.log.Warn("qa synthesis reply was not valid JSON",
			slog.String("error", err.Error()))
		return nil
	}

	pairs := make([]Pair, 0, len(items))
	for _, it := range items {
		if it.Question == "" || it.Answer == "" {
			continue
		}
		pairs = append(pairs, Pair{Question: it.Question, Answer: it.Answer})
	}
	return pairs
}
