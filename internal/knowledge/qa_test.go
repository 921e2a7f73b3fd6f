package knowledge

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestSynthesize_ParsesArray(t *testing.T) {
	t.Parallel()

	m := &fakeModel{replies: []string{
		`Here are the pairs:
[{"question": "How long do refunds take?", "answer": "Up to 14 days."},
 {"question": "Can I cancel anytime?", "answer": "Yes, from account settings."}]`,
	}}
	s := NewSynthesizer(m, testLogger())

	pairs := s.Synthesize(context.Background(), strings.Repeat("refund policy details. ", 5))
	if len(pairs) != 2 {
		t.Fatalf("want 2 pairs, got %d", len(pairs))
	}
	if pairs[0].Question != "How long do refunds take?" || pairs[1].Answer != "Yes, from account settings." {
		t.Errorf("unexpected pairs: %+v", pairs)
	}
}

func TestSynthesize_FencedJSON(t *testing.T) {
	t.Parallel()

	m := &fakeModel{replies: []string{
		"```json\n[{\"question\": \"q1?\", \"answer\": \"a1\"}]\n```",
	}}
	s := NewSynthesizer(m, testLogger())

	pairs := s.Synthesize(context.Background(), strings.Repeat("x", 40))
	if len(pairs) != 1 || pairs[0].Question != "q1?" {
		t.Fatalf("unexpected pairs: %+v", pairs)
	}
}

func TestSynthesize_SkipsShortText(t *testing.T) {
	t.Parallel()

	m := &fakeModel{replies: []string{`[{"question":"q","answer":"a"}]`}}
	s := NewSynthesizer(m, testLogger())

	if pairs := s.Synthesize(context.Background(), "too short"); pairs != nil {
		t.Fatalf("short text yielded pairs: %+v", pairs)
	}
	if m.calls != 0 {
		t.Errorf("model called %d times for short text, want 0", m.calls)
	}
}

func TestSynthesize_ModelFailureYieldsNoPairs(t *testing.T) {
	t.Parallel()

	m := &fakeModel{replies: []string{""}, errs: []error{errors.New("model down")}}
	s := NewSynthesizer(m, testLogger())

	if pairs := s.Synthesize(context.Background(), strings.Repeat("x", 40)); pairs != nil {
		t.Fatalf("model failure yielded pairs: %+v", pairs)
	}
}

func TestSynthesize_GarbageReplyYieldsNoPairs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		reply string
	}{
		{name: "no array", reply: "I cannot produce JSON for this."},
		{name: "broken json", reply: `[{"question": "q", `},
		{name: "wrong shape", reply: `["just", "strings"]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			m := &fakeModel{replies: []string{tt.reply}}
			s := NewSynthesizer(m, testLogger())
			if pairs := s.Synthesize(context.Background(), strings.Repeat("x", 40)); len(pairs) != 0 {
				t.Fatalf("garbage reply yielded pairs: %+v", pairs)
			}
		})
	}
}

func TestSynthesize_FiltersEmptyFields(t *testing.T) {
	t.Parallel()

	m := &fakeModel{replies: []string{
		`[{"question": "kept?", "answer": "yes"},
		  {"question": "", "answer": "dropped"},
		  {"question": "dropped too", "answer": ""}]`,
	}}
	s := NewSynthesizer(m, testLogger())

	pairs := s.Synthesize(context.Background(), strings.Repeat("x", 40))
	if len(pairs) != 1 || pairs[0].Question != "kept?" {
		t.Fatalf("unexpected pairs: %+v", pairs)
	}
}
