package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"google.golang.org/genai"

	"github.com/ucielsola/expense-tracker/internal/extract"
	"github.com/ucielsola/expense-tracker/internal/prompts"
)

type mockResolver struct {
	resolved prompts.Resolved
	err      error
}

func (m *mockResolver) GetPromptWithConfig(ctx context.Context, name string, fallback *genai.Schema, version string) (prompts.Resolved, error) {
	if m.err != nil {
		return prompts.Resolved{}, m.err
	}
	if m.resolved.Schema == nil {
		m.resolved.Schema = fallback
	}
	return m.resolved, nil
}

type mockExtractor struct {
	payload string
	err     error
}

func (m *mockExtractor) Extract(ctx context.Context, text, systemPrompt string, task extract.Task, out extract.Validator) error {
	if m.err != nil {
		return m.err
	}
	if err := json.Unmarshal([]byte(m.payload), out); err != nil {
		return err
	}
	return out.Validate()
}

func TestAnalyzeIntent_Success(t *testing.T) {
	o := New(
		&mockResolver{resolved: prompts.Resolved{Prompt: "classify"}},
		&mockExtractor{payload: `{"intent":"track_expense","confidence":0.93,"reasoning":"mentions spending"}`},
		zerolog.Nop(),
	)

	d := o.AnalyzeIntent(context.Background(), "Spent $50 on groceries")
	if d.Intent != IntentTrackExpense {
		t.Errorf("intent = %q, want track_expense", d.Intent)
	}
	if d.Confidence != 0.93 {
		t.Errorf("confidence = %v", d.Confidence)
	}
}

func TestAnalyzeIntent_NeverFails(t *testing.T) {
	tests := []struct {
		name      string
		resolver  *mockResolver
		extractor *mockExtractor
	}{
		{
			name:      "prompt fetch fails",
			resolver:  &mockResolver{err: fmt.Errorf("store unreachable")},
			extractor: &mockExtractor{payload: `{"intent":"general_chat","confidence":1}`},
		},
		{
			name:      "model call fails",
			resolver:  &mockResolver{resolved: prompts.Resolved{Prompt: "classify"}},
			extractor: &mockExtractor{err: fmt.Errorf("model down")},
		},
		{
			name:      "invalid intent value",
			resolver:  &mockResolver{resolved: prompts.Resolved{Prompt: "classify"}},
			extractor: &mockExtractor{payload: `{"intent":"do_crimes","confidence":0.9}`},
		},
		{
			name:      "confidence out of range",
			resolver:  &mockResolver{resolved: prompts.Resolved{Prompt: "classify"}},
			extractor: &mockExtractor{payload: `{"intent":"general_chat","confidence":7}`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := New(tt.resolver, tt.extractor, zerolog.Nop())
			d := o.AnalyzeIntent(context.Background(), "anything")
			if d.Intent != IntentUnknown {
				t.Errorf("intent = %q, want unknown", d.Intent)
			}
			if d.Confidence != 0 {
				t.Errorf("confidence = %v, want 0", d.Confidence)
			}
			if d.Reasoning != "Failed to analyze intent" {
				t.Errorf("reasoning = %q", d.Reasoning)
			}
		})
	}
}

func TestDecision_Validate(t *testing.T) {
	tests := []struct {
		name     string
		decision Decision
		wantErr  bool
	}{
		{"valid", Decision{Intent: IntentQueryReport, Confidence: 0.8}, false},
		{"boundary zero", Decision{Intent: IntentUnknown, Confidence: 0}, false},
		{"boundary one", Decision{Intent: IntentGeneralChat, Confidence: 1}, false},
		{"bad intent", Decision{Intent: "nope", Confidence: 0.5}, true},
		{"negative confidence", Decision{Intent: IntentGeneralChat, Confidence: -0.1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.decision.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
