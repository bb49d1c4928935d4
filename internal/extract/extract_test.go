package extract

import (
	"context"
	"fmt"
	"testing"

	"github.com/rs/zerolog"

	"github.com/ucielsola/expense-tracker/internal/llm"
)

// testDecision is a minimal extraction target with enum and range rules.
type testDecision struct {
	Kind       string  `json:"kind"`
	Confidence float64 `json:"confidence"`
}

func (d *testDecision) Validate() error {
	switch d.Kind {
	case "alpha", "beta":
	default:
		return fmt.Errorf("unknown kind %q", d.Kind)
	}
	if d.Confidence < 0 || d.Confidence > 1 {
		return fmt.Errorf("confidence %v out of range [0,1]", d.Confidence)
	}
	return nil
}

type mockChatClient struct {
	content string
	err     error
	calls   int
}

func (m *mockChatClient) Chat(ctx context.Context, messages []llm.Message, opts llm.ChatOptions) (*llm.ChatResult, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return &llm.ChatResult{Content: m.content, Model: "test-model"}, nil
}

func TestExtract_ValidOutput(t *testing.T) {
	client := &mockChatClient{content: `{"kind":"alpha","confidence":0.9}`}
	e := NewExtractor(client, zerolog.Nop())

	var out testDecision
	err := e.Extract(context.Background(), "msg", "system", Task{Name: "test"}, &out)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if out.Kind != "alpha" || out.Confidence != 0.9 {
		t.Errorf("got %+v", out)
	}
}

func TestExtract_FencedOutput(t *testing.T) {
	client := &mockChatClient{content: "```json\n{\"kind\":\"beta\",\"confidence\":0.5}\n```"}
	e := NewExtractor(client, zerolog.Nop())

	var out testDecision
	if err := e.Extract(context.Background(), "msg", "system", Task{Name: "test"}, &out); err != nil {
		t.Fatalf("Extract failed on fenced output: %v", err)
	}
	if out.Kind != "beta" {
		t.Errorf("got %+v", out)
	}
}

func TestExtract_ModelFailurePropagates(t *testing.T) {
	client := &mockChatClient{err: fmt.Errorf("upstream down")}
	e := NewExtractor(client, zerolog.Nop())

	var out testDecision
	if err := e.Extract(context.Background(), "msg", "system", Task{Name: "test"}, &out); err == nil {
		t.Fatal("expected error when model call fails")
	}
}

func TestDecodeStrict_Rejections(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"extra field", `{"kind":"alpha","confidence":0.9,"note":"hi"}`},
		{"wrong enum value", `{"kind":"gamma","confidence":0.9}`},
		{"out of range number", `{"kind":"alpha","confidence":1.5}`},
		{"not json", `SAFE`},
		{"wrong type", `{"kind":"alpha","confidence":"high"}`},
		{"trailing data", `{"kind":"alpha","confidence":0.9}{"kind":"beta"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out testDecision
			if err := DecodeStrict(tt.raw, &out); err == nil {
				t.Errorf("DecodeStrict(%q) succeeded, want failure", tt.raw)
			}
		})
	}
}

func TestDecodeStrict_EqualsParsedJSON(t *testing.T) {
	var out testDecision
	if err := DecodeStrict(`{"kind":"beta","confidence":0.25}`, &out); err != nil {
		t.Fatalf("DecodeStrict failed: %v", err)
	}
	want := testDecision{Kind: "beta", Confidence: 0.25}
	if out != want {
		t.Errorf("got %+v, want %+v", out, want)
	}
}
