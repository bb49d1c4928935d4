package analytics

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"google.golang.org/genai"

	"github.com/ucielsola/expense-tracker/internal/llm"
	"github.com/ucielsola/expense-tracker/internal/prompts"
)

type mockSafetyResolver struct {
	prompt string
	err    error
}

func (m *mockSafetyResolver) GetPromptWithConfig(ctx context.Context, name string, fallback *genai.Schema, version string) (prompts.Resolved, error) {
	if m.err != nil {
		return prompts.Resolved{}, m.err
	}
	return prompts.Resolved{Prompt: m.prompt}, nil
}

type mockSafetyChat struct {
	response string
	err      error
	calls    int
	lastMsg  string
}

func (m *mockSafetyChat) Chat(ctx context.Context, messages []llm.Message, opts llm.ChatOptions) (*llm.ChatResult, error) {
	m.calls++
	if len(messages) > 0 && len(messages[0].Parts) > 0 {
		m.lastMsg = messages[0].Parts[0].Text
	}
	if m.err != nil {
		return nil, m.err
	}
	return &llm.ChatResult{Content: m.response, Model: "test"}, nil
}

func allowedQuery() *GeneratedQuery {
	return &GeneratedQuery{QueryType: QueryCountArchivedTransactions, TimePeriod: PeriodAllTime}
}

func TestSafetyGate_AllowListRejectsWithoutModelCall(t *testing.T) {
	chat := &mockSafetyChat{response: "SAFE"}
	gate := NewSafetyGate(&mockSafetyResolver{prompt: "judge"}, chat, zerolog.Nop())

	query := &GeneratedQuery{QueryType: "delete_all_transactions"}
	ok, err := gate.Validate(context.Background(), "wipe everything", query)
	if err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}
	if ok {
		t.Error("disallowed query type passed the gate")
	}
	if chat.calls != 0 {
		t.Errorf("model stage invoked %d times for allow-list rejection, want 0", chat.calls)
	}
}

func TestSafetyGate_VerdictComparison(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     bool
	}{
		{"exact SAFE", "SAFE", true},
		{"lowercase safe", "safe", true},
		{"padded safe", "  SAFE \n", true},
		{"destructive", "DESTRUCTIVE", false},
		{"safe with period", "SAFE.", false},
		{"deviating phrasing", "This query is safe", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chat := &mockSafetyChat{response: tt.response}
			gate := NewSafetyGate(&mockSafetyResolver{prompt: "judge {{user_request}} {{generated_query}}"}, chat, zerolog.Nop())

			ok, err := gate.Validate(context.Background(), "how many archived?", allowedQuery())
			if err != nil {
				t.Fatalf("Validate returned error: %v", err)
			}
			if ok != tt.want {
				t.Errorf("verdict %q → %v, want %v", tt.response, ok, tt.want)
			}
		})
	}
}

func TestSafetyGate_PromptCompiled(t *testing.T) {
	chat := &mockSafetyChat{response: "SAFE"}
	gate := NewSafetyGate(&mockSafetyResolver{prompt: "Q: {{user_request}} GQ: {{generated_query}}"}, chat, zerolog.Nop())

	ok, err := gate.Validate(context.Background(), "how many archived?", allowedQuery())
	if err != nil || !ok {
		t.Fatalf("Validate = (%v, %v)", ok, err)
	}
	if !strings.Contains(chat.lastMsg, "how many archived?") ||
		!strings.Contains(chat.lastMsg, "count_archived_transactions") {
		t.Errorf("safety prompt not compiled with request and query: %q", chat.lastMsg)
	}
}

func TestSafetyGate_UpstreamFailureFailsClosed(t *testing.T) {
	tests := []struct {
		name     string
		resolver *mockSafetyResolver
		chat     *mockSafetyChat
	}{
		{"prompt resolve fails", &mockSafetyResolver{err: fmt.Errorf("store down")}, &mockSafetyChat{response: "SAFE"}},
		{"model call fails", &mockSafetyResolver{prompt: "judge"}, &mockSafetyChat{err: fmt.Errorf("model down")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gate := NewSafetyGate(tt.resolver, tt.chat, zerolog.Nop())
			ok, err := gate.Validate(context.Background(), "q", allowedQuery())
			if ok {
				t.Error("gate passed despite upstream failure")
			}
			if err == nil {
				t.Error("expected error for upstream failure")
			}
		})
	}
}

func TestAllowed_CoversExactlySixTypes(t *testing.T) {
	allowed := []QueryType{
		QueryTopAccountsByExpense,
		QuerySpendingByCategory,
		QueryCountArchivedTransactions,
		QueryCountRemainingInstallments,
		QueryTotalCreditCardDebt,
		QueryTopAccountsByTransactionCount,
	}
	for _, qt := range allowed {
		if !Allowed(qt) {
			t.Errorf("%q should be allowed", qt)
		}
	}
	for _, qt := range []QueryType{"delete_all_transactions", "drop_table", "", "update_balances"} {
		if Allowed(qt) {
			t.Errorf("%q should not be allowed", qt)
		}
	}
}
