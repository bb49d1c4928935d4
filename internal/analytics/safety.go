package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ucielsola/expense-tracker/internal/llm"
	"github.com/ucielsola/expense-tracker/internal/prompts"
)

// ValidatorPromptName is the prompt resolved for the model-based safety
// stage.
const ValidatorPromptName = "query-validator"

// ErrUnsafeQuery is returned when a generated query fails either safety
// stage. Callers surface it verbatim; the query never executes.
var ErrUnsafeQuery = errors.New("query deemed unsafe")

const (
	safetyTemperature     float32 = 0.1
	safetyMaxOutputTokens int32   = 10
)

// allowedQueryTypes is the static allow-list: the defense-in-depth floor
// that holds even if the model stage is confused or compromised.
var allowedQueryTypes = map[QueryType]bool{
	QueryTopAccountsByExpense:          true,
	QuerySpendingByCategory:            true,
	QueryCountArchivedTransactions:     true,
	QueryCountRemainingInstallments:    true,
	QueryTotalCreditCardDebt:           true,
	QueryTopAccountsByTransactionCount: true,
}

// Allowed reports static allow-list membership for a query type.
func Allowed(qt QueryType) bool {
	return allowedQueryTypes[qt]
}

type chatClient interface {
	Chat(ctx context.Context, messages []llm.Message, opts llm.ChatOptions) (*llm.ChatResult, error)
}

// SafetyGate is the two-stage validator in front of query execution.
type SafetyGate struct {
	resolver promptResolver
	chat     chatClient
	log      zerolog.Logger
}

func NewSafetyGate(resolver promptResolver, chat chatClient, log zerolog.Logger) *SafetyGate {
	return &SafetyGate{resolver: resolver, chat: chat, log: log}
}

// Validate runs both stages. Stage 1 is the static allow-list check;
// when it fails the model stage is never invoked. Stage 2 asks the model
// to judge the question plus generated query and must answer exactly
// SAFE; anything else, including upstream failures, means rejection.
func (g *SafetyGate) Validate(ctx context.Context, question string, query *GeneratedQuery) (bool, error) {
	if !Allowed(query.QueryType) {
		g.log.Warn().
			Str("query_type", string(query.QueryType)).
			Str("question", question).
			Msg("query rejected by allow-list")
		return false, nil
	}

	resolved, err := g.resolver.GetPromptWithConfig(ctx, ValidatorPromptName, nil, "")
	if err != nil {
		return false, fmt.Errorf("Validate: resolve prompt: %w", err)
	}

	queryJSON, err := json.Marshal(query)
	if err != nil {
		return false, fmt.Errorf("Validate: marshal query: %w", err)
	}

	compiled := prompts.Compile(resolved.Prompt, map[string]string{
		"user_request":    question,
		"generated_query": string(queryJSON),
	})

	temperature := safetyTemperature
	result, err := g.chat.Chat(ctx, []llm.Message{
		llm.TextMessage(llm.RoleUser, compiled),
	}, llm.ChatOptions{
		Capability:      llm.CapabilityTextFast,
		Temperature:     &temperature,
		MaxOutputTokens: safetyMaxOutputTokens,
	})
	if err != nil {
		return false, fmt.Errorf("Validate: safety model call: %w", err)
	}

	// Exact equality with SAFE after trimming and upper-casing. Any other
	// phrasing is DESTRUCTIVE; this fails closed on a rambling model.
	verdict := strings.ToUpper(strings.TrimSpace(result.Content))
	safe := verdict == "SAFE"
	if !safe {
		g.log.Warn().
			Str("verdict", result.Content).
			Str("question", question).
			RawJSON("generated_query", queryJSON).
			Msg("query rejected by safety model")
	}
	return safe, nil
}
