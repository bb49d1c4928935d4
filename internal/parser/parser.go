package parser

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"google.golang.org/genai"

	"github.com/ucielsola/expense-tracker/internal/extract"
	"github.com/ucielsola/expense-tracker/internal/prompts"
)

// PromptName is the prompt resolved for transaction parsing.
const PromptName = "expense-parser"

// MinConfidence is the gate below which a parsed transaction must not be
// persisted; the caller asks the user for clarification instead.
const MinConfidence = 50.0

type promptResolver interface {
	GetPromptWithConfig(ctx context.Context, name string, fallback *genai.Schema, version string) (prompts.Resolved, error)
}

type structuredExtractor interface {
	Extract(ctx context.Context, text, systemPrompt string, task extract.Task, out extract.Validator) error
}

// Parser turns a free-text message into a ParsedTransaction.
type Parser struct {
	resolver  promptResolver
	extractor structuredExtractor
	log       zerolog.Logger
}

func New(resolver promptResolver, extractor structuredExtractor, log zerolog.Logger) *Parser {
	return &Parser{resolver: resolver, extractor: extractor, log: log}
}

// Parse extracts one transaction from the message. Failures propagate:
// unlike intent classification there is no graceful degradation here,
// because an unparseable transaction needs the user to rephrase.
func (p *Parser) Parse(ctx context.Context, message string) (*ParsedTransaction, error) {
	resolved, err := p.resolver.GetPromptWithConfig(ctx, PromptName, transactionSchema, "")
	if err != nil {
		return nil, fmt.Errorf("Parse: resolve prompt: %w", err)
	}

	var tx ParsedTransaction
	if err := p.extractor.Extract(ctx, message, resolved.Prompt, extract.Task{
		Name:   PromptName,
		Schema: resolved.Schema,
	}, &tx); err != nil {
		return nil, fmt.Errorf("Parse: %w", err)
	}

	p.log.Debug().
		Str("type", string(tx.Type)).
		Float64("amount", tx.Amount).
		Float64("confidence", tx.Confidence).
		Msg("transaction parsed")
	return &tx, nil
}
