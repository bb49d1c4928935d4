package analytics

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"google.golang.org/genai"

	"github.com/ucielsola/expense-tracker/internal/extract"
	"github.com/ucielsola/expense-tracker/internal/prompts"
)

// GeneratorPromptName is the prompt resolved for query generation.
const GeneratorPromptName = "query-generator"

type promptResolver interface {
	GetPromptWithConfig(ctx context.Context, name string, fallback *genai.Schema, version string) (prompts.Resolved, error)
}

type structuredExtractor interface {
	Extract(ctx context.Context, text, systemPrompt string, task extract.Task, out extract.Validator) error
}

// Generator converts an analytics question into a GeneratedQuery.
type Generator struct {
	resolver  promptResolver
	extractor structuredExtractor
	log       zerolog.Logger
}

func NewGenerator(resolver promptResolver, extractor structuredExtractor, log zerolog.Logger) *Generator {
	return &Generator{resolver: resolver, extractor: extractor, log: log}
}

// Generate produces a query descriptor for the question. Any schema
// violation is a hard failure; no partial query is ever returned.
func (g *Generator) Generate(ctx context.Context, question string) (*GeneratedQuery, error) {
	resolved, err := g.resolver.GetPromptWithConfig(ctx, GeneratorPromptName, querySchema, "")
	if err != nil {
		return nil, fmt.Errorf("Generate: resolve prompt: %w", err)
	}

	var query GeneratedQuery
	if err := g.extractor.Extract(ctx, question, resolved.Prompt, extract.Task{
		Name:   GeneratorPromptName,
		Schema: resolved.Schema,
	}, &query); err != nil {
		return nil, fmt.Errorf("Generate: %w", err)
	}

	g.log.Debug().
		Str("query_type", string(query.QueryType)).
		Str("time_period", string(query.TimePeriod)).
		Msg("query generated")
	return &query, nil
}
