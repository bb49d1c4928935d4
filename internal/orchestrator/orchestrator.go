package orchestrator

import (
	"context"

	"github.com/rs/zerolog"
	"google.golang.org/genai"

	"github.com/ucielsola/expense-tracker/internal/extract"
	"github.com/ucielsola/expense-tracker/internal/prompts"
)

// PromptName is the prompt resolved for intent classification.
const PromptName = "orchestrator-intent"

const (
	intentTemperature     float32 = 0.1
	intentMaxOutputTokens int32   = 500
)

type promptResolver interface {
	GetPromptWithConfig(ctx context.Context, name string, fallback *genai.Schema, version string) (prompts.Resolved, error)
}

type structuredExtractor interface {
	Extract(ctx context.Context, text, systemPrompt string, task extract.Task, out extract.Validator) error
}

// Orchestrator classifies inbound messages into intents. It is the one
// pipeline stage that degrades instead of failing: classification going
// wrong must not take the message loop down with it.
type Orchestrator struct {
	resolver  promptResolver
	extractor structuredExtractor
	log       zerolog.Logger
}

func New(resolver promptResolver, extractor structuredExtractor, log zerolog.Logger) *Orchestrator {
	return &Orchestrator{resolver: resolver, extractor: extractor, log: log}
}

// AnalyzeIntent classifies a message. It never returns an error: any
// failure (prompt fetch, model call, parse, validation) yields the
// synthetic unknown decision with zero confidence.
func (o *Orchestrator) AnalyzeIntent(ctx context.Context, message string) Decision {
	fallback := Decision{
		Intent:     IntentUnknown,
		Confidence: 0,
		Reasoning:  "Failed to analyze intent",
	}

	resolved, err := o.resolver.GetPromptWithConfig(ctx, PromptName, intentSchema, "")
	if err != nil {
		o.log.Error().Err(err).Msg("intent prompt resolve failed")
		return fallback
	}

	temperature := intentTemperature
	var decision Decision
	err = o.extractor.Extract(ctx, message, resolved.Prompt, extract.Task{
		Name:            PromptName,
		Schema:          resolved.Schema,
		Temperature:     &temperature,
		MaxOutputTokens: intentMaxOutputTokens,
	}, &decision)
	if err != nil {
		o.log.Error().Err(err).Msg("intent extraction failed")
		return fallback
	}

	o.log.Debug().
		Str("intent", string(decision.Intent)).
		Float64("confidence", decision.Confidence).
		Msg("intent classified")
	return decision
}
