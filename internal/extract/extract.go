// Package extract is the single choke point for LLM-derived structured
// data: every structured object in the system is produced here, parsed
// strictly and validated before any caller may trust it.
package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"google.golang.org/genai"

	"github.com/ucielsola/expense-tracker/internal/llm"
)

// Default request tuning for extraction calls.
const (
	DefaultTemperature     float32 = 0.2
	DefaultMaxOutputTokens int32   = 1000
)

// Validator is implemented by every extraction target type. Validate
// enforces whatever the JSON schema alone cannot: enums, ranges, formats.
type Validator interface {
	Validate() error
}

// Task names an extraction and carries its output schema plus optional
// per-task tuning overrides.
type Task struct {
	Name            string
	Schema          *genai.Schema
	Temperature     *float32
	MaxOutputTokens int32
}

// ChatClient is the slice of the model gateway the extractor needs.
type ChatClient interface {
	Chat(ctx context.Context, messages []llm.Message, opts llm.ChatOptions) (*llm.ChatResult, error)
}

// Extractor issues schema-constrained model calls and turns the raw
// response into a validated value.
type Extractor struct {
	client ChatClient
	log    zerolog.Logger
}

func NewExtractor(client ChatClient, log zerolog.Logger) *Extractor {
	return &Extractor{client: client, log: log}
}

// Extract runs one structured extraction: a single fast-model call with
// strict JSON schema output, fence stripping, strict decoding (unknown
// fields rejected) and validation. Any failure propagates; there is no
// partial or best-effort result.
func (e *Extractor) Extract(ctx context.Context, text, systemPrompt string, task Task, out Validator) error {
	temperature := task.Temperature
	if temperature == nil {
		t := DefaultTemperature
		temperature = &t
	}
	maxTokens := task.MaxOutputTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxOutputTokens
	}

	messages := []llm.Message{
		llm.TextMessage(llm.RoleSystem, systemPrompt),
		llm.TextMessage(llm.RoleUser, text),
	}

	result, err := e.client.Chat(ctx, messages, llm.ChatOptions{
		Capability:      llm.CapabilityTextFast,
		Temperature:     temperature,
		MaxOutputTokens: maxTokens,
		ResponseFormat: &llm.ResponseFormat{
			Type:   llm.ResponseFormatJSONSchema,
			Name:   task.Name,
			Schema: task.Schema,
		},
	})
	if err != nil {
		return fmt.Errorf("Extract: model call for %q: %w", task.Name, err)
	}

	if err := DecodeStrict(result.Content, out); err != nil {
		e.log.Error().Str("task", task.Name).Str("raw", result.Content).Err(err).Msg("extraction output rejected")
		return fmt.Errorf("Extract: %q output rejected: %w", task.Name, err)
	}

	return nil
}

// DecodeStrict parses cleaned model JSON into out, rejecting unknown
// fields, then runs out's own validation.
func DecodeStrict(raw string, out Validator) error {
	clean := llm.CleanModelJSON(raw)

	dec := json.NewDecoder(strings.NewReader(clean))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("parse JSON: %w", err)
	}
	// Trailing garbage after the value is also a contract violation.
	if dec.More() {
		return fmt.Errorf("parse JSON: trailing data after value")
	}

	if err := out.Validate(); err != nil {
		return fmt.Errorf("validate: %w", err)
	}
	return nil
}
