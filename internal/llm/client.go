package llm

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/rs/zerolog"
	"google.golang.org/genai"

	"github.com/ucielsola/expense-tracker/internal/config"
)

// Capability selects a default model when the caller does not name one.
type Capability string

const (
	CapabilityText       Capability = "text"
	CapabilityTextFast   Capability = "text-fast"
	CapabilityVision     Capability = "vision"
	CapabilityVisionFast Capability = "vision-fast"
	CapabilityAudio      Capability = "audio"
)

// ResponseFormatType selects how strictly the model output is constrained.
type ResponseFormatType string

const (
	// ResponseFormatJSONSchema requests output conforming to a named,
	// strict JSON schema.
	ResponseFormatJSONSchema ResponseFormatType = "json_schema"
	// ResponseFormatJSONObject requests a JSON object without a schema.
	ResponseFormatJSONObject ResponseFormatType = "json_object"
)

// ResponseFormat describes the requested output constraint.
type ResponseFormat struct {
	Type   ResponseFormatType
	Name   string
	Schema *genai.Schema
}

// ChatOptions tunes a single chat call. Model wins over Capability.
type ChatOptions struct {
	Model           string
	Capability      Capability
	Temperature     *float32
	MaxOutputTokens int32
	ResponseFormat  *ResponseFormat
}

// Usage carries token accounting reported by the provider.
type Usage struct {
	PromptTokens     int32
	CompletionTokens int32
	TotalTokens      int32
}

// ChatResult is the outcome of one chat call.
type ChatResult struct {
	Content string
	Model   string
	Usage   *Usage
}

// Client is the gateway to the Gemini API. One instance is constructed at
// process start and shared; it holds no per-request state.
type Client struct {
	genai  *genai.Client
	models config.Models
	log    zerolog.Logger
}

// NewClient builds the gateway. A missing API key is a construction-time
// error: nothing downstream can work without credentials.
func NewClient(ctx context.Context, apiKey string, models config.Models, log zerolog.Logger) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("llm.NewClient: missing Gemini API key")
	}

	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      apiKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("llm.NewClient: create genai client: %w", err)
	}

	return &Client{genai: gc, models: models, log: log}, nil
}

// Chat sends one chat-completion request. No retries: a failure is
// wrapped and returned after a single attempt.
func (c *Client) Chat(ctx context.Context, messages []Message, opts ChatOptions) (*ChatResult, error) {
	model := opts.Model
	if model == "" {
		model = c.modelFor(opts.Capability)
	}

	system, contents := splitMessages(messages)
	if len(contents) == 0 {
		return nil, fmt.Errorf("llm.Chat: no user content in messages")
	}

	cfg := &genai.GenerateContentConfig{
		SystemInstruction: system,
		Temperature:       opts.Temperature,
	}
	if opts.MaxOutputTokens > 0 {
		cfg.MaxOutputTokens = opts.MaxOutputTokens
	}
	if rf := opts.ResponseFormat; rf != nil {
		cfg.ResponseMIMEType = "application/json"
		if rf.Type == ResponseFormatJSONSchema {
			cfg.ResponseSchema = rf.Schema
		}
	}

	resp, err := c.genai.Models.GenerateContent(ctx, model, contents, cfg)
	if err != nil {
		return nil, fmt.Errorf("llm.Chat: generate content (model %s): %w", model, err)
	}

	text := resp.Text()
	if text == "" {
		return nil, fmt.Errorf("llm.Chat: empty response from model %s", model)
	}
	if opts.ResponseFormat != nil {
		text = CleanModelJSON(text)
	}

	result := &ChatResult{Content: text, Model: model}
	if um := resp.UsageMetadata; um != nil {
		result.Usage = &Usage{
			PromptTokens:     um.PromptTokenCount,
			CompletionTokens: um.CandidatesTokenCount,
			TotalTokens:      um.TotalTokenCount,
		}
		c.log.Debug().
			Str("model", model).
			Int32("prompt_tokens", um.PromptTokenCount).
			Int32("completion_tokens", um.CandidatesTokenCount).
			Msg("chat completion")
	}

	return result, nil
}

// TranscribeAudio sends an audio buffer for transcription and returns the
// plain transcript text.
func (c *Client) TranscribeAudio(ctx context.Context, data []byte, filename string) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("llm.TranscribeAudio: empty audio buffer")
	}

	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: "Transcribe this audio message verbatim. Return only the transcript text, nothing else."},
				{InlineData: &genai.Blob{MIMEType: audioMIMEType(filename), Data: data}},
			},
		},
	}

	resp, err := c.genai.Models.GenerateContent(ctx, c.modelFor(CapabilityAudio), contents, nil)
	if err != nil {
		return "", fmt.Errorf("llm.TranscribeAudio: generate content: %w", err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("llm.TranscribeAudio: empty transcript from model")
	}
	return text, nil
}

func (c *Client) modelFor(cap Capability) string {
	switch cap {
	case CapabilityTextFast:
		return c.models.TextFast
	case CapabilityVision:
		return c.models.Vision
	case CapabilityVisionFast:
		return c.models.VisionFast
	case CapabilityAudio:
		return c.models.Audio
	default:
		return c.models.Text
	}
}

func audioMIMEType(filename string) string {
	switch strings.ToLower(path.Ext(filename)) {
	case ".mp3":
		return "audio/mpeg"
	case ".wav":
		return "audio/wav"
	case ".m4a", ".mp4":
		return "audio/mp4"
	case ".flac":
		return "audio/flac"
	default:
		// Telegram voice notes are OGG/Opus.
		return "audio/ogg"
	}
}
