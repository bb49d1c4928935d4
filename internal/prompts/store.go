package prompts

import (
	"context"
	"encoding/json"
)

// StoredPrompt is a raw prompt record as returned by the prompt store.
// Config, when present, holds a JSON schema for structured output.
type StoredPrompt struct {
	Text   string
	Config json.RawMessage
}

// Store is the prompt-management backend. GetPrompt returns (nil, nil)
// when the prompt does not exist; a disabled store fails every resolve.
type Store interface {
	GetPrompt(ctx context.Context, name, version string) (*StoredPrompt, error)
	Enabled() bool
}
