package prompts

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jomei/notionapi"
)

// Property names expected in the Notion prompts database.
const (
	notionPropName    = "Name"
	notionPropVersion = "Version"
	notionPropPrompt  = "Prompt"
	notionPropConfig  = "Config"
)

// NotionStore reads prompt templates from a Notion database. Each page
// holds one prompt: a Name title, an optional Version, the Prompt text
// and an optional Config rich-text property containing a JSON schema.
type NotionStore struct {
	client     *notionapi.Client
	databaseID string
	enabled    bool
}

// NewNotionStore creates a store backed by the given Notion database.
// An empty token or database ID yields a disabled store: resolves fail
// closed instead of guessing.
func NewNotionStore(token, databaseID string) *NotionStore {
	enabled := token != "" && databaseID != ""
	var client *notionapi.Client
	if enabled {
		client = notionapi.NewClient(notionapi.Token(token))
	}
	return &NotionStore{client: client, databaseID: databaseID, enabled: enabled}
}

// Enabled implements Store.
func (s *NotionStore) Enabled() bool {
	return s.enabled
}

// GetPrompt implements Store. It returns (nil, nil) when no page matches
// the name (and version, when given).
func (s *NotionStore) GetPrompt(ctx context.Context, name, version string) (*StoredPrompt, error) {
	if !s.enabled {
		return nil, fmt.Errorf("GetPrompt: notion prompt store is disabled")
	}

	var filter notionapi.Filter
	nameFilter := notionapi.PropertyFilter{
		Property: notionPropName,
		RichText: &notionapi.TextFilterCondition{Equals: name},
	}
	if version != "" {
		filter = notionapi.AndCompoundFilter{
			nameFilter,
			notionapi.PropertyFilter{
				Property: notionPropVersion,
				RichText: &notionapi.TextFilterCondition{Equals: version},
			},
		}
	} else {
		filter = nameFilter
	}

	resp, err := s.client.Database.Query(ctx, notionapi.DatabaseID(s.databaseID), &notionapi.DatabaseQueryRequest{
		Filter:   filter,
		PageSize: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("GetPrompt: query prompts database: %w", err)
	}
	if len(resp.Results) == 0 {
		return nil, nil
	}

	page := resp.Results[0]
	text := richTextValue(page.Properties[notionPropPrompt])
	if text == "" {
		return nil, nil
	}

	stored := &StoredPrompt{Text: text}
	if raw := richTextValue(page.Properties[notionPropConfig]); raw != "" {
		stored.Config = json.RawMessage(raw)
	}
	return stored, nil
}

// richTextValue flattens a title or rich-text property into plain text.
func richTextValue(prop notionapi.Property) string {
	var fragments []notionapi.RichText
	switch p := prop.(type) {
	case *notionapi.TitleProperty:
		fragments = p.Title
	case *notionapi.RichTextProperty:
		fragments = p.RichText
	default:
		return ""
	}

	var b strings.Builder
	for _, rt := range fragments {
		b.WriteString(rt.PlainText)
	}
	return strings.TrimSpace(b.String())
}
