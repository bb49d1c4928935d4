package llm

import "google.golang.org/genai"

// Role tags a message in a chat exchange.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Part is one piece of message content: either plain text or inline
// binary data (image, audio) with its MIME type.
type Part struct {
	Text     string
	Data     []byte
	MIMEType string
}

// Message is one role-tagged entry in an ordered chat exchange.
type Message struct {
	Role  Role
	Parts []Part
}

// TextMessage builds a single-part text message.
func TextMessage(role Role, text string) Message {
	return Message{Role: role, Parts: []Part{{Text: text}}}
}

// splitMessages converts gateway messages into genai contents, pulling
// system messages out into a single system instruction (Gemini only
// accepts "user" and "model" roles in the content list).
func splitMessages(messages []Message) (*genai.Content, []*genai.Content) {
	var system *genai.Content
	contents := make([]*genai.Content, 0, len(messages))

	for _, m := range messages {
		parts := make([]*genai.Part, 0, len(m.Parts))
		for _, p := range m.Parts {
			if p.Data != nil {
				parts = append(parts, &genai.Part{
					InlineData: &genai.Blob{MIMEType: p.MIMEType, Data: p.Data},
				})
				continue
			}
			parts = append(parts, &genai.Part{Text: p.Text})
		}

		switch m.Role {
		case RoleSystem:
			if system == nil {
				system = &genai.Content{Parts: parts}
			} else {
				system.Parts = append(system.Parts, parts...)
			}
		case RoleAssistant:
			contents = append(contents, &genai.Content{Role: "model", Parts: parts})
		default:
			contents = append(contents, &genai.Content{Role: "user", Parts: parts})
		}
	}

	return system, contents
}
