package llm

import "strings"

// CleanModelJSON strips Markdown code fences and any stray text around a
// JSON payload. Models occasionally ignore "raw JSON only" instructions,
// so structured callers run every response through this before parsing.
func CleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	// Handle ```json ... ``` or ``` ... ``` wrappers.
	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			return s
		}
		s = strings.TrimSpace(s)
	}

	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}

	s = strings.TrimSpace(s)

	// If there is still junk around the payload, keep only the outermost
	// JSON value. Objects and arrays are both possible here.
	start := strings.IndexAny(s, "[{")
	if start == -1 {
		return s
	}
	var end int
	if s[start] == '[' {
		end = strings.LastIndex(s, "]")
	} else {
		end = strings.LastIndex(s, "}")
	}
	if end > start {
		s = strings.TrimSpace(s[start : end+1])
	}

	return s
}
