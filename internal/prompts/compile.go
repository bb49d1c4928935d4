package prompts

import (
	"regexp"
	"strings"
)

var placeholderRe = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_.-]+)\s*\}\}`)

// Compile substitutes every {{ key }} occurrence in the template with the
// matching value from vars. Whitespace inside the braces is tolerated.
// Keys missing from vars are left unsubstituted; vars without a matching
// placeholder are ignored.
func Compile(template string, vars map[string]string) string {
	if len(vars) == 0 || !strings.Contains(template, "{{") {
		return template
	}
	return placeholderRe.ReplaceAllStringFunc(template, func(match string) string {
		key := placeholderRe.FindStringSubmatch(match)[1]
		if value, ok := vars[key]; ok {
			return value
		}
		return match
	})
}
