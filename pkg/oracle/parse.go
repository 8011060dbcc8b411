package oracle

import (
	"errors"
	"regexp"
	"strings"

	"github.com/vikashloomba/mcp-query-router/internal/json"
)

var fencePattern = regexp.MustCompile("```(?:[A-Za-z][\\w+.-]*)?")

// StripCodeFences removes Markdown code fences, with or without a language
// tag, and trims surrounding whitespace. Applying it twice yields the same
// result as applying it once.
func StripCodeFences(s string) string {
	return strings.TrimSpace(fencePattern.ReplaceAllString(s, ""))
}

var errNotObject = errors.New("oracle: reply is not a JSON object")

// parseObject decodes a reply into a JSON object. Models occasionally wrap the
// object in prose; when the whole reply fails to decode, the outermost brace
// pair is tried.
func parseObject(reply string) (map[string]any, error) {
	cleaned := StripCodeFences(reply)
	var out map[string]any
	err := json.Unmarshal([]byte(cleaned), &out)
	if err == nil {
		if out == nil {
			return nil, errNotObject
		}
		return out, nil
	}
	start := strings.IndexByte(cleaned, '{')
	end := strings.LastIndexByte(cleaned, '}')
	if start < 0 || end <= start {
		return nil, err
	}
	out = nil
	if inner := json.Unmarshal([]byte(cleaned[start:end+1]), &out); inner != nil || out == nil {
		return nil, err
	}
	return out, nil
}

// parseChoice interprets a name-returning reply. "None" and blanks mean no
// choice.
func parseChoice(reply string) (string, bool) {
	choice := strings.TrimSpace(StripCodeFences(reply))
	if choice == "" || choice == "None" {
		return "", false
	}
	return choice, true
}
