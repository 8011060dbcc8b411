package router

import (
	"strings"

	"github.com/vikashloomba/mcp-query-router/pkg/catalog"
)

const (
	misspelling = "excute"
	correction  = "execute"

	// Placeholder stands in for an argument value the oracle could not
	// extract.
	Placeholder = "N/A"
)

// NormalizeQuery applies the fixed spelling corrections to a raw query.
func NormalizeQuery(query string) string {
	return strings.ReplaceAll(query, misspelling, correction)
}

// FillTemplate substitutes every {{name}} occurrence in the template's
// messages with values[name]. Empty values become Placeholder.
func FillTemplate(tmpl catalog.PromptTemplate, values map[string]string) []catalog.PromptMessage {
	pairs := make([]string, 0, 2*len(values))
	for name, value := range values {
		if value == "" {
			value = Placeholder
		}
		pairs = append(pairs, "{{"+name+"}}", value)
	}
	replacer := strings.NewReplacer(pairs...)

	filled := make([]catalog.PromptMessage, 0, len(tmpl.Messages))
	for _, msg := range tmpl.Messages {
		filled = append(filled, catalog.PromptMessage{
			Role:    msg.Role,
			Content: replacer.Replace(msg.Content),
		})
	}
	return filled
}

// JoinMessages concatenates message contents in template order.
func JoinMessages(messages []catalog.PromptMessage) string {
	parts := make([]string, len(messages))
	for i, msg := range messages {
		parts[i] = msg.Content
	}
	return strings.Join(parts, "\n")
}
