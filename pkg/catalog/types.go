package catalog

import (
	"sort"

	"github.com/google/jsonschema-go/jsonschema"
)

// ToolSpec describes a callable tool and its JSON-schema argument spec.
type ToolSpec struct {
	Name        string             `json:"name"`
	Description string             `json:"description"`
	InputSchema *jsonschema.Schema `json:"inputSchema,omitempty"`
}

// Properties returns the named argument schemas declared by the tool.
func (t ToolSpec) Properties() map[string]*jsonschema.Schema {
	if t.InputSchema == nil {
		return nil
	}
	return t.InputSchema.Properties
}

// PropertyNames returns the declared argument names in sorted order.
func (t ToolSpec) PropertyNames() []string {
	props := t.Properties()
	names := make([]string, 0, len(props))
	for name := range props {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Required returns the names the schema marks as required.
func (t ToolSpec) Required() []string {
	if t.InputSchema == nil {
		return nil
	}
	return t.InputSchema.Required
}

// PropertyType returns the declared JSON type of an argument, or "" when the
// property is unknown or untyped.
func (t ToolSpec) PropertyType(name string) string {
	prop, ok := t.Properties()[name]
	if !ok || prop == nil {
		return ""
	}
	if prop.Type != "" {
		return prop.Type
	}
	for _, typ := range prop.Types {
		if typ != "null" {
			return typ
		}
	}
	return ""
}

// ResourceSpec describes a readable resource.
type ResourceSpec struct {
	URI         string `json:"uri"`
	MIMEType    string `json:"mimeType"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// PromptArgument is one parameter of a prompt template.
type PromptArgument struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Required    bool   `json:"required"`
}

// PromptSpec describes a parametrized prompt template.
type PromptSpec struct {
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Arguments   []PromptArgument `json:"arguments"`
}

// ArgumentNames returns the declared argument names in declaration order.
func (p PromptSpec) ArgumentNames() []string {
	names := make([]string, 0, len(p.Arguments))
	for _, arg := range p.Arguments {
		names = append(names, arg.Name)
	}
	return names
}

// PromptMessage is one role-tagged message of a template. Content may carry
// {{name}} placeholders.
type PromptMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// PromptTemplate is the fetched body of a prompt, keyed by the prompt name.
type PromptTemplate struct {
	Description string          `json:"description"`
	Messages    []PromptMessage `json:"messages"`
}
