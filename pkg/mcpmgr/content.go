package mcpmgr

import (
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/vikashloomba/mcp-query-router/internal/json"
)

// ContentItem is one element of a tool result in its wire shape. Text is set
// for "text" items; Data carries the payload of structured or binary items.
type ContentItem struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	Data     any    `json:"data,omitempty"`
	MIMEType string `json:"mimeType,omitempty"`
}

// ToolResult is the outcome of a tool call. A result that carries only
// structured content is presented as a single "json" item.
type ToolResult struct {
	Content []ContentItem
	IsError bool
}

func toolResultFrom(res *mcp.CallToolResult) (*ToolResult, error) {
	if res == nil {
		return &ToolResult{}, nil
	}
	out := &ToolResult{
		Content: make([]ContentItem, 0, len(res.Content)+1),
		IsError: res.IsError,
	}
	for i, c := range res.Content {
		if c == nil {
			continue
		}
		raw, err := json.Marshal(c)
		if err != nil {
			return nil, fmt.Errorf("mcpmgr: encode content[%d]: %w", i, err)
		}
		var item ContentItem
		if err := json.Unmarshal(raw, &item); err != nil {
			return nil, fmt.Errorf("mcpmgr: decode content[%d]: %w", i, err)
		}
		out.Content = append(out.Content, item)
	}
	if len(out.Content) == 0 && res.StructuredContent != nil {
		out.Content = append(out.Content, ContentItem{Type: "json", Data: res.StructuredContent})
	}
	return out, nil
}

// toolSchema converts the wire form of a tool's input schema into a typed
// schema. Servers may omit it entirely.
func toolSchema(raw any) (*jsonschema.Schema, error) {
	switch s := raw.(type) {
	case nil:
		return nil, nil
	case *jsonschema.Schema:
		return s, nil
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("encode input schema: %w", err)
	}
	if string(data) == "null" {
		return nil, nil
	}
	var schema jsonschema.Schema
	if err := json.Unmarshal(data, &schema); err != nil {
		return nil, fmt.Errorf("decode input schema: %w", err)
	}
	return &schema, nil
}
