package router

import (
	"fmt"

	"github.com/vikashloomba/mcp-query-router/internal/json"
	"github.com/vikashloomba/mcp-query-router/pkg/mcpmgr"
)

const noContent = "No content returned from tool."

// RenderResult turns a tool result into text. Only the first content item is
// considered.
func RenderResult(res *mcpmgr.ToolResult) string {
	if res == nil || len(res.Content) == 0 {
		return noContent
	}
	first := res.Content[0]
	switch first.Type {
	case "text":
		return first.Text
	case "json":
		pretty, err := json.MarshalIndent(first.Data, "", "  ")
		if err != nil {
			return fmt.Sprintf("%v", first.Data)
		}
		return string(pretty)
	default:
		return "Unsupported content type: " + first.Type
	}
}

func toolErrorText(res *mcpmgr.ToolResult) string {
	if len(res.Content) > 0 && res.Content[0].Type == "text" && res.Content[0].Text != "" {
		return res.Content[0].Text
	}
	return "tool reported an error"
}
