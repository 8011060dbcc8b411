package mcpmgr

import (
	"context"
	"fmt"
	"strings"

	"github.com/vikashloomba/mcp-query-router/internal/json"
)

// DescribeTemplates renders the resource templates and prompt templates of
// serverID, or of every connected server when serverID is empty. Listing
// failures are reported inline instead of aborting the listing.
func (m *Manager) DescribeTemplates(ctx context.Context, serverID string) string {
	names := m.catalog.Names()
	if len(names) == 0 {
		return "No servers available."
	}
	if serverID != "" {
		if !m.catalog.Has(serverID) {
			return fmt.Sprintf("Server %s not found.", serverID)
		}
		names = []string{serverID}
	}

	var out []string
	for _, srv := range names {
		templates, err := m.ListResourceTemplates(ctx, srv)
		switch {
		case err != nil:
			out = append(out, fmt.Sprintf("Failed to list templates on server %s: %v", srv, err))
		case len(templates) == 0:
			out = append(out, fmt.Sprintf("No templates returned from server %s.", srv))
		default:
			out = append(out, fmt.Sprintf("\nResource Templates on server %s:", srv))
			for _, t := range templates {
				if t == nil {
					continue
				}
				out = append(out,
					"- URI Template: "+t.URITemplate,
					"  Name: "+t.Name,
					"  MIME Type: "+t.MIMEType,
					"  Description: "+t.Description,
					"")
			}
		}

		info, ok := m.catalog.Get(srv)
		if !ok || len(info.Prompts) == 0 {
			continue
		}
		out = append(out, fmt.Sprintf("Prompt templates on server %s:", srv))
		for _, p := range info.Prompts {
			args, err := json.Marshal(p.Arguments)
			if err != nil {
				args = []byte("[]")
			}
			out = append(out,
				"- Name: "+p.Name,
				"  Description: "+p.Description,
				"  Arguments: "+string(args),
				"")
		}
	}
	return strings.Join(out, "\n")
}
