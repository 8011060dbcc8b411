// Package mcpgateway exposes the query router as a Streamable HTTP MCP server.
// Downstream clients connect to one endpoint and send free-text requests
// through the route_query tool; the router picks the backend server, tool and
// arguments on their behalf.
package mcpgateway
