// Package mcpmgr connects to every configured Model Context Protocol (MCP)
// server, catalogs what each one offers, and owns the resulting sessions for
// the lifetime of the process.
//
// # Core entry points
//
//   - LoadServerConfig reads the {"mcpServers": {...}} file and yields one
//     ServerDescriptor per valid entry. A command of "sse" selects the
//     event-stream transport (SSETransport); anything else launches a child
//     process speaking MCP over stdio (StdioTransport).
//   - Manager.Connect dials every descriptor concurrently. Each server is
//     initialized, its tools, resources, and prompts are listed, and every
//     prompt template is fetched up front. A failure at any step drops that
//     server only; its siblings are unaffected.
//   - Manager.Catalog exposes the resulting catalog.Catalog snapshot, and
//     Manager.CallTool invokes a tool over the owning session.
//   - Manager.Cleanup closes every session, tolerating individual failures.
//
// DescribeTemplates renders the resource and prompt templates of one or all
// servers for interactive front ends. JSON-RPC traffic can be observed per
// server through ManagerOptions.RPCLogger or LogJSONRPC.
package mcpmgr
