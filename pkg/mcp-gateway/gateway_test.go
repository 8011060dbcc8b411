package mcpgateway

import (
	"context"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type echoRouter struct {
	mu      sync.Mutex
	queries []string
}

func (r *echoRouter) Process(_ context.Context, query string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.queries = append(r.queries, query)
	if strings.Contains(query, "fail") {
		return "Failed to process query: backend offline"
	}
	return "Result from db:\n" + query
}

type staticTemplates map[string]string

func (s staticTemplates) DescribeTemplates(_ context.Context, serverID string) string {
	if text, ok := s[serverID]; ok {
		return text
	}
	return "Server " + serverID + " not found."
}

func connectGateway(t *testing.T, gateway *Gateway) *mcp.ClientSession {
	t.Helper()
	server := httptest.NewServer(gateway.Handler())
	t.Cleanup(server.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	client := mcp.NewClient(&mcp.Implementation{Name: "gateway-test-client", Version: "1.0.0"}, nil)
	session, err := client.Connect(ctx, &mcp.StreamableClientTransport{
		Endpoint:   server.URL + "/mcp",
		HTTPClient: server.Client(),
	}, nil)
	if err != nil {
		t.Fatalf("connect to gateway: %v", err)
	}
	t.Cleanup(func() { _ = session.Close() })
	return session
}

func firstText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if res == nil || len(res.Content) == 0 {
		t.Fatalf("empty tool result")
	}
	text, ok := res.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("content[0] is %T, want *mcp.TextContent", res.Content[0])
	}
	return text.Text
}

func TestGatewayAdvertisesRouterTools(t *testing.T) {
	t.Parallel()

	gateway, err := NewGateway(&echoRouter{}, staticTemplates{}, nil)
	if err != nil {
		t.Fatalf("NewGateway: %v", err)
	}
	session := connectGateway(t, gateway)

	tools, err := session.ListTools(context.Background(), nil)
	if err != nil {
		t.Fatalf("ListTools: %v", err)
	}
	names := map[string]bool{}
	for _, tool := range tools.Tools {
		names[tool.Name] = true
	}
	if !names[ToolRouteQuery] || !names[ToolListTemplates] || len(names) != 2 {
		t.Fatalf("unexpected tools: %v", names)
	}
}

func TestGatewayRouteQuery(t *testing.T) {
	t.Parallel()

	router := &echoRouter{}
	gateway, err := NewGateway(router, nil, nil)
	if err != nil {
		t.Fatalf("NewGateway: %v", err)
	}
	session := connectGateway(t, gateway)
	ctx := context.Background()

	res, err := session.CallTool(ctx, &mcp.CallToolParams{
		Name:      ToolRouteQuery,
		Arguments: map[string]any{"query": "  execute SELECT 1 "},
	})
	if err != nil {
		t.Fatalf("CallTool: %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected tool error: %s", firstText(t, res))
	}
	if got := firstText(t, res); got != "Result from db:\nexecute SELECT 1" {
		t.Fatalf("result = %q", got)
	}

	res, err = session.CallTool(ctx, &mcp.CallToolParams{
		Name:      ToolRouteQuery,
		Arguments: map[string]any{"query": "make it fail"},
	})
	if err != nil {
		t.Fatalf("CallTool: %v", err)
	}
	if !res.IsError {
		t.Fatalf("failure text should be flagged as a tool error")
	}

	res, err = session.CallTool(ctx, &mcp.CallToolParams{
		Name:      ToolRouteQuery,
		Arguments: map[string]any{"query": "   "},
	})
	if err != nil {
		t.Fatalf("CallTool: %v", err)
	}
	if !res.IsError || firstText(t, res) != "query is required" {
		t.Fatalf("blank query accepted: %+v", res)
	}

	router.mu.Lock()
	defer router.mu.Unlock()
	if len(router.queries) != 2 {
		t.Fatalf("router saw %d queries, want 2", len(router.queries))
	}
}

func TestGatewayListTemplates(t *testing.T) {
	t.Parallel()

	gateway, err := NewGateway(&echoRouter{}, staticTemplates{
		"":   "all servers",
		"db": "Prompt templates on server db:",
	}, nil)
	if err != nil {
		t.Fatalf("NewGateway: %v", err)
	}
	session := connectGateway(t, gateway)
	ctx := context.Background()

	for server, want := range map[string]string{"": "all servers", "db": "Prompt templates on server db:", "mail": "Server mail not found."} {
		args := map[string]any{}
		if server != "" {
			args["server"] = server
		}
		res, err := session.CallTool(ctx, &mcp.CallToolParams{Name: ToolListTemplates, Arguments: args})
		if err != nil {
			t.Fatalf("CallTool(%q): %v", server, err)
		}
		if got := firstText(t, res); got != want {
			t.Fatalf("list_templates(%q) = %q, want %q", server, got, want)
		}
	}
}

func TestNewGatewayRequiresRouter(t *testing.T) {
	t.Parallel()

	if _, err := NewGateway(nil, nil, nil); err == nil {
		t.Fatalf("expected error without router")
	}
}

func TestGatewayOptionsDefaults(t *testing.T) {
	t.Parallel()

	gateway, err := NewGateway(&echoRouter{}, nil, &Options{Addr: ":9000"})
	if err != nil {
		t.Fatalf("NewGateway: %v", err)
	}
	opts := gateway.Options()
	if opts.Addr != ":9000" || opts.Path != "/mcp" || opts.Implementation.Name != "mcp-query-router" {
		t.Fatalf("unexpected options: %+v", opts)
	}
	if err := gateway.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown without server: %v", err)
	}
}

func TestGatewayListenAndServeStopsOnCancel(t *testing.T) {
	t.Parallel()

	gateway, err := NewGateway(&echoRouter{}, nil, &Options{Addr: "127.0.0.1:0"})
	if err != nil {
		t.Fatalf("NewGateway: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- gateway.ListenAndServe(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != context.Canceled {
			t.Fatalf("ListenAndServe = %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("ListenAndServe did not return after cancel")
	}
}
