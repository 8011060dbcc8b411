package mcpgateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/auth"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/cors"
)

const (
	ToolRouteQuery    = "route_query"
	ToolListTemplates = "list_templates"
)

// QueryRouter answers free-text queries. *router.Router implements it.
type QueryRouter interface {
	Process(ctx context.Context, query string) string
}

// TemplateLister describes the templates of one or all backend servers.
// *mcpmgr.Manager implements it.
type TemplateLister interface {
	DescribeTemplates(ctx context.Context, serverID string) string
}

// Gateway serves the router over a single Streamable MCP endpoint.
type Gateway struct {
	router    QueryRouter
	templates TemplateLister
	opts      Options

	server        *mcp.Server
	streamHandler *mcp.StreamableHTTPHandler
	mux           *http.ServeMux

	httpServerMu sync.Mutex
	httpServer   *http.Server
}

type routeQueryInput struct {
	Query string `json:"query" jsonschema:"the request to route, in plain language"`
}

type listTemplatesInput struct {
	Server string `json:"server,omitempty" jsonschema:"restrict the listing to one backend server"`
}

// NewGateway builds a Gateway around r. templates may be nil, in which case
// list_templates is not offered.
func NewGateway(r QueryRouter, templates TemplateLister, opts *Options) (*Gateway, error) {
	if r == nil {
		return nil, fmt.Errorf("mcpgateway: router is required")
	}
	options := opts.withDefaults()
	if options.TokenVerifier == nil && (options.TokenOptions != nil || options.AuthorizationServer != "") {
		return nil, fmt.Errorf("mcpgateway: token options require a TokenVerifier")
	}
	g := &Gateway{
		router:    r,
		templates: templates,
		opts:      options,
	}

	g.server = mcp.NewServer(options.Implementation, &mcp.ServerOptions{HasTools: true})
	mcp.AddTool(g.server, &mcp.Tool{
		Name:        ToolRouteQuery,
		Description: "Route a plain-language request to the best suited backend MCP server and tool, and return the tool's result.",
	}, g.routeQuery)
	if templates != nil {
		mcp.AddTool(g.server, &mcp.Tool{
			Name:        ToolListTemplates,
			Description: "List the resource and prompt templates offered by the backend servers.",
		}, g.listTemplates)
	}

	g.streamHandler = mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return g.server
	}, &options.Streamable)
	g.mux = g.mountHandler()
	return g, nil
}

// Handler exposes the HTTP handler that serves the Streamable endpoint.
func (g *Gateway) Handler() http.Handler {
	return g.mux
}

// ServeMux returns the mux behind Handler so callers can add routes.
func (g *Gateway) ServeMux() *http.ServeMux {
	return g.mux
}

// Options returns the effective options.
func (g *Gateway) Options() Options {
	return g.opts
}

func (g *Gateway) routeQuery(ctx context.Context, _ *mcp.CallToolRequest, in routeQueryInput) (*mcp.CallToolResult, any, error) {
	query := strings.TrimSpace(in.Query)
	if query == "" {
		return errorResult("query is required"), nil, nil
	}
	text := g.router.Process(ctx, query)
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
		IsError: strings.HasPrefix(text, "Failed to process query:"),
	}, nil, nil
}

func (g *Gateway) listTemplates(ctx context.Context, _ *mcp.CallToolRequest, in listTemplatesInput) (*mcp.CallToolResult, any, error) {
	text := g.templates.DescribeTemplates(ctx, strings.TrimSpace(in.Server))
	return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: text}}}, nil, nil
}

func errorResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: msg}},
		IsError: true,
	}
}

// ListenAndServe runs an HTTP server until the provided context is cancelled or
// the server stops.
func (g *Gateway) ListenAndServe(ctx context.Context) error {
	g.httpServerMu.Lock()
	if g.httpServer != nil {
		serv := g.httpServer
		g.httpServerMu.Unlock()
		return fmt.Errorf("mcpgateway: server already running on %s", serv.Addr)
	}
	srv := &http.Server{Addr: g.opts.Addr, Handler: g.Handler()}
	g.httpServer = srv
	g.httpServerMu.Unlock()
	defer func() {
		g.httpServerMu.Lock()
		if g.httpServer == srv {
			g.httpServer = nil
		}
		g.httpServerMu.Unlock()
	}()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	g.opts.Logger.Info("gateway listening", "addr", g.opts.Addr, "path", g.opts.Path)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), g.opts.ShutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// Shutdown stops the embedded HTTP server if it is running.
func (g *Gateway) Shutdown(ctx context.Context) error {
	g.httpServerMu.Lock()
	srv := g.httpServer
	g.httpServer = nil
	g.httpServerMu.Unlock()
	if srv == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return srv.Shutdown(ctx)
}

func (g *Gateway) mountHandler() *http.ServeMux {
	path := g.opts.Path
	var endpoint http.Handler = g.streamHandler
	if g.opts.TokenVerifier != nil {
		endpoint = auth.RequireBearerToken(g.opts.TokenVerifier, g.opts.TokenOptions)(endpoint)
	}
	if len(g.opts.AllowedOrigins) > 0 {
		endpoint = cors.New(cors.Options{
			AllowedOrigins: g.opts.AllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
			AllowedHeaders: []string{"Authorization", "Content-Type", "Mcp-Session-Id", "Mcp-Protocol-Version", "Last-Event-ID"},
			ExposedHeaders: []string{"Mcp-Session-Id"},
		}).Handler(endpoint)
	}

	mux := http.NewServeMux()
	mux.Handle(path, endpoint)
	if !strings.HasSuffix(path, "/") {
		mux.Handle(path+"/", endpoint)
	}
	if g.opts.AuthorizationServer != "" {
		mux.Handle(protectedResourcePath, cors.New(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		}).Handler(http.HandlerFunc(g.serveProtectedResource)))
	}
	return mux
}
