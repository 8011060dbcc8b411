package router

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/vikashloomba/mcp-query-router/pkg/catalog"
	"github.com/vikashloomba/mcp-query-router/pkg/mcpmgr"
	"github.com/vikashloomba/mcp-query-router/pkg/oracle"
)

const (
	NoServerText = "No suitable MCP server found to handle this query."
	NoToolText   = "LLM could not determine which tool to use."

	// DefaultToolTimeout bounds a single tool invocation.
	DefaultToolTimeout = 30 * time.Second
)

// Oracle makes the routing decisions. *oracle.Client implements it.
type Oracle interface {
	PickServer(ctx context.Context, query string, servers map[string]catalog.ServerInfo) (string, bool)
	PickPrompt(ctx context.Context, info catalog.ServerInfo, query string) (string, bool)
	ExtractPromptArgs(ctx context.Context, args []catalog.PromptArgument, query string) map[string]string
	PickToolAndArgs(ctx context.Context, tools []catalog.ToolSpec, message string) (oracle.ToolCall, bool)
	ExtractToolArgs(ctx context.Context, tool catalog.ToolSpec, query string) map[string]any
}

// ToolInvoker calls a tool on a connected server. *mcpmgr.Manager implements
// it.
type ToolInvoker interface {
	CallTool(ctx context.Context, serverID, toolName string, args map[string]any) (*mcpmgr.ToolResult, error)
}

var (
	_ Oracle      = (*oracle.Client)(nil)
	_ ToolInvoker = (*mcpmgr.Manager)(nil)
)

// Options configures a Router.
type Options struct {
	// ToolTimeout bounds each tool call. Defaults to DefaultToolTimeout.
	ToolTimeout    time.Duration
	Logger         *slog.Logger
	TracerProvider trace.TracerProvider
	MeterProvider  metric.MeterProvider
}

// Router drives one query at a time through the routing pipeline.
type Router struct {
	mu          sync.Mutex
	catalog     *catalog.Catalog
	oracle      Oracle
	invoker     ToolInvoker
	toolTimeout time.Duration
	logger      *slog.Logger
	inst        *instruments
}

// New builds a Router over the catalog the invoker's sessions were described
// into.
func New(cat *catalog.Catalog, o Oracle, invoker ToolInvoker, opts *Options) (*Router, error) {
	var cfg Options
	if opts != nil {
		cfg = *opts
	}
	if cfg.ToolTimeout <= 0 {
		cfg.ToolTimeout = DefaultToolTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	inst, err := newInstruments(cfg.TracerProvider, cfg.MeterProvider)
	if err != nil {
		return nil, fmt.Errorf("router: init telemetry: %w", err)
	}
	return &Router{
		catalog:     cat,
		oracle:      o,
		invoker:     invoker,
		toolTimeout: cfg.ToolTimeout,
		logger:      cfg.Logger,
		inst:        inst,
	}, nil
}

type outcome string

const (
	outcomeSuccess  outcome = "success"
	outcomeNoServer outcome = "no_server"
	outcomeNoTool   outcome = "no_tool"
	outcomeFailure  outcome = "failure"
)

type stageError struct {
	stage string
	err   error
}

func (e *stageError) Error() string { return e.err.Error() }
func (e *stageError) Unwrap() error { return e.err }

func fail(stage string, err error) *stageError {
	return &stageError{stage: stage, err: err}
}

// Process runs query through the pipeline and returns the text to show the
// user. It never returns an error; failures are rendered as text.
func (r *Router) Process(ctx context.Context, query string) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	queryID := uuid.NewString()
	logger := r.logger.With("query_id", queryID)
	ctx, span := r.inst.tracer.Start(ctx, "router.process",
		trace.WithAttributes(attribute.String("router.query_id", queryID)),
	)
	defer span.End()

	start := time.Now()
	text, result, serr := r.run(ctx, logger, query)
	elapsed := float64(time.Since(start).Milliseconds())

	if serr != nil {
		result = outcomeFailure
		text = "Failed to process query: " + serr.Error()
		span.RecordError(serr.err)
		span.SetStatus(codes.Error, serr.Error())
		r.inst.failures.Add(ctx, 1, metric.WithAttributes(attribute.String("stage", serr.stage)))
		logger.Warn("query failed", "stage", serr.stage, "latency_ms", elapsed, "error", serr.err)
	} else {
		span.SetStatus(codes.Ok, "")
		logger.Info("query processed", "outcome", string(result), "latency_ms", elapsed)
	}
	attrs := metric.WithAttributes(attribute.String("outcome", string(result)))
	r.inst.queries.Add(ctx, 1, attrs)
	r.inst.duration.Record(ctx, elapsed, attrs)
	span.SetAttributes(attribute.String("router.outcome", string(result)))
	return text
}

func (r *Router) run(ctx context.Context, logger *slog.Logger, query string) (string, outcome, *stageError) {
	normalized := NormalizeQuery(query)
	servers := r.catalog.Snapshot()

	serverName, ok := r.pickServer(ctx, normalized, servers)
	if !ok {
		logger.Info("no server selected")
		return NoServerText, outcomeNoServer, nil
	}
	info := servers[serverName]
	logger = logger.With("server", serverName)
	logger.Debug("server selected", "tools", len(info.Tools))

	message := r.promptMessage(ctx, logger, info, normalized)

	call, ok := r.pickTool(ctx, info.Tools, message)
	if !ok {
		logger.Info("no tool selected")
		return NoToolText, outcomeNoTool, nil
	}
	tool, ok := info.Tool(call.Name)
	if !ok {
		return "", "", fail("pick_tool", fmt.Errorf("tool %s is not offered by server %s", call.Name, serverName))
	}
	logger = logger.With("tool", tool.Name)

	args := call.Arguments
	if len(args) == 0 {
		args = r.oracle.ExtractToolArgs(ctx, tool, normalized)
		logger.Debug("tool arguments extracted", "arguments", args)
	}
	args, err := PrepareArgs(tool, args)
	if err != nil {
		return "", "", fail("arguments", err)
	}

	res, err := r.callTool(ctx, serverName, tool.Name, args)
	if err != nil {
		return "", "", fail("call_tool", err)
	}
	if res.IsError {
		return "", "", fail("call_tool", fmt.Errorf("tool %s on server %s: %s", tool.Name, serverName, toolErrorText(res)))
	}
	text := RenderResult(res)

	if load, ok := r.catalog.RecordCall(serverName); ok {
		logger.Debug("server load updated", "load", load)
	}
	return fmt.Sprintf("Result from %s:\n%s", serverName, text), outcomeSuccess, nil
}

func (r *Router) pickServer(ctx context.Context, query string, servers map[string]catalog.ServerInfo) (string, bool) {
	ctx, span := r.inst.tracer.Start(ctx, "router.pick_server")
	defer span.End()
	name, ok := r.oracle.PickServer(ctx, query, servers)
	span.SetAttributes(attribute.String("router.server", name))
	return name, ok
}

// promptMessage returns the downstream message: the filled template when the
// oracle selects one, otherwise the query itself.
func (r *Router) promptMessage(ctx context.Context, logger *slog.Logger, info catalog.ServerInfo, query string) string {
	ctx, span := r.inst.tracer.Start(ctx, "router.fill_prompt")
	defer span.End()

	name, ok := r.oracle.PickPrompt(ctx, info, query)
	if !ok {
		return query
	}
	prompt, ok := info.Prompt(name)
	if !ok {
		return query
	}
	tmpl, ok := info.Templates[name]
	if !ok || len(tmpl.Messages) == 0 {
		logger.Warn("prompt has no template", "prompt", name)
		return query
	}
	span.SetAttributes(
		attribute.String("router.prompt", name),
		attribute.StringSlice("router.prompt.arguments", prompt.ArgumentNames()))

	values := r.oracle.ExtractPromptArgs(ctx, prompt.Arguments, query)
	message := JoinMessages(FillTemplate(tmpl, values))
	logger.Debug("prompt filled", "prompt", name, "message", message)
	return message
}

func (r *Router) pickTool(ctx context.Context, tools []catalog.ToolSpec, message string) (oracle.ToolCall, bool) {
	ctx, span := r.inst.tracer.Start(ctx, "router.pick_tool")
	defer span.End()
	call, ok := r.oracle.PickToolAndArgs(ctx, tools, message)
	span.SetAttributes(attribute.String("router.tool", call.Name))
	return call, ok
}

func (r *Router) callTool(ctx context.Context, server, tool string, args map[string]any) (*mcpmgr.ToolResult, error) {
	ctx, span := r.inst.tracer.Start(ctx, "router.call_tool",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("router.server", server),
			attribute.String("router.tool", tool),
		),
	)
	defer span.End()
	ctx, cancel := context.WithTimeout(ctx, r.toolTimeout)
	defer cancel()

	res, err := r.invoker.CallTool(ctx, server, tool, args)
	failed := err != nil || (res != nil && res.IsError)
	r.inst.toolCalls.Add(ctx, 1, metric.WithAttributes(
		attribute.String("server", server),
		attribute.String("tool", tool),
		attribute.Bool("error", failed),
	))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if res == nil {
		res = &mcpmgr.ToolResult{}
	}
	return res, nil
}
