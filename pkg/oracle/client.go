// Package oracle asks a language-model backend to make the routing decisions
// of the query pipeline: which server, which prompt, which tool, and which
// argument values to extract from free text.
//
// Selection operations answer with a name or "none". Extraction operations
// always answer with a mapping; when the backend fails or replies with
// something unparseable, every expected key maps to the empty string.
package oracle

import (
	"context"
	"log/slog"
	"time"

	"github.com/felixgeelhaar/fortify/ratelimit"
	"github.com/spf13/cast"

	"github.com/vikashloomba/mcp-query-router/pkg/catalog"
)

// DefaultTimeout bounds a single completion request.
const DefaultTimeout = 60 * time.Second

type limiter interface {
	Allow(ctx context.Context, key string) bool
}

// Options configures a Client built around an existing Backend.
type Options struct {
	Timeout           time.Duration
	RequestsPerSecond int
	Logger            *slog.Logger
}

// Client is the façade the router talks to.
type Client struct {
	backend Backend
	timeout time.Duration
	limiter limiter
	logger  *slog.Logger
}

// ToolCall is the tool selection returned by PickToolAndArgs.
type ToolCall struct {
	Name      string
	Arguments map[string]any
}

// New wraps backend. A nil opts uses defaults.
func New(backend Backend, opts *Options) *Client {
	var o Options
	if opts != nil {
		o = *opts
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	c := &Client{
		backend: backend,
		timeout: o.Timeout,
		logger:  o.Logger,
	}
	if o.RequestsPerSecond > 0 {
		c.limiter = ratelimit.New(&ratelimit.Config{
			Rate:     o.RequestsPerSecond,
			Burst:    o.RequestsPerSecond,
			Interval: time.Second,
		})
	}
	return c
}

// NewFromConfig selects the backend named by cfg and wraps it.
func NewFromConfig(cfg Config) (*Client, error) {
	backend, err := NewBackend(cfg)
	if err != nil {
		return nil, err
	}
	return New(backend, &Options{
		Timeout:           cfg.Timeout,
		RequestsPerSecond: cfg.RequestsPerSecond,
		Logger:            cfg.Logger,
	}), nil
}

func (c *Client) complete(ctx context.Context, op, system, user string, maxTokens int) (string, error) {
	if c.limiter != nil && !c.limiter.Allow(ctx, "oracle") {
		return "", ErrRateLimited
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	reply, err := c.backend.Complete(ctx, system, user, maxTokens)
	latency := time.Since(start).Milliseconds()
	if err != nil {
		c.logger.Warn("oracle request failed", "op", op, "latency_ms", latency, "error", err)
		return "", err
	}
	c.logger.Debug("oracle reply", "op", op, "latency_ms", latency, "reply", reply)
	return reply, nil
}

// PickServer chooses the server best suited to query. The reply must name a
// server in servers exactly; anything else is treated as no choice.
func (c *Client) PickServer(ctx context.Context, query string, servers map[string]catalog.ServerInfo) (string, bool) {
	if len(servers) == 0 {
		return "", false
	}
	reply, err := c.complete(ctx, "pick_server", pickServerDirective, pickServerMessage(query, servers), maxTokensPickServer)
	if err != nil {
		return "", false
	}
	name, ok := parseChoice(reply)
	if !ok {
		return "", false
	}
	if _, known := servers[name]; !known {
		c.logger.Warn("oracle picked unknown server", "server", name)
		return "", false
	}
	return name, true
}

// PickPrompt chooses one of info's prompt templates, if any fits query.
func (c *Client) PickPrompt(ctx context.Context, info catalog.ServerInfo, query string) (string, bool) {
	if len(info.Prompts) == 0 {
		return "", false
	}
	reply, err := c.complete(ctx, "pick_prompt", pickPromptDirective, pickPromptMessage(info.Prompts, query), maxTokensPickPrompt)
	if err != nil {
		return "", false
	}
	name, ok := parseChoice(reply)
	if !ok {
		return "", false
	}
	if _, known := info.Prompt(name); !known {
		c.logger.Warn("oracle picked unknown prompt", "prompt", name)
		return "", false
	}
	return name, true
}

// ExtractPromptArgs returns a value for every declared argument name.
// Arguments the backend could not fill map to "".
func (c *Client) ExtractPromptArgs(ctx context.Context, args []catalog.PromptArgument, query string) map[string]string {
	out := make(map[string]string, len(args))
	for _, arg := range args {
		out[arg.Name] = ""
	}
	if len(args) == 0 {
		return out
	}
	reply, err := c.complete(ctx, "extract_prompt_args", promptArgsDirective, promptArgsMessage(args, query), maxTokensPromptArgs)
	if err != nil {
		return out
	}
	parsed, err := parseObject(reply)
	if err != nil {
		c.logger.Warn("oracle prompt arguments unparseable", "error", err)
		return out
	}
	for name := range out {
		if v, ok := parsed[name]; ok && v != nil {
			out[name] = cast.ToString(v)
		}
	}
	return out
}

// PickToolAndArgs chooses a tool for message along with any arguments the
// backend proposes. Arguments is never nil when ok is true.
func (c *Client) PickToolAndArgs(ctx context.Context, tools []catalog.ToolSpec, message string) (ToolCall, bool) {
	if len(tools) == 0 {
		return ToolCall{}, false
	}
	reply, err := c.complete(ctx, "pick_tool", pickToolDirective(tools), message, maxTokensPickToolArg)
	if err != nil {
		return ToolCall{}, false
	}
	parsed, err := parseObject(reply)
	if err != nil {
		c.logger.Warn("oracle tool selection unparseable", "error", err)
		return ToolCall{}, false
	}
	name := cast.ToString(parsed["tool_name"])
	if name == "" || name == "None" {
		return ToolCall{}, false
	}
	args, ok := parsed["arguments"].(map[string]any)
	if !ok || args == nil {
		args = map[string]any{}
	}
	return ToolCall{Name: name, Arguments: args}, true
}

// ExtractToolArgs fills the tool's declared properties from query. Keys
// outside the schema are dropped; properties the backend could not fill map
// to "".
func (c *Client) ExtractToolArgs(ctx context.Context, tool catalog.ToolSpec, query string) map[string]any {
	names := tool.PropertyNames()
	out := make(map[string]any, len(names))
	for _, name := range names {
		out[name] = ""
	}
	if len(names) == 0 {
		c.logger.Debug("tool declares no properties", "tool", tool.Name)
		return out
	}
	reply, err := c.complete(ctx, "extract_tool_args", toolArgsDirective, toolArgsMessage(tool, query), maxTokensToolArgs)
	if err != nil {
		return out
	}
	parsed, err := parseObject(reply)
	if err != nil {
		c.logger.Warn("oracle tool arguments unparseable", "tool", tool.Name, "error", err)
		return out
	}
	for _, name := range names {
		if v, ok := parsed[name]; ok && v != nil {
			out[name] = v
		}
	}
	return out
}
