package mcpmgr

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/vikashloomba/mcp-query-router/pkg/catalog"
)

// Session is the slice of an MCP client session the manager relies on. The
// initialize handshake happens when the session is created. Wait returns once
// the connection is gone.
type Session interface {
	ListTools(context.Context, *mcp.ListToolsParams) (*mcp.ListToolsResult, error)
	ListResources(context.Context, *mcp.ListResourcesParams) (*mcp.ListResourcesResult, error)
	ListResourceTemplates(context.Context, *mcp.ListResourceTemplatesParams) (*mcp.ListResourceTemplatesResult, error)
	ListPrompts(context.Context, *mcp.ListPromptsParams) (*mcp.ListPromptsResult, error)
	GetPrompt(context.Context, *mcp.GetPromptParams) (*mcp.GetPromptResult, error)
	CallTool(context.Context, *mcp.CallToolParams) (*mcp.CallToolResult, error)
	Close() error
	Wait() error
}

var _ Session = (*mcp.ClientSession)(nil)

// ConnectError reports why a single server could not be added to the catalog.
type ConnectError struct {
	Server string
	Stage  string
	Err    error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("mcpmgr: connect %q (%s): %v", e.Server, e.Stage, e.Err)
}

func (e *ConnectError) Unwrap() error { return e.Err }

// ErrUnknownServer is returned for operations on servers without a session.
var ErrUnknownServer = errors.New("mcpmgr: unknown server")

// Manager owns one session per connected server and the catalog describing
// them. A server has a catalog entry exactly when it has a session.
type Manager struct {
	mu sync.RWMutex

	options  ManagerOptions
	catalog  *catalog.Catalog
	sessions map[string]Session
}

// NewManager constructs a Manager. Callers can provide nil options to fall
// back to sensible defaults.
func NewManager(opts *ManagerOptions) *Manager {
	return &Manager{
		options:  opts.withDefaults(),
		catalog:  catalog.New(),
		sessions: make(map[string]Session),
	}
}

// Catalog exposes the capability catalog populated by Connect.
func (m *Manager) Catalog() *catalog.Catalog {
	return m.catalog
}

// ListServers returns the connected server names in sorted order.
func (m *Manager) ListServers() []string {
	return m.catalog.Names()
}

// HasServer reports whether a session exists for serverID.
func (m *Manager) HasServer(serverID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.sessions[serverID]
	return ok
}

// Connect dials every descriptor concurrently. A server whose sequence fails
// at any step is left out of the catalog without affecting the others. The
// returned error joins one *ConnectError per failed server and is purely
// informational.
func (m *Manager) Connect(ctx context.Context, descriptors []ServerDescriptor) error {
	if len(descriptors) == 0 {
		m.options.Logger.Warn("no servers found in configuration")
		return nil
	}
	errs := make([]error, len(descriptors))
	var wg sync.WaitGroup
	for i, d := range descriptors {
		wg.Add(1)
		go func(i int, d ServerDescriptor) {
			defer wg.Done()
			errs[i] = m.ConnectServer(ctx, d)
		}(i, d)
	}
	wg.Wait()
	return errors.Join(errs...)
}

// ConnectServer opens, initializes, and catalogs a single server.
func (m *Manager) ConnectServer(ctx context.Context, d ServerDescriptor) error {
	logger := m.options.Logger.With("server", d.Name)
	if d.Name == "" || d.Transport == nil {
		return &ConnectError{Server: d.Name, Stage: "configure", Err: errors.New("descriptor needs a name and a transport")}
	}
	if m.HasServer(d.Name) {
		return &ConnectError{Server: d.Name, Stage: "configure", Err: errors.New("already connected")}
	}
	logger.Info("connecting to server", "transport", TransportOf(d), "endpoint", EndpointOf(d))

	session, info, err := m.establish(ctx, d)
	if err != nil {
		logger.Error("failed to connect", "error", err)
		return err
	}

	m.mu.Lock()
	if _, dup := m.sessions[d.Name]; dup {
		m.mu.Unlock()
		_ = session.Close()
		return &ConnectError{Server: d.Name, Stage: "register", Err: errors.New("already connected")}
	}
	m.sessions[d.Name] = session
	m.catalog.Register(d.Name, info)
	m.mu.Unlock()
	go m.watch(d.Name, session)

	logger.Info("connected",
		"tools", toolNames(info.Tools),
		"prompts", len(info.Prompts),
		"resources", len(info.Resources),
		"latency_ms", fmt.Sprintf("%.2f", info.LatencyMs))
	return nil
}

func (m *Manager) establish(ctx context.Context, d ServerDescriptor) (Session, catalog.ServerInfo, error) {
	transport, err := d.Transport.Open(d.Name)
	if err != nil {
		return nil, catalog.ServerInfo{}, &ConnectError{Server: d.Name, Stage: "transport", Err: err}
	}
	if logger := m.resolveLogger(); logger != nil {
		transport = &loggingTransport{serverID: d.Name, delegate: transport, logger: logger}
	}

	// Event-stream transports bind their stream to the connect context, so it
	// must outlive this call. The timeout only guards the handshake.
	sessionCtx, release := context.WithCancel(context.WithoutCancel(ctx))
	guard := time.AfterFunc(m.options.Timeout, release)

	impl := &mcp.Implementation{Name: m.options.ClientName, Version: m.options.ClientVersion}
	clientOpts := m.options.ClientOptions
	client := mcp.NewClient(impl, &clientOpts)

	clock := &handshakeClock{Transport: transport}
	cs, err := client.Connect(sessionCtx, clock, nil)
	if !guard.Stop() && err == nil {
		err = context.DeadlineExceeded
		_ = cs.Close()
	}
	if err != nil {
		release()
		return nil, catalog.ServerInfo{}, &ConnectError{Server: d.Name, Stage: "initialize", Err: err}
	}
	session := &ownedSession{Session: cs, release: release}

	ctx, cancel := m.withTimeout(ctx)
	defer cancel()
	info, err := describeServer(ctx, session, clock.started)
	if err != nil {
		_ = session.Close()
		return nil, catalog.ServerInfo{}, &ConnectError{Server: d.Name, Stage: "catalog", Err: err}
	}
	return session, info, nil
}

// handshakeClock records when the transport is up, so latency excludes
// process startup and starts with the initialize request.
type handshakeClock struct {
	mcp.Transport
	started time.Time
}

func (c *handshakeClock) Connect(ctx context.Context) (mcp.Connection, error) {
	conn, err := c.Transport.Connect(ctx)
	c.started = time.Now()
	return conn, err
}

// ownedSession releases the session context once the session is closed.
type ownedSession struct {
	Session
	release context.CancelFunc
}

func (s *ownedSession) Close() error {
	defer s.release()
	return s.Session.Close()
}

// watch drops serverID from the session map and the catalog once its
// connection ends without a DisconnectServer call.
func (m *Manager) watch(serverID string, session Session) {
	err := session.Wait()

	m.mu.Lock()
	current, ok := m.sessions[serverID]
	if !ok || current != session {
		m.mu.Unlock()
		return
	}
	delete(m.sessions, serverID)
	m.catalog.Remove(serverID)
	m.mu.Unlock()

	_ = session.Close()
	m.options.Logger.Warn("server session ended", "server", serverID, "error", err)
}

// describeServer lists tools, resources, and prompts, then fetches every
// prompt template. Latency covers initialize through the three list calls.
func describeServer(ctx context.Context, session Session, start time.Time) (catalog.ServerInfo, error) {
	tools, err := listTools(ctx, session)
	if err != nil {
		return catalog.ServerInfo{}, fmt.Errorf("list tools: %w", err)
	}
	resources, err := listResources(ctx, session)
	if err != nil {
		return catalog.ServerInfo{}, fmt.Errorf("list resources: %w", err)
	}
	prompts, err := listPrompts(ctx, session)
	if err != nil {
		return catalog.ServerInfo{}, fmt.Errorf("list prompts: %w", err)
	}
	latency := float64(time.Since(start).Microseconds()) / 1000

	templates := make(map[string]catalog.PromptTemplate, len(prompts))
	for _, p := range prompts {
		tmpl, err := fetchTemplate(ctx, session, p)
		if err != nil {
			return catalog.ServerInfo{}, fmt.Errorf("get prompt %q: %w", p.Name, err)
		}
		templates[p.Name] = tmpl
	}

	return catalog.ServerInfo{
		Tools:     tools,
		Resources: resources,
		Prompts:   prompts,
		Templates: templates,
		LatencyMs: latency,
	}, nil
}

func listTools(ctx context.Context, session Session) ([]catalog.ToolSpec, error) {
	var (
		out    []catalog.ToolSpec
		seen   = make(map[string]struct{})
		cursor string
	)
	for {
		res, err := session.ListTools(ctx, &mcp.ListToolsParams{Cursor: cursor})
		if err != nil {
			return nil, err
		}
		for _, tool := range res.Tools {
			if tool == nil {
				continue
			}
			if _, dup := seen[tool.Name]; dup {
				continue
			}
			seen[tool.Name] = struct{}{}
			schema, err := toolSchema(tool.InputSchema)
			if err != nil {
				return nil, fmt.Errorf("tool %q: %w", tool.Name, err)
			}
			out = append(out, catalog.ToolSpec{Name: tool.Name, Description: tool.Description, InputSchema: schema})
		}
		if res.NextCursor == "" {
			break
		}
		cursor = res.NextCursor
	}
	if out == nil {
		out = []catalog.ToolSpec{}
	}
	return out, nil
}

func listResources(ctx context.Context, session Session) ([]catalog.ResourceSpec, error) {
	out := []catalog.ResourceSpec{}
	cursor := ""
	for {
		res, err := session.ListResources(ctx, &mcp.ListResourcesParams{Cursor: cursor})
		if err != nil {
			return nil, err
		}
		for _, r := range res.Resources {
			if r == nil {
				continue
			}
			out = append(out, catalog.ResourceSpec{
				URI:         r.URI,
				MIMEType:    r.MIMEType,
				Name:        r.Name,
				Description: r.Description,
			})
		}
		if res.NextCursor == "" {
			return out, nil
		}
		cursor = res.NextCursor
	}
}

func listPrompts(ctx context.Context, session Session) ([]catalog.PromptSpec, error) {
	var (
		out    = []catalog.PromptSpec{}
		seen   = make(map[string]struct{})
		cursor string
	)
	for {
		res, err := session.ListPrompts(ctx, &mcp.ListPromptsParams{Cursor: cursor})
		if err != nil {
			return nil, err
		}
		for _, p := range res.Prompts {
			if p == nil {
				continue
			}
			if _, dup := seen[p.Name]; dup {
				continue
			}
			seen[p.Name] = struct{}{}
			spec := catalog.PromptSpec{Name: p.Name, Description: p.Description, Arguments: []catalog.PromptArgument{}}
			for _, arg := range p.Arguments {
				if arg == nil {
					continue
				}
				spec.Arguments = append(spec.Arguments, catalog.PromptArgument{
					Name:        arg.Name,
					Description: arg.Description,
					Required:    arg.Required,
				})
			}
			out = append(out, spec)
		}
		if res.NextCursor == "" {
			return out, nil
		}
		cursor = res.NextCursor
	}
}

// fetchTemplate binds every declared argument to its own {{name}} placeholder
// so the returned messages keep the placeholders intact.
func fetchTemplate(ctx context.Context, session Session, p catalog.PromptSpec) (catalog.PromptTemplate, error) {
	params := &mcp.GetPromptParams{Name: p.Name}
	if len(p.Arguments) > 0 {
		params.Arguments = make(map[string]string, len(p.Arguments))
		for _, arg := range p.Arguments {
			params.Arguments[arg.Name] = "{{" + arg.Name + "}}"
		}
	}
	res, err := session.GetPrompt(ctx, params)
	if err != nil {
		return catalog.PromptTemplate{}, err
	}
	tmpl := catalog.PromptTemplate{Description: res.Description, Messages: make([]catalog.PromptMessage, 0, len(res.Messages))}
	for _, msg := range res.Messages {
		if msg == nil {
			continue
		}
		text := ""
		if tc, ok := msg.Content.(*mcp.TextContent); ok {
			text = tc.Text
		}
		tmpl.Messages = append(tmpl.Messages, catalog.PromptMessage{Role: string(msg.Role), Content: text})
	}
	return tmpl, nil
}

// CallTool invokes toolName on serverID and converts the result.
func (m *Manager) CallTool(ctx context.Context, serverID, toolName string, args map[string]any) (*ToolResult, error) {
	session, err := m.session(serverID)
	if err != nil {
		return nil, err
	}
	if toolName == "" {
		return nil, fmt.Errorf("mcpmgr: tool name is required for %q", serverID)
	}
	if args == nil {
		args = map[string]any{}
	}
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()
	res, err := session.CallTool(ctx, &mcp.CallToolParams{Name: toolName, Arguments: args})
	if err != nil {
		return nil, fmt.Errorf("mcpmgr: call %s on %q: %w", toolName, serverID, err)
	}
	return toolResultFrom(res)
}

// ListResourceTemplates retrieves the resource templates of serverID.
func (m *Manager) ListResourceTemplates(ctx context.Context, serverID string) ([]*mcp.ResourceTemplate, error) {
	session, err := m.session(serverID)
	if err != nil {
		return nil, err
	}
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()
	var (
		out    []*mcp.ResourceTemplate
		cursor string
	)
	for {
		res, err := session.ListResourceTemplates(ctx, &mcp.ListResourceTemplatesParams{Cursor: cursor})
		if err != nil {
			return nil, err
		}
		out = append(out, res.ResourceTemplates...)
		if res.NextCursor == "" {
			return out, nil
		}
		cursor = res.NextCursor
	}
}

// DisconnectServer closes the session for serverID and removes its catalog
// entry.
func (m *Manager) DisconnectServer(ctx context.Context, serverID string) error {
	m.mu.Lock()
	session, ok := m.sessions[serverID]
	delete(m.sessions, serverID)
	m.catalog.Remove(serverID)
	m.mu.Unlock()
	if !ok {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	done := make(chan error, 1)
	go func() {
		done <- session.Close()
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		return err
	}
}

// Cleanup closes every session. Individual close failures are logged and
// joined into the returned error; every session is released regardless.
func (m *Manager) Cleanup(ctx context.Context) error {
	m.mu.RLock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	m.mu.RUnlock()

	var errs []error
	for _, id := range ids {
		if err := m.DisconnectServer(ctx, id); err != nil {
			m.options.Logger.Warn("failed to close session", "server", id, "error", err)
			errs = append(errs, fmt.Errorf("mcpmgr: close %q: %w", id, err))
		}
	}
	return errors.Join(errs...)
}

func (m *Manager) session(serverID string) (Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	session, ok := m.sessions[serverID]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownServer, serverID)
	}
	return session, nil
}

func (m *Manager) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	if m.options.Timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, m.options.Timeout)
}

func (m *Manager) resolveLogger() RPCLogger {
	if m.options.RPCLogger != nil {
		return m.options.RPCLogger
	}
	if m.options.LogJSONRPC {
		logger := m.options.Logger
		return func(event RPCLogEvent) {
			logger.Debug("jsonrpc",
				"server", event.ServerID,
				"direction", strings.ToUpper(string(event.Direction)),
				"message", string(event.Message))
		}
	}
	return nil
}

func toolNames(tools []catalog.ToolSpec) []string {
	names := make([]string, 0, len(tools))
	for _, t := range tools {
		names = append(names, t.Name)
	}
	return names
}
