package mcpmgr

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// RPCDirection represents the direction of an observed JSON-RPC message.
type RPCDirection string

const (
	RPCDirectionSend    RPCDirection = "send"
	RPCDirectionReceive RPCDirection = "receive"
)

// RPCLogEvent encapsulates JSON-RPC traffic for custom logging.
type RPCLogEvent struct {
	Direction RPCDirection
	Message   []byte
	ServerID  string
}

// RPCLogger is invoked for each JSON-RPC message when logging is enabled.
type RPCLogger func(RPCLogEvent)

// TransportKind identifies the mechanism carrying a session's bytes.
type TransportKind string

const (
	TransportStdio TransportKind = "stdio"
	TransportSSE   TransportKind = "sse"
)

// ServerTransport is implemented by the transport variants a server can be
// reached through. Open is called once per connect attempt.
type ServerTransport interface {
	Kind() TransportKind
	Open(serverName string) (mcp.Transport, error)
}

// StdioTransport launches a long-lived child process that speaks MCP over
// its standard streams.
type StdioTransport struct {
	Command string
	Args    []string
	Env     map[string]string
}

func (t *StdioTransport) Kind() TransportKind { return TransportStdio }

// Open builds the command transport. The process starts when the session
// connects.
func (t *StdioTransport) Open(serverName string) (mcp.Transport, error) {
	if t.Command == "" {
		return nil, fmt.Errorf("mcpmgr: command missing for %q", serverName)
	}
	cmd := exec.Command(t.Command, t.Args...)
	if len(t.Env) > 0 {
		env := os.Environ()
		for k, v := range t.Env {
			env = append(env, fmt.Sprintf("%s=%s", k, v))
		}
		cmd.Env = env
	}
	return &mcp.CommandTransport{Command: cmd}, nil
}

// SSETransport reaches a server through the HTTP event-stream transport.
type SSETransport struct {
	URL        string
	Headers    http.Header
	HTTPClient *http.Client
}

func (t *SSETransport) Kind() TransportKind { return TransportSSE }

// Open builds the event-stream transport with any configured headers applied
// to every outbound request.
func (t *SSETransport) Open(serverName string) (mcp.Transport, error) {
	if t.URL == "" {
		return nil, fmt.Errorf("mcpmgr: endpoint missing for %q", serverName)
	}
	return &mcp.SSEClientTransport{
		Endpoint:   t.URL,
		HTTPClient: decorateHTTPClient(t.HTTPClient, t.Headers),
	}, nil
}

// ServerDescriptor names one configured server and how to reach it. It is
// loaded once at startup and never modified.
type ServerDescriptor struct {
	Name      string
	Transport ServerTransport
}

// ManagerOptions configures a Manager instance.
type ManagerOptions struct {
	// ClientName is advertised during initialization. Defaults to
	// "mcp-query-router".
	ClientName string
	// ClientVersion controls the semantic version reported to servers.
	ClientVersion string
	// Timeout bounds each connect sequence and each tool call. Defaults to
	// 30 seconds.
	Timeout time.Duration
	// ClientOptions are passed to every mcp.Client the manager creates.
	ClientOptions mcp.ClientOptions
	// Logger receives structured diagnostics.
	Logger *slog.Logger
	// LogJSONRPC logs JSON-RPC traffic at debug level through Logger.
	LogJSONRPC bool
	// RPCLogger provides a custom sink for JSON-RPC traffic; it takes
	// precedence over LogJSONRPC.
	RPCLogger RPCLogger
}

func (o *ManagerOptions) withDefaults() ManagerOptions {
	if o == nil {
		o = &ManagerOptions{}
	}
	opts := *o
	if opts.ClientName == "" {
		opts.ClientName = "mcp-query-router"
	}
	if opts.ClientVersion == "" {
		opts.ClientVersion = "1.0.0"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return opts
}
