package mcpmgr

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"

	"github.com/vikashloomba/mcp-query-router/internal/json"
)

// DefaultConfigPath is used when no override is configured.
const DefaultConfigPath = "mcp_config.json"

// ConfigError reports a missing or malformed configuration file, or a single
// invalid server entry within an otherwise readable file.
type ConfigError struct {
	Path   string
	Server string
	Err    error
}

func (e *ConfigError) Error() string {
	if e.Server != "" {
		return fmt.Sprintf("mcpmgr: config %s: server %q: %v", e.Path, e.Server, e.Err)
	}
	return fmt.Sprintf("mcpmgr: config %s: %v", e.Path, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

type configFile struct {
	MCPServers map[string]serverEntry `json:"mcpServers" yaml:"mcpServers"`
}

type serverEntry struct {
	Command string            `json:"command" yaml:"command"`
	Args    any               `json:"args" yaml:"args"`
	Env     map[string]string `json:"env" yaml:"env"`
	Headers map[string]string `json:"headers" yaml:"headers"`
}

// LoadServerConfig reads the server configuration at path. Files ending in
// .yaml or .yml are decoded as YAML, everything else as JSON.
//
// A missing or unreadable file yields no descriptors and a *ConfigError.
// Invalid entries are skipped; the returned descriptors hold every valid
// entry and the error joins one *ConfigError per rejected entry.
func LoadServerConfig(path string) ([]ServerDescriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigError{Path: path, Err: err}
	}
	ext := strings.ToLower(filepath.Ext(path))
	return ParseServerConfig(path, data, ext == ".yaml" || ext == ".yml")
}

// ParseServerConfig decodes configuration bytes. name only labels errors.
func ParseServerConfig(name string, data []byte, isYAML bool) ([]ServerDescriptor, error) {
	var cfg configFile
	var err error
	if isYAML {
		err = yaml.Unmarshal(data, &cfg)
	} else {
		err = json.Unmarshal(data, &cfg)
	}
	if err != nil {
		return nil, &ConfigError{Path: name, Err: err}
	}

	names := make([]string, 0, len(cfg.MCPServers))
	for server := range cfg.MCPServers {
		names = append(names, server)
	}
	sort.Strings(names)

	var (
		descriptors []ServerDescriptor
		errs        []error
	)
	for _, server := range names {
		d, err := descriptorFromEntry(server, cfg.MCPServers[server])
		if err != nil {
			errs = append(errs, &ConfigError{Path: name, Server: server, Err: err})
			continue
		}
		descriptors = append(descriptors, d)
	}
	return descriptors, errors.Join(errs...)
}

func descriptorFromEntry(name string, entry serverEntry) (ServerDescriptor, error) {
	if entry.Command == "" {
		return ServerDescriptor{}, errors.New("command is required")
	}
	args, err := entryArgs(entry.Args)
	if err != nil {
		return ServerDescriptor{}, err
	}

	if strings.EqualFold(entry.Command, "sse") {
		if len(args) == 0 || !strings.HasPrefix(args[0], "http") {
			return ServerDescriptor{}, fmt.Errorf("sse servers need an http URL as the first argument, got %v", args)
		}
		var headers http.Header
		if len(entry.Headers) > 0 {
			headers = make(http.Header, len(entry.Headers))
			for k, v := range entry.Headers {
				headers.Set(k, v)
			}
		}
		return ServerDescriptor{Name: name, Transport: &SSETransport{URL: args[0], Headers: headers}}, nil
	}

	return ServerDescriptor{
		Name:      name,
		Transport: &StdioTransport{Command: entry.Command, Args: args, Env: entry.Env},
	}, nil
}

func entryArgs(raw any) ([]string, error) {
	if raw == nil {
		return []string{}, nil
	}
	list, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("args must be a list, got %T", raw)
	}
	args := make([]string, 0, len(list))
	for i, item := range list {
		s, err := cast.ToStringE(item)
		if err != nil {
			return nil, fmt.Errorf("args[%d]: %w", i, err)
		}
		args = append(args, s)
	}
	return args, nil
}
