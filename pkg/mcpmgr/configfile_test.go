package mcpmgr

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestParseServerConfigBuildsBothTransports(t *testing.T) {
	t.Parallel()

	data := []byte(`{
	  "mcpServers": {
	    "weather": {"command": "SSE", "args": ["http://localhost:3001/sse"], "headers": {"X-Api-Key": "k"}},
	    "db": {"command": "uv", "args": ["run", "db_server.py"], "env": {"DB_PATH": "/tmp/app.db"}}
	  }
	}`)
	descriptors, err := ParseServerConfig("mcp_config.json", data, false)
	if err != nil {
		t.Fatalf("ParseServerConfig: %v", err)
	}
	if len(descriptors) != 2 {
		t.Fatalf("expected 2 descriptors, got %d", len(descriptors))
	}
	if descriptors[0].Name != "db" || descriptors[1].Name != "weather" {
		t.Fatalf("descriptors should be sorted by name: %v, %v", descriptors[0].Name, descriptors[1].Name)
	}

	stdio, ok := AsStdio(descriptors[0].Transport)
	if !ok {
		t.Fatalf("db should use stdio, got %T", descriptors[0].Transport)
	}
	if stdio.Command != "uv" || !reflect.DeepEqual(stdio.Args, []string{"run", "db_server.py"}) || stdio.Env["DB_PATH"] != "/tmp/app.db" {
		t.Fatalf("stdio config not preserved: %#v", stdio)
	}

	sse, ok := AsSSE(descriptors[1].Transport)
	if !ok {
		t.Fatalf("weather should use sse, got %T", descriptors[1].Transport)
	}
	if sse.URL != "http://localhost:3001/sse" || sse.Headers.Get("X-Api-Key") != "k" {
		t.Fatalf("sse config not preserved: %#v", sse)
	}
	if TransportOf(descriptors[1]) != TransportSSE || TransportOf(descriptors[0]) != TransportStdio {
		t.Fatalf("TransportOf mismatch")
	}
	if TransportOf(ServerDescriptor{}) != "" {
		t.Fatalf("TransportOf without transport should be empty")
	}
	if got := EndpointOf(descriptors[0]); got != "uv run db_server.py" {
		t.Fatalf("EndpointOf(db) = %q", got)
	}
	if got := EndpointOf(descriptors[1]); got != "http://localhost:3001/sse" {
		t.Fatalf("EndpointOf(weather) = %q", got)
	}
}

func TestParseServerConfigSkipsInvalidEntries(t *testing.T) {
	t.Parallel()

	data := []byte(`{
	  "mcpServers": {
	    "ok": {"command": "node", "args": ["server.js"]},
	    "nocommand": {"args": ["x"]},
	    "badargs": {"command": "node", "args": "server.js"},
	    "badsse": {"command": "sse", "args": ["localhost:3001"]},
	    "emptysse": {"command": "sse"}
	  }
	}`)
	descriptors, err := ParseServerConfig("mcp_config.json", data, false)
	if len(descriptors) != 1 || descriptors[0].Name != "ok" {
		t.Fatalf("only the valid entry should survive: %#v", descriptors)
	}
	if err == nil {
		t.Fatalf("expected entry errors")
	}
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected *ConfigError, got %T", err)
	}
	for _, name := range []string{"nocommand", "badargs", "badsse", "emptysse"} {
		if !strings.Contains(err.Error(), `"`+name+`"`) {
			t.Fatalf("error should mention %s: %v", name, err)
		}
	}
}

func TestParseServerConfigMalformed(t *testing.T) {
	t.Parallel()

	descriptors, err := ParseServerConfig("mcp_config.json", []byte(`{"mcpServers": [`), false)
	if len(descriptors) != 0 {
		t.Fatalf("malformed config must yield no descriptors")
	}
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) || cfgErr.Server != "" {
		t.Fatalf("expected file-level *ConfigError, got %v", err)
	}
}

func TestParseServerConfigWithoutServers(t *testing.T) {
	t.Parallel()

	descriptors, err := ParseServerConfig("mcp_config.json", []byte(`{}`), false)
	if err != nil || len(descriptors) != 0 {
		t.Fatalf("empty config: %v %v", descriptors, err)
	}
}

func TestLoadServerConfigYAML(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "servers.yaml")
	content := "mcpServers:\n  db:\n    command: uv\n    args: [run, db_server.py]\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	descriptors, err := LoadServerConfig(path)
	if err != nil {
		t.Fatalf("LoadServerConfig: %v", err)
	}
	stdio, ok := AsStdio(descriptors[0].Transport)
	if !ok || !reflect.DeepEqual(stdio.Args, []string{"run", "db_server.py"}) {
		t.Fatalf("yaml config not decoded: %#v", descriptors)
	}
}

func TestLoadServerConfigMissingFile(t *testing.T) {
	t.Parallel()

	descriptors, err := LoadServerConfig(filepath.Join(t.TempDir(), "absent.json"))
	if len(descriptors) != 0 {
		t.Fatalf("missing file must yield no descriptors")
	}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected fs.ErrNotExist, got %v", err)
	}
}
