package mcpgateway

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

// Verifies that consumers can add custom routes via ServeMux before serving.
func TestGatewayServeMux_AllowsCustomRoutes_BeforeServe(t *testing.T) {
	gateway, err := NewGateway(&echoRouter{}, nil, &Options{Path: "/mcp"})
	if err != nil {
		t.Fatalf("NewGateway: %v", err)
	}

	mux := gateway.ServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	srv := httptest.NewServer(gateway.Handler())
	defer srv.Close()

	res, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != 200 {
		t.Fatalf("GET /healthz status = %d, want 200", res.StatusCode)
	}
	body, _ := io.ReadAll(res.Body)
	if string(body) != "ok" {
		t.Fatalf("GET /healthz body = %q, want \"ok\"", string(body))
	}
}

// Routes registered after the handler is mounted are reachable.
func TestGatewayServeMux_AllowsCustomRoutes_AfterServe(t *testing.T) {
	gateway, err := NewGateway(&echoRouter{}, nil, &Options{Path: "router"})
	if err != nil {
		t.Fatalf("NewGateway: %v", err)
	}

	srv := httptest.NewServer(gateway.Handler())
	defer srv.Close()

	mux := gateway.ServeMux()
	mux.HandleFunc("/late", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ready"))
	})

	res, err := http.Get(srv.URL + "/late")
	if err != nil {
		t.Fatalf("GET /late: %v", err)
	}
	defer res.Body.Close()
	body, _ := io.ReadAll(res.Body)
	if res.StatusCode != 200 || string(body) != "ready" {
		t.Fatalf("GET /late = %d %q, want 200 \"ready\"", res.StatusCode, string(body))
	}

	res, err = http.Get(srv.URL + "/elsewhere")
	if err != nil {
		t.Fatalf("GET /elsewhere: %v", err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("GET /elsewhere status = %d, want 404", res.StatusCode)
	}
}
