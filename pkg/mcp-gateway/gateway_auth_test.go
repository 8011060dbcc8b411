package mcpgateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/auth"
)

const (
	testAuthorizationServer = "https://auth.example.com/"
	testResourceMetadataURL = "https://router.example.com/.well-known/oauth-protected-resource"
)

func TestGatewayHandlerConditionalBearerToken(t *testing.T) {
	t.Parallel()

	var verifierCalls atomic.Int32
	gateway, err := NewGateway(&echoRouter{}, nil, &Options{
		Path: "/mcp",
		TokenVerifier: func(ctx context.Context, token string, req *http.Request) (*auth.TokenInfo, error) {
			if token != "valid" {
				return nil, auth.ErrInvalidToken
			}
			verifierCalls.Add(1)
			return &auth.TokenInfo{Expiration: time.Now().Add(time.Minute)}, nil
		},
		TokenOptions: &auth.RequireBearerTokenOptions{ResourceMetadataURL: testResourceMetadataURL},
	})
	if err != nil {
		t.Fatalf("NewGateway with auth: %v", err)
	}

	server := httptest.NewServer(gateway.Handler())
	t.Cleanup(server.Close)
	endpoint := server.URL + "/mcp"
	client := server.Client()

	resp, err := client.Post(endpoint, "application/json", strings.NewReader("{}"))
	if err != nil {
		t.Fatalf("post without token: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
	wantHeader := "Bearer resource_metadata=" + testResourceMetadataURL
	if got := resp.Header.Get("WWW-Authenticate"); got != wantHeader {
		t.Fatalf("unexpected WWW-Authenticate header: got %q want %q", got, wantHeader)
	}

	req, err := http.NewRequest(http.MethodPost, endpoint, strings.NewReader("{}"))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer valid")
	req.Header.Set("Content-Type", "application/json")
	resp, err = client.Do(req)
	if err != nil {
		t.Fatalf("post with token: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode == http.StatusUnauthorized {
		t.Fatalf("expected request with token to reach handler, got 401")
	}
	if got := verifierCalls.Load(); got != 1 {
		t.Fatalf("expected verifier to be called once, got %d", got)
	}
}

func TestGatewayHandlerWithoutAuthLeavesEndpointOpen(t *testing.T) {
	t.Parallel()

	gateway, err := NewGateway(&echoRouter{}, nil, &Options{Path: "/mcp"})
	if err != nil {
		t.Fatalf("NewGateway without auth: %v", err)
	}
	server := httptest.NewServer(gateway.Handler())
	t.Cleanup(server.Close)

	resp, err := server.Client().Post(server.URL+"/mcp", "application/json", strings.NewReader("{}"))
	if err != nil {
		t.Fatalf("post without auth config: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode == http.StatusUnauthorized {
		t.Fatalf("unexpected unauthorized response without auth configured")
	}

	resp, err = server.Client().Get(server.URL + protectedResourcePath)
	if err != nil {
		t.Fatalf("get metadata: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("metadata served without an authorization server: %d", resp.StatusCode)
	}
}

func TestGatewayAuthOptionsRequireVerifier(t *testing.T) {
	t.Parallel()

	_, err := NewGateway(&echoRouter{}, nil, &Options{
		TokenOptions: &auth.RequireBearerTokenOptions{Scopes: []string{"required"}},
	})
	if err == nil {
		t.Fatalf("expected error when TokenOptions provided without TokenVerifier")
	}
	_, err = NewGateway(&echoRouter{}, nil, &Options{AuthorizationServer: testAuthorizationServer})
	if err == nil {
		t.Fatalf("expected error when AuthorizationServer provided without TokenVerifier")
	}
}

func TestOAuthProtectedResourceMetadata(t *testing.T) {
	t.Parallel()

	gateway, err := NewGateway(&echoRouter{}, nil, &Options{
		TokenVerifier: func(context.Context, string, *http.Request) (*auth.TokenInfo, error) {
			return &auth.TokenInfo{Expiration: time.Now().Add(time.Minute)}, nil
		},
		TokenOptions: &auth.RequireBearerTokenOptions{
			ResourceMetadataURL: testResourceMetadataURL,
			Scopes:              []string{"router:query"},
		},
		AuthorizationServer: testAuthorizationServer,
	})
	if err != nil {
		t.Fatalf("NewGateway with auth: %v", err)
	}
	server := httptest.NewServer(gateway.Handler())
	t.Cleanup(server.Close)
	metadataEndpoint := server.URL + protectedResourcePath

	t.Run("GET", func(t *testing.T) {
		resp, err := server.Client().Get(metadataEndpoint)
		if err != nil {
			t.Fatalf("get metadata endpoint: %v", err)
		}
		defer resp.Body.Close()
		if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "" {
			t.Fatalf("unexpected Access-Control-Allow-Origin: got %q", got)
		}
		var meta protectedResourceMetadata
		if err := json.NewDecoder(resp.Body).Decode(&meta); err != nil {
			t.Fatalf("decode metadata: %v", err)
		}
		if meta.Resource != server.URL+"/mcp" {
			t.Fatalf("resource = %q", meta.Resource)
		}
		if len(meta.AuthorizationServers) != 1 || meta.AuthorizationServers[0] != testAuthorizationServer {
			t.Fatalf("authorization servers = %v", meta.AuthorizationServers)
		}
		if len(meta.ScopesSupported) != 1 || meta.ScopesSupported[0] != "router:query" {
			t.Fatalf("scopes = %v", meta.ScopesSupported)
		}
	})

	t.Run("cross origin GET", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodGet, metadataEndpoint, nil)
		if err != nil {
			t.Fatalf("new request: %v", err)
		}
		req.Header.Set("Origin", "https://inspector.example.com")
		resp, err := server.Client().Do(req)
		if err != nil {
			t.Fatalf("get metadata endpoint: %v", err)
		}
		resp.Body.Close()
		if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "*" {
			t.Fatalf("Access-Control-Allow-Origin = %q, want *", got)
		}
	})

	t.Run("POST", func(t *testing.T) {
		resp, err := server.Client().Post(metadataEndpoint, "application/json", strings.NewReader("{}"))
		if err != nil {
			t.Fatalf("post metadata endpoint: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusMethodNotAllowed {
			t.Fatalf("status = %d, want 405", resp.StatusCode)
		}
	})
}

func TestGatewayCORSOnEndpoint(t *testing.T) {
	t.Parallel()

	gateway, err := NewGateway(&echoRouter{}, nil, &Options{AllowedOrigins: []string{"https://app.example.com"}})
	if err != nil {
		t.Fatalf("NewGateway: %v", err)
	}
	server := httptest.NewServer(gateway.Handler())
	t.Cleanup(server.Close)

	req, err := http.NewRequest(http.MethodOptions, server.URL+"/mcp", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	resp, err := server.Client().Do(req)
	if err != nil {
		t.Fatalf("preflight: %v", err)
	}
	resp.Body.Close()
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "https://app.example.com" {
		t.Fatalf("Access-Control-Allow-Origin = %q", got)
	}
}
