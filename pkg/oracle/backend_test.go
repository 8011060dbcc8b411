package oracle

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vikashloomba/mcp-query-router/internal/json"
)

func TestOpenAIBackendComplete(t *testing.T) {
	var got chatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(body, &got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"db"}}]}`))
	}))
	defer server.Close()

	backend := NewOpenAIBackend("sk-test", "", WithOpenAIBaseURL(server.URL+"/v1/"), WithOpenAIHTTPClient(server.Client()))
	reply, err := backend.Complete(context.Background(), "system", "user", 100)
	require.NoError(t, err)
	assert.Equal(t, "db", reply)

	assert.Equal(t, DefaultOpenAIModel, got.Model)
	assert.Equal(t, 100, got.MaxTokens)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, chatMessage{Role: "system", Content: "system"}, got.Messages[0])
	assert.Equal(t, chatMessage{Role: "user", Content: "user"}, got.Messages[1])
}

func TestOpenAIBackendErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/empty") {
			_, _ = w.Write([]byte(`{"choices":[]}`))
			return
		}
		http.Error(w, "invalid api key", http.StatusUnauthorized)
	}))
	defer server.Close()

	_, err := NewOpenAIBackend("bad", "gpt-4o", WithOpenAIBaseURL(server.URL)).Complete(context.Background(), "s", "u", 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
	assert.Contains(t, err.Error(), "invalid api key")

	_, err = NewOpenAIBackend("key", "gpt-4o", WithOpenAIBaseURL(server.URL+"/empty")).Complete(context.Background(), "s", "u", 10)
	assert.ErrorIs(t, err, ErrEmptyReply)
}

func TestAnthropicBackendComplete(t *testing.T) {
	var got map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "ak-test", r.Header.Get("X-Api-Key"))
		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(body, &got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "msg_01",
			"type": "message",
			"role": "assistant",
			"model": "claude-3-7-sonnet-20250219",
			"content": [{"type": "text", "text": "sql_query"}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 10, "output_tokens": 2}
		}`))
	}))
	defer server.Close()

	backend := NewAnthropicBackend("ak-test", "", option.WithBaseURL(server.URL), option.WithMaxRetries(0))
	reply, err := backend.Complete(context.Background(), "pick a prompt", "show users", 50)
	require.NoError(t, err)
	assert.Equal(t, "sql_query", reply)

	assert.Equal(t, DefaultAnthropicModel, got["model"])
	assert.EqualValues(t, 50, got["max_tokens"])
	system, ok := got["system"].([]any)
	require.True(t, ok)
	require.Len(t, system, 1)
	assert.Equal(t, "pick a prompt", system[0].(map[string]any)["text"])
}

func TestNewBackend(t *testing.T) {
	backend, err := NewBackend(Config{OpenAIAPIKey: "k"})
	require.NoError(t, err)
	assert.IsType(t, &OpenAIBackend{}, backend)

	backend, err = NewBackend(Config{Provider: "Anthropic", AnthropicAPIKey: "k", Model: "claude-x"})
	require.NoError(t, err)
	require.IsType(t, &AnthropicBackend{}, backend)
	assert.Equal(t, "claude-x", string(backend.(*AnthropicBackend).model))

	_, err = NewBackend(Config{Provider: ProviderAnthropic, OpenAIAPIKey: "k"})
	assert.True(t, errors.Is(err, ErrMissingAPIKey))

	_, err = NewBackend(Config{Provider: "gemini"})
	assert.Error(t, err)

	client, err := NewFromConfig(Config{Provider: ProviderOpenAI, OpenAIAPIKey: "k", RequestsPerSecond: 2})
	require.NoError(t, err)
	assert.NotNil(t, client.limiter)
	assert.Equal(t, DefaultTimeout, client.timeout)
}
