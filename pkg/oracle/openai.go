package oracle

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/vikashloomba/mcp-query-router/internal/json"
)

// HTTPDoer is implemented by *http.Client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

type openAIConfig struct {
	httpClient HTTPDoer
	baseURL    string
}

// OpenAIOption configures a new OpenAIBackend.
type OpenAIOption func(*openAIConfig)

// WithOpenAIHTTPClient overrides the HTTP client used to reach the API.
func WithOpenAIHTTPClient(client HTTPDoer) OpenAIOption {
	return func(cfg *openAIConfig) {
		cfg.httpClient = client
	}
}

// WithOpenAIBaseURL points the backend at a compatible endpoint. The path
// "/chat/completions" is appended.
func WithOpenAIBaseURL(baseURL string) OpenAIOption {
	return func(cfg *openAIConfig) {
		if strings.TrimSpace(baseURL) != "" {
			cfg.baseURL = baseURL
		}
	}
}

// OpenAIBackend completes prompts with the Chat Completions endpoint.
type OpenAIBackend struct {
	httpClient HTTPDoer
	apiKey     string
	model      string
	endpoint   string
}

// NewOpenAIBackend builds a backend authenticated with apiKey. An empty model
// selects DefaultOpenAIModel.
func NewOpenAIBackend(apiKey, model string, opts ...OpenAIOption) *OpenAIBackend {
	if model == "" {
		model = DefaultOpenAIModel
	}
	cfg := &openAIConfig{
		httpClient: http.DefaultClient,
		baseURL:    "https://api.openai.com/v1",
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.httpClient == nil {
		cfg.httpClient = http.DefaultClient
	}
	return &OpenAIBackend{
		httpClient: cfg.httpClient,
		apiKey:     apiKey,
		model:      model,
		endpoint:   strings.TrimRight(cfg.baseURL, "/") + "/chat/completions",
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (b *OpenAIBackend) Complete(ctx context.Context, systemPrompt, userMessage string, maxTokens int) (string, error) {
	encoded, err := json.Marshal(chatRequest{
		Model: b.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userMessage},
		},
		MaxTokens: maxTokens,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.endpoint, bytes.NewReader(encoded))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+b.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("oracle: openai request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("oracle: openai request failed (%d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var decoded chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("oracle: decode openai response: %w", err)
	}
	if len(decoded.Choices) == 0 || decoded.Choices[0].Message.Content == "" {
		return "", ErrEmptyReply
	}
	return decoded.Choices[0].Message.Content, nil
}
