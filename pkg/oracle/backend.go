package oracle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go/option"
)

// Backend is the single capability every completion service provides.
type Backend interface {
	Complete(ctx context.Context, systemPrompt, userMessage string, maxTokens int) (string, error)
}

// BackendFunc adapts a function to Backend.
type BackendFunc func(ctx context.Context, systemPrompt, userMessage string, maxTokens int) (string, error)

func (f BackendFunc) Complete(ctx context.Context, systemPrompt, userMessage string, maxTokens int) (string, error) {
	return f(ctx, systemPrompt, userMessage, maxTokens)
}

// Provider selects the completion backend.
type Provider string

const (
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
)

const (
	DefaultOpenAIModel    = "gpt-4o"
	DefaultAnthropicModel = "claude-3-7-sonnet-20250219"
)

var (
	// ErrEmptyReply is returned when a backend answers without any text.
	ErrEmptyReply = errors.New("oracle: empty completion")
	// ErrRateLimited is returned when the client-side request budget is spent.
	ErrRateLimited = errors.New("oracle: rate limit exceeded")
	// ErrMissingAPIKey is returned when the chosen provider has no key.
	ErrMissingAPIKey = errors.New("oracle: api key missing")
)

// Config selects and configures exactly one backend. The choice is made once,
// at construction.
type Config struct {
	Provider        Provider
	OpenAIAPIKey    string
	AnthropicAPIKey string
	// Model overrides the provider's default model.
	Model string
	// BaseURL overrides the provider endpoint, mostly for tests and proxies.
	BaseURL    string
	HTTPClient *http.Client
	// RequestsPerSecond caps oracle requests; zero disables the limit.
	RequestsPerSecond int
	// Timeout bounds each completion request. Defaults to 60 seconds.
	Timeout time.Duration
	Logger  *slog.Logger
}

// NewBackend builds the backend named by cfg.Provider.
func NewBackend(cfg Config) (Backend, error) {
	switch Provider(strings.ToLower(string(cfg.Provider))) {
	case ProviderOpenAI, "":
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("%w: openai", ErrMissingAPIKey)
		}
		var opts []OpenAIOption
		if cfg.BaseURL != "" {
			opts = append(opts, WithOpenAIBaseURL(cfg.BaseURL))
		}
		if cfg.HTTPClient != nil {
			opts = append(opts, WithOpenAIHTTPClient(cfg.HTTPClient))
		}
		return NewOpenAIBackend(cfg.OpenAIAPIKey, cfg.Model, opts...), nil
	case ProviderAnthropic:
		if cfg.AnthropicAPIKey == "" {
			return nil, fmt.Errorf("%w: anthropic", ErrMissingAPIKey)
		}
		var opts []option.RequestOption
		if cfg.BaseURL != "" {
			opts = append(opts, option.WithBaseURL(cfg.BaseURL))
		}
		if cfg.HTTPClient != nil {
			opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
		}
		return NewAnthropicBackend(cfg.AnthropicAPIKey, cfg.Model, opts...), nil
	default:
		return nil, fmt.Errorf("oracle: unknown provider %q", cfg.Provider)
	}
}
