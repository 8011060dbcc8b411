// Package settings resolves the router's process configuration from the
// environment and optional .env files.
package settings

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"

	"github.com/vikashloomba/mcp-query-router/pkg/mcpmgr"
	"github.com/vikashloomba/mcp-query-router/pkg/oracle"
)

const (
	EnvConfigPath       = "MCP_CONFIG_PATH"
	EnvPreference       = "LLM_PREFERENCE"
	EnvOpenAIAPIKey     = "OPENAI_API_KEY"
	EnvAnthropicAPIKey  = "ANTHROPIC_API_KEY"
	EnvModel            = "LLM_MODEL"
	EnvOpenAIBaseURL    = "OPENAI_BASE_URL"
	EnvAnthropicBaseURL = "ANTHROPIC_BASE_URL"
	EnvRateLimit        = "LLM_RATE_LIMIT"
	EnvLogLevel         = "MCP_ROUTER_LOG_LEVEL"
)

// Settings is the resolved process configuration.
type Settings struct {
	ConfigPath       string
	Preference       oracle.Provider
	OpenAIAPIKey     string
	AnthropicAPIKey  string
	Model            string
	OpenAIBaseURL    string
	AnthropicBaseURL string
	// RateLimit caps oracle requests per second; zero means unlimited.
	RateLimit int
	LogLevel  slog.Level
}

// Load reads the given .env files, then the process environment. Variables
// already set in the environment take precedence over file values. Missing
// files are skipped.
func Load(envFiles ...string) (*Settings, error) {
	fileVars := map[string]string{}
	for _, path := range envFiles {
		vars, err := godotenv.Read(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("settings: read %s: %w", path, err)
		}
		for k, v := range vars {
			if _, seen := fileVars[k]; !seen {
				fileVars[k] = v
			}
		}
	}
	return FromLookup(func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := fileVars[key]
		return v, ok
	})
}

// FromLookup resolves settings through lookup.
func FromLookup(lookup func(string) (string, bool)) (*Settings, error) {
	get := func(key string) string {
		v, _ := lookup(key)
		return strings.TrimSpace(v)
	}

	s := &Settings{
		ConfigPath:       get(EnvConfigPath),
		Preference:       oracle.Provider(strings.ToLower(get(EnvPreference))),
		OpenAIAPIKey:     get(EnvOpenAIAPIKey),
		AnthropicAPIKey:  get(EnvAnthropicAPIKey),
		Model:            get(EnvModel),
		OpenAIBaseURL:    get(EnvOpenAIBaseURL),
		AnthropicBaseURL: get(EnvAnthropicBaseURL),
		LogLevel:         slog.LevelInfo,
	}
	if s.ConfigPath == "" {
		s.ConfigPath = mcpmgr.DefaultConfigPath
	}
	switch s.Preference {
	case "":
		s.Preference = oracle.ProviderOpenAI
	case oracle.ProviderOpenAI, oracle.ProviderAnthropic:
	default:
		return nil, fmt.Errorf("settings: %s must be %q or %q, got %q", EnvPreference, oracle.ProviderOpenAI, oracle.ProviderAnthropic, s.Preference)
	}
	if raw := get(EnvRateLimit); raw != "" {
		n, err := cast.ToIntE(raw)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("settings: %s must be a non-negative integer, got %q", EnvRateLimit, raw)
		}
		s.RateLimit = n
	}
	if raw := get(EnvLogLevel); raw != "" {
		if err := s.LogLevel.UnmarshalText([]byte(raw)); err != nil {
			return nil, fmt.Errorf("settings: %s: %w", EnvLogLevel, err)
		}
	}
	return s, nil
}

// OracleConfig returns the oracle configuration for the preferred backend.
func (s *Settings) OracleConfig(logger *slog.Logger) oracle.Config {
	cfg := oracle.Config{
		Provider:          s.Preference,
		OpenAIAPIKey:      s.OpenAIAPIKey,
		AnthropicAPIKey:   s.AnthropicAPIKey,
		Model:             s.Model,
		RequestsPerSecond: s.RateLimit,
		Logger:            logger,
	}
	if s.Preference == oracle.ProviderAnthropic {
		cfg.BaseURL = s.AnthropicBaseURL
	} else {
		cfg.BaseURL = s.OpenAIBaseURL
	}
	return cfg
}

// NewLogger returns a text logger writing to w at the configured level.
func (s *Settings) NewLogger(w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: s.LogLevel}))
}
