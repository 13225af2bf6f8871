package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"topic2manim/internal/services"
)

const defaultHTTPTimeout = 120 * time.Second

// Request is a single JSON-producing completion.
type Request struct {
	System      string
	Prompt      string
	Temperature float64
	MaxTokens   int
	// SchemaName and Schema request structured output from providers and
	// models that support it. Others rely on the prompt alone.
	SchemaName string
	Schema     any
}

// Client is a provider-neutral JSON completion client.
type Client interface {
	Provider() Provider
	Model() string
	CompleteJSON(ctx context.Context, req Request) (string, error)
}

// Config captures credentials and models for every provider.
type Config struct {
	OpenAIKey      string
	OpenAIModel    string
	OpenAIBaseURL  string
	ClaudeKey      string
	ClaudeModel    string
	ClaudeBaseURL  string
	TimeoutSeconds int
}

// Option customizes the clients built by a Set.
type Option func(*Set)

// WithHTTPClient overrides the HTTP client handed to the provider SDKs.
func WithHTTPClient(client *http.Client) Option {
	return func(s *Set) {
		if client != nil {
			s.httpClient = client
		}
	}
}

// WithMaxRetries overrides the SDK retry count. Negative values keep the SDK default.
func WithMaxRetries(attempts int) Option {
	return func(s *Set) {
		s.maxRetries = attempts
	}
}

// Set builds and caches one client per provider.
type Set struct {
	cfg        Config
	httpClient *http.Client
	maxRetries int

	mu      sync.Mutex
	clients map[Provider]Client
}

// NewSet constructs a client set from cfg.
func NewSet(cfg Config, opts ...Option) *Set {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	s := &Set{
		cfg: Config{
			OpenAIKey:      strings.TrimSpace(cfg.OpenAIKey),
			OpenAIModel:    strings.TrimSpace(cfg.OpenAIModel),
			OpenAIBaseURL:  strings.TrimSpace(cfg.OpenAIBaseURL),
			ClaudeKey:      strings.TrimSpace(cfg.ClaudeKey),
			ClaudeModel:    strings.TrimSpace(cfg.ClaudeModel),
			ClaudeBaseURL:  strings.TrimSpace(cfg.ClaudeBaseURL),
			TimeoutSeconds: cfg.TimeoutSeconds,
		},
		httpClient: &http.Client{Timeout: timeout},
		maxRetries: -1,
		clients:    make(map[Provider]Client),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Resolve picks a provider for pref among those with credentials.
func (s *Set) Resolve(pref Preference) (Provider, error) {
	return Resolve(pref, s.cfg.OpenAIKey != "", s.cfg.ClaudeKey != "")
}

// Available lists providers with credentials, claude first.
func (s *Set) Available() []Provider {
	var out []Provider
	if s.cfg.ClaudeKey != "" {
		out = append(out, ProviderClaude)
	}
	if s.cfg.OpenAIKey != "" {
		out = append(out, ProviderOpenAI)
	}
	return out
}

// Client returns the cached client for provider, building it on first use.
func (s *Set) Client(provider Provider) (Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.clients[provider]; ok {
		return c, nil
	}
	var c Client
	switch provider {
	case ProviderOpenAI:
		if s.cfg.OpenAIKey == "" {
			return nil, services.Wrap(services.ErrConfiguration, "llm", "build client", "OPENAI_API_KEY is not configured", nil)
		}
		c = newOpenAIClient(s.cfg.OpenAIKey, s.cfg.OpenAIModel, s.cfg.OpenAIBaseURL, s.httpClient, s.maxRetries)
	case ProviderClaude:
		if s.cfg.ClaudeKey == "" {
			return nil, services.Wrap(services.ErrConfiguration, "llm", "build client", "CLAUDE_API_KEY is not configured", nil)
		}
		c = newClaudeClient(s.cfg.ClaudeKey, s.cfg.ClaudeModel, s.cfg.ClaudeBaseURL, s.httpClient, s.maxRetries)
	default:
		return nil, services.Wrap(services.ErrValidation, "llm", "build client", fmt.Sprintf("unknown provider %q", provider), nil)
	}
	s.clients[provider] = c
	return c, nil
}

type emptyContentError struct {
	Op           string
	FinishReason string
}

func (e *emptyContentError) Error() string {
	return fmt.Sprintf("%s: empty content (finish_reason=%q)", e.Op, e.FinishReason)
}

func validateRequest(op string, req Request) error {
	if strings.TrimSpace(req.System) == "" {
		return fmt.Errorf("%s: system prompt required", op)
	}
	if strings.TrimSpace(req.Prompt) == "" {
		return fmt.Errorf("%s: user prompt required", op)
	}
	return nil
}

func maxTokens(req Request) int64 {
	if req.MaxTokens > 0 {
		return int64(req.MaxTokens)
	}
	return 4000
}
