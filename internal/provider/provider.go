package provider

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/claude"
	"github.com/cloudwego/eino-ext/components/model/ollama"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/MiBe1991/sentinex/internal/config"
)

// Provider names accepted by llm.provider.
const (
	NameMock   = "mock"
	NameOpenAI = "openai"
	NameClaude = "claude"
	NameOllama = "ollama"
)

const (
	defaultOpenAIBaseURL = "https://api.openai.com/v1"
	defaultOllamaBaseURL = "http://localhost:11434"
)

//go:generate mockgen -destination mocks/mock_provider.go -package mocks github.com/MiBe1991/sentinex/internal/provider Provider

// Provider produces an untrusted action plan for a prompt. The returned
// value is validated by the caller before anything acts on it.
type Provider interface {
	Name() string
	Generate(ctx context.Context, req Request) (any, error)
}

// Request is the input to a provider.
type Request struct {
	Prompt string
}

type options struct {
	lookupEnv func(string) (string, bool)
	toolInfos []*schema.ToolInfo
}

// Option configures New.
type Option func(*options)

// WithLookupEnv replaces os.LookupEnv for API key resolution.
func WithLookupEnv(fn func(string) (string, bool)) Option {
	return func(o *options) {
		if fn != nil {
			o.lookupEnv = fn
		}
	}
}

// WithToolInfos describes the available tools to remote models.
func WithToolInfos(infos []*schema.ToolInfo) Option {
	return func(o *options) {
		o.toolInfos = infos
	}
}

// New builds the provider selected by cfg. Remote providers retry
// transient failures and, with fallbackToMock, fall back to the mock.
func New(cfg config.LLMConfig, opts ...Option) (Provider, error) {
	o := options{lookupEnv: os.LookupEnv}
	for _, opt := range opts {
		opt(&o)
	}

	name := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if name == "" || name == NameMock {
		return NewMock(), nil
	}

	connect, err := connector(name, cfg, o.lookupEnv)
	if err != nil {
		return nil, err
	}
	systemPrompt, err := BuildSystemPrompt(cfg.SystemPrompt, o.toolInfos)
	if err != nil {
		return nil, err
	}

	remote := NewRetrying(
		newLazyChatModel(name, connect, ChatModelOptions{
			SystemPrompt: systemPrompt,
			Timeout:      time.Duration(cfg.TimeoutMs) * time.Millisecond,
		}),
		cfg.MaxRetries,
		time.Duration(cfg.RetryDelayMs)*time.Millisecond,
	)
	if cfg.FallbackToMock {
		return NewFallback(remote, NewMock()), nil
	}
	return remote, nil
}

func connector(name string, cfg config.LLMConfig, lookupEnv func(string) (string, bool)) (connectFunc, error) {
	switch name {
	case NameOpenAI:
		return func(ctx context.Context) (model.BaseChatModel, error) {
			apiKey, err := resolveAPIKey(cfg.APIKeyEnv, lookupEnv)
			if err != nil {
				return nil, err
			}
			return newOpenAIModel(ctx, cfg, apiKey)
		}, nil
	case NameClaude:
		return func(ctx context.Context) (model.BaseChatModel, error) {
			apiKey, err := resolveAPIKey(cfg.APIKeyEnv, lookupEnv)
			if err != nil {
				return nil, err
			}
			return newClaudeModel(ctx, cfg, apiKey)
		}, nil
	case NameOllama:
		return func(ctx context.Context) (model.BaseChatModel, error) {
			return newOllamaModel(ctx, cfg)
		}, nil
	default:
		return nil, fmt.Errorf("unsupported llm provider %q", cfg.Provider)
	}
}

func resolveAPIKey(env string, lookupEnv func(string) (string, bool)) (string, error) {
	env = strings.TrimSpace(env)
	if env == "" {
		return "", fmt.Errorf("missing API key: llm.apiKeyEnv is not set")
	}
	key, ok := lookupEnv(env)
	if !ok || strings.TrimSpace(key) == "" {
		return "", fmt.Errorf("missing API key: set environment variable %s", env)
	}
	return strings.TrimSpace(key), nil
}

func newOpenAIModel(ctx context.Context, cfg config.LLMConfig, apiKey string) (model.BaseChatModel, error) {
	mc := &openai.ChatModelConfig{
		Model:       cfg.Model,
		APIKey:      apiKey,
		BaseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		Temperature: toFloat32Ptr(0),
		MaxTokens:   toIntPtr(cfg.MaxTokens),
	}
	if mc.BaseURL == "" {
		mc.BaseURL = defaultOpenAIBaseURL
	}
	m, err := openai.NewChatModel(ctx, mc)
	if err != nil {
		return nil, fmt.Errorf("create openai model: %w", err)
	}
	return m, nil
}

func newClaudeModel(ctx context.Context, cfg config.LLMConfig, apiKey string) (model.BaseChatModel, error) {
	mc := &claude.Config{
		Model:       cfg.Model,
		APIKey:      apiKey,
		MaxTokens:   cfg.MaxTokens,
		Temperature: toFloat32Ptr(0),
	}
	if baseURL := remoteBaseURL(cfg.BaseURL); baseURL != "" {
		mc.BaseURL = &baseURL
	}
	m, err := claude.NewChatModel(ctx, mc)
	if err != nil {
		return nil, fmt.Errorf("create claude model: %w", err)
	}
	return m, nil
}

func newOllamaModel(ctx context.Context, cfg config.LLMConfig) (model.BaseChatModel, error) {
	baseURL := remoteBaseURL(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultOllamaBaseURL
	}
	m, err := ollama.NewChatModel(ctx, &ollama.ChatModelConfig{
		BaseURL: baseURL,
		Model:   cfg.Model,
	})
	if err != nil {
		return nil, fmt.Errorf("create ollama model: %w", err)
	}
	return m, nil
}

// remoteBaseURL drops the OpenAI default so that other backends use their
// own endpoint unless one was configured explicitly.
func remoteBaseURL(raw string) string {
	raw = strings.TrimRight(strings.TrimSpace(raw), "/")
	if raw == defaultOpenAIBaseURL {
		return ""
	}
	return raw
}

func toFloat32Ptr(f float64) *float32 {
	v := float32(f)
	return &v
}

func toIntPtr(i int) *int {
	return &i
}
