package llm

import (
	"context"
	"time"
)

// Client defines the interface for LLM providers.
type Client interface {
	Complete(ctx context.Context, req Request) (Response, error)
}

// Request is a single-turn completion request.
type Request struct {
	System string
	Prompt string
}

// Response contains the model's reply.
type Response struct {
	Content string
	Model   string
}

// Config holds provider settings.
type Config struct {
	Provider    string
	APIKey      string
	Model       string
	BaseURL     string // Overrides the provider endpoint; used by tests and proxies
	MaxRetries  int
	RetryDelay  time.Duration
	Timeout     time.Duration
	RateLimit   int // Requests per minute
	Temperature float64
	MaxTokens   int
}

// Provider names.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
)

const (
	defaultTemperature = 0.3
	defaultMaxTokens   = 4096
	defaultTimeout     = 60 * time.Second
)
