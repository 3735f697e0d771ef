package llm

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/Veraticus/shopkeep/internal/common"
)

// NewProvider creates a raw provider client based on the configuration.
func NewProvider(ctx context.Context, cfg Config) (Client, error) {
	switch strings.ToLower(cfg.Provider) {
	case ProviderOpenAI:
		return newOpenAIClient(cfg)
	case ProviderAnthropic:
		return newAnthropicClient(cfg)
	case ProviderGemini, "":
		return newGeminiClient(ctx, cfg)
	default:
		return nil, fmt.Errorf("%w: unsupported LLM provider: %s", common.ErrInvalidConfig, cfg.Provider)
	}
}

// RetryingClient wraps a provider with rate limiting and retry with backoff.
type RetryingClient struct {
	provider  Client
	limiter   *common.RateLimiter
	logger    *slog.Logger
	retryOpts common.RetryOptions
}

// NewClient creates a provider client for cfg wrapped with rate limiting and
// retries.
func NewClient(ctx context.Context, cfg Config, logger *slog.Logger) (*RetryingClient, error) {
	provider, err := NewProvider(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return Wrap(provider, cfg, logger), nil
}

// Wrap adds rate limiting and retries to an existing client.
func Wrap(provider Client, cfg Config, logger *slog.Logger) *RetryingClient {
	retryOpts := common.RetryOptions{
		MaxAttempts:  cfg.MaxRetries,
		InitialDelay: cfg.RetryDelay,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}

	if retryOpts.MaxAttempts == 0 {
		retryOpts.MaxAttempts = 3
	}
	if retryOpts.InitialDelay == 0 {
		retryOpts.InitialDelay = time.Second
	}
	if retryOpts.MaxDelay < retryOpts.InitialDelay {
		retryOpts.MaxDelay = retryOpts.InitialDelay
	}

	return &RetryingClient{
		provider:  provider,
		limiter:   common.NewRateLimiter(cfg.RateLimit, 0),
		logger:    common.OrDefault(logger),
		retryOpts: retryOpts,
	}
}

// Complete waits for a rate limit token and calls the provider, retrying
// transient failures.
func (c *RetryingClient) Complete(ctx context.Context, req Request) (Response, error) {
	var resp Response

	err := common.WithRetry(ctx, func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return &common.RetryableError{Err: err, Retryable: false}
		}

		var callErr error
		resp, callErr = c.provider.Complete(ctx, req)
		if callErr != nil && !common.IsRetryable(callErr) {
			return &common.RetryableError{Err: callErr, Retryable: false}
		}
		return callErr
	}, c.retryOpts)
	if err != nil {
		c.logger.Debug("completion failed", "error", err)
		return Response{}, err
	}

	return resp, nil
}

// Close stops the rate limiter and closes the provider when it holds a
// connection.
func (c *RetryingClient) Close() error {
	c.limiter.Close()
	if closer, ok := c.provider.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
