package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/Veraticus/shopkeep/internal/common"
)

// contentGenerator is the subset of *genai.GenerativeModel the client uses.
type contentGenerator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// geminiClient implements the Client interface for the Gemini API.
type geminiClient struct {
	client   *genai.Client
	newModel func(system string) contentGenerator
	model    string
}

// newGeminiClient creates a new Gemini API client.
func newGeminiClient(ctx context.Context, cfg Config) (*geminiClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: Gemini API key is required", common.ErrMissingConfig)
	}

	name := cfg.Model
	if name == "" {
		name = "gemini-1.5-flash"
	}

	opts := []option.ClientOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithEndpoint(cfg.BaseURL))
	}

	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	temperature := float32(temperatureOr(cfg.Temperature))
	maxTokens := int32(maxTokensOr(cfg.MaxTokens)) //nolint:gosec // bounded by config

	return &geminiClient{
		client: client,
		model:  name,
		newModel: func(system string) contentGenerator {
			m := client.GenerativeModel(name)
			m.SetTemperature(temperature)
			m.SetMaxOutputTokens(maxTokens)
			if system != "" {
				m.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
			}
			return m
		},
	}, nil
}

// Complete sends a generate-content request to Gemini.
func (c *geminiClient) Complete(ctx context.Context, req Request) (Response, error) {
	resp, err := c.newModel(req.System).GenerateContent(ctx, genai.Text(req.Prompt))
	if err != nil {
		return Response{}, classifyGeminiError(ctx, err)
	}

	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return Response{}, fmt.Errorf("no content received from Gemini")
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			text.WriteString(string(txt))
		}
	}
	if text.Len() == 0 {
		return Response{}, fmt.Errorf("no text content received from Gemini")
	}

	return Response{Content: text.String(), Model: c.model}, nil
}

// Close releases the underlying connection.
func (c *geminiClient) Close() error {
	if c.client == nil {
		return nil
	}
	return c.client.Close()
}

func classifyGeminiError(ctx context.Context, err error) error {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		return fmt.Errorf("gemini request canceled: %w", err)
	}
	switch status.Code(err) {
	case codes.ResourceExhausted:
		return fmt.Errorf("%w: gemini: %w", common.ErrRateLimit, err)
	case codes.Unavailable, codes.Internal, codes.DeadlineExceeded:
		return &common.RetryableError{Err: fmt.Errorf("gemini API error: %w", err), Retryable: true}
	default:
		return fmt.Errorf("gemini API error: %w", err)
	}
}
