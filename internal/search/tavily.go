package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/Veraticus/shopkeep/internal/common"
)

const tavilyBaseURL = "https://api.tavily.com"

// TavilyConfig configures the Tavily search client.
type TavilyConfig struct {
	APIKey     string
	BaseURL    string
	Depth      string
	Timeout    time.Duration
	MaxResults int
}

// TavilyClient handles Tavily search API operations.
type TavilyClient struct {
	client     *resty.Client
	depth      string
	maxResults int
}

// NewTavilyClient creates a new Tavily client.
func NewTavilyClient(cfg TavilyConfig) (*TavilyClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: Tavily API key is required", common.ErrMissingConfig)
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = tavilyBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	depth := cfg.Depth
	if depth == "" {
		depth = DepthAdvanced
	}
	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 5
	}

	client := resty.New()
	client.SetBaseURL(baseURL)
	client.SetTimeout(timeout)
	client.SetAuthToken(cfg.APIKey)
	client.SetHeader("Content-Type", "application/json")

	return &TavilyClient{
		client:     client,
		depth:      depth,
		maxResults: maxResults,
	}, nil
}

type tavilyRequest struct {
	Query             string `json:"query"`
	SearchDepth       string `json:"search_depth"`
	MaxResults        int    `json:"max_results"`
	IncludeAnswer     bool   `json:"include_answer"`
	IncludeRawContent bool   `json:"include_raw_content"`
}

// Search executes a web search. Zero fields on q fall back to the client's
// configured depth and result count.
func (tc *TavilyClient) Search(ctx context.Context, q Query) (Response, error) {
	if q.Text == "" {
		return Response{}, fmt.Errorf("no search query provided")
	}
	if q.Depth == "" {
		q.Depth = tc.depth
	}
	if q.MaxResults <= 0 {
		q.MaxResults = tc.maxResults
	}

	resp, err := tc.client.R().
		SetContext(ctx).
		SetBody(tavilyRequest{
			Query:         q.Text,
			SearchDepth:   q.Depth,
			MaxResults:    q.MaxResults,
			IncludeAnswer: true,
		}).
		Post("/search")
	if err != nil {
		return Response{}, fmt.Errorf("failed to search %q: %w", q.Text, err)
	}

	switch {
	case resp.StatusCode() == http.StatusTooManyRequests:
		return Response{}, fmt.Errorf("%w: tavily: %s", common.ErrRateLimit, resp.String())
	case resp.StatusCode() != http.StatusOK:
		return Response{}, fmt.Errorf("tavily API error %d: %s", resp.StatusCode(), resp.String())
	}

	var out Response
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return Response{}, fmt.Errorf("failed to parse search response: %w", err)
	}
	if out.Query == "" {
		out.Query = q.Text
	}

	return out, nil
}
