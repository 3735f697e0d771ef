// Package search runs web searches for the research stage.
package search

import (
	"context"
	"fmt"
	"strings"
)

// Client defines the interface for web search providers.
type Client interface {
	Search(ctx context.Context, q Query) (Response, error)
}

// Query is a single search request.
type Query struct {
	Text       string
	Depth      string // "basic" or "advanced"
	MaxResults int
}

// key identifies a query for caching.
func (q Query) key() string {
	return fmt.Sprintf("%s|%s|%d", strings.ToLower(strings.TrimSpace(q.Text)), q.Depth, q.MaxResults)
}

// Response is a provider's answer to a query.
type Response struct {
	Query   string   `json:"query"`
	Answer  string   `json:"answer"`
	Results []Result `json:"results"`
}

// Result is one web page returned by a search.
type Result struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

// Search depths.
const (
	DepthBasic    = "basic"
	DepthAdvanced = "advanced"
)
