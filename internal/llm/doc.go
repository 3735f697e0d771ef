// Package llm provides text completion clients for the advisory stages.
// It supports OpenAI, Anthropic and Gemini, with retry, rate limiting and
// JSON extraction from model replies.
package llm
