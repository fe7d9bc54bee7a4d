// Package llm talks to the AI gateway used to categorize report text.
// Two providers are supported: any OpenAI-compatible chat completions
// endpoint and Anthropic messages.
package llm

import (
	"context"
)

// LLMClient defines the interface for LLM operations.
// Use this interface for dependency injection to enable mocking in tests.
type LLMClient interface {
	// GenerateResponse sends one system + user message pair and returns the
	// assistant text. Failures are returned as *Error carrying the gateway's
	// HTTP status when known.
	GenerateResponse(ctx context.Context, prompt string, systemMessage string, temperature float64) (string, error)

	// GetModel returns the configured model name.
	GetModel() string

	// GetEndpoint returns the configured endpoint.
	GetEndpoint() string
}

// Ensure clients implement LLMClient at compile time.
var (
	_ LLMClient = (*Client)(nil)
	_ LLMClient = (*AnthropicClient)(nil)
	_ LLMClient = (*InstrumentedClient)(nil)
)
