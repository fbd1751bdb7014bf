// Package llm provides completion clients for OpenAI-compatible endpoints and
// the Anthropic Messages API behind a single Completer interface.
package llm

import (
	"context"
)

// Completer turns a system prompt and a user prompt into text. Output is
// untrusted: callers sanitize and validate it before acting on it.
// Use this interface for dependency injection to enable mocking in tests.
type Completer interface {
	// Complete performs one non-streaming completion request.
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)

	// GetModel returns the configured model name.
	GetModel() string
}

// Ensure implementations satisfy Completer at compile time.
var (
	_ Completer = (*OpenAIClient)(nil)
	_ Completer = (*AnthropicClient)(nil)
	_ Completer = (*RetryingCompleter)(nil)
	_ Completer = (*MockCompleter)(nil)
)
