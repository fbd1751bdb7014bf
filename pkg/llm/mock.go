package llm

import (
	"context"
	"sync"
)

// MockCompleter is a configurable Completer for tests.
// Set CompleteFunc to control behavior; a nil func returns Response.
type MockCompleter struct {
	// CompleteFunc is called when Complete is invoked.
	CompleteFunc func(ctx context.Context, systemPrompt, userPrompt string) (string, error)

	// Response is returned when CompleteFunc is nil.
	Response string

	// Model is returned by GetModel. Defaults to "mock-model".
	Model string

	mu           sync.Mutex
	calls        int
	systemPrompt []string
	userPrompt   []string
}

// NewMockCompleter creates a mock that always answers with response.
func NewMockCompleter(response string) *MockCompleter {
	return &MockCompleter{
		Response: response,
		Model:    "mock-model",
	}
}

// Complete implements Completer and records the prompts it was given.
func (m *MockCompleter) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	m.mu.Lock()
	m.calls++
	m.systemPrompt = append(m.systemPrompt, systemPrompt)
	m.userPrompt = append(m.userPrompt, userPrompt)
	fn := m.CompleteFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, systemPrompt, userPrompt)
	}
	return m.Response, nil
}

// GetModel implements Completer.
func (m *MockCompleter) GetModel() string {
	if m.Model == "" {
		return "mock-model"
	}
	return m.Model
}

// Calls returns how many times Complete was invoked.
func (m *MockCompleter) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// SystemPrompts returns the system prompts seen so far, in call order.
func (m *MockCompleter) SystemPrompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.systemPrompt...)
}

// UserPrompts returns the user prompts seen so far, in call order.
func (m *MockCompleter) UserPrompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.userPrompt...)
}
