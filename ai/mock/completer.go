package mock

import (
	"context"
	"sync"
)

// MockCompleter is a test double for ai.Completer. Inject CompleteFunc for
// custom behavior; the default returns a minimal valid synthesis document.
type MockCompleter struct {
	CompleteFunc func(ctx context.Context, system, prompt string) (string, error)

	mu      sync.Mutex
	prompts []string
}

// NewMockCompleter creates a mock completer with default behavior.
func NewMockCompleter() *MockCompleter {
	return &MockCompleter{}
}

// Complete records the prompt and returns the injected or default response.
func (m *MockCompleter) Complete(ctx context.Context, system, prompt string) (string, error) {
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	m.mu.Unlock()

	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, system, prompt)
	}

	return `{
		"answer": "Based on the retrieved guideline content, see the cited sections.",
		"key_points": [],
		"source_citations": [],
		"conflicts_identified": [],
		"confidence_level": 0.7,
		"limitations": [],
		"additional_context": ""
	}`, nil
}

// Prompts returns all prompts received so far.
func (m *MockCompleter) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.prompts))
	copy(out, m.prompts)
	return out
}
