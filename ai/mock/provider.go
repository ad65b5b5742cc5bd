package mock

import "github.com/guidestone/guidestone/ai"

// MockProvider aggregates mock embedder and completer instances.
type MockProvider struct {
	embedder  *MockEmbedder
	completer *MockCompleter
}

// NewMockProvider creates a provider with default deterministic services.
func NewMockProvider() *MockProvider {
	return &MockProvider{
		embedder:  NewMockEmbedder(),
		completer: NewMockCompleter(),
	}
}

// NewMockProviderWithServices creates a provider with custom mock services.
func NewMockProviderWithServices(embedder *MockEmbedder, completer *MockCompleter) *MockProvider {
	return &MockProvider{embedder: embedder, completer: completer}
}

// Embedder returns the mock embedder.
func (p *MockProvider) Embedder() ai.Embedder {
	return p.embedder
}

// Completer returns the mock completer.
func (p *MockProvider) Completer() ai.Completer {
	return p.completer
}

// Close is a no-op for the mock provider.
func (p *MockProvider) Close() error {
	return nil
}

// MockEmbedderOf returns the concrete embedder for test assertions.
func (p *MockProvider) MockEmbedderOf() *MockEmbedder {
	return p.embedder
}

// MockCompleterOf returns the concrete completer for test assertions.
func (p *MockProvider) MockCompleterOf() *MockCompleter {
	return p.completer
}
