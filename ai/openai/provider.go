// Package openai implements the ai capabilities against any
// OpenAI-compatible endpoint via langchaingo.
package openai

import (
	"fmt"
	"log/slog"

	"github.com/guidestone/guidestone/ai"
)

// Config holds connection settings for an OpenAI-compatible service.
type Config struct {
	Host           string
	Token          string
	EmbeddingModel string
	CompletionModel string
	Temperature    float64
	MaxTokens      int

	// RequestsPerSecond limits completion calls; zero disables limiting.
	RequestsPerSecond float64
}

// Validate checks the config and fills defaults.
func (c *Config) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("host must not be empty")
	}
	if c.Token == "" {
		// Local OpenAI-compatible services accept any token.
		c.Token = "none"
	}
	if c.EmbeddingModel == "" {
		return fmt.Errorf("embedding model must not be empty")
	}
	if c.CompletionModel == "" {
		return fmt.Errorf("completion model must not be empty")
	}
	if c.Temperature <= 0 {
		c.Temperature = 0.1
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = 2000
	}
	return nil
}

// Provider implements ai.Provider using OpenAI-compatible services.
type Provider struct {
	config    *Config
	embedder  *Embedder
	completer *Completer
	logger    *slog.Logger
}

// NewProvider creates a provider after validating the config.
func NewProvider(config *Config) (ai.Provider, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	embedder, err := newEmbedder(config)
	if err != nil {
		return nil, err
	}

	completer, err := newCompleter(config)
	if err != nil {
		return nil, err
	}

	return &Provider{
		config:    config,
		embedder:  embedder,
		completer: completer,
		logger:    slog.Default().With("component", "openai-provider"),
	}, nil
}

// Embedder returns the text embedding service.
func (p *Provider) Embedder() ai.Embedder {
	return p.embedder
}

// Completer returns the completion service.
func (p *Provider) Completer() ai.Completer {
	return p.completer
}

// Close releases resources held by the provider.
func (p *Provider) Close() error {
	p.logger.Debug("closing OpenAI provider")
	return nil
}
