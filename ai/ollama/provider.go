package ollama

import (
	"log/slog"

	"github.com/poiesic/athena/ai"
)

// Provider implements ai.Provider for a local Ollama server.
type Provider struct {
	config   *ai.Config
	embedder ai.Embedder
	logger   *slog.Logger
}

// NewProvider creates a new local provider.
//
// Returns ai.Provider interface to enforce abstraction.
func NewProvider(config *ai.Config) (ai.Provider, error) {
	embedder, err := newEmbedder(config, nil)
	if err != nil {
		return nil, err
	}

	return &Provider{
		config:   config,
		embedder: ai.NewRateLimitedEmbedder(embedder, config.RequestsPerSecond),
		logger:   slog.Default().With("component", "ollama-provider"),
	}, nil
}

// Embedder returns the text embedding service.
func (p *Provider) Embedder() ai.Embedder {
	return p.embedder
}

func (p *Provider) Name() string  { return providerName }
func (p *Provider) Model() string { return p.config.OllamaModel }

// Close is a no-op; the HTTP client holds no per-provider resources.
func (p *Provider) Close() error {
	p.logger.Debug("closing Ollama provider")
	return nil
}
